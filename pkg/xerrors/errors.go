// Package xerrors provides an error wrapper which knows where it was created.
//
// Usage:
//
//	wrapped := xerrors.Wrap(err)
//
// `wrapped` carries filename, line and function name of the wrap site.
// Reading its message, each "<-" marks one wrapping layer.
package xerrors

import (
	"errors"
	"fmt"
	"runtime"
)

type ErrWithCaller struct {
	file     string
	line     int
	funcname string
	note     string
	err      error
}

func (e *ErrWithCaller) File() string {
	return e.file
}

func (e *ErrWithCaller) Line() int {
	return e.line
}

func (e *ErrWithCaller) Error() string {
	if e.note == "" {
		return fmt.Sprintf(`@ %s "%s" l%d <- %s`, e.funcname, e.file, e.line, e.err.Error())
	}
	return fmt.Sprintf(`@ %s "%s" l%d (%s) <- %s`, e.funcname, e.file, e.line, e.note, e.err.Error())
}

func (e *ErrWithCaller) Unwrap() error {
	return e.err
}

func New(text string) error {
	return wrap("", errors.New(text), 1)
}

func Errorf(format string, args ...any) error {
	return wrap("", fmt.Errorf(format, args...), 1)
}

func Wrap(err error) error {
	if err == nil {
		return nil
	}
	return wrap("", err, 1)
}

func WithNote(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return wrap(fmt.Sprintf(format, args...), err, 1)
}

func wrap(note string, err error, skip int) error {
	pc, file, line, ok := runtime.Caller(skip + 1)
	if !ok {
		return err
	}

	funcname := "(unknown)"
	if fn := runtime.FuncForPC(pc); fn != nil {
		funcname = fn.Name()
	}

	return &ErrWithCaller{
		file:     file,
		line:     line,
		funcname: funcname,
		note:     note,
		err:      err,
	}
}
