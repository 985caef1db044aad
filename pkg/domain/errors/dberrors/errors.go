package dberrors

import (
	"errors"
	"fmt"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
)

var (
	ErrMissing = errors.New("missing")
)

// requested record is missing.
type Missing struct {
	Table    string
	Identity string
}

var _ error = Missing{}

func (m Missing) Error() string {
	return fmt.Sprintf("%s is not found in %s", m.Identity, m.Table)
}

func (m Missing) Unwrap() error {
	return ErrMissing
}

// AsIntegrityViolation reports whether err is the database rejecting the
// record itself (unique, check, not-null, foreign-key violation) rather than
// failing to reach or operate the store.
func AsIntegrityViolation(err error) bool {
	var pgerr *pgconn.PgError
	if !errors.As(err, &pgerr) {
		return false
	}
	switch pgerr.Code {
	case pgerrcode.UniqueViolation,
		pgerrcode.CheckViolation,
		pgerrcode.NotNullViolation,
		pgerrcode.ForeignKeyViolation,
		pgerrcode.StringDataRightTruncationDataException:
		return true
	default:
		return false
	}
}
