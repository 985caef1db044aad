package recurring

import (
	"fmt"
	"strings"
	"time"

	"github.com/tidesys/dagmirror/pkg/loop"
)

// Policy decides what a recurring task does after each cycle, based on
// whether the cycle found work (updated) and whether it failed.
type Policy interface {
	Next(updated bool, err error) loop.Next
	String() string
}

// ParsePolicy reads a policy expression.
//
// Syntax: "forever[:COOLDOWN]", "backlog" or "until-error:POLICY" wrapping
// either of them. COOLDOWN is a Go duration.
func ParsePolicy(expr string) (Policy, error) {
	if rest, ok := strings.CutPrefix(expr, "until-error:"); ok {
		base, err := ParsePolicy(rest)
		if err != nil {
			return nil, err
		}
		return UntilError(base), nil
	}

	name, param, hasParam := strings.Cut(expr, ":")
	switch name {
	case "forever":
		cooldown := time.Duration(0)
		if hasParam && param != "" {
			d, err := time.ParseDuration(param)
			if err != nil {
				return nil, fmt.Errorf(`broken cooldown in "%s": %w`, expr, err)
			}
			cooldown = d
		}
		return Forever(cooldown), nil
	case "backlog":
		if hasParam {
			return nil, fmt.Errorf(`backlog policy takes no parameter: "%s"`, expr)
		}
		return Backlog(), nil
	default:
		return nil, fmt.Errorf(`unknown policy "%s" (forever[:COOLDOWN]|backlog|until-error:POLICY)`, name)
	}
}

type forever struct {
	cooldown time.Duration
}

// Forever keeps the loop running: immediately again while cycles find work,
// after cooldown once the backlog is drained. Errors do not stop it.
func Forever(cooldown time.Duration) Policy {
	return forever{cooldown: cooldown}
}

func (f forever) Next(updated bool, _ error) loop.Next {
	if updated {
		return loop.Continue(0)
	}
	return loop.Continue(f.cooldown)
}

func (f forever) String() string {
	return "forever:" + f.cooldown.String()
}

type backlog struct{}

// Backlog drains the backlog and then stops the loop without error.
func Backlog() Policy {
	return backlog{}
}

func (backlog) Next(updated bool, _ error) loop.Next {
	if updated {
		return loop.Continue(0)
	}
	return loop.Break(nil)
}

func (backlog) String() string {
	return "backlog"
}

type untilError struct {
	base Policy
}

// UntilError wraps a Policy so that any cycle error stops the loop with it.
func UntilError(base Policy) Policy {
	return untilError{base: base}
}

func (u untilError) Next(updated bool, err error) loop.Next {
	if err != nil {
		return loop.Break(err)
	}
	return u.base.Next(updated, nil)
}

func (u untilError) String() string {
	return u.base.String() + " (until error)"
}
