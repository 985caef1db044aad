package recurring_test

import (
	"errors"
	"testing"
	"time"

	"github.com/tidesys/dagmirror/cmd/loops/recurring"
	"github.com/tidesys/dagmirror/pkg/loop"
)

func TestParsePolicy(t *testing.T) {
	theoryOk := func(expr string, expected string) {
		t.Run("it parses "+expr, func(t *testing.T) {
			p, err := recurring.ParsePolicy(expr)
			if err != nil {
				t.Fatal(err)
			}
			if p.String() != expected {
				t.Errorf("policy mismatch. (actual, expected) = (%s, %s)", p.String(), expected)
			}
		})
	}

	theoryOk("forever", "forever:0s")
	theoryOk("forever:30s", "forever:30s")
	theoryOk("forever:5m", "forever:5m0s")
	theoryOk("backlog", "backlog")
	theoryOk("until-error:forever:30s", "forever:30s (until error)")
	theoryOk("until-error:backlog", "backlog (until error)")

	theoryNG := func(expr string) {
		t.Run("it rejects "+expr, func(t *testing.T) {
			if _, err := recurring.ParsePolicy(expr); err == nil {
				t.Error("no error is returned")
			}
		})
	}

	theoryNG("forever:xyz")
	theoryNG("backlog:30s")
	theoryNG("nosuchpolicy")
	theoryNG("until-error:")
	theoryNG("until-error:nosuchpolicy")
}

func TestPolicy(t *testing.T) {
	t.Run("forever continues regardless of error", func(t *testing.T) {
		p := recurring.Forever(3 * time.Second)

		if next := p.Next(true, nil); next != loop.Continue(0) {
			t.Errorf("on backlog: %s", next)
		}
		if next := p.Next(false, nil); next != loop.Continue(3*time.Second) {
			t.Errorf("on drained: %s", next)
		}
		if next := p.Next(false, errors.New("fake")); next != loop.Continue(3*time.Second) {
			t.Errorf("on error: %s", next)
		}
	})

	t.Run("backlog breaks when drained", func(t *testing.T) {
		p := recurring.Backlog()

		if next := p.Next(true, nil); next != loop.Continue(0) {
			t.Errorf("on backlog: %s", next)
		}
		if next := p.Next(false, nil); next != loop.Break(nil) {
			t.Errorf("on drained: %s", next)
		}
	})

	t.Run("untilError breaks on error only", func(t *testing.T) {
		p := recurring.UntilError(recurring.Forever(3 * time.Second))

		if next := p.Next(true, nil); next != loop.Continue(0) {
			t.Errorf("on backlog: %s", next)
		}

		fake := errors.New("fake")
		if next := p.Next(true, fake); next != loop.Break(fake) {
			t.Errorf("on error: %s", next)
		}
	})
}
