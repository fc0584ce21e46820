package world

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound indicates that no local file or remote record exists for the
// requested name.
var ErrNotFound = errors.New("not found")

// ErrNeverSynced is returned by MigrateToPublic when the world has no
// private-zone record yet: at least one successful Save must happen first.
var ErrNeverSynced = errors.New("world has never been synced to the private zone")

// IOError wraps a local filesystem failure.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// RemoteError wraps a remote store failure. Transient failures (network or
// service hiccups) are retryable in principle; permanent ones (missing
// record, permission denied) are not. The store itself never retries —
// callers decide whether a failure is terminal for the current operation.
type RemoteError struct {
	Op        string
	Transient bool
	Err       error
}

func (e *RemoteError) Error() string {
	kind := "permanent"
	if e.Transient {
		kind = "transient"
	}
	return fmt.Sprintf("remote %s (%s): %v", e.Op, kind, e.Err)
}

func (e *RemoteError) Unwrap() error { return e.Err }

// StepError records the failure of one step of a compound operation.
type StepError struct {
	Step string
	Err  error
}

// PartialError reports a multi-step operation that partially completed.
// Earlier steps are not undone; the next LoadAll reconciliation pass is
// expected to self-heal residual inconsistency. Steps lists every failure,
// not just the last one.
type PartialError struct {
	Op    string
	Steps []StepError
}

func (e *PartialError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s partially completed (%d step(s) failed):", e.Op, len(e.Steps))
	for _, s := range e.Steps {
		fmt.Fprintf(&b, " [%s: %v]", s.Step, s.Err)
	}
	return b.String()
}

// Failed reports whether the named step is among the failures.
func (e *PartialError) Failed(step string) bool {
	for _, s := range e.Steps {
		if s.Step == step {
			return true
		}
	}
	return false
}
