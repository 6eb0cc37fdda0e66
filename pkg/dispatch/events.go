package dispatch

import (
	"fmt"

	"github.com/dmitrymomot/mailmerge/pkg/recipient"
)

// Events carries the callbacks a dispatch job reports through. Any member
// may be nil; emission order within each callback matches processing
// order. Callbacks run on the worker goroutine, so they must not block on
// the job itself.
type Events struct {
	// Progress receives the integer percentage of processed rows (0-100),
	// emitted after every row of the first pass regardless of outcome.
	Progress func(percent int)

	// Log receives human-readable progress and failure lines with enough
	// context (row number or address) to act on.
	Log func(message string)

	// RowStatus reports a row's final state for the current attempt, keyed
	// by the stable batch index.
	RowStatus func(index int, status recipient.Status)

	// Finished fires exactly once when the job ends, whether it completed,
	// was cancelled, or died on a fatal error.
	Finished func()
}

func (e Events) progress(percent int) {
	if e.Progress != nil {
		e.Progress(percent)
	}
}

func (e Events) logf(format string, args ...any) {
	if e.Log != nil {
		e.Log(fmt.Sprintf(format, args...))
	}
}

func (e Events) rowStatus(index int, status recipient.Status) {
	if e.RowStatus != nil {
		e.RowStatus(index, status)
	}
}

func (e Events) finished() {
	if e.Finished != nil {
		e.Finished()
	}
}
