package arith

import (
	"go.starlark.net/starlark"
)

// defaultMaxSteps bounds the work a single evaluation may do.
const defaultMaxSteps = 100_000

// newThread returns a fresh thread for one evaluation. Threads are never
// shared, so function errors stashed in thread locals cannot leak between
// evaluations.
func newThread(maxSteps uint64) *starlark.Thread {
	thread := &starlark.Thread{
		Name:  "formula",
		Print: func(_ *starlark.Thread, _ string) {},
	}
	if maxSteps > 0 {
		thread.SetMaxExecutionSteps(maxSteps)
	}
	return thread
}
