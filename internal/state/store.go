// Package state records quote evaluation history in SQLite.
// Each quote evaluation is a run; each instance evaluated within it is a line
// result.
package state

import (
	"errors"

	"github.com/leapstack-labs/leapcalc/pkg/core"
)

// Store is the run history interface the engine writes to.
type Store = core.Store

// ErrNotFound is returned when a requested run does not exist.
var ErrNotFound = errors.New("not found")

var _ Store = (*SQLiteStore)(nil)
