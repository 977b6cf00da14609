package core

import (
	"context"
	"time"
)

// Store defines the interface for run history operations.
type Store interface {
	Open(path string) error
	Close() error
	Migrate() error

	// Run operations
	CreateRun(ctx context.Context, quoteID string) (*QuoteRun, error)
	CompleteRun(ctx context.Context, id string, status RunStatus, total float64, errMsg string) error
	GetRun(ctx context.Context, id string) (*QuoteRun, error)
	ListRuns(ctx context.Context, quoteID string, limit int) ([]*QuoteRun, error)

	// Line result operations
	SaveLineResult(ctx context.Context, result *LineResult) error
	GetLineResults(ctx context.Context, runID string) ([]*LineResult, error)
}

// RunStatus represents the status of a quote evaluation run.
type RunStatus string

// Run status values.
const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusPartial   RunStatus = "partial"
	RunStatusFailed    RunStatus = "failed"
)

// QuoteRun records one evaluation of a quote.
type QuoteRun struct {
	ID          string     `json:"id"`
	QuoteID     string     `json:"quote_id"`
	Status      RunStatus  `json:"status"`
	Total       float64    `json:"total"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// LineResult records the outcome of one instance within a run.
type LineResult struct {
	RunID      string             `json:"run_id"`
	InstanceID string             `json:"instance_id"`
	ModuleID   string             `json:"module_id"`
	Position   int                `json:"position"`
	Value      float64            `json:"value"`
	Outputs    map[string]float64 `json:"outputs,omitempty"`
	Error      string             `json:"error,omitempty"`
}
