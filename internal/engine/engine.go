// Package engine evaluates quotes against a loaded workspace. It resolves
// field links, evaluates each instance's module formula and computed outputs,
// and records runs in the state store.
package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/leapstack-labs/leapcalc/internal/loader"
	"github.com/leapstack-labs/leapcalc/internal/state"
	"github.com/leapstack-labs/leapcalc/pkg/arith"
	"github.com/leapstack-labs/leapcalc/pkg/core"
	"github.com/leapstack-labs/leapcalc/pkg/formula"
	"github.com/leapstack-labs/leapcalc/pkg/lint"
)

// ErrNotFound is wrapped by every lookup of a module, quote, instance or
// field that does not exist.
var ErrNotFound = errors.New("not found")

// DefaultConcurrency is used when Config.Concurrency is not set.
const DefaultConcurrency = 4

// Engine evaluates formulas and quotes from a workspace.
// It is safe for concurrent use; Reload swaps the workspace atomically.
type Engine struct {
	mu sync.RWMutex
	ws *core.Workspace

	path        string
	store       state.Store
	ownsStore   bool
	concurrency int
	lintConfig  *lint.Config
	interp      *arith.Interpreter

	// Structured logger
	logger *slog.Logger
}

// Config holds engine configuration.
type Config struct {
	// WorkspacePath is the workspace document to load. Link changes are
	// written back to it.
	WorkspacePath string
	// Workspace is used instead of loading WorkspacePath when set.
	Workspace *core.Workspace
	// StatePath is the SQLite run history database. Runs are not recorded
	// when both StatePath and Store are empty.
	StatePath string
	// Store overrides StatePath with an already opened store.
	Store state.Store
	// Concurrency bounds how many quote lines are evaluated at once.
	Concurrency int
	// Lint configures the validator rules.
	Lint *lint.Config
	// Interpreter overrides the default function registry.
	Interpreter *arith.Interpreter
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// New creates an engine, loading the workspace and opening the run history
// store as configured.
func New(cfg Config) (*Engine, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	logger.Debug("initializing engine", "workspace", cfg.WorkspacePath, "state", cfg.StatePath)

	ws := cfg.Workspace
	if ws == nil {
		if cfg.WorkspacePath == "" {
			return nil, fmt.Errorf("no workspace configured")
		}
		var err error
		ws, err = loader.Load(cfg.WorkspacePath)
		if err != nil {
			return nil, fmt.Errorf("failed to load workspace: %w", err)
		}
	}

	e := &Engine{
		ws:          ws,
		path:        cfg.WorkspacePath,
		store:       cfg.Store,
		concurrency: cfg.Concurrency,
		lintConfig:  cfg.Lint,
		interp:      cfg.Interpreter,
		logger:      logger,
	}
	if e.concurrency <= 0 {
		e.concurrency = DefaultConcurrency
	}
	if e.interp == nil {
		e.interp = arith.Default()
	}

	if e.store == nil && cfg.StatePath != "" {
		store := state.NewSQLiteStore(logger)
		if err := store.Open(cfg.StatePath); err != nil {
			return nil, fmt.Errorf("failed to open state store: %w", err)
		}
		if err := store.Migrate(); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("failed to initialize state schema: %w", err)
		}
		e.store = store
		e.ownsStore = true
	}

	return e, nil
}

// Close releases the state store if the engine opened it.
func (e *Engine) Close() error {
	if e.ownsStore && e.store != nil {
		return e.store.Close()
	}
	return nil
}

// Store returns the run history store, or nil when runs are not recorded.
func (e *Engine) Store() state.Store {
	return e.store
}

// WorkspacePath returns the workspace document path, if any.
func (e *Engine) WorkspacePath() string {
	return e.path
}

// Workspace returns the current workspace. Callers must not modify it.
func (e *Engine) Workspace() *core.Workspace {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.ws
}

// Reload reads the workspace document again. On failure the previous
// workspace stays in place.
func (e *Engine) Reload() error {
	if e.path == "" {
		return fmt.Errorf("engine has no workspace path")
	}
	ws, err := loader.Load(e.path)
	if err != nil {
		return fmt.Errorf("failed to reload workspace: %w", err)
	}
	e.setWorkspace(ws)
	e.logger.Debug("workspace reloaded", "path", e.path, "modules", len(ws.Modules), "quotes", len(ws.Quotes))
	return nil
}

func (e *Engine) setWorkspace(ws *core.Workspace) {
	e.mu.Lock()
	e.ws = ws
	e.mu.Unlock()
}

// Module returns the module with the given ID.
func (e *Engine) Module(id string) (*core.Module, error) {
	m, ok := e.Workspace().Module(id)
	if !ok {
		return nil, fmt.Errorf("module %q %w", id, ErrNotFound)
	}
	return m, nil
}

// Modules returns the workspace modules sorted by ID.
func (e *Engine) Modules() []core.Module {
	mods := append([]core.Module(nil), e.Workspace().Modules...)
	sort.Slice(mods, func(i, j int) bool { return mods[i].ID < mods[j].ID })
	return mods
}

// Quote returns the quote with the given ID.
func (e *Engine) Quote(id string) (*core.Quote, error) {
	q, ok := e.Workspace().Quote(id)
	if !ok {
		return nil, fmt.Errorf("quote %q %w", id, ErrNotFound)
	}
	return q, nil
}

func (e *Engine) lintOptions(extra ...lint.Option) []lint.Option {
	opts := []lint.Option{lint.WithInterpreter(e.interp)}
	if e.lintConfig != nil {
		opts = append(opts, lint.WithConfig(e.lintConfig))
	}
	return append(opts, extra...)
}

func (e *Engine) newContext(fields []core.Field, values map[string]core.Value) *formula.Context {
	return formula.NewContext(fields, e.Workspace().Materials, values, formula.WithInterpreter(e.interp))
}
