package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapcalc/internal/loader"
	"github.com/leapstack-labs/leapcalc/internal/state"
	"github.com/leapstack-labs/leapcalc/internal/testutil"
	"github.com/leapstack-labs/leapcalc/pkg/core"
	"github.com/leapstack-labs/leapcalc/pkg/formula"
	"github.com/leapstack-labs/leapcalc/pkg/links"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	path := testutil.WriteWorkspace(t, t.TempDir())
	e, err := New(Config{WorkspacePath: path, Logger: testutil.NewTestLogger(t)})
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e
}

// newMemoryEngine returns an engine over an in-memory copy of the sample
// workspace after applying mutate.
func newMemoryEngine(t *testing.T, mutate func(ws *core.Workspace), opts ...func(*Config)) *Engine {
	t.Helper()
	ws, err := loader.Load(testutil.WriteWorkspace(t, t.TempDir()))
	require.NoError(t, err)
	if mutate != nil {
		mutate(ws)
	}
	cfg := Config{Workspace: ws, Logger: testutil.NewTestLogger(t)}
	for _, opt := range opts {
		opt(&cfg)
	}
	e, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func TestNew(t *testing.T) {
	t.Run("requires a workspace", func(t *testing.T) {
		_, err := New(Config{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no workspace configured")
	})

	t.Run("missing workspace file", func(t *testing.T) {
		_, err := New(Config{WorkspacePath: filepath.Join(t.TempDir(), "missing.yaml")})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to load workspace")
	})

	t.Run("opens state store", func(t *testing.T) {
		dir := t.TempDir()
		e, err := New(Config{
			WorkspacePath: testutil.WriteWorkspace(t, dir),
			StatePath:     filepath.Join(dir, ".leapcalc", "state.db"),
		})
		require.NoError(t, err)
		defer func() { _ = e.Close() }()
		assert.NotNil(t, e.Store())
		assert.FileExists(t, filepath.Join(dir, ".leapcalc", "state.db"))
	})
}

func TestEngine_Modules(t *testing.T) {
	e := newTestEngine(t)

	mods := e.Modules()
	require.Len(t, mods, 2)
	assert.Equal(t, "trim", mods[0].ID)
	assert.Equal(t, "wall", mods[1].ID)

	_, err := e.Module("door")
	assert.Error(t, err)

	_, err = e.Quote("q9")
	assert.Error(t, err)
}

func TestEngine_EvaluateQuote(t *testing.T) {
	e := newTestEngine(t)

	res, err := e.EvaluateQuote(context.Background(), "q1")
	require.NoError(t, err)

	assert.Equal(t, "Kitchen", res.Name)
	assert.Equal(t, core.RunStatusCompleted, res.Status)
	assert.InDelta(t, 137.0, res.Total, 1e-9)
	assert.Empty(t, res.RunID, "no store, no run")
	require.Len(t, res.Lines, 2)

	wall := res.Lines[0]
	assert.Equal(t, "w1", wall.InstanceID)
	assert.Equal(t, "Wall", wall.Label)
	assert.InDelta(t, 125.0, wall.Value, 1e-9)
	assert.True(t, wall.Outputs.OK())
	assert.Equal(t, map[string]float64{"area": 10, "boards": 9}, wall.Outputs.Map())

	trim := res.Lines[1]
	assert.Equal(t, 1, trim.Position)
	assert.InDelta(t, 12.0, trim.Value, 1e-9, "length is linked to the wall width")
}

func TestEngine_EvaluateQuote_NotFound(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.EvaluateQuote(context.Background(), "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `quote "nope" not found`)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEngine_LookupsWrapErrNotFound(t *testing.T) {
	e := newTestEngine(t)

	_, err := e.Module("door")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.EqualError(t, err, `module "door" not found`)

	_, err = e.Quote("nope")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = e.Validate("1", "door")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEngine_EvaluateQuote_FailedLine(t *testing.T) {
	e := newMemoryEngine(t, func(ws *core.Workspace) {
		m, _ := ws.Module("trim")
		m.Formula = "length * markup"
	})

	res, err := e.EvaluateQuote(context.Background(), "q1")
	require.NoError(t, err)

	assert.Equal(t, core.RunStatusPartial, res.Status)
	assert.InDelta(t, 125.0, res.Total, 1e-9, "failed line contributes 0")
	failed := res.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, "t1", failed[0].InstanceID)
	assert.Equal(t, formula.KindMissingVariables, failed[0].Kind)
	assert.Contains(t, failed[0].Error, "markup")
}

func TestEngine_EvaluateQuote_AllFailed(t *testing.T) {
	e := newMemoryEngine(t, func(ws *core.Workspace) {
		q, _ := ws.Quote("q1")
		for i := range q.Instances {
			q.Instances[i].ModuleID = "gone"
		}
	})

	res, err := e.EvaluateQuote(context.Background(), "q1")
	require.NoError(t, err)
	assert.Equal(t, core.RunStatusFailed, res.Status)
	assert.Zero(t, res.Total)
	assert.Equal(t, "Module 'gone' not found", res.Lines[0].Error)
}

func TestEngine_EvaluateQuote_RecordsRun(t *testing.T) {
	store := state.NewSQLiteStore(nil)
	require.NoError(t, store.Open(":memory:"))
	require.NoError(t, store.Migrate())
	defer func() { _ = store.Close() }()

	e := newMemoryEngine(t, nil, func(cfg *Config) {
		cfg.Store = store
		cfg.Concurrency = 1
	})
	ctx := context.Background()

	res, err := e.EvaluateQuote(ctx, "q1")
	require.NoError(t, err)
	require.NotEmpty(t, res.RunID)

	run, err := store.GetRun(ctx, res.RunID)
	require.NoError(t, err)
	assert.Equal(t, "q1", run.QuoteID)
	assert.Equal(t, core.RunStatusCompleted, run.Status)
	assert.InDelta(t, 137.0, run.Total, 1e-9)
	assert.NotNil(t, run.CompletedAt)

	lines, err := store.GetLineResults(ctx, res.RunID)
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, "w1", lines[0].InstanceID)
	assert.InDelta(t, 9.0, lines[0].Outputs["boards"], 1e-9)
	assert.Equal(t, "t1", lines[1].InstanceID)

	// Closing the engine leaves a store it did not open alone.
	require.NoError(t, e.Close())
	_, err = store.ListRuns(ctx, "q1", 0)
	assert.NoError(t, err)
}

func TestEngine_EvaluateQuote_Canceled(t *testing.T) {
	e := newTestEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.EvaluateQuote(ctx, "q1")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEngine_Evaluate(t *testing.T) {
	e := newTestEngine(t)

	tests := []struct {
		name    string
		expr    string
		module  string
		values  map[string]core.Value
		want    float64
		wantErr formula.Kind
	}{
		{
			name:   "module fields",
			expr:   "width * height",
			module: "wall",
			values: map[string]core.Value{"width": core.Number(2), "height": core.Number(3)},
			want:   6,
		},
		{
			name:   "field default",
			expr:   "coats * 10",
			module: "wall",
			want:   20,
		},
		{
			name:   "material property",
			expr:   "board.thickness",
			module: "wall",
			values: map[string]core.Value{"board": core.String("mat_board")},
			want:   0.01,
		},
		{
			name:   "free variables",
			expr:   "a + b * 2",
			values: map[string]core.Value{"a": core.Number(1), "b": core.Number(4)},
			want:   9,
		},
		{
			name:   "catalog material",
			expr:   "paint * 2",
			want:   40,
		},
		{
			name:    "missing value",
			expr:    "width * height",
			module:  "wall",
			values:  map[string]core.Value{"width": core.Number(2)},
			wantErr: formula.KindMissingVariables,
		},
		{
			name:    "no material selected",
			expr:    "board.price",
			module:  "wall",
			wantErr: formula.KindMissingMaterialSelection,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.Evaluate(tt.expr, tt.module, tt.values)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantErr, formula.KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}

	_, err := e.Evaluate("1", "door", nil)
	assert.Error(t, err)
}

func TestEngine_ValidateAndAnalyze(t *testing.T) {
	e := newTestEngine(t)

	res, err := e.Validate("width * board.price", "wall")
	require.NoError(t, err)
	assert.True(t, res.Valid)

	res, err = e.Validate("width * depth", "wall")
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Equal(t, formula.KindUndefinedVariable, res.Kind)

	res, err = e.Validate("width * depth", "wall", "depth")
	require.NoError(t, err)
	assert.True(t, res.Valid)

	diags, err := e.Diagnostics("width * (height", "wall")
	require.NoError(t, err)
	require.NotEmpty(t, diags)
	assert.Equal(t, formula.KindSyntax, diags[0].Kind())

	an, err := e.Analyze("width * board.price", "wall")
	require.NoError(t, err)
	assert.Contains(t, an.Variables, "width")

	names := e.KnownNames("wall")
	assert.Contains(t, names, "width")
	assert.Contains(t, names, "mat_board")
	assert.Contains(t, names, "ceil")
}

func TestEngine_ValidateWorkspace(t *testing.T) {
	t.Run("sample is valid", func(t *testing.T) {
		e := newTestEngine(t)
		report, err := e.ValidateWorkspace()
		require.NoError(t, err)
		assert.True(t, report.OK())
		assert.Len(t, report.Modules, 2)
		assert.Empty(t, report.Quotes)
	})

	t.Run("invalid module and broken link", func(t *testing.T) {
		e := newMemoryEngine(t, func(ws *core.Workspace) {
			m, _ := ws.Module("wall")
			m.ComputedOutputs[1].Expression = "ceil(area / board.depth)"
			q, _ := ws.Quote("q1")
			q.Instances[1].FieldLinks["length"] = core.FieldLink{TargetInstanceID: "w9", TargetVariableName: "width"}
		})

		report, err := e.ValidateWorkspace()
		require.NoError(t, err)
		assert.False(t, report.OK())

		wall := report.Modules[1]
		assert.Equal(t, "wall", wall.ModuleID)
		assert.True(t, wall.Formula.Valid)
		assert.False(t, wall.Outputs.Valid)
		assert.Equal(t, formula.KindPropertyNotFound, wall.Outputs.Kind)

		require.Len(t, report.Quotes, 1)
		require.Len(t, report.Quotes[0].BrokenLinks, 1)
		assert.Equal(t, "t1.length", report.Quotes[0].BrokenLinks[0].Source.String())
	})

	t.Run("selected modules", func(t *testing.T) {
		e := newTestEngine(t)
		reports, err := e.ValidateModules("trim")
		require.NoError(t, err)
		require.Len(t, reports, 1)
		assert.Equal(t, "trim", reports[0].ModuleID)

		_, err = e.ValidateModules("door")
		assert.Error(t, err)
	})
}

func TestEngine_Links(t *testing.T) {
	ctx := context.Background()
	ep := func(s string) links.Endpoint {
		p, err := links.ParseEndpoint(s)
		require.NoError(t, err)
		return p
	}

	t.Run("check", func(t *testing.T) {
		e := newTestEngine(t)

		res, err := e.CanLink("q1", ep("w1.height"), ep("t1.length"))
		require.NoError(t, err)
		assert.True(t, res.Valid)

		res, err = e.CanLink("q1", ep("w1.width"), ep("t1.length"))
		require.NoError(t, err)
		assert.False(t, res.Valid)
		assert.Equal(t, []string{"w1.width", "t1.length", "w1.width"}, res.Cycle)

		_, err = e.CanLink("q9", ep("w1.width"), ep("t1.length"))
		assert.Error(t, err)
	})

	t.Run("resolve", func(t *testing.T) {
		e := newTestEngine(t)

		v, from, err := e.ResolveLink("q1", ep("t1.length"))
		require.NoError(t, err)
		assert.Equal(t, "w1.width", from.String())
		n, _ := v.AsNumber()
		assert.InDelta(t, 4.0, n, 1e-9)

		_, _, err = e.ResolveLink("q1", ep("t1.depth"))
		assert.Error(t, err)
	})

	t.Run("link and unlink persist", func(t *testing.T) {
		e := newTestEngine(t)

		err := e.Link(ctx, "q1", ep("t1.rate"), ep("w1.coats"))
		require.NoError(t, err)

		res, err := e.EvaluateQuote(ctx, "q1")
		require.NoError(t, err)
		assert.InDelta(t, 133.0, res.Total, 1e-9, "rate now reads coats = 2")

		reloaded, err := loader.Load(e.WorkspacePath())
		require.NoError(t, err)
		q, _ := reloaded.Quote("q1")
		assert.Equal(t, core.FieldLink{TargetInstanceID: "w1", TargetVariableName: "coats"}, q.Instances[1].FieldLinks["rate"])

		require.NoError(t, e.Unlink(ctx, "q1", ep("t1.length")))
		res, err = e.EvaluateQuote(ctx, "q1")
		require.NoError(t, err)
		assert.InDelta(t, 127.0, res.Total, 1e-9, "length falls back to its stored value")

		assert.Error(t, e.Unlink(ctx, "q1", ep("t1.length")))
	})

	t.Run("rejected link leaves workspace unchanged", func(t *testing.T) {
		e := newTestEngine(t)
		before, err := os.ReadFile(e.WorkspacePath())
		require.NoError(t, err)

		err = e.Link(ctx, "q1", ep("w1.width"), ep("t1.length"))
		require.Error(t, err)
		assert.Equal(t, formula.KindLinkRejected, formula.KindOf(err))

		after, err := os.ReadFile(e.WorkspacePath())
		require.NoError(t, err)
		assert.Equal(t, before, after)
	})

	t.Run("in memory", func(t *testing.T) {
		e := newMemoryEngine(t, nil)
		original := e.Workspace()

		require.NoError(t, e.Link(ctx, "q1", ep("t1.rate"), ep("w1.height")))

		ls, err := e.Links("q1")
		require.NoError(t, err)
		assert.Len(t, ls, 2)

		q, _ := original.Quote("q1")
		assert.NotContains(t, q.Instances[1].FieldLinks, "rate", "earlier snapshots are not modified")
	})
}

func TestEngine_PreviewQuote(t *testing.T) {
	store := state.NewSQLiteStore(nil)
	require.NoError(t, store.Open(":memory:"))
	require.NoError(t, store.Migrate())
	defer func() { _ = store.Close() }()

	e := newMemoryEngine(t, nil, func(cfg *Config) { cfg.Store = store })
	ctx := context.Background()

	res, err := e.PreviewQuote(ctx, "q1")
	require.NoError(t, err)
	assert.InDelta(t, 137.0, res.Total, 1e-9)
	assert.Empty(t, res.RunID)

	runs, err := store.ListRuns(ctx, "", 0)
	require.NoError(t, err)
	assert.Empty(t, runs)
}
