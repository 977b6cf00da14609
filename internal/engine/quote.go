package engine

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/leapcalc/pkg/core"
	"github.com/leapstack-labs/leapcalc/pkg/formula"
	"github.com/leapstack-labs/leapcalc/pkg/links"
)

// LineResult is the outcome of one quote instance.
type LineResult struct {
	InstanceID string          `json:"instance_id"`
	ModuleID   string          `json:"module_id"`
	Label      string          `json:"label"`
	Position   int             `json:"position"`
	Value      float64         `json:"value"`
	Outputs    formula.Outputs `json:"outputs"`
	Error      string          `json:"error,omitempty"`
	Kind       formula.Kind    `json:"kind,omitempty"`
}

// OK reports whether the line formula evaluated.
func (l LineResult) OK() bool {
	return l.Error == ""
}

// QuoteResult is the outcome of evaluating a quote.
type QuoteResult struct {
	QuoteID string         `json:"quote_id"`
	Name    string         `json:"name,omitempty"`
	RunID   string         `json:"run_id,omitempty"`
	Status  core.RunStatus `json:"status"`
	Lines   []LineResult   `json:"lines"`
	Total   float64        `json:"total"`
}

// Failed returns the lines whose formula failed.
func (r *QuoteResult) Failed() []LineResult {
	var out []LineResult
	for _, l := range r.Lines {
		if !l.OK() {
			out = append(out, l)
		}
	}
	return out
}

// EvaluateQuote evaluates every instance of a quote. Linked fields read their
// resolved values. A failing line keeps its error and contributes 0 to the
// total; it never stops the other lines. When a store is configured the
// evaluation is recorded as a run.
func (e *Engine) EvaluateQuote(ctx context.Context, quoteID string) (*QuoteResult, error) {
	return e.evaluateQuote(ctx, quoteID, e.store != nil)
}

// PreviewQuote evaluates a quote like EvaluateQuote without recording a run.
func (e *Engine) PreviewQuote(ctx context.Context, quoteID string) (*QuoteResult, error) {
	return e.evaluateQuote(ctx, quoteID, false)
}

func (e *Engine) evaluateQuote(ctx context.Context, quoteID string, record bool) (*QuoteResult, error) {
	ws := e.Workspace()
	q, ok := ws.Quote(quoteID)
	if !ok {
		return nil, fmt.Errorf("quote %q %w", quoteID, ErrNotFound)
	}

	e.logger.Debug("evaluating quote", "quote", quoteID, "lines", len(q.Instances))

	result := &QuoteResult{
		QuoteID: q.ID,
		Name:    q.Name,
		Lines:   make([]LineResult, len(q.Instances)),
	}

	var run *core.QuoteRun
	if record {
		var err error
		run, err = e.store.CreateRun(ctx, q.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to record run: %w", err)
		}
		result.RunID = run.ID
	}

	arena := links.NewArena(q.Instances, ws.Modules)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i := range q.Instances {
		in := &q.Instances[i]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			result.Lines[i] = e.evaluateLine(ws, arena, in, i)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if run != nil {
			_ = e.store.CompleteRun(context.WithoutCancel(ctx), run.ID, core.RunStatusFailed, 0, err.Error())
		}
		return nil, fmt.Errorf("quote %q: %w", quoteID, err)
	}

	var failures []string
	for _, line := range result.Lines {
		result.Total += line.Value
		if !line.OK() {
			failures = append(failures, line.InstanceID+": "+line.Error)
			e.logger.Debug("line failed", "quote", quoteID, "instance", line.InstanceID, "kind", line.Kind)
		}
	}
	result.Status = runStatus(len(result.Lines), len(failures))

	if run != nil {
		if err := e.recordRun(ctx, run.ID, result, failures); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (e *Engine) evaluateLine(ws *core.Workspace, arena *links.Arena, in *core.Instance, pos int) LineResult {
	line := LineResult{
		InstanceID: in.ID,
		ModuleID:   in.ModuleID,
		Label:      in.Label,
		Position:   pos,
	}
	m, ok := ws.Module(in.ModuleID)
	if !ok {
		line.Error = fmt.Sprintf("Module '%s' not found", in.ModuleID)
		return line
	}
	if line.Label == "" {
		line.Label = m.Name
	}

	fctx := formula.NewContext(m.Fields, ws.Materials, arena.ResolveInstance(in.ID), formula.WithInterpreter(e.interp))
	v, err := fctx.Evaluate(m.Formula)
	if err != nil {
		line.Error = err.Error()
		line.Kind = formula.KindOf(err)
	} else {
		line.Value = v
	}
	// Outputs only see the fields and earlier outputs, never the line value.
	line.Outputs = formula.EvaluateComputedOutputs(m.ComputedOutputs, fctx)
	return line
}

func runStatus(lines, failed int) core.RunStatus {
	switch {
	case failed == 0:
		return core.RunStatusCompleted
	case failed == lines:
		return core.RunStatusFailed
	default:
		return core.RunStatusPartial
	}
}

func (e *Engine) recordRun(ctx context.Context, runID string, result *QuoteResult, failures []string) error {
	for _, line := range result.Lines {
		lr := &core.LineResult{
			RunID:      runID,
			InstanceID: line.InstanceID,
			ModuleID:   line.ModuleID,
			Position:   line.Position,
			Value:      line.Value,
			Outputs:    line.Outputs.Map(),
			Error:      line.Error,
		}
		if err := e.store.SaveLineResult(ctx, lr); err != nil {
			return fmt.Errorf("failed to record line %s: %w", line.InstanceID, err)
		}
	}
	if err := e.store.CompleteRun(ctx, runID, result.Status, result.Total, strings.Join(failures, "; ")); err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	return nil
}
