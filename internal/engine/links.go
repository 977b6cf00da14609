package engine

import (
	"context"
	"fmt"

	"github.com/leapstack-labs/leapcalc/internal/loader"
	"github.com/leapstack-labs/leapcalc/pkg/core"
	"github.com/leapstack-labs/leapcalc/pkg/links"
)

// Arena returns the link arena of a quote.
func (e *Engine) Arena(quoteID string) (*links.Arena, error) {
	q, err := e.Quote(quoteID)
	if err != nil {
		return nil, err
	}
	return links.NewArena(q.Instances, e.Workspace().Modules), nil
}

// CanLink reports whether source may read its value from target within a
// quote.
func (e *Engine) CanLink(quoteID string, source, target links.Endpoint) (links.Result, error) {
	arena, err := e.Arena(quoteID)
	if err != nil {
		return links.Result{}, err
	}
	return arena.CanLink(source, target), nil
}

// Links returns every link of a quote with its state.
func (e *Engine) Links(quoteID string) ([]links.Link, error) {
	arena, err := e.Arena(quoteID)
	if err != nil {
		return nil, err
	}
	return arena.Links(), nil
}

// ResolveLink returns the effective value of ep and the field it came from.
func (e *Engine) ResolveLink(quoteID string, ep links.Endpoint) (core.Value, links.Endpoint, error) {
	arena, err := e.Arena(quoteID)
	if err != nil {
		return core.Value{}, links.Endpoint{}, err
	}
	if _, ok := arena.Field(ep); !ok {
		return core.Value{}, links.Endpoint{}, fmt.Errorf("field %s %w", ep, ErrNotFound)
	}
	v, from := arena.Resolve(ep)
	return v, from, nil
}

// Link makes source read its value from target. The link is checked first;
// a rejection is returned as a link_rejected error. When the engine has a
// workspace path the change is written back to the document.
func (e *Engine) Link(ctx context.Context, quoteID string, source, target links.Endpoint) error {
	return e.updateQuote(ctx, quoteID, func(ws *core.Workspace, q *core.Quote) error {
		arena := links.NewArena(q.Instances, ws.Modules)
		if err := arena.CanLink(source, target).Err(); err != nil {
			return err
		}
		in := instanceOf(q, source.InstanceID)
		if in.FieldLinks == nil {
			in.FieldLinks = make(map[string]core.FieldLink)
		}
		in.FieldLinks[source.Field] = core.FieldLink{
			TargetInstanceID:   target.InstanceID,
			TargetVariableName: target.Field,
		}
		e.logger.Debug("linked field", "quote", quoteID, "source", source.String(), "target", target.String())
		return nil
	})
}

// Unlink removes the link on source. The field goes back to its stored value.
func (e *Engine) Unlink(ctx context.Context, quoteID string, source links.Endpoint) error {
	return e.updateQuote(ctx, quoteID, func(_ *core.Workspace, q *core.Quote) error {
		in := instanceOf(q, source.InstanceID)
		if in == nil {
			return fmt.Errorf("instance %q %w", source.InstanceID, ErrNotFound)
		}
		if _, ok := in.FieldLinks[source.Field]; !ok {
			return fmt.Errorf("field %s is not linked", source)
		}
		delete(in.FieldLinks, source.Field)
		e.logger.Debug("unlinked field", "quote", quoteID, "source", source.String())
		return nil
	})
}

// updateQuote applies fn to a copy of one quote and installs the result.
// With a workspace path the document is updated under its file lock.
func (e *Engine) updateQuote(ctx context.Context, quoteID string, fn func(*core.Workspace, *core.Quote) error) error {
	apply := func(ws *core.Workspace) error {
		q, ok := ws.Quote(quoteID)
		if !ok {
			return fmt.Errorf("quote %q %w", quoteID, ErrNotFound)
		}
		return fn(ws, q)
	}

	if e.path == "" {
		e.mu.Lock()
		defer e.mu.Unlock()
		ws := cloneWorkspace(e.ws)
		if err := apply(ws); err != nil {
			return err
		}
		e.ws = ws
		return nil
	}

	ws, err := loader.Update(ctx, e.path, apply)
	if err != nil {
		return err
	}
	e.setWorkspace(ws)
	return nil
}

func instanceOf(q *core.Quote, id string) *core.Instance {
	for i := range q.Instances {
		if q.Instances[i].ID == id {
			return &q.Instances[i]
		}
	}
	return nil
}

// cloneWorkspace copies the quotes deeply enough to change links without
// touching the original. Materials and modules are shared.
func cloneWorkspace(ws *core.Workspace) *core.Workspace {
	out := *ws
	out.Quotes = make([]core.Quote, len(ws.Quotes))
	for i, q := range ws.Quotes {
		q.Instances = append([]core.Instance(nil), q.Instances...)
		for j := range q.Instances {
			q.Instances[j] = q.Instances[j].Clone()
		}
		out.Quotes[i] = q
	}
	return &out
}
