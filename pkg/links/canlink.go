package links

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/leapcalc/pkg/core"
	"github.com/leapstack-labs/leapcalc/pkg/formula"
)

// Result is the outcome of a link check.
type Result struct {
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
	// Cycle is the offending path when the link would close a cycle.
	Cycle []string `json:"cycle,omitempty"`
}

// Err returns the rejection as a formula error, or nil for a valid link.
func (r Result) Err() error {
	if r.Valid {
		return nil
	}
	return formula.NewLinkRejectedError(r.Error)
}

func reject(format string, args ...any) Result {
	return Result{Error: fmt.Sprintf(format, args...)}
}

// CanLink reports whether source may be linked to read from target. An
// existing link on source is treated as replaced.
func (a *Arena) CanLink(source, target Endpoint) Result {
	if source == target {
		return reject("Cannot link a field to itself")
	}
	if _, ok := a.instances[source.InstanceID]; !ok {
		return reject("Source instance '%s' not found", source.InstanceID)
	}
	if _, ok := a.instances[target.InstanceID]; !ok {
		return reject("Target instance '%s' not found", target.InstanceID)
	}
	srcField, res := a.endpointField(source)
	if srcField == nil {
		return res
	}
	tgtField, res := a.endpointField(target)
	if tgtField == nil {
		return res
	}
	if ok, reason := AreTypesCompatible(*srcField, *tgtField); !ok {
		return reject("%s", reason)
	}

	// The link closes a cycle only when target already reads from source.
	g := a.graph(&source)
	if back := g.Path(target.String(), source.String()); back != nil {
		path := append([]string{source.String()}, back...)
		return Result{
			Error: "Link would create a cycle: " + strings.Join(path, " → "),
			Cycle: path,
		}
	}
	return Result{Valid: true}
}

// endpointField returns the field definition at ep, or a rejection when the
// instance's module or the field is missing.
func (a *Arena) endpointField(ep Endpoint) (*core.Field, Result) {
	in := a.instances[ep.InstanceID]
	m, ok := a.modules[in.ModuleID]
	if !ok {
		return nil, reject("Module '%s' of instance '%s' not found", in.ModuleID, ep.InstanceID)
	}
	f, ok := m.Field(ep.Field)
	if !ok {
		return nil, reject("Field '%s' not found on instance '%s'", ep.Field, ep.InstanceID)
	}
	return f, Result{}
}
