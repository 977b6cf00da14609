package links

import "github.com/leapstack-labs/leapcalc/pkg/core"

// ResolveValue returns the effective value of the field at ep by following
// links until an unlinked field is reached. When a link is broken or the
// chain loops back on itself, the value stored on the last field reached is
// returned instead. It never fails; a missing starting instance yields the
// zero Value.
func (a *Arena) ResolveValue(ep Endpoint) core.Value {
	v, _ := a.Resolve(ep)
	return v
}

// Resolve is ResolveValue that also reports where the value came from.
func (a *Arena) Resolve(ep Endpoint) (core.Value, Endpoint) {
	visited := make(map[Endpoint]bool)
	cur := ep
	for {
		in, ok := a.instances[cur.InstanceID]
		if !ok {
			return core.Value{}, cur
		}
		stored := in.FieldValues[cur.Field]
		visited[cur] = true

		link, linked := in.FieldLinks[cur.Field]
		if !linked {
			return stored, cur
		}
		next := Endpoint{InstanceID: link.TargetInstanceID, Field: link.TargetVariableName}
		if visited[next] {
			return stored, cur
		}
		if _, ok := a.Field(next); !ok {
			return stored, cur
		}
		cur = next
	}
}

// ResolveInstance returns the effective value of every field on the instance
// with the given ID: stored values with linked fields replaced by their
// resolved values.
func (a *Arena) ResolveInstance(id string) map[string]core.Value {
	in, ok := a.instances[id]
	if !ok {
		return nil
	}
	out := make(map[string]core.Value, len(in.FieldValues)+len(in.FieldLinks))
	for name, v := range in.FieldValues {
		out[name] = v
	}
	for name := range in.FieldLinks {
		out[name] = a.ResolveValue(Endpoint{InstanceID: id, Field: name})
	}
	return out
}
