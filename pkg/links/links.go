// Package links manages field links between module instances: whether a link
// may be created, which links are broken, and the effective value of a
// linked field.
//
// A link makes the source field read its value from the target field. Links
// form a directed graph over "instance.field" nodes that must stay acyclic.
package links

import (
	"fmt"
	"sort"
	"strings"

	"github.com/leapstack-labs/leapcalc/pkg/core"
	"github.com/leapstack-labs/leapcalc/pkg/dag"
)

// Endpoint names a field on a module instance.
type Endpoint struct {
	InstanceID string `json:"instance_id"`
	Field      string `json:"field"`
}

// String returns the "instance.field" form used in graph node IDs.
func (e Endpoint) String() string {
	return e.InstanceID + "." + e.Field
}

// ParseEndpoint parses "instance.field".
func ParseEndpoint(s string) (Endpoint, error) {
	i := strings.LastIndex(s, ".")
	if i <= 0 || i == len(s)-1 {
		return Endpoint{}, fmt.Errorf("invalid endpoint %q: expected instance.field", s)
	}
	return Endpoint{InstanceID: s[:i], Field: s[i+1:]}, nil
}

// State is the link state of a field.
type State int

// Link states.
const (
	// Unlinked fields use their stored value.
	Unlinked State = iota
	// Live links point at an existing instance and field.
	Live
	// Broken links point at a missing instance or field; the stored value is
	// used instead.
	Broken
)

func (s State) String() string {
	switch s {
	case Live:
		return "linked"
	case Broken:
		return "broken"
	default:
		return "unlinked"
	}
}

// Arena indexes instances and modules by ID. It is read-only; callers build a
// new arena after changing links.
type Arena struct {
	instances map[string]*core.Instance
	order     []string
	modules   map[string]*core.Module
}

// NewArena indexes instances and modules. Later duplicates win.
func NewArena(instances []core.Instance, modules []core.Module) *Arena {
	a := &Arena{
		instances: make(map[string]*core.Instance, len(instances)),
		modules:   make(map[string]*core.Module, len(modules)),
	}
	for i := range instances {
		if _, seen := a.instances[instances[i].ID]; !seen {
			a.order = append(a.order, instances[i].ID)
		}
		a.instances[instances[i].ID] = &instances[i]
	}
	for i := range modules {
		a.modules[modules[i].ID] = &modules[i]
	}
	return a
}

// Instance returns the instance with the given ID.
func (a *Arena) Instance(id string) (*core.Instance, bool) {
	in, ok := a.instances[id]
	return in, ok
}

// Field returns the definition of the field an endpoint names.
func (a *Arena) Field(ep Endpoint) (*core.Field, bool) {
	in, ok := a.instances[ep.InstanceID]
	if !ok {
		return nil, false
	}
	m, ok := a.modules[in.ModuleID]
	if !ok {
		return nil, false
	}
	return m.Field(ep.Field)
}

// State reports whether the field at ep is unlinked, linked or broken.
func (a *Arena) State(ep Endpoint) State {
	in, ok := a.instances[ep.InstanceID]
	if !ok {
		return Unlinked
	}
	link, ok := in.FieldLinks[ep.Field]
	if !ok {
		return Unlinked
	}
	if _, ok := a.Field(Endpoint{InstanceID: link.TargetInstanceID, Field: link.TargetVariableName}); !ok {
		return Broken
	}
	return Live
}

// Link is one field link.
type Link struct {
	Source Endpoint `json:"source"`
	Target Endpoint `json:"target"`
	State  State    `json:"-"`
}

// Links returns every link in instance order, then field name order.
func (a *Arena) Links() []Link {
	var out []Link
	for _, id := range a.order {
		in := a.instances[id]
		fields := make([]string, 0, len(in.FieldLinks))
		for f := range in.FieldLinks {
			fields = append(fields, f)
		}
		sort.Strings(fields)
		for _, f := range fields {
			l := in.FieldLinks[f]
			src := Endpoint{InstanceID: id, Field: f}
			out = append(out, Link{
				Source: src,
				Target: Endpoint{InstanceID: l.TargetInstanceID, Field: l.TargetVariableName},
				State:  a.State(src),
			})
		}
	}
	return out
}

// BrokenLinks returns the links whose target instance or field is missing.
func (a *Arena) BrokenLinks() []Link {
	var out []Link
	for _, l := range a.Links() {
		if l.State == Broken {
			out = append(out, l)
		}
	}
	return out
}

// Graph returns the live links as a graph with an edge from each source to
// its target. Nodes are "instance.field".
func (a *Arena) Graph() *dag.Graph {
	return a.graph(nil)
}

// graph builds the link graph, leaving out the link whose source is skip.
func (a *Arena) graph(skip *Endpoint) *dag.Graph {
	g := dag.NewGraph()
	for _, l := range a.Links() {
		if l.State != Live || (skip != nil && l.Source == *skip) {
			continue
		}
		g.AddNode(l.Source.String(), l.Source)
		g.AddNode(l.Target.String(), l.Target)
		_ = g.AddEdge(l.Source.String(), l.Target.String())
	}
	return g
}

// Dependents returns every field that reads ep's value, directly or through
// other links, sorted.
func (a *Arena) Dependents(ep Endpoint) []Endpoint {
	g := a.Graph()
	var out []Endpoint
	for _, id := range g.GetUpstreamNodes(ep.String()) {
		node, _ := g.GetNode(id)
		out = append(out, node.Data.(Endpoint))
	}
	return out
}

// Order returns every linked field so that each appears after the fields it
// reads from.
func (a *Arena) Order() ([]Endpoint, error) {
	nodes, err := a.Graph().TopologicalSort()
	if err != nil {
		return nil, err
	}
	out := make([]Endpoint, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.Data.(Endpoint))
	}
	return out, nil
}
