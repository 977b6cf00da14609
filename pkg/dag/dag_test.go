package dag

import (
	"reflect"
	"testing"
)

func TestGraph_AddNodeAndEdge(t *testing.T) {
	g := NewGraph()

	g.AddNode("a", "node A")
	g.AddNode("b", "node B")
	g.AddNode("c", "node C")

	if g.NodeCount() != 3 {
		t.Errorf("expected 3 nodes, got %d", g.NodeCount())
	}
	if err := g.AddEdge("a", "b"); err != nil {
		t.Errorf("failed to add edge: %v", err)
	}
	if err := g.AddEdge("b", "c"); err != nil {
		t.Errorf("failed to add edge: %v", err)
	}
	if g.EdgeCount() != 2 {
		t.Errorf("expected 2 edges, got %d", g.EdgeCount())
	}

	g.AddNode("a", "updated")
	node, ok := g.GetNode("a")
	if !ok || node.Data != "updated" {
		t.Errorf("expected node data to be updated, got %v", node)
	}
	if g.EdgeCount() != 2 {
		t.Errorf("re-adding a node must keep its edges, got %d edges", g.EdgeCount())
	}
}

func TestGraph_AddEdge_InvalidNodes(t *testing.T) {
	g := NewGraph()
	g.AddNode("a", nil)

	if err := g.AddEdge("a", "nonexistent"); err == nil {
		t.Error("expected error for nonexistent target node")
	}
	if err := g.AddEdge("nonexistent", "a"); err == nil {
		t.Error("expected error for nonexistent source node")
	}
}

func TestGraph_AddEdge_SelfLoop(t *testing.T) {
	g := NewGraph()
	g.AddNode("a", nil)

	if err := g.AddEdge("a", "a"); err == nil {
		t.Error("expected error for self-loop")
	}
}

func TestGraph_DuplicateAndRemoveEdges(t *testing.T) {
	g := NewGraph()
	g.AddNode("a", nil)
	g.AddNode("b", nil)

	_ = g.AddEdge("a", "b")
	_ = g.AddEdge("a", "b")
	if g.EdgeCount() != 1 {
		t.Errorf("expected duplicate edge to be ignored, got %d edges", g.EdgeCount())
	}

	g.RemoveEdge("a", "b")
	if g.EdgeCount() != 0 {
		t.Errorf("expected 0 edges after removal, got %d", g.EdgeCount())
	}
	if len(g.GetParents("b")) != 0 {
		t.Errorf("expected no parents after removal, got %v", g.GetParents("b"))
	}

	// removing a missing edge is a no-op
	g.RemoveEdge("b", "a")
}

func TestGraph_GetParentsAndChildren(t *testing.T) {
	g := NewGraph()
	g.AddNode("a", nil)
	g.AddNode("b", nil)
	g.AddNode("c", nil)
	_ = g.AddEdge("a", "c")
	_ = g.AddEdge("b", "c")

	parents := g.GetParents("c")
	if !reflect.DeepEqual(parents, []string{"a", "b"}) {
		t.Errorf("expected parents [a b], got %v", parents)
	}
	children := g.GetChildren("a")
	if !reflect.DeepEqual(children, []string{"c"}) {
		t.Errorf("expected children [c], got %v", children)
	}
}

func TestGraph_HasCycle(t *testing.T) {
	g := NewGraph()
	for _, id := range []string{"a", "b", "c"} {
		g.AddNode(id, nil)
	}
	_ = g.AddEdge("a", "b")
	_ = g.AddEdge("b", "c")

	if hasCycle, _ := g.HasCycle(); hasCycle {
		t.Fatal("expected no cycle")
	}

	_ = g.AddEdge("c", "a")
	hasCycle, path := g.HasCycle()
	if !hasCycle {
		t.Fatal("expected cycle")
	}
	want := []string{"a", "b", "c", "a"}
	if !reflect.DeepEqual(path, want) {
		t.Errorf("expected cycle path %v, got %v", want, path)
	}
}

func TestGraph_Path(t *testing.T) {
	g := NewGraph()
	for _, id := range []string{"A.x", "B.y", "C.z", "D.w", "E.v"} {
		g.AddNode(id, nil)
	}
	_ = g.AddEdge("A.x", "B.y")
	_ = g.AddEdge("B.y", "C.z")
	_ = g.AddEdge("A.x", "C.z")
	_ = g.AddEdge("C.z", "D.w")
	_ = g.AddEdge("D.w", "C.z")

	want := []string{"A.x", "C.z", "D.w"}
	if path := g.Path("A.x", "D.w"); !reflect.DeepEqual(path, want) {
		t.Errorf("expected shortest path %v, got %v", want, path)
	}
	if path := g.Path("D.w", "A.x"); path != nil {
		t.Errorf("expected no path against edge direction, got %v", path)
	}
	if path := g.Path("C.z", "E.v"); path != nil {
		t.Errorf("expected no path to isolated node, got %v", path)
	}
	if path := g.Path("missing", "A.x"); path != nil {
		t.Errorf("expected no path from missing node, got %v", path)
	}
}

func TestGraph_TopologicalSort(t *testing.T) {
	g := NewGraph()
	for _, id := range []string{"a", "b", "c", "d"} {
		g.AddNode(id, nil)
	}
	// a reads b, b reads c and d
	_ = g.AddEdge("a", "b")
	_ = g.AddEdge("b", "c")
	_ = g.AddEdge("b", "d")

	sorted, err := g.TopologicalSort()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	pos := make(map[string]int)
	for i, node := range sorted {
		pos[node.ID] = i
	}
	if len(pos) != 4 {
		t.Fatalf("expected 4 nodes, got %d", len(pos))
	}
	if pos["c"] > pos["b"] || pos["d"] > pos["b"] || pos["b"] > pos["a"] {
		t.Errorf("unexpected order: %v", pos)
	}
}

func TestGraph_TopologicalSort_WithCycle(t *testing.T) {
	g := NewGraph()
	g.AddNode("a", nil)
	g.AddNode("b", nil)
	_ = g.AddEdge("a", "b")
	_ = g.AddEdge("b", "a")

	if _, err := g.TopologicalSort(); err == nil {
		t.Error("expected error for cyclic graph")
	}
}

func TestGraph_GetUpstreamNodes(t *testing.T) {
	g := NewGraph()
	for _, id := range []string{"a", "b", "c", "d"} {
		g.AddNode(id, nil)
	}
	_ = g.AddEdge("a", "b")
	_ = g.AddEdge("b", "c")
	_ = g.AddEdge("d", "c")

	upstream := g.GetUpstreamNodes("c")
	want := []string{"a", "b", "d"}
	if !reflect.DeepEqual(upstream, want) {
		t.Errorf("expected upstream %v, got %v", want, upstream)
	}
	if got := g.GetUpstreamNodes("a"); len(got) != 0 {
		t.Errorf("expected no upstream nodes for a, got %v", got)
	}
}

func TestGraph_GetAllNodes_Sorted(t *testing.T) {
	g := NewGraph()
	g.AddNode("c", nil)
	g.AddNode("a", nil)
	g.AddNode("b", nil)

	var ids []string
	for _, n := range g.GetAllNodes() {
		ids = append(ids, n.ID)
	}
	if !reflect.DeepEqual(ids, []string{"a", "b", "c"}) {
		t.Errorf("expected sorted ids, got %v", ids)
	}
}
