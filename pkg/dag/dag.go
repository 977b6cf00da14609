// Package dag provides the directed graph behind field links.
// Nodes are field endpoints; an edge points from the field that reads a value
// to the field it reads from. The graph supports cycle detection, shortest
// paths, topological ordering and reachability queries.
package dag

import (
	"fmt"
	"slices"
	"sort"
)

// Node represents a node in the graph.
type Node struct {
	// ID is the unique identifier ("instance.field" for link graphs)
	ID string
	// Data holds arbitrary node data
	Data any
}

// Graph is a directed graph with ordered adjacency lists.
type Graph struct {
	nodes   map[string]*Node
	edges   map[string][]string // from -> to
	parents map[string][]string // to -> from
}

// NewGraph creates a new empty graph.
func NewGraph() *Graph {
	return &Graph{
		nodes:   make(map[string]*Node),
		edges:   make(map[string][]string),
		parents: make(map[string][]string),
	}
}

// AddNode adds a node to the graph, updating its data if it already exists.
func (g *Graph) AddNode(id string, data any) {
	if node, exists := g.nodes[id]; exists {
		node.Data = data
		return
	}
	g.nodes[id] = &Node{ID: id, Data: data}
	g.edges[id] = []string{}
	g.parents[id] = []string{}
}

// AddEdge adds a directed edge from one node to another. Both nodes must
// exist and self-loops are rejected. Duplicate edges are ignored.
func (g *Graph) AddEdge(fromID, toID string) error {
	if _, exists := g.nodes[fromID]; !exists {
		return fmt.Errorf("node %q does not exist", fromID)
	}
	if _, exists := g.nodes[toID]; !exists {
		return fmt.Errorf("node %q does not exist", toID)
	}
	if fromID == toID {
		return fmt.Errorf("self-loop detected: %s", fromID)
	}

	if !slices.Contains(g.edges[fromID], toID) {
		g.edges[fromID] = append(g.edges[fromID], toID)
	}
	if !slices.Contains(g.parents[toID], fromID) {
		g.parents[toID] = append(g.parents[toID], fromID)
	}
	return nil
}

// RemoveEdge deletes the edge from one node to another if present.
func (g *Graph) RemoveEdge(fromID, toID string) {
	g.edges[fromID] = slices.DeleteFunc(g.edges[fromID], func(id string) bool { return id == toID })
	g.parents[toID] = slices.DeleteFunc(g.parents[toID], func(id string) bool { return id == fromID })
}

// GetNode returns a node by ID.
func (g *Graph) GetNode(id string) (*Node, bool) {
	node, exists := g.nodes[id]
	return node, exists
}

// GetParents returns the nodes with an edge into id.
func (g *Graph) GetParents(id string) []string {
	return g.parents[id]
}

// GetChildren returns the nodes id has an edge to.
func (g *Graph) GetChildren(id string) []string {
	return g.edges[id]
}

// GetAllNodes returns all nodes sorted by ID.
func (g *Graph) GetAllNodes() []*Node {
	nodes := make([]*Node, 0, len(g.nodes))
	for _, node := range g.nodes {
		nodes = append(nodes, node)
	}
	sort.Slice(nodes, func(i, j int) bool {
		return nodes[i].ID < nodes[j].ID
	})
	return nodes
}

// NodeCount returns the number of nodes in the graph.
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount returns the number of edges in the graph.
func (g *Graph) EdgeCount() int {
	count := 0
	for _, children := range g.edges {
		count += len(children)
	}
	return count
}

func (g *Graph) sortedIDs() []string {
	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// HasCycle reports whether the graph contains a cycle, along with the cycle
// path. The path starts and ends with the same node.
func (g *Graph) HasCycle() (bool, []string) {
	c := newCycleSearch(g)
	for _, id := range g.sortedIDs() {
		if !c.visited[id] && c.dfs(id) {
			return true, c.cycle
		}
	}
	return false, nil
}

// Path returns a shortest path from one node to another, both included, or
// nil when to is not reachable from from.
func (g *Graph) Path(from, to string) []string {
	if _, ok := g.nodes[from]; !ok {
		return nil
	}
	if _, ok := g.nodes[to]; !ok {
		return nil
	}
	prev := map[string]string{from: ""}
	queue := []string{from}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if id == to {
			var path []string
			for curr := to; curr != from; curr = prev[curr] {
				path = append(path, curr)
			}
			path = append(path, from)
			slices.Reverse(path)
			return path
		}
		for _, childID := range g.edges[id] {
			if _, seen := prev[childID]; !seen {
				prev[childID] = id
				queue = append(queue, childID)
			}
		}
	}
	return nil
}

type cycleSearch struct {
	g        *Graph
	visited  map[string]bool
	recStack map[string]bool
	path     map[string]string
	cycle    []string
}

func newCycleSearch(g *Graph) *cycleSearch {
	return &cycleSearch{
		g:        g,
		visited:  make(map[string]bool),
		recStack: make(map[string]bool),
		path:     make(map[string]string),
	}
}

func (c *cycleSearch) dfs(id string) bool {
	c.visited[id] = true
	c.recStack[id] = true

	for _, childID := range c.g.edges[id] {
		if !c.visited[childID] {
			c.path[childID] = id
			if c.dfs(childID) {
				return true
			}
		} else if c.recStack[childID] {
			c.cycle = []string{childID}
			for curr := id; curr != childID; curr = c.path[curr] {
				c.cycle = append([]string{curr}, c.cycle...)
			}
			c.cycle = append([]string{childID}, c.cycle...)
			return true
		}
	}

	c.recStack[id] = false
	return false
}

// TopologicalSort returns nodes so that every node appears after the nodes
// it has edges to. Returns an error if the graph contains a cycle.
func (g *Graph) TopologicalSort() ([]*Node, error) {
	if hasCycle, cyclePath := g.HasCycle(); hasCycle {
		return nil, fmt.Errorf("cycle detected: %v", cyclePath)
	}

	visited := make(map[string]bool)
	var result []*Node

	var visit func(id string)
	visit = func(id string) {
		if visited[id] {
			return
		}
		visited[id] = true
		for _, childID := range g.edges[id] {
			visit(childID)
		}
		result = append(result, g.nodes[id])
	}

	for _, id := range g.sortedIDs() {
		visit(id)
	}
	return result, nil
}

// GetUpstreamNodes returns every node with a path into id, sorted.
func (g *Graph) GetUpstreamNodes(id string) []string {
	upstream := make(map[string]bool)

	var mark func(nodeID string)
	mark = func(nodeID string) {
		for _, parentID := range g.parents[nodeID] {
			if !upstream[parentID] {
				upstream[parentID] = true
				mark(parentID)
			}
		}
	}
	mark(id)
	delete(upstream, id)

	result := make([]string, 0, len(upstream))
	for nodeID := range upstream {
		result = append(result, nodeID)
	}
	sort.Strings(result)
	return result
}
