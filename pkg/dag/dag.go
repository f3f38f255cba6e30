// Package dag provides the directed acyclic graph backing dependency
// visualizations. Nodes are coordinates arranged by resolution depth; edges
// point from a requester to the dependency it pulled in.
package dag

import (
	"errors"
	"slices"
)

var (
	// ErrInvalidNodeID is returned by [DAG.AddNode] when the node ID is
	// empty.
	ErrInvalidNodeID = errors.New("node ID must not be empty")

	// ErrDuplicateNodeID is returned by [DAG.AddNode] when a node with the
	// same ID already exists.
	ErrDuplicateNodeID = errors.New("duplicate node ID")

	// ErrUnknownSourceNode is returned by [DAG.AddEdge] when the From node
	// does not exist.
	ErrUnknownSourceNode = errors.New("unknown source node")

	// ErrUnknownTargetNode is returned by [DAG.AddEdge] when the To node
	// does not exist.
	ErrUnknownTargetNode = errors.New("unknown target node")

	// ErrGraphHasCycle is returned by [DAG.Validate] when a cycle is
	// detected.
	ErrGraphHasCycle = errors.New("graph contains a cycle")
)

// Metadata stores arbitrary key-value pairs attached to nodes. Resolution
// builds graphs with version, scope and depth entries; renderers read
// whatever is present.
type Metadata map[string]any

// Node is a vertex of the dependency graph. ID is the versionless
// coordinate; Depth is its distance from the root descriptor.
type Node struct {
	ID    string
	Depth int
	Meta  Metadata
}

// Edge is a directed requester-to-dependency connection.
type Edge struct {
	From string
	To   string
}

// DAG is a dependency graph indexed by node ID and by depth. The zero value
// is not usable; use [New]. A DAG is not safe for concurrent mutation.
type DAG struct {
	nodes    map[string]*Node
	edges    []Edge
	outgoing map[string][]string
	incoming map[string][]string
}

// New creates an empty graph.
func New() *DAG {
	return &DAG{
		nodes:    make(map[string]*Node),
		outgoing: make(map[string][]string),
		incoming: make(map[string][]string),
	}
}

// AddNode adds a node. The node's Meta map is initialized when nil.
func (d *DAG) AddNode(n Node) error {
	if n.ID == "" {
		return ErrInvalidNodeID
	}
	if _, exists := d.nodes[n.ID]; exists {
		return ErrDuplicateNodeID
	}
	if n.Meta == nil {
		n.Meta = Metadata{}
	}
	d.nodes[n.ID] = &n
	return nil
}

// AddEdge adds a directed edge. Both endpoints must exist.
func (d *DAG) AddEdge(e Edge) error {
	if _, ok := d.nodes[e.From]; !ok {
		return ErrUnknownSourceNode
	}
	if _, ok := d.nodes[e.To]; !ok {
		return ErrUnknownTargetNode
	}
	d.edges = append(d.edges, e)
	d.outgoing[e.From] = append(d.outgoing[e.From], e.To)
	d.incoming[e.To] = append(d.incoming[e.To], e.From)
	return nil
}

// Node returns the node with the given ID, or nil.
func (d *DAG) Node(id string) *Node {
	return d.nodes[id]
}

// Nodes returns all nodes sorted by ID for deterministic iteration.
func (d *DAG) Nodes() []*Node {
	out := make([]*Node, 0, len(d.nodes))
	for _, n := range d.nodes {
		out = append(out, n)
	}
	slices.SortFunc(out, func(a, b *Node) int {
		if a.ID < b.ID {
			return -1
		}
		if a.ID > b.ID {
			return 1
		}
		return 0
	})
	return out
}

// Edges returns the graph's edges in insertion order.
func (d *DAG) Edges() []Edge {
	return d.edges
}

// Children returns the IDs of the nodes the given node points to.
func (d *DAG) Children(id string) []string {
	return d.outgoing[id]
}

// Parents returns the IDs of the nodes pointing to the given node.
func (d *DAG) Parents(id string) []string {
	return d.incoming[id]
}

// Roots returns the nodes with no incoming edges, sorted by ID.
func (d *DAG) Roots() []*Node {
	var out []*Node
	for _, n := range d.Nodes() {
		if len(d.incoming[n.ID]) == 0 {
			out = append(out, n)
		}
	}
	return out
}

// Len returns the number of nodes.
func (d *DAG) Len() int {
	return len(d.nodes)
}

// Validate checks that the graph is acyclic, using depth-first search with
// three-color marking.
func (d *DAG) Validate() error {
	const (
		white = iota
		grey
		black
	)
	color := make(map[string]int, len(d.nodes))

	var visit func(id string) error
	visit = func(id string) error {
		color[id] = grey
		for _, child := range d.outgoing[id] {
			switch color[child] {
			case grey:
				return ErrGraphHasCycle
			case white:
				if err := visit(child); err != nil {
					return err
				}
			}
		}
		color[id] = black
		return nil
	}

	for id := range d.nodes {
		if color[id] == white {
			if err := visit(id); err != nil {
				return err
			}
		}
	}
	return nil
}

// TopoOrder returns the node IDs in topological order, roots first. The
// order among independent nodes is lexicographic for determinism. Returns
// ErrGraphHasCycle when no such order exists.
func (d *DAG) TopoOrder() ([]string, error) {
	indegree := make(map[string]int, len(d.nodes))
	for id := range d.nodes {
		indegree[id] = len(d.incoming[id])
	}

	var ready []string
	for id, n := range indegree {
		if n == 0 {
			ready = append(ready, id)
		}
	}
	slices.Sort(ready)

	out := make([]string, 0, len(d.nodes))
	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]
		out = append(out, id)

		var unlocked []string
		for _, child := range d.outgoing[id] {
			indegree[child]--
			if indegree[child] == 0 {
				unlocked = append(unlocked, child)
			}
		}
		slices.Sort(unlocked)
		ready = append(ready, unlocked...)
	}

	if len(out) != len(d.nodes) {
		return nil, ErrGraphHasCycle
	}
	return out, nil
}
