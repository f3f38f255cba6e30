package render

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/matzehuels/pomstack/pkg/dag"
)

// Graph is the JSON serialization format for dependency graphs, used by API
// responses and external tooling. Nodes are sorted by ID so output is
// deterministic and diff-friendly.
type Graph struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}

// GraphNode is a serialized dependency graph node.
type GraphNode struct {
	ID      string `json:"id"`
	Version string `json:"version,omitempty"`
	Scope   string `json:"scope,omitempty"`
	Depth   int    `json:"depth"`
	Root    bool   `json:"root,omitempty"`
}

// GraphEdge is a serialized requester-to-dependency edge.
type GraphEdge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// FromDAG converts a graph to its serialization format.
func FromDAG(g *dag.DAG) Graph {
	nodes := g.Nodes()
	out := Graph{
		Nodes: make([]GraphNode, len(nodes)),
		Edges: make([]GraphEdge, len(g.Edges())),
	}
	for i, n := range nodes {
		node := GraphNode{ID: n.ID, Depth: n.Depth}
		if v, ok := n.Meta["version"].(string); ok {
			node.Version = v
		}
		if s, ok := n.Meta["scope"].(string); ok {
			node.Scope = s
		}
		if root, ok := n.Meta["root"].(bool); ok {
			node.Root = root
		}
		out.Nodes[i] = node
	}
	for i, e := range g.Edges() {
		out.Edges[i] = GraphEdge{From: e.From, To: e.To}
	}
	return out
}

// ToDAG rebuilds a graph from its serialization format.
func ToDAG(g Graph) (*dag.DAG, error) {
	d := dag.New()
	for _, n := range g.Nodes {
		meta := dag.Metadata{}
		if n.Version != "" {
			meta["version"] = n.Version
		}
		if n.Scope != "" {
			meta["scope"] = n.Scope
		}
		if n.Root {
			meta["root"] = true
		}
		if err := d.AddNode(dag.Node{ID: n.ID, Depth: n.Depth, Meta: meta}); err != nil {
			return nil, fmt.Errorf("add node %s: %w", n.ID, err)
		}
	}
	for _, e := range g.Edges {
		if err := d.AddEdge(dag.Edge{From: e.From, To: e.To}); err != nil {
			return nil, fmt.Errorf("add edge %s to %s: %w", e.From, e.To, err)
		}
	}
	return d, nil
}

// WriteGraph writes a graph as indented JSON.
func WriteGraph(g *dag.DAG, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(FromDAG(g)); err != nil {
		return fmt.Errorf("encode graph: %w", err)
	}
	return nil
}

// ReadGraph decodes a JSON graph.
func ReadGraph(r io.Reader) (*dag.DAG, error) {
	var g Graph
	if err := json.NewDecoder(r).Decode(&g); err != nil {
		return nil, fmt.Errorf("decode graph: %w", err)
	}
	return ToDAG(g)
}
