// Package render turns resolved dependency graphs into Graphviz DOT and SVG
// output, plus a JSON serialization for API responses and tooling.
package render

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/pomstack/pkg/dag"
	"github.com/matzehuels/pomstack/pkg/resolve"
)

// Options configures DOT rendering.
type Options struct {
	// Detailed includes version and scope in node labels. When false, only
	// the versionless coordinate is shown.
	Detailed bool
}

// FromProject builds the dependency graph of a resolved project: one node
// per coordinate, edges from requester to dependency. The root descriptor is
// included as the graph's single root.
func FromProject(p *resolve.ResolvedProject) (*dag.DAG, error) {
	g := dag.New()

	rootID := p.Requested.GAV.GroupArtifact().String()
	if err := g.AddNode(dag.Node{
		ID:    rootID,
		Depth: 0,
		Meta:  dag.Metadata{"version": p.Requested.GAV.Version, "root": true},
	}); err != nil {
		return nil, fmt.Errorf("add root %s: %w", rootID, err)
	}

	for _, d := range p.Dependencies {
		if err := g.AddNode(dag.Node{
			ID:    d.GAV.GroupArtifact().String(),
			Depth: d.Depth,
			Meta: dag.Metadata{
				"version": d.GAV.Version,
				"scope":   d.Scope,
			},
		}); err != nil {
			return nil, fmt.Errorf("add node %s: %w", d.GAV, err)
		}
	}
	for _, d := range p.Dependencies {
		from := rootID
		if d.RequestedBy.Artifact != "" {
			from = d.RequestedBy.GroupArtifact().String()
		}
		if err := g.AddEdge(dag.Edge{From: from, To: d.GAV.GroupArtifact().String()}); err != nil {
			return nil, fmt.Errorf("add edge to %s: %w", d.GAV, err)
		}
	}
	return g, nil
}

// ToDOT converts a dependency graph to Graphviz DOT. The result renders with
// [ToSVG] or any external Graphviz toolchain.
func ToDOT(g *dag.DAG, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph dependencies {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=12];\n")
	buf.WriteString("\n")

	for _, n := range g.Nodes() {
		attrs := []string{fmt.Sprintf("label=%q", nodeLabel(n, opts.Detailed))}
		if isRoot, _ := n.Meta["root"].(bool); isRoot {
			attrs = append(attrs, "fillcolor=lightblue")
		}
		fmt.Fprintf(&buf, "  %q [%s];\n", n.ID, strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for _, e := range g.Edges() {
		fmt.Fprintf(&buf, "  %q -> %q;\n", e.From, e.To)
	}

	buf.WriteString("}\n")
	return buf.String()
}

func nodeLabel(n *dag.Node, detailed bool) string {
	if !detailed {
		return n.ID
	}
	parts := []string{n.ID}
	if v, ok := n.Meta["version"].(string); ok && v != "" {
		parts = append(parts, v)
	}
	if s, ok := n.Meta["scope"].(string); ok && s != "" {
		parts = append(parts, s)
	}
	return strings.Join(parts, "\n")
}

// ToSVG renders a DOT graph to SVG using Graphviz.
func ToSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}
