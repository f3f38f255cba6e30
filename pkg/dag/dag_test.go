package dag

import (
	"errors"
	"reflect"
	"testing"
)

func buildGraph(t *testing.T, nodes []string, edges []Edge) *DAG {
	t.Helper()
	d := New()
	for i, id := range nodes {
		if err := d.AddNode(Node{ID: id, Depth: i}); err != nil {
			t.Fatalf("AddNode(%s): %v", id, err)
		}
	}
	for _, e := range edges {
		if err := d.AddEdge(e); err != nil {
			t.Fatalf("AddEdge(%s->%s): %v", e.From, e.To, err)
		}
	}
	return d
}

func TestAddNodeErrors(t *testing.T) {
	d := New()
	if err := d.AddNode(Node{}); !errors.Is(err, ErrInvalidNodeID) {
		t.Errorf("empty ID: got %v, want %v", err, ErrInvalidNodeID)
	}
	if err := d.AddNode(Node{ID: "a"}); err != nil {
		t.Fatal(err)
	}
	if err := d.AddNode(Node{ID: "a"}); !errors.Is(err, ErrDuplicateNodeID) {
		t.Errorf("duplicate: got %v, want %v", err, ErrDuplicateNodeID)
	}
}

func TestAddEdgeErrors(t *testing.T) {
	d := buildGraph(t, []string{"a"}, nil)
	if err := d.AddEdge(Edge{From: "ghost", To: "a"}); !errors.Is(err, ErrUnknownSourceNode) {
		t.Errorf("unknown source: got %v", err)
	}
	if err := d.AddEdge(Edge{From: "a", To: "ghost"}); !errors.Is(err, ErrUnknownTargetNode) {
		t.Errorf("unknown target: got %v", err)
	}
}

func TestNodesSorted(t *testing.T) {
	d := buildGraph(t, []string{"c", "a", "b"}, nil)
	var ids []string
	for _, n := range d.Nodes() {
		ids = append(ids, n.ID)
	}
	if !reflect.DeepEqual(ids, []string{"a", "b", "c"}) {
		t.Fatalf("Nodes() order = %v", ids)
	}
}

func TestRootsAndChildren(t *testing.T) {
	d := buildGraph(t,
		[]string{"app", "lib", "shared"},
		[]Edge{{From: "app", To: "lib"}, {From: "lib", To: "shared"}},
	)
	roots := d.Roots()
	if len(roots) != 1 || roots[0].ID != "app" {
		t.Fatalf("Roots() = %v", roots)
	}
	if got := d.Children("app"); !reflect.DeepEqual(got, []string{"lib"}) {
		t.Errorf("Children(app) = %v", got)
	}
	if got := d.Parents("shared"); !reflect.DeepEqual(got, []string{"lib"}) {
		t.Errorf("Parents(shared) = %v", got)
	}
}

func TestValidateCycle(t *testing.T) {
	d := buildGraph(t,
		[]string{"a", "b", "c"},
		[]Edge{{From: "a", To: "b"}, {From: "b", To: "c"}},
	)
	if err := d.Validate(); err != nil {
		t.Fatalf("acyclic graph rejected: %v", err)
	}
	if err := d.AddEdge(Edge{From: "c", To: "a"}); err != nil {
		t.Fatal(err)
	}
	if err := d.Validate(); !errors.Is(err, ErrGraphHasCycle) {
		t.Fatalf("cycle not detected: %v", err)
	}
}

func TestTopoOrder(t *testing.T) {
	d := buildGraph(t,
		[]string{"app", "lib-b", "lib-a", "shared"},
		[]Edge{
			{From: "app", To: "lib-a"},
			{From: "app", To: "lib-b"},
			{From: "lib-a", To: "shared"},
			{From: "lib-b", To: "shared"},
		},
	)
	order, err := d.TopoOrder()
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"app", "lib-a", "lib-b", "shared"}
	if !reflect.DeepEqual(order, want) {
		t.Fatalf("TopoOrder = %v, want %v", order, want)
	}

	if err := d.AddEdge(Edge{From: "shared", To: "app"}); err != nil {
		t.Fatal(err)
	}
	if _, err := d.TopoOrder(); !errors.Is(err, ErrGraphHasCycle) {
		t.Fatalf("cycle not detected: %v", err)
	}
}
