package tracker

import (
	"reflect"
	"testing"

	"github.com/starford/loaderd/internal/models"
)

func node(id, label string) models.Node {
	return models.Node{ID: id, Type: "concept", Label: label}
}

func edge(source, target, typ string) models.Edge {
	return models.Edge{Source: source, Target: target, Type: typ}
}

func TestMergeGraphsFirstRun(t *testing.T) {
	next := models.Graph{
		Nodes: []models.Node{node("a", "A"), node("b", "B")},
		Edges: []models.Edge{edge("a", "b", "relates")},
	}

	merged, additions := MergeGraphs(models.EmptyGraph(), next)

	if len(merged.Nodes) != 2 || len(merged.Edges) != 1 {
		t.Fatalf("merged = %d nodes %d edges, want 2/1", len(merged.Nodes), len(merged.Edges))
	}
	if !reflect.DeepEqual(additions, next) {
		t.Errorf("first-run additions should equal the whole new graph, got %+v", additions)
	}
}

func TestMergeGraphsUnionAndOverwrite(t *testing.T) {
	previous := models.Graph{
		Nodes: []models.Node{node("a", "old label"), node("b", "B")},
		Edges: []models.Edge{edge("a", "b", "relates")},
	}
	next := models.Graph{
		Nodes: []models.Node{
			{ID: "a", Type: "person", Label: "new label", Properties: map[string]any{"k": "v"}},
			node("c", "C"),
		},
		Edges: []models.Edge{edge("b", "c", "follows")},
	}

	merged, additions := MergeGraphs(previous, next)

	if len(merged.Nodes) != 3 {
		t.Fatalf("merged nodes = %d, want 3", len(merged.Nodes))
	}
	// Insertion order: previous first, then new additions.
	ids := []string{merged.Nodes[0].ID, merged.Nodes[1].ID, merged.Nodes[2].ID}
	if !reflect.DeepEqual(ids, []string{"a", "b", "c"}) {
		t.Errorf("node order = %v, want [a b c]", ids)
	}

	// Colliding key replaces the whole record, not a field merge.
	if merged.Nodes[0].Label != "new label" || merged.Nodes[0].Type != "person" {
		t.Errorf("node a not overwritten: %+v", merged.Nodes[0])
	}
	if merged.Nodes[0].Properties["k"] != "v" {
		t.Errorf("node a properties not replaced: %+v", merged.Nodes[0].Properties)
	}

	if len(additions.Nodes) != 1 || additions.Nodes[0].ID != "c" {
		t.Errorf("additions.Nodes = %+v, want only c", additions.Nodes)
	}
	if len(additions.Edges) != 1 || additions.Edges[0].Source != "b" {
		t.Errorf("additions.Edges = %+v, want only b->c", additions.Edges)
	}
	if len(merged.Edges) != 2 {
		t.Errorf("merged edges = %d, want 2", len(merged.Edges))
	}
}

func TestMergeGraphsIdempotent(t *testing.T) {
	g := models.Graph{
		Nodes: []models.Node{node("a", "A"), node("b", "B")},
		Edges: []models.Edge{edge("a", "b", "relates")},
	}

	merged, additions := MergeGraphs(g, g)

	if !reflect.DeepEqual(merged, g) {
		t.Errorf("re-merge changed the graph: %+v", merged)
	}
	if len(additions.Nodes) != 0 || len(additions.Edges) != 0 {
		t.Errorf("re-merge produced additions: %+v", additions)
	}
}

func TestMergeGraphsSkipsInvalidRecords(t *testing.T) {
	next := models.Graph{
		Nodes: []models.Node{{ID: "", Label: "anonymous"}, node("a", "A")},
		Edges: []models.Edge{
			{Source: "", Target: "a", Type: "x"},
			{Source: "a", Target: "", Type: "x"},
			edge("a", "ghost", "points"),
		},
	}

	merged, additions := MergeGraphs(models.EmptyGraph(), next)

	if len(merged.Nodes) != 1 {
		t.Errorf("id-less node not skipped: %+v", merged.Nodes)
	}
	// A dangling edge to a nonexistent node is kept; only missing
	// endpoints disqualify.
	if len(merged.Edges) != 1 || merged.Edges[0].Target != "ghost" {
		t.Errorf("merged.Edges = %+v, want only a->ghost", merged.Edges)
	}
	if len(additions.Nodes) != 1 || len(additions.Edges) != 1 {
		t.Errorf("additions = %+v", additions)
	}
}

func TestMergeGraphsEdgeKeyIncludesType(t *testing.T) {
	previous := models.Graph{
		Nodes: []models.Node{node("a", "A"), node("b", "B")},
		Edges: []models.Edge{edge("a", "b", "relates")},
	}
	next := models.Graph{
		Edges: []models.Edge{edge("a", "b", "supersedes")},
	}

	merged, additions := MergeGraphs(previous, next)

	if len(merged.Edges) != 2 {
		t.Fatalf("same endpoints with a different type must be a new edge, got %+v", merged.Edges)
	}
	if len(additions.Edges) != 1 || additions.Edges[0].Type != "supersedes" {
		t.Errorf("additions.Edges = %+v", additions.Edges)
	}
}
