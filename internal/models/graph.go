package models

// Node is one entity in a topic's knowledge graph.
type Node struct {
	ID         string         `json:"id"`
	Type       string         `json:"type,omitempty"` // person | organization | event | concept | date | location
	Label      string         `json:"label,omitempty"`
	Properties map[string]any `json:"properties,omitempty"`
}

// Edge is a directed, typed relationship between two nodes. Edges are
// keyed by (source, target, type); source/target may reference node ids
// that are absent from the graph, and no layer repairs that.
type Edge struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Type   string `json:"type,omitempty"`
	Label  string `json:"label,omitempty"`
}

// Graph is the knowledge accumulated about a topic. It is a value type:
// it is never persisted on its own, only as part of a Snapshot.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// EmptyGraph returns a graph with non-nil, empty node and edge slices.
func EmptyGraph() Graph {
	return Graph{Nodes: []Node{}, Edges: []Edge{}}
}

// ExtractedGraph is the shape the graph-extraction model must return.
// The payload is untrusted and parsed defensively at the boundary.
type ExtractedGraph struct {
	Nodes               []Node   `json:"nodes"`
	Edges               []Edge   `json:"edges"`
	ChangesFromPrevious []string `json:"changes_from_previous"`
}

// Source is one normalized web source that contributed to a snapshot.
type Source struct {
	URL    string `json:"url"`
	Title  string `json:"title"`
	Origin string `json:"source"`
}

// SearchResult is one web search hit as returned by the search provider.
type SearchResult struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
	Origin  string  `json:"source"`
}

// Snapshot is the immutable output of one orchestrator run for a topic.
// Timestamp, TopicID and Version are assigned by the snapshot store on save.
type Snapshot struct {
	TopicID             int64         `json:"topic_id"`
	Timestamp           string        `json:"timestamp"`
	Version             int           `json:"version"`
	Graph               Graph         `json:"graph"`
	Additions           Graph         `json:"additions"`
	ChangesFromPrevious []string      `json:"changes_from_previous"`
	Summary             string        `json:"summary"`
	Sources             []Source      `json:"sources"`
	ContentDrafts       ContentDrafts `json:"content_drafts"`
}
