// Package tracker implements the concept-tracking pipeline: web search,
// knowledge-graph extraction and merge, summarization, content drafting,
// snapshot persistence, and the scheduler that drives it.
package tracker

import "github.com/starford/loaderd/internal/models"

type edgeKey struct {
	source string
	target string
	typ    string
}

// MergeGraphs deterministically combines the previous graph with a newly
// proposed graph. It returns the merged graph and the addition-set: the
// nodes and edges whose id/key was absent from the previous graph.
//
// Nodes are keyed by id, edges by (source, target, type). A colliding key
// replaces the whole prior record; there is no field-level merge. Nodes
// without an id and edges missing a source or target are skipped.
// Referential integrity of edges is neither checked nor repaired.
//
// The merge is a pure function of its inputs. Re-applying the same new
// graph yields an empty addition-set.
func MergeGraphs(previous, next models.Graph) (models.Graph, models.Graph) {
	nodeOrder := make([]string, 0, len(previous.Nodes)+len(next.Nodes))
	nodes := make(map[string]models.Node, len(previous.Nodes)+len(next.Nodes))
	for _, n := range previous.Nodes {
		if _, ok := nodes[n.ID]; !ok {
			nodeOrder = append(nodeOrder, n.ID)
		}
		nodes[n.ID] = n
	}

	edgeOrder := make([]edgeKey, 0, len(previous.Edges)+len(next.Edges))
	edges := make(map[edgeKey]models.Edge, len(previous.Edges)+len(next.Edges))
	for _, e := range previous.Edges {
		k := edgeKey{e.Source, e.Target, e.Type}
		if _, ok := edges[k]; !ok {
			edgeOrder = append(edgeOrder, k)
		}
		edges[k] = e
	}

	addedNodes := []models.Node{}
	for _, n := range next.Nodes {
		if n.ID == "" {
			continue
		}
		if _, ok := nodes[n.ID]; !ok {
			addedNodes = append(addedNodes, n)
			nodeOrder = append(nodeOrder, n.ID)
		}
		nodes[n.ID] = n
	}

	addedEdges := []models.Edge{}
	for _, e := range next.Edges {
		if e.Source == "" || e.Target == "" {
			continue
		}
		k := edgeKey{e.Source, e.Target, e.Type}
		if _, ok := edges[k]; !ok {
			addedEdges = append(addedEdges, e)
			edgeOrder = append(edgeOrder, k)
		}
		edges[k] = e
	}

	merged := models.Graph{
		Nodes: make([]models.Node, 0, len(nodeOrder)),
		Edges: make([]models.Edge, 0, len(edgeOrder)),
	}
	for _, id := range nodeOrder {
		merged.Nodes = append(merged.Nodes, nodes[id])
	}
	for _, k := range edgeOrder {
		merged.Edges = append(merged.Edges, edges[k])
	}

	return merged, models.Graph{Nodes: addedNodes, Edges: addedEdges}
}
