package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/starford/loaderd/internal/models"
)

// promptResultCap bounds how many search results are inlined into a
// prompt, for prompt-size reasons.
const promptResultCap = 10

const graphExtractionPrompt = `You are a knowledge graph builder. Given search results about a concept, extract entities and relationships.

Concept: %s
Description: %s

Previous graph state (if any):
%s

New search results:
%s

Extract a knowledge graph with:
1. Nodes: People, organizations, events, concepts, dates
2. Edges: Relationships between nodes

For each node, include:
- id: unique identifier (e.g., "person_powell", "org_fed")
- type: person | organization | event | concept | date | location
- label: display name
- properties: relevant attributes

For each edge, include:
- source: source node id
- target: target node id
- type: relationship type (e.g., "member_of", "announced", "affects")
- label: human-readable description

IMPORTANT:
- If updating an existing graph, identify what's NEW or CHANGED
- Don't repeat information that's already in the previous graph unchanged
- Focus on progress and developments, not static facts

Return ONLY valid JSON in this format:
{
  "nodes": [...],
  "edges": [...],
  "changes_from_previous": ["description of change 1", "description of change 2"]
}
`

const summaryPrompt = `Based on this knowledge graph and search results about "%s", write a concise summary (2-3 paragraphs) focusing on:
1. What's the current state/progress of this concept?
2. What changed recently?
3. What are the key implications?

Knowledge graph:
%s

Search results:
%s

Write in the same language as the concept name. Be factual and cite sources where relevant.
`

// summaryUnavailable is the placeholder summary used when no model is
// configured or the model call fails.
const summaryUnavailable = "No summary available - model not configured"

// GraphAgent asks a language model to propose graph updates and to
// summarize the merged result. Model output is untrusted and parsed
// defensively; a parse failure degrades to an empty graph with an
// explanatory change note instead of an error.
type GraphAgent struct {
	model  ModelClient
	logger *slog.Logger
}

// NewGraphAgent creates a graph agent. model may be nil (not configured).
func NewGraphAgent(model ModelClient, logger *slog.Logger) *GraphAgent {
	return &GraphAgent{model: model, logger: logger}
}

// BuildGraph proposes a new/updated graph from search results and the
// previous graph. At most promptResultCap results are inlined.
func (a *GraphAgent) BuildGraph(ctx context.Context, name, description string, results []models.SearchResult, previous models.Graph) models.ExtractedGraph {
	if a.model == nil {
		return models.ExtractedGraph{
			Nodes: []models.Node{}, Edges: []models.Edge{},
			ChangesFromPrevious: []string{"No model configured"},
		}
	}

	prevText := "None (first run)"
	if len(previous.Nodes) > 0 || len(previous.Edges) > 0 {
		if data, err := json.MarshalIndent(previous, "", "  "); err == nil {
			prevText = string(data)
		}
	}

	var sb strings.Builder
	for i, r := range results {
		if i == promptResultCap {
			break
		}
		if i > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "Title: %s\nURL: %s\nContent: %s", r.Title, r.URL, r.Content)
	}

	prompt := fmt.Sprintf(graphExtractionPrompt, name, description, prevText, sb.String())

	reply, err := a.model.Complete(ctx, prompt, 4096)
	if err != nil {
		a.logger.Warn("graph extraction failed", slog.String("topic", name), slog.String("error", err.Error()))
		return models.ExtractedGraph{
			Nodes: []models.Node{}, Edges: []models.Edge{},
			ChangesFromPrevious: []string{"Graph extraction failed"},
		}
	}

	var extracted models.ExtractedGraph
	if err := extractJSON(reply, &extracted); err != nil {
		a.logger.Warn("graph parse failed", slog.String("topic", name), slog.String("error", err.Error()))
		return models.ExtractedGraph{
			Nodes: []models.Node{}, Edges: []models.Edge{},
			ChangesFromPrevious: []string{"Failed to parse graph"},
		}
	}
	if extracted.Nodes == nil {
		extracted.Nodes = []models.Node{}
	}
	if extracted.Edges == nil {
		extracted.Edges = []models.Edge{}
	}
	if extracted.ChangesFromPrevious == nil {
		extracted.ChangesFromPrevious = []string{}
	}
	return extracted
}

// Summarize turns the merged graph plus search results into a short
// free-text summary, or an explicit placeholder when unavailable.
func (a *GraphAgent) Summarize(ctx context.Context, name string, graph models.Graph, results []models.SearchResult) string {
	if a.model == nil {
		return summaryUnavailable
	}

	graphJSON, err := json.MarshalIndent(graph, "", "  ")
	if err != nil {
		graphJSON = []byte("{}")
	}

	var sb strings.Builder
	for i, r := range results {
		if i == promptResultCap {
			break
		}
		fmt.Fprintf(&sb, "- %s: %s\n", r.Title, r.URL)
	}

	prompt := fmt.Sprintf(summaryPrompt, name, graphJSON, sb.String())

	reply, err := a.model.Complete(ctx, prompt, 1024)
	if err != nil {
		a.logger.Warn("summary failed", slog.String("topic", name), slog.String("error", err.Error()))
		return summaryUnavailable
	}
	return strings.TrimSpace(reply)
}
