package tracker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/starford/loaderd/internal/models"
)

// Searcher is the web-search collaborator. Implementations are
// best-effort: provider errors are swallowed into empty result sets.
type Searcher interface {
	Search(ctx context.Context, query string, maxResults int) ([]models.SearchResult, error)
}

// TavilyClient is a thin typed client for the Tavily search API.
type TavilyClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewTavilyClient creates a Tavily client. timeout bounds each request.
func NewTavilyClient(apiKey string, timeout time.Duration) *TavilyClient {
	return &TavilyClient{
		apiKey:  apiKey,
		baseURL: "https://api.tavily.com",
		http:    &http.Client{Timeout: timeout},
	}
}

type tavilyRequest struct {
	APIKey        string `json:"api_key"`
	Query         string `json:"query"`
	MaxResults    int    `json:"max_results"`
	IncludeAnswer bool   `json:"include_answer"`
}

type tavilyResponse struct {
	Results []struct {
		Title   string  `json:"title"`
		URL     string  `json:"url"`
		Content string  `json:"content"`
		Score   float64 `json:"score"`
	} `json:"results"`
}

// Search queries Tavily and normalizes the hits.
func (c *TavilyClient) Search(ctx context.Context, query string, maxResults int) ([]models.SearchResult, error) {
	body, err := json.Marshal(tavilyRequest{
		APIKey:        c.apiKey,
		Query:         query,
		MaxResults:    maxResults,
		IncludeAnswer: true,
	})
	if err != nil {
		return nil, fmt.Errorf("tavily: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("tavily: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tavily: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tavily: status %d", resp.StatusCode)
	}

	var parsed tavilyResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("tavily: decode response: %w", err)
	}

	out := make([]models.SearchResult, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		out = append(out, models.SearchResult{
			Title:   r.Title,
			URL:     r.URL,
			Content: r.Content,
			Score:   r.Score,
			Origin:  "tavily",
		})
	}
	return out, nil
}

// SearchAgent combines the topic name and keywords into one query,
// deduplicates hits by URL, and caps the result count. Provider failures
// are logged and degrade to an empty result set.
type SearchAgent struct {
	client Searcher
	logger *slog.Logger
}

// NewSearchAgent creates a search agent. client may be nil when no search
// provider is configured; every search then returns empty.
func NewSearchAgent(client Searcher, logger *slog.Logger) *SearchAgent {
	return &SearchAgent{client: client, logger: logger}
}

// Search runs the combined query and returns up to maxResults unique hits.
func (a *SearchAgent) Search(ctx context.Context, query string, keywords []string, maxResults int) []models.SearchResult {
	if a.client == nil {
		return nil
	}

	full := query
	if len(keywords) > 0 {
		full = query + " " + strings.Join(keywords, " ")
	}

	results, err := a.client.Search(ctx, full, maxResults)
	if err != nil {
		a.logger.Warn("search failed", slog.String("query", full), slog.String("error", err.Error()))
		return nil
	}

	seen := make(map[string]struct{}, len(results))
	unique := make([]models.SearchResult, 0, len(results))
	for _, r := range results {
		if _, ok := seen[r.URL]; ok {
			continue
		}
		seen[r.URL] = struct{}{}
		unique = append(unique, r)
		if len(unique) == maxResults {
			break
		}
	}
	return unique
}
