package tracker

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/starford/loaderd/internal/models"
)

func TestExtractJSON(t *testing.T) {
	type payload struct {
		Nodes []models.Node `json:"nodes"`
	}

	cases := []struct {
		name    string
		text    string
		wantErr bool
		nodes   int
	}{
		{"bare object", `{"nodes": [{"id": "a"}]}`, false, 1},
		{"code fence", "```json\n{\"nodes\": [{\"id\": \"a\"}]}\n```", false, 1},
		{"prose wrapped", `Here is the graph: {"nodes": []} Hope it helps!`, false, 0},
		{"no object", "sorry, I cannot help with that", true, 0},
		{"malformed", `{"nodes": [`, true, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var p payload
			err := extractJSON(tc.text, &p)
			if (err != nil) != tc.wantErr {
				t.Fatalf("err = %v, wantErr = %v", err, tc.wantErr)
			}
			if err == nil && len(p.Nodes) != tc.nodes {
				t.Errorf("nodes = %d, want %d", len(p.Nodes), tc.nodes)
			}
		})
	}
}

func TestAnthropicClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("x-api-key") != "key1" {
			t.Errorf("x-api-key = %q", r.Header.Get("x-api-key"))
		}
		if r.Header.Get("anthropic-version") == "" {
			t.Error("missing anthropic-version header")
		}

		var req anthropicRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatal(err)
		}
		if req.Model != "claude-test" || len(req.Messages) != 1 {
			t.Errorf("request = %+v", req)
		}

		json.NewEncoder(w).Encode(map[string]any{
			"content": []map[string]string{{"type": "text", "text": "hello"}},
		})
	}))
	defer srv.Close()

	c := NewAnthropicClient("key1", "claude-test", time.Second)
	c.baseURL = srv.URL

	reply, err := c.Complete(context.Background(), "hi", 100)
	if err != nil {
		t.Fatal(err)
	}
	if reply != "hello" {
		t.Errorf("reply = %q", reply)
	}
}

func TestAnthropicClientErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewAnthropicClient("k", "m", time.Second)
	c.baseURL = srv.URL
	if _, err := c.Complete(context.Background(), "hi", 100); err == nil {
		t.Fatal("non-200 must surface an error")
	}
}

func TestOpenAIClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer key2" {
			t.Errorf("auth = %q", r.Header.Get("Authorization"))
		}
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]string{"content": "world"}}},
		})
	}))
	defer srv.Close()

	c := NewOpenAIClient("key2", "gpt-test", time.Second)
	c.baseURL = srv.URL

	reply, err := c.Complete(context.Background(), "hi", 0)
	if err != nil {
		t.Fatal(err)
	}
	if reply != "world" {
		t.Errorf("reply = %q", reply)
	}
}

func TestTavilyClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req tavilyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatal(err)
		}
		if req.APIKey != "tvly-key" || req.Query != "rates" {
			t.Errorf("request = %+v", req)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{
				{"url": "https://a", "title": "A", "content": "alpha"},
				{"url": "https://b", "title": "B", "content": "beta"},
			},
		})
	}))
	defer srv.Close()

	c := NewTavilyClient("tvly-key", time.Second)
	c.baseURL = srv.URL

	results, err := c.Search(context.Background(), "rates", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 || results[0].URL != "https://a" {
		t.Errorf("results = %+v", results)
	}
}

func TestSearchAgentDedupAndCap(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	agent := NewSearchAgent(&stubSearcher{
		results: results("https://a", "https://b", "https://a", "https://c"),
	}, logger)

	got := agent.Search(context.Background(), "q", []string{"k"}, 2)
	if len(got) != 2 {
		t.Fatalf("results = %d, want capped at 2", len(got))
	}
	if got[0].URL == got[1].URL {
		t.Error("duplicate URL survived dedup")
	}
}

func TestSearchAgentNilClient(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	agent := NewSearchAgent(nil, logger)
	if got := agent.Search(context.Background(), "q", nil, 10); got != nil {
		t.Errorf("nil client must search empty, got %v", got)
	}
}
