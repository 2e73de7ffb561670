// Package mcpserver provides an MCP (Model Context Protocol) server that
// exposes loaderd's public tracker data and markdown documents as tools
// for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/loaderd/internal/snapshot"
	"github.com/starford/loaderd/internal/store"
)

// Server wraps the MCP server with loaderd tools.
type Server struct {
	mcp   *server.MCPServer
	db    *store.DB
	snaps *snapshot.Store
}

// New creates an MCP server with the tracker tools registered. All tools
// read the public surface only: private topics stay invisible here.
func New(db *store.DB, snaps *snapshot.Store) *Server {
	s := &Server{db: db, snaps: snaps}

	s.mcp = server.NewMCPServer(
		"Loader",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_topics",
		mcp.WithDescription("Search public tracked topics by name or keyword."),
		mcp.WithString("keyword", mcp.Description("Filter topics whose name or keywords match (empty for all)")),
	), s.searchTopics)

	s.mcp.AddTool(mcp.NewTool("get_topic_summary",
		mcp.WithDescription("Get the latest knowledge snapshot summary for a public topic."),
		mcp.WithString("topic_id", mcp.Required(), mcp.Description("Numeric topic id")),
	), s.getTopicSummary)

	s.mcp.AddTool(mcp.NewTool("get_topic_graph",
		mcp.WithDescription("Get the full latest knowledge graph for a public topic as JSON."),
		mcp.WithString("topic_id", mcp.Required(), mcp.Description("Numeric topic id")),
	), s.getTopicGraph)

	s.mcp.AddTool(mcp.NewTool("fetch_md_file",
		mcp.WithDescription("Fetch a stored markdown document by its share code."),
		mcp.WithString("code", mcp.Required(), mcp.Description("Six-character share code")),
	), s.fetchMdFile)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) searchTopics(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	keyword := ""
	if k, err := req.RequireString("keyword"); err == nil {
		keyword = k
	}
	topics, _, _, err := s.db.ListPublicTopics(20, "", keyword)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(topics) == 0 {
		return mcp.NewToolResultText("no public topics found"), nil
	}
	out, _ := json.MarshalIndent(topics, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getTopicSummary(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	topic, result := s.publicTopic(req)
	if result != nil {
		return result, nil
	}
	snap, err := s.snaps.Get(topic, "latest")
	if err != nil {
		return mcp.NewToolResultError("no snapshot available for this topic"), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Version %d (%s)\n", snap.Version, snap.Timestamp)
	fmt.Fprintf(&b, "Nodes: %d, Edges: %d, Sources: %d\n\n",
		len(snap.Graph.Nodes), len(snap.Graph.Edges), len(snap.Sources))
	b.WriteString(snap.Summary)
	return mcp.NewToolResultText(b.String()), nil
}

func (s *Server) getTopicGraph(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	topic, result := s.publicTopic(req)
	if result != nil {
		return result, nil
	}
	snap, err := s.snaps.Get(topic, "latest")
	if err != nil {
		return mcp.NewToolResultError("no snapshot available for this topic"), nil
	}
	out, _ := json.MarshalIndent(snap.Graph, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) fetchMdFile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	code, err := req.RequireString("code")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	m, err := s.db.GetMdFileByCode(code)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", code)), nil
	}
	return mcp.NewToolResultText(m.Content), nil
}

// publicTopic resolves the topic_id argument to a public topic's id, or
// returns a tool error result.
func (s *Server) publicTopic(req mcp.CallToolRequest) (int64, *mcp.CallToolResult) {
	raw, err := req.RequireString("topic_id")
	if err != nil {
		return 0, mcp.NewToolResultError(err.Error())
	}
	var id int64
	if _, err := fmt.Sscanf(raw, "%d", &id); err != nil {
		return 0, mcp.NewToolResultError(fmt.Sprintf("invalid topic id: %s", raw))
	}
	if _, err := s.db.GetPublicTopic(id); err != nil {
		return 0, mcp.NewToolResultError(fmt.Sprintf("topic not found: %d", id))
	}
	return id, nil
}
