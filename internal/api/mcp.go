package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/bankassist/internal/linkresolver"
	"github.com/kalambet/bankassist/internal/planner"
)

// LinkResolver finds an official self-service link.
type LinkResolver interface {
	Resolve(ctx context.Context, query string) (linkresolver.Link, bool)
}

// ToolPlanner chooses a retrieval plan.
type ToolPlanner interface {
	Plan(ctx context.Context, query string) planner.Plan
}

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Assistant Answerer
	Sessions  *Registry
	Links     LinkResolver
	Planner   ToolPlanner
	Cache     CacheAdmin
	Debug     DebugReader
}

// NewMCPServer creates an MCP server with the banking tools and resources
// registered.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"bankassist",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("bankassist answers HDFC banking questions for a known customer."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("ask",
			mcp.WithDescription("Ask the banking assistant a question on behalf of a customer. Conversation memory is kept per user."),
			mcp.WithString("user_id", mcp.Description("Customer id from the users file, e.g. 001"), mcp.Required()),
			mcp.WithString("query", mcp.Description("The customer's question"), mcp.Required()),
		),
		mcpAsk(deps),
	)

	s.AddTool(
		mcp.NewTool("resolve_link",
			mcp.WithDescription("Find the official HDFC self-service link for a task."),
			mcp.WithString("query", mcp.Description("What the customer wants to do"), mcp.Required()),
		),
		mcpResolveLink(deps),
	)

	s.AddTool(
		mcp.NewTool("plan_tools",
			mcp.WithDescription("Show which retrieval tools would be chained to answer a query."),
			mcp.WithString("query", mcp.Description("Query to plan for"), mcp.Required()),
		),
		mcpPlanTools(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"bankassist://cache",
			"Response Cache",
			mcp.WithResourceDescription("Cached public answers, least recently used first"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceCache(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"bankassist://debug",
			"Debug Log",
			mcp.WithResourceDescription("Pipeline steps of the latest turns, newest first"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceDebug(deps),
	)

	return s
}

func mcpAsk(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		userID, err := req.RequireString("user_id")
		if err != nil {
			return mcpError("user_id is required"), nil
		}
		query, err := req.RequireString("query")
		if err != nil || query == "" {
			return mcpError("query is required"), nil
		}

		sess, err := deps.Sessions.ForUser(userID)
		if err != nil {
			return mcpError(messageOf(err)), nil
		}
		ans := deps.Assistant.Handle(ctx, sess, query)
		return mcpText(ans.Turn.Response), nil
	}
}

func mcpResolveLink(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil {
			return mcpError("query is required"), nil
		}
		link, ok := deps.Links.Resolve(ctx, query)
		return mcpText(linkresolver.Format(link, ok)), nil
	}
}

func mcpPlanTools(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil {
			return mcpError("query is required"), nil
		}
		plan := deps.Planner.Plan(ctx, query)
		b, err := json.Marshal(map[string]planner.Plan{"tools": plan})
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal plan: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpResourceCache(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return jsonResource(req.Params.URI, cacheViews(deps.Cache.Entries(ctx)))
	}
}

func mcpResourceDebug(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return jsonResource(req.Params.URI, deps.Debug.Recent())
	}
}

func jsonResource(uri string, v any) ([]mcp.ResourceContents, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", uri, err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(b),
		},
	}, nil
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
