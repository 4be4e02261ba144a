package main

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/gridsight/gridsight/kit"
)

// registerMCP registers the gridsight tools on an MCP server. Every tool
// runs with the "mcp" transport marker and the client-supplied session id.
func (a *app) registerMCP(srv *mcp.Server) {
	a.registerScanTool(srv)
	a.registerStatsTool(srv)
	a.registerAnnotateTool(srv)
}

// inputSchema builds a JSON Schema object with type "object".
func inputSchema(properties map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

func mcpContext(ctx context.Context, session string) context.Context {
	ctx = kit.WithTransport(ctx, "mcp")
	ctx = kit.WithRequestID(ctx, requestID())
	if session != "" {
		ctx = kit.WithSessionID(ctx, session)
	}
	return ctx
}

// --- scan ---

type mcpScanRequest struct {
	URL     string `json:"url"`
	Session string `json:"session,omitempty"`
}

func (a *app) registerScanTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "gridsight_scan",
		Description: "Scan a rendered web page for empty table and grid cells. Returns a categorized report.",
		InputSchema: inputSchema(map[string]any{
			"url":     map[string]any{"type": "string", "description": "Page URL to scan"},
			"session": map[string]any{"type": "string", "description": "Session id for the single-scan-per-session guard"},
		}, []string{"url"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*mcpScanRequest)
		return a.runScan(ctx, r.URL)
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r mcpScanRequest
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{
			Request: &r,
			EnrichCtx: func(ctx context.Context) context.Context {
				return mcpContext(ctx, r.Session)
			},
		}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

// --- stats ---

func (a *app) registerStatsTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "gridsight_stats",
		Description: "Summarize the most recent scan: when it ran, against what, and findings per structure.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}

	endpoint := func(ctx context.Context, _ any) (any, error) {
		text, err := a.stats(ctx)
		if err != nil {
			return nil, err
		}
		return map[string]string{"stats": text}, nil
	}

	decode := func(_ *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		return &kit.MCPDecodeResult{
			Request: nil,
			EnrichCtx: func(ctx context.Context) context.Context {
				return mcpContext(ctx, "")
			},
		}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

// --- annotate ---

type mcpAnnotateRequest struct {
	Key  string `json:"key"`
	Note string `json:"note"`
}

func (a *app) registerAnnotateTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "gridsight_annotate",
		Description: "Attach a reviewer note to a finding by its canonical key. An empty note removes the annotation.",
		InputSchema: inputSchema(map[string]any{
			"key":  map[string]any{"type": "string", "description": "Finding canonical key"},
			"note": map[string]any{"type": "string", "description": "Note text; empty deletes"},
		}, []string{"key"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*mcpAnnotateRequest)
		if err := a.store.SaveAnnotation(ctx, r.Key, r.Note); err != nil {
			return nil, err
		}
		return map[string]string{"status": "ok"}, nil
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r mcpAnnotateRequest
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{
			Request: &r,
			EnrichCtx: func(ctx context.Context) context.Context {
				return mcpContext(ctx, "")
			},
		}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}
