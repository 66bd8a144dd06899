package relay

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/impulsevault/engine/kit"
)

// RegisterMCP registers the relay actions as MCP tools so agent tooling can
// query savings and push page logs over the same registry the HTTP surface
// uses.
func (r *Relay) RegisterMCP(srv *mcp.Server) {
	r.registerStatsTool(srv)
	r.registerRecordsTool(srv)
	r.registerLogTool(srv)
}

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

// endpoint adapts an action to the kit signature, with call logging.
func (r *Relay) endpoint(action string) kit.Endpoint {
	base := func(ctx context.Context, req any) (any, error) {
		r.mu.RLock()
		h := r.handlers[action]
		r.mu.RUnlock()
		return h(ctx, req.(Message))
	}
	return kit.Chain(kit.Logging(r.logger, action))(base)
}

func (r *Relay) registerStatsTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "impulsevault_stats",
		Description: "Get the saved-impulse counters (total, weekly, monthly).",
		InputSchema: inputSchema(map[string]any{}, nil),
	}

	decode := func(_ *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		return &kit.MCPDecodeResult{Request: Message{Action: "getStats"}}, nil
	}

	kit.RegisterMCPTool(srv, tool, r.endpoint("getStats"), decode)
}

func (r *Relay) registerRecordsTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "impulsevault_records",
		Description: "List recorded purchase decisions, newest first.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}

	decode := func(_ *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		return &kit.MCPDecodeResult{Request: Message{Action: "getRecords"}}, nil
	}

	kit.RegisterMCPTool(srv, tool, r.endpoint("getRecords"), decode)
}

type logReq struct {
	Message string `json:"message"`
}

func (r *Relay) registerLogTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "impulsevault_log",
		Description: "Write a line into the engine log.",
		InputSchema: inputSchema(map[string]any{
			"message": map[string]any{"type": "string", "description": "Text to log"},
		}, []string{"message"}),
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var lr logReq
		if err := json.Unmarshal(req.Params.Arguments, &lr); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: Message{Action: "logInfo", Message: lr.Message}}, nil
	}

	kit.RegisterMCPTool(srv, tool, r.endpoint("logInfo"), decode)
}
