package relay

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/impulsevault/engine/store"
)

var testMCPImpl = &mcp.Implementation{Name: "impulsevault-test", Version: "0.1.0"}

func mcpSession(t *testing.T, r *Relay) *mcp.ClientSession {
	t.Helper()
	srv := mcp.NewServer(testMCPImpl, nil)
	r.RegisterMCP(srv)

	serverT, clientT := mcp.NewInMemoryTransports()
	ctx := context.Background()
	go func() { _ = srv.Run(ctx, serverT) }()

	client := mcp.NewClient(testMCPImpl, nil)
	session, err := client.Connect(ctx, clientT, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	t.Cleanup(func() { session.Close() })
	return session
}

func mcpCallTool(t *testing.T, session *mcp.ClientSession, name string, args any) string {
	t.Helper()
	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		t.Fatalf("CallTool(%s): %v", name, err)
	}
	if err := result.GetError(); err != nil {
		t.Fatalf("CallTool(%s) tool error: %v", name, err)
	}
	tc, ok := result.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("CallTool(%s): expected TextContent", name)
	}
	return tc.Text
}

func TestMCP_Stats(t *testing.T) {
	r, s := testRelay(t)
	seedDecision(t, s)
	session := mcpSession(t, r)

	text := mcpCallTool(t, session, "impulsevault_stats", map[string]any{})

	var resp StatsResponse
	if err := json.Unmarshal([]byte(text), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Stats.TotalImpulsesStopped != 1 || resp.Stats.TotalMoneySaved != 249.99 {
		t.Errorf("stats over mcp: %+v", resp.Stats)
	}
}

func TestMCP_Records(t *testing.T) {
	r, s := testRelay(t)
	seedDecision(t, s)
	session := mcpSession(t, r)

	text := mcpCallTool(t, session, "impulsevault_records", map[string]any{})

	var resp struct {
		Records []store.PurchaseRecord `json:"records"`
	}
	if err := json.Unmarshal([]byte(text), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(resp.Records) != 1 || resp.Records[0].ProductName != "Espresso Machine" {
		t.Errorf("records over mcp: %+v", resp.Records)
	}
}

func TestMCP_RecordsEmpty(t *testing.T) {
	r, _ := testRelay(t)
	session := mcpSession(t, r)

	text := mcpCallTool(t, session, "impulsevault_records", map[string]any{})
	if !strings.Contains(text, `"records":[]`) {
		t.Errorf("fresh state must serialize an empty array: %s", text)
	}
}

func TestMCP_Log(t *testing.T) {
	r, _ := testRelay(t)
	session := mcpSession(t, r)

	text := mcpCallTool(t, session, "impulsevault_log", map[string]any{"message": "page loaded"})

	var resp AckResponse
	if err := json.Unmarshal([]byte(text), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !resp.Success {
		t.Error("log tool must ack")
	}
}
