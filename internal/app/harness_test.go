package app

import (
	"context"
	"testing"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/insight/internal/common"
	"github.com/bobmcallan/insight/internal/models"
	"github.com/bobmcallan/insight/internal/storage"
	"github.com/bobmcallan/insight/internal/storage/universe"
	tcommon "github.com/bobmcallan/insight/tests/common"
)

// testHarness wires a real App around mock provider and model clients, an
// in-memory object store and an in-memory company directory.
type testHarness struct {
	t        *testing.T
	app      *App
	provider *tcommon.MockProviderClient
	llm      *tcommon.MockLLMClient
	store    *storage.MemoryObjectStore
	client   *client.Client
}

func newTestHarness(t *testing.T) *testHarness {
	t.Helper()
	ctx := context.Background()

	cfg := common.NewDefaultConfig()
	cfg.Storage.Backend = "memory"
	cfg.Universe.DBPath = ":memory:"
	cfg.Universe.SeedFile = ""
	cfg.Provider.APIKey = "test-key"
	cfg.LLM.APIKey = "test-key"

	dir, err := universe.Open(ctx, common.NewSilentLogger(), &cfg.Universe)
	require.NoError(t, err)
	t.Cleanup(func() { dir.Close() })

	require.NoError(t, dir.Upsert(ctx, models.Company{Name: "Air Liquide SA", ISIN: "FR0000120073", ProviderID: "101"}))
	require.NoError(t, dir.Upsert(ctx, models.Company{Name: "ASML Holding NV", ISIN: "NL0010273215"}))
	require.NoError(t, dir.Upsert(ctx, models.Company{Name: "Unlisted AG"}))

	provider := tcommon.NewMockProviderClient()
	provider.Companies["NL0010273215"] = &models.ProviderCompany{ID: 202, DisplayName: "ASML"}
	provider.Events["101"] = []models.Event{
		{EventDate: "2024-02-20T08:00:00Z", EventTitle: "Q4 2023", ReportURL: "https://files.test/al/q4.pdf"},
		{EventDate: "2023-10-25T08:00:00Z", EventTitle: "Q3 2023", ReportURL: "https://files.test/al/q3.pdf"},
	}
	provider.AddDocument("https://files.test/al/q4.pdf", "application/pdf", []byte("%PDF-q4"))
	provider.AddDocument("https://files.test/al/q3.pdf", "application/pdf", []byte("%PDF-q3"))

	llm := tcommon.NewMockLLMClient("Sales grew 4.8%.")
	store := storage.NewMemoryObjectStore("docs", storage.PublicURLBuilder{Style: storage.URLStylePath, BaseURL: "http://localhost:8080/files"})

	a, err := New(ctx, cfg, common.NewSilentLogger(), Dependencies{
		Provider:  provider,
		LLM:       llm,
		Store:     store,
		Directory: dir,
	})
	require.NoError(t, err)
	t.Cleanup(a.Close)

	h := &testHarness{t: t, app: a, provider: provider, llm: llm, store: store}
	h.connect()
	return h
}

// connect starts an in-process MCP client against the App's server.
func (h *testHarness) connect() {
	h.t.Helper()
	c, err := client.NewInProcessClient(h.app.MCPServer)
	require.NoError(h.t, err)

	ctx := context.Background()
	require.NoError(h.t, c.Start(ctx))

	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{Name: "insight-test", Version: "1.0.0"}
	if _, err := c.Initialize(ctx, initReq); err != nil {
		c.Close()
		h.t.Fatalf("Failed to initialize MCP: %v", err)
	}

	h.client = c
	h.t.Cleanup(func() { c.Close() })
}

// callTool invokes an MCP tool by name with the given arguments.
func (h *testHarness) callTool(name string, args map[string]any) *mcp.CallToolResult {
	h.t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	result, err := h.client.CallTool(context.Background(), req)
	require.NoError(h.t, err)
	return result
}

// text extracts the first text content block of a result.
func (h *testHarness) text(result *mcp.CallToolResult) string {
	h.t.Helper()
	require.NotEmpty(h.t, result.Content)
	tc, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		h.t.Fatalf("Content[0] is %T, not TextContent", result.Content[0])
	}
	return tc.Text
}
