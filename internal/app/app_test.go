package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/insight/internal/common"
	"github.com/bobmcallan/insight/internal/models"
	"github.com/bobmcallan/insight/internal/services/answer"
	"github.com/bobmcallan/insight/internal/services/chat"
	"github.com/bobmcallan/insight/internal/storage/universe"
	tcommon "github.com/bobmcallan/insight/tests/common"
)

func TestResolveCompany(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()

	c, err := h.app.ResolveCompany(ctx, "101")
	require.NoError(t, err)
	assert.Equal(t, "Air Liquide SA", c.Name)

	c, err = h.app.ResolveCompany(ctx, "air liquide sa")
	require.NoError(t, err)
	assert.Equal(t, "101", c.ProviderID)

	c, err = h.app.ResolveCompany(ctx, "NL0010273215")
	require.NoError(t, err)
	assert.Equal(t, "202", c.ProviderID)
	assert.Equal(t, 1, h.provider.ISINCalls)

	// The mapping is persisted; a second lookup does not hit the provider.
	_, err = h.app.ResolveCompany(ctx, "ASML Holding NV")
	require.NoError(t, err)
	assert.Equal(t, 1, h.provider.ISINCalls)

	_, err = h.app.ResolveCompany(ctx, "Unlisted AG")
	assert.ErrorIs(t, err, universe.ErrUnresolved)

	_, err = h.app.ResolveCompany(ctx, "  ")
	assert.ErrorIs(t, err, ErrEmptyCompanyName)
}

func TestAcquireDocuments(t *testing.T) {
	h := newTestHarness(t)

	m, err := h.app.AcquireDocuments(context.Background(), "Air Liquide SA")
	require.NoError(t, err)
	assert.Equal(t, "Air Liquide SA", m.Company.Name)
	require.Len(t, m.Documents, 2)
	assert.Equal(t, "Q4 2023", m.Documents[0].EventTitle)
	assert.NotEmpty(t, m.Elapsed)
	assert.Equal(t, []string{"air_liquide_sa_2023-10-25_q3_2023_report.pdf", "air_liquide_sa_2024-02-20_q4_2023_report.pdf"}, h.store.Keys())
}

func TestAskCompany(t *testing.T) {
	h := newTestHarness(t)

	ans, err := h.app.AskCompany(context.Background(), "Air Liquide SA", "How did sales develop?")
	require.NoError(t, err)
	assert.Contains(t, ans.Text, "Sales grew 4.8%.")
	assert.Contains(t, ans.Text, "### Sources")
	assert.Equal(t, 2, ans.Documents)
	assert.Equal(t, answer.BuildPrompt("How did sales develop?"), h.llm.Prompts[0])
}

func TestAskCompany_NoDocuments(t *testing.T) {
	h := newTestHarness(t)

	ans, err := h.app.AskCompany(context.Background(), "ASML Holding NV", "Anything?")
	require.NoError(t, err)
	assert.Equal(t, chat.NoDocumentsMessage, ans.Text)
	assert.Equal(t, 0, h.llm.Calls())
}

func TestNew_MissingModelKeyDisablesAnswers(t *testing.T) {
	cfg := common.NewDefaultConfig()
	cfg.Storage.Backend = "memory"
	cfg.Universe.DBPath = ":memory:"
	cfg.Universe.SeedFile = ""

	a, err := New(context.Background(), cfg, nil, Dependencies{Provider: tcommon.NewMockProviderClient()})
	require.NoError(t, err)
	defer a.Close()

	assert.Nil(t, a.LLM)
	require.Error(t, a.ConfigErr)
	assert.True(t, errors.Is(a.ConfigErr, common.ErrMissingConfig))

	_, err = a.Answers.Answer(context.Background(), "Q?", []models.DocumentRecord{{Filename: "x.pdf"}})
	assert.ErrorIs(t, err, answer.ErrModelUnavailable)
}

func TestNew_SeedsDirectoryFromFile(t *testing.T) {
	dir := t.TempDir()
	seed := filepath.Join(dir, "universe.yaml")
	require.NoError(t, os.WriteFile(seed, []byte(`
companies:
  - name: Nestle SA
    isin: ch0038863350
    provider_id: "303"
`), 0o644))

	cfg := common.NewDefaultConfig()
	cfg.Storage.Backend = "file"
	cfg.Storage.File.BasePath = filepath.Join(dir, "objects")
	cfg.Universe.DBPath = filepath.Join(dir, "universe.db")
	cfg.Universe.SeedFile = seed

	a, err := New(context.Background(), cfg, nil, Dependencies{Provider: tcommon.NewMockProviderClient()})
	require.NoError(t, err)
	defer a.Close()

	c, err := a.Directory.ByISIN(context.Background(), "CH0038863350")
	require.NoError(t, err)
	assert.Equal(t, "Nestle SA", c.Name)
	assert.Equal(t, "file://"+cfg.Storage.Bucket+"/k.pdf", a.Store.Locator("k.pdf"))
}

type countingSweeper struct{ n chan struct{} }

func (c *countingSweeper) Sweep() int {
	select {
	case c.n <- struct{}{}:
	default:
	}
	return 0
}

func TestScheduler_RefreshesAndSweeps(t *testing.T) {
	h := newTestHarness(t)
	sweeper := &countingSweeper{n: make(chan struct{}, 1)}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		startScheduler(ctx, h.app.Directory, sweeper, common.NewSilentLogger(), 10*time.Millisecond)
		close(done)
	}()

	select {
	case <-sweeper.n:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler never ticked")
	}
	cancel()
	<-done

	stats, err := h.app.Directory.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Companies)
	assert.False(t, stats.RefreshedAt.IsZero())
}

func TestMCP_ListTools(t *testing.T) {
	h := newTestHarness(t)
	result, err := h.client.ListTools(context.Background(), mcp.ListToolsRequest{})
	require.NoError(t, err)

	names := make([]string, 0, len(result.Tools))
	for _, tool := range result.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{"get_version", "list_companies", "acquire_documents", "ask_company"}, names)
}

func TestMCP_GetVersion(t *testing.T) {
	h := newTestHarness(t)
	text := h.text(h.callTool("get_version", map[string]any{}))
	assert.Contains(t, text, "Insight MCP Server")
	assert.Contains(t, text, "Status: OK")
}

func TestMCP_ListCompanies(t *testing.T) {
	h := newTestHarness(t)

	text := h.text(h.callTool("list_companies", map[string]any{}))
	assert.Contains(t, text, "| Air Liquide SA | FR0000120073 | 101 |")
	assert.Contains(t, text, "| Unlisted AG | - | - |")

	text = h.text(h.callTool("list_companies", map[string]any{"filter": "asml"}))
	assert.Contains(t, text, "ASML Holding NV")
	assert.NotContains(t, text, "Air Liquide")

	text = h.text(h.callTool("list_companies", map[string]any{"filter": "zzz"}))
	assert.Equal(t, "No companies found.", text)
}

func TestMCP_AcquireDocuments(t *testing.T) {
	h := newTestHarness(t)

	result := h.callTool("acquire_documents", map[string]any{"company": "Air Liquide SA"})
	assert.False(t, result.IsError)
	text := h.text(result)
	assert.Contains(t, text, "## Air Liquide SA")
	assert.Contains(t, text, "0 transcripts, 2 reports, 0 slide decks")

	result = h.callTool("acquire_documents", map[string]any{"company": "Nope"})
	assert.True(t, result.IsError)

	result = h.callTool("acquire_documents", map[string]any{})
	assert.True(t, result.IsError)
}

func TestMCP_AskCompany(t *testing.T) {
	h := newTestHarness(t)

	result := h.callTool("ask_company", map[string]any{"company": "101", "question": "How did sales develop?"})
	assert.False(t, result.IsError)
	assert.Contains(t, h.text(result), "Sales grew 4.8%.")

	h.llm.Err = errors.New("quota exceeded")
	result = h.callTool("ask_company", map[string]any{"company": "101", "question": "Again?"})
	assert.True(t, result.IsError)
	assert.Contains(t, h.text(result), "quota exceeded")

	result = h.callTool("ask_company", map[string]any{"company": "101"})
	assert.True(t, result.IsError)
}

func TestFormatManifest_Empty(t *testing.T) {
	out := FormatManifest(&models.Manifest{Company: models.Company{Name: "X"}})
	assert.Equal(t, "## X\n\nNo documents found.\n", out)
}
