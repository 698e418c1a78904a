package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/bobmcallan/insight/internal/common"
	"github.com/bobmcallan/insight/internal/models"
)

// registerTools registers all MCP tools on the App's MCPServer.
func (a *App) registerTools() {
	s := a.MCPServer
	s.AddTool(createGetVersionTool(), handleGetVersion())
	s.AddTool(createListCompaniesTool(), a.handleListCompanies())
	s.AddTool(createAcquireDocumentsTool(), a.handleAcquireDocuments())
	s.AddTool(createAskCompanyTool(), a.handleAskCompany())
}

// createGetVersionTool returns the get_version tool definition
func createGetVersionTool() mcp.Tool {
	return mcp.NewTool("get_version",
		mcp.WithDescription("Get the Insight server version and status. Use this to verify connectivity."),
	)
}

// createListCompaniesTool returns the list_companies tool definition
func createListCompaniesTool() mcp.Tool {
	return mcp.NewTool("list_companies",
		mcp.WithDescription("List the companies that can be researched, with their ISIN and provider id."),
		mcp.WithString("filter",
			mcp.Description("Case-insensitive substring to match against company names"),
		),
	)
}

// createAcquireDocumentsTool returns the acquire_documents tool definition
func createAcquireDocumentsTool() mcp.Tool {
	return mcp.NewTool("acquire_documents",
		mcp.WithDescription("Fetch a company's most recent investor-relations documents (up to two transcripts, reports and slide decks), store them and return the manifest."),
		mcp.WithString("company",
			mcp.Required(),
			mcp.Description("Company name, ISIN or provider id (e.g., 'Air Liquide SA')"),
		),
	)
}

// createAskCompanyTool returns the ask_company tool definition
func createAskCompanyTool() mcp.Tool {
	return mcp.NewTool("ask_company",
		mcp.WithDescription("Answer a question about a company from its latest earnings-call transcripts, reports and slides. Sources are listed after the answer."),
		mcp.WithString("company",
			mcp.Required(),
			mcp.Description("Company name, ISIN or provider id"),
		),
		mcp.WithString("question",
			mcp.Required(),
			mcp.Description("Free-text question, e.g. 'How did margins develop over the last two quarters?'"),
		),
	)
}

// handleGetVersion implements the get_version tool
func handleGetVersion() server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result := fmt.Sprintf("Insight MCP Server\nVersion: %s\nBuild: %s\nCommit: %s\nStatus: OK",
			common.GetVersion(), common.GetBuild(), common.GetGitCommit())
		return mcp.NewToolResultText(result), nil
	}
}

// handleListCompanies implements the list_companies tool
func (a *App) handleListCompanies() server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		filter := strings.ToLower(strings.TrimSpace(request.GetString("filter", "")))

		companies, err := a.Directory.List(ctx)
		if err != nil {
			a.Logger.Error().Err(err).Msg("List companies failed")
			return mcp.NewToolResultError(fmt.Sprintf("Directory error: %v", err)), nil
		}

		var sb strings.Builder
		sb.WriteString("| Company | ISIN | Provider ID |\n|---|---|---|\n")
		n := 0
		for _, c := range companies {
			if filter != "" && !strings.Contains(strings.ToLower(c.Name), filter) {
				continue
			}
			fmt.Fprintf(&sb, "| %s | %s | %s |\n", c.Name, dash(c.ISIN), dash(c.ProviderID))
			n++
		}
		if n == 0 {
			return mcp.NewToolResultText("No companies found."), nil
		}
		return mcp.NewToolResultText(sb.String()), nil
	}
}

// handleAcquireDocuments implements the acquire_documents tool
func (a *App) handleAcquireDocuments() server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ref, err := request.RequireString("company")
		if err != nil || strings.TrimSpace(ref) == "" {
			return mcp.NewToolResultError("Error: company parameter is required"), nil
		}

		manifest, err := a.AcquireDocuments(ctx, ref)
		if err != nil {
			a.Logger.Error().Err(err).Str("company", ref).Msg("Document acquisition failed")
			return mcp.NewToolResultError(fmt.Sprintf("Acquisition error: %v", err)), nil
		}
		return mcp.NewToolResultText(FormatManifest(manifest)), nil
	}
}

// handleAskCompany implements the ask_company tool
func (a *App) handleAskCompany() server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ref, err := request.RequireString("company")
		if err != nil || strings.TrimSpace(ref) == "" {
			return mcp.NewToolResultError("Error: company parameter is required"), nil
		}
		question, err := request.RequireString("question")
		if err != nil || strings.TrimSpace(question) == "" {
			return mcp.NewToolResultError("Error: question parameter is required"), nil
		}

		ans, err := a.AskCompany(ctx, ref, question)
		if err != nil {
			a.Logger.Error().Err(err).Str("company", ref).Msg("Ask company failed")
			return mcp.NewToolResultError(fmt.Sprintf("Answer error: %v", err)), nil
		}
		return mcp.NewToolResultText(ans.Text), nil
	}
}

// FormatManifest renders a manifest as a markdown table.
func FormatManifest(m *models.Manifest) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "## %s\n\n", m.Company.Name)
	if len(m.Documents) == 0 {
		sb.WriteString("No documents found.\n")
		return sb.String()
	}
	sb.WriteString("| # | Kind | Date | Event | Pages | Link |\n|---|---|---|---|---|---|\n")
	for i, d := range m.Documents {
		pages := "-"
		if d.Pages > 0 {
			pages = fmt.Sprintf("%d", d.Pages)
		}
		fmt.Fprintf(&sb, "| %d | %s | %s | %s | %s | [%s](%s) |\n", i+1, d.Kind, d.EventDate, d.EventTitle, pages, d.Filename, d.PublicURL)
	}
	counts := m.CountByKind()
	fmt.Fprintf(&sb, "\n%d transcripts, %d reports, %d slide decks", counts[models.KindTranscript], counts[models.KindReport], counts[models.KindSlides])
	if m.Elapsed != "" {
		fmt.Fprintf(&sb, " in %s", m.Elapsed)
	}
	sb.WriteString("\n")
	return sb.String()
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
