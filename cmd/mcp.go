package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"repolens/internal/review"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start an MCP server exposing question answering and review tools",
	RunE:  runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	s := mcpserver.NewMCPServer("repolens", "1.0.0", mcpserver.WithToolCapabilities(false))

	s.AddTool(askCodebaseTool(), makeAskHandler(app))
	s.AddTool(searchCodeTool(), makeSearchToolHandler(app))
	s.AddTool(reviewCodeTool(), makeReviewHandler(app))
	s.AddTool(indexRepositoryTool(), makeIndexHandler(app))

	return mcpserver.ServeStdio(s)
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

// --- Tool schema builders ---

var readOnlyAnnotation = mcp.ToolAnnotation{
	ReadOnlyHint:    mcp.ToBoolPtr(true),
	DestructiveHint: mcp.ToBoolPtr(false),
	IdempotentHint:  mcp.ToBoolPtr(true),
	OpenWorldHint:   mcp.ToBoolPtr(false),
}

func askCodebaseTool() mcp.Tool {
	return mcp.NewTool("ask_codebase",
		mcp.WithDescription("Answer a natural-language question about the repository using retrieved context from its files."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
		mcp.WithString("question",
			mcp.Required(),
			mcp.Description("The question to answer"),
		),
	)
}

func searchCodeTool() mcp.Tool {
	return mcp.NewTool("search_code",
		mcp.WithDescription("Search indexed code chunks by vector similarity. Returns chunk text with file paths."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Natural language or keyword query"),
		),
		mcp.WithNumber("k",
			mcp.Description("Maximum number of chunks to return (default 8)"),
		),
	)
}

func reviewCodeTool() mcp.Tool {
	return mcp.NewTool("review_code",
		mcp.WithDescription("Run the iterative review agent over files and return findings plus a summary."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
		mcp.WithString("paths",
			mcp.Description("Comma-separated file paths to review. Empty reviews agent-selected candidates."),
		),
		mcp.WithString("focus",
			mcp.Description("Optional focus for the review, e.g. 'error handling'"),
		),
	)
}

func indexRepositoryTool() mcp.Tool {
	return mcp.NewTool("index_repository",
		mcp.WithDescription("Build or refresh the embedding index for the repository. Unchanged files are skipped."),
	)
}

// --- Handler factories ---

func makeAskHandler(app *app) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		question := req.GetString("question", "")
		if question == "" {
			return mcp.NewToolResultError("question is required"), nil
		}

		answer, err := app.qa.Answer(ctx, question)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("answer failed: %v", err)), nil
		}
		return mcp.NewToolResultText(answer), nil
	}
}

func makeSearchToolHandler(app *app) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query := req.GetString("query", "")
		if query == "" {
			return mcp.NewToolResultError("query is required"), nil
		}
		k := req.GetInt("k", 8)
		if k <= 0 {
			k = 8
		}

		emb, err := app.builder.EmbedQuery(ctx, query)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("embed query failed: %v", err)), nil
		}
		results, err := app.store.Search(emb, k)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
		}
		if len(results) == 0 {
			return mcp.NewToolResultText(fmt.Sprintf("No results found for query: %q", query)), nil
		}

		var sb strings.Builder
		fmt.Fprintf(&sb, "## Search results for %q (%d chunks)\n\n", query, len(results))
		for i, r := range results {
			fmt.Fprintf(&sb, "### Result %d: `%s` (chunk %d, similarity %.3f)\n\n", i+1, r.Chunk.Path, r.Chunk.ChunkIndex, r.Similarity)
			fmt.Fprintf(&sb, "```\n%s\n```\n\n", r.Chunk.Text)
		}
		return mcp.NewToolResultText(sb.String()), nil
	}
}

func makeReviewHandler(app *app) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var paths []string
		for _, p := range strings.Split(req.GetString("paths", ""), ",") {
			if p = strings.TrimSpace(p); p != "" {
				paths = append(paths, p)
			}
		}
		focus := req.GetString("focus", "")

		agent := app.newAgent(nil)
		state := agent.Run(ctx, review.Request{Paths: paths, Focus: focus})

		var sb strings.Builder
		fmt.Fprintf(&sb, "## Review: %d file(s), %d finding(s)\n\n", len(state.ReviewedPaths), len(state.Findings))
		if len(state.Findings) > 0 {
			sb.WriteString(review.FormatFindings(state.Findings))
			sb.WriteString("\n\n")
		}
		if len(state.Observations) > 0 {
			sb.WriteString(state.Observations[len(state.Observations)-1])
		}
		return mcp.NewToolResultText(sb.String()), nil
	}
}

func makeIndexHandler(app *app) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		indexCache.Invalidate(app.root)
		ix, err := app.index(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("index failed: %v", err)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Indexed %d files (%d chunks) with %s.", ix.Files(), ix.Len(), app.builder.Model())), nil
	}
}
