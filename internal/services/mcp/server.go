package mcp

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/contextlog/internal/common"
	"github.com/ternarybob/contextlog/internal/interfaces"
	"github.com/ternarybob/contextlog/internal/models"
)

// Capturer enqueues captured pages
type Capturer interface {
	Capture(ctx context.Context, page models.PageCapture) (*models.Job, error)
}

// RuleLister lists extraction rules in stored order
type RuleLister interface {
	List(ctx context.Context) ([]*models.ExtractionRule, error)
}

// Deps are the services exposed as MCP tools. Capture may be nil for a
// read-only server.
type Deps struct {
	Results interfaces.ResultStorage
	Jobs    interfaces.JobStorage
	Rules   RuleLister
	Capture Capturer
}

// NewServer creates an MCP server exposing the result log
func NewServer(deps Deps, logger arbor.ILogger) *server.MCPServer {
	s := server.NewMCPServer(
		"contextlog",
		common.GetVersion(),
		server.WithToolCapabilities(true),
	)

	s.AddTool(recentResultsTool(), handleRecentResults(deps.Results, logger))
	s.AddTool(listRulesTool(), handleListRules(deps.Rules, logger))
	s.AddTool(queueStatusTool(), handleQueueStatus(deps.Jobs, logger))
	if deps.Capture != nil {
		s.AddTool(enqueuePageTool(), handleEnqueuePage(deps.Capture, logger))
	}

	return s
}

func recentResultsTool() mcp.Tool {
	return mcp.NewTool("recent_results",
		mcp.WithDescription("List the most recently summarized pages, newest first"),
		mcp.WithNumber("limit",
			mcp.Description("Max results (default: 20, max: 100)"),
		),
	)
}

func listRulesTool() mcp.Tool {
	return mcp.NewTool("list_rules",
		mcp.WithDescription("List the URL extraction rules in match order"),
	)
}

func queueStatusTool() mcp.Tool {
	return mcp.NewTool("queue_status",
		mcp.WithDescription("Show job counts per status"),
	)
}

func enqueuePageTool() mcp.Tool {
	return mcp.NewTool("enqueue_page",
		mcp.WithDescription("Queue a page for summarization. Requires an active session."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("Page URL"),
		),
		mcp.WithString("content",
			mcp.Required(),
			mcp.Description("Page text"),
		),
		mcp.WithString("title",
			mcp.Description("Page title (defaults to the URL)"),
		),
	)
}

func handleRecentResults(results interfaces.ResultStorage, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		limit := request.GetInt("limit", 20)
		if limit <= 0 {
			limit = 20
		}
		if limit > 100 {
			limit = 100
		}

		list, err := results.List(ctx, limit)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to list results")
			return mcp.NewToolResultError(fmt.Sprintf("Failed to list results: %v", err)), nil
		}
		return mcp.NewToolResultText(formatResultList(list)), nil
	}
}

func handleListRules(rules RuleLister, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		list, err := rules.List(ctx)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to list rules")
			return mcp.NewToolResultError(fmt.Sprintf("Failed to list rules: %v", err)), nil
		}
		return mcp.NewToolResultText(formatRuleList(list)), nil
	}
}

func handleQueueStatus(jobs interfaces.JobStorage, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		stats, err := jobs.CountByStatus(ctx)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to count jobs")
			return mcp.NewToolResultError(fmt.Sprintf("Failed to read queue: %v", err)), nil
		}
		return mcp.NewToolResultText(formatQueueStats(stats)), nil
	}
}

func handleEnqueuePage(capture Capturer, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := request.RequireString("url")
		if err != nil || url == "" {
			return mcp.NewToolResultError("Error: url parameter is required"), nil
		}
		content, err := request.RequireString("content")
		if err != nil || content == "" {
			return mcp.NewToolResultError("Error: content parameter is required"), nil
		}

		job, err := capture.Capture(ctx, models.PageCapture{
			URL:     url,
			Title:   request.GetString("title", ""),
			Content: content,
		})
		if err != nil {
			logger.Warn().Err(err).Str("url", url).Msg("MCP enqueue failed")
			return mcp.NewToolResultError(fmt.Sprintf("Failed to enqueue page: %v", err)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Queued job %d for %s", job.ID, job.SourceKey)), nil
	}
}
