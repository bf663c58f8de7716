package mcp

import (
	"fmt"
	"strings"

	"github.com/ternarybob/contextlog/internal/models"
)

// formatResult formats a single result for MCP
func formatResult(b *strings.Builder, index int, result *models.Result) {
	fmt.Fprintf(b, "## %d. %s\n\n", index, result.Title)
	fmt.Fprintf(b, "- **URL:** %s\n", result.SourceKey)
	fmt.Fprintf(b, "- **Summarized:** %s\n", result.Timestamp.Format("2006-01-02 15:04:05"))
	if result.HasCustomData() {
		fmt.Fprintf(b, "- **Extracted:** `%s`\n", string(result.CustomData))
	}
	fmt.Fprintf(b, "\n%s\n\n", result.Summary)
}

// formatResultList formats results newest first
func formatResultList(results []*models.Result) string {
	if len(results) == 0 {
		return "No results yet."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Recent pages (%d)\n\n", len(results))
	for i, result := range results {
		formatResult(&b, i+1, result)
	}
	return b.String()
}

// formatRuleList formats extraction rules in stored order
func formatRuleList(rules []*models.ExtractionRule) string {
	if len(rules) == 0 {
		return "No extraction rules defined."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Extraction rules (%d)\n\n", len(rules))
	for i, rule := range rules {
		fmt.Fprintf(&b, "%d. `%s` (%s)\n   fields: `%s`\n", i+1, rule.URLPattern, rule.ID, rule.Fields)
	}
	return b.String()
}

// formatQueueStats formats the queue snapshot
func formatQueueStats(stats *models.QueueStats) string {
	return fmt.Sprintf("Queue: %d pending, %d processing, %d complete, %d failed (%d total)",
		stats.Pending, stats.Processing, stats.Complete, stats.Failed, stats.Total)
}
