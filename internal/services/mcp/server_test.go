package mcp

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/arbor/writers"
	"github.com/ternarybob/contextlog/internal/common"
	"github.com/ternarybob/contextlog/internal/interfaces"
	"github.com/ternarybob/contextlog/internal/models"
	"github.com/ternarybob/contextlog/internal/services/capture"
	"github.com/ternarybob/contextlog/internal/services/rules"
	"github.com/ternarybob/contextlog/internal/services/transform"
	"github.com/ternarybob/contextlog/internal/storage/badger"
)

func newStorage(t *testing.T) interfaces.StorageManager {
	t.Helper()
	storage, err := badger.NewManager(arbor.NewLogger().WithWriters([]writers.IWriter{}), &common.BadgerConfig{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { storage.Close() })
	return storage
}

func callTool(name string, args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, result)
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content")
	return text.Text
}

func TestRecentResults(t *testing.T) {
	storage := newStorage(t)
	ctx := context.Background()
	logger := arbor.NewLogger().WithWriters([]writers.IWriter{})

	handler := handleRecentResults(storage.ResultStorage(), logger)

	result, err := handler(ctx, callTool("recent_results", nil))
	require.NoError(t, err)
	assert.Equal(t, "No results yet.", resultText(t, result))

	for i, key := range []string{"https://a.example", "https://b.example"} {
		require.NoError(t, storage.ResultStorage().Append(ctx, &models.Result{
			ID:         common.NewResultID(time.Now().Add(time.Duration(i) * time.Second)),
			SourceKey:  key,
			Title:      key,
			Summary:    "summary of " + key,
			CustomData: json.RawMessage(`{"price":"10"}`),
			Timestamp:  time.Now(),
		}))
	}

	result, err = handler(ctx, callTool("recent_results", map[string]any{"limit": float64(1)}))
	require.NoError(t, err)
	text := resultText(t, result)
	assert.Contains(t, text, "# Recent pages (1)")
	assert.Contains(t, text, "https://b.example", "newest first")
	assert.NotContains(t, text, "https://a.example")
	assert.Contains(t, text, `{"price":"10"}`)
}

func TestListRules(t *testing.T) {
	storage := newStorage(t)
	ctx := context.Background()
	logger := arbor.NewLogger().WithWriters([]writers.IWriter{})
	ruleService := rules.NewService(storage.RuleStorage(), nil, logger)

	_, err := ruleService.Add(ctx, "*example.com/products/*", `{"price":"the price"}`)
	require.NoError(t, err)

	result, err := handleListRules(ruleService, logger)(ctx, callTool("list_rules", nil))
	require.NoError(t, err)
	text := resultText(t, result)
	assert.Contains(t, text, "# Extraction rules (1)")
	assert.Contains(t, text, "*example.com/products/*")
}

func TestQueueStatus(t *testing.T) {
	storage := newStorage(t)
	ctx := context.Background()

	_, err := storage.JobStorage().Enqueue(ctx, models.NewJob("https://a.example", "a", "content"))
	require.NoError(t, err)

	result, err := handleQueueStatus(storage.JobStorage(), arbor.NewLogger().WithWriters([]writers.IWriter{}))(ctx, callTool("queue_status", nil))
	require.NoError(t, err)
	assert.Contains(t, resultText(t, result), "1 pending")
}

func TestEnqueuePage(t *testing.T) {
	storage := newStorage(t)
	ctx := context.Background()
	logger := arbor.NewLogger().WithWriters([]writers.IWriter{})
	captureService := capture.NewService(storage.JobStorage(), storage.KeyValueStorage(), transform.NewService(logger), nil, logger)
	handler := handleEnqueuePage(captureService, logger)

	args := map[string]any{"url": "https://a.example/page", "content": "page text"}

	result, err := handler(ctx, callTool("enqueue_page", args))
	require.NoError(t, err)
	assert.True(t, result.IsError, "inactive session rejects captures")

	require.NoError(t, captureService.SetSession(ctx, true))
	result, err = handler(ctx, callTool("enqueue_page", args))
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Contains(t, resultText(t, result), "https://a.example/page")

	result, err = handler(ctx, callTool("enqueue_page", map[string]any{"url": "https://a.example"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)

	stats, err := storage.JobStorage().CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Pending)
}

func TestNewServerRegistersTools(t *testing.T) {
	storage := newStorage(t)
	logger := arbor.NewLogger().WithWriters([]writers.IWriter{})

	s := NewServer(Deps{
		Results: storage.ResultStorage(),
		Jobs:    storage.JobStorage(),
		Rules:   rules.NewService(storage.RuleStorage(), nil, logger),
	}, logger)

	tools := s.ListTools()
	assert.Contains(t, tools, "recent_results")
	assert.Contains(t, tools, "list_rules")
	assert.Contains(t, tools, "queue_status")
	assert.NotContains(t, tools, "enqueue_page", "read-only without a capturer")
}
