package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/arbor/writers"
	"github.com/ternarybob/contextlog/internal/common"
	"github.com/ternarybob/contextlog/internal/models"
)

func testConfig() *common.Config {
	cfg := common.NewDefaultConfig()
	cfg.Storage.Badger.InMemory = true
	cfg.Rules.Dir = ""
	cfg.Queue.Interval = "1h"
	cfg.LLM.DefaultProvider = common.LLMProviderOffline
	return cfg
}

func TestNew_WiresPipeline(t *testing.T) {
	a, err := New(testConfig(), arbor.NewLogger().WithWriters([]writers.IWriter{}))
	require.NoError(t, err)
	defer a.Close()

	assert.True(t, a.SchedulerService.IsRunning())
	assert.NotNil(t, a.MCPServer.GetTool("enqueue_page"))

	ctx := context.Background()
	require.NoError(t, a.CaptureService.SetSession(ctx, true))
	job, err := a.CaptureService.Capture(ctx, models.PageCapture{
		URL:     "https://example.com/article",
		Title:   "Article",
		Content: "An article about queues. It has two sentences.",
	})
	require.NoError(t, err)

	require.True(t, a.Worker.Tick(ctx))

	stored, err := a.StorageManager.JobStorage().GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusComplete, stored.Status)

	results, err := a.StorageManager.ResultStorage().List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "An article about queues.", results[0].Summary)
}

func TestNewReadOnly_OmitsEnqueueTool(t *testing.T) {
	a, err := NewReadOnly(testConfig(), arbor.NewLogger().WithWriters([]writers.IWriter{}))
	require.NoError(t, err)
	defer a.Close()

	assert.Nil(t, a.SchedulerService)
	assert.NotNil(t, a.MCPServer.GetTool("recent_results"))
	assert.Nil(t, a.MCPServer.GetTool("enqueue_page"))
}
