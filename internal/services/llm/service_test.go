package llm

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/arbor/writers"
	"github.com/ternarybob/contextlog/internal/common"
	"github.com/ternarybob/contextlog/internal/models"
)

type recordingLLM struct {
	mu      sync.Mutex
	reply   string
	err     error
	prompts []string
}

func (r *recordingLLM) Invoke(ctx context.Context, prompt string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prompts = append(r.prompts, prompt)
	return r.reply, r.err
}

func newTestService(llm *recordingLLM, kv mapKV) *Service {
	config := common.NewDefaultConfig()
	return NewService(llm, kv, &config.LLM, arbor.NewLogger().WithWriters([]writers.IWriter{}))
}

func TestService_SummarizeUsesCustomPrompt(t *testing.T) {
	llm := &recordingLLM{reply: "summary"}
	kv := mapKV{}
	service := newTestService(llm, kv)
	ctx := context.Background()

	summary, err := service.Summarize(ctx, "content")
	require.NoError(t, err)
	assert.Equal(t, "summary", summary)
	assert.True(t, strings.HasPrefix(llm.prompts[0], "You are a text analysis expert."))

	kv[models.SettingGeneralPrompt] = "Custom: {{PAGE_CONTENT}}"
	_, err = service.Summarize(ctx, "content")
	require.NoError(t, err)
	assert.Equal(t, "Custom: content", llm.prompts[1])

	template, custom := service.PromptTemplate(ctx)
	assert.True(t, custom)
	assert.Equal(t, "Custom: {{PAGE_CONTENT}}", template)
}

func TestService_SummarizeTruncatesContent(t *testing.T) {
	llm := &recordingLLM{reply: "s"}
	service := newTestService(llm, mapKV{models.SettingGeneralPrompt: "{{PAGE_CONTENT}}"})

	_, err := service.Summarize(context.Background(), strings.Repeat("a", 12000))
	require.NoError(t, err)
	assert.Len(t, llm.prompts[0], 10000)
}

func TestService_ExtractFields(t *testing.T) {
	llm := &recordingLLM{reply: "```json\n{\"author_name\": \"Ada\"}\n```"}
	service := newTestService(llm, mapKV{})

	data, err := service.ExtractFields(context.Background(), "text", `{"author_name":"The author"}`)
	require.NoError(t, err)
	assert.JSONEq(t, `{"author_name":"Ada"}`, string(data))
	assert.Contains(t, llm.prompts[0], `{"author_name":"The author"}`)
}

func TestService_ExtractFieldsRejectsProse(t *testing.T) {
	llm := &recordingLLM{reply: "Sorry, I cannot find that."}
	service := newTestService(llm, mapKV{})

	_, err := service.ExtractFields(context.Background(), "text", `{"a":"b"}`)
	assert.ErrorIs(t, err, ErrInvalidExtraction)
}

func TestService_PropagatesInvokeErrors(t *testing.T) {
	boom := errors.New("boom")
	service := newTestService(&recordingLLM{err: boom}, mapKV{})
	ctx := context.Background()

	_, err := service.Summarize(ctx, "x")
	assert.ErrorIs(t, err, boom)
	_, err = service.ExtractFields(ctx, "x", "{}")
	assert.ErrorIs(t, err, boom)
	_, err = service.GenerateRuleFields(ctx, "x")
	assert.ErrorIs(t, err, boom)
	_, err = service.SessionReport(ctx, "x")
	assert.ErrorIs(t, err, boom)
}

func TestService_GenerateRuleFields(t *testing.T) {
	llm := &recordingLLM{reply: `{"repository_name": "The repo"}`}
	service := newTestService(llm, mapKV{})

	fields, err := service.GenerateRuleFields(context.Background(), "repo name")
	require.NoError(t, err)
	assert.Equal(t, `{"repository_name":"The repo"}`, fields)
}
