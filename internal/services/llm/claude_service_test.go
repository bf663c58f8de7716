package llm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/arbor/writers"
	"github.com/ternarybob/contextlog/internal/common"
)

func newClaudeTestFactory(t *testing.T, serverURL string) *ProviderFactory {
	t.Helper()
	t.Setenv("ANTHROPIC_BASE_URL", serverURL)
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("CONTEXTLOG_CLAUDE_API_KEY", "")

	config := common.NewDefaultConfig()
	config.LLM.DefaultProvider = common.LLMProviderClaude
	config.Claude.APIKey = "test-key"
	config.Claude.Model = "claude-test"

	return NewProviderFactory(config, nil, arbor.NewLogger().WithWriters([]writers.IWriter{}))
}

func TestClaude_ServerErrorIsNotRetried(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		writeJSON(w, http.StatusServiceUnavailable, `{"type":"error","error":{"type":"overloaded_error","message":"overloaded"}}`)
	}))
	defer server.Close()

	factory := newClaudeTestFactory(t, server.URL)

	_, err := factory.Invoke(context.Background(), "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Claude API call failed")
	assert.Equal(t, int32(1), requests.Load(), "one invocation makes exactly one request")
}

func TestClaude_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))
		writeJSON(w, http.StatusOK, `{"id":"msg_1","type":"message","role":"assistant","model":"claude-test",`+
			`"content":[{"type":"text","text":" A page about queues. "}],"stop_reason":"end_turn",`+
			`"usage":{"input_tokens":3,"output_tokens":5}}`)
	}))
	defer server.Close()

	factory := newClaudeTestFactory(t, server.URL)

	text, err := factory.Invoke(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "A page about queues.", text)
}
