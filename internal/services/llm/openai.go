package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/ternarybob/contextlog/internal/models"
)

// OpenAIBaseURL returns the SDK base URL for an OpenAI-compatible server.
// Completions are then posted to <baseURL>/v1/chat/completions.
func OpenAIBaseURL(baseURL string) string {
	return strings.TrimSuffix(baseURL, "/") + "/v1/"
}

// getOpenAIClient returns a client for cfg, recreating it when the endpoint or key changes
func (f *ProviderFactory) getOpenAIClient(cfg models.AIConfig) openai.Client {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.openaiAPIKey != cfg.APIKey || f.openaiBaseURL != cfg.BaseURL {
		f.openaiClient = openai.NewClient(
			option.WithBaseURL(OpenAIBaseURL(cfg.BaseURL)),
			option.WithAPIKey(cfg.APIKey),
			option.WithMaxRetries(0), // failed attempts are re-queued by the pipeline
		)
		f.openaiAPIKey = cfg.APIKey
		f.openaiBaseURL = cfg.BaseURL
	}
	return f.openaiClient
}

// generateWithOpenAI sends a single user message to an OpenAI-compatible endpoint
func (f *ProviderFactory) generateWithOpenAI(ctx context.Context, cfg models.AIConfig, prompt string) (string, error) {
	if cfg.APIKey == "" || cfg.BaseURL == "" || cfg.Model == "" {
		return "", ErrNotConfigured
	}

	client := f.getOpenAIClient(cfg)

	resp, err := client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: cfg.Model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	})
	if err != nil {
		return "", fmt.Errorf("OpenAI-compatible API call failed: %w", err)
	}

	if resp == nil || len(resp.Choices) == 0 {
		return "", fmt.Errorf("invalid response format from AI API")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
