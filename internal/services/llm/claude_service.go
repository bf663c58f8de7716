package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ternarybob/contextlog/internal/models"
)

// getClaudeClient returns a Claude client for apiKey, recreating it when the key changes
func (f *ProviderFactory) getClaudeClient(apiKey string) anthropic.Client {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.claudeAPIKey != apiKey {
		f.claudeClient = anthropic.NewClient(
			option.WithAPIKey(apiKey),
			option.WithMaxRetries(0), // failed attempts are re-queued by the pipeline
		)
		f.claudeAPIKey = apiKey
	}
	return f.claudeClient
}

// generateWithClaude generates content using Claude API
func (f *ProviderFactory) generateWithClaude(ctx context.Context, cfg models.AIConfig, prompt string) (string, error) {
	if cfg.APIKey == "" || cfg.Model == "" {
		return "", ErrNotConfigured
	}

	client := f.getClaudeClient(cfg.APIKey)

	maxTokens := f.config.Claude.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 2048
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(cfg.Model),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
	if f.config.Claude.Temperature > 0 {
		params.Temperature = anthropic.Float(float64(f.config.Claude.Temperature))
	}

	resp, err := client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("Claude API call failed: %w", err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	if text.Len() == 0 {
		return "", fmt.Errorf("empty response from Claude API")
	}
	return strings.TrimSpace(text.String()), nil
}
