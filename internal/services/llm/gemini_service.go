package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/ternarybob/contextlog/internal/models"
	"google.golang.org/genai"
)

// getGeminiClient returns a Gemini client for apiKey, recreating it when the key changes
func (f *ProviderFactory) getGeminiClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.geminiClient != nil && f.geminiAPIKey == apiKey {
		return f.geminiClient, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	f.geminiClient = client
	f.geminiAPIKey = apiKey
	return client, nil
}

// generateWithGemini generates content using Gemini API
func (f *ProviderFactory) generateWithGemini(ctx context.Context, cfg models.AIConfig, prompt string) (string, error) {
	if cfg.APIKey == "" || cfg.Model == "" {
		return "", ErrNotConfigured
	}

	client, err := f.getGeminiClient(ctx, cfg.APIKey)
	if err != nil {
		return "", err
	}

	config := &genai.GenerateContentConfig{}
	if f.config.Gemini.Temperature > 0 {
		config.Temperature = genai.Ptr(f.config.Gemini.Temperature)
	}

	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}

	resp, err := client.Models.GenerateContent(ctx, cfg.Model, contents, config)
	if err != nil {
		return "", fmt.Errorf("Gemini API call failed: %w", err)
	}

	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("empty response from Gemini API")
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("empty text in Gemini response")
	}
	return text, nil
}
