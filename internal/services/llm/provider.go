package llm

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/openai/openai-go"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/contextlog/internal/common"
	"github.com/ternarybob/contextlog/internal/interfaces"
	"github.com/ternarybob/contextlog/internal/models"
	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// ErrNotConfigured is returned when the active provider lacks credentials or an endpoint
var ErrNotConfigured = errors.New("AI Configuration is not set. Please configure it in the settings")

// ProviderType represents the AI provider type
type ProviderType string

const (
	// ProviderOpenAI uses any OpenAI-compatible chat completions endpoint
	ProviderOpenAI ProviderType = "openai"
	// ProviderGemini uses Google Gemini API
	ProviderGemini ProviderType = "gemini"
	// ProviderClaude uses Anthropic Claude API
	ProviderClaude ProviderType = "claude"
	// ProviderOffline answers locally without any network call
	ProviderOffline ProviderType = "offline"
)

// ParseProviderType normalizes a provider name, returning false for unknown names
func ParseProviderType(name string) (ProviderType, bool) {
	switch ProviderType(name) {
	case ProviderOpenAI, ProviderGemini, ProviderClaude, ProviderOffline:
		return ProviderType(name), true
	}
	return "", false
}

// APIKeySetting returns the settings key that stores the API key for provider
func APIKeySetting(provider ProviderType) string {
	switch provider {
	case ProviderGemini:
		return "gemini_api_key"
	case ProviderClaude:
		return "anthropic_api_key"
	default:
		return models.SettingAIAPIKey
	}
}

// ProviderFactory resolves the active provider on every call and dispatches
// prompts to it. Settings saved at runtime take effect on the next call.
type ProviderFactory struct {
	config    *common.Config
	kvStorage interfaces.KeyValueStorage
	logger    arbor.ILogger
	limiter   *rate.Limiter
	timeout   time.Duration

	mu            sync.Mutex
	openaiClient  openai.Client
	openaiAPIKey  string
	openaiBaseURL string
	geminiClient  *genai.Client
	geminiAPIKey  string
	claudeClient  anthropic.Client
	claudeAPIKey  string
}

// NewProviderFactory creates a new provider factory
func NewProviderFactory(config *common.Config, kvStorage interfaces.KeyValueStorage, logger arbor.ILogger) *ProviderFactory {
	f := &ProviderFactory{
		config:    config,
		kvStorage: kvStorage,
		logger:    logger,
		timeout:   common.ParseDuration(config.LLM.Timeout, 2*time.Minute),
	}

	if spacing := common.ParseDuration(config.LLM.RateLimit, 0); spacing > 0 {
		f.limiter = rate.NewLimiter(rate.Every(spacing), 1)
	}

	return f
}

// ActiveProvider returns the provider selected in settings, falling back to config
func (f *ProviderFactory) ActiveProvider(ctx context.Context) ProviderType {
	name := common.ResolveSetting(ctx, f.kvStorage, models.SettingAIProvider, string(f.config.LLM.DefaultProvider))
	if provider, ok := ParseProviderType(name); ok {
		return provider
	}
	f.logger.Warn().Str("provider", name).Msg("Unknown AI provider in settings, using configured default")
	return ProviderType(f.config.LLM.DefaultProvider)
}

// ResolveConfig returns the effective AI configuration for the active provider
func (f *ProviderFactory) ResolveConfig(ctx context.Context) models.AIConfig {
	provider := f.ActiveProvider(ctx)

	var baseURL, model, apiKey string
	switch provider {
	case ProviderGemini:
		model = f.config.Gemini.Model
		apiKey = f.config.Gemini.APIKey
	case ProviderClaude:
		model = f.config.Claude.Model
		apiKey = f.config.Claude.APIKey
	case ProviderOpenAI:
		baseURL = common.ResolveSetting(ctx, f.kvStorage, models.SettingAIBaseURL, f.config.LLM.OpenAI.BaseURL)
		model = f.config.LLM.OpenAI.Model
		apiKey = f.config.LLM.OpenAI.APIKey
	}

	return models.AIConfig{
		Provider: string(provider),
		BaseURL:  baseURL,
		Model:    common.ResolveSetting(ctx, f.kvStorage, models.SettingAIModel, model),
		APIKey:   common.ResolveSetting(ctx, f.kvStorage, APIKeySetting(provider), apiKey),
	}
}

// Invoke sends prompt to the active provider and returns its trimmed text reply
func (f *ProviderFactory) Invoke(ctx context.Context, prompt string) (string, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("rate limiter: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	cfg := f.ResolveConfig(ctx)
	start := time.Now()

	var text string
	var err error
	switch ProviderType(cfg.Provider) {
	case ProviderGemini:
		text, err = f.generateWithGemini(ctx, cfg, prompt)
	case ProviderClaude:
		text, err = f.generateWithClaude(ctx, cfg, prompt)
	case ProviderOffline:
		text, err = generateOffline(prompt)
	default:
		text, err = f.generateWithOpenAI(ctx, cfg, prompt)
	}

	if err != nil {
		f.logger.Warn().
			Str("provider", cfg.Provider).
			Str("model", cfg.Model).
			Dur("duration", time.Since(start)).
			Err(err).
			Msg("AI invocation failed")
		return "", err
	}

	f.logger.Debug().
		Str("provider", cfg.Provider).
		Str("model", cfg.Model).
		Int("prompt_chars", len(prompt)).
		Int("response_chars", len(text)).
		Dur("duration", time.Since(start)).
		Msg("AI invocation completed")

	return text, nil
}

// Close releases cached provider clients
func (f *ProviderFactory) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.openaiClient = openai.Client{}
	f.openaiAPIKey = ""
	f.openaiBaseURL = ""
	f.geminiClient = nil
	f.geminiAPIKey = ""
	f.claudeClient = anthropic.Client{}
	f.claudeAPIKey = ""
	return nil
}
