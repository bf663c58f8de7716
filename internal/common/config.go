package common

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/ternarybob/contextlog/internal/interfaces"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Storage   StorageConfig   `toml:"storage"`
	Logging   LoggingConfig   `toml:"logging"`
	Queue     QueueConfig     `toml:"queue"`
	LLM       LLMConfig       `toml:"llm"`
	Gemini    GeminiConfig    `toml:"gemini"`
	Claude    ClaudeConfig    `toml:"claude"`
	Rules     RulesConfig     `toml:"rules"`
	WebSocket WebSocketConfig `toml:"websocket"`
}

type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup
	InMemory       bool   `toml:"in_memory"`        // Run without touching disk (tests, demos)
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Output []string `toml:"output"` // "stdout", "file"
}

// QueueConfig controls the worker loop
type QueueConfig struct {
	Interval    string `toml:"interval"`     // Tick interval, e.g. "30s"
	MaxAttempts int    `toml:"max_attempts"` // Attempts before a job is marked failed
}

// LLMProvider represents the AI provider type
type LLMProvider string

const (
	LLMProviderOpenAI  LLMProvider = "openai"
	LLMProviderGemini  LLMProvider = "gemini"
	LLMProviderClaude  LLMProvider = "claude"
	LLMProviderOffline LLMProvider = "offline"
)

// LLMConfig contains provider-agnostic AI settings
type LLMConfig struct {
	DefaultProvider    LLMProvider  `toml:"default_provider"`
	Timeout            string       `toml:"timeout"`              // Per-call timeout, e.g. "2m"
	RateLimit          string       `toml:"rate_limit"`           // Minimum spacing between calls, e.g. "1s"
	SummaryMaxChars    int          `toml:"summary_max_chars"`    // Content truncation for summaries
	ExtractionMaxChars int          `toml:"extraction_max_chars"` // Content truncation for extraction
	OpenAI             OpenAIConfig `toml:"openai"`
}

// OpenAIConfig configures any OpenAI-compatible chat completions endpoint
type OpenAIConfig struct {
	BaseURL string `toml:"base_url"` // e.g. "https://api.openai.com"
	Model   string `toml:"model"`
	APIKey  string `toml:"api_key"`
}

// GeminiConfig contains Google Gemini API configuration
type GeminiConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	Temperature float32 `toml:"temperature"`
}

// ClaudeConfig contains Anthropic Claude API configuration
type ClaudeConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	MaxTokens   int     `toml:"max_tokens"`
	Temperature float32 `toml:"temperature"`
}

// RulesConfig points at a directory of extraction rule seed files
type RulesConfig struct {
	Dir string `toml:"dir"`
}

// WebSocketConfig contains configuration for result streaming
type WebSocketConfig struct {
	AllowedEvents []string `toml:"allowed_events"` // Empty list allows all events
	Throttle      string   `toml:"throttle"`       // Minimum spacing between queue stat broadcasts
}

// NewDefaultConfig creates a configuration with default values
func NewDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port: 8085,
			Host: "localhost",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout", "file"},
		},
		Queue: QueueConfig{
			Interval:    "30s",
			MaxAttempts: 3,
		},
		LLM: LLMConfig{
			DefaultProvider:    LLMProviderOpenAI,
			Timeout:            "2m",
			RateLimit:          "",
			SummaryMaxChars:    10000,
			ExtractionMaxChars: 15000,
			OpenAI: OpenAIConfig{
				BaseURL: "https://api.openai.com",
				Model:   "gpt-4o-mini",
			},
		},
		Gemini: GeminiConfig{
			Model:       "gemini-2.5-flash",
			Temperature: 0.7,
		},
		Claude: ClaudeConfig{
			Model:       "claude-haiku-4-5",
			MaxTokens:   2048,
			Temperature: 0.7,
		},
		Rules: RulesConfig{
			Dir: "./rules",
		},
		WebSocket: WebSocketConfig{
			AllowedEvents: []string{},
			Throttle:      "500ms",
		},
	}
}

// LoadFromFiles loads configuration with priority: defaults -> file1 -> file2 -> ... -> env.
// Later files override earlier files. CLI flags are applied separately via ApplyFlagOverrides.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// applyEnvOverrides applies CONTEXTLOG_* environment variable overrides to config
func applyEnvOverrides(config *Config) {
	// Server configuration
	if port := os.Getenv("CONTEXTLOG_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("CONTEXTLOG_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	// Storage configuration
	if badgerPath := os.Getenv("CONTEXTLOG_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}
	if reset := os.Getenv("CONTEXTLOG_BADGER_RESET_ON_STARTUP"); reset != "" {
		if r, err := strconv.ParseBool(reset); err == nil {
			config.Storage.Badger.ResetOnStartup = r
		}
	}

	// Logging configuration
	if level := os.Getenv("CONTEXTLOG_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("CONTEXTLOG_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range strings.Split(output, ",") {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}

	// Queue configuration
	if interval := os.Getenv("CONTEXTLOG_QUEUE_INTERVAL"); interval != "" {
		config.Queue.Interval = interval
	}
	if maxAttempts := os.Getenv("CONTEXTLOG_QUEUE_MAX_ATTEMPTS"); maxAttempts != "" {
		if ma, err := strconv.Atoi(maxAttempts); err == nil {
			config.Queue.MaxAttempts = ma
		}
	}

	// LLM configuration
	if provider := os.Getenv("CONTEXTLOG_LLM_DEFAULT_PROVIDER"); provider != "" {
		config.LLM.DefaultProvider = LLMProvider(provider)
	}
	if timeout := os.Getenv("CONTEXTLOG_LLM_TIMEOUT"); timeout != "" {
		config.LLM.Timeout = timeout
	}
	if rateLimit := os.Getenv("CONTEXTLOG_LLM_RATE_LIMIT"); rateLimit != "" {
		config.LLM.RateLimit = rateLimit
	}
	if baseURL := os.Getenv("CONTEXTLOG_OPENAI_BASE_URL"); baseURL != "" {
		config.LLM.OpenAI.BaseURL = baseURL
	}
	if model := os.Getenv("CONTEXTLOG_OPENAI_MODEL"); model != "" {
		config.LLM.OpenAI.Model = model
	}
	if apiKey := os.Getenv("CONTEXTLOG_OPENAI_API_KEY"); apiKey != "" {
		config.LLM.OpenAI.APIKey = apiKey
	}

	// Gemini configuration
	if apiKey := os.Getenv("CONTEXTLOG_GEMINI_API_KEY"); apiKey != "" {
		config.Gemini.APIKey = apiKey
	}
	if model := os.Getenv("CONTEXTLOG_GEMINI_MODEL"); model != "" {
		config.Gemini.Model = model
	}

	// Claude configuration
	if apiKey := os.Getenv("ANTHROPIC_API_KEY"); apiKey != "" {
		config.Claude.APIKey = apiKey
	}
	if apiKey := os.Getenv("CONTEXTLOG_CLAUDE_API_KEY"); apiKey != "" {
		config.Claude.APIKey = apiKey // CONTEXTLOG_ prefix takes priority
	}
	if model := os.Getenv("CONTEXTLOG_CLAUDE_MODEL"); model != "" {
		config.Claude.Model = model
	}

	// Rules configuration
	if rulesDir := os.Getenv("CONTEXTLOG_RULES_DIR"); rulesDir != "" {
		config.Rules.Dir = rulesDir
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// Validate rejects configuration the service cannot run with
func (c *Config) Validate() error {
	if _, err := time.ParseDuration(c.Queue.Interval); err != nil {
		return fmt.Errorf("invalid queue.interval %q: %w", c.Queue.Interval, err)
	}
	if c.Queue.MaxAttempts < 1 {
		return fmt.Errorf("queue.max_attempts must be at least 1, got %d", c.Queue.MaxAttempts)
	}
	switch c.LLM.DefaultProvider {
	case LLMProviderOpenAI, LLMProviderGemini, LLMProviderClaude, LLMProviderOffline:
	default:
		return fmt.Errorf("unknown llm.default_provider %q", c.LLM.DefaultProvider)
	}
	return nil
}

// QueueInterval returns the parsed worker tick interval
func (c *Config) QueueInterval() time.Duration {
	return ParseDuration(c.Queue.Interval, 30*time.Second)
}

// ParseDuration parses s, returning fallback when s is empty or invalid
func ParseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

// settingEnvMapping maps KV setting names to the environment variables that override them
var settingEnvMapping = map[string][]string{
	"ai_api_key":        {"CONTEXTLOG_OPENAI_API_KEY"},
	"gemini_api_key":    {"CONTEXTLOG_GEMINI_API_KEY"},
	"anthropic_api_key": {"CONTEXTLOG_CLAUDE_API_KEY", "ANTHROPIC_API_KEY"},
}

// ResolveSetting resolves a runtime setting by name.
// Resolution order: environment variables -> KV store -> config fallback.
// Returns an empty string when nothing is set.
func ResolveSetting(ctx context.Context, kvStorage interfaces.KeyValueStorage, name string, configFallback string) string {
	if envVarNames, ok := settingEnvMapping[name]; ok {
		for _, envVarName := range envVarNames {
			if envValue := os.Getenv(envVarName); envValue != "" {
				return envValue
			}
		}
	}

	if kvStorage != nil {
		value, err := kvStorage.Get(ctx, name)
		if err == nil && value != "" {
			return value
		}
	}

	return configFallback
}
