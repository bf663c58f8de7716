package interfaces

import (
	"context"
)

// LLMService is the single-prompt text completion boundary used by the
// pipeline. Every failure (configuration, transport, provider) is returned as
// an error; callers do not distinguish between them.
type LLMService interface {
	Invoke(ctx context.Context, prompt string) (string, error)
}

// Summarizer produces the AI outputs the pipeline and API need.
type Summarizer interface {
	// Summarize returns a short summary of page content using the active prompt template
	Summarize(ctx context.Context, content string) (string, error)

	// ExtractFields extracts the rule's fields from content and returns a JSON object
	ExtractFields(ctx context.Context, content string, fields string) ([]byte, error)

	// GenerateRuleFields turns a natural-language request into a fields JSON object
	GenerateRuleFields(ctx context.Context, description string) (string, error)

	// SessionReport produces a markdown report over a browsing log
	SessionReport(ctx context.Context, logText string) (string, error)
}
