package interfaces

import (
	"context"

	"github.com/ternarybob/contextlog/internal/models"
)

// ResultCache memoizes completed results by source key
type ResultCache interface {
	// Lookup returns the cached result for sourceKey, or nil on a miss
	Lookup(ctx context.Context, sourceKey string) (*models.Result, error)

	// Remember upserts result under its source key
	Remember(ctx context.Context, result *models.Result) error
}

// RuleMatcher selects the extraction rule for a source key
type RuleMatcher interface {
	// Match reads the current rule set and returns the first matching rule, or nil
	Match(ctx context.Context, sourceKey string) (*models.ExtractionRule, error)
}

// JobProcessor drives one dequeued job to a terminal or retried state
type JobProcessor interface {
	// Process returns an error only when the job's final status could not be written
	Process(ctx context.Context, job *models.Job) error
}
