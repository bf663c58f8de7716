// Package cache memoizes completed results by source key so a page that was
// already summarized never reaches the AI service again.
package cache

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/contextlog/internal/interfaces"
	"github.com/ternarybob/contextlog/internal/models"
)

// Service provides result lookup by source key.
type Service struct {
	storage interfaces.CacheStorage
	logger  arbor.ILogger
}

// NewService creates a new cache service.
func NewService(storage interfaces.CacheStorage, logger arbor.ILogger) *Service {
	return &Service{
		storage: storage,
		logger:  logger,
	}
}

// Lookup returns the memoized result for sourceKey, or nil on a miss.
func (s *Service) Lookup(ctx context.Context, sourceKey string) (*models.Result, error) {
	entry, err := s.storage.Get(ctx, sourceKey)
	if err != nil {
		return nil, fmt.Errorf("cache lookup failed: %w", err)
	}
	if entry == nil {
		s.logger.Trace().Str("source_key", sourceKey).Msg("Cache miss")
		return nil, nil
	}

	s.logger.Debug().
		Str("source_key", sourceKey).
		Str("result_id", entry.ResultID).
		Msg("Cache hit")
	return entry.ToResult(), nil
}

// Remember stores result as the latest outcome for its source key.
func (s *Service) Remember(ctx context.Context, result *models.Result) error {
	if err := s.storage.Put(ctx, models.NewCacheEntry(result)); err != nil {
		return fmt.Errorf("cache write failed: %w", err)
	}
	return nil
}

// Count returns the number of memoized source keys.
func (s *Service) Count(ctx context.Context) (int, error) {
	return s.storage.Count(ctx)
}
