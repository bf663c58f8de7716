package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/contextlog/internal/interfaces"
	"github.com/ternarybob/contextlog/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// CacheStorage implements result memoization keyed by source key
type CacheStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewCacheStorage creates a new CacheStorage instance
func NewCacheStorage(db *BadgerDB, logger arbor.ILogger) interfaces.CacheStorage {
	return &CacheStorage{
		db:     db,
		logger: logger,
	}
}

// Get returns the cached entry for sourceKey, or nil on a miss
func (s *CacheStorage) Get(ctx context.Context, sourceKey string) (*models.CacheEntry, error) {
	var entry models.CacheEntry
	err := s.db.Store().Get(sourceKey, &entry)
	if err == badgerhold.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cache entry: %w", err)
	}
	return &entry, nil
}

// Put inserts or replaces the entry for its source key
func (s *CacheStorage) Put(ctx context.Context, entry *models.CacheEntry) error {
	if entry.SourceKey == "" {
		return fmt.Errorf("cache entry source key is required")
	}
	if entry.CachedAt.IsZero() {
		entry.CachedAt = time.Now()
	}
	if err := s.db.Store().Upsert(entry.SourceKey, entry); err != nil {
		return fmt.Errorf("failed to put cache entry: %w", err)
	}
	return nil
}

// Count returns the number of cached source keys
func (s *CacheStorage) Count(ctx context.Context) (int, error) {
	count, err := s.db.Store().Count(&models.CacheEntry{}, nil)
	if err != nil {
		return 0, err
	}
	return int(count), nil
}

// DeleteAll empties the cache
func (s *CacheStorage) DeleteAll(ctx context.Context) error {
	if err := s.db.Store().DeleteMatching(&models.CacheEntry{}, nil); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	s.logger.Info().Msg("Cache cleared")
	return nil
}
