package badger

import (
	"context"
	"fmt"
	"sort"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/contextlog/internal/interfaces"
	"github.com/ternarybob/contextlog/internal/models"
)

// ResultStorage implements the append-only result log for Badger
type ResultStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewResultStorage creates a new ResultStorage instance
func NewResultStorage(db *BadgerDB, logger arbor.ILogger) interfaces.ResultStorage {
	return &ResultStorage{
		db:     db,
		logger: logger,
	}
}

// Append adds result to the head of the log
func (s *ResultStorage) Append(ctx context.Context, result *models.Result) error {
	if result.ID == "" {
		return fmt.Errorf("result ID is required")
	}

	seq, err := s.db.NextID("results")
	if err != nil {
		return err
	}

	record := &models.ResultRecord{Seq: seq, Result: *result}
	if err := s.db.Store().Insert(seq, record); err != nil {
		return fmt.Errorf("failed to append result: %w", err)
	}

	s.logger.Trace().
		Str("result_id", result.ID).
		Str("source_key", result.SourceKey).
		Msg("BadgerDB: Result appended")
	return nil
}

// List returns up to limit results, most recent first
func (s *ResultStorage) List(ctx context.Context, limit int) ([]*models.Result, error) {
	var records []models.ResultRecord
	if err := s.db.Store().Find(&records, nil); err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].Seq > records[j].Seq
	})

	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}

	results := make([]*models.Result, len(records))
	for i := range records {
		results[i] = &records[i].Result
	}
	return results, nil
}

// Count returns the number of results in the log
func (s *ResultStorage) Count(ctx context.Context) (int, error) {
	count, err := s.db.Store().Count(&models.ResultRecord{}, nil)
	if err != nil {
		return 0, err
	}
	return int(count), nil
}

// DeleteAll clears the log
func (s *ResultStorage) DeleteAll(ctx context.Context) error {
	if err := s.db.Store().DeleteMatching(&models.ResultRecord{}, nil); err != nil {
		return fmt.Errorf("failed to clear results: %w", err)
	}
	s.logger.Info().Msg("Result log cleared")
	return nil
}
