package badger

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/contextlog/internal/interfaces"
	"github.com/ternarybob/contextlog/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// RuleStorage implements ordered extraction rule persistence for Badger
type RuleStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewRuleStorage creates a new RuleStorage instance
func NewRuleStorage(db *BadgerDB, logger arbor.ILogger) interfaces.RuleStorage {
	return &RuleStorage{
		db:     db,
		logger: logger,
	}
}

// List returns all rules in stored order
func (s *RuleStorage) List(ctx context.Context) ([]*models.ExtractionRule, error) {
	var rules []models.ExtractionRule
	if err := s.db.Store().Find(&rules, nil); err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}

	sort.SliceStable(rules, func(i, j int) bool {
		if rules[i].Position != rules[j].Position {
			return rules[i].Position < rules[j].Position
		}
		return rules[i].CreatedAt.Before(rules[j].CreatedAt)
	})

	result := make([]*models.ExtractionRule, len(rules))
	for i := range rules {
		result[i] = &rules[i]
	}
	return result, nil
}

// Get retrieves a rule by ID
func (s *RuleStorage) Get(ctx context.Context, id string) (*models.ExtractionRule, error) {
	var rule models.ExtractionRule
	err := s.db.Store().Get(id, &rule)
	if err == badgerhold.ErrNotFound {
		return nil, interfaces.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get rule: %w", err)
	}
	return &rule, nil
}

// Save creates the rule at the end of the order, or updates it in place
func (s *RuleStorage) Save(ctx context.Context, rule *models.ExtractionRule) error {
	if rule.ID == "" {
		return fmt.Errorf("rule ID is required")
	}

	var existing models.ExtractionRule
	err := s.db.Store().Get(rule.ID, &existing)
	switch {
	case err == nil:
		rule.Position = existing.Position
		rule.CreatedAt = existing.CreatedAt
	case err == badgerhold.ErrNotFound:
		position, err := s.nextPosition()
		if err != nil {
			return err
		}
		rule.Position = position
		if rule.CreatedAt.IsZero() {
			rule.CreatedAt = time.Now()
		}
	default:
		return fmt.Errorf("failed to check rule existence: %w", err)
	}

	if err := s.db.Store().Upsert(rule.ID, rule); err != nil {
		return fmt.Errorf("failed to save rule: %w", err)
	}
	return nil
}

func (s *RuleStorage) nextPosition() (int, error) {
	var rules []models.ExtractionRule
	if err := s.db.Store().Find(&rules, nil); err != nil {
		return 0, fmt.Errorf("failed to read rule positions: %w", err)
	}
	next := 0
	for _, r := range rules {
		if r.Position >= next {
			next = r.Position + 1
		}
	}
	return next, nil
}

// Delete removes a rule by ID
func (s *RuleStorage) Delete(ctx context.Context, id string) error {
	err := s.db.Store().Delete(id, &models.ExtractionRule{})
	if err == badgerhold.ErrNotFound {
		return interfaces.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete rule: %w", err)
	}
	return nil
}

// DeleteAll removes every rule
func (s *RuleStorage) DeleteAll(ctx context.Context) error {
	if err := s.db.Store().DeleteMatching(&models.ExtractionRule{}, nil); err != nil {
		return fmt.Errorf("failed to delete rules: %w", err)
	}
	s.logger.Info().Msg("Deleted all extraction rules")
	return nil
}
