package rules

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/contextlog/internal/common"
	"github.com/ternarybob/contextlog/internal/interfaces"
	"github.com/ternarybob/contextlog/internal/models"
)

// Service manages the ordered extraction rule set and triage against it
type Service struct {
	storage    interfaces.RuleStorage
	summarizer interfaces.Summarizer
	matcher    *Matcher
	logger     arbor.ILogger
}

// NewService creates a new rule service. summarizer may be nil when rule
// generation is not needed.
func NewService(storage interfaces.RuleStorage, summarizer interfaces.Summarizer, logger arbor.ILogger) *Service {
	return &Service{
		storage:    storage,
		summarizer: summarizer,
		matcher:    NewMatcher(logger),
		logger:     logger,
	}
}

// List returns all rules in stored order
func (s *Service) List(ctx context.Context) ([]*models.ExtractionRule, error) {
	return s.storage.List(ctx)
}

// Get returns one rule by ID
func (s *Service) Get(ctx context.Context, id string) (*models.ExtractionRule, error) {
	return s.storage.Get(ctx, id)
}

// Add appends a new rule to the end of the rule order
func (s *Service) Add(ctx context.Context, urlPattern, fields string) (*models.ExtractionRule, error) {
	rule := &models.ExtractionRule{
		ID:         common.NewRuleID(time.Now()),
		URLPattern: strings.TrimSpace(urlPattern),
		Fields:     strings.TrimSpace(fields),
	}
	if err := s.validate(rule); err != nil {
		return nil, err
	}

	if err := s.storage.Save(ctx, rule); err != nil {
		s.logger.Error().Err(err).Str("url_pattern", rule.URLPattern).Msg("Failed to save extraction rule")
		return nil, err
	}

	s.logger.Info().Str("rule_id", rule.ID).Str("url_pattern", rule.URLPattern).Msg("Extraction rule added")
	return rule, nil
}

// Update replaces the pattern and fields of an existing rule, keeping its position
func (s *Service) Update(ctx context.Context, id, urlPattern, fields string) (*models.ExtractionRule, error) {
	rule, err := s.storage.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	rule.URLPattern = strings.TrimSpace(urlPattern)
	rule.Fields = strings.TrimSpace(fields)
	if err := s.validate(rule); err != nil {
		return nil, err
	}

	if err := s.storage.Save(ctx, rule); err != nil {
		return nil, err
	}

	s.logger.Info().Str("rule_id", rule.ID).Msg("Extraction rule updated")
	return rule, nil
}

// Delete removes a rule
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.storage.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Str("rule_id", id).Msg("Extraction rule deleted")
	return nil
}

// Match reads the current rule set and returns the first rule that applies to
// sourceKey, or nil. Rules are never cached between calls.
func (s *Service) Match(ctx context.Context, sourceKey string) (*models.ExtractionRule, error) {
	rules, err := s.storage.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read extraction rules: %w", err)
	}
	return s.matcher.Match(sourceKey, rules), nil
}

// GenerateFields asks the AI service to turn a plain-language request into a
// fields JSON object suitable for a new rule.
func (s *Service) GenerateFields(ctx context.Context, description string) (string, error) {
	if s.summarizer == nil {
		return "", fmt.Errorf("rule generation is not available")
	}
	if strings.TrimSpace(description) == "" {
		return "", fmt.Errorf("description is required")
	}
	return s.summarizer.GenerateRuleFields(ctx, description)
}

func (s *Service) validate(rule *models.ExtractionRule) error {
	if err := rule.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRule, err)
	}
	if _, err := CompilePattern(rule.URLPattern); err != nil {
		return err
	}
	return nil
}
