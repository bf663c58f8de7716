package llm

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/contextlog/internal/common"
	"github.com/ternarybob/contextlog/internal/interfaces"
	"github.com/ternarybob/contextlog/internal/models"
)

// Service builds prompts for each AI task and interprets the replies
type Service struct {
	llm       interfaces.LLMService
	kvStorage interfaces.KeyValueStorage
	config    *common.LLMConfig
	logger    arbor.ILogger
}

// NewService creates a new summarization service over an LLM
func NewService(llm interfaces.LLMService, kvStorage interfaces.KeyValueStorage, config *common.LLMConfig, logger arbor.ILogger) *Service {
	return &Service{
		llm:       llm,
		kvStorage: kvStorage,
		config:    config,
		logger:    logger,
	}
}

// PromptTemplate returns the saved general prompt, or the default when none is saved
func (s *Service) PromptTemplate(ctx context.Context) (string, bool) {
	if s.kvStorage != nil {
		if custom, err := s.kvStorage.Get(ctx, models.SettingGeneralPrompt); err == nil && custom != "" {
			return custom, true
		}
	}
	return DefaultSummaryPrompt, false
}

// Summarize returns a short summary of content
func (s *Service) Summarize(ctx context.Context, content string) (string, error) {
	template, _ := s.PromptTemplate(ctx)
	return s.llm.Invoke(ctx, BuildSummaryPrompt(template, content, s.config.SummaryMaxChars))
}

// ExtractFields asks for the fields object and returns it as compact JSON
func (s *Service) ExtractFields(ctx context.Context, content string, fields string) ([]byte, error) {
	response, err := s.llm.Invoke(ctx, BuildExtractionPrompt(fields, content, s.config.ExtractionMaxChars))
	if err != nil {
		return nil, err
	}

	data, err := ParseJSONObject(response)
	if err != nil {
		s.logger.Debug().Str("response", response).Msg("Extraction reply was not a JSON object")
		return nil, err
	}
	return data, nil
}

// GenerateRuleFields converts a plain-language request into a fields object
func (s *Service) GenerateRuleFields(ctx context.Context, description string) (string, error) {
	response, err := s.llm.Invoke(ctx, BuildRuleGenerationPrompt(description))
	if err != nil {
		return "", err
	}

	data, err := ParseJSONObject(response)
	if err != nil {
		return "", fmt.Errorf("generated rule is not usable: %w", err)
	}
	return string(data), nil
}

// SessionReport produces a markdown report over a browsing log
func (s *Service) SessionReport(ctx context.Context, logText string) (string, error) {
	return s.llm.Invoke(ctx, BuildSessionReportPrompt(logText))
}
