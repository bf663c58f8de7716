package report

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/contextlog/internal/interfaces"
	"github.com/ternarybob/contextlog/internal/models"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
)

// ErrEmptyLog is returned when there is nothing to report on
var ErrEmptyLog = errors.New("result log is empty")

// Report is a generated session summary
type Report struct {
	Markdown    string    `json:"markdown"`
	Entries     int       `json:"entries"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Service builds session reports over the result log
type Service struct {
	results    interfaces.ResultStorage
	summarizer interfaces.Summarizer
	markdown   goldmark.Markdown
	logger     arbor.ILogger
}

// NewService creates a report service
func NewService(results interfaces.ResultStorage, summarizer interfaces.Summarizer, logger arbor.ILogger) *Service {
	return &Service{
		results:    results,
		summarizer: summarizer,
		markdown:   newMarkdown(),
		logger:     logger,
	}
}

func newMarkdown() goldmark.Markdown {
	return goldmark.New(
		goldmark.WithExtensions(extension.Table, extension.Strikethrough, extension.Linkify),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
	)
}

// FormatLog renders results as one "[timestamp] title: summary" line each,
// in the order given
func FormatLog(results []*models.Result) string {
	var b strings.Builder
	for _, r := range results {
		fmt.Fprintf(&b, "[%s] %s: %s\n", r.Timestamp.UTC().Format(time.RFC3339), r.Title, r.Summary)
	}
	return b.String()
}

// Generate asks the AI service for a report over the most recent limit
// results (all when limit <= 0)
func (s *Service) Generate(ctx context.Context, limit int) (*Report, error) {
	results, err := s.results.List(ctx, limit)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, ErrEmptyLog
	}

	markdown, err := s.summarizer.SessionReport(ctx, FormatLog(results))
	if err != nil {
		return nil, fmt.Errorf("failed to generate session report: %w", err)
	}

	s.logger.Info().Int("entries", len(results)).Msg("Session report generated")

	return &Report{
		Markdown:    markdown,
		Entries:     len(results),
		GeneratedAt: time.Now(),
	}, nil
}

// RenderHTML converts report markdown to an HTML fragment
func (s *Service) RenderHTML(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := s.markdown.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("failed to render markdown: %w", err)
	}
	return buf.String(), nil
}

// RenderPDF converts report markdown to a PDF document
func (s *Service) RenderPDF(markdown, title string) ([]byte, error) {
	s.logger.Debug().
		Int("markdown_len", len(markdown)).
		Str("title", title).
		Msg("Converting report to PDF")

	data, err := renderPDF(s.markdown, markdown, title)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to generate PDF")
		return nil, err
	}

	s.logger.Debug().Int("pdf_size", len(data)).Msg("PDF generated")
	return data, nil
}
