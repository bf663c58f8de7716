package transform

import (
	"fmt"
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"
)

var (
	tagPattern   = regexp.MustCompile(`<[^>]*>`)
	spacePattern = regexp.MustCompile(`\s+`)
	blankLines   = regexp.MustCompile(`\n{3,}`)
)

// PageText is the readable content of a captured page
type PageText struct {
	Title string
	Text  string
}

// Service converts captured page HTML into the text sent for summarization
type Service struct {
	logger arbor.ILogger
}

// NewService creates a new transform service
func NewService(logger arbor.ILogger) *Service {
	return &Service{
		logger: logger,
	}
}

// ExtractPage returns the page title and its body as markdown.
// baseURL is used for resolving relative links.
func (s *Service) ExtractPage(html string, baseURL string) (*PageText, error) {
	if strings.TrimSpace(html) == "" {
		return nil, fmt.Errorf("empty content")
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	title := extractTitle(doc)
	doc.Find("script, style, noscript, template, svg").Remove()

	body := doc.Find("body")
	if body.Length() == 0 {
		body = doc.Selection
	}
	bodyHTML, err := body.Html()
	if err != nil {
		return nil, fmt.Errorf("failed to render body: %w", err)
	}

	return &PageText{
		Title: title,
		Text:  s.HTMLToMarkdown(bodyHTML, baseURL),
	}, nil
}

// HTMLToMarkdown converts HTML content to markdown, falling back to
// stripped text when conversion fails or produces nothing
func (s *Service) HTMLToMarkdown(html string, baseURL string) string {
	if html == "" {
		return ""
	}

	converter := md.NewConverter(md.DomainFromURL(baseURL), true, nil)
	converted, err := converter.ConvertString(html)
	if err != nil {
		s.logger.Warn().Err(err).Msg("HTML to markdown conversion failed, using fallback")
		return stripHTMLTags(html)
	}

	converted = strings.TrimSpace(blankLines.ReplaceAllString(converted, "\n\n"))
	if converted == "" {
		s.logger.Debug().
			Int("html_length", len(html)).
			Msg("HTML to markdown conversion produced empty output, applying fallback")
		return stripHTMLTags(html)
	}

	s.logger.Trace().
		Int("markdown_length", len(converted)).
		Int("html_length", len(html)).
		Msg("HTML converted to markdown")
	return converted
}

func extractTitle(doc *goquery.Document) string {
	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		return title
	}
	if ogTitle, ok := doc.Find("meta[property='og:title']").Attr("content"); ok && strings.TrimSpace(ogTitle) != "" {
		return strings.TrimSpace(ogTitle)
	}
	if h1 := strings.TrimSpace(doc.Find("h1").First().Text()); h1 != "" {
		return h1
	}
	return ""
}

// stripHTMLTags removes tags and decodes the basic entities
func stripHTMLTags(htmlStr string) string {
	cleaned := tagPattern.ReplaceAllString(htmlStr, "")
	cleaned = spacePattern.ReplaceAllString(cleaned, " ")

	cleaned = strings.ReplaceAll(cleaned, "&amp;", "&")
	cleaned = strings.ReplaceAll(cleaned, "&lt;", "<")
	cleaned = strings.ReplaceAll(cleaned, "&gt;", ">")
	cleaned = strings.ReplaceAll(cleaned, "&quot;", "\"")
	cleaned = strings.ReplaceAll(cleaned, "&#39;", "'")
	cleaned = strings.ReplaceAll(cleaned, "&nbsp;", " ")

	return strings.TrimSpace(cleaned)
}
