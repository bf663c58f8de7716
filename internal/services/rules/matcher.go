package rules

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/contextlog/internal/models"
)

// ErrInvalidRule is returned for rules whose pattern cannot be compiled
var ErrInvalidRule = errors.New("invalid extraction rule")

// CompilePattern turns a wildcard URL pattern into a full-string matcher.
// '*' matches any run of characters; everything else is literal.
func CompilePattern(pattern string) (*regexp.Regexp, error) {
	if strings.TrimSpace(pattern) == "" {
		return nil, fmt.Errorf("%w: empty url pattern", ErrInvalidRule)
	}

	quoted := regexp.QuoteMeta(pattern)
	expr := "^" + strings.ReplaceAll(quoted, `\*`, ".*") + "$"

	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRule, err)
	}
	return re, nil
}

// Matcher selects the extraction rule that applies to a source key
type Matcher struct {
	logger arbor.ILogger
}

// NewMatcher creates a new rule matcher
func NewMatcher(logger arbor.ILogger) *Matcher {
	return &Matcher{logger: logger}
}

// Match returns the first rule, in the given order, whose pattern matches the
// whole sourceKey. Rules with invalid patterns are logged and skipped.
func (m *Matcher) Match(sourceKey string, rules []*models.ExtractionRule) *models.ExtractionRule {
	for _, rule := range rules {
		if rule == nil {
			continue
		}

		re, err := CompilePattern(rule.URLPattern)
		if err != nil {
			m.logger.Warn().
				Err(err).
				Str("rule_id", rule.ID).
				Str("url_pattern", rule.URLPattern).
				Msg("Skipping rule with invalid url pattern")
			continue
		}

		if re.MatchString(sourceKey) {
			m.logger.Debug().
				Str("rule_id", rule.ID).
				Str("source_key", sourceKey).
				Msg("Matched extraction rule")
			return rule
		}
	}
	return nil
}
