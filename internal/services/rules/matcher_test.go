package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/arbor/writers"
	"github.com/ternarybob/contextlog/internal/models"
)

func TestCompilePattern(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		input   string
		want    bool
	}{
		{"wildcard suffix", "https://example.com/*", "https://example.com/a/b", true},
		{"wildcard suffix other host", "https://example.com/*", "https://other.com/x", false},
		{"full string only", "https://example.com/*", "xhttps://example.com/a", false},
		{"dot is literal", "https://example.com/*", "https://exampleXcom/a", false},
		{"query metacharacters literal", "https://a.com/search?q=*", "https://a.com/search?q=go", true},
		{"question mark not optional", "https://a.com/search?q=*", "https://a.com/searcq=go", false},
		{"middle wildcard", "https://*.github.com/*", "https://gist.github.com/user/1", true},
		{"no wildcard exact", "https://a.com/", "https://a.com/", true},
		{"no wildcard prefix rejected", "https://a.com/", "https://a.com/x", false},
		{"brackets literal", "https://a.com/[id]/*", "https://a.com/[id]/7", true},
		{"lone star matches all", "*", "anything at all", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			re, err := CompilePattern(tt.pattern)
			require.NoError(t, err)
			assert.Equal(t, tt.want, re.MatchString(tt.input))
		})
	}
}

func TestCompilePattern_Invalid(t *testing.T) {
	_, err := CompilePattern("")
	assert.ErrorIs(t, err, ErrInvalidRule)

	_, err = CompilePattern("https://a.com/\xff*")
	assert.ErrorIs(t, err, ErrInvalidRule)
}

func TestMatcher_FirstMatchWins(t *testing.T) {
	matcher := NewMatcher(arbor.NewLogger().WithWriters([]writers.IWriter{}))

	rules := []*models.ExtractionRule{
		{ID: "specific", URLPattern: "https://github.com/golang/*", Fields: "{}"},
		{ID: "broad", URLPattern: "https://github.com/*", Fields: "{}"},
	}

	rule := matcher.Match("https://github.com/golang/go", rules)
	require.NotNil(t, rule)
	assert.Equal(t, "specific", rule.ID)

	rule = matcher.Match("https://github.com/other/repo", rules)
	require.NotNil(t, rule)
	assert.Equal(t, "broad", rule.ID)

	assert.Nil(t, matcher.Match("https://gitlab.com/x", rules))
}

func TestMatcher_SkipsInvalidPatterns(t *testing.T) {
	matcher := NewMatcher(arbor.NewLogger().WithWriters([]writers.IWriter{}))

	rules := []*models.ExtractionRule{
		{ID: "bad", URLPattern: "https://example.com/\xff*", Fields: "{}"},
		{ID: "empty", URLPattern: "", Fields: "{}"},
		nil,
		{ID: "good", URLPattern: "https://example.com/*", Fields: "{}"},
	}

	rule := matcher.Match("https://example.com/page", rules)
	require.NotNil(t, rule)
	assert.Equal(t, "good", rule.ID)
}

func TestMatcher_NoRules(t *testing.T) {
	matcher := NewMatcher(arbor.NewLogger().WithWriters([]writers.IWriter{}))
	assert.Nil(t, matcher.Match("https://example.com", nil))
}
