package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobStatus_IsTerminal(t *testing.T) {
	assert.False(t, JobStatusPending.IsTerminal())
	assert.False(t, JobStatusProcessing.IsTerminal())
	assert.True(t, JobStatusComplete.IsTerminal())
	assert.True(t, JobStatusFailed.IsTerminal())
	assert.False(t, JobStatus("unknown").Valid())
}

func TestNewJob_Defaults(t *testing.T) {
	job := NewJob("https://example.com/a", "A", "text")

	assert.Equal(t, JobStatusPending, job.Status)
	assert.Equal(t, 0, job.Attempts)
	assert.Equal(t, ProcessingGenericSummary, job.ProcessingKind)
	assert.Nil(t, job.Rule)
	assert.NoError(t, job.Validate())

	job.Content = ""
	assert.NoError(t, job.Validate(), "empty content is accepted")

	job.SourceKey = ""
	assert.Error(t, job.Validate())
}

func TestExtractionRule_Validate(t *testing.T) {
	tests := []struct {
		name    string
		rule    ExtractionRule
		wantErr bool
	}{
		{"valid", ExtractionRule{URLPattern: "https://github.com/*", Fields: `{"repo":"name"}`}, false},
		{"missing pattern", ExtractionRule{Fields: `{"repo":"name"}`}, true},
		{"missing fields", ExtractionRule{URLPattern: "*"}, true},
		{"fields not json", ExtractionRule{URLPattern: "*", Fields: "repo"}, true},
		{"fields is array", ExtractionRule{URLPattern: "*", Fields: `["repo"]`}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rule.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCacheEntry_RoundTripsResult(t *testing.T) {
	result := &Result{
		ID:         "2025-01-01T00:00:00Z-abc",
		SourceKey:  "https://example.com",
		Title:      "Example",
		Summary:    "An example page.",
		CustomData: json.RawMessage(`{"k":"v"}`),
		Timestamp:  time.Now().UTC(),
	}

	entry := NewCacheEntry(result)
	require.Equal(t, result.SourceKey, entry.SourceKey)

	back := entry.ToResult()
	assert.Equal(t, result, back)
	assert.True(t, back.HasCustomData())

	back.CustomData = nil
	assert.False(t, back.HasCustomData())
}
