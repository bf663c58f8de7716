package models

import (
	"encoding/json"
	"time"
)

// Result is the summarized (and optionally extracted) outcome for one page.
type Result struct {
	ID         string          `json:"id"`
	SourceKey  string          `json:"source_key"`
	Title      string          `json:"title"`
	Summary    string          `json:"summary"`
	CustomData json.RawMessage `json:"custom_data"`
	Timestamp  time.Time       `json:"timestamp"`
}

// HasCustomData reports whether the result carries extracted fields.
func (r *Result) HasCustomData() bool {
	return len(r.CustomData) > 0 && string(r.CustomData) != "null"
}

// ResultRecord is one row of the durable result log. Seq orders the log.
type ResultRecord struct {
	Seq    uint64 `badgerhold:"key"`
	Result Result
}

// CacheEntry memoizes the most recent Result for a source key.
type CacheEntry struct {
	SourceKey  string          `json:"source_key" badgerhold:"key"`
	ResultID   string          `json:"result_id"`
	Title      string          `json:"title"`
	Summary    string          `json:"summary"`
	CustomData json.RawMessage `json:"custom_data"`
	Timestamp  time.Time       `json:"timestamp"`
	CachedAt   time.Time       `json:"cached_at"`
}

// NewCacheEntry builds the cache record for a completed result.
func NewCacheEntry(result *Result) *CacheEntry {
	return &CacheEntry{
		SourceKey:  result.SourceKey,
		ResultID:   result.ID,
		Title:      result.Title,
		Summary:    result.Summary,
		CustomData: result.CustomData,
		Timestamp:  result.Timestamp,
		CachedAt:   time.Now(),
	}
}

// ToResult converts a cached entry back to the Result it memoizes.
func (c *CacheEntry) ToResult() *Result {
	return &Result{
		ID:         c.ResultID,
		SourceKey:  c.SourceKey,
		Title:      c.Title,
		Summary:    c.Summary,
		CustomData: c.CustomData,
		Timestamp:  c.Timestamp,
	}
}
