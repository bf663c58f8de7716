package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ExtractionRule maps a wildcard URL pattern to a set of fields to extract.
//
// Fields is the raw JSON object text (field name -> description) exactly as the
// user supplied it; it is embedded into the extraction prompt verbatim.
type ExtractionRule struct {
	ID         string    `json:"id" toml:"id" yaml:"id" badgerhold:"key"`
	URLPattern string    `json:"url_pattern" toml:"url_pattern" yaml:"url_pattern"`
	Fields     string    `json:"fields" toml:"fields" yaml:"fields"`
	Position   int       `json:"position" toml:"-" yaml:"-"`
	CreatedAt  time.Time `json:"created_at" toml:"-" yaml:"-"`
}

// Validate checks that both pattern and fields are present and that fields
// is a JSON object.
func (r *ExtractionRule) Validate() error {
	if strings.TrimSpace(r.URLPattern) == "" {
		return fmt.Errorf("url pattern is required")
	}
	if strings.TrimSpace(r.Fields) == "" {
		return fmt.Errorf("fields are required")
	}
	var fields map[string]interface{}
	if err := json.Unmarshal([]byte(r.Fields), &fields); err != nil {
		return fmt.Errorf("fields must be a JSON object: %w", err)
	}
	return nil
}

// FieldNames returns the keys of the fields object, or nil if Fields is not
// a JSON object.
func (r *ExtractionRule) FieldNames() []string {
	var fields map[string]interface{}
	if err := json.Unmarshal([]byte(r.Fields), &fields); err != nil {
		return nil
	}
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	return names
}
