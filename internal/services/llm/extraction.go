package llm

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidExtraction is returned when a reply is not a JSON object
var ErrInvalidExtraction = errors.New("extraction response is not a JSON object")

// CleanJSONResponse strips markdown code fences and surrounding whitespace
func CleanJSONResponse(response string) string {
	cleaned := strings.ReplaceAll(response, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	return strings.TrimSpace(cleaned)
}

// ParseJSONObject cleans response and returns it as compact JSON. Anything
// other than a single JSON object fails with ErrInvalidExtraction.
func ParseJSONObject(response string) ([]byte, error) {
	cleaned := CleanJSONResponse(response)

	var object map[string]interface{}
	if err := json.Unmarshal([]byte(cleaned), &object); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidExtraction, err)
	}
	if object == nil {
		return nil, fmt.Errorf("%w: null", ErrInvalidExtraction)
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, []byte(cleaned)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidExtraction, err)
	}
	return compact.Bytes(), nil
}
