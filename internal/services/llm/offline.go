package llm

import (
	"encoding/json"
	"strings"
)

const offlineSummaryMaxChars = 200

// generateOffline answers without any network call. Extraction prompts get an
// object with every requested field blank, rule generation gets an empty
// object, and everything else gets the first sentence of the supplied text.
func generateOffline(prompt string) (string, error) {
	switch {
	case strings.HasPrefix(prompt, "You are a data extraction expert."):
		return offlineExtraction(prompt), nil
	case strings.HasPrefix(prompt, "You are a specialized AI component"):
		return "{}", nil
	}

	text := prompt
	if idx := strings.LastIndex(prompt, "\n\n"); idx >= 0 {
		text = prompt[idx+2:]
	}
	return firstSentence(strings.TrimSpace(text)), nil
}

func offlineExtraction(prompt string) string {
	const start = "fields defined in this JSON: "
	const end = ". Respond ONLY"

	i := strings.Index(prompt, start)
	if i < 0 {
		return "{}"
	}
	rest := prompt[i+len(start):]
	j := strings.Index(rest, end)
	if j < 0 {
		return "{}"
	}

	var fields map[string]interface{}
	if err := json.Unmarshal([]byte(rest[:j]), &fields); err != nil {
		return "{}"
	}

	blank := make(map[string]string, len(fields))
	for name := range fields {
		blank[name] = ""
	}
	out, err := json.Marshal(blank)
	if err != nil {
		return "{}"
	}
	return string(out)
}

func firstSentence(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	if idx := strings.IndexAny(text, ".!?"); idx >= 0 {
		text = text[:idx+1]
	}
	runes := []rune(text)
	if len(runes) > offlineSummaryMaxChars {
		return string(runes[:offlineSummaryMaxChars]) + "..."
	}
	return text
}
