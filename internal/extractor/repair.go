package extractor

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrInvalidResponse means the model response could not be repaired into a
// JSON array. URL sources downgrade this to a fallback record instead.
var ErrInvalidResponse = errors.New("unparseable model response")

// rawPrompt is one element of the model's JSON array, pre-mapping.
type rawPrompt struct {
	Title          string   `json:"title"`
	Content        string   `json:"content"`
	NegativePrompt string   `json:"negativePrompt"`
	Tags           []string `json:"tags"`
	SuggestedModel string   `json:"suggestedModel"`
	ImageParams    string   `json:"imageParams"`
}

const (
	urlFallbackMinLen     = 20
	urlFallbackMaxContent = 500
)

// repairAndParse turns untrusted model output into prompt entries. The
// heuristics run in a fixed order: strip fences, slice to the outermost
// brackets, parse, then shape-coerce. For URL sources an unparseable but
// non-trivial response becomes a single degraded-success fallback entry,
// since search-grounded output is the least predictable.
func repairAndParse(raw string, fromURL bool) ([]rawPrompt, error) {
	cleaned := strings.ReplaceAll(raw, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	cleaned = strings.TrimSpace(cleaned)

	// Slice to the outermost array even when the model wrapped it in prose.
	if first, last := strings.Index(cleaned, "["), strings.LastIndex(cleaned, "]"); first >= 0 && last > first {
		cleaned = cleaned[first : last+1]
	}

	entries, err := parseEntries([]byte(cleaned))
	if err == nil {
		return entries, nil
	}

	if fromURL && len(strings.TrimSpace(raw)) > urlFallbackMinLen {
		return []rawPrompt{urlFallback(raw)}, nil
	}

	return nil, ErrInvalidResponse
}

// parseEntries accepts an array, a bare object (wrapped into a one-element
// array), or any other valid JSON value (coerced to empty).
func parseEntries(data []byte) ([]rawPrompt, error) {
	var list []rawPrompt
	if err := json.Unmarshal(data, &list); err == nil {
		return list, nil
	}

	var single rawPrompt
	if err := json.Unmarshal(data, &single); err == nil {
		return []rawPrompt{single}, nil
	}

	var scalar any
	if err := json.Unmarshal(data, &scalar); err == nil {
		return nil, nil
	}

	return nil, ErrInvalidResponse
}

func urlFallback(raw string) rawPrompt {
	content := strings.TrimSpace(raw)
	if len(content) > urlFallbackMaxContent {
		content = content[:urlFallbackMaxContent]
	}
	return rawPrompt{
		Title:          "Extracted from Link",
		Content:        content,
		Tags:           []string{"link-content"},
		SuggestedModel: "Unknown",
	}
}
