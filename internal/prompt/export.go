package prompt

import (
	"encoding/json"
	"fmt"
	"time"
)

// ExportedPrompt is the portable interchange shape consumed by the wider
// prompt platform. Field names are part of the contract — do not rename.
type ExportedPrompt struct {
	Name           string   `json:"name"`
	Prompt         string   `json:"prompt"`
	NegativePrompt string   `json:"negative_prompt,omitempty"`
	Images         []string `json:"images,omitempty"`
	Tags           []string `json:"tags,omitempty"`
	Notes          string   `json:"notes"`
}

// ExportFile is the top-level export document.
type ExportFile struct {
	Prompts []ExportedPrompt `json:"prompts"`
}

// BuildExport projects records into the portable schema. It is read-only:
// records are never mutated.
func BuildExport(records []Record) ExportFile {
	out := ExportFile{Prompts: make([]ExportedPrompt, 0, len(records))}
	for _, r := range records {
		model := r.Model
		if model == "" {
			model = "Unknown"
		}
		ep := ExportedPrompt{
			Name:           r.Title,
			Prompt:         r.Content,
			NegativePrompt: r.NegativePrompt,
			Tags:           r.Tags,
			Notes:          fmt.Sprintf("Model: %s | Source: %s", model, r.Source),
		}
		for _, img := range r.Images {
			ep.Images = append(ep.Images, img.Data)
		}
		out.Prompts = append(out.Prompts, ep)
	}
	return out
}

// MarshalExport serializes an export document with stable formatting so
// repeated exports of the same records are byte-identical.
func MarshalExport(f ExportFile) ([]byte, error) {
	return json.MarshalIndent(f, "", "  ")
}

// ExportFilename builds the download name: {prefix}-{yyyy-mm-dd}.json.
func ExportFilename(prefix string, now time.Time) string {
	return fmt.Sprintf("%s-%s.json", prefix, now.UTC().Format("2006-01-02"))
}
