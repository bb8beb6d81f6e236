package extractor

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/promptatlas/promptminer/internal/prompt"
)

// Backend is the generative-AI capability the extractor consumes. The
// concrete implementation is the Gemini client; tests substitute a stub.
type Backend interface {
	ExtractStructured(ctx context.Context, system, instruction string, data []byte, mimeType string) (string, error)
	ExtractGrounded(ctx context.Context, system, instruction string) (string, error)
	GenerateImage(ctx context.Context, promptText string) (data []byte, mimeType string, err error)
}

type Extractor struct {
	backend Backend
	logger  *slog.Logger
}

func New(backend Backend, logger *slog.Logger) *Extractor {
	return &Extractor{backend: backend, logger: logger}
}

// Analyze processes one source into zero or more prompt records. Zero
// records is a valid outcome, not an error.
func (e *Extractor) Analyze(ctx context.Context, src Source) ([]prompt.Record, error) {
	var (
		raw     string
		err     error
		fromURL bool
	)

	switch s := src.(type) {
	case FileSource:
		raw, err = e.backend.ExtractStructured(ctx, systemInstruction, fileTaskInstruction, s.Data, s.MIMEType)
	case TextSource:
		if s.IsURL() {
			fromURL = true
			raw, err = e.backend.ExtractGrounded(ctx, systemInstruction, urlTaskInstruction(strings.TrimSpace(s.Text)))
		} else {
			raw, err = e.backend.ExtractStructured(ctx, systemInstruction, textTaskInstruction(s.Text), nil, "")
		}
	default:
		return nil, fmt.Errorf("unsupported source type %T", src)
	}
	if err != nil {
		return nil, fmt.Errorf("analyze %s: %w", src.Label(), err)
	}

	entries, err := repairAndParse(raw, fromURL)
	if err != nil {
		e.logger.Error("failed to parse extraction response",
			"source", src.Label(),
			"error", err,
			"raw_len", len(raw),
		)
		return nil, fmt.Errorf("analyze %s: %w", src.Label(), err)
	}

	records := e.toRecords(entries, src)

	e.logger.Info("extraction complete",
		"source", src.Label(),
		"prompts", len(records),
	)

	return records, nil
}

// GenerateSampleImage asks the image model to render the prompt text and
// wraps the first inline image of the response.
func (e *Extractor) GenerateSampleImage(ctx context.Context, promptText string) (prompt.Image, error) {
	data, mimeType, err := e.backend.GenerateImage(ctx, promptText)
	if err != nil {
		return prompt.Image{}, fmt.Errorf("generate sample image: %w", err)
	}
	return prompt.Image{
		ID:          uuid.NewString(),
		Data:        base64.StdEncoding.EncodeToString(data),
		MIMEType:    mimeType,
		IsGenerated: true,
	}, nil
}

func (e *Extractor) toRecords(entries []rawPrompt, src Source) []prompt.Record {
	var sourceImage *prompt.Image
	if f, ok := src.(FileSource); ok && strings.HasPrefix(f.MIMEType, "image/") {
		sourceImage = &prompt.Image{
			ID:       uuid.NewString(),
			Data:     base64.StdEncoding.EncodeToString(f.Data),
			MIMEType: f.MIMEType,
		}
	}

	records := make([]prompt.Record, 0, len(entries))
	for _, entry := range entries {
		title := entry.Title
		if title == "" {
			title = "Prompt from " + src.Label()
		}
		tags := entry.Tags
		if tags == nil {
			tags = []string{}
		}
		records = append(records, prompt.Record{
			ID:                  uuid.NewString(),
			Title:               title,
			Content:             entry.Content,
			NegativePrompt:      entry.NegativePrompt,
			Model:               entry.SuggestedModel,
			Source:              src.Label(),
			Tags:                tags,
			OriginalSourceImage: sourceImage,
		})
	}
	return records
}
