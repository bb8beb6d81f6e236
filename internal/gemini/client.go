package gemini

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

// ErrNoImage is returned when an image-generation response contains no
// inline image part.
var ErrNoImage = errors.New("no image in response")

// Client wraps the Gemini API for the two extraction modes and image
// generation. Structured output and search grounding are mutually exclusive
// on the underlying API, so they get separate entry points.
type Client struct {
	client     *genai.Client
	model      string
	imageModel string
}

func NewClient(ctx context.Context, apiKey, model, imageModel string) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &Client{
		client:     client,
		model:      model,
		imageModel: imageModel,
	}, nil
}

// ExtractStructured runs a schema-constrained extraction. When data is
// non-nil it is attached as inline binary input alongside the instruction.
func (c *Client) ExtractStructured(ctx context.Context, system, instruction string, data []byte, mimeType string) (string, error) {
	parts := []*genai.Part{}
	if len(data) > 0 {
		parts = append(parts, genai.NewPartFromBytes(data, mimeType))
	}
	parts = append(parts, genai.NewPartFromText(instruction))

	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		ResponseMIMEType:  "application/json",
		ResponseSchema:    promptListSchema,
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model,
		[]*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}, cfg)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	return resp.Text(), nil
}

// ExtractGrounded runs a search-grounded free-text extraction. The model
// cannot fetch pages itself, so the GoogleSearch tool stands in; the response
// is expected (but not guaranteed) to be a bare JSON array.
func (c *Client) ExtractGrounded(ctx context.Context, system, instruction string) (string, error) {
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		Tools: []*genai.Tool{
			{GoogleSearch: &genai.GoogleSearch{}},
		},
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model,
		[]*genai.Content{genai.NewContentFromText(instruction, genai.RoleUser)}, cfg)
	if err != nil {
		return "", fmt.Errorf("generate grounded content: %w", err)
	}

	return resp.Text(), nil
}

// GenerateImage sends the prompt text to the image model and returns the
// first inline image payload in the response.
func (c *Client) GenerateImage(ctx context.Context, promptText string) ([]byte, string, error) {
	cfg := &genai.GenerateContentConfig{
		ResponseModalities: []string{"TEXT", "IMAGE"},
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.imageModel,
		[]*genai.Content{genai.NewContentFromText(promptText, genai.RoleUser)}, cfg)
	if err != nil {
		return nil, "", fmt.Errorf("generate image: %w", err)
	}

	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				return part.InlineData.Data, part.InlineData.MIMEType, nil
			}
		}
	}

	return nil, "", ErrNoImage
}

// promptListSchema is the fixed prompt-array schema for structured output.
// title, content and tags are required; the rest are optional hints.
var promptListSchema = &genai.Schema{
	Type: genai.TypeArray,
	Items: &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"title": {
				Type:        genai.TypeString,
				Description: "Short human-readable name for the prompt",
			},
			"content": {
				Type:        genai.TypeString,
				Description: "The full prompt text, verbatim",
			},
			"negativePrompt": {
				Type:        genai.TypeString,
				Description: "Negative prompt text if present",
			},
			"tags": {
				Type:  genai.TypeArray,
				Items: &genai.Schema{Type: genai.TypeString},
			},
			"suggestedModel": {
				Type:        genai.TypeString,
				Description: "The generative model the prompt appears to target",
			},
			"imageParams": {
				Type:        genai.TypeString,
				Description: "Inline parameter flags such as aspect ratio",
			},
		},
		Required: []string{"title", "content", "tags"},
	},
}
