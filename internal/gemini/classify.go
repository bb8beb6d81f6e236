package gemini

import (
	"errors"
	"strings"

	"google.golang.org/genai"
)

// User-facing failure messages surfaced on task statuses.
const (
	MsgBadRequest  = "Bad Request/File too large"
	MsgUnavailable = "AI Service Unavailable"
	MsgUnknown     = "An unknown error occurred"
)

// ClassifyError maps a backend failure to the short message shown to the
// user. Internal detail stays in the logs.
func ClassifyError(err error) string {
	if err == nil {
		return ""
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == 400 || apiErr.Code == 413:
			return MsgBadRequest
		case apiErr.Code == 503:
			return MsgUnavailable
		}
	}

	// The SDK does not always surface a typed error, so fall back to
	// matching the status text.
	msg := err.Error()
	switch {
	case strings.Contains(msg, "400") || strings.Contains(msg, "INVALID_ARGUMENT") || strings.Contains(msg, "413"):
		return MsgBadRequest
	case strings.Contains(msg, "503") || strings.Contains(msg, "UNAVAILABLE") || strings.Contains(msg, "overloaded"):
		return MsgUnavailable
	default:
		return MsgUnknown
	}
}
