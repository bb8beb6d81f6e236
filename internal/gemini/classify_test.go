package gemini

import (
	"errors"
	"fmt"
	"testing"

	"google.golang.org/genai"
)

func TestClassifyError_APIError(t *testing.T) {
	cases := []struct {
		code int
		want string
	}{
		{400, MsgBadRequest},
		{413, MsgBadRequest},
		{503, MsgUnavailable},
		{500, MsgUnknown},
	}
	for _, tc := range cases {
		err := fmt.Errorf("generate content: %w", genai.APIError{Code: tc.code, Message: "boom"})
		if got := ClassifyError(err); got != tc.want {
			t.Errorf("code %d: expected %q, got %q", tc.code, tc.want, got)
		}
	}
}

func TestClassifyError_MessageFallback(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{errors.New("rpc error: code 503 service unavailable"), MsgUnavailable},
		{errors.New("model is overloaded, try again"), MsgUnavailable},
		{errors.New("request failed with status 400"), MsgBadRequest},
		{errors.New("INVALID_ARGUMENT: payload too big"), MsgBadRequest},
		{errors.New("something else entirely"), MsgUnknown},
	}
	for _, tc := range cases {
		if got := ClassifyError(tc.err); got != tc.want {
			t.Errorf("%v: expected %q, got %q", tc.err, tc.want, got)
		}
	}
}

func TestClassifyError_Nil(t *testing.T) {
	if got := ClassifyError(nil); got != "" {
		t.Errorf("expected empty message for nil error, got %q", got)
	}
}
