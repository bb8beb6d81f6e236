package share

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/promptatlas/promptminer/internal/prompt"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memShareStore keeps at most one envelope, like the durable handoff store.
type memShareStore struct {
	env     *prompt.SharedContent
	failPut bool
}

func (s *memShareStore) PutLatest(_ context.Context, env prompt.SharedContent) error {
	if s.failPut {
		return errors.New("write failed")
	}
	env.ID = prompt.SharedKey
	s.env = &env
	return nil
}

func (s *memShareStore) TakeLatest(_ context.Context) (*prompt.SharedContent, error) {
	env := s.env
	s.env = nil
	return env, nil
}

func multipartBody(t *testing.T, fields map[string]string, fileName string, fileData []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("write field %s: %v", k, err)
		}
	}
	if fileName != "" {
		fw, err := mw.CreateFormFile("file", fileName)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := fw.Write(fileData); err != nil {
			t.Fatalf("write file: %v", err)
		}
	}
	mw.Close()
	return &buf, mw.FormDataContentType()
}

func TestHandleShare_TextAndURLConcatenated(t *testing.T) {
	store := &memShareStore{}
	h := NewHandler(store, discardLogger())

	body, contentType := multipartBody(t, map[string]string{
		"text":  "check this out",
		"url":   "https://example.com/prompts",
		"title": "shared prompts",
	}, "", nil)

	req := httptest.NewRequest("POST", "/share", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	h.HandleShare(w, req)

	if w.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "/?shared=true" {
		t.Errorf("unexpected redirect: %q", loc)
	}
	if store.env == nil {
		t.Fatal("envelope not stored")
	}
	if store.env.Text != "check this out\nhttps://example.com/prompts" {
		t.Errorf("text+url not concatenated: %q", store.env.Text)
	}
	if store.env.Title != "shared prompts" {
		t.Errorf("unexpected title: %q", store.env.Title)
	}
	if store.env.ID != prompt.SharedKey {
		t.Errorf("expected fixed envelope key, got %q", store.env.ID)
	}
}

func TestHandleShare_File(t *testing.T) {
	store := &memShareStore{}
	h := NewHandler(store, discardLogger())

	fileData := []byte{0x89, 0x50, 0x4e, 0x47}
	body, contentType := multipartBody(t, nil, "screenshot.png", fileData)

	req := httptest.NewRequest("POST", "/share", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	h.HandleShare(w, req)

	if w.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", w.Code)
	}
	if store.env == nil {
		t.Fatal("envelope not stored")
	}
	if store.env.FileName != "screenshot.png" {
		t.Errorf("unexpected file name: %q", store.env.FileName)
	}
	if !bytes.Equal(store.env.FileData, fileData) {
		t.Error("file payload mismatch")
	}
}

func TestHandleShare_NotMultipartRedirectsError(t *testing.T) {
	h := NewHandler(&memShareStore{}, discardLogger())

	req := httptest.NewRequest("POST", "/share", bytes.NewBufferString("not multipart"))
	req.Header.Set("Content-Type", "text/plain")
	w := httptest.NewRecorder()
	h.HandleShare(w, req)

	if w.Code != http.StatusSeeOther {
		t.Fatalf("expected 303 even on failure, got %d", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "/?error=share_failed" {
		t.Errorf("unexpected redirect: %q", loc)
	}
}

func TestHandleShare_StoreFailureRedirectsError(t *testing.T) {
	h := NewHandler(&memShareStore{failPut: true}, discardLogger())

	body, contentType := multipartBody(t, map[string]string{"text": "hello"}, "", nil)
	req := httptest.NewRequest("POST", "/share", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	h.HandleShare(w, req)

	if w.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "/?error=share_failed" {
		t.Errorf("unexpected redirect: %q", loc)
	}
}

func TestHandlePending_ConsumesOnce(t *testing.T) {
	store := &memShareStore{}
	store.env = &prompt.SharedContent{ID: prompt.SharedKey, Text: "pending share"}
	h := NewHandler(store, discardLogger())

	req := httptest.NewRequest("GET", "/api/v1/share/pending", nil)
	w := httptest.NewRecorder()
	h.HandlePending(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var env prompt.SharedContent
	if err := json.NewDecoder(w.Body).Decode(&env); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if env.Text != "pending share" {
		t.Errorf("unexpected envelope text: %q", env.Text)
	}

	// Second read finds nothing: consumption deleted the envelope.
	w = httptest.NewRecorder()
	h.HandlePending(w, httptest.NewRequest("GET", "/api/v1/share/pending", nil))
	if w.Code != http.StatusNoContent {
		t.Errorf("expected 204 on second read, got %d", w.Code)
	}
}
