package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/promptatlas/promptminer/internal/extractor"
	"github.com/promptatlas/promptminer/internal/library"
	"github.com/promptatlas/promptminer/internal/prompt"
)

const maxUploadMemory = 64 << 20

// extract accepts a multipart batch (files[] + text) and fans it out. The
// response returns immediately with the created task ids; progress is
// polled via /tasks.
func (s *Server) extract(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}

	var files []extractor.FileSource
	if r.MultipartForm != nil {
		for _, header := range r.MultipartForm.File["files"] {
			f, err := header.Open()
			if err != nil {
				writeError(w, http.StatusBadRequest, fmt.Sprintf("open %s failed", header.Filename))
				return
			}
			data, err := io.ReadAll(f)
			f.Close()
			if err != nil {
				writeError(w, http.StatusBadRequest, fmt.Sprintf("read %s failed", header.Filename))
				return
			}
			mimeType := header.Header.Get("Content-Type")
			if mimeType == "" {
				mimeType = http.DetectContentType(data)
			}
			files = append(files, extractor.FileSource{
				Name:     header.Filename,
				Data:     data,
				MIMEType: mimeType,
			})
		}
	}

	// Tasks outlive this request: there is no cancellation once a batch is
	// submitted, so they must not inherit the request context.
	text := r.FormValue("text")
	ids := s.orch.Process(context.Background(), files, text)
	if len(ids) == 0 {
		writeError(w, http.StatusBadRequest, "no sources submitted")
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{"taskIds": ids})
}

func (s *Server) tasks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"tasks": s.orch.Tasks(),
		"busy":  s.orch.Busy(),
	})
}

func (s *Server) clearTasks(w http.ResponseWriter, r *http.Request) {
	s.orch.ClearCompleted()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) session(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"prompts": s.library.Session()})
}

func (s *Server) libraryList(w http.ResponseWriter, r *http.Request) {
	records, err := s.library.Library(r.Context())
	if err != nil {
		s.logger.Error("library list failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load library")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"prompts": records})
}

func (s *Server) updatePrompt(w http.ResponseWriter, r *http.Request) {
	var rec prompt.Record
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		writeError(w, http.StatusBadRequest, "invalid record body")
		return
	}
	rec.ID = chi.URLParam(r, "id")

	if err := s.library.Update(r.Context(), rec); err != nil {
		if errors.Is(err, library.ErrNotFound) {
			writeError(w, http.StatusNotFound, "record not found")
			return
		}
		s.logger.Error("update failed", "id", rec.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "update failed")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) deletePrompt(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	fromLibrary := r.URL.Query().Get("from") == "library"
	confirmed := r.URL.Query().Get("confirm") == "true"

	err := s.library.Delete(r.Context(), id, fromLibrary, confirmed)
	if errors.Is(err, library.ErrConfirmationRequired) {
		writeError(w, http.StatusConflict, "confirmation required")
		return
	}
	if err != nil {
		s.logger.Error("delete failed", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "delete failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// sampleImage generates a preview image for one record. Failures are
// scoped to this record; nothing else is touched.
func (s *Server) sampleImage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	rec, err := s.library.Find(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusNotFound, "record not found")
		return
	}
	if rec.Content == "" {
		writeError(w, http.StatusBadRequest, "record has no prompt content")
		return
	}

	img, err := s.ext.GenerateSampleImage(r.Context(), rec.Content)
	if err != nil {
		s.logger.Error("sample image failed", "id", id, "error", err)
		writeError(w, http.StatusBadGateway, "image generation failed")
		return
	}

	rec.Images = append(rec.Images, img)
	if err := s.library.Update(r.Context(), rec); err != nil {
		s.logger.Error("attach sample image failed", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to attach image")
		return
	}

	writeJSON(w, http.StatusOK, img)
}

func (s *Server) save(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.ID == "" {
		writeError(w, http.StatusBadRequest, "id required")
		return
	}

	if err := s.library.SaveToLibrary(r.Context(), body.ID); err != nil {
		if errors.Is(err, library.ErrNotFound) {
			writeError(w, http.StatusNotFound, "record not in session")
			return
		}
		s.logger.Error("save failed", "id", body.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "save failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) saveSelected(w http.ResponseWriter, r *http.Request) {
	if err := s.library.SaveSelected(r.Context()); err != nil {
		s.logger.Error("save selected failed", "error", err)
		writeError(w, http.StatusInternalServerError, "save failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) bulkDelete(w http.ResponseWriter, r *http.Request) {
	var body struct {
		IDs         []string `json:"ids"`
		FromLibrary bool     `json:"fromLibrary"`
		Confirm     bool     `json:"confirm"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || len(body.IDs) == 0 {
		writeError(w, http.StatusBadRequest, "ids required")
		return
	}

	err := s.library.BulkDelete(r.Context(), body.IDs, body.FromLibrary, body.Confirm)
	if errors.Is(err, library.ErrConfirmationRequired) {
		writeError(w, http.StatusConflict, "confirmation required")
		return
	}
	if err != nil {
		s.logger.Error("bulk delete failed", "error", err)
		writeError(w, http.StatusInternalServerError, "bulk delete failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) clearLibrary(w http.ResponseWriter, r *http.Request) {
	confirmed := r.URL.Query().Get("confirm") == "true"

	err := s.library.ClearLibrary(r.Context(), confirmed)
	if errors.Is(err, library.ErrConfirmationRequired) {
		writeError(w, http.StatusConflict, "confirmation required")
		return
	}
	if err != nil {
		s.logger.Error("clear library failed", "error", err)
		writeError(w, http.StatusInternalServerError, "clear failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) selection(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"view":     s.library.ActiveView(),
		"selected": s.library.Selected(),
	})
}

func (s *Server) toggleSelection(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.ID == "" {
		writeError(w, http.StatusBadRequest, "id required")
		return
	}
	s.library.ToggleSelect(body.ID)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) setView(w http.ResponseWriter, r *http.Request) {
	var body struct {
		View library.View `json:"view"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if body.View != library.ViewSession && body.View != library.ViewLibrary {
		writeError(w, http.StatusBadRequest, "view must be session or library")
		return
	}
	s.library.SetView(body.View)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) export(w http.ResponseWriter, r *http.Request) {
	scope := r.URL.Query().Get("scope")
	prefix := r.URL.Query().Get("prefix")

	var records []prompt.Record
	switch scope {
	case "library":
		var err error
		records, err = s.library.Library(r.Context())
		if err != nil {
			s.logger.Error("export load failed", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to load library")
			return
		}
		if prefix == "" {
			prefix = "prompt-library"
		}
	case "session", "":
		records = s.library.Session()
		if prefix == "" {
			prefix = "extracted-prompts"
		}
	default:
		writeError(w, http.StatusBadRequest, "scope must be session or library")
		return
	}

	filename, data, err := s.library.Export(records, prefix, time.Now())
	if err != nil {
		s.logger.Error("export failed", "error", err)
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}
	if data == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
