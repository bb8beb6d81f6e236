package share

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/promptatlas/promptminer/internal/prompt"
)

// Store is the single-envelope handoff the handler writes into.
type Store interface {
	PutLatest(ctx context.Context, env prompt.SharedContent) error
	TakeLatest(ctx context.Context) (*prompt.SharedContent, error)
}

const (
	redirectShared = "/?shared=true"
	redirectError  = "/?error=share_failed"

	maxShareMemory = 32 << 20 // multipart parse buffer
	maxShareFile   = 16 << 20
)

// Handler intercepts OS-level share submissions at the process boundary.
// Every path terminates in a redirect; nothing is allowed to escape it.
type Handler struct {
	store  Store
	logger *slog.Logger
}

func NewHandler(store Store, logger *slog.Logger) *Handler {
	return &Handler{store: store, logger: logger}
}

// HandleShare accepts the multipart share POST (file/text/url/title),
// persists one envelope (last-share-wins) and redirects into the app.
func (h *Handler) HandleShare(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxShareMemory); err != nil {
		h.logger.Warn("share parse failed", "error", err)
		http.Redirect(w, r, redirectError, http.StatusSeeOther)
		return
	}

	env := prompt.SharedContent{
		Timestamp: time.Now().UTC(),
		Title:     r.FormValue("title"),
		Text:      r.FormValue("text"),
	}

	// The envelope never carries text and url separately.
	if url := r.FormValue("url"); url != "" {
		if env.Text != "" {
			env.Text = env.Text + "\n" + url
		} else {
			env.Text = url
		}
	}

	if file, header, err := r.FormFile("file"); err == nil {
		defer file.Close()
		data, err := io.ReadAll(io.LimitReader(file, maxShareFile))
		if err != nil {
			h.logger.Warn("share file read failed", "error", err)
			http.Redirect(w, r, redirectError, http.StatusSeeOther)
			return
		}
		env.FileName = header.Filename
		env.FileType = header.Header.Get("Content-Type")
		env.FileData = data
	}

	if err := h.store.PutLatest(r.Context(), env); err != nil {
		h.logger.Error("share persist failed", "error", err)
		http.Redirect(w, r, redirectError, http.StatusSeeOther)
		return
	}

	http.Redirect(w, r, redirectShared, http.StatusSeeOther)
}

// HandlePending consumes the pending envelope: reading deletes it, so a
// refresh never re-delivers. 204 when nothing is pending.
func (h *Handler) HandlePending(w http.ResponseWriter, r *http.Request) {
	env, err := h.store.TakeLatest(r.Context())
	if err != nil {
		h.logger.Error("share consume failed", "error", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"error": "share consume failed"})
		return
	}
	if env == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(env)
}
