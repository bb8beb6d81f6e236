package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/promptatlas/promptminer/internal/extractor"
	"github.com/promptatlas/promptminer/internal/library"
	"github.com/promptatlas/promptminer/internal/orchestrator"
	"github.com/promptatlas/promptminer/internal/share"
)

type Server struct {
	router *chi.Mux
	port   int

	orch    *orchestrator.Orchestrator
	library *library.Manager
	ext     *extractor.Extractor
	logger  *slog.Logger
}

func NewServer(port int, orch *orchestrator.Orchestrator, lib *library.Manager, ext *extractor.Extractor, shareHandler *share.Handler, logger *slog.Logger) *Server {
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	s := &Server{
		router:  router,
		port:    port,
		orch:    orch,
		library: lib,
		ext:     ext,
		logger:  logger,
	}

	router.Get("/health", s.health)
	router.Post("/share", shareHandler.HandleShare)

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", s.status)
		r.Get("/share/pending", shareHandler.HandlePending)

		r.Post("/extract", s.extract)
		r.Get("/tasks", s.tasks)
		r.Post("/tasks/clear", s.clearTasks)

		r.Get("/session", s.session)
		r.Get("/library", s.libraryList)

		r.Put("/prompts/{id}", s.updatePrompt)
		r.Delete("/prompts/{id}", s.deletePrompt)
		r.Post("/prompts/{id}/sample-image", s.sampleImage)

		r.Post("/library/save", s.save)
		r.Post("/library/save-selected", s.saveSelected)
		r.Post("/library/bulk-delete", s.bulkDelete)
		r.Post("/library/clear", s.clearLibrary)

		r.Get("/selection", s.selection)
		r.Post("/selection/toggle", s.toggleSelection)
		r.Post("/view", s.setView)

		r.Get("/export", s.export)
	})

	return s
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	s.logger.Info("API server starting", "addr", addr)
	return http.ListenAndServe(addr, s.router)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service": "promptminer",
		"busy":    s.orch.Busy(),
		"tasks":   len(s.orch.Tasks()),
		"session": len(s.library.Session()),
	})
}
