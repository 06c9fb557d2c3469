// Package web exposes the editor session to the browser frontend: a REST
// API over gorilla/mux plus a websocket change feed. Transport only; all
// semantics live in the session.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"subcue/internal/collection"
	"subcue/internal/logging"
	"subcue/internal/session"
	"subcue/internal/store"
	"subcue/internal/subtitle"
)

type Server struct {
	bind   string
	sess   *session.Session
	logger *slog.Logger
	hub    *hub
	server *http.Server
}

func New(bind string, sess *session.Session, logger *slog.Logger) *Server {
	s := &Server{
		bind:   bind,
		sess:   sess,
		logger: logging.NewComponentLogger(logger, "web"),
		hub:    newHub(logger),
	}

	// The observer runs under the session lock; the hub only queues the
	// event, never calls back in.
	sess.Notify(func(event session.Event) {
		s.hub.Broadcast(event)
	})

	router := mux.NewRouter()
	router.HandleFunc("/api/projects", s.handleListProjects).Methods(http.MethodGet)
	router.HandleFunc("/api/projects", s.handleImportProject).Methods(http.MethodPost)
	router.HandleFunc("/api/projects/{id}/open", s.handleOpenProject).Methods(http.MethodPost)
	router.HandleFunc("/api/cues", s.handleGetCues).Methods(http.MethodGet)
	router.HandleFunc("/api/cues", s.handleAddCue).Methods(http.MethodPost)
	router.HandleFunc("/api/cues/{id}", s.handleUpdateCue).Methods(http.MethodPatch)
	router.HandleFunc("/api/cues/{id}", s.handleRemoveCue).Methods(http.MethodDelete)
	router.HandleFunc("/api/diagnostics", s.handleDiagnostics).Methods(http.MethodGet)
	router.HandleFunc("/api/undo", s.handleUndo).Methods(http.MethodPost)
	router.HandleFunc("/api/redo", s.handleRedo).Methods(http.MethodPost)
	router.HandleFunc("/api/save", s.handleSave).Methods(http.MethodPost)
	router.HandleFunc("/api/export", s.handleExport).Methods(http.MethodGet)
	router.HandleFunc("/ws", s.handleWebSocket)

	s.server = &http.Server{
		Addr:              bind,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Run serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("serving editor API", logging.String("bind", s.bind))
		if err := s.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

type importRequest struct {
	Text string        `json:"text"`
	Meta subtitle.Meta `json:"meta"`
}

type importResponse struct {
	Meta          subtitle.Meta `json:"meta"`
	CueCount      int           `json:"cue_count"`
	DroppedBlocks int           `json:"dropped_blocks"`
}

func (s *Server) handleImportProject(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Meta.JobID) == "" {
		req.Meta.JobID = subtitle.NewJobID()
	}

	stats := s.sess.Import(req.Text, req.Meta)
	if err := s.sess.SaveImported(r.Context()); err != nil {
		s.logger.Error("persisting import failed", logging.Error(err))
		respondError(w, http.StatusInternalServerError, "import stored in memory only")
		return
	}

	respondJSON(w, http.StatusCreated, importResponse{
		Meta:          s.sess.Meta(),
		CueCount:      len(s.sess.Cues()),
		DroppedBlocks: stats.Dropped,
	})
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := s.sess.Projects(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if projects == nil {
		projects = []store.ProjectInfo{}
	}
	respondJSON(w, http.StatusOK, projects)
}

func (s *Server) handleOpenProject(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	err := s.sess.RestoreProject(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "project not found")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"meta": s.sess.Meta(),
		"cues": s.sess.Cues(),
	})
}

func (s *Server) handleGetCues(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.sess.Cues())
}

type addCueRequest struct {
	Index int `json:"index"`
	collection.Payload
}

func (s *Server) handleAddCue(w http.ResponseWriter, r *http.Request) {
	var req addCueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	cue := s.sess.AddSubtitle(req.Index, req.Payload)
	respondJSON(w, http.StatusCreated, cue)
}

func (s *Server) handleUpdateCue(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var patch collection.Patch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !s.sess.UpdateSubtitle(id, patch) {
		respondError(w, http.StatusNotFound, "cue not found")
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"updated": true})
}

func (s *Server) handleRemoveCue(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if !s.sess.RemoveSubtitle(id) {
		respondError(w, http.StatusNotFound, "cue not found")
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"removed": true})
}

func (s *Server) handleDiagnostics(w http.ResponseWriter, r *http.Request) {
	diags := s.sess.Diagnostics()
	if diags == nil {
		respondJSON(w, http.StatusOK, []any{})
		return
	}
	respondJSON(w, http.StatusOK, diags)
}

func (s *Server) handleUndo(w http.ResponseWriter, r *http.Request) {
	ok := s.sess.Undo()
	respondJSON(w, http.StatusOK, map[string]bool{
		"applied":  ok,
		"can_undo": s.sess.CanUndo(),
		"can_redo": s.sess.CanRedo(),
	})
}

func (s *Server) handleRedo(w http.ResponseWriter, r *http.Request) {
	ok := s.sess.Redo()
	respondJSON(w, http.StatusOK, map[string]bool{
		"applied":  ok,
		"can_undo": s.sess.CanUndo(),
		"can_redo": s.sess.CanRedo(),
	})
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	if err := s.sess.SaveProject(r.Context()); err != nil {
		respondError(w, http.StatusBadGateway, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"saved": true})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(s.sess.GenerateSRT()))
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
