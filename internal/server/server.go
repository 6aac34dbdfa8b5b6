// Package server exposes runs over HTTP: submit a topic, poll the run,
// fetch the report.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"

	"github.com/joelkehle/research-assistant/internal/clarify"
	"github.com/joelkehle/research-assistant/internal/runstore"
	"github.com/joelkehle/research-assistant/internal/workflow"
)

// Runner executes a research run to completion.
type Runner interface {
	Run(ctx context.Context, req workflow.Request) (*workflow.RunState, error)
}

// RunStore is the slice of the snapshot store the server needs.
type RunStore interface {
	Save(ctx context.Context, state *workflow.RunState) error
	Get(ctx context.Context, runID string) (*workflow.RunState, error)
	List(ctx context.Context, limit int) ([]runstore.Summary, error)
}

type Server struct {
	runner     Runner
	store      RunStore
	runTimeout time.Duration
}

func New(runner Runner, store RunStore, runTimeout time.Duration) *Server {
	return &Server{runner: runner, store: store, runTimeout: runTimeout}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", s.handleHealth)
	r.Post("/runs", s.handleCreateRun)
	r.Get("/runs", s.handleListRuns)
	r.Get("/runs/{id}", s.handleGetRun)
	r.Get("/runs/{id}/report", s.handleGetReport)
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type createRunRequest struct {
	Topic             string            `json:"topic"`
	SkipClarification bool              `json:"skip_clarification"`
	Answers           clarify.AnswerSet `json:"answers,omitempty"`
}

// handleCreateRun accepts the run and executes it in the background; the
// client polls GET /runs/{id} to watch it advance.
func (s *Server) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	var req createRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Topic) == "" {
		writeError(w, http.StatusBadRequest, "topic is required")
		return
	}

	runID := uuid.NewString()
	now := time.Now()
	initial := &workflow.RunState{
		RunID:             runID,
		Topic:             req.Topic,
		SkipClarification: req.SkipClarification,
		Answers:           req.Answers,
		CurrentStep:       workflow.StepInitialized,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.store.Save(r.Context(), initial); err != nil {
		writeError(w, http.StatusInternalServerError, "could not persist run")
		return
	}

	go func() {
		ctx := context.Background()
		if s.runTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.runTimeout)
			defer cancel()
		}
		if _, err := s.runner.Run(ctx, workflow.Request{
			RunID:             runID,
			Topic:             req.Topic,
			SkipClarification: req.SkipClarification,
			Answers:           req.Answers,
		}); err != nil {
			log.Printf("research-assistant http_run_error run=%s err=%q", runID, err.Error())
		}
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{
		"run_id": runID,
		"status": "accepted",
	})
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.store.List(r.Context(), 50)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not list runs")
		return
	}
	if runs == nil {
		runs = []runstore.Summary{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	state, ok := s.loadRun(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	state, ok := s.loadRun(w, r)
	if !ok {
		return
	}
	if state.CurrentStep != workflow.StepReportGenerated {
		writeError(w, http.StatusConflict, "report not generated yet")
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(state.Report.Markdown))
}

func (s *Server) loadRun(w http.ResponseWriter, r *http.Request) (*workflow.RunState, bool) {
	runID := chi.URLParam(r, "id")
	state, err := s.store.Get(r.Context(), runID)
	if errors.Is(err, runstore.ErrNotFound) {
		writeError(w, http.StatusNotFound, "run not found")
		return nil, false
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not load run")
		return nil, false
	}
	return state, true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"error": msg})
}
