package ops

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/raolivei/swimTO-sub000/internal/pipeline"
	"github.com/raolivei/swimTO-sub000/pkg/database"
	"github.com/raolivei/swimTO-sub000/pkg/logger"
)

// Server is the operations surface: ingestion health, the latest run
// summary and its quality/coverage reports. Read-only, intended for an
// admin dashboard or curl.
type Server struct {
	logger *logger.Logger
	db     *database.DB
	http   *http.Server

	mu      sync.RWMutex
	summary *pipeline.RunSummary
}

// NewServer creates an ops server listening on addr
func NewServer(log *logger.Logger, db *database.DB, addr string) *Server {
	s := &Server{
		logger: log.WithField("component", "ops"),
		db:     db,
	}

	router := mux.NewRouter()
	router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	router.HandleFunc("/quality", s.handleQuality).Methods(http.MethodGet)
	router.HandleFunc("/analysis", s.handleAnalysis).Methods(http.MethodGet)
	router.HandleFunc("/quarantine", s.handleQuarantine).Methods(http.MethodGet)

	s.http = &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s
}

// SetSummary publishes the latest run summary to the surface
func (s *Server) SetSummary(summary *pipeline.RunSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summary = summary
}

// Start serves until the listener fails or Shutdown is called
func (s *Server) Start() error {
	s.logger.WithField("addr", s.http.Addr).Info("Ops server listening")
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status, err := s.db.HealthCheck(r.Context())
	if err != nil || !status.Healthy {
		writeJSON(w, http.StatusServiceUnavailable, status)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	summary := s.latest()
	if summary == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no run recorded yet"})
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleQuality(w http.ResponseWriter, r *http.Request) {
	summary := s.latest()
	if summary == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no run recorded yet"})
		return
	}
	writeJSON(w, http.StatusOK, summary.Quality)
}

func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	summary := s.latest()
	if summary == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no run recorded yet"})
		return
	}
	writeJSON(w, http.StatusOK, summary.Analysis)
}

// handleQuarantine lists records held back for manual review
func (s *Server) handleQuarantine(w http.ResponseWriter, r *http.Request) {
	summary := s.latest()
	if summary == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no run recorded yet"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":   summary.QuarantineCount,
		"records": summary.Quarantine,
	})
}

func (s *Server) latest() *pipeline.RunSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.summary
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
