// server.go - REST API for the credential enrollment service.
//
// Exposes endpoints for commitment enrollment, registration toggling,
// list finalization, and proof bundle retrieval. All state is persisted
// through the enrollment store (db.json).
//
// WARNING: All REST endpoints must validate input and handle errors securely.

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"anoncred/internal/credential"
	"anoncred/internal/enrollment"
)

// Server wires the enrollment service into an HTTP API
type Server struct {
	config      *Config
	logger      *Logger
	metrics     *MetricsCollector
	health      *HealthChecker
	rateLimiter *ClientRateLimiter
	service     *enrollment.Service
	httpServer  *http.Server
}

// NewServer creates a server around an enrollment service
func NewServer(cfg *Config, logger *Logger, service *enrollment.Service) *Server {
	s := &Server{
		config:      cfg,
		logger:      logger,
		metrics:     NewMetricsCollector(),
		health:      NewHealthChecker(Version),
		rateLimiter: NewClientRateLimiter(cfg.RateLimitTokens, cfg.RateLimitRefill, time.Duration(cfg.RateLimitPeriodMs)*time.Millisecond),
		service:     service,
	}

	s.health.RegisterComponent("store", service.Ping)
	s.health.RegisterComponent("http", func() error { return nil })

	mux := http.NewServeMux()
	mux.HandleFunc("/enroll", s.handleEnroll)
	mux.HandleFunc("/enroll/list", s.handleList)
	mux.HandleFunc("/enroll/path", s.handlePath)
	mux.HandleFunc("/enroll/finalize", s.handleFinalize)
	mux.HandleFunc("/registration/toggle", s.handleToggle)
	mux.HandleFunc("/registration/state", s.handleState)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/metrics", s.handleMetrics)

	s.httpServer = &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s
}

// Start runs the HTTP server until the listener fails or Shutdown is called
func (s *Server) Start() error {
	s.logger.Info("Listening on %s", s.config.ListenAddr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown stops the HTTP server gracefully
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// writeJSON encodes a response body with the given status code
func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// writeError maps service errors onto HTTP status codes
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, enrollment.ErrRegistrationClosed):
		status = http.StatusForbidden
	case errors.Is(err, enrollment.ErrDuplicateCommitment):
		status = http.StatusConflict
	case errors.Is(err, enrollment.ErrRegistrationStillOpen),
		errors.Is(err, enrollment.ErrNothingToPublish):
		status = http.StatusConflict
	case errors.Is(err, enrollment.ErrNotEnrolled):
		status = http.StatusNotFound
	case errors.Is(err, credential.ErrInvalidInput),
		errors.Is(err, enrollment.ErrInvalidState):
		status = http.StatusBadRequest
	case errors.Is(err, credential.ErrCapacityExceeded):
		status = http.StatusForbidden
	}
	s.metrics.RecordError(fmt.Sprintf("http_%d", status))
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// clientKey identifies a client for rate limiting purposes
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// requireAdmin checks the admin token header on privileged endpoints
func (s *Server) requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	if r.Header.Get("X-Admin-Token") != s.config.AdminToken {
		s.logger.Warn("Rejected admin request from %s", r.RemoteAddr)
		s.metrics.RecordError("unauthorized")
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid admin token"})
		return false
	}
	return true
}

// parsePredicateID extracts a predicate identifier from a query string
func parsePredicateID(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("predicateId")
	if raw == "" {
		return 0, fmt.Errorf("%w: missing predicateId", credential.ErrInvalidInput)
	}
	id, err := strconv.Atoi(raw)
	if err != nil || id < 0 {
		return 0, fmt.Errorf("%w: bad predicateId %q", credential.ErrInvalidInput, raw)
	}
	return id, nil
}

type enrollRequest struct {
	PredicateID int    `json:"predicateId"`
	Commitment  string `json:"commitment"`
}

// handleEnroll accepts a commitment for an open predicate list
func (s *Server) handleEnroll(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "POST required"})
		return
	}
	if !s.rateLimiter.Allow(clientKey(r)) {
		s.metrics.RecordError("rate_limited")
		writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "rate limit exceeded"})
		return
	}

	var req enrollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, fmt.Errorf("%w: %v", credential.ErrInvalidInput, err))
		return
	}
	if err := s.service.Submit(req.PredicateID, req.Commitment); err != nil {
		s.logger.Warn("Enrollment rejected for predicate %d: %v", req.PredicateID, err)
		s.writeError(w, err)
		return
	}

	total := len(s.service.ListByPredicate(req.PredicateID))
	s.metrics.RecordEnrollment(req.PredicateID, total)
	s.logger.Audit("enroll", map[string]interface{}{
		"predicate": req.PredicateID,
		"enrolled":  total,
	})
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"predicateId": req.PredicateID,
		"enrolled":    total,
	})
}

// handleList returns the proof bundle for a predicate
func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "GET required"})
		return
	}
	id, err := parsePredicateID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	bundle := s.service.Bundle(id)
	writeJSON(w, http.StatusOK, bundle)
}

// handlePath returns a server-computed Merkle path for an enrolled commitment.
// Wallets wanting full anonymity should derive the path locally from the bundle.
func (s *Server) handlePath(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "GET required"})
		return
	}
	id, err := parsePredicateID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	commitment := r.URL.Query().Get("commitment")
	if commitment == "" {
		s.writeError(w, fmt.Errorf("%w: missing commitment", credential.ErrInvalidInput))
		return
	}
	result, err := s.service.ProofPath(id, commitment)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleFinalize publishes the Merkle root for a closed predicate list
func (s *Server) handleFinalize(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "POST required"})
		return
	}
	if !s.requireAdmin(w, r) {
		return
	}
	id, err := parsePredicateID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	start := time.Now()
	list, err := s.service.Publish(id)
	if err != nil {
		s.logger.Warn("Finalize rejected for predicate %d: %v", id, err)
		s.writeError(w, err)
		return
	}

	s.metrics.RecordPublish(id, time.Since(start))
	s.logger.Audit("finalize", map[string]interface{}{
		"predicate": id,
		"root":      list.Root,
		"leaves":    len(list.Commitments),
	})
	s.logger.Info("Published root for predicate %d over %d commitments", id, len(list.Commitments))
	writeJSON(w, http.StatusOK, list)
}

type toggleRequest struct {
	PredicateID int    `json:"predicateId"`
	State       string `json:"state"`
}

// handleToggle opens or closes registration for a predicate
func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "POST required"})
		return
	}
	if !s.requireAdmin(w, r) {
		return
	}

	var req toggleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, fmt.Errorf("%w: %v", credential.ErrInvalidInput, err))
		return
	}
	state, err := enrollment.ParseState(req.State)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.service.SetRegistrationState(req.PredicateID, state); err != nil {
		s.writeError(w, err)
		return
	}

	s.metrics.RecordToggle(req.PredicateID, string(state))
	s.logger.Audit("toggle", map[string]interface{}{
		"predicate": req.PredicateID,
		"state":     string(state),
	})
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"predicateId": req.PredicateID,
		"state":       string(state),
	})
}

// handleState reports the registration state of a predicate
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "GET required"})
		return
	}
	id, err := parsePredicateID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"predicateId": id,
		"state":       string(s.service.RegistrationState(id)),
	})
}

// handleHealth serves the system health report
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := s.health.CheckHealth()
	status := http.StatusOK
	if health.OverallStatus == Unhealthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, CreateHealthResponse(health))
}

// handleMetrics serves the metrics summary
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.metrics.GetMetricsSummary())
}
