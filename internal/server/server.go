// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/neonnexus/internal/analysis"
	convctx "github.com/jeranaias/neonnexus/internal/context"
	"github.com/jeranaias/neonnexus/internal/model"
	"github.com/jeranaias/neonnexus/internal/telemetry"
)

// ============================================================================
// CONSTANTS
// ============================================================================

const (
	// DefaultAddr is the default listen address.
	DefaultAddr = "127.0.0.1:8787"

	// MaxRequestBodySize is the maximum size for request body to prevent DoS (1MB).
	MaxRequestBodySize = 1 * 1024 * 1024

	// MaxMessageLength is the maximum length of the user message in bytes.
	MaxMessageLength = 100000

	// MaxContextTurns is the maximum number of context turns in a request.
	MaxContextTurns = 200

	// Version is the server version.
	Version = "1.0.0"
)

// validateContext checks every context turn has an accepted role.
func validateContext(turns []model.Turn) error {
	for i, t := range turns {
		if !t.Role.Valid() {
			return fmt.Errorf("invalid role '%s' at context turn %d: must be one of user, assistant, system", t.Role, i)
		}
	}
	return nil
}

// ============================================================================
// SERVER STATS
// ============================================================================

// ServerStats tracks server usage statistics.
type ServerStats struct {
	requests       atomic.Int64
	completions    atomic.Int64
	providerErrors atomic.Int64
	rateLimited    atomic.Int64
	badRequests    atomic.Int64
	startTime      time.Time
}

// StatsSnapshot is a point-in-time copy of ServerStats.
type StatsSnapshot struct {
	TotalRequests  int64 `json:"total_requests"`
	Completions    int64 `json:"completions"`
	ProviderErrors int64 `json:"provider_errors"`
	RateLimited    int64 `json:"rate_limited"`
	BadRequests    int64 `json:"bad_requests"`
	UptimeSeconds  int64 `json:"uptime_seconds"`
}

// NewServerStats creates a new ServerStats instance.
func NewServerStats() *ServerStats {
	return &ServerStats{startTime: time.Now()}
}

// Snapshot returns a copy of the current stats.
func (s *ServerStats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		TotalRequests:  s.requests.Load(),
		Completions:    s.completions.Load(),
		ProviderErrors: s.providerErrors.Load(),
		RateLimited:    s.rateLimited.Load(),
		BadRequests:    s.badRequests.Load(),
		UptimeSeconds:  int64(time.Since(s.startTime).Seconds()),
	}
}

// ============================================================================
// SERVER
// ============================================================================

// Server is the HTTP service behind the console's /chat endpoint.
type Server struct {
	addr   string
	router *http.ServeMux
	server *http.Server

	provider Provider
	budget   *convctx.Budget
	analyze  bool
	limiter  *RateLimiter
	cors     *CORSConfig
	auth     *AuthConfig
	stats    *ServerStats

	mu sync.RWMutex
}

// NewServer creates a Server answering from provider.
// If addr is empty, DefaultAddr is used.
func NewServer(addr string, provider Provider) *Server {
	if addr == "" {
		addr = DefaultAddr
	}

	s := &Server{
		addr:     addr,
		router:   http.NewServeMux(),
		provider: provider,
		analyze:  true,
		cors:     DefaultCORSConfig(),
		auth:     DefaultAuthConfig(),
		stats:    NewServerStats(),
	}

	s.setupRoutes()
	return s
}

// WithBudget trims forwarded context to fit a token budget.
func (s *Server) WithBudget(b *convctx.Budget) *Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.budget = b
	return s
}

// WithAnalysis toggles attaching text metrics to replies.
func (s *Server) WithAnalysis(enabled bool) *Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.analyze = enabled
	return s
}

// WithRateLimiter sets the per-client rate limiter. nil disables limiting.
func (s *Server) WithRateLimiter(rl *RateLimiter) *Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.limiter = rl
	return s
}

// WithAuth sets the authentication configuration.
func (s *Server) WithAuth(config *AuthConfig) *Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.auth = config
	return s
}

// WithCORS sets the CORS configuration.
func (s *Server) WithCORS(config *CORSConfig) *Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cors = config
	return s
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.addr
}

// Stats returns the usage counters.
func (s *Server) Stats() StatsSnapshot {
	return s.stats.Snapshot()
}

// ============================================================================
// ROUTES
// ============================================================================

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.HandleFunc("POST /chat", s.handleChat)
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /stats", s.handleStats)
}

// Handler returns the routes wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	s.mu.RLock()
	defer s.mu.RUnlock()

	middlewares := []func(http.Handler) http.Handler{
		RecoveryMiddleware(),
		LoggingMiddleware(),
		SecurityHeadersMiddleware(),
		CORSMiddleware(s.cors),
	}
	if s.limiter != nil {
		middlewares = append(middlewares, RateLimitMiddleware(s.limiter, s.stats))
	}
	if s.auth != nil && s.auth.Enabled {
		middlewares = append(middlewares, AuthMiddleware(s.auth))
	}
	return Chain(middlewares...)(s.router)
}

// ============================================================================
// WIRE TYPES
// ============================================================================

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	Message string       `json:"message"`
	Context []model.Turn `json:"context"`
}

// ChatResponse is a successful reply.
type ChatResponse struct {
	ID      string          `json:"id"`
	Message string          `json:"message"`
	Status  string          `json:"status"`
	Metrics json.RawMessage `json:"metrics,omitempty"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// ============================================================================
// CHAT HANDLER
// ============================================================================

// handleChat handles POST /chat.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := telemetry.LoggerFromContext(ctx)
	s.stats.requests.Add(1)

	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.stats.badRequests.Add(1)
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("Request body exceeds maximum size of %d bytes", MaxRequestBodySize))
			return
		}
		// SECURITY: Log full details internally, return generic message to client
		log.Debug("invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid JSON format")
		return
	}

	message := strings.TrimSpace(req.Message)
	if message == "" {
		s.stats.badRequests.Add(1)
		writeError(w, http.StatusBadRequest, "No message provided")
		return
	}
	if len(message) > MaxMessageLength {
		s.stats.badRequests.Add(1)
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Message exceeds maximum length of %d", MaxMessageLength))
		return
	}
	if len(req.Context) > MaxContextTurns {
		s.stats.badRequests.Add(1)
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Too many context turns: maximum is %d", MaxContextTurns))
		return
	}
	if err := validateContext(req.Context); err != nil {
		s.stats.badRequests.Add(1)
		log.Debug("context validation failed", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid context format. Turns must have role user, assistant or system")
		return
	}

	s.mu.RLock()
	budget, analyze, provider := s.budget, s.analyze, s.provider
	s.mu.RUnlock()

	turns := req.Context
	if budget != nil {
		fit := budget.Fit(turns, message)
		if fit.WasTruncated {
			log.Info("context trimmed", "dropped", fit.Dropped, "tokens", fit.Tokens)
		}
		turns = fit.Turns
	}
	turns = append(append(make([]model.Turn, 0, len(turns)+1), turns...), model.Turn{Role: model.RoleUser, Content: message})

	start := time.Now()
	text, err := provider.Complete(ctx, turns)
	if err != nil {
		s.writeProviderError(ctx, w, err)
		return
	}
	s.stats.completions.Add(1)

	resp := ChatResponse{
		ID:      uuid.NewString(),
		Message: text,
		Status:  "success",
	}
	if analyze {
		resp.Metrics = analysis.Analyze(text).Raw()
	}

	log.Info("completion",
		"turns", len(turns),
		"reply_chars", len(text),
		"latency_ms", time.Since(start).Milliseconds(),
	)
	writeJSON(w, http.StatusOK, resp)
}

// writeProviderError maps provider failures onto the /chat error contract.
// Throttling passes through as 429 with the provider's text so clients can
// read the wait hint.
func (s *Server) writeProviderError(ctx context.Context, w http.ResponseWriter, err error) {
	log := telemetry.LoggerFromContext(ctx)

	var perr *ProviderError
	if errors.As(err, &perr) && perr.Status == http.StatusTooManyRequests {
		s.stats.rateLimited.Add(1)
		log.Warn("provider rate limited", "message", perr.Message)
		msg := perr.Message
		if msg == "" {
			msg = "rate limit exceeded"
		}
		writeError(w, http.StatusTooManyRequests, msg)
		return
	}

	s.stats.providerErrors.Add(1)
	if errors.Is(err, context.Canceled) {
		log.Info("client went away")
		return
	}
	// SECURITY: Log full details internally, return generic message to client
	log.Error("provider request failed", "error", err)
	writeError(w, http.StatusBadGateway, "Provider request failed. Please try again.")
}

// ============================================================================
// HEALTH AND STATS
// ============================================================================

// handleHealth handles GET /health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   Version,
	})
}

// handleStats handles GET /stats.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.stats.Snapshot())
}

// ============================================================================
// SERVER LIFECYCLE
// ============================================================================

// Start starts the HTTP server. It returns http.ErrServerClosed after Shutdown.
func (s *Server) Start() error {
	handler := s.Handler()

	s.mu.Lock()
	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	srv := s.server
	s.mu.Unlock()

	telemetry.Logger().Info("server starting", "addr", s.addr, "version", Version)
	return srv.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.RLock()
	srv := s.server
	s.mu.RUnlock()

	if srv == nil {
		return nil
	}

	stats := s.stats.Snapshot()
	telemetry.Logger().Info("server shutting down",
		"requests", stats.TotalRequests,
		"completions", stats.Completions,
	)
	return srv.Shutdown(ctx)
}

// ============================================================================
// HELPERS
// ============================================================================

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a {"error": message} response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
