// Package httpserver provides the HTTP REST API for the deep research
// service.
package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/Amn-7/open-deep-research/internal/database"
	"github.com/Amn-7/open-deep-research/internal/events"
	"github.com/Amn-7/open-deep-research/internal/observability"
	"github.com/Amn-7/open-deep-research/internal/repository"
	"github.com/Amn-7/open-deep-research/internal/storage"
	"github.com/Amn-7/open-deep-research/internal/temporal"
)

// newValidator builds a validator that reports fields by their JSON names
// so validation messages line up with what the client actually sent.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// WorkflowClient defines the workflow operations the HTTP server uses.
type WorkflowClient interface {
	StartResearchWorkflow(ctx context.Context, input temporal.ResearchWorkflowInput, workflowFunc interface{}) (workflowID, runID string, err error)
	StartDocumentWorkflow(ctx context.Context, input temporal.DocumentWorkflowInput, workflowFunc interface{}) (workflowID, runID string, err error)
	Health(ctx context.Context) error
}

// Config holds HTTP server configuration.
type Config struct {
	Address         string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// MaxUploadBytes caps a single document upload.
	MaxUploadBytes int64

	// WaitWindow and RequeueDelay parameterize the research workflow's
	// document-readiness gate.
	WaitWindow   time.Duration
	RequeueDelay time.Duration
}

// Server is the HTTP REST API server.
type Server struct {
	cfg              Config
	router           chi.Router
	httpServer       *http.Server
	workflowClient   WorkflowClient
	researchWorkflow interface{}
	documentWorkflow interface{}
	sessions         repository.SessionRepository
	documents        repository.DocumentRepository
	results          repository.ResultRepository
	store            *storage.FileStore
	db               *database.DB
	publisher        events.Publisher
	metrics          *observability.Metrics
	validate         *validator.Validate
	logger           zerolog.Logger
}

// NewServer creates a new HTTP server with all dependencies. The workflow
// function references (researchWorkflow, documentWorkflow) are passed
// through to the workflow client when a session or document upload starts
// an execution. publisher and metrics may be nil.
func NewServer(
	cfg Config,
	workflowClient WorkflowClient,
	researchWorkflow interface{},
	documentWorkflow interface{},
	sessions repository.SessionRepository,
	documents repository.DocumentRepository,
	results repository.ResultRepository,
	store *storage.FileStore,
	db *database.DB,
	publisher events.Publisher,
	metrics *observability.Metrics,
	logger zerolog.Logger,
) *Server {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	s := &Server{
		cfg:              cfg,
		workflowClient:   workflowClient,
		researchWorkflow: researchWorkflow,
		documentWorkflow: documentWorkflow,
		sessions:         sessions,
		documents:        documents,
		results:          results,
		store:            store,
		db:               db,
		publisher:        publisher,
		metrics:          metrics,
		validate:         newValidator(),
		logger:           logger.With().Str("component", "http-server").Logger(),
	}

	s.router = s.buildRouter()

	s.httpServer = &http.Server{
		Addr:         cfg.Address,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s
}

// buildRouter creates the chi router with all middleware and routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(correlationIDMiddleware)

	// Health endpoints (no identity required)
	r.Get("/healthz", s.healthHandler)
	r.Get("/readyz", s.readinessHandler)

	r.Route("/api/v1/research", func(r chi.Router) {
		r.Use(userIDMiddleware)

		r.Post("/", s.startResearch)
		r.Get("/", s.listResearch)
		r.Get("/{sessionID}", s.getResearch)
		r.Post("/{sessionID}/documents", s.uploadDocument)
		r.Post("/{sessionID}/continue", s.continueResearch)
	})

	return r
}

// Router exposes the configured router, used by tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// requestLogger derives a logger tagged with the request's correlation and
// user IDs, so handler log lines can be tied back to one request.
func (s *Server) requestLogger(ctx context.Context) *zerolog.Logger {
	builder := s.logger.With()
	if id := observability.RequestIDFromContext(ctx); id != "" {
		builder = builder.Str("request_id", id)
	}
	if id := observability.UserIDFromContext(ctx); id != "" {
		builder = builder.Str("user_id", id)
	}
	logger := builder.Logger()
	return &logger
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info().Str("address", s.httpServer.Addr).Msg("HTTP server starting")
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen on HTTP address: %w", err)
	}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// healthHandler returns basic liveness status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// readinessHandler returns readiness status including Temporal connectivity.
func (s *Server) readinessHandler(w http.ResponseWriter, r *http.Request) {
	health := s.db.Health(r.Context())
	if health.Status != "healthy" {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status":   "not_ready",
			"database": health.Status,
			"error":    health.Error,
		})
		return
	}
	if err := s.workflowClient.Health(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status":   "not_ready",
			"database": "healthy",
			"temporal": "unreachable",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "ready",
		"database": "healthy",
		"temporal": "healthy",
	})
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Best-effort; headers already sent.
		_ = err
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{
		"error": message,
	})
}
