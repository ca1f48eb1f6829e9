package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/spektr-org/kpideck/engine"
	"github.com/spektr-org/kpideck/internal/errors"
	"github.com/spektr-org/kpideck/render"
	"github.com/spektr-org/kpideck/schema"
)

// ============================================================================
// HTTP SERVER — read-only JSON/PDF views over the dashboard service
// ============================================================================
//   GET /healthz
//   GET /api/clients                    registry
//   GET /api/clients/{id}               full bundle
//   GET /api/clients/{id}/config        validated config only
//   GET /api/clients/{id}/kpis          KPI table
//   GET /api/clients/{id}/report.pdf    rendered report
// ============================================================================

// Backend is what the server reads from. dashboard.Service implements it.
type Backend interface {
	Load(ctx context.Context, clientID string) (*engine.Bundle, error)
	Resolve(ctx context.Context, clientID string) (*schema.ClientConfig, error)
	Clients(ctx context.Context) ([]schema.ClientSummary, error)
}

// Server routes HTTP requests to a Backend.
type Server struct {
	router   *chi.Mux
	backend  Backend
	logger   *zap.Logger
	currency string
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request and error logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithCurrencySymbol sets the symbol used in PDF reports when a client
// config does not name one.
func WithCurrencySymbol(symbol string) Option {
	return func(s *Server) {
		s.currency = symbol
	}
}

// New creates a Server.
func New(b Backend, opts ...Option) *Server {
	s := &Server{
		router:   chi.NewRouter(),
		backend:  b,
		logger:   zap.NewNop(),
		currency: "$",
	}
	for _, opt := range opts {
		opt(s)
	}

	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Recoverer)
	s.router.Use(s.requestLogger)
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/api/clients", func(r chi.Router) {
		r.Get("/", s.handleClients)
		r.Get("/{id}", s.handleBundle)
		r.Get("/{id}/config", s.handleConfig)
		r.Get("/{id}/kpis", s.handleKPITable)
		r.Get("/{id}/report.pdf", s.handleReport)
	})
}

// requestLogger logs one line per request through zap.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}

// ── Handlers ──────────────────────────────────────────────────────────────────

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleClients(w http.ResponseWriter, r *http.Request) {
	clients, err := s.backend.Clients(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, clients)
}

func (s *Server) handleBundle(w http.ResponseWriter, r *http.Request) {
	bundle, err := s.backend.Load(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bundle)
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.backend.Resolve(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (s *Server) handleKPITable(w http.ResponseWriter, r *http.Request) {
	bundle, err := s.backend.Load(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, engine.BuildKPITable(bundle.Config.Name, bundle.KPIs))
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	bundle, err := s.backend.Load(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	// Render fully before writing so a failure can still produce a JSON error.
	var buf bytes.Buffer
	if err := render.WritePDF(&buf, bundle, s.currency); err != nil {
		s.writeError(w, errors.Wrap(err, "failed to render report"))
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `inline; filename="`+bundle.Config.ClientID+`.pdf"`)
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// ── Responses ─────────────────────────────────────────────────────────────────

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// StatusFor maps a pipeline error code to an HTTP status.
func StatusFor(err error) int {
	switch errors.GetCode(err) {
	case errors.CodeConfigNotFound:
		return http.StatusNotFound
	case errors.CodeConfigInvalid, errors.CodeUnknownFormula:
		return http.StatusUnprocessableEntity
	case errors.CodeDataSourceFetchFailed, errors.CodeConfigFetchFailed:
		return http.StatusBadGateway
	case errors.CodeLoadSuperseded:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", zap.String("code", errors.GetCode(err)), zap.Error(err))
	}
	writeJSON(w, status, errorBody{
		Code:    errors.GetCode(err),
		Message: err.Error(),
		Field:   errors.GetField(err),
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
