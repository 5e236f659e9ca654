// Package server provides the PXE boot HTTP API.
package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/jobcespedes/ansible.hpilo/internal/config"
	"github.com/jobcespedes/ansible.hpilo/pkg/types"
)

// Applier runs the boot-mode operation for one validated target.
type Applier interface {
	Apply(ctx context.Context, spec types.TargetSpec, dryRun bool) (types.Result, error)
}

// Server wraps HTTP routes and dependencies.
type Server struct {
	applier     Applier
	cfg         config.Config
	logger      zerolog.Logger
	version     string
	commit      string
	buildDate   string
	openapiSpec []byte
	router      chi.Router
}

// Option configures server construction.
type Option func(*Server)

// WithOpenAPISpec sets the embedded OpenAPI bytes.
func WithOpenAPISpec(spec []byte) Option {
	return func(s *Server) {
		s.openapiSpec = spec
	}
}

// New constructs a PXE boot API server.
func New(applier Applier, cfg config.Config, logger zerolog.Logger, version, commit, buildDate string, opts ...Option) *Server {
	s := &Server{
		applier:   applier,
		cfg:       cfg,
		logger:    logger.With().Str("component", "server").Logger(),
		version:   version,
		commit:    commit,
		buildDate: buildDate,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.buildRouter()
	return s
}

// Router returns the configured router.
func (s *Server) Router() chi.Router {
	return s.router
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	// The device chain can legitimately spend the cooldown plus several
	// round-trips inside one request.
	r.Use(middleware.Timeout(s.cfg.Cooldown + 4*s.cfg.DeviceTimeout))

	r.Group(func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/version", s.handleVersion)
		if len(s.openapiSpec) > 0 {
			r.Get("/api/openapi.yaml", s.handleOpenAPI)
		}
	})

	r.Group(func(r chi.Router) {
		r.Use(s.bearerAuth)
		r.Route("/boot/v1", func(r chi.Router) {
			r.Post("/pxe-boot", s.handlePXEBoot)
		})
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"version":   s.version,
		"commit":    s.commit,
		"buildDate": s.buildDate,
	})
}

func (s *Server) handleOpenAPI(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(s.openapiSpec)
}

// requestLogger emits one structured line per request.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.logger.Info().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("request completed")
	})
}

// bearerAuth validates the static API token. DevMode bypasses authentication
// for local development.
func (s *Server) bearerAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.DevMode {
			next.ServeHTTP(w, r)
			return
		}

		token := strings.TrimSpace(s.cfg.APIToken)
		if token == "" {
			respondProblem(w, http.StatusUnauthorized, "API token is not configured; set PXEBOOT_API_TOKEN or enable PXEBOOT_DEV_MODE")
			return
		}

		presented := parseBearerToken(r.Header.Get("Authorization"))
		if presented == "" {
			respondProblem(w, http.StatusUnauthorized, "missing or malformed Authorization bearer token")
			return
		}
		if presented != token {
			respondProblem(w, http.StatusUnauthorized, "invalid bearer token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func parseBearerToken(header string) string {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
