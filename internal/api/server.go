// Package api provides the HTTP API server and handlers for Quillpost.
package api

import (
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/quillpost/quillpost-server/internal/auth"
)

// Config holds transport settings for the server.
type Config struct {
	// PublicRoot is served under /uploads when uploads go to the local filesystem.
	PublicRoot string
	// SecureCookies marks the session cookie Secure (production).
	SecureCookies bool
	// CORSOrigins lists browser origins allowed to call the API with credentials.
	CORSOrigins []string
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	services *Services
	cfg      Config
	router   *chi.Mux
	api      huma.API
	logger   *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(services *Services, cfg Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	s := &Server{
		services: services,
		cfg:      cfg,
		router:   chi.NewRouter(),
		logger:   logger,
	}

	s.setupMiddleware()

	humaConfig := huma.DefaultConfig("Quillpost API", "1.0.0")
	humaConfig.Info.Description = "Single-operator article publishing backend"
	humaConfig.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"session": {
			Type: "apiKey",
			In:   "cookie",
			Name: auth.SessionCookieName,
		},
	}
	s.api = humachi.New(s.router, humaConfig)
	RegisterErrorHandler()

	s.registerRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// setupMiddleware configures middleware stack.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger(s.logger))
	s.router.Use(middleware.Recoverer)

	if len(s.cfg.CORSOrigins) > 0 {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.cfg.CORSOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	s.router.Use(sessionMiddleware(auth.NewGate(s.services.Auth)))
}

// registerRoutes wires every endpoint.
func (s *Server) registerRoutes() {
	s.registerHealthRoutes()
	s.registerAuthRoutes()
	s.registerArticleRoutes()
	s.registerAdminRoutes()
	s.registerSearchRoutes()

	// Multipart upload uses chi directly; huma does not parse raw file parts.
	s.router.Post("/api/admin/upload", s.handleUpload)

	if root := strings.TrimSpace(s.cfg.PublicRoot); root != "" {
		fs := http.StripPrefix("/uploads/", http.FileServer(http.Dir(filepath.Join(root, "uploads"))))
		s.router.Handle("/uploads/*", noDirListing(fs))
	}
}

// noDirListing answers 404 for directory paths instead of an index page.
func noDirListing(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}
