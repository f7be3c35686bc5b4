package api

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/log"

	"github.com/fleet-console/fleet-console/internal/config"
	"github.com/fleet-console/fleet-console/internal/diagnostics"
	"github.com/fleet-console/fleet-console/internal/storage"
)

// Advisor suggests device configuration for a goal.
type Advisor interface {
	SmartConfiguration(ctx context.Context, deviceType, goal string) (map[string]interface{}, error)
}

// RESTServer represents the REST API server
type RESTServer struct {
	config  *config.Config
	store   *storage.Store
	runner  *diagnostics.Runner
	advisor Advisor
	now     func() time.Time
	router  chi.Router
	server  *http.Server
}

// NewRESTServer creates a new REST API server
func NewRESTServer(cfg *config.Config, store *storage.Store, runner *diagnostics.Runner, advisor Advisor) *RESTServer {
	s := &RESTServer{
		config:  cfg,
		store:   store,
		runner:  runner,
		advisor: advisor,
		now:     time.Now,
		router:  chi.NewRouter(),
	}

	s.setupRoutes()

	s.server = &http.Server{
		Addr:         cfg.API.Addr(),
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.API.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupRoutes configures all routes
func (s *RESTServer) setupRoutes() {
	// Middleware
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	if s.config.API.RequestTimeout > 0 {
		s.router.Use(middleware.Timeout(s.config.API.RequestTimeout))
	}

	// CORS
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.config.API.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// API routes
	s.router.Route("/api/v1", func(r chi.Router) {
		s.setupAPIRoutes(r)
	})
}

// Handler returns the API router, wrapped with the web bundle when the static
// directory exists.
func (s *RESTServer) Handler() http.Handler {
	webDir := s.config.Web.StaticDir
	if webDir == "" {
		return s.router
	}
	if _, err := os.Stat(webDir); os.IsNotExist(err) {
		log.Warn().Str("dir", webDir).Msg("Web directory not found, Web UI will not be available")
		return s.router
	}

	log.Info().Str("dir", webDir).Msg("Serving Web UI from directory")
	files := http.FileServer(http.Dir(webDir))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") {
			s.router.ServeHTTP(w, r)
			return
		}

		// client-side routes have no extension and fall back to index.html
		if r.URL.Path == "/" || !strings.Contains(filepath.Base(r.URL.Path), ".") {
			http.ServeFile(w, r, filepath.Join(webDir, "index.html"))
			return
		}

		files.ServeHTTP(w, r)
	})
}

// ListenAndServe starts the server
func (s *RESTServer) ListenAndServe() error {
	log.Info().Str("addr", s.server.Addr).Msg("Starting REST API server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *RESTServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
