// Package server hosts the single-page application shell: the host page with
// the result element, the login and logout redirects, and the API call.
package server

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/crypto/acme/autocert"

	"github.com/markb/spaauth/internal/config"
	"github.com/markb/spaauth/internal/graph"
	"github.com/markb/spaauth/internal/log"
	"github.com/markb/spaauth/internal/observability"
	"github.com/markb/spaauth/internal/redirect"
)

//go:embed templates/index.html
var templateFS embed.FS

const pageTitle = "SPA sign-in"

type Server struct {
	site       *config.Config
	router     *chi.Mux
	redirector *redirect.Redirector
	caller     *graph.Caller
	page       *template.Template
	telemetry  *observability.Telemetry

	allowedOrigins []string
	forwardCookies map[string]bool

	// HTTP server for graceful shutdown
	httpServer *http.Server

	// HTTPS fields
	httpsServer  *http.Server
	httpRedirect *http.Server
	autocertMgr  *autocert.Manager
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Site           *config.Config
	AllowedOrigins []string     // CORS origins for /api; empty allows any origin without credentials
	HTTPClient     *http.Client // Client for the API call; nil uses a plain http.Client
	Telemetry      *observability.Telemetry

	// ForwardCookies names the browser cookies passed to the API. Empty
	// forwards every cookie, which assumes the host page and the API share a
	// site.
	ForwardCookies []string
}

// New creates a Server and registers its routes.
func New(cfg ServerConfig) (*Server, error) {
	if cfg.Site == nil {
		return nil, fmt.Errorf("site configuration required")
	}

	var opts []graph.Option
	if cfg.HTTPClient != nil {
		opts = append(opts, graph.WithHTTPClient(cfg.HTTPClient))
	}
	// One caller serves every browser; each request carries its own cookies.
	opts = append(opts, graph.WithoutJar())
	caller, err := graph.NewCaller(cfg.Site, opts...)
	if err != nil {
		return nil, fmt.Errorf("create api caller: %w", err)
	}

	page, err := template.ParseFS(templateFS, "templates/index.html")
	if err != nil {
		return nil, fmt.Errorf("parse host page: %w", err)
	}

	tel := cfg.Telemetry
	if tel == nil {
		tel = &observability.Telemetry{}
	}

	var forward map[string]bool
	if len(cfg.ForwardCookies) > 0 {
		forward = make(map[string]bool, len(cfg.ForwardCookies))
		for _, name := range cfg.ForwardCookies {
			forward[name] = true
		}
	}

	s := &Server{
		site:           cfg.Site,
		router:         chi.NewRouter(),
		redirector:     redirect.New(cfg.Site),
		caller:         caller,
		page:           page,
		telemetry:      tel,
		allowedOrigins: cfg.AllowedOrigins,
		forwardCookies: forward,
	}
	s.setupRoutes()
	return s, nil
}

func (s *Server) setupRoutes() {
	s.router.Use(observability.HTTPMiddleware(s.telemetry, "spaauth"))
	s.router.Use(log.RequestLogger)
	s.router.Use(middleware.Recoverer)

	s.router.NotFound(s.handleNotFound)
	s.router.MethodNotAllowed(s.handleMethodNotAllowed)

	s.router.Get("/health", s.handleHealth)

	s.router.Get("/", s.handleIndex)
	s.router.Get("/login", s.handleLogin)
	s.router.Get("/logout", s.handleLogout)
	s.router.Get("/call", s.handleCall)

	// Script-driven hosts fetch the result cross-origin with credentials.
	s.router.Route("/api", func(r chi.Router) {
		r.Use(cors.Handler(s.corsOptions()))
		r.Get("/me", s.handleAPIMe)
	})
}

func (s *Server) corsOptions() cors.Options {
	opts := cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}
	// Credentialed requests need an explicit origin list.
	if len(s.allowedOrigins) > 0 {
		opts.AllowedOrigins = s.allowedOrigins
		opts.AllowCredentials = true
	}
	return opts
}

func (s *Server) Router() *chi.Mux {
	return s.router
}

func (s *Server) ListenAndServe(addr string) error {
	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.router,
	}
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server(s).
func (s *Server) Shutdown(ctx context.Context) error {
	var errs []error

	if s.httpsServer != nil {
		if err := s.httpsServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("HTTPS server: %w", err))
		}
	}

	if s.httpRedirect != nil {
		if err := s.httpRedirect.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("HTTP redirect server: %w", err))
		}
	}

	// non-TLS mode
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("HTTP server: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}
	return nil
}
