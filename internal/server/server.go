// Package server exposes csvscope over HTTP: an HTML page per upload, SVG charts,
// CSV downloads and a small JSON API.
package server

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/KaramelBytes/csvscope/internal/config"
	"github.com/KaramelBytes/csvscope/internal/metrics"
	"github.com/KaramelBytes/csvscope/internal/session"
)

//go:embed templates/*.html
var templateFS embed.FS

// Server wires the session store, metrics and handlers behind a chi router.
type Server struct {
	cfg     *config.Global
	store   *session.Store
	metrics *metrics.Metrics
	logger  *slog.Logger
	pages   *template.Template
	router  chi.Router
}

// New builds a server from cfg. logger may be nil.
func New(cfg *config.Global, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	pages, err := template.New("").Funcs(templateFuncs).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	store := session.NewStore(cfg.SessionTTL, cfg.MaxSessions, logger)
	s := &Server{
		cfg:     cfg,
		store:   store,
		metrics: metrics.New(store.Len),
		logger:  logger.With(slog.String("component", "http")),
		pages:   pages,
	}
	s.router = s.routes()
	return s, nil
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(middleware.RealIP)
	r.Use(accessLog(s.logger, s.metrics))
	r.Use(recoverer(s.logger))

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", s.metrics.Handler())

	r.Group(func(r chi.Router) {
		r.Use(newRateLimiter(s.cfg.RateLimitRPS, s.cfg.RateLimitBurst, s.logger).Handler)

		r.Get("/", s.handleIndex)
		r.Post("/upload", s.handleUpload)
		r.Route("/s/{id}", func(r chi.Router) {
			r.Get("/", s.handlePage)
			r.Get("/charts/{kind}.svg", s.handleChart)
			r.Get("/download", s.handleDownload)
		})
		r.Route("/api/sessions", func(r chi.Router) {
			r.Post("/", s.handleAPIUpload)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/summary", s.handleSummary)
				r.Get("/rows", s.handleRows)
				r.Delete("/", s.handleDelete)
			})
		})
	})
	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully. The session
// janitor runs for the lifetime of the server.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.store.Run(ctx, janitorInterval(s.cfg.SessionTTL))
		return nil
	})
	g.Go(func() error {
		s.logger.Info("listening", slog.String("addr", s.cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		s.logger.Info("shutting down", slog.Duration("timeout", s.cfg.ShutdownTimeout))
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})
	return g.Wait()
}

// janitorInterval sweeps a few times per TTL, bounded to [1s, 1m].
func janitorInterval(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return time.Minute
	}
	return min(max(ttl/4, time.Second), time.Minute)
}
