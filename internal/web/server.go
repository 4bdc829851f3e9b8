package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/nao1215/linkharvest/internal/metrics"
	"github.com/nao1215/linkharvest/internal/model"
)

//go:embed templates/*.html
var templateFS embed.FS

// DownloadName is the file name offered when downloading the new links.
const DownloadName = "output_links.txt"

const (
	// DefaultMaxLinksLimit bounds the link cap accepted from the form.
	DefaultMaxLinksLimit = 1000

	// shutdownTimeout bounds graceful shutdown.
	shutdownTimeout = 10 * time.Second
)

// Harvester runs a crawl for a seed. *pipeline.Harvester implements it.
type Harvester interface {
	Harvest(ctx context.Context, seed string, maxLinks int) (*model.CrawlResult, error)
}

// Server is the web front end.
type Server struct {
	harvester     Harvester
	outputPath    string
	collector     *metrics.Collector
	logger        *slog.Logger
	templates     *template.Template
	maxLinks      int
	maxLinksLimit int
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithCollector enables /metrics and request metrics.
func WithCollector(c *metrics.Collector) Option {
	return func(s *Server) {
		s.collector = c
	}
}

// WithDefaultMaxLinks sets the link cap prefilled in the form.
func WithDefaultMaxLinks(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxLinks = n
		}
	}
}

// WithMaxLinksLimit sets the largest link cap the form accepts.
func WithMaxLinksLimit(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxLinksLimit = n
		}
	}
}

// NewServer creates a Server. outputPath is the artifact the harvester
// writes and /download serves.
func NewServer(harvester Harvester, outputPath string, opts ...Option) (*Server, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	s := &Server{
		harvester:     harvester,
		outputPath:    outputPath,
		templates:     tmpl,
		maxLinks:      10,
		maxLinksLimit: DefaultMaxLinksLimit,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = slog.Default()
	}

	return s, nil
}

// Handler returns the HTTP handler with all routes and middleware.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(func(next http.Handler) http.Handler {
		return logRequests(s.logger, next)
	})
	if s.collector != nil {
		r.Use(s.collector.Middleware)
		r.Method(http.MethodGet, "/metrics", s.collector.Handler())
	}

	r.Get("/", s.handleIndex)
	r.Post("/", s.handleSubmit)
	r.Get("/result", s.handleResult)
	r.Get("/download", s.handleDownload)
	r.Get("/healthz", s.handleHealth)

	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("web server listening", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down web server: %w", err)
	}
	s.logger.Info("web server stopped")
	return nil
}
