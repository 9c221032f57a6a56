package dev

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/filemux/filemux/internal/config"
	"github.com/filemux/filemux/internal/errors"
	"github.com/filemux/filemux/pkg/gateway"
	"github.com/filemux/filemux/pkg/middleware"
	"github.com/filemux/filemux/pkg/router"
)

// Internal endpoints served next to the gateway.
const (
	RoutesPath = "/_filemux/routes"
	EventsPath = "/_filemux/events"
)

// shutdownTimeout bounds graceful shutdown of the HTTP server.
const shutdownTimeout = 5 * time.Second

// ServerOptions configures the server.
type ServerOptions struct {
	// Config is the project configuration.
	Config *config.Config

	// Invoker runs resolved requests. Default: gateway.Describe.
	Invoker gateway.Invoker

	// Registry collects metrics when metrics are enabled. Default: a new
	// registry with the Go and process collectors.
	Registry *prometheus.Registry

	// Logger is the base logger. Default: slog.Default().
	Logger *slog.Logger
}

// Server serves a route tree over HTTP. With watching enabled, file changes
// under the API directory are applied while it runs and broadcast to
// clients of EventsPath.
type Server struct {
	config   *config.Config
	options  ServerOptions
	routes   *router.Sync
	watcher  *Watcher
	hub      *EventHub
	registry *prometheus.Registry
	logger   *slog.Logger

	handlerOnce sync.Once
	handler     http.Handler

	mu         sync.Mutex
	httpServer *http.Server
	running    bool
}

// NewServer creates a server for the project described by opts.Config.
func NewServer(opts ServerOptions) (*Server, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.New()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		config:  cfg,
		options: opts,
		routes:  router.NewSync(router.WithRoot(cfg.RouterRoot())),
		hub:     NewEventHub(logger),
		logger:  logger.With("component", "server"),
	}

	if cfg.Metrics.Enabled {
		s.registry = opts.Registry
		if s.registry == nil {
			s.registry = prometheus.NewRegistry()
			s.registry.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)
		}
	}

	if cfg.WatchEnabled() {
		var metrics *Metrics
		if s.registry != nil {
			metrics = NewMetrics(s.registry, cfg.Metrics.Namespace)
		}
		w, err := NewWatcher(s.routes, WatcherConfig{
			Root:     cfg.RouterRoot(),
			Dir:      cfg.APIPath(),
			Ignore:   append(append([]string{}, DefaultIgnore...), cfg.Dev.Ignore...),
			Debounce: cfg.DebounceDuration(),
			Logger:   logger,
			Metrics:  metrics,
		})
		if err != nil {
			return nil, err
		}
		w.OnEvent(s.hub.Publish)
		s.watcher = w
	}

	return s, nil
}

// Routes returns the live route table.
func (s *Server) Routes() *router.Sync {
	return s.routes
}

// Load registers every file under the API directory and reports routes that
// can never be served.
func (s *Server) Load() ([]string, error) {
	if err := s.config.ValidateAPIDir(); err != nil {
		return nil, err
	}

	var files []string
	var err error
	if s.watcher != nil {
		files, err = s.watcher.Scan()
	} else {
		files, err = register(s.config, s.routes)
	}
	if err != nil {
		return nil, err
	}

	validator := router.NewValidator(files)
	if validator.Validate() != nil {
		for _, issue := range validator.Issues() {
			s.logger.Warn("unreachable route", "type", issue.Type, "pattern", issue.Pattern, "files", issue.Files, "detail", issue.Message)
		}
	}
	s.logger.Info("routes loaded", "files", len(files), "routes", len(s.routes.Routes()))
	return files, nil
}

// Handler returns the HTTP handler: internal endpoints plus the gateway for
// every other path.
func (s *Server) Handler() http.Handler {
	s.handlerOnce.Do(func() {
		s.handler = s.buildHandler()
	})
	return s.handler
}

func (s *Server) buildHandler() http.Handler {
	cfg := s.config
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)

	if s.registry != nil {
		r.Method(http.MethodGet, cfg.Metrics.Path, promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	}
	r.Get(RoutesPath, s.serveRoutes)
	if s.watcher != nil {
		r.Handle(EventsPath, s.hub)
	}

	var h http.Handler = gateway.New(s.routes, gateway.Options{
		VersionHeader:     cfg.Server.VersionHeader,
		RequestIDHeader:   cfg.Server.RequestIDHeader,
		RedirectCanonical: cfg.RedirectEnabled(),
		Invoker:           s.options.Invoker,
		Logger:            s.logger,
	})
	if cfg.Tracing.Enabled {
		h = middleware.OpenTelemetry(middleware.WithTracerName(cfg.Tracing.TracerName))(h)
	}
	if s.registry != nil {
		h = middleware.Prometheus(
			middleware.WithRegistry(s.registry),
			middleware.WithNamespace(cfg.Metrics.Namespace),
		)(h)
	}
	r.Handle("/*", h)

	return r
}

func (s *Server) serveRoutes(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s.routes.Routes()); err != nil {
		s.logger.Error("encoding routes", "error", err)
	}
}

// Start serves until ctx is canceled, then shuts down gracefully. Load
// must be called first.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Address())
	if err != nil {
		return errors.New(errors.CodeConfigPort).
			WithDetailf("cannot listen on %s", s.config.Address()).
			WithSuggestion("pick another port with --port or server.port").
			Wrap(err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Start on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return stderrors.New("server already running")
	}
	s.running = true
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	srv := s.httpServer
	s.mu.Unlock()

	if s.watcher != nil {
		go func() {
			if err := s.watcher.Start(ctx); err != nil && !stderrors.Is(err, context.Canceled) {
				s.logger.Error("watcher stopped", "error", err)
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	s.logger.Info("listening", "addr", ln.Addr().String(), "watch", s.watcher != nil)

	select {
	case err := <-errCh:
		s.stop()
		if stderrors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.hub.Close()
	err := srv.Shutdown(shutdownCtx)
	s.stop()
	if err != nil {
		return err
	}
	if err := <-errCh; err != nil && !stderrors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) stop() {
	if s.watcher != nil {
		if err := s.watcher.Close(); err != nil {
			s.logger.Warn("closing watcher", "error", err)
		}
	}
	s.hub.Close()
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

// LoadRoutes walks the API directory of cfg into a new route table without
// watching it.
func LoadRoutes(cfg *config.Config) (*router.Sync, []string, error) {
	if err := cfg.ValidateAPIDir(); err != nil {
		return nil, nil, err
	}
	routes := router.NewSync(router.WithRoot(cfg.RouterRoot()))
	files, err := register(cfg, routes)
	if err != nil {
		return nil, nil, err
	}
	return routes, files, nil
}

// register adds every file under the API directory to reg and returns the
// recognized ones.
func register(cfg *config.Config, reg router.Registrar) ([]string, error) {
	ignore := NewIgnorer(append(append([]string{}, DefaultIgnore...), cfg.Dev.Ignore...))
	return router.NewScanner(cfg.RouterRoot()).
		WithSkip(ignore.Skip).
		ScanInto(reg, cfg.APIPath())
}
