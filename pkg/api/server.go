// Package api exposes channel selection over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/otherjamesbrown/penf-outreach/pkg/buildinfo"
	"github.com/otherjamesbrown/penf-outreach/pkg/decisions"
	"github.com/otherjamesbrown/penf-outreach/pkg/engine"
	oerrors "github.com/otherjamesbrown/penf-outreach/pkg/errors"
	"github.com/otherjamesbrown/penf-outreach/pkg/logging"
	"github.com/otherjamesbrown/penf-outreach/pkg/observability"
)

// Routes
const (
	RouteSelectChannel = "/api/ai-auto-messages/select-channel"
	RouteExplain       = "/api/ai-auto-messages/select-channel/explain"
	RouteHealth        = "/health"
	RouteMetrics       = "/metrics"
	RouteVersion       = "/version"
)

// Config holds HTTP server settings.
type Config struct {
	Address            string        `yaml:"address"`
	ReadTimeout        time.Duration `yaml:"read_timeout"`
	WriteTimeout       time.Duration `yaml:"write_timeout"`
	ShutdownTimeout    time.Duration `yaml:"shutdown_timeout"`
	RateLimitPerMinute int           `yaml:"rate_limit_per_minute"`
}

// DefaultConfig returns the HTTP defaults.
func DefaultConfig() Config {
	return Config{
		Address:            ":8080",
		ReadTimeout:        10 * time.Second,
		WriteTimeout:       10 * time.Second,
		ShutdownTimeout:    15 * time.Second,
		RateLimitPerMinute: 0,
	}
}

// HealthCheck reports whether one dependency is usable.
type HealthCheck func(ctx context.Context) error

// Deps are the collaborators of a Server. Engine is required; the rest have
// working defaults.
type Deps struct {
	Engine      *engine.Engine
	Recorder    decisions.Recorder
	Metrics     *observability.Metrics
	Gatherer    prometheus.Gatherer
	Tracer      *observability.Tracer
	Logger      logging.Logger
	Checks      map[string]HealthCheck
	ServiceName string
	Now         func() time.Time
}

// Server is the HTTP front end of the engine.
type Server struct {
	cfg     Config
	deps    Deps
	router  *gin.Engine
	limiter *RateLimiter
}

// NewServer builds the router. It does not listen until Run.
func NewServer(cfg Config, deps Deps) (*Server, error) {
	if deps.Engine == nil {
		return nil, errors.New("api: engine is required")
	}
	if deps.Logger == nil {
		deps.Logger = logging.NewNopLogger()
	}
	if deps.Metrics == nil {
		reg := prometheus.NewRegistry()
		deps.Metrics = observability.NewMetrics(reg)
		if deps.Gatherer == nil {
			deps.Gatherer = reg
		}
	}
	if deps.Gatherer == nil {
		deps.Gatherer = prometheus.DefaultGatherer
	}
	if deps.Tracer == nil {
		deps.Tracer = observability.NewTracer()
	}
	if deps.ServiceName == "" {
		deps.ServiceName = "outreach"
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	deps.Logger = deps.Logger.With(logging.F("component", "http"))

	s := &Server{cfg: cfg, deps: deps}
	s.router = s.routes()
	return s, nil
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(recovery(s.deps.Logger), requestID(), accessLog(s.deps.Logger), httpMetrics(s.deps.Metrics))

	r.NoMethod(func(c *gin.Context) { abortWithCode(c, oerrors.CodeMethodNotAllowed) })
	r.NoRoute(func(c *gin.Context) {
		c.AbortWithStatusJSON(http.StatusNotFound, ErrorResponse{Error: "Not found"})
	})

	r.GET(RouteHealth, s.handleHealth)
	r.GET(RouteMetrics, gin.WrapH(promhttp.HandlerFor(s.deps.Gatherer, promhttp.HandlerOpts{})))
	r.GET(RouteVersion, buildinfo.Handler(s.deps.ServiceName))

	api := r.Group("/api/ai-auto-messages")
	if s.cfg.RateLimitPerMinute > 0 {
		s.limiter = NewRateLimiter(s.cfg.RateLimitPerMinute, 0)
		api.Use(rateLimitByIP(s.limiter, s.deps.Metrics.RateLimitedTotal.Inc))
	}
	api.POST("/select-channel", s.handleSelectChannel)
	api.POST("/select-channel/explain", s.handleExplain)

	return r
}

// Handler returns the router for embedding or tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Address,
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.deps.Logger.Info("HTTP server listening", logging.F("address", s.cfg.Address))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		s.Close()
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s.deps.Logger.Info("HTTP server shutting down")
	err := srv.Shutdown(shutdownCtx)
	s.Close()
	if err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return <-errCh
}

// Close releases background resources held by the router.
func (s *Server) Close() {
	if s.limiter != nil {
		s.limiter.Stop()
	}
}
