// Package api serves the layout engine over HTTP: frame snapshots and
// streams for renderers, pointer input, graph replacement, GraphQL, health
// probes and Prometheus metrics.
package api

import (
	"net"
	"net/http"
	"runtime"
	"time"

	"github.com/dd0wney/cluso-threatgraph/pkg/api/middleware"
	"github.com/dd0wney/cluso-threatgraph/pkg/engine"
	"github.com/dd0wney/cluso-threatgraph/pkg/graphql"
	"github.com/dd0wney/cluso-threatgraph/pkg/health"
	"github.com/dd0wney/cluso-threatgraph/pkg/logging"
	"github.com/dd0wney/cluso-threatgraph/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Routes registered by the server, also used as metric path labels
const (
	RouteHealth        = "/health"
	RouteLive          = "/health/live"
	RouteReady         = "/health/ready"
	RouteMetrics       = "/metrics"
	RouteFrame         = "/frame"
	RouteStream        = "/stream"
	RouteGraph         = "/graph"
	RouteInput         = "/input"
	RouteSelection     = "/selection"
	RouteViewportFit   = "/viewport/fit"
	RouteViewportReset = "/viewport/reset"
	RouteGraphQL       = "/graphql"
)

var routes = []string{
	RouteHealth, RouteLive, RouteReady, RouteMetrics, RouteFrame, RouteStream,
	RouteGraph, RouteInput, RouteSelection, RouteViewportFit, RouteViewportReset, RouteGraphQL,
}

// maxBodyBytes caps request bodies; a full graph replacement is the largest
const maxBodyBytes = 8 << 20

// DefaultHeartbeatInterval is how often idle frame streams send a keepalive
const DefaultHeartbeatInterval = 15 * time.Second

// Config configures the HTTP surface
type Config struct {
	// RateLimit is pointer events per second per client; zero disables limiting
	RateLimit         float64
	RateBurst         int
	CORSOrigins       []string
	TrustedProxies    []string
	GraphQLMaxDepth   int
	HeartbeatInterval time.Duration
}

// Option configures a Server
type Option func(*Server)

// WithLogger sets the server logger
func WithLogger(logger logging.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithHealthChecker uses hc instead of a fresh checker, so callers can
// register their own checks
func WithHealthChecker(hc *health.HealthChecker) Option {
	return func(s *Server) {
		s.healthChecker = hc
	}
}

// Server represents the HTTP API server
type Server struct {
	runner          *engine.Runner
	config          Config
	logger          logging.Logger
	metricsRegistry *metrics.Registry
	healthChecker   *health.HealthChecker
	graphqlHandler  *graphql.GraphQLHandler
	rateLimiter     *middleware.RateLimiter
	trustedProxies  []*net.IPNet
	handler         http.Handler
	startTime       time.Time
}

// NewServer wires the API to a runner. The runner's metrics registry backs
// both /metrics and the HTTP middleware.
func NewServer(runner *engine.Runner, config Config, opts ...Option) (*Server, error) {
	s := &Server{
		runner:          runner,
		config:          config,
		logger:          logging.DefaultLogger(),
		metricsRegistry: runner.Metrics(),
		startTime:       time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(logging.Component("api"))
	if s.config.HeartbeatInterval <= 0 {
		s.config.HeartbeatInterval = DefaultHeartbeatInterval
	}

	trusted, err := middleware.ParseTrustedProxies(config.TrustedProxies)
	if err != nil {
		return nil, err
	}
	s.trustedProxies = trusted

	schema, err := graphql.GenerateSchema(runner)
	if err != nil {
		return nil, err
	}
	s.graphqlHandler = graphql.NewGraphQLHandler(schema, config.GraphQLMaxDepth, s.logger)

	if config.RateLimit > 0 {
		rl := middleware.DefaultRateLimitConfig()
		rl.RequestsPerSecond = config.RateLimit
		if config.RateBurst > 0 {
			rl.BurstSize = config.RateBurst
		}
		s.rateLimiter = middleware.NewRateLimiter(rl, s.logger)
	}

	if s.healthChecker == nil {
		s.healthChecker = health.NewHealthChecker()
	}
	s.registerHealthChecks()

	s.handler = s.routes()
	return s, nil
}

func (s *Server) registerHealthChecks() {
	s.healthChecker.RegisterLivenessCheck("api", func() health.Check {
		return health.SimpleCheck("api")
	})
	solver := health.SolverCheck(s.runner.LastTick, s.runner.Interval())
	s.healthChecker.RegisterLivenessCheck("solver", solver)
	s.healthChecker.RegisterReadinessCheck("solver", solver)
	s.healthChecker.RegisterCheck("solver", solver)
	s.healthChecker.RegisterCheck("graph", health.GraphCheck(func() (bool, int, int) {
		f := s.runner.Latest()
		return s.runner.Loaded(), len(f.Nodes), len(f.Edges)
	}))
	s.healthChecker.RegisterCheck("memory", health.MemoryCheck(func() (uint64, uint64) {
		var m runtime.MemStats
		runtime.ReadMemStats(&m)
		return m.Alloc, m.Sys
	}))
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET "+RouteHealth, s.healthChecker.HTTPHandler())
	mux.HandleFunc("GET "+RouteLive, s.healthChecker.LivenessHandler())
	mux.HandleFunc("GET "+RouteReady, s.healthChecker.ReadinessHandler())
	if s.metricsRegistry != nil {
		mux.Handle("GET "+RouteMetrics, promhttp.HandlerFor(s.metricsRegistry.GetPrometheusRegistry(), promhttp.HandlerOpts{}))
	}

	mux.HandleFunc("GET "+RouteFrame, s.handleFrame)
	mux.HandleFunc("GET "+RouteStream, s.handleStream)

	mux.HandleFunc("GET "+RouteGraph, s.handleGetGraph)
	mux.HandleFunc("PUT "+RouteGraph, s.handlePutGraph)

	input := middleware.RateLimit(s.rateLimiter, middleware.ClientIP(s.trustedProxies), s.onRateLimited)
	mux.Handle("POST "+RouteInput, input(http.HandlerFunc(s.handleInput)))

	mux.HandleFunc("GET "+RouteSelection, s.handleGetSelection)
	mux.HandleFunc("PUT "+RouteSelection, s.handlePutSelection)
	mux.HandleFunc("DELETE "+RouteSelection, s.handleDeleteSelection)

	mux.HandleFunc("POST "+RouteViewportFit, s.handleFitView)
	mux.HandleFunc("POST "+RouteViewportReset, s.handleResetView)

	mux.Handle(RouteGraphQL, s.graphqlHandler)

	var handler http.Handler = mux
	handler = middleware.PanicRecovery(s.logger)(handler)
	if s.metricsRegistry != nil {
		handler = middleware.Metrics(s.metricsRegistry, routes...)(handler)
	}
	handler = middleware.Logging(s.logger)(handler)
	handler = middleware.CORS(middleware.DefaultCORSConfig(s.config.CORSOrigins...))(handler)
	handler = middleware.RequestID()(handler)
	return handler
}

func (s *Server) onRateLimited(r *http.Request, clientID string) {
	if s.metricsRegistry != nil {
		s.metricsRegistry.RecordRateLimited(r.URL.Path)
	}
	s.logger.Debug("rate limit exceeded",
		logging.String("client", clientID),
		logging.Path(r.URL.Path))
}

// Handler returns the fully wrapped HTTP handler
func (s *Server) Handler() http.Handler {
	return s.handler
}

// HealthChecker returns the checker behind the /health endpoints
func (s *Server) HealthChecker() *health.HealthChecker {
	return s.healthChecker
}

// Close releases background resources. The runner is not stopped.
func (s *Server) Close() {
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}
}

// UpdateSystemMetrics samples uptime and runtime statistics every interval
// until stop is closed
func (s *Server) UpdateSystemMetrics(interval time.Duration, stop <-chan struct{}) {
	if s.metricsRegistry == nil {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.metricsRegistry.UpdateSystemMetrics(s.startTime)
	for {
		select {
		case <-ticker.C:
			s.metricsRegistry.UpdateSystemMetrics(s.startTime)
		case <-stop:
			return
		}
	}
}
