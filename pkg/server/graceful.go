// Package server runs the HTTP surface with signal-driven graceful shutdown
// and SIGHUP reloads.
package server

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dd0wney/cluso-threatgraph/pkg/logging"
)

// DefaultShutdownTimeout bounds how long in-flight requests may drain
const DefaultShutdownTimeout = 10 * time.Second

// ReloadFunc reloads external input, such as the graph file, on SIGHUP
type ReloadFunc func() error

// Option configures a GracefulServer
type Option func(*GracefulServer)

// WithLogger sets the server logger
func WithLogger(l logging.Logger) Option {
	return func(gs *GracefulServer) {
		if l != nil {
			gs.logger = l
		}
	}
}

// WithShutdownTimeout sets the drain timeout used by Run
func WithShutdownTimeout(d time.Duration) Option {
	return func(gs *GracefulServer) {
		if d > 0 {
			gs.shutdownTimeout = d
		}
	}
}

// WithTLS serves HTTPS with cfg; a nil cfg serves plain HTTP
func WithTLS(cfg *tls.Config) Option {
	return func(gs *GracefulServer) {
		gs.server.TLSConfig = cfg
	}
}

// GracefulServer wraps an HTTP server with graceful shutdown capabilities
type GracefulServer struct {
	server          *http.Server
	logger          logging.Logger
	shutdownTimeout time.Duration

	shutdownCh   chan struct{}
	shutdownOnce sync.Once
	onShutdown   []func()

	mu       sync.RWMutex
	reloadFn ReloadFunc
	addr     net.Addr
}

// NewGracefulServer creates a new graceful HTTP server. Writes have no
// deadline so frame streams can stay open.
func NewGracefulServer(addr string, handler http.Handler, opts ...Option) *GracefulServer {
	gs := &GracefulServer{
		server: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			IdleTimeout:       120 * time.Second,
			MaxHeaderBytes:    1 << 20,
		},
		logger:          logging.NewNopLogger(),
		shutdownTimeout: DefaultShutdownTimeout,
		shutdownCh:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(gs)
	}
	gs.logger = gs.logger.With(logging.Component("http"))
	return gs
}

// Start listens on the configured address and serves until Shutdown
func (gs *GracefulServer) Start() error {
	ln, err := net.Listen("tcp", gs.server.Addr)
	if err != nil {
		return err
	}
	if gs.server.TLSConfig != nil {
		ln = tls.NewListener(ln, gs.server.TLSConfig)
	}
	return gs.Serve(ln)
}

// Serve serves on an existing listener until Shutdown
func (gs *GracefulServer) Serve(ln net.Listener) error {
	gs.mu.Lock()
	gs.addr = ln.Addr()
	gs.mu.Unlock()

	gs.logger.Info("starting HTTP server",
		logging.String("addr", ln.Addr().String()),
		logging.Bool("tls", gs.server.TLSConfig != nil))
	if err := gs.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Run serves until ctx is done or SIGINT/SIGTERM arrives, then shuts down
// gracefully. SIGHUP triggers ReloadConfig without stopping.
func (gs *GracefulServer) Run(ctx context.Context) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigCh)

	errCh := make(chan error, 1)
	go func() {
		errCh <- gs.Start()
	}()

	for {
		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
			return gs.Shutdown(gs.shutdownTimeout)
		case sig := <-sigCh:
			if sig == syscall.SIGHUP {
				gs.logger.Info("received SIGHUP, reloading")
				_ = gs.ReloadConfig()
				continue
			}
			gs.logger.Info("received signal, starting graceful shutdown", logging.String("signal", sig.String()))
			return gs.Shutdown(gs.shutdownTimeout)
		}
	}
}

// OnShutdown registers fn to run once shutdown begins, before connections drain
func (gs *GracefulServer) OnShutdown(fn func()) {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	gs.onShutdown = append(gs.onShutdown, fn)
}

// Shutdown initiates a graceful shutdown. Only the first call has an effect.
func (gs *GracefulServer) Shutdown(timeout time.Duration) error {
	var err error
	gs.shutdownOnce.Do(func() {
		close(gs.shutdownCh)

		gs.mu.RLock()
		hooks := append([]func(){}, gs.onShutdown...)
		gs.mu.RUnlock()
		for _, fn := range hooks {
			fn()
		}

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		gs.logger.Info("initiating graceful shutdown", logging.Duration("timeout", timeout))
		if shutdownErr := gs.server.Shutdown(ctx); shutdownErr != nil {
			err = shutdownErr
			gs.logger.Error("error during shutdown", logging.Error(shutdownErr))
		} else {
			gs.logger.Info("server shutdown complete")
		}
	})
	return err
}

// IsShuttingDown returns true if shutdown has been initiated
func (gs *GracefulServer) IsShuttingDown() bool {
	select {
	case <-gs.shutdownCh:
		return true
	default:
		return false
	}
}

// ShutdownChannel returns a channel that closes when shutdown is initiated
func (gs *GracefulServer) ShutdownChannel() <-chan struct{} {
	return gs.shutdownCh
}

// Addr returns the bound address once serving, nil before
func (gs *GracefulServer) Addr() net.Addr {
	gs.mu.RLock()
	defer gs.mu.RUnlock()
	return gs.addr
}

// SetReloadFunc sets the function to call when a reload is triggered
func (gs *GracefulServer) SetReloadFunc(fn ReloadFunc) {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	gs.reloadFn = fn
}

// ReloadConfig runs the reload function, if any
func (gs *GracefulServer) ReloadConfig() error {
	gs.mu.RLock()
	reloadFn := gs.reloadFn
	gs.mu.RUnlock()

	if reloadFn == nil {
		gs.logger.Warn("reload requested, but no reload function configured")
		return nil
	}

	if err := reloadFn(); err != nil {
		gs.logger.Error("reload failed", logging.Error(err))
		return err
	}

	gs.logger.Info("reload complete")
	return nil
}
