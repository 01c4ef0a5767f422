package main

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/dd0wney/cluso-threatgraph/pkg/api"
	"github.com/dd0wney/cluso-threatgraph/pkg/config"
	"github.com/dd0wney/cluso-threatgraph/pkg/engine"
	"github.com/dd0wney/cluso-threatgraph/pkg/graph"
	"github.com/dd0wney/cluso-threatgraph/pkg/health"
	"github.com/dd0wney/cluso-threatgraph/pkg/logging"
	"github.com/dd0wney/cluso-threatgraph/pkg/metrics"
	"github.com/dd0wney/cluso-threatgraph/pkg/pubsub"
	"github.com/dd0wney/cluso-threatgraph/pkg/server"
	tlsconfig "github.com/dd0wney/cluso-threatgraph/pkg/tls"
	"github.com/dd0wney/cluso-threatgraph/pkg/transport"
	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the layout engine behind the HTTP API and NNG publisher",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			return serve(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "HTTP listen address; overrides server.addr")
	return cmd
}

func serve(ctx context.Context, cfg config.Config) error {
	logger := cfg.Logger(os.Stdout)
	logger.Info("threatgraph starting",
		logging.String("version", version),
		logging.String("addr", cfg.Server.Addr),
		logging.Int("fps", cfg.Engine.FPS))

	reg := metrics.NewRegistry()
	e, err := engine.New(cfg.Engine, engine.WithLogger(logger), engine.WithMetrics(reg))
	if err != nil {
		return err
	}
	if err := loadGraph(e, cfg.Graph.Path); err != nil {
		e.Close()
		return err
	}

	runnerOpts := []engine.RunnerOption{
		engine.WithBrokerOptions(pubsub.WithBuffer(cfg.Server.StreamBufferSize()), pubsub.WithConflation()),
	}
	var publisher *transport.Publisher
	if cfg.Transport.Enabled {
		publisher, err = transport.NewPublisher(cfg.Transport.Addr,
			transport.WithCompression(cfg.Transport.Compress),
			transport.WithLogger(logger),
			transport.WithMetrics(reg))
		if err != nil {
			e.Close()
			return err
		}
		defer publisher.Close()
		runnerOpts = append(runnerOpts, engine.WithSink(transport.SinkName, publisher))
	}

	runner := engine.NewRunner(e, runnerOpts...)
	defer runner.Stop()
	if err := runner.Start(ctx); err != nil {
		return err
	}

	hc := health.NewHealthChecker()
	hc.RegisterCheck("transport", health.TransportCheck(func() (bool, string, error) {
		if publisher == nil {
			return false, "", nil
		}
		return true, publisher.Addr(), publisher.LastError()
	}))

	apiServer, err := api.NewServer(runner, cfg.API(), api.WithLogger(logger), api.WithHealthChecker(hc))
	if err != nil {
		return err
	}
	defer apiServer.Close()

	stopMetrics := make(chan struct{})
	defer close(stopMetrics)
	go apiServer.UpdateSystemMetrics(15*time.Second, stopMetrics)

	tlsConfig, err := tlsconfig.Load(cfg.Server.TLS)
	if err != nil {
		return err
	}

	gs := server.NewGracefulServer(cfg.Server.Addr, apiServer.Handler(),
		server.WithLogger(logger),
		server.WithShutdownTimeout(cfg.Server.Shutdown()),
		server.WithTLS(tlsConfig))
	gs.OnShutdown(runner.Stop)
	gs.SetReloadFunc(func() error {
		return reloadGraph(runner, cfg.Graph.Path, logger)
	})

	if err := gs.Run(ctx); err != nil {
		return err
	}
	logger.Info("threatgraph stopped")
	return nil
}

// reloadGraph re-reads the graph file and reconciles it into the running
// engine; positions of surviving nodes are kept
func reloadGraph(runner *engine.Runner, path string, logger logging.Logger) error {
	if path == "" {
		return errors.New("no graph file configured")
	}
	set, err := graph.LoadFile(path)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return runner.Do(ctx, func(e *engine.Engine) {
		result := e.SetGraph(set.Nodes, set.Edges)
		logger.Info("graph reloaded",
			logging.String("path", path),
			logging.Int("added", len(result.Added)),
			logging.Int("removed", len(result.Removed)))
	})
}
