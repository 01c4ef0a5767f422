// Command threatgraph runs the threat-graph layout engine as an HTTP/NNG
// service, a headless layout tool, a frame watcher or a terminal viewer.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dd0wney/cluso-threatgraph/pkg/config"
	"github.com/dd0wney/cluso-threatgraph/pkg/engine"
	"github.com/dd0wney/cluso-threatgraph/pkg/graph"
	"github.com/spf13/cobra"
)

var version = "0.3.0"

var (
	configPath string
	graphPath  string
)

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "threatgraph",
		Short:         "Force-directed layout engine for threat graphs",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetVersionTemplate("threatgraph {{ .Version }}\n")
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file (defaults plus environment when empty)")
	cmd.PersistentFlags().StringVarP(&graphPath, "graph", "g", "", "graph file (YAML or JSON); overrides graph.path")

	cmd.AddCommand(
		serveCmd(),
		layoutCmd(),
		watchCmd(),
		tuiCmd(),
	)
	return cmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "threatgraph:", err)
		os.Exit(1)
	}
}

// loadConfig applies the persistent flags on top of the file and environment
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, err
	}
	if graphPath != "" {
		cfg.Graph.Path = graphPath
	}
	return cfg, nil
}

// loadGraph seeds e from the configured graph file, if any
func loadGraph(e *engine.Engine, path string) error {
	if path == "" {
		return nil
	}
	set, err := graph.LoadFile(path)
	if err != nil {
		return err
	}
	e.SetGraph(set.Nodes, set.Edges)
	return nil
}
