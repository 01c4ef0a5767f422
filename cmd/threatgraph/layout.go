package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dd0wney/cluso-threatgraph/pkg/engine"
	"github.com/dd0wney/cluso-threatgraph/pkg/geometry"
	"github.com/dd0wney/cluso-threatgraph/pkg/logging"
	"github.com/spf13/cobra"
)

// layoutOptions controls a headless layout run
type layoutOptions struct {
	Ticks   int
	Settle  float64
	Fit     bool
	Padding float64
	Pretty  bool

	// Width and Height size the surface the viewport is fitted to
	Width  float64
	Height float64
}

func layoutCmd() *cobra.Command {
	opts := layoutOptions{Ticks: 600, Padding: 40, Width: 1000, Height: 600}
	var out string

	cmd := &cobra.Command{
		Use:   "layout",
		Short: "Run the solver headless and print the final frame as JSON",
		Example: "  threatgraph layout -g cmd/threatgraph/demo_graph.yaml --ticks 300 --fit\n" +
			"  threatgraph layout -g graph.json --settle 0.05 -o frame.json",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.Graph.Path == "" {
				return errors.New("layout needs a graph file (--graph or graph.path)")
			}

			logger := cfg.Logger(os.Stderr)
			e, err := newLayoutEngine(cfg.Engine, opts, logger)
			if err != nil {
				return err
			}
			defer e.Close()
			if err := loadGraph(e, cfg.Graph.Path); err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if out != "" {
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			return runLayout(e, opts, w, logger)
		},
	}

	cmd.Flags().IntVarP(&opts.Ticks, "ticks", "n", opts.Ticks, "maximum solver ticks")
	cmd.Flags().Float64Var(&opts.Settle, "settle", 0, "stop early once no node moves more than this per tick")
	cmd.Flags().BoolVar(&opts.Fit, "fit", false, "fit the viewport to the final layout")
	cmd.Flags().Float64Var(&opts.Padding, "padding", opts.Padding, "world padding used with --fit")
	cmd.Flags().Float64Var(&opts.Width, "width", opts.Width, "surface width in pixels")
	cmd.Flags().Float64Var(&opts.Height, "height", opts.Height, "surface height in pixels")
	cmd.Flags().BoolVar(&opts.Pretty, "pretty", false, "indent the JSON output")
	cmd.Flags().StringVarP(&out, "output", "o", "", "write to a file instead of stdout")
	return cmd
}

// newLayoutEngine creates an engine drawing onto an opts.Width×opts.Height surface
func newLayoutEngine(cfg engine.Config, opts layoutOptions, logger logging.Logger) (*engine.Engine, error) {
	if !(opts.Width > 0) || !(opts.Height > 0) {
		return nil, fmt.Errorf("surface must have a positive size, got %gx%g", opts.Width, opts.Height)
	}
	return engine.New(cfg,
		engine.WithLogger(logger),
		engine.WithMetrics(nil),
		engine.WithSurface(geometry.NewSurface(opts.Width, opts.Height)))
}

// runLayout steps e until the tick budget is spent or the layout settles,
// then writes the frame
func runLayout(e *engine.Engine, opts layoutOptions, w io.Writer, logger logging.Logger) error {
	if opts.Ticks < 1 {
		return fmt.Errorf("ticks must be at least 1, got %d", opts.Ticks)
	}

	var f engine.Frame
	for i := 0; i < opts.Ticks; i++ {
		f = e.Tick()
		if opts.Settle > 0 && i > 0 && f.Stats.MaxDisplacement <= opts.Settle {
			break
		}
	}
	if opts.Fit {
		e.FitView(opts.Padding)
		f = e.Frame()
	}

	var (
		data []byte
		err  error
	)
	if opts.Pretty {
		data, err = f.JSONIndent()
	} else {
		data, err = f.JSON()
	}
	if err != nil {
		return err
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return err
	}

	logger.Info("layout finished",
		logging.Uint64("ticks", f.Tick),
		logging.Int("nodes", len(f.Nodes)),
		logging.Float64("max_displacement", f.Stats.MaxDisplacement))
	return nil
}
