package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dd0wney/cluso-threatgraph/pkg/engine"
	"github.com/dd0wney/cluso-threatgraph/pkg/transport"
	"github.com/spf13/cobra"
)

func watchCmd() *cobra.Command {
	var (
		addr  string
		every time.Duration
		raw   bool
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Subscribe to a running engine's NNG frame feed",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.Transport.Addr
			}

			sub, err := transport.Dial(addr, cfg.Logger(os.Stderr))
			if err != nil {
				return err
			}
			defer sub.Close()

			ctx := cmd.Context()
			sub.Start(ctx)

			w := cmd.OutOrStdout()
			var last time.Time
			for {
				select {
				case <-ctx.Done():
					return nil
				case f, ok := <-sub.Frames():
					if !ok {
						return nil
					}
					if every > 0 && time.Since(last) < every {
						continue
					}
					last = time.Now()
					if err := printFrame(w, f, raw); err != nil {
						return err
					}
				}
			}
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "publisher address; defaults to transport.addr")
	cmd.Flags().DurationVar(&every, "every", 500*time.Millisecond, "minimum time between printed frames")
	cmd.Flags().BoolVar(&raw, "json", false, "print full frames as JSON lines")
	return cmd
}

func printFrame(w io.Writer, f engine.Frame, raw bool) error {
	if raw {
		data, err := f.JSON()
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "%s\n", data)
		return err
	}

	selected := f.Selected
	if selected == "" {
		selected = "-"
	}
	_, err := fmt.Fprintf(w, "tick=%d nodes=%d edges=%d mode=%s selected=%s relevant=%d ke=%.2f max_disp=%.3f\n",
		f.Tick, len(f.Nodes), len(f.Edges), f.Mode, selected, len(f.Relevant),
		f.Stats.KineticEnergy, f.Stats.MaxDisplacement)
	return err
}
