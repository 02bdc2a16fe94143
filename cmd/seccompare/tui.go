package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/joss/seccompare/internal/config"
	"github.com/joss/seccompare/internal/logging"
	"github.com/joss/seccompare/internal/metrics"
	"github.com/joss/seccompare/internal/tui"
)

// tuiCmd launches the interactive validation editor
func tuiCmd() *cobra.Command {
	var metricsAddr string
	cmd := &cobra.Command{
		Use:   "tui [session-id]",
		Short: "Launch the interactive validation editor",
		Long: `Start the Bubble Tea validation editor. Without a session id a picker
lists every session. Changes made to the store by other seccompare
processes are picked up automatically.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// The TUI owns the terminal; logs go to a file.
			logPath := filepath.Join(config.GetPaths().Home, "tui.log")
			if err := config.EnsureDir(filepath.Dir(logPath)); err == nil {
				if f, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644); err == nil {
					defer f.Close()
					logging.SetOutput(f)
					defer logging.SetOutput(os.Stderr)
				}
			}

			if metricsAddr != "" {
				srv := metrics.NewServer(metricsAddr, app.Metrics)
				if err := srv.Start(); err != nil {
					return err
				}
				defer srv.Stop(cmd.Context())
			}

			opts := tui.Options{StorePath: app.WatchPath()}
			if len(args) > 0 {
				opts.SessionID = args[0]
			}
			return tui.Run(cmd.Context(), app.Sessions, app.Binding(), opts)
		},
	}
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Also serve Prometheus metrics on this address")
	return cmd
}
