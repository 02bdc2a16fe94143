package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/joss/seccompare/internal/logging"
	"github.com/joss/seccompare/internal/metrics"
	"github.com/joss/seccompare/internal/storage"
)

func serveMetricsCmd() *cobra.Command {
	var addr string
	var watch bool
	cmd := &cobra.Command{
		Use:   "serve-metrics",
		Short: "Serve Prometheus metrics at /metrics",
		Long: `Serve Prometheus metrics and a /health probe until interrupted.
With --watch the store is re-read whenever another process writes it,
keeping the session gauge and corrupt-read counter current.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = app.Config.Metrics.Addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			log := logging.New("metrics")
			refresh := func() {
				n := len(app.Sessions.List(ctx))
				log.Debug("store_refreshed", map[string]any{"sessions": n})
			}
			refresh()

			if path := app.WatchPath(); watch && path != "" {
				w, err := storage.WatchStore(path, storage.DefaultDebounce, refresh)
				if err != nil {
					return fmt.Errorf("watch store: %w", err)
				}
				defer w.Close()
			}

			srv := metrics.NewServer(addr, app.Metrics)
			if err := srv.Start(); err != nil {
				return fmt.Errorf("listen %s: %w", addr, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Serving metrics on http://%s/metrics\n", srv.Addr())
			log.Info("serving", map[string]any{"addr": srv.Addr()})

			<-ctx.Done()

			shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Stop(shutdown)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config metrics.addr)")
	cmd.Flags().BoolVar(&watch, "watch", true, "Re-read the store when it changes on disk")
	return cmd
}
