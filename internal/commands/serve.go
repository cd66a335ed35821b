package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/cegidsync/cegidsync/internal/batch"
	"github.com/cegidsync/cegidsync/internal/metrics"
)

func newServeCommand(opts *globalOptions) *cobra.Command {
	var every time.Duration
	var metricsAddr string
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run an import pass on a fixed interval until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if every <= 0 {
				return fmt.Errorf("--every must be positive, got %s", every)
			}
			cfg, log, err := opts.load(cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			st, err := openStore(ctx, cfg, log, migrate)
			if err != nil {
				return err
			}
			defer st.Close()

			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
			p := &pass{cfg: cfg, log: log, store: st, out: cmd.OutOrStdout(), extra: []batch.Sink{metrics.New(reg)}}

			if metricsAddr != "" {
				mux := http.NewServeMux()
				mux.Handle("/metrics", metrics.Handler(reg))
				srv := &http.Server{Addr: metricsAddr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
				go func() {
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						log.WithError(err).Error("metrics server stopped")
					}
				}()
				defer func() {
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					_ = srv.Shutdown(shutdownCtx)
				}()
				log.WithField("addr", metricsAddr).Info("serving metrics")
			}

			log.WithField("every", every).Info("scheduler started")
			ticker := time.NewTicker(every)
			defer ticker.Stop()
			for {
				p.run(ctx)
				select {
				case <-ctx.Done():
					log.Info("scheduler stopped")
					return nil
				case <-ticker.C:
				}
			}
		},
	}

	cmd.Flags().DurationVar(&every, "every", time.Hour, "interval between import passes")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", ":9102", "address for the Prometheus endpoint, empty to disable")
	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply database migrations before the first pass")

	return cmd
}
