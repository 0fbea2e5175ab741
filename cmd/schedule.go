package cmd

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	infracontext "github.com/jonesrussell/competitive-scan/infrastructure/context"
	"github.com/jonesrussell/competitive-scan/infrastructure/health"
	infralogger "github.com/jonesrussell/competitive-scan/infrastructure/logger"
	"github.com/jonesrussell/competitive-scan/infrastructure/profiling"
	"github.com/jonesrussell/competitive-scan/infrastructure/server"
	"github.com/jonesrussell/competitive-scan/internal/bootstrap"
	"github.com/jonesrussell/competitive-scan/internal/scheduler"
)

func newScheduleCommand() *cobra.Command {
	var runNow bool

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run batch scans of all active clients on the configured cron schedule",
		Long: `Runs until interrupted. Each tick of scan.schedule scans every active client;
a tick is skipped while the previous batch is still running. Prometheus
metrics are served on metrics.address at /metrics, with /health for
liveness and /ready for database and provider breaker state.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			core, err := bootstrap.Open(ctx, cfgFile)
			if err != nil {
				return err
			}
			scanner, err := core.Scanner(ctx, prometheus.DefaultRegisterer)
			if err != nil {
				_ = core.Close()
				return err
			}
			defer func() { _ = scanner.Close() }()

			log := scanner.Logger
			sched, err := scheduler.New(scanner.Executor, scanner.Config.Scan.Schedule, log)
			if err != nil {
				return err
			}

			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			mux.Handle("/health", health.LivenessHandler())
			mux.Handle("/ready", scanner.Health().Handler())
			if scanner.Config.Metrics.Pprof {
				profiling.Register(mux)
				log.Info("pprof endpoints enabled", infralogger.String("path", profiling.PathPrefix))
			}
			srv := server.New(server.Config{Address: scanner.Config.Metrics.Address}, mux)

			serverErr := make(chan error, 1)
			go func() { serverErr <- server.Run(ctx, srv, log) }()

			sched.Start()
			if runNow {
				go func() {
					if _, runErr := sched.RunOnce(ctx); runErr != nil {
						log.Error("Initial batch failed", infralogger.Error(runErr))
					}
				}()
			}

			select {
			case <-ctx.Done():
				log.Info("Shutdown signal received")
			case err = <-serverErr:
			}

			stopCtx, cancel := infracontext.WithShutdownTimeout(ctx)
			defer cancel()
			stopErr := sched.Stop(stopCtx)

			if err == nil {
				err = <-serverErr
			}
			return errors.Join(err, stopErr)
		},
	}

	cmd.Flags().BoolVar(&runNow, "run-now", false, "also run one batch immediately at startup")
	return cmd
}
