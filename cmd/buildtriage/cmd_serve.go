package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"buildtriage/internal/api"
	"buildtriage/internal/cache"
	"buildtriage/internal/catalog"
	"buildtriage/internal/metrics"
	"buildtriage/internal/triage"
)

var serveFlags struct {
	listen         string
	metricsListen  string
	refresh        time.Duration
	job            string
	hoursAgo       int
	includeSuccess bool
	catalogPath    string
	parallel       int
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the triage report over HTTP, refreshing on an interval",
	Long: `Run the report continuously: refresh it on an interval and serve the
latest snapshot as a text table (/), JSON (/report.json) and a health
probe (/healthz). Prometheus metrics are exposed on a separate listener.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	f := serveCmd.Flags()
	f.StringVar(&serveFlags.listen, "listen", "", "Report listen address")
	f.StringVar(&serveFlags.metricsListen, "metrics-listen", "", "Prometheus listen address, empty disables the listener")
	f.DurationVar(&serveFlags.refresh, "refresh", 0, "Interval between report refreshes")
	f.StringVarP(&serveFlags.job, "job", "j", "", "Jenkins job to report on (alias-expanded)")
	f.IntVarP(&serveFlags.hoursAgo, "hours-ago", "t", 0, "Report window in hours")
	f.BoolVarP(&serveFlags.includeSuccess, "include-success", "s", false, "Report successful builds too")
	f.StringVar(&serveFlags.catalogPath, "catalog", "", "Path to the signature catalog")
	f.IntVar(&serveFlags.parallel, "parallel", 0, "Concurrent console fetches per refresh")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadSettings()
	if err != nil {
		return err
	}

	if cmd.Flags().Changed("listen") {
		cfg.Serve.Address = serveFlags.listen
	}
	if cmd.Flags().Changed("metrics-listen") {
		cfg.Serve.MetricsAddress = serveFlags.metricsListen
	}
	if cmd.Flags().Changed("refresh") {
		cfg.Serve.RefreshInterval = serveFlags.refresh
	}
	if cmd.Flags().Changed("job") {
		cfg.Report.Job = serveFlags.job
	}
	if cmd.Flags().Changed("hours-ago") {
		cfg.Report.HoursAgo = serveFlags.hoursAgo
	}
	if cmd.Flags().Changed("include-success") {
		cfg.Report.IncludeSuccess = serveFlags.includeSuccess
	}
	if cmd.Flags().Changed("catalog") {
		cfg.Catalog.Path = serveFlags.catalogPath
	}
	if cmd.Flags().Changed("parallel") {
		cfg.Report.Parallelism = serveFlags.parallel
	}

	if cfg.Report.Job == "" {
		return fmt.Errorf("no job given: set --job or report.job in the settings file")
	}
	job := cfg.ResolveJob(cfg.Report.Job)

	baseClient, err := newJenkinsClient(cfg, logger)
	if err != nil {
		return err
	}

	cat, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		return err
	}

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}
	client := cache.NewConsoleClient(baseClient, cache.NewMemory(nil), cfg.Serve.ConsoleCacheTTL, logger)

	runner := triage.NewRunner(logger, client, cat, nil, cfg.Report.Parallelism)
	refresher := triage.NewRefresher(logger, runner, triage.Params{
		Job:            job,
		HoursAgo:       cfg.Report.HoursAgo,
		IncludeSuccess: cfg.Report.IncludeSuccess,
	}, cfg.Serve.RefreshInterval, nil)

	server, err := api.NewServer(cfg.Serve, refresher, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var metricsServer *http.Server
	if cfg.Serve.MetricsAddress != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{
			Addr:         cfg.Serve.MetricsAddress,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 15 * time.Second,
		}
		go func() {
			logger.Info("metrics server listening", slog.String("address", cfg.Serve.MetricsAddress))
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server exited", slog.Any("error", err))
				stop()
			}
		}()
	}

	go func() {
		if err := refresher.Run(ctx); err != nil {
			logger.Error("refresher exited", slog.Any("error", err))
			stop()
		}
	}()

	go func() {
		logger.Info("report server listening",
			slog.String("address", server.Address()),
			slog.String("job", job),
			slog.Duration("refresh", cfg.Serve.RefreshInterval),
		)
		if serveErr := server.Start(); serveErr != nil {
			logger.Error("report server exited", slog.Any("error", serveErr))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Serve.GracefulTimeout)
	defer cancel()
	server.Shutdown(shutdownCtx)

	if metricsServer != nil {
		metricsCtx, cancelMetrics := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(metricsCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server shutdown", slog.Any("error", err))
		}
		cancelMetrics()
	}

	// Give remaining goroutines time to finish logging.
	time.Sleep(100 * time.Millisecond)
	logger.Info("buildtriage stopped")
	return nil
}
