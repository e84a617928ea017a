package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/parfit-dev/parfit/internal/driver"
	"github.com/parfit-dev/parfit/internal/metrics"
	"github.com/parfit-dev/parfit/internal/objective"
	"github.com/parfit-dev/parfit/internal/pool"
	"github.com/parfit-dev/parfit/internal/store"
	"github.com/parfit-dev/parfit/internal/strategy"
	"github.com/parfit-dev/parfit/pkg/config"
	"github.com/parfit-dev/parfit/pkg/logger"
	"github.com/parfit-dev/parfit/pkg/utils"
)

func newRunCmd() *cobra.Command {
	var configPath string
	var metricsAddr string
	var runID string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute an experiment run",
		Long:  "Loads an experiment configuration, runs the driver to a terminal state, and prints a result summary. Exits non-zero when the run aborts.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logger.SetDefault(logger.NewText(cfg.LogLevel, os.Stderr))
			return runExperiment(cmd, cfg, runID, metricsAddr)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to the experiment config file")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "optional Prometheus metrics listen address (e.g. :9090)")
	cmd.Flags().StringVar(&runID, "run-id", "", "run identifier (generated when empty)")
	_ = cmd.MarkFlagRequired("config")

	return cmd
}

func runExperiment(cmd *cobra.Command, cfg *config.Config, runID, metricsAddr string) error {
	fn, err := objective.FromConfig(cfg)
	if err != nil {
		return err
	}
	timeout, err := cfg.Evaluation.GetTimeout()
	if err != nil {
		return err
	}
	adapter := objective.NewAdapter(cfg.Evaluation.Objective, fn, timeout)

	strat, err := strategy.FromConfig(&cfg.Strategy)
	if err != nil {
		return err
	}

	sink, err := openSink(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sink.Close(); cerr != nil {
			logger.Warn("failed to close record store", "error", cerr)
		}
	}()

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	p := pool.New(cfg.Pool.Workers, adapter, pool.WithObserver(collector))
	defer p.Shutdown()

	drv := driver.New(strat, p, sink, driver.Options{
		RunID:         runID,
		Start:         cfg.Start,
		MaxIterations: cfg.Budget.MaxIterations,
		FailureScore:  cfg.Evaluation.FailureScore,
		AppendRetries: cfg.Store.AppendRetries,
		RetryBackoff:  utils.BackoffFromConfig(cfg.Store.RetryBackoff, cfg.Store.RetryBaseMs, 0),
		Seed:          cfg.Seed,
		Convergence:   driver.ConvergenceFromConfig(cfg.Convergence),
		Observer:      collector,
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	metricsCtx, stopMetrics := context.WithCancel(gctx)
	defer stopMetrics()

	var result *driver.RunResult
	g.Go(func() error {
		defer stopMetrics()
		var runErr error
		result, runErr = drv.Run(gctx)
		return runErr
	})
	if metricsAddr != "" {
		g.Go(func() error {
			return serveMetrics(metricsCtx, metricsAddr, registry)
		})
	}

	runErr := g.Wait()
	if result != nil {
		if err := printResult(cmd, result); err != nil {
			return err
		}
	}
	return runErr
}

func openSink(cfg *config.Config) (store.Sink, error) {
	switch cfg.Store.Backend {
	case "badger":
		return store.OpenBadger(store.BadgerConfig{
			Path:       cfg.Store.Path,
			SyncWrites: true,
			Logger:     logger.Default,
		})
	default:
		return store.NewMemorySink(), nil
	}
}

// serveMetrics exposes the registry until ctx is cancelled
func serveMetrics(ctx context.Context, addr string, registry *prometheus.Registry) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("metrics server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("metrics server error: %w", err)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func printResult(cmd *cobra.Command, result *driver.RunResult) error {
	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return err
}
