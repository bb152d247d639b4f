package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/mmynk/welfareguard/internal/config"
	"github.com/mmynk/welfareguard/internal/dispatch"
	"github.com/mmynk/welfareguard/internal/metrics"
	"github.com/mmynk/welfareguard/internal/ops"
	"github.com/mmynk/welfareguard/internal/rules"
	"github.com/mmynk/welfareguard/internal/scoring"
	"github.com/mmynk/welfareguard/internal/service"
	"github.com/mmynk/welfareguard/internal/storage/sqlite"
	"github.com/mmynk/welfareguard/pkg/logging"
)

const (
	shutdownTimeout    = 10 * time.Second
	queueDepthInterval = 15 * time.Second
)

func main() {
	if err := run(); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	// After Load, so LOG_LEVEL and LOG_FORMAT may come from .env.
	logging.Setup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()
	slog.Info("Storage initialized", "database", cfg.DBPath)

	client, err := dispatch.NewClient(ctx, cfg.Redis.URL)
	if err != nil {
		return err
	}
	defer client.Close()

	queue := dispatch.NewRedisQueue(client, cfg.Redis.Queue)
	recovered, err := queue.Recover(ctx)
	if err != nil {
		return err
	}
	slog.Info("Queue connected", "queue", cfg.Redis.Queue, "recovered", recovered)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	opts := []service.Option{
		service.WithMetrics(m),
		service.WithRingThreshold(cfg.RingDegreeThreshold),
	}
	if cfg.AdvisoryScorer {
		opts = append(opts, service.WithScorer(scoring.DefaultLogistic()))
	}
	evaluations := service.NewEvaluationService(store, rules.NewEvaluator(cfg.Thresholds), opts...)
	pool := dispatch.NewPool(queue, evaluations, cfg.Pool, m)
	sweep := service.NewSweepService(store, cfg.RingDegreeThreshold, cfg.Sweep.Penalty, m)

	srv := &http.Server{
		Addr: cfg.OpsAddr,
		Handler: ops.NewRouter(map[string]ops.Pinger{
			"store": store,
			"queue": queue,
		}, reg),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return pool.Run(ctx)
	})

	g.Go(func() error {
		return queue.MonitorDepth(ctx, m, queueDepthInterval)
	})

	if cfg.Sweep.Interval > 0 {
		g.Go(func() error {
			return sweep.RunEvery(ctx, cfg.Sweep.Interval)
		})
	}

	g.Go(func() error {
		slog.Info("Ops server starting", "address", cfg.OpsAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		slog.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
