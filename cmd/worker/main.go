package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/techdiscoveria/discoveria/internal/circuit"
	"github.com/techdiscoveria/discoveria/internal/config"
	"github.com/techdiscoveria/discoveria/internal/db"
	"github.com/techdiscoveria/discoveria/internal/notifications"
	"github.com/techdiscoveria/discoveria/internal/observability"
	"github.com/techdiscoveria/discoveria/internal/worker"
)

func main() {
	cfg := config.Load()

	log := observability.NewLogger(cfg.Env).With("process", "worker")
	slog.SetDefault(log)

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)

	defer stop()

	shutdownTracer, err := observability.InitTracer(ctx, observability.TracerConfig{
		ServiceName: "discoveria-worker",
		Env:         cfg.Env,
		Endpoint:    cfg.OTLPEndpoint,
	})
	if err != nil {
		log.Error("tracer init failed", "err", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(context.Background()) }()

	reg := prometheus.NewRegistry()
	prom := observability.NewProm(reg)

	store, err := db.Open(ctx, cfg, prom, log)
	if err != nil {
		log.Error("store open failed", "err", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close(context.Background()) }()

	host, _ := os.Hostname()
	workerID := host + "-" + strconv.Itoa(os.Getpid())

	w := worker.New(worker.Config{
		PollInterval:  cfg.WorkerPollInterval,
		WorkerID:      workerID,
		Concurrency:   2,
		MaxAttempts:   cfg.WorkerMaxAttempts,
		LockTTL:       time.Minute,
		ShutdownGrace: 10 * time.Second,
	}, store.Payments, store.Users,
		worker.WithNotifier(notifications.NewProtectedNotifier(notifications.NewLogNotifier(log), circuit.Config{})),
		worker.WithProm(prom),
		worker.WithLogger(log),
	)

	healthSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.WorkerHealthPort),
		Handler:           w.HealthHandler(store, reg),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("worker health server starting", "port", cfg.WorkerHealthPort)
		if err := healthSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("worker health server failed", "err", err)
		}
	}()

	log.Info("worker has started", "worker_id", workerID)

	if err := w.Run(ctx); err != nil {
		log.Error("worker stopped with error", "err", err)
	}

	shutdownCtx, cancel := config.WithTimeout(5 * time.Second)
	defer cancel()
	_ = healthSrv.Shutdown(shutdownCtx)

	log.Info("worker shutdown complete")
}
