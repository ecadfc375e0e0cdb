package main

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/techdiscoveria/discoveria/internal/auth"
	"github.com/techdiscoveria/discoveria/internal/circuit"
	"github.com/techdiscoveria/discoveria/internal/config"
	"github.com/techdiscoveria/discoveria/internal/db"
	httpx "github.com/techdiscoveria/discoveria/internal/http"
	"github.com/techdiscoveria/discoveria/internal/http/middlewares"
	"github.com/techdiscoveria/discoveria/internal/notifications"
	"github.com/techdiscoveria/discoveria/internal/observability"
	"github.com/techdiscoveria/discoveria/internal/payments"
	"github.com/techdiscoveria/discoveria/internal/redisclient"
)

func main() {
	// Load the config set up
	cfg := config.Load()

	// start up the observability logger
	log := observability.NewLogger(cfg.Env)
	slog.SetDefault(log)

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	startCtx, cancelStart := config.WithTimeout(15 * time.Second)
	defer cancelStart()

	shutdownTracer, err := observability.InitTracer(startCtx, observability.TracerConfig{
		ServiceName: "discoveria-api",
		Env:         cfg.Env,
		Endpoint:    cfg.OTLPEndpoint,
	})
	if err != nil {
		log.Error("tracer init failed", "err", err)
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	prom := observability.NewProm(reg)

	store, err := db.Open(startCtx, cfg, prom, log)
	if err != nil {
		log.Error("store open failed", "err", err)
		os.Exit(1)
	}

	if err := db.EnsureAdminUser(startCtx, store.Users, cfg, log); err != nil {
		log.Error("admin bootstrap failed", "err", err)
		os.Exit(1)
	}

	breaker := circuit.Config{Timeout: 5 * time.Second, FailureThreshold: 5, Cooldown: 30 * time.Second}

	var processor payments.Processor = payments.DisabledProcessor{}
	if cfg.StripeSecretKey != "" {
		processor = payments.NewProtectedProcessor(payments.NewStripeProcessor(cfg.StripeSecretKey), breaker)
	} else {
		log.Warn("STRIPE_SECRET_KEY not set, payment intents are disabled")
	}

	notifier := notifications.NewProtectedNotifier(notifications.NewLogNotifier(log), circuit.Config{})

	var limiter middlewares.Limiter = middlewares.NewRateLimiter(cfg.RateLimitPerMinute, time.Minute)
	var rdb *redisclient.Client
	if cfg.RedisAddr != "" {
		rdb = redisclient.New(redisclient.Config{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		if err := rdb.Ping(startCtx); err != nil {
			log.Warn("redis unreachable, rate limiting stays in-process", "err", err)
			_ = rdb.Close()
			rdb = nil
		} else {
			limiter = redisclient.NewRateLimiter(rdb, cfg.RateLimitPerMinute, time.Minute)
		}
	}

	// set up routers with the log
	router := httpx.NewRouter(httpx.Deps{
		Config:    cfg,
		Store:     store,
		JWT:       auth.NewManager(cfg.JWTSecret, cfg.JWTTTL),
		Processor: processor,
		Notifier:  notifier,
		Limiter:   limiter,
		Prom:      prom,
		Gatherer:  reg,
	})

	// server set up
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "port", cfg.Port, "env", cfg.Env, "store", cfg.StoreDriver)
		err := srv.ListenAndServe()

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info("server shutting down")

	shutdownCh := make(chan struct{})

	go func() {
		defer close(shutdownCh)

		ctx, cancel := config.WithTimeout(10 * time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("graceful shutdown failed", "err", err)
		}

		if err := store.Close(ctx); err != nil {
			log.Error("store close failed", "err", err)
		}

		if rdb != nil {
			_ = rdb.Close()
		}

		if err := shutdownTracer(ctx); err != nil {
			log.Error("tracer shutdown failed", "err", err)
		}
	}()

	select {
	case <-shutdownCh:
		log.Info("shutdown complete")

	case <-time.After(12 * time.Second):
		log.Error("shutdown timed out")
	}
}

