package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/geocoder89/rolegate/internal/accounts"
	"github.com/geocoder89/rolegate/internal/auth"
	"github.com/geocoder89/rolegate/internal/config"
	"github.com/geocoder89/rolegate/internal/db"
	httpx "github.com/geocoder89/rolegate/internal/http"
	"github.com/geocoder89/rolegate/internal/http/middlewares"
	"github.com/geocoder89/rolegate/internal/observability"
	"github.com/geocoder89/rolegate/internal/redisclient"
	"github.com/geocoder89/rolegate/internal/repo/memory"
	"github.com/geocoder89/rolegate/internal/repo/postgres"
	"github.com/geocoder89/rolegate/internal/repo/redisrepo"
	"github.com/geocoder89/rolegate/internal/security"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const serviceName = "rolegate"

func main() {
	// Load the config set up
	cfg := config.Load()

	// start up the observability logger
	log := observability.NewLogger(cfg.Env)

	if err := cfg.Validate(); err != nil {
		log.Error("invalid config", "err", err)
		os.Exit(1)
	}

	ctx := context.Background()

	tracing := cfg.OTLPEndpoint != ""
	if tracing {
		shutdownTracer, err := observability.InitTracer(ctx, observability.TracerConfig{
			ServiceName: serviceName,
			Env:         cfg.Env,
			Endpoint:    cfg.OTLPEndpoint,
		})
		if err != nil {
			log.Error("tracer init failed", "err", err)
			os.Exit(1)
		}
		defer func() {
			sctx, cancel := config.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdownTracer(sctx)
		}()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	prom := observability.NewProm(reg)

	store, closeStore, err := openStore(ctx, cfg, prom, log)
	if err != nil {
		log.Error("store init failed", "driver", cfg.StorageDriver, "err", err)
		os.Exit(1)
	}
	defer closeStore()

	hasher := security.NewHasher(cfg.BcryptCost, cfg.HashConcurrency)
	tokens := auth.NewManager(cfg.JWTSecret, cfg.TokenTTL)

	seedCtx, cancelSeed := config.WithTimeout(ctx, 10*time.Second)
	created, err := db.EnsureAdminUser(seedCtx, store, hasher, cfg.AdminUsername, cfg.AdminPassword)
	cancelSeed()
	if err != nil {
		log.Error("admin seed failed", "err", err)
		os.Exit(1)
	}
	if created {
		log.Info("admin user created", "username", cfg.AdminUsername)
	}

	svc := accounts.NewService(store, hasher, tokens, log, prom)

	// set up routers with the log
	router := httpx.NewRouter(httpx.RouterDeps{
		Env:                cfg.Env,
		ServiceName:        serviceName,
		Log:                log,
		Accounts:           svc,
		Verifier:           tokens,
		Ping:               svc.Ping,
		Prom:               prom,
		Gatherer:           reg,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		MaxBodyBytes:       middlewares.DefaultMaxBodyBytes,
		Tracing:            tracing,
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

	serverErr := make(chan error, 1)

	go func() {
		log.Info("Server starting", "port", cfg.Port, "env", cfg.Env, "storage", cfg.StorageDriver)
		err := srv.ListenAndServe()

		if err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	// Graceful shutdown

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("server shutting down")
	case err := <-serverErr:
		log.Error("server failed", "err", err)
		return
	}

	shutdownCh := make(chan struct{})

	go func() {
		defer close(shutdownCh)

		sctx, cancel := config.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(sctx); err != nil {
			log.Error("graceful shutdown failed", "err", err)
		}
	}()

	select {
	case <-shutdownCh:
		log.Info("shutdown complete")

	case <-time.After(12 * time.Second):
		log.Error("shutdown timed out")
	}
}

// openStore builds the credential store selected by STORAGE_DRIVER.
func openStore(ctx context.Context, cfg config.Config, prom *observability.Prom, log *slog.Logger) (accounts.UserStore, func(), error) {
	switch cfg.StorageDriver {
	case config.StoragePostgres:
		mctx, cancel := config.WithTimeout(ctx, 30*time.Second)
		defer cancel()

		if err := db.Migrate(mctx, cfg.DBURL); err != nil {
			return nil, nil, fmt.Errorf("migrate: %w", err)
		}

		pool, err := db.NewPool(mctx, cfg.DBURL, cfg.DBMaxConns)
		if err != nil {
			return nil, nil, err
		}
		log.Info("postgres connected")

		return postgres.NewUsersRepo(pool, prom), pool.Close, nil

	case config.StorageRedis:
		rc := redisclient.New(redisclient.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})

		pctx, cancel := config.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		if err := rc.Ping(pctx); err != nil {
			_ = rc.Close()
			return nil, nil, fmt.Errorf("redis ping: %w", err)
		}
		log.Info("redis connected", "addr", cfg.RedisAddr)

		return redisrepo.NewUsersRepo(rc.Raw()), func() { _ = rc.Close() }, nil

	case config.StorageMemory:
		log.Warn("using in-memory store; users are lost on restart")
		return memory.NewUsersRepo(), func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}
