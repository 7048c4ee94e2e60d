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

	"golang.org/x/sync/errgroup"

	"github.com/baharkarakas/shop-backend/internal/api"
	"github.com/baharkarakas/shop-backend/internal/auth"
	"github.com/baharkarakas/shop-backend/internal/config"
	"github.com/baharkarakas/shop-backend/internal/db"
	"github.com/baharkarakas/shop-backend/internal/logger"
	"github.com/baharkarakas/shop-backend/internal/metrics"
	"github.com/baharkarakas/shop-backend/internal/repository"
	"github.com/baharkarakas/shop-backend/internal/repository/memory"
	"github.com/baharkarakas/shop-backend/internal/repository/postgres"
	"github.com/baharkarakas/shop-backend/internal/services"
	"github.com/baharkarakas/shop-backend/internal/telemetry"
	"github.com/baharkarakas/shop-backend/internal/worker"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.New(cfg.Env)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(cfg.OTelStdout, nil)
	if err != nil {
		return err
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	repos, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	wp := worker.NewPool(cfg.WorkerCount, 1024)
	defer wp.Stop()

	tm := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL)
	audit := services.NewAuditor(repos.AuditLogs, wp, log)
	catalogSvc := services.NewCatalogService(repos.Products, audit, log)
	if cfg.Seed {
		if _, err := catalogSvc.SeedSamples(ctx); err != nil {
			return err
		}
	}

	metrics.Init()
	h := api.NewRouter(api.RouterDeps{
		Cfg:      cfg,
		Tokens:   tm,
		Auth:     services.NewAuthService(repos.Users, tm, cfg.IsAdminEmail, audit, log),
		Accounts: services.NewAccountService(repos.Users, repos.Baskets, log),
		Catalog:  catalogSvc,
		Orders:   services.NewOrderService(repos.Orders, audit, log),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server starting", "port", cfg.HTTPPort, "store", cfg.Store, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func openStore(ctx context.Context, cfg config.Config, log *slog.Logger) (repository.Set, func(), error) {
	if cfg.Store == "memory" {
		log.Warn("using in-memory store; data is lost on restart")
		return memory.New().Repositories(), func() {}, nil
	}
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return repository.Set{}, nil, err
	}
	if cfg.Migrate {
		if err := db.RunMigrations(ctx, pool); err != nil {
			pool.Close()
			return repository.Set{}, nil, err
		}
	}
	return postgres.NewRepositories(pool), pool.Close, nil
}
