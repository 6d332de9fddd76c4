package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/bemobi-ops/ops-console/internal/antifraud"
	"github.com/bemobi-ops/ops-console/internal/app"
	"github.com/bemobi-ops/ops-console/internal/audit"
	audithttp "github.com/bemobi-ops/ops-console/internal/audit/http"
	"github.com/bemobi-ops/ops-console/internal/auth"
	"github.com/bemobi-ops/ops-console/internal/bolepix"
	"github.com/bemobi-ops/ops-console/internal/observability"
	"github.com/bemobi-ops/ops-console/internal/payments"
	"github.com/bemobi-ops/ops-console/internal/platform/cache"
	"github.com/bemobi-ops/ops-console/internal/platform/db"
	"github.com/bemobi-ops/ops-console/internal/rbac"
	"github.com/bemobi-ops/ops-console/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN, db.Options{
		MaxConns:         cfg.PGMaxConns,
		ConnectTimeout:   5 * time.Second,
		StatementTimeout: cfg.AppQueryTimeout,
	})
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cache.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}
	auditSink := jobs.NewClient(redisOpts)
	defer func() {
		if err := auditSink.Close(); err != nil {
			logger.Warn("asynq client close", slog.Any("error", err))
		}
	}()
	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()

	tokens, err := auth.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		logger.Error("init token manager", slog.Any("error", err))
		os.Exit(1)
	}
	revocations := auth.NewRevocations(redisClient)
	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(authRepo, tokens, revocations, auth.Options{
		AllowedDomain: cfg.AuthAllowedDomain,
		BcryptCost:    cfg.BcryptCost,
	})
	if cfg.UsersSeedPath != "" {
		created, err := authService.SeedFromFile(ctx, cfg.UsersSeedPath)
		if err != nil {
			logger.Error("seed users", slog.String("path", cfg.UsersSeedPath), slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("users seeded", slog.Int("created", created))
	}

	rbacMiddleware := rbac.Middleware{
		Verifier:    tokens,
		Revocations: revocations,
		Logger:      logger,
		Denials:     metrics,
	}

	bolepixClient, err := bolepix.NewClient(cfg.BolepixBaseURL, cfg.BolepixTimeout, metrics)
	if err != nil {
		logger.Error("init bolepix client", slog.Any("error", err))
		os.Exit(1)
	}

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		RBACMiddleware:     rbacMiddleware,
		AuthHandler:        auth.NewHandler(logger, authService, auditSink, rbacMiddleware, cfg.LoginRateLimit),
		PermissionsHandler: rbac.NewPermissionsHandler(logger, rbac.NewService(authRepo), auditSink, rbacMiddleware),
		AuditHandler:       audithttp.NewHandler(logger, audit.NewService(dbpool, cfg.AppQueryTimeout), rbacMiddleware),
		AntifraudHandler:   antifraud.NewHandler(logger, antifraud.NewService(dbpool, cfg.AppQueryTimeout, metrics, logger), rbacMiddleware),
		PaymentsHandler:    payments.NewHandler(logger, payments.NewService(dbpool, cfg.AppQueryTimeout, metrics, logger), rbacMiddleware),
		BolepixHandler:     bolepix.NewHandler(logger, bolepixClient, rbacMiddleware),
		JobHandler:         jobs.NewHandler(inspector, logger),
		Metrics:            metrics,
		ReadyChecks: []app.ReadyCheck{
			{Name: "postgres", Check: dbpool.Ping},
			{Name: "redis", Check: func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }},
		},
	})

	server := &http.Server{
		Addr:              cfg.AppAddr,
		Handler:           router,
		ReadTimeout:       cfg.AppReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("env", cfg.AppEnv))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
