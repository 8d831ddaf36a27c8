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

	"github.com/vicops/vicops/internal/app"
	"github.com/vicops/vicops/internal/auth"
	"github.com/vicops/vicops/internal/incidents"
	"github.com/vicops/vicops/internal/observability"
	"github.com/vicops/vicops/internal/platform/cache"
	"github.com/vicops/vicops/internal/platform/db"
	"github.com/vicops/vicops/internal/rbac"
	"github.com/vicops/vicops/internal/shared"
	"github.com/vicops/vicops/internal/users"
	"github.com/vicops/vicops/internal/workorders"
	"github.com/vicops/vicops/jobs"
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

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "vicops_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	tokenManager := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTTTL)
	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(authRepo, tokenManager)

	rbacRepo := rbac.NewRepository(dbpool)
	permCache := rbac.NewPermissionCache(rbacRepo, redisClient, cfg.AuthzCacheTTL, logger)
	evaluator := rbac.NewEvaluator(permCache, logger)
	metrics := observability.NewMetrics()
	rbacMiddleware := rbac.Middleware{Evaluator: evaluator, Logger: logger, Metrics: metrics}
	rbacService := rbac.NewService(rbacRepo, permCache, logger)

	routeTable, err := app.NewRouteTable()
	if err != nil {
		logger.Error("compile route table", slog.Any("error", err))
		os.Exit(1)
	}

	authHandler := auth.NewHandler(logger, authService, permCache, sessionManager)
	usersHandler := users.NewHandler(logger, users.NewService(users.NewRepository(dbpool)), rbacMiddleware)
	workOrdersHandler := workorders.NewHandler(logger, workorders.NewService(workorders.NewRepository(dbpool)), rbacMiddleware)
	incidentsHandler := incidents.NewHandler(logger, incidents.NewService(incidents.NewRepository(dbpool)), rbacMiddleware)
	rbacHandler := rbac.NewHandler(logger, rbacService, rbacMiddleware)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobsClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init jobs client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobsClient.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()
	jobsHandler := jobs.NewHandler(inspector, jobsClient, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		SessionManager:    sessionManager,
		CSRFManager:       csrfManager,
		AuthService:       authService,
		AuthHandler:       authHandler,
		UsersHandler:      usersHandler,
		WorkOrdersHandler: workOrdersHandler,
		IncidentsHandler:  incidentsHandler,
		RBACHandler:       rbacHandler,
		JobsHandler:       jobsHandler,
		RBACMiddleware:    rbacMiddleware,
		RouteTable:        routeTable,
		Metrics:           metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
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
