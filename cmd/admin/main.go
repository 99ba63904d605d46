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

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/commerce-admin/internal/app"
	"github.com/odyssey-erp/commerce-admin/internal/audit"
	"github.com/odyssey-erp/commerce-admin/internal/auth"
	jobmetrics "github.com/odyssey-erp/commerce-admin/internal/jobs"
	"github.com/odyssey-erp/commerce-admin/internal/observability"
	"github.com/odyssey-erp/commerce-admin/internal/permissions"
	"github.com/odyssey-erp/commerce-admin/internal/platform/cache"
	"github.com/odyssey-erp/commerce-admin/internal/platform/db"
	"github.com/odyssey-erp/commerce-admin/internal/rbac"
	"github.com/odyssey-erp/commerce-admin/internal/roles"
	"github.com/odyssey-erp/commerce-admin/internal/shared"
	"github.com/odyssey-erp/commerce-admin/internal/token"
	"github.com/odyssey-erp/commerce-admin/internal/users"
	"github.com/odyssey-erp/commerce-admin/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig(".env")
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	if err := run(ctx, cfg, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("admin server", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *app.Config, logger *slog.Logger) error {
	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		return err
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable at startup", slog.Any("error", err))
	} else {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	tokens, err := token.NewService(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		return err
	}
	metrics := observability.NewMetrics()
	auditLog := shared.NewAuditLogger(dbpool)

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	jobClient := jobs.NewClient(redisOpts, jobmetrics.NewMetrics(metrics.Registerer()))
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	authRepo := auth.NewRepository(dbpool)
	rbacMiddleware := rbac.Middleware{Tokens: tokens, Principals: authRepo, Logger: logger, Observer: metrics}

	permissionService := permissions.NewService(permissions.NewRepository(dbpool), auditLog, logger)
	roleService := roles.NewService(roles.NewRepository(dbpool), permissionService, auditLog, logger)
	userService := users.NewService(users.NewRepository(dbpool), roleService, auditLog, logger)
	authService := auth.NewService(auth.Config{
		Repo:        authRepo,
		Roles:       roleService,
		Tokens:      tokens,
		Welcome:     jobClient,
		Observer:    metrics,
		Audit:       auditLog,
		Logger:      logger,
		DefaultRole: cfg.DefaultRole,
	})

	readiness := []app.ReadinessCheck{
		{Name: "postgres", Check: dbpool.Ping},
	}
	if redisClient != nil {
		readiness = append(readiness, app.ReadinessCheck{Name: "redis", Check: func(ctx context.Context) error {
			return cache.Ping(ctx, redisClient)
		}})
	}

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		RBACMiddleware:     rbacMiddleware,
		AuthHandler:        auth.NewHandler(logger, authService),
		PermissionsHandler: permissions.NewHandler(logger, permissionService, rbacMiddleware),
		RolesHandler:       roles.NewHandler(logger, roleService, rbacMiddleware),
		UsersHandler:       users.NewHandler(logger, userService, rbacMiddleware),
		AuditHandler:       audit.NewHandler(logger, audit.NewService(audit.NewRepository(dbpool)), rbacMiddleware),
		JobHandler:         jobs.NewHandler(inspector, logger),
		Readiness:          readiness,
		Metrics:            metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("prefix", cfg.APIPrefix))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
