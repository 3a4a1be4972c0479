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

	"github.com/odyssey-hr/odyssey-hr/internal/access"
	"github.com/odyssey-hr/odyssey-hr/internal/app"
	"github.com/odyssey-hr/odyssey-hr/internal/observability"
	"github.com/odyssey-hr/odyssey-hr/internal/platform/cache"
	"github.com/odyssey-hr/odyssey-hr/internal/platform/db"
	"github.com/odyssey-hr/odyssey-hr/internal/principals"
	"github.com/odyssey-hr/odyssey-hr/internal/rbac"
	"github.com/odyssey-hr/odyssey-hr/internal/shared"
	"github.com/odyssey-hr/odyssey-hr/jobs"
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

	if err := run(ctx, cfg, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server exited", slog.Any("error", err))
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
		return err
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	sessionManager := shared.NewSessionManager(redisClient, cfg.SessionCookie, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	service := access.NewService(access.DefaultRegistry(), access.DefaultLandingPaths())
	principalCache := principals.NewCache(redisClient, cfg.PrincipalCacheTTL).WithLogger(logger)
	loader := principals.NewLoader(principals.NewRepository(dbpool), principalCache, logger)

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	jobClient := jobs.NewClient(redisOpts)
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

	rbacMiddleware := rbac.Middleware{
		Service:          service,
		Loader:           loader,
		Logger:           logger,
		Metrics:          metrics,
		LoginPath:        cfg.LoginPath,
		UnauthorizedPath: cfg.UnauthorizedPath,
	}
	router, err := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		SessionManager: sessionManager,
		CSRFManager:    csrfManager,
		RBACMiddleware: rbacMiddleware,
		AccessHandler:  rbac.NewHandler(logger, service, access.DefaultMenu(), jobClient, csrfManager, rbacMiddleware).WithAudit(shared.NewAuditLogger(dbpool)),
		JobHandler:     jobs.NewHandler(inspector, logger),
		Metrics:        metrics,
	})
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return principalCache.ListenForInvalidation(ctx, func(version int64) {
			logger.Info("principal cache version bumped", slog.Int64("version", version))
		})
	})
	g.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
