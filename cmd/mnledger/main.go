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

	"github.com/odyssey-erp/mnledger/internal/app"
	"github.com/odyssey-erp/mnledger/internal/audit"
	"github.com/odyssey-erp/mnledger/internal/costing"
	"github.com/odyssey-erp/mnledger/internal/indents"
	"github.com/odyssey-erp/mnledger/internal/ledger"
	"github.com/odyssey-erp/mnledger/internal/observability"
	"github.com/odyssey-erp/mnledger/internal/platform/cache"
	"github.com/odyssey-erp/mnledger/internal/platform/db"
	"github.com/odyssey-erp/mnledger/internal/procurement"
	"github.com/odyssey-erp/mnledger/internal/rbac"
	"github.com/odyssey-erp/mnledger/internal/requests"
	"github.com/odyssey-erp/mnledger/internal/users"
	"github.com/odyssey-erp/mnledger/jobs"
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

	pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool); err != nil {
		logger.Error("migrate schema", slog.Any("error", err))
		os.Exit(1)
	}

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		// The ledger cache is optional; reads fall back to recomputation.
		logger.Warn("redis unavailable, ledger cache disabled", slog.Any("error", err))
		redisClient = nil
	}
	if redisClient != nil {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	metrics := observability.NewMetrics()
	services := app.NewServices(cfg, pool, redisClient, metrics, logger)

	if created, err := services.Users.EnsureAdmin(ctx, cfg.AdminUsername, cfg.AdminPassword); err != nil {
		logger.Error("bootstrap administrator", slog.Any("error", err))
		os.Exit(1)
	} else if created {
		logger.Info("bootstrap administrator created", slog.String("username", cfg.AdminUsername))
	}

	rbacMiddleware := rbac.Middleware{Auth: services.Users, Logger: logger}

	var jobHandler *jobs.Handler
	if redisClient != nil {
		redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
		inspector := asynq.NewInspector(redisOpts)
		defer inspector.Close()
		jobClient, err := jobs.NewClient(redisOpts, cfg.UtilizationAlertPct)
		if err != nil {
			logger.Error("init job client", slog.Any("error", err))
			os.Exit(1)
		}
		defer jobClient.Close()
		jobHandler = jobs.NewHandler(inspector, jobClient, logger, rbacMiddleware)
	} else {
		jobHandler = jobs.NewHandler(nil, nil, logger, rbacMiddleware)
	}

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		RBACMiddleware:     rbacMiddleware,
		CostingHandler:     costing.NewHandler(logger, services.Costing, rbacMiddleware),
		LedgerHandler:      ledger.NewHandler(logger, services.Ledger, rbacMiddleware),
		RequestsHandler:    requests.NewHandler(logger, services.Requests, rbacMiddleware),
		ProcurementHandler: procurement.NewHandler(logger, services.Procurement),
		IndentsHandler:     indents.NewHandler(logger, services.Indents),
		UsersHandler:       users.NewHandler(logger, services.Users, rbacMiddleware),
		AuditHandler:       audit.NewHandler(logger, services.Audit, rbacMiddleware),
		JobHandler:         jobHandler,
		Metrics:            metrics,
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
