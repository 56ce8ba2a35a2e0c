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
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/milsim-hq/rosterd/internal/app"
	"github.com/milsim-hq/rosterd/internal/auth"
	"github.com/milsim-hq/rosterd/internal/observability"
	"github.com/milsim-hq/rosterd/internal/panel"
	"github.com/milsim-hq/rosterd/internal/platform/cache"
	"github.com/milsim-hq/rosterd/internal/platform/db"
	"github.com/milsim-hq/rosterd/internal/roles"
	"github.com/milsim-hq/rosterd/internal/shared"
	"github.com/milsim-hq/rosterd/internal/whitelist"
	wlhttp "github.com/milsim-hq/rosterd/internal/whitelist/http"
	"github.com/milsim-hq/rosterd/jobs"
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

	registry, err := buildRegistry(cfg)
	if err != nil {
		logger.Error("build role registry", slog.Any("error", err))
		os.Exit(1)
	}
	codec := whitelist.NewCodec(registry)

	// The file backend edits the local script file directly, or the remote
	// copy through the hosting panel when one is configured.
	var source whitelist.Source = whitelist.NewFileSource(cfg.WhitelistFile)
	if cfg.PanelConfigured() {
		client := panel.NewClient(cfg.PanelURL, cfg.PanelToken, cfg.PanelServerID, cfg.PanelTimeout)
		source = panel.NewRemoteSource(client, cfg.PanelFilePath)
		logger.Info("hosting panel bridge configured",
			slog.String("server_id", cfg.PanelServerID),
			slog.String("path", cfg.PanelFilePath),
		)
	}
	fileStore := whitelist.NewFileStore(source, codec, registry, cfg.IdentifierLength, logger)

	var (
		pool  *pgxpool.Pool
		repo  whitelist.RepositoryPort
		audit *shared.AuditLogger
	)
	if cfg.PGDSN == "" {
		logger.Info("no PG_DSN configured, running file-only")
	} else {
		pool, err = db.New(ctx, cfg.PGDSN)
		if err != nil {
			logger.Error("connect postgres", slog.Any("error", err))
			os.Exit(1)
		}
		defer pool.Close()
		repo = whitelist.NewRepository(pool)
		audit = shared.NewAuditLogger(pool, logger)
	}

	var wlCache *whitelist.Cache
	if pool != nil {
		redisClient, err := cache.New(ctx, cfg.RedisAddr)
		if err != nil {
			logger.Warn("redis unavailable, serving uncached", slog.Any("error", err))
		} else {
			defer func() {
				if err := redisClient.Close(); err != nil {
					logger.Warn("redis close", slog.Any("error", err))
				}
			}()
			wlCache = whitelist.NewCache(redisClient, cfg.CacheTTL)
		}
	}

	service := whitelist.NewService(registry, repo, fileStore, wlCache, audit, logger, whitelist.ServiceConfig{
		IdentifierLength: cfg.IdentifierLength,
	})

	metrics := observability.NewMetrics()
	guard := auth.NewTokenGuard(cfg.APITokenHash, logger)
	if !guard.Enabled() {
		logger.Warn("api token hash not set, operator api is unauthenticated")
	}

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		Pool:             pool,
		Guard:            guard,
		WhitelistHandler: wlhttp.NewHandler(logger, service, metrics),
		JobsHandler:      jobs.NewHandler(inspector, logger),
		Metrics:          metrics,
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

func buildRegistry(cfg *app.Config) (*roles.Registry, error) {
	if cfg.RoleSpec != "" {
		return roles.ParseSpec(cfg.RoleSpec)
	}
	return roles.NewRegistry(roles.Defaults())
}
