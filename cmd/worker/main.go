package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/milsim-hq/rosterd/internal/app"
	jobmetrics "github.com/milsim-hq/rosterd/internal/jobs"
	"github.com/milsim-hq/rosterd/internal/panel"
	"github.com/milsim-hq/rosterd/internal/platform/cache"
	"github.com/milsim-hq/rosterd/internal/platform/db"
	"github.com/milsim-hq/rosterd/internal/roles"
	"github.com/milsim-hq/rosterd/internal/shared"
	"github.com/milsim-hq/rosterd/internal/whitelist"
	"github.com/milsim-hq/rosterd/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
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
	localSource := whitelist.NewFileSource(cfg.WhitelistFile)
	fileStore := whitelist.NewFileStore(localSource, codec, registry, cfg.IdentifierLength, logger)

	var (
		pool  *pgxpool.Pool
		repo  whitelist.RepositoryPort
		audit *shared.AuditLogger
	)
	if cfg.PGDSN != "" {
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
	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, caching disabled", slog.Any("error", err))
	} else {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
		wlCache = whitelist.NewCache(redisClient, cfg.CacheTTL)
	}

	service := whitelist.NewService(registry, repo, fileStore, wlCache, audit, logger, whitelist.ServiceConfig{
		IdentifierLength: cfg.IdentifierLength,
	})

	var remote whitelist.Source
	var mirror whitelist.Source
	if cfg.PanelConfigured() {
		client := panel.NewClient(cfg.PanelURL, cfg.PanelToken, cfg.PanelServerID, cfg.PanelTimeout)
		remote = panel.NewRemoteSource(client, cfg.PanelFilePath)
		mirror = localSource
	}
	syncer := jobs.NewSyncer(service, codec, remote, mirror, logger, jobmetrics.NewMetrics(nil))

	var cron []jobs.CronRegistration
	if remote != nil {
		syncTask, err := jobs.NewRemoteSyncTask("schedule")
		if err != nil {
			logger.Error("build sync task", slog.Any("error", err))
			os.Exit(1)
		}
		cron = append(cron, jobs.CronRegistration{
			Spec:    "@every " + cfg.SyncInterval.String(),
			Task:    syncTask,
			Options: []asynq.Option{asynq.MaxRetry(3)},
		})
	}
	warmTask, err := jobs.NewCacheWarmTask()
	if err != nil {
		logger.Error("build cache warm task", slog.Any("error", err))
		os.Exit(1)
	}
	cron = append(cron, jobs.CronRegistration{
		Spec:    "@every " + cfg.CacheTTL.String(),
		Task:    warmTask,
		Options: []asynq.Option{asynq.MaxRetry(1)},
	})

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers:  syncer.Handlers(),
		Cron:      cron,
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}

func buildRegistry(cfg *app.Config) (*roles.Registry, error) {
	if cfg.RoleSpec != "" {
		return roles.ParseSpec(cfg.RoleSpec)
	}
	return roles.NewRegistry(roles.Defaults())
}
