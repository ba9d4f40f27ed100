package components

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jonboulle/clockwork"

	"beacon/internal/api"
	"beacon/internal/api/ws"
	"beacon/internal/config"
	"beacon/internal/observability"
	"beacon/internal/pubsub"
	"beacon/internal/redis"
	"beacon/internal/service"
	"beacon/internal/storage/memory"
	"beacon/internal/storage/postgres"
)

type Components struct {
	logger      *slog.Logger
	HttpServer  *api.Server
	Postgres    *postgres.Postgres
	Redis       *redis.Redis
	AlertSender *service.AlertSender
}

// InitComponents wires the process: storage backend, registry, dispatcher,
// services, transports. Any dependency that cannot come up fails the boot;
// there are no degraded stub clients.
func InitComponents(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Components, error) {
	clock := clockwork.NewRealClock()
	metrics := observability.NewMetrics()

	var (
		incidents service.IncidentRepository
		chat      service.ChatRepository
		stats     service.StatsRepository
		pg        *postgres.Postgres
	)

	switch cfg.Storage.Backend {
	case config.BackendMemory:
		logger.Info("Using in-memory storage backend")
		store := memory.NewStore()
		incidents, chat, stats = store, store, store
	default:
		logger.Info("Initializing Postgres")
		var err error
		pg, err = postgres.NewPostgres(ctx, cfg, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to init postgres: %w", err)
		}
		incidents = pg.Incidents()
		chat = pg.Chat()
		stats = pg.Stats()
	}

	var (
		rds        *redis.Redis
		alertQueue *redis.AlertQueue
		cache      service.IncidentCache
		alerts     service.AlertQueue
	)
	if cfg.Storage.Backend == config.BackendPostgres {
		logger.Info("Initializing Redis")
		var err error
		rds, err = redis.NewRedis(ctx, cfg, logger)
		if err != nil {
			if pg != nil {
				pg.Pool.Close()
			}
			return nil, fmt.Errorf("failed to init redis: %w", err)
		}
		cache = redis.NewIncidentCache(rds)
		alertQueue = redis.NewAlertQueue(rds.Client, "alerts:queue")
		alerts = alertQueue
	}

	registry := pubsub.NewRegistry()
	dispatcher := pubsub.NewDispatcher(registry, logger, pubsub.DispatcherConfig{
		MaxAttempts:    cfg.Dispatch.MaxAttempts,
		AttemptTimeout: cfg.Dispatch.AttemptTimeout,
		RetryBackoff:   cfg.Dispatch.RetryBackoff,
	}, clock, metrics)

	ingestSvc := service.NewIngestService(incidents, dispatcher, alerts, cache, logger, cfg.Ingest, clock, metrics)
	incidentSvc := service.NewIncidentService(incidents, dispatcher, cache, logger)
	chatSvc := service.NewChatService(chat, dispatcher, logger)
	statsSvc := service.NewStatsService(stats)

	svc := service.NewService(ingestSvc, incidentSvc, chatSvc, statsSvc)

	wsHandler := ws.NewHandler(registry, logger, cfg.WS, clock, metrics)
	httpServer := api.NewServer(cfg, logger, svc, wsHandler)

	comps := &Components{
		logger:     logger,
		HttpServer: httpServer,
		Postgres:   pg,
		Redis:      rds,
	}

	if alertQueue != nil && !cfg.Webhook.Disabled {
		comps.AlertSender = service.NewAlertSender(logger, cfg.Webhook, alertQueue, clock, metrics)
	}

	logger.Info("Components initialized", slog.String("storage", cfg.Storage.Backend))
	return comps, nil
}

func SetupLogger(env string) *slog.Logger {
	switch env {
	case "local":
		return slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
				Level: slog.LevelDebug,
			}),
		)
	case "dev":
		return slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level: slog.LevelDebug,
			}),
		)
	default:
		return slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level: slog.LevelInfo,
			}),
		)
	}
}

func (c *Components) ShutdownAll() {
	start := time.Now()
	c.logger.Info("Shutting down components")

	if c.Postgres != nil {
		c.Postgres.Pool.Close()
	}
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			c.logger.Error("Redis close failed", slog.String("err", err.Error()))
		}
	}

	c.logger.Info("Components stopped", slog.Duration("latency", time.Since(start)))
}
