package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"beacon/internal/config"
	"beacon/pkg/e"
)

type Postgres struct {
	Pool     *pgxpool.Pool
	Incident IncidentRepository
	ChatRepo ChatRepository
	Stat     StatsRepository
}

func NewPostgres(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Postgres, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Postgres.Host,
		cfg.Postgres.Port,
		cfg.Postgres.User,
		cfg.Postgres.Password,
		cfg.Postgres.Database,
		cfg.Postgres.SSLMode,
	)

	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		logger.Error("Failed to parse pgx config", slog.String("error", err.Error()))
		return nil, e.Wrap("storage.pg.NewPostgres.ParseConfig", err)
	}
	poolCfg.MaxConns = cfg.Postgres.MaxConns
	poolCfg.MinConns = cfg.Postgres.MinConns
	poolCfg.MaxConnLifetime = cfg.Postgres.MaxConnLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		logger.Error("Failed to create pgx pool", slog.String("error", err.Error()))
		return nil, e.Wrap("storage.pg.NewPostgres.NewWithConfig", err)
	}

	if err := pool.Ping(ctx); err != nil {
		logger.Error("Failed to ping Postgres", slog.String("error", err.Error()))
		pool.Close()
		return nil, e.Wrap("storage.pg.NewPostgres.Ping", err)
	}
	logger.Info("Connected to Postgres")

	if err := EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, e.Wrap("storage.pg.NewPostgres.EnsureSchema", err)
	}

	return &Postgres{
		Pool:     pool,
		Incident: NewIncidentRepo(pool, logger),
		ChatRepo: NewChatRepo(pool, logger),
		Stat:     NewStats(pool, logger),
	}, nil
}

// EnsureSchema creates the tables and the indexes backing the common read
// filters: (status, reported_at) and (type, reported_at).
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	const schema = `
CREATE TABLE IF NOT EXISTS incidents (
	id          UUID PRIMARY KEY,
	type        TEXT NOT NULL,
	lat         DOUBLE PRECISION NOT NULL,
	lng         DOUBLE PRECISION NOT NULL,
	description TEXT NOT NULL,
	status      TEXT NOT NULL DEFAULT 'pending',
	reported_at TIMESTAMPTZ NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_incidents_status_reported_at ON incidents (status, reported_at DESC);
CREATE INDEX IF NOT EXISTS idx_incidents_type_reported_at   ON incidents (type, reported_at DESC);

CREATE TABLE IF NOT EXISTS chat_messages (
	id      UUID PRIMARY KEY,
	sender  TEXT NOT NULL,
	body    TEXT NOT NULL,
	sent_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_chat_messages_sent_at ON chat_messages (sent_at DESC);
`
	_, err := pool.Exec(ctx, schema)
	return err
}
