package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/devilmonastery/bnetsso/internal/config"
	"github.com/devilmonastery/bnetsso/internal/domain/repositories"
	"github.com/devilmonastery/bnetsso/internal/infrastructure/database/postgres"
	"github.com/devilmonastery/bnetsso/internal/infrastructure/kv"
	"github.com/devilmonastery/bnetsso/internal/infrastructure/memory"
	"github.com/devilmonastery/bnetsso/migrations"
)

// backend is the set of stores selected by configuration
type backend struct {
	repositories.Repositories

	pg       *postgres.Connection
	checkers map[string]repositories.HealthChecker
	closers  []func() error
}

// Close releases every connection the backend opened
func (b *backend) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			slog.Default().Warn("error closing backend", slog.String("error", err.Error()))
		}
	}
}

// HealthCheck runs every store's health check
func (b *backend) HealthCheck(ctx context.Context) error {
	for name, c := range b.checkers {
		if err := c.HealthCheck(ctx); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

// openBackend connects the configured stores. Accounts live in PostgreSQL
// unless the memory backend is selected.
func openBackend(ctx context.Context, cfg *config.Config, migrate bool) (*backend, error) {
	log := slog.Default().With("component", "backend")
	b := &backend{checkers: map[string]repositories.HealthChecker{}}

	if cfg.Associations.Backend == config.BackendMemory {
		log.Warn("using in-memory stores, accounts will not survive a restart")
		b.Users = memory.NewUserRepository()
		b.Associations = memory.NewAssociationStore()
		return b, nil
	}

	pg, err := connectPostgres(cfg.Database.Postgres, log)
	if err != nil {
		return nil, err
	}
	b.pg = pg
	b.closers = append(b.closers, pg.Close)
	b.checkers["postgres"] = pg

	if migrate {
		if err := pg.RunMigrations(migrations.FS); err != nil {
			b.Close()
			return nil, fmt.Errorf("failed to run PostgreSQL migrations: %w", err)
		}
	}

	b.Users = postgres.NewUserRepository(pg.DB)

	switch cfg.Associations.Backend {
	case config.BackendRedis:
		store, err := kv.NewAssociationStore(ctx, kv.Config{
			Addr:      cfg.Redis.Addr,
			Username:  cfg.Redis.Username,
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			KeyPrefix: cfg.Redis.KeyPrefix,
		})
		if err != nil {
			b.Close()
			return nil, err
		}
		log.Info("using redis association store", slog.String("addr", cfg.Redis.Addr))
		b.Associations = store
		b.closers = append(b.closers, store.Close)
		b.checkers["redis"] = store
	default:
		b.Associations = postgres.NewAssociationRepository(pg.DB)
	}

	return b, nil
}

// connectPostgres connects with retries so the server can start alongside
// its database
func connectPostgres(cfg config.PostgresConfig, log *slog.Logger) (*postgres.Connection, error) {
	log.Info("connecting to PostgreSQL",
		"user", cfg.User,
		"host", cfg.Host,
		"database", cfg.Database)

	maxRetries := 10
	retryDelay := 2 * time.Second

	var lastErr error
	for i := 0; i < maxRetries; i++ {
		conn, err := postgres.NewConnection(cfg.ConnectionString())
		if err == nil {
			log.Info("successfully connected to PostgreSQL")
			return conn, nil
		}
		lastErr = err

		if i < maxRetries-1 {
			log.Warn("failed to connect to PostgreSQL",
				"attempt", i+1,
				"max_retries", maxRetries,
				"error", err,
				"retry_delay", retryDelay)
			time.Sleep(retryDelay)
			retryDelay *= 2
			if retryDelay > 30*time.Second {
				retryDelay = 30 * time.Second
			}
		}
	}
	return nil, fmt.Errorf("failed to connect to PostgreSQL after %d attempts: %w", maxRetries, lastErr)
}
