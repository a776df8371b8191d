// Package bootstrap wires stores, dispatchers and the engine from configuration.
// Both the API server and the cron runner start through it.
package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"consolerent-backend/internal/clock"
	"consolerent-backend/internal/config"
	"consolerent-backend/internal/logger"
	"consolerent-backend/internal/metrics"
	"consolerent-backend/internal/notify"
	"consolerent-backend/internal/repository"
	"consolerent-backend/internal/repository/memory"
	"consolerent-backend/internal/repository/postgres"
	"consolerent-backend/internal/repository/redisstore"
	"consolerent-backend/internal/service"
)

const connectTimeout = 5 * time.Second

// Pinger is satisfied by stores that can report their health.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Runtime struct {
	Engine     *service.Engine
	Health     Pinger
	Dispatcher notify.Dispatcher
	closers    []func() error
}

// Close releases connections in reverse order of creation. It is safe on a nil Runtime.
func (rt *Runtime) Close() error {
	if rt == nil {
		return nil
	}
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Build opens the configured stores and assembles the engine. On error,
// anything already opened is closed.
func Build(ctx context.Context, cfg *config.Config, m *metrics.Metrics, clk clock.Clock) (*Runtime, error) {
	rt := &Runtime{}
	fail := func(err error) (*Runtime, error) {
		if cerr := rt.Close(); cerr != nil {
			logger.Warn("Failed to close partially built runtime", "error", cerr)
		}
		return nil, err
	}

	repos, err := rt.openStore(ctx, cfg)
	if err != nil {
		return fail(err)
	}
	if cfg.Engine.SoftLockStore == "redis" {
		locks, err := rt.openRedis(ctx, cfg.Redis)
		if err != nil {
			return fail(err)
		}
		repos.SoftLocks = locks
	}

	rt.Dispatcher = rt.openDispatcher(cfg, clk)
	rt.Engine = service.NewEngine(repos, rt.Dispatcher, clk, m, service.OptionsFromConfig(cfg))
	return rt, nil
}

func (rt *Runtime) openStore(ctx context.Context, cfg *config.Config) (repository.Set, error) {
	if cfg.Engine.Store != "postgres" {
		logger.Info("Using in-memory store")
		return memory.NewStore().Set(), nil
	}

	logger.Debug("Connecting to database...", "host", cfg.Database.Host, "port", cfg.Database.Port, "database", cfg.Database.Database)
	db, err := sql.Open("postgres", cfg.GetDatabaseConnectionString())
	if err != nil {
		return repository.Set{}, fmt.Errorf("failed to open database: %w", err)
	}
	rt.closers = append(rt.closers, db.Close)

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		return repository.Set{}, fmt.Errorf("failed to ping database: %w", err)
	}
	logger.Info("Database connection established")

	if cfg.Database.MigrateOnBoot {
		if err := postgres.Migrate(db); err != nil {
			return repository.Set{}, err
		}
	}

	store := postgres.NewStore(db)
	rt.Health = store
	return store.Set(), nil
}

func (rt *Runtime) openRedis(ctx context.Context, cfg config.RedisConfig) (*redisstore.SoftLockRepository, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	rt.closers = append(rt.closers, client.Close)

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis at %s: %w", cfg.Addr, err)
	}
	logger.Info("Soft locks stored in redis", "addr", cfg.Addr)
	return redisstore.NewSoftLockRepository(client), nil
}

func (rt *Runtime) openDispatcher(cfg *config.Config, clk clock.Clock) notify.Dispatcher {
	if cfg.Notifications.Dispatcher != "kafka" {
		return notify.NewLogDispatcher()
	}
	kd := notify.NewKafkaDispatcher(cfg.Kafka.Brokers, cfg.Kafka.Topic, clk)
	rt.closers = append(rt.closers, kd.Close)
	logger.Info("Publishing notifications to kafka", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topic)
	return notify.NewBreakerDispatcher(kd, notify.BreakerSettings{
		Name:                "kafka-notifications",
		ConsecutiveFailures: cfg.Notifications.BreakerFailures,
		OpenTimeout:         cfg.BreakerTimeoutDuration(),
		HalfOpenRequests:    cfg.Notifications.BreakerHalfOpen,
	})
}
