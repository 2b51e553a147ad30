package bootstrap

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/rentflow/checkout/internal/config"
	"github.com/rentflow/checkout/internal/observability"
	"github.com/rentflow/checkout/internal/pending"
)

// App carries the shared runtime pieces every binary needs: config, logger,
// metrics and the configured pending store with its connections.
type App struct {
	Config  *config.Config
	Logger  zerolog.Logger
	Metrics *observability.Metrics
	Store   pending.Store

	pool  *pgxpool.Pool
	redis *redis.Client
}

func New(ctx context.Context, serviceName, metricsNamespace string) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger := observability.InitLogger(cfg.Observability.LogLevel, os.Stdout)
	logger.Info().Str("service", serviceName).Str("instance", cfg.InstanceID).Msg("Starting")

	if cfg.Observability.EnableTracing {
		tp, err := observability.InitTracer(serviceName, cfg.Observability.JaegerEndpoint)
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to initialize tracer, continuing without tracing")
		} else {
			go func() {
				<-ctx.Done()
				observability.Shutdown(context.Background(), tp)
			}()
			logger.Info().Msg("Tracing enabled")
		}
	}

	metrics := observability.NewMetrics(metricsNamespace, nil)

	app := &App{
		Config:  cfg,
		Logger:  logger,
		Metrics: metrics,
	}

	switch cfg.Pending.Store {
	case "redis":
		client, err := pending.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		app.redis = client
		app.Store = pending.NewRedisStore(client, 0)
		logger.Info().Msg("Pending store: redis")
	case "postgres":
		pool, err := pending.NewPool(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		app.pool = pool
		app.Store = pending.NewPostgresStore(pool)
		logger.Info().Msg("Pending store: postgres")
	default:
		app.Store = pending.NewMemoryStore()
		logger.Info().Msg("Pending store: memory")
	}

	return app, nil
}

func (a *App) Close() {
	if a.redis != nil {
		a.redis.Close()
	}
	if a.pool != nil {
		a.pool.Close()
	}
}
