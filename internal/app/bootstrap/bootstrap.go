// Package bootstrap is the composition root. Keep construction/wiring here
// so voteprocessing's module code stays framework-agnostic.
package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	voteprocessing "votepipeline/contexts/voteprocessing"
	postgresadapter "votepipeline/contexts/voteprocessing/adapters/postgres"
	rabbitmqadapter "votepipeline/contexts/voteprocessing/adapters/rabbitmq"
	redisadapter "votepipeline/contexts/voteprocessing/adapters/redis"
	"votepipeline/contexts/voteprocessing/application"
	"votepipeline/contexts/voteprocessing/application/validation"
	"votepipeline/internal/platform/config"
	"votepipeline/internal/platform/db"
	"votepipeline/internal/platform/httpserver"
	"votepipeline/internal/platform/retry"

	"github.com/redis/go-redis/v9"
)

// IngestionApp runs the stateless HTTP front-end.
type IngestionApp struct {
	server   *httpserver.Server
	postgres *db.Postgres
	redis    *redis.Client
	logger   *slog.Logger
}

// ValidatorApp runs the validation worker against both the law and
// election validation streams concurrently.
type ValidatorApp struct {
	postgres *db.Postgres
	redis    *redis.Client
	bus      *rabbitmqadapter.Bus
	worker   interface {
		Run(ctx context.Context, stream string, prefetch int) error
	}
	cache        *validation.ElectionWindowCache
	cacheRefresh time.Duration
	prefetch     int
	logger       *slog.Logger
}

// AggregatorApp runs the tally-batching consumer against the aggregation
// stream.
type AggregatorApp struct {
	postgres *db.Postgres
	bus      *rabbitmqadapter.Bus
	batcher  interface {
		Run(ctx context.Context, stream string, prefetch int) error
	}
	prefetch int
	logger   *slog.Logger
}

func BuildIngestion() (*IngestionApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := slog.Default().With("service", cfg.ServiceName, "process", "ingestion")
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}

	pg, err := db.Connect(cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}

	bus, err := rabbitmqadapter.Connect(cfg.RabbitMQURL, cfg.QueueMaxLength, logger)
	if err != nil {
		return nil, err
	}

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})

	repo := postgresadapter.NewRepository(pg.DB, logger, cfg.StatementTimeout)
	module := voteprocessing.NewModule(voteprocessing.Dependencies{
		Credentials:    redisadapter.NewCredentialStore(redisClient, cfg.DeduplicationCountTTL, logger),
		Audit:          repo,
		Tallies:        repo,
		Elections:      repo,
		Bus:            bus,
		Clock:          postgresadapter.SystemClock{},
		IDGen:          postgresadapter.UUIDGenerator{},
		ConfirmTimeout: cfg.PublishConfirmTimeout,
		Logger:         logger,
	})

	server := httpserver.New(module, logger, normalizeAddr(cfg.HTTPPort), cfg.IngestionRequestDeadline)
	return &IngestionApp{server: server, postgres: pg, redis: redisClient, logger: logger}, nil
}

func (a *IngestionApp) Run(_ context.Context) error {
	a.logger.Info("ingestion app started",
		"event", "bootstrap_ingestion_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
	)
	return a.server.Start()
}

func (a *IngestionApp) Close() error {
	if a.postgres != nil {
		if err := a.postgres.Close(); err != nil {
			return err
		}
	}
	if a.redis != nil {
		return a.redis.Close()
	}
	return nil
}

func BuildValidator() (*ValidatorApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := slog.Default().With("service", cfg.ServiceName, "process", "validator")
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}

	pg, err := db.Connect(cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})

	bus, err := rabbitmqadapter.Connect(cfg.RabbitMQURL, cfg.QueueMaxLength, logger)
	if err != nil {
		return nil, err
	}

	repo := postgresadapter.NewRepository(pg.DB, logger, cfg.StatementTimeout)
	credentials := redisadapter.NewCredentialStore(redisClient, cfg.DeduplicationCountTTL, logger)

	var cache *validation.ElectionWindowCache
	if cfg.EnforceElectionWindowInWorker {
		cache = validation.NewElectionWindowCache(repo)
		cache.Logger = logger
	}

	worker := voteprocessing.NewValidationWorker(voteprocessing.Dependencies{
		Credentials:           credentials,
		Audit:                 repo,
		Elections:             repo,
		Bus:                   bus,
		Clock:                 postgresadapter.SystemClock{},
		ConfirmTimeout:        cfg.PublishConfirmTimeout,
		WorkerMessageDeadline: cfg.WorkerMessageDeadline,
		EnforceElectionWindow: cfg.EnforceElectionWindowInWorker,
		Logger:                logger,
	})
	worker.Cache = cache

	return &ValidatorApp{
		postgres:     pg,
		redis:        redisClient,
		bus:          bus,
		worker:       worker,
		cache:        cache,
		cacheRefresh: cfg.ElectionWindowRefresh,
		prefetch:     cfg.WorkerPrefetch,
		logger:       logger,
	}, nil
}

// Run drives the law and election validation streams concurrently; each
// uses the same stateless Worker value.
func (a *ValidatorApp) Run(ctx context.Context) error {
	a.logger.Info("validator app started",
		"event", "bootstrap_validator_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"prefetch", a.prefetch,
	)
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return a.worker.Run(groupCtx, application.StreamValidationLaw, a.prefetch)
	})
	group.Go(func() error {
		return a.worker.Run(groupCtx, application.StreamValidationElection, a.prefetch)
	})
	if a.cache != nil {
		group.Go(func() error {
			return a.cache.Run(groupCtx, a.cacheRefresh)
		})
	}
	return group.Wait()
}

func (a *ValidatorApp) Close() error {
	if a.postgres != nil {
		if err := a.postgres.Close(); err != nil {
			return err
		}
	}
	if a.redis != nil {
		return a.redis.Close()
	}
	return nil
}

func BuildAggregator() (*AggregatorApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := slog.Default().With("service", cfg.ServiceName, "process", "aggregator")
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}

	pg, err := db.Connect(cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}

	bus, err := rabbitmqadapter.Connect(cfg.RabbitMQURL, cfg.QueueMaxLength, logger)
	if err != nil {
		return nil, err
	}

	repo := postgresadapter.NewRepository(pg.DB, logger, cfg.StatementTimeout)
	aggregator := voteprocessing.NewAggregator(voteprocessing.Dependencies{
		Tallies:        repo,
		Bus:            bus,
		BatchSize:      cfg.BatchSize,
		BatchInterval:  cfg.BatchInterval,
		ConfirmTimeout: cfg.PublishConfirmTimeout,
		RetryPolicy: retry.Policy{
			MaxAttempts: cfg.MaxRetry,
			BaseDelay:   cfg.RetryBaseDelay,
			Multiplier:  2,
			OnExhausted: retry.OnExhaustedToReview,
		},
		Logger: logger,
	})

	return &AggregatorApp{
		postgres: pg,
		bus:      bus,
		batcher:  aggregator,
		prefetch: max(cfg.WorkerPrefetch, cfg.BatchSize),
		logger:   logger,
	}, nil
}

func (a *AggregatorApp) Run(ctx context.Context) error {
	a.logger.Info("aggregator app started",
		"event", "bootstrap_aggregator_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"prefetch", a.prefetch,
	)
	return a.batcher.Run(ctx, application.StreamAggregation, a.prefetch)
}

func (a *AggregatorApp) Close() error {
	if a.postgres != nil {
		return a.postgres.Close()
	}
	return nil
}

func normalizeAddr(port string) string {
	value := strings.TrimSpace(port)
	if value == "" {
		return ":8080"
	}
	if strings.HasPrefix(value, ":") {
		return value
	}
	return ":" + value
}
