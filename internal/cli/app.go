package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"gitlab.com/testhub.net/internal/adapter/httprunner"
	"gitlab.com/testhub.net/internal/adapter/lock"
	"gitlab.com/testhub.net/internal/adapter/memory"
	"gitlab.com/testhub.net/internal/adapter/metrics"
	"gitlab.com/testhub.net/internal/adapter/redis/lockport"
	"gitlab.com/testhub.net/internal/adapter/redis/reportport"
	"gitlab.com/testhub.net/internal/adapter/s3archive"
	"gitlab.com/testhub.net/internal/adapter/sqlstore"
	"gitlab.com/testhub.net/internal/config"
	"gitlab.com/testhub.net/internal/core/ports/primary"
	"gitlab.com/testhub.net/internal/core/ports/secondary"
	"gitlab.com/testhub.net/internal/core/services/execution"
	"gitlab.com/testhub.net/internal/core/services/module"
	"gitlab.com/testhub.net/internal/core/services/suite"
	"gitlab.com/testhub.net/internal/core/services/testcase"
	"gitlab.com/testhub.net/internal/executionengine"
)

// App holds the wired services of one process.
type App struct {
	cfg    *config.AppConfig
	logger primary.Logger

	store       secondary.Store
	redisClient *redis.Client
	publisher   *reportport.ReportPublisher
	metrics     *metrics.Metrics
	engine      *executionengine.ExecutionEngine

	moduleService    *module.ModuleService
	testCaseService  *testcase.TestCaseService
	suiteService     *suite.SuiteService
	executionService *execution.ExecutionService
}

func NewApp(ctx context.Context, cfg *config.AppConfig, logger primary.Logger) (*App, error) {
	app := &App{cfg: cfg, logger: logger, metrics: metrics.New()}

	store, err := openStore(ctx, cfg.DatabaseConfig, logger)
	if err != nil {
		return nil, err
	}
	app.store = store

	// SECONDARY PORTS
	var locker secondary.Locker = lock.NewKeyedLocker()
	var execOptions []execution.Option
	if cfg.RedisConfig.Enabled {
		client, err := openRedis(ctx, cfg.RedisConfig, logger)
		if err != nil {
			app.Close()
			return nil, err
		}
		app.redisClient = client
		locker = lockport.NewLocker(client, cfg.RedisConfig.LockTTL, logger)
		app.publisher = reportport.NewReportPublisher(client, cfg.RedisConfig.Channel, logger)
		execOptions = append(execOptions, execution.WithPublisher(app.publisher))
	}
	if cfg.ArchiveConfig.Enabled {
		archiver, err := s3archive.New(ctx, cfg.ArchiveConfig, logger)
		if err != nil {
			app.Close()
			return nil, err
		}
		execOptions = append(execOptions, execution.WithArchiver(archiver))
	}
	execOptions = append(execOptions, execution.WithMetrics(app.metrics))

	app.engine = executionengine.NewExecutionEngine(cfg.ExecutionConfig, logger)
	app.metrics.WatchQueue(app.engine.Queued, app.engine.Active)
	runner := httprunner.NewRunner(cfg.ExecutionConfig, logger)

	//services
	app.moduleService = module.NewModuleService(store, locker, logger)
	app.testCaseService = testcase.NewTestCaseService(store, locker, logger,
		testcase.WithStrictBatch(cfg.ExecutionConfig.BatchDeleteStrict))
	app.suiteService = suite.NewSuiteService(store, locker, logger)
	app.executionService = execution.NewExecutionService(store, app.engine, runner, logger, execOptions...)
	return app, nil
}

func openStore(ctx context.Context, cfg *config.DatabaseConfig, logger primary.Logger) (secondary.Store, error) {
	if cfg.Driver == config.DriverMemory {
		logger.Warn("Using the in-memory store, data is lost on exit")
		return memory.NewStore(), nil
	}

	store, err := sqlstore.Open(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	if cfg.AutoMigrate {
		if err := store.Migrate(ctx); err != nil {
			_ = store.Close()
			return nil, err
		}
	}
	return store, nil
}

func openRedis(ctx context.Context, cfg *config.RedisConfig, logger primary.Logger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Url,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Error("Failed to connect to redis", "addr", cfg.Url, "error", err)
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Url, err)
	}
	return client, nil
}

func (a *App) Close() {
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warn("Failed to close redis client", "error", err)
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("Failed to close store", "error", err)
		}
	}
}
