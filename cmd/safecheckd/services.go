package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dukerupert/safecheck"
	"github.com/dukerupert/safecheck/email"
	"github.com/dukerupert/safecheck/filestore"
	"github.com/dukerupert/safecheck/inmem"
	"github.com/dukerupert/safecheck/internal/metrics"
	"github.com/dukerupert/safecheck/internal/queue"
	"github.com/dukerupert/safecheck/kv"
	"github.com/dukerupert/safecheck/postgres"
	"github.com/dukerupert/safecheck/redis"
	"github.com/dukerupert/safecheck/report"
	"github.com/dukerupert/safecheck/service"
	"github.com/dukerupert/safecheck/sqlite"
)

// pinger is implemented by stores that can check their connection.
type pinger interface {
	Ping(ctx context.Context) error
}

// Services holds all application services.
type Services struct {
	Store             safecheck.KeyValueStore
	InspectionService safecheck.InspectionService
	FileStorage       safecheck.FileStorage
	Notifier          safecheck.Notifier
	Archiver          *report.Archiver
	Metrics           *metrics.Metrics

	// Workers delivers queued notifications. Nil when notifications are
	// sent inline.
	Workers *queue.WorkerPool
}

// Ready reports whether the store is reachable. Stores without a
// connection are always ready.
func (s *Services) Ready(ctx context.Context) error {
	if p, ok := s.Store.(pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Close stops the notification workers and releases the store.
func (s *Services) Close() error {
	if s.Workers != nil {
		if err := s.Workers.Stop(); err != nil {
			slog.Default().Warn("stopping notification workers", slog.String("error", err.Error()))
		}
	}
	return s.Store.Close()
}

// initServices initializes all application services.
func initServices(ctx context.Context, cfg *Config, logger *slog.Logger) (*Services, error) {
	store, err := initStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("storage backend initialized", slog.String("backend", cfg.StorageBackend))

	fileStorage, err := initFileStorage(ctx, cfg, logger)
	if err != nil {
		store.Close()
		return nil, err
	}

	m := metrics.New()

	notifier := initNotifier(cfg, logger)
	logger.Info("email notifier initialized", slog.String("provider", cfg.EmailProvider))

	var workers *queue.WorkerPool
	if cfg.NotifyWorkers > 0 {
		qcfg := queue.DefaultConfig()
		qcfg.WorkerCount = cfg.NotifyWorkers
		qcfg.MaxAttempts = cfg.NotifyMaxAttempts
		qcfg.RetryBackoff = cfg.NotifyRetryBackoff
		q := queue.NewQueue(qcfg)
		workers = queue.NewWorkerPool(q, logger, m, qcfg)
		if err := workers.Start(ctx); err != nil {
			store.Close()
			return nil, fmt.Errorf("starting notification workers: %w", err)
		}
		notifier = queue.NewNotifier(notifier, q)
	}

	repo := kv.NewRepository(store, logger)
	svc := service.NewInspectionService(repo, notifier, m, logger, service.Config{
		Rejection:         cfg.RejectionPolicy,
		SupervisorEmails:  cfg.NotifySupervisorEmails,
		AdminEmails:       cfg.NotifyAdminEmails,
		InspectorEmails:   cfg.NotifyInspectorEmails,
		AnalyticsCacheTTL: cfg.AnalyticsCacheTTL,
	})

	return &Services{
		Store:             store,
		InspectionService: svc,
		FileStorage:       fileStorage,
		Notifier:          notifier,
		Archiver:          report.NewArchiver(fileStorage, logger),
		Metrics:           m,
		Workers:           workers,
	}, nil
}

// initStore opens the configured key-value backend.
func initStore(ctx context.Context, cfg *Config, logger *slog.Logger) (safecheck.KeyValueStore, error) {
	switch cfg.StorageBackend {
	case BackendMemory:
		logger.Warn("using in-memory storage; records are lost on restart")
		return inmem.NewStore(), nil

	case BackendPostgres:
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL(), postgres.DefaultPoolConfig(), logger)
		if err != nil {
			return nil, fmt.Errorf("creating database pool: %w", err)
		}
		if err := postgres.Migrate(ctx, pool, logger); err != nil {
			pool.Close()
			return nil, fmt.Errorf("running migrations: %w", err)
		}
		return postgres.NewStore(pool), nil

	case BackendSQLite:
		store, err := sqlite.Open(ctx, sqlite.DefaultConfig(cfg.SQLitePath), logger)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite database: %w", err)
		}
		return store, nil

	case BackendRedis:
		store, err := redis.Open(ctx, redis.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   cfg.RedisPrefix,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("connecting to redis: %w", err)
		}
		return store, nil
	}
	return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
}

// initFileStorage creates the report archive storage.
func initFileStorage(ctx context.Context, cfg *Config, logger *slog.Logger) (safecheck.FileStorage, error) {
	logger.Debug("report storage configuration",
		slog.String("provider", cfg.ReportStorage),
		slog.String("local_path", cfg.ReportLocalPath),
		slog.String("s3_bucket", cfg.ReportS3Bucket),
		slog.String("s3_region", cfg.ReportS3Region))

	return filestore.NewFileStorage(ctx, logger, safecheck.StorageConfig{
		Provider:  cfg.ReportStorage,
		LocalPath: cfg.ReportLocalPath,
		LocalURL:  cfg.ReportLocalURL,
		S3Bucket:  cfg.ReportS3Bucket,
		S3Region:  cfg.ReportS3Region,
		S3BaseURL: cfg.ReportS3BaseURL,
	})
}

// initNotifier creates the email notifier.
func initNotifier(cfg *Config, logger *slog.Logger) safecheck.Notifier {
	logger.Debug("email notifier configuration",
		slog.String("provider", cfg.EmailProvider),
		slog.String("from_address", cfg.EmailFromAddress),
		slog.Int("supervisors", len(cfg.NotifySupervisorEmails)),
		slog.Int("admins", len(cfg.NotifyAdminEmails)),
		slog.Int("inspectors", len(cfg.NotifyInspectorEmails)))

	return email.NewNotifier(logger, safecheck.EmailConfig{
		Provider:             cfg.EmailProvider,
		FromAddress:          cfg.EmailFromAddress,
		FromName:             cfg.EmailFromName,
		BaseURL:              cfg.EmailBaseURL,
		PostmarkServerToken:  cfg.EmailPostmarkToken,
		PostmarkAccountToken: cfg.EmailPostmarkAccount,
	})
}
