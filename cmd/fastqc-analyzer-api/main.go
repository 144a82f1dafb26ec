package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	// Application
	applicationPort "github.com/dreschagin/fastqc-analyzer/internal/application/port"
	"github.com/dreschagin/fastqc-analyzer/internal/application/usecase"

	// Domain
	"github.com/dreschagin/fastqc-analyzer/internal/domain/repository"
	"github.com/dreschagin/fastqc-analyzer/internal/domain/service"

	// Infrastructure
	redisCache "github.com/dreschagin/fastqc-analyzer/internal/infrastructure/cache/redis"
	natsInfra "github.com/dreschagin/fastqc-analyzer/internal/infrastructure/messaging/nats"
	wsInfra "github.com/dreschagin/fastqc-analyzer/internal/infrastructure/notification/websocket"
	"github.com/dreschagin/fastqc-analyzer/internal/infrastructure/observability/cloudwatch"
	"github.com/dreschagin/fastqc-analyzer/internal/infrastructure/observability/metrics"
	dynamodbRepo "github.com/dreschagin/fastqc-analyzer/internal/infrastructure/persistence/dynamodb"
	"github.com/dreschagin/fastqc-analyzer/internal/infrastructure/persistence/memory"
	"github.com/dreschagin/fastqc-analyzer/internal/infrastructure/persistence/postgres"
	s3storage "github.com/dreschagin/fastqc-analyzer/internal/infrastructure/storage/s3"
	"github.com/dreschagin/fastqc-analyzer/internal/infrastructure/system"

	// Interfaces
	httpInterface "github.com/dreschagin/fastqc-analyzer/internal/interfaces/http"
	"github.com/dreschagin/fastqc-analyzer/internal/interfaces/http/handler"
	"github.com/dreschagin/fastqc-analyzer/internal/interfaces/http/middleware"

	// Shared
	"github.com/dreschagin/fastqc-analyzer/pkg/config"
	"github.com/dreschagin/fastqc-analyzer/pkg/logger"
)

var version = "dev"

func main() {
	// 1. Загружаем конфигурацию
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Инициализируем logger
	log := logger.New(cfg.Log.Level)
	log.Info("Starting FastQC Analyzer", "version", version)

	if err := run(cfg, log); err != nil {
		log.Error("FastQC Analyzer stopped with error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *logger.Logger) error {
	ctx := context.Background()
	readiness := system.NewReadiness(cfg.Readiness.Timeout)
	readiness.Register("memory", system.MemoryCheck(cfg.Readiness.MaxMemoryPercent))
	readiness.Register("disk", system.DiskCheck(cfg.Readiness.TempDir, uint64(cfg.Readiness.MinFreeDiskMB)<<20))

	// 3. Observability: CloudWatch Logs подключается первым, чтобы захватить логи запуска
	var logsPublisher *cloudwatch.LogsPublisher
	if cfg.CloudWatch.LogsEnabled {
		publisherImpl, err := cloudwatch.NewLogsPublisher(ctx, cloudwatch.LogsPublisherConfig{
			LogGroupName:    cfg.CloudWatch.LogGroup,
			LogStreamName:   cfg.CloudWatch.LogStream,
			Region:          cfg.CloudWatch.Region,
			Endpoint:        cfg.CloudWatch.Endpoint,
			AccessKeyID:     cfg.CloudWatch.AccessKeyID,
			SecretAccessKey: cfg.CloudWatch.SecretAccessKey,
			FlushInterval:   cfg.CloudWatch.FlushInterval,
			AutoCreate:      true,
			Service:         "fastqc-analyzer",
		})
		if err != nil {
			return fmt.Errorf("failed to initialize CloudWatch logs publisher: %w", err)
		}
		logsPublisher = publisherImpl
		log.SetLogPublisher(logsPublisher)
		log.Info("CloudWatch logs publisher initialized", "group", cfg.CloudWatch.LogGroup)
	}

	var metricsPublisher applicationPort.MetricsPublisher
	var cloudwatchMetrics *cloudwatch.MetricsPublisher
	if cfg.CloudWatch.MetricsEnabled {
		publisherImpl, err := cloudwatch.NewMetricsPublisher(ctx, cloudwatch.MetricsPublisherConfig{
			Namespace:         cfg.CloudWatch.Namespace,
			Region:            cfg.CloudWatch.Region,
			Endpoint:          cfg.CloudWatch.Endpoint,
			AccessKeyID:       cfg.CloudWatch.AccessKeyID,
			SecretAccessKey:   cfg.CloudWatch.SecretAccessKey,
			DefaultDimensions: map[string]string{"Service": "fastqc-analyzer"},
			FlushInterval:     cfg.CloudWatch.FlushInterval,
			StorageResolution: 60,
		}, log)
		if err != nil {
			return fmt.Errorf("failed to initialize CloudWatch metrics publisher: %w", err)
		}
		cloudwatchMetrics = publisherImpl
		metricsPublisher = publisherImpl
		log.Info("CloudWatch metrics publisher initialized", "namespace", cfg.CloudWatch.Namespace)
	} else {
		log.Warn("CloudWatch metrics publishing is disabled")
	}

	promMetrics := metrics.New(nil)

	// 4. История анализов
	analysisRepository, closeRepository, err := buildRepository(ctx, cfg, log, readiness)
	if err != nil {
		return err
	}
	defer closeRepository()

	// 5. Кеш результатов
	var cache applicationPort.Cache
	if cfg.Redis.Enabled {
		cacheImpl, err := redisCache.NewRedisCache(ctx, redisCache.Options{
			Host:         cfg.Redis.Host,
			Port:         cfg.Redis.Port,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			TTL:          cfg.Redis.TTL,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
			Namespace:    cfg.Redis.Namespace,
		})
		if err != nil {
			// Кеш необязателен: работаем без него
			log.Warn("Failed to connect to Redis, continuing without cache", "error", err.Error())
		} else {
			cache = cacheImpl
			defer cacheImpl.Close()
			readiness.Register("redis", cacheImpl.Ping)
			log.Info("Redis cache initialized", "addr", cfg.Redis.Host+":"+cfg.Redis.Port)
		}
	}

	// 6. Архив исходных отчетов
	var reportStorage applicationPort.ReportStorage
	if cfg.S3.Enabled {
		storageImpl, err := s3storage.NewReportStorage(ctx, s3storage.Config{
			Bucket:          cfg.S3.Bucket,
			Region:          cfg.S3.Region,
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			UsePathStyle:    cfg.S3.UsePathStyle,
			URLMode:         s3storage.URLMode(cfg.S3.URLMode),
			PresignedTTL:    cfg.S3.PresignedTTL,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize report storage: %w", err)
		}
		reportStorage = storageImpl
		readiness.Register("s3", storageImpl.Ping)
		log.Info("Report archive initialized", "bucket", cfg.S3.Bucket)
	} else {
		log.Warn("S3 report archive is disabled")
	}

	var metadataRepository applicationPort.ReportMetadataRepository
	if cfg.Dynamo.Enabled {
		repoImpl, err := dynamodbRepo.NewReportMetadataRepository(ctx, dynamodbRepo.Config{
			TableName:       cfg.Dynamo.TableName,
			Region:          cfg.Dynamo.Region,
			Endpoint:        cfg.Dynamo.Endpoint,
			AccessKeyID:     cfg.Dynamo.AccessKeyID,
			SecretAccessKey: cfg.Dynamo.SecretAccessKey,
			StrongReads:     cfg.Dynamo.StrongReads,
			Retention:       cfg.Dynamo.Retention,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize report metadata repository: %w", err)
		}
		metadataRepository = repoImpl
		log.Info("Report metadata index initialized", "provider", "dynamodb", "table", cfg.Dynamo.TableName)
	}

	// 7. События
	var eventPublisher applicationPort.EventPublisher
	if cfg.NATS.Enabled {
		publisherImpl, err := natsInfra.NewNATSPublisher(natsInfra.Options{
			URL:    cfg.NATS.URL,
			Stream: cfg.NATS.Stream,
			MaxAge: cfg.NATS.MaxAge,
		}, log)
		if err != nil {
			log.Warn("Failed to connect to NATS, continuing without event publishing", "error", err.Error())
		} else {
			eventPublisher = publisherImpl
			defer publisherImpl.Close()
		}
	} else {
		log.Warn("NATS event publishing is disabled")
	}

	hub := wsInfra.NewHub(log)

	// 8. Domain + Application
	defaultLanguage := service.ResolveLanguage(cfg.Analysis.DefaultLanguage)
	analyzer := service.NewDefaultReportAnalyzer(newSampler(cfg.Analysis.Seed), log, defaultLanguage)

	var archiver *usecase.ReportArchiver
	var archivedReportsUC *usecase.ListArchivedReportsUseCase
	if reportStorage != nil {
		archiver = usecase.NewReportArchiver(reportStorage, metadataRepository, usecase.ReportArchiveConfig{
			KeyPrefix: cfg.S3.KeyPrefix,
		}, log)
		archivedReportsUC = usecase.NewListArchivedReportsUseCase(reportStorage, metadataRepository, usecase.ListArchivedReportsConfig{
			KeyPrefix:           cfg.S3.KeyPrefix,
			FallbackToS3OnError: cfg.Dynamo.FallbackToS3OnError,
		}, log)
	}

	analyzeUC := usecase.NewAnalyzeReportsUseCase(usecase.AnalyzeReportsDependencies{
		Analyzer:   analyzer,
		Repository: analysisRepository,
		Cache:      cache,
		Archiver:   archiver,
		Metrics:    metricsPublisher,
		Events:     eventPublisher,
		Notifier:   hub,
		Recorder:   promMetrics,
	}, usecase.AnalyzeReportsConfig{
		MaxFiles:     cfg.Analysis.MaxFiles,
		MaxFileBytes: cfg.Analysis.MaxFileBytes,
	}, log)

	// 9. Interfaces
	authConfig := httpInterface.NewAuthConfig(cfg.Security, promMetrics)

	analysisHandler := handler.NewAnalysisHandler(
		analyzeUC,
		usecase.NewGetAnalysisUseCase(analysisRepository, cache, log),
		usecase.NewListAnalysesUseCase(analysisRepository, cache, log),
		usecase.NewDeleteAnalysisUseCase(analysisRepository, cache, eventPublisher, hub, log),
		usecase.NewClearHistoryUseCase(analysisRepository, cache, eventPublisher, hub, log),
		archivedReportsUC,
		handler.AnalysisHandlerConfig{
			MaxFiles:        cfg.Analysis.MaxFiles,
			MaxFileBytes:    cfg.Analysis.MaxFileBytes,
			DefaultLanguage: defaultLanguage.String(),
		},
		log,
	)

	var rateLimiter *middleware.IPRateLimiter
	if cfg.Security.RateLimitPerMinute > 0 {
		rateLimiter = middleware.NewIPRateLimiter(cfg.Security.RateLimitPerMinute, cfg.Security.RateLimitBurst)
		rateLimiter.OnDrop = promMetrics.RateLimitDropped.Inc
		defer rateLimiter.Stop()
	}

	router := httpInterface.NewRouter(
		analysisHandler,
		handler.NewWebSocketHandler(hub, cfg.Security.AllowedOrigins, authConfig, log),
		handler.NewAuthAPIHandler(authConfig, log),
		handler.NewHealthHandler(readiness, version),
		promMetrics,
		rateLimiter,
		cfg.Security,
		log,
	)

	// 10. Фоновые процессы и HTTP сервер
	go hub.Run()
	defer hub.Stop()

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Канал для получения сигналов ОС
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		log.Info("HTTP server starting", "port", cfg.Server.Port, "history_backend", cfg.History.Backend)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// 11. Ожидаем сигнал для graceful shutdown
	select {
	case <-sigChan:
		log.Info("Shutdown signal received, starting graceful shutdown...")
	case err := <-serverErr:
		return fmt.Errorf("HTTP server failed: %w", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown error", err)
	}

	// Сбрасываем буферы CloudWatch после остановки сервера
	if cloudwatchMetrics != nil {
		log.Info("Flushing CloudWatch metrics buffer...")
		if err := cloudwatchMetrics.Close(shutdownCtx); err != nil {
			log.Error("Failed to flush CloudWatch metrics", err)
		}
	}
	log.Info("Server stopped gracefully")

	// Логи сбрасываем последними, чтобы в CloudWatch попали сообщения об остановке
	if logsPublisher != nil {
		log.SetLogPublisher(nil)
		if err := logsPublisher.Close(shutdownCtx); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to flush CloudWatch logs: %v\n", err)
		}
	}

	return nil
}

// buildRepository выбирает хранилище истории по HISTORY_BACKEND
func buildRepository(
	ctx context.Context,
	cfg *config.Config,
	log *logger.Logger,
	readiness *system.Readiness,
) (repository.AnalysisRepository, func(), error) {
	if cfg.History.Backend != config.HistoryBackendPostgres {
		log.Info("Using in-memory analysis history", "max_entries", cfg.History.MaxEntries)
		return memory.NewAnalysisRepository(cfg.History.MaxEntries), func() {}, nil
	}

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Настраиваем connection pool
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.Database.ConnMaxIdleTime)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("failed to ping database: %w", err)
	}

	repo := postgres.NewPostgresAnalysisRepository(db)
	if cfg.Database.AutoMigrate {
		if err := repo.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
	}

	readiness.Register("postgres", db.PingContext)
	log.Info("Database connected successfully", "host", cfg.Database.Host, "database", cfg.Database.Database)

	return repo, func() { _ = db.Close() }, nil
}

// newSampler: ANALYSIS_SEED != 0 делает резервные значения воспроизводимыми
func newSampler(seed int64) service.Sampler {
	if seed == 0 {
		return service.NewUniformSampler(nil)
	}
	return service.NewSeededSampler(uint64(seed))
}
