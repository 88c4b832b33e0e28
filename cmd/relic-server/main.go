// main.go — точка входа Relic Server.
// Собирает все компоненты: конфигурацию, БД с миграциями, хранилище
// контента, репозитории, сервисы, фоновую очистку, мониторинг
// зависимостей и HTTP-сервер.
package main

import (
	"context"
	"log"
	"log/slog"

	"github.com/jackc/pgx/v5/stdlib"

	"github.com/bigkaa/gorelic/internal/api/handlers"
	"github.com/bigkaa/gorelic/internal/api/middleware"
	"github.com/bigkaa/gorelic/internal/config"
	"github.com/bigkaa/gorelic/internal/database"
	"github.com/bigkaa/gorelic/internal/repository"
	"github.com/bigkaa/gorelic/internal/server"
	"github.com/bigkaa/gorelic/internal/service"
	"github.com/bigkaa/gorelic/internal/storage/blobstore"
)

func main() {
	// 1. Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}

	// 2. Настройка логгера
	logger := config.SetupLogger(cfg)
	logger.Info("Relic Server запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
		slog.String("storage_backend", cfg.StorageBackend),
	)

	ctx := context.Background()

	// 3. Миграции схемы БД
	if err := database.Migrate(cfg, logger); err != nil {
		logger.Error("Ошибка миграции БД", slog.String("error", err.Error()))
		log.Fatalf("Миграция БД завершилась с ошибкой: %v", err)
	}

	// 4. Пул соединений PostgreSQL
	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		logger.Error("Ошибка подключения к БД", slog.String("error", err.Error()))
		log.Fatalf("Подключение к БД завершилось с ошибкой: %v", err)
	}
	defer pool.Close()

	// 5. Хранилище контента: S3/MinIO или локальный диск
	var blobs blobstore.Store
	switch cfg.StorageBackend {
	case "disk":
		blobs, err = blobstore.NewDiskStore(cfg.DataDir)
	default:
		blobs, err = blobstore.NewS3Store(ctx, cfg, logger)
	}
	if err != nil {
		logger.Error("Ошибка инициализации хранилища контента", slog.String("error", err.Error()))
		log.Fatalf("Хранилище контента: %v", err)
	}

	// 6. Репозитории
	relicRepo := repository.NewRelicRepository(pool)
	clientRepo := repository.NewClientKeyRepository(pool)
	commentRepo := repository.NewCommentRepository(pool)
	bookmarkRepo := repository.NewBookmarkRepository(pool)
	reportRepo := repository.NewReportRepository(pool)

	// 7. Сервисы
	cache := service.NewCacheService(cfg.CacheSize, cfg.CacheTTL)
	relicService := service.NewRelicService(cfg, relicRepo, blobs, cache, logger)
	diffService := service.NewDiffService(relicService, logger)
	communityService := service.NewCommunityService(relicService, commentRepo, bookmarkRepo, reportRepo, relicRepo, logger)
	adminService := service.NewAdminService(relicRepo, clientRepo, reportRepo, blobs, cache, logger)

	// 8. Мониторинг зависимостей (topologymetrics dephealth).
	// PostgreSQL проверяется через существующий пул (*sql.DB адаптер),
	// S3 — HTTP-проверкой liveness endpoint (только при backend=s3).
	sqlDB := stdlib.OpenDBFromPool(pool)
	s3Endpoint := ""
	if cfg.StorageBackend == "s3" {
		s3Endpoint = cfg.S3Endpoint
	}
	dephealthService, err := service.NewDephealthService(
		"relic-server",
		cfg.DephealthGroup,
		sqlDB,
		cfg.DatabaseURL(),
		s3Endpoint,
		cfg.DephealthCheckInterval,
		logger,
	)
	if err != nil {
		logger.Error("Ошибка инициализации dephealth", slog.String("error", err.Error()))
		log.Fatalf("Dephealth: %v", err)
	}
	if err := dephealthService.Start(ctx); err != nil {
		logger.Error("Ошибка запуска dephealth", slog.String("error", err.Error()))
		log.Fatalf("Dephealth: %v", err)
	}
	defer dephealthService.Stop()

	// 9. Фоновая очистка просроченных и удалённых реликтов
	expiryService := service.NewExpiryService(
		relicRepo, blobs, cache,
		cfg.ExpirySweepInterval, cfg.ExpiryGracePeriod,
		logger,
	)
	expiryService.Start(ctx)
	defer expiryService.Stop()

	// 10. Обработчики и middleware аутентификации
	auth := middleware.NewClientKeyAuth(clientRepo, cfg.IsAdmin, logger)
	h := server.Handlers{
		Health:    handlers.NewHealthHandler(database.NewReadinessChecker(pool)),
		Relics:    handlers.NewRelicHandler(relicService, diffService, cfg.MaxUploadSize, logger),
		Clients:   handlers.NewClientHandler(clientRepo, relicService, logger),
		Comments:  handlers.NewCommentHandler(communityService, logger),
		Bookmarks: handlers.NewBookmarkHandler(communityService, logger),
		Reports:   handlers.NewReportHandler(communityService, logger),
		Admin:     handlers.NewAdminHandler(adminService, cfg, logger),
	}

	// 11. HTTP-сервер (блокирующий вызов с graceful shutdown)
	srv := server.New(cfg, logger, h, auth)
	if err := srv.Run(); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		log.Fatalf("Сервер завершился с ошибкой: %v", err)
	}

	logger.Info("Relic Server остановлен")
}
