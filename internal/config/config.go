// Пакет config — загрузка и валидация конфигурации Relic Server
// из переменных окружения.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Config содержит все параметры конфигурации Relic Server.
type Config struct {
	// --- Сервер ---

	// Порт HTTP-сервера
	Port int
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string
	// Таймаут чтения HTTP-запроса
	HTTPReadTimeout time.Duration
	// Таймаут записи HTTP-ответа
	HTTPWriteTimeout time.Duration
	// Таймаут простоя keep-alive соединения
	HTTPIdleTimeout time.Duration

	// --- PostgreSQL ---

	// Хост PostgreSQL
	DBHost string
	// Порт PostgreSQL
	DBPort int
	// Имя базы данных
	DBName string
	// Имя пользователя PostgreSQL
	DBUser string
	// Пароль пользователя PostgreSQL
	DBPassword string
	// Режим SSL: disable, require, verify-ca, verify-full
	DBSSLMode string
	// Максимальный размер пула соединений pgxpool
	DBMaxConns int

	// --- Content Store ---

	// Бэкенд хранения блобов: s3 или disk
	StorageBackend string
	// Endpoint S3/MinIO (например, http://minio:9000)
	S3Endpoint string
	// Access key S3/MinIO
	S3AccessKey string
	// Secret key S3/MinIO
	S3SecretKey string
	// Имя bucket для блобов
	S3Bucket string
	// Регион S3
	S3Region string
	// Path-style адресация (требуется для MinIO)
	S3UsePathStyle bool
	// Директория хранения блобов для backend=disk
	DataDir string

	// --- Загрузка ---

	// Максимальный размер загружаемого содержимого в байтах
	MaxUploadSize int64

	// --- Кэш метаданных ---

	// Максимальное количество записей в LRU-кэше
	CacheSize int
	// TTL записи кэша
	CacheTTL time.Duration

	// --- Очистка истёкших реликтов ---

	// Интервал фоновой очистки
	ExpirySweepInterval time.Duration
	// Срок хранения soft-deleted реликтов до физического удаления
	ExpiryGracePeriod time.Duration

	// --- Администрирование ---

	// Клиентские ключи с правами администратора (через запятую)
	AdminClientIDs []string

	// --- topologymetrics ---

	// Имя группы в метриках dephealth
	DephealthGroup string
	// Интервал проверки зависимостей
	DephealthCheckInterval time.Duration

	// --- Graceful shutdown ---

	// Таймаут graceful shutdown HTTP-сервера
	ShutdownTimeout time.Duration
}

// Load загружает конфигурацию из переменных окружения, валидирует
// обязательные поля и возвращает Config или ошибку.
func Load() (*Config, error) {
	cfg := &Config{}
	var err error

	// --- Сервер ---

	// RS_PORT — порт HTTP-сервера (по умолчанию 8000)
	cfg.Port, err = getEnvInt("RS_PORT", 8000)
	if err != nil {
		return nil, fmt.Errorf("RS_PORT: %w", err)
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("RS_PORT: значение %d вне допустимого диапазона 1-65535", cfg.Port)
	}

	// RS_LOG_LEVEL — уровень логирования (по умолчанию info)
	cfg.LogLevel, err = parseLogLevel(getEnvDefault("RS_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("RS_LOG_LEVEL: %w", err)
	}

	// RS_LOG_FORMAT — формат логов (по умолчанию json)
	cfg.LogFormat = getEnvDefault("RS_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("RS_LOG_FORMAT: недопустимое значение %q, допустимые: json, text", cfg.LogFormat)
	}

	// RS_HTTP_READ_TIMEOUT — таймаут чтения запроса (по умолчанию 30s)
	cfg.HTTPReadTimeout, err = getEnvDuration("RS_HTTP_READ_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("RS_HTTP_READ_TIMEOUT: %w", err)
	}

	// RS_HTTP_WRITE_TIMEOUT — таймаут записи ответа (по умолчанию 30s)
	cfg.HTTPWriteTimeout, err = getEnvDuration("RS_HTTP_WRITE_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("RS_HTTP_WRITE_TIMEOUT: %w", err)
	}

	// RS_HTTP_IDLE_TIMEOUT — таймаут keep-alive соединения (по умолчанию 120s)
	cfg.HTTPIdleTimeout, err = getEnvDuration("RS_HTTP_IDLE_TIMEOUT", 120*time.Second)
	if err != nil {
		return nil, fmt.Errorf("RS_HTTP_IDLE_TIMEOUT: %w", err)
	}

	// --- PostgreSQL ---

	// RS_DB_HOST — обязательный
	cfg.DBHost, err = getEnvRequired("RS_DB_HOST")
	if err != nil {
		return nil, err
	}

	// RS_DB_PORT — порт PostgreSQL (по умолчанию 5432)
	cfg.DBPort, err = getEnvInt("RS_DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("RS_DB_PORT: %w", err)
	}

	// RS_DB_NAME — обязательный
	cfg.DBName, err = getEnvRequired("RS_DB_NAME")
	if err != nil {
		return nil, err
	}

	// RS_DB_USER — обязательный
	cfg.DBUser, err = getEnvRequired("RS_DB_USER")
	if err != nil {
		return nil, err
	}

	// RS_DB_PASSWORD — обязательный
	cfg.DBPassword, err = getEnvRequired("RS_DB_PASSWORD")
	if err != nil {
		return nil, err
	}

	// RS_DB_SSL_MODE — режим SSL (по умолчанию disable)
	cfg.DBSSLMode = getEnvDefault("RS_DB_SSL_MODE", "disable")
	validSSLModes := map[string]bool{
		"disable": true, "require": true, "verify-ca": true, "verify-full": true,
	}
	if !validSSLModes[cfg.DBSSLMode] {
		return nil, fmt.Errorf("RS_DB_SSL_MODE: недопустимое значение %q, допустимые: disable, require, verify-ca, verify-full", cfg.DBSSLMode)
	}

	// RS_DB_MAX_CONNS — размер пула соединений (по умолчанию 10)
	cfg.DBMaxConns, err = getEnvInt("RS_DB_MAX_CONNS", 10)
	if err != nil {
		return nil, fmt.Errorf("RS_DB_MAX_CONNS: %w", err)
	}
	if cfg.DBMaxConns < 1 {
		return nil, fmt.Errorf("RS_DB_MAX_CONNS: значение должно быть не меньше 1, получено %d", cfg.DBMaxConns)
	}

	// --- Content Store ---

	// RS_STORAGE_BACKEND — бэкенд блобов (по умолчанию s3)
	cfg.StorageBackend = getEnvDefault("RS_STORAGE_BACKEND", "s3")
	if cfg.StorageBackend != "s3" && cfg.StorageBackend != "disk" {
		return nil, fmt.Errorf("RS_STORAGE_BACKEND: недопустимое значение %q, допустимые: s3, disk", cfg.StorageBackend)
	}

	if cfg.StorageBackend == "s3" {
		// RS_S3_ENDPOINT — обязательный для backend=s3
		cfg.S3Endpoint, err = getEnvRequired("RS_S3_ENDPOINT")
		if err != nil {
			return nil, err
		}
		cfg.S3Endpoint = strings.TrimRight(cfg.S3Endpoint, "/")

		// RS_S3_ACCESS_KEY — обязательный
		cfg.S3AccessKey, err = getEnvRequired("RS_S3_ACCESS_KEY")
		if err != nil {
			return nil, err
		}

		// RS_S3_SECRET_KEY — обязательный
		cfg.S3SecretKey, err = getEnvRequired("RS_S3_SECRET_KEY")
		if err != nil {
			return nil, err
		}
	}

	// RS_S3_BUCKET — bucket блобов (по умолчанию relics)
	cfg.S3Bucket = getEnvDefault("RS_S3_BUCKET", "relics")

	// RS_S3_REGION — регион (по умолчанию us-east-1)
	cfg.S3Region = getEnvDefault("RS_S3_REGION", "us-east-1")

	// RS_S3_USE_PATH_STYLE — path-style адресация (по умолчанию true, MinIO)
	cfg.S3UsePathStyle, err = getEnvBool("RS_S3_USE_PATH_STYLE", true)
	if err != nil {
		return nil, fmt.Errorf("RS_S3_USE_PATH_STYLE: %w", err)
	}

	// RS_DATA_DIR — директория блобов для backend=disk (по умолчанию /data/relics)
	cfg.DataDir = getEnvDefault("RS_DATA_DIR", "/data/relics")

	// --- Загрузка ---

	// RS_MAX_UPLOAD_SIZE — максимальный размер содержимого (по умолчанию 100 MiB)
	maxUpload, err := getEnvInt("RS_MAX_UPLOAD_SIZE", 100*1024*1024)
	if err != nil {
		return nil, fmt.Errorf("RS_MAX_UPLOAD_SIZE: %w", err)
	}
	if maxUpload < 1 {
		return nil, fmt.Errorf("RS_MAX_UPLOAD_SIZE: значение %d должно быть положительным", maxUpload)
	}
	cfg.MaxUploadSize = int64(maxUpload)

	// --- Кэш метаданных ---

	// RS_CACHE_SIZE — размер LRU-кэша (по умолчанию 10000)
	cfg.CacheSize, err = getEnvInt("RS_CACHE_SIZE", 10000)
	if err != nil {
		return nil, fmt.Errorf("RS_CACHE_SIZE: %w", err)
	}
	if cfg.CacheSize < 1 {
		return nil, fmt.Errorf("RS_CACHE_SIZE: значение %d должно быть положительным", cfg.CacheSize)
	}

	// RS_CACHE_TTL — TTL записи кэша (по умолчанию 5m)
	cfg.CacheTTL, err = getEnvDuration("RS_CACHE_TTL", 5*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("RS_CACHE_TTL: %w", err)
	}

	// --- Очистка истёкших реликтов ---

	// RS_EXPIRY_SWEEP_INTERVAL — интервал очистки (по умолчанию 10m)
	cfg.ExpirySweepInterval, err = getEnvDuration("RS_EXPIRY_SWEEP_INTERVAL", 10*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("RS_EXPIRY_SWEEP_INTERVAL: %w", err)
	}

	// RS_EXPIRY_GRACE_PERIOD — срок до физического удаления (по умолчанию 720h = 30 дней)
	cfg.ExpiryGracePeriod, err = getEnvDuration("RS_EXPIRY_GRACE_PERIOD", 720*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("RS_EXPIRY_GRACE_PERIOD: %w", err)
	}

	// --- Администрирование ---

	// RS_ADMIN_CLIENT_IDS — ключи администраторов (по умолчанию пусто)
	cfg.AdminClientIDs = parseCSV(getEnvDefault("RS_ADMIN_CLIENT_IDS", ""))

	// --- topologymetrics ---

	// RS_DEPHEALTH_GROUP — группа dephealth (по умолчанию gorelic)
	cfg.DephealthGroup = getEnvDefault("RS_DEPHEALTH_GROUP", "gorelic")

	// RS_DEPHEALTH_CHECK_INTERVAL — интервал проверки зависимостей (по умолчанию 15s)
	cfg.DephealthCheckInterval, err = getEnvDuration("RS_DEPHEALTH_CHECK_INTERVAL", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("RS_DEPHEALTH_CHECK_INTERVAL: %w", err)
	}

	// --- Graceful shutdown ---

	// RS_SHUTDOWN_TIMEOUT — таймаут graceful shutdown (по умолчанию 5s)
	cfg.ShutdownTimeout, err = getEnvDuration("RS_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("RS_SHUTDOWN_TIMEOUT: %w", err)
	}

	return cfg, nil
}

// DatabaseDSN возвращает строку подключения к PostgreSQL.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBName, c.DBUser, c.DBPassword, c.DBSSLMode,
	)
}

// DatabaseURL возвращает URL подключения к PostgreSQL (для метрик dephealth).
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}

// IsAdmin проверяет, входит ли клиентский ключ в список администраторов.
func (c *Config) IsAdmin(clientID string) bool {
	for _, id := range c.AdminClientIDs {
		if id == clientID {
			return true
		}
	}
	return false
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// --- Вспомогательные функции ---

// getEnvRequired возвращает значение переменной окружения или ошибку, если она не задана.
func getEnvRequired(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("%s: обязательная переменная окружения не задана", key)
	}
	return val, nil
}

// getEnvDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getEnvInt возвращает целочисленное значение переменной окружения или значение по умолчанию.
func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvBool возвращает булево значение переменной окружения или значение по умолчанию.
func getEnvBool(key string, defaultVal bool) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("некорректное булево значение: %q", val)
	}
	return b, nil
}

// getEnvDuration возвращает time.Duration из переменной окружения или значение по умолчанию.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 1h, 15m)", val)
	}
	return d, nil
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}

// parseCSV разбирает строку, разделённую запятыми, на срез строк.
// Пробелы вокруг элементов убираются, пустые элементы игнорируются.
func parseCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
