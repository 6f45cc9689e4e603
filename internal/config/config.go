package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultHTTPAddr      = ":8080"
	defaultMetricsAddr   = ":9090"
	defaultSweepInterval = time.Minute
)

// Config описывает настройки запуска сервиса. Все значения берутся из
// переменных окружения, опционально подгружаемых из .env файла.
type Config struct {
	// HTTPAddr — адрес основного HTTP API.
	HTTPAddr string
	// MetricsAddr — адрес служебного сервера (метрики и health checks).
	MetricsAddr string

	// PostgresDSN — строка подключения к PostgreSQL.
	// Пустое значение включает in-memory хранилище.
	PostgresDSN string
	// MigrateOnStart применяет миграции при старте, когда настроен PostgreSQL.
	MigrateOnStart bool

	// RedisAddr — адрес Redis для кэша корзин.
	// Пустое значение включает in-memory кэш.
	RedisAddr string

	// KafkaBrokers — список брокеров для публикации событий.
	// Пустой список отключает публикацию.
	KafkaBrokers []string

	// SweepInterval — период зачистки просроченных резервов.
	SweepInterval time.Duration
}

// Default возвращает конфигурацию по умолчанию: in-memory хранилище,
// без Redis и Kafka.
func Default() Config {
	return Config{
		HTTPAddr:       defaultHTTPAddr,
		MetricsAddr:    defaultMetricsAddr,
		MigrateOnStart: true,
		SweepInterval:  defaultSweepInterval,
	}
}

// Load читает конфигурацию из окружения. Файл .env в рабочей директории
// подгружается, если существует; уже выставленные переменные он не перебивает.
func Load() (Config, error) {
	_ = godotenv.Load()
	return fromEnv()
}

func fromEnv() (Config, error) {
	cfg := Default()

	cfg.HTTPAddr = envString("COMMERCE_HTTP_ADDR", cfg.HTTPAddr)
	cfg.MetricsAddr = envString("COMMERCE_METRICS_ADDR", cfg.MetricsAddr)
	cfg.PostgresDSN = envString("COMMERCE_POSTGRES_DSN", cfg.PostgresDSN)
	cfg.RedisAddr = envString("COMMERCE_REDIS_ADDR", cfg.RedisAddr)
	cfg.KafkaBrokers = envList("KAFKA_BROKERS")

	migrate, err := envBool("COMMERCE_MIGRATE_ON_START", cfg.MigrateOnStart)
	if err != nil {
		return Config{}, err
	}
	cfg.MigrateOnStart = migrate

	interval, err := envDuration("COMMERCE_SWEEP_INTERVAL", cfg.SweepInterval)
	if err != nil {
		return Config{}, err
	}
	cfg.SweepInterval = interval

	return cfg, cfg.validate()
}

func (c Config) validate() error {
	if c.HTTPAddr == "" {
		return fmt.Errorf("http address must not be empty")
	}
	if c.MetricsAddr == "" {
		return fmt.Errorf("metrics address must not be empty")
	}
	if c.HTTPAddr == c.MetricsAddr {
		return fmt.Errorf("http and metrics servers must use different addresses")
	}
	if c.SweepInterval <= 0 {
		return fmt.Errorf("sweep interval must be positive, got %s", c.SweepInterval)
	}
	return nil
}

func envString(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(value)
	}
	return fallback
}

func envBool(key string, fallback bool) (bool, error) {
	raw, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return fallback, nil
	}
	value, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return false, fmt.Errorf("parse %s: %w", key, err)
	}
	return value, nil
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return fallback, nil
	}
	value, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return value, nil
}

// envList разбирает список значений через запятую, пустые элементы отбрасываются.
func envList(key string) []string {
	raw := os.Getenv(key)
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			values = append(values, trimmed)
		}
	}
	return values
}
