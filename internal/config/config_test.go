package config

import (
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.HTTPAddr != ":8080" {
		t.Errorf("unexpected http addr %q", cfg.HTTPAddr)
	}
	if cfg.MetricsAddr != ":9090" {
		t.Errorf("unexpected metrics addr %q", cfg.MetricsAddr)
	}
	if cfg.PostgresDSN != "" || cfg.RedisAddr != "" || len(cfg.KafkaBrokers) != 0 {
		t.Error("default config must not reference external services")
	}
	if !cfg.MigrateOnStart {
		t.Error("migrations should be enabled by default")
	}
	if cfg.SweepInterval != time.Minute {
		t.Errorf("unexpected sweep interval %s", cfg.SweepInterval)
	}
	if err := cfg.validate(); err != nil {
		t.Fatalf("default config must be valid: %v", err)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("COMMERCE_HTTP_ADDR", ":8181")
	t.Setenv("COMMERCE_METRICS_ADDR", ":9191")
	t.Setenv("COMMERCE_POSTGRES_DSN", "postgres://commerce@localhost/commerce")
	t.Setenv("COMMERCE_REDIS_ADDR", "localhost:6379")
	t.Setenv("KAFKA_BROKERS", "broker-1:9092, broker-2:9092 ,")
	t.Setenv("COMMERCE_MIGRATE_ON_START", "false")
	t.Setenv("COMMERCE_SWEEP_INTERVAL", "30s")

	cfg, err := fromEnv()
	if err != nil {
		t.Fatalf("fromEnv: %v", err)
	}

	if cfg.HTTPAddr != ":8181" || cfg.MetricsAddr != ":9191" {
		t.Errorf("addresses not applied: %+v", cfg)
	}
	if cfg.PostgresDSN != "postgres://commerce@localhost/commerce" {
		t.Errorf("dsn not applied: %q", cfg.PostgresDSN)
	}
	if cfg.RedisAddr != "localhost:6379" {
		t.Errorf("redis addr not applied: %q", cfg.RedisAddr)
	}
	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[0] != "broker-1:9092" || cfg.KafkaBrokers[1] != "broker-2:9092" {
		t.Errorf("brokers not parsed: %v", cfg.KafkaBrokers)
	}
	if cfg.MigrateOnStart {
		t.Error("migrate flag not applied")
	}
	if cfg.SweepInterval != 30*time.Second {
		t.Errorf("sweep interval not applied: %s", cfg.SweepInterval)
	}
}

func TestFromEnvInvalidValues(t *testing.T) {
	t.Run("bad duration", func(t *testing.T) {
		t.Setenv("COMMERCE_SWEEP_INTERVAL", "soon")
		if _, err := fromEnv(); err == nil {
			t.Fatal("expected error for invalid duration")
		}
	})

	t.Run("bad bool", func(t *testing.T) {
		t.Setenv("COMMERCE_MIGRATE_ON_START", "maybe")
		if _, err := fromEnv(); err == nil {
			t.Fatal("expected error for invalid bool")
		}
	})

	t.Run("same addresses", func(t *testing.T) {
		t.Setenv("COMMERCE_HTTP_ADDR", ":8080")
		t.Setenv("COMMERCE_METRICS_ADDR", ":8080")
		if _, err := fromEnv(); err == nil {
			t.Fatal("expected error for clashing addresses")
		}
	})

	t.Run("negative interval", func(t *testing.T) {
		t.Setenv("COMMERCE_SWEEP_INTERVAL", "-1m")
		if _, err := fromEnv(); err == nil {
			t.Fatal("expected error for negative interval")
		}
	})
}
