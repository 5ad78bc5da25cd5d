package config

import (
	"log/slog"
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/exams")
}

func TestLoadConfig(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		setRequiredEnv(t)

		cfg, err := LoadConfig()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if cfg.Environment != "development" {
			t.Errorf("expected development, got %s", cfg.Environment)
		}
		if cfg.Port != "8080" {
			t.Errorf("expected port 8080, got %s", cfg.Port)
		}
		if cfg.SweepInterval != 60*time.Second {
			t.Errorf("expected 60s sweep interval, got %v", cfg.SweepInterval)
		}
		if cfg.SweepBatchSize != 10 {
			t.Errorf("expected batch size 10, got %d", cfg.SweepBatchSize)
		}
		if cfg.RevenueShare != 0.80 {
			t.Errorf("expected revenue share 0.80, got %v", cfg.RevenueShare)
		}
		if len(cfg.KafkaBrokers) != 0 {
			t.Errorf("expected no brokers by default, got %v", cfg.KafkaBrokers)
		}
	})

	t.Run("Database_URL_Required", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "")

		if _, err := LoadConfig(); err == nil {
			t.Error("expected error without DATABASE_URL")
		}
	})

	t.Run("Kafka_Brokers_Parsed", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092 ,")

		cfg, err := LoadConfig()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(cfg.KafkaBrokers) != 2 {
			t.Fatalf("expected 2 brokers, got %v", cfg.KafkaBrokers)
		}
		if cfg.KafkaBrokers[0] != "kafka-1:9092" || cfg.KafkaBrokers[1] != "kafka-2:9092" {
			t.Errorf("brokers not trimmed correctly: %v", cfg.KafkaBrokers)
		}
	})

	t.Run("Revenue_Share_Bounds", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("REVENUE_SHARE", "1.5")

		if _, err := LoadConfig(); err == nil {
			t.Error("expected error for revenue share above 1")
		}
	})

	t.Run("Sweep_Batch_Size_Must_Be_Positive", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("SWEEP_BATCH_SIZE", "0")

		if _, err := LoadConfig(); err == nil {
			t.Error("expected error for zero batch size")
		}
	})

	t.Run("Duration_Override", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("SWEEP_INTERVAL", "15s")

		cfg, err := LoadConfig()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.SweepInterval != 15*time.Second {
			t.Errorf("expected 15s, got %v", cfg.SweepInterval)
		}
	})

	t.Run("Invalid_Duration_Falls_Back", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("SWEEP_INTERVAL", "soon")

		cfg, err := LoadConfig()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.SweepInterval != 60*time.Second {
			t.Errorf("expected default 60s, got %v", cfg.SweepInterval)
		}
	})
}

func TestParseLogLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range cases {
		if got := parseLogLevel(in); got != want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
