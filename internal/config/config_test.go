package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "0123456789abcdef0123")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.HTTP.Port != "8080" {
		t.Errorf("HTTP.Port = %q, want 8080", cfg.HTTP.Port)
	}
	if cfg.Cache.ActiveQuestionTTL != 5*time.Minute {
		t.Errorf("Cache.ActiveQuestionTTL = %v, want 5m", cfg.Cache.ActiveQuestionTTL)
	}
	if cfg.Cache.GameUsedTTL != 6*time.Hour {
		t.Errorf("Cache.GameUsedTTL = %v, want 6h", cfg.Cache.GameUsedTTL)
	}
	if cfg.Generator.MaxProbeAttempts != 40 {
		t.Errorf("Generator.MaxProbeAttempts = %d, want 40", cfg.Generator.MaxProbeAttempts)
	}
	if cfg.Hints.Provider != "mock" {
		t.Errorf("Hints.Provider = %q, want mock", cfg.Hints.Provider)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "0123456789abcdef0123")
	t.Setenv("PORT", "9090")
	t.Setenv("DB_DRIVER", "sqlite3")
	t.Setenv("DB_SQLITE_PATH", "/tmp/wordbox-test.db")
	t.Setenv("CACHE_ACTIVE_QUESTION_TTL", "90s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.HTTP.Port != "9090" {
		t.Errorf("HTTP.Port = %q, want 9090", cfg.HTTP.Port)
	}
	if cfg.DB.Driver != "sqlite3" {
		t.Errorf("DB.Driver = %q, want sqlite3", cfg.DB.Driver)
	}
	if cfg.DB.SQLitePath != "/tmp/wordbox-test.db" {
		t.Errorf("DB.SQLitePath = %q", cfg.DB.SQLitePath)
	}
	if cfg.Cache.ActiveQuestionTTL != 90*time.Second {
		t.Errorf("Cache.ActiveQuestionTTL = %v, want 90s", cfg.Cache.ActiveQuestionTTL)
	}
}

func TestLoadRejectsShortSecret(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "short")

	_, err := Load()
	if err == nil {
		t.Fatal("Load() with short secret should fail")
	}
	if !strings.Contains(err.Error(), "JWTSecret") {
		t.Errorf("error %q should name JWTSecret", err)
	}
}

func TestValidateRequiresRedisAddr(t *testing.T) {
	c := CacheConfig{
		Backend:           "redis",
		Capacity:          10,
		ActiveQuestionTTL: time.Minute,
		QuizUsedTTL:       time.Minute,
		GameUsedTTL:       time.Minute,
		QuizBatchTTL:      time.Minute,
		CleanupInterval:   time.Minute,
	}
	if err := Validate(c); err == nil {
		t.Error("Validate(redis without addr) should fail")
	}

	c.RedisAddr = "localhost:6379"
	if err := Validate(c); err != nil {
		t.Errorf("Validate(redis with addr) = %v, want nil", err)
	}
}
