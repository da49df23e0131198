package config

import (
	"os"
	"testing"
)

func TestLoad_Success(t *testing.T) {
	setMinimalEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}

	if cfg.App.Env != "production" {
		t.Fatalf("expected App.Env to be production, got %q", cfg.App.Env)
	}

	if cfg.Redis.URL != "redis://localhost:6379/0" {
		t.Fatalf("unexpected Redis URL: %q", cfg.Redis.URL)
	}

	if cfg.Cart.StorageKey != "misha_foodstuffs_cart_v2" {
		t.Fatalf("unexpected cart storage key %q", cfg.Cart.StorageKey)
	}

	if cfg.Cart.BackupKeep != 3 {
		t.Fatalf("expected 3 backups kept by default, got %d", cfg.Cart.BackupKeep)
	}

	if cfg.Delivery.NairobiFreeThreshold != 2000 {
		t.Fatalf("unexpected nairobi free threshold %v", cfg.Delivery.NairobiFreeThreshold)
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	setMinimalEnv(t)
	if err := os.Unsetenv(EnvAppEnv); err != nil {
		t.Fatalf("failed to unset %s: %v", EnvAppEnv, err)
	}

	if _, err := Load(); err == nil {
		t.Fatal("expected missing required env to return an error")
	}
}

func TestLoad_UnknownStorageBackend(t *testing.T) {
	setMinimalEnv(t)
	t.Setenv(EnvStorageBackend, "etcd")

	if _, err := Load(); err == nil {
		t.Fatal("expected unknown storage backend to return an error")
	}
}

func TestLoad_RedisRequiredForRedisBackend(t *testing.T) {
	setMinimalEnv(t)
	if err := os.Unsetenv(EnvRedisURL); err != nil {
		t.Fatalf("failed to unset %s: %v", EnvRedisURL, err)
	}

	if _, err := Load(); err == nil {
		t.Fatal("expected missing redis url to return an error for the redis backend")
	}

	t.Setenv(EnvStorageBackend, StorageBackendSQLite)
	if _, err := Load(); err != nil {
		t.Fatalf("sqlite backend should not require redis: %v", err)
	}
}

func TestParseTiers(t *testing.T) {
	tiers, err := PricingConfig{BulkTiers: "10000:5, 25000:10"}.ParseTiers()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tiers) != 2 {
		t.Fatalf("expected 2 tiers, got %d", len(tiers))
	}
	if tiers[1].MinAmount != 25000 || tiers[1].Percent != 10 {
		t.Fatalf("unexpected tier %+v", tiers[1])
	}

	if _, err := (PricingConfig{BulkTiers: "10000"}).ParseTiers(); err == nil {
		t.Fatal("expected malformed tier to return an error")
	}
	if _, err := (PricingConfig{BulkTiers: "abc:5"}).ParseTiers(); err == nil {
		t.Fatal("expected non-numeric amount to return an error")
	}
}

func setMinimalEnv(t *testing.T) {
	t.Helper()

	t.Setenv(EnvAppEnv, "production")
	t.Setenv(EnvPort, "8081")
	t.Setenv(EnvRedisURL, "redis://localhost:6379/0")
}

func TestAppConfigEnvHelpers(t *testing.T) {
	devConfig := AppConfig{Env: "DEV"}
	if !devConfig.IsDev() {
		t.Fatalf("expected IsDev true for %q", devConfig.Env)
	}
	if devConfig.IsProd() {
		t.Fatalf("expected IsProd false for %q", devConfig.Env)
	}

	prodConfig := AppConfig{Env: "prod"}
	if !prodConfig.IsProd() {
		t.Fatalf("expected IsProd true for %q", prodConfig.Env)
	}
	if prodConfig.IsDev() {
		t.Fatalf("expected IsDev false for %q", prodConfig.Env)
	}
}
