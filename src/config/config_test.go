package config

import (
	"testing"
)

// setEnv pins the full configuration environment for one subtest.
// Unlisted variables are cleared; empty reads the same as unset.
func setEnv(t *testing.T, vars map[string]string) {
	t.Helper()
	keys := []string{
		"SONARCLOUD_TOKEN", "SONARCLOUD_ORG", "STORAGE_PROVIDER",
		"DATABASE_URL", "REDPANDA_BROKERS", "SONARDASH_MAX_ROWS",
	}
	for _, k := range keys {
		t.Setenv(k, vars[k])
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Run("minimal valid config", func(t *testing.T) {
		setEnv(t, map[string]string{
			"SONARCLOUD_TOKEN": "test-token-12345",
			"SONARCLOUD_ORG":   "my-org",
		})

		cfg, err := LoadFromEnv()
		if err != nil {
			t.Fatalf("LoadFromEnv() unexpected error: %v", err)
		}
		if cfg.SonarToken != "test-token-12345" {
			t.Errorf("LoadFromEnv() token = %v, want test-token-12345", cfg.SonarToken)
		}
		if cfg.Organization != "my-org" {
			t.Errorf("LoadFromEnv() org = %v, want my-org", cfg.Organization)
		}
		if cfg.StorageProvider != "memory" {
			t.Errorf("LoadFromEnv() provider = %v, want memory default", cfg.StorageProvider)
		}
		if cfg.MaxRows != 0 {
			t.Errorf("LoadFromEnv() maxRows = %v, want 0", cfg.MaxRows)
		}
	})

	t.Run("missing token", func(t *testing.T) {
		setEnv(t, map[string]string{"SONARCLOUD_ORG": "my-org"})

		if _, err := LoadFromEnv(); err == nil {
			t.Error("LoadFromEnv() expected error for missing token, got nil")
		}
	})

	t.Run("missing org", func(t *testing.T) {
		setEnv(t, map[string]string{"SONARCLOUD_TOKEN": "tok"})

		if _, err := LoadFromEnv(); err == nil {
			t.Error("LoadFromEnv() expected error for missing org, got nil")
		}
	})

	t.Run("postgres requires database url", func(t *testing.T) {
		setEnv(t, map[string]string{
			"SONARCLOUD_TOKEN": "tok",
			"SONARCLOUD_ORG":   "my-org",
			"STORAGE_PROVIDER": "postgres",
		})

		if _, err := LoadFromEnv(); err == nil {
			t.Error("LoadFromEnv() expected error for postgres without DATABASE_URL, got nil")
		}
	})

	t.Run("postgres with database url", func(t *testing.T) {
		setEnv(t, map[string]string{
			"SONARCLOUD_TOKEN": "tok",
			"SONARCLOUD_ORG":   "my-org",
			"STORAGE_PROVIDER": "postgres",
			"DATABASE_URL":     "postgres://localhost/sonardash?sslmode=disable",
		})

		cfg, err := LoadFromEnv()
		if err != nil {
			t.Fatalf("LoadFromEnv() unexpected error: %v", err)
		}
		if cfg.StorageProvider != "postgres" {
			t.Errorf("LoadFromEnv() provider = %v, want postgres", cfg.StorageProvider)
		}
	})

	t.Run("broker list is split and trimmed", func(t *testing.T) {
		setEnv(t, map[string]string{
			"SONARCLOUD_TOKEN": "tok",
			"SONARCLOUD_ORG":   "my-org",
			"REDPANDA_BROKERS": "localhost:19092, localhost:29092",
		})

		cfg, err := LoadFromEnv()
		if err != nil {
			t.Fatalf("LoadFromEnv() unexpected error: %v", err)
		}
		if len(cfg.RedpandaBrokers) != 2 {
			t.Fatalf("LoadFromEnv() brokers = %v, want 2 entries", cfg.RedpandaBrokers)
		}
		if cfg.RedpandaBrokers[1] != "localhost:29092" {
			t.Errorf("LoadFromEnv() brokers[1] = %v, want localhost:29092", cfg.RedpandaBrokers[1])
		}
	})

	t.Run("invalid max rows", func(t *testing.T) {
		setEnv(t, map[string]string{
			"SONARCLOUD_TOKEN":   "tok",
			"SONARCLOUD_ORG":     "my-org",
			"SONARDASH_MAX_ROWS": "not-a-number",
		})

		if _, err := LoadFromEnv(); err == nil {
			t.Error("LoadFromEnv() expected error for invalid max rows, got nil")
		}
	})

	t.Run("valid max rows", func(t *testing.T) {
		setEnv(t, map[string]string{
			"SONARCLOUD_TOKEN":   "tok",
			"SONARCLOUD_ORG":     "my-org",
			"SONARDASH_MAX_ROWS": "5000",
		})

		cfg, err := LoadFromEnv()
		if err != nil {
			t.Fatalf("LoadFromEnv() unexpected error: %v", err)
		}
		if cfg.MaxRows != 5000 {
			t.Errorf("LoadFromEnv() maxRows = %v, want 5000", cfg.MaxRows)
		}
	})
}
