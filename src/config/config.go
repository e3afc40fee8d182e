// Package config provides configuration management for the Sonardash application.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds the application configuration.
type Config struct {
	// SonarToken is the API token for authenticating with SonarCloud.
	SonarToken string

	// Organization is the SonarCloud organization key to fetch projects from.
	Organization string

	// StorageProvider selects the table store backend ("memory" or "postgres").
	StorageProvider string

	// DatabaseURL is the Postgres connection string. Required when
	// StorageProvider is "postgres".
	DatabaseURL string

	// RedpandaBrokers lists broker addresses for event publishing.
	// Empty means events are not published.
	RedpandaBrokers []string

	// MaxRows caps the number of rows a single cache read returns.
	// Zero uses the built-in default.
	MaxRows int
}

// LoadFromEnv loads configuration from environment variables.
func LoadFromEnv() (*Config, error) {
	token := os.Getenv("SONARCLOUD_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("SONARCLOUD_TOKEN environment variable is required")
	}

	org := os.Getenv("SONARCLOUD_ORG")
	if org == "" {
		return nil, fmt.Errorf("SONARCLOUD_ORG environment variable is required")
	}

	provider := os.Getenv("STORAGE_PROVIDER")
	if provider == "" {
		provider = "memory"
	}

	databaseURL := os.Getenv("DATABASE_URL")
	if provider == "postgres" && databaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required when STORAGE_PROVIDER=postgres")
	}

	var brokers []string
	if raw := os.Getenv("REDPANDA_BROKERS"); raw != "" {
		for _, addr := range strings.Split(raw, ",") {
			if addr = strings.TrimSpace(addr); addr != "" {
				brokers = append(brokers, addr)
			}
		}
	}

	maxRows := 0
	if raw := os.Getenv("SONARDASH_MAX_ROWS"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("SONARDASH_MAX_ROWS must be a positive integer, got %q", raw)
		}
		maxRows = n
	}

	return &Config{
		SonarToken:      token,
		Organization:    org,
		StorageProvider: provider,
		DatabaseURL:     databaseURL,
		RedpandaBrokers: brokers,
		MaxRows:         maxRows,
	}, nil
}

// MustLoadFromEnv loads configuration from environment variables and panics on error.
// This is useful for initialization in main() where configuration errors should be fatal.
func MustLoadFromEnv() *Config {
	cfg, err := LoadFromEnv()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}
