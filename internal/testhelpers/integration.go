//go:build integration
// +build integration

// Package testhelpers wires live dependencies for integration tests.
package testhelpers

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/kjstillabower/weather-desk/internal/cache"
	"github.com/kjstillabower/weather-desk/internal/client"
	"github.com/kjstillabower/weather-desk/internal/history"
	"github.com/kjstillabower/weather-desk/internal/service"
	"github.com/kjstillabower/weather-desk/internal/store"
)

// IntegrationTestConfig holds configuration for integration tests.
type IntegrationTestConfig struct {
	APIKey        string
	WeatherURL    string
	ForecastURL   string
	CacheBackend  string // "in_memory" or "memcached"
	MemcachedAddr string
}

// GetIntegrationConfig loads integration test configuration from environment.
// Skips the test if OPENWEATHER_API_KEY is not set.
func GetIntegrationConfig(t *testing.T) IntegrationTestConfig {
	t.Helper()
	apiKey := os.Getenv("OPENWEATHER_API_KEY")
	if apiKey == "" {
		t.Skip("OPENWEATHER_API_KEY not set, skipping integration test")
	}
	return IntegrationTestConfig{
		APIKey:        apiKey,
		WeatherURL:    envOr("OPENWEATHER_BASE_URL", "https://api.openweathermap.org/data/2.5/weather"),
		ForecastURL:   envOr("OPENWEATHER_FORECAST_URL", "https://api.openweathermap.org/data/2.5/forecast"),
		CacheBackend:  os.Getenv("INTEGRATION_CACHE_BACKEND"),
		MemcachedAddr: envOr("MEMCACHED_ADDRS", "localhost:11211"),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// SetupIntegrationClient creates a live weather client.
func SetupIntegrationClient(t *testing.T, cfg IntegrationTestConfig) *client.OpenWeatherClient {
	t.Helper()
	c, err := client.NewOpenWeatherClient(cfg.APIKey, cfg.WeatherURL, cfg.ForecastURL, 5*time.Second)
	if err != nil {
		t.Fatalf("NewOpenWeatherClient() error = %v", err)
	}
	return c
}

// SetupIntegrationService creates a service backed by the live API, the configured cache
// and a temporary history file. Memcached falls back to in-memory when unreachable.
func SetupIntegrationService(t *testing.T, cfg IntegrationTestConfig) (*service.WeatherService, cache.Cache) {
	t.Helper()
	var cacheSvc cache.Cache = cache.NewInMemoryCache()
	if cfg.CacheBackend == "memcached" {
		mc, err := cache.NewMemcachedCache(cfg.MemcachedAddr, 500*time.Millisecond, 2, time.Hour)
		if err == nil && mc.Ping() == nil {
			cacheSvc = mc
			t.Cleanup(func() { _ = mc.Close() })
			t.Logf("Using Memcached cache at %s", cfg.MemcachedAddr)
		} else {
			t.Logf("Memcached not available, using in-memory cache")
		}
	}

	h, err := history.Open(filepath.Join(t.TempDir(), "search_history.json"), 10)
	if err != nil {
		t.Fatalf("history.Open() error = %v", err)
	}
	svc := service.NewWeatherService(SetupIntegrationClient(t, cfg), cacheSvc, h, service.Options{
		TTL:           5 * time.Minute,
		StaleCacheTTL: time.Hour,
		CityMaxLength: 100,
	})
	return svc, cacheSvc
}

// SetupIntegrationStore opens a throwaway sqlite store in the test's temp dir.
func SetupIntegrationStore(t *testing.T) *store.Store {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "weatherdesk.db") + "?_foreign_keys=on"
	s, err := store.Open(context.Background(), "sqlite3", dsn, store.WithBcryptCost(bcrypt.MinCost))
	if err != nil {
		t.Fatalf("store.Open() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}
