package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultWeatherURL  = "https://api.openweathermap.org/data/2.5/weather"
	defaultForecastURL = "https://api.openweathermap.org/data/2.5/forecast"

	// placeholderAPIKey is the value shipped in example .env files.
	placeholderAPIKey = "your_api_key_here"
)

// Config holds service configuration loaded from .env, YAML and environment.
type Config struct {
	ServerPort string

	WeatherAPIKey         string
	WeatherAPIURL         string
	WeatherAPIForecastURL string
	WeatherAPITimeout     time.Duration
	Units                 string // "metric", "imperial" or "standard"

	RequestTimeout time.Duration
	CityMinLength  int
	CityMaxLength  int

	CacheBackend    string // "in_memory" or "memcached"
	CacheTTL        time.Duration
	StaleCacheTTL   time.Duration
	CoalesceEnabled bool
	CoalesceTimeout time.Duration
	WarmFromHistory bool
	WarmInterval    time.Duration

	MemcachedAddrs        string
	MemcachedTimeout      time.Duration
	MemcachedMaxIdleConns int

	RetryAttempts  int
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration
	RateLimitRPS   int
	RateLimitBurst int

	CircuitBreakerEnabled          bool
	CircuitBreakerFailureThreshold int
	CircuitBreakerSuccessThreshold int
	CircuitBreakerTimeout          time.Duration

	HistoryFile       string
	HistoryMaxEntries int

	DatabaseDriver string // "sqlite3", "postgres" or "pgx"
	DatabaseDSN    string

	ShutdownTimeout               time.Duration
	ShutdownInFlightTimeout       time.Duration
	ShutdownInFlightCheckInterval time.Duration

	DegradedWindow   time.Duration
	DegradedErrorPct int
}

type fileConfig struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`

	WeatherAPI struct {
		URL         string `yaml:"url"`
		ForecastURL string `yaml:"forecast_url"`
		Timeout     string `yaml:"timeout"`
		Units       string `yaml:"units"`
	} `yaml:"weather_api"`

	Request struct {
		Timeout string `yaml:"timeout"`
	} `yaml:"request"`

	City struct {
		MinLength int `yaml:"min_length"`
		MaxLength int `yaml:"max_length"`
	} `yaml:"city"`

	Cache struct {
		Backend  string `yaml:"backend"`
		TTL      string `yaml:"ttl"`
		StaleTTL string `yaml:"stale_ttl"`
		Coalesce struct {
			Enabled *bool  `yaml:"enabled"`
			Timeout string `yaml:"timeout"`
		} `yaml:"coalesce"`
		WarmFromHistory bool   `yaml:"warm_from_history"`
		WarmInterval    string `yaml:"warm_interval"`
		Memcached       struct {
			Addrs        string `yaml:"addrs"`
			Timeout      string `yaml:"timeout"`
			MaxIdleConns int    `yaml:"max_idle_conns"`
		} `yaml:"memcached"`
	} `yaml:"cache"`

	Reliability struct {
		RetryMaxAttempts int    `yaml:"retry_max_attempts"`
		RetryBaseDelay   string `yaml:"retry_base_delay"`
		RetryMaxDelay    string `yaml:"retry_max_delay"`
		RateLimitRPS     int    `yaml:"rate_limit_rps"`
		RateLimitBurst   int    `yaml:"rate_limit_burst"`
		CircuitBreaker   struct {
			Enabled          bool   `yaml:"enabled"`
			FailureThreshold int    `yaml:"failure_threshold"`
			SuccessThreshold int    `yaml:"success_threshold"`
			Timeout          string `yaml:"timeout"`
		} `yaml:"circuit_breaker"`
	} `yaml:"reliability"`

	History struct {
		File       string `yaml:"file"`
		MaxEntries int    `yaml:"max_entries"`
	} `yaml:"history"`

	Database struct {
		Driver string `yaml:"driver"`
		DSN    string `yaml:"dsn"`
	} `yaml:"database"`

	Shutdown struct {
		Timeout               string `yaml:"timeout"`
		InFlightTimeout       string `yaml:"inflight_timeout"`
		InFlightCheckInterval string `yaml:"inflight_check_interval"`
	} `yaml:"shutdown"`

	Lifecycle struct {
		DegradedWindow   string `yaml:"degraded_window"`
		DegradedErrorPct int    `yaml:"degraded_error_pct"`
	} `yaml:"lifecycle"`
}

type secretsFile struct {
	WeatherAPIKey string `yaml:"weather_api_key"`
	DatabaseDSN   string `yaml:"database_dsn"`
}

// Load reads configuration for commands that call the weather API. It fails when no
// usable API key is configured. See LoadOffline for database-only commands.
func Load() (*Config, error) {
	return load(true)
}

// LoadOffline reads configuration without requiring a weather API key.
// Used by the contacts and users commands.
func LoadOffline() (*Config, error) {
	return load(false)
}

// load reads .env, then config/{ENV_NAME}.yaml (default dev) and config/secrets.yaml from
// CONFIG_DIR (default ./config). Environment variables override file values.
func load(requireAPIKey bool) (*Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("config: get working directory: %w", err)
	}
	if err := loadDotEnv(filepath.Join(cwd, ".env")); err != nil {
		return nil, err
	}

	env := os.Getenv("ENV_NAME")
	if env == "" {
		env = "dev"
	}
	configDir := os.Getenv("CONFIG_DIR")
	if configDir == "" {
		configDir = filepath.Join(cwd, "config")
	}
	configPath := filepath.Join(configDir, env+".yaml")
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", configPath)
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	sec, err := readSecrets(filepath.Join(configDir, "secrets.yaml"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	cfg.ServerPort = firstNonEmpty(os.Getenv("PORT"), fc.Server.Port, "8080")

	cfg.WeatherAPIKey = strings.TrimSpace(firstNonEmpty(os.Getenv("OPENWEATHER_API_KEY"), os.Getenv("WEATHER_API_KEY"), sec.WeatherAPIKey))
	if requireAPIKey && (cfg.WeatherAPIKey == "" || cfg.WeatherAPIKey == placeholderAPIKey) {
		return nil, fmt.Errorf("OPENWEATHER_API_KEY not found or default value used (set env, .env or config/secrets.yaml weather_api_key)")
	}

	cfg.WeatherAPIURL = firstNonEmpty(os.Getenv("OPENWEATHER_BASE_URL"), fc.WeatherAPI.URL, defaultWeatherURL)
	cfg.WeatherAPIForecastURL = firstNonEmpty(os.Getenv("OPENWEATHER_FORECAST_URL"), fc.WeatherAPI.ForecastURL, defaultForecastURL)
	cfg.WeatherAPITimeout = parseDurationOrZero(fc.WeatherAPI.Timeout, 10*time.Second)
	cfg.Units = strings.ToLower(strings.TrimSpace(firstNonEmpty(os.Getenv("WEATHER_UNITS"), fc.WeatherAPI.Units, "metric")))

	cfg.RequestTimeout = parseDuration(fc.Request.Timeout, 15*time.Second)
	cfg.CityMinLength = fc.City.MinLength
	if cfg.CityMinLength <= 0 {
		cfg.CityMinLength = 1
	}
	cfg.CityMaxLength = fc.City.MaxLength
	if cfg.CityMaxLength <= 0 {
		cfg.CityMaxLength = 100
	}

	cfg.CacheBackend = strings.TrimSpace(strings.ToLower(firstNonEmpty(os.Getenv("CACHE_BACKEND"), fc.Cache.Backend, "in_memory")))
	cfg.CacheTTL = parseDuration(fc.Cache.TTL, 5*time.Minute)
	cfg.StaleCacheTTL = parseDurationOrZero(fc.Cache.StaleTTL, time.Hour)
	if cfg.StaleCacheTTL < 0 {
		cfg.StaleCacheTTL = 0
	}
	cfg.CoalesceEnabled = true
	if fc.Cache.Coalesce.Enabled != nil {
		cfg.CoalesceEnabled = *fc.Cache.Coalesce.Enabled
	}
	cfg.CoalesceTimeout = parseDuration(fc.Cache.Coalesce.Timeout, 20*time.Second)
	cfg.WarmFromHistory = fc.Cache.WarmFromHistory
	cfg.WarmInterval = parseDurationOrZero(fc.Cache.WarmInterval, 0)

	cfg.MemcachedAddrs = strings.TrimSpace(firstNonEmpty(os.Getenv("MEMCACHED_ADDRS"), fc.Cache.Memcached.Addrs, "localhost:11211"))
	cfg.MemcachedTimeout = parseDuration(fc.Cache.Memcached.Timeout, 500*time.Millisecond)
	cfg.MemcachedMaxIdleConns = fc.Cache.Memcached.MaxIdleConns
	if cfg.MemcachedMaxIdleConns <= 0 {
		cfg.MemcachedMaxIdleConns = 2
	}

	cfg.RetryAttempts = fc.Reliability.RetryMaxAttempts
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = 3
	}
	cfg.RetryBaseDelay = parseDuration(fc.Reliability.RetryBaseDelay, 200*time.Millisecond)
	cfg.RetryMaxDelay = parseDuration(fc.Reliability.RetryMaxDelay, 2*time.Second)
	cfg.RateLimitRPS = fc.Reliability.RateLimitRPS
	if cfg.RateLimitRPS <= 0 {
		cfg.RateLimitRPS = 20
	}
	cfg.RateLimitBurst = fc.Reliability.RateLimitBurst
	if cfg.RateLimitBurst <= 0 {
		cfg.RateLimitBurst = 40
	}
	cb := fc.Reliability.CircuitBreaker
	cfg.CircuitBreakerEnabled = cb.Enabled
	cfg.CircuitBreakerFailureThreshold = cb.FailureThreshold
	if cfg.CircuitBreakerFailureThreshold <= 0 {
		cfg.CircuitBreakerFailureThreshold = 5
	}
	cfg.CircuitBreakerSuccessThreshold = cb.SuccessThreshold
	if cfg.CircuitBreakerSuccessThreshold <= 0 {
		cfg.CircuitBreakerSuccessThreshold = 2
	}
	cfg.CircuitBreakerTimeout = parseDuration(cb.Timeout, 30*time.Second)

	cfg.HistoryFile = firstNonEmpty(os.Getenv("HISTORY_FILE"), fc.History.File, "search_history.json")
	cfg.HistoryMaxEntries = fc.History.MaxEntries
	if cfg.HistoryMaxEntries <= 0 {
		cfg.HistoryMaxEntries = 10
	}

	cfg.DatabaseDriver = strings.ToLower(strings.TrimSpace(firstNonEmpty(os.Getenv("DB_DRIVER"), fc.Database.Driver, "sqlite3")))
	cfg.DatabaseDSN = firstNonEmpty(os.Getenv("DATABASE_URL"), sec.DatabaseDSN, fc.Database.DSN)
	if cfg.DatabaseDSN == "" {
		cfg.DatabaseDSN = defaultDSN(cfg.DatabaseDriver)
	}

	cfg.ShutdownTimeout = parseDuration(fc.Shutdown.Timeout, 30*time.Second)
	cfg.ShutdownInFlightTimeout = parseDuration(fc.Shutdown.InFlightTimeout, 10*time.Second)
	cfg.ShutdownInFlightCheckInterval = parseDuration(fc.Shutdown.InFlightCheckInterval, 100*time.Millisecond)

	cfg.DegradedWindow = parseDuration(fc.Lifecycle.DegradedWindow, 60*time.Second)
	cfg.DegradedErrorPct = fc.Lifecycle.DegradedErrorPct
	if cfg.DegradedErrorPct <= 0 {
		cfg.DegradedErrorPct = 25
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadDotEnv loads KEY=VALUE pairs from path into the process environment.
// Variables that are already set win. A missing file is not an error.
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func readSecrets(path string) (secretsFile, error) {
	var sec secretsFile
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return sec, nil
		}
		return sec, fmt.Errorf("read secrets file: %w", err)
	}
	if err := yaml.Unmarshal(data, &sec); err != nil {
		return sec, fmt.Errorf("parse secrets file: %w", err)
	}
	return sec, nil
}

// defaultDSN returns a local development DSN for driver. Postgres DSNs are built from DB_* env.
func defaultDSN(driver string) string {
	switch driver {
	case "postgres", "pgx":
		return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
			getEnvOrDefault("DB_HOST", "localhost"),
			getEnvOrDefault("DB_PORT", "5432"),
			getEnvOrDefault("DB_USER", "postgres"),
			getEnvOrDefault("DB_PASSWORD", "postgres"),
			getEnvOrDefault("DB_NAME", "weatherdesk"),
		)
	default:
		return "file:weatherdesk.db?_foreign_keys=on"
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// parseDuration parses a duration string and returns defaultVal if parsing fails or result is <= 0.
func parseDuration(s string, defaultVal time.Duration) time.Duration {
	d := parseDurationOrZero(s, defaultVal)
	if d <= 0 {
		return defaultVal
	}
	return d
}

// parseDurationOrZero parses a duration string, returning defaultVal on empty string or parse error.
// Returns zero or negative durations as-is (caller should handle fallback).
func parseDurationOrZero(s string, defaultVal time.Duration) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return defaultVal
	}
	return d
}

// validate performs post-load validation. RequestTimeout is raised above the worst case of
// one upstream call so handlers do not time out before the client does.
func validate(cfg *Config) error {
	if cfg.WeatherAPITimeout <= 0 {
		return fmt.Errorf("weather_api.timeout must be positive")
	}
	if cfg.RequestTimeout <= cfg.WeatherAPITimeout {
		cfg.RequestTimeout = cfg.WeatherAPITimeout + time.Second
	}
	switch cfg.Units {
	case "metric", "imperial", "standard":
	default:
		return fmt.Errorf("weather_api.units must be metric, imperial or standard, got %q", cfg.Units)
	}
	switch cfg.CacheBackend {
	case "in_memory", "memcached":
	default:
		return fmt.Errorf("cache.backend must be in_memory or memcached, got %q", cfg.CacheBackend)
	}
	switch cfg.DatabaseDriver {
	case "sqlite3", "postgres", "pgx":
	default:
		return fmt.Errorf("database.driver must be sqlite3, postgres or pgx, got %q", cfg.DatabaseDriver)
	}
	if cfg.HistoryMaxEntries > 10 {
		return fmt.Errorf("history.max_entries must be at most 10, got %d", cfg.HistoryMaxEntries)
	}
	if cfg.CityMinLength > cfg.CityMaxLength {
		return fmt.Errorf("city.min_length (%d) exceeds city.max_length (%d)", cfg.CityMinLength, cfg.CityMaxLength)
	}
	return nil
}
