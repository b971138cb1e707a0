package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kjstillabower/weather-desk/internal/cache"
	"github.com/kjstillabower/weather-desk/internal/client"
	"github.com/kjstillabower/weather-desk/internal/forecast"
	"github.com/kjstillabower/weather-desk/internal/models"
	"github.com/kjstillabower/weather-desk/internal/observability"
	"github.com/kjstillabower/weather-desk/internal/validation"
)

// ErrInvalidUnits is returned for a unit system other than metric, imperial or standard.
var ErrInvalidUnits = errors.New("units must be metric, imperial or standard")

// HistoryStore records successful city lookups, most recent first.
type HistoryStore interface {
	Add(city string) ([]string, error)
	List() []string
	Remove(city string) (bool, error)
	Clear() error
}

// Options configures a WeatherService. Zero values disable the matching feature.
type Options struct {
	TTL             time.Duration
	StaleCacheTTL   time.Duration // maximum age for stale cache fallback (0 = disabled)
	CoalesceEnabled bool
	CoalesceTimeout time.Duration
	DefaultUnits    string
	CityMinLength   int
	CityMaxLength   int
}

// WeatherService builds weather reports using the cache-aside pattern with upstream
// fallback, and keeps the search history in step with successful lookups.
type WeatherService struct {
	client          client.WeatherClient
	cache           cache.Cache
	history         HistoryStore
	opts            Options
	stampedeTracker *stampedeTracker
	coalescer       *requestCoalescer // nil if disabled
	now             func() time.Time
}

// NewWeatherService creates a new WeatherService with the provided dependencies.
// history may be nil, in which case lookups are not recorded.
func NewWeatherService(client client.WeatherClient, cache cache.Cache, history HistoryStore, opts Options) *WeatherService {
	var coalescer *requestCoalescer
	if opts.CoalesceEnabled && opts.CoalesceTimeout > 0 {
		coalescer = newRequestCoalescer(opts.CoalesceTimeout)
	}
	if opts.DefaultUnits == "" {
		opts.DefaultUnits = "metric"
	}
	s := &WeatherService{
		client:          client,
		cache:           cache,
		history:         history,
		opts:            opts,
		stampedeTracker: newStampedeTracker(),
		coalescer:       coalescer,
		now:             time.Now,
	}
	if history != nil {
		observability.SearchHistorySize.Set(float64(len(history.List())))
	}
	return s
}

// loggerFromContext extracts a zap.Logger from request context if present.
// Returns nil if logger is not found or context is invalid.
func loggerFromContext(ctx context.Context) *zap.Logger {
	if v := ctx.Value("logger"); v != nil {
		if l, ok := v.(*zap.Logger); ok && l != nil {
			return l
		}
	}
	return nil
}

// GetReport returns current conditions and the daily forecast for city.
// The city is validated before any network call. On success the city is recorded in the
// search history. When the upstream is unavailable a cached report up to StaleCacheTTL old
// is returned with Stale set.
func (s *WeatherService) GetReport(ctx context.Context, city, units string) (models.Report, error) {
	city, units, err := s.normalize(city, units)
	if err != nil {
		return models.Report{}, err
	}
	key := cache.Key(city, units)
	start := time.Now()
	logger := loggerFromContext(ctx)
	observability.WeatherQueriesTotal.WithLabelValues(units).Inc()

	cached, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		observability.CacheErrorsTotal.WithLabelValues("get").Inc()
		if logger != nil {
			logger.Warn("cache get failed", zap.String("key", key), zap.String("category", categorizeCacheError(err)), zap.Error(err))
		}
	} else if ok {
		observability.CacheHitsTotal.Inc()
		if logger != nil {
			logger.Debug("report served", zap.String("key", key), zap.Bool("cached", true), zap.Duration("duration", time.Since(start)))
		}
		s.recordHistory(city, logger)
		return s.upcoming(cached), nil
	}
	observability.CacheMissesTotal.Inc()

	report, err := s.fetchAndStore(ctx, key, city, units, logger)
	if err != nil {
		if stale, ok := s.staleFallback(ctx, key, err, logger); ok {
			return stale, nil
		}
		return models.Report{}, fmt.Errorf("fetch weather for %s: %w", city, err)
	}

	s.recordHistory(city, logger)
	if logger != nil {
		logger.Debug("report served", zap.String("key", key), zap.Bool("cached", false), zap.Duration("duration", time.Since(start)))
	}
	return report, nil
}

// Prefetch fetches a fresh report for city and stores it in the cache without touching
// the search history. Used by the cache warmer.
func (s *WeatherService) Prefetch(ctx context.Context, city, units string) error {
	city, units, err := s.normalize(city, units)
	if err != nil {
		return err
	}
	_, err = s.fetchAndStore(ctx, cache.Key(city, units), city, units, loggerFromContext(ctx))
	return err
}

// History returns the search history, most recent first.
func (s *WeatherService) History() []string {
	if s.history == nil {
		return []string{}
	}
	return s.history.List()
}

// ClearHistory removes every entry from the search history.
func (s *WeatherService) ClearHistory() error {
	if s.history == nil {
		return nil
	}
	if err := s.history.Clear(); err != nil {
		observability.SearchHistoryWriteErrorsTotal.Inc()
		return fmt.Errorf("clear history: %w", err)
	}
	observability.SearchHistorySize.Set(0)
	return nil
}

// RemoveHistory removes city from the search history, ignoring case.
// Reports whether an entry was removed.
func (s *WeatherService) RemoveHistory(city string) (bool, error) {
	if s.history == nil {
		return false, nil
	}
	removed, err := s.history.Remove(city)
	if err != nil {
		observability.SearchHistoryWriteErrorsTotal.Inc()
		return false, fmt.Errorf("remove %s from history: %w", city, err)
	}
	observability.SearchHistorySize.Set(float64(len(s.history.List())))
	return removed, nil
}

// normalize validates the city and resolves the unit system.
func (s *WeatherService) normalize(city, units string) (string, string, error) {
	city, err := validation.ValidateCity(city, s.opts.CityMinLength, s.opts.CityMaxLength)
	if err != nil {
		return "", "", err
	}
	units = strings.ToLower(strings.TrimSpace(units))
	if units == "" {
		units = s.opts.DefaultUnits
	}
	switch units {
	case "metric", "imperial", "standard":
	default:
		return "", "", fmt.Errorf("%w: %q", ErrInvalidUnits, units)
	}
	return city, units, nil
}

// fetchAndStore fetches a report upstream, coalescing concurrent misses on key, and caches it.
func (s *WeatherService) fetchAndStore(ctx context.Context, key, city, units string, logger *zap.Logger) (models.Report, error) {
	concurrentMisses := s.stampedeTracker.RecordMiss(key)
	defer s.stampedeTracker.RecordHit(key)
	if concurrentMisses > 1 {
		observability.CacheStampedeDetectedTotal.Inc()
	}
	if logger != nil {
		logger.Debug("cache miss, fetching upstream", zap.String("key", key), zap.Int("concurrent_misses", concurrentMisses))
	}

	var (
		report models.Report
		err    error
	)
	if s.coalescer != nil {
		var shared bool
		report, shared, err = s.coalescer.GetOrDo(ctx, key, func(fetchCtx context.Context) (models.Report, error) {
			return s.fetchReport(fetchCtx, city, units)
		})
		if shared && err == nil {
			observability.RequestCoalescingHitsTotal.Inc()
		}
	} else {
		report, err = s.fetchReport(ctx, city, units)
	}
	if err != nil {
		return models.Report{}, err
	}

	if setErr := s.cache.Set(ctx, key, report, s.opts.TTL); setErr != nil {
		observability.CacheErrorsTotal.WithLabelValues("set").Inc()
		if logger != nil {
			logger.Warn("cache set failed", zap.String("key", key), zap.String("category", categorizeCacheError(setErr)), zap.Error(setErr))
		}
	}
	return report, nil
}

// fetchReport requests current weather and the forecast concurrently. The first failure
// cancels the other request.
func (s *WeatherService) fetchReport(ctx context.Context, city, units string) (models.Report, error) {
	var (
		current models.CurrentWeather
		fc      client.Forecast
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		current, err = s.client.GetCurrentWeather(gctx, city, units)
		return err
	})
	g.Go(func() error {
		var err error
		fc, err = s.client.GetForecast(gctx, city, units)
		return err
	})
	if err := g.Wait(); err != nil {
		return models.Report{}, err
	}

	now := s.now()
	return models.Report{
		City:      current.City,
		Units:     units,
		Current:   current,
		Daily:     forecast.Bucket(fc.Samples, now, fc.Location()),
		Timestamp: now.UTC(),
		UTCOffset: fc.TimezoneOffset,
	}, nil
}

// upcoming trims daily entries a cached report has outlived, so a report stored before
// the city's midnight never lists today.
func (s *WeatherService) upcoming(r models.Report) models.Report {
	loc := time.UTC
	if r.UTCOffset != 0 {
		loc = time.FixedZone("", r.UTCOffset)
	}
	r.Daily = forecast.Upcoming(r.Daily, s.now(), loc)
	return r
}

// staleFallback serves an expired cached report when the upstream itself failed.
// Lookups the upstream answered (unknown city, rejected key) are never masked.
func (s *WeatherService) staleFallback(ctx context.Context, key string, upstreamErr error, logger *zap.Logger) (models.Report, bool) {
	if s.opts.StaleCacheTTL <= 0 {
		return models.Report{}, false
	}
	if !client.IsUpstreamFailure(upstreamErr) && !errors.Is(upstreamErr, client.ErrCircuitOpen) {
		return models.Report{}, false
	}
	stale, ok, err := s.cache.GetStale(ctx, key, s.opts.StaleCacheTTL)
	if err != nil || !ok {
		return models.Report{}, false
	}
	observability.StaleCacheServesTotal.Inc()
	stale = s.upcoming(stale)
	stale.Stale = true
	if logger != nil {
		logger.Info("serving stale cache", zap.String("key", key), zap.Duration("age", s.now().Sub(stale.Timestamp)), zap.Error(upstreamErr))
	}
	return stale, true
}

// recordHistory adds city to the search history. Write failures are logged, not returned:
// the lookup itself succeeded.
func (s *WeatherService) recordHistory(city string, logger *zap.Logger) {
	if s.history == nil {
		return
	}
	entries, err := s.history.Add(city)
	if err != nil {
		observability.SearchHistoryWriteErrorsTotal.Inc()
		if logger != nil {
			logger.Warn("search history write failed", zap.String("city", city), zap.Error(err))
		}
	}
	observability.SearchHistorySize.Set(float64(len(entries)))
}

// categorizeCacheError returns a stable label for cache error logs (timeout, connection, unknown).
func categorizeCacheError(err error) string {
	if err == nil {
		return "unknown"
	}
	errStr := err.Error()
	if strings.Contains(errStr, "timeout") {
		return "timeout"
	}
	if strings.Contains(errStr, "connection") || strings.Contains(errStr, "network") {
		return "connection"
	}
	return "unknown"
}
