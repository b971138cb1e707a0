package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kjstillabower/weather-desk/internal/observability"
)

// maxConcurrentWarms bounds upstream calls issued by a single warming run.
const maxConcurrentWarms = 4

// Prefetcher is implemented by the service layer to fetch and cache a report without
// touching the search history. Used by CacheWarmer to avoid a circular dependency.
type Prefetcher interface {
	Prefetch(ctx context.Context, city, units string) error
}

// CacheWarmer warms the cache by prefetching reports for a list of cities.
type CacheWarmer struct {
	fetcher Prefetcher
	logger  *zap.Logger
}

// NewCacheWarmer creates a CacheWarmer that uses the given fetcher and logger.
func NewCacheWarmer(fetcher Prefetcher, logger *zap.Logger) *CacheWarmer {
	return &CacheWarmer{fetcher: fetcher, logger: logger}
}

// Warm prefetches each city concurrently. Every city is attempted; failures are joined
// into the returned error.
func (w *CacheWarmer) Warm(ctx context.Context, cities []string, units string) error {
	start := time.Now()
	observability.CacheWarmingTotal.Inc()
	if w.logger != nil {
		w.logger.Info("warming cache", zap.Int("cities", len(cities)), zap.String("units", units))
	}

	var (
		mu   sync.Mutex
		errs []error
	)
	var g errgroup.Group
	g.SetLimit(maxConcurrentWarms)
	for _, city := range cities {
		city := city
		g.Go(func() error {
			if err := w.fetcher.Prefetch(ctx, city, units); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("warm %s: %w", city, err))
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	duration := time.Since(start).Seconds()
	observability.CacheWarmingDurationSeconds.Observe(duration)
	if w.logger != nil {
		w.logger.Info("cache warming complete", zap.Int("cities", len(cities)), zap.Int("errors", len(errs)), zap.Float64("duration_seconds", duration))
	}
	if len(errs) > 0 {
		observability.CacheWarmingErrorsTotal.Inc()
		return fmt.Errorf("cache warming: %w", errors.Join(errs...))
	}
	return nil
}

// WarmPeriodic runs an initial Warm, then refreshes at the given interval until ctx is done.
// cities is called before every run so the set follows the current search history.
func (w *CacheWarmer) WarmPeriodic(ctx context.Context, cities func() []string, units string, interval time.Duration) error {
	if err := w.Warm(ctx, cities(), units); err != nil && w.logger != nil {
		w.logger.Warn("initial cache warm failed", zap.Error(err))
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.Warm(ctx, cities(), units); err != nil && w.logger != nil {
				w.logger.Warn("periodic cache warm failed", zap.Error(err))
			}
		}
	}
}
