package service

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/kjstillabower/weather-desk/internal/client"
	"github.com/kjstillabower/weather-desk/internal/models"
)

// requestCoalescer prevents cache stampede by sharing one upstream fetch between
// concurrent requests for the same key.
type requestCoalescer struct {
	group   singleflight.Group
	timeout time.Duration
}

// newRequestCoalescer creates a new requestCoalescer with the specified timeout.
func newRequestCoalescer(timeout time.Duration) *requestCoalescer {
	return &requestCoalescer{timeout: timeout}
}

// GetOrDo runs fn for key unless a call for key is already in flight, in which case it
// waits for that call's result. shared reports whether the result went to more than one
// caller. fn receives a context that keeps the first caller's values but not its
// cancellation, bounded by the coalescer timeout, so one caller giving up does not fail
// the others. Waiting stops at ctx cancellation or the timeout.
func (rc *requestCoalescer) GetOrDo(ctx context.Context, key string, fn func(ctx context.Context) (models.Report, error)) (models.Report, bool, error) {
	ch := rc.group.DoChan(key, func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), rc.timeout)
		defer cancel()
		return fn(fetchCtx)
	})

	waitCtx, cancel := context.WithTimeout(ctx, rc.timeout)
	defer cancel()
	select {
	case res := <-ch:
		if res.Err != nil {
			return models.Report{}, res.Shared, res.Err
		}
		return res.Val.(models.Report), res.Shared, nil
	case <-waitCtx.Done():
		return models.Report{}, false, client.NewTimeoutError(waitCtx.Err())
	}
}
