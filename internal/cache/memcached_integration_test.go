//go:build integration
// +build integration

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/kjstillabower/weather-desk/internal/models"
)

// TestMemcachedCache_GetSet_Integration verifies that MemcachedCache successfully
// stores and retrieves reports when a memcached server is available.
func TestMemcachedCache_GetSet_Integration(t *testing.T) {
	c, err := NewMemcachedCache("localhost:11211", 500*time.Millisecond, 2, time.Hour)
	if err != nil {
		t.Fatalf("NewMemcachedCache() error = %v", err)
	}
	defer c.Close()

	ctx := context.Background()
	key := Key("New York", "metric")
	val := models.Report{City: "New York", Units: "metric", Current: models.CurrentWeather{Temperature: 12.5}}
	if err := c.Set(ctx, key, val, time.Minute); err != nil {
		t.Skipf("Set failed (memcached may not be running): %v", err)
	}

	got, ok, err := c.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !ok {
		t.Fatal("Get() ok = false, want true")
	}
	if got.City != val.City || got.Current.Temperature != val.Current.Temperature {
		t.Errorf("Get() = %+v, want %+v", got, val)
	}
}

// TestMemcachedCache_GetStale_Integration verifies an expired report is still served stale.
func TestMemcachedCache_GetStale_Integration(t *testing.T) {
	c, err := NewMemcachedCache("localhost:11211", 500*time.Millisecond, 2, time.Hour)
	if err != nil {
		t.Fatalf("NewMemcachedCache() error = %v", err)
	}
	defer c.Close()

	ctx := context.Background()
	key := Key("Oslo", "metric")
	if err := c.Set(ctx, key, models.Report{City: "Oslo"}, time.Second); err != nil {
		t.Skipf("Set failed (memcached may not be running): %v", err)
	}
	c.now = func() time.Time { return time.Now().Add(time.Minute) }

	if _, ok, _ := c.Get(ctx, key); ok {
		t.Error("Get() ok = true, want false after ttl")
	}
	got, ok, err := c.GetStale(ctx, key, time.Hour)
	if err != nil || !ok {
		t.Fatalf("GetStale() = ok %v, err %v", ok, err)
	}
	if got.City != "Oslo" {
		t.Errorf("GetStale() City = %q", got.City)
	}
}

// TestMemcachedCache_Get_Miss_Integration verifies that MemcachedCache returns
// ok=false when the requested key does not exist in memcached.
func TestMemcachedCache_Get_Miss_Integration(t *testing.T) {
	c, err := NewMemcachedCache("localhost:11211", 500*time.Millisecond, 2, time.Hour)
	if err != nil {
		t.Fatalf("NewMemcachedCache() error = %v", err)
	}
	defer c.Close()

	_, ok, err := c.Get(context.Background(), "nonexistent|metric")
	if err != nil {
		t.Skipf("Get failed (memcached may not be running): %v", err)
	}
	if ok {
		t.Error("Get() ok = true, want false for miss")
	}
}
