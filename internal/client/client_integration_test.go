//go:build integration
// +build integration

package client

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"testing"
	"time"
)

const (
	liveWeatherURL  = "https://api.openweathermap.org/data/2.5/weather"
	liveForecastURL = "https://api.openweathermap.org/data/2.5/forecast"
)

func isValidAPIKeyFormat(key string) error {
	if len(key) != 32 {
		return fmt.Errorf("API key length is %d, expected 32", len(key))
	}

	hexPattern := regexp.MustCompile(`^[0-9a-fA-F]+$`)
	if !hexPattern.MatchString(key) {
		return fmt.Errorf("API key contains non-hexadecimal characters")
	}

	return nil
}

func liveClient(t *testing.T) *OpenWeatherClient {
	t.Helper()
	apiKey := os.Getenv("OPENWEATHER_API_KEY")
	if apiKey == "" {
		t.Skip("OPENWEATHER_API_KEY not set, skipping integration test")
	}
	if err := isValidAPIKeyFormat(apiKey); err != nil {
		t.Fatalf("API key format validation failed: %v", err)
	}
	client, err := NewOpenWeatherClient(apiKey, liveWeatherURL, liveForecastURL, 5*time.Second)
	if err != nil {
		t.Fatalf("NewOpenWeatherClient() error = %v", err)
	}
	return client
}

func TestOpenWeatherClient_ValidateAPIKey_Integration(t *testing.T) {
	if err := liveClient(t).ValidateAPIKey(context.Background()); err != nil {
		t.Errorf("ValidateAPIKey() error = %v, want nil (API key may not be activated yet)", err)
	}
}

func TestOpenWeatherClient_GetCurrentWeather_Integration(t *testing.T) {
	weather, err := liveClient(t).GetCurrentWeather(context.Background(), "London", "metric")
	if err != nil {
		t.Fatalf("GetCurrentWeather() error = %v (API key may not be activated yet)", err)
	}
	if weather.City == "" || weather.City == "Unknown" {
		t.Errorf("GetCurrentWeather() City = %q", weather.City)
	}
}

func TestOpenWeatherClient_GetForecast_Integration(t *testing.T) {
	fc, err := liveClient(t).GetForecast(context.Background(), "London", "metric")
	if err != nil {
		t.Fatalf("GetForecast() error = %v", err)
	}
	if len(fc.Samples) == 0 {
		t.Error("GetForecast() returned no samples")
	}
}
