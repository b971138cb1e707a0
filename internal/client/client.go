package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/kjstillabower/weather-desk/internal/circuitbreaker"
	"github.com/kjstillabower/weather-desk/internal/forecast"
	"github.com/kjstillabower/weather-desk/internal/models"
	"github.com/kjstillabower/weather-desk/internal/observability"
)

// Endpoint labels used in metrics.
const (
	endpointWeather  = "weather"
	endpointForecast = "forecast"
)

// DefaultUnits is used when a caller passes no unit system.
const DefaultUnits = "metric"

const placeholderAPIKey = "your_api_key_here"

type WeatherClient interface {
	GetCurrentWeather(ctx context.Context, city, units string) (models.CurrentWeather, error)
	GetForecast(ctx context.Context, city, units string) (Forecast, error)
	ValidateAPIKey(ctx context.Context) error
}

// Forecast is the raw 5-day / 3-hour feed for a city.
type Forecast struct {
	City           string
	Country        string
	TimezoneOffset int // seconds east of UTC
	Samples        []models.ForecastSample
}

// Location returns a fixed zone for the city's UTC offset.
func (f Forecast) Location() *time.Location {
	if f.TimezoneOffset == 0 {
		return time.UTC
	}
	return time.FixedZone(f.City, f.TimezoneOffset)
}

type OpenWeatherClient struct {
	apiKey         string
	weatherURL     string
	forecastURL    string
	timeout        time.Duration
	client         *http.Client
	retryAttempts  int
	retryBaseDelay time.Duration
	retryMaxDelay  time.Duration
	breaker        *circuitbreaker.CircuitBreaker
}

func NewOpenWeatherClient(apiKey, weatherURL, forecastURL string, timeout time.Duration) (*OpenWeatherClient, error) {
	return NewOpenWeatherClientWithRetry(apiKey, weatherURL, forecastURL, timeout, 3, 200*time.Millisecond, 2*time.Second)
}

func NewOpenWeatherClientWithRetry(apiKey, weatherURL, forecastURL string, timeout time.Duration, retryAttempts int, retryBaseDelay, retryMaxDelay time.Duration) (*OpenWeatherClient, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" || apiKey == placeholderAPIKey {
		return nil, fmt.Errorf("%w: API key is required", ErrInvalidAPIKey)
	}
	if len(apiKey) < 10 {
		return nil, fmt.Errorf("%w: API key appears invalid (too short)", ErrInvalidAPIKey)
	}
	if retryAttempts < 1 {
		retryAttempts = 1
	}

	return &OpenWeatherClient{
		apiKey:         apiKey,
		weatherURL:     weatherURL,
		forecastURL:    forecastURL,
		timeout:        timeout,
		retryAttempts:  retryAttempts,
		retryBaseDelay: retryBaseDelay,
		retryMaxDelay:  retryMaxDelay,
		client: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// WithCircuitBreaker routes every upstream attempt through cb. The breaker should use
// IsUpstreamFailure so that 404 and 401 answers do not trip it.
func (c *OpenWeatherClient) WithCircuitBreaker(cb *circuitbreaker.CircuitBreaker) *OpenWeatherClient {
	c.breaker = cb
	return c
}

type weatherCondition struct {
	ID          int    `json:"id"`
	Main        string `json:"main"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

type currentResponse struct {
	Name string `json:"name"`
	Dt   int64  `json:"dt"`
	Sys  struct {
		Country string `json:"country"`
	} `json:"sys"`
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		Humidity  int     `json:"humidity"`
	} `json:"main"`
	Weather []weatherCondition `json:"weather"`
	Wind    struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
}

type forecastResponse struct {
	List []struct {
		Dt   int64 `json:"dt"`
		Main struct {
			Temp float64 `json:"temp"`
		} `json:"main"`
		Weather []weatherCondition `json:"weather"`
	} `json:"list"`
	City struct {
		Name     string `json:"name"`
		Country  string `json:"country"`
		Timezone int    `json:"timezone"`
	} `json:"city"`
}

// GetCurrentWeather fetches current conditions for city.
func (c *OpenWeatherClient) GetCurrentWeather(ctx context.Context, city, units string) (models.CurrentWeather, error) {
	city = strings.TrimSpace(city)
	if city == "" {
		return models.CurrentWeather{}, cityEmptyError()
	}
	units = normalizeUnits(units)

	var apiResp currentResponse
	if err := c.fetch(ctx, endpointWeather, c.weatherURL, city, units, &apiResp); err != nil {
		return models.CurrentWeather{}, err
	}
	return mapCurrent(apiResp, units), nil
}

// GetForecast fetches the 5-day / 3-hour forecast feed for city.
func (c *OpenWeatherClient) GetForecast(ctx context.Context, city, units string) (Forecast, error) {
	city = strings.TrimSpace(city)
	if city == "" {
		return Forecast{}, cityEmptyError()
	}
	units = normalizeUnits(units)

	var apiResp forecastResponse
	if err := c.fetch(ctx, endpointForecast, c.forecastURL, city, units, &apiResp); err != nil {
		return Forecast{}, err
	}
	return mapForecast(apiResp), nil
}

// fetch performs one logical request with retries, decoding a 200 body into out.
func (c *OpenWeatherClient) fetch(ctx context.Context, endpoint, apiURL, city, units string, out any) error {
	attempt := 0
	err := retry.Do(
		func() error {
			if attempt > 0 {
				observability.WeatherAPIRetriesTotal.WithLabelValues(endpoint).Inc()
			}
			attempt++
			return c.attempt(ctx, endpoint, apiURL, city, units, out)
		},
		retry.Context(ctx),
		retry.Attempts(uint(c.retryAttempts)),
		retry.Delay(c.retryBaseDelay),
		retry.MaxDelay(c.retryMaxDelay),
		retry.MaxJitter(c.retryBaseDelay/2+1),
		retry.DelayType(retry.CombineDelay(retry.BackOffDelay, retry.RandomDelay)),
		retry.RetryIf(isRetryable),
		retry.LastErrorOnly(true),
	)
	if err == nil {
		return nil
	}

	var we *WeatherError
	if !errors.As(err, &we) {
		// retry-go returns the context error when ctx ends between attempts.
		we = classifyTransportError(err)
	}
	observability.WeatherAPIErrorsTotal.WithLabelValues(string(CategorizeError(we))).Inc()
	return we
}

// attempt runs a single HTTP call, through the circuit breaker when one is configured.
func (c *OpenWeatherClient) attempt(ctx context.Context, endpoint, apiURL, city, units string, out any) error {
	if c.breaker == nil {
		return c.callAPI(ctx, endpoint, apiURL, city, units, out)
	}
	err := c.breaker.Call(ctx, func() error {
		return c.callAPI(ctx, endpoint, apiURL, city, units, out)
	})
	if errors.Is(err, circuitbreaker.ErrOpen) {
		return circuitOpenError(err)
	}
	if err != nil {
		var we *WeatherError
		if !errors.As(err, &we) {
			return classifyTransportError(err)
		}
	}
	return err
}

func (c *OpenWeatherClient) callAPI(ctx context.Context, endpoint, apiURL, city, units string, out any) error {
	start := time.Now()

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := c.buildRequest(reqCtx, apiURL, city, units)
	if err != nil {
		observability.WeatherAPICallsTotal.WithLabelValues(endpoint, "error").Inc()
		return unexpectedError(fmt.Errorf("build request: %w", err))
	}

	if corrID := extractCorrelationID(ctx); corrID != "" {
		req.Header.Set("X-Correlation-ID", corrID)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		duration := time.Since(start).Seconds()
		observability.WeatherAPICallsTotal.WithLabelValues(endpoint, "error").Inc()
		observability.WeatherAPIDuration.WithLabelValues(endpoint, "error").Observe(duration)
		return classifyTransportError(err)
	}
	defer resp.Body.Close()

	duration := time.Since(start).Seconds()
	status := statusLabel(resp.StatusCode)
	observability.WeatherAPICallsTotal.WithLabelValues(endpoint, status).Inc()
	observability.WeatherAPIDuration.WithLabelValues(endpoint, status).Observe(duration)

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return statusError(resp.StatusCode, city)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return classifyTransportError(fmt.Errorf("read response body: %w", err))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return unexpectedError(fmt.Errorf("parse response: %w", err))
	}
	return nil
}

// classifyTransportError maps errors from http.Client.Do to timeout or connection failures.
func classifyTransportError(err error) *WeatherError {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return timeoutError(err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return timeoutError(err)
	}
	var urlErr *url.Error
	var opErr *net.OpError
	if errors.As(err, &opErr) || errors.As(err, &urlErr) {
		return connectionError(err)
	}
	return unexpectedError(err)
}

// isRetryable reports whether another attempt could succeed. Caller cancellation stops retries.
func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	return IsUpstreamFailure(err)
}

func (c *OpenWeatherClient) buildRequest(ctx context.Context, apiURL, city, units string) (*http.Request, error) {
	baseURL, err := url.Parse(apiURL)
	if err != nil {
		return nil, fmt.Errorf("invalid API URL: %w", err)
	}

	params := url.Values{}
	params.Set("q", city)
	params.Set("appid", c.apiKey)
	params.Set("units", units)
	baseURL.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	return req, nil
}

func primaryCondition(conds []weatherCondition) weatherCondition {
	if len(conds) == 0 {
		return weatherCondition{ID: 800, Icon: "01d"}
	}
	w := conds[0]
	if w.ID == 0 {
		w.ID = 800
	}
	if w.Icon == "" {
		w.Icon = "01d"
	}
	if w.Description == "" {
		w.Description = w.Main
	}
	return w
}

func mapCurrent(apiResp currentResponse, units string) models.CurrentWeather {
	w := primaryCondition(apiResp.Weather)

	name := apiResp.Name
	if name == "" {
		name = "Unknown"
	}
	ts := time.Now().UTC()
	if apiResp.Dt > 0 {
		ts = time.Unix(apiResp.Dt, 0).UTC()
	}

	return models.CurrentWeather{
		City:        name,
		Country:     apiResp.Sys.Country,
		Temperature: apiResp.Main.Temp,
		FeelsLike:   apiResp.Main.FeelsLike,
		Humidity:    apiResp.Main.Humidity,
		WindSpeed:   apiResp.Wind.Speed,
		Description: forecast.TitleCase(w.Description),
		Icon:        w.Icon,
		IconURL:     forecast.IconURL(w.Icon),
		ConditionID: w.ID,
		Theme:       forecast.Theme(w.ID),
		Units:       units,
		Timestamp:   ts,
	}
}

func mapForecast(apiResp forecastResponse) Forecast {
	name := apiResp.City.Name
	if name == "" {
		name = "Unknown"
	}
	out := Forecast{
		City:           name,
		Country:        apiResp.City.Country,
		TimezoneOffset: apiResp.City.Timezone,
		Samples:        make([]models.ForecastSample, 0, len(apiResp.List)),
	}
	for _, item := range apiResp.List {
		w := primaryCondition(item.Weather)
		out.Samples = append(out.Samples, models.ForecastSample{
			Time:        time.Unix(item.Dt, 0).UTC(),
			Temperature: item.Main.Temp,
			Description: w.Description,
			Icon:        w.Icon,
			ConditionID: w.ID,
		})
	}
	return out
}

func normalizeUnits(units string) string {
	units = strings.ToLower(strings.TrimSpace(units))
	switch units {
	case "metric", "imperial", "standard":
		return units
	default:
		return DefaultUnits
	}
}

func extractCorrelationID(ctx context.Context) string {
	if corrIDVal := ctx.Value("correlation_id"); corrIDVal != nil {
		if corrID, ok := corrIDVal.(string); ok {
			return corrID
		}
	}
	return ""
}

func statusLabel(statusCode int) string {
	if statusCode >= 200 && statusCode < 300 {
		return "success"
	}
	if statusCode == 429 {
		return "rate_limited"
	}
	if statusCode >= 400 && statusCode < 500 {
		return "client_error"
	}
	if statusCode >= 500 {
		return "server_error"
	}
	return "error"
}

// ValidateAPIKey issues a single current-weather request and reports a rejected key.
// Other failures are returned as-is so health checks can tell them apart.
func (c *OpenWeatherClient) ValidateAPIKey(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := c.buildRequest(ctx, c.weatherURL, "London", DefaultUnits)
	if err != nil {
		return fmt.Errorf("build validation request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return classifyTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusError(resp.StatusCode, "London")
	}
	return nil
}
