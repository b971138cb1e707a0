package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/crypto/bcrypt"

	"github.com/kjstillabower/weather-desk/internal/cache"
	"github.com/kjstillabower/weather-desk/internal/client"
	"github.com/kjstillabower/weather-desk/internal/history"
	"github.com/kjstillabower/weather-desk/internal/lifecycle"
	"github.com/kjstillabower/weather-desk/internal/models"
	"github.com/kjstillabower/weather-desk/internal/service"
	"github.com/kjstillabower/weather-desk/internal/store"
	"github.com/kjstillabower/weather-desk/internal/traffic"
)

type mockWeatherClient struct {
	current     models.CurrentWeather
	err         error
	validateErr error
	block       chan struct{} // if set, GetCurrentWeather blocks until ctx.Done() or close
	calls       int32
}

func (m *mockWeatherClient) GetCurrentWeather(ctx context.Context, city, units string) (models.CurrentWeather, error) {
	atomic.AddInt32(&m.calls, 1)
	if m.block != nil {
		select {
		case <-ctx.Done():
			return models.CurrentWeather{}, client.NewTimeoutError(ctx.Err())
		case <-m.block:
		}
	}
	if m.err != nil {
		return models.CurrentWeather{}, m.err
	}
	out := m.current
	if out.City == "" {
		out.City = city
	}
	out.Units = units
	return out, nil
}

func (m *mockWeatherClient) GetForecast(ctx context.Context, city, units string) (client.Forecast, error) {
	if m.err != nil {
		return client.Forecast{}, m.err
	}
	start := time.Now().UTC().Truncate(24 * time.Hour).Add(24 * time.Hour)
	var samples []models.ForecastSample
	for i := 0; i < 16; i++ {
		samples = append(samples, models.ForecastSample{
			Time:        start.Add(time.Duration(i) * 3 * time.Hour),
			Temperature: 20 + float64(i),
			Description: "scattered clouds",
			Icon:        "03d",
			ConditionID: 802,
		})
	}
	return client.Forecast{City: city, Samples: samples}, nil
}

func (m *mockWeatherClient) ValidateAPIKey(ctx context.Context) error {
	return m.validateErr
}

type testEnv struct {
	handler  *Handler
	router   http.Handler
	client   *mockWeatherClient
	accounts *store.Store
	history  *history.Store
}

// newTestEnv wires a real service, in-memory cache, history file and sqlite store around wc.
func newTestEnv(t *testing.T, wc *mockWeatherClient, healthConfig *HealthConfig, logger *zap.Logger) *testEnv {
	t.Helper()
	if logger == nil {
		logger = zap.NewNop()
	}
	h, err := history.Open(filepath.Join(t.TempDir(), "search_history.json"), 10)
	if err != nil {
		t.Fatalf("history.Open() error = %v", err)
	}
	accounts, err := store.Open(context.Background(), "sqlite3", ":memory:", store.WithBcryptCost(bcrypt.MinCost))
	if err != nil {
		t.Fatalf("store.Open() error = %v", err)
	}
	t.Cleanup(func() { _ = accounts.Close() })

	svc := service.NewWeatherService(wc, cache.NewInMemoryCache(), h, service.Options{TTL: time.Minute, CityMaxLength: 100})
	handler := NewHandler(svc, wc, accounts, healthConfig, logger)
	return &testEnv{
		handler:  handler,
		router:   NewRouter(handler, logger, nil, 5*time.Second),
		client:   wc,
		accounts: accounts,
		history:  h,
	}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	req.Header.Set("X-Correlation-ID", "test-correlation-id")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

type errorEnvelope struct {
	Error struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		RequestID string `json:"requestId"`
	} `json:"error"`
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorEnvelope {
	t.Helper()
	var env errorEnvelope
	if err := json.NewDecoder(w.Body).Decode(&env); err != nil {
		t.Fatalf("decode error response: %v (body %q)", err, w.Body.String())
	}
	return env
}

// TestHandler_GetWeather_Success verifies the report schema and that the lookup lands in history.
func TestHandler_GetWeather_Success(t *testing.T) {
	// Arrange
	env := newTestEnv(t, &mockWeatherClient{current: models.CurrentWeather{City: "Cebu", Country: "PH", Temperature: 30.5}}, nil, nil)

	// Act
	w := env.do(t, "GET", "/weather/Cebu?units=imperial", "")

	// Assert
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", w.Code, w.Body.String())
	}
	var report models.Report
	if err := json.NewDecoder(w.Body).Decode(&report); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if report.City != "Cebu" || report.Units != "imperial" || report.Current.Temperature != 30.5 {
		t.Errorf("report = %+v", report)
	}
	if len(report.Daily) != 2 {
		t.Errorf("len(Daily) = %d, want 2", len(report.Daily))
	}
	if got := env.history.List(); len(got) != 1 || got[0] != "Cebu" {
		t.Errorf("history = %v, want [Cebu]", got)
	}
}

// TestHandler_GetWeather_InvalidInput verifies input errors never reach the upstream.
func TestHandler_GetWeather_InvalidInput(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		wantCode string
		wantMsg  string
	}{
		{"blank city", "/weather/%20%20%20", "INVALID_CITY", "City name cannot be empty"},
		{"bad characters", "/weather/Bad$City", "INVALID_CITY", "city name contains invalid characters"},
		{"unknown units", "/weather/Paris?units=kelvin", "INVALID_UNITS", service.ErrInvalidUnits.Error()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, &mockWeatherClient{}, nil, nil)
			w := env.do(t, "GET", tt.path, "")
			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", w.Code)
			}
			got := decodeError(t, w)
			if got.Error.Code != tt.wantCode || got.Error.Message != tt.wantMsg {
				t.Errorf("error = %+v, want %s %q", got.Error, tt.wantCode, tt.wantMsg)
			}
			if got.Error.RequestID != "test-correlation-id" {
				t.Errorf("requestId = %q", got.Error.RequestID)
			}
			if env.client.calls != 0 {
				t.Errorf("upstream calls = %d, want 0", env.client.calls)
			}
		})
	}
}

// TestHandler_GetWeather_UpstreamErrors verifies client failures map to status, code and message.
func TestHandler_GetWeather_UpstreamErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantMsg    string
	}{
		{
			name:       "not found",
			err:        &client.WeatherError{Kind: client.ErrLocationNotFound, Status: 404, Message: "City 'Atlantis' not found. Please check the spelling."},
			wantStatus: http.StatusNotFound,
			wantCode:   "CITY_NOT_FOUND",
			wantMsg:    "City 'Atlantis' not found. Please check the spelling.",
		},
		{
			name:       "bad api key",
			err:        &client.WeatherError{Kind: client.ErrInvalidAPIKey, Status: 401, Message: "Invalid API key. Please check your configuration."},
			wantStatus: http.StatusBadGateway,
			wantCode:   "UPSTREAM_AUTH",
			wantMsg:    "Invalid API key. Please check your configuration.",
		},
		{
			name:       "server error",
			err:        &client.WeatherError{Kind: client.ErrUpstreamFailure, Status: 503, Message: "Error fetching data: 503"},
			wantStatus: http.StatusServiceUnavailable,
			wantCode:   "UPSTREAM_UNAVAILABLE",
			wantMsg:    "Error fetching data: 503",
		},
		{
			name:       "timeout",
			err:        client.NewTimeoutError(context.DeadlineExceeded),
			wantStatus: http.StatusServiceUnavailable,
			wantCode:   "UPSTREAM_UNAVAILABLE",
			wantMsg:    "Request timed out. Check your internet connection.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, &mockWeatherClient{err: tt.err}, nil, nil)
			w := env.do(t, "GET", "/weather/Atlantis", "")
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			got := decodeError(t, w)
			if got.Error.Code != tt.wantCode || got.Error.Message != tt.wantMsg {
				t.Errorf("error = %+v, want %s %q", got.Error, tt.wantCode, tt.wantMsg)
			}
			if len(env.history.List()) != 0 {
				t.Error("failed lookup must not be added to history")
			}
		})
	}
}

// TestHandler_GetWeather_DebugLogs verifies the service logs through the request-scoped logger.
func TestHandler_GetWeather_DebugLogs(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	env := newTestEnv(t, &mockWeatherClient{}, nil, zap.New(core))

	for i := 0; i < 2; i++ {
		if w := env.do(t, "GET", "/weather/Davao", ""); w.Code != http.StatusOK {
			t.Fatalf("request %d status = %d", i, w.Code)
		}
	}

	if n := logs.FilterMessage("cache miss, fetching upstream").Len(); n != 1 {
		t.Errorf("cache miss logs = %d, want 1", n)
	}
	served := logs.FilterMessage("report served").All()
	if len(served) != 2 {
		t.Fatalf("report served logs = %d, want 2", len(served))
	}
	for i, want := range []bool{false, true} {
		var cached, hasCorrID bool
		for _, f := range served[i].Context {
			if f.Key == "cached" && f.Type == zapcore.BoolType {
				cached = f.Integer == 1
			}
			if f.Key == "correlation_id" && f.String == "test-correlation-id" {
				hasCorrID = true
			}
		}
		if cached != want {
			t.Errorf("served[%d] cached = %v, want %v", i, cached, want)
		}
		if !hasCorrID {
			t.Errorf("served[%d] missing correlation_id", i)
		}
	}
}

func TestHandler_History(t *testing.T) {
	env := newTestEnv(t, &mockWeatherClient{}, nil, nil)
	for _, city := range []string{"Manila", "Oslo", "Lima"} {
		if w := env.do(t, "GET", "/weather/"+city, ""); w.Code != http.StatusOK {
			t.Fatalf("GET /weather/%s status = %d", city, w.Code)
		}
	}

	var body struct {
		History []string `json:"history"`
	}
	w := env.do(t, "GET", "/history", "")
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if strings.Join(body.History, ",") != "Lima,Oslo,Manila" {
		t.Errorf("history = %v, want [Lima Oslo Manila]", body.History)
	}

	if w := env.do(t, "DELETE", "/history/oslo", ""); w.Code != http.StatusOK {
		t.Errorf("DELETE /history/oslo status = %d, want 200", w.Code)
	}
	w = env.do(t, "DELETE", "/history/Oslo", "")
	if w.Code != http.StatusNotFound || decodeError(t, w).Error.Code != "NOT_IN_HISTORY" {
		t.Errorf("second delete status = %d, want 404 NOT_IN_HISTORY", w.Code)
	}

	if w := env.do(t, "DELETE", "/history", ""); w.Code != http.StatusOK {
		t.Errorf("DELETE /history status = %d, want 200", w.Code)
	}
	if got := env.history.List(); len(got) != 0 {
		t.Errorf("history after clear = %v", got)
	}
}

func TestHandler_PostLogin(t *testing.T) {
	env := newTestEnv(t, &mockWeatherClient{}, nil, nil)
	if _, err := env.accounts.CreateUser(context.Background(), "alice", "s3cret"); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantCode   string
		wantMsg    string
	}{
		{"success", `{"username":"alice","password":"s3cret"}`, http.StatusOK, "", "Welcome, alice!"},
		{"wrong password", `{"username":"alice","password":"nope"}`, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid username or password"},
		{"unknown user", `{"username":"bob","password":"s3cret"}`, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid username or password"},
		{"missing password", `{"username":"alice"}`, http.StatusBadRequest, "MISSING_CREDENTIALS", "Please enter username and password"},
		{"malformed body", `{`, http.StatusBadRequest, "INVALID_REQUEST", "request body must be JSON"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, "POST", "/login", tt.body)
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", w.Code, tt.wantStatus, w.Body.String())
			}
			if tt.wantCode == "" {
				var ok struct {
					OK      bool   `json:"ok"`
					Message string `json:"message"`
				}
				if err := json.NewDecoder(w.Body).Decode(&ok); err != nil {
					t.Fatalf("decode: %v", err)
				}
				if !ok.OK || ok.Message != tt.wantMsg {
					t.Errorf("response = %+v, want message %q", ok, tt.wantMsg)
				}
				return
			}
			got := decodeError(t, w)
			if got.Error.Code != tt.wantCode || got.Error.Message != tt.wantMsg {
				t.Errorf("error = %+v, want %s %q", got.Error, tt.wantCode, tt.wantMsg)
			}
		})
	}
}

// TestHandler_PostLogin_DatabaseError verifies a broken database gives the fixed database message.
func TestHandler_PostLogin_DatabaseError(t *testing.T) {
	env := newTestEnv(t, &mockWeatherClient{}, nil, nil)
	if err := env.accounts.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	w := env.do(t, "POST", "/login", `{"username":"alice","password":"s3cret"}`)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	got := decodeError(t, w)
	if got.Error.Code != "DATABASE_ERROR" || got.Error.Message != "An error occurred while connecting to the database" {
		t.Errorf("error = %+v", got.Error)
	}
}

func TestHandler_Contacts(t *testing.T) {
	env := newTestEnv(t, &mockWeatherClient{}, nil, nil)

	w := env.do(t, "POST", "/contacts", `{"name":"Maria Santos","phone":"0917 111 2222","email":"maria@example.com"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("POST /contacts status = %d, want 201 (body %s)", w.Code, w.Body.String())
	}
	var created models.Contact
	if err := json.NewDecoder(w.Body).Decode(&created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.ID == 0 || created.Name != "Maria Santos" {
		t.Fatalf("created = %+v", created)
	}
	if w := env.do(t, "POST", "/contacts", `{"name":"Benjo","email":"benjo@example.com"}`); w.Code != http.StatusCreated {
		t.Fatalf("second POST status = %d", w.Code)
	}

	var list struct {
		Contacts []models.Contact `json:"contacts"`
	}
	w = env.do(t, "GET", "/contacts?q=SANTOS", "")
	if err := json.NewDecoder(w.Body).Decode(&list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list.Contacts) != 1 || list.Contacts[0].ID != created.ID {
		t.Errorf("search SANTOS = %+v, want only Maria", list.Contacts)
	}

	path := "/contacts/" + jsonNumber(created.ID)
	w = env.do(t, "PUT", path, `{"name":"Maria S. Cruz","phone":"","email":""}`)
	if w.Code != http.StatusOK {
		t.Fatalf("PUT status = %d (body %s)", w.Code, w.Body.String())
	}
	w = env.do(t, "GET", path, "")
	var got models.Contact
	_ = json.NewDecoder(w.Body).Decode(&got)
	if got.Name != "Maria S. Cruz" {
		t.Errorf("GET after PUT name = %q", got.Name)
	}

	if w := env.do(t, "DELETE", path, ""); w.Code != http.StatusNoContent {
		t.Errorf("DELETE status = %d, want 204", w.Code)
	}
	w = env.do(t, "GET", path, "")
	if w.Code != http.StatusNotFound || decodeError(t, w).Error.Code != "CONTACT_NOT_FOUND" {
		t.Errorf("GET deleted status = %d, want 404 CONTACT_NOT_FOUND", w.Code)
	}
}

func TestHandler_Contacts_BadInput(t *testing.T) {
	env := newTestEnv(t, &mockWeatherClient{}, nil, nil)

	tests := []struct {
		method, path, body string
		wantCode           string
	}{
		{"POST", "/contacts", `{"name":" "}`, "INVALID_CONTACT"},
		{"POST", "/contacts", `{"name":"Ana","email":"nope"}`, "INVALID_CONTACT"},
		{"POST", "/contacts", `not json`, "INVALID_REQUEST"},
		{"GET", "/contacts/abc", "", "INVALID_ID"},
		{"DELETE", "/contacts/0", "", "INVALID_ID"},
	}
	for _, tt := range tests {
		w := env.do(t, tt.method, tt.path, tt.body)
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s %s status = %d, want 400", tt.method, tt.path, w.Code)
			continue
		}
		if got := decodeError(t, w).Error.Code; got != tt.wantCode {
			t.Errorf("%s %s code = %q, want %q", tt.method, tt.path, got, tt.wantCode)
		}
	}
}

// TestNewRouter_WithoutAccounts verifies account routes are absent without a store.
func TestNewRouter_WithoutAccounts(t *testing.T) {
	svc := service.NewWeatherService(&mockWeatherClient{}, cache.NewInMemoryCache(), nil, service.Options{TTL: time.Minute})
	h := NewHandler(svc, &mockWeatherClient{}, nil, nil, zap.NewNop())
	router := NewRouter(h, zap.NewNop(), nil, time.Second)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("POST", "/login", strings.NewReader(`{}`)))
	if w.Code != http.StatusNotFound {
		t.Errorf("POST /login status = %d, want 404", w.Code)
	}
}

type healthBody struct {
	Status  string            `json:"status"`
	Checks  map[string]string `json:"checks"`
	Traffic struct {
		WindowSeconds int64 `json:"windowSeconds"`
		Requests      int   `json:"requests"`
		Failures      int   `json:"failures"`
		RateLimited   int   `json:"rateLimited"`
	} `json:"traffic"`
}

func getHealth(t *testing.T, env *testEnv) (int, healthBody) {
	t.Helper()
	w := env.do(t, "GET", "/health", "")
	var body healthBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	return w.Code, body
}

func TestHandler_GetHealth(t *testing.T) {
	traffic.Reset()
	env := newTestEnv(t, &mockWeatherClient{}, &HealthConfig{DegradedWindow: time.Minute, DegradedErrorPct: 50}, nil)

	code, body := getHealth(t, env)
	if code != http.StatusOK || body.Status != "healthy" {
		t.Errorf("health = %d %q, want 200 healthy", code, body.Status)
	}
	if body.Checks["weatherApi"] != "healthy" || body.Checks["database"] != "healthy" {
		t.Errorf("checks = %v", body.Checks)
	}
	if _, ok := body.Checks["cache"]; ok {
		t.Error("cache check should be absent without CachePing")
	}
}

// TestHandler_GetHealth_TrafficSummary verifies the outcome counts behind the error rate are reported.
func TestHandler_GetHealth_TrafficSummary(t *testing.T) {
	traffic.Reset()
	defer traffic.Reset()
	env := newTestEnv(t, &mockWeatherClient{}, &HealthConfig{DegradedWindow: 2 * time.Minute, DegradedErrorPct: 50}, nil)

	traffic.Record(traffic.Success)
	traffic.Record(traffic.Success)
	traffic.Record(traffic.Failure)
	traffic.Record(traffic.Denied)
	traffic.Record(traffic.Denied)

	code, body := getHealth(t, env)
	if code != http.StatusOK || body.Status != "healthy" {
		t.Errorf("health = %d %q, want 200 healthy (1 of 3 failed)", code, body.Status)
	}
	got := body.Traffic
	if got.WindowSeconds != 120 || got.Requests != 3 || got.Failures != 1 || got.RateLimited != 2 {
		t.Errorf("traffic = %+v, want window 120s, 3 requests, 1 failure, 2 rate limited", got)
	}
}

func TestHandler_GetHealth_InvalidAPIKey(t *testing.T) {
	traffic.Reset()
	env := newTestEnv(t, &mockWeatherClient{validateErr: client.ErrInvalidAPIKey}, nil, nil)

	code, body := getHealth(t, env)
	if code != http.StatusServiceUnavailable || body.Status != "degraded" {
		t.Errorf("health = %d %q, want 503 degraded", code, body.Status)
	}
	if body.Checks["weatherApi"] != "unhealthy" {
		t.Errorf("weatherApi check = %q, want unhealthy", body.Checks["weatherApi"])
	}
}

func TestHandler_GetHealth_ShuttingDown(t *testing.T) {
	lifecycle.SetShuttingDown(true)
	defer lifecycle.SetShuttingDown(false)
	env := newTestEnv(t, &mockWeatherClient{validateErr: errors.New("not consulted")}, nil, nil)

	code, body := getHealth(t, env)
	if code != http.StatusServiceUnavailable || body.Status != "shutting-down" {
		t.Errorf("health = %d %q, want 503 shutting-down", code, body.Status)
	}
}

func TestHandler_GetHealth_DependencyChecks(t *testing.T) {
	traffic.Reset()
	env := newTestEnv(t, &mockWeatherClient{}, &HealthConfig{CachePing: func() error { return errors.New("memcache: no servers") }}, nil)
	_ = env.accounts.Close()

	code, body := getHealth(t, env)
	if code != http.StatusOK {
		t.Errorf("status = %d, want 200 (dependency checks are informational)", code)
	}
	if body.Checks["cache"] != "unhealthy" || body.Checks["database"] != "unhealthy" {
		t.Errorf("checks = %v, want cache and database unhealthy", body.Checks)
	}
}

// TestHandler_GetHealth_LogsTransition verifies an error-rate breach is reported once as a transition.
func TestHandler_GetHealth_LogsTransition(t *testing.T) {
	traffic.Reset()
	defer traffic.Reset()
	core, logs := observer.New(zap.InfoLevel)
	env := newTestEnv(t, &mockWeatherClient{}, &HealthConfig{DegradedWindow: time.Minute, DegradedErrorPct: 50}, zap.New(core))

	traffic.Record(traffic.Success)
	if code, _ := getHealth(t, env); code != http.StatusOK {
		t.Fatalf("first health status = %d, want 200", code)
	}
	if logs.FilterMessage("health status transition").Len() != 0 {
		t.Fatal("first call should not log a transition")
	}

	traffic.Record(traffic.Failure)
	traffic.Record(traffic.Failure)
	code, body := getHealth(t, env)
	if code != http.StatusServiceUnavailable || body.Status != "degraded" {
		t.Fatalf("second health = %d %q, want 503 degraded", code, body.Status)
	}
	getHealth(t, env)

	entries := logs.FilterMessage("health status transition").All()
	if len(entries) != 1 {
		t.Fatalf("transition logs = %d, want 1", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["previous_status"] != "healthy" || fields["current_status"] != "degraded" || fields["reason"] != "error_rate_breach" {
		t.Errorf("transition fields = %v", fields)
	}
}

func jsonNumber(id int64) string {
	b, _ := json.Marshal(id)
	return string(b)
}
