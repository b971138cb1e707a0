package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/kjstillabower/weather-desk/internal/client"
	"github.com/kjstillabower/weather-desk/internal/lifecycle"
	"github.com/kjstillabower/weather-desk/internal/models"
	"github.com/kjstillabower/weather-desk/internal/service"
	"github.com/kjstillabower/weather-desk/internal/store"
	"github.com/kjstillabower/weather-desk/internal/traffic"
	"github.com/kjstillabower/weather-desk/internal/validation"
)

// Version is reported by /health. Overridden at build time with -ldflags.
var Version = "dev"

// AccountStore is the login and contact book persistence used by the handlers.
// *store.Store implements it.
type AccountStore interface {
	Authenticate(ctx context.Context, username, password string) (models.User, error)
	AddContact(ctx context.Context, name, phone, email string) (models.Contact, error)
	ListContacts(ctx context.Context, search string) ([]models.Contact, error)
	GetContact(ctx context.Context, id int64) (models.Contact, error)
	UpdateContact(ctx context.Context, id int64, name, phone, email string) (models.Contact, error)
	DeleteContact(ctx context.Context, id int64) error
	Ping(ctx context.Context) error
}

// defaultDegradedWindow is the traffic window reported by /health when none is configured.
const defaultDegradedWindow = time.Minute

// HealthConfig holds thresholds and dependency checks for the health handler.
type HealthConfig struct {
	DegradedWindow   time.Duration
	DegradedErrorPct int
	// CachePing, when set, is called to check cache reachability. Used when backend is memcached.
	CachePing func() error
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	weatherService   *service.WeatherService
	client           client.WeatherClient
	accounts         AccountStore // nil disables /login and /contacts
	healthConfig     *HealthConfig
	logger           *zap.Logger
	healthStatusMu   sync.Mutex
	healthStatusPrev string
}

// NewHandler returns a new Handler. accounts and healthConfig may be nil.
func NewHandler(
	weatherService *service.WeatherService,
	client client.WeatherClient,
	accounts AccountStore,
	healthConfig *HealthConfig,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		weatherService: weatherService,
		client:         client,
		accounts:       accounts,
		healthConfig:   healthConfig,
		logger:         logger,
	}
}

// GetWeather handles GET /weather/{city}?units=.
func (h *Handler) GetWeather(w http.ResponseWriter, r *http.Request) {
	city := mux.Vars(r)["city"]
	units := r.URL.Query().Get("units")

	report, err := h.weatherService.GetReport(r.Context(), city, units)
	if err != nil {
		writeWeatherError(w, r, err)
		return
	}
	traffic.Record(traffic.Success)
	writeJSON(w, http.StatusOK, report)
}

// GetHistory handles GET /history.
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"history": h.weatherService.History()})
}

// DeleteHistory handles DELETE /history.
func (h *Handler) DeleteHistory(w http.ResponseWriter, r *http.Request) {
	if err := h.weatherService.ClearHistory(); err != nil {
		writeInternalError(w, r, "HISTORY_WRITE_FAILED", "Could not save search history", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "history": []string{}})
}

// DeleteHistoryCity handles DELETE /history/{city}.
func (h *Handler) DeleteHistoryCity(w http.ResponseWriter, r *http.Request) {
	city := mux.Vars(r)["city"]
	removed, err := h.weatherService.RemoveHistory(city)
	if err != nil {
		writeInternalError(w, r, "HISTORY_WRITE_FAILED", "Could not save search history", err)
		return
	}
	if !removed {
		writeError(w, r, http.StatusNotFound, "NOT_IN_HISTORY", "City '"+city+"' is not in the search history")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "history": h.weatherService.History()})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// PostLogin handles POST /login.
func (h *Handler) PostLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_REQUEST", "request body must be JSON")
		return
	}
	user, err := h.accounts.Authenticate(r.Context(), req.Username, req.Password)
	switch {
	case err == nil:
		traffic.Record(traffic.Success)
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"ok":      true,
			"message": "Welcome, " + user.Username + "!",
			"user":    user,
		})
	case errors.Is(err, store.ErrMissingCredentials):
		writeError(w, r, http.StatusBadRequest, "MISSING_CREDENTIALS", err.Error())
	case errors.Is(err, store.ErrInvalidCredentials):
		writeError(w, r, http.StatusUnauthorized, "INVALID_CREDENTIALS", store.ErrInvalidCredentials.Error())
	default:
		traffic.Record(traffic.Failure)
		writeInternalError(w, r, "DATABASE_ERROR", store.ErrDatabase.Error(), err)
	}
}

type contactRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
}

// ListContacts handles GET /contacts?q=.
func (h *Handler) ListContacts(w http.ResponseWriter, r *http.Request) {
	contacts, err := h.accounts.ListContacts(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"contacts": contacts})
}

// CreateContact handles POST /contacts.
func (h *Handler) CreateContact(w http.ResponseWriter, r *http.Request) {
	var req contactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_REQUEST", "request body must be JSON")
		return
	}
	c, err := h.accounts.AddContact(r.Context(), req.Name, req.Phone, req.Email)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// GetContact handles GET /contacts/{id}.
func (h *Handler) GetContact(w http.ResponseWriter, r *http.Request) {
	id, ok := contactID(w, r)
	if !ok {
		return
	}
	c, err := h.accounts.GetContact(r.Context(), id)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// UpdateContact handles PUT /contacts/{id}.
func (h *Handler) UpdateContact(w http.ResponseWriter, r *http.Request) {
	id, ok := contactID(w, r)
	if !ok {
		return
	}
	var req contactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_REQUEST", "request body must be JSON")
		return
	}
	c, err := h.accounts.UpdateContact(r.Context(), id, req.Name, req.Phone, req.Email)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// DeleteContact handles DELETE /contacts/{id}.
func (h *Handler) DeleteContact(w http.ResponseWriter, r *http.Request) {
	id, ok := contactID(w, r)
	if !ok {
		return
	}
	if err := h.accounts.DeleteContact(r.Context(), id); err != nil {
		writeStoreError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func contactID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		writeError(w, r, http.StatusBadRequest, "INVALID_ID", "contact id must be a positive integer")
		return 0, false
	}
	return id, true
}

// healthResult holds the computed health status and metadata for logging.
type healthResult struct {
	status     string
	statusCode int
	reason     string
}

// GetHealth handles GET /health.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	result := h.computeHealthStatus(r.Context())

	h.healthStatusMu.Lock()
	prev := h.healthStatusPrev
	if prev != "" && prev != result.status {
		h.logger.Info("health status transition",
			zap.String("previous_status", prev),
			zap.String("current_status", result.status),
			zap.String("reason", result.reason))
	}
	h.healthStatusPrev = result.status
	h.healthStatusMu.Unlock()

	checks := map[string]string{"weatherApi": "healthy"}
	if result.reason == "api_key_invalid" {
		checks["weatherApi"] = "unhealthy"
	}
	if h.healthConfig != nil && h.healthConfig.CachePing != nil {
		checks["cache"] = checkStatus(h.healthConfig.CachePing())
	}
	if h.accounts != nil {
		checks["database"] = checkStatus(h.accounts.Ping(r.Context()))
	}
	now := time.Now()
	writeJSON(w, result.statusCode, map[string]interface{}{
		"status":        result.status,
		"service":       "weather-desk",
		"version":       Version,
		"checks":        checks,
		"traffic":       h.trafficSummary(),
		"uptimeSeconds": int64(lifecycle.Uptime(now).Seconds()),
		"timestamp":     now.UTC().Format(time.RFC3339),
	})
}

type trafficSummary struct {
	WindowSeconds int64 `json:"windowSeconds"`
	Requests      int   `json:"requests"`
	Failures      int   `json:"failures"`
	RateLimited   int   `json:"rateLimited"`
}

// trafficSummary reports the outcomes /health judges the error rate on.
func (h *Handler) trafficSummary() trafficSummary {
	window := defaultDegradedWindow
	if h.healthConfig != nil && h.healthConfig.DegradedWindow > 0 {
		window = h.healthConfig.DegradedWindow
	}
	failures, total := traffic.ErrorRate(window)
	return trafficSummary{
		WindowSeconds: int64(window.Seconds()),
		Requests:      total,
		Failures:      failures,
		RateLimited:   traffic.DenialCount(window),
	}
}

func checkStatus(err error) string {
	if err != nil {
		return "unhealthy"
	}
	return "healthy"
}

// computeHealthStatus evaluates conditions in priority order:
// shutting-down > API key invalid > degraded error rate > healthy.
func (h *Handler) computeHealthStatus(ctx context.Context) healthResult {
	if lifecycle.IsShuttingDown() {
		return healthResult{"shutting-down", http.StatusServiceUnavailable, "signal"}
	}
	if err := h.client.ValidateAPIKey(ctx); err != nil {
		return healthResult{"degraded", http.StatusServiceUnavailable, "api_key_invalid"}
	}
	if h.healthConfig != nil && traffic.Degraded(h.healthConfig.DegradedWindow, h.healthConfig.DegradedErrorPct) {
		return healthResult{"degraded", http.StatusServiceUnavailable, "error_rate_breach"}
	}
	return healthResult{"healthy", http.StatusOK, ""}
}

// writeJSON writes v as JSON with the given status.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes the standard error envelope with the correlation ID as requestId.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	corrID, _ := r.Context().Value("correlation_id").(string)
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{
			"code":      code,
			"message":   message,
			"requestId": corrID,
		},
	})
}

// writeInternalError logs err and answers 500 without leaking it.
func writeInternalError(w http.ResponseWriter, r *http.Request, code, message string, err error) {
	if logger := loggerFrom(r); logger != nil {
		logger.Error("request failed", zap.String("code", code), zap.Error(err))
	}
	writeError(w, r, http.StatusInternalServerError, code, message)
}

// writeWeatherError maps report lookup failures to HTTP responses. Upstream failures count
// toward the degraded error rate; input errors and unknown cities do not.
func writeWeatherError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, validation.ErrCityEmpty),
		errors.Is(err, validation.ErrCityTooShort),
		errors.Is(err, validation.ErrCityTooLong),
		errors.Is(err, validation.ErrCityInvalidChars):
		writeError(w, r, http.StatusBadRequest, "INVALID_CITY", validationMessage(err))
		return
	case errors.Is(err, service.ErrInvalidUnits):
		writeError(w, r, http.StatusBadRequest, "INVALID_UNITS", service.ErrInvalidUnits.Error())
		return
	case errors.Is(err, client.ErrLocationNotFound):
		traffic.Record(traffic.Success)
		writeError(w, r, http.StatusNotFound, "CITY_NOT_FOUND", client.Message(err))
		return
	}

	traffic.Record(traffic.Failure)
	if logger := loggerFrom(r); logger != nil {
		logger.Debug("upstream error", zap.String("category", string(client.CategorizeError(err))), zap.Error(err))
	}
	if errors.Is(err, client.ErrInvalidAPIKey) {
		writeError(w, r, http.StatusBadGateway, "UPSTREAM_AUTH", client.Message(err))
		return
	}
	writeError(w, r, http.StatusServiceUnavailable, "UPSTREAM_UNAVAILABLE", client.Message(err))
}

// validationMessage returns the user-facing text of the wrapped validation sentinel.
func validationMessage(err error) string {
	if msg, ok := validation.Message(err); ok {
		return msg
	}
	return err.Error()
}

// writeStoreError maps contact book failures to HTTP responses.
func writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, store.ErrContactNotFound):
		writeError(w, r, http.StatusNotFound, "CONTACT_NOT_FOUND", "contact not found")
	case errors.Is(err, validation.ErrContactNameRequired),
		errors.Is(err, validation.ErrContactEmailInvalid),
		errors.Is(err, validation.ErrContactPhoneInvalid):
		writeError(w, r, http.StatusBadRequest, "INVALID_CONTACT", validationMessage(err))
	default:
		traffic.Record(traffic.Failure)
		writeInternalError(w, r, "DATABASE_ERROR", store.ErrDatabase.Error(), err)
	}
}
