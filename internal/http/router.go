package http

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/weather-desk/internal/observability"
)

// NewRouter wires every route of the API. Weather lookups get the rate limiter and
// requestTimeout; /login and /contacts are only registered when the handler has an AccountStore.
func NewRouter(h *Handler, logger *zap.Logger, limiter *rate.Limiter, requestTimeout time.Duration) *mux.Router {
	router := mux.NewRouter()
	router.Use(CorrelationIDMiddleware(logger))
	router.Use(MetricsMiddleware)

	router.HandleFunc("/health", h.GetHealth).Methods(http.MethodGet)
	router.Handle("/metrics", observability.MetricsHandler()).Methods(http.MethodGet)

	router.HandleFunc("/history", h.GetHistory).Methods(http.MethodGet)
	router.HandleFunc("/history", h.DeleteHistory).Methods(http.MethodDelete)
	router.HandleFunc("/history/{city}", h.DeleteHistoryCity).Methods(http.MethodDelete)

	weatherRouter := router.PathPrefix("/weather").Subrouter()
	weatherRouter.Use(RateLimitMiddleware(limiter))
	weatherRouter.Use(TimeoutMiddleware(requestTimeout))
	weatherRouter.HandleFunc("/{city}", h.GetWeather).Methods(http.MethodGet)

	if h.accounts != nil {
		router.HandleFunc("/login", h.PostLogin).Methods(http.MethodPost)
		router.HandleFunc("/contacts", h.ListContacts).Methods(http.MethodGet)
		router.HandleFunc("/contacts", h.CreateContact).Methods(http.MethodPost)
		router.HandleFunc("/contacts/{id}", h.GetContact).Methods(http.MethodGet)
		router.HandleFunc("/contacts/{id}", h.UpdateContact).Methods(http.MethodPut)
		router.HandleFunc("/contacts/{id}", h.DeleteContact).Methods(http.MethodDelete)
	}
	return router
}
