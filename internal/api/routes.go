package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	apperrors "craftconnect/internal/common/errors"
)

func (s *Server) registerRoutes() {
	r := s.router

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.securityHeadersMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.metricsMiddleware)

	if s.cfg.Server.MetricsEnabled {
		r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	}

	api := r.PathPrefix("/api").Subrouter()
	api.Use(s.rateLimitMiddleware)

	api.HandleFunc("/analyze-business", s.handleAnalyzeBusiness).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/generate-whatsapp-message", s.handleGenerateMessage).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/usage-stats", s.handleUsageStats).Methods(http.MethodGet, http.MethodOptions)

	r.NotFoundHandler = http.HandlerFunc(s.handleNotFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(s.handleNotFound)
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	s.applyCORSHeaders(w, r)
	s.errHandler.WriteError(w, r, apperrors.NewRouteNotFoundError(r.URL.Path))
}
