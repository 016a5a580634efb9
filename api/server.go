// Package api provides the HTTP REST API server for MandiSense.
//
// It exposes market comparison, trend classification, index forecasting
// and profit scenario planning over a JSON envelope.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/seenimoa/mandisense/internal/advisor"
	"github.com/seenimoa/mandisense/internal/config"
	"github.com/seenimoa/mandisense/pkg/models"
	"github.com/seenimoa/mandisense/pkg/utils"
)

// Version is reported by the health endpoint; cmd overrides it at startup.
var Version = "dev"

// Server is the HTTP API server.
type Server struct {
	router chi.Router
	cfg    *config.Config
	adv    *advisor.Advisor
	log    *slog.Logger
	now    func() time.Time
}

// NewServer creates a configured API server with all routes and middleware.
func NewServer(cfg *config.Config, adv *advisor.Advisor) *Server {
	srv := &Server{
		cfg: cfg,
		adv: adv,
		log: slog.Default().With("component", "api"),
		now: utils.NowIST,
	}
	srv.router = srv.buildRouter()
	return srv
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// ListenAndServe starts the HTTP server and shuts it down gracefully when
// ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("api listening", "addr", addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.log.Info("shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

// buildRouter configures all routes and middleware.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS
	origins := []string{"*"}
	if s.cfg != nil && len(s.cfg.API.CORSOrigins) > 0 {
		origins = s.cfg.API.CORSOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	// Health check
	r.Get("/health", s.handleHealth)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		// Reference data
		r.Get("/commodities", s.handleCommodities)
		r.Get("/markets", s.handleMarkets)

		// Analysis
		r.Post("/compare", s.handleCompare)
		r.Post("/trend", s.handleTrend)
		r.Post("/forecast", s.handleForecast)
		r.Post("/plan", s.handlePlan)

		// Recorded plans
		r.Get("/plans", s.handlePlans)
	})

	return r
}

// requestLogger writes one slog line per request.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

// ============================================================
// Request / Response types
// ============================================================

// APIResponse is the standard JSON envelope.
type APIResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
}

// CompareRequest is the body for POST /api/v1/compare.
type CompareRequest struct {
	Commodity string  `json:"commodity"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	RadiusKm  float64 `json:"radius_km,omitempty"`
	AsOf      string  `json:"as_of,omitempty"` // RFC3339 or YYYY-MM-DD
}

// TrendRequest is the body for POST /api/v1/trend.
type TrendRequest struct {
	MarketID   string    `json:"market_id,omitempty"`
	MarketName string    `json:"market_name,omitempty"`
	Commodity  string    `json:"commodity"`
	History    []float64 `json:"history,omitempty"`
	AsOf       string    `json:"as_of,omitempty"`
}

// SeriesPoint is one wire index point; Date is RFC3339 or YYYY-MM-DD.
type SeriesPoint struct {
	Date  string  `json:"date,omitempty"`
	Value float64 `json:"value"`
}

// ForecastRequest is the body for POST /api/v1/forecast.
type ForecastRequest struct {
	Commodity string        `json:"commodity,omitempty"`
	Series    []SeriesPoint `json:"series,omitempty"`
	DaysAhead int           `json:"days_ahead"`
	AsOf      string        `json:"as_of,omitempty"`
}

// PlanRequest is the body for POST /api/v1/plan.
type PlanRequest struct {
	Commodity    string              `json:"commodity"`
	Quantity     float64             `json:"quantity"`
	CurrentPrice float64             `json:"current_price"`
	Series       []SeriesPoint       `json:"series,omitempty"`
	WeatherRisk  *models.WeatherRisk `json:"weather_risk,omitempty"`
	Latitude     float64             `json:"latitude,omitempty"`
	Longitude    float64             `json:"longitude,omitempty"`
	AsOf         string              `json:"as_of,omitempty"`
}

// ============================================================
// Handlers
// ============================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	now := s.now()
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: map[string]any{
			"status":       "ok",
			"version":      Version,
			"mandi_status": utils.MandiStatusAt(now),
			"time_ist":     utils.FormatDateTimeIST(now),
		},
	})
}

func (s *Server) handleCommodities(w http.ResponseWriter, r *http.Request) {
	list, err := s.adv.Commodities(r.Context())
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: list})
}

func (s *Server) handleMarkets(w http.ResponseWriter, r *http.Request) {
	list, err := s.adv.Markets(r.Context())
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: list})
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	var req CompareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, models.CodeInvalidInput, "invalid request body")
		return
	}
	if req.Commodity == "" {
		writeError(w, http.StatusBadRequest, models.CodeInvalidInput, "commodity is required")
		return
	}
	asOf, err := s.asOf(req.AsOf)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}

	res, err := s.adv.CompareMarkets(r.Context(), advisor.CompareRequest{
		Commodity: req.Commodity,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		RadiusKm:  req.RadiusKm,
		AsOf:      asOf,
	})
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: res})
}

func (s *Server) handleTrend(w http.ResponseWriter, r *http.Request) {
	var req TrendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, models.CodeInvalidInput, "invalid request body")
		return
	}
	asOf, err := s.asOf(req.AsOf)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}

	res, err := s.adv.ClassifyTrend(r.Context(), advisor.TrendRequest{
		MarketID:   req.MarketID,
		MarketName: req.MarketName,
		Commodity:  req.Commodity,
		History:    req.History,
		AsOf:       asOf,
	})
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: res})
}

func (s *Server) handleForecast(w http.ResponseWriter, r *http.Request) {
	var req ForecastRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, models.CodeInvalidInput, "invalid request body")
		return
	}
	asOf, err := s.asOf(req.AsOf)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	series, err := parseSeries(req.Series)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}

	res, err := s.adv.ForecastIndex(r.Context(), advisor.ForecastRequest{
		Commodity: req.Commodity,
		Series:    series,
		DaysAhead: req.DaysAhead,
		AsOf:      asOf,
	})
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: res})
}

func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	var req PlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, models.CodeInvalidInput, "invalid request body")
		return
	}
	asOf, err := s.asOf(req.AsOf)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	series, err := parseSeries(req.Series)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}

	res, err := s.adv.PlanProfitScenarios(r.Context(), advisor.PlanRequest{
		Commodity:    req.Commodity,
		Quantity:     req.Quantity,
		CurrentPrice: req.CurrentPrice,
		Series:       series,
		WeatherRisk:  req.WeatherRisk,
		Latitude:     req.Latitude,
		Longitude:    req.Longitude,
		AsOf:         asOf,
	})
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: res})
}

func (s *Server) handlePlans(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 500 {
			writeError(w, http.StatusBadRequest, models.CodeInvalidInput, "limit must be between 1 and 500")
			return
		}
		limit = n
	}

	plans, err := s.adv.RecentPlans(r.Context(), limit)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	if plans == nil {
		plans = []models.PlanRecord{}
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: plans})
}

// ============================================================
// Helpers
// ============================================================

// asOf parses the request timestamp; a missing one is stamped here.
func (s *Server) asOf(raw string) (time.Time, error) {
	t, err := utils.ParseAsOf(raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: as_of %q", models.ErrInvalidInput, raw)
	}
	if t.IsZero() {
		t = s.now()
	}
	return t, nil
}

func parseSeries(points []SeriesPoint) ([]models.IndexDataPoint, error) {
	if len(points) == 0 {
		return nil, nil
	}
	out := make([]models.IndexDataPoint, len(points))
	for i, p := range points {
		d, err := utils.ParseAsOf(p.Date)
		if err != nil {
			return nil, fmt.Errorf("%w: series[%d].date %q", models.ErrInvalidInput, i, p.Date)
		}
		out[i] = models.IndexDataPoint{Date: d, Value: p.Value}
	}
	return out, nil
}

// statusFor maps a wire code to its HTTP status.
func statusFor(code string) int {
	switch code {
	case models.CodeNotFound:
		return http.StatusNotFound
	case models.CodeInsufficientData:
		return http.StatusUnprocessableEntity
	case models.CodeInvalidInput:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	code := models.ErrorCode(err)
	status := statusFor(code)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		s.log.Error("request failed", "path", r.URL.Path, "error", err,
			"request_id", middleware.GetReqID(r.Context()))
		msg = "internal error"
	}
	writeError(w, status, code, msg)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to write JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, APIResponse{
		Success: false,
		Error:   msg,
		Code:    code,
	})
}
