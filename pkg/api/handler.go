// Package api exposes the risk pipeline over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/climatehealth/platform/pkg/analytics/summary"
	"github.com/climatehealth/platform/pkg/common/apperr"
	"github.com/climatehealth/platform/pkg/common/logger"
	"github.com/climatehealth/platform/pkg/common/models"
	"github.com/climatehealth/platform/pkg/dlp"
	"github.com/climatehealth/platform/pkg/forecast"
	"github.com/climatehealth/platform/pkg/observability/metrics"
	"github.com/climatehealth/platform/pkg/pipeline"
	"github.com/climatehealth/platform/pkg/serving/predictor"
	"github.com/climatehealth/platform/pkg/storage"
	"github.com/climatehealth/platform/pkg/weather"
	"github.com/gorilla/mux"
)

// Deps wires the handler. Model, Analyzer, Masker, Forecast and ZIPs may be nil.
type Deps struct {
	Store      *storage.UploadStore
	Weather    *weather.Lookup
	Model      *predictor.RiskModel
	Analyzer   *pipeline.Analyzer
	Extractor  *pipeline.Extractor
	Summarizer *summary.Summarizer
	Masker     *dlp.Detector
	Forecast   *forecast.Client
	ZIPs       *forecast.ZIPDirectory
}

type Handler struct {
	Deps
	started time.Time
}

func NewHandler(deps Deps) *Handler {
	return &Handler{Deps: deps, started: time.Now()}
}

func (h *Handler) Register(router *mux.Router) {
	router.HandleFunc("/", h.handleRoot).Methods(http.MethodGet)
	router.HandleFunc("/health", h.handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		metrics.WritePrometheus(w)
	}).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/upload", h.handleUpload).Methods(http.MethodPost)
	api.HandleFunc("/files", h.handleFiles).Methods(http.MethodGet)
	api.HandleFunc("/view/{filename}", h.handleView).Methods(http.MethodGet)
	api.HandleFunc("/data-summary/{filename}", h.handleSummary).Methods(http.MethodGet)
	api.HandleFunc("/export/{filename}", h.handleExport).Methods(http.MethodGet)
	api.HandleFunc("/get_weather_data/{date}", h.handleWeatherData).Methods(http.MethodGet)
	api.HandleFunc("/compute_risk", h.handleComputeRisk).Methods(http.MethodGet)
	api.HandleFunc("/compute_risk_with_weather", h.handleComputeRiskWithWeather).Methods(http.MethodPost)
	api.HandleFunc("/top_risk", h.handleTopRisk).Methods(http.MethodPost)
	api.HandleFunc("/forecast_risk", h.handleForecastRisk).Methods(http.MethodGet)
	api.HandleFunc("/forecast/{zip}", h.handleForecast).Methods(http.MethodGet)
}

func (h *Handler) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Climate Health Risk API",
		"status":  "running",
		"endpoints": map[string]string{
			"health":  "/health",
			"metrics": "/metrics",
			"upload":  "/api/upload",
			"files":   "/api/files",
			"analyze": "/api/compute_risk_with_weather",
			"top":     "/api/top_risk",
		},
	})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := models.HealthResponse{
		Status:      "OK",
		Message:     "Backend server is running",
		Timestamp:   time.Now().UTC(),
		Uptime:      math.Round(time.Since(h.started).Seconds()*100) / 100,
		ModelLoaded: h.Model != nil,
	}
	if h.Model != nil {
		resp.ModelVersion = h.Model.Version()
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Log.WithError(err).Warn("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeJSON(w, http.StatusRequestEntityTooLarge, models.ErrorResponse{
			Error: "request body too large",
			Kind:  string(apperr.KindInvalidInput),
		})
		return
	}

	kind := apperr.KindOf(err)
	status := apperr.HTTPStatus(kind)
	entry := logger.Log.WithError(err).WithFields(map[string]interface{}{
		"path":       r.URL.Path,
		"kind":       kind,
		"request_id": r.Header.Get("X-Request-ID"),
	})
	if status >= http.StatusInternalServerError {
		entry.Error("request failed")
	} else {
		entry.Info("request rejected")
	}

	writeJSON(w, status, models.ErrorResponse{
		Error:  err.Error(),
		Kind:   string(kind),
		Fields: apperr.FieldsOf(err),
	})
}

func invalid(format string, args ...interface{}) error {
	return apperr.New(apperr.KindInvalidInput, format, args...)
}

// Query parsing helpers. A missing parameter yields def; a malformed one is an error.

func floatParam(r *http.Request, name string, def float64, required bool) (float64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		if required {
			return 0, invalid("%s is required", name)
		}
		return def, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, invalid("%s must be a number", name)
	}
	return v, nil
}

func intParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, invalid("%s must be an integer", name)
	}
	return v, nil
}

func boolParam(r *http.Request, name string, def bool) (bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, invalid("%s must be a boolean", name)
	}
	return v, nil
}
