package api

import (
	"net/http"

	"github.com/climatehealth/platform/pkg/common/apperr"
	"github.com/climatehealth/platform/pkg/common/models"
	"github.com/climatehealth/platform/pkg/forecast"
	"github.com/climatehealth/platform/pkg/normalizer"
	"github.com/climatehealth/platform/pkg/pipeline"
	"github.com/climatehealth/platform/pkg/serving/predictor"
	"github.com/gorilla/mux"
)

const (
	defaultAQI        = 150
	defaultPercentile = 0.9
	defaultRows       = 200
)

func (h *Handler) handleWeatherData(w http.ResponseWriter, r *http.Request) {
	date := mux.Vars(r)["date"]
	if !normalizer.ValidDate(date) {
		writeError(w, r, invalid("date must be YYYYMMDD"))
		return
	}
	records, err := h.Weather.Records(r.Context(), date)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, models.WeatherResponse{Date: date, Count: len(records), WeatherData: records})
}

// riskInputs reads the patient profile shared by compute_risk and forecast_risk.
func riskInputs(r *http.Request, withAQI bool) (predictor.Features, error) {
	var f predictor.Features
	var err error
	if f.Age, err = floatParam(r, "age", 0, true); err != nil {
		return f, err
	}
	if withAQI {
		if f.AQI, err = floatParam(r, "aqi", defaultAQI, false); err != nil {
			return f, err
		}
	}
	if f.Diabetes, err = floatParam(r, "diabetes", 0, false); err != nil {
		return f, err
	}
	if f.Hypertension, err = floatParam(r, "hypertension", 0, false); err != nil {
		return f, err
	}
	if f.HeartDisease, err = floatParam(r, "heart_disease", 0, false); err != nil {
		return f, err
	}
	return f, nil
}

func (h *Handler) handleComputeRisk(w http.ResponseWriter, r *http.Request) {
	if h.Model == nil {
		writeError(w, r, apperr.ErrModelNotLoaded)
		return
	}
	features, err := riskInputs(r, true)
	if err != nil {
		writeError(w, r, err)
		return
	}
	risk, err := h.Model.Score(features)
	if err != nil {
		writeError(w, r, apperr.Wrap(apperr.KindInvalidInput, err, "cannot score inputs"))
		return
	}
	writeJSON(w, http.StatusOK, models.ComputeRiskResponse{
		RiskPercentage: risk,
		Inputs: models.RiskInputs{
			Age:          features.Age,
			AQI:          features.AQI,
			Diabetes:     features.Diabetes,
			Hypertension: features.Hypertension,
			HeartDisease: features.HeartDisease,
		},
	})
}

func (h *Handler) handleComputeRiskWithWeather(w http.ResponseWriter, r *http.Request) {
	if h.Analyzer == nil {
		writeError(w, r, apperr.ErrModelNotLoaded)
		return
	}
	q := r.URL.Query()
	date, filename := q.Get("date"), q.Get("filename")
	if date == "" || filename == "" {
		writeError(w, r, invalid("date and filename are required"))
		return
	}
	if !normalizer.ValidDate(date) {
		writeError(w, r, invalid("date must be YYYYMMDD"))
		return
	}

	result, err := h.Analyzer.Analyze(r.Context(), pipeline.AnalyzeRequest{Filename: filename, Date: date})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleTopRisk(w http.ResponseWriter, r *http.Request) {
	filename := r.URL.Query().Get("filename")
	if filename == "" {
		writeError(w, r, invalid("filename is required"))
		return
	}
	percentile, err := floatParam(r, "percentile", defaultPercentile, false)
	if err != nil {
		writeError(w, r, err)
		return
	}
	rows, err := intParam(r, "rows", defaultRows)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeFile, err := boolParam(r, "write_file", true)
	if err != nil {
		writeError(w, r, err)
		return
	}

	result, err := h.Extractor.TopRisk(r.Context(), pipeline.TopRiskRequest{
		Filename:   filename,
		Percentile: percentile,
		Rows:       rows,
		WriteFile:  writeFile,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// location resolves the forecast point from zip, or from latitude and longitude.
func (h *Handler) location(r *http.Request, zip string) (forecast.Coordinates, error) {
	if zip != "" {
		if h.ZIPs == nil {
			return forecast.Coordinates{}, invalid("ZIP lookup is not configured")
		}
		c, ok := h.ZIPs.Lookup(zip)
		if !ok {
			return forecast.Coordinates{}, invalid("Invalid ZIP")
		}
		return c, nil
	}
	var c forecast.Coordinates
	var err error
	if c.Latitude, err = floatParam(r, "latitude", 0, true); err != nil {
		return c, err
	}
	if c.Longitude, err = floatParam(r, "longitude", 0, true); err != nil {
		return c, err
	}
	return c, nil
}

func (h *Handler) handleForecast(w http.ResponseWriter, r *http.Request) {
	if h.Forecast == nil {
		writeError(w, r, apperr.New(apperr.KindInternal, "forecast client not configured"))
		return
	}
	zip := mux.Vars(r)["zip"]
	loc, err := h.location(r, zip)
	if err != nil {
		writeError(w, r, err)
		return
	}
	days, err := intParam(r, "days", forecast.DefaultDays)
	if err != nil {
		writeError(w, r, err)
		return
	}

	hourly, err := h.Forecast.HourlyForecast(r.Context(), loc.Latitude, loc.Longitude, days)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"zip":       zip,
		"latitude":  loc.Latitude,
		"longitude": loc.Longitude,
		"hourly":    hourly,
	})
}

func (h *Handler) handleForecastRisk(w http.ResponseWriter, r *http.Request) {
	if h.Model == nil {
		writeError(w, r, apperr.ErrModelNotLoaded)
		return
	}
	if h.Forecast == nil {
		writeError(w, r, apperr.New(apperr.KindInternal, "forecast client not configured"))
		return
	}
	zip := r.URL.Query().Get("zip")
	loc, err := h.location(r, zip)
	if err != nil {
		writeError(w, r, err)
		return
	}
	days, err := intParam(r, "days", forecast.DefaultDays)
	if err != nil {
		writeError(w, r, err)
		return
	}
	patient, err := riskInputs(r, false)
	if err != nil {
		writeError(w, r, err)
		return
	}

	hourly, err := h.Forecast.HourlyForecast(r.Context(), loc.Latitude, loc.Longitude, days)
	if err != nil {
		writeError(w, r, err)
		return
	}
	curve := forecast.RiskCurve(h.Model, hourly, patient)
	resp := map[string]interface{}{
		"latitude":  loc.Latitude,
		"longitude": loc.Longitude,
		"hours":     curve,
		"peak":      forecast.Peak(curve),
	}
	if zip != "" {
		resp["zip"] = zip
	}
	writeJSON(w, http.StatusOK, resp)
}
