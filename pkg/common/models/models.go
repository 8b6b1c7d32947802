package models

import (
	"time"
)

// Event bus
const (
	EventAnalysisCompleted = "analysis.completed"
	EventTopRiskCompleted  = "toprisk.completed"

	SourceRiskService = "risk-service"
)

type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"` // analysis.completed, toprisk.completed
	Source    string                 `json:"source"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]string      `json:"metadata,omitempty"`
}

// HTTP responses
type ErrorResponse struct {
	Error  string   `json:"error"`
	Kind   string   `json:"kind,omitempty"`
	Fields []string `json:"fields,omitempty"`
}

type HealthResponse struct {
	Status       string    `json:"status"`
	Message      string    `json:"message"`
	Timestamp    time.Time `json:"timestamp"`
	Uptime       float64   `json:"uptime"`
	ModelLoaded  bool      `json:"model_loaded"`
	ModelVersion string    `json:"model_version,omitempty"`
}

type UploadResponse struct {
	Message  string `json:"message"`
	Filename string `json:"filename"`
	Path     string `json:"path"`
	Size     int64  `json:"size"`
}

type FilesResponse struct {
	Files []string `json:"files"`
}

type ViewResponse struct {
	Data string `json:"data"`
}

type WeatherResponse struct {
	Date        string      `json:"date"`
	Count       int         `json:"count"`
	WeatherData interface{} `json:"weather_data"`
}

type RiskInputs struct {
	Age          float64 `json:"age"`
	AQI          float64 `json:"aqi"`
	Diabetes     float64 `json:"diabetes"`
	Hypertension float64 `json:"hypertension"`
	HeartDisease float64 `json:"heart_disease"`
}

type ComputeRiskResponse struct {
	RiskPercentage float64    `json:"risk_percentage"`
	Inputs         RiskInputs `json:"inputs"`
}
