package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	ServerPort     string
	ServerHost     string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxRequestBody int64
	CORSOrigins    []string
	GzipMinSize    int

	// Data
	UploadDir       string
	WeatherDataPath string
	SchemaMapPath   string
	DLPRulesPath    string
	PreviewMaskPHI  bool

	// Model
	ModelArtifactPath string
	ModelRequired     bool

	// Database
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Redis
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// Summary cache
	SummaryCacheEnabled bool
	SummaryCacheTTL     time.Duration

	// Kafka
	KafkaBrokers        []string
	KafkaGroupID        string
	AnalysisEventsTopic string

	// Forecast
	ForecastAirQualityURL string
	ForecastWeatherURL    string
	ForecastTimeout       time.Duration
	ZIPCentroidsPath      string

	// Auditor
	AuditorPort string
}

func Load() *Config {
	// A missing .env is the normal case outside local development.
	_ = godotenv.Load()

	return &Config{
		ServerPort:     getEnv("SERVER_PORT", "2003"),
		ServerHost:     getEnv("SERVER_HOST", "0.0.0.0"),
		ReadTimeout:    getDuration("READ_TIMEOUT", 30*time.Second),
		WriteTimeout:   getDuration("WRITE_TIMEOUT", 5*time.Minute),
		MaxRequestBody: int64(getIntEnv("MAX_REQUEST_BODY_BYTES", 256*1024*1024)),
		CORSOrigins:    getStringSliceEnv("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173", "http://localhost:3000"}),
		GzipMinSize:    getIntEnv("GZIP_MIN_SIZE", 1000),

		UploadDir:       getEnv("UPLOAD_DIR", "uploads"),
		WeatherDataPath: getEnv("WEATHER_DATA_PATH", "data/weather_data.csv"),
		SchemaMapPath:   getEnv("SCHEMA_MAP_PATH", ""),
		DLPRulesPath:    getEnv("DLP_RULES_PATH", ""),
		PreviewMaskPHI:  getBoolEnv("PREVIEW_MASK_PHI", false),

		ModelArtifactPath: getEnv("MODEL_ARTIFACT_PATH", "data/climate_health_model.json"),
		ModelRequired:     getBoolEnv("MODEL_REQUIRED", false),

		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "climate"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "climate123"),
		PostgresDB:       getEnv("POSTGRES_DB", "climate_health"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getIntEnv("REDIS_DB", 0),

		SummaryCacheEnabled: getBoolEnv("SUMMARY_CACHE_ENABLED", false),
		SummaryCacheTTL:     getDuration("SUMMARY_CACHE_TTL", 10*time.Minute),

		KafkaBrokers:        getStringSliceEnv("KAFKA_BROKERS", []string{"localhost:9092"}),
		KafkaGroupID:        getEnv("KAFKA_GROUP_ID", "climate-health-auditor"),
		AnalysisEventsTopic: getEnv("ANALYSIS_EVENTS_TOPIC", ""),

		ForecastAirQualityURL: getEnv("FORECAST_AIR_QUALITY_URL", "https://air-quality-api.open-meteo.com/v1/air-quality"),
		ForecastWeatherURL:    getEnv("FORECAST_WEATHER_URL", "https://api.open-meteo.com/v1/forecast"),
		ForecastTimeout:       getDuration("FORECAST_TIMEOUT", 10*time.Second),
		ZIPCentroidsPath:      getEnv("ZIP_CENTROIDS_PATH", "data/zip_centroids.csv"),

		AuditorPort: getEnv("AUDITOR_PORT", "2004"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getStringSliceEnv splits a comma separated value, dropping empty entries.
func getStringSliceEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
