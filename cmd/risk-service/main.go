package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/climatehealth/platform/pkg/analytics/summary"
	"github.com/climatehealth/platform/pkg/api"
	"github.com/climatehealth/platform/pkg/common/config"
	"github.com/climatehealth/platform/pkg/common/database"
	"github.com/climatehealth/platform/pkg/common/kafka"
	"github.com/climatehealth/platform/pkg/common/logger"
	"github.com/climatehealth/platform/pkg/dlp"
	"github.com/climatehealth/platform/pkg/forecast"
	"github.com/climatehealth/platform/pkg/gateway/middleware"
	"github.com/climatehealth/platform/pkg/pipeline"
	"github.com/climatehealth/platform/pkg/schema"
	"github.com/climatehealth/platform/pkg/serving/predictor"
	"github.com/climatehealth/platform/pkg/storage"
	"github.com/climatehealth/platform/pkg/weather"
	"github.com/gorilla/mux"
)

func main() {
	logger.Init()
	cfg := config.Load()

	// Model
	model, err := predictor.Load(cfg.ModelArtifactPath)
	if err != nil {
		if cfg.ModelRequired {
			logger.Log.WithError(err).Fatal("Failed to load model artifact")
		}
		logger.Log.WithError(err).WithField("path", cfg.ModelArtifactPath).Warn("Model not loaded, scoring endpoints will return 503")
	} else {
		logger.Log.WithFields(map[string]interface{}{
			"model":   model.Name(),
			"version": model.Version(),
		}).Info("Model loaded")
	}

	store, err := storage.NewUploadStore(cfg.UploadDir)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to create upload directory")
	}
	lookup := weather.NewLookup(cfg.WeatherDataPath)

	mapping, err := schema.Load(cfg.SchemaMapPath)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to load schema map")
	}

	var masker *dlp.Detector
	if cfg.PreviewMaskPHI {
		rules, err := dlp.LoadRules(cfg.DLPRulesPath)
		if err != nil {
			logger.Log.WithError(err).Warn("Failed to load DLP rules, using defaults")
			rules = dlp.DefaultRules()
		}
		if masker, err = dlp.NewDetector(rules); err != nil {
			logger.Log.WithError(err).Fatal("Invalid DLP rules")
		}
	}

	zips, err := forecast.LoadZIPDirectory(cfg.ZIPCentroidsPath)
	if err != nil {
		logger.Log.WithError(err).Warn("ZIP centroids not loaded, forecasts need latitude/longitude")
		zips = nil
	}

	// Optional summary cache
	var cache summary.Cache
	if cfg.SummaryCacheEnabled {
		client, err := database.GetRedis(cfg)
		if err != nil {
			logger.Log.WithError(err).Warn("Summary cache disabled")
		} else {
			cache = summary.NewRedisCache(client, cfg.SummaryCacheTTL)
			defer database.CloseRedis()
		}
	}

	// Optional event publishing
	var publisher pipeline.Publisher
	if cfg.AnalysisEventsTopic != "" {
		producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.AnalysisEventsTopic)
		defer producer.Close()
		publisher = producer
		logger.Log.WithField("topic", cfg.AnalysisEventsTopic).Info("Publishing analysis events")
	}

	deps := api.Deps{
		Store:      store,
		Weather:    lookup,
		Extractor:  pipeline.NewExtractor(store, publisher),
		Summarizer: summary.NewSummarizer(store, mapping, cache),
		Masker:     masker,
		Forecast:   forecast.NewClient(cfg.ForecastAirQualityURL, cfg.ForecastWeatherURL, cfg.ForecastTimeout),
		ZIPs:       zips,
	}
	if model != nil {
		analyzer, err := pipeline.NewAnalyzer(store, lookup, mapping, model, publisher)
		if err != nil {
			logger.Log.WithError(err).Fatal("Failed to create analyzer")
		}
		deps.Model, deps.Analyzer = model, analyzer
	}

	// Setup router
	router := mux.NewRouter()
	router.Use(middleware.Logging)
	router.Use(middleware.Recovery)
	router.Use(middleware.BodyLimit(cfg.MaxRequestBody))
	api.NewHandler(deps).Register(router)

	gzip, err := middleware.Gzip(cfg.GzipMinSize)
	if err != nil {
		logger.Log.WithError(err).Fatal("Invalid gzip configuration")
	}
	// CORS wraps the router so preflight requests reach it before route matching.
	handler := middleware.CORS(cfg.CORSOrigins)(gzip(router))

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort),
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown
	go func() {
		logger.Log.WithFields(map[string]interface{}{
			"host":         cfg.ServerHost,
			"port":         cfg.ServerPort,
			"upload_dir":   cfg.UploadDir,
			"model_loaded": model != nil,
		}).Info("Risk service started")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down risk service...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Log.WithError(err).Error("Server forced to shutdown")
	}

	logger.Log.Info("Risk service stopped")
}
