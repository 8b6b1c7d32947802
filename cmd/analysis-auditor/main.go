package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/climatehealth/platform/pkg/audit"
	"github.com/climatehealth/platform/pkg/common/config"
	"github.com/climatehealth/platform/pkg/common/database"
	"github.com/climatehealth/platform/pkg/common/kafka"
	"github.com/climatehealth/platform/pkg/common/logger"
	"github.com/climatehealth/platform/pkg/gateway/middleware"
	"github.com/gorilla/mux"
)

func main() {
	logger.Init()
	cfg := config.Load()

	if cfg.AnalysisEventsTopic == "" {
		logger.Log.Fatal("ANALYSIS_EVENTS_TOPIC must be set")
	}

	db, err := database.GetPostgres(cfg)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to connect to database")
	}
	defer database.ClosePostgres()

	repo := audit.NewRepository(db)
	if err := repo.AutoMigrate(); err != nil {
		logger.Log.WithError(err).Fatal("Failed to migrate audit tables")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	consumer := kafka.NewConsumer(cfg.KafkaBrokers, cfg.AnalysisEventsTopic, cfg.KafkaGroupID)
	defer consumer.Close()

	recorder := audit.NewRecorder(repo)
	go func() {
		logger.Log.WithFields(map[string]interface{}{
			"topic": cfg.AnalysisEventsTopic,
			"group": cfg.KafkaGroupID,
		}).Info("Consuming analysis events")
		if err := consumer.Consume(ctx, recorder.Handle); err != nil && ctx.Err() == nil {
			logger.Log.WithError(err).Error("Event consumer stopped")
		}
	}()

	router := mux.NewRouter()
	router.Use(middleware.Logging)
	router.Use(middleware.Recovery)

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	}).Methods(http.MethodGet)

	audit.NewHandler(repo).Register(router)

	server := newServer(cfg, router)

	go func() {
		logger.Log.WithField("port", cfg.AuditorPort).Info("Analysis auditor started")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down analysis auditor...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Log.WithError(err).Error("Server forced to shutdown")
	}

	logger.Log.Info("Analysis auditor stopped")
}

func newServer(cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.AuditorPort),
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}
}
