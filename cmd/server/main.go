package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/timbale/registration-service/internal/api/rest"
	"github.com/timbale/registration-service/internal/app"
	"github.com/timbale/registration-service/internal/config"
	"github.com/timbale/registration-service/internal/http/routes"
	"github.com/timbale/registration-service/internal/kafka"
	"github.com/timbale/registration-service/internal/mailer"
	"github.com/timbale/registration-service/internal/metrics"
	"github.com/timbale/registration-service/internal/retry"
	"github.com/timbale/registration-service/internal/scheduler"
	"github.com/timbale/registration-service/internal/services"
	"github.com/timbale/registration-service/internal/sheets"
	"github.com/timbale/registration-service/internal/siigo"
	"github.com/timbale/registration-service/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
)

var log *logger.Logger

func init() {
	// A missing .env file is fine, the environment may be set directly
	_ = godotenv.Load()

	logLevel := logger.INFO
	if os.Getenv("LOG_LEVEL") == "debug" {
		logLevel = logger.DEBUG
	}
	log = logger.New(logLevel)
}

func main() {
	log.Infow("Registration service starting up...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration: %v", err)
	}

	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()

	promRegistry := prometheus.NewRegistry()
	registrationMetrics := metrics.NewRegistrationMetrics(promRegistry, log)

	retryExec := retry.NewExecutor(cfg.Retry.MaxAttempts, cfg.Retry.Delay, log)

	siigoClient := siigo.NewClient(siigo.Config{
		BaseURL:   cfg.Siigo.BaseURL,
		PartnerID: cfg.Siigo.PartnerID,
		Username:  cfg.Siigo.Username,
		AccessKey: cfg.Siigo.AccessKey,
	}, retryExec, log)

	sheetGateway, err := sheets.NewGoogleGateway(ctx, cfg.Sheets.CredentialsPath, cfg.Sheets.SheetID, log)
	if err != nil {
		log.Fatal("Failed to initialize Google Sheets gateway: %v", err)
	}
	log.Infow("Google Sheets gateway initialized", "sheet_id", cfg.Sheets.SheetID)

	mail := mailer.NewSMTPMailer(mailer.Config{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
	}, log)

	// Event publishing is optional: without brokers configured the service
	// runs, it just does not emit registration events.
	var producer kafka.Producer
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err = kafka.NewRegistrationProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
		if err != nil {
			log.Errorw("Failed to initialize Kafka producer, continuing without event publishing", "error", err)
			producer = nil
		} else {
			defer func() {
				if err := producer.Close(); err != nil {
					log.Errorw("Error closing Kafka producer", "error", err)
				}
			}()
		}
	}

	registrationService := services.NewRegistrationService(
		siigoClient,
		sheetGateway,
		mail,
		producer,
		registrationMetrics,
		cfg.Sheets.ReadRange,
		log,
	)

	application := app.NewApp(cfg, registrationService, promRegistry, log)

	router := gin.New()
	router.Use(application.LoggerMiddleware)
	router.Use(gin.Recovery())
	routes.SetupRoutes(router, application, log)

	server := rest.NewServer(router, cfg, log)

	sched := scheduler.New(registrationService, cfg.Batch.IntervalMinutes, log)
	if err := sched.Start(); err != nil {
		log.Fatal("Failed to start scheduler: %v", err)
	}

	go func() {
		if err := server.Start(); err != nil {
			log.Fatal("Server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Infow("Shutdown signal received")

	shutdownTimeout := time.Duration(cfg.Server.ShutdownTimeout) * time.Second
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorw("Server forced to shutdown", "error", err)
	}

	sched.Stop()

	log.Infow("Server stopped gracefully")
}
