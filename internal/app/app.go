package app

import (
	"github.com/timbale/registration-service/internal/config"
	"github.com/timbale/registration-service/internal/http/handlers"
	"github.com/timbale/registration-service/internal/middleware"
	"github.com/timbale/registration-service/internal/services"
	"github.com/timbale/registration-service/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// App is the container wiring all application components
type App struct {
	Config              *config.Config
	RegistrationService *services.RegistrationService
	RegistrationHandler *handlers.RegistrationHandler
	LoggerMiddleware    gin.HandlerFunc
	PromRegistry        *prometheus.Registry
	Logger              *logger.Logger
}

// NewApp creates and initializes a new application instance
func NewApp(cfg *config.Config, registrationService *services.RegistrationService, promRegistry *prometheus.Registry, log *logger.Logger) *App {
	registrationHandler := handlers.NewRegistrationHandler(registrationService, log)
	loggerMiddleware := middleware.RequestLogger(log)

	return &App{
		Config:              cfg,
		RegistrationService: registrationService,
		RegistrationHandler: registrationHandler,
		LoggerMiddleware:    loggerMiddleware,
		PromRegistry:        promRegistry,
		Logger:              log,
	}
}
