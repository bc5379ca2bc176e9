package routes

import (
	"github.com/timbale/registration-service/internal/app"
	"github.com/timbale/registration-service/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRoutes configures all API routes on the Gin router
func SetupRoutes(router *gin.Engine, app *app.App, log *logger.Logger) {
	// Registration webhooks; the legacy form endpoint shares the handler
	router.POST("/register", app.RegistrationHandler.Register)
	router.POST("/register-from-timbale", app.RegistrationHandler.Register)

	// Manual trigger for the sheet reconciliation batch
	router.POST("/process-sheet", app.RegistrationHandler.ProcessSheet)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(app.PromRegistry, promhttp.HandlerOpts{})))

	log.Infow("API routes successfully configured")
}
