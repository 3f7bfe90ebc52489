// internal/api/router.go
package api

import (
	"time"

	"reconciliation-service/internal/api/handlers"
	"reconciliation-service/internal/api/middleware"
	"reconciliation-service/internal/config"
	"reconciliation-service/internal/core/auth"
	"reconciliation-service/internal/core/reconciliation"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// NewRouter monta as rotas do serviço de conciliação.
func NewRouter(cfg config.ServerConfig, maxUpload int64, authService auth.Service, reconciliationService reconciliation.Service) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/health"},
	}))
	router.Use(cors.New(corsConfig(cfg.CORSOrigins)))
	if maxUpload > 0 {
		router.MaxMultipartMemory = maxUpload
	}

	authHandler := handlers.NewAuthHandler(authService)
	reconciliationHandler := handlers.NewReconciliationHandler(reconciliationService, maxUpload)

	apiV1 := router.Group("/api/v1")
	{
		apiV1.POST("/login", authHandler.Login)

		protected := apiV1.Group("", middleware.RequireToken(authService))
		protected.POST("/reconcile", reconciliationHandler.HandleReconcile)
		protected.POST("/reconcile/csv", reconciliationHandler.HandleExportCSV)
	}

	router.GET("/health", handlers.Health)
	return router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders: []string{"Content-Length", "Content-Disposition"},
		MaxAge:        12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	cfg.AllowOrigins = origins
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
	}
	return cfg
}
