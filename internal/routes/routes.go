package routes

import (
	"github.com/NhutViet/Construction-materials-management-sub001/internal/config"
	"github.com/NhutViet/Construction-materials-management-sub001/internal/handlers"
	"github.com/NhutViet/Construction-materials-management-sub001/internal/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SetupRoutes configura todas las rutas de la aplicación
func SetupRoutes(
	router *gin.Engine,
	cfg *config.Config,
	logger *zap.Logger,
	stockInHandler *handlers.StockInHandler,
	eventsHandler *handlers.EventsHandler,
	monitoringHandler *handlers.MonitoringHandler,
	healthChecker *middleware.HealthChecker,
) {
	// API v1 group
	v1 := router.Group("/api/v1")
	{
		// Stock-in routes (requieren sesión)
		stockIn := v1.Group("/stock-in")
		stockIn.Use(middleware.AuthMiddleware(cfg.JWT, logger))
		{
			stockIn.GET("", stockInHandler.ListStockIns)
			stockIn.POST("", stockInHandler.CreateStockIn)

			// Rutas fijas antes que :id
			stockIn.GET("/stats", stockInHandler.GetStatistics)
			stockIn.GET("/suppliers", stockInHandler.GetSuppliers)
			stockIn.GET("/ws", eventsHandler.StockInEvents)

			stockIn.GET("/:id", stockInHandler.GetStockIn)
			stockIn.PUT("/:id", stockInHandler.UpdateStockIn)
			stockIn.DELETE("/:id", stockInHandler.DeleteStockIn)
			stockIn.PUT("/:id/status", stockInHandler.UpdateStatus)
			stockIn.PUT("/:id/payment-status", stockInHandler.UpdatePayment)
		}

		// Monitoring routes
		monitoring := v1.Group("/monitoring")
		{
			monitoring.GET("/metrics", monitoringHandler.GetMetrics)
			monitoring.GET("/metrics/summary", monitoringHandler.GetMetricsSummary)
		}
	}

	// Health check (mantener en raíz para compatibilidad)
	router.GET("/health", healthChecker.HealthCheck)
	router.GET("/health/monitoring", monitoringHandler.HealthCheck)

	// API info en raíz
	router.GET("/", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "Stock-In Service API",
			"version": "1.0.0",
			"status":  "running",
			"endpoints": gin.H{
				"health": "/health",
				"api":    "/api/v1",
				"stock_in": gin.H{
					"list":           "GET /api/v1/stock-in",
					"create":         "POST /api/v1/stock-in",
					"get":            "GET /api/v1/stock-in/:id",
					"update":         "PUT /api/v1/stock-in/:id",
					"delete":         "DELETE /api/v1/stock-in/:id",
					"status":         "PUT /api/v1/stock-in/:id/status",
					"payment_status": "PUT /api/v1/stock-in/:id/payment-status",
					"stats":          "GET /api/v1/stock-in/stats",
					"suppliers":      "GET /api/v1/stock-in/suppliers",
					"events":         "GET /api/v1/stock-in/ws",
				},
			},
		})
	})
}
