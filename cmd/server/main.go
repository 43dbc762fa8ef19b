package main

import (
	"time"

	"github.com/NhutViet/Construction-materials-management-sub001/internal/cache"
	"github.com/NhutViet/Construction-materials-management-sub001/internal/config"
	"github.com/NhutViet/Construction-materials-management-sub001/internal/database"
	"github.com/NhutViet/Construction-materials-management-sub001/internal/events"
	"github.com/NhutViet/Construction-materials-management-sub001/internal/handlers"
	"github.com/NhutViet/Construction-materials-management-sub001/internal/middleware"
	"github.com/NhutViet/Construction-materials-management-sub001/internal/routes"
	"github.com/NhutViet/Construction-materials-management-sub001/internal/services"

	"github.com/NhutViet/Construction-materials-management-sub001/internal/repository"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	// 1. Configuración
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// 2. Logger estructurado
	logger, err := newLogger(cfg.Logging.Level)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer logger.Sync()

	// 3. PostgreSQL
	postgresDB, err := database.NewPostgresDB(
		cfg.Database.URL,
		cfg.Database.MaxOpenConns,
		cfg.Database.MaxIdleConns,
		cfg.Database.ConnMaxLifetime,
		logger,
	)
	if err != nil {
		logger.Fatal("Failed to connect to PostgreSQL", zap.Error(err))
	}
	defer postgresDB.Close()

	// 4. Redis
	redisDB, err := database.NewRedisDB(cfg.Redis.URL, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisDB.Close()

	// 5. Capas de la aplicación
	stockInRepo, err := repository.NewStockInRepository(postgresDB.DB)
	if err != nil {
		logger.Fatal("Failed to prepare stock-in repository", zap.Error(err))
	}

	stockInCache := cache.NewStockInCache(redisDB.Client, 1000, 5*time.Minute, logger)
	hub := events.NewHub(logger)

	stockInService := services.NewStockInService(stockInRepo, stockInCache, hub, logger)
	monitoringService := services.NewMonitoringService(logger, cfg, redisDB.Client, postgresDB.DB, stockInCache)

	stockInHandler := handlers.NewStockInHandler(stockInService, logger)
	eventsHandler := handlers.NewEventsHandler(hub, logger)
	monitoringHandler := handlers.NewMonitoringHandler(monitoringService, logger)
	healthChecker := middleware.NewHealthChecker(postgresDB, redisDB, logger)

	// 6. Router
	gin.SetMode(cfg.Server.GinMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggerMiddleware(logger))
	router.Use(monitoringHandler.RecordRequestMiddleware())

	routes.SetupRoutes(router, cfg, logger, stockInHandler, eventsHandler, monitoringHandler, healthChecker)

	// 7. Arranque
	middleware.ServerInfo(cfg.Server.Port, logger)
	if err := router.Run(":" + cfg.Server.Port); err != nil {
		logger.Fatal("Failed to run server", zap.Error(err))
	}
}

func newLogger(level string) (*zap.Logger, error) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}
