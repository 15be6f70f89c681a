package main

import (
	"fmt"
	"log"

	"github.com/architect/chess-trainer/internal/common/database"
	commonHandlers "github.com/architect/chess-trainer/internal/common/handlers"
	"github.com/architect/chess-trainer/internal/common/health"
	"github.com/architect/chess-trainer/internal/common/middleware"
	lessonHandlers "github.com/architect/chess-trainer/internal/lessons/handlers"
	lessonModels "github.com/architect/chess-trainer/internal/lessons/models"
	"github.com/architect/chess-trainer/pkg/config"
	"github.com/architect/chess-trainer/pkg/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Init(cfg.Server.Env, cfg.Logging.Level); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	if err := database.InitWithType(cfg.Database.Type, cfg.Database.DSN); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.Close()

	if err := database.DB.AutoMigrate(
		&database.Learner{},
		&lessonModels.Lesson{},
		&lessonModels.Puzzle{},
		&lessonModels.Completion{},
	); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	if cfg.Server.Env != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger(logger.Named("http")))
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.ErrorHandler())

	healthChecker := health.NewHealthChecker(database.GetDB(), version)
	healthHandler := commonHandlers.NewHealthHandler(healthChecker)
	router.GET("/health", healthHandler.Health)
	router.GET("/health/readiness", healthHandler.Readiness)
	router.GET("/health/liveness", healthHandler.Liveness)

	v1 := router.Group("/api/v1")
	lessonHandlers.RegisterRoutes(v1)

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	logger.L().Info("trainer server listening",
		zap.String("addr", addr),
		zap.String("env", cfg.Server.Env),
		zap.String("db", cfg.Database.Type),
	)

	if err := router.Run(addr); err != nil {
		logger.L().Fatal("server exited", zap.Error(err))
	}
}
