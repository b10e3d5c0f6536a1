/**
 * @description
 * API Route definitions.
 * Sets up the router groups and assigns handlers.
 *
 * @dependencies
 * - github.com/gofiber/fiber/v2
 * - backend/internal/api/handlers
 * - backend/internal/api/middleware
 * - backend/internal/evaluation
 * - backend/internal/marketdata
 * - backend/internal/store
 */

package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stockpulse-project/backend/internal/api/handlers"
	"github.com/stockpulse-project/backend/internal/api/middleware"
	"github.com/stockpulse-project/backend/internal/config"
	"github.com/stockpulse-project/backend/internal/evaluation"
	"github.com/stockpulse-project/backend/internal/logger"
	"github.com/stockpulse-project/backend/internal/marketdata"
	"github.com/stockpulse-project/backend/internal/store"
	"gorm.io/gorm"
)

// SetupRoutes configures all API routes
func SetupRoutes(app *fiber.App, db *gorm.DB, rdb *redis.Client, cfg *config.Config) {
	// 1. Initialize Middleware
	if err := middleware.InitAuthMiddleware(cfg); err != nil {
		logger.Error("Failed to init auth middleware: %v", err)
		// We don't panic here to allow the app to start in dev modes without
		// valid keys, but protected routes will fail.
	}

	// 2. Initialize Services
	predictionStore := store.NewPredictionStore(db)
	quoteClient := marketdata.NewClient(cfg)
	oracle := marketdata.NewOracle(rdb, quoteClient)
	engine := evaluation.NewEngine(predictionStore, oracle, cfg.Evaluation.Concurrency)
	aggregator := evaluation.NewAggregator(predictionStore, rdb)

	// 3. Initialize Handlers
	accuracyHandler := handlers.NewAccuracyHandler(aggregator)
	evaluationHandler := handlers.NewEvaluationHandler(engine)

	// 4. Define Routes
	api := app.Group("/api")
	v1 := api.Group("/v1")

	// Public Routes
	v1.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Accuracy Routes (Public)
	accuracy := v1.Group("/accuracy")
	accuracy.Get("/", accuracyHandler.GetAccuracy)
	accuracy.Get("/calibration", accuracyHandler.GetCalibration)
	accuracy.Get("/top-symbols", accuracyHandler.GetTopSymbols)

	// Evaluation Routes (Protected, administrative)
	eval := v1.Group("/evaluation", middleware.Protected())
	eval.Post("/trigger", evaluationHandler.TriggerPass)
	eval.Get("/status", evaluationHandler.GetStatus)
}
