/**
 * @description
 * HTTP handlers for accuracy statistics.
 * Thin adapters over the evaluation.Aggregator.
 *
 * @dependencies
 * - github.com/gofiber/fiber/v2
 * - backend/internal/evaluation
 */

package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/stockpulse-project/backend/internal/evaluation"
	"github.com/stockpulse-project/backend/internal/logger"
)

// AccuracyHandler serves accuracy reports, calibration, and rankings
type AccuracyHandler struct {
	aggregator *evaluation.Aggregator
}

// NewAccuracyHandler creates a new AccuracyHandler
func NewAccuracyHandler(aggregator *evaluation.Aggregator) *AccuracyHandler {
	return &AccuracyHandler{aggregator: aggregator}
}

// GetAccuracy returns the accuracy report, optionally scoped to one symbol
// GET /api/v1/accuracy?symbol=AAPL
func (h *AccuracyHandler) GetAccuracy(c *fiber.Ctx) error {
	symbol := c.Query("symbol")

	report, err := h.aggregator.Report(c.Context(), symbol)
	if err != nil {
		logger.Error("Failed to build accuracy report: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to compute accuracy report",
		})
	}

	return c.JSON(report)
}

// GetCalibration returns confidence calibration buckets
// GET /api/v1/accuracy/calibration
func (h *AccuracyHandler) GetCalibration(c *fiber.Ctx) error {
	buckets, err := h.aggregator.Calibration(c.Context())
	if err != nil {
		logger.Error("Failed to compute calibration: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to compute calibration",
		})
	}

	return c.JSON(fiber.Map{"buckets": buckets})
}

// GetTopSymbols returns symbols ranked by pooled accuracy
// GET /api/v1/accuracy/top-symbols?limit=10
func (h *AccuracyHandler) GetTopSymbols(c *fiber.Ctx) error {
	limit := 10
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	symbols, err := h.aggregator.TopSymbols(c.Context(), limit)
	if err != nil {
		logger.Error("Failed to rank symbols: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to rank symbols",
		})
	}

	return c.JSON(fiber.Map{"symbols": symbols})
}
