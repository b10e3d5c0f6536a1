/**
 * @description
 * HTTP handlers for the evaluation engine's administrative surface.
 *
 * @dependencies
 * - github.com/gofiber/fiber/v2
 * - backend/internal/evaluation
 */

package handlers

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/stockpulse-project/backend/internal/evaluation"
)

// EvaluationHandler exposes the manual pass trigger and engine status
type EvaluationHandler struct {
	engine *evaluation.Engine
}

// NewEvaluationHandler creates a new EvaluationHandler
func NewEvaluationHandler(engine *evaluation.Engine) *EvaluationHandler {
	return &EvaluationHandler{engine: engine}
}

// TriggerPass starts an evaluation pass in the background.
// Subject to the same run guard as the scheduled cadence: a trigger that
// finds the engine already running reports "already in progress", not an error.
// POST /api/v1/evaluation/trigger
func (h *EvaluationHandler) TriggerPass(c *fiber.Ctx) error {
	// Detached from the request context: the pass outlives the HTTP request
	err := h.engine.StartPass(context.Background())
	if err != nil {
		if errors.Is(err, evaluation.ErrPassInProgress) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"status": "already in progress",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to start evaluation pass",
		})
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"status": "started",
	})
}

// GetStatus reports whether a pass is currently running
// GET /api/v1/evaluation/status
func (h *EvaluationHandler) GetStatus(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"running": h.engine.Running(),
	})
}
