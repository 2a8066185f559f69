package handlers

import (
	"context"

	"github.com/gofiber/fiber/v3"
)

// ============================================================
// Health Check Handlers
// ============================================================

func LivenessProbe(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "alive",
	})
}

// ReadinessProbe reports readiness once the pattern store is seeded.
func (h *Handler) ReadinessProbe(c fiber.Ctx) error {
	if _, err := h.repo.List(context.Background()); err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "unavailable",
		})
	}
	return c.JSON(fiber.Map{
		"status": "ready",
	})
}
