package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"

	"cutmind/internal/pattern/repository"

	"github.com/gofiber/fiber/v3"
)

// ============================================================
// Pattern Handlers
// ============================================================

// GetPattern returns the raw base SVG for a pattern id.
func (h *Handler) GetPattern(c fiber.Ctx) error {
	id := c.Params("id")
	log.Printf("[PATTERNS] Get %s", id)

	svg, err := h.repo.GetSVG(context.Background(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return errorResponse(c, http.StatusNotFound, "invalid_pattern_id", fiber.Map{
				"pattern_id": id,
			})
		}
		log.Printf("[PATTERNS] Load failed: %v", err)
		return errorResponse(c, http.StatusInternalServerError, "internal_error", fiber.Map{})
	}

	c.Set("Content-Type", "image/svg+xml")
	return c.SendString(svg)
}

// ListPatterns returns the available pattern ids.
func (h *Handler) ListPatterns(c fiber.Ctx) error {
	ids, err := h.repo.List(context.Background())
	if err != nil {
		log.Printf("[PATTERNS] List failed: %v", err)
		return errorResponse(c, http.StatusInternalServerError, "internal_error", fiber.Map{})
	}

	return c.JSON(fiber.Map{"patterns": ids})
}
