package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"cutmind/internal/engine/models"
	"cutmind/internal/engine/pipeline"
	"cutmind/internal/interpret"
	"cutmind/internal/pattern/repository"
	"cutmind/internal/rules"

	"github.com/gofiber/fiber/v3"
)

// ============================================================
// API Handlers
// ============================================================

type Handler struct {
	repo   *repository.Repository
	engine *pipeline.Engine
}

func New(repo *repository.Repository, engine *pipeline.Engine) *Handler {
	return &Handler{repo: repo, engine: engine}
}

type applyRulesRequest struct {
	PatternID string       `json:"pattern_id"`
	Rules     []rules.Rule `json:"rules"`
}

type applyRulesResponse struct {
	ModifiedPatternSVG string `json:"modified_pattern_svg"`
}

type interpretRequest struct {
	Prompt string `json:"prompt"`
}

type interpretResponse struct {
	Rules []rules.Rule `json:"rules"`
}

// ApplyRules validates the rule list, loads the base pattern, and runs the
// geometry pipeline.
func (h *Handler) ApplyRules(c fiber.Ctx) error {
	log.Printf("[APPLY] Received request, %d bytes", len(c.Body()))

	var req applyRulesRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return errorResponse(c, http.StatusBadRequest, "invalid_rule_format", fiber.Map{})
	}

	if err := rules.Validate(req.Rules); err != nil {
		log.Printf("[APPLY] Rule validation failed: %v", err)
		return errorResponse(c, http.StatusBadRequest, "invalid_rule_format", fiber.Map{
			"reason": err.Error(),
		})
	}

	baseSVG, err := h.repo.GetSVG(context.Background(), req.PatternID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return errorResponse(c, http.StatusNotFound, "invalid_pattern_id", fiber.Map{
				"pattern_id": req.PatternID,
			})
		}
		log.Printf("[APPLY] Pattern load failed: %v", err)
		return errorResponse(c, http.StatusInternalServerError, "internal_error", fiber.Map{})
	}

	modified, outcomes, err := h.engine.ApplyRules(baseSVG, req.Rules)
	if err != nil {
		return engineError(c, err)
	}

	for _, o := range outcomes {
		log.Printf("[APPLY] %s %g cm: %s, re-stitched %v", o.Rule.Operation, o.Rule.ValueCM, o.Status, o.Restitched)
	}

	return c.JSON(applyRulesResponse{ModifiedPatternSVG: modified})
}

// Interpret converts a natural-language prompt into structured rules.
func (h *Handler) Interpret(c fiber.Ctx) error {
	log.Printf("[INTERPRET] Received request")

	var req interpretRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil || req.Prompt == "" {
		return errorResponse(c, http.StatusBadRequest, "invalid_rule_format", fiber.Map{})
	}

	list, err := interpret.Interpret(req.Prompt)
	if err != nil {
		return errorResponse(c, http.StatusBadRequest, "unsupported_instruction", fiber.Map{})
	}

	return c.JSON(interpretResponse{Rules: list})
}

// ============================================================
// Error mapping
// ============================================================

// engineError maps the engine's error taxonomy onto the unified API error
// format. An UnsupportedOperationError indicates an upstream contract
// violation, so it surfaces as an internal error.
func engineError(c fiber.Ctx, err error) error {
	log.Printf("[APPLY] Engine error: %v", err)

	var (
		malformed   *models.MalformedGeometryError
		landmark    *models.LandmarkNotFoundError
		unsupported *models.UnsupportedOperationError
		bounds      *models.GeometryOutOfBoundsError
		invariant   *models.InvariantViolationError
	)

	switch {
	case errors.As(err, &malformed):
		return errorResponse(c, http.StatusBadRequest, "geometry_application_failed", fiber.Map{
			"reason": malformed.Reason,
		})
	case errors.As(err, &landmark):
		return errorResponse(c, http.StatusBadRequest, "geometry_application_failed", fiber.Map{
			"missing_landmark": string(landmark.Role),
		})
	case errors.As(err, &bounds):
		return errorResponse(c, http.StatusBadRequest, "geometry_application_failed", fiber.Map{
			"operation": bounds.Operation,
			"value_cm":  bounds.ValueCM,
			"reason":    bounds.Reason,
		})
	case errors.As(err, &invariant):
		return errorResponse(c, http.StatusBadRequest, "geometry_application_failed", fiber.Map{
			"reason": invariant.Reason,
		})
	case errors.As(err, &unsupported):
		return errorResponse(c, http.StatusInternalServerError, "internal_error", fiber.Map{
			"operation": unsupported.Operation,
		})
	default:
		return errorResponse(c, http.StatusInternalServerError, "internal_error", fiber.Map{})
	}
}

// errorResponse emits the unified error format shared with the frontend.
func errorResponse(c fiber.Ctx, status int, code string, details fiber.Map) error {
	return c.Status(status).JSON(fiber.Map{
		"error":   code,
		"details": details,
	})
}
