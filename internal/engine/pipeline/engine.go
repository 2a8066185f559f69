package pipeline

import (
	"sort"

	"cutmind/internal/engine/landmark"
	"cutmind/internal/engine/models"
	"cutmind/internal/engine/parser"
	"cutmind/internal/engine/serializer"
	"cutmind/internal/engine/transform"
	"cutmind/internal/rules"
)

// ============================================================
// Rule application pipeline
// ============================================================

// Status is the outcome of one rule application.
type Status string

const (
	StatusApplied         Status = "rule_applied"
	StatusRejected        Status = "transform_rejected"
	StatusLandmarkMissing Status = "landmark_missing"
)

// RuleOutcome records what one rule did: which roles its transform moved
// and which elements were re-stitched through shared points.
type RuleOutcome struct {
	Rule       rules.Rule
	Status     Status
	Moved      []models.Role
	Restitched []string
}

// Engine runs validated rule lists against pattern documents. It holds no
// state: every invocation is an independent, purely functional pipeline,
// so concurrent requests need no coordination.
type Engine struct{}

func New() *Engine {
	return &Engine{}
}

// ApplyRules parses the document, applies each rule in order against the
// current piece version, validates the result, and emits the canonical
// serialization. Identical input always yields byte-identical output.
//
// On any failure the original document is untouched and no partial result
// is returned; outcomes cover the rules attempted so far.
func (e *Engine) ApplyRules(raw string, list []rules.Rule) (string, []RuleOutcome, error) {
	piece, err := parser.Parse(raw)
	if err != nil {
		return "", nil, err
	}

	outcomes := make([]RuleOutcome, 0, len(list))

	for _, r := range list {
		next, outcome, err := e.applyRule(piece, r)
		outcomes = append(outcomes, outcome)
		if err != nil {
			return "", outcomes, err
		}
		piece = next
	}

	if err := serializer.Validate(piece); err != nil {
		return "", outcomes, err
	}

	return serializer.Serialize(piece), outcomes, nil
}

// applyRule advances the pipeline by one rule, producing the next piece
// version. The input version is never mutated.
func (e *Engine) applyRule(piece *models.PatternPiece, r rules.Rule) (*models.PatternPiece, RuleOutcome, error) {
	outcome := RuleOutcome{Rule: r}

	// The upstream validator already rejects unknown operations; fail
	// closed anyway.
	spec, ok := transform.Lookup(r.Operation)
	if !ok {
		outcome.Status = StatusRejected
		return nil, outcome, &models.UnsupportedOperationError{Operation: string(r.Operation)}
	}

	// Anchors are resolved against the current version: later rules must
	// observe the piece state left by earlier ones.
	anchors := landmark.Resolve(piece)
	if err := landmark.Require(anchors, spec.Required...); err != nil {
		outcome.Status = StatusLandmarkMissing
		return nil, outcome, err
	}

	next := piece.Clone()
	result, err := spec.Apply(next, anchors, r.ValueCM)
	if err != nil {
		outcome.Status = StatusRejected
		return nil, outcome, err
	}

	outcome.Status = StatusApplied
	outcome.Moved = result.Moved
	outcome.Restitched = propagate(next, result)
	return next, outcome, nil
}

// propagate commits the displacements to the shared point table. Every
// element referencing a displaced point ID moves with it, so seams stay
// joined by identity; elements that merely lie near the edited anchor are
// untouched. Returns the ids of elements re-stitched beyond the
// transform's own targets.
func propagate(piece *models.PatternPiece, result *transform.Result) []string {
	for id, delta := range result.Displacements {
		piece.Points[id] = piece.Points[id].Add(delta)
	}

	stitched := make(map[string]struct{})
	for _, e := range piece.Elements {
		for id := range result.Displacements {
			if e.References(id) {
				stitched[e.ID] = struct{}{}
				break
			}
		}
	}

	ids := make([]string, 0, len(stitched))
	for id := range stitched {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
