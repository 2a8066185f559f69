package transform

import (
	"cutmind/internal/engine/models"
	"cutmind/internal/rules"
)

// ============================================================
// Operation Registry
// ============================================================

// Spec binds one operation to its transform and the landmark roles it
// requires.
type Spec struct {
	Operation rules.Operation
	Required  []models.Role
	apply     applyFunc
}

// Apply runs the transform against a piece version. The piece is not
// mutated; the caller commits the returned displacements.
func (s Spec) Apply(piece *models.PatternPiece, anchors map[models.Role]models.Anchor, valueCM float64) (*Result, error) {
	return s.apply(piece, anchors, s.Operation, valueCM)
}

// registry is the process-wide operation table: constructed once at
// startup, read-only afterwards. No locking is needed anywhere in the
// engine because this and the landmark role rules are the only
// process-wide state.
var registry = buildRegistry()

func buildRegistry() map[rules.Operation]Spec {
	hemRoles := []models.Role{models.RoleHemLine, models.RoleSideSeam}
	sleeveRoles := []models.Role{models.RoleSleeveEdge, models.RoleSleeveCap}
	neckRoles := []models.Role{models.RoleNecklineCurve, models.RoleSideSeam}

	specs := []Spec{
		{
			Operation: rules.OpCropHem,
			Required:  hemRoles,
			apply: func(p *models.PatternPiece, a map[models.Role]models.Anchor, op rules.Operation, v float64) (*Result, error) {
				return hemShift(p, a, op, v, -v)
			},
		},
		{
			Operation: rules.OpExtendHem,
			Required:  hemRoles,
			apply: func(p *models.PatternPiece, a map[models.Role]models.Anchor, op rules.Operation, v float64) (*Result, error) {
				return hemShift(p, a, op, v, v)
			},
		},
		{
			Operation: rules.OpAdjustBodyLength,
			Required:  hemRoles,
			apply: func(p *models.PatternPiece, a map[models.Role]models.Anchor, op rules.Operation, v float64) (*Result, error) {
				// Signed: positive extends, negative crops.
				return hemShift(p, a, op, v, v)
			},
		},
		{
			Operation: rules.OpAddEaseBody,
			Required:  []models.Role{models.RoleBodyWidthEdge},
			apply: func(p *models.PatternPiece, a map[models.Role]models.Anchor, op rules.Operation, v float64) (*Result, error) {
				return bodyWidth(p, a, op, v, v)
			},
		},
		{
			Operation: rules.OpRemoveEaseBody,
			Required:  []models.Role{models.RoleBodyWidthEdge},
			apply: func(p *models.PatternPiece, a map[models.Role]models.Anchor, op rules.Operation, v float64) (*Result, error) {
				return bodyWidth(p, a, op, v, -v)
			},
		},
		{
			Operation: rules.OpWidenSleeve,
			Required:  sleeveRoles,
			apply: func(p *models.PatternPiece, a map[models.Role]models.Anchor, op rules.Operation, v float64) (*Result, error) {
				return sleeveWidth(p, a, op, v, v, false)
			},
		},
		{
			Operation: rules.OpNarrowSleeve,
			Required:  sleeveRoles,
			apply: func(p *models.PatternPiece, a map[models.Role]models.Anchor, op rules.Operation, v float64) (*Result, error) {
				return sleeveWidth(p, a, op, v, -v, false)
			},
		},
		{
			Operation: rules.OpShortenSleeve,
			Required:  sleeveRoles,
			apply: func(p *models.PatternPiece, a map[models.Role]models.Anchor, op rules.Operation, v float64) (*Result, error) {
				return sleeveShift(p, a, op, v, -v)
			},
		},
		{
			Operation: rules.OpExtendSleeve,
			Required:  sleeveRoles,
			apply: func(p *models.PatternPiece, a map[models.Role]models.Anchor, op rules.Operation, v float64) (*Result, error) {
				return sleeveShift(p, a, op, v, v)
			},
		},
		{
			Operation: rules.OpAddEaseSleeve,
			Required:  sleeveRoles,
			apply: func(p *models.PatternPiece, a map[models.Role]models.Anchor, op rules.Operation, v float64) (*Result, error) {
				return sleeveWidth(p, a, op, v, v, true)
			},
		},
		{
			Operation: rules.OpRaiseNeckline,
			Required:  neckRoles,
			apply: func(p *models.PatternPiece, a map[models.Role]models.Anchor, op rules.Operation, v float64) (*Result, error) {
				return necklineShift(p, a, op, v, -v)
			},
		},
		{
			Operation: rules.OpLowerNeckline,
			Required:  neckRoles,
			apply: func(p *models.PatternPiece, a map[models.Role]models.Anchor, op rules.Operation, v float64) (*Result, error) {
				return necklineShift(p, a, op, v, v)
			},
		},
	}

	m := make(map[rules.Operation]Spec, len(specs))
	for _, s := range specs {
		m[s.Operation] = s
	}
	return m
}

// Lookup dispatches an operation to its transform spec.
func Lookup(op rules.Operation) (Spec, bool) {
	s, ok := registry[op]
	return s, ok
}
