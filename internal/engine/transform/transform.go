package transform

import (
	"math"

	"cutmind/internal/engine/models"
	"cutmind/internal/rules"
)

// ============================================================
// Transform primitives
// ============================================================

// MaxExtentCM is the hard sanity bound: no edit may stretch any panel
// dimension beyond this.
const MaxExtentCM = 300.0

// minGapCM is the closest an edited edge may approach its bounding
// landmark (hem vs underarm, sleeve opening vs cap).
const minGapCM = 1.0

// Result is the output of applying one transform: the control-point
// displacements to commit plus the roles that moved. It is consumed by the
// propagation step and discarded.
type Result struct {
	Displacements map[string]models.Point
	Moved         []models.Role
}

func newResult(roles ...models.Role) *Result {
	return &Result{
		Displacements: make(map[string]models.Point),
		Moved:         roles,
	}
}

func (r *Result) displace(pointID string, delta models.Point) {
	d := r.Displacements[pointID]
	r.Displacements[pointID] = d.Add(delta)
}

// applyFunc is a pure function from (piece version, resolved anchors,
// centimeter value) to a displacement set. It never mutates the piece.
type applyFunc func(piece *models.PatternPiece, anchors map[models.Role]models.Anchor, op rules.Operation, valueCM float64) (*Result, error)

func outOfBounds(op rules.Operation, valueCM float64, reason string) error {
	return &models.GeometryOutOfBoundsError{
		Operation: string(op),
		ValueCM:   valueCM,
		Reason:    reason,
	}
}

// ============================================================
// Linear extent edits
// ============================================================

// hemShift translates the hem along the panel's length axis. Positive
// deltaCM extends (downward in document space), negative crops.
func hemShift(piece *models.PatternPiece, anchors map[models.Role]models.Anchor, op rules.Operation, valueCM, deltaCM float64) (*Result, error) {
	hem := anchors[models.RoleHemLine]
	seams := anchors[models.RoleSideSeam]
	body := piece.ElementByID(hem.ElementIDs[0])

	d := piece.CMToUnits(deltaCM)
	hemY := -math.MaxFloat64
	for _, id := range hem.PointIDs {
		if y := piece.Point(id).Y; y > hemY {
			hemY = y
		}
	}

	hemSet := make(map[string]struct{}, len(hem.PointIDs))
	for _, id := range hem.PointIDs {
		hemSet[id] = struct{}{}
	}
	underarmY := math.MaxFloat64
	for _, id := range seams.PointIDs {
		if _, onHem := hemSet[id]; onHem {
			continue
		}
		if y := piece.Point(id).Y; y < underarmY {
			underarmY = y
		}
	}

	newHemY := hemY + d
	if newHemY <= underarmY+piece.CMToUnits(minGapCM) {
		return nil, outOfBounds(op, valueCM, "hem would cross the underarm line")
	}
	min, _ := piece.Bounds(body)
	if newHemY-min.Y > piece.CMToUnits(MaxExtentCM) {
		return nil, outOfBounds(op, valueCM, "body length would exceed the maximum extent")
	}

	res := newResult(models.RoleHemLine)
	for _, id := range hem.PointIDs {
		res.displace(id, models.Point{Y: d})
	}
	return res, nil
}

// sleeveShift translates each sleeve's opening edge along that sleeve's
// axis (cap midpoint toward opening midpoint). Positive deltaCM extends.
func sleeveShift(piece *models.PatternPiece, anchors map[models.Role]models.Anchor, op rules.Operation, valueCM, deltaCM float64) (*Result, error) {
	edges := anchors[models.RoleSleeveEdge]
	caps := anchors[models.RoleSleeveCap]

	d := piece.CMToUnits(deltaCM)
	res := newResult(models.RoleSleeveEdge)

	for _, sleeveID := range edges.ElementIDs {
		sleeve := piece.ElementByID(sleeveID)
		edge, ok := segmentFor(sleeve, edges.Segments)
		if !ok {
			continue
		}
		capSeg, ok := segmentFor(sleeve, caps.Segments)
		if !ok {
			return nil, &models.LandmarkNotFoundError{Role: models.RoleSleeveCap, Reason: "sleeve " + sleeveID + " has no welded cap"}
		}

		capMid := midpoint(piece, capSeg)
		edgeMid := midpoint(piece, edge)
		length := edgeMid.Distance(capMid)
		if length+d < piece.CMToUnits(minGapCM) {
			return nil, outOfBounds(op, valueCM, "sleeve length would collapse below the cap")
		}
		if length+d > piece.CMToUnits(MaxExtentCM) {
			return nil, outOfBounds(op, valueCM, "sleeve length would exceed the maximum extent")
		}

		ax, ay := unit(edgeMid.Sub(capMid))
		for _, id := range []string{edge.Start, edge.End} {
			res.displace(id, models.Point{X: ax * d, Y: ay * d})
		}
	}

	return res, nil
}

// ============================================================
// Width / ease edits
// ============================================================

// bodyWidth scales the body's width-edge points about the panel centerline:
// deltaCM/2 per side, preserving bilateral symmetry. Welded sleeve points
// follow through shared-point propagation.
func bodyWidth(piece *models.PatternPiece, anchors map[models.Role]models.Anchor, op rules.Operation, valueCM, deltaCM float64) (*Result, error) {
	edge := anchors[models.RoleBodyWidthEdge]
	body := piece.ElementByID(edge.ElementIDs[0])

	min, max := piece.Bounds(body)
	width := max.X - min.X
	dUnits := piece.CMToUnits(deltaCM)
	if width+dUnits <= 0 {
		return nil, outOfBounds(op, valueCM, "body width would collapse to zero")
	}
	if width+dUnits > piece.CMToUnits(MaxExtentCM) {
		return nil, outOfBounds(op, valueCM, "body width would exceed the maximum extent")
	}

	centerX := (min.X + max.X) / 2
	half := dUnits / 2
	res := newResult(models.RoleBodyWidthEdge)
	for _, id := range edge.PointIDs {
		switch x := piece.Point(id).X; {
		case x > centerX:
			res.displace(id, models.Point{X: half})
		case x < centerX:
			res.displace(id, models.Point{X: -half})
		}
	}
	return res, nil
}

// sleeveWidth spreads sleeve points about the sleeve centerline,
// deltaCM/2 per side. With allFree, every sleeve point not welded to the
// body moves (ease over the whole sleeve); otherwise only the opening edge
// moves.
func sleeveWidth(piece *models.PatternPiece, anchors map[models.Role]models.Anchor, op rules.Operation, valueCM, deltaCM float64, allFree bool) (*Result, error) {
	edges := anchors[models.RoleSleeveEdge]
	caps := anchors[models.RoleSleeveCap]

	welded := make(map[string]struct{})
	for _, id := range caps.PointIDs {
		welded[id] = struct{}{}
	}

	half := piece.CMToUnits(deltaCM) / 2
	res := newResult(models.RoleSleeveEdge)

	for _, sleeveID := range edges.ElementIDs {
		sleeve := piece.ElementByID(sleeveID)
		edge, ok := segmentFor(sleeve, edges.Segments)
		if !ok {
			continue
		}
		capSeg, ok := segmentFor(sleeve, caps.Segments)
		if !ok {
			return nil, &models.LandmarkNotFoundError{Role: models.RoleSleeveCap, Reason: "sleeve " + sleeveID + " has no welded cap"}
		}

		capMid := midpoint(piece, capSeg)
		edgeMid := midpoint(piece, edge)
		ax, ay := unit(edgeMid.Sub(capMid))
		// Perpendicular to the sleeve axis.
		px, py := -ay, ax

		opening := piece.Point(edge.Start).Distance(piece.Point(edge.End))
		if opening+piece.CMToUnits(deltaCM) <= 0 {
			return nil, outOfBounds(op, valueCM, "sleeve opening would collapse to zero")
		}
		if opening+piece.CMToUnits(deltaCM) > piece.CMToUnits(MaxExtentCM) {
			return nil, outOfBounds(op, valueCM, "sleeve opening would exceed the maximum extent")
		}

		targets := []string{edge.Start, edge.End}
		if allFree {
			targets = nil
			for _, id := range sleeve.PointIDs() {
				if _, isWelded := welded[id]; !isWelded {
					targets = append(targets, id)
				}
			}
		}

		for _, id := range targets {
			offset := piece.Point(id).Sub(capMid)
			side := offset.X*px + offset.Y*py
			switch {
			case side > 0:
				res.displace(id, models.Point{X: px * half, Y: py * half})
			case side < 0:
				res.displace(id, models.Point{X: -px * half, Y: -py * half})
			}
		}
	}

	return res, nil
}

// ============================================================
// Curve-depth edits
// ============================================================

// necklineSamples is the resolution used to measure curve depth.
const necklineSamples = 64

// necklineShift re-derives the neckline's control handles so the curve's
// depth changes by deltaCM while its endpoints stay fixed on the shoulder
// seams. Handle offsets are scaled proportionally to the displacement;
// fixed handles under a large displacement would self-intersect the curve.
func necklineShift(piece *models.PatternPiece, anchors map[models.Role]models.Anchor, op rules.Operation, valueCM, deltaCM float64) (*Result, error) {
	neck := anchors[models.RoleNecklineCurve]
	seams := anchors[models.RoleSideSeam]
	seg := neck.Segments[0]

	a := piece.Point(seg.Start)
	b := piece.Point(seg.End)
	c1 := piece.Point(seg.C1)
	c2 := piece.Point(seg.C2)

	chordY := (a.Y + b.Y) / 2
	depth := cubicMaxY(a, c1, c2, b) - chordY
	if depth <= 0 {
		return nil, outOfBounds(op, valueCM, "neckline has no measurable depth")
	}

	d := piece.CMToUnits(deltaCM)
	newDepth := depth + d
	if newDepth <= piece.CMToUnits(minGapCM)/2 {
		return nil, outOfBounds(op, valueCM, "neckline depth would collapse to zero")
	}

	underarmY := math.MaxFloat64
	for _, id := range seams.PointIDs {
		if y := piece.Point(id).Y; y < underarmY {
			underarmY = y
		}
	}
	if chordY+newDepth >= underarmY {
		return nil, outOfBounds(op, valueCM, "neckline would cross the underarm line")
	}

	ratio := newDepth / depth
	res := newResult(models.RoleNecklineCurve)
	res.displace(seg.C1, models.Point{Y: (c1.Y - chordY) * (ratio - 1)})
	res.displace(seg.C2, models.Point{Y: (c2.Y - chordY) * (ratio - 1)})
	return res, nil
}

// cubicMaxY samples the curve for its lowest (greatest Y) extent.
func cubicMaxY(a, c1, c2, b models.Point) float64 {
	maxY := math.Max(a.Y, b.Y)
	for i := 1; i < necklineSamples; i++ {
		t := float64(i) / necklineSamples
		maxY = math.Max(maxY, CubicAt(a, c1, c2, b, t).Y)
	}
	return maxY
}

// CubicAt evaluates a cubic bezier at parameter t.
func CubicAt(a, c1, c2, b models.Point, t float64) models.Point {
	u := 1 - t
	w0 := u * u * u
	w1 := 3 * u * u * t
	w2 := 3 * u * t * t
	w3 := t * t * t
	return models.Point{
		X: w0*a.X + w1*c1.X + w2*c2.X + w3*b.X,
		Y: w0*a.Y + w1*c1.Y + w2*c2.Y + w3*b.Y,
	}
}

// ============================================================
// Helpers
// ============================================================

func midpoint(piece *models.PatternPiece, seg models.Segment) models.Point {
	a, b := piece.Point(seg.Start), piece.Point(seg.End)
	return models.Point{X: (a.X + b.X) / 2, Y: (a.Y + b.Y) / 2}
}

func unit(v models.Point) (float64, float64) {
	length := math.Sqrt(v.X*v.X + v.Y*v.Y)
	if length == 0 {
		return 0, 0
	}
	return v.X / length, v.Y / length
}

// segmentFor returns the segment from candidates whose endpoints both
// belong to the element.
func segmentFor(e *models.Element, candidates []models.Segment) (models.Segment, bool) {
	for _, seg := range candidates {
		if e.References(seg.Start) && e.References(seg.End) {
			return seg, true
		}
	}
	return models.Segment{}, false
}
