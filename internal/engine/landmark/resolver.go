package landmark

import (
	"math"
	"sort"

	"cutmind/internal/engine/models"
)

// ============================================================
// Role detection constants
// ============================================================

const (
	// slopeRatio bounds "nearly horizontal" / "nearly vertical": a segment
	// counts when the off-axis delta is at most this fraction of the
	// on-axis delta.
	slopeRatio = 0.30

	// extentEpsilon groups points onto a shared extreme coordinate.
	extentEpsilon = 0.5

	// ambiguityEpsilon separates two competing candidates for a role that
	// must resolve uniquely.
	ambiguityEpsilon = 1e-6
)

// ============================================================
// Resolver
// ============================================================

// Resolve derives the anchor for every role the piece's topology supports.
// Roles that cannot be resolved are absent from the result; the dispatcher
// rejects an operation whose required roles are missing. Applying a
// transform to the wrong geometry is a worse failure than refusing the
// edit, so detection never falls back to a guess.
func Resolve(piece *models.PatternPiece) map[models.Role]models.Anchor {
	anchors := make(map[models.Role]models.Anchor)

	body := singleBodyPanel(piece)
	if body != nil {
		if hem, ok := resolveHem(piece, body); ok {
			anchors[models.RoleHemLine] = hem

			if seam, ok := resolveSideSeams(piece, body, hem); ok {
				anchors[models.RoleSideSeam] = seam
			}
		}
		if neck, ok := resolveNeckline(piece, body); ok {
			anchors[models.RoleNecklineCurve] = neck
		}
		if shoulder, ok := resolveShoulderPoints(piece, body); ok {
			anchors[models.RoleShoulderPoint] = shoulder
		}
		if width, ok := resolveBodyWidthEdge(piece, body); ok {
			anchors[models.RoleBodyWidthEdge] = width
		}
	}

	sleeves := sleevePanels(piece)
	if body != nil && len(sleeves) > 0 {
		caps := resolveSleeveCaps(body, sleeves)
		if len(caps.PointIDs) > 0 {
			anchors[models.RoleSleeveCap] = caps
		}
		if edge, ok := resolveSleeveEdges(piece, sleeves, caps); ok {
			anchors[models.RoleSleeveEdge] = edge
		}
	}

	return anchors
}

// Require checks that every role in want resolved, returning the first
// missing role as a LandmarkNotFoundError.
func Require(anchors map[models.Role]models.Anchor, want ...models.Role) error {
	for _, role := range want {
		if _, ok := anchors[role]; !ok {
			return &models.LandmarkNotFoundError{Role: role}
		}
	}
	return nil
}

// ============================================================
// Panels
// ============================================================

func singleBodyPanel(piece *models.PatternPiece) *models.Element {
	var body *models.Element
	for _, e := range piece.Elements {
		if e.Panel != models.PanelBody {
			continue
		}
		if body != nil {
			// Two body panels: every body role would be ambiguous.
			return nil
		}
		body = e
	}
	return body
}

func sleevePanels(piece *models.PatternPiece) []*models.Element {
	var sleeves []*models.Element
	for _, e := range piece.Elements {
		if e.Panel == models.PanelSleeve {
			sleeves = append(sleeves, e)
		}
	}
	return sleeves
}

// ============================================================
// Body roles
// ============================================================

// resolveHem finds the lowest-extent nearly-horizontal segment of the body
// panel. SVG Y grows downward, so lowest extent means greatest Y.
func resolveHem(piece *models.PatternPiece, body *models.Element) (models.Anchor, bool) {
	bestY := -math.MaxFloat64
	var best *models.Segment
	ambiguous := false

	for i := range body.Segments {
		seg := body.Segments[i]
		if seg.Kind != models.SegmentLine {
			continue
		}
		a, b := piece.Point(seg.Start), piece.Point(seg.End)
		if !nearlyHorizontal(a, b) {
			continue
		}
		midY := (a.Y + b.Y) / 2
		switch {
		case midY > bestY+ambiguityEpsilon:
			bestY = midY
			best = &body.Segments[i]
			ambiguous = false
		case math.Abs(midY-bestY) <= ambiguityEpsilon:
			ambiguous = true
		}
	}

	if best == nil || ambiguous {
		return models.Anchor{}, false
	}

	return models.Anchor{
		Name:       "hem",
		Role:       models.RoleHemLine,
		PointIDs:   []string{best.Start, best.End},
		ElementIDs: []string{body.ID},
		Segments:   []models.Segment{*best},
	}, true
}

// resolveSideSeams finds the vertical-ish body segments that share an
// endpoint with the hem. Both sides form one anchor (bilateral point set).
func resolveSideSeams(piece *models.PatternPiece, body *models.Element, hem models.Anchor) (models.Anchor, bool) {
	hemPoints := make(map[string]struct{}, len(hem.PointIDs))
	for _, id := range hem.PointIDs {
		hemPoints[id] = struct{}{}
	}

	anchor := models.Anchor{
		Name:       "side seams",
		Role:       models.RoleSideSeam,
		ElementIDs: []string{body.ID},
	}
	seen := make(map[string]struct{})

	for _, seg := range body.Segments {
		if seg.Kind != models.SegmentLine {
			continue
		}
		a, b := piece.Point(seg.Start), piece.Point(seg.End)
		if !nearlyVertical(a, b) {
			continue
		}
		_, startOnHem := hemPoints[seg.Start]
		_, endOnHem := hemPoints[seg.End]
		if !startOnHem && !endOnHem {
			continue
		}
		anchor.Segments = append(anchor.Segments, seg)
		for _, id := range seg.PointIDs() {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			anchor.PointIDs = append(anchor.PointIDs, id)
		}
	}

	if len(anchor.Segments) == 0 {
		return models.Anchor{}, false
	}
	return anchor, true
}

// resolveNeckline picks the topmost cubic segment of the body panel.
func resolveNeckline(piece *models.PatternPiece, body *models.Element) (models.Anchor, bool) {
	bestY := math.MaxFloat64
	var best *models.Segment
	ambiguous := false

	for i := range body.Segments {
		seg := body.Segments[i]
		if seg.Kind != models.SegmentCubic {
			continue
		}
		a, b := piece.Point(seg.Start), piece.Point(seg.End)
		chordY := (a.Y + b.Y) / 2
		switch {
		case chordY < bestY-ambiguityEpsilon:
			bestY = chordY
			best = &body.Segments[i]
			ambiguous = false
		case math.Abs(chordY-bestY) <= ambiguityEpsilon:
			ambiguous = true
		}
	}

	if best == nil || ambiguous {
		return models.Anchor{}, false
	}

	return models.Anchor{
		Name:       "neckline",
		Role:       models.RoleNecklineCurve,
		PointIDs:   []string{best.Start, best.End, best.C1, best.C2},
		ElementIDs: []string{body.ID},
		Segments:   []models.Segment{*best},
	}, true
}

// resolveShoulderPoints finds the outermost points of the body's top edge.
func resolveShoulderPoints(piece *models.PatternPiece, body *models.Element) (models.Anchor, bool) {
	ids := onCurvePointIDs(body)
	if len(ids) == 0 {
		return models.Anchor{}, false
	}

	topY := math.MaxFloat64
	for _, id := range ids {
		if y := piece.Point(id).Y; y < topY {
			topY = y
		}
	}

	var top []string
	for _, id := range ids {
		if piece.Point(id).Y <= topY+extentEpsilon {
			top = append(top, id)
		}
	}
	if len(top) < 2 {
		return models.Anchor{}, false
	}

	sort.Slice(top, func(i, j int) bool {
		return piece.Point(top[i]).X < piece.Point(top[j]).X
	})

	return models.Anchor{
		Name:       "shoulder points",
		Role:       models.RoleShoulderPoint,
		PointIDs:   []string{top[0], top[len(top)-1]},
		ElementIDs: []string{body.ID},
	}, true
}

// resolveBodyWidthEdge collects every on-curve body point on the panel's
// extreme left or right X. Width edits displace this set bilaterally.
func resolveBodyWidthEdge(piece *models.PatternPiece, body *models.Element) (models.Anchor, bool) {
	min, max := piece.Bounds(body)

	anchor := models.Anchor{
		Name:       "body width edges",
		Role:       models.RoleBodyWidthEdge,
		ElementIDs: []string{body.ID},
	}
	for _, id := range onCurvePointIDs(body) {
		x := piece.Point(id).X
		if x <= min.X+extentEpsilon || x >= max.X-extentEpsilon {
			anchor.PointIDs = append(anchor.PointIDs, id)
		}
	}

	if len(anchor.PointIDs) < 2 {
		return models.Anchor{}, false
	}
	return anchor, true
}

// ============================================================
// Sleeve roles
// ============================================================

// resolveSleeveCaps finds, per sleeve, the segments welded to the body by
// shared-point identity. Coordinate proximity is deliberately not used:
// after repeated transforms it is unreliable.
func resolveSleeveCaps(body *models.Element, sleeves []*models.Element) models.Anchor {
	bodyPoints := make(map[string]struct{})
	for _, id := range body.PointIDs() {
		bodyPoints[id] = struct{}{}
	}

	anchor := models.Anchor{
		Name: "sleeve caps",
		Role: models.RoleSleeveCap,
	}
	seen := make(map[string]struct{})

	for _, sleeve := range sleeves {
		found := false
		for _, seg := range sleeve.Segments {
			_, startShared := bodyPoints[seg.Start]
			_, endShared := bodyPoints[seg.End]
			if !startShared || !endShared {
				continue
			}
			found = true
			anchor.Segments = append(anchor.Segments, seg)
			for _, id := range []string{seg.Start, seg.End} {
				if _, ok := seen[id]; ok {
					continue
				}
				seen[id] = struct{}{}
				anchor.PointIDs = append(anchor.PointIDs, id)
			}
		}
		if found {
			anchor.ElementIDs = append(anchor.ElementIDs, sleeve.ID)
		}
	}

	return anchor
}

// resolveSleeveEdges picks, per sleeve, the segment farthest from that
// sleeve's cap: the opening edge at the free end.
func resolveSleeveEdges(piece *models.PatternPiece, sleeves []*models.Element, caps models.Anchor) (models.Anchor, bool) {
	capMid := make(map[string]models.Point)
	for _, sleeve := range sleeves {
		for _, seg := range caps.Segments {
			if sleeve.References(seg.Start) && sleeve.References(seg.End) {
				a, b := piece.Point(seg.Start), piece.Point(seg.End)
				capMid[sleeve.ID] = models.Point{X: (a.X + b.X) / 2, Y: (a.Y + b.Y) / 2}
				break
			}
		}
	}

	anchor := models.Anchor{
		Name: "sleeve edges",
		Role: models.RoleSleeveEdge,
	}
	seen := make(map[string]struct{})

	for _, sleeve := range sleeves {
		mid, ok := capMid[sleeve.ID]
		if !ok {
			continue
		}

		bestDist := -1.0
		var best *models.Segment
		for i := range sleeve.Segments {
			seg := sleeve.Segments[i]
			a, b := piece.Point(seg.Start), piece.Point(seg.End)
			segMid := models.Point{X: (a.X + b.X) / 2, Y: (a.Y + b.Y) / 2}
			if d := segMid.Distance(mid); d > bestDist {
				bestDist = d
				best = &sleeve.Segments[i]
			}
		}
		if best == nil {
			continue
		}

		anchor.ElementIDs = append(anchor.ElementIDs, sleeve.ID)
		anchor.Segments = append(anchor.Segments, *best)
		for _, id := range []string{best.Start, best.End} {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			anchor.PointIDs = append(anchor.PointIDs, id)
		}
	}

	if len(anchor.PointIDs) == 0 {
		return models.Anchor{}, false
	}
	return anchor, true
}

// ============================================================
// Helpers
// ============================================================

func nearlyHorizontal(a, b models.Point) bool {
	return math.Abs(b.Y-a.Y) <= slopeRatio*math.Abs(b.X-a.X)
}

func nearlyVertical(a, b models.Point) bool {
	return math.Abs(b.X-a.X) <= slopeRatio*math.Abs(b.Y-a.Y)
}

func onCurvePointIDs(e *models.Element) []string {
	seen := make(map[string]struct{})
	var ids []string
	for _, seg := range e.Segments {
		for _, id := range []string{seg.Start, seg.End} {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	return ids
}
