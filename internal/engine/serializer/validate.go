package serializer

import (
	"fmt"
	"math"

	"cutmind/internal/engine/models"
)

// ============================================================
// Invariant Validator
// ============================================================

const (
	// sanityBound is the generous coordinate bounding box, in multiples of
	// the document size.
	sanityBound = 10.0

	// flattenSteps subdivides a cubic for intersection testing.
	flattenSteps = 16
)

// Validate runs the post-application sanity checks: segment chains stay
// connected, closed paths stay closed, all coordinates are finite and
// inside the sanity box, and no path self-intersects. Any violation means
// the entire rule list is rejected as a unit.
func Validate(piece *models.PatternPiece) error {
	limitX := piece.Width * sanityBound
	limitY := piece.Height * sanityBound

	for _, e := range piece.Elements {
		if err := validateChain(piece, e); err != nil {
			return err
		}
		for _, id := range e.PointIDs() {
			p := piece.Point(id)
			if !p.Finite() {
				return &models.InvariantViolationError{ElementID: e.ID, Reason: "non-finite coordinate"}
			}
			if math.Abs(p.X) > limitX || math.Abs(p.Y) > limitY {
				return &models.InvariantViolationError{
					ElementID: e.ID,
					Reason:    fmt.Sprintf("coordinate (%g, %g) outside sanity bounds", p.X, p.Y),
				}
			}
		}
		if err := validateNoSelfIntersection(piece, e); err != nil {
			return err
		}
	}

	return nil
}

// validateChain checks segment connectivity by point identity: each
// segment starts where the previous one ends, and a closed path ends where
// it began.
func validateChain(piece *models.PatternPiece, e *models.Element) error {
	if len(e.Segments) == 0 {
		return &models.InvariantViolationError{ElementID: e.ID, Reason: "element has no segments"}
	}

	for i := 1; i < len(e.Segments); i++ {
		if e.Segments[i].Start != e.Segments[i-1].End {
			return &models.InvariantViolationError{ElementID: e.ID, Reason: "segment chain is broken"}
		}
	}

	if e.Closed {
		first := e.Segments[0]
		last := e.Segments[len(e.Segments)-1]
		if last.End != first.Start {
			return &models.InvariantViolationError{ElementID: e.ID, Reason: "closed path does not return to its start"}
		}
	}

	return nil
}

// ============================================================
// Self-intersection
// ============================================================

type flatSegment struct {
	a, b models.Point
	// origin indexes the source segment; sub is the position within its
	// flattened run (0 for lines).
	origin int
	sub    int
}

// validateNoSelfIntersection flattens the element and tests every
// non-adjacent segment pair for a proper crossing. Within one cubic's
// flattened run only consecutive subsegments are skipped, so a curve that
// loops over itself is still caught.
func validateNoSelfIntersection(piece *models.PatternPiece, e *models.Element) error {
	flat := flatten(piece, e)
	n := len(e.Segments)

	for i := 0; i < len(flat); i++ {
		for j := i + 1; j < len(flat); j++ {
			a, b := flat[i], flat[j]
			if a.origin == b.origin {
				if b.sub-a.sub <= 1 {
					continue
				}
			} else if adjacentSegments(a.origin, b.origin, n, e.Closed) {
				// Neighbors in the source chain legitimately share an
				// endpoint.
				continue
			}
			if segmentsCross(a.a, a.b, b.a, b.b) {
				return &models.InvariantViolationError{ElementID: e.ID, Reason: "path self-intersects"}
			}
		}
	}

	return nil
}

func flatten(piece *models.PatternPiece, e *models.Element) []flatSegment {
	var out []flatSegment
	for i, seg := range e.Segments {
		a := piece.Point(seg.Start)
		b := piece.Point(seg.End)
		if seg.Kind == models.SegmentLine {
			out = append(out, flatSegment{a: a, b: b, origin: i})
			continue
		}
		c1 := piece.Point(seg.C1)
		c2 := piece.Point(seg.C2)
		prev := a
		for s := 1; s <= flattenSteps; s++ {
			t := float64(s) / flattenSteps
			next := cubicAt(a, c1, c2, b, t)
			out = append(out, flatSegment{a: prev, b: next, origin: i, sub: s - 1})
			prev = next
		}
	}
	return out
}

func cubicAt(a, c1, c2, b models.Point, t float64) models.Point {
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

func adjacentSegments(i, j, n int, closed bool) bool {
	if i > j {
		i, j = j, i
	}
	if j == i+1 {
		return true
	}
	return closed && i == 0 && j == n-1
}

// segmentsCross reports a proper crossing between two segments. Touching
// endpoints do not count; shared seam points are legitimate.
func segmentsCross(p1, p2, q1, q2 models.Point) bool {
	d1 := orient(q1, q2, p1)
	d2 := orient(q1, q2, p2)
	d3 := orient(p1, p2, q1)
	d4 := orient(p1, p2, q2)

	return ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0))
}

func orient(a, b, c models.Point) float64 {
	return (b.X-a.X)*(c.Y-a.Y) - (b.Y-a.Y)*(c.X-a.X)
}
