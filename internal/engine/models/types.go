package models

import "math"

// ============================================================
// Geometry primitives
// ============================================================

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (p Point) Add(q Point) Point {
	return Point{X: p.X + q.X, Y: p.Y + q.Y}
}

func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y}
}

func (p Point) Distance(q Point) float64 {
	dx := p.X - q.X
	dy := p.Y - q.Y
	return math.Sqrt(dx*dx + dy*dy)
}

func (p Point) Finite() bool {
	return !math.IsNaN(p.X) && !math.IsInf(p.X, 0) &&
		!math.IsNaN(p.Y) && !math.IsInf(p.Y, 0)
}

// ============================================================
// Segments
// ============================================================

type SegmentKind int

const (
	SegmentLine SegmentKind = iota
	SegmentCubic
)

// Segment references points by stable ID, never by coordinate. Control IDs
// are set only for cubic segments.
type Segment struct {
	Kind  SegmentKind
	Start string
	End   string
	C1    string
	C2    string
}

// PointIDs returns the segment's point IDs, on-curve endpoints first.
func (s Segment) PointIDs() []string {
	if s.Kind == SegmentCubic {
		return []string{s.Start, s.End, s.C1, s.C2}
	}
	return []string{s.Start, s.End}
}

// ============================================================
// Elements
// ============================================================

// PanelKind is the semantic classification of a drawable element, derived
// from its id naming convention.
type PanelKind string

const (
	PanelBody    PanelKind = "body"
	PanelSleeve  PanelKind = "sleeve"
	PanelUnknown PanelKind = ""
)

// Element is one drawable path: an ordered chain of segments over the
// piece's point table.
type Element struct {
	ID       string
	Panel    PanelKind
	Segments []Segment
	Closed   bool
}

// PointIDs returns every point ID the element references, deduplicated, in
// segment order.
func (e *Element) PointIDs() []string {
	seen := make(map[string]struct{})
	var ids []string
	for _, seg := range e.Segments {
		for _, id := range seg.PointIDs() {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	return ids
}

// References reports whether the element uses the given point ID.
func (e *Element) References(pointID string) bool {
	for _, seg := range e.Segments {
		for _, id := range seg.PointIDs() {
			if id == pointID {
				return true
			}
		}
	}
	return false
}

// ============================================================
// Pattern piece
// ============================================================

// PatternPiece is the root entity: drawable elements in document order over
// a shared point table. Coincident on-curve points share one ID, so seam
// propagation works by identity. A piece is immutable per pipeline version;
// transforms operate on a Clone.
type PatternPiece struct {
	Width    float64
	Height   float64
	HeightCM float64

	// UnitScale is user units per centimeter, fixed for the piece's lifetime.
	UnitScale float64

	Points   map[string]Point
	Elements []*Element
}

// Point returns the coordinates for a point ID.
func (p *PatternPiece) Point(id string) Point {
	return p.Points[id]
}

// ElementByID returns the element with the given id, or nil.
func (p *PatternPiece) ElementByID(id string) *Element {
	for _, e := range p.Elements {
		if e.ID == id {
			return e
		}
	}
	return nil
}

// CMToUnits converts centimeters to user units at the piece's scale.
func (p *PatternPiece) CMToUnits(cm float64) float64 {
	return cm * p.UnitScale
}

// Bounds returns the min/max corners over the element's points.
func (p *PatternPiece) Bounds(e *Element) (Point, Point) {
	min := Point{X: math.MaxFloat64, Y: math.MaxFloat64}
	max := Point{X: -math.MaxFloat64, Y: -math.MaxFloat64}
	for _, id := range e.PointIDs() {
		pt := p.Points[id]
		if pt.X < min.X {
			min.X = pt.X
		}
		if pt.X > max.X {
			max.X = pt.X
		}
		if pt.Y < min.Y {
			min.Y = pt.Y
		}
		if pt.Y > max.Y {
			max.Y = pt.Y
		}
	}
	return min, max
}

// Clone deep-copies the piece. Point IDs are preserved, so anchors resolved
// against one version remain valid against the next.
func (p *PatternPiece) Clone() *PatternPiece {
	cp := &PatternPiece{
		Width:     p.Width,
		Height:    p.Height,
		HeightCM:  p.HeightCM,
		UnitScale: p.UnitScale,
		Points:    make(map[string]Point, len(p.Points)),
		Elements:  make([]*Element, 0, len(p.Elements)),
	}
	for id, pt := range p.Points {
		cp.Points[id] = pt
	}
	for _, e := range p.Elements {
		ce := &Element{
			ID:       e.ID,
			Panel:    e.Panel,
			Segments: append([]Segment(nil), e.Segments...),
			Closed:   e.Closed,
		}
		cp.Elements = append(cp.Elements, ce)
	}
	return cp
}

// ============================================================
// Anchors
// ============================================================

// Role is a semantic landmark role. The set is closed; every supported
// operation names its required roles from this set.
type Role string

const (
	RoleHemLine       Role = "hem_line"
	RoleSideSeam      Role = "side_seam"
	RoleSleeveEdge    Role = "sleeve_edge"
	RoleSleeveCap     Role = "sleeve_cap"
	RoleNecklineCurve Role = "neckline_curve"
	RoleShoulderPoint Role = "shoulder_point"
	RoleBodyWidthEdge Role = "body_width_edge"
)

// Anchor is a resolved landmark: the point set a transform attaches to.
// Anchors are derived per piece version, never stored.
type Anchor struct {
	Name       string
	Role       Role
	PointIDs   []string
	ElementIDs []string

	// Segments carries the landmark's segments for transforms that need
	// curve structure (neckline handles, sleeve axes).
	Segments []Segment
}
