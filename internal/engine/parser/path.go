package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"cutmind/internal/engine/models"
)

// ============================================================
// Point table
// ============================================================

// weldPrecision matches the serializer's coordinate precision, so welds
// survive a serialize/parse round trip.
const weldPrecision = 3

// pointTable assigns stable IDs to parsed points. On-curve endpoints at the
// same (rounded) coordinates are welded to one ID across all elements;
// control points always get a fresh ID so a handle is never fused to an
// unrelated anchor point.
type pointTable struct {
	points map[string]models.Point
	byKey  map[string]string
}

func newPointTable(points map[string]models.Point) *pointTable {
	return &pointTable{
		points: points,
		byKey:  make(map[string]string),
	}
}

func weldKey(p models.Point) string {
	return strconv.FormatFloat(p.X, 'f', weldPrecision, 64) + "|" +
		strconv.FormatFloat(p.Y, 'f', weldPrecision, 64)
}

func (t *pointTable) anchorID(p models.Point) string {
	key := weldKey(p)
	if id, ok := t.byKey[key]; ok {
		return id
	}
	id := uuid.NewString()
	t.byKey[key] = id
	t.points[id] = p
	return id
}

func (t *pointTable) controlID(p models.Point) string {
	id := uuid.NewString()
	t.points[id] = p
	return id
}

// ============================================================
// Path data parser
// ============================================================

var commandRe = regexp.MustCompile(`([MmLlHhVvCcZz])([^MmLlHhVvCcZz]*)`)

// parsePathData parses a path's d attribute into a segment chain over the
// point table. Supported commands: M, L, H, V, C, Z and their relative
// forms. A single subpath per path is required for a pattern piece.
func parsePathData(elemID, d string, table *pointTable) ([]models.Segment, bool, error) {
	d = strings.TrimSpace(d)
	if d == "" {
		return nil, false, &models.MalformedGeometryError{Reason: fmt.Sprintf("element %s has empty path data", elemID)}
	}

	matched := commandRe.FindAllStringSubmatch(d, -1)
	if joined := strings.Join(flattenMatches(matched), ""); strings.TrimSpace(joined) != strings.TrimSpace(d) {
		return nil, false, &models.MalformedGeometryError{Reason: fmt.Sprintf("element %s has unrecognized path data", elemID)}
	}

	var (
		segments  []models.Segment
		closed    bool
		current   models.Point
		currentID string
		start     models.Point
		startID   string
		started   bool
	)

	appendLine := func(to models.Point) {
		toID := table.anchorID(to)
		if toID == currentID {
			return
		}
		segments = append(segments, models.Segment{
			Kind:  models.SegmentLine,
			Start: currentID,
			End:   toID,
		})
		current, currentID = to, toID
	}

	for _, match := range matched {
		cmd := match[1]
		coords, err := parseCoords(match[2])
		if err != nil {
			return nil, false, &models.MalformedGeometryError{Reason: fmt.Sprintf("element %s: %v", elemID, err)}
		}

		if !started && cmd != "M" && cmd != "m" {
			return nil, false, &models.MalformedGeometryError{Reason: fmt.Sprintf("element %s path must start with a move command", elemID)}
		}

		switch cmd {
		case "M", "m":
			if started {
				return nil, false, &models.MalformedGeometryError{Reason: fmt.Sprintf("element %s has multiple subpaths", elemID)}
			}
			if len(coords) != 2 {
				return nil, false, unbalanced(elemID, cmd, 2, len(coords))
			}
			current = models.Point{X: coords[0], Y: coords[1]}
			if !current.Finite() {
				return nil, false, nonFinite(elemID)
			}
			currentID = table.anchorID(current)
			start, startID = current, currentID
			started = true

		case "L", "l":
			if len(coords) == 0 || len(coords)%2 != 0 {
				return nil, false, unbalanced(elemID, cmd, 2, len(coords))
			}
			for i := 0; i < len(coords); i += 2 {
				to := models.Point{X: coords[i], Y: coords[i+1]}
				if cmd == "l" {
					to = current.Add(to)
				}
				if !to.Finite() {
					return nil, false, nonFinite(elemID)
				}
				appendLine(to)
			}

		case "H", "h":
			if len(coords) == 0 {
				return nil, false, unbalanced(elemID, cmd, 1, len(coords))
			}
			for _, x := range coords {
				to := models.Point{X: x, Y: current.Y}
				if cmd == "h" {
					to.X = current.X + x
				}
				if !to.Finite() {
					return nil, false, nonFinite(elemID)
				}
				appendLine(to)
			}

		case "V", "v":
			if len(coords) == 0 {
				return nil, false, unbalanced(elemID, cmd, 1, len(coords))
			}
			for _, y := range coords {
				to := models.Point{X: current.X, Y: y}
				if cmd == "v" {
					to.Y = current.Y + y
				}
				if !to.Finite() {
					return nil, false, nonFinite(elemID)
				}
				appendLine(to)
			}

		case "C", "c":
			if len(coords) == 0 || len(coords)%6 != 0 {
				return nil, false, unbalanced(elemID, cmd, 6, len(coords))
			}
			for i := 0; i < len(coords); i += 6 {
				c1 := models.Point{X: coords[i], Y: coords[i+1]}
				c2 := models.Point{X: coords[i+2], Y: coords[i+3]}
				to := models.Point{X: coords[i+4], Y: coords[i+5]}
				if cmd == "c" {
					c1 = current.Add(c1)
					c2 = current.Add(c2)
					to = current.Add(to)
				}
				if !c1.Finite() || !c2.Finite() || !to.Finite() {
					return nil, false, nonFinite(elemID)
				}
				toID := table.anchorID(to)
				segments = append(segments, models.Segment{
					Kind:  models.SegmentCubic,
					Start: currentID,
					End:   toID,
					C1:    table.controlID(c1),
					C2:    table.controlID(c2),
				})
				current, currentID = to, toID
			}

		case "Z", "z":
			if currentID != startID {
				segments = append(segments, models.Segment{
					Kind:  models.SegmentLine,
					Start: currentID,
					End:   startID,
				})
				current, currentID = start, startID
			}
			closed = true
		}
	}

	if len(segments) == 0 {
		return nil, false, &models.MalformedGeometryError{Reason: fmt.Sprintf("element %s has no drawable segments", elemID)}
	}

	return segments, closed, nil
}

// ============================================================
// Helpers
// ============================================================

func parseCoords(s string) ([]float64, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", " "))
	if s == "" {
		return nil, nil
	}

	parts := strings.Fields(s)
	coords := make([]float64, 0, len(parts))
	for _, part := range parts {
		val, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid coordinate %q", part)
		}
		coords = append(coords, val)
	}
	return coords, nil
}

func flattenMatches(matches [][]string) []string {
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m[0])
	}
	return out
}

func unbalanced(elemID, cmd string, want, got int) error {
	return &models.MalformedGeometryError{
		Reason: fmt.Sprintf("element %s: command %s expects multiples of %d coordinates, got %d", elemID, cmd, want, got),
	}
}

func nonFinite(elemID string) error {
	return &models.MalformedGeometryError{Reason: fmt.Sprintf("element %s has non-finite coordinates", elemID)}
}
