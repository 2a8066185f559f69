package serializer

import (
	"strconv"
	"strings"

	"cutmind/internal/engine/models"
)

// ============================================================
// Canonical Serializer
// ============================================================

// coordPrecision is the fixed decimal precision of emitted coordinates.
// It matches the parser's weld precision, making serialize(parse(s))
// idempotent and the engine's output byte-for-byte reproducible.
const coordPrecision = 3

// Serialize emits the piece as a canonical vector document: fixed decimal
// precision, document element order, fixed attribute order.
func Serialize(piece *models.PatternPiece) string {
	var b strings.Builder

	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	b.WriteString(`<svg xmlns="http://www.w3.org/2000/svg" width="`)
	b.WriteString(formatCoord(piece.Width))
	b.WriteString(`" height="`)
	b.WriteString(formatCoord(piece.Height))
	b.WriteString(`" viewBox="0 0 `)
	b.WriteString(formatCoord(piece.Width))
	b.WriteString(" ")
	b.WriteString(formatCoord(piece.Height))
	b.WriteString(`" data-height-cm="`)
	b.WriteString(formatCoord(piece.HeightCM))
	b.WriteString(`">` + "\n")

	for _, e := range piece.Elements {
		b.WriteString(`  <path id="`)
		b.WriteString(e.ID)
		b.WriteString(`" d="`)
		b.WriteString(pathData(piece, e))
		b.WriteString(`" fill="none" stroke="#000" />` + "\n")
	}

	b.WriteString(`</svg>`)
	return b.String()
}

func pathData(piece *models.PatternPiece, e *models.Element) string {
	var b strings.Builder

	start := piece.Point(e.Segments[0].Start)
	b.WriteString("M ")
	writePoint(&b, start)

	last := len(e.Segments) - 1
	for i, seg := range e.Segments {
		// The closing line is implied by Z.
		if e.Closed && i == last && seg.Kind == models.SegmentLine && seg.End == e.Segments[0].Start {
			break
		}
		switch seg.Kind {
		case models.SegmentLine:
			b.WriteString(" L ")
			writePoint(&b, piece.Point(seg.End))
		case models.SegmentCubic:
			b.WriteString(" C ")
			writePoint(&b, piece.Point(seg.C1))
			b.WriteString(" ")
			writePoint(&b, piece.Point(seg.C2))
			b.WriteString(" ")
			writePoint(&b, piece.Point(seg.End))
		}
	}

	if e.Closed {
		b.WriteString(" Z")
	}
	return b.String()
}

func writePoint(b *strings.Builder, p models.Point) {
	b.WriteString(formatCoord(p.X))
	b.WriteString(" ")
	b.WriteString(formatCoord(p.Y))
}

func formatCoord(v float64) string {
	// Normalize negative zero so output is stable.
	if v == 0 {
		v = 0
	}
	return strconv.FormatFloat(v, 'f', coordPrecision, 64)
}
