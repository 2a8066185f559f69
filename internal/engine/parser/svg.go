package parser

import (
	"encoding/xml"
	"strconv"
	"strings"

	"cutmind/internal/engine/models"
)

// ============================================================
// XML Structures
// ============================================================

type svgDoc struct {
	XMLName  xml.Name  `xml:"svg"`
	Width    string    `xml:"width,attr"`
	Height   string    `xml:"height,attr"`
	ViewBox  string    `xml:"viewBox,attr"`
	HeightCM string    `xml:"data-height-cm,attr"`
	Paths    []svgPath `xml:"path"`
}

type svgPath struct {
	ID string `xml:"id,attr"`
	D  string `xml:"d,attr"`
}

// ============================================================
// Parser
// ============================================================

// Parse reads a pattern piece document into the geometry model. Coincident
// on-curve endpoints are welded to a single point ID so downstream seam
// propagation works by identity instead of coordinate comparison.
func Parse(raw string) (*models.PatternPiece, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, &models.MalformedGeometryError{Reason: "empty document"}
	}

	var doc svgDoc
	if err := xml.NewDecoder(strings.NewReader(raw)).Decode(&doc); err != nil {
		return nil, &models.MalformedGeometryError{Reason: "invalid XML: " + err.Error()}
	}

	if len(doc.Paths) == 0 {
		return nil, &models.MalformedGeometryError{Reason: "document contains no paths"}
	}

	width, height, err := parseViewBox(doc.ViewBox, doc.Width, doc.Height)
	if err != nil {
		return nil, err
	}

	heightCM, err := parseHeightCM(doc.HeightCM)
	if err != nil {
		return nil, err
	}

	piece := &models.PatternPiece{
		Width:     width,
		Height:    height,
		HeightCM:  heightCM,
		UnitScale: height / heightCM,
		Points:    make(map[string]models.Point),
	}

	table := newPointTable(piece.Points)

	for _, path := range doc.Paths {
		elem, err := parseElement(path, table)
		if err != nil {
			return nil, err
		}
		piece.Elements = append(piece.Elements, elem)
	}

	return piece, nil
}

func parseElement(path svgPath, table *pointTable) (*models.Element, error) {
	segments, closed, err := parsePathData(path.ID, path.D, table)
	if err != nil {
		return nil, err
	}

	return &models.Element{
		ID:       path.ID,
		Panel:    classifyPanel(path.ID),
		Segments: segments,
		Closed:   closed,
	}, nil
}

// classifyPanel maps an element id naming convention onto a panel kind.
func classifyPanel(id string) models.PanelKind {
	switch {
	case strings.HasPrefix(id, "Body_"):
		return models.PanelBody
	case strings.HasPrefix(id, "Sleeve_"):
		return models.PanelSleeve
	}
	return models.PanelUnknown
}

// ============================================================
// Document attributes
// ============================================================

func parseViewBox(viewBox, widthAttr, heightAttr string) (float64, float64, error) {
	if viewBox != "" {
		fields := strings.Fields(strings.ReplaceAll(viewBox, ",", " "))
		if len(fields) != 4 {
			return 0, 0, &models.MalformedGeometryError{Reason: "viewBox must have four values"}
		}
		w, errW := strconv.ParseFloat(fields[2], 64)
		h, errH := strconv.ParseFloat(fields[3], 64)
		if errW != nil || errH != nil || w <= 0 || h <= 0 {
			return 0, 0, &models.MalformedGeometryError{Reason: "viewBox size must be positive"}
		}
		return w, h, nil
	}

	w, errW := strconv.ParseFloat(widthAttr, 64)
	h, errH := strconv.ParseFloat(heightAttr, 64)
	if errW != nil || errH != nil || w <= 0 || h <= 0 {
		return 0, 0, &models.MalformedGeometryError{Reason: "document has no usable viewBox or width/height"}
	}
	return w, h, nil
}

// parseHeightCM reads the piece's declared physical reference measurement.
// The unit scale is derived once from this value and held fixed so multiple
// edits compose consistently.
func parseHeightCM(attr string) (float64, error) {
	if attr == "" {
		return 0, &models.MalformedGeometryError{Reason: "missing data-height-cm reference measurement"}
	}
	v, err := strconv.ParseFloat(attr, 64)
	if err != nil || v <= 0 {
		return 0, &models.MalformedGeometryError{Reason: "data-height-cm must be a positive number"}
	}
	return v, nil
}
