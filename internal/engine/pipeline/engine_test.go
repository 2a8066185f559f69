package pipeline

import (
	"errors"
	"math"
	"testing"

	"cutmind/internal/engine/landmark"
	"cutmind/internal/engine/models"
	"cutmind/internal/engine/parser"
	"cutmind/internal/engine/transform"
	"cutmind/internal/pattern/assets"
	"cutmind/internal/rules"
)

func tshirtSVG(t *testing.T) string {
	t.Helper()
	svg, ok := assets.Get("tshirt")
	if !ok {
		t.Fatal("embedded tshirt asset missing")
	}
	return svg
}

func run(t *testing.T, raw string, list ...rules.Rule) (string, []RuleOutcome) {
	t.Helper()
	out, outcomes, err := New().ApplyRules(raw, list)
	if err != nil {
		t.Fatalf("ApplyRules(%v) error: %v", list, err)
	}
	return out, outcomes
}

func reparse(t *testing.T, raw string) (*models.PatternPiece, map[models.Role]models.Anchor) {
	t.Helper()
	piece, err := parser.Parse(raw)
	if err != nil {
		t.Fatalf("reparse: %v", err)
	}
	return piece, landmark.Resolve(piece)
}

func hemY(t *testing.T, piece *models.PatternPiece, anchors map[models.Role]models.Anchor) float64 {
	t.Helper()
	hem, ok := anchors[models.RoleHemLine]
	if !ok {
		t.Fatal("hem did not resolve")
	}
	y := piece.Point(hem.PointIDs[0]).Y
	for _, id := range hem.PointIDs {
		if piece.Point(id).Y != y {
			t.Fatalf("hem is not level: %g vs %g", piece.Point(id).Y, y)
		}
	}
	return y
}

func underarmY(t *testing.T, piece *models.PatternPiece, anchors map[models.Role]models.Anchor) float64 {
	t.Helper()
	seams, ok := anchors[models.RoleSideSeam]
	if !ok {
		t.Fatal("side seams did not resolve")
	}
	minY := math.MaxFloat64
	for _, id := range seams.PointIDs {
		if y := piece.Point(id).Y; y < minY {
			minY = y
		}
	}
	return minY
}

// necklineDepth samples the resolved neckline cubic for its depth below the
// chord, in user units.
func necklineDepth(t *testing.T, piece *models.PatternPiece, anchors map[models.Role]models.Anchor) float64 {
	t.Helper()
	neck, ok := anchors[models.RoleNecklineCurve]
	if !ok {
		t.Fatal("neckline did not resolve")
	}
	seg := neck.Segments[0]
	a := piece.Point(seg.Start)
	b := piece.Point(seg.End)
	c1 := piece.Point(seg.C1)
	c2 := piece.Point(seg.C2)
	chordY := (a.Y + b.Y) / 2

	maxY := chordY
	for i := 0; i <= 64; i++ {
		p := transform.CubicAt(a, c1, c2, b, float64(i)/64)
		if p.Y > maxY {
			maxY = p.Y
		}
	}
	return maxY - chordY
}

// sleeveOpenings returns the opening width of each sleeve, in user units.
func sleeveOpenings(t *testing.T, piece *models.PatternPiece, anchors map[models.Role]models.Anchor) []float64 {
	t.Helper()
	edges, ok := anchors[models.RoleSleeveEdge]
	if !ok {
		t.Fatal("sleeve edges did not resolve")
	}
	var openings []float64
	for _, seg := range edges.Segments {
		openings = append(openings, piece.Point(seg.Start).Distance(piece.Point(seg.End)))
	}
	return openings
}

func sharedPointCount(a, b *models.Element) int {
	set := make(map[string]struct{})
	for _, id := range a.PointIDs() {
		set[id] = struct{}{}
	}
	shared := 0
	for _, id := range b.PointIDs() {
		if _, ok := set[id]; ok {
			shared++
		}
	}
	return shared
}

// ============================================================
// Hem and body length
// ============================================================

func TestCropHemMovesOnlyHem(t *testing.T) {
	out, outcomes := run(t, tshirtSVG(t), rules.Rule{Operation: rules.OpCropHem, ValueCM: 5})

	piece, anchors := reparse(t, out)
	if y := hemY(t, piece, anchors); y != 600 {
		t.Errorf("hem Y = %g, want 600", y)
	}
	if y := underarmY(t, piece, anchors); y != 150 {
		t.Errorf("underarm Y = %g, want 150 (must not move)", y)
	}
	if d := necklineDepth(t, piece, anchors); math.Abs(d-60) > 1e-6 {
		t.Errorf("neckline depth = %g, want 60 (must not move)", d)
	}

	if len(outcomes) != 1 || outcomes[0].Status != StatusApplied {
		t.Fatalf("outcomes = %+v, want one applied rule", outcomes)
	}
	movedHem := false
	for _, role := range outcomes[0].Moved {
		if role == models.RoleHemLine {
			movedHem = true
		}
	}
	if !movedHem {
		t.Error("outcome does not report the hem as moved")
	}
}

func TestExtendHem(t *testing.T) {
	out, _ := run(t, tshirtSVG(t), rules.Rule{Operation: rules.OpExtendHem, ValueCM: 3})
	piece, anchors := reparse(t, out)
	if y := hemY(t, piece, anchors); y != 680 {
		t.Errorf("hem Y = %g, want 680", y)
	}
}

func TestAdjustBodyLengthIsSigned(t *testing.T) {
	out, _ := run(t, tshirtSVG(t), rules.Rule{Operation: rules.OpAdjustBodyLength, ValueCM: 2})
	piece, anchors := reparse(t, out)
	if y := hemY(t, piece, anchors); y != 670 {
		t.Errorf("positive adjust: hem Y = %g, want 670", y)
	}

	out, _ = run(t, tshirtSVG(t), rules.Rule{Operation: rules.OpAdjustBodyLength, ValueCM: -2})
	piece, anchors = reparse(t, out)
	if y := hemY(t, piece, anchors); y != 630 {
		t.Errorf("negative adjust: hem Y = %g, want 630", y)
	}
}

func TestRulesComposeAgainstCurrentVersion(t *testing.T) {
	out, outcomes := run(t, tshirtSVG(t),
		rules.Rule{Operation: rules.OpCropHem, ValueCM: 5},
		rules.Rule{Operation: rules.OpExtendHem, ValueCM: 2},
	)
	piece, anchors := reparse(t, out)
	if y := hemY(t, piece, anchors); y != 620 {
		t.Errorf("hem Y = %g, want 620", y)
	}
	for i, o := range outcomes {
		if o.Status != StatusApplied {
			t.Errorf("outcome %d status = %s, want applied", i, o.Status)
		}
	}
}

func TestEditsAreAdditive(t *testing.T) {
	split, _ := run(t, tshirtSVG(t),
		rules.Rule{Operation: rules.OpCropHem, ValueCM: 2},
		rules.Rule{Operation: rules.OpCropHem, ValueCM: 3},
	)
	single, _ := run(t, tshirtSVG(t), rules.Rule{Operation: rules.OpCropHem, ValueCM: 5})
	if split != single {
		t.Error("crop 2cm then 3cm differs from crop 5cm")
	}
}

func TestOutputIsDeterministic(t *testing.T) {
	list := []rules.Rule{
		{Operation: rules.OpCropHem, ValueCM: 4},
		{Operation: rules.OpWidenSleeve, ValueCM: 3},
		{Operation: rules.OpLowerNeckline, ValueCM: 1},
	}
	first, _ := run(t, tshirtSVG(t), list...)
	second, _ := run(t, tshirtSVG(t), list...)
	if first != second {
		t.Error("identical input produced different bytes")
	}
}

// ============================================================
// Sleeves and seam continuity
// ============================================================

func TestWidenSleeve(t *testing.T) {
	out, outcomes := run(t, tshirtSVG(t), rules.Rule{Operation: rules.OpWidenSleeve, ValueCM: 3})

	piece, anchors := reparse(t, out)
	for _, opening := range sleeveOpenings(t, piece, anchors) {
		if math.Abs(opening-170) > 1e-6 {
			t.Errorf("sleeve opening = %g, want 170", opening)
		}
	}

	// The opening edge is free geometry; the body must not move.
	body := piece.ElementByID("Body_Front")
	min, max := piece.Bounds(body)
	if min.X != 250 || max.X != 550 || min.Y != 50 || max.Y != 650 {
		t.Errorf("body bounds moved: (%g,%g)-(%g,%g)", min.X, min.Y, max.X, max.Y)
	}

	want := []string{"Sleeve_Left", "Sleeve_Right"}
	got := outcomes[0].Restitched
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("restitched = %v, want %v", got, want)
	}
}

func TestNarrowSleeve(t *testing.T) {
	out, _ := run(t, tshirtSVG(t), rules.Rule{Operation: rules.OpNarrowSleeve, ValueCM: 3})
	piece, anchors := reparse(t, out)
	for _, opening := range sleeveOpenings(t, piece, anchors) {
		if math.Abs(opening-110) > 1e-6 {
			t.Errorf("sleeve opening = %g, want 110", opening)
		}
	}
}

func TestShortenSleeve(t *testing.T) {
	out, _ := run(t, tshirtSVG(t), rules.Rule{Operation: rules.OpShortenSleeve, ValueCM: 4})
	piece, anchors := reparse(t, out)
	edges := anchors[models.RoleSleeveEdge]
	for _, id := range edges.PointIDs {
		x := piece.Point(id).X
		if x != 660 && x != 140 {
			t.Errorf("sleeve edge point at X=%g, want 660 or 140", x)
		}
	}
}

func TestExtendSleeve(t *testing.T) {
	out, _ := run(t, tshirtSVG(t), rules.Rule{Operation: rules.OpExtendSleeve, ValueCM: 4})
	piece, anchors := reparse(t, out)
	edges := anchors[models.RoleSleeveEdge]
	for _, id := range edges.PointIDs {
		x := piece.Point(id).X
		if x != 740 && x != 60 {
			t.Errorf("sleeve edge point at X=%g, want 740 or 60", x)
		}
	}
}

func TestAddEaseSleeveKeepsCapWelded(t *testing.T) {
	out, _ := run(t, tshirtSVG(t), rules.Rule{Operation: rules.OpAddEaseSleeve, ValueCM: 2})

	piece, anchors := reparse(t, out)
	for _, opening := range sleeveOpenings(t, piece, anchors) {
		if math.Abs(opening-160) > 1e-6 {
			t.Errorf("sleeve opening = %g, want 160", opening)
		}
	}

	// Cap points are welded to the body and must not spread.
	caps := anchors[models.RoleSleeveCap]
	for _, id := range caps.PointIDs {
		x := piece.Point(id).X
		if x != 550 && x != 250 {
			t.Errorf("cap point at X=%g, want 550 or 250", x)
		}
	}
}

// Body width edits displace the welded armhole corners; the sleeves must
// follow through the shared point table instead of detaching.
func TestAddEaseBodyPropagatesToSleeves(t *testing.T) {
	out, outcomes := run(t, tshirtSVG(t), rules.Rule{Operation: rules.OpAddEaseBody, ValueCM: 2})

	piece, _ := reparse(t, out)
	body := piece.ElementByID("Body_Front")
	min, max := piece.Bounds(body)
	if min.X != 240 || max.X != 560 {
		t.Errorf("body X extent = %g..%g, want 240..560", min.X, max.X)
	}

	for _, sleeveID := range []string{"Sleeve_Right", "Sleeve_Left"} {
		sleeve := piece.ElementByID(sleeveID)
		if shared := sharedPointCount(body, sleeve); shared != 2 {
			t.Errorf("%s shares %d points with the body after the edit, want 2", sleeveID, shared)
		}
	}

	want := []string{"Body_Front", "Sleeve_Left", "Sleeve_Right"}
	got := outcomes[0].Restitched
	if len(got) != 3 || got[0] != want[0] || got[1] != want[1] || got[2] != want[2] {
		t.Errorf("restitched = %v, want %v", got, want)
	}
}

func TestRemoveEaseBody(t *testing.T) {
	out, _ := run(t, tshirtSVG(t), rules.Rule{Operation: rules.OpRemoveEaseBody, ValueCM: 2})
	piece, _ := reparse(t, out)
	body := piece.ElementByID("Body_Front")
	min, max := piece.Bounds(body)
	if min.X != 260 || max.X != 540 {
		t.Errorf("body X extent = %g..%g, want 260..540", min.X, max.X)
	}
}

// ============================================================
// Neckline
// ============================================================

func TestLowerNecklineKeepsEndpointsFixed(t *testing.T) {
	out, _ := run(t, tshirtSVG(t), rules.Rule{Operation: rules.OpLowerNeckline, ValueCM: 2})

	piece, anchors := reparse(t, out)
	neck := anchors[models.RoleNecklineCurve]
	for _, id := range []string{neck.Segments[0].Start, neck.Segments[0].End} {
		if y := piece.Point(id).Y; y != 50 {
			t.Errorf("neckline endpoint moved to Y=%g, want 50", y)
		}
	}
	// Depth is measured from the reparsed canonical output, which quantizes
	// the scaled handles to 3 decimals.
	if d := necklineDepth(t, piece, anchors); math.Abs(d-80) > 5e-3 {
		t.Errorf("neckline depth = %g, want 80", d)
	}
}

func TestRaiseNeckline(t *testing.T) {
	out, _ := run(t, tshirtSVG(t), rules.Rule{Operation: rules.OpRaiseNeckline, ValueCM: 2})
	piece, anchors := reparse(t, out)
	if d := necklineDepth(t, piece, anchors); math.Abs(d-40) > 5e-3 {
		t.Errorf("neckline depth = %g, want 40", d)
	}
}

// ============================================================
// Rejections
// ============================================================

func TestOutOfBoundsRejections(t *testing.T) {
	tests := []struct {
		name string
		rule rules.Rule
	}{
		{"hem crosses underarm", rules.Rule{Operation: rules.OpCropHem, ValueCM: 1000}},
		{"body length exceeds extent", rules.Rule{Operation: rules.OpExtendHem, ValueCM: 400}},
		{"negative adjust crosses underarm", rules.Rule{Operation: rules.OpAdjustBodyLength, ValueCM: -1000}},
		{"sleeve collapses onto cap", rules.Rule{Operation: rules.OpShortenSleeve, ValueCM: 15}},
		{"sleeve exceeds extent", rules.Rule{Operation: rules.OpExtendSleeve, ValueCM: 300}},
		{"opening collapses", rules.Rule{Operation: rules.OpNarrowSleeve, ValueCM: 14}},
		{"opening exceeds extent", rules.Rule{Operation: rules.OpWidenSleeve, ValueCM: 300}},
		{"body width collapses", rules.Rule{Operation: rules.OpRemoveEaseBody, ValueCM: 30}},
		{"body width exceeds extent", rules.Rule{Operation: rules.OpAddEaseBody, ValueCM: 280}},
		{"neckline crosses underarm", rules.Rule{Operation: rules.OpLowerNeckline, ValueCM: 4}},
		{"neckline depth collapses", rules.Rule{Operation: rules.OpRaiseNeckline, ValueCM: 6}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, outcomes, err := New().ApplyRules(tshirtSVG(t), []rules.Rule{tt.rule})
			if err == nil {
				t.Fatal("ApplyRules() = nil error, want out-of-bounds rejection")
			}
			var bounds *models.GeometryOutOfBoundsError
			if !errors.As(err, &bounds) {
				t.Fatalf("error type = %T, want GeometryOutOfBoundsError", err)
			}
			if bounds.Operation != string(tt.rule.Operation) {
				t.Errorf("rejected operation = %s, want %s", bounds.Operation, tt.rule.Operation)
			}
			if out != "" {
				t.Error("rejection returned a partial document")
			}
			if len(outcomes) != 1 || outcomes[0].Status != StatusRejected {
				t.Errorf("outcomes = %+v, want one rejected rule", outcomes)
			}
		})
	}
}

func TestRejectionAbortsWholeList(t *testing.T) {
	out, outcomes, err := New().ApplyRules(tshirtSVG(t), []rules.Rule{
		{Operation: rules.OpCropHem, ValueCM: 5},
		{Operation: rules.OpCropHem, ValueCM: 1000},
	})
	if err == nil {
		t.Fatal("ApplyRules() = nil error, want rejection")
	}
	if out != "" {
		t.Error("failed list returned a document")
	}
	if len(outcomes) != 2 {
		t.Fatalf("got %d outcomes, want 2 (attempted rules)", len(outcomes))
	}
	if outcomes[0].Status != StatusApplied || outcomes[1].Status != StatusRejected {
		t.Errorf("outcome statuses = %s, %s", outcomes[0].Status, outcomes[1].Status)
	}
}

func TestUnsupportedOperationFailsClosed(t *testing.T) {
	_, outcomes, err := New().ApplyRules(tshirtSVG(t), []rules.Rule{{Operation: "bias_cut", ValueCM: 1}})
	if err == nil {
		t.Fatal("ApplyRules() = nil error, want unsupported operation")
	}
	var unsupported *models.UnsupportedOperationError
	if !errors.As(err, &unsupported) {
		t.Fatalf("error type = %T, want UnsupportedOperationError", err)
	}
	if len(outcomes) != 1 || outcomes[0].Status != StatusRejected {
		t.Errorf("outcomes = %+v, want one rejected rule", outcomes)
	}
}

func TestMissingLandmarkRejectsRule(t *testing.T) {
	square := `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 100 100" data-height-cm="10">` +
		`<path id="Body_Front" d="M 20 20 L 80 20 L 80 80 L 20 80 Z" /></svg>`

	_, outcomes, err := New().ApplyRules(square, []rules.Rule{{Operation: rules.OpWidenSleeve, ValueCM: 2}})
	if err == nil {
		t.Fatal("ApplyRules() = nil error, want missing landmark")
	}
	var notFound *models.LandmarkNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("error type = %T, want LandmarkNotFoundError", err)
	}
	if len(outcomes) != 1 || outcomes[0].Status != StatusLandmarkMissing {
		t.Errorf("outcomes = %+v, want one landmark_missing rule", outcomes)
	}
}

func TestMalformedDocumentRejected(t *testing.T) {
	_, _, err := New().ApplyRules("not a document", []rules.Rule{{Operation: rules.OpCropHem, ValueCM: 5}})
	var malformed *models.MalformedGeometryError
	if !errors.As(err, &malformed) {
		t.Fatalf("error = %v, want MalformedGeometryError", err)
	}
}

// ============================================================
// Structural invariants
// ============================================================

func TestEveryOperationPreservesClosure(t *testing.T) {
	for _, op := range rules.All {
		t.Run(string(op), func(t *testing.T) {
			out, _ := run(t, tshirtSVG(t), rules.Rule{Operation: op, ValueCM: 2})
			piece, _ := reparse(t, out)
			for _, e := range piece.Elements {
				if !e.Closed {
					t.Errorf("element %s no longer closed after %s", e.ID, op)
				}
			}
		})
	}
}

func TestEveryOperationAppliesToAllAssets(t *testing.T) {
	for _, id := range assets.IDs() {
		svg, _ := assets.Get(id)
		for _, op := range rules.All {
			if _, _, err := New().ApplyRules(svg, []rules.Rule{{Operation: op, ValueCM: 1}}); err != nil {
				t.Errorf("asset %s, operation %s: %v", id, op, err)
			}
		}
	}
}
