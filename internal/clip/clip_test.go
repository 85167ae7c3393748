package clip

import (
	"math"
	"testing"

	"badge-studio/internal/models"
)

const floatTol = 1e-9

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < floatTol
}

func TestResolveRect(t *testing.T) {
	template := models.Template{
		ArtboardWidth:  300,
		ArtboardHeight: 100,
		SafeInset:      6,
		Mask:           models.TemplateMask{Type: models.MaskRect, RX: 4, RY: 4},
	}

	g := Resolve(template, 300, 100)

	if g.Kind != KindRect {
		t.Fatalf("kind = %q, want rect", g.Kind)
	}
	if g.Bounds != (Rect{0, 0, 300, 100}) {
		t.Errorf("bounds = %+v, want the full artboard", g.Bounds)
	}
	if g.RX != 4 || g.RY != 4 {
		t.Errorf("radii = %v/%v, want 4/4", g.RX, g.RY)
	}
	if g.SafeArea != (Rect{6, 6, 288, 88}) {
		t.Errorf("safeArea = %+v, want {6 6 288 88}", g.SafeArea)
	}
}

func TestResolveRectRadiusDefaulting(t *testing.T) {
	g := Resolve(models.Template{
		ArtboardWidth:  300,
		ArtboardHeight: 100,
		Mask:           models.TemplateMask{Type: models.MaskRect, RX: 5},
	}, 300, 100)

	if g.RX != 5 || g.RY != 5 {
		t.Errorf("radii = %v/%v, want the set radius mirrored", g.RX, g.RY)
	}
}

func TestResolveEllipse(t *testing.T) {
	for _, kind := range []models.MaskKind{models.MaskEllipse, "oval"} {
		g := Resolve(models.Template{
			ArtboardWidth:  300,
			ArtboardHeight: 100,
			SafeInset:      6,
			Mask:           models.TemplateMask{Type: kind},
		}, 300, 100)

		if g.Kind != KindEllipse {
			t.Errorf("mask %q: kind = %q, want ellipse", kind, g.Kind)
		}
		if g.Bounds != (Rect{0, 0, 300, 100}) {
			t.Errorf("mask %q: bounds = %+v, want the full artboard", kind, g.Bounds)
		}
	}
}

func TestResolvePathSquareSource(t *testing.T) {
	// 100x100 source fitted into a 184x184 safe area: scale 1.84, no
	// centering slack on either axis.
	template := models.Template{
		ArtboardWidth:  200,
		ArtboardHeight: 200,
		SafeInset:      8,
		Mask: models.TemplateMask{
			Type:          models.MaskPath,
			D:             "M50 0 L61 35 L98 35 L68 57 L79 91 L50 70 L21 91 L32 57 L2 35 L39 35 Z",
			SourceViewBox: []float64{0, 0, 100, 100},
		},
	}

	g := Resolve(template, 200, 200)

	if g.Kind != KindPath {
		t.Fatalf("kind = %q, want path", g.Kind)
	}
	if !almostEqual(g.Transform.Scale, 1.84) {
		t.Errorf("scale = %v, want 1.84", g.Transform.Scale)
	}
	if !almostEqual(g.Transform.Tx, 8) || !almostEqual(g.Transform.Ty, 8) {
		t.Errorf("translate = (%v, %v), want (8, 8)", g.Transform.Tx, g.Transform.Ty)
	}
}

func TestResolvePathTallSource(t *testing.T) {
	// 100x140 source in a 180x280 safe area: width limits (1.8 < 2.0), the
	// leftover height is split evenly, so ty = 10 + (280 - 252)/2 = 24.
	template := models.Template{
		ArtboardWidth:  200,
		ArtboardHeight: 300,
		SafeInset:      10,
		Mask: models.TemplateMask{
			Type:          models.MaskPath,
			D:             "M50 0 L100 20 L100 70 C100 100 80 120 50 140 C20 120 0 100 0 70 L0 20 Z",
			SourceViewBox: []float64{0, 0, 100, 140},
		},
	}

	g := Resolve(template, 200, 300)

	if !almostEqual(g.Transform.Scale, 1.8) {
		t.Errorf("scale = %v, want 1.8", g.Transform.Scale)
	}
	if !almostEqual(g.Transform.Tx, 10) {
		t.Errorf("tx = %v, want 10", g.Transform.Tx)
	}
	if !almostEqual(g.Transform.Ty, 24) {
		t.Errorf("ty = %v, want 24", g.Transform.Ty)
	}
}

func TestResolvePathMeasuresMissingSourceBox(t *testing.T) {
	template := models.Template{
		ArtboardWidth:  200,
		ArtboardHeight: 200,
		Mask: models.TemplateMask{
			Type: models.MaskPath,
			D:    "M0 0 L100 0 L100 50 L0 50 Z",
		},
	}

	g := Resolve(template, 200, 200)

	if g.Kind != KindPath {
		t.Fatalf("kind = %q, want path", g.Kind)
	}
	// Measured box 100x50, so width limits: scale 2, vertical slack 100.
	if !almostEqual(g.Transform.Scale, 2) {
		t.Errorf("scale = %v, want 2", g.Transform.Scale)
	}
	if !almostEqual(g.Transform.Ty, 50) {
		t.Errorf("ty = %v, want 50", g.Transform.Ty)
	}
}

func TestResolvePathFallsBackToRect(t *testing.T) {
	tests := []struct {
		name string
		mask models.TemplateMask
	}{
		{"empty data", models.TemplateMask{Type: models.MaskPath}},
		{"corrupt data", models.TemplateMask{Type: models.MaskPath, D: "garbage"}},
		{"degenerate source box", models.TemplateMask{
			Type:          models.MaskPath,
			D:             "M0 0 L10 0 Z",
			SourceViewBox: []float64{0, 0, 0, 0},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := Resolve(models.Template{
				ArtboardWidth:  200,
				ArtboardHeight: 200,
				Mask:           tt.mask,
			}, 200, 200)

			if g.Kind != KindRect {
				t.Errorf("kind = %q, want rect fallback", g.Kind)
			}
			if g.Bounds != (Rect{0, 0, 200, 200}) {
				t.Errorf("bounds = %+v, want the full artboard", g.Bounds)
			}
		})
	}
}

func TestResolveSanitizesInset(t *testing.T) {
	tests := []struct {
		name  string
		inset float64
	}{
		{"negative", -4},
		{"half the width", 150},
		{"larger than the artboard", 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := Resolve(models.Template{
				ArtboardWidth:  300,
				ArtboardHeight: 100,
				SafeInset:      tt.inset,
			}, 300, 100)

			if g.SafeArea != (Rect{0, 0, 300, 100}) {
				t.Errorf("safeArea = %+v, want the full artboard for inset %v", g.SafeArea, tt.inset)
			}
		})
	}
}

func TestResolveDegenerateArtboard(t *testing.T) {
	g := Resolve(models.Template{}, 0, -5)

	if g.Bounds != (Rect{0, 0, 300, 100}) {
		t.Errorf("bounds = %+v, want 300x100 fallback", g.Bounds)
	}
}

func TestTransformApply(t *testing.T) {
	tr := Transform{Tx: 10, Ty: 20, Scale: 2}
	x, y := tr.Apply(3, 4)
	if x != 16 || y != 28 {
		t.Errorf("Apply(3, 4) = (%v, %v), want (16, 28)", x, y)
	}
}

func TestOutline(t *testing.T) {
	template := models.Template{
		ArtboardWidth:  200,
		ArtboardHeight: 200,
		SafeInset:      8,
		Mask: models.TemplateMask{
			Type:          models.MaskPath,
			D:             "M0 0 L100 0 L100 100 L0 100 Z",
			SourceViewBox: []float64{0, 0, 100, 100},
		},
	}
	g := Resolve(template, 200, 200)

	points, ok := g.Outline(1, 1)
	if !ok {
		t.Fatal("expected an outline for a path mask")
	}
	if len(points) < 3 {
		t.Fatalf("outline has %d points, want at least 3", len(points))
	}
	for _, p := range points {
		if p.X < 8-floatTol || p.X > 192+floatTol || p.Y < 8-floatTol || p.Y > 192+floatTol {
			t.Fatalf("outline point (%v, %v) outside the safe area", p.X, p.Y)
		}
	}

	if _, ok := Resolve(models.Template{ArtboardWidth: 300, ArtboardHeight: 100}, 300, 100).Outline(1, 1); ok {
		t.Error("rect geometry should not produce an outline")
	}
}
