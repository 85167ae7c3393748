package render

import (
	"bytes"
	"image"
	"image/color"
	"strings"
	"testing"

	"badge-studio/internal/clip"
	"badge-studio/internal/fonts"
	"badge-studio/internal/layout"
	"badge-studio/internal/models"
)

func rgbaAt(img image.Image, x, y int) (r, g, b, a uint8) {
	pr, pg, pb, pa := img.At(x, y).RGBA()
	return uint8(pr >> 8), uint8(pg >> 8), uint8(pb >> 8), uint8(pa >> 8)
}

func testProvider(t *testing.T) *fonts.Provider {
	t.Helper()
	p, err := fonts.NewProvider()
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}
	return p
}

func TestRasterBackgroundFill(t *testing.T) {
	badge := models.Badge{BackgroundColor: "#3366CC"}
	template := rectTemplate()
	l := layout.ComputeLayout(badge, template, nil, layout.Options{})
	geom := clip.Resolve(template, l.BadgeWidth, l.BadgeHeight)

	img := Raster(l, badge, geom, nil, 300, 100, RasterOptions{})

	if img.Bounds().Dx() != 300 || img.Bounds().Dy() != 100 {
		t.Fatalf("bounds = %v, want 300x100", img.Bounds())
	}

	r, g, b, a := rgbaAt(img, 150, 50)
	if r != 0x33 || g != 0x66 || b != 0xCC || a != 255 {
		t.Errorf("center pixel = (%d, %d, %d, %d), want the background color", r, g, b, a)
	}

	// The rounded corner clips the very corner pixel.
	if _, _, _, a := rgbaAt(img, 0, 0); a != 0 {
		t.Errorf("corner pixel alpha = %d, want clipped to transparent", a)
	}
}

func TestRasterEllipseClip(t *testing.T) {
	badge := models.Badge{BackgroundColor: "#FF0000"}
	template := models.Template{
		ArtboardWidth:  300,
		ArtboardHeight: 100,
		Mask:           models.TemplateMask{Type: models.MaskEllipse},
	}
	l := layout.ComputeLayout(badge, template, nil, layout.Options{})
	geom := clip.Resolve(template, l.BadgeWidth, l.BadgeHeight)

	img := Raster(l, badge, geom, nil, 300, 100, RasterOptions{})

	if r, _, _, _ := rgbaAt(img, 150, 50); r != 255 {
		t.Error("ellipse center should carry the background color")
	}
	// The artboard corners sit outside the inscribed ellipse.
	for _, pt := range [][2]int{{2, 2}, {297, 2}, {2, 97}, {297, 97}} {
		if _, _, _, a := rgbaAt(img, pt[0], pt[1]); a != 0 {
			t.Errorf("corner (%d, %d) alpha = %d, want outside the ellipse", pt[0], pt[1], a)
		}
	}
}

func TestRasterCutlineStroke(t *testing.T) {
	badge := models.Badge{BackgroundColor: "#FFFFFF"}
	template := rectTemplate()
	l := layout.ComputeLayout(badge, template, nil, layout.Options{})
	geom := clip.Resolve(template, l.BadgeWidth, l.BadgeHeight)

	img := Raster(l, badge, geom, nil, 300, 100, RasterOptions{Cutline: true})

	// The top edge midpoint sits on the stroke; the cutline red dominates.
	r, g, b, a := rgbaAt(img, 150, 0)
	if a == 0 {
		t.Fatal("expected an inked pixel on the cutline")
	}
	if r <= g || r <= b {
		t.Errorf("cutline pixel = (%d, %d, %d), expected a red-dominant stroke", r, g, b)
	}
}

func TestRasterScalesWithOutputSize(t *testing.T) {
	badge := models.Badge{BackgroundColor: "#00FF00"}
	template := rectTemplate()
	l := layout.ComputeLayout(badge, template, nil, layout.Options{})
	geom := clip.Resolve(template, l.BadgeWidth, l.BadgeHeight)

	img := Raster(l, badge, geom, nil, 600, 200, RasterOptions{})

	if img.Bounds().Dx() != 600 || img.Bounds().Dy() != 200 {
		t.Fatalf("bounds = %v, want 600x200", img.Bounds())
	}
	if _, g, _, _ := rgbaAt(img, 300, 100); g != 255 {
		t.Error("scaled render lost the background fill")
	}
}

func TestRasterTextInked(t *testing.T) {
	provider := testProvider(t)
	badge := models.Badge{
		BackgroundColor: "#FFFFFF",
		Lines: []models.BadgeLine{
			{Text: "HHHHHHHH", Size: 36, Color: "#000000"},
		},
	}
	template := rectTemplate()
	l := layout.ComputeLayout(badge, template, provider, layout.Options{})
	geom := clip.Resolve(template, l.BadgeWidth, l.BadgeHeight)

	img := Raster(l, badge, geom, provider, 300, 100, RasterOptions{})

	// Somewhere in the middle band a glyph pixel must be darker than the
	// white background.
	inked := false
	for x := 20; x < 280; x++ {
		for y := 35; y < 65; y++ {
			if r, g, b, _ := rgbaAt(img, x, y); int(r)+int(g)+int(b) < 300 {
				inked = true
				break
			}
		}
		if inked {
			break
		}
	}
	if !inked {
		t.Error("no glyph pixels found in the text band")
	}
}

func TestRasterPathMask(t *testing.T) {
	badge := models.Badge{BackgroundColor: "#0000FF"}
	template := starTemplate()
	l := layout.ComputeLayout(badge, template, nil, layout.Options{})
	geom := clip.Resolve(template, l.BadgeWidth, l.BadgeHeight)

	img := Raster(l, badge, geom, nil, 200, 200, RasterOptions{})

	// The star's center is filled, the artboard corners are cut away.
	if _, _, b, _ := rgbaAt(img, 100, 90); b != 255 {
		t.Error("star center should carry the background color")
	}
	if _, _, _, a := rgbaAt(img, 2, 2); a != 0 {
		t.Error("artboard corner should sit outside the star")
	}
}

func TestRasterDegenerateLayout(t *testing.T) {
	img := Raster(layout.BadgeLayout{}, models.Badge{}, clip.Geometry{}, nil, 300, 100, RasterOptions{})
	if img == nil {
		t.Fatal("expected the placeholder, got nil")
	}
	if img.Bounds().Dx() != 300 || img.Bounds().Dy() != 100 {
		t.Errorf("placeholder bounds = %v, want 300x100", img.Bounds())
	}
}

func TestPlaceholder(t *testing.T) {
	img := Placeholder("#123456", 200, 80, nil)
	if img.Bounds().Dx() != 200 || img.Bounds().Dy() != 80 {
		t.Fatalf("bounds = %v, want 200x80", img.Bounds())
	}
	if r, g, b, _ := rgbaAt(img, 100, 40); r != 0x12 || g != 0x34 || b != 0x56 {
		t.Errorf("pixel = (%d, %d, %d), want the requested background", r, g, b)
	}

	// Degenerate sizes fall back rather than panic.
	img = Placeholder("", -5, 0, nil)
	if img.Bounds().Dx() != 300 || img.Bounds().Dy() != 100 {
		t.Errorf("fallback bounds = %v, want 300x100", img.Bounds())
	}
}

func TestEncodeRasterFormats(t *testing.T) {
	img := Placeholder("#FFFFFF", 40, 20, nil)

	tests := []struct {
		format   string
		mime     string
		magic    []byte
		atOffset int
	}{
		{"png", "image/png", []byte("\x89PNG"), 0},
		{"jpeg", "image/jpeg", []byte{0xFF, 0xD8}, 0},
		{"jpg", "image/jpeg", []byte{0xFF, 0xD8}, 0},
		{"webp", "image/webp", []byte("RIFF"), 0},
		{"", "image/png", []byte("\x89PNG"), 0},
		{"bmp", "image/png", []byte("\x89PNG"), 0}, // unknown formats encode as png
	}

	for _, tt := range tests {
		t.Run("format "+tt.format, func(t *testing.T) {
			data, mime, err := EncodeRaster(img, tt.format, 90)
			if err != nil {
				t.Fatalf("EncodeRaster: %v", err)
			}
			if mime != tt.mime {
				t.Errorf("mime = %q, want %q", mime, tt.mime)
			}
			if len(data) < len(tt.magic)+tt.atOffset || !bytes.Equal(data[tt.atOffset:tt.atOffset+len(tt.magic)], tt.magic) {
				t.Errorf("output does not start with the %s signature", strings.ToUpper(tt.format))
			}
		})
	}
}

func TestParseHexColor(t *testing.T) {
	tests := []struct {
		in   string
		want color.NRGBA
	}{
		{"#3366CC", color.NRGBA{R: 0x33, G: 0x66, B: 0xCC, A: 255}},
		{"#FFF", white},
		{" #000000 ", black},
		{"", white},
		{"#GGGGGG", white},
		{"red", white},
	}
	for _, tt := range tests {
		if got := parseHexColor(tt.in, white); got != tt.want {
			t.Errorf("parseHexColor(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

func TestContrastColor(t *testing.T) {
	if contrastColor("#FFFFFF") != black {
		t.Error("white background should take black text")
	}
	if contrastColor("#000000") != white {
		t.Error("black background should take white text")
	}
	if contrastColor("#112244") != white {
		t.Error("dark blue background should take white text")
	}
}
