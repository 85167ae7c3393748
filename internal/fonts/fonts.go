package fonts

import (
	"fmt"
	"sync"
	"unicode/utf8"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// DefaultFamily is used whenever a line names a family outside the catalog.
const DefaultFamily = "Roboto"

// Families is the closed catalog of selectable font families, in display
// order. Metrics for all of them are backed by the embedded Go fonts per
// style, so measurement works identically in the service and in tests
// without any font files on disk.
var Families = []string{
	"Roboto",
	"Open Sans",
	"Lato",
	"Montserrat",
	"Oswald",
	"Source Sans 3",
	"Raleway",
	"PT Sans",
	"Merriweather",
	"Noto Sans",
	"Noto Serif",
	"Georgia",
}

// KnownFamily reports whether family is in the catalog.
func KnownFamily(family string) bool {
	for _, f := range Families {
		if f == family {
			return true
		}
	}
	return false
}

// NormalizeFamily maps unknown or empty families to the default.
func NormalizeFamily(family string) string {
	if KnownFamily(family) {
		return family
	}
	return DefaultFamily
}

// approxCharWidth is the fallback width-per-rune factor (fraction of the font
// size) used when no face is available.
const approxCharWidth = 0.6

// ApproxWidth is the degraded measurement used when glyph metrics are
// unavailable: proportional to rune count and font size.
func ApproxWidth(text string, fontSize float64) float64 {
	return float64(utf8.RuneCountInString(text)) * fontSize * approxCharWidth
}

type faceKey struct {
	bold   bool
	italic bool
	size   float64
}

// Provider measures text and hands out faces for rasterization. It owns an
// explicit face cache keyed by style and size; there is no package-level
// mutable state, callers share one Provider per process.
type Provider struct {
	mu     sync.Mutex
	styles map[[2]bool]*opentype.Font
	faces  map[faceKey]font.Face
}

// NewProvider parses the embedded font styles once.
func NewProvider() (*Provider, error) {
	p := &Provider{
		styles: make(map[[2]bool]*opentype.Font, 4),
		faces:  make(map[faceKey]font.Face),
	}

	for _, s := range []struct {
		bold, italic bool
		ttf          []byte
	}{
		{false, false, goregular.TTF},
		{true, false, gobold.TTF},
		{false, true, goitalic.TTF},
		{true, true, gobolditalic.TTF},
	} {
		f, err := opentype.Parse(s.ttf)
		if err != nil {
			return nil, fmt.Errorf("parse embedded font (bold=%v italic=%v): %w", s.bold, s.italic, err)
		}
		p.styles[[2]bool{s.bold, s.italic}] = f
	}

	return p, nil
}

// Face returns a cached face for the given style and size. The family only
// participates in catalog normalization; all catalog entries share the
// embedded metrics for their style. Returns nil if the face cannot be built.
func (p *Provider) Face(family string, bold, italic bool, size float64) font.Face {
	if size <= 0 {
		return nil
	}
	_ = NormalizeFamily(family)

	p.mu.Lock()
	defer p.mu.Unlock()

	key := faceKey{bold: bold, italic: italic, size: size}
	if face, ok := p.faces[key]; ok {
		return face
	}

	src := p.styles[[2]bool{bold, italic}]
	if src == nil {
		return nil
	}

	// DPI 72 makes the point size equal to the pixel size, keeping face
	// metrics in artboard units.
	face, err := opentype.NewFace(src, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingNone,
	})
	if err != nil {
		return nil
	}

	p.faces[key] = face
	return face
}

// MeasureWidth returns the rendered width of text in artboard units. Repeated
// calls with identical inputs return identical results; the layout engine's
// font-size search relies on that. Unknown families measure with the default
// family, and a missing face degrades to the rune-count approximation.
func (p *Provider) MeasureWidth(text string, fontSize float64, fontFamily string, bold, italic bool) float64 {
	if text == "" {
		return 0
	}

	face := p.Face(fontFamily, bold, italic, fontSize)
	if face == nil {
		return ApproxWidth(text, fontSize)
	}

	// Faces are not safe for concurrent use; measurement shares the cache lock.
	p.mu.Lock()
	defer p.mu.Unlock()
	adv := font.MeasureString(face, text)
	return float64(adv) / 64
}
