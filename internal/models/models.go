package models

import (
	"encoding/json"
	"math"
	"strings"
)

// ============ BADGE STRUCTURES ============

// Design-wide constants shared by the layout engine and renderers.
const (
	MaxLines             = 4
	MinFontSize          = 8
	MaxFontSize          = 36
	LineHeightMultiplier = 1.3

	DefaultFontSize        = 18
	DefaultTextColor       = "#000000"
	DefaultBackgroundColor = "#FFFFFF"
)

// TextAlign is the horizontal alignment of a badge line.
type TextAlign string

const (
	AlignLeft   TextAlign = "left"
	AlignCenter TextAlign = "center"
	AlignRight  TextAlign = "right"
)

// BadgeLine is one line of user-entered text with its styling.
// The layout engine never mutates a BadgeLine; it derives geometry from it.
type BadgeLine struct {
	Text       string    `json:"text"`
	Size       float64   `json:"size"`
	Color      string    `json:"color"`
	Bold       bool      `json:"bold"`
	Italic     bool      `json:"italic"`
	Underline  bool      `json:"underline"`
	FontFamily string    `json:"fontFamily"`
	Alignment  TextAlign `json:"alignment"`
}

// BadgeImage is a raster image placed on the badge. X/Y are top-left offsets
// in artboard units, Scale maps natural pixels to artboard units (1.0 = 1:1).
// Width/Height are the natural pixel dimensions when known (0 = unknown).
// Cover marks a legacy plain-reference image that fills the whole artboard.
type BadgeImage struct {
	Src    string  `json:"src"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Scale  float64 `json:"scale"`
	Width  float64 `json:"width,omitempty"`
	Height float64 `json:"height,omitempty"`
	Cover  bool    `json:"cover,omitempty"`
}

// UnmarshalJSON accepts both the positioned object form and the legacy plain
// string form (an opaque image reference that covers the artboard).
func (b *BadgeImage) UnmarshalJSON(data []byte) error {
	var src string
	if err := json.Unmarshal(data, &src); err == nil {
		*b = BadgeImage{Src: src, Scale: 1, Cover: true}
		return nil
	}

	type plain BadgeImage
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*b = BadgeImage(p)
	if b.Scale == 0 {
		b.Scale = 1
	}
	return nil
}

// Backing is pricing/manufacturing metadata; it never affects rendering.
type Backing string

const (
	BackingPin      Backing = "pin"
	BackingMagnetic Backing = "magnetic"
	BackingAdhesive Backing = "adhesive"
)

// Badge is the complete design as edited by the user.
type Badge struct {
	TemplateID      string      `json:"templateId,omitempty"`
	BackgroundColor string      `json:"backgroundColor"`
	Backing         Backing     `json:"backing,omitempty"`
	Lines           []BadgeLine `json:"lines"`
	BackgroundImage *BadgeImage `json:"backgroundImage,omitempty"`
	Logo            *BadgeImage `json:"logo,omitempty"`
}

// ============ TEMPLATE STRUCTURES ============

// MaskKind tags the active variant of a template mask.
type MaskKind string

const (
	MaskRect    MaskKind = "rect"
	MaskEllipse MaskKind = "ellipse"
	MaskPath    MaskKind = "path"
)

// TemplateMask is the die-cut shape of a template. Exactly one variant is
// active, selected by Type. Path masks carry their geometry in the source
// coordinate space described by SourceViewBox (or SourceBox), to be uniformly
// fitted into the template's safe area.
type TemplateMask struct {
	Type MaskKind `json:"type"`

	// rect
	RX float64 `json:"rx,omitempty"`
	RY float64 `json:"ry,omitempty"`

	// path
	D             string     `json:"d,omitempty"`
	SourceViewBox []float64  `json:"sourceViewBox,omitempty"` // [minX, minY, width, height]
	SourceBox     *SourceBox `json:"sourceBox,omitempty"`
}

// SourceBox is the alternative tight-box form accepted for path masks.
type SourceBox struct {
	X      float64 `json:"x,omitempty"`
	Y      float64 `json:"y,omitempty"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Template is an immutable description of a physical badge shape.
// Artboard dimensions are in artboard units (px at the reference DPI).
type Template struct {
	ID             string       `json:"id"`
	Name           string       `json:"name"`
	ArtboardWidth  float64      `json:"artboardWidth"`
	ArtboardHeight float64      `json:"artboardHeight"`
	SafeInset      float64      `json:"safeInset,omitempty"`
	Mask           TemplateMask `json:"mask"`
}

// ============ INPUT NORMALIZATION ============

// The engine is maximally permissive: it sits behind a live editor where
// transient invalid states are normal, so bad values normalize to defaults
// instead of erroring.

// NormalizeAlignment maps any input to one of the three valid alignments,
// defaulting to center.
func NormalizeAlignment(a TextAlign) TextAlign {
	switch a {
	case AlignLeft, AlignRight:
		return a
	default:
		return AlignCenter
	}
}

// NormalizeSize replaces non-finite or non-positive font sizes with the
// default requested size.
func NormalizeSize(size float64) float64 {
	if math.IsNaN(size) || math.IsInf(size, 0) || size <= 0 {
		return DefaultFontSize
	}
	return size
}

// CleanLineText strips a single pair of leading/trailing literal quotes
// (defensive cleanup for CSV-imported text) and surrounding whitespace.
func CleanLineText(text string) string {
	s := strings.TrimSpace(text)
	s = strings.TrimPrefix(s, `"`)
	s = strings.TrimSuffix(s, `"`)
	return strings.TrimSpace(s)
}

// ============ REQUEST/RESPONSE STRUCTURES ============

type RenderBadgeRequest struct {
	Badge Badge `json:"badge"`
}

type BatchRenderRequest struct {
	Badges []Badge `json:"badges"`
	Width  int     `json:"width,omitempty"`
	Height int     `json:"height,omitempty"`
	Format string  `json:"format,omitempty"`
}

type BatchRenderResponse struct {
	Success bool          `json:"success"`
	Total   int           `json:"total"`
	Results []BadgeResult `json:"results"`
}

type BadgeResult struct {
	Index       int    `json:"index"`
	Success     bool   `json:"success"`
	Error       string `json:"error,omitempty"`
	LayoutHash  string `json:"layout_hash,omitempty"`
	ImageBase64 string `json:"image_base64,omitempty"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`
}
