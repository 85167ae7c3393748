package clip

import (
	"badge-studio/internal/models"
)

// Kind tags the resolved clip variant.
type Kind string

const (
	KindRect    Kind = "rect"
	KindEllipse Kind = "ellipse"
	KindPath    Kind = "path"
)

// Rect is an axis-aligned rectangle in artboard units.
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Transform places path-mask geometry into the artboard: translate then
// uniform scale. Uniform by construction so the die shape never distorts.
type Transform struct {
	Tx    float64 `json:"tx"`
	Ty    float64 `json:"ty"`
	Scale float64 `json:"scale"`
}

// Apply maps a source-space point into artboard space.
func (t Transform) Apply(x, y float64) (float64, float64) {
	return t.Tx + x*t.Scale, t.Ty + y*t.Scale
}

// Geometry is the resolved artboard-space clip region plus the matching
// cutline outline. Clip and cutline are always derived jointly from the same
// fields, so the printed cutline exactly traces the clip boundary.
type Geometry struct {
	Kind Kind `json:"kind"`

	// Bounds of the rect or ellipse variant (the full artboard).
	Bounds Rect    `json:"bounds"`
	RX     float64 `json:"rx,omitempty"`
	RY     float64 `json:"ry,omitempty"`

	// Path variant: original path data plus its placement transform.
	PathD     string    `json:"pathD,omitempty"`
	Transform Transform `json:"transform,omitempty"`

	// Dashed in-editor guide at the template's safe inset.
	SafeArea Rect `json:"safeArea"`
}

// Resolve computes the clip geometry for a template at the given artboard
// size. It is total: corrupt or missing path data degrades to a full-artboard
// rectangular clip rather than failing.
func Resolve(template models.Template, artboardWidth, artboardHeight float64) Geometry {
	if artboardWidth <= 0 || artboardHeight <= 0 {
		artboardWidth, artboardHeight = 300, 100
	}

	inset := template.SafeInset
	if inset < 0 || 2*inset >= artboardWidth || 2*inset >= artboardHeight {
		inset = 0
	}
	safeArea := Rect{
		X: inset,
		Y: inset,
		W: artboardWidth - 2*inset,
		H: artboardHeight - 2*inset,
	}
	full := Rect{W: artboardWidth, H: artboardHeight}

	switch template.Mask.Type {
	case models.MaskEllipse, "oval":
		return Geometry{Kind: KindEllipse, Bounds: full, SafeArea: safeArea}

	case models.MaskPath:
		g, ok := resolvePath(template.Mask, safeArea)
		if !ok {
			// Degraded but non-fatal: clip to the whole artboard.
			return Geometry{Kind: KindRect, Bounds: full, SafeArea: safeArea}
		}
		g.Bounds = full
		g.SafeArea = safeArea
		return g

	default:
		// Rect masks clip the entire artboard; the safe inset is a layout
		// guide for this variant, not a hard clip boundary.
		rx, ry := template.Mask.RX, template.Mask.RY
		if ry == 0 {
			ry = rx
		}
		if rx == 0 {
			rx = ry
		}
		return Geometry{Kind: KindRect, Bounds: full, RX: rx, RY: ry, SafeArea: safeArea}
	}
}

// resolvePath fits the mask's source-space path uniformly into the safe area.
func resolvePath(mask models.TemplateMask, safeArea Rect) (Geometry, bool) {
	if mask.D == "" {
		return Geometry{}, false
	}

	src, ok := sourceBox(mask)
	if !ok {
		return Geometry{}, false
	}
	if src.W <= 0 || src.H <= 0 {
		return Geometry{}, false
	}

	scale := safeArea.W / src.W
	if s := safeArea.H / src.H; s < scale {
		scale = s
	}

	return Geometry{
		Kind:  KindPath,
		PathD: mask.D,
		Transform: Transform{
			Tx:    safeArea.X + (safeArea.W-src.W*scale)/2 - src.X*scale,
			Ty:    safeArea.Y + (safeArea.H-src.H*scale)/2 - src.Y*scale,
			Scale: scale,
		},
	}, true
}

// sourceBox picks the path's source coordinate space: an explicit viewBox or
// tight box when supplied, otherwise the measured bounding box of the data.
func sourceBox(mask models.TemplateMask) (Rect, bool) {
	if len(mask.SourceViewBox) == 4 {
		return Rect{
			X: mask.SourceViewBox[0],
			Y: mask.SourceViewBox[1],
			W: mask.SourceViewBox[2],
			H: mask.SourceViewBox[3],
		}, true
	}
	if mask.SourceBox != nil && mask.SourceBox.Width > 0 && mask.SourceBox.Height > 0 {
		return Rect{
			X: mask.SourceBox.X,
			Y: mask.SourceBox.Y,
			W: mask.SourceBox.Width,
			H: mask.SourceBox.Height,
		}, true
	}
	return PathBoundingBox(mask.D)
}

// Outline flattens the geometry's boundary to polygon points, with an extra
// per-axis scale on top of the placement transform. Used by targets without
// native path support (print PDF clipping and cutline strokes).
func (g Geometry) Outline(scaleX, scaleY float64) ([]Point, bool) {
	if g.Kind != KindPath {
		return nil, false
	}
	points, err := FlattenPath(g.PathD, func(x, y float64) (float64, float64) {
		ax, ay := g.Transform.Apply(x, y)
		return ax * scaleX, ay * scaleY
	})
	if err != nil {
		return nil, false
	}
	return points, true
}
