package render

import (
	"bytes"
	"fmt"
	"math"
	"strings"

	svg "github.com/ajstarks/svgo/float"

	"badge-studio/internal/clip"
	"badge-studio/internal/layout"
	"badge-studio/internal/models"
)

// Overlay colors shared by every output target so the editor preview and the
// print proof show the same guides.
const (
	cutlineColor    = "#c34f4f"
	cutlineWidth    = 2.0
	safeGuideColor  = "#ef9a9a"
	errorSceneColor = "#fde8e8"
	errorLabelColor = "#9b1c1c"
)

// VectorOptions control the vector scene output.
type VectorOptions struct {
	// Preview adds the dashed safe-area guide; production export omits it.
	Preview bool
}

// Vector serializes a badge plus its resolved layout and clip geometry into a
// self-contained SVG scene: clipped background, images and text, then the
// unclipped cutline on top. It never fails; malformed input produces a
// minimal, clearly-marked fallback scene so a live preview always shows
// something.
func Vector(badge models.Badge, template models.Template, l layout.BadgeLayout, geom clip.Geometry, opts VectorOptions) (out []byte) {
	defer func() {
		if r := recover(); r != nil {
			out = fallbackScene(l.BadgeWidth, l.BadgeHeight, fmt.Sprint(r))
		}
	}()

	w, h := l.BadgeWidth, l.BadgeHeight
	if w <= 0 || h <= 0 || math.IsNaN(w) || math.IsNaN(h) {
		return fallbackScene(300, 100, "invalid artboard size")
	}

	var buf bytes.Buffer
	canvas := svg.New(&buf)
	canvas.Startview(w, h, 0, 0, w, h)

	// Clip definition; the cutline below reuses the identical geometry.
	canvas.Def()
	canvas.ClipPath(`id="badgeClip"`)
	drawClipShape(canvas, geom)
	canvas.ClipEnd()
	canvas.DefEnd()

	// Background, images and text, all confined to the die shape.
	canvas.Group(`clip-path="url(#badgeClip)"`)
	canvas.Rect(0, 0, w, h, fmt.Sprintf(`fill="%s"`, safeColor(l.BackgroundColor)))
	if badge.BackgroundImage != nil {
		drawImage(canvas, *badge.BackgroundImage, w, h)
	}
	if badge.Logo != nil {
		drawImage(canvas, *badge.Logo, w, h)
	}
	for _, line := range l.Lines {
		drawTextLine(canvas, line)
	}
	canvas.Gend()

	// Cutline, always on top and never clipped.
	drawCutline(canvas, geom)

	if opts.Preview {
		canvas.Rect(geom.SafeArea.X, geom.SafeArea.Y, geom.SafeArea.W, geom.SafeArea.H,
			`fill="none"`,
			fmt.Sprintf(`stroke="%s"`, safeGuideColor),
			`stroke-width="1.5"`,
			`stroke-dasharray="6 6"`)
	}

	canvas.End()
	return buf.Bytes()
}

// drawClipShape emits the clip region geometry.
func drawClipShape(canvas *svg.SVG, geom clip.Geometry) {
	switch geom.Kind {
	case clip.KindEllipse:
		b := geom.Bounds
		canvas.Ellipse(b.X+b.W/2, b.Y+b.H/2, b.W/2, b.H/2)
	case clip.KindPath:
		canvas.Gtransform(transformAttr(geom.Transform))
		canvas.Path(geom.PathD, `fill="white"`)
		canvas.Gend()
	default:
		b := geom.Bounds
		canvas.Roundrect(b.X, b.Y, b.W, b.H, geom.RX, geom.RY)
	}
}

// drawCutline strokes the clip boundary using the same geometry and, for
// path masks, the same transform as the clip definition.
func drawCutline(canvas *svg.SVG, geom clip.Geometry) {
	stroke := []string{
		`fill="none"`,
		fmt.Sprintf(`stroke="%s"`, cutlineColor),
		fmt.Sprintf(`stroke-width="%g"`, cutlineWidth),
	}

	switch geom.Kind {
	case clip.KindEllipse:
		b := geom.Bounds
		canvas.Ellipse(b.X+b.W/2, b.Y+b.H/2, b.W/2, b.H/2, stroke...)
	case clip.KindPath:
		canvas.Gtransform(transformAttr(geom.Transform))
		canvas.Path(geom.PathD, append(stroke, `vector-effect="non-scaling-stroke"`)...)
		canvas.Gend()
	default:
		b := geom.Bounds
		canvas.Roundrect(b.X, b.Y, b.W, b.H, geom.RX, geom.RY, stroke...)
	}
}

// drawImage places one badge image. Legacy cover-mode images fill the whole
// artboard; positioned images draw at natural size, top-left anchored, with
// the user's explicit translate and scale (no automatic centering).
func drawImage(canvas *svg.SVG, img models.BadgeImage, artboardW, artboardH float64) {
	href := safeHref(img.Src)
	if href == "" {
		return
	}

	if img.Cover {
		canvas.Image(0, 0, int(artboardW), int(artboardH), href,
			`preserveAspectRatio="xMidYMid slice"`)
		return
	}

	w, h := img.Width, img.Height
	if w <= 0 || h <= 0 {
		// Natural size unknown; fall back to artboard size.
		w, h = artboardW, artboardH
	}
	scale := img.Scale
	if scale <= 0 {
		scale = 1
	}

	canvas.Gtransform(fmt.Sprintf("translate(%g,%g) scale(%g)", img.X, img.Y, scale))
	canvas.Image(0, 0, int(math.Round(w)), int(math.Round(h)), href,
		`preserveAspectRatio="none"`)
	canvas.Gend()
}

// drawTextLine emits one resolved text line. The anchor x depends on the
// alignment: layout x is the left edge of the measured run, while SVG anchors
// at the start, middle or end of it.
func drawTextLine(canvas *svg.SVG, line layout.TextLineLayout) {
	if line.Text == "" {
		return
	}

	anchor := "middle"
	x := line.X + line.Width/2
	switch line.Alignment {
	case models.AlignLeft:
		anchor = "start"
		x = line.X
	case models.AlignRight:
		anchor = "end"
		x = line.X + line.Width
	}

	weight := "400"
	if line.Bold {
		weight = "700"
	}
	style := "normal"
	if line.Italic {
		style = "italic"
	}
	deco := "none"
	if line.Underline {
		deco = "underline"
	}

	canvas.Text(x, line.Y, line.Text,
		fmt.Sprintf(`fill="%s"`, safeColor(line.Color)),
		fmt.Sprintf(`font-family="%s"`, safeAttr(line.FontFamily)),
		fmt.Sprintf(`font-size="%g"`, line.FontSize),
		fmt.Sprintf(`font-weight="%s"`, weight),
		fmt.Sprintf(`font-style="%s"`, style),
		fmt.Sprintf(`text-decoration="%s"`, deco),
		fmt.Sprintf(`text-anchor="%s"`, anchor))
}

// fallbackScene is the minimal valid scene returned when a real one cannot
// be produced: flat error-colored rectangle plus a short diagnostic label.
func fallbackScene(w, h float64, reason string) []byte {
	if w <= 0 || h <= 0 {
		w, h = 300, 100
	}

	var buf bytes.Buffer
	canvas := svg.New(&buf)
	canvas.Startview(w, h, 0, 0, w, h)
	canvas.Rect(0, 0, w, h, fmt.Sprintf(`fill="%s"`, errorSceneColor))
	canvas.Text(w/2, h/2, "render unavailable",
		fmt.Sprintf(`fill="%s"`, errorLabelColor),
		`font-family="sans-serif"`,
		`font-size="12"`,
		`text-anchor="middle"`)
	canvas.End()

	_ = reason // diagnostic only; not echoed into the scene
	return buf.Bytes()
}

func transformAttr(t clip.Transform) string {
	return fmt.Sprintf("translate(%g,%g) scale(%g)", t.Tx, t.Ty, t.Scale)
}

// safeAttr strips characters that could break out of an attribute value.
// svgo escapes text content itself; attribute values we interpolate are
// sanitized here.
func safeAttr(s string) string {
	r := strings.NewReplacer(`"`, "", "<", "", ">", "", "&", "")
	return r.Replace(s)
}

// safeColor sanitizes a color value for attribute interpolation.
func safeColor(c string) string {
	c = safeAttr(c)
	if c == "" {
		return models.DefaultTextColor
	}
	return c
}

// safeHref allows data URIs and http(s) references only.
func safeHref(src string) string {
	src = safeAttr(src)
	if strings.HasPrefix(src, "data:image/") ||
		strings.HasPrefix(src, "http://") ||
		strings.HasPrefix(src, "https://") {
		return src
	}
	return ""
}
