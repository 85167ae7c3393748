package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"math"
	"strconv"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"

	"badge-studio/internal/clip"
	"badge-studio/internal/fonts"
	"badge-studio/internal/layout"
	"badge-studio/internal/models"
)

// RasterOptions control raster output.
type RasterOptions struct {
	// Cutline draws the die outline stroke at a fixed visual weight.
	Cutline bool
	// Images holds pre-decoded pixels keyed by BadgeImage.Src. Decoding is
	// the caller's concern; missing entries are skipped.
	Images map[string]image.Image
}

// Raster replays a resolved layout onto a pixel canvas of the requested
// size. The layout is never recomputed here: only the raster scale changes
// between a thumbnail and a full-resolution rendition, so both stay visually
// consistent with the vector scene. Never fails; any drawing panic produces
// the placeholder image.
func Raster(l layout.BadgeLayout, badge models.Badge, geom clip.Geometry, provider *fonts.Provider, widthPx, heightPx int, opts RasterOptions) (out image.Image) {
	if widthPx <= 0 || heightPx <= 0 {
		widthPx, heightPx = 300, 100
	}

	defer func() {
		if r := recover(); r != nil {
			out = Placeholder(l.BackgroundColor, widthPx, heightPx, provider)
		}
	}()

	if l.BadgeWidth <= 0 || l.BadgeHeight <= 0 {
		return Placeholder(l.BackgroundColor, widthPx, heightPx, provider)
	}

	sx := float64(widthPx) / l.BadgeWidth
	sy := float64(heightPx) / l.BadgeHeight

	dc := gg.NewContext(widthPx, heightPx)

	// Confine everything to the die shape.
	traceClipShape(dc, geom, sx, sy)
	dc.Clip()

	// Background fill.
	dc.SetColor(parseHexColor(l.BackgroundColor, white))
	dc.DrawRectangle(0, 0, float64(widthPx), float64(heightPx))
	dc.Fill()

	// Image layers: background first, logo always above it.
	if badge.BackgroundImage != nil {
		drawRasterImage(dc, *badge.BackgroundImage, opts.Images, widthPx, heightPx, sx, sy)
	}
	if badge.Logo != nil {
		drawRasterImage(dc, *badge.Logo, opts.Images, widthPx, heightPx, sx, sy)
	}

	// Text layer, scaled from the same layout the vector renderer consumed.
	for _, line := range l.Lines {
		drawRasterLine(dc, line, provider, sx, sy)
	}

	dc.ResetClip()

	if opts.Cutline {
		traceClipShape(dc, geom, sx, sy)
		dc.SetColor(parseHexColor(cutlineColor, color.NRGBA{195, 79, 79, 255}))
		dc.SetLineWidth(cutlineWidth) // fixed weight, independent of scale
		dc.Stroke()
	}

	return dc.Image()
}

// traceClipShape builds the clip boundary as the current gg path, scaled
// per axis. Path masks replay through the shared path scanner with the same
// placement transform the vector renderer uses.
func traceClipShape(dc *gg.Context, geom clip.Geometry, sx, sy float64) {
	b := geom.Bounds

	switch geom.Kind {
	case clip.KindEllipse:
		dc.DrawEllipse((b.X+b.W/2)*sx, (b.Y+b.H/2)*sy, b.W/2*sx, b.H/2*sy)

	case clip.KindPath:
		sink := &ggSink{dc: dc, transform: geom.Transform, sx: sx, sy: sy}
		if err := clip.WalkPath(geom.PathD, sink); err != nil {
			dc.ClearPath()
			dc.DrawRectangle(b.X*sx, b.Y*sy, b.W*sx, b.H*sy)
			return
		}
		dc.ClosePath()

	default:
		r := geom.RX * math.Min(sx, sy)
		if r > 0 {
			dc.DrawRoundedRectangle(b.X*sx, b.Y*sy, b.W*sx, b.H*sy, r)
		} else {
			dc.DrawRectangle(b.X*sx, b.Y*sy, b.W*sx, b.H*sy)
		}
	}
}

// ggSink feeds scanner output into a gg path, applying the clip placement
// transform and the raster scale.
type ggSink struct {
	dc        *gg.Context
	transform clip.Transform
	sx, sy    float64
}

func (s *ggSink) point(x, y float64) (float64, float64) {
	ax, ay := s.transform.Apply(x, y)
	return ax * s.sx, ay * s.sy
}

func (s *ggSink) MoveTo(x, y float64) {
	px, py := s.point(x, y)
	s.dc.MoveTo(px, py)
}

func (s *ggSink) LineTo(x, y float64) {
	px, py := s.point(x, y)
	s.dc.LineTo(px, py)
}

func (s *ggSink) QuadTo(cx, cy, x, y float64) {
	pcx, pcy := s.point(cx, cy)
	px, py := s.point(x, y)
	s.dc.QuadraticTo(pcx, pcy, px, py)
}

func (s *ggSink) CubicTo(c1x, c1y, c2x, c2y, x, y float64) {
	p1x, p1y := s.point(c1x, c1y)
	p2x, p2y := s.point(c2x, c2y)
	px, py := s.point(x, y)
	s.dc.CubicTo(p1x, p1y, p2x, p2y, px, py)
}

func (s *ggSink) Close() {
	s.dc.ClosePath()
}

// drawRasterImage draws one image layer with the same placement rules as the
// vector renderer: cover fills the artboard, positioned images are top-left
// anchored with explicit translate and scale.
func drawRasterImage(dc *gg.Context, img models.BadgeImage, decoded map[string]image.Image, widthPx, heightPx int, sx, sy float64) {
	pixels, ok := decoded[img.Src]
	if !ok || pixels == nil {
		return
	}

	if img.Cover {
		filled := imaging.Fill(pixels, widthPx, heightPx, imaging.Center, imaging.Lanczos)
		dc.DrawImage(filled, 0, 0)
		return
	}

	scale := img.Scale
	if scale <= 0 {
		scale = 1
	}
	b := pixels.Bounds()
	targetW := int(math.Round(float64(b.Dx()) * scale * sx))
	targetH := int(math.Round(float64(b.Dy()) * scale * sy))
	if targetW < 1 || targetH < 1 {
		return
	}

	resized := imaging.Resize(pixels, targetW, targetH, imaging.Lanczos)
	dc.DrawImage(resized, int(math.Round(img.X*sx)), int(math.Round(img.Y*sy)))
}

// drawRasterLine draws one text line with scaled position and font size.
func drawRasterLine(dc *gg.Context, line layout.TextLineLayout, provider *fonts.Provider, sx, sy float64) {
	if line.Text == "" {
		return
	}

	if provider == nil {
		return
	}
	size := line.FontSize * sy
	face := provider.Face(line.FontFamily, line.Bold, line.Italic, size)
	if face == nil {
		return
	}
	dc.SetFontFace(face)
	dc.SetColor(parseHexColor(line.Color, black))

	var x, ax float64
	switch line.Alignment {
	case models.AlignLeft:
		x, ax = line.X*sx, 0
	case models.AlignRight:
		x, ax = (line.X+line.Width)*sx, 1
	default:
		x, ax = (line.X+line.Width/2)*sx, 0.5
	}
	y := line.Y * sy

	// ay=0 anchors at the baseline, matching the layout's y semantics.
	dc.DrawStringAnchored(line.Text, x, y, ax, 0)

	if line.Underline {
		thickness := math.Max(1, size*0.06)
		dc.SetLineWidth(thickness)
		dc.DrawLine(line.X*sx, y+thickness+1, (line.X+line.Width)*sx, y+thickness+1)
		dc.Stroke()
	}
}

// Placeholder is the minimal image used when rendering or encoding fails:
// the badge's background color plus a generic label. The caller always gets
// an image, never nothing.
func Placeholder(backgroundColor string, widthPx, heightPx int, provider *fonts.Provider) image.Image {
	if widthPx <= 0 || heightPx <= 0 {
		widthPx, heightPx = 300, 100
	}

	dc := gg.NewContext(widthPx, heightPx)
	dc.SetColor(parseHexColor(backgroundColor, white))
	dc.Clear()

	if provider != nil {
		if face := provider.Face(fonts.DefaultFamily, false, false, 12); face != nil {
			dc.SetFontFace(face)
			dc.SetColor(contrastColor(backgroundColor))
			dc.DrawStringAnchored("Custom Badge", float64(widthPx)/2, float64(heightPx)/2, 0.5, 0.35)
		}
	}

	return dc.Image()
}

// ============ ENCODING ============

// EncodeRaster encodes pixels as png, jpeg or webp. On an encoder failure it
// retries once at reduced quality, then falls back to encoding the
// placeholder; the returned error is non-nil only when even that fails.
func EncodeRaster(img image.Image, format string, quality int) ([]byte, string, error) {
	if quality <= 0 || quality > 100 {
		quality = 90
	}

	data, mime, err := encodeOnce(img, format, quality)
	if err == nil {
		return data, mime, nil
	}

	// Retry at reduced quality before giving up on the format.
	data, mime, err = encodeOnce(img, format, 50)
	if err == nil {
		return data, mime, nil
	}

	data, mime, err = encodeOnce(Placeholder(models.DefaultBackgroundColor, 300, 100, nil), "png", 50)
	if err != nil {
		return nil, "", fmt.Errorf("failed to encode raster output: %w", err)
	}
	return data, mime, nil
}

func encodeOnce(img image.Image, format string, quality int) ([]byte, string, error) {
	var buf bytes.Buffer

	switch strings.ToLower(format) {
	case "jpg", "jpeg":
		if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
			return nil, "", err
		}
		return buf.Bytes(), "image/jpeg", nil

	case "webp":
		if err := webp.Encode(&buf, img, &webp.Options{Quality: float32(quality)}); err != nil {
			return nil, "", err
		}
		return buf.Bytes(), "image/webp", nil

	default:
		if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
			return nil, "", err
		}
		return buf.Bytes(), "image/png", nil
	}
}

// ============ COLOR HELPERS ============

var (
	white = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	black = color.NRGBA{A: 255}
)

// parseHexColor parses #RGB / #RRGGBB values, returning fallback for
// anything else.
func parseHexColor(s string, fallback color.NRGBA) color.NRGBA {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return fallback
	}

	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return fallback
	}
	return color.NRGBA{
		R: uint8(v >> 16),
		G: uint8(v >> 8),
		B: uint8(v),
		A: 255,
	}
}

// contrastColor picks black or white text against a background color.
func contrastColor(background string) color.NRGBA {
	bg := parseHexColor(background, white)
	// Perceived luminance, ITU-R BT.601 weights.
	lum := 0.299*float64(bg.R) + 0.587*float64(bg.G) + 0.114*float64(bg.B)
	if lum > 140 {
		return black
	}
	return white
}
