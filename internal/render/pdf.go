package render

import (
	"bytes"
	"crypto/md5"
	"fmt"

	"github.com/jung-kurt/gofpdf"

	"badge-studio/internal/clip"
	"badge-studio/internal/layout"
	"badge-studio/internal/models"
)

// PDFOptions control print PDF output.
type PDFOptions struct {
	// Images holds pre-fetched PNG bytes keyed by BadgeImage.Src.
	Images map[string][]byte
}

// serif catalog families map to the Times core font; everything else prints
// with Helvetica. Print-exact font embedding is an external concern.
var serifFamilies = map[string]bool{
	"Merriweather": true,
	"Noto Serif":   true,
	"Georgia":      true,
}

// PDF renders the resolved layout as a print-ready PDF page sized exactly to
// the badge, in points. Unlike the preview renderers this path fails loudly:
// a corrupted export must never be presented as successful.
func PDF(badge models.Badge, l layout.BadgeLayout, geom clip.Geometry, opts PDFOptions) ([]byte, error) {
	if l.BadgeWidth <= 0 || l.BadgeHeight <= 0 {
		return nil, fmt.Errorf("invalid badge dimensions %gx%g", l.BadgeWidth, l.BadgeHeight)
	}

	// The page lives in points; geometry converts from artboard units here
	// rather than via ConvertUnits so clip math keeps full precision.
	const ptScale = 0.75
	pageW := l.BadgeWidth * ptScale
	pageH := l.BadgeHeight * ptScale

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           gofpdf.SizeType{Wd: pageW, Ht: pageH},
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()

	clipPDF(pdf, geom, ptScale, pageW, pageH)

	// Background fill under everything.
	bg := parseHexColor(l.BackgroundColor, white)
	pdf.SetFillColor(int(bg.R), int(bg.G), int(bg.B))
	pdf.Rect(0, 0, pageW, pageH, "F")

	if badge.BackgroundImage != nil {
		drawPDFImage(pdf, *badge.BackgroundImage, opts.Images, pageW, pageH, ptScale)
	}
	if badge.Logo != nil {
		drawPDFImage(pdf, *badge.Logo, opts.Images, pageW, pageH, ptScale)
	}

	tr := pdf.UnicodeTranslatorFromDescriptor("")
	for _, line := range l.Lines {
		if line.Text == "" {
			continue
		}

		family := "helvetica"
		if serifFamilies[line.FontFamily] {
			family = "times"
		}
		style := ""
		if line.Bold {
			style += "B"
		}
		if line.Italic {
			style += "I"
		}
		if line.Underline {
			style += "U"
		}

		pdf.SetFont(family, style, line.FontSize*ptScale)
		c := parseHexColor(line.Color, black)
		pdf.SetTextColor(int(c.R), int(c.G), int(c.B))
		pdf.Text(line.X*ptScale, line.Y*ptScale, tr(line.Text))
	}

	pdf.ClipEnd()

	strokeCutlinePDF(pdf, geom, ptScale)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to output PDF: %w", err)
	}
	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("pdf generation failed: %w", err)
	}
	return buf.Bytes(), nil
}

// clipPDF opens the clip region matching the resolved geometry. Path masks
// flatten through the shared scanner; gofpdf has no native path clipping.
func clipPDF(pdf *gofpdf.Fpdf, geom clip.Geometry, ptScale, pageW, pageH float64) {
	b := geom.Bounds

	switch geom.Kind {
	case clip.KindEllipse:
		pdf.ClipEllipse((b.X+b.W/2)*ptScale, (b.Y+b.H/2)*ptScale, b.W/2*ptScale, b.H/2*ptScale, false)

	case clip.KindPath:
		if points, ok := geom.Outline(ptScale, ptScale); ok {
			pdf.ClipPolygon(toPDFPoints(points), false)
			return
		}
		pdf.ClipRect(0, 0, pageW, pageH, false)

	default:
		r := geom.RX * ptScale
		if r > 0 {
			pdf.ClipRoundedRect(b.X*ptScale, b.Y*ptScale, b.W*ptScale, b.H*ptScale, r, false)
		} else {
			pdf.ClipRect(b.X*ptScale, b.Y*ptScale, b.W*ptScale, b.H*ptScale, false)
		}
	}
}

// strokeCutlinePDF traces the clip boundary after the clip has been closed,
// so the manufacturing guide survives on top of the artwork.
func strokeCutlinePDF(pdf *gofpdf.Fpdf, geom clip.Geometry, ptScale float64) {
	pdf.SetDrawColor(195, 79, 79)
	pdf.SetLineWidth(cutlineWidth * ptScale)

	b := geom.Bounds
	switch geom.Kind {
	case clip.KindEllipse:
		pdf.Ellipse((b.X+b.W/2)*ptScale, (b.Y+b.H/2)*ptScale, b.W/2*ptScale, b.H/2*ptScale, 0, "D")

	case clip.KindPath:
		if points, ok := geom.Outline(ptScale, ptScale); ok {
			pdf.Polygon(toPDFPoints(points), "D")
		}

	default:
		r := geom.RX * ptScale
		if r > 0 {
			pdf.RoundedRect(b.X*ptScale, b.Y*ptScale, b.W*ptScale, b.H*ptScale, r, "1234", "D")
		} else {
			pdf.Rect(b.X*ptScale, b.Y*ptScale, b.W*ptScale, b.H*ptScale, "D")
		}
	}
}

// drawPDFImage registers pre-fetched PNG bytes and places them with the
// shared placement rules.
func drawPDFImage(pdf *gofpdf.Fpdf, img models.BadgeImage, images map[string][]byte, pageW, pageH, ptScale float64) {
	data, ok := images[img.Src]
	if !ok || len(data) == 0 {
		return
	}

	hash := md5.Sum([]byte(img.Src))
	name := fmt.Sprintf("img_%x", hash[:8])

	info := pdf.RegisterImageOptionsReader(name, gofpdf.ImageOptions{ImageType: "PNG"}, bytes.NewReader(data))
	if info == nil {
		return
	}

	if img.Cover {
		pdf.ImageOptions(name, 0, 0, pageW, pageH, false, gofpdf.ImageOptions{ImageType: "PNG"}, 0, "")
		return
	}

	scale := img.Scale
	if scale <= 0 {
		scale = 1
	}
	// With pt units gofpdf reports intrinsic size in pixels, which equal
	// artboard units at scale 1.
	w := info.Width() * scale * ptScale
	h := info.Height() * scale * ptScale
	pdf.ImageOptions(name, img.X*ptScale, img.Y*ptScale, w, h, false, gofpdf.ImageOptions{ImageType: "PNG"}, 0, "")
}

func toPDFPoints(points []clip.Point) []gofpdf.PointType {
	out := make([]gofpdf.PointType, len(points))
	for i, p := range points {
		out[i] = gofpdf.PointType{X: p.X, Y: p.Y}
	}
	return out
}
