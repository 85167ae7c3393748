package render

import (
	"bytes"
	"fmt"
	"image"

	svg "github.com/ajstarks/svgo/float"
	"github.com/disintegration/imaging"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"

	"badge-studio/internal/clip"
)

// CutlineProofSVG builds a shape-only scene of the die: white artboard plus
// the cutline stroke. No text or images, so it survives any SVG rasterizer.
func CutlineProofSVG(geom clip.Geometry) []byte {
	var buf bytes.Buffer
	canvas := svg.New(&buf)
	w, h := geom.Bounds.W, geom.Bounds.H
	canvas.Startview(w, h, 0, 0, w, h)
	canvas.Rect(0, 0, w, h, `fill="#FFFFFF"`)
	drawCutline(canvas, geom)
	canvas.End()
	return buf.Bytes()
}

// CutlineProof rasterizes the die outline to PNG bytes at the requested
// pixel width, preserving the artboard aspect ratio. Used as a
// manufacturing proof for a template's physical shape.
func CutlineProof(geom clip.Geometry, widthPx int) ([]byte, error) {
	if widthPx <= 0 {
		widthPx = 600
	}
	if geom.Bounds.W <= 0 || geom.Bounds.H <= 0 {
		return nil, fmt.Errorf("invalid proof geometry")
	}

	svgData := CutlineProofSVG(geom)

	icon, err := oksvg.ReadIconStream(bytes.NewReader(svgData))
	if err != nil {
		return nil, fmt.Errorf("failed to parse proof scene: %w", err)
	}

	heightPx := int(float64(widthPx) * geom.Bounds.H / geom.Bounds.W)
	if heightPx < 1 {
		heightPx = 1
	}

	img := image.NewRGBA(image.Rect(0, 0, widthPx, heightPx))
	icon.SetTarget(0, 0, float64(widthPx), float64(heightPx))

	scanner := rasterx.NewScannerGV(widthPx, heightPx, img, img.Bounds())
	raster := rasterx.NewDasher(widthPx, heightPx, scanner)
	icon.Draw(raster, 1.0)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode proof PNG: %w", err)
	}
	return buf.Bytes(), nil
}
