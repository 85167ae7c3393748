package handlers

import (
	"encoding/base64"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"

	"badge-studio/internal/assets"
	"badge-studio/internal/clip"
	"badge-studio/internal/fonts"
	"badge-studio/internal/layout"
	"badge-studio/internal/models"
	"badge-studio/internal/render"
	"badge-studio/internal/templates"
)

var startTime = time.Now()

const (
	defaultRenderWidth = 600
	thumbnailWidth     = 200
	defaultQuality     = 90
	maxBatchSize       = 500
)

var (
	provider *fonts.Provider
	initOnce sync.Once
)

// Init loads the measurement fonts once. Without them the layout engine falls
// back to the character-count width approximation, which is degraded but
// never fatal.
func Init() {
	initOnce.Do(func() {
		p, err := fonts.NewProvider()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: font provider unavailable, using approximate measurement: %v\n", err)
			return
		}
		provider = p
	})
}

// measurer adapts the nilable provider to the layout engine's interface.
// A typed nil *Provider must not leak into the interface value.
func measurer() layout.Measurer {
	if provider == nil {
		return nil
	}
	return provider
}

// HealthCheck handles health check requests
func HealthCheck(c *fiber.Ctx) error {
	return c.JSON(models.HealthResponse{
		Status:  "healthy",
		Version: "1.0.0",
		Uptime:  time.Since(startTime).String(),
	})
}

// GetCacheStats returns asset cache statistics
func GetCacheStats(c *fiber.Ctx) error {
	return c.JSON(assets.GetCacheStats())
}

// ClearCache clears all cached assets
func ClearCache(c *fiber.Ctx) error {
	assets.ClearCache()
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Cache cleared",
	})
}

// ListTemplates returns the template catalog
func ListTemplates(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"templates": templates.List(),
	})
}

// GetTemplate returns a single template by ID
func GetTemplate(c *fiber.Ctx) error {
	id := c.Params("id")
	for _, t := range templates.List() {
		if t.ID == id {
			return c.JSON(t)
		}
	}
	return c.Status(404).JSON(fiber.Map{
		"error": fmt.Sprintf("Unknown template %q", id),
	})
}

// TemplateProof renders a template's die outline as a PNG manufacturing proof
func TemplateProof(c *fiber.Ctx) error {
	id := c.Params("id")
	template := templates.ByID(id)
	geom := clip.Resolve(template, template.ArtboardWidth, template.ArtboardHeight)

	width := c.QueryInt("w", defaultRenderWidth)
	png, err := render.CutlineProof(geom, width)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{
			"error":   "Failed to render proof",
			"details": err.Error(),
		})
	}

	c.Set("Content-Type", "image/png")
	return c.Send(png)
}

// resolveBadge parses the request body and runs the layout pass. The line
// count is capped at the editor limit; extra lines are dropped silently.
func resolveBadge(c *fiber.Ctx, opts layout.Options) (models.Badge, models.Template, layout.BadgeLayout, clip.Geometry, error) {
	var req models.RenderBadgeRequest
	if err := c.BodyParser(&req); err != nil {
		return models.Badge{}, models.Template{}, layout.BadgeLayout{}, clip.Geometry{},
			fmt.Errorf("invalid request body: %w", err)
	}

	badge := req.Badge
	if len(badge.Lines) > models.MaxLines {
		badge.Lines = badge.Lines[:models.MaxLines]
	}

	template := templates.ByID(badge.TemplateID)
	l := layout.ComputeLayout(badge, template, measurer(), opts)
	geom := clip.Resolve(template, l.BadgeWidth, l.BadgeHeight)
	return badge, template, l, geom, nil
}

// ComputeBadgeLayout runs the layout pass and returns the resolved geometry
// plus validation diagnostics. ?unit=pt|px converts the output units.
func ComputeBadgeLayout(c *fiber.Ctx) error {
	_, _, l, _, err := resolveBadge(c, layout.Options{})
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": err.Error()})
	}

	validation := layout.Validate(l)
	if unit := c.Query("unit"); unit != "" {
		l = layout.ConvertUnits(l, unit)
	}

	return c.JSON(fiber.Map{
		"layout":     l,
		"validation": validation,
	})
}

// imageSources lists the image references a badge uses.
func imageSources(badge models.Badge) []string {
	var srcs []string
	if badge.BackgroundImage != nil && badge.BackgroundImage.Src != "" {
		srcs = append(srcs, badge.BackgroundImage.Src)
	}
	if badge.Logo != nil && badge.Logo.Src != "" {
		srcs = append(srcs, badge.Logo.Src)
	}
	return srcs
}

// hydrateImageDims fills in missing natural dimensions for positioned images
// so the vector scene can size them. Unreachable sources are left alone; the
// renderers fall back to artboard-sized placement.
func hydrateImageDims(badge *models.Badge) {
	for _, img := range []*models.BadgeImage{badge.BackgroundImage, badge.Logo} {
		if img == nil || img.Cover || img.Src == "" {
			continue
		}
		if img.Width > 0 && img.Height > 0 {
			continue
		}
		if w, h, err := assets.Dimensions(img.Src); err == nil {
			img.Width = float64(w)
			img.Height = float64(h)
		}
	}
}

// embedImages swaps remote image references for self-contained PNG data URIs.
// Sources that cannot be fetched keep their original reference.
func embedImages(badge *models.Badge) {
	for _, img := range []*models.BadgeImage{badge.BackgroundImage, badge.Logo} {
		if img == nil || img.Src == "" {
			continue
		}
		if uri, err := assets.DataURI(img.Src); err == nil {
			img.Src = uri
		}
	}
}

// PreviewSVG returns the editor preview scene with the safe-area guide
func PreviewSVG(c *fiber.Ctx) error {
	badge, template, l, geom, err := resolveBadge(c, layout.Options{})
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": err.Error()})
	}

	hydrateImageDims(&badge)
	out := render.Vector(badge, template, l, geom, render.VectorOptions{Preview: true})

	c.Set("Content-Type", "image/svg+xml")
	return c.Send(out)
}

// ExportSVG returns a production vector scene with all images embedded
func ExportSVG(c *fiber.Ctx) error {
	badge, template, l, geom, err := resolveBadge(c, layout.Options{})
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": err.Error()})
	}

	hydrateImageDims(&badge)
	embedImages(&badge)
	out := render.Vector(badge, template, l, geom, render.VectorOptions{})

	c.Set("Content-Type", "image/svg+xml")
	c.Set("Content-Disposition", "attachment; filename=badge.svg")
	return c.Send(out)
}

// rasterDims resolves the output pixel size from the query, defaulting the
// height from the artboard aspect ratio.
func rasterDims(c *fiber.Ctx, l layout.BadgeLayout, defaultWidth int) (int, int) {
	w := c.QueryInt("w", defaultWidth)
	if w <= 0 || w > 4096 {
		w = defaultWidth
	}
	h := c.QueryInt("h", 0)
	if h <= 0 || h > 4096 {
		h = int(float64(w) * l.BadgeHeight / l.BadgeWidth)
	}
	if h < 1 {
		h = 1
	}
	return w, h
}

// RenderRaster rasterizes a badge to PNG, JPEG or WebP
func RenderRaster(c *fiber.Ctx) error {
	format := c.Params("format", "png")

	badge, _, l, geom, err := resolveBadge(c, layout.Options{})
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": err.Error()})
	}

	w, h := rasterDims(c, l, defaultRenderWidth)
	images := assets.PreloadImages(imageSources(badge))

	img := render.Raster(l, badge, geom, provider, w, h, render.RasterOptions{
		Cutline: true,
		Images:  images,
	})

	data, mime, err := render.EncodeRaster(img, format, defaultQuality)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{
			"error":   "Failed to encode image",
			"details": err.Error(),
		})
	}

	c.Set("Content-Type", mime)
	return c.Send(data)
}

// Thumbnail renders a small PNG preview without the cutline overlay
func Thumbnail(c *fiber.Ctx) error {
	badge, _, l, geom, err := resolveBadge(c, layout.Options{})
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": err.Error()})
	}

	w, h := rasterDims(c, l, thumbnailWidth)
	images := assets.PreloadImages(imageSources(badge))

	img := render.Raster(l, badge, geom, provider, w, h, render.RasterOptions{
		Images: images,
	})

	data, mime, err := render.EncodeRaster(img, "png", defaultQuality)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{
			"error":   "Failed to encode thumbnail",
			"details": err.Error(),
		})
	}

	c.Set("Content-Type", mime)
	return c.Send(data)
}

// ExportPDF generates a print-ready PDF of a single badge
func ExportPDF(c *fiber.Ctx) error {
	badge, _, l, geom, err := resolveBadge(c, layout.Options{})
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": err.Error()})
	}

	hydrateImageDims(&badge)

	pdfImages := make(map[string][]byte)
	for _, src := range imageSources(badge) {
		if data, err := assets.PNGBytes(src); err == nil {
			pdfImages[src] = data
		}
	}

	pdfBytes, err := render.PDF(badge, l, geom, render.PDFOptions{Images: pdfImages})
	if err != nil {
		return c.Status(500).JSON(fiber.Map{
			"error":   "Failed to generate PDF",
			"details": err.Error(),
		})
	}

	// Check if client wants base64 or binary
	if c.Get("Accept") == "application/json" {
		return c.JSON(fiber.Map{
			"success":    true,
			"pdf_base64": base64.StdEncoding.EncodeToString(pdfBytes),
			"filename":   "badge.pdf",
		})
	}

	c.Set("Content-Type", "application/pdf")
	c.Set("Content-Disposition", "inline; filename=badge.pdf")
	return c.Send(pdfBytes)
}

// RenderBatch rasterizes multiple badges concurrently
func RenderBatch(c *fiber.Ctx) error {
	var req models.BatchRenderRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
	}

	if len(req.Badges) == 0 {
		return c.Status(400).JSON(fiber.Map{
			"error": "No badges provided",
		})
	}

	if len(req.Badges) > maxBatchSize {
		return c.Status(400).JSON(fiber.Map{
			"error": fmt.Sprintf("Maximum %d badges per batch", maxBatchSize),
		})
	}

	format := req.Format
	if format == "" {
		format = "png"
	}

	// Pre-fetch every referenced image once for the whole batch.
	var srcs []string
	for _, b := range req.Badges {
		srcs = append(srcs, imageSources(b)...)
	}
	images := assets.PreloadImages(srcs)

	results := make([]models.BadgeResult, len(req.Badges))
	var wg sync.WaitGroup
	sem := make(chan struct{}, 50) // Limit concurrency to 50

	for i, b := range req.Badges {
		wg.Add(1)
		go func(idx int, badge models.Badge) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			result := models.BadgeResult{Index: idx}

			if len(badge.Lines) > models.MaxLines {
				badge.Lines = badge.Lines[:models.MaxLines]
			}
			template := templates.ByID(badge.TemplateID)
			l := layout.ComputeLayout(badge, template, measurer(), layout.Options{})
			geom := clip.Resolve(template, l.BadgeWidth, l.BadgeHeight)

			w := req.Width
			if w <= 0 || w > 4096 {
				w = defaultRenderWidth
			}
			h := req.Height
			if h <= 0 || h > 4096 {
				h = int(float64(w) * l.BadgeHeight / l.BadgeWidth)
			}
			if h < 1 {
				h = 1
			}

			img := render.Raster(l, badge, geom, provider, w, h, render.RasterOptions{
				Cutline: true,
				Images:  images,
			})

			data, _, err := render.EncodeRaster(img, format, defaultQuality)
			if err != nil {
				result.Success = false
				result.Error = err.Error()
			} else {
				result.Success = true
				result.LayoutHash = l.LayoutHash
				result.ImageBase64 = base64.StdEncoding.EncodeToString(data)
			}

			results[idx] = result
		}(i, b)
	}

	wg.Wait()

	successCount := 0
	for _, r := range results {
		if r.Success {
			successCount++
		}
	}

	return c.JSON(models.BatchRenderResponse{
		Success: successCount == len(results),
		Total:   len(results),
		Results: results,
	})
}
