package templates

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"badge-studio/internal/models"
)

// The registry is loaded once from a static catalog and never mutated after
// that. Lookups are total: an unknown or empty id resolves to the canonical
// fallback rectangle instead of failing, so a stale templateId stored with an
// old design keeps rendering.

var (
	catalog []models.Template
	once    sync.Once
)

// Fallback is the canonical default template returned for unknown ids.
func Fallback() models.Template {
	return models.Template{
		ID:             "rect-1x3",
		Name:           "Rectangle 1×3",
		ArtboardWidth:  300,
		ArtboardHeight: 100,
		SafeInset:      6,
		Mask:           models.TemplateMask{Type: models.MaskRect, RX: 4, RY: 4},
	}
}

// builtinCatalog mirrors the shapes shipped with the hosted template set.
func builtinCatalog() []models.Template {
	return []models.Template{
		Fallback(),
		{
			ID:             "oval-1x3",
			Name:           "Oval 1×3",
			ArtboardWidth:  300,
			ArtboardHeight: 100,
			SafeInset:      6,
			Mask:           models.TemplateMask{Type: models.MaskEllipse},
		},
		{
			ID:             "circle-2",
			Name:           "Circle 2in",
			ArtboardWidth:  200,
			ArtboardHeight: 200,
			SafeInset:      8,
			Mask:           models.TemplateMask{Type: models.MaskEllipse},
		},
		{
			ID:             "star-2",
			Name:           "Star 2in",
			ArtboardWidth:  200,
			ArtboardHeight: 200,
			SafeInset:      8,
			Mask: models.TemplateMask{
				Type:          models.MaskPath,
				D:             "M50 0 L61 35 L98 35 L68 57 L79 91 L50 70 L21 91 L32 57 L2 35 L39 35 Z",
				SourceViewBox: []float64{0, 0, 100, 100},
			},
		},
		{
			ID:             "shield-2x3",
			Name:           "Shield 2×3",
			ArtboardWidth:  200,
			ArtboardHeight: 300,
			SafeInset:      10,
			Mask: models.TemplateMask{
				Type:          models.MaskPath,
				D:             "M50 0 L100 20 L100 70 C100 100 80 120 50 140 C20 120 0 100 0 70 L0 20 Z",
				SourceViewBox: []float64{0, 0, 100, 140},
			},
		},
	}
}

// Init loads the catalog. When catalogPath is non-empty and readable it
// replaces the built-in set; otherwise the built-ins are used. Safe to call
// more than once, only the first call loads.
func Init(catalogPath string) {
	once.Do(func() {
		catalog = builtinCatalog()

		if catalogPath == "" {
			return
		}

		data, err := os.ReadFile(catalogPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "templates: cannot read catalog %s, using built-ins: %v\n", catalogPath, err)
			return
		}

		var file struct {
			Templates []models.Template `json:"templates"`
		}
		if err := json.Unmarshal(data, &file.Templates); err != nil {
			// Also accept the wrapped {"templates": [...]} form.
			if err2 := json.Unmarshal(data, &file); err2 != nil {
				fmt.Fprintf(os.Stderr, "templates: invalid catalog %s, using built-ins: %v\n", catalogPath, err)
				return
			}
		}
		if len(file.Templates) == 0 {
			fmt.Fprintf(os.Stderr, "templates: empty catalog %s, using built-ins\n", catalogPath)
			return
		}
		catalog = file.Templates
	})
}

// List returns all templates in catalog order.
func List() []models.Template {
	Init("")
	out := make([]models.Template, len(catalog))
	copy(out, catalog)
	return out
}

// ByID resolves a template id. Unknown or empty ids resolve to the canonical
// fallback; this never fails.
func ByID(id string) models.Template {
	Init("")
	for _, t := range catalog {
		if t.ID == id {
			return t
		}
	}
	return Fallback()
}
