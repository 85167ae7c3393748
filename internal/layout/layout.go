package layout

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"

	"badge-studio/internal/fonts"
	"badge-studio/internal/models"
)

// Measurer is the injected text measurement capability. Width is returned in
// artboard units. Implementations must be deterministic for fixed inputs; the
// font-size search depends on that.
type Measurer interface {
	MeasureWidth(text string, fontSize float64, fontFamily string, bold, italic bool) float64
}

// approxMeasurer is the degraded measurement used when no provider is
// injected. It keeps the engine total rather than accurate.
type approxMeasurer struct{}

func (approxMeasurer) MeasureWidth(text string, fontSize float64, _ string, _, _ bool) float64 {
	return fonts.ApproxWidth(text, fontSize)
}

// Options control the layout pass. The zero value means "use defaults".
type Options struct {
	MinFontSize   float64
	MaxFontSize   float64
	Padding       float64 // horizontal inset from the artboard edge
	LineGap       float64 // vertical gap between consecutive lines
	ForceFontSize bool    // skip auto-shrink, measure at the requested size
}

func (o Options) withDefaults() Options {
	if o.MinFontSize <= 0 {
		o.MinFontSize = models.MinFontSize
	}
	if o.MaxFontSize <= 0 {
		o.MaxFontSize = models.MaxFontSize
	}
	if o.Padding <= 0 {
		o.Padding = 14
	}
	if o.LineGap <= 0 {
		o.LineGap = 6
	}
	return o
}

// TextLineLayout is one resolved line: final font size and artboard-space
// geometry, plus the styling carried over from the source line.
type TextLineLayout struct {
	Text       string           `json:"text"`
	FontSize   float64          `json:"fontSize"`
	X          float64          `json:"x"`
	Y          float64          `json:"y"` // baseline position
	Width      float64          `json:"width"`
	Height     float64          `json:"height"`
	FontFamily string           `json:"fontFamily"`
	Bold       bool             `json:"bold"`
	Italic     bool             `json:"italic"`
	Underline  bool             `json:"underline"`
	Alignment  models.TextAlign `json:"alignment"`
	Color      string           `json:"color"`
	Source     int              `json:"source"` // index into badge.Lines
}

// BadgeLayout is the fully resolved, ready-to-render geometry. It is produced
// fresh per request and never mutated afterwards.
type BadgeLayout struct {
	Lines           []TextLineLayout `json:"lines"`
	TotalHeight     float64          `json:"totalHeight"`
	LayoutHash      string           `json:"layoutHash"`
	BadgeWidth      float64          `json:"badgeWidth"`
	BadgeHeight     float64          `json:"badgeHeight"`
	Padding         float64          `json:"padding"`
	BackgroundColor string           `json:"backgroundColor"`
}

// fitTextIntoLine resolves the font size for a single line: start at the
// requested size (capped at the maximum) and shrink one unit at a time until
// the measured width fits or the floor is hit. Shrinking never grows a line
// past what the user asked for, even when there is slack.
func fitTextIntoLine(text string, maxWidth float64, line models.BadgeLine, m Measurer, opts Options) (fontSize, width float64) {
	family := fonts.NormalizeFamily(line.FontFamily)

	fontSize = models.NormalizeSize(line.Size)
	if fontSize > opts.MaxFontSize {
		fontSize = opts.MaxFontSize
	}

	if opts.ForceFontSize {
		return fontSize, m.MeasureWidth(text, fontSize, family, line.Bold, line.Italic)
	}

	width = m.MeasureWidth(text, fontSize, family, line.Bold, line.Italic)
	for width > maxWidth && fontSize > opts.MinFontSize {
		fontSize--
		width = m.MeasureWidth(text, fontSize, family, line.Bold, line.Italic)
	}
	return fontSize, width
}

// ComputeLayout maps a badge and its template to a resolved layout. It is a
// pure function of its inputs: identical calls yield identical layouts,
// including the hash. It never fails; malformed line values normalize to
// defaults and a nil measurer degrades to the width approximation.
func ComputeLayout(badge models.Badge, template models.Template, m Measurer, opts Options) BadgeLayout {
	opts = opts.withDefaults()
	if m == nil {
		m = approxMeasurer{}
	}

	badgeWidth := template.ArtboardWidth
	badgeHeight := template.ArtboardHeight
	if badgeWidth <= 0 || badgeHeight <= 0 {
		badgeWidth, badgeHeight = 300, 100
	}
	availableWidth := badgeWidth - 2*opts.Padding

	lines := make([]TextLineLayout, 0, len(badge.Lines))
	totalHeight := 0.0

	for i, src := range badge.Lines {
		cleanText := models.CleanLineText(src.Text)
		alignment := models.NormalizeAlignment(src.Alignment)
		family := fonts.NormalizeFamily(src.FontFamily)
		color := src.Color
		if color == "" {
			color = models.DefaultTextColor
		}

		if cleanText == "" {
			// Empty lines keep their slot and vertical space so spacing
			// stays stable while the user edits.
			lines = append(lines, TextLineLayout{
				FontSize:   opts.MinFontSize,
				X:          opts.Padding,
				Width:      0,
				Height:     opts.MinFontSize * models.LineHeightMultiplier,
				FontFamily: family,
				Bold:       src.Bold,
				Italic:     src.Italic,
				Underline:  src.Underline,
				Alignment:  alignment,
				Color:      color,
				Source:     i,
			})
			continue
		}

		fontSize, width := fitTextIntoLine(cleanText, availableWidth, src, m, opts)

		var x float64
		switch alignment {
		case models.AlignLeft:
			x = opts.Padding
		case models.AlignRight:
			x = badgeWidth - opts.Padding - width
		default:
			x = opts.Padding + (availableWidth-width)/2
		}

		lines = append(lines, TextLineLayout{
			Text:       cleanText,
			FontSize:   fontSize,
			X:          x,
			Width:      width,
			Height:     fontSize * models.LineHeightMultiplier,
			FontFamily: family,
			Bold:       src.Bold,
			Italic:     src.Italic,
			Underline:  src.Underline,
			Alignment:  alignment,
			Color:      color,
			Source:     i,
		})
	}

	for _, l := range lines {
		totalHeight += l.Height
	}
	if len(lines) > 1 {
		totalHeight += opts.LineGap * float64(len(lines)-1)
	}

	// Center the stacked block vertically; each line's y is a baseline,
	// approximated at 0.7 of the font size below its box top.
	cursor := (badgeHeight - totalHeight) / 2
	for i := range lines {
		lines[i].Y = cursor + lines[i].FontSize*0.7
		cursor += lines[i].Height + opts.LineGap
	}

	backgroundColor := badge.BackgroundColor
	if backgroundColor == "" {
		backgroundColor = models.DefaultBackgroundColor
	}

	return BadgeLayout{
		Lines:           lines,
		TotalHeight:     totalHeight,
		LayoutHash:      layoutHash(badge),
		BadgeWidth:      badgeWidth,
		BadgeHeight:     badgeHeight,
		Padding:         opts.Padding,
		BackgroundColor: backgroundColor,
	}
}

// layoutHash fingerprints every layout-affecting input. It changes if and
// only if one of those fields changes, which is what render caches key on.
func layoutHash(badge models.Badge) string {
	type hashLine struct {
		Text       string           `json:"text"`
		Size       float64          `json:"size"`
		Color      string           `json:"color"`
		Bold       bool             `json:"bold"`
		Italic     bool             `json:"italic"`
		FontFamily string           `json:"fontFamily"`
		Alignment  models.TextAlign `json:"alignment"`
	}
	type hashInput struct {
		BackgroundColor string     `json:"backgroundColor"`
		Lines           []hashLine `json:"lines"`
		Version         string     `json:"version"`
	}

	in := hashInput{BackgroundColor: badge.BackgroundColor, Version: "1.0"}
	for _, l := range badge.Lines {
		in.Lines = append(in.Lines, hashLine{
			Text:       l.Text,
			Size:       l.Size,
			Color:      l.Color,
			Bold:       l.Bold,
			Italic:     l.Italic,
			FontFamily: l.FontFamily,
			Alignment:  l.Alignment,
		})
	}

	data, err := json.Marshal(in)
	if err != nil {
		return "0000000000000000"
	}
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])[:16]
}

// Validation is the non-fatal diagnostic result of Validate.
type Validation struct {
	Valid  bool     `json:"valid"`
	Issues []string `json:"issues"`
}

// Validate flags layouts that may clip. It never fails; callers decide
// whether to warn the user or proceed ("always allow, warn only").
func Validate(l BadgeLayout) Validation {
	var issues []string

	if l.TotalHeight > l.BadgeHeight {
		issues = append(issues, fmt.Sprintf(
			"total text height (%.1f) exceeds badge height (%.1f), text may clip vertically",
			l.TotalHeight, l.BadgeHeight))
	}

	for i, line := range l.Lines {
		if line.X+line.Width > l.BadgeWidth-l.Padding+0.5 {
			issues = append(issues, fmt.Sprintf(
				"line %d width (%.1f) exceeds the available width", i+1, line.Width))
		}
	}

	return Validation{Valid: len(issues) == 0, Issues: issues}
}

// Unit conversion factors between reference pixels and points.
const (
	pxToPt = 0.75
	ptToPx = 4.0 / 3.0
)

// ConvertUnits returns a copy of the layout with every geometric field scaled
// to the target unit ("pt" or "px") and rounded per field. This is a display
// and export convenience; clip math always runs on the original layout.
func ConvertUnits(l BadgeLayout, targetUnit string) BadgeLayout {
	var factor float64
	switch targetUnit {
	case "pt":
		factor = pxToPt
	case "px":
		factor = ptToPx
	default:
		factor = 1
	}

	round := func(v float64) float64 { return math.Round(v * factor) }

	out := l
	out.Lines = make([]TextLineLayout, len(l.Lines))
	for i, line := range l.Lines {
		line.FontSize = round(line.FontSize)
		line.X = round(line.X)
		line.Y = round(line.Y)
		line.Width = round(line.Width)
		line.Height = round(line.Height)
		out.Lines[i] = line
	}
	out.TotalHeight = round(l.TotalHeight)
	out.BadgeWidth = round(l.BadgeWidth)
	out.BadgeHeight = round(l.BadgeHeight)
	out.Padding = round(l.Padding)
	return out
}
