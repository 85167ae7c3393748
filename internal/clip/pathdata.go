package clip

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Minimal SVG path-data scanner. Template masks arrive as path strings from
// die-cut source files; the resolver needs their bounding box and the
// renderers need the geometry replayed into their own drawing primitives.
// Supported commands: M L H V C S Q T Z in absolute and relative form.
// Arcs degrade to a straight line to the arc endpoint.

// Sink receives path commands with absolute coordinates.
type Sink interface {
	MoveTo(x, y float64)
	LineTo(x, y float64)
	QuadTo(cx, cy, x, y float64)
	CubicTo(c1x, c1y, c2x, c2y, x, y float64)
	Close()
}

// tokenize splits path data into command letters and numbers.
func tokenize(d string) ([]string, error) {
	var tokens []string
	var num strings.Builder

	flush := func() {
		if num.Len() > 0 {
			tokens = append(tokens, num.String())
			num.Reset()
		}
	}

	for _, r := range d {
		switch {
		case r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z':
			flush()
			tokens = append(tokens, string(r))
		case r == '-' || r == '+':
			// A sign starts a new number unless it follows an exponent.
			s := num.String()
			if num.Len() > 0 && !strings.HasSuffix(s, "e") && !strings.HasSuffix(s, "E") {
				flush()
			}
			num.WriteRune(r)
		case r == '.':
			// A second dot starts a new number ("1.5.5" is "1.5 .5").
			if strings.Contains(num.String(), ".") {
				flush()
			}
			num.WriteRune(r)
		case r >= '0' && r <= '9' || r == 'e' || r == 'E':
			num.WriteRune(r)
		case r == ',' || r == ' ' || r == '\t' || r == '\n' || r == '\r':
			flush()
		default:
			return nil, fmt.Errorf("unexpected character %q in path data", r)
		}
	}
	flush()
	return tokens, nil
}

type pathScanner struct {
	tokens []string
	pos    int
}

func (s *pathScanner) next() (string, bool) {
	if s.pos >= len(s.tokens) {
		return "", false
	}
	t := s.tokens[s.pos]
	s.pos++
	return t, true
}

func (s *pathScanner) peekIsNumber() bool {
	if s.pos >= len(s.tokens) {
		return false
	}
	_, err := strconv.ParseFloat(s.tokens[s.pos], 64)
	return err == nil
}

func (s *pathScanner) number() (float64, error) {
	t, ok := s.next()
	if !ok {
		return 0, fmt.Errorf("path data ended mid-command")
	}
	v, err := strconv.ParseFloat(t, 64)
	if err != nil {
		return 0, fmt.Errorf("expected number, got %q", t)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("non-finite coordinate %q", t)
	}
	return v, nil
}

func (s *pathScanner) numbers(n int) ([]float64, error) {
	out := make([]float64, n)
	for i := range out {
		v, err := s.number()
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// WalkPath parses d and replays it onto sink. Returns an error for data the
// scanner cannot make sense of; partial output may already have been emitted.
func WalkPath(d string, sink Sink) error {
	tokens, err := tokenize(d)
	if err != nil {
		return err
	}

	sc := &pathScanner{tokens: tokens}
	var cx, cy float64         // current point
	var sx, sy float64         // subpath start
	var pcx, pcy float64       // previous control point
	var prevCmd byte           // previous command letter (lowercased)
	started := false

	cmd, ok := sc.next()
	for ok {
		if len(cmd) != 1 {
			return fmt.Errorf("expected command, got %q", cmd)
		}
		c := cmd[0]
		rel := c >= 'a'
		lower := c | 0x20

		// Commands repeat implicitly while numbers follow.
		for {
			switch lower {
			case 'm':
				v, err := sc.numbers(2)
				if err != nil {
					return err
				}
				if rel {
					v[0] += cx
					v[1] += cy
				}
				cx, cy = v[0], v[1]
				sx, sy = cx, cy
				sink.MoveTo(cx, cy)
				started = true
				// Subsequent implicit pairs are line-tos.
				lower = 'l'
			case 'l':
				v, err := sc.numbers(2)
				if err != nil {
					return err
				}
				if rel {
					v[0] += cx
					v[1] += cy
				}
				cx, cy = v[0], v[1]
				sink.LineTo(cx, cy)
			case 'h':
				v, err := sc.numbers(1)
				if err != nil {
					return err
				}
				if rel {
					v[0] += cx
				}
				cx = v[0]
				sink.LineTo(cx, cy)
			case 'v':
				v, err := sc.numbers(1)
				if err != nil {
					return err
				}
				if rel {
					v[0] += cy
				}
				cy = v[0]
				sink.LineTo(cx, cy)
			case 'c':
				v, err := sc.numbers(6)
				if err != nil {
					return err
				}
				if rel {
					for i := 0; i < 6; i += 2 {
						v[i] += cx
						v[i+1] += cy
					}
				}
				sink.CubicTo(v[0], v[1], v[2], v[3], v[4], v[5])
				pcx, pcy = v[2], v[3]
				cx, cy = v[4], v[5]
			case 's':
				v, err := sc.numbers(4)
				if err != nil {
					return err
				}
				if rel {
					for i := 0; i < 4; i += 2 {
						v[i] += cx
						v[i+1] += cy
					}
				}
				c1x, c1y := cx, cy
				if prevCmd == 'c' || prevCmd == 's' {
					c1x, c1y = 2*cx-pcx, 2*cy-pcy
				}
				sink.CubicTo(c1x, c1y, v[0], v[1], v[2], v[3])
				pcx, pcy = v[0], v[1]
				cx, cy = v[2], v[3]
			case 'q':
				v, err := sc.numbers(4)
				if err != nil {
					return err
				}
				if rel {
					for i := 0; i < 4; i += 2 {
						v[i] += cx
						v[i+1] += cy
					}
				}
				sink.QuadTo(v[0], v[1], v[2], v[3])
				pcx, pcy = v[0], v[1]
				cx, cy = v[2], v[3]
			case 't':
				v, err := sc.numbers(2)
				if err != nil {
					return err
				}
				if rel {
					v[0] += cx
					v[1] += cy
				}
				c1x, c1y := cx, cy
				if prevCmd == 'q' || prevCmd == 't' {
					c1x, c1y = 2*cx-pcx, 2*cy-pcy
				}
				sink.QuadTo(c1x, c1y, v[0], v[1])
				pcx, pcy = c1x, c1y
				cx, cy = v[0], v[1]
			case 'a':
				// Arc support is out of scope for die-cut masks; keep the
				// outline closed by cutting straight to the endpoint.
				v, err := sc.numbers(7)
				if err != nil {
					return err
				}
				if rel {
					v[5] += cx
					v[6] += cy
				}
				cx, cy = v[5], v[6]
				sink.LineTo(cx, cy)
			case 'z':
				if started {
					sink.Close()
				}
				cx, cy = sx, sy
			default:
				return fmt.Errorf("unsupported path command %q", string(c))
			}

			prevCmd = lower
			if lower == 'z' || !sc.peekIsNumber() {
				break
			}
		}

		cmd, ok = sc.next()
	}

	if !started {
		return fmt.Errorf("path data contains no subpath")
	}
	return nil
}

// ============ SINKS ============

// bboxSink accumulates a bounding box over all on-curve and control points.
// Including control points makes the box conservative rather than tight,
// which is the safe direction for fitting a die shape.
type bboxSink struct {
	minX, minY, maxX, maxY float64
	set                    bool
}

func (b *bboxSink) add(x, y float64) {
	if !b.set {
		b.minX, b.maxX = x, x
		b.minY, b.maxY = y, y
		b.set = true
		return
	}
	b.minX = math.Min(b.minX, x)
	b.maxX = math.Max(b.maxX, x)
	b.minY = math.Min(b.minY, y)
	b.maxY = math.Max(b.maxY, y)
}

func (b *bboxSink) MoveTo(x, y float64) { b.add(x, y) }
func (b *bboxSink) LineTo(x, y float64) { b.add(x, y) }
func (b *bboxSink) QuadTo(cx, cy, x, y float64) {
	b.add(cx, cy)
	b.add(x, y)
}
func (b *bboxSink) CubicTo(c1x, c1y, c2x, c2y, x, y float64) {
	b.add(c1x, c1y)
	b.add(c2x, c2y)
	b.add(x, y)
}
func (b *bboxSink) Close() {}

// PathBoundingBox measures the bounding box of path data. ok is false when
// the data cannot be parsed or contains no geometry.
func PathBoundingBox(d string) (box Rect, ok bool) {
	var sink bboxSink
	if err := WalkPath(d, &sink); err != nil || !sink.set {
		return Rect{}, false
	}
	return Rect{
		X: sink.minX,
		Y: sink.minY,
		W: sink.maxX - sink.minX,
		H: sink.maxY - sink.minY,
	}, true
}

// Point is a 2D point in artboard units.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// flattenSegments is the fixed subdivision count used when converting curves
// to polylines for targets without native bezier clipping.
const flattenSegments = 16

// polylineSink flattens a path into polygon points, applying transform to
// every emitted point.
type polylineSink struct {
	points    []Point
	cx, cy    float64
	transform func(x, y float64) (float64, float64)
}

func (p *polylineSink) emit(x, y float64) {
	tx, ty := p.transform(x, y)
	p.points = append(p.points, Point{X: tx, Y: ty})
}

func (p *polylineSink) MoveTo(x, y float64) {
	p.emit(x, y)
	p.cx, p.cy = x, y
}

func (p *polylineSink) LineTo(x, y float64) {
	p.emit(x, y)
	p.cx, p.cy = x, y
}

func (p *polylineSink) QuadTo(cx, cy, x, y float64) {
	x0, y0 := p.cx, p.cy
	for i := 1; i <= flattenSegments; i++ {
		t := float64(i) / flattenSegments
		u := 1 - t
		px := u*u*x0 + 2*u*t*cx + t*t*x
		py := u*u*y0 + 2*u*t*cy + t*t*y
		p.emit(px, py)
	}
	p.cx, p.cy = x, y
}

func (p *polylineSink) CubicTo(c1x, c1y, c2x, c2y, x, y float64) {
	x0, y0 := p.cx, p.cy
	for i := 1; i <= flattenSegments; i++ {
		t := float64(i) / flattenSegments
		u := 1 - t
		px := u*u*u*x0 + 3*u*u*t*c1x + 3*u*t*t*c2x + t*t*t*x
		py := u*u*u*y0 + 3*u*u*t*c1y + 3*u*t*t*c2y + t*t*t*y
		p.emit(px, py)
	}
	p.cx, p.cy = x, y
}

func (p *polylineSink) Close() {}

// FlattenPath converts path data to polygon points with transform applied.
func FlattenPath(d string, transform func(x, y float64) (float64, float64)) ([]Point, error) {
	sink := &polylineSink{transform: transform}
	if err := WalkPath(d, sink); err != nil {
		return nil, err
	}
	if len(sink.points) < 3 {
		return nil, fmt.Errorf("path flattened to fewer than 3 points")
	}
	return sink.points, nil
}
