package render

import (
	"fmt"
	"io"
	"math"
	"strings"
	"unicode/utf8"

	svg "github.com/ajstarks/svgo"

	"github.com/derickschaefer/spread/internal/model"
)

// ─── SVG ──────────────────────────────────────────────────────────────────────

// Stroke widths, in pixels.
const (
	whiskerStroke = 2
	thinStroke    = 1
)

// Label text layout.
const (
	labelPadding  = 10
	maxLabelLines = 3
	lineHeightEm  = 1.2
	glyphWidthEm  = 0.55 // average advance of a proportional sans-serif glyph
)

// SVG draws the primitives of l onto an SVG canvas sized to the adaptive
// layout. Primitives are emitted in order, so later ones paint over earlier
// ones. Coordinates are rounded to whole pixels.
func SVG(w io.Writer, l *model.LayoutResult, theme model.Theme) error {
	if l == nil {
		return fmt.Errorf("render svg: no layout")
	}
	theme = theme.Merge(model.DefaultTheme())

	canvas := svg.New(w)
	canvas.Start(px(l.Width), px(l.Height),
		fmt.Sprintf(`font-family="%s" font-size="%gpx"`, escapeAttr(theme.FontFamily), theme.FontSize))
	defer canvas.End()

	for _, p := range l.Primitives {
		switch p.Shape {
		case model.ShapeRect:
			canvas.Rect(px(p.X), px(p.Y), px(p.W), px(p.H), rectStyle(p.Role, theme))
		case model.ShapeLine:
			canvas.Line(px(p.X1), px(p.Y1), px(p.X2), px(p.Y2), lineStyle(p.Role, theme))
		case model.ShapeCircle:
			canvas.Circle(px(p.X), px(p.Y), px(p.R), "fill:"+theme.Marker)
		case model.ShapeText:
			drawText(canvas, p, theme)
		default:
			return fmt.Errorf("render svg: unknown primitive shape %q", p.Shape)
		}
	}
	return nil
}

func rectStyle(role model.Role, t model.Theme) string {
	switch role {
	case model.RoleBackground:
		return "fill:" + t.Background
	case model.RoleLowerBox:
		return "fill:" + t.LowerBox
	case model.RoleUpperBox:
		return "fill:" + t.UpperBox
	default:
		return "fill:none"
	}
}

func lineStyle(role model.Role, t model.Theme) string {
	switch role {
	case model.RoleWhisker:
		return fmt.Sprintf("stroke:%s;stroke-width:%d", t.Whisker, whiskerStroke)
	case model.RoleDivider:
		return fmt.Sprintf("stroke:%s;stroke-width:%d", t.Divider, thinStroke)
	default:
		return fmt.Sprintf("stroke:%s;stroke-width:%d", t.Grid, thinStroke)
	}
}

func drawText(canvas *svg.SVG, p model.Primitive, t model.Theme) {
	if p.Role != model.RoleRowLabel {
		canvas.Text(px(p.X), px(p.Y), p.Text,
			fmt.Sprintf(`text-anchor="%s" fill="%s"`, p.Anchor, t.GridLabel))
		return
	}

	// Row labels are laid out inside their box: right-aligned against the
	// padded right edge, lines centered vertically.
	perLine := charsPerLine(p.W-2*labelPadding, t.FontSize)
	var lines []string
	if p.Wrap {
		lines = WrapLabel(p.Text, perLine, maxLabelLines)
	} else {
		lines = []string{Truncate(p.Text, perLine)}
	}

	lh := t.FontSize * lineHeightEm
	x := px(p.X + p.W - labelPadding)
	y0 := p.Y + p.H/2 - lh*float64(len(lines)-1)/2
	canvas.Group(fmt.Sprintf(`text-anchor="%s" fill="%s"`, p.Anchor, t.Label))
	for i, line := range lines {
		canvas.Text(x, px(y0+lh*float64(i)), line, `dy=".35em"`)
	}
	canvas.Gend()
}

// ─── Label Wrapping ───────────────────────────────────────────────────────────

// charsPerLine estimates how many glyphs fit in width pixels.
func charsPerLine(width, fontSize float64) int {
	if fontSize <= 0 {
		fontSize = model.DefaultTheme().FontSize
	}
	n := int(width / (fontSize * glyphWidthEm))
	if n < 1 {
		return 1
	}
	return n
}

// WrapLabel breaks s into at most maxLines lines of at most width runes,
// breaking on whitespace. Words longer than a line are split. When the text
// does not fit, the last line ends with an ellipsis.
func WrapLabel(s string, width, maxLines int) []string {
	words := strings.Fields(s)
	if len(words) == 0 {
		return []string{""}
	}
	if width < 1 {
		width = 1
	}

	var lines []string
	var cur []rune
	flush := func() {
		lines = append(lines, string(cur))
		cur = cur[:0]
	}
	for _, word := range words {
		wr := []rune(word)
		for len(wr) > 0 {
			need := len(wr)
			if len(cur) > 0 {
				need++
			}
			switch {
			case len(cur)+need <= width:
				if len(cur) > 0 {
					cur = append(cur, ' ')
				}
				cur = append(cur, wr...)
				wr = nil
			case len(cur) > 0:
				flush()
			default:
				cur = append(cur, wr[:width]...)
				wr = wr[width:]
				flush()
			}
		}
	}
	if len(cur) > 0 {
		flush()
	}

	if maxLines > 0 && len(lines) > maxLines {
		rest := strings.Join(lines[maxLines-1:], " ")
		lines = append(lines[:maxLines-1], Truncate(rest, width))
	}
	return lines
}

// Truncate shortens s to at most width runes, ending with an ellipsis when
// anything was cut.
func Truncate(s string, width int) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= width {
		return s
	}
	if width <= 1 {
		return "…"
	}
	r := []rune(s)
	return strings.TrimRight(string(r[:width-1]), " ") + "…"
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

func px(v float64) int {
	return int(math.Round(v))
}

func escapeAttr(s string) string {
	return strings.NewReplacer(`&`, "&amp;", `"`, "&quot;", `<`, "&lt;").Replace(s)
}
