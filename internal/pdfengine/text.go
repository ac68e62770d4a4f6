package pdfengine

import (
	"math"
	"strings"

	"codeberg.org/go-pdf/fpdf"
	"golang.org/x/text/encoding/charmap"

	"github.com/example/statement-redactor/pkg/layout"
)

// Glyph box proportions relative to the font size, taken from Helvetica.
const (
	ascentRatio  = 0.718
	descentRatio = 0.207
)

// Grouping thresholds, relative to the font size unless noted.
const (
	baselineTolerance = 0.5 // points
	spaceGap          = 0.15
	splitGap          = 1.0
	overlapTolerance  = 0.5
)

const (
	fallbackFontSize = 10
	renderFont       = "Helvetica"
)

// glyph is one shown character in PDF user space. y is the baseline and
// origin the x position the reader placed it at. shift is the word spacing
// the reader left out.
type glyph struct {
	s      string
	font   string
	size   float64
	x, y   float64
	w      float64
	origin float64
	shift  float64
}

func (g glyph) blank() bool { return strings.TrimSpace(g.s) == "" }

// box returns the glyph rectangle in top-left page coordinates
func (g glyph) box(llx, ury float64) layout.Rect {
	x := g.x - llx
	baseline := ury - g.y
	return layout.Rect{
		X0: x,
		Y0: baseline - g.size*ascentRatio,
		X1: x + g.w,
		Y1: baseline + g.size*descentRatio,
	}
}

func sameRun(prev, g glyph) bool {
	if prev.font != g.font || math.Abs(prev.size-g.size) > 0.01 {
		return false
	}
	if math.Abs(prev.y-g.y) > baselineTolerance {
		return false
	}
	gap := g.x - (prev.x + prev.w)
	return gap >= -overlapTolerance*g.size && gap <= splitGap*g.size
}

// groupFragments joins consecutive glyphs on one baseline into fragments,
// keeping the order glyphs were shown in. Blank glyphs become a single
// space inside a run and never start one.
func groupFragments(glyphs []glyph, llx, ury float64) []layout.Fragment {
	var (
		frags []layout.Fragment
		text  strings.Builder
		bbox  layout.Rect
		prev  glyph
		open  bool
	)
	flush := func() {
		if !open {
			return
		}
		if t := strings.TrimSpace(text.String()); t != "" {
			frags = append(frags, layout.Fragment{Text: t, BBox: bbox})
		}
		text.Reset()
		open = false
	}

	for _, g := range glyphs {
		switch {
		case open && sameRun(prev, g):
			if g.blank() || g.x-(prev.x+prev.w) > spaceGap*g.size {
				if !strings.HasSuffix(text.String(), " ") {
					text.WriteByte(' ')
				}
			}
			if !g.blank() {
				text.WriteString(g.s)
				bbox = bbox.Union(g.box(llx, ury))
			}
		case g.blank():
			flush()
			continue
		default:
			flush()
			text.WriteString(g.s)
			bbox = g.box(llx, ury)
			open = true
		}
		prev = g
	}
	flush()
	return frags
}

// encodeWinAnsi converts text to the single-byte encoding of the core fonts.
// Runes outside Windows-1252 become '?'.
func encodeWinAnsi(s string) string {
	var b strings.Builder
	for _, r := range s {
		if c, ok := charmap.Windows1252.EncodeRune(r); ok {
			b.WriteByte(c)
		} else {
			b.WriteByte('?')
		}
	}
	return b.String()
}

// metrics measures text set in the render font. Standard-14 fonts carry no
// /Widths array, so their glyphs are extracted with zero width.
type metrics struct {
	pdf *fpdf.Fpdf
}

func newMetrics() *metrics {
	pdf := fpdf.New("P", "pt", "A4", "")
	pdf.SetFont(renderFont, "", fallbackFontSize)
	return &metrics{pdf: pdf}
}

func (m *metrics) width(s string, size float64) float64 {
	m.pdf.SetFontSize(size)
	return m.pdf.GetStringWidth(encodeWinAnsi(s))
}

// fillWidths gives zero-width glyphs a measured width. Runs shown with a
// zero advance pile up on one origin, moved only by character spacing or
// TJ adjustments; those are re-spaced by the measured widths. Space glyphs
// are measured like any other so the words after them move along.
func fillWidths(glyphs []glyph, m *metrics) {
	for i := range glyphs {
		if glyphs[i].w > 0 {
			continue
		}
		glyphs[i].w = m.width(glyphs[i].s, glyphs[i].size)
		if i == 0 {
			continue
		}
		prev := glyphs[i-1]
		if prev.font != glyphs[i].font || prev.y != glyphs[i].y {
			continue
		}
		if d := glyphs[i].origin - prev.origin; math.Abs(d) < prev.w/2 {
			glyphs[i].x = prev.x + prev.w + d
		}
	}
}
