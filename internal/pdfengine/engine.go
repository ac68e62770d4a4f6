// Package pdfengine reads text with positions out of PDF statements and
// writes redacted copies of them.
//
// Redaction is destructive: glyphs under a mark are dropped before the
// document is written, and the written file contains only the surviving
// glyphs, set in Helvetica at their original positions, plus a black box
// over every mark. Images and vector art of the source are not carried over.
package pdfengine

import (
	"errors"
	"fmt"
	"strings"

	"codeberg.org/go-pdf/fpdf"
	"github.com/ledongthuc/pdf"

	"github.com/example/statement-redactor/pkg/layout"
)

// ErrClosed is returned when a closed document is used
var ErrClosed = errors.New("document is closed")

// Letter size, used when a page has no usable MediaBox.
const (
	defaultWidth  = 612
	defaultHeight = 792
)

type page struct {
	number    int
	llx, lly  float64
	width     float64
	height    float64
	glyphs    []glyph
	pending   []layout.Rect
	blackouts []layout.Rect
}

func (p *page) ury() float64 { return p.lly + p.height }

func (p *page) fragments() []layout.Fragment {
	return groupFragments(p.glyphs, p.llx, p.ury())
}

// apply removes every glyph whose centre lies inside a pending mark
func (p *page) apply() int {
	if len(p.pending) == 0 {
		return 0
	}
	kept := p.glyphs[:0]
	removed := 0
	for _, g := range p.glyphs {
		cx, cy := g.box(p.llx, p.ury()).Center()
		hit := false
		for _, r := range p.pending {
			if r.Contains(cx, cy) {
				hit = true
				break
			}
		}
		if hit {
			removed++
			continue
		}
		kept = append(kept, g)
	}
	p.glyphs = kept
	p.blackouts = append(p.blackouts, p.pending...)
	p.pending = nil
	return removed
}

// Document is a PDF loaded into memory. Pages are numbered from 1.
type Document struct {
	path   string
	pages  []*page
	closed bool
}

// Open reads every page of the PDF at path.
func Open(path string) (*Document, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf %s: %w", path, err)
	}
	defer f.Close()

	m := newMetrics()
	doc := &Document{path: path}
	for n := 1; n <= r.NumPage(); n++ {
		p, err := readPage(r, n, m)
		if err != nil {
			return nil, err
		}
		doc.pages = append(doc.pages, p)
	}
	return doc, nil
}

// readPage extracts one page. The pdf reader panics on malformed content
// streams, so the panic is turned into an error naming the page.
func readPage(r *pdf.Reader, n int, m *metrics) (p *page, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			p, err = nil, fmt.Errorf("failed to read page %d: %v", n, rec)
		}
	}()

	pg := r.Page(n)
	p = &page{number: n, width: defaultWidth, height: defaultHeight}
	if pg.V.IsNull() {
		return p, nil
	}
	if llx, lly, urx, ury, ok := mediaBox(pg.V); ok {
		p.llx, p.lly = llx, lly
		p.width, p.height = urx-llx, ury-lly
	}

	texts := pg.Content().Text
	shifts := wordShifts(pg.V.Key("Contents"), texts)
	for i, t := range texts {
		// the reader emits a line break after every TJ array
		if strings.Trim(t.S, "\r\n") == "" {
			continue
		}
		size := t.FontSize
		if size <= 0 {
			size = fallbackFontSize
		}
		g := glyph{
			s:      t.S,
			font:   t.Font,
			size:   size,
			x:      t.X,
			y:      t.Y,
			w:      t.W,
			origin: t.X,
		}
		if shifts != nil {
			g.shift = shifts[i]
		}
		p.glyphs = append(p.glyphs, g)
	}
	fillWidths(p.glyphs, m)
	for i := range p.glyphs {
		p.glyphs[i].x += p.glyphs[i].shift
	}
	return p, nil
}

// mediaBox returns the page's MediaBox, following /Parent for inherited boxes.
func mediaBox(v pdf.Value) (llx, lly, urx, ury float64, ok bool) {
	for depth := 0; depth < 32 && !v.IsNull(); depth++ {
		box := v.Key("MediaBox")
		if box.Kind() == pdf.Array && box.Len() == 4 {
			llx, lly = box.Index(0).Float64(), box.Index(1).Float64()
			urx, ury = box.Index(2).Float64(), box.Index(3).Float64()
			if urx < llx {
				llx, urx = urx, llx
			}
			if ury < lly {
				lly, ury = ury, lly
			}
			return llx, lly, urx, ury, urx > llx && ury > lly
		}
		v = v.Key("Parent")
	}
	return 0, 0, 0, 0, false
}

func (d *Document) page(n int) (*page, error) {
	if d.closed {
		return nil, ErrClosed
	}
	if n < 1 || n > len(d.pages) {
		return nil, fmt.Errorf("page %d out of range 1..%d", n, len(d.pages))
	}
	return d.pages[n-1], nil
}

// PageCount returns the number of pages
func (d *Document) PageCount() int { return len(d.pages) }

// pageSize returns the width and height of a page in points
func (d *Document) pageSize(n int) (float64, float64, error) {
	p, err := d.page(n)
	if err != nil {
		return 0, 0, err
	}
	return p.width, p.height, nil
}

// Fragments returns the text fragments of a page in the order they were shown.
func (d *Document) Fragments(n int) ([]layout.Fragment, error) {
	p, err := d.page(n)
	if err != nil {
		return nil, err
	}
	return p.fragments(), nil
}

// AddRedaction schedules r for removal on page n. Empty rectangles are ignored.
func (d *Document) AddRedaction(n int, r layout.Rect) error {
	p, err := d.page(n)
	if err != nil {
		return err
	}
	if r.Empty() {
		return nil
	}
	p.pending = append(p.pending, r)
	return nil
}

// ApplyRedactions removes the text under every pending mark on page n.
func (d *Document) ApplyRedactions(n int) error {
	p, err := d.page(n)
	if err != nil {
		return err
	}
	p.apply()
	return nil
}

// Save writes the document to path.
func (d *Document) Save(path string) error {
	if d.closed {
		return ErrClosed
	}
	if len(d.pages) == 0 {
		return errors.New("cannot save a document without pages")
	}

	first := d.pages[0]
	out := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           fpdf.SizeType{Wd: first.width, Ht: first.height},
	})
	out.SetAutoPageBreak(false, 0)
	out.SetMargins(0, 0, 0)

	for _, p := range d.pages {
		out.AddPageFormat("P", fpdf.SizeType{Wd: p.width, Ht: p.height})
		renderPage(out, p)
		if err := out.Error(); err != nil {
			return fmt.Errorf("failed to render page %d: %w", p.number, err)
		}
	}

	if err := out.OutputFileAndClose(path); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func renderPage(out *fpdf.Fpdf, p *page) {
	size := -1.0
	out.SetTextColor(0, 0, 0)
	for _, g := range p.glyphs {
		if g.size != size {
			out.SetFont(renderFont, "", g.size)
			size = g.size
		}
		out.Text(g.x-p.llx, p.ury()-g.y, encodeWinAnsi(g.s))
	}

	out.SetFillColor(0, 0, 0)
	for _, r := range p.blackouts {
		out.Rect(r.X0, r.Y0, r.Width(), r.Height(), "F")
	}
}

// Close releases the document. A closed document cannot be used again.
func (d *Document) Close() error {
	d.closed = true
	d.pages = nil
	return nil
}
