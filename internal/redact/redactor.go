package redact

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/example/statement-redactor/pkg/layout"
	"github.com/example/statement-redactor/pkg/transaction"
)

var (
	// ErrNoPages is returned for documents without a single page
	ErrNoPages = errors.New("document has no pages")
	// ErrUnreadable wraps failures to open or parse an input document
	ErrUnreadable = errors.New("document could not be read")
)

// PageError ties a failure to the page it happened on
type PageError struct {
	Page int
	Err  error
}

func (e *PageError) Error() string {
	return fmt.Sprintf("page %d: %v", e.Page, e.Err)
}

func (e *PageError) Unwrap() error { return e.Err }

// Document is an open PDF as seen by the redactor. Pages are numbered from 1.
type Document interface {
	PageCount() int
	Fragments(page int) ([]layout.Fragment, error)
	AddRedaction(page int, r layout.Rect) error
	ApplyRedactions(page int) error
	Save(path string) error
	Close() error
}

// Opener opens documents from disk
type Opener interface {
	Open(path string) (Document, error)
}

// OpenerFunc adapts a function to the Opener interface
type OpenerFunc func(path string) (Document, error)

func (f OpenerFunc) Open(path string) (Document, error) { return f(path) }

// Result describes one redacted document
type Result struct {
	OutputPath string                 `json:"output_path"`
	Pages      int                    `json:"pages"`
	Plans      []*PagePlan            `json:"plans"`
	Amounts    transaction.AmountList `json:"amounts"`
}

// Total is the sum of the amounts left readable
func (r *Result) Total() decimal.Decimal { return r.Amounts.Total }

// MarkCount returns the number of marks applied across all pages
func (r *Result) MarkCount() int {
	n := 0
	for _, p := range r.Plans {
		n += len(p.Marks)
	}
	return n
}

// Redactor runs the page classifier over whole documents
type Redactor struct {
	classifier *Classifier
	opener     Opener
	outputDir  string
	logger     *slog.Logger
}

// Option configures a Redactor
type Option func(*Redactor)

// WithOutputDir sets the directory redacted files are written to
func WithOutputDir(dir string) Option {
	return func(r *Redactor) { r.outputDir = dir }
}

// WithLogger sets the logger used for per-page diagnostics
func WithLogger(l *slog.Logger) Option {
	return func(r *Redactor) { r.logger = l }
}

// NewRedactor creates a Redactor using opener for all document access.
func NewRedactor(opener Opener, cfg Config, opts ...Option) (*Redactor, error) {
	if opener == nil {
		return nil, errors.New("opener is required")
	}
	if strings.TrimSpace(cfg.SectionTitle) == "" {
		return nil, errors.New("section title must not be empty")
	}
	c, err := NewClassifier(cfg)
	if err != nil {
		return nil, err
	}
	r := &Redactor{
		classifier: c,
		opener:     opener,
		outputDir:  ".",
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Classifier returns the page classifier
func (r *Redactor) Classifier() *Classifier { return r.classifier }

// Into returns a copy of r that writes its output to dir
func (r *Redactor) Into(dir string) *Redactor {
	c := *r
	c.outputDir = dir
	return &c
}

// RedactDocument blacks out every non-whitelisted transaction in the PDF at
// path and writes the result to the output directory. name is the file name
// the output is derived from; the residual total is embedded in it, so the
// totalling pass runs on a temporary copy before the final rename.
func (r *Redactor) RedactDocument(path, name string, keywords []string) (*Result, error) {
	wl := NewWhitelist(keywords)
	log := r.logger.With("document", name)

	doc, err := r.opener.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnreadable, err)
	}
	closed := false
	defer func() {
		if !closed {
			_ = doc.Close()
		}
	}()

	pages := doc.PageCount()
	if pages == 0 {
		return nil, ErrNoPages
	}

	result := &Result{Pages: pages}
	for page := 1; page <= pages; page++ {
		plan, err := r.redactPage(doc, page, wl, log)
		if err != nil {
			return nil, err
		}
		result.Plans = append(result.Plans, plan)
	}

	if err := os.MkdirAll(r.outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	tmp, err := os.CreateTemp(r.outputDir, ".redacting-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("failed to create temporary output: %w", err)
	}
	tmpPath := tmp.Name()
	_ = tmp.Close()
	keep := false
	defer func() {
		if !keep {
			_ = os.Remove(tmpPath)
		}
	}()

	if err := doc.Save(tmpPath); err != nil {
		return nil, fmt.Errorf("failed to save redacted document: %w", err)
	}
	closed = true
	if err := doc.Close(); err != nil {
		return nil, fmt.Errorf("failed to close document: %w", err)
	}

	amounts, err := r.Total(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("failed to total redacted document: %w", err)
	}
	result.Amounts = *amounts

	final := filepath.Join(r.outputDir, OutputName(name, amounts.Total))
	if err := os.Rename(tmpPath, final); err != nil {
		return nil, fmt.Errorf("failed to move redacted document into place: %w", err)
	}
	keep = true
	result.OutputPath = final

	log.Info("document redacted",
		"pages", pages,
		"keywords", wl.Len(),
		"marks", result.MarkCount(),
		"amounts", len(amounts.Amounts),
		"total", amounts.Total.StringFixed(2),
		"output", final,
	)
	return result, nil
}

func (r *Redactor) redactPage(doc Document, page int, wl Whitelist, log *slog.Logger) (*PagePlan, error) {
	frags, err := doc.Fragments(page)
	if err != nil {
		return nil, &PageError{Page: page, Err: fmt.Errorf("failed to extract text: %w", err)}
	}

	plan := r.classifier.Plan(page, frags, wl)
	for _, m := range plan.Marks {
		log.Debug("redaction mark", "page", page, "rule", m.Rule, "text", m.Text, "rect", m.Rect.String())
		if err := doc.AddRedaction(page, m.Rect); err != nil {
			return nil, &PageError{Page: page, Err: fmt.Errorf("failed to mark %q: %w", m.Text, err)}
		}
	}
	if err := doc.ApplyRedactions(page); err != nil {
		return nil, &PageError{Page: page, Err: fmt.Errorf("failed to apply redactions: %w", err)}
	}

	log.Debug("page redacted",
		"page", page,
		"fragments", len(frags),
		"section", plan.HasSection,
		"section_y", plan.SectionY,
		"marks", len(plan.Marks),
	)
	return plan, nil
}

// Total reopens the document at path and sums every decimal amount still
// readable in it. Amounts that fail to parse are counted as skipped.
func (r *Redactor) Total(path string) (*transaction.AmountList, error) {
	doc, err := r.opener.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to reopen document: %w", err)
	}
	defer doc.Close()

	amounts := &transaction.AmountList{}
	for page := 1; page <= doc.PageCount(); page++ {
		frags, err := doc.Fragments(page)
		if err != nil {
			return nil, &PageError{Page: page, Err: fmt.Errorf("failed to extract text: %w", err)}
		}
		for _, f := range frags {
			token, ok := r.classifier.patterns.AmountToken(f.Text)
			if !ok {
				continue
			}
			v, err := transaction.ParseAmount(token)
			if err != nil {
				amounts.Skipped++
				r.logger.Warn("skipping unparseable amount", "page", page, "text", f.Text, "err", err)
				continue
			}
			amounts.AddAmount(transaction.Amount{Page: page, Text: f.Text, Value: v})
		}
	}
	return amounts, nil
}

// Inspect classifies every page of the document without modifying it.
func (r *Redactor) Inspect(path string, keywords []string) ([]*PagePlan, error) {
	wl := NewWhitelist(keywords)

	doc, err := r.opener.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnreadable, err)
	}
	defer doc.Close()

	if doc.PageCount() == 0 {
		return nil, ErrNoPages
	}

	var plans []*PagePlan
	for page := 1; page <= doc.PageCount(); page++ {
		frags, err := doc.Fragments(page)
		if err != nil {
			return nil, &PageError{Page: page, Err: fmt.Errorf("failed to extract text: %w", err)}
		}
		plans = append(plans, r.classifier.Plan(page, frags, wl))
	}
	return plans, nil
}

// OutputName derives the redacted file name from the uploaded one,
// e.g. "statement.pdf" with 123.45 remaining becomes "statement_123.45.pdf".
func OutputName(name string, total decimal.Decimal) string {
	base := filepath.Base(name)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if base == "" || base == "." || base == string(filepath.Separator) {
		base = "statement"
	}
	return fmt.Sprintf("%s_%s.pdf", base, total.StringFixed(2))
}
