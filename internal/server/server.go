package server

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/h2non/filetype"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/example/statement-redactor/internal/metrics"
	"github.com/example/statement-redactor/internal/redact"
	"github.com/example/statement-redactor/pkg/transaction"
)

// ErrNotPDF is returned for uploads whose content is not a PDF
var ErrNotPDF = errors.New("uploaded file is not a PDF")

const indexHTML = `<!DOCTYPE html>
<html>
<head><title>Statement redactor</title></head>
<body>
<form method="post" action="/redact" enctype="multipart/form-data">
  PDF File: <input type="file" name="pdf"><br>
  Keywords (comma-separated): <input type="text" name="keywords"><br>
  <input type="submit" value="Redact">
</form>
</body>
</html>
`

// Options configures a Handler
type Options struct {
	Whitelist    []string // used when a request names no keywords
	MaxUploadMB  int64
	CurrencyCode string
	TempDir      string // parent of the per-request work directories
	Registry     *prometheus.Registry
	Logger       *slog.Logger
}

// Handler serves the upload form and the redaction endpoint
type Handler struct {
	redactor  *redact.Redactor
	whitelist []string
	maxUpload int64
	currency  string
	tempDir   string
	registry  *prometheus.Registry
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// New creates a Handler around r
func New(r *redact.Redactor, opts Options) *Handler {
	if opts.MaxUploadMB <= 0 {
		opts.MaxUploadMB = 32
	}
	if opts.Registry == nil {
		opts.Registry = prometheus.NewRegistry()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Handler{
		redactor:  r,
		whitelist: opts.Whitelist,
		maxUpload: opts.MaxUploadMB << 20,
		currency:  opts.CurrencyCode,
		tempDir:   opts.TempDir,
		registry:  opts.Registry,
		metrics:   metrics.New(opts.Registry),
		logger:    opts.Logger,
	}
}

// Register mounts routes on the given mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.health)
	mux.Handle("GET /metrics", promhttp.HandlerFor(h.registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("POST /redact", h.redact)
	mux.HandleFunc("GET /{$}", h.index)
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func (h *Handler) index(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = io.WriteString(w, indexHTML)
}

func (h *Handler) redact(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	log := h.logger.With("request_id", uuid.NewString())

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.fail(w, log, "rejected", http.StatusRequestEntityTooLarge, "upload too large", err)
			return
		}
		h.fail(w, log, "rejected", http.StatusBadRequest, "invalid upload", fmt.Errorf("failed to parse upload: %w", err))
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("pdf")
	if err != nil {
		h.fail(w, log, "rejected", http.StatusBadRequest, "missing pdf file", err)
		return
	}
	defer file.Close()

	head := make([]byte, 261)
	n, _ := io.ReadFull(file, head)
	if !filetype.Is(head[:n], "pdf") {
		h.fail(w, log, "rejected", http.StatusUnsupportedMediaType, ErrNotPDF.Error(), ErrNotPDF)
		return
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		h.fail(w, log, "error", http.StatusInternalServerError, internalError, err)
		return
	}

	keywords := redact.ParseKeywords(r.FormValue("keywords"))
	if len(keywords) == 0 {
		keywords = h.whitelist
	}

	dir, err := os.MkdirTemp(h.tempDir, "redact-")
	if err != nil {
		h.fail(w, log, "error", http.StatusInternalServerError, internalError, err)
		return
	}
	defer os.RemoveAll(dir)

	input := filepath.Join(dir, "input.pdf")
	if err := saveUpload(input, file); err != nil {
		h.fail(w, log, "error", http.StatusInternalServerError, internalError, err)
		return
	}

	result, err := h.redactor.Into(dir).RedactDocument(input, header.Filename, keywords)
	if err != nil {
		status, msg := classifyFailure(err)
		outcome := "failed"
		if status == http.StatusInternalServerError {
			outcome = "error"
		}
		h.fail(w, log, outcome, status, msg, err)
		return
	}
	h.metrics.ObserveResult(result, time.Since(start).Seconds())

	out, err := os.Open(result.OutputPath)
	if err != nil {
		h.fail(w, log, "error", http.StatusInternalServerError, internalError, err)
		return
	}
	defer out.Close()

	name := filepath.Base(result.OutputPath)
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	w.Header().Set("X-Amount-Remaining", result.Total().StringFixed(2))
	if h.currency != "" {
		w.Header().Set("X-Amount-Remaining-Display", transaction.FormatTotal(result.Total(), h.currency))
	}

	log.Info("redaction served",
		"file", header.Filename,
		"keywords", len(keywords),
		"pages", result.Pages,
		"marks", result.MarkCount(),
		"total", result.Total().StringFixed(2),
		"duration", time.Since(start),
	)
	if _, err := io.Copy(w, out); err != nil {
		log.Error("failed to send redacted file", "err", err)
	}
}

const internalError = "internal error"

// classifyFailure maps a redaction error to a status code and the message
// shown to the client. Statements that cannot be read or parsed are the
// client's problem; anything else is ours.
func classifyFailure(err error) (int, string) {
	var pe *redact.PageError
	switch {
	case errors.As(err, &pe):
		return http.StatusUnprocessableEntity, fmt.Sprintf("could not read page %d of the statement", pe.Page)
	case errors.Is(err, redact.ErrUnreadable):
		return http.StatusUnprocessableEntity, "could not read the statement"
	case errors.Is(err, redact.ErrNoPages):
		return http.StatusUnprocessableEntity, "the statement has no pages"
	default:
		return http.StatusInternalServerError, internalError
	}
}

// fail logs err in full and sends only msg to the client
func (h *Handler) fail(w http.ResponseWriter, log *slog.Logger, outcome string, status int, msg string, err error) {
	h.metrics.ObserveFailure(outcome)
	log.Error("redaction request failed", "status", status, "err", err)
	http.Error(w, msg, status)
}

func saveUpload(path string, src io.Reader) error {
	dst, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to store upload: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return fmt.Errorf("failed to store upload: %w", err)
	}
	return dst.Close()
}
