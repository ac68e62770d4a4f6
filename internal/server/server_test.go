package server

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"codeberg.org/go-pdf/fpdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/statement-redactor/internal/pdfengine"
	"github.com/example/statement-redactor/internal/redact"
)

func statementPDF(t *testing.T) []byte {
	t.Helper()
	out := fpdf.New("P", "pt", "A4", "")
	out.SetAutoPageBreak(false, 0)
	out.AddPage()
	tr := out.UnicodeTranslatorFromDescriptor("")

	lines := []struct {
		text string
		x, y float64
	}{
		{"Transaction Details", 40, 100},
		{"Trainline journey", 40, 130},
		{"£4.50", 400, 130},
		{"Tesco", 40, 150},
		{"£12.00", 400, 150},
	}
	out.SetFont("Helvetica", "", 10)
	for _, l := range lines {
		out.Text(l.x, l.y, tr(l.text))
	}

	var buf bytes.Buffer
	require.NoError(t, out.Output(&buf))
	return buf.Bytes()
}

func newTestHandler(t *testing.T) (*Handler, *http.ServeMux) {
	t.Helper()
	opener := redact.OpenerFunc(func(path string) (redact.Document, error) {
		doc, err := pdfengine.Open(path)
		if err != nil {
			return nil, err
		}
		return doc, nil
	})
	r, err := redact.NewRedactor(opener, redact.DefaultConfig())
	require.NoError(t, err)

	h := New(r, Options{
		Whitelist:    []string{"Trainline"},
		CurrencyCode: "GBP",
		TempDir:      t.TempDir(),
	})
	mux := http.NewServeMux()
	h.Register(mux)
	return h, mux
}

func uploadRequest(t *testing.T, filename string, body []byte, keywords string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("pdf", filename)
	require.NoError(t, err)
	_, err = fw.Write(body)
	require.NoError(t, err)
	require.NoError(t, mw.WriteField("keywords", keywords))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/redact", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestRedactEndpoint(t *testing.T) {
	h, mux := newTestHandler(t)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, uploadRequest(t, "march.pdf", statementPDF(t), "trainline, "))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, "4.50", rec.Header().Get("X-Amount-Remaining"))
	assert.Equal(t, "£4.50", rec.Header().Get("X-Amount-Remaining-Display"))

	_, params, err := mime.ParseMediaType(rec.Header().Get("Content-Disposition"))
	require.NoError(t, err)
	assert.Equal(t, "march_4.50.pdf", params["filename"])
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")))

	// the redacted body no longer carries the blacked-out rows
	path := filepath.Join(t.TempDir(), "served.pdf")
	require.NoError(t, os.WriteFile(path, rec.Body.Bytes(), 0o644))
	doc, err := pdfengine.Open(path)
	require.NoError(t, err)
	frags, err := doc.Fragments(1)
	require.NoError(t, err)
	var texts []string
	for _, f := range frags {
		texts = append(texts, f.Text)
	}
	assert.Equal(t, []string{"Transaction Details", "Trainline journey", "£4.50"}, texts)

	// work directories are cleaned up
	entries, err := os.ReadDir(h.tempDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRedactEndpoint_DefaultWhitelist(t *testing.T) {
	_, mux := newTestHandler(t)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, uploadRequest(t, "march.pdf", statementPDF(t), ""))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "4.50", rec.Header().Get("X-Amount-Remaining"))
}

func TestRedactEndpoint_RejectsNonPDF(t *testing.T) {
	_, mux := newTestHandler(t)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, uploadRequest(t, "notes.pdf", []byte("hello, not a pdf"), "Trainline"))

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
	assert.Contains(t, rec.Body.String(), ErrNotPDF.Error())
}

func TestRedactEndpoint_MissingFile(t *testing.T) {
	_, mux := newTestHandler(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("keywords", "Trainline"))
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/redact", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIndexHealthAndMetrics(t *testing.T) {
	_, mux := newTestHandler(t)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `name="keywords"`)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, uploadRequest(t, "march.pdf", statementPDF(t), "Trainline"))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), `redactor_documents_total{outcome="ok"} 1`), string(body))
	assert.Contains(t, string(body), `redactor_marks_total{rule="description"} 1`)
}

func TestRedactEndpoint_MultiWordKeyword(t *testing.T) {
	_, mux := newTestHandler(t)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, uploadRequest(t, "march.pdf", statementPDF(t), "Trainline Journey"))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "4.50", rec.Header().Get("X-Amount-Remaining"))
}

func TestRedactEndpoint_UnreadablePDF(t *testing.T) {
	h, mux := newTestHandler(t)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, uploadRequest(t, "broken.pdf", []byte("%PDF-1.4\nnot really a pdf at all"), "Trainline"))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "could not read the statement\n", rec.Body.String())
	assert.NotContains(t, rec.Body.String(), h.tempDir)
}

func TestRedactEndpoint_InternalFailureHidesDetails(t *testing.T) {
	r, err := redact.NewRedactor(redact.OpenerFunc(func(string) (redact.Document, error) {
		return nil, nil
	}), redact.DefaultConfig())
	require.NoError(t, err)

	missing := filepath.Join(t.TempDir(), "gone", "deeper")
	mux := http.NewServeMux()
	New(r, Options{TempDir: missing}).Register(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, uploadRequest(t, "march.pdf", statementPDF(t), "Trainline"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal error\n", rec.Body.String())
	assert.NotContains(t, rec.Body.String(), missing)
}

func TestClassifyFailure(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		msg    string
	}{
		{
			name:   "page error",
			err:    fmt.Errorf("wrapped: %w", &redact.PageError{Page: 2, Err: errors.New("bad stream")}),
			status: http.StatusUnprocessableEntity,
			msg:    "could not read page 2 of the statement",
		},
		{
			name:   "unreadable document",
			err:    fmt.Errorf("%w: %w", redact.ErrUnreadable, errors.New("/tmp/redact-1/input.pdf: no xref")),
			status: http.StatusUnprocessableEntity,
			msg:    "could not read the statement",
		},
		{
			name:   "no pages",
			err:    redact.ErrNoPages,
			status: http.StatusUnprocessableEntity,
			msg:    "the statement has no pages",
		},
		{
			name:   "disk fault",
			err:    fmt.Errorf("failed to move redacted document into place: %w", &fs.PathError{Op: "rename", Path: "/tmp/redact-1/x.pdf", Err: fs.ErrPermission}),
			status: http.StatusInternalServerError,
			msg:    "internal error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, msg := classifyFailure(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.msg, msg)
		})
	}
}
