package main

import (
	"bytes"
	"context"
	"net"
	"path/filepath"
	"testing"

	"codeberg.org/go-pdf/fpdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMainFunction(t *testing.T) {
	// Test that rootCmd is defined and has expected properties
	assert.NotNil(t, rootCmd, "rootCmd should be defined")
	assert.Equal(t, "statement-redactor", rootCmd.Use)
	assert.Contains(t, rootCmd.Short, "Redact transactions")
	assert.Contains(t, rootCmd.Long, "Statement Redactor")

	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"redact", "inspect", "serve", "version"} {
		assert.True(t, names[want], "missing %s command", want)
	}
}

func writeFixture(t *testing.T, path string) {
	t.Helper()
	out := fpdf.New("P", "pt", "A4", "")
	out.SetAutoPageBreak(false, 0)
	out.AddPage()
	out.SetFont("Helvetica", "", 10)
	tr := out.UnicodeTranslatorFromDescriptor("")

	for _, l := range []struct {
		text string
		x, y float64
	}{
		{"Transaction Details", 40, 100},
		{"TFL travel", 40, 130},
		{"£2.80", 400, 130},
		{"Tesco", 40, 150},
		{"£12.00", 400, 150},
	} {
		out.Text(l.x, l.y, tr(l.text))
	}
	require.NoError(t, out.OutputFileAndClose(path))
}

func TestRedactAndInspectCommands(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "may.pdf")
	writeFixture(t, input)
	outDir := filepath.Join(dir, "out")

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetArgs([]string{"redact", input, "-k", "tfl TRAVEL", "-o", outDir})
	require.NoError(t, rootCmd.Execute())

	assert.Contains(t, buf.String(), filepath.Join(outDir, "may_2.80.pdf"))
	assert.Contains(t, buf.String(), "2.80")
	assert.FileExists(t, filepath.Join(outDir, "may_2.80.pdf"))
	assert.Contains(t, buf.String(), "page 1: £2.80")

	buf.Reset()
	rootCmd.SetArgs([]string{"inspect", input})
	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, buf.String(), `"Tesco"`)
	assert.Contains(t, buf.String(), "description")
	assert.Contains(t, buf.String(), "section below")
}

func TestVersionCommand(t *testing.T) {
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetArgs([]string{"version"})
	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, buf.String(), version)
}

func TestServeCommand_StopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// cobra only hands the root context to subcommands without one
	serveCmd.SetContext(ctx)
	rootCmd.SetArgs([]string{"serve", "-l", "127.0.0.1:0"})
	assert.NoError(t, rootCmd.Execute())
}

func TestServeCommand_ListenFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	serveCmd.SetContext(context.Background())
	rootCmd.SetArgs([]string{"serve", "-l", ln.Addr().String()})
	err = rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "address already in use")
}
