package ingest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/afriplan/takeoff-cli/internal/config"
)

func TestNewReader_Local(t *testing.T) {
	r, err := NewReader(config.IngestConfig{Provider: "local", PdfToTextPath: "/usr/bin/pdftotext"})
	require.NoError(t, err)
	assert.IsType(t, &PopplerReader{}, r)
}

func TestNewReader_LocalDefault(t *testing.T) {
	r, err := NewReader(config.IngestConfig{Provider: ""})
	require.NoError(t, err)
	assert.IsType(t, &PopplerReader{}, r)
}

func TestNewReader_MistralMissingKey(t *testing.T) {
	_, err := NewReader(config.IngestConfig{Provider: "mistral"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mistral provider requires mistral_key")
}

func TestNewReader_MistralWithKey(t *testing.T) {
	r, err := NewReader(config.IngestConfig{Provider: "mistral", MistralKey: "test-key"})
	require.NoError(t, err)
	assert.IsType(t, &MistralReader{}, r)
}

func TestNewReader_UnknownProvider(t *testing.T) {
	_, err := NewReader(config.IngestConfig{Provider: "unknown"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown provider "unknown"`)
}

func TestPopplerReader_Defaults(t *testing.T) {
	p := NewPopplerReader("", "", 0)
	assert.Equal(t, "pdftotext", p.textBin)
	assert.Equal(t, "pdftoppm", p.ppmBin)
	assert.Equal(t, defaultRenderDPI, p.dpi)

	p = NewPopplerReader("/custom/pdftotext", "/custom/pdftoppm", 300)
	assert.Equal(t, "/custom/pdftotext", p.textBin)
	assert.Equal(t, 300, p.dpi)
}

// fakeBin writes a shell script that prints the given output.
func fakeBin(t *testing.T, dir, name, script string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755))
	return path
}

func TestPopplerReader_ReadPages_SplitsOnFormFeed(t *testing.T) {
	dir := t.TempDir()
	// Two pages separated by the form feed pdftotext emits, raster step fails.
	textBin := fakeBin(t, dir, "pdftotext", `printf 'DB SCHEDULE page one\n\fLIGHTING LAYOUT page two\n\f'`)
	ppmBin := fakeBin(t, dir, "pdftoppm", "exit 1")

	p := NewPopplerReader(textBin, ppmBin, 72)
	pages, err := p.ReadPages(context.Background(), filepath.Join(dir, "erf221.pdf"))
	require.NoError(t, err)

	require.Len(t, pages, 2)
	assert.Equal(t, "erf221.pdf", pages[0].Filename)
	assert.Equal(t, 1, pages[0].PageNo)
	assert.Equal(t, "DB SCHEDULE page one", pages[0].Text)
	assert.Equal(t, 2, pages[1].PageNo)
	assert.Equal(t, "LIGHTING LAYOUT page two", pages[1].Text)
	assert.Empty(t, pages[0].ImageB64)
}

func TestPopplerReader_ReadPages_WithRasters(t *testing.T) {
	dir := t.TempDir()
	textBin := fakeBin(t, dir, "pdftotext", `printf 'only page\n'`)
	// pdftoppm receives the output prefix as its last argument.
	ppmBin := fakeBin(t, dir, "pdftoppm", `
for a in "$@"; do prefix="$a"; done
printf 'png-bytes' > "$prefix-1.png"`)

	p := NewPopplerReader(textBin, ppmBin, 72)
	pages, err := p.ReadPages(context.Background(), filepath.Join(dir, "erf221.pdf"))
	require.NoError(t, err)

	require.Len(t, pages, 1)
	assert.Equal(t, "only page", pages[0].Text)
	assert.NotEmpty(t, pages[0].ImageB64)
	assert.Equal(t, "image/png", pages[0].MediaType)
}

func TestPopplerReader_ReadPages_TextBinaryMissing(t *testing.T) {
	p := NewPopplerReader("/nonexistent/pdftotext", "/nonexistent/pdftoppm", 72)
	_, err := p.ReadPages(context.Background(), "/tmp/test.pdf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pdftotext failed")
}

func TestMistralReader_Defaults(t *testing.T) {
	m := NewMistralReader("key", "")
	assert.Equal(t, defaultMistralModel, m.model)
	assert.Equal(t, mistralOCREndpoint, m.endpoint)

	m = NewMistralReader("key", "custom-model")
	assert.Equal(t, "custom-model", m.model)
}

func TestMistralReader_ReadPages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req mistralOCRRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "document_url", req.Document.Type)
		assert.Contains(t, req.Document.DocumentURL, "data:application/pdf;base64,")

		resp := mistralOCRResponse{
			Pages: []mistralOCRPage{
				{Index: 0, Markdown: "DB schedule"},
				{Index: 1, Markdown: "Lighting layout"},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp) //nolint:errcheck
	}))
	defer srv.Close()

	pdfPath := filepath.Join(t.TempDir(), "erf221.pdf")
	require.NoError(t, os.WriteFile(pdfPath, []byte("%PDF-1.4 test"), 0o644))

	m := &MistralReader{apiKey: "test-key", model: "test-model", endpoint: srv.URL, client: &http.Client{}}
	pages, err := m.ReadPages(context.Background(), pdfPath)
	require.NoError(t, err)

	require.Len(t, pages, 2)
	assert.Equal(t, "erf221.pdf", pages[0].Filename)
	assert.Equal(t, 1, pages[0].PageNo)
	assert.Equal(t, "DB schedule", pages[0].Text)
	assert.Equal(t, "Lighting layout", pages[1].Text)
}

func TestMistralReader_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"invalid api key"}`))
	}))
	defer srv.Close()

	pdfPath := filepath.Join(t.TempDir(), "test.pdf")
	require.NoError(t, os.WriteFile(pdfPath, []byte("%PDF-1.4 test"), 0o644))

	m := &MistralReader{apiKey: "bad-key", model: "m", endpoint: srv.URL, client: &http.Client{}}
	_, err := m.ReadPages(context.Background(), pdfPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mistral API returned 401")
}

func TestMistralReader_EmptyDocument(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(mistralOCRResponse{}) //nolint:errcheck
	}))
	defer srv.Close()

	pdfPath := filepath.Join(t.TempDir(), "test.pdf")
	require.NoError(t, os.WriteFile(pdfPath, []byte("%PDF-1.4 test"), 0o644))

	m := &MistralReader{apiKey: "k", model: "m", endpoint: srv.URL, client: &http.Client{}}
	_, err := m.ReadPages(context.Background(), pdfPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no pages found")
}

func TestMistralReader_FileNotFound(t *testing.T) {
	m := NewMistralReader("key", "model")
	_, err := m.ReadPages(context.Background(), "/nonexistent/file.pdf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read PDF")
}
