package ingest

import (
	"bytes"
	"context"
	"encoding/base64"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/afriplan/takeoff-cli/internal/model"
)

const defaultRenderDPI = 150

// PopplerReader reads pages with the poppler CLI tools: pdftotext for the
// text layer and pdftoppm for page rasters. Rasterization is best effort;
// a drawing set without images still classifies and extracts from text.
type PopplerReader struct {
	textBin string
	ppmBin  string
	dpi     int
}

// NewPopplerReader creates a PopplerReader. Empty paths fall back to the
// binaries on PATH; a zero DPI falls back to the default.
func NewPopplerReader(textBin, ppmBin string, dpi int) *PopplerReader {
	if textBin == "" {
		textBin = "pdftotext"
	}
	if ppmBin == "" {
		ppmBin = "pdftoppm"
	}
	if dpi <= 0 {
		dpi = defaultRenderDPI
	}
	return &PopplerReader{textBin: textBin, ppmBin: ppmBin, dpi: dpi}
}

func (p *PopplerReader) ReadPages(ctx context.Context, pdfPath string) ([]model.DrawingPage, error) {
	texts, err := p.extractText(ctx, pdfPath)
	if err != nil {
		return nil, err
	}

	images, err := p.renderPages(ctx, pdfPath)
	if err != nil {
		zap.L().Warn("ingest: page rasterization failed, continuing text-only",
			zap.String("pdf", pdfPath),
			zap.Error(err),
		)
		images = nil
	}

	n := len(texts)
	if len(images) > n {
		n = len(images)
	}
	if n == 0 {
		return nil, eris.Errorf("ingest: no pages found in %s", pdfPath)
	}

	filename := filepath.Base(pdfPath)
	pages := make([]model.DrawingPage, n)
	for i := range pages {
		pages[i] = model.DrawingPage{
			Filename: filename,
			PageNo:   i + 1,
		}
		if i < len(texts) {
			pages[i].Text = texts[i]
		}
		if i < len(images) {
			pages[i].ImageB64 = images[i]
			pages[i].MediaType = "image/png"
		}
	}
	return pages, nil
}

// extractText runs pdftotext -layout over the whole document and splits the
// output on the form feeds pdftotext emits between pages.
func (p *PopplerReader) extractText(ctx context.Context, pdfPath string) ([]string, error) {
	cmd := exec.CommandContext(ctx, p.textBin, "-layout", pdfPath, "-")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, eris.Wrapf(err, "ingest: pdftotext failed for %s: %s", pdfPath, stderr.String())
	}

	raw := strings.Split(stdout.String(), "\f")
	// The trailing form feed leaves an empty last element.
	if len(raw) > 1 && strings.TrimSpace(raw[len(raw)-1]) == "" {
		raw = raw[:len(raw)-1]
	}
	pages := make([]string, len(raw))
	for i, s := range raw {
		pages[i] = strings.TrimSpace(s)
	}
	return pages, nil
}

// renderPages rasters each page to PNG via pdftoppm and returns them
// base64-encoded in page order.
func (p *PopplerReader) renderPages(ctx context.Context, pdfPath string) ([]string, error) {
	tmpDir, err := os.MkdirTemp("", "takeoff-ingest-")
	if err != nil {
		return nil, eris.Wrap(err, "ingest: temp dir")
	}
	defer os.RemoveAll(tmpDir)

	prefix := filepath.Join(tmpDir, "page")
	cmd := exec.CommandContext(ctx, p.ppmBin, "-png", "-r", strconv.Itoa(p.dpi), pdfPath, prefix)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, eris.Wrapf(err, "ingest: pdftoppm failed for %s: %s", pdfPath, stderr.String())
	}

	matches, err := filepath.Glob(prefix + "-*.png")
	if err != nil {
		return nil, eris.Wrap(err, "ingest: glob rasters")
	}
	// pdftoppm zero-pads page numbers, so lexical order is page order.
	sort.Strings(matches)

	images := make([]string, 0, len(matches))
	for _, m := range matches {
		data, err := os.ReadFile(m)
		if err != nil {
			return nil, eris.Wrapf(err, "ingest: read raster %s", m)
		}
		images = append(images, base64.StdEncoding.EncodeToString(data))
	}
	return images, nil
}
