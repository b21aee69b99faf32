// Package ingest turns a raw drawing-set PDF into the page model the
// pipeline consumes: per-page OCR text plus optional page rasters for the
// provider's vision models.
package ingest

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/afriplan/takeoff-cli/internal/config"
	"github.com/afriplan/takeoff-cli/internal/model"
)

// PageReader reads a drawing-set PDF into pipeline pages.
type PageReader interface {
	ReadPages(ctx context.Context, pdfPath string) ([]model.DrawingPage, error)
}

// NewReader creates a PageReader based on config.
func NewReader(cfg config.IngestConfig) (PageReader, error) {
	switch cfg.Provider {
	case "local", "":
		return NewPopplerReader(cfg.PdfToTextPath, cfg.PdfToPpmPath, cfg.RenderDPI), nil
	case "mistral":
		if cfg.MistralKey == "" {
			return nil, eris.New("ingest: mistral provider requires mistral_key")
		}
		return NewMistralReader(cfg.MistralKey, ""), nil
	default:
		return nil, eris.Errorf("ingest: unknown provider %q", cfg.Provider)
	}
}
