package ingest

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/afriplan/takeoff-cli/internal/model"
)

const (
	mistralOCREndpoint  = "https://api.mistral.ai/v1/ocr"
	defaultMistralModel = "pixtral-large-latest"
)

// MistralReader reads pages through the Mistral OCR API. It returns text
// only; scanned drawing sets rarely have a usable raster worth re-encoding.
type MistralReader struct {
	apiKey   string
	model    string
	endpoint string
	client   *http.Client
}

// NewMistralReader creates a MistralReader. If model is empty, the default
// is used.
func NewMistralReader(apiKey, model string) *MistralReader {
	if model == "" {
		model = defaultMistralModel
	}
	return &MistralReader{
		apiKey:   apiKey,
		model:    model,
		endpoint: mistralOCREndpoint,
		client:   &http.Client{},
	}
}

type mistralOCRRequest struct {
	Model    string             `json:"model"`
	Document mistralOCRDocument `json:"document"`
}

type mistralOCRDocument struct {
	Type        string `json:"type"`
	DocumentURL string `json:"document_url"`
}

type mistralOCRResponse struct {
	Pages []mistralOCRPage `json:"pages"`
}

type mistralOCRPage struct {
	Index    int    `json:"index"`
	Markdown string `json:"markdown"`
}

func (m *MistralReader) ReadPages(ctx context.Context, pdfPath string) ([]model.DrawingPage, error) {
	data, err := os.ReadFile(pdfPath)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: read PDF %s", pdfPath)
	}

	encoded := base64.StdEncoding.EncodeToString(data)
	reqBody := mistralOCRRequest{
		Model: m.model,
		Document: mistralOCRDocument{
			Type:        "document_url",
			DocumentURL: "data:application/pdf;base64," + encoded,
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, eris.Wrap(err, "ingest: marshal mistral request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, eris.Wrap(err, "ingest: create mistral request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+m.apiKey)

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "ingest: mistral API call")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "ingest: read mistral response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("ingest: mistral API returned %d: %s", resp.StatusCode, string(respBody))
	}

	var ocrResp mistralOCRResponse
	if err := json.Unmarshal(respBody, &ocrResp); err != nil {
		return nil, eris.Wrap(err, "ingest: unmarshal mistral response")
	}

	if len(ocrResp.Pages) == 0 {
		return nil, eris.Errorf("ingest: no pages found in %s", pdfPath)
	}

	filename := filepath.Base(pdfPath)
	pages := make([]model.DrawingPage, len(ocrResp.Pages))
	for i, p := range ocrResp.Pages {
		pages[i] = model.DrawingPage{
			Filename: filename,
			PageNo:   p.Index + 1,
			Text:     strings.TrimSpace(p.Markdown),
		}
	}
	return pages, nil
}
