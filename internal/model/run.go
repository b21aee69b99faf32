package model

import "time"

// DrawingPage is one page of the source drawing set, already rasterized and
// OCR'd by the ingestion collaborator. The core never touches raw PDFs.
type DrawingPage struct {
	Filename  string `json:"filename"`
	PageNo    int    `json:"page_no"`
	Text      string `json:"text,omitempty"`       // OCR text excerpt
	ImageB64  string `json:"image_b64,omitempty"`  // page raster, base64
	MediaType string `json:"media_type,omitempty"` // e.g. "image/png"
}

// Project is the unit of work handed to the pipeline: a named drawing set
// plus the contractor and site configuration used for pricing.
type Project struct {
	Name       string            `json:"name"`
	Pages      []DrawingPage     `json:"pages"`
	Contractor ContractorProfile `json:"contractor"`
	Site       SiteConditions    `json:"site"`
	TierHint   ServiceTier       `json:"tier_hint,omitempty"` // skips classification when set
}

// RunStatus represents the current state of a takeoff run.
type RunStatus string

const (
	RunStatusQueued      RunStatus = "queued"
	RunStatusClassifying RunStatus = "classifying"
	RunStatusExtracting  RunStatus = "extracting"
	RunStatusValidating  RunStatus = "validating"
	RunStatusPricing     RunStatus = "pricing"
	RunStatusComplete    RunStatus = "complete"
	RunStatusFailed      RunStatus = "failed"
)

// StageStatus represents the outcome of a single pipeline stage.
type StageStatus string

const (
	StageStatusComplete StageStatus = "complete"
	StageStatusFailed   StageStatus = "failed"
	StageStatusSkipped  StageStatus = "skipped"
)

// TokenUsage tracks provider token consumption across attempts.
type TokenUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Add accumulates usage from another attempt.
func (u *TokenUsage) Add(other TokenUsage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
}

// Total returns input plus output tokens.
func (u TokenUsage) Total() int { return u.InputTokens + u.OutputTokens }

// StageResult records the outcome of one pipeline stage for audit.
type StageResult struct {
	Name       string         `json:"name"`
	Status     StageStatus    `json:"status"`
	DurationMs int64          `json:"duration_ms"`
	Confidence float64        `json:"confidence,omitempty"`
	TokenUsage TokenUsage     `json:"token_usage"`
	CostUSD    float64        `json:"cost_usd,omitempty"`
	Error      string         `json:"error,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// TakeoffResult is the final output of the pipeline for one project.
type TakeoffResult struct {
	RunID      string             `json:"run_id"`
	Project    string             `json:"project"`
	Tier       TierClassification `json:"tier"`
	Extraction ExtractionResult   `json:"extraction"`
	Validation ValidationResult   `json:"validation"`
	Pricing    PricingResult      `json:"pricing"`
	Confidence float64            `json:"confidence"` // blended 0-1 overall score
	Stages     []StageResult      `json:"stages"`
	Warnings   []string           `json:"warnings,omitempty"`
	TotalCost  float64            `json:"total_cost_usd"`
	Report     string             `json:"report,omitempty"`
	Success    bool               `json:"success"`
	Error      string             `json:"error,omitempty"`
}

// Run is a persisted takeoff run.
type Run struct {
	ID        string         `json:"id"`
	Project   string         `json:"project"`
	Status    RunStatus      `json:"status"`
	Result    *TakeoffResult `json:"result,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Correction is one appended entry in the manual-correction log. The core
// writes these for offline accuracy tracking and never reads them back
// during a run.
type Correction struct {
	ID        string    `json:"id"`
	RunID     string    `json:"run_id"`
	FieldPath string    `json:"field_path"` // e.g. "blocks[0].boards[1].main_breaker_a"
	OldValue  string    `json:"old_value"`
	NewValue  string    `json:"new_value"`
	CreatedAt time.Time `json:"created_at"`
}
