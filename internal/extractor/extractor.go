// Package extractor turns a classified drawing set into a structured
// extraction. The first pass runs on the standard model; when the scored
// confidence of the response falls below the escalation threshold the set is
// re-read once on the higher-capability model, whose result replaces the
// draft outright. Provider failure at either step fails the extraction.
package extractor

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/afriplan/takeoff-cli/internal/confidence"
	"github.com/afriplan/takeoff-cli/internal/config"
	"github.com/afriplan/takeoff-cli/internal/model"
	"github.com/afriplan/takeoff-cli/pkg/anthropic"
)

// State is the extraction lifecycle state.
type State string

const (
	StateDrafted   State = "drafted"
	StateEscalated State = "escalated"
	StateDone      State = "done"
	StateFailed    State = "failed"
)

// Attempt records one provider invocation for the cost audit.
type Attempt struct {
	Model      string           `json:"model"`
	Escalated  bool             `json:"escalated"`
	Confidence float64          `json:"confidence"`
	Usage      model.TokenUsage `json:"usage"`
	CostUSD    float64          `json:"cost_usd"`
	DurationMs int64            `json:"duration_ms"`
}

// Result is the outcome of an extraction run.
type Result struct {
	State      State
	Extraction model.ExtractionResult
	Confidence float64
	Escalated  bool
	Attempts   []Attempt
	Usage      model.TokenUsage
	CostUSD    float64
}

// Extractor drives the draft/escalate extraction loop.
type Extractor struct {
	client    anthropic.Client
	cfg       config.AnthropicConfig
	threshold float64
}

// New creates an Extractor. The threshold comes from pipeline configuration
// and decides when a draft is re-attempted on the escalated model.
func New(client anthropic.Client, cfg config.AnthropicConfig, pipeline config.PipelineConfig) *Extractor {
	return &Extractor{client: client, cfg: cfg, threshold: pipeline.EscalationThreshold}
}

// Extract runs the state machine for one project. A non-nil error always
// corresponds to StateFailed with an empty extraction and zero confidence;
// token usage from attempts made before the failure is still reported.
func (e *Extractor) Extract(ctx context.Context, project model.Project, tier model.ServiceTier) (Result, error) {
	res := Result{State: StateDrafted}

	draft, conf, err := e.attempt(ctx, &res, project, tier, false)
	if err != nil {
		res.State = StateFailed
		return res, eris.Wrap(err, "extractor: draft attempt")
	}

	res.Extraction = draft
	res.Confidence = conf

	if conf >= e.threshold {
		res.State = StateDone
		zap.L().Info("extractor: draft accepted",
			zap.String("project", project.Name),
			zap.Float64("confidence", conf),
		)
		return res, nil
	}

	res.State = StateEscalated
	res.Escalated = true
	zap.L().Info("extractor: escalating",
		zap.String("project", project.Name),
		zap.Float64("draft_confidence", conf),
		zap.Float64("threshold", e.threshold),
	)

	final, conf, err := e.attempt(ctx, &res, project, tier, true)
	if err != nil {
		res.State = StateFailed
		res.Extraction = model.ExtractionResult{}
		res.Confidence = 0
		return res, eris.Wrap(err, "extractor: escalated attempt")
	}

	// The escalated read replaces the draft even if it scores lower; a
	// second opinion from the stronger model is authoritative either way.
	res.Extraction = final
	res.Confidence = conf
	res.State = StateDone
	return res, nil
}

// attempt performs one provider invocation, parses the response and scores
// its confidence from the raw JSON tree.
func (e *Extractor) attempt(ctx context.Context, res *Result, project model.Project, tier model.ServiceTier, escalated bool) (model.ExtractionResult, float64, error) {
	modelID := e.cfg.StandardModel
	if escalated {
		modelID = e.cfg.EscalatedModel
	}

	callCtx := ctx
	if e.cfg.TimeoutSecs > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, time.Duration(e.cfg.TimeoutSecs)*time.Second)
		defer cancel()
	}

	msg := anthropic.TextMessage("user", userPrompt(project))
	for _, p := range project.Pages {
		if p.ImageB64 == "" {
			continue
		}
		msg.Blocks = append(msg.Blocks, anthropic.ImageBlock(p.ImageB64, p.MediaType))
	}

	start := time.Now()
	resp, err := e.client.CreateMessage(callCtx, anthropic.MessageRequest{
		Model:     modelID,
		MaxTokens: e.cfg.MaxTokens,
		System:    anthropic.BuildCachedSystemBlocks(schemaPrompt(tier, escalated)),
		Messages:  []anthropic.Message{msg},
	})
	if err != nil {
		return model.ExtractionResult{}, 0, eris.Wrapf(err, "extractor: %s call", modelID)
	}

	usage := model.TokenUsage{
		InputTokens:  int(resp.Usage.InputTokens),
		OutputTokens: int(resp.Usage.OutputTokens),
	}
	cost := resp.Usage.EstimateCost(modelID)
	res.Usage.Add(usage)
	res.CostUSD += cost

	raw := []byte(cleanFences(resp.Text()))

	extraction, err := Parse(raw)
	if err != nil {
		res.Attempts = append(res.Attempts, Attempt{
			Model: modelID, Escalated: escalated, Usage: usage,
			CostUSD: cost, DurationMs: time.Since(start).Milliseconds(),
		})
		return model.ExtractionResult{}, 0, err
	}

	tree, err := confidence.FromJSON(raw)
	if err != nil {
		return model.ExtractionResult{}, 0, eris.Wrap(err, "extractor: score response")
	}
	conf := confidence.Score(tree)

	res.Attempts = append(res.Attempts, Attempt{
		Model: modelID, Escalated: escalated, Confidence: conf, Usage: usage,
		CostUSD: cost, DurationMs: time.Since(start).Milliseconds(),
	})
	return extraction, conf, nil
}

// cleanFences strips markdown code fences around a JSON payload.
func cleanFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
