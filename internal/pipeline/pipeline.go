// Package pipeline orchestrates the four takeoff stages: tier
// classification, drawing extraction, compliance validation and pricing.
// Classification and validation degrade rather than fail; extraction is the
// only stage that can abort a run.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/afriplan/takeoff-cli/internal/classifier"
	"github.com/afriplan/takeoff-cli/internal/compliance"
	"github.com/afriplan/takeoff-cli/internal/config"
	"github.com/afriplan/takeoff-cli/internal/cost"
	"github.com/afriplan/takeoff-cli/internal/extractor"
	"github.com/afriplan/takeoff-cli/internal/model"
	"github.com/afriplan/takeoff-cli/internal/pricing"
	"github.com/afriplan/takeoff-cli/internal/store"
	"github.com/afriplan/takeoff-cli/pkg/anthropic"
)

// Stage names as they appear in the run audit trail.
const (
	StageClassify = "classify"
	StageExtract  = "extract"
	StageValidate = "validate"
	StagePrice    = "price"
)

// Confidence blend weights. Extraction dominates because it is the stage
// the downstream bill depends on most directly.
const (
	extractionWeight = 0.5
	validationWeight = 0.3
	tierWeight       = 0.2
)

// Pipeline runs a full takeoff for one project.
type Pipeline struct {
	cfg        *config.Config
	store      store.Store
	classifier *classifier.Classifier
	extractor  *extractor.Extractor
	pricer     *pricing.Engine
	costCalc   *cost.Calculator
}

// New creates a Pipeline with all stage dependencies. A nil rate book makes
// the pricer fall back to the built-in ZAR rates.
func New(cfg *config.Config, st store.Store, client anthropic.Client, rates *pricing.RateBook) *Pipeline {
	return &Pipeline{
		cfg:        cfg,
		store:      st,
		classifier: classifier.New(client, cfg.Anthropic),
		extractor:  extractor.New(client, cfg.Anthropic, cfg.Pipeline),
		pricer:     pricing.New(rates, cfg.Pricing),
		costCalc:   cost.NewCalculator(cost.DefaultRates()),
	}
}

// Run executes the takeoff pipeline for one project and persists the result.
func (p *Pipeline) Run(ctx context.Context, project model.Project) (*model.TakeoffResult, error) {
	log := zap.L().With(zap.String("project", project.Name))
	log.Info("pipeline: starting takeoff")

	result := &model.TakeoffResult{Project: project.Name}

	run, err := p.store.CreateRun(ctx, project.Name)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: create run")
	}
	result.RunID = run.ID

	setStatus := func(status model.RunStatus) {
		if statusErr := p.store.UpdateRunStatus(ctx, run.ID, status); statusErr != nil {
			log.Warn("pipeline: failed to update status", zap.Error(statusErr))
		}
	}

	trackStage := func(name string, fn func(stage *model.StageResult) error) error {
		stage := model.StageResult{Name: name}
		start := time.Now()
		fnErr := fn(&stage)
		stage.DurationMs = time.Since(start).Milliseconds()

		if fnErr != nil {
			stage.Status = model.StageStatusFailed
			stage.Error = fnErr.Error()
			log.Error("pipeline: stage failed",
				zap.String("stage", name),
				zap.Int64("duration_ms", stage.DurationMs),
				zap.Error(fnErr),
			)
		} else {
			stage.Status = model.StageStatusComplete
			log.Info("pipeline: stage complete",
				zap.String("stage", name),
				zap.Int64("duration_ms", stage.DurationMs),
				zap.Float64("confidence", stage.Confidence),
			)
		}
		result.Stages = append(result.Stages, stage)
		return fnErr
	}

	skipStage := func(name string) {
		result.Stages = append(result.Stages, model.StageResult{
			Name:   name,
			Status: model.StageStatusSkipped,
		})
	}

	// Stage 1: tier classification. Never fatal.
	setStatus(model.RunStatusClassifying)
	_ = trackStage(StageClassify, func(stage *model.StageResult) error {
		cls, usage := p.classifier.Classify(ctx, project)
		result.Tier = cls
		if cls.Warning != "" {
			result.Warnings = append(result.Warnings, cls.Warning)
		}
		stage.Confidence = cls.Confidence
		stage.TokenUsage = usage
		stage.CostUSD = p.costCalc.Claude(p.cfg.Anthropic.FastModel,
			usage.InputTokens, usage.OutputTokens, 0, 0)
		stage.Metadata = map[string]any{
			"tier":   string(cls.Tier),
			"source": cls.Source,
		}
		return nil
	})

	// Stage 2: extraction. The only fatal stage.
	setStatus(model.RunStatusExtracting)
	extractErr := trackStage(StageExtract, func(stage *model.StageResult) error {
		ext, err := p.extractor.Extract(ctx, project, result.Tier.Tier)
		stage.Confidence = ext.Confidence
		stage.TokenUsage = ext.Usage
		stage.CostUSD = ext.CostUSD
		stage.Metadata = map[string]any{
			"state":     string(ext.State),
			"escalated": ext.Escalated,
			"attempts":  len(ext.Attempts),
		}
		if err != nil {
			return err
		}
		result.Extraction = ext.Extraction
		if ext.Escalated {
			result.Warnings = append(result.Warnings, fmt.Sprintf(
				"extraction escalated to %s after a low-confidence draft", p.cfg.Anthropic.EscalatedModel))
		}
		return nil
	})
	if extractErr != nil {
		skipStage(StageValidate)
		skipStage(StagePrice)
		result.Success = false
		result.Error = extractErr.Error()
		p.finish(ctx, log, run.ID, result)
		return result, eris.Wrap(extractErr, "pipeline: extraction")
	}

	// Stage 3: compliance validation. Pure, cannot fail.
	setStatus(model.RunStatusValidating)
	_ = trackStage(StageValidate, func(stage *model.StageResult) error {
		result.Validation = compliance.Validate(result.Extraction, result.Tier.Tier)
		stage.Confidence = result.Validation.Score / 100
		stage.Metadata = map[string]any{
			"score": result.Validation.Score,
			"flags": len(result.Validation.Flags),
		}
		return nil
	})

	// Stage 4: pricing.
	setStatus(model.RunStatusPricing)
	_ = trackStage(StagePrice, func(stage *model.StageResult) error {
		result.Pricing = p.pricer.Price(ctx, result.Validation, result.Tier.Tier, project.Contractor, project.Site)
		result.Warnings = append(result.Warnings, result.Pricing.Warnings...)
		stage.Metadata = map[string]any{
			"grand_total": result.Pricing.GrandTotal,
			"line_items":  len(result.Pricing.EstimatedBill.Items),
		}
		return nil
	})

	result.Success = true
	result.Confidence = blendConfidence(result)
	result.Report = renderReport(result)
	p.finish(ctx, log, run.ID, result)

	log.Info("pipeline: takeoff complete",
		zap.String("run_id", run.ID),
		zap.Float64("confidence", result.Confidence),
		zap.Float64("grand_total", result.Pricing.GrandTotal),
		zap.Float64("cost_usd", result.TotalCost),
	)
	return result, nil
}

// finish totals stage costs and persists the result, which also moves the
// run to its terminal status.
func (p *Pipeline) finish(ctx context.Context, log *zap.Logger, runID string, result *model.TakeoffResult) {
	for _, s := range result.Stages {
		result.TotalCost += s.CostUSD
	}
	if err := p.store.UpdateRunResult(ctx, runID, result); err != nil {
		log.Warn("pipeline: failed to persist result", zap.Error(err))
	}
}

// blendConfidence combines the stage confidences into one overall score.
func blendConfidence(result *model.TakeoffResult) float64 {
	var extraction float64
	for _, s := range result.Stages {
		if s.Name == StageExtract {
			extraction = s.Confidence
		}
	}
	return extractionWeight*extraction +
		validationWeight*(result.Validation.Score/100) +
		tierWeight*result.Tier.Confidence
}
