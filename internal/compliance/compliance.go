// Package compliance applies a fixed rule set derived from SANS 10142-1 to
// a validated extraction. Validate is a pure function: the input dataset is
// never mutated, auto-corrections land on a copy.
package compliance

import (
	"go.uber.org/zap"

	"github.com/afriplan/takeoff-cli/internal/model"
)

// Score deduction weights. Any unresolved critical drops the score below 90;
// warnings and infos together can never cost more than 10 points, so a run
// with no unresolved criticals always scores 90 or better.
const (
	criticalDeduction = 15
	warningDeduction  = 6
	infoDeduction     = 2
	softDeductionCap  = 10
)

// Validate runs the rule engine over an extraction for the given tier and
// returns the corrected dataset, the findings and a 0-100 compliance score.
func Validate(in model.ExtractionResult, tier model.ServiceTier) model.ValidationResult {
	out := model.ValidationResult{Result: clone(in)}

	if tier == model.TierMaintenance && in.Existing != nil {
		out.Flags = assessExisting(in.Existing)
	} else {
		out.Flags = runRules(&out.Result, tier)
	}

	out.Score = score(out.Flags)

	zap.L().Info("compliance: validated",
		zap.String("tier", string(tier)),
		zap.Int("flags", len(out.Flags)),
		zap.Float64("score", out.Score),
	)
	return out
}

// score computes 100 minus weighted deductions for unresolved findings.
func score(flags []model.ValidationFlag) float64 {
	criticals, warnings, infos := 0, 0, 0
	for _, f := range flags {
		if !f.Unresolved() {
			continue
		}
		switch f.Severity {
		case model.SeverityCritical:
			criticals++
		case model.SeverityWarning:
			warnings++
		case model.SeverityInfo:
			infos++
		}
	}

	soft := warnings*warningDeduction + infos*infoDeduction
	if soft > softDeductionCap {
		soft = softDeductionCap
	}
	s := float64(100 - criticals*criticalDeduction - soft)
	if s < 0 {
		return 0
	}
	return s
}

// clone deep-copies the parts of the result the rule engine may rewrite.
// Leaf slices that rules never touch are shared with the input.
func clone(in model.ExtractionResult) model.ExtractionResult {
	out := in
	out.Blocks = make([]model.BuildingBlock, len(in.Blocks))
	for i, b := range in.Blocks {
		nb := b
		nb.Boards = make([]model.DistributionBoard, len(b.Boards))
		for j, d := range b.Boards {
			nd := d
			nd.Circuits = append([]model.Circuit(nil), d.Circuits...)
			nb.Boards[j] = nd
		}
		out.Blocks[i] = nb
	}
	return out
}
