// Package pricing turns a validated extraction into two parallel bills of
// quantities: a quantity-only bill the contractor prices manually and a
// ballpark-priced estimate. The engine is deterministic and makes no
// external calls; all rates come from the injected rate book.
package pricing

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/afriplan/takeoff-cli/internal/config"
	"github.com/afriplan/takeoff-cli/internal/model"
)

// Payment schedule split of the grand total.
const (
	depositShare    = 0.40
	secondFixShare  = 0.40
	completionShare = 0.20
)

// Engine prices validated extractions against a rate book.
type Engine struct {
	rates *RateBook
	cfg   config.PricingConfig
}

// New creates an Engine. A nil rate book falls back to the built-in rates.
func New(rates *RateBook, cfg config.PricingConfig) *Engine {
	if rates == nil {
		rates = DefaultRateBook()
	}
	return &Engine{rates: rates, cfg: cfg}
}

// Price walks the validated extraction once per bill section and produces
// the quantity bill, the estimated bill and the estimate totals. The section
// walks share no state and run concurrently; output order is fixed
// regardless.
func (e *Engine) Price(ctx context.Context, validated model.ValidationResult, tier model.ServiceTier, profile model.ContractorProfile, site model.SiteConditions) model.PricingResult {
	in := walkInput{res: validated.Result, flags: validated.Flags, tier: tier}

	sections := model.AllBQSections()
	collected := make([][]model.BQLineItem, len(sections))

	g, _ := errgroup.WithContext(ctx)
	for i, s := range sections {
		g.Go(func() error {
			collected[i] = walkers[s](in)
			return nil
		})
	}
	_ = g.Wait() // walkers never error

	remedial := remedialItems(validated.Flags)

	var quantities []model.BQLineItem
	for i, s := range sections {
		quantities = append(quantities, collected[i]...)
		quantities = append(quantities, remedial[s]...)
	}

	var out model.PricingResult

	// The quantity bill carries no prices; RateOnly lines were flagged by
	// the walkers and survive into both bills.
	out.QuantityBill = model.BillOfQuantities{Items: append([]model.BQLineItem(nil), quantities...)}

	book := e.rates.WithOverrides(profile.PriceOverrides)
	labourMult := labourMultiplier(site)
	trenchMult := trenchMultiplier(site)
	dayRate := profile.LabourDayRate

	estimated := make([]model.BQLineItem, len(quantities))
	for i, item := range quantities {
		priced := item
		rate, found := book.Lookup(item.Section, item.Description)
		// The labour line is rated from the contractor profile, never the
		// book, so a book gap there is not a gap.
		if dayRate > 0 && item.Section == model.SectionPrelimsTesting && item.Unit == "day" {
			rate = dayRate
			found = true
		}
		if !found {
			out.Warnings = append(out.Warnings,
				fmt.Sprintf("no rate for %q in %s, priced at zero", item.Description, item.Section))
			priced.Confidence = model.ConfidenceEstimated
		}
		switch item.Section {
		case model.SectionPrelimsTesting:
			rate *= labourMult
		case model.SectionUnderground:
			rate *= trenchMult
		}
		priced.UnitPrice = round2(rate)
		priced.Total = round2(priced.UnitPrice * priced.Quantity)
		estimated[i] = priced
	}
	out.EstimatedBill = model.BillOfQuantities{Items: estimated}

	out.Subtotal = round2(out.EstimatedBill.Subtotal())
	out.Contingency = round2(out.Subtotal * contingencyPct(profile, e.cfg) / 100)
	out.Margin = round2((out.Subtotal + out.Contingency) * markupPct(profile, e.cfg) / 100)
	out.TotalExclVAT = round2(out.Subtotal + out.Contingency + out.Margin)
	out.VAT = round2(out.TotalExclVAT * vatPct(e.cfg) / 100)
	out.GrandTotal = round2(out.TotalExclVAT + out.VAT)
	out.Schedule = model.PaymentSchedule{
		Deposit:      round2(out.GrandTotal * depositShare),
		SecondFix:    round2(out.GrandTotal * secondFixShare),
		OnCompletion: round2(out.GrandTotal * completionShare),
	}

	zap.L().Info("pricing: bills generated",
		zap.Int("line_items", len(quantities)),
		zap.Float64("subtotal", out.Subtotal),
		zap.Float64("grand_total", out.GrandTotal),
	)
	return out
}

func contingencyPct(p model.ContractorProfile, cfg config.PricingConfig) float64 {
	if p.ContingencyPct > 0 {
		return p.ContingencyPct
	}
	return cfg.DefaultContingency
}

func markupPct(p model.ContractorProfile, cfg config.PricingConfig) float64 {
	if p.MarkupPct > 0 {
		return p.MarkupPct
	}
	return cfg.DefaultMarkupPct
}

func vatPct(cfg config.PricingConfig) float64 {
	if cfg.VATPct > 0 {
		return cfg.VATPct
	}
	return 15
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
