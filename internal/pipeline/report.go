package pipeline

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/afriplan/takeoff-cli/internal/model"
)

// renderReport produces the plain-text estimate summary attached to the run
// result. Amounts are rand with thousands grouping; the full bills live in
// the structured result, the report only shows section subtotals.
func renderReport(result *model.TakeoffResult) string {
	p := message.NewPrinter(language.English)
	rand := func(v float64) string {
		return p.Sprintf("R%v", number.Decimal(v,
			number.MinFractionDigits(2), number.MaxFractionDigits(2)))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "ELECTRICAL TAKEOFF ESTIMATE\n")
	fmt.Fprintf(&b, "Project:    %s\n", result.Project)
	fmt.Fprintf(&b, "Tier:       %s (%s)\n", result.Tier.Tier, result.Tier.Source)
	fmt.Fprintf(&b, "Confidence: %.0f%%\n", result.Confidence*100)
	fmt.Fprintf(&b, "Compliance: %.0f/100\n", result.Validation.Score)
	b.WriteString("\n")

	b.WriteString("SECTION SUBTOTALS\n")
	for _, section := range model.AllBQSections() {
		items := result.Pricing.EstimatedBill.SectionItems(section)
		if len(items) == 0 {
			continue
		}
		subtotal := 0.0
		for _, it := range items {
			subtotal += it.Total
		}
		fmt.Fprintf(&b, "  %-42s %14s\n", section.Title(), rand(subtotal))
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "Subtotal:        %14s\n", rand(result.Pricing.Subtotal))
	fmt.Fprintf(&b, "Contingency:     %14s\n", rand(result.Pricing.Contingency))
	fmt.Fprintf(&b, "Margin:          %14s\n", rand(result.Pricing.Margin))
	fmt.Fprintf(&b, "Total excl VAT:  %14s\n", rand(result.Pricing.TotalExclVAT))
	fmt.Fprintf(&b, "VAT:             %14s\n", rand(result.Pricing.VAT))
	fmt.Fprintf(&b, "GRAND TOTAL:     %14s\n", rand(result.Pricing.GrandTotal))
	b.WriteString("\n")

	b.WriteString("PAYMENT SCHEDULE\n")
	fmt.Fprintf(&b, "  Deposit (40%%):        %14s\n", rand(result.Pricing.Schedule.Deposit))
	fmt.Fprintf(&b, "  Second fix (40%%):     %14s\n", rand(result.Pricing.Schedule.SecondFix))
	fmt.Fprintf(&b, "  On completion (20%%):  %14s\n", rand(result.Pricing.Schedule.OnCompletion))

	if unresolved := unresolvedFlags(result.Validation); len(unresolved) > 0 {
		b.WriteString("\nCOMPLIANCE FINDINGS\n")
		for _, f := range unresolved {
			fmt.Fprintf(&b, "  [%s] %s", strings.ToUpper(string(f.Severity)), f.Rule)
			if f.Board != "" {
				fmt.Fprintf(&b, " (%s)", f.Board)
			}
			if f.Detail != "" {
				fmt.Fprintf(&b, ": %s", f.Detail)
			}
			b.WriteString("\n")
		}
	}

	if len(result.Warnings) > 0 {
		b.WriteString("\nWARNINGS\n")
		for _, w := range result.Warnings {
			fmt.Fprintf(&b, "  - %s\n", w)
		}
	}

	return b.String()
}

func unresolvedFlags(v model.ValidationResult) []model.ValidationFlag {
	var out []model.ValidationFlag
	for _, f := range v.Flags {
		if f.Unresolved() {
			out = append(out, f)
		}
	}
	return out
}
