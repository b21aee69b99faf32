package model

// BQSection is one of the fourteen fixed bill-of-quantities sections.
type BQSection string

const (
	SectionIncomingSupply BQSection = "incoming_supply"
	SectionBoards         BQSection = "distribution_boards"
	SectionSubmains       BQSection = "submain_cables"
	SectionFinalCircuits  BQSection = "final_circuits"
	SectionLighting       BQSection = "lighting"
	SectionSwitches       BQSection = "switches"
	SectionPowerOutlets   BQSection = "power_outlets"
	SectionDataComms      BQSection = "data_comms"
	SectionContainment    BQSection = "containment"
	SectionUnderground    BQSection = "underground_works"
	SectionSolar          BQSection = "solar_provisions"
	SectionEarthing       BQSection = "earthing_protection"
	SectionFireSafety     BQSection = "fire_safety"
	SectionPrelimsTesting BQSection = "prelims_testing"
)

// AllBQSections returns the fourteen sections in bill order.
func AllBQSections() []BQSection {
	return []BQSection{
		SectionIncomingSupply,
		SectionBoards,
		SectionSubmains,
		SectionFinalCircuits,
		SectionLighting,
		SectionSwitches,
		SectionPowerOutlets,
		SectionDataComms,
		SectionContainment,
		SectionUnderground,
		SectionSolar,
		SectionEarthing,
		SectionFireSafety,
		SectionPrelimsTesting,
	}
}

// sectionTitles maps sections to their printed bill headings.
var sectionTitles = map[BQSection]string{
	SectionIncomingSupply: "Incoming Supply & Metering",
	SectionBoards:         "Distribution Boards",
	SectionSubmains:       "Sub-Main Cables",
	SectionFinalCircuits:  "Final Circuits",
	SectionLighting:       "Lighting",
	SectionSwitches:       "Switches & Dimmers",
	SectionPowerOutlets:   "Power Outlets",
	SectionDataComms:      "Data & Communications",
	SectionContainment:    "Cable Containment",
	SectionUnderground:    "Underground Works",
	SectionSolar:          "Solar & Alternative Supply Provisions",
	SectionEarthing:       "Earthing & Surge Protection",
	SectionFireSafety:     "Fire Safety & Emergency Systems",
	SectionPrelimsTesting: "Preliminaries, Testing & Certification",
}

// Title returns the printed heading for the section.
func (s BQSection) Title() string {
	if t, ok := sectionTitles[s]; ok {
		return t
	}
	return string(s)
}

// BQLineItem is a single priced (or quantity-only) bill line. Every line has
// a non-empty section, description, unit, quantity and confidence tag.
type BQLineItem struct {
	Section     BQSection      `json:"section"`
	Description string         `json:"description"`
	Unit        string         `json:"unit"` // "no", "m", "sum", "item"
	Quantity    float64        `json:"quantity"`
	UnitPrice   float64        `json:"unit_price"` // zero on the quantity-only bill
	Total       float64        `json:"total"`
	Confidence  ItemConfidence `json:"confidence"`
	RateOnly    bool           `json:"rate_only,omitempty"` // contractor prices this line
	Locations   []string       `json:"locations,omitempty"`
}

// BillOfQuantities is an ordered list of line items grouped by section.
type BillOfQuantities struct {
	Items []BQLineItem `json:"items"`
}

// SectionItems returns the line items belonging to the given section.
func (b *BillOfQuantities) SectionItems(s BQSection) []BQLineItem {
	var out []BQLineItem
	for _, it := range b.Items {
		if it.Section == s {
			out = append(out, it)
		}
	}
	return out
}

// Subtotal sums all line totals.
func (b *BillOfQuantities) Subtotal() float64 {
	t := 0.0
	for _, it := range b.Items {
		t += it.Total
	}
	return t
}

// PaymentSchedule splits the grand total into the standard 40/40/20 stages.
type PaymentSchedule struct {
	Deposit      float64 `json:"deposit"`       // 40% on acceptance
	SecondFix    float64 `json:"second_fix"`    // 40% at second fix
	OnCompletion float64 `json:"on_completion"` // 20% on COC handover
}

// PricingResult holds the two parallel bills plus the estimated totals.
// QuantityBill and EstimatedBill contain the same (section, description, qty)
// multiset; only unit prices differ.
type PricingResult struct {
	QuantityBill  BillOfQuantities `json:"quantity_bill"`
	EstimatedBill BillOfQuantities `json:"estimated_bill"`
	Subtotal      float64          `json:"subtotal"`
	Contingency   float64          `json:"contingency"`
	Margin        float64          `json:"margin"`
	TotalExclVAT  float64          `json:"total_excl_vat"`
	VAT           float64          `json:"vat"`
	GrandTotal    float64          `json:"grand_total"`
	Schedule      PaymentSchedule  `json:"payment_schedule"`
	Warnings      []string         `json:"warnings,omitempty"`
}
