package pricing

import (
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"gopkg.in/yaml.v3"

	"github.com/afriplan/takeoff-cli/internal/model"
)

// Rate is one (description-substring, unit price) pair. Patterns are
// matched in order; the first hit wins.
type Rate struct {
	Pattern string  `yaml:"pattern"`
	Price   float64 `yaml:"price"`
}

// RateBook resolves unit prices for bill line items: an ordered pattern
// list first, then a per-section default. It is plain injected data so
// tests can substitute deterministic fixtures.
type RateBook struct {
	Rates           []Rate                      `yaml:"rates"`
	SectionDefaults map[model.BQSection]float64 `yaml:"section_defaults"`
}

// Lookup returns the unit price for a description within a section. The
// second return is false when neither a pattern nor a section default
// matched and the caller must treat the price as a gap.
func (rb *RateBook) Lookup(section model.BQSection, description string) (float64, bool) {
	low := strings.ToLower(description)
	for _, r := range rb.Rates {
		if r.Pattern != "" && strings.Contains(low, strings.ToLower(r.Pattern)) {
			return r.Price, true
		}
	}
	if def, ok := rb.SectionDefaults[section]; ok {
		return def, true
	}
	return 0, false
}

// WithOverrides returns a copy of the book with the contractor's override
// patterns prepended so they take precedence over the base rates.
func (rb *RateBook) WithOverrides(overrides map[string]float64) *RateBook {
	if len(overrides) == 0 {
		return rb
	}
	out := &RateBook{SectionDefaults: rb.SectionDefaults}

	keys := make([]string, 0, len(overrides))
	for k := range overrides {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		out.Rates = append(out.Rates, Rate{Pattern: k, Price: overrides[k]})
	}
	out.Rates = append(out.Rates, rb.Rates...)
	return out
}

// Load reads a rate book from a YAML file.
func Load(path string) (*RateBook, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "pricing: read rate book")
	}
	var rb RateBook
	if err := yaml.Unmarshal(raw, &rb); err != nil {
		return nil, eris.Wrap(err, "pricing: parse rate book")
	}
	return &rb, nil
}

// LoadXLSXOverrides reads a contractor price list from a spreadsheet: one
// row per override, description pattern in the first column, unit price in
// the second. A header row is skipped when its price cell is not numeric.
func LoadXLSXOverrides(path string) (map[string]float64, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "pricing: open price list")
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("pricing: price list has no sheets")
	}

	overrides := make(map[string]float64)
	for _, row := range f.Sheets[0].Rows {
		if len(row.Cells) < 2 {
			continue
		}
		pattern := strings.TrimSpace(row.Cells[0].String())
		price, err := strconv.ParseFloat(strings.TrimSpace(row.Cells[1].String()), 64)
		if pattern == "" || err != nil {
			continue
		}
		overrides[pattern] = price
	}
	return overrides, nil
}

// DefaultRateBook returns the built-in ZAR ballpark rates. These are
// deliberately coarse: the estimated bill is an indication, the contractor
// prices the quantity bill properly.
func DefaultRateBook() *RateBook {
	return &RateBook{
		Rates: []Rate{
			{Pattern: "municipal supply", Price: 8500},
			{Pattern: "supply connection", Price: 6500},
			{Pattern: "distribution board", Price: 4200},
			{Pattern: "board replacement", Price: 5800},
			{Pattern: "submain", Price: 145},
			{Pattern: "power circuit", Price: 1850},
			{Pattern: "lighting circuit", Price: 1450},
			{Pattern: "stove circuit", Price: 2400},
			{Pattern: "geyser circuit", Price: 1950},
			{Pattern: "aircon circuit", Price: 2100},
			{Pattern: "dedicated circuit", Price: 1950},
			{Pattern: "rewire", Price: 2500},
			{Pattern: "ceiling light", Price: 385},
			{Pattern: "downlight", Price: 295},
			{Pattern: "pendant", Price: 420},
			{Pattern: "flood light", Price: 680},
			{Pattern: "exterior light", Price: 750},
			{Pattern: "switch, two lever", Price: 245},
			{Pattern: "two-way switch", Price: 310},
			{Pattern: "dimmer", Price: 420},
			{Pattern: "isolator", Price: 360},
			{Pattern: "switch", Price: 210},
			{Pattern: "double socket", Price: 395},
			{Pattern: "single socket", Price: 320},
			{Pattern: "weatherproof socket", Price: 540},
			{Pattern: "socket", Price: 350},
			{Pattern: "data point", Price: 480},
			{Pattern: "tv point", Price: 430},
			{Pattern: "cable tray", Price: 265},
			{Pattern: "trunking", Price: 185},
			{Pattern: "conduit", Price: 95},
			{Pattern: "sleeve", Price: 120},
			{Pattern: "trench", Price: 160},
			{Pattern: "armoured cable", Price: 185},
			{Pattern: "inverter provision", Price: 3600},
			{Pattern: "solar", Price: 2800},
			{Pattern: "earth-leakage unit", Price: 1250},
			{Pattern: "earth leakage", Price: 1250},
			{Pattern: "surge", Price: 1450},
			{Pattern: "earth electrode", Price: 850},
			{Pattern: "earth bonding", Price: 650},
			{Pattern: "smoke detector", Price: 720},
			{Pattern: "emergency light", Price: 890},
			{Pattern: "fire detection", Price: 1200},
			{Pattern: "labour", Price: 850},
			{Pattern: "certificate of compliance", Price: 1800},
			{Pattern: "as-built", Price: 950},
			{Pattern: "site establishment", Price: 2500},
		},
		SectionDefaults: map[model.BQSection]float64{
			model.SectionIncomingSupply: 5000,
			model.SectionBoards:         3500,
			model.SectionSubmains:       140,
			model.SectionFinalCircuits:  1600,
			model.SectionLighting:       350,
			model.SectionSwitches:       250,
			model.SectionPowerOutlets:   360,
			model.SectionDataComms:      450,
			model.SectionContainment:    150,
			model.SectionUnderground:    170,
			model.SectionSolar:          2500,
			model.SectionEarthing:       900,
			model.SectionFireSafety:     800,
			model.SectionPrelimsTesting: 1500,
		},
	}
}
