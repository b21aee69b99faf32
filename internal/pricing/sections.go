package pricing

import (
	"fmt"
	"sort"
	"strings"

	"github.com/afriplan/takeoff-cli/internal/model"
)

// Default length heuristics for unmeasured cable runs, per circuit type.
// Any quantity that falls back to one of these is tagged estimated.
var defaultCircuitLengthM = map[model.CircuitType]float64{
	model.CircuitSubFeed:   15,
	model.CircuitPower:     25,
	model.CircuitLighting:  20,
	model.CircuitAircon:    15,
	model.CircuitGeyser:    12,
	model.CircuitStove:     10,
	model.CircuitDedicated: 18,
	model.CircuitOther:     15,
}

const (
	defaultSiteRunLengthM     = 20
	defaultContainmentLengthM = 10
)

// pointsPerCrewDay sizes the labour allowance in the preliminaries section.
const pointsPerCrewDay = 12

// walkInput is the read-only context every section walker receives.
type walkInput struct {
	res   model.ExtractionResult
	flags []model.ValidationFlag
	tier  model.ServiceTier
}

// sectionWalker emits the quantity line items for one bill section. Walkers
// never price: unit prices are applied afterwards from the rate book.
type sectionWalker func(in walkInput) []model.BQLineItem

// walkers maps every section to its walker, in bill order via AllBQSections.
var walkers = map[model.BQSection]sectionWalker{
	model.SectionIncomingSupply: walkIncomingSupply,
	model.SectionBoards:         walkBoards,
	model.SectionSubmains:       walkSubmains,
	model.SectionFinalCircuits:  walkFinalCircuits,
	model.SectionLighting:       walkLighting,
	model.SectionSwitches:       walkSwitches,
	model.SectionPowerOutlets:   walkPowerOutlets,
	model.SectionDataComms:      walkDataComms,
	model.SectionContainment:    walkContainment,
	model.SectionUnderground:    walkUnderground,
	model.SectionSolar:          walkSolar,
	model.SectionEarthing:       walkEarthing,
	model.SectionFireSafety:     walkFireSafety,
	model.SectionPrelimsTesting: walkPrelims,
}

func walkIncomingSupply(in walkInput) []model.BQLineItem {
	var items []model.BQLineItem
	for _, sp := range in.res.SupplyPoints {
		if strings.EqualFold(sp.Type, "solar") {
			continue
		}
		kind := "Supply"
		switch strings.ToLower(sp.Type) {
		case "municipal":
			kind = "Municipal supply"
		case "generator":
			kind = "Generator supply"
		}
		items = append(items, model.BQLineItem{
			Section:     model.SectionIncomingSupply,
			Description: fmt.Sprintf("%s connection, %dA %d-phase", kind, sp.CapacityA, sp.PhaseCount),
			Unit:        "no",
			Quantity:    1,
			Confidence:  sp.Confidence.OrDefault(),
		})
	}
	if len(items) == 0 {
		items = append(items, model.BQLineItem{
			Section:     model.SectionIncomingSupply,
			Description: "Supply connection and metering allowance",
			Unit:        "sum",
			Quantity:    1,
			Confidence:  model.ConfidenceEstimated,
		})
	}
	return items
}

func walkBoards(in walkInput) []model.BQLineItem {
	var items []model.BQLineItem
	for _, b := range in.res.Blocks {
		for _, d := range b.Boards {
			var locs []string
			if d.Location != "" {
				locs = []string{d.Location}
			}
			items = append(items, model.BQLineItem{
				Section:     model.SectionBoards,
				Description: fmt.Sprintf("Distribution board %s, %d ways, %dA main switch", d.Name, d.TotalWays(), d.MainBreakerA),
				Unit:        "no",
				Quantity:    1,
				Confidence:  d.Confidence.OrDefault(),
				Locations:   locs,
			})
		}
	}
	return items
}

func walkSubmains(in walkInput) []model.BQLineItem {
	var items []model.BQLineItem
	for _, b := range in.res.Blocks {
		for _, d := range b.Boards {
			for _, c := range d.Circuits {
				if c.Type != model.CircuitSubFeed {
					continue
				}
				length, conf := circuitLength(c)
				target := c.FeedsBoard
				if target == "" {
					target = c.Description
				}
				items = append(items, model.BQLineItem{
					Section:     model.SectionSubmains,
					Description: fmt.Sprintf("Submain cable, %.1fmm2 %s, %s to %s", c.CableSizeMM2, materialLabel(c.CableMat), d.Name, target),
					Unit:        "m",
					Quantity:    length,
					Confidence:  conf,
				})
			}
		}
	}
	for _, r := range in.res.SiteCableRuns {
		if r.Method == model.InstallTrenched {
			continue
		}
		length, conf := runLength(r)
		items = append(items, model.BQLineItem{
			Section:     model.SectionSubmains,
			Description: fmt.Sprintf("Armoured cable, %.1fmm2 %s, %s, %s to %s", r.CableSizeMM2, materialLabel(r.CableMat), methodLabel(r.Method), r.From, r.To),
			Unit:        "m",
			Quantity:    length,
			Confidence:  conf,
		})
	}
	return items
}

// circuitTypeLabels renders circuit types for bill descriptions in a way
// the rate-book patterns match on.
var circuitTypeLabels = map[model.CircuitType]string{
	model.CircuitPower:     "Power circuit",
	model.CircuitLighting:  "Lighting circuit",
	model.CircuitAircon:    "Aircon circuit",
	model.CircuitGeyser:    "Geyser circuit",
	model.CircuitStove:     "Stove circuit",
	model.CircuitDedicated: "Dedicated circuit",
	model.CircuitOther:     "Sundry circuit",
}

func walkFinalCircuits(in walkInput) []model.BQLineItem {
	counts := map[model.CircuitType]int{}
	conf := map[model.CircuitType]model.ItemConfidence{}
	for _, b := range in.res.Blocks {
		for _, d := range b.Boards {
			for _, c := range d.Circuits {
				if c.Type == model.CircuitSubFeed {
					continue
				}
				counts[c.Type]++
				conf[c.Type] = worstConfidence(conf[c.Type], c.Confidence.OrDefault())
			}
		}
	}

	var items []model.BQLineItem
	for _, ct := range []model.CircuitType{
		model.CircuitPower, model.CircuitLighting, model.CircuitAircon,
		model.CircuitGeyser, model.CircuitStove, model.CircuitDedicated,
		model.CircuitOther,
	} {
		if counts[ct] == 0 {
			continue
		}
		items = append(items, model.BQLineItem{
			Section:     model.SectionFinalCircuits,
			Description: fmt.Sprintf("%s, wired complete from board", circuitTypeLabels[ct]),
			Unit:        "no",
			Quantity:    float64(counts[ct]),
			Confidence:  conf[ct],
		})
	}
	return items
}

// fixtureSpec describes one aggregatable fixture field.
type fixtureSpec struct {
	description string
	count       func(*model.FixtureCounts) int
}

var lightingSpecs = []fixtureSpec{
	{"Ceiling light point, complete with fitting", func(f *model.FixtureCounts) int { return f.CeilingLights }},
	{"Downlight point, complete with fitting", func(f *model.FixtureCounts) int { return f.Downlights }},
	{"Pendant light point, complete with fitting", func(f *model.FixtureCounts) int { return f.PendantLights }},
	{"Flood light, wall or eave mounted", func(f *model.FixtureCounts) int { return f.FloodLights }},
}

var switchSpecs = []fixtureSpec{
	{"Light switch, one lever", func(f *model.FixtureCounts) int { return f.Switch1Lever }},
	{"Light switch, two lever", func(f *model.FixtureCounts) int { return f.Switch2Lever }},
	{"Two-way switch arrangement", func(f *model.FixtureCounts) int { return f.Switch2Way }},
	{"Dimmer switch", func(f *model.FixtureCounts) int { return f.DimmerSwitch }},
	{"Isolator switch", func(f *model.FixtureCounts) int { return f.IsolatorSwitch }},
}

var outletSpecs = []fixtureSpec{
	{"Single socket outlet at 300mm", func(f *model.FixtureCounts) int { return f.SingleSocket300 }},
	{"Double socket outlet at 300mm", func(f *model.FixtureCounts) int { return f.DoubleSocket300 }},
	{"Single socket outlet at 1100mm", func(f *model.FixtureCounts) int { return f.SingleSocket1100 }},
	{"Double socket outlet at 1100mm", func(f *model.FixtureCounts) int { return f.DoubleSocket1100 }},
	{"Weatherproof socket outlet", func(f *model.FixtureCounts) int { return f.WeatherproofSocket }},
	{"Aircon isolator point", func(f *model.FixtureCounts) int { return f.AirconPoint }},
	{"Geyser isolator point", func(f *model.FixtureCounts) int { return f.GeyserPoint }},
	{"Stove connection unit", func(f *model.FixtureCounts) int { return f.StovePoint }},
}

var dataSpecs = []fixtureSpec{
	{"Data point, CAT6 to patch position", func(f *model.FixtureCounts) int { return f.DataPoint }},
	{"TV point, coaxial to aerial position", func(f *model.FixtureCounts) int { return f.TVPoint }},
}

// aggregateFixtures sums one fixture kind across every room of every block
// into a single line with a location list. Rooms contribute in drawing
// order; a fixture kind nobody uses emits no line.
func aggregateFixtures(res model.ExtractionResult, section model.BQSection, specs []fixtureSpec) []model.BQLineItem {
	var items []model.BQLineItem
	for _, spec := range specs {
		total := 0
		var locs []string
		conf := model.ItemConfidence("")
		for _, b := range res.Blocks {
			for _, r := range b.Rooms {
				n := spec.count(&r.Fixtures)
				if n == 0 {
					continue
				}
				total += n
				locs = append(locs, r.Name)
				conf = worstConfidence(conf, r.Confidence.OrDefault())
			}
		}
		if total == 0 {
			continue
		}
		items = append(items, model.BQLineItem{
			Section:     section,
			Description: spec.description,
			Unit:        "no",
			Quantity:    float64(total),
			Confidence:  conf,
			Locations:   locs,
		})
	}
	return items
}

func walkLighting(in walkInput) []model.BQLineItem {
	items := aggregateFixtures(in.res, model.SectionLighting, lightingSpecs)
	if ol := in.res.OutsideLights; ol != nil && ol.Count > 0 {
		kind := ol.Type
		if kind == "" {
			kind = "bulkhead"
		}
		items = append(items, model.BQLineItem{
			Section:     model.SectionLighting,
			Description: fmt.Sprintf("Exterior light, %s, wired complete", kind),
			Unit:        "no",
			Quantity:    float64(ol.Count),
			Confidence:  ol.Confidence.OrDefault(),
		})
	}
	return items
}

func walkSwitches(in walkInput) []model.BQLineItem {
	return aggregateFixtures(in.res, model.SectionSwitches, switchSpecs)
}

func walkPowerOutlets(in walkInput) []model.BQLineItem {
	return aggregateFixtures(in.res, model.SectionPowerOutlets, outletSpecs)
}

func walkDataComms(in walkInput) []model.BQLineItem {
	return aggregateFixtures(in.res, model.SectionDataComms, dataSpecs)
}

func walkContainment(in walkInput) []model.BQLineItem {
	var items []model.BQLineItem
	for _, b := range in.res.Blocks {
		for _, ct := range b.Containment {
			length := ct.LengthM
			conf := ct.Confidence.OrDefault()
			if length == 0 {
				length = defaultContainmentLengthM
				conf = model.ConfidenceEstimated
			}
			desc := ct.Type
			if ct.SizeMM > 0 {
				desc = fmt.Sprintf("%s, %dmm", ct.Type, ct.SizeMM)
			}
			items = append(items, model.BQLineItem{
				Section:     model.SectionContainment,
				Description: desc,
				Unit:        "m",
				Quantity:    length,
				Confidence:  conf,
				Locations:   []string{b.Name},
			})
		}
	}
	return items
}

func walkUnderground(in walkInput) []model.BQLineItem {
	var items []model.BQLineItem
	for _, r := range in.res.SiteCableRuns {
		if r.Method != model.InstallTrenched {
			continue
		}
		length, conf := runLength(r)
		items = append(items,
			model.BQLineItem{
				Section:     model.SectionUnderground,
				Description: fmt.Sprintf("Trench excavation and backfill, 600mm deep, %s to %s", r.From, r.To),
				Unit:        "m",
				Quantity:    length,
				Confidence:  conf,
			},
			model.BQLineItem{
				Section:     model.SectionUnderground,
				Description: fmt.Sprintf("Armoured cable in trench, %.1fmm2 %s, %s to %s", r.CableSizeMM2, materialLabel(r.CableMat), r.From, r.To),
				Unit:        "m",
				Quantity:    length,
				Confidence:  conf,
			},
		)
	}
	return items
}

func walkSolar(in walkInput) []model.BQLineItem {
	var items []model.BQLineItem
	for _, sp := range in.res.SupplyPoints {
		if !strings.EqualFold(sp.Type, "solar") {
			continue
		}
		items = append(items,
			model.BQLineItem{
				Section:     model.SectionSolar,
				Description: fmt.Sprintf("Solar inverter provision, %dA change-over and protection", sp.CapacityA),
				Unit:        "no",
				Quantity:    1,
				Confidence:  sp.Confidence.OrDefault(),
			},
			model.BQLineItem{
				Section:     model.SectionSolar,
				Description: "Solar DC conduit and roof penetration provision",
				Unit:        "sum",
				Quantity:    1,
				Confidence:  model.ConfidenceEstimated,
			},
		)
	}
	return items
}

func walkEarthing(in walkInput) []model.BQLineItem {
	corrected := correctedBoards(in.flags, "ELCB Required")
	spdCorrected := correctedBoards(in.flags, "Surge Protection Recommended")

	var items []model.BQLineItem
	for _, b := range in.res.Blocks {
		for _, d := range b.Boards {
			if d.EarthLeakage {
				conf := d.Confidence.OrDefault()
				if corrected[d.Name] {
					conf = model.ConfidenceEstimated
				}
				items = append(items, model.BQLineItem{
					Section:     model.SectionEarthing,
					Description: fmt.Sprintf("Earth-leakage unit, %dA/%dmA, on %s", d.EarthLeakageA, d.EarthLeakageMilli, d.Name),
					Unit:        "no",
					Quantity:    1,
					Confidence:  conf,
				})
			}
			if d.SurgeProtection {
				conf := d.Confidence.OrDefault()
				if spdCorrected[d.Name] {
					conf = model.ConfidenceEstimated
				}
				items = append(items, model.BQLineItem{
					Section:     model.SectionEarthing,
					Description: fmt.Sprintf("Surge protection device, type 2, on %s", d.Name),
					Unit:        "no",
					Quantity:    1,
					Confidence:  conf,
				})
			}
		}
		if len(b.Boards) > 0 {
			items = append(items, model.BQLineItem{
				Section:     model.SectionEarthing,
				Description: fmt.Sprintf("Earth electrode and main bonding, %s", b.Name),
				Unit:        "no",
				Quantity:    1,
				Confidence:  model.ConfidenceInferred,
			})
		}
	}
	return items
}

func walkFireSafety(in walkInput) []model.BQLineItem {
	if in.tier != model.TierCommercial && in.tier != model.TierIndustrial {
		return nil
	}
	emergency, fire := 0, 0
	for _, b := range in.res.Blocks {
		for _, d := range b.Boards {
			for _, c := range d.Circuits {
				low := strings.ToLower(c.Description)
				if strings.Contains(low, "emergency") {
					emergency++
				}
				if strings.Contains(low, "smoke") || strings.Contains(low, "fire") {
					fire++
				}
			}
		}
	}

	var items []model.BQLineItem
	if emergency > 0 {
		items = append(items, model.BQLineItem{
			Section:     model.SectionFireSafety,
			Description: "Emergency lighting circuit, wired complete",
			Unit:        "no",
			Quantity:    float64(emergency),
			Confidence:  model.ConfidenceInferred,
		})
	}
	if fire > 0 {
		items = append(items, model.BQLineItem{
			Section:     model.SectionFireSafety,
			Description: "Fire detection zone, wired complete",
			Unit:        "no",
			Quantity:    float64(fire),
			Confidence:  model.ConfidenceInferred,
		})
	}
	return items
}

func walkPrelims(in walkInput) []model.BQLineItem {
	points := 0
	for i := range in.res.Blocks {
		points += in.res.Blocks[i].PointCount()
	}
	days := points / pointsPerCrewDay
	if points%pointsPerCrewDay != 0 || days == 0 {
		days++
	}

	return []model.BQLineItem{
		{
			Section:     model.SectionPrelimsTesting,
			Description: "Site establishment and preliminaries",
			Unit:        "sum",
			Quantity:    1,
			Confidence:  model.ConfidenceEstimated,
		},
		{
			Section:     model.SectionPrelimsTesting,
			Description: "Electrician labour, two-man crew",
			Unit:        "day",
			Quantity:    float64(days),
			Confidence:  model.ConfidenceEstimated,
			RateOnly:    true,
		},
		{
			Section:     model.SectionPrelimsTesting,
			Description: "Certificate of Compliance, inspection and test",
			Unit:        "no",
			Quantity:    1,
			Confidence:  model.ConfidenceExtracted,
			RateOnly:    true,
		},
		{
			Section:     model.SectionPrelimsTesting,
			Description: "As-built drawings and circuit schedules",
			Unit:        "sum",
			Quantity:    1,
			Confidence:  model.ConfidenceEstimated,
		},
	}
}

// remedialLine describes the bill entry a defect code produces.
type remedialLine struct {
	section     model.BQSection
	description string
}

var remedials = map[string]remedialLine{
	"ELCB_UPGRADE":               {model.SectionEarthing, "Replace or upgrade earth-leakage unit"},
	"EARTH_BONDING":              {model.SectionEarthing, "Re-establish earth bonding to services"},
	"EARTH_SPIKE":                {model.SectionEarthing, "Install earth electrode"},
	"DB_REPLACE":                 {model.SectionBoards, "Distribution board replacement"},
	"DB_LABELLING":               {model.SectionPrelimsTesting, "Re-label distribution board circuits"},
	"SOCKET_REWIRE":              {model.SectionPowerOutlets, "Rewire defective socket outlet circuits"},
	"FULL_REWIRE":                {model.SectionFinalCircuits, "Full rewire of final circuits"},
	"STOVE_CIRCUIT_MISSING":      {model.SectionFinalCircuits, "Install dedicated stove circuit"},
	"GEYSER_CIRCUIT_MISSING":     {model.SectionFinalCircuits, "Install dedicated geyser circuit"},
	"EMERGENCY_LIGHTING_MISSING": {model.SectionFireSafety, "Install emergency lighting to escape routes"},
	"FIRE_DETECTION_MISSING":     {model.SectionFireSafety, "Install fire detection to occupied areas"},
	"GENERAL_REMEDIAL":           {model.SectionPrelimsTesting, "General remedial works allowance"},
}

// remedialItems turns unresolved defect-coded flags into estimated bill
// lines, one per code with the occurrence count as quantity.
func remedialItems(flags []model.ValidationFlag) map[model.BQSection][]model.BQLineItem {
	counts := map[string]int{}
	for _, f := range flags {
		if f.DefectCode == "" || !f.Unresolved() {
			continue
		}
		counts[f.DefectCode]++
	}

	codes := make([]string, 0, len(counts))
	for code := range counts {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	out := map[model.BQSection][]model.BQLineItem{}
	for _, code := range codes {
		r, ok := remedials[code]
		if !ok {
			r = remedials["GENERAL_REMEDIAL"]
		}
		out[r.section] = append(out[r.section], model.BQLineItem{
			Section:     r.section,
			Description: r.description,
			Unit:        "no",
			Quantity:    float64(counts[code]),
			Confidence:  model.ConfidenceEstimated,
		})
	}
	return out
}

func circuitLength(c model.Circuit) (float64, model.ItemConfidence) {
	if c.CableLengthM > 0 {
		return c.CableLengthM, c.Confidence.OrDefault()
	}
	return defaultCircuitLengthM[c.Type], model.ConfidenceEstimated
}

func runLength(r model.SiteCableRun) (float64, model.ItemConfidence) {
	if r.LengthM > 0 {
		return r.LengthM, r.Confidence.OrDefault()
	}
	return defaultSiteRunLengthM, model.ConfidenceEstimated
}

func materialLabel(m model.CableMaterial) string {
	switch m {
	case model.MaterialCopper:
		return "Cu"
	case model.MaterialAluminium:
		return "Al"
	default:
		return "Cu"
	}
}

func methodLabel(m model.InstallMethod) string {
	switch m {
	case model.InstallOverhead:
		return "overhead"
	case model.InstallSurface:
		return "surface fixed"
	case model.InstallConduit:
		return "in conduit"
	case model.InstallTray:
		return "on cable tray"
	default:
		return "surface fixed"
	}
}

// confidenceRank orders tags from most to least trusted for aggregation.
var confidenceRank = map[model.ItemConfidence]int{
	model.ConfidenceManual:    3,
	model.ConfidenceExtracted: 2,
	model.ConfidenceInferred:  1,
	model.ConfidenceEstimated: 0,
}

// worstConfidence returns the weaker of two tags; an empty tag is ignored.
func worstConfidence(a, b model.ItemConfidence) model.ItemConfidence {
	if a == "" {
		return b
	}
	if b == "" {
		return a
	}
	if confidenceRank[a] <= confidenceRank[b] {
		return a
	}
	return b
}

// correctedBoards indexes board names auto-corrected by the named rule.
func correctedBoards(flags []model.ValidationFlag, rule string) map[string]bool {
	out := map[string]bool{}
	for _, f := range flags {
		if f.Rule == rule && f.Corrected {
			out[f.Board] = true
		}
	}
	return out
}
