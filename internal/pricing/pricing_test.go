package pricing

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/afriplan/takeoff-cli/internal/config"
	"github.com/afriplan/takeoff-cli/internal/model"
)

func testCfg() config.PricingConfig {
	return config.PricingConfig{VATPct: 15, DefaultMarkupPct: 20, DefaultContingency: 5}
}

// flatBook prices every section at a fixed default so expected subtotals
// are easy to derive by hand.
func flatBook(defaults map[model.BQSection]float64) *RateBook {
	return &RateBook{SectionDefaults: defaults}
}

func TestPriceTotalsChain(t *testing.T) {
	t.Parallel()

	// Seven lines: supply allowance (1), double sockets (10), prelims (4).
	// 1000 + 10*500 + 4*1000 = 10,000.
	validated := model.ValidationResult{
		Result: model.ExtractionResult{
			Blocks: []model.BuildingBlock{{
				Name: "House",
				Rooms: []model.Room{{
					Name:     "Kitchen",
					Fixtures: model.FixtureCounts{DoubleSocket300: 10},
				}},
			}},
		},
	}
	book := flatBook(map[model.BQSection]float64{
		model.SectionIncomingSupply: 1000,
		model.SectionPowerOutlets:   500,
		model.SectionPrelimsTesting: 1000,
	})
	profile := model.ContractorProfile{MarkupPct: 20, ContingencyPct: 5}

	out := New(book, testCfg()).Price(context.Background(), validated, model.TierResidential, profile, model.SiteConditions{})

	assert.InDelta(t, 10000.00, out.Subtotal, 0.001)
	assert.InDelta(t, 500.00, out.Contingency, 0.001)
	assert.InDelta(t, 2100.00, out.Margin, 0.001)
	assert.InDelta(t, 12600.00, out.TotalExclVAT, 0.001)
	assert.InDelta(t, 1890.00, out.VAT, 0.001)
	assert.InDelta(t, 14490.00, out.GrandTotal, 0.001)
	assert.InDelta(t, 5796.00, out.Schedule.Deposit, 0.001)
	assert.InDelta(t, 5796.00, out.Schedule.SecondFix, 0.001)
	assert.InDelta(t, 2898.00, out.Schedule.OnCompletion, 0.001)
}

func TestPriceSubtotalMatchesLineSum(t *testing.T) {
	t.Parallel()

	validated := sampleValidated()
	out := New(nil, testCfg()).Price(context.Background(), validated, model.TierResidential,
		model.DefaultContractorProfile(), model.SiteConditions{})

	sum := 0.0
	for _, it := range out.EstimatedBill.Items {
		sum += it.Total
	}
	assert.InDelta(t, out.Subtotal, sum, 0.01)
}

func TestPriceBillsShareMultiset(t *testing.T) {
	t.Parallel()

	validated := sampleValidated()
	out := New(nil, testCfg()).Price(context.Background(), validated, model.TierResidential,
		model.DefaultContractorProfile(), model.SiteConditions{})

	require.Equal(t, len(out.QuantityBill.Items), len(out.EstimatedBill.Items))

	type key struct {
		Section     model.BQSection
		Description string
		Quantity    float64
	}
	count := map[key]int{}
	for _, it := range out.QuantityBill.Items {
		assert.Zero(t, it.UnitPrice)
		assert.Zero(t, it.Total)
		count[key{it.Section, it.Description, it.Quantity}]++
	}
	for _, it := range out.EstimatedBill.Items {
		k := key{it.Section, it.Description, it.Quantity}
		count[k]--
		assert.GreaterOrEqual(t, count[k], 0, k.Description)
	}
	for k, n := range count {
		assert.Zero(t, n, k.Description)
	}
}

func TestPriceEveryLineComplete(t *testing.T) {
	t.Parallel()

	validated := sampleValidated()
	out := New(nil, testCfg()).Price(context.Background(), validated, model.TierResidential,
		model.DefaultContractorProfile(), model.SiteConditions{})

	for _, bill := range []model.BillOfQuantities{out.QuantityBill, out.EstimatedBill} {
		for _, it := range bill.Items {
			assert.NotEmpty(t, it.Section)
			assert.NotEmpty(t, it.Description)
			assert.NotEmpty(t, it.Unit)
			assert.Greater(t, it.Quantity, 0.0, it.Description)
			assert.True(t, it.Confidence.Valid(), it.Description)
		}
	}
}

func TestPriceSocketAggregation(t *testing.T) {
	t.Parallel()

	validated := model.ValidationResult{
		Result: model.ExtractionResult{
			Blocks: []model.BuildingBlock{{
				Name: "House",
				Rooms: []model.Room{
					{Name: "Kitchen", Fixtures: model.FixtureCounts{DoubleSocket300: 3, SingleSocket300: 1}},
					{Name: "Lounge", Fixtures: model.FixtureCounts{DoubleSocket300: 1, SingleSocket300: 1}},
				},
			}},
		},
	}

	out := New(nil, testCfg()).Price(context.Background(), validated, model.TierResidential,
		model.DefaultContractorProfile(), model.SiteConditions{})

	sockets := out.QuantityBill.SectionItems(model.SectionPowerOutlets)
	require.Len(t, sockets, 2)

	bySuffix := map[string]model.BQLineItem{}
	for _, it := range sockets {
		bySuffix[it.Description] = it
	}
	single := bySuffix["Single socket outlet at 300mm"]
	double := bySuffix["Double socket outlet at 300mm"]
	assert.Equal(t, 2.0, single.Quantity)
	assert.Equal(t, 4.0, double.Quantity)
	assert.Equal(t, []string{"Kitchen", "Lounge"}, single.Locations)
	assert.Equal(t, []string{"Kitchen", "Lounge"}, double.Locations)
}

func TestPriceDefaultLengthHeuristics(t *testing.T) {
	t.Parallel()

	validated := model.ValidationResult{
		Result: model.ExtractionResult{
			SiteCableRuns: []model.SiteCableRun{
				{From: "Gate", To: "House", Method: model.InstallTrenched, CableSizeMM2: 10, CableMat: model.MaterialCopper},
			},
		},
	}

	out := New(nil, testCfg()).Price(context.Background(), validated, model.TierResidential,
		model.DefaultContractorProfile(), model.SiteConditions{})

	under := out.QuantityBill.SectionItems(model.SectionUnderground)
	require.Len(t, under, 2)
	for _, it := range under {
		assert.Equal(t, float64(defaultSiteRunLengthM), it.Quantity)
		assert.Equal(t, model.ConfidenceEstimated, it.Confidence)
	}
}

func TestPriceSiteMultipliers(t *testing.T) {
	t.Parallel()

	validated := model.ValidationResult{
		Result: model.ExtractionResult{
			SiteCableRuns: []model.SiteCableRun{
				{From: "Gate", To: "House", LengthM: 10, Method: model.InstallTrenched},
			},
		},
	}
	book := flatBook(map[model.BQSection]float64{
		model.SectionIncomingSupply: 100,
		model.SectionUnderground:    100,
		model.SectionPrelimsTesting: 100,
	})
	profile := model.ContractorProfile{MarkupPct: 20, ContingencyPct: 5}

	flat := New(book, testCfg()).Price(context.Background(), validated, model.TierResidential, profile, model.SiteConditions{})
	harsh := New(book, testCfg()).Price(context.Background(), validated, model.TierResidential, profile, model.SiteConditions{
		Soil:    model.SoilRocky,
		Access:  model.AccessHard,
		RushJob: true,
	})

	// Rocky soil scales underground unit prices by 1.8.
	flatUnder := flat.EstimatedBill.SectionItems(model.SectionUnderground)
	harshUnder := harsh.EstimatedBill.SectionItems(model.SectionUnderground)
	require.NotEmpty(t, flatUnder)
	assert.InDelta(t, flatUnder[0].UnitPrice*1.8, harshUnder[0].UnitPrice, 0.001)

	// Hard access plus rush job scales preliminaries by 1.45.
	flatPrelims := flat.EstimatedBill.SectionItems(model.SectionPrelimsTesting)
	harshPrelims := harsh.EstimatedBill.SectionItems(model.SectionPrelimsTesting)
	assert.InDelta(t, flatPrelims[0].UnitPrice*1.45, harshPrelims[0].UnitPrice, 0.001)

	// The quantity bill is never scaled.
	for _, it := range harsh.QuantityBill.Items {
		assert.Zero(t, it.UnitPrice)
	}
}

func TestPriceContractorOverrides(t *testing.T) {
	t.Parallel()

	validated := model.ValidationResult{
		Result: model.ExtractionResult{
			Blocks: []model.BuildingBlock{{
				Name: "House",
				Rooms: []model.Room{{
					Name:     "Kitchen",
					Fixtures: model.FixtureCounts{DoubleSocket300: 2},
				}},
			}},
		},
	}
	profile := model.DefaultContractorProfile()
	profile.PriceOverrides = map[string]float64{"double socket": 999}

	out := New(nil, testCfg()).Price(context.Background(), validated, model.TierResidential, profile, model.SiteConditions{})

	sockets := out.EstimatedBill.SectionItems(model.SectionPowerOutlets)
	require.Len(t, sockets, 1)
	assert.InDelta(t, 999.0, sockets[0].UnitPrice, 0.001)
	assert.InDelta(t, 1998.0, sockets[0].Total, 0.001)
}

func TestPriceLabourDayRate(t *testing.T) {
	t.Parallel()

	validated := sampleValidated()
	profile := model.DefaultContractorProfile()
	profile.LabourDayRate = 1200

	out := New(nil, testCfg()).Price(context.Background(), validated, model.TierResidential, profile, model.SiteConditions{})

	var labour *model.BQLineItem
	for _, it := range out.EstimatedBill.SectionItems(model.SectionPrelimsTesting) {
		if it.Unit == "day" {
			labour = &it
			break
		}
	}
	require.NotNil(t, labour)
	assert.InDelta(t, 1200.0, labour.UnitPrice, 0.001)
}

func TestPriceGapFallsBackWithWarning(t *testing.T) {
	t.Parallel()

	validated := model.ValidationResult{
		Result: model.ExtractionResult{
			Blocks: []model.BuildingBlock{{
				Name: "House",
				Rooms: []model.Room{{
					Name:     "Kitchen",
					Fixtures: model.FixtureCounts{DoubleSocket300: 1},
				}},
			}},
		},
	}

	// Empty book: every lookup is a gap except the labour line, which is
	// rated from the contractor profile (850/day by default).
	out := New(&RateBook{}, testCfg()).Price(context.Background(), validated, model.TierResidential,
		model.DefaultContractorProfile(), model.SiteConditions{})

	assert.NotEmpty(t, out.Warnings)
	for _, w := range out.Warnings {
		assert.NotContains(t, w, "Electrician labour")
	}
	for _, it := range out.EstimatedBill.Items {
		if it.Unit == "day" {
			assert.InDelta(t, 850.0, it.UnitPrice, 0.001)
			continue
		}
		assert.Zero(t, it.UnitPrice, it.Description)
		assert.Equal(t, model.ConfidenceEstimated, it.Confidence, it.Description)
	}

	// Only the single labour day feeds the totals chain.
	assert.InDelta(t, 850.00, out.Subtotal, 0.001)
	assert.InDelta(t, 1231.65, out.GrandTotal, 0.001)
}

func TestPriceRateOnlyLines(t *testing.T) {
	t.Parallel()

	validated := sampleValidated()
	out := New(nil, testCfg()).Price(context.Background(), validated, model.TierResidential,
		model.DefaultContractorProfile(), model.SiteConditions{})

	// Only the labour and COC lines are flagged for contractor pricing, and
	// the flag matches between the two bills.
	for _, bill := range []model.BillOfQuantities{out.QuantityBill, out.EstimatedBill} {
		var flagged []string
		for _, it := range bill.Items {
			if it.RateOnly {
				flagged = append(flagged, it.Description)
				assert.Equal(t, model.SectionPrelimsTesting, it.Section)
			}
		}
		assert.ElementsMatch(t, []string{
			"Electrician labour, two-man crew",
			"Certificate of Compliance, inspection and test",
		}, flagged)
	}
}

func TestPriceRemedialLinesFromDefects(t *testing.T) {
	t.Parallel()

	validated := model.ValidationResult{
		Result: model.ExtractionResult{
			Existing: &model.ExistingInstall{AgeYears: 30},
		},
		Flags: []model.ValidationFlag{
			{Rule: "Observed Defect", Severity: model.SeverityWarning, DefectCode: "ELCB_UPGRADE"},
			{Rule: "Observed Defect", Severity: model.SeverityWarning, DefectCode: "ELCB_UPGRADE"},
			{Rule: "Observed Defect", Severity: model.SeverityWarning, DefectCode: "SOCKET_REWIRE"},
		},
	}

	out := New(nil, testCfg()).Price(context.Background(), validated, model.TierMaintenance,
		model.DefaultContractorProfile(), model.SiteConditions{})

	earthing := out.QuantityBill.SectionItems(model.SectionEarthing)
	require.Len(t, earthing, 1)
	assert.Equal(t, "Replace or upgrade earth-leakage unit", earthing[0].Description)
	assert.Equal(t, 2.0, earthing[0].Quantity)
	assert.Equal(t, model.ConfidenceEstimated, earthing[0].Confidence)

	outlets := out.QuantityBill.SectionItems(model.SectionPowerOutlets)
	require.Len(t, outlets, 1)
	assert.Equal(t, "Rewire defective socket outlet circuits", outlets[0].Description)
}

func TestPriceDeterministic(t *testing.T) {
	t.Parallel()

	validated := sampleValidated()
	e := New(nil, testCfg())

	first := e.Price(context.Background(), validated, model.TierResidential,
		model.DefaultContractorProfile(), model.SiteConditions{})
	second := e.Price(context.Background(), validated, model.TierResidential,
		model.DefaultContractorProfile(), model.SiteConditions{})

	assert.Equal(t, first, second)
}

func TestRateBookLookupOrder(t *testing.T) {
	t.Parallel()

	rb := &RateBook{
		Rates: []Rate{
			{Pattern: "double socket", Price: 400},
			{Pattern: "socket", Price: 300},
		},
		SectionDefaults: map[model.BQSection]float64{model.SectionPowerOutlets: 100},
	}

	price, ok := rb.Lookup(model.SectionPowerOutlets, "Double socket outlet at 300mm")
	require.True(t, ok)
	assert.Equal(t, 400.0, price)

	price, ok = rb.Lookup(model.SectionPowerOutlets, "Weatherproof socket outlet")
	require.True(t, ok)
	assert.Equal(t, 300.0, price)

	price, ok = rb.Lookup(model.SectionPowerOutlets, "Aircon isolator point")
	require.True(t, ok)
	assert.Equal(t, 100.0, price)

	_, ok = rb.Lookup(model.SectionLighting, "Ceiling light point")
	assert.False(t, ok)
}

func TestRateBookWithOverrides(t *testing.T) {
	t.Parallel()

	base := &RateBook{Rates: []Rate{{Pattern: "socket", Price: 300}}}
	rb := base.WithOverrides(map[string]float64{"socket": 500})

	price, ok := rb.Lookup(model.SectionPowerOutlets, "Double socket outlet")
	require.True(t, ok)
	assert.Equal(t, 500.0, price)

	// Base book untouched.
	price, _ = base.Lookup(model.SectionPowerOutlets, "Double socket outlet")
	assert.Equal(t, 300.0, price)
}

func TestLoadRateBookYAML(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "rates.yaml")
	body := `rates:
  - pattern: double socket
    price: 410
  - pattern: socket
    price: 330
section_defaults:
  power_outlets: 120
  lighting: 340
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	rb, err := Load(path)
	require.NoError(t, err)

	price, ok := rb.Lookup(model.SectionPowerOutlets, "Double socket outlet")
	require.True(t, ok)
	assert.Equal(t, 410.0, price)

	price, ok = rb.Lookup(model.SectionLighting, "Pendant light point")
	require.True(t, ok)
	assert.Equal(t, 340.0, price)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadXLSXOverrides(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "prices.xlsx")
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Rates")
	require.NoError(t, err)

	header := sheet.AddRow()
	header.AddCell().Value = "Description"
	header.AddCell().Value = "Rate"

	row := sheet.AddRow()
	row.AddCell().Value = "double socket"
	row.AddCell().SetFloat(410)

	row = sheet.AddRow()
	row.AddCell().Value = "ceiling light"
	row.AddCell().SetFloat(350)

	require.NoError(t, f.Save(path))

	overrides, err := LoadXLSXOverrides(path)
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{
		"double socket": 410,
		"ceiling light": 350,
	}, overrides)

	_, err = LoadXLSXOverrides(filepath.Join(t.TempDir(), "missing.xlsx"))
	assert.Error(t, err)
}

func TestLabourMultiplier(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 1.0, labourMultiplier(model.SiteConditions{}), 0.001)
	assert.InDelta(t, 1.25, labourMultiplier(model.SiteConditions{Access: model.AccessHard}), 0.001)
	assert.InDelta(t, 1.75, labourMultiplier(model.SiteConditions{
		Access:     model.AccessModerate,
		Renovation: true,
		Occupied:   true,
		RushJob:    true,
		Wall:       model.WallConcrete,
	}), 0.001)
}

// sampleValidated returns a mid-sized residential extraction exercising
// most walkers.
func sampleValidated() model.ValidationResult {
	board := model.DistributionBoard{
		Name: "DB1", Location: "Garage", MainBreakerA: 60,
		EarthLeakage: true, EarthLeakageA: 63, EarthLeakageMilli: 30,
		SurgeProtection: true, SpareWays: 4,
		Circuits: []model.Circuit{
			{Number: "C1", Type: model.CircuitPower, BreakerA: 20, Points: 8, Confidence: model.ConfidenceExtracted},
			{Number: "C2", Type: model.CircuitLighting, BreakerA: 10, Points: 9, Confidence: model.ConfidenceExtracted},
			{Number: "C3", Type: model.CircuitStove, BreakerA: 32, Confidence: model.ConfidenceExtracted},
			{Number: "C4", Type: model.CircuitGeyser, BreakerA: 20, Confidence: model.ConfidenceInferred},
		},
	}
	return model.ValidationResult{
		Result: model.ExtractionResult{
			Blocks: []model.BuildingBlock{{
				Name:   "House",
				Boards: []model.DistributionBoard{board},
				Rooms: []model.Room{
					{
						Name: "Kitchen",
						Fixtures: model.FixtureCounts{
							Downlights: 6, DoubleSocket300: 4, SingleSocket1100: 2,
							Switch2Lever: 1, StovePoint: 1,
						},
						Confidence: model.ConfidenceExtracted,
					},
					{
						Name: "Lounge",
						Fixtures: model.FixtureCounts{
							CeilingLights: 2, DoubleSocket300: 3, TVPoint: 1,
							Switch1Lever: 1, DataPoint: 2,
						},
						Confidence: model.ConfidenceExtracted,
					},
				},
				Containment: []model.CableContainment{
					{Type: "PVC conduit", SizeMM: 20, LengthM: 40, Confidence: model.ConfidenceInferred},
				},
			}},
			SupplyPoints: []model.SupplyPoint{
				{Name: "Municipal", Type: "municipal", VoltageV: 230, PhaseCount: 1, CapacityA: 80, Confidence: model.ConfidenceExtracted},
			},
			SiteCableRuns: []model.SiteCableRun{
				{From: "Boundary kiosk", To: "DB1", LengthM: 18, CableSizeMM2: 16, CableMat: model.MaterialCopper, Method: model.InstallTrenched, Confidence: model.ConfidenceExtracted},
			},
			OutsideLights: &model.OutsideLights{Count: 3, Type: "bulkhead", Confidence: model.ConfidenceInferred},
		},
	}
}
