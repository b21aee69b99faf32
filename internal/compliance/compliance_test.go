package compliance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/afriplan/takeoff-cli/internal/model"
)

// compliantBoard returns a board that passes every board-level rule.
func compliantBoard(name string) model.DistributionBoard {
	return model.DistributionBoard{
		Name:              name,
		MainBreakerA:      60,
		EarthLeakage:      true,
		EarthLeakageA:     63,
		EarthLeakageMilli: 30,
		SurgeProtection:   true,
		SpareWays:         4,
		Circuits: []model.Circuit{
			{Number: "C1", Type: model.CircuitPower, BreakerA: 20, Points: 8},
			{Number: "C2", Type: model.CircuitLighting, BreakerA: 10, Points: 10},
		},
	}
}

func findFlag(flags []model.ValidationFlag, rule string) *model.ValidationFlag {
	for i := range flags {
		if flags[i].Rule == rule {
			return &flags[i]
		}
	}
	return nil
}

func TestValidateELCBRequired(t *testing.T) {
	t.Parallel()

	board := compliantBoard("DB1")
	board.EarthLeakage = false
	board.EarthLeakageA = 0
	board.EarthLeakageMilli = 0
	in := model.ExtractionResult{
		Blocks: []model.BuildingBlock{{Name: "House", Boards: []model.DistributionBoard{board}}},
	}

	out := Validate(in, model.TierResidential)

	flag := findFlag(out.Flags, "ELCB Required")
	require.NotNil(t, flag)
	assert.Equal(t, model.SeverityCritical, flag.Severity)
	assert.True(t, flag.Corrected)
	assert.Equal(t, "DB1", flag.Board)

	corrected := out.Result.FindBoard("DB1")
	require.NotNil(t, corrected)
	assert.True(t, corrected.EarthLeakage)
	assert.Equal(t, 63, corrected.EarthLeakageA)
	assert.Equal(t, 30, corrected.EarthLeakageMilli)

	// Corrected criticals do not drag the score under 90.
	assert.GreaterOrEqual(t, out.Score, 90.0)

	// Input untouched.
	assert.False(t, in.Blocks[0].Boards[0].EarthLeakage)
}

func TestValidateIdempotent(t *testing.T) {
	t.Parallel()

	board := compliantBoard("DB1")
	board.EarthLeakage = false
	board.SurgeProtection = false
	in := model.ExtractionResult{
		Blocks: []model.BuildingBlock{{Name: "House", Boards: []model.DistributionBoard{board}}},
	}

	first := Validate(in, model.TierResidential)
	second := Validate(first.Result, model.TierResidential)

	for _, f := range second.Flags {
		assert.NotEqual(t, model.SeverityCritical, f.Severity, f.Rule)
	}
	assert.Nil(t, findFlag(second.Flags, "ELCB Required"))
	assert.Nil(t, findFlag(second.Flags, "Surge Protection Recommended"))
}

func TestValidateCircuitPointLimit(t *testing.T) {
	t.Parallel()

	board := compliantBoard("DB1")
	board.Circuits = append(board.Circuits, model.Circuit{
		Number: "C9", Type: model.CircuitPower, BreakerA: 20, Points: 14,
	})
	in := model.ExtractionResult{
		Blocks: []model.BuildingBlock{{Name: "House", Boards: []model.DistributionBoard{board}}},
	}

	out := Validate(in, model.TierResidential)

	flag := findFlag(out.Flags, "Circuit Point Limit")
	require.NotNil(t, flag)
	assert.Equal(t, model.SeverityCritical, flag.Severity)
	assert.False(t, flag.Corrected)
	assert.Less(t, out.Score, 90.0)
}

func TestValidateDedicatedCircuits(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		circuits  []model.Circuit
		wantRules []string
	}{
		{
			name:      "both dedicated circuits missing",
			circuits:  []model.Circuit{{Type: model.CircuitPower, Points: 6}},
			wantRules: []string{"Dedicated Stove Circuit", "Dedicated Geyser Circuit"},
		},
		{
			name: "stove present geyser missing",
			circuits: []model.Circuit{
				{Type: model.CircuitStove, BreakerA: 32},
			},
			wantRules: []string{"Dedicated Geyser Circuit"},
		},
		{
			name: "both present",
			circuits: []model.Circuit{
				{Type: model.CircuitStove, BreakerA: 32},
				{Type: model.CircuitGeyser, BreakerA: 20},
			},
			wantRules: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			board := compliantBoard("DB1")
			board.Circuits = tt.circuits
			in := model.ExtractionResult{
				Blocks: []model.BuildingBlock{{
					Name:   "House",
					Boards: []model.DistributionBoard{board},
					Rooms: []model.Room{{
						Name:     "Kitchen",
						Fixtures: model.FixtureCounts{StovePoint: 1, GeyserPoint: 1},
					}},
				}},
			}

			out := Validate(in, model.TierResidential)

			for _, rule := range tt.wantRules {
				flag := findFlag(out.Flags, rule)
				require.NotNil(t, flag, rule)
				assert.Equal(t, model.SeverityWarning, flag.Severity)
				assert.NotEmpty(t, flag.DefectCode)
			}
			if tt.wantRules == nil {
				assert.Nil(t, findFlag(out.Flags, "Dedicated Stove Circuit"))
				assert.Nil(t, findFlag(out.Flags, "Dedicated Geyser Circuit"))
			}
		})
	}
}

func TestValidateSpareWayRatio(t *testing.T) {
	t.Parallel()

	board := compliantBoard("DB1")
	board.SpareWays = 0
	in := model.ExtractionResult{
		Blocks: []model.BuildingBlock{{Name: "House", Boards: []model.DistributionBoard{board}}},
	}

	out := Validate(in, model.TierResidential)

	flag := findFlag(out.Flags, "Spare Way Capacity")
	require.NotNil(t, flag)
	assert.Equal(t, model.SeverityInfo, flag.Severity)
}

func TestValidatePhaseBalanceCommercialOnly(t *testing.T) {
	t.Parallel()

	board := compliantBoard("DB1")
	board.PhaseCount = 3
	board.SpareWays = 2
	board.Circuits = []model.Circuit{
		{Number: "C1", Type: model.CircuitPower, Phase: 1, LoadWatts: 9000, Points: 8},
		{Number: "C2", Type: model.CircuitPower, Phase: 2, LoadWatts: 500, Points: 8},
		{Number: "C3", Type: model.CircuitPower, Phase: 3, LoadWatts: 500, Points: 8},
	}
	in := model.ExtractionResult{
		Blocks: []model.BuildingBlock{{
			Name:   "Offices",
			Boards: []model.DistributionBoard{board},
			Rooms: []model.Room{
				{Name: "Emergency exit passage"},
				{Name: "Fire alarm panel room"},
			},
		}},
	}

	commercial := Validate(in, model.TierCommercial)
	flag := findFlag(commercial.Flags, "Phase Load Imbalance")
	require.NotNil(t, flag)
	assert.Equal(t, model.SeverityWarning, flag.Severity)

	residential := Validate(in, model.TierResidential)
	assert.Nil(t, findFlag(residential.Flags, "Phase Load Imbalance"))
}

func TestValidateLifeSafetyCommercial(t *testing.T) {
	t.Parallel()

	in := model.ExtractionResult{
		Blocks: []model.BuildingBlock{{
			Name:   "Shop Fitout",
			Boards: []model.DistributionBoard{compliantBoard("DB1")},
			Rooms:  []model.Room{{Name: "Sales floor"}},
		}},
	}

	out := Validate(in, model.TierCommercial)

	emergency := findFlag(out.Flags, "Emergency Lighting Required")
	require.NotNil(t, emergency)
	assert.Equal(t, model.SeverityCritical, emergency.Severity)
	assert.Less(t, out.Score, 90.0)

	fire := findFlag(out.Flags, "Fire Detection Required")
	require.NotNil(t, fire)
	assert.Equal(t, model.SeverityWarning, fire.Severity)
}

func TestValidateLifeSafetySkippedForWarehouse(t *testing.T) {
	t.Parallel()

	in := model.ExtractionResult{
		Blocks: []model.BuildingBlock{{
			Name:   "Warehouse B",
			Boards: []model.DistributionBoard{compliantBoard("DB1")},
		}},
	}

	out := Validate(in, model.TierCommercial)

	assert.Nil(t, findFlag(out.Flags, "Emergency Lighting Required"))
	assert.Nil(t, findFlag(out.Flags, "Fire Detection Required"))
}

func TestValidateUnknownBoardReference(t *testing.T) {
	t.Parallel()

	board := compliantBoard("DB1")
	board.Circuits = append(board.Circuits, model.Circuit{
		Number: "C5", Type: model.CircuitSubFeed, BreakerA: 63, FeedsBoard: "DB9",
	})
	in := model.ExtractionResult{
		Blocks: []model.BuildingBlock{{Name: "House", Boards: []model.DistributionBoard{board}}},
	}

	out := Validate(in, model.TierResidential)

	flag := findFlag(out.Flags, "Unknown Sub-Board Reference")
	require.NotNil(t, flag)
	assert.Equal(t, model.SeverityWarning, flag.Severity)
	assert.Contains(t, flag.Detail, "DB9")
}

func TestValidateTotalWaysInvariant(t *testing.T) {
	t.Parallel()

	board := compliantBoard("DB1")
	board.EarthLeakage = false
	in := model.ExtractionResult{
		Blocks: []model.BuildingBlock{{Name: "House", Boards: []model.DistributionBoard{board}}},
	}

	out := Validate(in, model.TierResidential)

	for _, b := range out.Result.Blocks {
		for _, d := range b.Boards {
			assert.Equal(t, len(d.Circuits)+d.SpareWays, d.TotalWays())
		}
	}
}

func TestAssessExistingObservedDefects(t *testing.T) {
	t.Parallel()

	in := model.ExtractionResult{
		Existing: &model.ExistingInstall{
			AgeYears: 30,
			ObservedDefects: []string{
				"no earth leakage unit at main board",
				"kitchen sockets loose wiring",
				"something unusual at the meter",
			},
		},
	}

	out := Validate(in, model.TierMaintenance)

	require.Len(t, out.Flags, 3)
	assert.Equal(t, "ELCB_UPGRADE", out.Flags[0].DefectCode)
	assert.Equal(t, "SOCKET_REWIRE", out.Flags[1].DefectCode)
	assert.Equal(t, "GENERAL_REMEDIAL", out.Flags[2].DefectCode)
	for _, f := range out.Flags {
		assert.Equal(t, "Observed Defect", f.Rule)
	}
}

func TestAssessExistingAgePrior(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		age       int
		wantCodes []string
	}{
		{"young install", 8, []string{"DB_LABELLING"}},
		{"mid-life install", 20, []string{"ELCB_UPGRADE", "EARTH_BONDING"}},
		{"old install", 35, []string{"ELCB_UPGRADE", "EARTH_BONDING", "DB_REPLACE", "SOCKET_REWIRE"}},
		{"very old install", 55, []string{"FULL_REWIRE", "DB_REPLACE", "EARTH_SPIKE"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			in := model.ExtractionResult{
				Existing: &model.ExistingInstall{AgeYears: tt.age},
			}

			out := Validate(in, model.TierMaintenance)

			var codes []string
			for _, f := range out.Flags {
				assert.Equal(t, "Age-Based Defect Likelihood", f.Rule)
				codes = append(codes, f.DefectCode)
			}
			assert.Equal(t, tt.wantCodes, codes)
		})
	}
}

func TestScoreBounds(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 100.0, score(nil))

	// Soft findings alone never cost more than 10 points.
	many := make([]model.ValidationFlag, 20)
	for i := range many {
		many[i] = model.ValidationFlag{Severity: model.SeverityWarning}
	}
	assert.Equal(t, 90.0, score(many))

	// Enough criticals floor at zero.
	criticals := make([]model.ValidationFlag, 10)
	for i := range criticals {
		criticals[i] = model.ValidationFlag{Severity: model.SeverityCritical}
	}
	assert.Equal(t, 0.0, score(criticals))
}
