package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCircuitType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want CircuitType
	}{
		{"power", CircuitPower},
		{"Lighting", CircuitLighting},
		{"AC", CircuitAircon},
		{"air conditioning", CircuitAircon},
		{"water heater", CircuitGeyser},
		{"hob", CircuitStove},
		{"sub-feed", CircuitSubFeed},
		{"feeder", CircuitSubFeed},
		{"mystery", CircuitOther},
		{"", CircuitOther},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseCircuitType(tt.in), tt.in)
	}
}

func TestParseBreakerType(t *testing.T) {
	t.Parallel()

	assert.Equal(t, BreakerMCB, ParseBreakerType("Circuit Breaker"))
	assert.Equal(t, BreakerELCB, ParseBreakerType("RCD"))
	assert.Equal(t, BreakerRCBO, ParseBreakerType("rcbo"))
	assert.Equal(t, BreakerUnknown, ParseBreakerType("fuse wire"))
}

func TestParseCableMaterial(t *testing.T) {
	t.Parallel()

	assert.Equal(t, MaterialCopper, ParseCableMaterial("Cu"))
	assert.Equal(t, MaterialAluminium, ParseCableMaterial("aluminum"))
	assert.Equal(t, MaterialUnknown, ParseCableMaterial(""))
}

func TestParseInstallMethod(t *testing.T) {
	t.Parallel()

	assert.Equal(t, InstallTrenched, ParseInstallMethod("underground"))
	assert.Equal(t, InstallOverhead, ParseInstallMethod("aerial"))
	assert.Equal(t, InstallTray, ParseInstallMethod("tray"))
	assert.Equal(t, InstallUnknown, ParseInstallMethod("teleported"))
}

func TestTotalWaysIsDerived(t *testing.T) {
	t.Parallel()

	board := DistributionBoard{
		SpareWays: 4,
		Circuits:  []Circuit{{Type: CircuitPower}, {Type: CircuitLighting}},
	}
	assert.Equal(t, 6, board.TotalWays())

	board.Circuits = append(board.Circuits, Circuit{Type: CircuitGeyser})
	assert.Equal(t, 7, board.TotalWays())
}

func TestFindBoardAcrossBlocks(t *testing.T) {
	t.Parallel()

	r := ExtractionResult{Blocks: []BuildingBlock{
		{Name: "House", Boards: []DistributionBoard{{Name: "DB1"}}},
		{Name: "Cottage", Boards: []DistributionBoard{{Name: "DB2", SpareWays: 2}}},
	}}

	require.NotNil(t, r.FindBoard("DB2"))
	assert.Equal(t, 2, r.FindBoard("DB2").SpareWays)
	assert.Nil(t, r.FindBoard("DB9"))

	// The returned pointer aliases the stored board.
	r.FindBoard("DB1").SpareWays = 5
	assert.Equal(t, 5, r.Blocks[0].Boards[0].SpareWays)
}

func TestIsEmpty(t *testing.T) {
	t.Parallel()

	var nilResult *ExtractionResult
	assert.True(t, nilResult.IsEmpty())
	assert.True(t, (&ExtractionResult{ProjectName: "x"}).IsEmpty())
	assert.False(t, (&ExtractionResult{Blocks: []BuildingBlock{{}}}).IsEmpty())
	assert.False(t, (&ExtractionResult{OutsideLights: &OutsideLights{Count: 1}}).IsEmpty())
}

func TestBlockDerivedCounts(t *testing.T) {
	t.Parallel()

	b := BuildingBlock{
		Boards: []DistributionBoard{
			{Circuits: []Circuit{{LoadWatts: 500}, {LoadWatts: 1500}}},
			{Circuits: []Circuit{{}}},
		},
		Rooms: []Room{
			{Fixtures: FixtureCounts{CeilingLights: 2, DoubleSocket300: 1}},
		},
	}

	assert.Equal(t, 2, b.BoardCount())
	assert.Equal(t, 3, b.CircuitCount())
	assert.Equal(t, 3, b.PointCount())
	// 2 lights at 60W + 1 socket at 180W + 2000W of circuit loads.
	assert.Equal(t, 120+180+2000, b.ConnectedWatts())
}
