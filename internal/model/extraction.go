package model

// CircuitType classifies what a final circuit feeds. Unclassified drawing
// symbols map to CircuitOther rather than failing the parse.
type CircuitType string

const (
	CircuitPower     CircuitType = "power"
	CircuitLighting  CircuitType = "lighting"
	CircuitAircon    CircuitType = "aircon"
	CircuitGeyser    CircuitType = "geyser"
	CircuitStove     CircuitType = "stove"
	CircuitDedicated CircuitType = "dedicated"
	CircuitSubFeed   CircuitType = "sub_board_feed"
	CircuitOther     CircuitType = "other"
)

// ParseCircuitType normalizes a free-text circuit type from the extraction
// provider into a closed variant. Unknown labels become CircuitOther.
func ParseCircuitType(s string) CircuitType {
	switch CircuitType(normalizeEnum(s)) {
	case CircuitPower:
		return CircuitPower
	case CircuitLighting:
		return CircuitLighting
	case CircuitAircon, "ac", "air_conditioning", "hvac":
		return CircuitAircon
	case CircuitGeyser, "water_heater", "hot_water":
		return CircuitGeyser
	case CircuitStove, "oven", "hob":
		return CircuitStove
	case CircuitDedicated:
		return CircuitDedicated
	case CircuitSubFeed, "sub_feed", "subboard", "sub_db", "feeder":
		return CircuitSubFeed
	default:
		return CircuitOther
	}
}

// BreakerType is the protective device type on a circuit.
type BreakerType string

const (
	BreakerMCB      BreakerType = "mcb"
	BreakerRCBO     BreakerType = "rcbo"
	BreakerELCB     BreakerType = "elcb"
	BreakerIsolator BreakerType = "isolator"
	BreakerUnknown  BreakerType = "unknown"
)

// ParseBreakerType normalizes a free-text breaker label.
func ParseBreakerType(s string) BreakerType {
	switch BreakerType(normalizeEnum(s)) {
	case BreakerMCB, "breaker", "circuit_breaker":
		return BreakerMCB
	case BreakerRCBO:
		return BreakerRCBO
	case BreakerELCB, "rcd", "earth_leakage":
		return BreakerELCB
	case BreakerIsolator:
		return BreakerIsolator
	default:
		return BreakerUnknown
	}
}

// CableMaterial is the conductor material of a cable.
type CableMaterial string

const (
	MaterialCopper    CableMaterial = "copper"
	MaterialAluminium CableMaterial = "aluminium"
	MaterialUnknown   CableMaterial = "unknown"
)

// ParseCableMaterial normalizes a free-text conductor material label.
func ParseCableMaterial(s string) CableMaterial {
	switch CableMaterial(normalizeEnum(s)) {
	case MaterialCopper, "cu":
		return MaterialCopper
	case MaterialAluminium, "aluminum", "al":
		return MaterialAluminium
	default:
		return MaterialUnknown
	}
}

// InstallMethod describes how a site cable run is installed.
type InstallMethod string

const (
	InstallTrenched InstallMethod = "trenched"
	InstallOverhead InstallMethod = "overhead"
	InstallSurface  InstallMethod = "surface"
	InstallConduit  InstallMethod = "conduit"
	InstallTray     InstallMethod = "cable_tray"
	InstallUnknown  InstallMethod = "unknown"
)

// ParseInstallMethod normalizes a free-text installation method label.
func ParseInstallMethod(s string) InstallMethod {
	switch InstallMethod(normalizeEnum(s)) {
	case InstallTrenched, "underground", "buried", "trench":
		return InstallTrenched
	case InstallOverhead, "aerial":
		return InstallOverhead
	case InstallSurface:
		return InstallSurface
	case InstallConduit:
		return InstallConduit
	case InstallTray, "tray":
		return InstallTray
	default:
		return InstallUnknown
	}
}

// ExtractionResult is the root aggregate produced by the extraction stage.
// Every Circuit.FeedsBoard must name a board that exists somewhere in the
// result; Room.CircuitRefs are advisory cross-links, not enforced keys.
type ExtractionResult struct {
	ProjectName   string               `json:"project_name,omitempty"`
	Blocks        []BuildingBlock      `json:"blocks"`
	SupplyPoints  []SupplyPoint        `json:"supply_points,omitempty"`
	SiteCableRuns []SiteCableRun       `json:"site_cable_runs,omitempty"`
	OutsideLights *OutsideLights       `json:"outside_lights,omitempty"`
	Existing      *ExistingInstall     `json:"existing_installation,omitempty"`
}

// IsEmpty reports whether the result carries no usable quantities.
func (r *ExtractionResult) IsEmpty() bool {
	if r == nil {
		return true
	}
	return len(r.Blocks) == 0 && len(r.SupplyPoints) == 0 &&
		len(r.SiteCableRuns) == 0 && r.OutsideLights == nil && r.Existing == nil
}

// FindBoard returns the first distribution board with the given name across
// all blocks, or nil when no such board exists.
func (r *ExtractionResult) FindBoard(name string) *DistributionBoard {
	for bi := range r.Blocks {
		for di := range r.Blocks[bi].Boards {
			if r.Blocks[bi].Boards[di].Name == name {
				return &r.Blocks[bi].Boards[di]
			}
		}
	}
	return nil
}

// BuildingBlock is a physical building or zone owning boards, rooms,
// heavy equipment and cable containment.
type BuildingBlock struct {
	Name           string             `json:"name"`
	Boards         []DistributionBoard `json:"boards"`
	Rooms          []Room             `json:"rooms"`
	HeavyEquipment []HeavyEquipment   `json:"heavy_equipment,omitempty"`
	Containment    []CableContainment `json:"containment,omitempty"`
}

// BoardCount returns the number of distribution boards in the block.
func (b *BuildingBlock) BoardCount() int { return len(b.Boards) }

// CircuitCount returns the total circuit count across all boards.
func (b *BuildingBlock) CircuitCount() int {
	n := 0
	for i := range b.Boards {
		n += len(b.Boards[i].Circuits)
	}
	return n
}

// ConnectedWatts returns the total connected load across rooms and circuits.
func (b *BuildingBlock) ConnectedWatts() int {
	w := 0
	for i := range b.Rooms {
		w += b.Rooms[i].Fixtures.ConnectedWatts()
	}
	for i := range b.Boards {
		for j := range b.Boards[i].Circuits {
			w += b.Boards[i].Circuits[j].LoadWatts
		}
	}
	return w
}

// PointCount returns the total fixture point count across all rooms.
func (b *BuildingBlock) PointCount() int {
	n := 0
	for i := range b.Rooms {
		f := &b.Rooms[i].Fixtures
		n += f.TotalLights() + f.TotalSockets() + f.TotalSwitches() + f.TotalEquipment()
	}
	return n
}

// DistributionBoard owns a list of circuits plus its protective devices.
// Total ways is derived, never stored: TotalWays() == len(Circuits)+SpareWays.
type DistributionBoard struct {
	Name              string         `json:"name"`
	Location          string         `json:"location,omitempty"`
	MainBreakerA      int            `json:"main_breaker_a"`
	EarthLeakage      bool           `json:"earth_leakage"`
	EarthLeakageA     int            `json:"earth_leakage_a,omitempty"`
	EarthLeakageMilli int            `json:"earth_leakage_ma,omitempty"`
	SurgeProtection   bool           `json:"surge_protection"`
	SpareWays         int            `json:"spare_ways"`
	PhaseCount        int            `json:"phase_count,omitempty"` // 1 or 3
	Circuits          []Circuit      `json:"circuits"`
	Confidence        ItemConfidence `json:"confidence,omitempty"`
	SourceRef         string         `json:"source_ref,omitempty"`
}

// TotalWays returns the board's way count: used circuits plus spare ways.
func (d *DistributionBoard) TotalWays() int {
	return len(d.Circuits) + d.SpareWays
}

// Circuit is a single way on a distribution board.
type Circuit struct {
	Number       string         `json:"number,omitempty"`
	Description  string         `json:"description,omitempty"`
	Type         CircuitType    `json:"type"`
	BreakerA     int            `json:"breaker_a"`
	BreakerType  BreakerType    `json:"breaker_type,omitempty"`
	CableSizeMM2 float64        `json:"cable_size_mm2,omitempty"`
	CableMat     CableMaterial  `json:"cable_material,omitempty"`
	CableLengthM float64        `json:"cable_length_m,omitempty"` // 0 = unmeasured
	Points       int            `json:"points,omitempty"`
	Phase        int            `json:"phase,omitempty"` // 1..3 on three-phase boards
	LoadWatts    int            `json:"load_watts,omitempty"`
	FeedsBoard   string         `json:"feeds_board,omitempty"`
	Confidence   ItemConfidence `json:"confidence,omitempty"`
	SourceRef    string         `json:"source_ref,omitempty"`
}

// Room belongs to one building block and tallies its fixtures.
type Room struct {
	Name        string         `json:"name"`
	Fixtures    FixtureCounts  `json:"fixtures"`
	CircuitRefs []string       `json:"circuit_refs,omitempty"`
	Confidence  ItemConfidence `json:"confidence,omitempty"`
	SourceRef   string         `json:"source_ref,omitempty"`
}

// SupplyPoint is an incoming supply attached to the project root.
type SupplyPoint struct {
	Name       string         `json:"name,omitempty"`
	Type       string         `json:"type,omitempty"` // municipal, generator, solar
	VoltageV   int            `json:"voltage_v,omitempty"`
	PhaseCount int            `json:"phase_count,omitempty"`
	CapacityA  int            `json:"capacity_a,omitempty"`
	Confidence ItemConfidence `json:"confidence,omitempty"`
	SourceRef  string         `json:"source_ref,omitempty"`
}

// SiteCableRun is an inter-building cable run on the site plan.
type SiteCableRun struct {
	From         string         `json:"from"`
	To           string         `json:"to"`
	LengthM      float64        `json:"length_m,omitempty"` // 0 = unmeasured
	CableSizeMM2 float64        `json:"cable_size_mm2,omitempty"`
	CableMat     CableMaterial  `json:"cable_material,omitempty"`
	Method       InstallMethod  `json:"install_method,omitempty"`
	Confidence   ItemConfidence `json:"confidence,omitempty"`
	SourceRef    string         `json:"source_ref,omitempty"`
}

// HeavyEquipment is a fixed machine requiring its own supply.
type HeavyEquipment struct {
	Name             string         `json:"name"`
	PowerKW          float64        `json:"power_kw,omitempty"`
	VoltageV         int            `json:"voltage_v,omitempty"`
	PhaseCount       int            `json:"phase_count,omitempty"`
	DedicatedCircuit bool           `json:"dedicated_circuit"`
	Confidence       ItemConfidence `json:"confidence,omitempty"`
	SourceRef        string         `json:"source_ref,omitempty"`
}

// CableContainment is a tray, ladder, conduit, trunking or sleeve entry.
type CableContainment struct {
	Type       string         `json:"type"`
	SizeMM     int            `json:"size_mm,omitempty"`
	LengthM    float64        `json:"length_m,omitempty"`
	Confidence ItemConfidence `json:"confidence,omitempty"`
	SourceRef  string         `json:"source_ref,omitempty"`
}

// OutsideLights covers pole and bulkhead lighting outside the buildings.
type OutsideLights struct {
	Count      int            `json:"count"`
	Type       string         `json:"type,omitempty"`
	Confidence ItemConfidence `json:"confidence,omitempty"`
	SourceRef  string         `json:"source_ref,omitempty"`
}

// ExistingInstall is the assessed state of an existing installation,
// populated only for maintenance/inspection projects.
type ExistingInstall struct {
	AgeYears         int            `json:"age_years,omitempty"`
	LastCOCYear      int            `json:"last_coc_year,omitempty"`
	ObservedDefects  []string       `json:"observed_defects,omitempty"`
	BoardsInspected  int            `json:"boards_inspected,omitempty"`
	Confidence       ItemConfidence `json:"confidence,omitempty"`
}

func normalizeEnum(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'A' && c <= 'Z':
			out = append(out, c+'a'-'A')
		case c == ' ' || c == '-' || c == '/':
			out = append(out, '_')
		default:
			out = append(out, c)
		}
	}
	return string(out)
}
