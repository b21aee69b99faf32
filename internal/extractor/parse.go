package extractor

import (
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/afriplan/takeoff-cli/internal/model"
)

// Wire types mirror the provider's JSON schema. Enum-bearing fields arrive
// as free text and are normalized into closed variants during conversion.

type wireResult struct {
	ProjectName   string        `json:"project_name"`
	Blocks        []wireBlock   `json:"blocks"`
	SupplyPoints  []wireSupply  `json:"supply_points"`
	SiteCableRuns []wireRun     `json:"site_cable_runs"`
	OutsideLights *wireOutside  `json:"outside_lights"`
	Existing      *wireExisting `json:"existing_installation"`
}

type wireBlock struct {
	Name           string          `json:"name"`
	Boards         []wireBoard     `json:"boards"`
	Rooms          []wireRoom      `json:"rooms"`
	HeavyEquipment []wireEquipment `json:"heavy_equipment"`
	Containment    []wireContain   `json:"containment"`
}

type wireBoard struct {
	Name              string        `json:"name"`
	Location          string        `json:"location"`
	MainBreakerA      int           `json:"main_breaker_a"`
	EarthLeakage      bool          `json:"earth_leakage"`
	EarthLeakageA     int           `json:"earth_leakage_a"`
	EarthLeakageMilli int           `json:"earth_leakage_ma"`
	SurgeProtection   bool          `json:"surge_protection"`
	SpareWays         int           `json:"spare_ways"`
	PhaseCount        int           `json:"phase_count"`
	Circuits          []wireCircuit `json:"circuits"`
	Confidence        string        `json:"confidence"`
	SourceRef         string        `json:"source_ref"`
}

type wireCircuit struct {
	Number       string  `json:"number"`
	Description  string  `json:"description"`
	Type         string  `json:"type"`
	BreakerA     int     `json:"breaker_a"`
	BreakerType  string  `json:"breaker_type"`
	CableSizeMM2 float64 `json:"cable_size_mm2"`
	CableMat     string  `json:"cable_material"`
	CableLengthM float64 `json:"cable_length_m"`
	Points       int     `json:"points"`
	Phase        int     `json:"phase"`
	LoadWatts    int     `json:"load_watts"`
	FeedsBoard   string  `json:"feeds_board"`
	Confidence   string  `json:"confidence"`
	SourceRef    string  `json:"source_ref"`
}

type wireRoom struct {
	Name        string              `json:"name"`
	Fixtures    model.FixtureCounts `json:"fixtures"`
	CircuitRefs []string            `json:"circuit_refs"`
	Confidence  string              `json:"confidence"`
	SourceRef   string              `json:"source_ref"`
}

type wireSupply struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	VoltageV   int    `json:"voltage_v"`
	PhaseCount int    `json:"phase_count"`
	CapacityA  int    `json:"capacity_a"`
	Confidence string `json:"confidence"`
	SourceRef  string `json:"source_ref"`
}

type wireRun struct {
	From         string  `json:"from"`
	To           string  `json:"to"`
	LengthM      float64 `json:"length_m"`
	CableSizeMM2 float64 `json:"cable_size_mm2"`
	CableMat     string  `json:"cable_material"`
	Method       string  `json:"install_method"`
	Confidence   string  `json:"confidence"`
	SourceRef    string  `json:"source_ref"`
}

type wireEquipment struct {
	Name             string  `json:"name"`
	PowerKW          float64 `json:"power_kw"`
	VoltageV         int     `json:"voltage_v"`
	PhaseCount       int     `json:"phase_count"`
	DedicatedCircuit bool    `json:"dedicated_circuit"`
	Confidence       string  `json:"confidence"`
	SourceRef        string  `json:"source_ref"`
}

type wireContain struct {
	Type       string  `json:"type"`
	SizeMM     int     `json:"size_mm"`
	LengthM    float64 `json:"length_m"`
	Confidence string  `json:"confidence"`
	SourceRef  string  `json:"source_ref"`
}

type wireOutside struct {
	Count      int    `json:"count"`
	Type       string `json:"type"`
	Confidence string `json:"confidence"`
	SourceRef  string `json:"source_ref"`
}

type wireExisting struct {
	AgeYears        int      `json:"age_years"`
	LastCOCYear     int      `json:"last_coc_year"`
	ObservedDefects []string `json:"observed_defects"`
	BoardsInspected int      `json:"boards_inspected"`
	Confidence      string   `json:"confidence"`
}

// itemConfidence maps a provider certainty marker to the provenance tag a
// leaf quantity carries: directly legible values are extracted, hedged ones
// inferred, everything else estimated.
func itemConfidence(marker string) model.ItemConfidence {
	switch strings.ToLower(strings.TrimSpace(marker)) {
	case "high":
		return model.ConfidenceExtracted
	case "medium":
		return model.ConfidenceInferred
	default:
		return model.ConfidenceEstimated
	}
}

// Parse decodes a provider response body into the extraction model,
// normalizing all enum-bearing fields. Malformed JSON is a provider error.
func Parse(raw []byte) (model.ExtractionResult, error) {
	var w wireResult
	if err := json.Unmarshal(raw, &w); err != nil {
		return model.ExtractionResult{}, eris.Wrap(err, "extractor: malformed provider response")
	}

	out := model.ExtractionResult{ProjectName: w.ProjectName}

	for _, b := range w.Blocks {
		block := model.BuildingBlock{Name: b.Name}
		for _, d := range b.Boards {
			board := model.DistributionBoard{
				Name:              d.Name,
				Location:          d.Location,
				MainBreakerA:      d.MainBreakerA,
				EarthLeakage:      d.EarthLeakage,
				EarthLeakageA:     d.EarthLeakageA,
				EarthLeakageMilli: d.EarthLeakageMilli,
				SurgeProtection:   d.SurgeProtection,
				SpareWays:         d.SpareWays,
				PhaseCount:        d.PhaseCount,
				Confidence:        itemConfidence(d.Confidence),
				SourceRef:         d.SourceRef,
			}
			for _, c := range d.Circuits {
				board.Circuits = append(board.Circuits, model.Circuit{
					Number:       c.Number,
					Description:  c.Description,
					Type:         model.ParseCircuitType(c.Type),
					BreakerA:     c.BreakerA,
					BreakerType:  model.ParseBreakerType(c.BreakerType),
					CableSizeMM2: c.CableSizeMM2,
					CableMat:     model.ParseCableMaterial(c.CableMat),
					CableLengthM: c.CableLengthM,
					Points:       c.Points,
					Phase:        c.Phase,
					LoadWatts:    c.LoadWatts,
					FeedsBoard:   c.FeedsBoard,
					Confidence:   itemConfidence(c.Confidence),
					SourceRef:    c.SourceRef,
				})
			}
			block.Boards = append(block.Boards, board)
		}
		for _, r := range b.Rooms {
			block.Rooms = append(block.Rooms, model.Room{
				Name:        r.Name,
				Fixtures:    r.Fixtures,
				CircuitRefs: r.CircuitRefs,
				Confidence:  itemConfidence(r.Confidence),
				SourceRef:   r.SourceRef,
			})
		}
		for _, e := range b.HeavyEquipment {
			block.HeavyEquipment = append(block.HeavyEquipment, model.HeavyEquipment{
				Name:             e.Name,
				PowerKW:          e.PowerKW,
				VoltageV:         e.VoltageV,
				PhaseCount:       e.PhaseCount,
				DedicatedCircuit: e.DedicatedCircuit,
				Confidence:       itemConfidence(e.Confidence),
				SourceRef:        e.SourceRef,
			})
		}
		for _, ct := range b.Containment {
			block.Containment = append(block.Containment, model.CableContainment{
				Type:       ct.Type,
				SizeMM:     ct.SizeMM,
				LengthM:    ct.LengthM,
				Confidence: itemConfidence(ct.Confidence),
				SourceRef:  ct.SourceRef,
			})
		}
		out.Blocks = append(out.Blocks, block)
	}

	for _, s := range w.SupplyPoints {
		out.SupplyPoints = append(out.SupplyPoints, model.SupplyPoint{
			Name:       s.Name,
			Type:       s.Type,
			VoltageV:   s.VoltageV,
			PhaseCount: s.PhaseCount,
			CapacityA:  s.CapacityA,
			Confidence: itemConfidence(s.Confidence),
			SourceRef:  s.SourceRef,
		})
	}
	for _, r := range w.SiteCableRuns {
		out.SiteCableRuns = append(out.SiteCableRuns, model.SiteCableRun{
			From:         r.From,
			To:           r.To,
			LengthM:      r.LengthM,
			CableSizeMM2: r.CableSizeMM2,
			CableMat:     model.ParseCableMaterial(r.CableMat),
			Method:       model.ParseInstallMethod(r.Method),
			Confidence:   itemConfidence(r.Confidence),
			SourceRef:    r.SourceRef,
		})
	}
	if w.OutsideLights != nil {
		out.OutsideLights = &model.OutsideLights{
			Count:      w.OutsideLights.Count,
			Type:       w.OutsideLights.Type,
			Confidence: itemConfidence(w.OutsideLights.Confidence),
			SourceRef:  w.OutsideLights.SourceRef,
		}
	}
	if w.Existing != nil {
		out.Existing = &model.ExistingInstall{
			AgeYears:        w.Existing.AgeYears,
			LastCOCYear:     w.Existing.LastCOCYear,
			ObservedDefects: w.Existing.ObservedDefects,
			BoardsInspected: w.Existing.BoardsInspected,
			Confidence:      itemConfidence(w.Existing.Confidence),
		}
	}

	return out, nil
}
