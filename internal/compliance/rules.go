package compliance

import (
	"fmt"
	"strings"

	"github.com/afriplan/takeoff-cli/internal/model"
)

// Auto-correct defaults for a board found without earth-leakage protection.
// Only the compliance flag is corrected, never the counted quantities.
const (
	defaultELCBAmps  = 63
	defaultELCBMilli = 30
)

// maxPointsPerCircuit is the SANS limit on points per lighting or power
// final circuit.
const maxPointsPerCircuit = 10

// minSpareWayRatio is the required spare capacity fraction on every board.
const minSpareWayRatio = 0.15

// maxPhaseLoadShare is the tolerated share of total connected load on a
// single phase of a three-phase board.
const maxPhaseLoadShare = 0.40

// runRules applies the ordered rule list for new-installation tiers and
// mutates res in place where a rule auto-corrects.
func runRules(res *model.ExtractionResult, tier model.ServiceTier) []model.ValidationFlag {
	var flags []model.ValidationFlag

	for bi := range res.Blocks {
		block := &res.Blocks[bi]
		for di := range block.Boards {
			board := &block.Boards[di]
			flags = append(flags, checkEarthLeakage(board)...)
			flags = append(flags, checkSurgeProtection(board)...)
			flags = append(flags, checkCircuitPoints(board)...)
			flags = append(flags, checkSpareWays(board)...)
			if tier == model.TierCommercial {
				flags = append(flags, checkPhaseBalance(board)...)
			}
		}
		flags = append(flags, checkDedicatedCircuits(block)...)
		if tier == model.TierCommercial && !isWarehouse(block) {
			flags = append(flags, checkLifeSafety(block)...)
		}
	}

	flags = append(flags, checkBoardReferences(res)...)
	return flags
}

// checkEarthLeakage flags boards without earth-leakage protection and
// corrects the flag with a default 63 A / 30 mA unit.
func checkEarthLeakage(board *model.DistributionBoard) []model.ValidationFlag {
	if board.EarthLeakage {
		return nil
	}
	board.EarthLeakage = true
	if board.EarthLeakageA == 0 {
		board.EarthLeakageA = defaultELCBAmps
	}
	if board.EarthLeakageMilli == 0 {
		board.EarthLeakageMilli = defaultELCBMilli
	}
	return []model.ValidationFlag{{
		Rule:       "ELCB Required",
		Clause:     "7.12.2",
		Severity:   model.SeverityCritical,
		Detail:     fmt.Sprintf("board %s has no earth-leakage unit", board.Name),
		Board:      board.Name,
		Corrected:  true,
		Correction: fmt.Sprintf("%dA/%dmA earth-leakage unit assumed", board.EarthLeakageA, board.EarthLeakageMilli),
	}}
}

// checkSurgeProtection flags and corrects missing surge protection.
func checkSurgeProtection(board *model.DistributionBoard) []model.ValidationFlag {
	if board.SurgeProtection {
		return nil
	}
	board.SurgeProtection = true
	return []model.ValidationFlag{{
		Rule:       "Surge Protection Recommended",
		Clause:     "6.7.5",
		Severity:   model.SeverityInfo,
		Detail:     fmt.Sprintf("board %s has no surge protection device", board.Name),
		Board:      board.Name,
		Corrected:  true,
		Correction: "type 2 SPD assumed",
	}}
}

// checkCircuitPoints flags lighting and power circuits carrying more than
// the permitted point count.
func checkCircuitPoints(board *model.DistributionBoard) []model.ValidationFlag {
	var flags []model.ValidationFlag
	for _, c := range board.Circuits {
		switch c.Type {
		case model.CircuitLighting, model.CircuitPower:
		default:
			continue
		}
		if c.Points <= maxPointsPerCircuit {
			continue
		}
		flags = append(flags, model.ValidationFlag{
			Rule:     "Circuit Point Limit",
			Clause:   "6.15.1",
			Severity: model.SeverityCritical,
			Detail: fmt.Sprintf("circuit %s on %s feeds %d points, maximum is %d",
				c.Number, board.Name, c.Points, maxPointsPerCircuit),
			Board: board.Name,
		})
	}
	return flags
}

// checkSpareWays flags boards below the required spare capacity ratio.
func checkSpareWays(board *model.DistributionBoard) []model.ValidationFlag {
	total := board.TotalWays()
	if total == 0 {
		return nil
	}
	ratio := float64(board.SpareWays) / float64(total)
	if ratio >= minSpareWayRatio {
		return nil
	}
	return []model.ValidationFlag{{
		Rule:     "Spare Way Capacity",
		Clause:   "6.6.1",
		Severity: model.SeverityInfo,
		Detail: fmt.Sprintf("board %s has %d spare of %d ways (%.0f%%), below 15%%",
			board.Name, board.SpareWays, total, ratio*100),
		Board: board.Name,
	}}
}

// checkPhaseBalance flags three-phase boards where one phase carries more
// than the tolerated share of connected load.
func checkPhaseBalance(board *model.DistributionBoard) []model.ValidationFlag {
	if board.PhaseCount != 3 {
		return nil
	}
	loads := [4]int{}
	total := 0
	for _, c := range board.Circuits {
		if c.Phase >= 1 && c.Phase <= 3 && c.LoadWatts > 0 {
			loads[c.Phase] += c.LoadWatts
			total += c.LoadWatts
		}
	}
	if total == 0 {
		return nil
	}
	for phase := 1; phase <= 3; phase++ {
		share := float64(loads[phase]) / float64(total)
		if share <= maxPhaseLoadShare {
			continue
		}
		return []model.ValidationFlag{{
			Rule:     "Phase Load Imbalance",
			Clause:   "6.2.4",
			Severity: model.SeverityWarning,
			Detail: fmt.Sprintf("phase L%d on %s carries %.0f%% of connected load, limit is %.0f%%",
				phase, board.Name, share*100, maxPhaseLoadShare*100),
			Board: board.Name,
		}}
	}
	return nil
}

// checkDedicatedCircuits verifies that stove and geyser fixtures in the
// block are served by dedicated circuits. Not auto-corrected: the missing
// circuit feeds the remedial pricing path via the defect code.
func checkDedicatedCircuits(block *model.BuildingBlock) []model.ValidationFlag {
	stovePoints, geyserPoints := 0, 0
	for _, r := range block.Rooms {
		stovePoints += r.Fixtures.StovePoint
		geyserPoints += r.Fixtures.GeyserPoint
	}

	hasStove, hasGeyser := false, false
	for _, d := range block.Boards {
		for _, c := range d.Circuits {
			switch c.Type {
			case model.CircuitStove:
				hasStove = true
			case model.CircuitGeyser:
				hasGeyser = true
			}
		}
	}

	var flags []model.ValidationFlag
	if stovePoints > 0 && !hasStove {
		flags = append(flags, model.ValidationFlag{
			Rule:       "Dedicated Stove Circuit",
			Clause:     "6.16.2",
			Severity:   model.SeverityWarning,
			Detail:     fmt.Sprintf("block %s has %d stove point(s) but no dedicated stove circuit", block.Name, stovePoints),
			DefectCode: "STOVE_CIRCUIT_MISSING",
		})
	}
	if geyserPoints > 0 && !hasGeyser {
		flags = append(flags, model.ValidationFlag{
			Rule:       "Dedicated Geyser Circuit",
			Clause:     "6.16.2",
			Severity:   model.SeverityWarning,
			Detail:     fmt.Sprintf("block %s has %d geyser point(s) but no dedicated geyser circuit", block.Name, geyserPoints),
			DefectCode: "GEYSER_CIRCUIT_MISSING",
		})
	}
	return flags
}

// checkLifeSafety verifies emergency lighting and fire detection presence
// in commercial blocks. Presence is inferred from circuit descriptions and
// room fixtures since the drawings carry no dedicated symbol category.
func checkLifeSafety(block *model.BuildingBlock) []model.ValidationFlag {
	hasEmergency := mentionsAny(block, "emergency", "exit light")
	hasFire := mentionsAny(block, "smoke", "fire detection", "fire alarm")

	var flags []model.ValidationFlag
	if !hasEmergency {
		flags = append(flags, model.ValidationFlag{
			Rule:       "Emergency Lighting Required",
			Clause:     "SANS 10114-2",
			Severity:   model.SeverityCritical,
			Detail:     fmt.Sprintf("block %s shows no emergency lighting", block.Name),
			DefectCode: "EMERGENCY_LIGHTING_MISSING",
		})
	}
	if !hasFire {
		flags = append(flags, model.ValidationFlag{
			Rule:       "Fire Detection Required",
			Clause:     "SANS 10139",
			Severity:   model.SeverityWarning,
			Detail:     fmt.Sprintf("block %s shows no fire detection", block.Name),
			DefectCode: "FIRE_DETECTION_MISSING",
		})
	}
	return flags
}

// checkBoardReferences flags circuits whose feeds_board target does not
// exist anywhere in the result. The data stays as extracted.
func checkBoardReferences(res *model.ExtractionResult) []model.ValidationFlag {
	var flags []model.ValidationFlag
	for bi := range res.Blocks {
		for di := range res.Blocks[bi].Boards {
			board := &res.Blocks[bi].Boards[di]
			for _, c := range board.Circuits {
				if c.FeedsBoard == "" || res.FindBoard(c.FeedsBoard) != nil {
					continue
				}
				flags = append(flags, model.ValidationFlag{
					Rule:     "Unknown Sub-Board Reference",
					Severity: model.SeverityWarning,
					Detail: fmt.Sprintf("circuit %s on %s feeds board %q which does not appear on the drawings",
						c.Number, board.Name, c.FeedsBoard),
					Board: board.Name,
				})
			}
		}
	}
	return flags
}

func isWarehouse(block *model.BuildingBlock) bool {
	return strings.Contains(strings.ToLower(block.Name), "warehouse")
}

func mentionsAny(block *model.BuildingBlock, terms ...string) bool {
	var sb strings.Builder
	for _, d := range block.Boards {
		for _, c := range d.Circuits {
			sb.WriteString(strings.ToLower(c.Description))
			sb.WriteString(" ")
		}
	}
	for _, r := range block.Rooms {
		sb.WriteString(strings.ToLower(r.Name))
		sb.WriteString(" ")
	}
	haystack := sb.String()
	for _, t := range terms {
		if strings.Contains(haystack, t) {
			return true
		}
	}
	return false
}
