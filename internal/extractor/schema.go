package extractor

import (
	"fmt"
	"strings"

	"github.com/afriplan/takeoff-cli/internal/model"
)

// baseSchemaPrompt describes the JSON contract shared by every tier. Field
// names mirror the wire format in parse.go; per-field certainty rides in
// sibling "<field>_confidence" markers valued high/medium/low.
const baseSchemaPrompt = `You extract structured data from electrical installation drawings. Respond with a single valid JSON object and nothing else.

Top-level shape:
{
  "project_name": string,
  "blocks": [{
    "name": string,
    "boards": [{
      "name": string, "location": string, "main_breaker_a": number,
      "earth_leakage": bool, "earth_leakage_a": number, "earth_leakage_ma": number,
      "surge_protection": bool, "spare_ways": number, "phase_count": number,
      "confidence": "high|medium|low",
      "circuits": [{
        "number": string, "description": string,
        "type": "power|lighting|aircon|geyser|stove|dedicated|sub_board_feed|other",
        "breaker_a": number, "breaker_type": "mcb|rcbo|elcb|isolator",
        "cable_size_mm2": number, "cable_material": "copper|aluminium",
        "cable_length_m": number, "points": number, "phase": number,
        "load_watts": number, "feeds_board": string,
        "confidence": "high|medium|low"
      }]
    }],
    "rooms": [{
      "name": string, "confidence": "high|medium|low",
      "fixtures": {
        "ceiling_lights": number, "downlights": number, "pendant_lights": number,
        "flood_lights": number, "single_socket_300": number, "double_socket_300": number,
        "single_socket_1100": number, "double_socket_1100": number,
        "weatherproof_socket": number, "switch_1lever": number, "switch_2lever": number,
        "switch_2way": number, "dimmer_switch": number, "isolator_switch": number,
        "aircon_point": number, "geyser_point": number, "stove_point": number,
        "data_point": number, "tv_point": number
      },
      "circuit_refs": [string]
    }],
    "heavy_equipment": [{"name": string, "power_kw": number, "voltage_v": number, "phase_count": number, "dedicated_circuit": bool, "confidence": "high|medium|low"}],
    "containment": [{"type": string, "size_mm": number, "length_m": number, "confidence": "high|medium|low"}]
  }],
  "supply_points": [{"name": string, "type": "municipal|generator|solar", "voltage_v": number, "phase_count": number, "capacity_a": number, "confidence": "high|medium|low"}],
  "site_cable_runs": [{"from": string, "to": string, "length_m": number, "cable_size_mm2": number, "cable_material": string, "install_method": "trenched|overhead|surface|conduit|cable_tray", "confidence": "high|medium|low"}],
  "outside_lights": {"count": number, "type": string, "confidence": "high|medium|low"}
}

Rules: omit fields you cannot read rather than guessing; use "confidence" honestly; every circuit "feeds_board" value must name a board that appears in the output; lengths are metres, zero when not measurable from the drawing.`

// tierFocus appends tier-specific extraction guidance to the base schema.
var tierFocus = map[model.ServiceTier]string{
	model.TierResidential: `Focus: dwelling layouts. Count every socket and light per room, identify the geyser and stove circuits, and capture the main DB earth-leakage unit.`,
	model.TierCommercial: `Focus: commercial fit-outs. Capture tenant DBs and sub-board feeds, three-phase circuit phase assignments, emergency lighting and fire detection fixtures, and data points.`,
	model.TierMaintenance: `Focus: existing installations. Also emit "existing_installation": {"age_years": number, "last_coc_year": number, "observed_defects": [string], "boards_inspected": number, "confidence": "high|medium|low"} describing the assessed state.`,
	model.TierIndustrial: `Focus: industrial plants. Capture heavy equipment with kW ratings and phase counts, cable containment runs, and sub-main feeds between boards.`,
	model.TierMixed: `Focus: mixed-use buildings. Separate residential and commercial zones into distinct blocks and capture the sub-main feeds between them.`,
}

// escalationInstruction is appended on the single higher-capability retry.
const escalationInstruction = `

This drawing set was already attempted with low confidence. Re-read every page carefully. For EVERY field you emit, add a sibling "<field>_confidence" marker valued "high", "medium" or "low" reflecting how directly the value is legible on the drawing.`

// schemaPrompt builds the system prompt for a tier, optionally with the
// escalation instruction.
func schemaPrompt(tier model.ServiceTier, escalated bool) string {
	var sb strings.Builder
	sb.WriteString(baseSchemaPrompt)
	if focus, ok := tierFocus[tier]; ok {
		sb.WriteString("\n\n")
		sb.WriteString(focus)
	}
	if escalated {
		sb.WriteString(escalationInstruction)
	}
	return sb.String()
}

// userPrompt renders the drawing set's text excerpt for the request body.
func userPrompt(project model.Project) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Project: %s\n", project.Name)
	for _, p := range project.Pages {
		if p.Text == "" {
			continue
		}
		fmt.Fprintf(&sb, "\n--- %s page %d ---\n%s\n", p.Filename, p.PageNo, p.Text)
	}
	return sb.String()
}
