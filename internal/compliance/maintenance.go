package compliance

import (
	"fmt"
	"strings"

	"github.com/afriplan/takeoff-cli/internal/model"
)

// ageBracket maps an installation age range to the expected assessment
// outcome and the defect codes typically found in that range. The table is
// a prior: it only applies when the inspection recorded no direct evidence.
type ageBracket struct {
	maxAge  int // inclusive; last bracket is open-ended
	outcome string
	codes   []string
}

var defectLikelihood = []ageBracket{
	{10, "minor service expected", []string{"DB_LABELLING"}},
	{25, "partial upgrade expected", []string{"ELCB_UPGRADE", "EARTH_BONDING"}},
	{40, "major rework expected", []string{"ELCB_UPGRADE", "EARTH_BONDING", "DB_REPLACE", "SOCKET_REWIRE"}},
	{0, "full rewire expected", []string{"FULL_REWIRE", "DB_REPLACE", "EARTH_SPIKE"}},
}

// defectSynonyms maps observed-defect phrases to remedial defect codes.
// Matching is by substring against the inspector's free-text notes.
var defectSynonyms = []struct {
	term string
	code string
}{
	{"earth leakage", "ELCB_UPGRADE"},
	{"elcb", "ELCB_UPGRADE"},
	{"bonding", "EARTH_BONDING"},
	{"earth spike", "EARTH_SPIKE"},
	{"earthing", "EARTH_BONDING"},
	{"label", "DB_LABELLING"},
	{"rewire", "FULL_REWIRE"},
	{"board", "DB_REPLACE"},
	{"socket", "SOCKET_REWIRE"},
	{"wiring", "SOCKET_REWIRE"},
}

// assessExisting evaluates a maintenance-mode installation snapshot. Each
// identified defect becomes one flag carrying the code the remedial pricing
// path keys on. Observed defects take precedence over the age prior.
func assessExisting(ex *model.ExistingInstall) []model.ValidationFlag {
	var flags []model.ValidationFlag

	if codes := observedCodes(ex.ObservedDefects); len(codes) > 0 {
		for i, code := range codes {
			flags = append(flags, model.ValidationFlag{
				Rule:       "Observed Defect",
				Severity:   model.SeverityWarning,
				Detail:     ex.ObservedDefects[i],
				DefectCode: code,
			})
		}
		return flags
	}

	bracket := bracketFor(ex.AgeYears)
	for _, code := range bracket.codes {
		flags = append(flags, model.ValidationFlag{
			Rule:     "Age-Based Defect Likelihood",
			Severity: model.SeverityWarning,
			Detail: fmt.Sprintf("installation is %d years old, %s; no direct evidence recorded",
				ex.AgeYears, bracket.outcome),
			DefectCode: code,
		})
	}
	return flags
}

// observedCodes resolves free-text defect notes to codes, keeping the
// note-to-code pairing positionally aligned. Unrecognized notes map to a
// generic inspection code rather than being dropped.
func observedCodes(notes []string) []string {
	codes := make([]string, 0, len(notes))
	for _, note := range notes {
		low := strings.ToLower(note)
		code := "GENERAL_REMEDIAL"
		for _, s := range defectSynonyms {
			if strings.Contains(low, s.term) {
				code = s.code
				break
			}
		}
		codes = append(codes, code)
	}
	return codes
}

func bracketFor(age int) ageBracket {
	for _, b := range defectLikelihood[:len(defectLikelihood)-1] {
		if age <= b.maxAge {
			return b
		}
	}
	return defectLikelihood[len(defectLikelihood)-1]
}
