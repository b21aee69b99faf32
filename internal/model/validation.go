package model

// Severity ranks how serious a validation finding is.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

// ValidationFlag is one finding from the compliance rule engine.
type ValidationFlag struct {
	Rule       string   `json:"rule"`
	Clause     string   `json:"clause,omitempty"` // SANS 10142-1 clause reference
	Passed     bool     `json:"passed"`
	Severity   Severity `json:"severity"`
	Detail     string   `json:"detail,omitempty"`
	Board      string   `json:"board,omitempty"`
	Corrected  bool     `json:"corrected"`
	Correction string   `json:"correction,omitempty"` // auto-corrected value, if any
	DefectCode string   `json:"defect_code,omitempty"`
}

// Unresolved reports whether the finding still needs attention: it failed
// and was not auto-corrected.
func (f ValidationFlag) Unresolved() bool {
	return !f.Passed && !f.Corrected
}

// ValidationResult is the output of the compliance stage. Result carries the
// auto-corrected dataset; the input is never mutated.
type ValidationResult struct {
	Result ExtractionResult `json:"result"`
	Flags  []ValidationFlag `json:"flags"`
	Score  float64          `json:"score"` // 0-100
}

// UnresolvedBySeverity counts unresolved flags at the given severity.
func (v *ValidationResult) UnresolvedBySeverity(s Severity) int {
	n := 0
	for _, f := range v.Flags {
		if f.Severity == s && f.Unresolved() {
			n++
		}
	}
	return n
}
