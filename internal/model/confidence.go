package model

// ItemConfidence records how a quantity entered the dataset. It drives both
// the extraction escalation decision and bill-of-quantities highlighting.
type ItemConfidence string

const (
	// ConfidenceExtracted means the value was read directly from a drawing.
	ConfidenceExtracted ItemConfidence = "extracted"
	// ConfidenceInferred means the value was derived from related data.
	ConfidenceInferred ItemConfidence = "inferred"
	// ConfidenceEstimated means the value was defaulted by a heuristic.
	ConfidenceEstimated ItemConfidence = "estimated"
	// ConfidenceManual means a contractor corrected the value by hand.
	ConfidenceManual ItemConfidence = "manual"
)

// AllItemConfidences returns every valid ItemConfidence value.
func AllItemConfidences() []ItemConfidence {
	return []ItemConfidence{
		ConfidenceExtracted,
		ConfidenceInferred,
		ConfidenceEstimated,
		ConfidenceManual,
	}
}

// Valid reports whether c is a recognized confidence tag.
func (c ItemConfidence) Valid() bool {
	switch c {
	case ConfidenceExtracted, ConfidenceInferred, ConfidenceEstimated, ConfidenceManual:
		return true
	}
	return false
}

// OrDefault returns c, or ConfidenceEstimated when c is empty or unknown.
func (c ItemConfidence) OrDefault() ItemConfidence {
	if c.Valid() {
		return c
	}
	return ConfidenceEstimated
}
