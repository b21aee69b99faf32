package model

// ServiceTier categorizes a project and selects the extraction schema and
// pricing rules that apply to it.
type ServiceTier string

const (
	TierResidential ServiceTier = "residential"
	TierCommercial  ServiceTier = "commercial"
	TierMaintenance ServiceTier = "maintenance"
	TierIndustrial  ServiceTier = "industrial"
	TierMixed       ServiceTier = "mixed"
)

// AllServiceTiers returns every valid tier value.
func AllServiceTiers() []ServiceTier {
	return []ServiceTier{
		TierResidential,
		TierCommercial,
		TierMaintenance,
		TierIndustrial,
		TierMixed,
	}
}

// Valid reports whether t is a recognized tier.
func (t ServiceTier) Valid() bool {
	for _, v := range AllServiceTiers() {
		if t == v {
			return true
		}
	}
	return false
}

// TierClassification is the outcome of the tier classification stage.
type TierClassification struct {
	Tier       ServiceTier `json:"tier"`
	Confidence float64     `json:"confidence"`
	Source     string      `json:"source"` // "provider" or "keyword_fallback"
	Warning    string      `json:"warning,omitempty"`
}
