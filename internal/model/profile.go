package model

// AccessDifficulty rates how hard the site is to work on.
type AccessDifficulty string

const (
	AccessEasy     AccessDifficulty = "easy"
	AccessModerate AccessDifficulty = "moderate"
	AccessHard     AccessDifficulty = "hard"
)

// SoilType drives the trenching rate multiplier for underground works.
type SoilType string

const (
	SoilSoft  SoilType = "soft"
	SoilClay  SoilType = "clay"
	SoilRocky SoilType = "rocky"
)

// WallType affects chasing labour for renovation work.
type WallType string

const (
	WallDrywall  WallType = "drywall"
	WallBrick    WallType = "brick"
	WallConcrete WallType = "concrete"
)

// ContractorProfile is read-only pricing configuration supplied by the
// contractor. It is validated only for type, not cross-field logic.
type ContractorProfile struct {
	Name           string             `json:"name,omitempty" yaml:"name"`
	MarkupPct      float64            `json:"markup_pct" yaml:"markup_pct"`           // default 20
	ContingencyPct float64            `json:"contingency_pct" yaml:"contingency_pct"` // default 5
	LabourDayRate  float64            `json:"labour_day_rate,omitempty" yaml:"labour_day_rate"`
	PriceOverrides map[string]float64 `json:"price_overrides,omitempty" yaml:"price_overrides"` // keyed by description substring
}

// DefaultContractorProfile returns the standard markup and contingency.
func DefaultContractorProfile() ContractorProfile {
	return ContractorProfile{
		MarkupPct:      20,
		ContingencyPct: 5,
		LabourDayRate:  850,
	}
}

// SiteConditions is read-only site configuration feeding the labour and
// trenching multipliers of the estimated bill.
type SiteConditions struct {
	Access      AccessDifficulty `json:"access,omitempty" yaml:"access"`
	Soil        SoilType         `json:"soil,omitempty" yaml:"soil"`
	Renovation  bool             `json:"renovation,omitempty" yaml:"renovation"`
	Occupied    bool             `json:"occupied,omitempty" yaml:"occupied"`
	Scaffolding bool             `json:"scaffolding,omitempty" yaml:"scaffolding"`
	RushJob     bool             `json:"rush_job,omitempty" yaml:"rush_job"`
	Wall        WallType         `json:"wall_type,omitempty" yaml:"wall_type"`
}
