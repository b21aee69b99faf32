package pricing

import "github.com/afriplan/takeoff-cli/internal/model"

// labourMultiplier scales the labour-bearing preliminaries section of the
// estimated bill for site conditions. Factors are additive on a 1.0 base.
func labourMultiplier(site model.SiteConditions) float64 {
	m := 1.0
	switch site.Access {
	case model.AccessModerate:
		m += 0.10
	case model.AccessHard:
		m += 0.25
	}
	if site.Renovation {
		m += 0.15
	}
	if site.Occupied {
		m += 0.15
	}
	if site.Scaffolding {
		m += 0.10
	}
	if site.RushJob {
		m += 0.20
	}
	switch site.Wall {
	case model.WallBrick:
		m += 0.05
	case model.WallConcrete:
		m += 0.15
	}
	return m
}

// trenchMultiplier scales the underground-works section of the estimated
// bill for soil type.
func trenchMultiplier(site model.SiteConditions) float64 {
	switch site.Soil {
	case model.SoilClay:
		return 1.3
	case model.SoilRocky:
		return 1.8
	default:
		return 1.0
	}
}
