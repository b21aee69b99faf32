package model

// FixtureCounts tallies the fixtures in one room. It is a pure value object:
// all totals are computed on demand, never stored redundantly.
type FixtureCounts struct {
	CeilingLights      int `json:"ceiling_lights,omitempty"`
	Downlights         int `json:"downlights,omitempty"`
	PendantLights      int `json:"pendant_lights,omitempty"`
	FloodLights        int `json:"flood_lights,omitempty"`
	SingleSocket300    int `json:"single_socket_300,omitempty"`
	DoubleSocket300    int `json:"double_socket_300,omitempty"`
	SingleSocket1100   int `json:"single_socket_1100,omitempty"`
	DoubleSocket1100   int `json:"double_socket_1100,omitempty"`
	WeatherproofSocket int `json:"weatherproof_socket,omitempty"`
	Switch1Lever       int `json:"switch_1lever,omitempty"`
	Switch2Lever       int `json:"switch_2lever,omitempty"`
	Switch2Way         int `json:"switch_2way,omitempty"`
	DimmerSwitch       int `json:"dimmer_switch,omitempty"`
	IsolatorSwitch     int `json:"isolator_switch,omitempty"`
	AirconPoint        int `json:"aircon_point,omitempty"`
	GeyserPoint        int `json:"geyser_point,omitempty"`
	StovePoint         int `json:"stove_point,omitempty"`
	DataPoint          int `json:"data_point,omitempty"`
	TVPoint            int `json:"tv_point,omitempty"`
}

// TotalLights returns the total light fitting count.
func (f *FixtureCounts) TotalLights() int {
	return f.CeilingLights + f.Downlights + f.PendantLights + f.FloodLights
}

// TotalSockets returns the total socket outlet count.
func (f *FixtureCounts) TotalSockets() int {
	return f.SingleSocket300 + f.DoubleSocket300 +
		f.SingleSocket1100 + f.DoubleSocket1100 + f.WeatherproofSocket
}

// TotalSwitches returns the total switch count.
func (f *FixtureCounts) TotalSwitches() int {
	return f.Switch1Lever + f.Switch2Lever + f.Switch2Way +
		f.DimmerSwitch + f.IsolatorSwitch
}

// TotalEquipment returns the total dedicated equipment point count.
func (f *FixtureCounts) TotalEquipment() int {
	return f.AirconPoint + f.GeyserPoint + f.StovePoint + f.DataPoint + f.TVPoint
}

// Fixture wattage assumptions for connected-load estimates. Sockets use the
// SANS diversity convention of a nominal allowance per point, not full
// breaker capacity.
const (
	wattsPerLight       = 60
	wattsPerSocketPoint = 180
	wattsPerAircon      = 2000
	wattsPerGeyser      = 3000
	wattsPerStove       = 6000
)

// ConnectedWatts returns the estimated connected load of the room.
func (f *FixtureCounts) ConnectedWatts() int {
	return f.TotalLights()*wattsPerLight +
		f.TotalSockets()*wattsPerSocketPoint +
		f.AirconPoint*wattsPerAircon +
		f.GeyserPoint*wattsPerGeyser +
		f.StovePoint*wattsPerStove
}

// IsZero reports whether the room has no fixtures at all.
func (f *FixtureCounts) IsZero() bool {
	return f.TotalLights() == 0 && f.TotalSockets() == 0 &&
		f.TotalSwitches() == 0 && f.TotalEquipment() == 0
}
