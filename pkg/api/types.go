package api

import "strconv"

func formatTag(id int64) string {
	return strconv.FormatInt(id, 10)
}

// Vehicle state values reported by the backend.
const (
	StateOnline  = "online"
	StateOffline = "offline"
	StateAsleep  = "asleep"
	StateWaking  = "waking"
	StateUnknown = "unknown"
)

// PaginationMeta describes the list envelope's optional pagination block.
type PaginationMeta struct {
	Previous *string `json:"previous"`
	Next     *string `json:"next"`
	Current  int     `json:"current"`
	PerPage  int     `json:"per_page"`
	Count    int     `json:"count"`
	Pages    int     `json:"pages"`
}

// VehicleSummary is one entry of the vehicle list. Snapshots are immutable; a refetch replaces
// the previous snapshot wholesale.
type VehicleSummary struct {
	ID          int64        `json:"id"`
	VehicleID   int64        `json:"vehicle_id"`
	VIN         string       `json:"vin"`
	DisplayName string       `json:"display_name"`
	State       string       `json:"state"`
	Color       *string      `json:"color,omitempty"`
	AccessType  string       `json:"access_type,omitempty"`
	InService   bool         `json:"in_service,omitempty"`
	APIVersion  *int         `json:"api_version,omitempty"`
	ChargeState *ChargeState `json:"charge_state,omitempty"`
}

// Tag returns the vehicle's string identifier, used as the path segment and cache key for
// per-vehicle calls.
func (v *VehicleSummary) Tag() string {
	return formatTag(v.ID)
}

// Online reports whether the vehicle can answer data requests without being woken first.
func (v *VehicleSummary) Online() bool {
	return v.State == StateOnline
}

// ChargeState carries the battery and charging fields the client displays.
type ChargeState struct {
	BatteryLevel     *int     `json:"battery_level,omitempty"`
	ChargingState    string   `json:"charging_state,omitempty"`
	TimeToFullCharge *float64 `json:"time_to_full_charge,omitempty"`
}

// ClimateState carries cabin temperature and HVAC fields.
type ClimateState struct {
	InsideTemp  *float64 `json:"inside_temp,omitempty"`
	OutsideTemp *float64 `json:"outside_temp,omitempty"`
	IsClimateOn bool     `json:"is_climate_on,omitempty"`
}

// DriveState carries the vehicle's last known position.
type DriveState struct {
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	Heading   *int     `json:"heading,omitempty"`
}

// VehicleData is the per-vehicle telemetry snapshot: the summary fields plus charge, climate,
// and drive state.
type VehicleData struct {
	VehicleSummary
	ClimateState *ClimateState `json:"climate_state,omitempty"`
	DriveState   *DriveState   `json:"drive_state,omitempty"`
}

// BatteryLevel returns the telemetry's battery level, if reported.
func (d *VehicleData) BatteryLevel() (int, bool) {
	if d == nil || d.ChargeState == nil || d.ChargeState.BatteryLevel == nil {
		return 0, false
	}
	return *d.ChargeState.BatteryLevel, true
}
