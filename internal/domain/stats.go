package domain

import "time"

// DefaultTariff is the energy price per kWh used for cost estimates.
const DefaultTariff = 0.20

// PeakHour reports whether h is billed at the peak rate (09:00-22:00).
func PeakHour(h int) bool { return h >= 9 && h < 22 }

// PowerStat aggregates recent power meter readings per meter type.
type PowerStat struct {
	MeterType      string  `db:"meter_type" json:"meter_type"`
	MeterCount     int     `db:"meter_count" json:"meter_count"`
	AvgPowerW      float64 `db:"avg_power_w" json:"avg_power_w"`
	TotalEnergyKWh float64 `db:"total_energy_kwh" json:"total_energy_kwh"`
}

// FlowStat aggregates recent flow meter readings per meter type.
type FlowStat struct {
	MeterType   string  `db:"meter_type" json:"meter_type"`
	MeterCount  int     `db:"meter_count" json:"meter_count"`
	AvgFlowRate float64 `db:"avg_flow_rate" json:"avg_flow_rate"`
	TotalVolume float64 `db:"total_volume" json:"total_volume"`
}

// MeterSummary condenses a power meter's readings over a window.
type MeterSummary struct {
	MeterID        string    `json:"meter_id"`
	From           time.Time `json:"from"`
	To             time.Time `json:"to"`
	ReadingCount   int       `json:"reading_count"`
	AvgPowerW      float64   `json:"avg_power_w"`
	PeakPowerW     float64   `json:"peak_power_w"`
	TotalEnergyKWh float64   `json:"total_energy_kwh"`
	TotalEnergyMWh float64   `json:"total_energy_mwh"`
	EstimatedCost  float64   `json:"estimated_cost"`
	PowerSpikes    int       `json:"power_spikes"`
}
