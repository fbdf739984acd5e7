package domain

import "time"

// WeatherSample is one ambient reading from the weather station.
type WeatherSample struct {
	StationID         string    `db:"station_id" json:"station_id,omitempty"`
	Timestamp         time.Time `db:"timestamp" json:"timestamp"`
	TemperatureC      float64   `db:"temperature_c" json:"temperature_c"`
	HumidityPercent   float64   `db:"humidity_percent" json:"humidity_percent"`
	PressureHPa       float64   `db:"pressure_hpa" json:"pressure_hpa"`
	WindSpeedMS       float64   `db:"wind_speed_ms" json:"wind_speed_ms"`
	WindDirectionDeg  int       `db:"wind_direction_deg" json:"wind_direction_deg"`
	RainfallMM        float64   `db:"rainfall_mm" json:"rainfall_mm"`
	LightIntensityLux int       `db:"light_intensity_lux" json:"light_intensity_lux"`
}

type PoleEnergyReading struct {
	PoleID            string    `db:"pole_id" json:"pole_id"`
	Timestamp         time.Time `db:"timestamp" json:"timestamp"`
	PowerConsumptionW float64   `db:"power_consumption_w" json:"power_consumption_w"`
	VoltageV          float64   `db:"voltage_v" json:"voltage_v"`
	CurrentA          float64   `db:"current_a" json:"current_a"`
	EnergyKWh         float64   `db:"energy_kwh" json:"energy_kwh"`
	Status            string    `db:"status" json:"status"`
}

// PowerMeterReading holds aggregate values for every meter. The L1..L3 fields
// are only set for 3-phase meters.
type PowerMeterReading struct {
	MeterID     string    `db:"meter_id" json:"meter_id"`
	MeterType   string    `db:"meter_type" json:"meter_type,omitempty"`
	Timestamp   time.Time `db:"timestamp" json:"timestamp"`
	VoltageV    float64   `db:"voltage_v" json:"voltage_v"`
	CurrentA    float64   `db:"current_a" json:"current_a"`
	PowerW      float64   `db:"power_w" json:"power_w"`
	PowerFactor float64   `db:"power_factor" json:"power_factor"`
	EnergyKWh   float64   `db:"energy_kwh" json:"energy_kwh"`
	FrequencyHz float64   `db:"frequency_hz" json:"frequency_hz"`

	VoltageL1V *float64 `db:"voltage_l1_v" json:"voltage_l1_v"`
	VoltageL2V *float64 `db:"voltage_l2_v" json:"voltage_l2_v"`
	VoltageL3V *float64 `db:"voltage_l3_v" json:"voltage_l3_v"`
	CurrentL1A *float64 `db:"current_l1_a" json:"current_l1_a"`
	CurrentL2A *float64 `db:"current_l2_a" json:"current_l2_a"`
	CurrentL3A *float64 `db:"current_l3_a" json:"current_l3_a"`
	PowerL1W   *float64 `db:"power_l1_w" json:"power_l1_w"`
	PowerL2W   *float64 `db:"power_l2_w" json:"power_l2_w"`
	PowerL3W   *float64 `db:"power_l3_w" json:"power_l3_w"`
}

func (r PowerMeterReading) ThreePhase() bool { return r.VoltageL1V != nil }

// FlowMeterReading is one flow sample. For steam meters TotalVolume carries
// cumulative mass (kg), not volume.
type FlowMeterReading struct {
	MeterID      string    `db:"meter_id" json:"meter_id"`
	MeterType    string    `db:"meter_type" json:"meter_type,omitempty"`
	Timestamp    time.Time `db:"timestamp" json:"timestamp"`
	FlowRate     float64   `db:"flow_rate" json:"flow_rate"`
	TotalVolume  float64   `db:"total_volume" json:"total_volume"`
	TemperatureC float64   `db:"temperature_c" json:"temperature_c"`
	PressureBar  float64   `db:"pressure_bar" json:"pressure_bar"`
	Density      *float64  `db:"density" json:"density"`
	AtCapacity   bool      `db:"-" json:"-"`
}
