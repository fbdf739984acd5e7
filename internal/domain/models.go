package domain

import "time"

type DeviceKind string

const (
	KindPole           DeviceKind = "pole"
	KindPowerMeter     DeviceKind = "power_meter"
	KindFlowMeter      DeviceKind = "flow_meter"
	KindWeatherStation DeviceKind = "weather_station"
)

// Pole statuses are on/off, meters and modules use active/inactive.
const (
	StatusOn       = "on"
	StatusOff      = "off"
	StatusActive   = "active"
	StatusInactive = "inactive"
)

const (
	ModuleLighting = "lighting"
	ModuleCamera   = "camera"
	ModuleSensor   = "sensor"
	ModuleWifi     = "wifi"
	ModuleDisplay  = "display"
	ModuleCharging = "charging"
)

const (
	MeterSinglePhase = "1-phase"
	MeterThreePhase  = "3-phase"
)

const (
	FlowWater = "water"
	FlowGas   = "gas"
	FlowSteam = "steam"
	FlowOil   = "oil"
	FlowAir   = "air"
)

type Category struct {
	CategoryID   string  `db:"category_id" json:"category_id" yaml:"category_id"`
	CategoryName string  `db:"category_name" json:"category_name" yaml:"category_name"`
	Description  *string `db:"description" json:"description" yaml:"description"`
}

type Pole struct {
	PoleID    string     `db:"pole_id" json:"pole_id" yaml:"pole_id"`
	Location  string     `db:"location" json:"location" yaml:"location"`
	Latitude  *float64   `db:"latitude" json:"latitude" yaml:"latitude"`
	Longitude *float64   `db:"longitude" json:"longitude" yaml:"longitude"`
	Status    string     `db:"status" json:"status" yaml:"status"`
	CreatedAt *time.Time `db:"created_at" json:"created_at" yaml:"-"`
	UpdatedAt *time.Time `db:"updated_at" json:"updated_at" yaml:"-"`

	// LastServicedAt is set only by a recorded service visit.
	LastServicedAt *time.Time `db:"last_serviced_at" json:"last_serviced_at" yaml:"-"`

	Modules []PoleModule `db:"-" json:"-" yaml:"modules"`
}

type PoleSummary struct {
	PoleID      string `db:"pole_id" json:"pole_id"`
	Location    string `db:"location" json:"location"`
	Status      string `db:"status" json:"status"`
	ModuleCount int    `db:"module_count" json:"module_count"`
}

type PoleModule struct {
	ID           int64   `db:"id" json:"id" yaml:"-"`
	PoleID       string  `db:"pole_id" json:"pole_id" yaml:"-"`
	ModuleType   string  `db:"module_type" json:"module_type" yaml:"module_type"`
	ModuleName   string  `db:"module_name" json:"module_name" yaml:"module_name"`
	PowerRatingW float64 `db:"power_rating_w" json:"power_rating_w" yaml:"power_rating_w"`
	Status       string  `db:"status" json:"status" yaml:"status"`
}

type PowerMeter struct {
	MeterID   string     `db:"meter_id" json:"meter_id" yaml:"meter_id"`
	MeterType string     `db:"meter_type" json:"meter_type" yaml:"meter_type"`
	Location  string     `db:"location" json:"location" yaml:"location"`
	RoomName  *string    `db:"room_name" json:"room_name" yaml:"room_name"`
	Building  *string    `db:"building" json:"building" yaml:"building"`
	Latitude  *float64   `db:"latitude" json:"latitude" yaml:"latitude"`
	Longitude *float64   `db:"longitude" json:"longitude" yaml:"longitude"`
	Status    string     `db:"status" json:"status" yaml:"status"`
	CreatedAt *time.Time `db:"created_at" json:"created_at" yaml:"-"`
	UpdatedAt *time.Time `db:"updated_at" json:"updated_at" yaml:"-"`

	// LastServicedAt is set only by a recorded service visit.
	LastServicedAt *time.Time `db:"last_serviced_at" json:"last_serviced_at" yaml:"-"`
}

type FlowMeter struct {
	MeterID     string     `db:"meter_id" json:"meter_id" yaml:"meter_id"`
	MeterType   string     `db:"meter_type" json:"meter_type" yaml:"meter_type"`
	FlowUnit    string     `db:"flow_unit" json:"flow_unit" yaml:"flow_unit"`
	Location    string     `db:"location" json:"location" yaml:"location"`
	Building    *string    `db:"building" json:"building" yaml:"building"`
	PipeSizeMM  *int       `db:"pipe_size_mm" json:"pipe_size_mm" yaml:"pipe_size_mm"`
	MaxFlowRate *float64   `db:"max_flow_rate" json:"max_flow_rate" yaml:"max_flow_rate"`
	Status      string     `db:"status" json:"status" yaml:"status"`
	CreatedAt   *time.Time `db:"created_at" json:"created_at" yaml:"-"`
	UpdatedAt   *time.Time `db:"updated_at" json:"updated_at" yaml:"-"`

	LastServicedAt *time.Time `db:"last_serviced_at" json:"last_serviced_at" yaml:"-"`
}
