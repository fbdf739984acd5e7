package repository

import (
	"context"
	"time"

	"github.com/ANIKETSHETTY47/smart-city-data-generator/internal/domain"
	"github.com/ANIKETSHETTY47/smart-city-data-generator/internal/simulation"
)

// Store is everything the generator, API and CLI need from persistence.
// Repos backs it with PostgreSQL and Memory keeps it in process.
type Store interface {
	simulation.Directory
	simulation.StatusStore
	simulation.TotalSeeder
	simulation.Sink

	ListCategories(ctx context.Context) ([]domain.Category, error)
	UpsertCategory(ctx context.Context, c domain.Category) error

	ListPoles(ctx context.Context) ([]domain.Pole, error)
	PoleSummaries(ctx context.Context) ([]domain.PoleSummary, error)
	CreatePole(ctx context.Context, p domain.Pole) (domain.Pole, error)
	DeletePole(ctx context.Context, poleID string) error
	AddModule(ctx context.Context, m domain.PoleModule) (domain.PoleModule, error)

	// ListPowerMeters filters by meter type unless meterType is empty.
	ListPowerMeters(ctx context.Context, meterType string) ([]domain.PowerMeter, error)
	CreatePowerMeter(ctx context.Context, m domain.PowerMeter) (domain.PowerMeter, error)
	DeletePowerMeter(ctx context.Context, meterID string) error

	ListFlowMeters(ctx context.Context, meterType string) ([]domain.FlowMeter, error)
	CreateFlowMeter(ctx context.Context, m domain.FlowMeter) (domain.FlowMeter, error)
	DeleteFlowMeter(ctx context.Context, meterID string) error

	// Readings come newest first.
	PowerMeterReadings(ctx context.Context, meterID string, limit int) ([]domain.PowerMeterReading, error)
	// PowerMeterReadingsSince returns readings in time order.
	PowerMeterReadingsSince(ctx context.Context, meterID string, since time.Time) ([]domain.PowerMeterReading, error)
	FlowMeterReadings(ctx context.Context, meterID string, limit int) ([]domain.FlowMeterReading, error)

	LatestWeather(ctx context.Context) (domain.WeatherSample, error)
	LatestPoleEnergy(ctx context.Context) ([]domain.PoleEnergyReading, error)
	LatestPowerReadings(ctx context.Context) ([]domain.PowerMeterReading, error)
	LatestFlowReadings(ctx context.Context) ([]domain.FlowMeterReading, error)

	// MarkServiced sets a device's last service time.
	MarkServiced(ctx context.Context, kind domain.DeviceKind, deviceID string, at time.Time) error

	PowerConsumptionStats(ctx context.Context, since time.Time) ([]domain.PowerStat, error)
	FlowRateStats(ctx context.Context, since time.Time) ([]domain.FlowStat, error)
}
