package service

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/ANIKETSHETTY47/energy-grid-analytics-go/aggregator"
	"github.com/ANIKETSHETTY47/energy-grid-analytics-go/anomaly"
	"github.com/ANIKETSHETTY47/energy-grid-analytics-go/converter"

	"github.com/ANIKETSHETTY47/smart-city-data-generator/internal/domain"
	"github.com/ANIKETSHETTY47/smart-city-data-generator/internal/repository"
)

// StatsWindow is the look-back of the per-type statistics.
const StatsWindow = time.Hour

// DefaultTariff is the energy price per kWh used for cost estimates.
const DefaultTariff = domain.DefaultTariff

type StatsService struct {
	store  repository.Store
	now    func() time.Time
	tariff float64
}

func NewStatsService(store repository.Store) *StatsService {
	return &StatsService{store: store, now: time.Now, tariff: DefaultTariff}
}

func isNotFound(err error) bool { return errors.Is(err, domain.ErrNotFound) }

// PowerConsumption aggregates power readings of the last hour per meter type.
// Meters without readings in the window are not counted.
func (s *StatsService) PowerConsumption(ctx context.Context) ([]domain.PowerStat, error) {
	return s.store.PowerConsumptionStats(ctx, s.now().Add(-StatsWindow))
}

func (s *StatsService) FlowRates(ctx context.Context) ([]domain.FlowStat, error) {
	return s.store.FlowRateStats(ctx, s.now().Add(-StatsWindow))
}

// MeterSummary condenses one power meter's readings over the last window.
func (s *StatsService) MeterSummary(ctx context.Context, meterID string, window time.Duration) (domain.MeterSummary, error) {
	if window <= 0 {
		window = 24 * time.Hour
	}
	if _, err := s.store.PowerMeter(ctx, meterID); err != nil {
		return domain.MeterSummary{}, err
	}
	to := s.now()
	from := to.Add(-window)
	readings, err := s.store.PowerMeterReadingsSince(ctx, meterID, from)
	if err != nil {
		return domain.MeterSummary{}, err
	}

	sum := domain.MeterSummary{MeterID: meterID, From: from, To: to, ReadingCount: len(readings)}
	if len(readings) == 0 {
		return sum, nil
	}

	power := make([]aggregator.Point, len(readings))
	energy := make([]aggregator.Point, len(readings))
	series := make([]anomaly.Reading, len(readings))
	var peakKWh, offPeakKWh float64
	for i, r := range readings {
		power[i] = aggregator.Point{Value: r.PowerW, Timestamp: r.Timestamp}
		energy[i] = aggregator.Point{Value: r.EnergyKWh, Timestamp: r.Timestamp}
		series[i] = anomaly.Reading{Consumption: r.PowerW}
		sum.PeakPowerW = math.Max(sum.PeakPowerW, r.PowerW)
		if domain.PeakHour(r.Timestamp.Hour()) {
			peakKWh += r.EnergyKWh
		} else {
			offPeakKWh += r.EnergyKWh
		}
	}

	conv := &converter.EnergyConverter{}
	sum.AvgPowerW = aggregator.Average(power)
	sum.TotalEnergyKWh = aggregator.Sum(energy)
	sum.TotalEnergyMWh = conv.KWhToMWh(sum.TotalEnergyKWh)
	sum.EstimatedCost = conv.CalculateCost(peakKWh, s.tariff, "peak") + conv.CalculateCost(offPeakKWh, s.tariff, "offpeak")

	detector := &anomaly.AnomalyDetector{Threshold: 2.0, WindowSize: 3}
	sum.PowerSpikes = len(detector.DetectSpikes(series))
	return sum, nil
}
