package simulation

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/ANIKETSHETTY47/smart-city-data-generator/internal/domain"
)

type flowPattern struct {
	base, peak, variation, night float64
	// perMinute meters report rate per minute (L/min, m3/min); the others
	// report per hour (m3/h, kg/h).
	perMinute bool

	tempLo, tempHi   float64
	pressLo, pressHi float64
	density          *[2]float64
}

var flowPatterns = map[string]flowPattern{
	domain.FlowWater: {base: 10, peak: 50, variation: 0.30, night: 0.1, perMinute: true,
		tempLo: 15, tempHi: 30, pressLo: 2, pressHi: 4},
	domain.FlowGas: {base: 2, peak: 15, variation: 0.35, night: 0.05,
		tempLo: 20, tempHi: 25, pressLo: 0.5, pressHi: 2},
	domain.FlowSteam: {base: 50, peak: 400, variation: 0.25, night: 0.2,
		tempLo: 150, tempHi: 180, pressLo: 5, pressHi: 10, density: &[2]float64{3, 5}},
	domain.FlowAir: {base: 2, peak: 20, variation: 0.40, night: 0.1, perMinute: true,
		tempLo: 25, tempHi: 40, pressLo: 6, pressHi: 8},
}

func between(hour, from, to int) bool { return hour >= from && hour < to }

// usageFactor is the per-type hour profile: household water peaks morning and
// evening, gas at meal times, steam and compressed air over business hours.
func usageFactor(meterType string, hour int) float64 {
	night := flowPatterns[meterType].night
	switch meterType {
	case domain.FlowWater:
		switch {
		case between(hour, 6, 9), between(hour, 17, 21):
			return 1.0
		case between(hour, 9, 17):
			return 0.6
		}
	case domain.FlowGas:
		switch {
		case between(hour, 6, 9), between(hour, 11, 14), between(hour, 17, 21):
			return 1.0
		case between(hour, 9, 11), between(hour, 14, 17):
			return 0.4
		}
	case domain.FlowSteam:
		switch {
		case between(hour, 8, 17):
			return 1.0
		case between(hour, 6, 8), between(hour, 17, 20):
			return 0.5
		}
	case domain.FlowAir:
		switch {
		case between(hour, 8, 17):
			return 1.0
		case between(hour, 6, 8), between(hour, 17, 20):
			return 0.4
		}
	}
	return night
}

type FlowMeterModel struct {
	Interval time.Duration
	acc      *Accumulator
}

func NewFlowMeterModel(acc *Accumulator, interval time.Duration) *FlowMeterModel {
	if interval <= 0 {
		interval = time.Minute
	}
	return &FlowMeterModel{Interval: interval, acc: acc}
}

func (m *FlowMeterModel) Accumulator() *Accumulator { return m.acc }

// Increment is the amount a reading at rate adds to the running total over
// one flow interval.
func (m *FlowMeterModel) Increment(meterType string, rate float64) float64 {
	if flowPatterns[meterType].perMinute {
		return rate * m.Interval.Minutes()
	}
	return rate * m.Interval.Hours()
}

func (m *FlowMeterModel) Generate(ctx context.Context, meter domain.FlowMeter, hour int, rng Source) (domain.FlowMeterReading, error) {
	if meter.Status != domain.StatusActive {
		return domain.FlowMeterReading{}, fmt.Errorf("flow meter %s: %w", meter.MeterID, domain.ErrInactive)
	}
	p, ok := flowPatterns[meter.MeterType]
	if !ok {
		return domain.FlowMeterReading{}, fmt.Errorf("flow meter %s type %q: %w", meter.MeterID, meter.MeterType, domain.ErrUnsupportedType)
	}
	if err := m.acc.SeedIfAbsent(ctx, meter.MeterID); err != nil {
		return domain.FlowMeterReading{}, err
	}

	target := p.base + (p.peak-p.base)*usageFactor(meter.MeterType, hour)
	rate := target * uniform(rng, 1-p.variation, 1+p.variation)
	capped := false
	if meter.MaxFlowRate != nil && *meter.MaxFlowRate > 0 && rate >= *meter.MaxFlowRate {
		rate = *meter.MaxFlowRate
		capped = true
	}
	rate = math.Max(0, rate)

	total := m.acc.Add(meter.MeterID, m.Increment(meter.MeterType, rate))

	reading := domain.FlowMeterReading{
		MeterID:      meter.MeterID,
		MeterType:    meter.MeterType,
		FlowRate:     round(rate, 3),
		TotalVolume:  round(total, 3),
		TemperatureC: round(uniform(rng, p.tempLo, p.tempHi), 2),
		PressureBar:  round(uniform(rng, p.pressLo, p.pressHi), 2),
		AtCapacity:   capped,
	}
	if p.density != nil {
		reading.Density = ptr(round(uniform(rng, p.density[0], p.density[1]), 3))
	}
	return reading, nil
}
