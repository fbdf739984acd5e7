package simulation

import (
	"fmt"
	"strings"
	"time"

	"github.com/ANIKETSHETTY47/smart-city-data-generator/internal/domain"
)

type loadPattern struct {
	base, peak, variation float64
}

const (
	roomOffice    = "office"
	roomGeneric   = "room"
	roomMainPanel = "main_panel"
)

var roomPatterns = map[string]loadPattern{
	roomOffice:    {base: 500, peak: 1500, variation: 0.20},
	roomGeneric:   {base: 200, peak: 800, variation: 0.25},
	roomMainPanel: {base: 5000, peak: 15000, variation: 0.15},
}

// classifyRoom maps a free-form room name onto a load pattern. Meters with no
// room are assumed to sit on a main panel.
func classifyRoom(name *string) string {
	if name == nil || *name == "" {
		return roomMainPanel
	}
	lower := strings.ToLower(*name)
	switch {
	case strings.Contains(lower, "office"):
		return roomOffice
	case strings.Contains(lower, "panel"), strings.Contains(lower, "main"):
		return roomMainPanel
	default:
		return roomGeneric
	}
}

func loadFactor(hour int) float64 {
	switch {
	case hour >= 9 && hour < 17:
		return 1.0
	case hour >= 8 && hour < 18:
		return 0.7
	case hour >= 6 && hour < 8:
		return 0.4
	case hour >= 18 && hour < 22:
		return 0.6
	default:
		return 0.2
	}
}

type PowerMeterModel struct {
	Interval time.Duration
}

func (m PowerMeterModel) energyKWh(powerW float64) float64 {
	interval := m.Interval
	if interval <= 0 {
		interval = time.Hour
	}
	return round(powerW/1000*interval.Hours(), 4)
}

// Generate returns ErrInactive or ErrUnsupportedType when the meter should not
// report this tick.
func (m PowerMeterModel) Generate(meter domain.PowerMeter, hour int, rng Source) (domain.PowerMeterReading, error) {
	if meter.Status != domain.StatusActive {
		return domain.PowerMeterReading{}, fmt.Errorf("power meter %s: %w", meter.MeterID, domain.ErrInactive)
	}
	if meter.MeterType != domain.MeterSinglePhase && meter.MeterType != domain.MeterThreePhase {
		return domain.PowerMeterReading{}, fmt.Errorf("power meter %s type %q: %w", meter.MeterID, meter.MeterType, domain.ErrUnsupportedType)
	}

	p := roomPatterns[classifyRoom(meter.RoomName)]
	target := p.base + (p.peak-p.base)*loadFactor(hour)
	power := target * uniform(rng, 1-p.variation, 1+p.variation)

	if meter.MeterType == domain.MeterSinglePhase {
		return m.singlePhase(meter, power, rng), nil
	}
	return m.threePhase(meter, power, rng), nil
}

func (m PowerMeterModel) singlePhase(meter domain.PowerMeter, power float64, rng Source) domain.PowerMeterReading {
	voltage := uniform(rng, 220, 240)
	pf := uniform(rng, 0.85, 0.95)
	current := power / (voltage * pf)
	freq := uniform(rng, 49.9, 50.1)

	return domain.PowerMeterReading{
		MeterID:     meter.MeterID,
		MeterType:   meter.MeterType,
		VoltageV:    round(voltage, 2),
		CurrentA:    round(current, 4),
		PowerW:      round(power, 2),
		PowerFactor: round(pf, 3),
		EnergyKWh:   m.energyKWh(power),
		FrequencyHz: round(freq, 2),
	}
}

// threePhase splits the total over slightly unbalanced phases. Aggregate
// voltage is the phase mean, aggregate current the phase sum.
func (m PowerMeterModel) threePhase(meter domain.PowerMeter, total float64, rng Source) domain.PowerMeterReading {
	var weights [3]float64
	sum := 0.0
	for i := range weights {
		weights[i] = uniform(rng, 0.30, 0.35)
		sum += weights[i]
	}

	var power, voltage, current [3]float64
	for i := range power {
		power[i] = total * weights[i] / sum
	}
	for i := range voltage {
		voltage[i] = uniform(rng, 220, 240)
	}
	pf := uniform(rng, 0.85, 0.95)

	vSum, iSum := 0.0, 0.0
	for i := range current {
		current[i] = power[i] / (voltage[i] * pf)
		vSum += voltage[i]
		iSum += current[i]
	}
	freq := uniform(rng, 49.9, 50.1)

	return domain.PowerMeterReading{
		MeterID:     meter.MeterID,
		MeterType:   meter.MeterType,
		VoltageV:    round(vSum/3, 2),
		CurrentA:    round(iSum, 4),
		PowerW:      round(total, 2),
		PowerFactor: round(pf, 3),
		EnergyKWh:   m.energyKWh(total),
		FrequencyHz: round(freq, 2),
		VoltageL1V:  ptr(round(voltage[0], 2)),
		VoltageL2V:  ptr(round(voltage[1], 2)),
		VoltageL3V:  ptr(round(voltage[2], 2)),
		CurrentL1A:  ptr(round(current[0], 4)),
		CurrentL2A:  ptr(round(current[1], 4)),
		CurrentL3A:  ptr(round(current[2], 4)),
		PowerL1W:    ptr(round(power[0], 2)),
		PowerL2W:    ptr(round(power[1], 2)),
		PowerL3W:    ptr(round(power[2], 2)),
	}
}
