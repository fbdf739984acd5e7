package simulation

import (
	"fmt"
	"time"

	"github.com/ANIKETSHETTY47/smart-city-data-generator/internal/domain"
)

// Fixed draw reported by a pole that is switched off.
const (
	StandbyPowerW   = 2.0
	StandbyVoltageV = 230.0
	StandbyCurrentA = 0.009
	StandbyEnergy   = 0.002

	baseSystemPowerW = 10.0
)

// moduleVariation is the ± band applied to each module's draw.
var moduleVariation = map[string]float64{
	domain.ModuleLighting: 0.15,
	domain.ModuleCamera:   0.10,
	domain.ModuleSensor:   0.05,
	domain.ModuleWifi:     0.12,
	domain.ModuleDisplay:  0.20,
	domain.ModuleCharging: 0.30,
}

type PoleEnergyModel struct {
	Interval time.Duration
}

func standbyReading() domain.PoleEnergyReading {
	return domain.PoleEnergyReading{
		PowerConsumptionW: StandbyPowerW,
		VoltageV:          StandbyVoltageV,
		CurrentA:          StandbyCurrentA,
		EnergyKWh:         StandbyEnergy,
		Status:            domain.StatusOff,
	}
}

// lightingFactor dims street lights by ambient light during the day.
func lightingFactor(hour, lux int) float64 {
	if hour < 6 || hour >= 18 {
		return 1.0
	}
	switch {
	case lux > 50000:
		return 0.1
	case lux > 20000:
		return 0.3
	default:
		return 0.7
	}
}

func modulePower(m domain.PoleModule, lux, hour int, rng Source) float64 {
	factor := 1.0
	switch m.ModuleType {
	case domain.ModuleLighting:
		factor = lightingFactor(hour, lux)
	case domain.ModuleDisplay:
		if hour < 6 || hour >= 22 {
			factor = 0.3
		}
	case domain.ModuleCharging:
		factor = rng.Float64()
	}
	v := moduleVariation[m.ModuleType]
	return m.PowerRatingW * factor * uniform(rng, 1-v, 1+v)
}

// Generate computes the draw of a pole from its active modules. A pole that is
// off reports the standby tuple and consumes no randomness. A module of an
// unknown type makes the whole pole unsupported, checked before any draw.
func (m PoleEnergyModel) Generate(status string, modules []domain.PoleModule, weather domain.WeatherSample, hour int, rng Source) (domain.PoleEnergyReading, error) {
	if status == domain.StatusOff {
		return standbyReading(), nil
	}

	active := make([]domain.PoleModule, 0, len(modules))
	for _, mod := range modules {
		if mod.Status != "" && mod.Status != domain.StatusActive {
			continue
		}
		if _, ok := moduleVariation[mod.ModuleType]; !ok {
			return domain.PoleEnergyReading{}, fmt.Errorf("module %q type %q: %w", mod.ModuleName, mod.ModuleType, domain.ErrUnsupportedType)
		}
		active = append(active, mod)
	}

	total := baseSystemPowerW
	for _, mod := range active {
		total += modulePower(mod, weather.LightIntensityLux, hour, rng)
	}

	interval := m.Interval
	if interval <= 0 {
		interval = time.Hour
	}
	voltage := uniform(rng, 220, 240)

	return domain.PoleEnergyReading{
		PowerConsumptionW: round(total, 2),
		VoltageV:          round(voltage, 2),
		CurrentA:          round(total/voltage, 4),
		EnergyKWh:         round(total/1000*interval.Hours(), 4),
		Status:            domain.StatusOn,
	}, nil
}
