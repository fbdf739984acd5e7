package simulation

import (
	"math"

	"github.com/ANIKETSHETTY47/smart-city-data-generator/internal/domain"
)

const (
	baseTemperatureC = 28.0
	baseHumidity     = 70.0
	basePressureHPa  = 1013.25
	rainProbability  = 0.1
)

type lightRegime struct {
	base, variation float64
}

var (
	lightDawn  = lightRegime{base: 10000, variation: 5000}
	lightDay   = lightRegime{base: 80000, variation: 20000}
	lightDusk  = lightRegime{base: 15000, variation: 8000}
	lightNight = lightRegime{base: 100, variation: 200}
)

// WeatherModel produces ambient readings for a tropical city station.
type WeatherModel struct{}

// diurnalFactor is sin((hour-6)·π/12) clamped to [-1,1]: trough at 0h, zero at
// 6h and 18h, crest at 12h.
func diurnalFactor(hour int) float64 {
	return clamp(math.Sin(float64(hour-6)*math.Pi/12), -1, 1)
}

func lightRegimeFor(hour int) lightRegime {
	switch {
	case hour >= 6 && hour < 8:
		return lightDawn
	case hour >= 8 && hour < 17:
		return lightDay
	case hour >= 17 && hour < 19:
		return lightDusk
	default:
		return lightNight
	}
}

func (WeatherModel) Generate(hour int, rng Source) domain.WeatherSample {
	tf := diurnalFactor(hour)

	temperature := baseTemperatureC + tf*4.0 + uniform(rng, -1, 1)
	humidity := clamp(baseHumidity-tf*10.0+uniform(rng, -5, 5), 40, 95)
	pressure := basePressureHPa + uniform(rng, -3, 3)

	windBase := 1.5
	if hour >= 10 && hour <= 18 {
		windBase = 3.0
	}
	wind := math.Max(0, windBase+uniform(rng, -1, 2))
	direction := intBetween(rng, 0, 359)

	rain := 0.0
	if rng.Float64() < rainProbability {
		rain = round(uniform(rng, 0.1, 5.0), 2)
	}

	regime := lightRegimeFor(hour)
	light := int(math.Max(0, regime.base+uniform(rng, -regime.variation, regime.variation)))

	return domain.WeatherSample{
		TemperatureC:      round(temperature, 2),
		HumidityPercent:   round(humidity, 2),
		PressureHPa:       round(pressure, 2),
		WindSpeedMS:       round(wind, 2),
		WindDirectionDeg:  direction,
		RainfallMM:        rain,
		LightIntensityLux: light,
	}
}
