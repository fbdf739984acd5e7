package simulation

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ANIKETSHETTY47/smart-city-data-generator/internal/domain"
)

// Directory is the read side of the device registry.
type Directory interface {
	// ListDeviceIDs returns device ids of one kind in a stable order.
	ListDeviceIDs(ctx context.Context, kind domain.DeviceKind, activeOnly bool) ([]string, error)
	Pole(ctx context.Context, poleID string) (domain.Pole, error)
	PoleModules(ctx context.Context, poleID string) ([]domain.PoleModule, error)
	PowerMeter(ctx context.Context, meterID string) (domain.PowerMeter, error)
	FlowMeter(ctx context.Context, meterID string) (domain.FlowMeter, error)
}

// Sink receives completed readings. A failed save loses that reading only.
type Sink interface {
	SaveWeather(ctx context.Context, w domain.WeatherSample) error
	SavePoleEnergy(ctx context.Context, r domain.PoleEnergyReading) error
	SavePowerMeterReading(ctx context.Context, r domain.PowerMeterReading) error
	SaveFlowMeterReading(ctx context.Context, r domain.FlowMeterReading) error
}

// TickObserver is notified after every tick, e.g. for metrics or archiving.
type TickObserver interface {
	ObserveTick(ctx context.Context, res TickResult)
}

type Skipped struct {
	Kind     domain.DeviceKind `json:"kind"`
	DeviceID string            `json:"device_id"`
	Reason   string            `json:"reason"`
	Err      error             `json:"-"`
}

type TickResult struct {
	Timestamp     time.Time                  `json:"timestamp"`
	Weather       domain.WeatherSample       `json:"weather"`
	PoleReadings  []domain.PoleEnergyReading `json:"pole_readings"`
	PowerReadings []domain.PowerMeterReading `json:"power_readings"`
	FlowReadings  []domain.FlowMeterReading  `json:"flow_readings"`
	Skipped       []Skipped                  `json:"skipped,omitempty"`
	// Lost counts readings that were generated but not persisted.
	Lost     int           `json:"lost"`
	Duration time.Duration `json:"duration"`
}

type Orchestrator struct {
	dir    Directory
	status StatusStore
	sink   Sink
	log    zerolog.Logger

	stationID string
	intervals Intervals
	observers []TickObserver

	weather WeatherModel
	poles   PoleEnergyModel
	power   PowerMeterModel
	flow    *FlowMeterModel

	// mu serialises ticks and control calls; rng is not goroutine-safe.
	mu  sync.Mutex
	rng Source
}

type Option func(*Orchestrator)

func WithStationID(id string) Option {
	return func(o *Orchestrator) {
		if id != "" {
			o.stationID = id
		}
	}
}

func WithIntervals(iv Intervals) Option {
	return func(o *Orchestrator) { o.intervals = iv.withDefaults() }
}

func WithObservers(obs ...TickObserver) Option {
	return func(o *Orchestrator) { o.observers = append(o.observers, obs...) }
}

// WithAccumulator shares flow totals with another component, such as the
// API deleting a meter.
func WithAccumulator(acc *Accumulator) Option {
	return func(o *Orchestrator) {
		if acc != nil {
			o.flow = NewFlowMeterModel(acc, 0)
		}
	}
}

// New wires the generation engine. seeder may be nil, in which case flow
// totals start at zero.
func New(dir Directory, status StatusStore, sink Sink, seeder TotalSeeder, rng Source, log zerolog.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		dir:       dir,
		status:    status,
		sink:      sink,
		log:       log,
		rng:       rng,
		stationID: "WS001",
		intervals: DefaultIntervals(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.flow == nil {
		o.flow = NewFlowMeterModel(NewAccumulator(seeder), 0)
	}
	o.poles = PoleEnergyModel{Interval: o.intervals.Energy}
	o.power = PowerMeterModel{Interval: o.intervals.Energy}
	o.flow.Interval = o.intervals.Flow
	return o
}

func (o *Orchestrator) Intervals() Intervals { return o.intervals }

func (o *Orchestrator) Accumulator() *Accumulator { return o.flow.Accumulator() }

// RunTick produces one reading per device: weather, then poles, then power
// meters, then flow meters. Device-level failures are recorded in Skipped or
// Lost and never abort the tick.
func (o *Orchestrator) RunTick(ctx context.Context, now time.Time) TickResult {
	o.mu.Lock()
	defer o.mu.Unlock()

	start := time.Now()
	hour := now.Hour()
	res := TickResult{Timestamp: now}

	res.Weather = o.weather.Generate(hour, o.rng)
	res.Weather.StationID = o.stationID
	res.Weather.Timestamp = now
	if err := o.sink.SaveWeather(ctx, res.Weather); err != nil {
		res.Lost++
		o.log.Error().Err(err).Str("station_id", o.stationID).Msg("weather save failed")
	} else {
		o.log.Info().
			Float64("temperature_c", res.Weather.TemperatureC).
			Float64("humidity_percent", res.Weather.HumidityPercent).
			Int("light_lux", res.Weather.LightIntensityLux).
			Msg("weather generated")
	}

	o.tickPoles(ctx, now, hour, &res)
	o.tickPowerMeters(ctx, now, hour, &res)
	o.tickFlowMeters(ctx, now, hour, &res)

	res.Duration = time.Since(start)
	for _, obs := range o.observers {
		obs.ObserveTick(ctx, res)
	}
	o.log.Info().
		Int("poles", len(res.PoleReadings)).
		Int("power_meters", len(res.PowerReadings)).
		Int("flow_meters", len(res.FlowReadings)).
		Int("skipped", len(res.Skipped)).
		Int("lost", res.Lost).
		Dur("took", res.Duration).
		Msg("tick complete")
	return res
}

func (o *Orchestrator) skip(res *TickResult, kind domain.DeviceKind, id string, err error) {
	reason := "error"
	switch {
	case errors.Is(err, domain.ErrInactive):
		reason = "inactive"
	case errors.Is(err, domain.ErrUnsupportedType):
		reason = "unsupported_type"
	case errors.Is(err, domain.ErrNotFound):
		reason = "not_found"
	}
	res.Skipped = append(res.Skipped, Skipped{Kind: kind, DeviceID: id, Reason: reason, Err: err})

	ev := o.log.Warn()
	if reason == "inactive" {
		ev = o.log.Debug()
	}
	ev.Err(err).Str("kind", string(kind)).Str("device_id", id).Str("reason", reason).Msg("device skipped")
}

func (o *Orchestrator) listIDs(ctx context.Context, kind domain.DeviceKind, activeOnly bool) []string {
	ids, err := o.dir.ListDeviceIDs(ctx, kind, activeOnly)
	if err != nil {
		o.log.Error().Err(err).Str("kind", string(kind)).Msg("list devices failed")
		return nil
	}
	return ids
}

func (o *Orchestrator) lost(res *TickResult, kind domain.DeviceKind, id string, err error) {
	res.Lost++
	o.log.Error().Err(err).Str("kind", string(kind)).Str("device_id", id).Msg("reading save failed")
}

// Every pole reports, including switched-off ones which report standby draw.
func (o *Orchestrator) tickPoles(ctx context.Context, now time.Time, hour int, res *TickResult) {
	for _, id := range o.listIDs(ctx, domain.KindPole, false) {
		if ctx.Err() != nil {
			return
		}
		pole, err := o.dir.Pole(ctx, id)
		if err != nil {
			o.skip(res, domain.KindPole, id, err)
			continue
		}
		var modules []domain.PoleModule
		if pole.Status != domain.StatusOff {
			if modules, err = o.dir.PoleModules(ctx, id); err != nil {
				o.skip(res, domain.KindPole, id, err)
				continue
			}
		}
		reading, err := o.poles.Generate(pole.Status, modules, res.Weather, hour, o.rng)
		if err != nil {
			o.skip(res, domain.KindPole, id, err)
			continue
		}
		reading.PoleID = id
		reading.Timestamp = now
		res.PoleReadings = append(res.PoleReadings, reading)

		if err := o.sink.SavePoleEnergy(ctx, reading); err != nil {
			o.lost(res, domain.KindPole, id, err)
			continue
		}
		o.log.Debug().Str("pole_id", id).Str("status", reading.Status).
			Float64("power_w", reading.PowerConsumptionW).Float64("energy_kwh", reading.EnergyKWh).
			Msg("pole reading")
	}
}

func (o *Orchestrator) tickPowerMeters(ctx context.Context, now time.Time, hour int, res *TickResult) {
	for _, id := range o.listIDs(ctx, domain.KindPowerMeter, true) {
		if ctx.Err() != nil {
			return
		}
		meter, err := o.dir.PowerMeter(ctx, id)
		if err != nil {
			o.skip(res, domain.KindPowerMeter, id, err)
			continue
		}
		reading, err := o.power.Generate(meter, hour, o.rng)
		if err != nil {
			o.skip(res, domain.KindPowerMeter, id, err)
			continue
		}
		reading.Timestamp = now
		res.PowerReadings = append(res.PowerReadings, reading)

		if err := o.sink.SavePowerMeterReading(ctx, reading); err != nil {
			o.lost(res, domain.KindPowerMeter, id, err)
			continue
		}
		o.log.Debug().Str("meter_id", id).Str("meter_type", meter.MeterType).
			Float64("power_w", reading.PowerW).Float64("energy_kwh", reading.EnergyKWh).
			Msg("power meter reading")
	}
}

func (o *Orchestrator) tickFlowMeters(ctx context.Context, now time.Time, hour int, res *TickResult) {
	for _, id := range o.listIDs(ctx, domain.KindFlowMeter, true) {
		if ctx.Err() != nil {
			return
		}
		meter, err := o.dir.FlowMeter(ctx, id)
		if err != nil {
			o.skip(res, domain.KindFlowMeter, id, err)
			continue
		}
		reading, err := o.flow.Generate(ctx, meter, hour, o.rng)
		if err != nil {
			o.skip(res, domain.KindFlowMeter, id, err)
			continue
		}
		reading.Timestamp = now
		res.FlowReadings = append(res.FlowReadings, reading)

		if err := o.sink.SaveFlowMeterReading(ctx, reading); err != nil {
			o.lost(res, domain.KindFlowMeter, id, err)
			continue
		}
		o.log.Debug().Str("meter_id", id).Str("meter_type", meter.MeterType).
			Float64("flow_rate", reading.FlowRate).Float64("total", reading.TotalVolume).
			Msg("flow meter reading")
	}
}
