package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/ANIKETSHETTY47/smart-city-data-generator/internal/domain"
	"github.com/ANIKETSHETTY47/smart-city-data-generator/internal/simulation"
)

// Transport delivers one encoded envelope to a broker.
type Transport interface {
	Send(ctx context.Context, env Envelope, payload []byte) error
	Close() error
}

// PublishSink turns every saved reading into a published envelope.
type PublishSink struct {
	t Transport
}

func NewPublishSink(t Transport) *PublishSink { return &PublishSink{t: t} }

var _ simulation.Sink = (*PublishSink)(nil)

func (s *PublishSink) publish(ctx context.Context, kind, id string, ts time.Time, reading any) error {
	env, payload, err := Encode(kind, id, ts, reading)
	if err != nil {
		return err
	}
	return s.t.Send(ctx, env, payload)
}

func (s *PublishSink) SaveWeather(ctx context.Context, w domain.WeatherSample) error {
	return s.publish(ctx, KindWeather, w.StationID, w.Timestamp, w)
}

func (s *PublishSink) SavePoleEnergy(ctx context.Context, r domain.PoleEnergyReading) error {
	return s.publish(ctx, string(domain.KindPole), r.PoleID, r.Timestamp, r)
}

func (s *PublishSink) SavePowerMeterReading(ctx context.Context, r domain.PowerMeterReading) error {
	return s.publish(ctx, string(domain.KindPowerMeter), r.MeterID, r.Timestamp, r)
}

func (s *PublishSink) SaveFlowMeterReading(ctx context.Context, r domain.FlowMeterReading) error {
	return s.publish(ctx, string(domain.KindFlowMeter), r.MeterID, r.Timestamp, r)
}

func (s *PublishSink) Close() error { return s.t.Close() }

// Fanout writes every reading to all sinks. A reading that fails on any sink
// is reported as failed, but the remaining sinks still receive it.
type Fanout []simulation.Sink

var _ simulation.Sink = Fanout(nil)

func (f Fanout) each(fn func(simulation.Sink) error) error {
	var errs []error
	for _, s := range f {
		if err := fn(s); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f Fanout) SaveWeather(ctx context.Context, w domain.WeatherSample) error {
	return f.each(func(s simulation.Sink) error { return s.SaveWeather(ctx, w) })
}

func (f Fanout) SavePoleEnergy(ctx context.Context, r domain.PoleEnergyReading) error {
	return f.each(func(s simulation.Sink) error { return s.SavePoleEnergy(ctx, r) })
}

func (f Fanout) SavePowerMeterReading(ctx context.Context, r domain.PowerMeterReading) error {
	return f.each(func(s simulation.Sink) error { return s.SavePowerMeterReading(ctx, r) })
}

func (f Fanout) SaveFlowMeterReading(ctx context.Context, r domain.FlowMeterReading) error {
	return f.each(func(s simulation.Sink) error { return s.SaveFlowMeterReading(ctx, r) })
}
