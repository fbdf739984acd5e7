package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ANIKETSHETTY47/smart-city-data-generator/internal/domain"
	"github.com/ANIKETSHETTY47/smart-city-data-generator/internal/repository"
	"github.com/ANIKETSHETTY47/smart-city-data-generator/internal/telemetry"
)

const (
	DefaultReadingLimit = 10
	MaxReadingLimit     = 100
)

type ReadingService struct {
	store repository.Store
	log   zerolog.Logger
}

// FromMQTT stores a reading published by a simulator. The topic must end in
// the envelope's <kind>/<device id>.
func (s *ReadingService) FromMQTT(ctx context.Context, topic string, payload []byte) error {
	env, err := telemetry.Decode(payload)
	if err != nil {
		return err
	}
	if !strings.HasSuffix(topic, "/"+env.Kind+"/"+env.DeviceID) {
		return fmt.Errorf("topic %s does not match %s/%s: %w", topic, env.Kind, env.DeviceID, domain.ErrInvalidInput)
	}
	return s.apply(ctx, env)
}

// FromKafka stores a reading consumed from Kafka, where messages are keyed by
// device id.
func (s *ReadingService) FromKafka(ctx context.Context, key, payload []byte) error {
	env, err := telemetry.Decode(payload)
	if err != nil {
		return err
	}
	if string(key) != env.DeviceID {
		return fmt.Errorf("message key %q does not match %s: %w", key, env.DeviceID, domain.ErrInvalidInput)
	}
	return s.apply(ctx, env)
}

func (s *ReadingService) apply(ctx context.Context, env telemetry.Envelope) error {
	if err := env.Apply(ctx, s.store); err != nil {
		return err
	}
	s.log.Debug().Str("kind", env.Kind).Str("device_id", env.DeviceID).Msg("reading ingested")
	return nil
}

func checkLimit(limit int) error {
	if limit < 1 || limit > MaxReadingLimit {
		return fmt.Errorf("%w: limit must be between 1 and %d", domain.ErrInvalidInput, MaxReadingLimit)
	}
	return nil
}

// PowerMeterReadings returns up to limit of a meter's newest readings.
func (s *ReadingService) PowerMeterReadings(ctx context.Context, meterID string, limit int) ([]domain.PowerMeterReading, error) {
	if err := checkLimit(limit); err != nil {
		return nil, err
	}
	return s.store.PowerMeterReadings(ctx, meterID, limit)
}

func (s *ReadingService) FlowMeterReadings(ctx context.Context, meterID string, limit int) ([]domain.FlowMeterReading, error) {
	if err := checkLimit(limit); err != nil {
		return nil, err
	}
	return s.store.FlowMeterReadings(ctx, meterID, limit)
}

func (s *ReadingService) LatestWeather(ctx context.Context) (domain.WeatherSample, error) {
	return s.store.LatestWeather(ctx)
}

// Snapshot is the newest reading of every device.
type Snapshot struct {
	Weather *domain.WeatherSample      `json:"weather"`
	Poles   []domain.PoleEnergyReading `json:"poles"`
	Power   []domain.PowerMeterReading `json:"power_meters"`
	Flow    []domain.FlowMeterReading  `json:"flow_meters"`
}

func (s *ReadingService) Latest(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	w, err := s.store.LatestWeather(ctx)
	switch {
	case err == nil:
		snap.Weather = &w
	case !isNotFound(err):
		return snap, err
	}
	if snap.Poles, err = s.store.LatestPoleEnergy(ctx); err != nil {
		return snap, err
	}
	if snap.Power, err = s.store.LatestPowerReadings(ctx); err != nil {
		return snap, err
	}
	if snap.Flow, err = s.store.LatestFlowReadings(ctx); err != nil {
		return snap, err
	}
	return snap, nil
}
