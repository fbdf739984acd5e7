package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ANIKETSHETTY47/smart-city-data-generator/internal/domain"
	"github.com/ANIKETSHETTY47/smart-city-data-generator/internal/simulation"
)

// KindWeather tags weather samples; the device kinds tag everything else.
const KindWeather = string(domain.KindWeatherStation)

// Envelope is the wire form of one reading on MQTT and Kafka.
type Envelope struct {
	Kind      string          `json:"kind"`
	DeviceID  string          `json:"device_id"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

func Encode(kind, deviceID string, ts time.Time, reading any) (Envelope, []byte, error) {
	data, err := json.Marshal(reading)
	if err != nil {
		return Envelope{}, nil, fmt.Errorf("marshal %s reading: %w", kind, err)
	}
	env := Envelope{Kind: kind, DeviceID: deviceID, Timestamp: ts, Data: data}
	payload, err := json.Marshal(env)
	if err != nil {
		return Envelope{}, nil, fmt.Errorf("marshal envelope: %w", err)
	}
	return env, payload, nil
}

func Decode(payload []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w: %v", domain.ErrInvalidInput, err)
	}
	if env.Kind == "" || env.DeviceID == "" || len(env.Data) == 0 {
		return Envelope{}, fmt.Errorf("decode envelope: %w: kind, device_id and data are required", domain.ErrInvalidInput)
	}
	return env, nil
}

// Apply decodes the envelope's reading and hands it to the matching Save
// method of sink. The reading is bound to the envelope's device and time: a
// payload naming another device or instant is rejected, and missing fields
// are filled from the envelope.
func (e Envelope) Apply(ctx context.Context, sink simulation.Sink) error {
	switch e.Kind {
	case KindWeather:
		var w domain.WeatherSample
		if err := e.unmarshal(&w, &w.StationID, &w.Timestamp); err != nil {
			return err
		}
		return sink.SaveWeather(ctx, w)
	case string(domain.KindPole):
		var r domain.PoleEnergyReading
		if err := e.unmarshal(&r, &r.PoleID, &r.Timestamp); err != nil {
			return err
		}
		return sink.SavePoleEnergy(ctx, r)
	case string(domain.KindPowerMeter):
		var r domain.PowerMeterReading
		if err := e.unmarshal(&r, &r.MeterID, &r.Timestamp); err != nil {
			return err
		}
		return sink.SavePowerMeterReading(ctx, r)
	case string(domain.KindFlowMeter):
		var r domain.FlowMeterReading
		if err := e.unmarshal(&r, &r.MeterID, &r.Timestamp); err != nil {
			return err
		}
		return sink.SaveFlowMeterReading(ctx, r)
	}
	return fmt.Errorf("envelope kind %q: %w", e.Kind, domain.ErrUnsupportedType)
}

// unmarshal decodes the reading into v, whose id and ts fields are then
// bound to the envelope.
func (e Envelope) unmarshal(v any, id *string, ts *time.Time) error {
	if err := json.Unmarshal(e.Data, v); err != nil {
		return fmt.Errorf("decode %s reading from %s: %w: %v", e.Kind, e.DeviceID, domain.ErrInvalidInput, err)
	}
	if *id != "" && *id != e.DeviceID {
		return fmt.Errorf("%s reading for %s in envelope of %s: %w", e.Kind, *id, e.DeviceID, domain.ErrInvalidInput)
	}
	*id = e.DeviceID
	switch {
	case e.Timestamp.IsZero():
	case ts.IsZero():
		*ts = e.Timestamp
	case !ts.Equal(e.Timestamp):
		return fmt.Errorf("%s reading from %s at %s in envelope of %s: %w",
			e.Kind, e.DeviceID, ts.Format(time.RFC3339), e.Timestamp.Format(time.RFC3339), domain.ErrInvalidInput)
	}
	return nil
}

// Topic builds <prefix>/<kind>/<device id>.
func Topic(prefix, kind, deviceID string) string {
	return strings.Join([]string{strings.TrimSuffix(prefix, "/"), kind, deviceID}, "/")
}

// SubscriptionTopic matches every reading under prefix.
func SubscriptionTopic(prefix string) string {
	return strings.TrimSuffix(prefix, "/") + "/#"
}
