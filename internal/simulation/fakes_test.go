package simulation

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/ANIKETSHETTY47/smart-city-data-generator/internal/domain"
)

// scriptedSource replays fixed draws so tests can pin literal outputs.
type scriptedSource struct {
	floats []float64
	ints   []int
}

func (s *scriptedSource) Float64() float64 {
	if len(s.floats) == 0 {
		panic("scriptedSource: out of float draws")
	}
	v := s.floats[0]
	s.floats = s.floats[1:]
	return v
}

func (s *scriptedSource) IntN(n int) int {
	if len(s.ints) == 0 {
		panic("scriptedSource: out of int draws")
	}
	v := s.ints[0]
	s.ints = s.ints[1:]
	return v % n
}

// constSource answers every draw with the same value.
type constSource float64

func (c constSource) Float64() float64 { return float64(c) }
func (c constSource) IntN(n int) int   { return int(float64(c) * float64(n)) }

type fakeStore struct {
	poles   map[string]domain.Pole
	modules map[string][]domain.PoleModule
	power   map[string]domain.PowerMeter
	flow    map[string]domain.FlowMeter
	totals  map[string]float64

	failSave map[string]bool
	seedErr  error

	weather []domain.WeatherSample
	poleR   []domain.PoleEnergyReading
	powerR  []domain.PowerMeterReading
	flowR   []domain.FlowMeterReading
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		poles:    map[string]domain.Pole{},
		modules:  map[string][]domain.PoleModule{},
		power:    map[string]domain.PowerMeter{},
		flow:     map[string]domain.FlowMeter{},
		totals:   map[string]float64{},
		failSave: map[string]bool{},
	}
}

func sortedKeys[V any](m map[string]V, keep func(V) bool) []string {
	out := make([]string, 0, len(m))
	for k, v := range m {
		if keep == nil || keep(v) {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

func (f *fakeStore) ListDeviceIDs(_ context.Context, kind domain.DeviceKind, activeOnly bool) ([]string, error) {
	switch kind {
	case domain.KindPole:
		return sortedKeys(f.poles, nil), nil
	case domain.KindPowerMeter:
		return sortedKeys(f.power, func(m domain.PowerMeter) bool { return !activeOnly || m.Status == domain.StatusActive }), nil
	case domain.KindFlowMeter:
		return sortedKeys(f.flow, func(m domain.FlowMeter) bool { return !activeOnly || m.Status == domain.StatusActive }), nil
	}
	return nil, fmt.Errorf("kind %s: %w", kind, domain.ErrUnsupportedType)
}

func (f *fakeStore) Pole(_ context.Context, id string) (domain.Pole, error) {
	p, ok := f.poles[id]
	if !ok {
		return domain.Pole{}, domain.ErrNotFound
	}
	return p, nil
}

func (f *fakeStore) PoleModules(_ context.Context, id string) ([]domain.PoleModule, error) {
	return f.modules[id], nil
}

func (f *fakeStore) PowerMeter(_ context.Context, id string) (domain.PowerMeter, error) {
	m, ok := f.power[id]
	if !ok {
		return domain.PowerMeter{}, domain.ErrNotFound
	}
	return m, nil
}

func (f *fakeStore) FlowMeter(_ context.Context, id string) (domain.FlowMeter, error) {
	m, ok := f.flow[id]
	if !ok {
		return domain.FlowMeter{}, domain.ErrNotFound
	}
	return m, nil
}

func (f *fakeStore) DeviceStatus(_ context.Context, id string) (domain.DeviceKind, string, error) {
	if p, ok := f.poles[id]; ok {
		return domain.KindPole, p.Status, nil
	}
	if m, ok := f.power[id]; ok {
		return domain.KindPowerMeter, m.Status, nil
	}
	if m, ok := f.flow[id]; ok {
		return domain.KindFlowMeter, m.Status, nil
	}
	return "", "", domain.ErrNotFound
}

func (f *fakeStore) SetStatus(_ context.Context, kind domain.DeviceKind, id, status string) error {
	switch kind {
	case domain.KindPole:
		p, ok := f.poles[id]
		if !ok {
			return domain.ErrNotFound
		}
		p.Status = status
		f.poles[id] = p
	case domain.KindPowerMeter:
		m, ok := f.power[id]
		if !ok {
			return domain.ErrNotFound
		}
		m.Status = status
		f.power[id] = m
	case domain.KindFlowMeter:
		m, ok := f.flow[id]
		if !ok {
			return domain.ErrNotFound
		}
		m.Status = status
		f.flow[id] = m
	}
	return nil
}

func (f *fakeStore) LastTotal(_ context.Context, id string) (float64, bool, error) {
	if f.seedErr != nil {
		return 0, false, f.seedErr
	}
	v, ok := f.totals[id]
	return v, ok, nil
}

var errSaveFailed = errors.New("insert failed")

func (f *fakeStore) SaveWeather(_ context.Context, w domain.WeatherSample) error {
	if f.failSave[w.StationID] {
		return errSaveFailed
	}
	f.weather = append(f.weather, w)
	return nil
}

func (f *fakeStore) SavePoleEnergy(_ context.Context, r domain.PoleEnergyReading) error {
	if f.failSave[r.PoleID] {
		return errSaveFailed
	}
	f.poleR = append(f.poleR, r)
	return nil
}

func (f *fakeStore) SavePowerMeterReading(_ context.Context, r domain.PowerMeterReading) error {
	if f.failSave[r.MeterID] {
		return errSaveFailed
	}
	f.powerR = append(f.powerR, r)
	return nil
}

func (f *fakeStore) SaveFlowMeterReading(_ context.Context, r domain.FlowMeterReading) error {
	if f.failSave[r.MeterID] {
		return errSaveFailed
	}
	f.flowR = append(f.flowR, r)
	return nil
}

func strPtr(s string) *string     { return &s }
func floatPtr(v float64) *float64 { return &v }

// cityFleet is a small deployment touching every model.
func cityFleet() *fakeStore {
	f := newFakeStore()
	f.poles["SP001"] = domain.Pole{PoleID: "SP001", Location: "Main Street", Status: domain.StatusOn}
	f.poles["SP002"] = domain.Pole{PoleID: "SP002", Location: "Park Avenue", Status: domain.StatusOff}
	f.modules["SP001"] = []domain.PoleModule{
		{ModuleType: domain.ModuleLighting, ModuleName: "LED", PowerRatingW: 150, Status: domain.StatusActive},
		{ModuleType: domain.ModuleCamera, ModuleName: "CCTV", PowerRatingW: 15, Status: domain.StatusActive},
		{ModuleType: domain.ModuleCharging, ModuleName: "EV", PowerRatingW: 7000, Status: domain.StatusActive},
	}
	f.power["PM001"] = domain.PowerMeter{MeterID: "PM001", MeterType: domain.MeterSinglePhase, RoomName: strPtr("Office 201"), Status: domain.StatusActive}
	f.power["PM002"] = domain.PowerMeter{MeterID: "PM002", MeterType: domain.MeterThreePhase, RoomName: strPtr("Main Panel"), Status: domain.StatusActive}
	f.flow["FM001"] = domain.FlowMeter{MeterID: "FM001", MeterType: domain.FlowWater, FlowUnit: "L/min", Status: domain.StatusActive}
	f.flow["FM002"] = domain.FlowMeter{MeterID: "FM002", MeterType: domain.FlowSteam, FlowUnit: "kg/h", Status: domain.StatusActive}
	return f
}
