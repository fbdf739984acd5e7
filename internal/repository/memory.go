package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ANIKETSHETTY47/smart-city-data-generator/internal/domain"
)

// Memory is an in-process Store for dry runs and tests. Readings are kept
// in insertion order and never evicted.
type Memory struct {
	mu sync.RWMutex

	categories map[string]domain.Category
	poles      map[string]domain.Pole
	modules    map[string][]domain.PoleModule
	power      map[string]domain.PowerMeter
	flow       map[string]domain.FlowMeter
	nextModule int64

	weather []domain.WeatherSample
	poleR   []domain.PoleEnergyReading
	powerR  []domain.PowerMeterReading
	flowR   []domain.FlowMeterReading
	now     func() time.Time
}

type MemoryOption func(*Memory)

// WithNow overrides the clock used for created_at and updated_at stamps.
func WithNow(now func() time.Time) MemoryOption {
	return func(m *Memory) { m.now = now }
}

func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		categories: map[string]domain.Category{},
		poles:      map[string]domain.Pole{},
		modules:    map[string][]domain.PoleModule{},
		power:      map[string]domain.PowerMeter{},
		flow:       map[string]domain.FlowMeter{},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

var _ Store = (*Memory)(nil)

func notFound(what, id string) error {
	return fmt.Errorf("%s %s: %w", what, id, domain.ErrNotFound)
}

func keys[V any](m map[string]V, keep func(V) bool) []string {
	out := make([]string, 0, len(m))
	for k, v := range m {
		if keep == nil || keep(v) {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

func (m *Memory) stamp() *time.Time {
	t := m.now().UTC()
	return &t
}

// Directory

func (m *Memory) ListDeviceIDs(_ context.Context, kind domain.DeviceKind, activeOnly bool) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	switch kind {
	case domain.KindPole:
		return keys(m.poles, func(p domain.Pole) bool { return !activeOnly || p.Status == domain.StatusOn }), nil
	case domain.KindPowerMeter:
		return keys(m.power, func(pm domain.PowerMeter) bool { return !activeOnly || pm.Status == domain.StatusActive }), nil
	case domain.KindFlowMeter:
		return keys(m.flow, func(fm domain.FlowMeter) bool { return !activeOnly || fm.Status == domain.StatusActive }), nil
	}
	return nil, fmt.Errorf("list %s: %w", kind, domain.ErrUnsupportedType)
}

func (m *Memory) Pole(_ context.Context, poleID string) (domain.Pole, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.poles[poleID]
	if !ok {
		return domain.Pole{}, notFound("pole", poleID)
	}
	return p, nil
}

func (m *Memory) PoleModules(_ context.Context, poleID string) ([]domain.PoleModule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]domain.PoleModule{}, m.modules[poleID]...), nil
}

func (m *Memory) PowerMeter(_ context.Context, meterID string) (domain.PowerMeter, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	pm, ok := m.power[meterID]
	if !ok {
		return domain.PowerMeter{}, notFound("power meter", meterID)
	}
	return pm, nil
}

func (m *Memory) FlowMeter(_ context.Context, meterID string) (domain.FlowMeter, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	fm, ok := m.flow[meterID]
	if !ok {
		return domain.FlowMeter{}, notFound("flow meter", meterID)
	}
	return fm, nil
}

// Status

func (m *Memory) DeviceStatus(_ context.Context, deviceID string) (domain.DeviceKind, string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if p, ok := m.poles[deviceID]; ok {
		return domain.KindPole, p.Status, nil
	}
	if pm, ok := m.power[deviceID]; ok {
		return domain.KindPowerMeter, pm.Status, nil
	}
	if fm, ok := m.flow[deviceID]; ok {
		return domain.KindFlowMeter, fm.Status, nil
	}
	return "", "", notFound("device", deviceID)
}

func (m *Memory) SetStatus(_ context.Context, kind domain.DeviceKind, deviceID, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch kind {
	case domain.KindPole:
		p, ok := m.poles[deviceID]
		if !ok {
			return notFound("pole", deviceID)
		}
		p.Status, p.UpdatedAt = status, m.stamp()
		m.poles[deviceID] = p
	case domain.KindPowerMeter:
		pm, ok := m.power[deviceID]
		if !ok {
			return notFound("power meter", deviceID)
		}
		pm.Status, pm.UpdatedAt = status, m.stamp()
		m.power[deviceID] = pm
	case domain.KindFlowMeter:
		fm, ok := m.flow[deviceID]
		if !ok {
			return notFound("flow meter", deviceID)
		}
		fm.Status, fm.UpdatedAt = status, m.stamp()
		m.flow[deviceID] = fm
	default:
		return fmt.Errorf("set status of %s: %w", kind, domain.ErrUnsupportedType)
	}
	return nil
}

func (m *Memory) MarkServiced(_ context.Context, kind domain.DeviceKind, deviceID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	at = at.UTC()
	switch kind {
	case domain.KindPole:
		p, ok := m.poles[deviceID]
		if !ok {
			return notFound("pole", deviceID)
		}
		p.LastServicedAt = &at
		m.poles[deviceID] = p
	case domain.KindPowerMeter:
		pm, ok := m.power[deviceID]
		if !ok {
			return notFound("power meter", deviceID)
		}
		pm.LastServicedAt = &at
		m.power[deviceID] = pm
	case domain.KindFlowMeter:
		fm, ok := m.flow[deviceID]
		if !ok {
			return notFound("flow meter", deviceID)
		}
		fm.LastServicedAt = &at
		m.flow[deviceID] = fm
	default:
		return fmt.Errorf("mark %s serviced: %w", kind, domain.ErrUnsupportedType)
	}
	return nil
}

func (m *Memory) LastTotal(_ context.Context, meterID string) (float64, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for i := len(m.flowR) - 1; i >= 0; i-- {
		if m.flowR[i].MeterID == meterID {
			return m.flowR[i].TotalVolume, true, nil
		}
	}
	return 0, false, nil
}

// Sink

func (m *Memory) SaveWeather(_ context.Context, w domain.WeatherSample) error {
	m.mu.Lock()
	m.weather = append(m.weather, w)
	m.mu.Unlock()
	return nil
}

func (m *Memory) SavePoleEnergy(_ context.Context, r domain.PoleEnergyReading) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.poles[r.PoleID]; !ok {
		return notFound("pole", r.PoleID)
	}
	m.poleR = append(m.poleR, r)
	return nil
}

func (m *Memory) SavePowerMeterReading(_ context.Context, r domain.PowerMeterReading) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	pm, ok := m.power[r.MeterID]
	if !ok {
		return notFound("power meter", r.MeterID)
	}
	r.MeterType = pm.MeterType
	m.powerR = append(m.powerR, r)
	return nil
}

func (m *Memory) SaveFlowMeterReading(_ context.Context, r domain.FlowMeterReading) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	fm, ok := m.flow[r.MeterID]
	if !ok {
		return notFound("flow meter", r.MeterID)
	}
	r.MeterType = fm.MeterType
	r.AtCapacity = false
	m.flowR = append(m.flowR, r)
	return nil
}

// Registry

func (m *Memory) ListCategories(_ context.Context) ([]domain.Category, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Category, 0, len(m.categories))
	for _, c := range m.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CategoryName < out[j].CategoryName })
	return out, nil
}

func (m *Memory) UpsertCategory(_ context.Context, c domain.Category) error {
	m.mu.Lock()
	m.categories[c.CategoryID] = c
	m.mu.Unlock()
	return nil
}

func (m *Memory) ListPoles(_ context.Context) ([]domain.Pole, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Pole, 0, len(m.poles))
	for _, id := range keys(m.poles, nil) {
		out = append(out, m.poles[id])
	}
	return out, nil
}

func (m *Memory) PoleSummaries(_ context.Context) ([]domain.PoleSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.PoleSummary, 0, len(m.poles))
	for _, id := range keys(m.poles, nil) {
		p := m.poles[id]
		out = append(out, domain.PoleSummary{PoleID: id, Location: p.Location, Status: p.Status, ModuleCount: len(m.modules[id])})
	}
	return out, nil
}

func (m *Memory) CreatePole(_ context.Context, p domain.Pole) (domain.Pole, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.poles[p.PoleID]; ok {
		return domain.Pole{}, fmt.Errorf("create pole %s: %w", p.PoleID, domain.ErrConflict)
	}
	p.CreatedAt, p.UpdatedAt = m.stamp(), m.stamp()
	p.Modules = nil
	m.poles[p.PoleID] = p
	return p, nil
}

// DeletePole also drops the pole's modules and readings.
func (m *Memory) DeletePole(_ context.Context, poleID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.poles[poleID]; !ok {
		return notFound("pole", poleID)
	}
	delete(m.poles, poleID)
	delete(m.modules, poleID)
	m.poleR = filter(m.poleR, func(r domain.PoleEnergyReading) bool { return r.PoleID != poleID })
	return nil
}

func (m *Memory) AddModule(_ context.Context, mod domain.PoleModule) (domain.PoleModule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.poles[mod.PoleID]; !ok {
		return domain.PoleModule{}, notFound("pole", mod.PoleID)
	}
	m.nextModule++
	mod.ID = m.nextModule
	m.modules[mod.PoleID] = append(m.modules[mod.PoleID], mod)
	return mod, nil
}

func (m *Memory) ListPowerMeters(_ context.Context, meterType string) ([]domain.PowerMeter, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []domain.PowerMeter{}
	for _, id := range keys(m.power, func(pm domain.PowerMeter) bool { return meterType == "" || pm.MeterType == meterType }) {
		out = append(out, m.power[id])
	}
	return out, nil
}

func (m *Memory) CreatePowerMeter(_ context.Context, pm domain.PowerMeter) (domain.PowerMeter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.power[pm.MeterID]; ok {
		return domain.PowerMeter{}, fmt.Errorf("create power meter %s: %w", pm.MeterID, domain.ErrConflict)
	}
	pm.CreatedAt, pm.UpdatedAt = m.stamp(), m.stamp()
	m.power[pm.MeterID] = pm
	return pm, nil
}

func (m *Memory) DeletePowerMeter(_ context.Context, meterID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.power[meterID]; !ok {
		return notFound("power meter", meterID)
	}
	delete(m.power, meterID)
	m.powerR = filter(m.powerR, func(r domain.PowerMeterReading) bool { return r.MeterID != meterID })
	return nil
}

func (m *Memory) ListFlowMeters(_ context.Context, meterType string) ([]domain.FlowMeter, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []domain.FlowMeter{}
	for _, id := range keys(m.flow, func(fm domain.FlowMeter) bool { return meterType == "" || fm.MeterType == meterType }) {
		out = append(out, m.flow[id])
	}
	return out, nil
}

func (m *Memory) CreateFlowMeter(_ context.Context, fm domain.FlowMeter) (domain.FlowMeter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.flow[fm.MeterID]; ok {
		return domain.FlowMeter{}, fmt.Errorf("create flow meter %s: %w", fm.MeterID, domain.ErrConflict)
	}
	fm.CreatedAt, fm.UpdatedAt = m.stamp(), m.stamp()
	m.flow[fm.MeterID] = fm
	return fm, nil
}

func (m *Memory) DeleteFlowMeter(_ context.Context, meterID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.flow[meterID]; !ok {
		return notFound("flow meter", meterID)
	}
	delete(m.flow, meterID)
	m.flowR = filter(m.flowR, func(r domain.FlowMeterReading) bool { return r.MeterID != meterID })
	return nil
}

// Queries

func filter[T any](in []T, keep func(T) bool) []T {
	out := in[:0:0]
	for _, v := range in {
		if keep(v) {
			out = append(out, v)
		}
	}
	return out
}

// newestFirst returns up to limit matching items, newest first.
func newestFirst[T any](in []T, match func(T) bool, limit int) []T {
	out := []T{}
	for i := len(in) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		if match(in[i]) {
			out = append(out, in[i])
		}
	}
	return out
}

func (m *Memory) PowerMeterReadings(_ context.Context, meterID string, limit int) ([]domain.PowerMeterReading, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return newestFirst(m.powerR, func(r domain.PowerMeterReading) bool { return r.MeterID == meterID }, limit), nil
}

func (m *Memory) PowerMeterReadingsSince(_ context.Context, meterID string, since time.Time) ([]domain.PowerMeterReading, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []domain.PowerMeterReading{}
	for _, r := range m.powerR {
		if r.MeterID == meterID && !r.Timestamp.Before(since) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

func (m *Memory) FlowMeterReadings(_ context.Context, meterID string, limit int) ([]domain.FlowMeterReading, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return newestFirst(m.flowR, func(r domain.FlowMeterReading) bool { return r.MeterID == meterID }, limit), nil
}

func (m *Memory) LatestWeather(_ context.Context) (domain.WeatherSample, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.weather) == 0 {
		return domain.WeatherSample{}, fmt.Errorf("latest weather: %w", domain.ErrNotFound)
	}
	return m.weather[len(m.weather)-1], nil
}

// latestPerDevice keeps the last reading seen for each id, ordered by id.
func latestPerDevice[T any](in []T, id func(T) string) []T {
	last := map[string]T{}
	for _, r := range in {
		last[id(r)] = r
	}
	out := make([]T, 0, len(last))
	for _, k := range keys(last, nil) {
		out = append(out, last[k])
	}
	return out
}

func (m *Memory) LatestPoleEnergy(_ context.Context) ([]domain.PoleEnergyReading, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return latestPerDevice(m.poleR, func(r domain.PoleEnergyReading) string { return r.PoleID }), nil
}

func (m *Memory) LatestPowerReadings(_ context.Context) ([]domain.PowerMeterReading, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return latestPerDevice(m.powerR, func(r domain.PowerMeterReading) string { return r.MeterID }), nil
}

func (m *Memory) LatestFlowReadings(_ context.Context) ([]domain.FlowMeterReading, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return latestPerDevice(m.flowR, func(r domain.FlowMeterReading) string { return r.MeterID }), nil
}

// Statistics

func (m *Memory) PowerConsumptionStats(_ context.Context, since time.Time) ([]domain.PowerStat, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	type acc struct {
		meters     map[string]bool
		sumP, sumE float64
		n          int
	}
	byType := map[string]*acc{}
	for _, r := range m.powerR {
		if r.Timestamp.Before(since) {
			continue
		}
		a := byType[r.MeterType]
		if a == nil {
			a = &acc{meters: map[string]bool{}}
			byType[r.MeterType] = a
		}
		a.meters[r.MeterID] = true
		a.sumP += r.PowerW
		a.sumE += r.EnergyKWh
		a.n++
	}
	out := []domain.PowerStat{}
	for _, t := range keys(byType, nil) {
		a := byType[t]
		out = append(out, domain.PowerStat{MeterType: t, MeterCount: len(a.meters), AvgPowerW: a.sumP / float64(a.n), TotalEnergyKWh: a.sumE})
	}
	return out, nil
}

func (m *Memory) FlowRateStats(_ context.Context, since time.Time) ([]domain.FlowStat, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	type acc struct {
		meters        map[string]bool
		sumRate, sumV float64
		n             int
	}
	byType := map[string]*acc{}
	for _, r := range m.flowR {
		if r.Timestamp.Before(since) {
			continue
		}
		a := byType[r.MeterType]
		if a == nil {
			a = &acc{meters: map[string]bool{}}
			byType[r.MeterType] = a
		}
		a.meters[r.MeterID] = true
		a.sumRate += r.FlowRate
		a.sumV += r.TotalVolume
		a.n++
	}
	out := []domain.FlowStat{}
	for _, t := range keys(byType, nil) {
		a := byType[t]
		out = append(out, domain.FlowStat{MeterType: t, MeterCount: len(a.meters), AvgFlowRate: a.sumRate / float64(a.n), TotalVolume: a.sumV})
	}
	return out, nil
}
