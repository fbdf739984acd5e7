package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/ANIKETSHETTY47/smart-city-data-generator/internal/domain"
	"github.com/ANIKETSHETTY47/smart-city-data-generator/internal/repository"
	"github.com/ANIKETSHETTY47/smart-city-data-generator/internal/simulation"
)

// DeviceService validates registry writes before they reach the store.
type DeviceService struct {
	store  repository.Store
	engine *simulation.Orchestrator
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", domain.ErrInvalidInput, fmt.Sprintf(format, args...))
}

func checkCoords(lat, lon *float64) error {
	if lat != nil && (*lat < -90 || *lat > 90) {
		return invalid("latitude must be between -90 and 90")
	}
	if lon != nil && (*lon < -180 || *lon > 180) {
		return invalid("longitude must be between -180 and 180")
	}
	return nil
}

// required takes name, value pairs and reports the first blank value.
func required(pairs ...string) error {
	for i := 0; i+1 < len(pairs); i += 2 {
		if strings.TrimSpace(pairs[i+1]) == "" {
			return invalid("%s is required", pairs[i])
		}
	}
	return nil
}

func oneOf(name, v string, allowed ...string) error {
	for _, a := range allowed {
		if v == a {
			return nil
		}
	}
	return invalid("%s must be one of %s", name, strings.Join(allowed, ", "))
}

func (s *DeviceService) Categories(ctx context.Context) ([]domain.Category, error) {
	return s.store.ListCategories(ctx)
}

func (s *DeviceService) Poles(ctx context.Context) ([]domain.Pole, error) {
	return s.store.ListPoles(ctx)
}

func (s *DeviceService) PoleSummaries(ctx context.Context) ([]domain.PoleSummary, error) {
	return s.store.PoleSummaries(ctx)
}

func (s *DeviceService) Pole(ctx context.Context, id string) (domain.Pole, error) {
	return s.store.Pole(ctx, id)
}

func (s *DeviceService) CreatePole(ctx context.Context, p domain.Pole) (domain.Pole, error) {
	if err := required("pole_id", p.PoleID, "location", p.Location); err != nil {
		return domain.Pole{}, err
	}
	if err := checkCoords(p.Latitude, p.Longitude); err != nil {
		return domain.Pole{}, err
	}
	if p.Status == "" {
		p.Status = domain.StatusOn
	}
	if err := oneOf("status", p.Status, domain.StatusOn, domain.StatusOff); err != nil {
		return domain.Pole{}, err
	}
	return s.store.CreatePole(ctx, p)
}

func (s *DeviceService) DeletePole(ctx context.Context, id string) error {
	return s.store.DeletePole(ctx, id)
}

func (s *DeviceService) Modules(ctx context.Context, poleID string) ([]domain.PoleModule, error) {
	if _, err := s.store.Pole(ctx, poleID); err != nil {
		return nil, err
	}
	return s.store.PoleModules(ctx, poleID)
}

// AddModule accepts any module type; poles carrying a type the energy model
// does not know are skipped at generation time.
func (s *DeviceService) AddModule(ctx context.Context, m domain.PoleModule) (domain.PoleModule, error) {
	if err := required("module_type", m.ModuleType, "module_name", m.ModuleName); err != nil {
		return domain.PoleModule{}, err
	}
	if m.PowerRatingW <= 0 {
		return domain.PoleModule{}, invalid("power_rating_w must be greater than 0")
	}
	if m.Status == "" {
		m.Status = domain.StatusActive
	}
	return s.store.AddModule(ctx, m)
}

// ControlPole sets a pole on, off or toggles it. active and inactive are
// accepted as on and off.
func (s *DeviceService) ControlPole(ctx context.Context, poleID, status string) (string, error) {
	action := strings.ToLower(strings.TrimSpace(status))
	switch action {
	case domain.StatusActive:
		action = simulation.ActionOn
	case domain.StatusInactive:
		action = simulation.ActionOff
	}
	if _, err := simulation.ParseAction(action); err != nil {
		return "", err
	}
	if _, err := s.store.Pole(ctx, poleID); err != nil {
		return "", err
	}
	return s.engine.ControlDevice(ctx, poleID, action)
}

// Control applies an on, off or toggle action to any device.
func (s *DeviceService) Control(ctx context.Context, deviceID, action string) (string, error) {
	return s.engine.ControlDevice(ctx, deviceID, action)
}

func (s *DeviceService) PowerMeters(ctx context.Context, meterType string) ([]domain.PowerMeter, error) {
	if meterType != "" {
		if err := oneOf("meter_type", meterType, domain.MeterSinglePhase, domain.MeterThreePhase); err != nil {
			return nil, err
		}
	}
	return s.store.ListPowerMeters(ctx, meterType)
}

func (s *DeviceService) PowerMeter(ctx context.Context, id string) (domain.PowerMeter, error) {
	return s.store.PowerMeter(ctx, id)
}

func (s *DeviceService) CreatePowerMeter(ctx context.Context, m domain.PowerMeter) (domain.PowerMeter, error) {
	if err := required("meter_id", m.MeterID, "location", m.Location); err != nil {
		return domain.PowerMeter{}, err
	}
	if err := oneOf("meter_type", m.MeterType, domain.MeterSinglePhase, domain.MeterThreePhase); err != nil {
		return domain.PowerMeter{}, err
	}
	if err := checkCoords(m.Latitude, m.Longitude); err != nil {
		return domain.PowerMeter{}, err
	}
	if m.Status == "" {
		m.Status = domain.StatusActive
	}
	if err := oneOf("status", m.Status, domain.StatusActive, domain.StatusInactive); err != nil {
		return domain.PowerMeter{}, err
	}
	return s.store.CreatePowerMeter(ctx, m)
}

func (s *DeviceService) DeletePowerMeter(ctx context.Context, id string) error {
	return s.store.DeletePowerMeter(ctx, id)
}

var flowTypes = []string{domain.FlowWater, domain.FlowGas, domain.FlowSteam, domain.FlowOil, domain.FlowAir}

func (s *DeviceService) FlowMeters(ctx context.Context, meterType string) ([]domain.FlowMeter, error) {
	if meterType != "" {
		if err := oneOf("meter_type", meterType, flowTypes...); err != nil {
			return nil, err
		}
	}
	return s.store.ListFlowMeters(ctx, meterType)
}

func (s *DeviceService) FlowMeter(ctx context.Context, id string) (domain.FlowMeter, error) {
	return s.store.FlowMeter(ctx, id)
}

func (s *DeviceService) CreateFlowMeter(ctx context.Context, m domain.FlowMeter) (domain.FlowMeter, error) {
	if err := required("meter_id", m.MeterID, "flow_unit", m.FlowUnit, "location", m.Location); err != nil {
		return domain.FlowMeter{}, err
	}
	if err := oneOf("meter_type", m.MeterType, flowTypes...); err != nil {
		return domain.FlowMeter{}, err
	}
	if m.PipeSizeMM != nil && *m.PipeSizeMM <= 0 {
		return domain.FlowMeter{}, invalid("pipe_size_mm must be greater than 0")
	}
	if m.MaxFlowRate != nil && *m.MaxFlowRate <= 0 {
		return domain.FlowMeter{}, invalid("max_flow_rate must be greater than 0")
	}
	if m.Status == "" {
		m.Status = domain.StatusActive
	}
	if err := oneOf("status", m.Status, domain.StatusActive, domain.StatusInactive); err != nil {
		return domain.FlowMeter{}, err
	}
	return s.store.CreateFlowMeter(ctx, m)
}

// DeleteFlowMeter also drops the meter's running total, so a meter
// recreated under the same id starts from zero.
func (s *DeviceService) DeleteFlowMeter(ctx context.Context, id string) error {
	if err := s.store.DeleteFlowMeter(ctx, id); err != nil {
		return err
	}
	if s.engine != nil {
		s.engine.Accumulator().Forget(id)
	}
	return nil
}
