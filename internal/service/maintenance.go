package service

import (
	"context"
	"math"
	"time"

	"github.com/ANIKETSHETTY47/energy-grid-analytics-go/maintenance"
	"github.com/rs/zerolog"

	"github.com/ANIKETSHETTY47/smart-city-data-generator/internal/domain"
	"github.com/ANIKETSHETTY47/smart-city-data-generator/internal/repository"
)

// MaintenanceNotifier delivers maintenance alerts, e.g. cloud.SNSNotifier.
type MaintenanceNotifier interface {
	SendMaintenanceAlert(ctx context.Context, deviceID string, risk30d float64, next time.Time) error
}

// maintenanceProfile holds per-kind failure and service assumptions.
type maintenanceProfile struct {
	failureRatePerYear float64
	serviceInterval    time.Duration
}

const day = 24 * time.Hour

var profiles = map[domain.DeviceKind]maintenanceProfile{
	domain.KindPole:       {failureRatePerYear: 0.3, serviceInterval: 180 * day},
	domain.KindPowerMeter: {failureRatePerYear: 0.05, serviceInterval: 365 * day},
	domain.KindFlowMeter:  {failureRatePerYear: 0.15, serviceInterval: 365 * day},
}

// MaintenanceService forecasts servicing for registered devices. A device
// that has never had a recorded service counts from its installation.
// Status changes do not count as service.
type MaintenanceService struct {
	store    repository.Store
	notifier MaintenanceNotifier
	log      zerolog.Logger
	now      func() time.Time
}

func NewMaintenanceService(store repository.Store, log zerolog.Logger) *MaintenanceService {
	return &MaintenanceService{store: store, log: log, now: time.Now}
}

// SetNotifier enables alerts for high-risk forecasts.
func (s *MaintenanceService) SetNotifier(n MaintenanceNotifier) { s.notifier = n }

type MaintenancePrediction struct {
	DeviceID          string            `json:"device_id"`
	Kind              domain.DeviceKind `json:"kind"`
	HoursRun          float64           `json:"hours_run"`
	CurrentHealth     float64           `json:"current_health"`
	FailureRisk30Days float64           `json:"failure_risk_30_days"`
	FailureRisk90Days float64           `json:"failure_risk_90_days"`
	NextServiceDate   time.Time         `json:"next_service_date"`
	DaysUntilService  int               `json:"days_until_service"`
	Recommendation    string            `json:"recommendation"`
}

// serviceDates returns when a device was installed and last serviced.
func (s *MaintenanceService) serviceDates(ctx context.Context, kind domain.DeviceKind, id string) (installed, serviced time.Time, err error) {
	var created, lastService *time.Time
	switch kind {
	case domain.KindPole:
		p, err := s.store.Pole(ctx, id)
		if err != nil {
			return installed, serviced, err
		}
		created, lastService = p.CreatedAt, p.LastServicedAt
	case domain.KindPowerMeter:
		m, err := s.store.PowerMeter(ctx, id)
		if err != nil {
			return installed, serviced, err
		}
		created, lastService = m.CreatedAt, m.LastServicedAt
	case domain.KindFlowMeter:
		m, err := s.store.FlowMeter(ctx, id)
		if err != nil {
			return installed, serviced, err
		}
		created, lastService = m.CreatedAt, m.LastServicedAt
	}
	installed, serviced = s.now(), s.now()
	if created != nil {
		installed, serviced = *created, *created
	}
	if lastService != nil {
		serviced = *lastService
	}
	return installed, serviced, nil
}

// health drops linearly from 100 at service to 50 one interval later and
// to 0 at two intervals.
func health(sinceService, interval time.Duration) float64 {
	overdue := sinceService.Hours() / interval.Hours()
	return math.Round(math.Max(0, 100-50*overdue)*100) / 100
}

// Predict forecasts one device and alerts when it is at risk.
func (s *MaintenanceService) Predict(ctx context.Context, deviceID string) (*MaintenancePrediction, error) {
	return s.predict(ctx, deviceID, true)
}

func (s *MaintenanceService) predict(ctx context.Context, deviceID string, notify bool) (*MaintenancePrediction, error) {
	kind, _, err := s.store.DeviceStatus(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	profile := profiles[kind]
	installed, serviced, err := s.serviceDates(ctx, kind, deviceID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	asset := maintenance.AssetHealth{
		HoursRun:           now.Sub(installed).Hours(),
		FailureRatePerYear: profile.failureRatePerYear,
		LastService:        serviced,
		ServiceInterval:    profile.serviceInterval,
	}
	risk30 := maintenance.FailureRisk(asset.FailureRatePerYear, 30*day)
	risk90 := maintenance.FailureRisk(asset.FailureRatePerYear, 90*day)
	next := maintenance.NextServiceDate(asset)
	score := health(now.Sub(serviced), profile.serviceInterval)

	p := &MaintenancePrediction{
		DeviceID:          deviceID,
		Kind:              kind,
		HoursRun:          math.Round(asset.HoursRun*100) / 100,
		CurrentHealth:     score,
		FailureRisk30Days: risk30 * 100,
		FailureRisk90Days: risk90 * 100,
		NextServiceDate:   next,
		DaysUntilService:  int(next.Sub(now).Hours() / 24),
		Recommendation:    recommendation(risk30, score),
	}

	if notify && (risk30 > 0.5 || score < 75) {
		s.alert(ctx, p)
	}
	return p, nil
}

// RecordService marks deviceID as serviced now and returns its fresh forecast.
func (s *MaintenanceService) RecordService(ctx context.Context, deviceID string) (*MaintenancePrediction, error) {
	kind, _, err := s.store.DeviceStatus(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	if err := s.store.MarkServiced(ctx, kind, deviceID, s.now()); err != nil {
		return nil, err
	}
	s.log.Info().Str("device_id", deviceID).Str("kind", string(kind)).Msg("service recorded")
	return s.predict(ctx, deviceID, false)
}

// PredictAll forecasts every pole and meter, without sending alerts.
func (s *MaintenanceService) PredictAll(ctx context.Context) ([]MaintenancePrediction, error) {
	var out []MaintenancePrediction
	for _, kind := range []domain.DeviceKind{domain.KindPole, domain.KindPowerMeter, domain.KindFlowMeter} {
		ids, err := s.store.ListDeviceIDs(ctx, kind, false)
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			p, err := s.predict(ctx, id, false)
			if err != nil {
				return nil, err
			}
			out = append(out, *p)
		}
	}
	return out, nil
}

func recommendation(risk, health float64) string {
	switch {
	case risk > 0.5 || health < 60:
		return "URGENT: Schedule immediate maintenance inspection"
	case risk > 0.3 || health < 75:
		return "Schedule maintenance within next 30 days"
	case risk > 0.15 || health < 85:
		return "Plan maintenance within next 90 days"
	}
	return "Device operating normally"
}

func (s *MaintenanceService) alert(ctx context.Context, p *MaintenancePrediction) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.SendMaintenanceAlert(ctx, p.DeviceID, p.FailureRisk30Days, p.NextServiceDate); err != nil {
		s.log.Error().Err(err).Str("device_id", p.DeviceID).Msg("maintenance alert failed")
	}
}
