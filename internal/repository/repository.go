package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"

	"github.com/ANIKETSHETTY47/smart-city-data-generator/internal/domain"
)

type Repos struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) *Repos { return &Repos{db: db} }

var _ Store = (*Repos)(nil)

// translate maps driver errors onto domain sentinels.
func translate(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, domain.ErrNotFound)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return fmt.Errorf("%s: %w", what, domain.ErrConflict)
		case "23503":
			return fmt.Errorf("%s: %w", what, domain.ErrNotFound)
		case "23514", "22P02":
			return fmt.Errorf("%s: %w: %s", what, domain.ErrInvalidInput, pgErr.Message)
		}
	}
	return fmt.Errorf("%s: %w", what, err)
}

func mustAffect(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, domain.ErrNotFound)
	}
	return nil
}

// Directory

func (r *Repos) ListDeviceIDs(ctx context.Context, kind domain.DeviceKind, activeOnly bool) ([]string, error) {
	var q string
	switch kind {
	case domain.KindPole:
		q = `SELECT pole_id FROM smart_poles WHERE ($1 = false OR status = 'on') ORDER BY pole_id`
	case domain.KindPowerMeter:
		q = `SELECT meter_id FROM power_meters WHERE ($1 = false OR status = 'active') ORDER BY meter_id`
	case domain.KindFlowMeter:
		q = `SELECT meter_id FROM flow_meters WHERE ($1 = false OR status = 'active') ORDER BY meter_id`
	default:
		return nil, fmt.Errorf("list %s: %w", kind, domain.ErrUnsupportedType)
	}
	var ids []string
	err := r.db.SelectContext(ctx, &ids, q, activeOnly)
	return ids, translate(err, "list "+string(kind))
}

const poleColumns = `pole_id, location, latitude, longitude, status, created_at, updated_at, last_serviced_at`

func (r *Repos) Pole(ctx context.Context, poleID string) (domain.Pole, error) {
	var p domain.Pole
	err := r.db.GetContext(ctx, &p, `SELECT `+poleColumns+` FROM smart_poles WHERE pole_id = $1`, poleID)
	return p, translate(err, "pole "+poleID)
}

func (r *Repos) PoleModules(ctx context.Context, poleID string) ([]domain.PoleModule, error) {
	out := []domain.PoleModule{}
	err := r.db.SelectContext(ctx, &out,
		`SELECT id, pole_id, module_type, module_name, power_rating_w, status
		 FROM smart_pole_modules WHERE pole_id = $1 ORDER BY id`, poleID)
	return out, translate(err, "modules of "+poleID)
}

const powerMeterColumns = `meter_id, meter_type, location, room_name, building, latitude, longitude, status, created_at, updated_at, last_serviced_at`

func (r *Repos) PowerMeter(ctx context.Context, meterID string) (domain.PowerMeter, error) {
	var m domain.PowerMeter
	err := r.db.GetContext(ctx, &m, `SELECT `+powerMeterColumns+` FROM power_meters WHERE meter_id = $1`, meterID)
	return m, translate(err, "power meter "+meterID)
}

const flowMeterColumns = `meter_id, meter_type, flow_unit, location, building, pipe_size_mm, max_flow_rate, status, created_at, updated_at, last_serviced_at`

func (r *Repos) FlowMeter(ctx context.Context, meterID string) (domain.FlowMeter, error) {
	var m domain.FlowMeter
	err := r.db.GetContext(ctx, &m, `SELECT `+flowMeterColumns+` FROM flow_meters WHERE meter_id = $1`, meterID)
	return m, translate(err, "flow meter "+meterID)
}

// Status

func (r *Repos) DeviceStatus(ctx context.Context, deviceID string) (domain.DeviceKind, string, error) {
	var row struct {
		Kind   string `db:"kind"`
		Status string `db:"status"`
	}
	err := r.db.GetContext(ctx, &row, `
		SELECT 'pole' AS kind, status FROM smart_poles WHERE pole_id = $1
		UNION ALL
		SELECT 'power_meter', status FROM power_meters WHERE meter_id = $1
		UNION ALL
		SELECT 'flow_meter', status FROM flow_meters WHERE meter_id = $1
		LIMIT 1`, deviceID)
	if err != nil {
		return "", "", translate(err, "device "+deviceID)
	}
	return domain.DeviceKind(row.Kind), row.Status, nil
}

func (r *Repos) SetStatus(ctx context.Context, kind domain.DeviceKind, deviceID, status string) error {
	var q string
	switch kind {
	case domain.KindPole:
		q = `UPDATE smart_poles SET status = $1, updated_at = CURRENT_TIMESTAMP WHERE pole_id = $2`
	case domain.KindPowerMeter:
		q = `UPDATE power_meters SET status = $1, updated_at = CURRENT_TIMESTAMP WHERE meter_id = $2`
	case domain.KindFlowMeter:
		q = `UPDATE flow_meters SET status = $1, updated_at = CURRENT_TIMESTAMP WHERE meter_id = $2`
	default:
		return fmt.Errorf("set status of %s: %w", kind, domain.ErrUnsupportedType)
	}
	res, err := r.db.ExecContext(ctx, q, status, deviceID)
	if err != nil {
		return translate(err, "set status of "+deviceID)
	}
	return mustAffect(res, "set status of "+deviceID)
}

// MarkServiced records a service visit. It leaves status and updated_at alone.
func (r *Repos) MarkServiced(ctx context.Context, kind domain.DeviceKind, deviceID string, at time.Time) error {
	var q string
	switch kind {
	case domain.KindPole:
		q = `UPDATE smart_poles SET last_serviced_at = $1 WHERE pole_id = $2`
	case domain.KindPowerMeter:
		q = `UPDATE power_meters SET last_serviced_at = $1 WHERE meter_id = $2`
	case domain.KindFlowMeter:
		q = `UPDATE flow_meters SET last_serviced_at = $1 WHERE meter_id = $2`
	default:
		return fmt.Errorf("mark %s serviced: %w", kind, domain.ErrUnsupportedType)
	}
	res, err := r.db.ExecContext(ctx, q, at, deviceID)
	if err != nil {
		return translate(err, "mark serviced "+deviceID)
	}
	return mustAffect(res, "mark serviced "+deviceID)
}

// LastTotal reads the most recent cumulative total for a flow meter.
func (r *Repos) LastTotal(ctx context.Context, meterID string) (float64, bool, error) {
	var total float64
	err := r.db.GetContext(ctx, &total,
		`SELECT total_volume FROM flow_meter_readings WHERE meter_id = $1 ORDER BY timestamp DESC LIMIT 1`, meterID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("last total of %s: %w", meterID, err)
	}
	return total, true, nil
}

// Sink

func (r *Repos) SaveWeather(ctx context.Context, w domain.WeatherSample) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO weather_station (station_id, timestamp, temperature_c, humidity_percent, pressure_hpa,
			wind_speed_ms, wind_direction_deg, rainfall_mm, light_intensity_lux)
		VALUES (:station_id, :timestamp, :temperature_c, :humidity_percent, :pressure_hpa,
			:wind_speed_ms, :wind_direction_deg, :rainfall_mm, :light_intensity_lux)`, w)
	return translate(err, "save weather")
}

func (r *Repos) SavePoleEnergy(ctx context.Context, rd domain.PoleEnergyReading) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO smart_pole_energy (pole_id, timestamp, power_consumption_w, voltage_v, current_a, energy_kwh, status)
		VALUES (:pole_id, :timestamp, :power_consumption_w, :voltage_v, :current_a, :energy_kwh, :status)`, rd)
	return translate(err, "save pole energy "+rd.PoleID)
}

func (r *Repos) SavePowerMeterReading(ctx context.Context, rd domain.PowerMeterReading) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO power_meter_readings (meter_id, timestamp, voltage_v, current_a, power_w, power_factor,
			energy_kwh, frequency_hz, voltage_l1_v, voltage_l2_v, voltage_l3_v,
			current_l1_a, current_l2_a, current_l3_a, power_l1_w, power_l2_w, power_l3_w)
		VALUES (:meter_id, :timestamp, :voltage_v, :current_a, :power_w, :power_factor,
			:energy_kwh, :frequency_hz, :voltage_l1_v, :voltage_l2_v, :voltage_l3_v,
			:current_l1_a, :current_l2_a, :current_l3_a, :power_l1_w, :power_l2_w, :power_l3_w)`, rd)
	return translate(err, "save power reading "+rd.MeterID)
}

func (r *Repos) SaveFlowMeterReading(ctx context.Context, rd domain.FlowMeterReading) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO flow_meter_readings (meter_id, timestamp, flow_rate, total_volume, temperature_c, pressure_bar, density)
		VALUES (:meter_id, :timestamp, :flow_rate, :total_volume, :temperature_c, :pressure_bar, :density)`, rd)
	return translate(err, "save flow reading "+rd.MeterID)
}

// Registry

func (r *Repos) ListCategories(ctx context.Context) ([]domain.Category, error) {
	out := []domain.Category{}
	err := r.db.SelectContext(ctx, &out,
		`SELECT category_id, category_name, description FROM device_categories ORDER BY category_name`)
	return out, translate(err, "list categories")
}

func (r *Repos) UpsertCategory(ctx context.Context, c domain.Category) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO device_categories (category_id, category_name, description)
		VALUES (:category_id, :category_name, :description)
		ON CONFLICT (category_id) DO UPDATE
		SET category_name = EXCLUDED.category_name, description = EXCLUDED.description`, c)
	return translate(err, "upsert category "+c.CategoryID)
}

func (r *Repos) ListPoles(ctx context.Context) ([]domain.Pole, error) {
	out := []domain.Pole{}
	err := r.db.SelectContext(ctx, &out, `SELECT `+poleColumns+` FROM smart_poles ORDER BY pole_id`)
	return out, translate(err, "list poles")
}

func (r *Repos) PoleSummaries(ctx context.Context) ([]domain.PoleSummary, error) {
	out := []domain.PoleSummary{}
	err := r.db.SelectContext(ctx, &out, `
		SELECT sp.pole_id, sp.location, sp.status, COUNT(spm.id) AS module_count
		FROM smart_poles sp
		LEFT JOIN smart_pole_modules spm ON sp.pole_id = spm.pole_id
		GROUP BY sp.pole_id, sp.location, sp.status
		ORDER BY sp.pole_id`)
	return out, translate(err, "pole summaries")
}

func (r *Repos) CreatePole(ctx context.Context, p domain.Pole) (domain.Pole, error) {
	rows, err := r.db.NamedQueryContext(ctx, `
		INSERT INTO smart_poles (pole_id, location, latitude, longitude, status)
		VALUES (:pole_id, :location, :latitude, :longitude, :status)
		RETURNING `+poleColumns, p)
	if err != nil {
		return domain.Pole{}, translate(err, "create pole "+p.PoleID)
	}
	defer rows.Close()
	var out domain.Pole
	if rows.Next() {
		err = rows.StructScan(&out)
	} else {
		err = rows.Err()
	}
	return out, translate(err, "create pole "+p.PoleID)
}

func (r *Repos) DeletePole(ctx context.Context, poleID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM smart_poles WHERE pole_id = $1`, poleID)
	if err != nil {
		return translate(err, "delete pole "+poleID)
	}
	return mustAffect(res, "delete pole "+poleID)
}

func (r *Repos) AddModule(ctx context.Context, m domain.PoleModule) (domain.PoleModule, error) {
	err := r.db.GetContext(ctx, &m.ID, `
		INSERT INTO smart_pole_modules (pole_id, module_type, module_name, power_rating_w, status)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		m.PoleID, m.ModuleType, m.ModuleName, m.PowerRatingW, m.Status)
	return m, translate(err, "add module to "+m.PoleID)
}

func (r *Repos) ListPowerMeters(ctx context.Context, meterType string) ([]domain.PowerMeter, error) {
	out := []domain.PowerMeter{}
	err := r.db.SelectContext(ctx, &out,
		`SELECT `+powerMeterColumns+` FROM power_meters WHERE ($1 = '' OR meter_type = $1) ORDER BY meter_id`, meterType)
	return out, translate(err, "list power meters")
}

func (r *Repos) CreatePowerMeter(ctx context.Context, m domain.PowerMeter) (domain.PowerMeter, error) {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO power_meters (meter_id, meter_type, location, room_name, building, latitude, longitude, status)
		VALUES (:meter_id, :meter_type, :location, :room_name, :building, :latitude, :longitude, :status)`, m)
	if err != nil {
		return domain.PowerMeter{}, translate(err, "create power meter "+m.MeterID)
	}
	return r.PowerMeter(ctx, m.MeterID)
}

func (r *Repos) DeletePowerMeter(ctx context.Context, meterID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM power_meters WHERE meter_id = $1`, meterID)
	if err != nil {
		return translate(err, "delete power meter "+meterID)
	}
	return mustAffect(res, "delete power meter "+meterID)
}

func (r *Repos) ListFlowMeters(ctx context.Context, meterType string) ([]domain.FlowMeter, error) {
	out := []domain.FlowMeter{}
	err := r.db.SelectContext(ctx, &out,
		`SELECT `+flowMeterColumns+` FROM flow_meters WHERE ($1 = '' OR meter_type = $1) ORDER BY meter_id`, meterType)
	return out, translate(err, "list flow meters")
}

func (r *Repos) CreateFlowMeter(ctx context.Context, m domain.FlowMeter) (domain.FlowMeter, error) {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO flow_meters (meter_id, meter_type, flow_unit, location, building, pipe_size_mm, max_flow_rate, status)
		VALUES (:meter_id, :meter_type, :flow_unit, :location, :building, :pipe_size_mm, :max_flow_rate, :status)`, m)
	if err != nil {
		return domain.FlowMeter{}, translate(err, "create flow meter "+m.MeterID)
	}
	return r.FlowMeter(ctx, m.MeterID)
}

func (r *Repos) DeleteFlowMeter(ctx context.Context, meterID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM flow_meters WHERE meter_id = $1`, meterID)
	if err != nil {
		return translate(err, "delete flow meter "+meterID)
	}
	return mustAffect(res, "delete flow meter "+meterID)
}

// Queries

const powerReadingColumns = `r.meter_id, m.meter_type, r.timestamp, r.voltage_v, r.current_a, r.power_w,
	r.power_factor, r.energy_kwh, r.frequency_hz, r.voltage_l1_v, r.voltage_l2_v, r.voltage_l3_v,
	r.current_l1_a, r.current_l2_a, r.current_l3_a, r.power_l1_w, r.power_l2_w, r.power_l3_w`

const flowReadingColumns = `r.meter_id, m.meter_type, r.timestamp, r.flow_rate, r.total_volume,
	r.temperature_c, r.pressure_bar, r.density`

func (r *Repos) PowerMeterReadings(ctx context.Context, meterID string, limit int) ([]domain.PowerMeterReading, error) {
	out := []domain.PowerMeterReading{}
	err := r.db.SelectContext(ctx, &out, `
		SELECT `+powerReadingColumns+`
		FROM power_meter_readings r JOIN power_meters m ON m.meter_id = r.meter_id
		WHERE r.meter_id = $1 ORDER BY r.timestamp DESC LIMIT $2`, meterID, limit)
	return out, translate(err, "power readings of "+meterID)
}

func (r *Repos) PowerMeterReadingsSince(ctx context.Context, meterID string, since time.Time) ([]domain.PowerMeterReading, error) {
	out := []domain.PowerMeterReading{}
	err := r.db.SelectContext(ctx, &out, `
		SELECT `+powerReadingColumns+`
		FROM power_meter_readings r JOIN power_meters m ON m.meter_id = r.meter_id
		WHERE r.meter_id = $1 AND r.timestamp >= $2 ORDER BY r.timestamp`, meterID, since)
	return out, translate(err, "power readings of "+meterID)
}

func (r *Repos) FlowMeterReadings(ctx context.Context, meterID string, limit int) ([]domain.FlowMeterReading, error) {
	out := []domain.FlowMeterReading{}
	err := r.db.SelectContext(ctx, &out, `
		SELECT `+flowReadingColumns+`
		FROM flow_meter_readings r JOIN flow_meters m ON m.meter_id = r.meter_id
		WHERE r.meter_id = $1 ORDER BY r.timestamp DESC LIMIT $2`, meterID, limit)
	return out, translate(err, "flow readings of "+meterID)
}

func (r *Repos) LatestWeather(ctx context.Context) (domain.WeatherSample, error) {
	var w domain.WeatherSample
	err := r.db.GetContext(ctx, &w, `
		SELECT station_id, timestamp, temperature_c, humidity_percent, pressure_hpa,
			wind_speed_ms, wind_direction_deg, rainfall_mm, light_intensity_lux
		FROM weather_station ORDER BY timestamp DESC LIMIT 1`)
	return w, translate(err, "latest weather")
}

func (r *Repos) LatestPoleEnergy(ctx context.Context) ([]domain.PoleEnergyReading, error) {
	out := []domain.PoleEnergyReading{}
	err := r.db.SelectContext(ctx, &out, `
		SELECT DISTINCT ON (pole_id) pole_id, timestamp, power_consumption_w, voltage_v, current_a, energy_kwh, status
		FROM smart_pole_energy ORDER BY pole_id, timestamp DESC`)
	return out, translate(err, "latest pole energy")
}

func (r *Repos) LatestPowerReadings(ctx context.Context) ([]domain.PowerMeterReading, error) {
	out := []domain.PowerMeterReading{}
	err := r.db.SelectContext(ctx, &out, `
		SELECT DISTINCT ON (r.meter_id) `+powerReadingColumns+`
		FROM power_meter_readings r JOIN power_meters m ON m.meter_id = r.meter_id
		ORDER BY r.meter_id, r.timestamp DESC`)
	return out, translate(err, "latest power readings")
}

func (r *Repos) LatestFlowReadings(ctx context.Context) ([]domain.FlowMeterReading, error) {
	out := []domain.FlowMeterReading{}
	err := r.db.SelectContext(ctx, &out, `
		SELECT DISTINCT ON (r.meter_id) `+flowReadingColumns+`
		FROM flow_meter_readings r JOIN flow_meters m ON m.meter_id = r.meter_id
		ORDER BY r.meter_id, r.timestamp DESC`)
	return out, translate(err, "latest flow readings")
}

// Statistics

func (r *Repos) PowerConsumptionStats(ctx context.Context, since time.Time) ([]domain.PowerStat, error) {
	out := []domain.PowerStat{}
	err := r.db.SelectContext(ctx, &out, `
		SELECT pm.meter_type,
			COUNT(DISTINCT pm.meter_id) AS meter_count,
			COALESCE(AVG(pmr.power_w), 0) AS avg_power_w,
			COALESCE(SUM(pmr.energy_kwh), 0) AS total_energy_kwh
		FROM power_meters pm
		JOIN power_meter_readings pmr ON pm.meter_id = pmr.meter_id
		WHERE pmr.timestamp >= $1
		GROUP BY pm.meter_type
		ORDER BY pm.meter_type`, since)
	return out, translate(err, "power consumption stats")
}

func (r *Repos) FlowRateStats(ctx context.Context, since time.Time) ([]domain.FlowStat, error) {
	out := []domain.FlowStat{}
	err := r.db.SelectContext(ctx, &out, `
		SELECT fm.meter_type,
			COUNT(DISTINCT fm.meter_id) AS meter_count,
			COALESCE(AVG(fmr.flow_rate), 0) AS avg_flow_rate,
			COALESCE(SUM(fmr.total_volume), 0) AS total_volume
		FROM flow_meters fm
		JOIN flow_meter_readings fmr ON fm.meter_id = fmr.meter_id
		WHERE fmr.timestamp >= $1
		GROUP BY fm.meter_type
		ORDER BY fm.meter_type`, since)
	return out, translate(err, "flow rate stats")
}
