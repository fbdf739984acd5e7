package repository

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"

	"github.com/ANIKETSHETTY47/smart-city-data-generator/internal/database"
	"github.com/ANIKETSHETTY47/smart-city-data-generator/internal/domain"
)

func TestRepos_Postgres(t *testing.T) {
	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set")
	}

	db, err := sqlx.Connect("pgx", dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := database.Migrate(ctx, db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	_, _ = db.ExecContext(ctx, `DELETE FROM smart_poles WHERE pole_id = 'IT-SP1'`)
	_, _ = db.ExecContext(ctx, `DELETE FROM flow_meters WHERE meter_id = 'IT-FM1'`)
	_, _ = db.ExecContext(ctx, `DELETE FROM power_meters WHERE meter_id = 'IT-PM1'`)

	repo := New(db)

	if _, err := repo.CreatePole(ctx, domain.Pole{PoleID: "IT-SP1", Location: "Test Street", Status: domain.StatusOn}); err != nil {
		t.Fatalf("create pole: %v", err)
	}
	if _, err := repo.CreatePole(ctx, domain.Pole{PoleID: "IT-SP1", Location: "Test Street", Status: domain.StatusOn}); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("duplicate pole: %v", err)
	}
	if _, err := repo.AddModule(ctx, domain.PoleModule{PoleID: "IT-SP1", ModuleType: domain.ModuleCamera, ModuleName: "cam", PowerRatingW: 15, Status: domain.StatusActive}); err != nil {
		t.Fatalf("add module: %v", err)
	}
	if err := repo.SetStatus(ctx, domain.KindPole, "IT-SP1", domain.StatusOff); err != nil {
		t.Fatalf("set status: %v", err)
	}
	kind, status, err := repo.DeviceStatus(ctx, "IT-SP1")
	if err != nil || kind != domain.KindPole || status != domain.StatusOff {
		t.Fatalf("device status: %s %s %v", kind, status, err)
	}
	serviced := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	if err := repo.MarkServiced(ctx, domain.KindPole, "IT-SP1", serviced); err != nil {
		t.Fatalf("mark serviced: %v", err)
	}
	if p, err := repo.Pole(ctx, "IT-SP1"); err != nil || p.LastServicedAt == nil || !p.LastServicedAt.Equal(serviced) {
		t.Fatalf("pole after service: %+v %v", p, err)
	}

	if _, err := repo.CreateFlowMeter(ctx, domain.FlowMeter{MeterID: "IT-FM1", MeterType: domain.FlowGas, FlowUnit: "m3/h", Location: "Plant", Status: domain.StatusActive}); err != nil {
		t.Fatalf("create flow meter: %v", err)
	}
	ts := time.Now().UTC().Truncate(time.Second)
	for i, total := range []float64{12.5, 13.75} {
		r := domain.FlowMeterReading{MeterID: "IT-FM1", Timestamp: ts.Add(time.Duration(i) * time.Minute), FlowRate: 75, TotalVolume: total, TemperatureC: 21, PressureBar: 1.2}
		if err := repo.SaveFlowMeterReading(ctx, r); err != nil {
			t.Fatalf("save flow reading: %v", err)
		}
	}
	total, ok, err := repo.LastTotal(ctx, "IT-FM1")
	if err != nil || !ok || total != 13.75 {
		t.Fatalf("last total: %v %v %v", total, ok, err)
	}

	if _, err := repo.CreatePowerMeter(ctx, domain.PowerMeter{MeterID: "IT-PM1", MeterType: domain.MeterThreePhase, Location: "Plant", Status: domain.StatusActive}); err != nil {
		t.Fatalf("create power meter: %v", err)
	}
	l1 := 100.0
	pr := domain.PowerMeterReading{MeterID: "IT-PM1", Timestamp: ts, VoltageV: 230, CurrentA: 1, PowerW: 300, PowerFactor: 0.9, EnergyKWh: 0.3, FrequencyHz: 50,
		VoltageL1V: &l1, VoltageL2V: &l1, VoltageL3V: &l1, CurrentL1A: &l1, CurrentL2A: &l1, CurrentL3A: &l1, PowerL1W: &l1, PowerL2W: &l1, PowerL3W: &l1}
	if err := repo.SavePowerMeterReading(ctx, pr); err != nil {
		t.Fatalf("save power reading: %v", err)
	}
	readings, err := repo.PowerMeterReadings(ctx, "IT-PM1", 10)
	if err != nil || len(readings) != 1 || !readings[0].ThreePhase() || readings[0].MeterType != domain.MeterThreePhase {
		t.Fatalf("power readings: %+v %v", readings, err)
	}

	if err := repo.DeletePole(ctx, "IT-SP1"); err != nil {
		t.Fatalf("delete pole: %v", err)
	}
	if _, err := repo.Pole(ctx, "IT-SP1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("deleted pole: %v", err)
	}
	_ = repo.DeleteFlowMeter(ctx, "IT-FM1")
	_ = repo.DeletePowerMeter(ctx, "IT-PM1")
}
