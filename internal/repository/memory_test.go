package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ANIKETSHETTY47/smart-city-data-generator/internal/domain"
)

var t0 = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func seeded(t *testing.T) *Memory {
	t.Helper()
	ctx := context.Background()
	m := NewMemory(WithNow(func() time.Time { return t0 }))
	if _, err := m.CreatePole(ctx, domain.Pole{PoleID: "SP002", Location: "Park Avenue", Status: domain.StatusOff}); err != nil {
		t.Fatal(err)
	}
	if _, err := m.CreatePole(ctx, domain.Pole{PoleID: "SP001", Location: "Main Street", Status: domain.StatusOn}); err != nil {
		t.Fatal(err)
	}
	if _, err := m.AddModule(ctx, domain.PoleModule{PoleID: "SP001", ModuleType: domain.ModuleLighting, ModuleName: "LED", PowerRatingW: 150, Status: domain.StatusActive}); err != nil {
		t.Fatal(err)
	}
	meters := []domain.PowerMeter{
		{MeterID: "PM001", MeterType: domain.MeterSinglePhase, Location: "HQ", Status: domain.StatusActive},
		{MeterID: "PM002", MeterType: domain.MeterThreePhase, Location: "HQ", Status: domain.StatusInactive},
	}
	for _, pm := range meters {
		if _, err := m.CreatePowerMeter(ctx, pm); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := m.CreateFlowMeter(ctx, domain.FlowMeter{MeterID: "FM001", MeterType: domain.FlowWater, FlowUnit: "L/min", Status: domain.StatusActive}); err != nil {
		t.Fatal(err)
	}
	return m
}

func TestMemoryDirectory(t *testing.T) {
	m := seeded(t)
	ctx := context.Background()

	ids, err := m.ListDeviceIDs(ctx, domain.KindPole, false)
	if err != nil || len(ids) != 2 || ids[0] != "SP001" {
		t.Fatalf("poles %v, %v", ids, err)
	}
	ids, _ = m.ListDeviceIDs(ctx, domain.KindPowerMeter, true)
	if len(ids) != 1 || ids[0] != "PM001" {
		t.Fatalf("active power meters %v", ids)
	}
	if _, err := m.ListDeviceIDs(ctx, domain.KindWeatherStation, false); !errors.Is(err, domain.ErrUnsupportedType) {
		t.Fatalf("want ErrUnsupportedType, got %v", err)
	}

	kind, status, err := m.DeviceStatus(ctx, "PM002")
	if err != nil || kind != domain.KindPowerMeter || status != domain.StatusInactive {
		t.Fatalf("PM002: %s %s %v", kind, status, err)
	}
	if _, _, err := m.DeviceStatus(ctx, "nope"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}

	summaries, _ := m.PoleSummaries(ctx)
	if len(summaries) != 2 || summaries[0].ModuleCount != 1 || summaries[1].ModuleCount != 0 {
		t.Fatalf("summaries %+v", summaries)
	}
}

func TestMemoryRegistryErrors(t *testing.T) {
	m := seeded(t)
	ctx := context.Background()

	if _, err := m.CreatePole(ctx, domain.Pole{PoleID: "SP001"}); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("duplicate pole: %v", err)
	}
	if _, err := m.AddModule(ctx, domain.PoleModule{PoleID: "SP404"}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("module on missing pole: %v", err)
	}
	if err := m.DeletePowerMeter(ctx, "PM404"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("delete missing meter: %v", err)
	}
	if err := m.SetStatus(ctx, domain.KindFlowMeter, "FM404", domain.StatusActive); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("status of missing meter: %v", err)
	}
	if err := m.MarkServiced(ctx, domain.KindFlowMeter, "FM404", time.Now()); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("service of missing meter: %v", err)
	}
}

func TestMemoryReadingsAndTotals(t *testing.T) {
	m := seeded(t)
	ctx := context.Background()

	if _, ok, _ := m.LastTotal(ctx, "FM001"); ok {
		t.Fatal("no readings yet")
	}
	for i := 0; i < 5; i++ {
		ts := t0.Add(time.Duration(i) * time.Minute)
		if err := m.SaveFlowMeterReading(ctx, domain.FlowMeterReading{MeterID: "FM001", Timestamp: ts, FlowRate: 10, TotalVolume: float64(10 * (i + 1))}); err != nil {
			t.Fatal(err)
		}
		if err := m.SavePowerMeterReading(ctx, domain.PowerMeterReading{MeterID: "PM001", Timestamp: ts, PowerW: 1000, EnergyKWh: 1}); err != nil {
			t.Fatal(err)
		}
	}
	if err := m.SaveFlowMeterReading(ctx, domain.FlowMeterReading{MeterID: "FM404"}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("reading for unknown meter: %v", err)
	}

	total, ok, err := m.LastTotal(ctx, "FM001")
	if err != nil || !ok || total != 50 {
		t.Fatalf("last total %v %v %v", total, ok, err)
	}

	latest, _ := m.FlowMeterReadings(ctx, "FM001", 2)
	if len(latest) != 2 || latest[0].TotalVolume != 50 || latest[1].TotalVolume != 40 {
		t.Fatalf("newest first: %+v", latest)
	}
	if latest[0].MeterType != domain.FlowWater {
		t.Fatalf("meter type not attached: %q", latest[0].MeterType)
	}

	since, _ := m.PowerMeterReadingsSince(ctx, "PM001", t0.Add(3*time.Minute))
	if len(since) != 2 || !since[0].Timestamp.Before(since[1].Timestamp) {
		t.Fatalf("since: %+v", since)
	}

	stats, _ := m.PowerConsumptionStats(ctx, t0)
	if len(stats) != 1 || stats[0].MeterType != domain.MeterSinglePhase || stats[0].MeterCount != 1 ||
		stats[0].AvgPowerW != 1000 || stats[0].TotalEnergyKWh != 5 {
		t.Fatalf("power stats %+v", stats)
	}
	flow, _ := m.FlowRateStats(ctx, t0.Add(time.Hour))
	if len(flow) != 0 {
		t.Fatalf("no flow readings in window, got %+v", flow)
	}

	// deleting a meter removes its history, so a recreated meter starts from zero
	if err := m.DeleteFlowMeter(ctx, "FM001"); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := m.LastTotal(ctx, "FM001"); ok {
		t.Fatal("history survived delete")
	}
}

func TestMemoryLatestPerDevice(t *testing.T) {
	m := seeded(t)
	ctx := context.Background()

	if _, err := m.LatestWeather(ctx); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("empty weather: %v", err)
	}
	for i, id := range []string{"SP002", "SP001", "SP002"} {
		r := domain.PoleEnergyReading{PoleID: id, Timestamp: t0.Add(time.Duration(i) * time.Minute), PowerConsumptionW: float64(i)}
		if err := m.SavePoleEnergy(ctx, r); err != nil {
			t.Fatal(err)
		}
	}
	_ = m.SaveWeather(ctx, domain.WeatherSample{StationID: "WS001", TemperatureC: 20})

	latest, _ := m.LatestPoleEnergy(ctx)
	if len(latest) != 2 || latest[0].PoleID != "SP001" || latest[1].PowerConsumptionW != 2 {
		t.Fatalf("latest pole energy %+v", latest)
	}
	w, err := m.LatestWeather(ctx)
	if err != nil || w.TemperatureC != 20 {
		t.Fatalf("weather %+v %v", w, err)
	}
}
