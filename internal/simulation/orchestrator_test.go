package simulation

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/ANIKETSHETTY47/smart-city-data-generator/internal/domain"
)

type recordingObserver struct {
	ticks []TickResult
}

func (r *recordingObserver) ObserveTick(_ context.Context, res TickResult) {
	r.ticks = append(r.ticks, res)
}

func newTestOrchestrator(store *fakeStore, seed uint64, opts ...Option) *Orchestrator {
	return New(store, store, store, store, NewSource(seed), zerolog.Nop(), opts...)
}

var noon = time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)

func TestTickIsDeterministicForSeed(t *testing.T) {
	run := func() []TickResult {
		o := newTestOrchestrator(cityFleet(), 42)
		var out []TickResult
		for i := 0; i < 3; i++ {
			res := o.RunTick(context.Background(), noon.Add(time.Duration(i)*time.Minute))
			res.Duration = 0
			out = append(out, res)
		}
		return out
	}

	a, b := run(), run()
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("same seed produced different ticks:\n%+v\n%+v", a, b)
	}

	other := newTestOrchestrator(cityFleet(), 43).RunTick(context.Background(), noon)
	if reflect.DeepEqual(a[0].Weather, other.Weather) {
		t.Fatal("different seeds produced identical weather")
	}
}

func TestTickCoversEveryDevice(t *testing.T) {
	store := cityFleet()
	obs := &recordingObserver{}
	o := newTestOrchestrator(store, 1, WithStationID("WS042"), WithObservers(obs))

	res := o.RunTick(context.Background(), noon)

	if res.Weather.StationID != "WS042" || !res.Weather.Timestamp.Equal(noon) {
		t.Fatalf("weather header %+v", res.Weather)
	}
	if len(res.PoleReadings) != 2 || len(res.PowerReadings) != 2 || len(res.FlowReadings) != 2 {
		t.Fatalf("want 2/2/2 readings, got %d/%d/%d", len(res.PoleReadings), len(res.PowerReadings), len(res.FlowReadings))
	}
	if res.Lost != 0 || len(res.Skipped) != 0 {
		t.Fatalf("unexpected losses %d, skips %+v", res.Lost, res.Skipped)
	}
	if len(store.weather) != 1 || len(store.poleR) != 2 || len(store.powerR) != 2 || len(store.flowR) != 2 {
		t.Fatal("sink did not receive every reading")
	}

	for _, r := range res.PoleReadings {
		if !r.Timestamp.Equal(noon) {
			t.Fatalf("pole %s timestamp %v", r.PoleID, r.Timestamp)
		}
	}
	off := res.PoleReadings[1]
	if off.PoleID != "SP002" || off.Status != domain.StatusOff || off.PowerConsumptionW != StandbyPowerW {
		t.Fatalf("switched-off pole should report standby, got %+v", off)
	}
	if on := res.PoleReadings[0]; on.PowerConsumptionW <= StandbyPowerW {
		t.Fatalf("SP001 should draw module power, got %+v", on)
	}

	if !res.PowerReadings[1].ThreePhase() {
		t.Fatal("PM002 is a 3-phase meter")
	}
	if res.FlowReadings[1].Density == nil {
		t.Fatal("FM002 is a steam meter and reports density")
	}

	if len(obs.ticks) != 1 || !obs.ticks[0].Timestamp.Equal(noon) {
		t.Fatalf("observer saw %d ticks", len(obs.ticks))
	}
}

func TestTickSurvivesPartialFailures(t *testing.T) {
	store := cityFleet()
	store.poles["SP003"] = domain.Pole{PoleID: "SP003", Status: domain.StatusOn}
	store.modules["SP003"] = []domain.PoleModule{{ModuleType: "siren", PowerRatingW: 40, Status: domain.StatusActive}}
	store.power["PM003"] = domain.PowerMeter{MeterID: "PM003", MeterType: domain.MeterSinglePhase, Status: domain.StatusInactive}
	store.flow["FM003"] = domain.FlowMeter{MeterID: "FM003", MeterType: domain.FlowOil, Status: domain.StatusActive}
	store.failSave["PM001"] = true
	store.failSave["WS001"] = true

	res := newTestOrchestrator(store, 9).RunTick(context.Background(), noon)

	if res.Lost != 2 {
		t.Fatalf("want 2 lost readings (weather, PM001), got %d", res.Lost)
	}
	// a lost reading is still part of the tick result
	if len(res.PowerReadings) != 2 || len(store.powerR) != 1 || store.powerR[0].MeterID != "PM002" {
		t.Fatalf("power readings %d, persisted %+v", len(res.PowerReadings), store.powerR)
	}
	if len(store.weather) != 0 || len(res.PoleReadings) != 2 {
		t.Fatalf("weather persisted %d, pole readings %d", len(store.weather), len(res.PoleReadings))
	}

	want := map[string]string{"SP003": "unsupported_type", "FM003": "unsupported_type"}
	if len(res.Skipped) != len(want) {
		t.Fatalf("skipped %+v", res.Skipped)
	}
	for _, s := range res.Skipped {
		if want[s.DeviceID] != s.Reason {
			t.Fatalf("%s skipped for %q", s.DeviceID, s.Reason)
		}
		if !errors.Is(s.Err, domain.ErrUnsupportedType) {
			t.Fatalf("%s: %v", s.DeviceID, s.Err)
		}
	}
	if len(res.FlowReadings) != 2 {
		t.Fatalf("remaining flow meters should still report, got %d", len(res.FlowReadings))
	}
}

func TestFlowTotalsCarryAcrossTicks(t *testing.T) {
	store := cityFleet()
	store.totals["FM001"] = 2500
	acc := NewAccumulator(store)
	o := newTestOrchestrator(store, 5, WithAccumulator(acc))

	var last float64
	for i := 0; i < 5; i++ {
		res := o.RunTick(context.Background(), noon.Add(time.Duration(i)*time.Minute))
		total := res.FlowReadings[0].TotalVolume
		if total <= 2500 || total < last {
			t.Fatalf("tick %d: total %v after %v", i, total, last)
		}
		last = total
	}
	if got, _ := o.Accumulator().Total("FM001"); got < last-0.001 {
		t.Fatalf("shared accumulator holds %v, last reading %v", got, last)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	store := cityFleet()
	o := newTestOrchestrator(store, 1, WithIntervals(Intervals{Energy: time.Hour, Flow: time.Minute}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := o.Run(ctx, FixedClock(noon), time.Minute)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
	// the first tick runs immediately; device loops bail out on a dead context
	if len(store.weather) != 1 || len(store.poleR) != 0 {
		t.Fatalf("weather %d, poles %d", len(store.weather), len(store.poleR))
	}
}

func TestIntervalsDefaults(t *testing.T) {
	o := newTestOrchestrator(newFakeStore(), 1, WithIntervals(Intervals{Flow: 5 * time.Minute}))
	iv := o.Intervals()
	if iv.Energy != time.Hour || iv.Flow != 5*time.Minute {
		t.Fatalf("intervals %+v", iv)
	}
}
