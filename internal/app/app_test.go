package app

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/ANIKETSHETTY47/smart-city-data-generator/internal/config"
)

func memoryConfig(t *testing.T, fleetFile string) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
	t.Setenv("MEMORY_STORE", "true")
	t.Setenv("FLEET_FILE", fleetFile)
	t.Setenv("RNG_SEED", "11")
	if err := config.Load(); err != nil {
		t.Fatal(err)
	}
}

func TestNewMemoryApp(t *testing.T) {
	memoryConfig(t, "../../devices.yaml")
	ctx := context.Background()

	a, err := New(ctx, zerolog.Nop(), Options{Sinks: []string{SinkMemory, SinkStore}})
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()

	now := time.Date(2025, 6, 2, 20, 0, 0, 0, time.UTC)
	res := a.Engine.RunTick(ctx, now)
	if len(res.PoleReadings) != 3 || len(res.PowerReadings) != 4 || len(res.FlowReadings) != 4 || res.Lost != 0 {
		t.Fatalf("tick %+v", res)
	}
	if got := testutil.ToFloat64(a.Metrics.TicksTotal); got != 1 {
		t.Fatalf("ticks_total %v", got)
	}
	w, err := a.Store.LatestWeather(ctx)
	if err != nil || !w.Timestamp.Equal(now) {
		t.Fatalf("weather %+v %v", w, err)
	}

	// seeding again only finds existing devices
	res2, err := a.SeedFleet(ctx, a.Store)
	if err != nil {
		t.Fatal(err)
	}
	if res2.Poles != 0 || res2.Existing == 0 {
		t.Fatalf("reseed %+v", res2)
	}
}

func TestMissingFleetFileStartsEmpty(t *testing.T) {
	memoryConfig(t, "does-not-exist.yaml")

	a, err := New(context.Background(), zerolog.Nop(), Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()
	poles, _ := a.Services.Devices.Poles(context.Background())
	if len(poles) != 0 {
		t.Fatalf("poles %+v", poles)
	}
}

func TestUnknownSink(t *testing.T) {
	memoryConfig(t, "../../devices.yaml")

	if _, err := New(context.Background(), zerolog.Nop(), Options{Sinks: []string{"carrier-pigeon"}}); err == nil {
		t.Fatal("want error for unknown sink")
	}
}
