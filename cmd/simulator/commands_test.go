package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/ANIKETSHETTY47/smart-city-data-generator/internal/app"
	"github.com/ANIKETSHETTY47/smart-city-data-generator/internal/config"
	"github.com/ANIKETSHETTY47/smart-city-data-generator/internal/domain"
	"github.com/ANIKETSHETTY47/smart-city-data-generator/internal/simulation"
)

func newCLI(t *testing.T) (*cli, *bytes.Buffer) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
	t.Setenv("MEMORY_STORE", "true")
	t.Setenv("FLEET_FILE", "../../devices.yaml")
	t.Setenv("RNG_SEED", "3")
	if err := config.Load(); err != nil {
		t.Fatal(err)
	}
	a, err := app.New(context.Background(), zerolog.Nop(), app.Options{})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(a.Close)

	out := &bytes.Buffer{}
	clock := simulation.FixedClock(time.Date(2025, 6, 2, 21, 0, 0, 0, time.UTC))
	return &cli{a: a, clock: clock, out: out, log: zerolog.Nop()}, out
}

func TestListCommands(t *testing.T) {
	c, out := newCLI(t)
	ctx := context.Background()

	tests := []struct {
		cmd  string
		want []string
	}{
		{"list", []string{"POLE", "SP001", "Main Street North", "SP003"}},
		{"list-power", []string{"PM003", "3-phase", "Main Panel"}},
		{"list-flow", []string{"FM002", "gas", "100.0", "FM004"}},
		{"list-categories", []string{"CAT004", "Flow Meter"}},
	}
	for _, tt := range tests {
		out.Reset()
		if err := c.run(ctx, tt.cmd, nil); err != nil {
			t.Fatalf("%s: %v", tt.cmd, err)
		}
		for _, w := range tt.want {
			if !strings.Contains(out.String(), w) {
				t.Errorf("%s output missing %q:\n%s", tt.cmd, w, out.String())
			}
		}
	}
}

func TestGenerateThenView(t *testing.T) {
	c, out := newCLI(t)
	ctx := context.Background()

	if err := c.run(ctx, "view", nil); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "No weather data available") {
		t.Fatalf("empty view:\n%s", out.String())
	}

	out.Reset()
	if err := c.run(ctx, "generate", nil); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "poles: 3  power meters: 4  flow meters: 4") {
		t.Fatalf("generate output:\n%s", out.String())
	}

	out.Reset()
	if err := c.run(ctx, "view", nil); err != nil {
		t.Fatal(err)
	}
	for _, w := range []string{"Weather WS001 at 21:00:00", "SP002", "PM004", "FM003"} {
		if !strings.Contains(out.String(), w) {
			t.Errorf("view missing %q:\n%s", w, out.String())
		}
	}
}

func TestControlCommand(t *testing.T) {
	c, out := newCLI(t)
	ctx := context.Background()

	if err := c.run(ctx, "control", []string{"SP002", "toggle"}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "SP002 is now off") {
		t.Fatalf("toggle output %q", out.String())
	}
	if err := c.run(ctx, "control", []string{"PM001", "dim"}); !errors.Is(err, domain.ErrInvalidAction) {
		t.Fatalf("bad action: %v", err)
	}
	if err := c.run(ctx, "control", []string{"SP002"}); err == nil {
		t.Fatal("missing action should fail")
	}
	if err := c.run(ctx, "fly", nil); !errors.Is(err, errUnknownCommand) {
		t.Fatalf("unknown command: %v", err)
	}
}

func TestContinuousStopsOnCancel(t *testing.T) {
	c, _ := newCLI(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// an invalid interval falls back to the default and still runs one tick
	if err := c.run(ctx, "continuous", []string{"whenever"}); !errors.Is(err, context.Canceled) {
		t.Fatalf("continuous: %v", err)
	}
	if _, err := c.a.Store.LatestWeather(context.Background()); err != nil {
		t.Fatalf("no tick ran: %v", err)
	}
}
