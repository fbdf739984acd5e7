package metrics

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/ANIKETSHETTY47/smart-city-data-generator/internal/domain"
	"github.com/ANIKETSHETTY47/smart-city-data-generator/internal/simulation"
)

func TestObserveTick(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	res := simulation.TickResult{
		Timestamp:     time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		PoleReadings:  make([]domain.PoleEnergyReading, 3),
		PowerReadings: make([]domain.PowerMeterReading, 2),
		FlowReadings:  []domain.FlowMeterReading{{AtCapacity: true}, {}},
		Skipped: []simulation.Skipped{
			{Kind: domain.KindFlowMeter, DeviceID: "FM009", Reason: "unsupported_type"},
			{Kind: domain.KindPole, DeviceID: "SP009", Reason: "unsupported_type"},
		},
		Lost:     1,
		Duration: 40 * time.Millisecond,
	}
	m.ObserveTick(context.Background(), res)
	m.ObserveTick(context.Background(), simulation.TickResult{Timestamp: res.Timestamp.Add(time.Minute)})

	checks := []struct {
		name string
		got  float64
		want float64
	}{
		{"ticks", testutil.ToFloat64(m.TicksTotal), 2},
		{"weather", testutil.ToFloat64(m.ReadingsTotal.WithLabelValues("weather_station")), 2},
		{"poles", testutil.ToFloat64(m.ReadingsTotal.WithLabelValues("pole")), 3},
		{"power", testutil.ToFloat64(m.ReadingsTotal.WithLabelValues("power_meter")), 2},
		{"flow", testutil.ToFloat64(m.ReadingsTotal.WithLabelValues("flow_meter")), 2},
		{"skipped flow", testutil.ToFloat64(m.SkippedTotal.WithLabelValues("flow_meter", "unsupported_type")), 1},
		{"lost", testutil.ToFloat64(m.LostTotal), 1},
		{"at capacity resets", testutil.ToFloat64(m.AtCapacity), 0},
		{"last tick", testutil.ToFloat64(m.LastTick), float64(res.Timestamp.Add(time.Minute).Unix())},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s: want %v, got %v", c.name, c.want, c.got)
		}
	}
}

func TestControlAndHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.ObserveControl(nil)
	m.ObserveControl(errors.New("not found"))
	m.ObserveControl(nil)

	if got := testutil.ToFloat64(m.ControlTotal.WithLabelValues("success")); got != 2 {
		t.Fatalf("success count %v", got)
	}

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `smartcity_control_requests_total{result="error"} 1`) {
		t.Fatalf("exposition missing control counter:\n%s", body)
	}
}
