package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ANIKETSHETTY47/smart-city-data-generator/internal/domain"
	"github.com/ANIKETSHETTY47/smart-city-data-generator/internal/simulation"
)

const metricPrefix = "smartcity_"

// Metrics bundles generator metrics. It is a simulation.TickObserver.
type Metrics struct {
	TicksTotal    prometheus.Counter
	ReadingsTotal *prometheus.CounterVec
	SkippedTotal  *prometheus.CounterVec
	LostTotal     prometheus.Counter
	TickDuration  prometheus.Histogram
	AtCapacity    prometheus.Gauge
	LastTick      prometheus.Gauge
	ControlTotal  *prometheus.CounterVec
}

var _ simulation.TickObserver = (*Metrics)(nil)

// New constructs the metrics and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		TicksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricPrefix + "ticks_total",
			Help: "Total generation ticks",
		}),
		ReadingsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "readings_generated_total",
				Help: "Total readings generated by device kind",
			},
			[]string{"kind"},
		),
		SkippedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "devices_skipped_total",
				Help: "Total devices skipped in a tick by kind and reason",
			},
			[]string{"kind", "reason"},
		),
		LostTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricPrefix + "readings_lost_total",
			Help: "Total readings generated but not persisted",
		}),
		TickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    metricPrefix + "tick_duration_seconds",
			Help:    "Tick duration in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		AtCapacity: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: metricPrefix + "flow_meters_at_capacity",
			Help: "Flow meters clamped to their max flow rate in the last tick",
		}),
		LastTick: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: metricPrefix + "last_tick_timestamp_seconds",
			Help: "Unix time of the last completed tick",
		}),
		ControlTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "control_requests_total",
				Help: "Total device control requests by result",
			},
			[]string{"result"},
		),
	}
	reg.MustRegister(
		m.TicksTotal,
		m.ReadingsTotal,
		m.SkippedTotal,
		m.LostTotal,
		m.TickDuration,
		m.AtCapacity,
		m.LastTick,
		m.ControlTotal,
	)
	return m
}

func (m *Metrics) ObserveTick(_ context.Context, res simulation.TickResult) {
	m.TicksTotal.Inc()
	m.ReadingsTotal.WithLabelValues(string(domain.KindWeatherStation)).Inc()
	m.ReadingsTotal.WithLabelValues(string(domain.KindPole)).Add(float64(len(res.PoleReadings)))
	m.ReadingsTotal.WithLabelValues(string(domain.KindPowerMeter)).Add(float64(len(res.PowerReadings)))
	m.ReadingsTotal.WithLabelValues(string(domain.KindFlowMeter)).Add(float64(len(res.FlowReadings)))
	for _, s := range res.Skipped {
		m.SkippedTotal.WithLabelValues(string(s.Kind), s.Reason).Inc()
	}
	m.LostTotal.Add(float64(res.Lost))
	m.TickDuration.Observe(res.Duration.Seconds())

	capped := 0
	for _, r := range res.FlowReadings {
		if r.AtCapacity {
			capped++
		}
	}
	m.AtCapacity.Set(float64(capped))
	m.LastTick.Set(float64(res.Timestamp.Unix()))
}

// ObserveControl counts a control request; err nil means it was applied.
func (m *Metrics) ObserveControl(err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	m.ControlTotal.WithLabelValues(result).Inc()
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
