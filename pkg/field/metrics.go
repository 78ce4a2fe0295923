package field

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics collects counters for field modules. One Metrics value may be
// shared by many modules.
type Metrics struct {
	FieldsCreated *prometheus.CounterVec
	Reads         *prometheus.CounterVec
	Writes        *prometheus.CounterVec
	FilterSeconds *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// leaves them unregistered. Collectors already registered with reg by an
// earlier call are reused.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		FieldsCreated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fieldkit_fields_created_total",
				Help: "Total number of fields created, by field type",
			},
			[]string{"type"},
		),
		Reads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fieldkit_image_reads_total",
				Help: "Total number of image field reads, by result",
			},
			[]string{"result"},
		),
		Writes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fieldkit_image_writes_total",
				Help: "Total number of image field writes, by result",
			},
			[]string{"result"},
		),
		FilterSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fieldkit_filter_evaluation_seconds",
				Help:    "Duration of image filter evaluations",
				Buckets: prometheus.ExponentialBuckets(0.0005, 4, 10),
			},
			[]string{"filter"},
		),
	}

	if reg != nil {
		m.FieldsCreated = register(reg, m.FieldsCreated)
		m.Reads = register(reg, m.Reads)
		m.Writes = register(reg, m.Writes)
		m.FilterSeconds = register(reg, m.FilterSeconds)
	}
	return m
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
