// Package metrics holds the prometheus collectors of the catalog store.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	labelOp     = "op"
	labelResult = "result"

	ResultOK    = "ok"
	ResultError = "error"
)

type StoreMetrics struct {
	Operations *prometheus.CounterVec
	Latency    *prometheus.HistogramVec
	Products   prometheus.Gauge
}

// NewStoreMetrics creates the store collectors and registers them with reg.
func NewStoreMetrics(reg prometheus.Registerer) *StoreMetrics {
	m := &StoreMetrics{
		Operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "catalog",
				Subsystem: "store",
				Name:      "operations_total",
				Help:      "Product store operations by outcome",
			},
			[]string{labelOp, labelResult},
		),
		Latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "catalog",
				Subsystem: "store",
				Name:      "operation_duration_seconds",
				Help:      "Product store operation latency",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{labelOp},
		),
		Products: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "catalog",
			Subsystem: "store",
			Name:      "products",
			Help:      "Products in the collection after the last observed operation",
		}),
	}

	reg.MustRegister(m.Operations, m.Latency, m.Products)
	return m
}

// Observe records one finished operation.
func (m *StoreMetrics) Observe(op string, start time.Time, err error) {
	result := ResultOK
	if err != nil {
		result = ResultError
	}
	m.Latency.WithLabelValues(op).Observe(time.Since(start).Seconds())
	m.Operations.WithLabelValues(op, result).Inc()
}
