package wallet

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsCollector defines the interface for collecting wallet metrics.
type MetricsCollector interface {
	RecordOperationDuration(operation string, duration time.Duration)
	RecordTransaction(txType string, amount float64)
	RecordError(operation, errType string)
}

// NoopMetricsCollector discards all metrics.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordOperationDuration(string, time.Duration) {}
func (NoopMetricsCollector) RecordTransaction(string, float64)             {}
func (NoopMetricsCollector) RecordError(string, string)                    {}

// PrometheusCollector exposes wallet metrics on the default registry.
type PrometheusCollector struct {
	opDuration *prometheus.HistogramVec
	txTotal    *prometheus.CounterVec
	txVolume   *prometheus.CounterVec
	errTotal   *prometheus.CounterVec
}

func NewPrometheusCollector() *PrometheusCollector {
	return &PrometheusCollector{
		opDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "wallet_operation_duration_seconds",
			Help:    "Duration of wallet operations.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		txTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "wallet_transactions_total",
			Help: "Number of committed wallet transactions.",
		}, []string{"type"}),
		txVolume: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "wallet_transaction_volume",
			Help: "Total transacted amount per transaction type.",
		}, []string{"type"}),
		errTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "wallet_errors_total",
			Help: "Number of failed wallet operations.",
		}, []string{"operation", "error"}),
	}
}

func (c *PrometheusCollector) RecordOperationDuration(operation string, d time.Duration) {
	c.opDuration.WithLabelValues(operation).Observe(d.Seconds())
}

func (c *PrometheusCollector) RecordTransaction(txType string, amount float64) {
	c.txTotal.WithLabelValues(txType).Inc()
	c.txVolume.WithLabelValues(txType).Add(amount)
}

func (c *PrometheusCollector) RecordError(operation, errType string) {
	c.errTotal.WithLabelValues(operation, errType).Inc()
}
