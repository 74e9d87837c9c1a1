package prometheus

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/JoeShih716/go-bank-ledger/pkg/metrics"
)

// Collector 以 Prometheus 實作 metrics.Collector
type Collector struct {
	operations   *prometheus.CounterVec
	opLatency    *prometheus.HistogramVec
	lockWait     prometheus.Histogram
	retries      *prometheus.CounterVec
	circuitState *prometheus.GaugeVec
	circuitOpens *prometheus.CounterVec
	httpRequests *prometheus.CounterVec
	httpLatency  *prometheus.HistogramVec
}

// NewCollector 建立 Collector
//
// 參數:
//
//	namespace: 指標前綴 (如 "ledger")
func NewCollector(namespace string) *Collector {
	return &Collector{
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operations_total",
				Help:      "Ledger operations by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),
		opLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "operation_duration_seconds",
				Help:      "Ledger operation latency",
				Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 16),
			},
			[]string{"operation"},
		),
		lockWait: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "lock_wait_seconds",
				Help:      "Time spent acquiring account row locks",
				Buckets:   prometheus.ExponentialBuckets(0.00005, 2, 18),
			},
		),
		retries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "retries_total",
				Help:      "Transport-side retries of transient failures",
			},
			[]string{"operation"},
		),
		circuitState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "circuit_state",
				Help:      "Circuit breaker state (0=closed, 1=open, 2=half-open)",
			},
			[]string{"name"},
		),
		circuitOpens: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "circuit_opens_total",
				Help:      "Number of times the circuit breaker opened",
			},
			[]string{"name"},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests by method, endpoint and status",
			},
			[]string{"method", "endpoint", "status"},
		),
		httpLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),
	}
}

func (c *Collector) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		c.operations, c.opLatency, c.lockWait, c.retries,
		c.circuitState, c.circuitOpens, c.httpRequests, c.httpLatency,
	}
}

// Register 將全部指標註冊到 registry
func (c *Collector) Register(registry prometheus.Registerer) error {
	for _, col := range c.collectors() {
		if err := registry.Register(col); err != nil {
			return err
		}
	}
	return nil
}

// Describe 實作 prometheus.Collector
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, col := range c.collectors() {
		col.Describe(ch)
	}
}

// Collect 實作 prometheus.Collector
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	for _, col := range c.collectors() {
		col.Collect(ch)
	}
}

func (c *Collector) RecordOperation(op, outcome string, duration time.Duration) {
	c.operations.WithLabelValues(op, outcome).Inc()
	c.opLatency.WithLabelValues(op).Observe(duration.Seconds())
}

func (c *Collector) RecordLockWait(duration time.Duration) {
	c.lockWait.Observe(duration.Seconds())
}

func (c *Collector) RecordRetry(op string) {
	c.retries.WithLabelValues(op).Inc()
}

func (c *Collector) RecordCircuitState(name string, state metrics.CircuitState) {
	c.circuitState.WithLabelValues(name).Set(float64(state))
	if state == metrics.CircuitOpen {
		c.circuitOpens.WithLabelValues(name).Inc()
	}
}

func (c *Collector) RecordHTTPRequest(method, endpoint string, status int, duration time.Duration) {
	c.httpRequests.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
	c.httpLatency.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

var (
	_ metrics.Collector    = (*Collector)(nil)
	_ prometheus.Collector = (*Collector)(nil)
)
