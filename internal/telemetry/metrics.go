package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/cimillas/furniture-backoffice/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "furniture"

// Metrics holds the HTTP and order lifecycle collectors. It satisfies the
// services' Recorder interface.
type Metrics struct {
	Requests  *prometheus.CounterVec
	LatencyMS *prometheus.HistogramVec

	ordersCreated    *prometheus.CounterVec
	orderTransitions *prometheus.CounterVec
	surveysCreated   prometheus.Counter
	gatherer         prometheus.Gatherer
}

// NewMetrics registers all collectors on reg. A nil reg uses a fresh registry.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"route", "method", "status"}),
		LatencyMS: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "http_request_duration_ms",
			Help:      "HTTP request latency in milliseconds.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"route"}),
		ordersCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orders",
			Name:      "created_total",
			Help:      "Orders created, by initial state.",
		}, []string{"state"}),
		orderTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orders",
			Name:      "transitions_total",
			Help:      "Order state transitions.",
		}, []string{"from", "to"}),
		surveysCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "surveys",
			Name:      "created_total",
			Help:      "Satisfaction surveys created.",
		}),
		gatherer: reg,
	}
	reg.MustRegister(m.Requests, m.LatencyMS, m.ordersCreated, m.orderTransitions, m.surveysCreated)
	return m
}

func (m *Metrics) OrderCreated(state domain.State) {
	m.ordersCreated.WithLabelValues(string(state)).Inc()
}

func (m *Metrics) OrderTransitioned(from, to domain.State) {
	m.orderTransitions.WithLabelValues(string(from), string(to)).Inc()
}

func (m *Metrics) SurveyCreated() {
	m.surveysCreated.Inc()
}

// ObserveRequest records one served request.
func (m *Metrics) ObserveRequest(route, method string, status int, elapsed time.Duration) {
	m.Requests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.LatencyMS.WithLabelValues(route).Observe(float64(elapsed.Microseconds()) / 1000)
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
