package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// GatewayMetrics counts api calls and credential recoveries.
type GatewayMetrics struct {
	requests  *prometheus.CounterVec
	refreshes *prometheus.CounterVec
	logouts   prometheus.Counter
	latency   *prometheus.HistogramVec
}

func NewGatewayMetrics(reg prometheus.Registerer) *GatewayMetrics {
	m := &GatewayMetrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flexifisio",
			Subsystem: "gateway",
			Name:      "requests_total",
			Help:      "API requests issued, by method and status class",
		}, []string{"method", "status"}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flexifisio",
			Subsystem: "gateway",
			Name:      "refresh_total",
			Help:      "Credential refresh attempts after a 401",
		}, []string{"outcome"}),
		logouts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "flexifisio",
			Subsystem: "gateway",
			Name:      "forced_logout_total",
			Help:      "Logouts forced by a failed refresh",
		}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "flexifisio",
			Subsystem: "gateway",
			Name:      "request_seconds",
			Help:      "Latency of a single API round trip",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.requests, m.refreshes, m.logouts, m.latency)
	return m
}

func (m *GatewayMetrics) ObserveRequest(method string, status int, seconds float64) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, statusClass(status)).Inc()
	m.latency.WithLabelValues(method).Observe(seconds)
}

func (m *GatewayMetrics) ObserveRefresh(ok bool) {
	if m == nil {
		return
	}
	outcome := "failure"
	if ok {
		outcome = "success"
	}
	m.refreshes.WithLabelValues(outcome).Inc()
}

func (m *GatewayMetrics) ObserveLogout() {
	if m == nil {
		return
	}
	m.logouts.Inc()
}

// 2xx, 4xx... ; 0 means the request never got a response
func statusClass(code int) string {
	if code <= 0 {
		return "error"
	}
	return strconv.Itoa(code/100) + "xx"
}
