package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ProviderMetrics exposes counters/histograms for upstream provider traffic.
type ProviderMetrics struct {
	upstreamTotal   *prometheus.CounterVec
	upstreamLatency *prometheus.HistogramVec
	authTotal       *prometheus.CounterVec
	cacheLookups    *prometheus.CounterVec
	resolutions     *prometheus.CounterVec
}

func NewProviderMetrics(reg prometheus.Registerer) *ProviderMetrics {
	m := &ProviderMetrics{
		upstreamTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "telemedicine",
			Subsystem: "upstream",
			Name:      "requests_total",
			Help:      "Total upstream provider requests",
		}, []string{"provider", "operation", "status"}),
		upstreamLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "telemedicine",
			Subsystem: "upstream",
			Name:      "request_duration_seconds",
			Help:      "Latency of upstream provider requests",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider", "operation"}),
		authTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "telemedicine",
			Subsystem: "upstream",
			Name:      "authentications_total",
			Help:      "Token acquisitions per provider session",
		}, []string{"provider", "session", "result"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "telemedicine",
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Cache lookups by store and result (hit, miss, bypass)",
		}, []string{"store", "result"}),
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "telemedicine",
			Subsystem: "manager",
			Name:      "resolutions_total",
			Help:      "Provider resolutions by slug",
		}, []string{"slug", "result"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.upstreamTotal, m.upstreamLatency, m.authTotal, m.cacheLookups, m.resolutions)
	return m
}

// ObserveUpstream records one upstream call. status 0 means the request never got a response.
func (m *ProviderMetrics) ObserveUpstream(provider, operation string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	m.upstreamTotal.WithLabelValues(provider, operation, label).Inc()
	m.upstreamLatency.WithLabelValues(provider, operation).Observe(elapsed.Seconds())
}

func (m *ProviderMetrics) ObserveAuthentication(provider, session string, err error) {
	if m == nil {
		return
	}
	m.authTotal.WithLabelValues(provider, session, resultLabel(err)).Inc()
}

func (m *ProviderMetrics) ObserveCacheLookup(store, result string) {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues(store, result).Inc()
}

func (m *ProviderMetrics) ObserveResolution(slug string, err error) {
	if m == nil {
		return
	}
	m.resolutions.WithLabelValues(slug, resultLabel(err)).Inc()
}

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
