package service

import (
	"net/http"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/studybot/internal/models"
)

const metricsNamespace = "studybot"

// MetricsService owns the Prometheus registry and keeps running totals for the
// JSON snapshot endpoint. A nil *MetricsService is a valid no-op recorder.
type MetricsService struct {
	registry *prometheus.Registry
	handler  http.Handler

	requestDuration *prometheus.HistogramVec
	cacheLookups    *prometheus.CounterVec
	cacheLatency    *prometheus.HistogramVec
	rsvpOutcomes    *prometheus.CounterVec
	upcomingEvents  prometheus.Gauge
	notices         *prometheus.CounterVec

	requests        atomic.Uint64
	requestNanos    atomic.Uint64
	cacheHits       atomic.Uint64
	cacheMisses     atomic.Uint64
	rsvpJoined      atomic.Uint64
	rsvpLeft        atomic.Uint64
	rsvpRejected    atomic.Uint64
	noticesSent     atomic.Uint64
	noticesFailed   atomic.Uint64
	upcomingCurrent atomic.Int64
}

// NewMetricsService registers the collectors on a private registry.
func NewMetricsService() *MetricsService {
	m := &MetricsService{registry: prometheus.NewRegistry()}

	m.requestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route and status.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	m.cacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "listing_cache_lookups_total",
		Help:      "Listing cache lookups by result.",
	}, []string{"result"})

	m.cacheLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Name:      "listing_cache_op_seconds",
		Help:      "Listing cache round trip latency by operation.",
		Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1},
	}, []string{"op"})

	m.rsvpOutcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "rsvp_outcomes_total",
		Help:      "RSVP and un-RSVP results by action and status.",
	}, []string{"action", "status"})

	m.upcomingEvents = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "upcoming_events",
		Help:      "Stored events that have not started yet, as of the last sweep.",
	})

	m.notices = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "notices_total",
		Help:      "Direct-message notices by kind and delivery result.",
	}, []string{"kind", "result"})

	m.registry.MustRegister(
		m.requestDuration,
		m.cacheLookups,
		m.cacheLatency,
		m.rsvpOutcomes,
		m.upcomingEvents,
		m.notices,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m.handler = promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return m
}

// Handler exposes the Prometheus scrape endpoint.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records one served request.
func (m *MetricsService) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(duration.Seconds())
	m.requests.Add(1)
	m.requestNanos.Add(uint64(duration.Nanoseconds()))
}

// RecordCacheLookup counts a listing cache read. failed marks transport errors,
// which are also counted as misses.
func (m *MetricsService) RecordCacheLookup(hit, failed bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.WithLabelValues("get").Observe(duration.Seconds())
	switch {
	case hit:
		m.cacheLookups.WithLabelValues("hit").Inc()
		m.cacheHits.Add(1)
	case failed:
		m.cacheLookups.WithLabelValues("error").Inc()
		m.cacheMisses.Add(1)
	default:
		m.cacheLookups.WithLabelValues("miss").Inc()
		m.cacheMisses.Add(1)
	}
}

// ObserveCacheOp times a listing cache write or invalidation.
func (m *MetricsService) ObserveCacheOp(op string, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.WithLabelValues(op).Observe(duration.Seconds())
}

// RecordRSVP counts an attendance transition result.
func (m *MetricsService) RecordRSVP(action string, status models.RSVPStatus) {
	if m == nil {
		return
	}
	m.rsvpOutcomes.WithLabelValues(action, string(status)).Inc()
	switch status {
	case models.RSVPJoined:
		m.rsvpJoined.Add(1)
	case models.RSVPLeft:
		m.rsvpLeft.Add(1)
	case models.RSVPFull, models.RSVPStarted, models.RSVPFailed:
		m.rsvpRejected.Add(1)
	}
}

// SetUpcomingEvents publishes the current count of not-yet-started events.
func (m *MetricsService) SetUpcomingEvents(n int) {
	if m == nil {
		return
	}
	m.upcomingEvents.Set(float64(n))
	m.upcomingCurrent.Store(int64(n))
}

// RecordNotification counts a delivered or failed notice.
func (m *MetricsService) RecordNotification(kind string, delivered bool) {
	if m == nil {
		return
	}
	if delivered {
		m.notices.WithLabelValues(kind, "delivered").Inc()
		m.noticesSent.Add(1)
		return
	}
	m.notices.WithLabelValues(kind, "failed").Inc()
	m.noticesFailed.Add(1)
}

// Snapshot returns the running totals for the JSON metrics endpoint.
func (m *MetricsService) Snapshot() models.SystemMetrics {
	if m == nil {
		return models.SystemMetrics{GeneratedAt: time.Now().UTC()}
	}
	snap := models.SystemMetrics{
		RequestsTotal:      m.requests.Load(),
		ListingCacheHits:   m.cacheHits.Load(),
		ListingCacheMisses: m.cacheMisses.Load(),
		RSVPJoined:         m.rsvpJoined.Load(),
		RSVPLeft:           m.rsvpLeft.Load(),
		RSVPRejected:       m.rsvpRejected.Load(),
		NoticesDelivered:   m.noticesSent.Load(),
		NoticesFailed:      m.noticesFailed.Load(),
		UpcomingEvents:     m.upcomingCurrent.Load(),
		Goroutines:         runtime.NumGoroutine(),
		GeneratedAt:        time.Now().UTC(),
	}
	if snap.RequestsTotal > 0 {
		snap.AverageRequestDurationMs = float64(m.requestNanos.Load()) / float64(snap.RequestsTotal) / float64(time.Millisecond)
	}
	if lookups := snap.ListingCacheHits + snap.ListingCacheMisses; lookups > 0 {
		snap.ListingCacheHitRatio = float64(snap.ListingCacheHits) / float64(lookups)
	}
	return snap
}
