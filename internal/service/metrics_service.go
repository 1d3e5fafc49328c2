package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the scheduler.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	dbQueryDuration *prometheus.HistogramVec
	slotCacheHits   prometheus.Counter
	slotCacheMisses prometheus.Counter
	bookingsTotal   *prometheus.CounterVec
	cancellations   prometheus.Counter
	reschedules     prometheus.Counter
}

// NewMetricsService registers the core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	dbQueryDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "db_query_duration_seconds",
		Help:    "Duration of database queries",
		Buckets: prometheus.DefBuckets,
	}, []string{"query"})

	slotCacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "slot_cache_hits_total",
		Help: "Total slot list cache hits",
	})

	slotCacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "slot_cache_misses_total",
		Help: "Total slot list cache misses",
	})

	bookingsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "consultations_booked_total",
		Help: "Total consultations booked, by delivery type",
	}, []string{"type"})

	cancellations := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "consultations_cancelled_total",
		Help: "Total consultations cancelled",
	})

	reschedules := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "consultations_rescheduled_total",
		Help: "Total consultations rescheduled",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, dbQueryDuration, slotCacheHits, slotCacheMisses, bookingsTotal, cancellations, reschedules, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		dbQueryDuration: dbQueryDuration,
		slotCacheHits:   slotCacheHits,
		slotCacheMisses: slotCacheMisses,
		bookingsTotal:   bookingsTotal,
		cancellations:   cancellations,
		reschedules:     reschedules,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records per-request latency and volume.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// ObserveDBQuery records database query timing.
func (m *MetricsService) ObserveDBQuery(label string, duration time.Duration) {
	if m == nil {
		return
	}
	m.dbQueryDuration.WithLabelValues(label).Observe(duration.Seconds())
}

// RecordSlotCacheLookup counts a slot cache hit or miss.
func (m *MetricsService) RecordSlotCacheLookup(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.slotCacheHits.Inc()
	} else {
		m.slotCacheMisses.Inc()
	}
}

// RecordBooking counts a successful booking by delivery type.
func (m *MetricsService) RecordBooking(consultationType string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(consultationType).Inc()
}

// RecordCancellation counts a successful cancellation.
func (m *MetricsService) RecordCancellation() {
	if m == nil {
		return
	}
	m.cancellations.Inc()
}

// RecordReschedule counts a successful reschedule.
func (m *MetricsService) RecordReschedule() {
	if m == nil {
		return
	}
	m.reschedules.Inc()
}
