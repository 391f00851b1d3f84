package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const namespace = "advent"

// Metrics owns a private registry so tests and multiple app instances never
// collide on the global one. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	httpDuration     *prometheus.HistogramVec
	purchases        *prometheus.CounterVec
	purchaseRevenue  *prometheus.CounterVec
	tips             *prometheus.CounterVec
	rateLimited      *prometheus.CounterVec
	cleanupDeleted   prometheus.Counter
	cleanupFailed    prometheus.Counter
	databasePingUsec prometheus.Gauge
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Latency of HTTP requests by route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		purchases: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "purchases_total",
			Help:      "Purchase attempts by scope and outcome.",
		}, []string{"scope", "result"}),
		purchaseRevenue: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "purchase_revenue_minor_units_total",
			Help:      "Sum of completed purchase amounts in minor currency units.",
		}, []string{"currency"}),
		tips: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tips_total",
			Help:      "Tips recorded by currency.",
		}, []string{"currency"}),
		rateLimited: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter.",
		}, []string{"scope"}),
		cleanupDeleted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cleanup_objects_deleted_total",
			Help:      "Objects removed from storage by the cleanup job.",
		}),
		cleanupFailed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cleanup_objects_failed_total",
			Help:      "Object deletions that failed and stayed queued.",
		}),
		databasePingUsec: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "database_ping_microsec",
			Help:      "Latency of the last database ping in microseconds.",
		}),
	}
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.httpDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())
}

// ObservePurchase counts one purchase attempt. scope is "calendar" or "day".
func (m *Metrics) ObservePurchase(scope, result, currency string, amountCents int64) {
	if m == nil {
		return
	}
	m.purchases.WithLabelValues(scope, result).Inc()
	if result == "completed" && amountCents > 0 {
		m.purchaseRevenue.WithLabelValues(currency).Add(float64(amountCents))
	}
}

func (m *Metrics) ObserveTip(currency string) {
	if m == nil {
		return
	}
	m.tips.WithLabelValues(currency).Inc()
}

func (m *Metrics) ObserveRateLimited(scope string) {
	if m == nil {
		return
	}
	m.rateLimited.WithLabelValues(scope).Inc()
}

func (m *Metrics) ObserveCleanup(deleted, failed int) {
	if m == nil {
		return
	}
	m.cleanupDeleted.Add(float64(deleted))
	m.cleanupFailed.Add(float64(failed))
}

type Pinger interface {
	Ping(ctx context.Context) error
}

// RunDatabaseProbe samples database ping latency until ctx is done.
func (m *Metrics) RunDatabaseProbe(ctx context.Context, db Pinger, interval time.Duration, log *zap.Logger) {
	if m == nil || db == nil {
		return
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		m.probeOnce(ctx, db, log)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (m *Metrics) probeOnce(ctx context.Context, db Pinger, log *zap.Logger) {
	started := time.Now()
	if err := db.Ping(ctx); err != nil {
		if ctx.Err() == nil {
			log.Warn("database ping failed", zap.Error(err))
		}
		return
	}
	m.databasePingUsec.Set(float64(time.Since(started).Microseconds()))
}
