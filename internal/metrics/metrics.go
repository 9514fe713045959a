package metrics

import (
	"errors"
	"net/http"
	"time"

	"sensorita-alert/internal/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Sensor categories used as the "category" label
const (
	CategoryNew     = "new_error"
	CategoryOld     = "old_error"
	CategoryFixed   = "fixed_error"
	CategoryWorking = "working"
)

// Metrics per-cycle gauges and counters on a private registry
type Metrics struct {
	registry *prometheus.Registry

	sensors        *prometheus.GaugeVec
	cycles         prometheus.Counter
	notifications  prometheus.Counter
	cycleDuration  prometheus.Histogram
	lastCycleEpoch prometheus.Gauge
}

// New registers the collectors on a fresh registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		sensors: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "sensorita_alert_sensors",
			Help: "Sensors per category in the last completed cycle",
		}, []string{"category"}),
		cycles: factory.NewCounter(prometheus.CounterOpts{
			Name: "sensorita_alert_cycles_total",
			Help: "Completed poll cycles",
		}),
		notifications: factory.NewCounter(prometheus.CounterOpts{
			Name: "sensorita_alert_notifications_total",
			Help: "Alert mails delivered",
		}),
		cycleDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "sensorita_alert_cycle_duration_seconds",
			Help:    "Wall time of one poll cycle",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 8),
		}),
		lastCycleEpoch: factory.NewGauge(prometheus.GaugeOpts{
			Name: "sensorita_alert_last_cycle_timestamp_seconds",
			Help: "Unix time of the last completed cycle",
		}),
	}
}

// ObserveCycle records the outcome of one completed cycle.
func (m *Metrics) ObserveCycle(rec models.Reconciliation, notified bool, took time.Duration, at time.Time) {
	m.sensors.WithLabelValues(CategoryNew).Set(float64(len(rec.NewErrors)))
	m.sensors.WithLabelValues(CategoryOld).Set(float64(len(rec.OldErrors)))
	m.sensors.WithLabelValues(CategoryFixed).Set(float64(len(rec.FixedErrors)))
	m.sensors.WithLabelValues(CategoryWorking).Set(float64(len(rec.OnTime)))
	m.cycles.Inc()
	if notified {
		m.notifications.Inc()
	}
	m.cycleDuration.Observe(took.Seconds())
	m.lastCycleEpoch.Set(float64(at.Unix()))
}

// Registry exposes the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve runs a /metrics listener on addr until the server is shut down.
func (m *Metrics) Serve(addr string, logger *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("Metrics listener started", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics listener failed", zap.Error(err))
		}
	}()

	return srv
}
