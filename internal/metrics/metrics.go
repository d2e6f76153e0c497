// Package metrics exposes Prometheus instrumentation for the daemon: task
// run outcomes, extraction attempts and the scheduler's live handle count,
// served on an optional HTTP listener.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pagewatch/pagewatch/internal/logger"
)

// Metrics holds the daemon's Prometheus collectors.
type Metrics struct {
	registry *prometheus.Registry

	runsTotal       *prometheus.CounterVec
	attemptsTotal   prometheus.Counter
	activeHandles   prometheus.Gauge
	runDuration     prometheus.Histogram
	heartbeatUnixTS prometheus.Gauge
}

// New creates and registers the daemon collectors on a fresh registry.
func New(namespace string) *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_total",
				Help:      "Total number of task executions by outcome",
			},
			[]string{"outcome"},
		),
		attemptsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "extraction_attempts_total",
				Help:      "Total number of extraction attempts",
			},
		),
		activeHandles: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_handles",
				Help:      "Number of live scheduled task handles",
			},
		),
		runDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "run_duration_seconds",
				Help:      "Duration of task executions",
				Buckets:   []float64{.5, 1, 5, 10, 30, 60, 120, 300},
			},
		),
		heartbeatUnixTS: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "heartbeat_timestamp_seconds",
				Help:      "Unix time of the scheduler's last heartbeat",
			},
		),
	}

	reg.MustRegister(
		m.runsTotal,
		m.attemptsTotal,
		m.activeHandles,
		m.runDuration,
		m.heartbeatUnixTS,
	)

	return m
}

// RecordRun counts one terminal task outcome and its duration.
func (m *Metrics) RecordRun(outcome string, duration time.Duration) {
	m.runsTotal.WithLabelValues(outcome).Inc()
	m.runDuration.Observe(duration.Seconds())
}

// RecordAttempt counts one extraction attempt.
func (m *Metrics) RecordAttempt() {
	m.attemptsTotal.Inc()
}

// SetActiveHandles tracks the scheduler's live handle count.
func (m *Metrics) SetActiveHandles(n int) {
	m.activeHandles.Set(float64(n))
}

// Heartbeat records the time of the scheduler's latest heartbeat tick.
func (m *Metrics) Heartbeat(at time.Time) {
	m.heartbeatUnixTS.Set(float64(at.Unix()))
}

// Server serves the registry over HTTP on /metrics.
type Server struct {
	srv    *http.Server
	logger *logger.Logger
}

// NewServer creates an HTTP server for the metrics endpoint.
func NewServer(addr string, m *Metrics, log *logger.Logger) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))

	return &Server{
		srv:    &http.Server{Addr: addr, Handler: mux},
		logger: log,
	}
}

// Start begins serving in a background goroutine.
func (s *Server) Start() {
	go func() {
		s.logger.Info("metrics listener started",
			logger.Field{Key: "addr", Value: s.srv.Addr})
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("metrics listener failed", err)
		}
	}()
}

// Stop shuts the listener down.
func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
