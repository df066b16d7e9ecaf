package telemetry

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics provides Prometheus metrics for the Replicore core.
type Metrics struct {
	config MetricsConfig

	// Preflight metrics
	preflightsStarted   *prometheus.CounterVec
	preflightsCompleted *prometheus.CounterVec
	preflightDuration   *prometheus.HistogramVec

	// Failover metrics
	failoversStarted   *prometheus.CounterVec
	failoversCompleted *prometheus.CounterVec
	failoverDuration   *prometheus.HistogramVec

	// Job queue metrics
	jobPolls       *prometheus.CounterVec
	pollErrors     *prometheus.CounterVec
	jobSubmissions *prometheus.CounterVec

	// Diagnostics metrics
	diagnosticsEvaluated prometheus.Counter
	diagnosesRaised      *prometheus.CounterVec

	// Guardrail metrics
	guardrailDenials *prometheus.CounterVec

	// Trust probe metrics
	trustProbes *prometheus.CounterVec

	// Error metrics
	errorsByClass *prometheus.CounterVec
	errorsByCode  *prometheus.CounterVec

	// System metrics
	activeFailovers prometheus.Gauge
	activeTestEvents prometheus.Gauge

	registry *prometheus.Registry
}

// NewMetrics creates a new metrics collector with the given configuration.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	if !cfg.Enabled {
		// Return a no-op metrics instance
		return &Metrics{config: cfg}, nil
	}

	namespace := cfg.Namespace
	buckets := cfg.DefaultHistogramBuckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}

	// Create a new registry
	registry := prometheus.NewRegistry()

	m := &Metrics{
		config:   cfg,
		registry: registry,

		preflightsStarted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "preflights_started_total",
				Help:      "Total number of preflight checks started",
			},
			[]string{"group_id"},
		),
		preflightsCompleted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "preflights_completed_total",
				Help:      "Total number of preflight checks completed",
			},
			[]string{"outcome"},
		),
		preflightDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "preflight_duration_seconds",
				Help:      "Duration of preflight checks in seconds",
				Buckets:   buckets,
			},
			[]string{"outcome"},
		),

		failoversStarted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "failovers_started_total",
				Help:      "Total number of failover jobs submitted",
			},
			[]string{"failover_type"},
		),
		failoversCompleted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "failovers_completed_total",
				Help:      "Total number of failovers completed",
			},
			[]string{"failover_type", "status"},
		),
		failoverDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "failover_duration_seconds",
				Help:      "Duration of failover execution in seconds",
				Buckets:   buckets,
			},
			[]string{"failover_type", "status"},
		),

		jobPolls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "job_polls_total",
				Help:      "Total number of job queue polls",
			},
			[]string{"job_type"},
		),
		pollErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "job_poll_errors_total",
				Help:      "Total number of failed job queue polls",
			},
			[]string{"job_type"},
		),
		jobSubmissions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "job_submissions_total",
				Help:      "Total number of job submissions",
			},
			[]string{"job_type", "status"},
		),

		diagnosticsEvaluated: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "diagnostics_evaluations_total",
				Help:      "Total number of SLA diagnostics evaluations",
			},
		),
		diagnosesRaised: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "diagnoses_raised_total",
				Help:      "Total number of diagnoses raised by rule code",
			},
			[]string{"code", "severity"},
		),

		guardrailDenials: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "guardrail_denials_total",
				Help:      "Total number of failover requests denied by guardrail policy",
			},
			[]string{"policy"},
		),

		trustProbes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "trust_probes_total",
				Help:      "Total number of appliance trust probes",
			},
			[]string{"result"},
		),

		errorsByClass: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_by_class_total",
				Help:      "Total number of errors by error class",
			},
			[]string{"class"},
		),
		errorsByCode: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_by_code_total",
				Help:      "Total number of errors by error code",
			},
			[]string{"code"},
		),

		activeFailovers: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_failovers",
				Help:      "Current number of in-flight failover jobs",
			},
		),
		activeTestEvents: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_test_failovers",
				Help:      "Current number of test failovers awaiting cleanup",
			},
		),
	}

	// Register all metrics
	registry.MustRegister(
		m.preflightsStarted,
		m.preflightsCompleted,
		m.preflightDuration,
		m.failoversStarted,
		m.failoversCompleted,
		m.failoverDuration,
		m.jobPolls,
		m.pollErrors,
		m.jobSubmissions,
		m.diagnosticsEvaluated,
		m.diagnosesRaised,
		m.guardrailDenials,
		m.trustProbes,
		m.errorsByClass,
		m.errorsByCode,
		m.activeFailovers,
		m.activeTestEvents,
	)

	return m, nil
}

// Preflight Metrics

// RecordPreflightStarted increments the counter for started preflights.
func (m *Metrics) RecordPreflightStarted(groupID string) {
	if m.preflightsStarted == nil {
		return
	}
	m.preflightsStarted.WithLabelValues(groupID).Inc()
}

// RecordPreflightCompleted records a completed preflight with outcome and duration.
// Outcome is one of: ready, blocked, timeout, error.
func (m *Metrics) RecordPreflightCompleted(outcome string, duration time.Duration) {
	if m.preflightsCompleted == nil {
		return
	}
	m.preflightsCompleted.WithLabelValues(outcome).Inc()
	m.preflightDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

// Failover Metrics

// RecordFailoverStarted increments the counter for submitted failover jobs.
func (m *Metrics) RecordFailoverStarted(failoverType string) {
	if m.failoversStarted == nil {
		return
	}
	m.failoversStarted.WithLabelValues(failoverType).Inc()
	m.activeFailovers.Inc()
}

// RecordFailoverCompleted records a completed failover with its status and duration.
func (m *Metrics) RecordFailoverCompleted(failoverType, status string, duration time.Duration) {
	if m.failoversCompleted == nil {
		return
	}
	m.failoversCompleted.WithLabelValues(failoverType, status).Inc()
	m.failoverDuration.WithLabelValues(failoverType, status).Observe(duration.Seconds())
	m.activeFailovers.Dec()
}

// Job Queue Metrics

// RecordJobPoll records a poll against the job queue.
func (m *Metrics) RecordJobPoll(jobType string) {
	if m.jobPolls == nil {
		return
	}
	m.jobPolls.WithLabelValues(jobType).Inc()
}

// RecordPollError records a failed poll against the job queue.
func (m *Metrics) RecordPollError(jobType string) {
	if m.pollErrors == nil {
		return
	}
	m.pollErrors.WithLabelValues(jobType).Inc()
}

// RecordJobSubmission records a job submission attempt.
func (m *Metrics) RecordJobSubmission(jobType, status string) {
	if m.jobSubmissions == nil {
		return
	}
	m.jobSubmissions.WithLabelValues(jobType, status).Inc()
}

// Diagnostics Metrics

// RecordDiagnosticsEvaluation records one run of the SLA diagnostics engine.
func (m *Metrics) RecordDiagnosticsEvaluation() {
	if m.diagnosticsEvaluated == nil {
		return
	}
	m.diagnosticsEvaluated.Inc()
}

// RecordDiagnosisRaised records a raised diagnosis by rule code and severity.
func (m *Metrics) RecordDiagnosisRaised(code, severity string) {
	if m.diagnosesRaised == nil {
		return
	}
	m.diagnosesRaised.WithLabelValues(code, severity).Inc()
}

// Guardrail Metrics

// RecordGuardrailDenial records a failover request denied by policy.
func (m *Metrics) RecordGuardrailDenial(policy string) {
	if m.guardrailDenials == nil {
		return
	}
	m.guardrailDenials.WithLabelValues(policy).Inc()
}

// Trust Probe Metrics

// RecordTrustProbe records the outcome of an appliance trust probe.
func (m *Metrics) RecordTrustProbe(result string) {
	if m.trustProbes == nil {
		return
	}
	m.trustProbes.WithLabelValues(result).Inc()
}

// Error Metrics

// RecordError records an error by class and optionally by code.
func (m *Metrics) RecordError(errorClass, errorCode string) {
	if m.errorsByClass == nil {
		return
	}
	m.errorsByClass.WithLabelValues(errorClass).Inc()
	if errorCode != "" && m.errorsByCode != nil {
		m.errorsByCode.WithLabelValues(errorCode).Inc()
	}
}

// System Metrics

// SetActiveTestEvents sets the current number of test failovers awaiting cleanup.
func (m *Metrics) SetActiveTestEvents(count float64) {
	if m.activeTestEvents == nil {
		return
	}
	m.activeTestEvents.Set(count)
}

// Timer provides a convenient way to time operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the elapsed time since the timer was created.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// ObserveDuration is a helper to time an operation and record it.
func (t *Timer) ObserveDuration(observer prometheus.Observer) {
	observer.Observe(t.Duration().Seconds())
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m.registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// StartMetricsServer starts an HTTP server to expose metrics.
func (m *Metrics) StartMetricsServer() error {
	if !m.config.Enabled {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle(m.config.Path, m.Handler())

	server := &http.Server{
		Addr:              m.config.ListenAddress,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			// Log error but don't fail the application
			fmt.Printf("metrics server error: %v\n", err)
		}
	}()

	return nil
}
