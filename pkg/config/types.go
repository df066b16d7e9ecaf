package config

import (
	"time"

	"github.com/replicore/replicore/pkg/telemetry"
)

// Settings is the full Replicore configuration.
type Settings struct {
	// JobQueue configures the connection to the async job executor.
	JobQueue JobQueueSettings `json:"job_queue" validate:"required"`

	// Orchestrator tunes poll intervals and timeouts for long-running
	// operations.
	Orchestrator OrchestratorSettings `json:"orchestrator"`

	// Store configures the local SQLite database.
	Store StoreSettings `json:"store"`

	// Guardrails configures the pre-submission policy gate.
	Guardrails GuardrailSettings `json:"guardrails"`

	// Telemetry configures logging, metrics, and tracing.
	Telemetry TelemetrySettings `json:"telemetry"`
}

// JobQueueSettings configures the job queue client.
type JobQueueSettings struct {
	// Endpoint is the base URL of the job queue API.
	Endpoint string `json:"endpoint" validate:"required,url"`

	// Token is the bearer token sent with every request.
	Token string `json:"token,omitempty"`

	// RequestTimeoutSeconds bounds each HTTP request, not the job itself.
	RequestTimeoutSeconds int `json:"request_timeout_seconds" validate:"min=1,max=300"`
}

// OrchestratorSettings tunes the failover orchestration loops.
type OrchestratorSettings struct {
	// PreflightPollIntervalSeconds is the preflight job poll cadence.
	PreflightPollIntervalSeconds int `json:"preflight_poll_interval_seconds" validate:"min=1"`

	// PreflightTimeoutSeconds bounds a preflight evaluation end to end.
	PreflightTimeoutSeconds int `json:"preflight_timeout_seconds" validate:"min=10"`

	// ExecutePollIntervalSeconds is the failover job poll cadence.
	ExecutePollIntervalSeconds int `json:"execute_poll_interval_seconds" validate:"min=1"`

	// ExecuteTimeoutSeconds bounds a failover execution end to end.
	ExecuteTimeoutSeconds int `json:"execute_timeout_seconds" validate:"min=60"`

	// DecisionPollIntervalSeconds is the commit/rollback job poll cadence.
	DecisionPollIntervalSeconds int `json:"decision_poll_interval_seconds" validate:"min=1"`

	// DecisionTimeoutSeconds bounds a commit or rollback end to end.
	DecisionTimeoutSeconds int `json:"decision_timeout_seconds" validate:"min=60"`

	// DefaultTestDurationMinutes is used when a test failover does not
	// specify its own duration.
	DefaultTestDurationMinutes int `json:"default_test_duration_minutes" validate:"min=15,max=480"`
}

// StoreSettings configures local persistence.
type StoreSettings struct {
	// Path is the SQLite database file path.
	Path string `json:"path" validate:"required"`
}

// GuardrailSettings configures the policy gate.
type GuardrailSettings struct {
	// Enabled toggles guardrail evaluation before submission.
	Enabled bool `json:"enabled"`

	// PolicyDirs lists directories of operator .rego policies.
	PolicyDirs []string `json:"policy_dirs,omitempty"`

	// Watch hot-reloads operator policies on file change.
	Watch bool `json:"watch"`
}

// TelemetrySettings is the file-facing subset of the telemetry
// configuration.
type TelemetrySettings struct {
	// Environment is the deployment environment (development, staging,
	// production).
	Environment string `json:"environment" validate:"oneof=development staging production"`

	// LogLevel sets the minimum log level.
	LogLevel string `json:"log_level" validate:"oneof=trace debug info warn error fatal"`

	// LogFormat is console or json.
	LogFormat string `json:"log_format" validate:"oneof=console json"`

	// MetricsEnabled toggles the metrics HTTP endpoint.
	MetricsEnabled bool `json:"metrics_enabled"`

	// MetricsListenAddress is the metrics endpoint bind address.
	MetricsListenAddress string `json:"metrics_listen_address,omitempty"`

	// TracingEnabled toggles trace export.
	TracingEnabled bool `json:"tracing_enabled"`

	// TracingExporter is otlp, stdout, or none.
	TracingExporter string `json:"tracing_exporter" validate:"oneof=otlp stdout none"`

	// TracingEndpoint is the OTLP collector endpoint.
	TracingEndpoint string `json:"tracing_endpoint,omitempty"`
}

// DefaultSettings returns the configuration used when the file omits a
// field.
func DefaultSettings() *Settings {
	return &Settings{
		JobQueue: JobQueueSettings{
			RequestTimeoutSeconds: 30,
		},
		Orchestrator: OrchestratorSettings{
			PreflightPollIntervalSeconds: 1,
			PreflightTimeoutSeconds:      180,
			ExecutePollIntervalSeconds:   2,
			ExecuteTimeoutSeconds:        7200,
			DecisionPollIntervalSeconds:  2,
			DecisionTimeoutSeconds:       1800,
			DefaultTestDurationMinutes:   60,
		},
		Store: StoreSettings{
			Path: "replicore.db",
		},
		Guardrails: GuardrailSettings{
			Enabled: true,
			Watch:   true,
		},
		Telemetry: TelemetrySettings{
			Environment:          "development",
			LogLevel:             "info",
			LogFormat:            "console",
			MetricsEnabled:       true,
			MetricsListenAddress: ":9090",
			TracingEnabled:       true,
			TracingExporter:      "stdout",
		},
	}
}

// PreflightPollInterval returns the preflight poll cadence as a duration.
func (o OrchestratorSettings) PreflightPollInterval() time.Duration {
	return time.Duration(o.PreflightPollIntervalSeconds) * time.Second
}

// PreflightTimeout returns the preflight timeout as a duration.
func (o OrchestratorSettings) PreflightTimeout() time.Duration {
	return time.Duration(o.PreflightTimeoutSeconds) * time.Second
}

// ExecutePollInterval returns the failover poll cadence as a duration.
func (o OrchestratorSettings) ExecutePollInterval() time.Duration {
	return time.Duration(o.ExecutePollIntervalSeconds) * time.Second
}

// ExecuteTimeout returns the failover timeout as a duration.
func (o OrchestratorSettings) ExecuteTimeout() time.Duration {
	return time.Duration(o.ExecuteTimeoutSeconds) * time.Second
}

// DecisionPollInterval returns the decision poll cadence as a duration.
func (o OrchestratorSettings) DecisionPollInterval() time.Duration {
	return time.Duration(o.DecisionPollIntervalSeconds) * time.Second
}

// DecisionTimeout returns the decision timeout as a duration.
func (o OrchestratorSettings) DecisionTimeout() time.Duration {
	return time.Duration(o.DecisionTimeoutSeconds) * time.Second
}

// RequestTimeout returns the job queue HTTP timeout as a duration.
func (j JobQueueSettings) RequestTimeout() time.Duration {
	return time.Duration(j.RequestTimeoutSeconds) * time.Second
}

// TelemetryConfig maps the file-facing telemetry settings onto the full
// telemetry configuration.
func (s *Settings) TelemetryConfig(version string) *telemetry.Config {
	var cfg *telemetry.Config
	if s.Telemetry.Environment == "production" {
		cfg = telemetry.ProductionConfig()
	} else {
		cfg = telemetry.DefaultConfig()
	}

	cfg.ServiceVersion = version
	cfg.Environment = s.Telemetry.Environment
	cfg.Logging.Level = s.Telemetry.LogLevel
	cfg.Logging.Format = s.Telemetry.LogFormat
	cfg.Metrics.Enabled = s.Telemetry.MetricsEnabled
	if s.Telemetry.MetricsListenAddress != "" {
		cfg.Metrics.ListenAddress = s.Telemetry.MetricsListenAddress
	}
	cfg.Tracing.Enabled = s.Telemetry.TracingEnabled
	cfg.Tracing.Exporter = s.Telemetry.TracingExporter
	if s.Telemetry.TracingEndpoint != "" {
		cfg.Tracing.Endpoint = s.Telemetry.TracingEndpoint
	}
	return cfg
}
