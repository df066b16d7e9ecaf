package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const fullConfig = `
job_queue: {
	endpoint: "https://jobs.dr.example.com"
	token:    "secret-token"
	request_timeout_seconds: 15
}

orchestrator: {
	preflight_timeout_seconds:     240
	execute_timeout_seconds:       3600
	default_test_duration_minutes: 120
}

store: path: "/var/lib/replicore/replicore.db"

guardrails: {
	enabled: true
	policy_dirs: ["/etc/replicore/policies"]
	watch: false
}

telemetry: {
	environment: "production"
	log_level:   "warn"
	log_format:  "json"
	metrics_listen_address: ":9100"
	tracing_exporter: "otlp"
	tracing_endpoint: "otel-collector:4317"
}
`

func newTestParser(t *testing.T) *Parser {
	t.Helper()
	p, err := NewParser()
	if err != nil {
		t.Fatalf("NewParser: %v", err)
	}
	return p
}

func TestParseFullConfig(t *testing.T) {
	p := newTestParser(t)

	settings, err := p.ParseInline(fullConfig, "test.cue")
	if err != nil {
		t.Fatalf("ParseInline: %v", err)
	}

	if settings.JobQueue.Endpoint != "https://jobs.dr.example.com" {
		t.Errorf("endpoint = %s", settings.JobQueue.Endpoint)
	}
	if settings.JobQueue.Token != "secret-token" {
		t.Errorf("token = %s", settings.JobQueue.Token)
	}
	if settings.JobQueue.RequestTimeout() != 15*time.Second {
		t.Errorf("request timeout = %s", settings.JobQueue.RequestTimeout())
	}
	if settings.Orchestrator.PreflightTimeout() != 240*time.Second {
		t.Errorf("preflight timeout = %s", settings.Orchestrator.PreflightTimeout())
	}
	if settings.Orchestrator.DefaultTestDurationMinutes != 120 {
		t.Errorf("test duration = %d", settings.Orchestrator.DefaultTestDurationMinutes)
	}
	if settings.Store.Path != "/var/lib/replicore/replicore.db" {
		t.Errorf("store path = %s", settings.Store.Path)
	}
	if settings.Guardrails.Watch {
		t.Error("watch should be off")
	}
	if settings.Telemetry.Environment != "production" {
		t.Errorf("environment = %s", settings.Telemetry.Environment)
	}
}

func TestDefaultsFillOmittedFields(t *testing.T) {
	p := newTestParser(t)

	settings, err := p.ParseInline(`job_queue: endpoint: "http://localhost:8080"`, "test.cue")
	if err != nil {
		t.Fatalf("ParseInline: %v", err)
	}

	defaults := DefaultSettings()
	if settings.JobQueue.RequestTimeoutSeconds != defaults.JobQueue.RequestTimeoutSeconds {
		t.Errorf("request timeout = %d", settings.JobQueue.RequestTimeoutSeconds)
	}
	if settings.Orchestrator.ExecutePollInterval() != 2*time.Second {
		t.Errorf("execute poll interval = %s", settings.Orchestrator.ExecutePollInterval())
	}
	if settings.Orchestrator.DecisionTimeout() != 30*time.Minute {
		t.Errorf("decision timeout = %s", settings.Orchestrator.DecisionTimeout())
	}
	if settings.Store.Path != defaults.Store.Path {
		t.Errorf("store path = %s", settings.Store.Path)
	}
	if !settings.Guardrails.Enabled {
		t.Error("guardrails disabled by default")
	}
	if settings.Telemetry.LogLevel != "info" {
		t.Errorf("log level = %s", settings.Telemetry.LogLevel)
	}
}

func TestParseRejections(t *testing.T) {
	p := newTestParser(t)

	tests := []struct {
		name    string
		content string
	}{
		{
			name:    "missing job queue endpoint",
			content: `store: path: "x.db"`,
		},
		{
			name:    "endpoint without scheme",
			content: `job_queue: endpoint: "jobs.example.com"`,
		},
		{
			name: "unknown field",
			content: `
job_queue: endpoint: "http://localhost:8080"
job_q: endpoint: "http://typo"
`,
		},
		{
			name: "wrong type",
			content: `
job_queue: {
	endpoint: "http://localhost:8080"
	request_timeout_seconds: "thirty"
}
`,
		},
		{
			name: "test duration below floor",
			content: `
job_queue: endpoint: "http://localhost:8080"
orchestrator: default_test_duration_minutes: 5
`,
		},
		{
			name: "invalid log level",
			content: `
job_queue: endpoint: "http://localhost:8080"
telemetry: log_level: "loud"
`,
		},
		{
			name:    "syntax error",
			content: `job_queue: { endpoint:`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := p.ParseInline(tt.content, "test.cue"); err == nil {
				t.Error("invalid config accepted")
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	p := newTestParser(t)
	path := filepath.Join(t.TempDir(), "replicore.cue")

	if err := os.WriteFile(path, []byte(fullConfig), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	settings, err := p.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if settings.JobQueue.Endpoint == "" {
		t.Error("endpoint not loaded")
	}

	if _, err := p.Load(filepath.Join(t.TempDir(), "missing.cue")); err == nil {
		t.Error("missing file returned no error")
	}
}

func TestTelemetryConfigMapping(t *testing.T) {
	p := newTestParser(t)

	settings, err := p.ParseInline(fullConfig, "test.cue")
	if err != nil {
		t.Fatalf("ParseInline: %v", err)
	}

	cfg := settings.TelemetryConfig("1.2.3")
	if cfg.ServiceVersion != "1.2.3" {
		t.Errorf("version = %s", cfg.ServiceVersion)
	}
	if cfg.Environment != "production" {
		t.Errorf("environment = %s", cfg.Environment)
	}
	if cfg.Logging.Level != "warn" || cfg.Logging.Format != "json" {
		t.Errorf("logging = %+v", cfg.Logging)
	}
	if cfg.Metrics.ListenAddress != ":9100" {
		t.Errorf("metrics address = %s", cfg.Metrics.ListenAddress)
	}
	if cfg.Tracing.Exporter != "otlp" || cfg.Tracing.Endpoint != "otel-collector:4317" {
		t.Errorf("tracing = %+v", cfg.Tracing)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("mapped telemetry config invalid: %v", err)
	}
}

func TestSchemaErrorsNamePosition(t *testing.T) {
	p := newTestParser(t)

	_, err := p.ParseInline(`job_queue: endpoint: 42`, "replicore.cue")
	if err == nil {
		t.Fatal("invalid config accepted")
	}
	if !strings.Contains(err.Error(), "endpoint") {
		t.Errorf("error does not name the failing field: %v", err)
	}
}
