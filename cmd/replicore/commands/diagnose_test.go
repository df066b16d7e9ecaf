package commands

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/replicore/replicore/pkg/diagnostics"
	"github.com/replicore/replicore/pkg/telemetry"
)

func TestRecordDiagnosisFeedsMetricsAndEvents(t *testing.T) {
	metrics, err := telemetry.NewMetrics(telemetry.MetricsConfig{
		Enabled:   true,
		Namespace: "replicore",
		Path:      "/metrics",
	})
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	events, err := telemetry.NewEventPublisher(telemetry.EventsConfig{
		Enabled:    true,
		BufferSize: 8,
	})
	if err != nil {
		t.Fatalf("NewEventPublisher: %v", err)
	}

	got := make(chan telemetry.Event, 8)
	events.Subscribe(func(event telemetry.Event) {
		got <- event
	}, nil)

	rt := &runtime{telemetry: &telemetry.Telemetry{Metrics: metrics, Events: events}}
	recordDiagnosis(rt, "grp-1", []diagnostics.Result{
		{Code: diagnostics.CodeRPOExceeded, Severity: diagnostics.SeverityCritical},
		{Code: diagnostics.CodeTestOverdue, Severity: diagnostics.SeverityWarning},
	})

	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Result().Body)
	exposition := string(body)

	for _, want := range []string{
		`replicore_diagnostics_evaluations_total 1`,
		`replicore_diagnoses_raised_total{code="rpo_exceeded",severity="critical"} 1`,
		`replicore_diagnoses_raised_total{code="test_overdue",severity="warning"} 1`,
	} {
		if !strings.Contains(exposition, want) {
			t.Errorf("metrics exposition missing %q", want)
		}
	}

	for i := 0; i < 2; i++ {
		select {
		case event := <-got:
			if event.Type != telemetry.EventTypeDiagnosisRaised {
				t.Errorf("event %d: type = %q, want %q", i, event.Type, telemetry.EventTypeDiagnosisRaised)
			}
			if event.GroupID != "grp-1" {
				t.Errorf("event %d: group = %q, want grp-1", i, event.GroupID)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for diagnosis event %d", i)
		}
	}
}
