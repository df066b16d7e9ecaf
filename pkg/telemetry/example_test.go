package telemetry_test

import (
	"context"
	"fmt"

	"github.com/replicore/replicore/pkg/telemetry"
)

// Example_basicSetup demonstrates wiring up telemetry for the core.
func Example_basicSetup() {
	cfg := telemetry.DefaultConfig()
	cfg.ServiceName = "replicore"
	cfg.ServiceVersion = "1.0.0"

	tel, err := telemetry.NewTelemetry(cfg)
	if err != nil {
		panic(err)
	}
	defer tel.Shutdown(context.Background())

	// Scrape endpoint, non-blocking
	if err := tel.StartMetricsServer(); err != nil {
		panic(err)
	}

	ctx := tel.WithContext(context.Background())

	logger := telemetry.FromContext(ctx)
	logger.Info("Orchestration core started")

	// Output can vary, so we don't specify output for this example
}

// Example_structuredLogging demonstrates the logger's field helpers.
func Example_structuredLogging() {
	cfg := telemetry.DevelopmentConfig()
	cfg.Logging.Output = "stdout"

	tel, _ := telemetry.NewTelemetry(cfg)
	defer tel.Shutdown(context.Background())

	logger := tel.Logger.NewComponentLogger("statemachine")

	logger = logger.
		WithGroupID("grp-payroll").
		WithEventID("evt-4f3a2c10")

	logger.Info("Failover job submitted")
	logger.Warn("Executor progress stalled")

	err := fmt.Errorf("job poll timed out")
	logger.WithError(err).Error("Abandoning failover event")

	// Output varies, no output specified
}

// Example_failoverContext demonstrates the failover-scoped context helper:
// one call opens the span, binds the logger fields, and records the
// started metric.
func Example_failoverContext() {
	cfg := telemetry.DevelopmentConfig()

	tel, _ := telemetry.NewTelemetry(cfg)
	defer tel.Shutdown(context.Background())

	ctx := tel.WithContext(context.Background())
	ctx = telemetry.WithFailoverContext(ctx, "grp-payroll", "evt-4f3a2c10", "test")

	telemetry.FromContext(ctx).Info("Executing failover")

	telemetry.EndFailoverContext(ctx, "grp-payroll", "evt-4f3a2c10", "test", "completed", nil)

	// Output varies, no output specified
}

// Example_eventSubscription demonstrates subscribing to lifecycle events.
func Example_eventSubscription() {
	cfg := telemetry.DefaultConfig()
	cfg.Events.EnableAsync = false

	tel, _ := telemetry.NewTelemetry(cfg)
	defer tel.Shutdown(context.Background())

	tel.Events.Subscribe(func(event telemetry.Event) {
		fmt.Printf("event: %s group: %s\n", event.Type, event.GroupID)
	}, telemetry.FilterByGroupID("grp-payroll"))

	tel.Events.PublishPreflightStarted("grp-payroll", "job-001")

	// Output:
	// event: preflight.started group: grp-payroll
}
