// Package telemetry provides observability instrumentation for the Replicore
// DR orchestration core.
//
// The telemetry package integrates structured logging (zerolog), distributed
// tracing (OpenTelemetry), metrics (Prometheus), and event publishing into a
// unified system for monitoring failover operations and SLA diagnostics.
//
// # Usage
//
// Initialize telemetry at application startup:
//
//	cfg := telemetry.DefaultConfig()
//	cfg.ServiceName = "replicore"
//	cfg.ServiceVersion = "1.0.0"
//
//	tel, err := telemetry.NewTelemetry(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer tel.Shutdown(context.Background())
//
//	// Start metrics server
//	if err := tel.StartMetricsServer(); err != nil {
//	    log.Fatal(err)
//	}
//
// Add telemetry to context:
//
//	ctx = tel.WithContext(ctx)
//
// # Structured Logging
//
// The logger provides component-specific logging with automatic context
// propagation:
//
//	logger := tel.Logger.NewComponentLogger("failover")
//	logger = logger.WithGroupID("pg-123").WithJobID("job-456")
//	logger.Info("Submitting failover job")
//	logger.WithError(err).Error("Job submission failed")
//
// Log levels: trace, debug, info, warn, error, fatal
//
// # Distributed Tracing
//
// Tracing provides visibility into preflight and failover flow:
//
//	ctx, span := tel.Tracer.StartFailoverSpan(ctx, groupID, "live")
//	defer span.End()
//
//	if err != nil {
//	    telemetry.RecordError(span, err)
//	}
//
// Supported exporters: OTLP (production), Stdout (development), none (testing).
//
// # Metrics
//
// Key metrics exposed at /metrics (default :9090):
//
//   - replicore_preflights_completed_total{outcome}
//   - replicore_preflight_duration_seconds{outcome}
//   - replicore_failovers_started_total{failover_type}
//   - replicore_failovers_completed_total{failover_type,status}
//   - replicore_failover_duration_seconds{failover_type,status}
//   - replicore_job_polls_total{job_type}
//   - replicore_job_poll_errors_total{job_type}
//   - replicore_diagnoses_raised_total{code,severity}
//   - replicore_guardrail_denials_total{policy}
//   - replicore_active_failovers
//
// # Event Publishing
//
// The event system provides async publishing with buffering and filtering;
// the console UI subscribes to it for live updates:
//
//	tel.Events.PublishFailoverStarted(groupID, eventID, "test")
//	tel.Events.Subscribe(func(event telemetry.Event) {
//	    fmt.Printf("Event: %s - %s\n", event.Type, event.Message)
//	}, telemetry.FilterByGroupID(groupID))
//
// Event filters: FilterByLevel, FilterByType, FilterByGroupID
//
// # Graceful Shutdown
//
// Always shut down telemetry gracefully to flush pending data:
//
//	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
//	defer cancel()
//
//	if err := tel.Shutdown(ctx); err != nil {
//	    log.Printf("Telemetry shutdown error: %v", err)
//	}
package telemetry
