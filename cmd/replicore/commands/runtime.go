package commands

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/replicore/replicore/pkg/config"
	"github.com/replicore/replicore/pkg/guardrails"
	"github.com/replicore/replicore/pkg/jobqueue"
	"github.com/replicore/replicore/pkg/orchestrator"
	"github.com/replicore/replicore/pkg/stores"
	"github.com/replicore/replicore/pkg/telemetry"
)

// runtime bundles the wired-up collaborators every command needs.
type runtime struct {
	settings  *config.Settings
	telemetry *telemetry.Telemetry
	store     *stores.SQLiteStore
	queue     jobqueue.Client
	machine   *orchestrator.FailoverStateMachine
	decisions *orchestrator.DecisionClient
	preflight *orchestrator.PreflightEvaluator
	policies  *guardrails.Engine
	instr     *orchestrator.Instrumentation
	logger    zerolog.Logger
}

// newRuntime loads the config file and wires the whole stack. Callers must
// Close it.
func newRuntime(ctx context.Context, version string) (*runtime, error) {
	parser, err := config.NewParser()
	if err != nil {
		return nil, err
	}
	settings, err := parser.Load(configPath)
	if err != nil {
		return nil, err
	}

	telemetryCfg := settings.TelemetryConfig(version)
	if verbose {
		telemetryCfg.Logging.Level = "debug"
	}
	if logLevel != "" {
		telemetryCfg.Logging.Level = logLevel
	}
	if logFormat != "" {
		telemetryCfg.Logging.Format = logFormat
	}
	tel, err := telemetry.NewTelemetry(telemetryCfg)
	if err != nil {
		return nil, err
	}
	logger := tel.Logger.Zerolog()

	store, err := stores.NewSQLiteStore(stores.Config{Path: settings.Store.Path})
	if err != nil {
		return nil, err
	}
	if err := store.Init(ctx); err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}

	queue, err := jobqueue.NewHTTPClient(jobqueue.HTTPConfig{
		BaseURL:        settings.JobQueue.Endpoint,
		Token:          settings.JobQueue.Token,
		RequestTimeout: settings.JobQueue.RequestTimeout(),
	}, logger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	instr := &orchestrator.Instrumentation{
		Metrics: tel.Metrics,
		Tracer:  tel.Tracer,
		Events:  tel.Events,
	}

	var gate orchestrator.GuardrailEvaluator
	var policyEngine *guardrails.Engine
	if settings.Guardrails.Enabled {
		policyEngine, err = guardrails.NewEngine(logger)
		if err != nil {
			_ = store.Close()
			return nil, err
		}
		if len(settings.Guardrails.PolicyDirs) > 0 {
			if err := policyEngine.LoadOperatorPolicies(ctx, settings.Guardrails.PolicyDirs); err != nil {
				_ = store.Close()
				return nil, err
			}
			if settings.Guardrails.Watch {
				if err := policyEngine.Watch(ctx, settings.Guardrails.PolicyDirs); err != nil {
					logger.Warn().Err(err).Msg("Policy watch unavailable, continuing without hot reload")
				}
			}
		}
		gate = policyEngine
	}

	preflight := orchestrator.NewPreflightEvaluator(queue, logger, instr, orchestrator.PreflightOptions{
		PollInterval: settings.Orchestrator.PreflightPollInterval(),
		Timeout:      settings.Orchestrator.PreflightTimeout(),
	})
	decisions := orchestrator.NewDecisionClient(queue, store, logger, instr, orchestrator.DecisionOptions{
		PollInterval: settings.Orchestrator.DecisionPollInterval(),
		Timeout:      settings.Orchestrator.DecisionTimeout(),
	})
	machine := orchestrator.NewFailoverStateMachine(orchestrator.Dependencies{
		Queue:           queue,
		Groups:          store,
		Events:          store,
		Decisions:       decisions,
		Guardrails:      gate,
		Preflight:       preflight,
		Instrumentation: instr,
	}, logger, orchestrator.StateMachineOptions{
		ExecutePollInterval: settings.Orchestrator.ExecutePollInterval(),
		ExecuteTimeout:      settings.Orchestrator.ExecuteTimeout(),
	})

	return &runtime{
		settings:  settings,
		telemetry: tel,
		store:     store,
		queue:     queue,
		machine:   machine,
		decisions: decisions,
		preflight: preflight,
		policies:  policyEngine,
		instr:     instr,
		logger:    logger,
	}, nil
}

// Close releases runtime resources.
func (r *runtime) Close(ctx context.Context) {
	if r.policies != nil {
		_ = r.policies.StopWatching()
	}
	if err := r.store.Close(); err != nil {
		r.logger.Warn().Err(err).Msg("Failed to close store")
	}
	if err := r.telemetry.Shutdown(ctx); err != nil {
		r.logger.Warn().Err(err).Msg("Telemetry shutdown failed")
	}
}

// loadEvent fetches a failover event or explains which one is missing.
func (r *runtime) loadEvent(ctx context.Context, eventID string) (*orchestrator.FailoverEvent, error) {
	event, err := r.store.GetFailoverEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failover event %s: %w", eventID, err)
	}
	return event, nil
}
