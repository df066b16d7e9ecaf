package guardrails

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/open-policy-agent/opa/ast"
	"github.com/open-policy-agent/opa/rego"
	"github.com/rs/zerolog"

	"github.com/replicore/replicore/pkg/orchestrator"
)

// Engine evaluates guardrail policies. It implements
// orchestrator.GuardrailEvaluator.
type Engine struct {
	mu       sync.RWMutex
	policies map[string]*compiledPolicy
	logger   zerolog.Logger
	loader   *Loader
}

// compiledPolicy is a parsed Rego policy ready for evaluation.
type compiledPolicy struct {
	policy   *Policy
	module   *ast.Module
	compiled time.Time
}

// NewEngine creates a policy engine with the built-in policies loaded.
func NewEngine(logger zerolog.Logger) (*Engine, error) {
	e := &Engine{
		policies: make(map[string]*compiledPolicy),
		logger:   logger.With().Str("component", "guardrails").Logger(),
	}
	e.loader = NewLoader(e.logger)

	builtins := BuiltinPolicies()
	for i := range builtins {
		if err := e.compileAndStore(&builtins[i]); err != nil {
			return nil, fmt.Errorf("failed to compile built-in policy %s: %w", builtins[i].Name, err)
		}
	}
	e.logger.Info().Int("count", len(builtins)).Msg("Built-in policies loaded")

	return e, nil
}

// EvaluateFailover evaluates every enabled policy against a failover
// request. Policies that fail to evaluate are logged and skipped; a broken
// operator policy must not strand a disaster-recovery action.
func (e *Engine) EvaluateFailover(ctx context.Context, in *orchestrator.GuardrailInput) (*orchestrator.GuardrailDecision, error) {
	start := time.Now()
	e.mu.RLock()
	defer e.mu.RUnlock()

	var violations []orchestrator.GuardrailViolation
	evaluated := 0

	for _, cp := range e.policies {
		if !cp.policy.Enabled {
			continue
		}
		evaluated++

		found, err := e.evaluatePolicy(ctx, cp, in)
		if err != nil {
			e.logger.Error().Err(err).
				Str("policy", cp.policy.Name).
				Str("group_id", in.Config.ProtectionGroupID).
				Msg("Policy evaluation failed")
			continue
		}
		violations = append(violations, found...)
	}

	allowed := true
	for i := range violations {
		if violations[i].Level == orchestrator.GuardrailDeny {
			allowed = false
			break
		}
	}

	e.logger.Debug().
		Str("group_id", in.Config.ProtectionGroupID).
		Int("policies", evaluated).
		Int("violations", len(violations)).
		Bool("allowed", allowed).
		Dur("duration", time.Since(start)).
		Msg("Guardrail evaluation completed")

	return &orchestrator.GuardrailDecision{
		Allowed:    allowed,
		Violations: violations,
	}, nil
}

// evaluatePolicy runs one policy's deny and warn rules against the input.
func (e *Engine) evaluatePolicy(ctx context.Context, cp *compiledPolicy, in *orchestrator.GuardrailInput) ([]orchestrator.GuardrailViolation, error) {
	pkg := packageName(cp.policy.Rego)

	var violations []orchestrator.GuardrailViolation
	for rule, level := range map[string]orchestrator.GuardrailLevel{
		"deny": orchestrator.GuardrailDeny,
		"warn": orchestrator.GuardrailWarn,
	} {
		found, err := e.evalRule(ctx, cp, fmt.Sprintf("data.%s.%s", pkg, rule), level, in)
		if err != nil {
			return nil, err
		}
		violations = append(violations, found...)
	}
	return violations, nil
}

func (e *Engine) evalRule(ctx context.Context, cp *compiledPolicy, query string, level orchestrator.GuardrailLevel, in *orchestrator.GuardrailInput) ([]orchestrator.GuardrailViolation, error) {
	r := rego.New(
		rego.Module(cp.policy.Name, cp.policy.Rego),
		rego.Query(query),
		rego.Input(in),
	)

	results, err := r.Eval(ctx)
	if err != nil {
		return nil, fmt.Errorf("policy evaluation error: %w", err)
	}

	var violations []orchestrator.GuardrailViolation
	for _, result := range results {
		if len(result.Expressions) == 0 {
			continue
		}
		set, ok := result.Expressions[0].Value.([]interface{})
		if !ok {
			continue
		}
		for _, raw := range set {
			violations = append(violations, e.newViolation(cp.policy, raw, level))
		}
	}
	return violations, nil
}

// newViolation builds a violation from one rule result. Level precedence:
// the finding's own level key, then the policy's configured level, then
// the rule set the finding came from.
func (e *Engine) newViolation(policy *Policy, result interface{}, level orchestrator.GuardrailLevel) orchestrator.GuardrailViolation {
	v := orchestrator.GuardrailViolation{
		Policy: policy.Name,
		Level:  level,
	}
	if policy.Level != "" {
		v.Level = policy.Level
	}

	switch r := result.(type) {
	case string:
		v.Message = r
	case map[string]interface{}:
		if msg, ok := r["message"].(string); ok {
			v.Message = msg
		}
		if lvl, ok := r["level"].(string); ok {
			v.Level = orchestrator.GuardrailLevel(lvl)
		}
	default:
		v.Message = fmt.Sprintf("%v", result)
	}
	return v
}

// LoadOperatorPolicies loads and compiles operator .rego files from the
// given paths, replacing any previously loaded operator policies.
func (e *Engine) LoadOperatorPolicies(ctx context.Context, paths []string) error {
	policies, err := e.loader.LoadFromPaths(ctx, paths)
	if err != nil {
		return fmt.Errorf("failed to load policies: %w", err)
	}
	return e.replaceOperatorPolicies(policies)
}

// Watch hot-reloads operator policies when files under paths change. It
// returns after starting the watcher; reloads happen in the background
// until ctx is cancelled.
func (e *Engine) Watch(ctx context.Context, paths []string) error {
	return e.loader.Watch(ctx, paths, e.replaceOperatorPolicies)
}

// replaceOperatorPolicies swaps in a new operator policy set. Built-ins
// are kept; a policy that fails to compile is skipped so one bad file
// cannot take down the rest of the reload.
func (e *Engine) replaceOperatorPolicies(policies []Policy) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for name, cp := range e.policies {
		if cp.policy.Source != "" {
			delete(e.policies, name)
		}
	}

	loaded := 0
	for i := range policies {
		if err := e.compileAndStore(&policies[i]); err != nil {
			e.logger.Error().Err(err).
				Str("policy", policies[i].Name).
				Str("source", policies[i].Source).
				Msg("Failed to compile policy")
			continue
		}
		loaded++
	}

	e.logger.Info().Int("count", loaded).Msg("Operator policies loaded")
	return nil
}

// compileAndStore parses a policy and stores it for evaluation. Caller
// holds the write lock except during construction.
func (e *Engine) compileAndStore(policy *Policy) error {
	module, err := ast.ParseModule(policy.Name, policy.Rego)
	if err != nil {
		return fmt.Errorf("failed to parse policy: %w", err)
	}

	e.policies[policy.Name] = &compiledPolicy{
		policy:   policy,
		module:   module,
		compiled: time.Now(),
	}
	return nil
}

// GetPolicy returns a loaded policy by name.
func (e *Engine) GetPolicy(name string) (*Policy, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	cp, exists := e.policies[name]
	if !exists {
		return nil, fmt.Errorf("policy not found: %s", name)
	}
	return cp.policy, nil
}

// ListPolicies returns all loaded policies.
func (e *Engine) ListPolicies() []Policy {
	e.mu.RLock()
	defer e.mu.RUnlock()

	policies := make([]Policy, 0, len(e.policies))
	for _, cp := range e.policies {
		policies = append(policies, *cp.policy)
	}
	return policies
}

// SetPolicyEnabled toggles a policy by name.
func (e *Engine) SetPolicyEnabled(name string, enabled bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	cp, exists := e.policies[name]
	if !exists {
		return fmt.Errorf("policy not found: %s", name)
	}
	cp.policy.Enabled = enabled
	e.logger.Info().Str("policy", name).Bool("enabled", enabled).Msg("Policy toggled")
	return nil
}

// StopWatching stops the policy file watcher.
func (e *Engine) StopWatching() error {
	return e.loader.StopWatching()
}

// packageName extracts the package name from Rego code.
func packageName(code string) string {
	for _, line := range strings.Split(code, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "package ") {
			parts := strings.Fields(trimmed)
			if len(parts) >= 2 {
				return parts[1]
			}
		}
	}
	return "replicore.guardrails"
}
