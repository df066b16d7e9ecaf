package diagnostics

import (
	"time"

	"github.com/replicore/replicore/pkg/calc"
	"github.com/replicore/replicore/pkg/orchestrator"
)

// rule evaluates one independent diagnosis against the input. It returns nil
// when the rule does not apply.
type rule func(in *Input) *Result

// rules follows catalog order. The engine never stops at first match.
var rules = []struct {
	code string
	eval rule
}{
	{CodeGroupPaused, evalGroupPaused},
	{CodeNeverSynced, evalNeverSynced},
	{CodeRPOExceeded, evalRPOExceeded},
	{CodeRecentSyncFailures, evalRecentSyncFailures},
	{CodeTargetUnhealthy, evalTargetUnhealthy},
	{CodeTargetsNotPaired, evalTargetsNotPaired},
	{CodeSSHTrustMissing, evalSSHTrustMissing},
	{CodeVMMissingDRShell, evalVMMissingDRShell},
	{CodeTestOverdue, evalTestOverdue},
}

// Analyze evaluates the full rule catalog against the input and returns the
// diagnosed root causes in catalog order. A healthy group yields an empty
// slice. Pure and synchronous: no I/O, no clock reads (the caller supplies
// Now).
func Analyze(in Input) []Result {
	if in.Group == nil {
		return nil
	}
	if in.Now.IsZero() {
		in.Now = time.Now()
	}

	results := make([]Result, 0, 4)
	for _, r := range rules {
		if res := r.eval(&in); res != nil {
			results = append(results, *res)
		}
	}
	return results
}

func evalGroupPaused(in *Input) *Result {
	if in.Group.Enabled && in.Group.Status != orchestrator.GroupStatusPaused {
		return nil
	}
	return &Result{
		Code:     CodeGroupPaused,
		Severity: SeverityWarning,
		Context: map[string]interface{}{
			"enabled": in.Group.Enabled,
			"status":  in.Group.Status,
		},
	}
}

func evalNeverSynced(in *Input) *Result {
	if in.Group.LastReplicationAt != nil || in.Group.CurrentRPOSeconds > 0 {
		return nil
	}
	return &Result{
		Code:     CodeNeverSynced,
		Severity: SeverityCritical,
		Context: map[string]interface{}{
			"created_at": in.Group.CreatedAt,
		},
	}
}

// evalRPOExceeded compares the observed RPO against the target. Severity is
// computed from the band: inside the warning band it is a warning, past it a
// critical. Never-synced groups are owned by their own rule to avoid
// double-reporting.
func evalRPOExceeded(in *Input) *Result {
	g := in.Group
	if g.LastReplicationAt == nil && g.CurrentRPOSeconds <= 0 {
		return nil
	}
	if g.RPOMinutes <= 0 {
		return nil
	}

	current := calc.CurrentRPO(g.CurrentRPOSeconds, g.LastReplicationAt, in.Now)
	band := calc.RPOBand(current, g.RPOMinutes)
	if band == calc.BandOnTarget {
		return nil
	}

	severity := SeverityWarning
	if band == calc.BandBreach {
		severity = SeverityCritical
	}

	ctx := map[string]interface{}{
		"rpo_minutes":         g.RPOMinutes,
		"current_rpo_seconds": current.Seconds(),
		"band":                band,
	}
	if g.LastReplicationAt != nil {
		ctx["last_replication_at"] = *g.LastReplicationAt
	}

	return &Result{Code: CodeRPOExceeded, Severity: severity, Context: ctx}
}

// evalRecentSyncFailures inspects recent job history, newest first. A failed
// most-recent job is critical; older failures in the window are a warning.
func evalRecentSyncFailures(in *Input) *Result {
	failures := 0
	lastError := ""
	latestFailed := false
	for i, j := range in.RecentSyncJobs {
		if j.Status != orchestrator.SyncFailed {
			continue
		}
		failures++
		if lastError == "" {
			lastError = j.ErrorMessage
		}
		if i == 0 {
			latestFailed = true
		}
	}
	if failures == 0 {
		return nil
	}

	severity := SeverityWarning
	if latestFailed {
		severity = SeverityCritical
	}
	return &Result{
		Code:     CodeRecentSyncFailures,
		Severity: severity,
		Context: map[string]interface{}{
			"failure_count": failures,
			"last_error":    lastError,
		},
	}
}

func evalTargetUnhealthy(in *Input) *Result {
	if in.Target == nil {
		return nil
	}
	switch in.Target.HealthStatus {
	case orchestrator.TargetUnhealthy:
		return &Result{
			Code:     CodeTargetUnhealthy,
			Severity: SeverityCritical,
			Context: map[string]interface{}{
				"target_id":     in.Target.ID,
				"health_status": in.Target.HealthStatus,
			},
		}
	case orchestrator.TargetDegraded:
		return &Result{
			Code:     CodeTargetUnhealthy,
			Severity: SeverityWarning,
			Context: map[string]interface{}{
				"target_id":     in.Target.ID,
				"health_status": in.Target.HealthStatus,
			},
		}
	}
	return nil
}

func evalTargetsNotPaired(in *Input) *Result {
	if in.Target == nil {
		return nil
	}
	if in.Target.PartnerTargetID != "" && in.PartnerTarget != nil {
		return nil
	}
	return &Result{
		Code:     CodeTargetsNotPaired,
		Severity: SeverityCritical,
		Context: map[string]interface{}{
			"target_id":         in.Target.ID,
			"partner_target_id": in.Target.PartnerTargetID,
		},
	}
}

func evalSSHTrustMissing(in *Input) *Result {
	untrusted := make([]string, 0, 2)
	if in.Target != nil && !in.Target.SSHTrustEstablished {
		untrusted = append(untrusted, in.Target.ID)
	}
	if in.PartnerTarget != nil && !in.PartnerTarget.SSHTrustEstablished {
		untrusted = append(untrusted, in.PartnerTarget.ID)
	}
	if len(untrusted) == 0 {
		return nil
	}
	return &Result{
		Code:     CodeSSHTrustMissing,
		Severity: SeverityCritical,
		Context: map[string]interface{}{
			"target_ids": untrusted,
		},
	}
}

func evalVMMissingDRShell(in *Input) *Result {
	missing := make([]string, 0)
	for _, vm := range in.VMs {
		if !vm.DRShellVMCreated {
			missing = append(missing, vm.Name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return &Result{
		Code:     CodeVMMissingDRShell,
		Severity: SeverityWarning,
		Context: map[string]interface{}{
			"vm_names": missing,
		},
	}
}

func evalTestOverdue(in *Input) *Result {
	g := in.Group
	if g.TestReminderDays <= 0 {
		return nil
	}
	window := time.Duration(g.TestReminderDays) * 24 * time.Hour
	if g.LastTestAt != nil && in.Now.Sub(*g.LastTestAt) <= window {
		return nil
	}

	ctx := map[string]interface{}{
		"test_reminder_days": g.TestReminderDays,
	}
	if g.LastTestAt != nil {
		ctx["last_test_at"] = *g.LastTestAt
	}
	return &Result{Code: CodeTestOverdue, Severity: SeverityInfo, Context: ctx}
}
