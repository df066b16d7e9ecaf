package guardrails

import (
	"time"

	"github.com/replicore/replicore/pkg/orchestrator"
)

// BuiltinPolicies returns the policies compiled into the binary.
func BuiltinPolicies() []Policy {
	return []Policy{
		pausedGroupPolicy(),
		commitPendingPolicy(),
		reverseProtectionPolicy(),
	}
}

// pausedGroupPolicy blocks live failovers of administratively paused groups
// unless the operator forced past preflight blockers.
func pausedGroupPolicy() Policy {
	return Policy{
		Name:        "live-failover-paused-group",
		Description: "Denies live failover of a paused protection group without an explicit force override",
		Level:       orchestrator.GuardrailDeny,
		Enabled:     true,
		Tags:        []string{"safety", "live"},
		LoadedAt:    time.Now(),
		Rego: `package replicore.guardrails.paused

import rego.v1

deny contains violation if {
	input.config.failover_type == "live"
	input.group.status == "paused"
	not input.config.force
	violation := {
		"message": sprintf("group %s is paused; resume replication or force past preflight first", [input.group.name]),
		"level": "deny",
	}
}`,
	}
}

// commitPendingPolicy blocks any new failover while a live event is still
// awaiting its commit or rollback decision.
func commitPendingPolicy() Policy {
	return Policy{
		Name:        "commit-decision-pending",
		Description: "Denies new failovers while a prior live failover awaits commit or rollback",
		Level:       orchestrator.GuardrailDeny,
		Enabled:     true,
		Tags:        []string{"safety", "lifecycle"},
		LoadedAt:    time.Now(),
		Rego: `package replicore.guardrails.commitpending

import rego.v1

deny contains violation if {
	input.active_event.status == "awaiting_commit"
	violation := {
		"message": sprintf("failover event %s is awaiting a commit decision", [input.active_event.id]),
		"level": "deny",
	}
}`,
	}
}

// reverseProtectionPolicy flags live failovers of priority-1 groups that
// leave the group unprotected afterwards.
func reverseProtectionPolicy() Policy {
	return Policy{
		Name:        "reverse-protection-priority",
		Description: "Warns when a priority-1 group is failed over live without reverse protection",
		Level:       orchestrator.GuardrailWarn,
		Enabled:     true,
		Tags:        []string{"protection", "live"},
		LoadedAt:    time.Now(),
		Rego: `package replicore.guardrails.reverseprotection

import rego.v1

warn contains violation if {
	input.config.failover_type == "live"
	input.group.priority == 1
	not input.config.reverse_protection
	violation := {
		"message": sprintf("group %s is priority 1 and will be unprotected after failover; enable reverse protection", [input.group.name]),
		"level": "warn",
	}
}`,
	}
}
