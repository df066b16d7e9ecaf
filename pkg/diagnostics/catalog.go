package diagnostics

// catalog is the ordered, static catalog of diagnosis definitions. Rule
// evaluation follows this order; every rule is independent, so one group can
// surface several diagnoses at once.
var catalog = []Definition{
	{
		Code:        CodeGroupPaused,
		Title:       "Protection group is paused",
		Description: "Replication for this group is administratively paused, so no new recovery points are being created.",
		Impact:      "The recovery point ages indefinitely while the group is paused; the RPO target cannot be met.",
		Remediation: []string{
			"Confirm the pause is intentional.",
			"Resume the group to restart scheduled replication.",
		},
		QuickAction: "resume_group",
	},
	{
		Code:        CodeNeverSynced,
		Title:       "Group has never replicated",
		Description: "No replication has ever completed for this group.",
		Impact:      "There is no recovery point at the DR site; a failover is impossible.",
		Remediation: []string{
			"Verify the replication target is reachable and healthy.",
			"Trigger an initial sync.",
			"Check member VM replication status once the sync starts.",
		},
		QuickAction: "run_sync",
	},
	{
		Code:        CodeRPOExceeded,
		Title:       "Last sync is older than the RPO target",
		Description: "The most recent recovery point is older than the group's RPO target allows.",
		Impact:      "A failover now would lose more data than the configured objective permits.",
		Remediation: []string{
			"Check for running or stuck replication jobs.",
			"Trigger an on-demand sync.",
			"If syncs are slow, review bandwidth and appliance load.",
		},
		QuickAction: "run_sync",
	},
	{
		Code:        CodeRecentSyncFailures,
		Title:       "Recent replication failures",
		Description: "One or more recent replication jobs for this group failed.",
		Impact:      "Recovery points are not being refreshed; the observed RPO will degrade until syncs succeed again.",
		Remediation: []string{
			"Inspect the most recent failed job's error message.",
			"Verify appliance capacity and connectivity.",
			"Re-run the sync after addressing the cause.",
		},
	},
	{
		Code:        CodeTargetUnhealthy,
		Title:       "Replication target unhealthy",
		Description: "The ZFS appliance backing this group is reporting an unhealthy or degraded status.",
		Impact:      "Replication may stall or fail, and a failover may not be executable until the appliance recovers.",
		Remediation: []string{
			"Check the appliance's own health dashboard.",
			"Verify pool capacity and disk state on the appliance.",
		},
	},
	{
		Code:        CodeTargetsNotPaired,
		Title:       "No DR partner appliance",
		Description: "The group's replication target has no partner appliance configured at the DR site.",
		Impact:      "Failover requires a source/DR appliance pair; preflight will block until one is configured.",
		Remediation: []string{
			"Register the DR-site appliance.",
			"Pair it with this group's source appliance.",
		},
		QuickAction: "pair_targets",
	},
	{
		Code:        CodeSSHTrustMissing,
		Title:       "Appliance SSH trust not established",
		Description: "Key trust with one or both appliances has not been verified.",
		Impact:      "The executor cannot drive replication or failover operations on an untrusted appliance.",
		Remediation: []string{
			"Run the trust probe against the appliance.",
			"Accept the appliance host key if it matches the expected fingerprint.",
		},
		QuickAction: "establish_trust",
	},
	{
		Code:        CodeVMMissingDRShell,
		Title:       "Member VM missing its DR shell",
		Description: "One or more member VMs have no shell VM created at the DR site.",
		Impact:      "Those VMs cannot be powered on during a failover until their shells exist.",
		Remediation: []string{
			"Wait for the next sync cycle to create missing shells.",
			"If shells remain missing, re-run VM onboarding for the listed VMs.",
		},
	},
	{
		Code:        CodeTestOverdue,
		Title:       "Test failover overdue",
		Description: "The group has not run a test failover within its configured reminder window.",
		Impact:      "Recovery readiness is unverified; problems may only surface during a real failover.",
		Remediation: []string{
			"Schedule a test failover in a maintenance window.",
		},
		QuickAction: "start_test_failover",
	},
}

// definitionIndex maps codes to catalog entries.
var definitionIndex = func() map[string]*Definition {
	idx := make(map[string]*Definition, len(catalog))
	for i := range catalog {
		idx[catalog[i].Code] = &catalog[i]
	}
	return idx
}()

// Describe returns the catalog definition for a diagnosis code, or nil for
// an unknown code.
func Describe(code string) *Definition {
	return definitionIndex[code]
}

// Catalog returns the ordered catalog of definitions.
func Catalog() []Definition {
	out := make([]Definition, len(catalog))
	copy(out, catalog)
	return out
}
