// Package guardrails is the pre-submission policy gate for failover
// requests. Policies are Rego documents evaluated against the failover
// request (group, configuration, active event) before anything is sent to
// the executor; a deny-level finding blocks the submission locally.
//
// Built-in policies ship compiled in. Operators can add their own .rego
// files under a policy directory, optionally with a YAML manifest sidecar
// (<name>.yaml) carrying the display name, description, and enforcement
// level. The directory is watched and policies hot-reload on change.
package guardrails
