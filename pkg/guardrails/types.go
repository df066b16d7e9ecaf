package guardrails

import (
	"time"

	"github.com/replicore/replicore/pkg/orchestrator"
)

// Policy is a guardrail rule with its Rego code.
type Policy struct {
	// Name is the unique name of the policy.
	Name string `json:"name"`

	// Description provides a human-readable description.
	Description string `json:"description"`

	// Rego contains the Rego policy code.
	Rego string `json:"rego"`

	// Level is the enforcement level applied to findings that do not set
	// their own.
	Level orchestrator.GuardrailLevel `json:"level"`

	// Enabled indicates if the policy is active.
	Enabled bool `json:"enabled"`

	// Tags are labels for organizing policies.
	Tags []string `json:"tags,omitempty"`

	// Source is the file the policy was loaded from, empty for built-ins.
	Source string `json:"source,omitempty"`

	// LoadedAt is when the policy was loaded or last reloaded.
	LoadedAt time.Time `json:"loaded_at"`
}

// Manifest is the optional YAML sidecar next to an operator .rego file.
// It overrides the metadata otherwise derived from the file itself.
type Manifest struct {
	// Name overrides the policy name derived from the filename.
	Name string `yaml:"name"`

	// Description overrides the description extracted from comments.
	Description string `yaml:"description"`

	// Level sets the enforcement level, deny or warn.
	Level string `yaml:"level"`

	// Enabled toggles the policy; defaults to true when the sidecar is
	// absent or omits the field.
	Enabled *bool `yaml:"enabled"`

	// Tags are labels for organizing policies.
	Tags []string `yaml:"tags"`
}
