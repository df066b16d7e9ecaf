// Package calc provides the small deterministic numeric utilities consumed by
// the SLA diagnostics engine and the onboarding flows: RPO banding, dynamic
// disk-size estimation, and network name similarity scoring.
package calc

import "time"

// Band classifies the current-RPO-to-target ratio.
type Band string

const (
	// BandOnTarget means the observed RPO is within the target.
	BandOnTarget Band = "on_target"

	// BandWarning means the observed RPO is up to 150% of the target.
	BandWarning Band = "warning"

	// BandBreach means the observed RPO exceeds 150% of the target.
	BandBreach Band = "breach"
)

// CurrentRPO derives the observed recovery point age. It prefers an
// explicitly reported value in seconds; otherwise it falls back to the time
// since the last successful replication; otherwise zero. A never-synced group
// is diagnosed by its own dedicated rule, not by a zero RPO here.
func CurrentRPO(currentRPOSeconds float64, lastReplicationAt *time.Time, now time.Time) time.Duration {
	if currentRPOSeconds > 0 {
		return time.Duration(currentRPOSeconds * float64(time.Second))
	}
	if lastReplicationAt != nil {
		if d := now.Sub(*lastReplicationAt); d > 0 {
			return d
		}
	}
	return 0
}

// RPORatio returns current/target as a ratio. A non-positive target yields
// zero: without a target there is nothing to band against.
func RPORatio(current time.Duration, targetMinutes int) float64 {
	if targetMinutes <= 0 {
		return 0
	}
	target := time.Duration(targetMinutes) * time.Minute
	return float64(current) / float64(target)
}

// BandForRatio maps a current/target ratio onto its band.
func BandForRatio(ratio float64) Band {
	switch {
	case ratio <= 1.0:
		return BandOnTarget
	case ratio <= 1.5:
		return BandWarning
	default:
		return BandBreach
	}
}

// RPOBand classifies the observed RPO against its target in one step.
func RPOBand(current time.Duration, targetMinutes int) Band {
	return BandForRatio(RPORatio(current, targetMinutes))
}
