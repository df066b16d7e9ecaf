package calc

import (
	"testing"
	"time"
)

func TestCurrentRPO(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	threeHoursAgo := now.Add(-3 * time.Hour)
	future := now.Add(time.Minute)

	tests := []struct {
		name     string
		reported float64
		lastSync *time.Time
		want     time.Duration
	}{
		{"reported seconds preferred", 90, &threeHoursAgo, 90 * time.Second},
		{"derived from last sync", 0, &threeHoursAgo, 3 * time.Hour},
		{"never synced is zero", 0, nil, 0},
		{"future sync clamps to zero", 0, &future, 0},
		{"negative report falls back", -5, &threeHoursAgo, 3 * time.Hour},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CurrentRPO(tt.reported, tt.lastSync, now); got != tt.want {
				t.Errorf("CurrentRPO = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRPOBanding(t *testing.T) {
	tests := []struct {
		name    string
		current time.Duration
		target  int
		want    Band
	}{
		{"well within target", 30 * time.Minute, 60, BandOnTarget},
		{"exactly at target", 60 * time.Minute, 60, BandOnTarget},
		{"just over target", 61 * time.Minute, 60, BandWarning},
		{"at 150 percent", 90 * time.Minute, 60, BandWarning},
		{"past 150 percent", 91 * time.Minute, 60, BandBreach},
		{"three hours against one", 3 * time.Hour, 60, BandBreach},
		{"zero target is on target", time.Hour, 0, BandOnTarget},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RPOBand(tt.current, tt.target); got != tt.want {
				t.Errorf("RPOBand(%v, %dm) = %s, want %s", tt.current, tt.target, got, tt.want)
			}
		})
	}
}

func TestRPORatio(t *testing.T) {
	if got := RPORatio(90*time.Minute, 60); got != 1.5 {
		t.Errorf("ratio = %v, want 1.5", got)
	}
	if got := RPORatio(time.Hour, -1); got != 0 {
		t.Errorf("ratio with negative target = %v, want 0", got)
	}
}
