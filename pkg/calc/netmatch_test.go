package calc

import "testing"

func TestNetworkMatchScore(t *testing.T) {
	tests := []struct {
		name      string
		source    string
		candidate string
		want      int
	}{
		// Exact match also shares its numbers, keywords, and containment.
		{"exact plain name", "Office-LAN", "Office-LAN", 100},
		{"exact with vlan and keyword", "Prod-VLAN102", "Prod-VLAN102", 170},
		{"vlan number and keyword", "Production-VLAN102", "Prod-VLAN102", 70},
		{"keyword only", "Production-VLAN102", "Prod-VLAN999", 20},
		{"vlan zero padding ignored", "net-0102", "net-102", 50},
		{"containment", "DR-Network", "DR-Network-Extended", 50},
		{"no similarity", "Blue", "Green", 0},
		{"empty source", "", "Prod", 0},
		{"specific keyword counted once", "production-net", "production-net-2", 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NetworkMatchScore(tt.source, tt.candidate); got != tt.want {
				t.Errorf("NetworkMatchScore(%q, %q) = %d, want %d", tt.source, tt.candidate, got, tt.want)
			}
		})
	}
}

func TestVLANMatchDominatesKeywordOnly(t *testing.T) {
	source := "Production-VLAN102"
	vlanMatch := NetworkMatchScore(source, "Prod-VLAN102")
	keywordOnly := NetworkMatchScore(source, "Test-VLAN999")
	if vlanMatch <= keywordOnly {
		t.Errorf("vlan match %d not above keyword-only %d", vlanMatch, keywordOnly)
	}
}

func TestExactMatchScoresMaximumComponent(t *testing.T) {
	if got := NetworkMatchScore("alpha", "alpha"); got < 100 {
		t.Errorf("exact match = %d, want at least 100", got)
	}
}

func TestRankNetworks(t *testing.T) {
	ranked := RankNetworks("Production-VLAN102", []string{
		"Test-VLAN999",
		"Prod-VLAN102",
		"Unrelated",
	})
	if ranked[0].Name != "Prod-VLAN102" {
		t.Errorf("best candidate = %q, want %q", ranked[0].Name, "Prod-VLAN102")
	}
	if ranked[len(ranked)-1].Name != "Unrelated" {
		t.Errorf("worst candidate = %q, want %q", ranked[len(ranked)-1].Name, "Unrelated")
	}
	if ranked[0].Score <= ranked[1].Score {
		t.Errorf("ranking not strictly ordered: %+v", ranked)
	}
}
