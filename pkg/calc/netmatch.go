package calc

import (
	"regexp"
	"sort"
	"strings"
)

// Score components for network name similarity.
const (
	scoreExactMatch  = 100
	scoreSharedVLAN  = 50
	scoreContainment = 30
	scorePerKeyword  = 20
)

// networkKeywords is the fixed vocabulary of network-purpose keywords.
// Longer, more specific keywords come first so that a name matches its most
// specific keyword (e.g. "production" rather than counting twice for "prod").
var networkKeywords = []string{
	"production", "vmotion", "storage", "backup", "mgmt", "iscsi",
	"prod", "test", "dev", "dmz", "nfs", "dr",
}

var digitRuns = regexp.MustCompile(`\d+`)

// NetworkMatchScore computes a heuristic similarity between a source network
// name and a candidate destination network name. Component scores are summed,
// not capped; the result is only ever used to sort candidates for operator
// convenience, never to auto-select a mapping.
func NetworkMatchScore(source, candidate string) int {
	src := strings.ToLower(strings.TrimSpace(source))
	dst := strings.ToLower(strings.TrimSpace(candidate))
	if src == "" || dst == "" {
		return 0
	}

	score := 0

	if src == dst {
		score += scoreExactMatch
	}

	if sharesNumber(src, dst) {
		score += scoreSharedVLAN
	}

	score += scorePerKeyword * sharedKeywords(src, dst)

	if src != dst && (strings.Contains(src, dst) || strings.Contains(dst, src)) {
		score += scoreContainment
	}

	return score
}

// sharesNumber reports whether the two names embed a common number, treating
// any digit run as a candidate VLAN ID.
func sharesNumber(a, b string) bool {
	nums := digitRuns.FindAllString(a, -1)
	if len(nums) == 0 {
		return false
	}
	set := make(map[string]struct{}, len(nums))
	for _, n := range nums {
		set[strings.TrimLeft(n, "0")] = struct{}{}
	}
	for _, n := range digitRuns.FindAllString(b, -1) {
		if _, ok := set[strings.TrimLeft(n, "0")]; ok {
			return true
		}
	}
	return false
}

// sharedKeywords counts vocabulary keywords present in both names. Each name
// contributes a keyword at most once, at its most specific match.
func sharedKeywords(a, b string) int {
	count := 0
	matchedA := ""
	for _, kw := range networkKeywords {
		if strings.Contains(a, kw) && strings.Contains(b, kw) {
			// Skip keywords that are substrings of an already-counted,
			// more specific match (e.g. "prod" inside "production").
			if matchedA != "" && strings.Contains(matchedA, kw) {
				continue
			}
			matchedA = kw
			count++
		}
	}
	return count
}

// ScoredNetwork pairs a candidate network with its match score.
type ScoredNetwork struct {
	// Name is the candidate destination network name.
	Name string `json:"name"`

	// Score is the similarity score against the source network.
	Score int `json:"score"`
}

// RankNetworks scores every candidate against the source network and returns
// them sorted best-first. Ties keep the input order so the operator sees a
// stable list.
func RankNetworks(source string, candidates []string) []ScoredNetwork {
	ranked := make([]ScoredNetwork, 0, len(candidates))
	for _, c := range candidates {
		ranked = append(ranked, ScoredNetwork{
			Name:  c,
			Score: NetworkMatchScore(source, c),
		})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	return ranked
}
