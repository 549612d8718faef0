package resolver

import (
	"sort"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// suggest returns the closest candidate to target, or nil. Subsequence
// matches (paragrph -> paragraph) win; otherwise the nearest name within
// edit distance 2.
func suggest(target string, candidates []string) []string {
	if target == "" || len(candidates) == 0 {
		return nil
	}

	ranks := fuzzy.RankFindFold(target, candidates)
	if len(ranks) > 0 {
		sort.Sort(ranks)
		return []string{ranks[0].Target}
	}

	best, bestDist := "", 3
	for _, c := range candidates {
		if d := fuzzy.LevenshteinDistance(target, c); d < bestDist {
			best, bestDist = c, d
		}
	}
	if best == "" {
		return nil
	}
	return []string{best}
}
