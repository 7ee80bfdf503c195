package ui

import (
	"sort"
	"strings"
)

// Suggestion limits.
const (
	DefaultMaxDistance    = 3
	DefaultMaxSuggestions = 3
)

// FindSimilar returns up to DefaultMaxSuggestions candidates within
// DefaultMaxDistance edits of target, closest first. Comparison ignores
// case. A candidate containing target is always suggested.
//
//	FindSimilar("vote.cats", []string{"vote.cast", "vote.tally"}) // [vote.cast]
func FindSimilar(target string, candidates []string) []string {
	type match struct {
		value    string
		distance int
	}

	want := strings.ToLower(target)
	var matches []match
	for _, c := range candidates {
		got := strings.ToLower(c)
		d := LevenshteinDistance(want, got)
		if d > DefaultMaxDistance && !(want != "" && strings.Contains(got, want)) {
			continue
		}
		matches = append(matches, match{value: c, distance: d})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].distance != matches[j].distance {
			return matches[i].distance < matches[j].distance
		}
		return matches[i].value < matches[j].value
	})

	out := make([]string, 0, DefaultMaxSuggestions)
	for i := 0; i < len(matches) && i < DefaultMaxSuggestions; i++ {
		out = append(out, matches[i].value)
	}
	return out
}

// LevenshteinDistance is the number of single-rune insertions, deletions
// and substitutions that turn a into b.
func LevenshteinDistance(a, b string) int {
	s, t := []rune(a), []rune(b)
	prev := make([]int, len(t)+1)
	curr := make([]int, len(t)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(s); i++ {
		curr[0] = i
		for j := 1; j <= len(t); j++ {
			cost := 1
			if s[i-1] == t[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(t)]
}
