package ui

import (
	"sort"
	"strings"
)

const (
	// DefaultMaxDistance is the largest edit distance still suggested
	DefaultMaxDistance = 3
	// DefaultMaxSuggestions caps the number of suggestions
	DefaultMaxSuggestions = 3
)

// SuggestNames returns the candidates closest to target, ignoring case.
// Qualified candidates such as "shapes.Circle" also match on their last
// segment, so "circel" suggests "shapes.Circle".
func SuggestNames(target string, candidates []string) []string {
	type scored struct {
		value    string
		distance int
	}

	target = strings.ToLower(target)
	var matches []scored
	seen := make(map[string]bool, len(candidates))
	for _, candidate := range candidates {
		if seen[candidate] {
			continue
		}
		seen[candidate] = true

		lower := strings.ToLower(candidate)
		dist := LevenshteinDistance(target, lower)
		if i := strings.LastIndexByte(lower, '.'); i >= 0 {
			if d := LevenshteinDistance(target, lower[i+1:]); d < dist {
				dist = d
			}
		}
		if dist <= DefaultMaxDistance {
			matches = append(matches, scored{candidate, dist})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].distance < matches[j].distance
	})

	out := make([]string, 0, DefaultMaxSuggestions)
	for i := 0; i < len(matches) && i < DefaultMaxSuggestions; i++ {
		out = append(out, matches[i].value)
	}
	return out
}

// LevenshteinDistance counts the single-byte insertions, deletions and
// substitutions needed to turn s1 into s2.
func LevenshteinDistance(s1, s2 string) int {
	if len(s1) == 0 {
		return len(s2)
	}
	if len(s2) == 0 {
		return len(s1)
	}

	prev := make([]int, len(s2)+1)
	cur := make([]int, len(s2)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(s1); i++ {
		cur[0] = i
		for j := 1; j <= len(s2); j++ {
			cost := 1
			if s1[i-1] == s2[j-1] {
				cost = 0
			}
			cur[j] = min3(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(s2)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
