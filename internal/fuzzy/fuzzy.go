// Package fuzzy scores a free-text query against item names for the
// live search filter.
package fuzzy

import (
	"math"
	"sort"
	"strings"
)

// Result is the outcome of matching one pattern against one candidate.
// Positions holds the rune indices of the matched characters, in order,
// for highlighting.
type Result struct {
	Matched   bool
	Score     float64
	Positions []int
}

// Match performs greedy left-to-right subsequence matching of pattern
// against candidate, case-insensitively, scanning the candidate once.
// The candidate matches iff every pattern character is consumed.
//
// Scoring favors matches at word starts (+8 after start/space/hyphen/
// underscore), runs of consecutive matches (escalating +5, +6, ...
// versus the flat +1 for a scattered match), compactness (0.5 penalty
// per gap position between the first and last match) and shorter
// candidates (+10/(length+1)). A non-match scores negative infinity.
func Match(pattern, candidate string) Result {
	if pattern == "" {
		return Result{Matched: true, Score: 0}
	}

	p := []rune(strings.ToLower(pattern))
	c := []rune(strings.ToLower(candidate))

	var (
		positions   []int
		score       float64
		consecutive int
		pi          int
	)
	for ci := 0; pi < len(p) && ci < len(c); ci++ {
		if p[pi] != c[ci] {
			continue
		}
		if len(positions) > 0 && positions[len(positions)-1] == ci-1 {
			consecutive++
			score += float64(4 + consecutive)
		} else {
			consecutive = 0
			score++
		}
		if ci == 0 || c[ci-1] == ' ' || c[ci-1] == '-' || c[ci-1] == '_' {
			score += 8
		}
		positions = append(positions, ci)
		pi++
	}

	if pi < len(p) {
		return Result{Matched: false, Score: math.Inf(-1)}
	}

	gaps := positions[len(positions)-1] - positions[0] - len(positions) + 1
	score -= 0.5 * float64(gaps)
	score += 10 / float64(len(c)+1)

	return Result{Matched: true, Score: score, Positions: positions}
}

// Ranked pairs a candidate with its match result.
type Ranked struct {
	Index  int
	Name   string
	Result Result
}

// Rank filters names to those matching pattern and orders them by
// descending score. Ties keep their original relative order. Index is
// the candidate's position in the input slice.
func Rank(pattern string, names []string) []Ranked {
	ranked := make([]Ranked, 0, len(names))
	for i, name := range names {
		r := Match(pattern, name)
		if !r.Matched {
			continue
		}
		ranked = append(ranked, Ranked{Index: i, Name: name, Result: r})
	}
	sort.SliceStable(ranked, func(a, b int) bool {
		return ranked[a].Result.Score > ranked[b].Result.Score
	})
	return ranked
}
