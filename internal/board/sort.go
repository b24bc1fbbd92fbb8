// Package board implements the client-side display pipeline: explicit
// sorting, persisted manual order, and the reconciliation state machine
// that keeps authoritative pushes from disrupting an active gesture.
package board

import (
	"sort"
	"strings"

	"tally/internal/store"
)

// SortMode selects the explicit sort's secondary key.
type SortMode string

const (
	SortNone         SortMode = "none"
	SortAlphabetical SortMode = "alphabetical"
	SortProgress     SortMode = "progress"
	SortTarget       SortMode = "target"
)

// FinishedPriority optionally partitions completed items before or
// after incomplete ones, ahead of the secondary key.
type FinishedPriority string

const (
	FinishedNeutral FinishedPriority = "neutral"
	FinishedFirst   FinishedPriority = "first"
	FinishedLast    FinishedPriority = "last"
)

// Sort returns items in the requested total order. SortNone returns the
// input order unchanged and skips the finished partition. The sort is
// stable: ties keep their incoming relative order.
func Sort(items store.Snapshot, mode SortMode, finished FinishedPriority) store.Snapshot {
	out := items.Clone()
	if mode == SortNone {
		return out
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]

		if finished != FinishedNeutral && a.Completed() != b.Completed() {
			if finished == FinishedFirst {
				return a.Completed()
			}
			return b.Completed()
		}

		switch mode {
		case SortAlphabetical:
			return lessName(a.Name, b.Name)
		case SortProgress:
			return progress(a) > progress(b)
		case SortTarget:
			return a.Target > b.Target
		}
		return false
	})
	return out
}

// lessName compares names case-insensitively first, so "apple" sorts
// before "Zeta"; the raw name breaks exact folded ties.
func lessName(a, b string) bool {
	la, lb := strings.ToLower(a), strings.ToLower(b)
	if la != lb {
		return la < lb
	}
	return a < b
}

func progress(item store.Item) float64 {
	if item.Target <= 0 {
		return 0
	}
	return float64(item.Gathered) / float64(item.Target)
}
