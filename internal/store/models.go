// Package store holds the authoritative item list: one mutation at a
// time, a full snapshot out after every commit.
package store

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned when a mutation names an unknown item.
var ErrNotFound = errors.New("item not found")

// Claim is a contributor's reserved sub-range [ClaimStart, ClaimEnd) of
// an item's progress axis.
type Claim struct {
	Claimer    string `json:"claimer"`
	ClaimStart int    `json:"claim_start"`
	ClaimEnd   int    `json:"claim_end"`
}

// Item is a named unit of tracked progress. Name is the sole identity:
// unique, stable and case-sensitive.
type Item struct {
	Name     string  `json:"name"`
	Target   int     `json:"target"`
	Gathered int     `json:"gathered"`
	Claims   []Claim `json:"claims"`
}

// Completed reports whether the item has reached its target.
func (i Item) Completed() bool {
	return i.Gathered >= i.Target
}

// Snapshot is the full ordered item list at one instant, the sole unit
// of state transfer.
type Snapshot []Item

// Clone returns a deep copy, so callers can never alias store state.
func (s Snapshot) Clone() Snapshot {
	out := make(Snapshot, len(s))
	for i, item := range s {
		out[i] = item
		if item.Claims != nil {
			out[i].Claims = make([]Claim, len(item.Claims))
			copy(out[i].Claims, item.Claims)
		}
	}
	return out
}

// validate rejects structurally broken item lists at the load boundary
// rather than trusting field presence downstream. Out-of-range gathered
// values are clamped in place: legacy files may carry them.
func validate(items []Item) error {
	seen := make(map[string]bool, len(items))
	for i := range items {
		item := &items[i]
		if strings.TrimSpace(item.Name) == "" {
			return fmt.Errorf("item %d: empty name", i)
		}
		if seen[item.Name] {
			return fmt.Errorf("item %q: duplicate name", item.Name)
		}
		seen[item.Name] = true
		if item.Target < 0 {
			return fmt.Errorf("item %q: negative target %d", item.Name, item.Target)
		}
		item.Gathered = clamp(item.Gathered, 0, item.Target)
		for _, c := range item.Claims {
			if strings.TrimSpace(c.Claimer) == "" {
				return fmt.Errorf("item %q: claim with empty claimer", item.Name)
			}
			if c.ClaimEnd < c.ClaimStart {
				return fmt.Errorf("item %q: claim [%d,%d) inverted", item.Name, c.ClaimStart, c.ClaimEnd)
			}
		}
	}
	return nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
