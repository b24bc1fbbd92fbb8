package store

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
)

// FileStore is the shared store: the authoritative list lives in memory
// behind one mutex, and every accepted mutation rewrites the items file
// before it commits. One mutation runs to completion at a time, so the
// total order over mutations is call order.
type FileStore struct {
	path string

	mu    sync.Mutex
	items Snapshot
}

// Open loads the item list from path. A missing file is an empty store,
// not an error; a malformed or invalid file is.
func Open(path string) (*FileStore, error) {
	s := &FileStore{path: path}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read items: %w", err)
	}

	var items Snapshot
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("parse items: %w", err)
	}
	if err := validate(items); err != nil {
		return nil, fmt.Errorf("invalid items file: %w", err)
	}
	s.items = items
	return s, nil
}

// Read returns the current snapshot.
func (s *FileStore) Read() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items.Clone()
}

// Len returns the number of items.
func (s *FileStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Update sets an item's gathered count, clamped into [0, target]. The
// update path used to permit negative and over-target values; clamping
// here closes that.
func (s *FileStore) Update(name string, gathered int) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.items.Clone()
	idx := indexOf(next, name)
	if idx < 0 {
		return nil, ErrNotFound
	}
	next[idx].Gathered = clamp(gathered, 0, next[idx].Target)

	return s.commit(next)
}

// Claim advances an item's progress on behalf of a named contributor.
// delta is clamped into [0, remaining], so a stale client can neither
// push gathered past target nor claim negative progress. A zero clamped
// delta clears the claimer's existing claim; otherwise the claimer's
// claim is replaced by the newly claimed interval. One claim per
// claimer per item; intervals of different claimers may overlap.
func (s *FileStore) Claim(name, claimer string, delta int) (Snapshot, error) {
	claimer = strings.TrimSpace(claimer)
	if claimer == "" {
		return nil, fmt.Errorf("claimer required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.items.Clone()
	idx := indexOf(next, name)
	if idx < 0 {
		return nil, ErrNotFound
	}
	item := &next[idx]

	remaining := item.Target - item.Gathered
	if remaining < 0 {
		remaining = 0
	}
	claimed := clamp(delta, 0, remaining)

	if claimed == 0 {
		removeClaim(item, claimer)
	} else {
		start := item.Gathered
		item.Gathered += claimed
		removeClaim(item, claimer)
		item.Claims = append(item.Claims, Claim{
			Claimer:    claimer,
			ClaimStart: start,
			ClaimEnd:   start + claimed,
		})
	}

	return s.commit(next)
}

// commit persists next and installs it as the current list. On a write
// failure the in-memory state is left untouched, so memory and disk
// never diverge. Callers hold s.mu.
func (s *FileStore) commit(next Snapshot) (Snapshot, error) {
	data, err := json.MarshalIndent(next, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal items: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return nil, fmt.Errorf("write items: %w", err)
	}
	s.items = next
	return next.Clone(), nil
}

func indexOf(items Snapshot, name string) int {
	for i := range items {
		if items[i].Name == name {
			return i
		}
	}
	return -1
}

func removeClaim(item *Item, claimer string) {
	kept := item.Claims[:0]
	for _, c := range item.Claims {
		if c.Claimer != claimer {
			kept = append(kept, c)
		}
	}
	if len(kept) == 0 {
		item.Claims = nil
		return
	}
	item.Claims = kept
}
