package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Backups periodically copies the store's written state into timestamped
// snapshot files and prunes old ones. It only ever reads the store.
type Backups struct {
	store *FileStore
	dir   string
	keep  int
}

func NewBackups(store *FileStore, dir string, keep int) *Backups {
	if keep <= 0 {
		keep = 50
	}
	return &Backups{store: store, dir: dir, keep: keep}
}

// Run takes a backup immediately and then on every tick until ctx ends.
// Failures are logged; the store is never affected.
func (b *Backups) Run(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		if err := b.RunOnce(); err != nil {
			log.Printf("backup: %v", err)
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}

// RunOnce writes one snapshot file and prunes. An empty store is skipped:
// there is nothing worth retaining and it would rotate real backups out.
func (b *Backups) RunOnce() error {
	items := b.store.Read()
	if len(items) == 0 {
		return nil
	}

	if err := os.MkdirAll(b.dir, 0o755); err != nil {
		return fmt.Errorf("create backups dir: %w", err)
	}

	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	timestamp := time.Now().UTC().Format("2006-01-02T15-04-05Z07-00")
	path := filepath.Join(b.dir, fmt.Sprintf("items-%s.json", timestamp))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write backup: %w", err)
	}

	return b.prune()
}

// prune removes the oldest backups beyond the retention count. The
// timestamp format sorts lexicographically, so name order is age order.
func (b *Backups) prune() error {
	entries, err := os.ReadDir(b.dir)
	if err != nil {
		return fmt.Errorf("read backups dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), "items-") && strings.HasSuffix(e.Name(), ".json") {
			names = append(names, e.Name())
		}
	}

	sort.Strings(names)
	for len(names) > b.keep {
		oldest := names[0]
		names = names[1:]
		if err := os.Remove(filepath.Join(b.dir, oldest)); err != nil {
			return fmt.Errorf("remove %s: %w", oldest, err)
		}
	}
	return nil
}
