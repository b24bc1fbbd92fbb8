package board

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"

	"tally/internal/store"
)

// Merge reorders incoming to follow a stored name order: stored names
// come first, in stored order, skipping names no longer present; items
// the stored order has never seen are appended in incoming order.
func Merge(stored []string, incoming store.Snapshot) store.Snapshot {
	if len(stored) == 0 {
		return incoming.Clone()
	}

	byName := make(map[string]int, len(incoming))
	for i, item := range incoming {
		byName[item.Name] = i
	}

	out := make(store.Snapshot, 0, len(incoming))
	seen := make(map[string]bool, len(stored))
	for _, name := range stored {
		if seen[name] {
			continue
		}
		seen[name] = true
		if i, ok := byName[name]; ok {
			out = append(out, incoming[i])
		}
	}
	for _, item := range incoming {
		if !seen[item.Name] {
			out = append(out, item)
		}
	}
	return out.Clone()
}

// OrderFile persists the manual item order between sessions.
type OrderFile struct {
	path string
}

func NewOrderFile(path string) *OrderFile {
	return &OrderFile{path: path}
}

// DefaultOrderPath places the order file under the user config
// directory.
func DefaultOrderPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "tally", "order.json"), nil
}

// Load returns the stored name order. Any failure, including a missing
// or corrupt file, is logged and treated as having no stored order.
func (f *OrderFile) Load() []string {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("order: read %s: %v", f.path, err)
		}
		return nil
	}
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		log.Printf("order: parse %s: %v", f.path, err)
		return nil
	}
	return names
}

// Save writes the name order, creating parent directories as needed.
func (f *OrderFile) Save(names []string) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(names, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(f.path, data, 0o644)
}
