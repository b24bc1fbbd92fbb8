package auth

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

var (
	ErrPasswordExists   = errors.New("password already exists")
	ErrPasswordNotFound = errors.New("password not found")
	ErrLastPassword     = errors.New("cannot remove the last password")
)

type secretsFile struct {
	Passwords []string `yaml:"passwords"`
}

// Secrets is the shared-secret allow-list, backed by a YAML file. The
// in-memory copy is refreshed whenever the file changes on disk, so
// operators can rotate passwords without a restart.
type Secrets struct {
	path string

	mu        sync.RWMutex
	passwords []string

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// LoadSecrets reads the allow-list from path.
func LoadSecrets(path string) (*Secrets, error) {
	s := &Secrets{path: path}
	if err := s.reload(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Secrets) reload() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("read secrets: %w", err)
	}
	var parsed secretsFile
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("parse secrets: %w", err)
	}
	s.mu.Lock()
	s.passwords = parsed.Passwords
	s.mu.Unlock()
	return nil
}

// Allowed reports whether password is on the allow-list.
func (s *Secrets) Allowed(password string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.passwords {
		if p == password {
			return true
		}
	}
	return false
}

// Passwords returns a copy of the current allow-list.
func (s *Secrets) Passwords() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.passwords))
	copy(out, s.passwords)
	return out
}

// Add appends a password and persists the list.
func (s *Secrets) Add(password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.passwords {
		if p == password {
			return ErrPasswordExists
		}
	}
	next := append(append([]string(nil), s.passwords...), password)
	if err := s.write(next); err != nil {
		return err
	}
	s.passwords = next
	return nil
}

// Remove deletes a password and persists the list. The last remaining
// password cannot be removed; that would lock everyone out.
func (s *Secrets) Remove(password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	found := false
	next := make([]string, 0, len(s.passwords))
	for _, p := range s.passwords {
		if p == password {
			found = true
			continue
		}
		next = append(next, p)
	}
	if !found {
		return ErrPasswordNotFound
	}
	if len(next) == 0 {
		return ErrLastPassword
	}
	if err := s.write(next); err != nil {
		return err
	}
	s.passwords = next
	return nil
}

// write persists the list; callers hold s.mu.
func (s *Secrets) write(passwords []string) error {
	data, err := yaml.Marshal(secretsFile{Passwords: passwords})
	if err != nil {
		return fmt.Errorf("marshal secrets: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("write secrets: %w", err)
	}
	return nil
}

// Watch reloads the allow-list when the secrets file changes on disk.
// The watch is on the parent directory: editors and atomic writers
// replace the file rather than writing it in place. A reload failure
// keeps the previous list.
func (s *Secrets) Watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", filepath.Dir(s.path), err)
	}
	s.watcher = watcher
	s.done = make(chan struct{})

	go func() {
		base := filepath.Base(s.path)
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Base(event.Name) != base {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				if err := s.reload(); err != nil {
					log.Printf("secrets: reload after %s: %v", event.Op, err)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Printf("secrets: watch error: %v", err)
			case <-s.done:
				return
			}
		}
	}()
	return nil
}

// Close stops the file watch, if one is running.
func (s *Secrets) Close() error {
	if s.watcher == nil {
		return nil
	}
	close(s.done)
	return s.watcher.Close()
}
