// Package app wires the store, hub, and auth layers behind the HTTP
// surface.
package app

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"tally/internal/auth"
	"tally/internal/hub"
	"tally/internal/session"
	"tally/internal/store"
)

// itemStore is the slice of the store the service needs.
type itemStore interface {
	Read() store.Snapshot
	Update(name string, gathered int) (store.Snapshot, error)
	Claim(name, claimer string, delta int) (store.Snapshot, error)
}

type Service struct {
	store       itemStore
	hub         *hub.Hub
	secrets     *auth.Secrets
	sessions    session.Store
	tokenSecret []byte
	sessionTTL  time.Duration
}

func NewService(st itemStore, h *hub.Hub, secrets *auth.Secrets, sessions session.Store, tokenSecret []byte, sessionTTL time.Duration) *Service {
	return &Service{
		store:       st,
		hub:         h,
		secrets:     secrets,
		sessions:    sessions,
		tokenSecret: tokenSecret,
		sessionTTL:  sessionTTL,
	}
}

// SessionTTL is the lifetime of issued sessions, used for cookie
// expiry.
func (s *Service) SessionTTL() time.Duration {
	return s.sessionTTL
}

// Login checks password against the allow list and mints a signed
// session token.
func (s *Service) Login(ctx context.Context, password string) (string, error) {
	if !s.secrets.Allowed(strings.TrimSpace(password)) {
		return "", domainError(http.StatusUnauthorized, "INVALID_PASSWORD", "Invalid password")
	}

	jti := auth.NewSessionID()
	if err := s.sessions.Save(ctx, jti, s.sessionTTL); err != nil {
		return "", err
	}
	token, err := auth.IssueToken(s.tokenSecret, auth.Claims{
		JTI: jti,
		Exp: time.Now().Add(s.sessionTTL).Unix(),
	})
	if err != nil {
		return "", err
	}
	return token, nil
}

// Authenticate verifies a token's signature, expiry, and that its
// session has not been revoked.
func (s *Service) Authenticate(ctx context.Context, token string) error {
	claims, err := auth.ParseToken(s.tokenSecret, token)
	if err != nil {
		return domainError(http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized")
	}
	ok, err := s.sessions.Exists(ctx, claims.JTI)
	if err != nil {
		return err
	}
	if !ok {
		return domainError(http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized")
	}
	return nil
}

// Logout revokes the token's session. An unparseable token is already
// logged out.
func (s *Service) Logout(ctx context.Context, token string) error {
	claims, err := auth.ParseToken(s.tokenSecret, token)
	if err != nil {
		return nil
	}
	return s.sessions.Revoke(ctx, claims.JTI)
}

// Items returns the current snapshot.
func (s *Service) Items() store.Snapshot {
	return s.store.Read()
}

// UpdateItem sets an item's gathered count and broadcasts the new
// snapshot.
func (s *Service) UpdateItem(name string, gathered int) (store.Snapshot, error) {
	items, err := s.store.Update(name, gathered)
	if err != nil {
		return nil, mapStoreError(err)
	}
	s.publish(items)
	return items, nil
}

// ClaimItem reserves part of an item for a claimer and broadcasts the
// new snapshot. The claimer name is required.
func (s *Service) ClaimItem(name, claimer string, claimed int) (store.Snapshot, error) {
	claimer = strings.TrimSpace(claimer)
	if claimer == "" {
		return nil, domainError(http.StatusBadRequest, "INVALID_CLAIMER", "Claimer is required")
	}
	items, err := s.store.Claim(name, claimer, claimed)
	if err != nil {
		return nil, mapStoreError(err)
	}
	s.publish(items)
	return items, nil
}

// Passwords lists the current allow list.
func (s *Service) Passwords() []string {
	return s.secrets.Passwords()
}

// AddPassword appends a password to the allow list.
func (s *Service) AddPassword(password string) error {
	password = strings.TrimSpace(password)
	if password == "" {
		return domainError(http.StatusBadRequest, "INVALID_PASSWORD", "Password is required")
	}
	if err := s.secrets.Add(password); err != nil {
		if errors.Is(err, auth.ErrPasswordExists) {
			return domainError(http.StatusConflict, "PASSWORD_EXISTS", "Password already exists")
		}
		return err
	}
	return nil
}

// RemovePassword drops a password from the allow list. The last
// password cannot be removed. Existing sessions stay valid.
func (s *Service) RemovePassword(password string) error {
	if err := s.secrets.Remove(strings.TrimSpace(password)); err != nil {
		switch {
		case errors.Is(err, auth.ErrPasswordNotFound):
			return domainError(http.StatusNotFound, "PASSWORD_NOT_FOUND", "Password not found")
		case errors.Is(err, auth.ErrLastPassword):
			return domainError(http.StatusConflict, "LAST_PASSWORD", "Cannot remove the last password")
		}
		return err
	}
	return nil
}

// Subscribe attaches an observer to the broadcast hub.
func (s *Service) Subscribe(sink hub.Sink) int {
	return s.hub.Subscribe(sink)
}

// Unsubscribe detaches an observer.
func (s *Service) Unsubscribe(id int) {
	s.hub.Unsubscribe(id)
}

// Ping reports session-store health for the readiness probe.
func (s *Service) Ping(ctx context.Context) error {
	return s.sessions.Ping(ctx)
}

func (s *Service) publish(items store.Snapshot) {
	if err := s.hub.Publish(items); err != nil {
		log.Printf("app: publish snapshot: %v", err)
	}
}

func mapStoreError(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return domainError(http.StatusNotFound, "NOT_FOUND", "Item not found")
	}
	return err
}
