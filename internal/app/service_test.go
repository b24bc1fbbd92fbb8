package app

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"tally/internal/store"
)

type fakeItemStore struct {
	updateFn func(name string, gathered int) (store.Snapshot, error)
	claimFn  func(name, claimer string, delta int) (store.Snapshot, error)
}

func (f *fakeItemStore) Read() store.Snapshot { return nil }

func (f *fakeItemStore) Update(name string, gathered int) (store.Snapshot, error) {
	return f.updateFn(name, gathered)
}

func (f *fakeItemStore) Claim(name, claimer string, delta int) (store.Snapshot, error) {
	return f.claimFn(name, claimer, delta)
}

func TestLoginIssuesRevocableToken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	token, err := env.service.Login(ctx, "hunter2")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if err := env.service.Authenticate(ctx, token); err != nil {
		t.Fatalf("fresh token must authenticate: %v", err)
	}
	if err := env.service.Logout(ctx, token); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	if err := env.service.Authenticate(ctx, token); err == nil {
		t.Error("revoked token must not authenticate")
	}
}

func TestLoginTrimsPassword(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.service.Login(context.Background(), "  hunter2  "); err != nil {
		t.Errorf("whitespace around the password should be ignored: %v", err)
	}
}

func TestLoginUnknownPassword(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.service.Login(context.Background(), "nope")
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Status != http.StatusUnauthorized {
		t.Fatalf("expected 401 domain error, got %v", err)
	}
}

func TestLogoutUnparseableTokenIsNoOp(t *testing.T) {
	env := newTestEnv(t)
	if err := env.service.Logout(context.Background(), "garbage"); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
}

func TestClaimItemRejectsBlankClaimer(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.service.ClaimItem("Oak Planks", "   ", 5)
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Code != "INVALID_CLAIMER" {
		t.Fatalf("expected INVALID_CLAIMER, got %v", err)
	}
}

func TestStoreErrorsMapToDomainErrors(t *testing.T) {
	env := newTestEnv(t)
	env.service.store = &fakeItemStore{
		updateFn: func(string, int) (store.Snapshot, error) {
			return nil, store.ErrNotFound
		},
		claimFn: func(string, string, int) (store.Snapshot, error) {
			return nil, errors.New("disk full")
		},
	}

	_, err := env.service.UpdateItem("x", 1)
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Status != http.StatusNotFound {
		t.Fatalf("expected 404 domain error, got %v", err)
	}

	_, err = env.service.ClaimItem("x", "steve", 1)
	if errors.As(err, &domainErr) {
		t.Fatalf("infrastructure errors must not map to domain errors, got %v", err)
	}
}

func TestFailedMutationDoesNotBroadcast(t *testing.T) {
	env := newTestEnv(t)
	sink := &recordingSink{}
	env.hub.Subscribe(sink)

	if _, err := env.service.UpdateItem("Missing", 1); err == nil {
		t.Fatal("expected error")
	}
	if len(sink.messages) != 0 {
		t.Errorf("failed mutation must not broadcast, got %d messages", len(sink.messages))
	}
}
