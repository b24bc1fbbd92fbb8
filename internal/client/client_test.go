package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"tally/internal/store"
)

func newTestServer(t *testing.T, handler http.Handler) (*httptest.Server, *Client) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := New(srv.URL)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return srv, c
}

func TestLoginStoresCookieForLaterCalls(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/login", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Password != "hunter2" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "auth_token", Value: "tok"})
		json.NewEncoder(w).Encode(map[string]bool{"ok": true})
	})
	mux.HandleFunc("/api/check-auth", func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie("auth_token")
		if err != nil || cookie.Value != "tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(map[string]bool{"ok": true})
	})
	_, c := newTestServer(t, mux)

	ctx := context.Background()
	if ok, err := c.CheckAuth(ctx); err != nil || ok {
		t.Fatalf("expected unauthenticated before login, got ok=%v err=%v", ok, err)
	}
	if err := c.Login(ctx, "hunter2"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if ok, err := c.CheckAuth(ctx); err != nil || !ok {
		t.Fatalf("expected authenticated after login, got ok=%v err=%v", ok, err)
	}
}

func TestLoginWrongPasswordReturnsUnauthorized(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/login", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	_, c := newTestServer(t, mux)

	err := c.Login(context.Background(), "wrong")
	if err != ErrUnauthorized {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
}

func TestItemsDecodesSnapshot(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/items", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"items": store.Snapshot{
				{Name: "Oak Planks", Target: 64, Gathered: 12},
			},
		})
	})
	_, c := newTestServer(t, mux)

	items, err := c.Items(context.Background())
	if err != nil {
		t.Fatalf("Items failed: %v", err)
	}
	if len(items) != 1 || items[0].Name != "Oak Planks" || items[0].Gathered != 12 {
		t.Errorf("unexpected snapshot %v", items)
	}
}

func TestUpdateSendsNameAndGathered(t *testing.T) {
	var got map[string]any
	mux := http.NewServeMux()
	mux.HandleFunc("/api/items/update", func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]bool{"ok": true})
	})
	_, c := newTestServer(t, mux)

	if err := c.Update(context.Background(), "Oak Planks", 30); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if got["name"] != "Oak Planks" || got["gathered"] != float64(30) {
		t.Errorf("unexpected body %v", got)
	}
}

func TestClaimSendsClaimerAndAmount(t *testing.T) {
	var got map[string]any
	mux := http.NewServeMux()
	mux.HandleFunc("/api/items/claim", func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]bool{"ok": true})
	})
	_, c := newTestServer(t, mux)

	if err := c.Claim(context.Background(), "Oak Planks", "steve", 10); err != nil {
		t.Fatalf("Claim failed: %v", err)
	}
	if got["name"] != "Oak Planks" || got["claimer"] != "steve" || got["claimed"] != float64(10) {
		t.Errorf("unexpected body %v", got)
	}
}

func TestServerErrorSurfacesCodeAndMessage(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/items/update", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"code": "NOT_FOUND", "error": "Item not found"})
	})
	_, c := newTestServer(t, mux)

	err := c.Update(context.Background(), "Missing", 1)
	if err == nil {
		t.Fatal("expected error")
	}
	if want := "NOT_FOUND"; !strings.Contains(err.Error(), want) {
		t.Errorf("error %q should mention %q", err, want)
	}
}
