package app

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"tally/internal/auth"
	"tally/internal/hub"
	"tally/internal/session"
	"tally/internal/store"
)

type testEnv struct {
	service *Service
	server  *HTTPServer
	hub     *hub.Hub
	store   *store.FileStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()

	secretsPath := filepath.Join(dir, "secrets.yaml")
	if err := os.WriteFile(secretsPath, []byte("passwords:\n  - hunter2\n  - spare\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	secrets, err := auth.LoadSecrets(secretsPath)
	if err != nil {
		t.Fatalf("load secrets: %v", err)
	}

	itemsPath := filepath.Join(dir, "items.json")
	seed := store.Snapshot{
		{Name: "Oak Planks", Target: 64, Gathered: 12},
		{Name: "Stone", Target: 10, Gathered: 10},
	}
	data, err := json.Marshal(seed)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(itemsPath, data, 0o644); err != nil {
		t.Fatal(err)
	}
	st, err := store.Open(itemsPath)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}

	h := hub.New()
	svc := NewService(st, h, secrets, session.NewMemoryStore(), []byte("test-secret"), time.Hour)
	return &testEnv{
		service: svc,
		server:  NewHTTPServer(svc, "*"),
		hub:     h,
		store:   st,
	}
}

// login performs the login round trip and returns the session cookie.
func (e *testEnv) login(t *testing.T) *http.Cookie {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/login", bytes.NewBufferString(`{"password":"hunter2"}`))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("login: expected status 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	for _, cookie := range rr.Result().Cookies() {
		if cookie.Name == authCookie && cookie.Value != "" {
			return cookie
		}
	}
	t.Fatal("login: no auth cookie set")
	return nil
}

// request runs an authenticated request through the handler.
func (e *testEnv) request(t *testing.T, method, path, body string, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Buffer
	if body == "" {
		reader = bytes.NewBuffer(nil)
	} else {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rr := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rr, req)
	return rr
}

func decodeResponse(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse response %q: %v", rr.Body.String(), err)
	}
	return payload
}
