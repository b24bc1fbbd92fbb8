// Package client is the Go client for the tally API: authenticated
// HTTP calls plus the live event stream.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"strings"

	"tally/internal/store"
)

// ErrUnauthorized is returned when the server rejects the session.
var ErrUnauthorized = errors.New("unauthorized")

// Client talks to one tally server. The auth cookie issued by Login is
// held in the client's jar and sent on every subsequent call.
type Client struct {
	baseURL string
	http    *http.Client
}

// New builds a client for the server at baseURL. Deadlines come from
// the per-call context; the underlying client has no global timeout so
// the long-lived event stream can share it.
func New(baseURL string) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("cookie jar: %w", err)
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Jar: jar},
	}, nil
}

// Login exchanges a password for a session cookie.
func (c *Client) Login(ctx context.Context, password string) error {
	return c.post(ctx, "/api/login", map[string]string{"password": password}, nil)
}

// CheckAuth reports whether the held session cookie is still live.
func (c *Client) CheckAuth(ctx context.Context) (bool, error) {
	err := c.get(ctx, "/api/check-auth", nil)
	if errors.Is(err, ErrUnauthorized) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Items fetches the current authoritative snapshot.
func (c *Client) Items(ctx context.Context) (store.Snapshot, error) {
	var body struct {
		Items store.Snapshot `json:"items"`
	}
	if err := c.get(ctx, "/api/items", &body); err != nil {
		return nil, err
	}
	return body.Items, nil
}

// Update sets an item's gathered count.
func (c *Client) Update(ctx context.Context, name string, gathered int) error {
	return c.post(ctx, "/api/items/update", map[string]any{
		"name":     name,
		"gathered": gathered,
	}, nil)
}

// Claim reserves claimed units of an item for claimer. A claimed value
// of zero releases the claimer's existing claim.
func (c *Client) Claim(ctx context.Context, name, claimer string, claimed int) error {
	return c.post(ctx, "/api/items/claim", map[string]any{
		"name":    name,
		"claimed": claimed,
		"claimer": claimer,
	}, nil)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Code    string `json:"code"`
			Message string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Code != "" {
			return fmt.Errorf("%s %s: %s: %s", req.Method, req.URL.Path, apiErr.Code, apiErr.Message)
		}
		return fmt.Errorf("%s %s: unexpected status %d", req.Method, req.URL.Path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
