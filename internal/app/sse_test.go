package app

import (
	"bufio"
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"tally/internal/hub"
)

// startStream logs in over a real server and opens the event stream.
func startStream(t *testing.T, env *testEnv) (*httptest.Server, *bufio.Reader, func()) {
	t.Helper()
	srv := httptest.NewServer(env.server.Handler())
	t.Cleanup(srv.Close)

	resp, err := http.Post(srv.URL+"/api/login", "application/json", bytes.NewBufferString(`{"password":"hunter2"}`))
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	resp.Body.Close()
	var cookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == authCookie {
			cookie = c
		}
	}
	if cookie == nil {
		t.Fatal("login set no auth cookie")
	}

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/events", nil)
	if err != nil {
		t.Fatal(err)
	}
	req.AddCookie(cookie)
	stream, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}
	if stream.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200 on stream, got %d", stream.StatusCode)
	}
	if got := stream.Header.Get("Content-Type"); got != "text/event-stream" {
		t.Fatalf("expected text/event-stream, got %q", got)
	}
	return srv, bufio.NewReader(stream.Body), func() { stream.Body.Close() }
}

func readLine(t *testing.T, r *bufio.Reader) string {
	t.Helper()
	type result struct {
		line string
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		line, err := r.ReadString('\n')
		ch <- result{line, err}
	}()
	select {
	case res := <-ch:
		if res.err != nil {
			t.Fatalf("read stream: %v", res.err)
		}
		return strings.TrimRight(res.line, "\n")
	case <-time.After(5 * time.Second):
		t.Fatal("timed out reading stream")
		return ""
	}
}

func TestEventStreamGreetsThenPushesUpdates(t *testing.T) {
	env := newTestEnv(t)
	_, reader, closeStream := startStream(t, env)
	defer closeStream()

	if got := readLine(t, reader); got != ": connected" {
		t.Fatalf("expected greeting comment, got %q", got)
	}
	readLine(t, reader) // blank separator

	// Wait for the subscription to land before mutating.
	deadline := time.Now().Add(5 * time.Second)
	for env.hub.Len() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("stream never subscribed")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if _, err := env.service.UpdateItem("Oak Planks", 40); err != nil {
		t.Fatalf("UpdateItem failed: %v", err)
	}

	line := readLine(t, reader)
	if !strings.HasPrefix(line, "data: ") {
		t.Fatalf("expected data frame, got %q", line)
	}
	var msg hub.Message
	if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &msg); err != nil {
		t.Fatalf("parse frame: %v", err)
	}
	if msg.Type != "update" {
		t.Errorf("expected type update, got %q", msg.Type)
	}
	if len(msg.Items) != 2 || msg.Items[0].Gathered != 40 {
		t.Errorf("unexpected items %v", msg.Items)
	}
}

func TestEventStreamKeepAliveComments(t *testing.T) {
	env := newTestEnv(t)
	env.server.keepAlive = 20 * time.Millisecond
	_, reader, closeStream := startStream(t, env)
	defer closeStream()

	readLine(t, reader) // greeting
	readLine(t, reader) // blank

	if got := readLine(t, reader); got != ": keep-alive" {
		t.Fatalf("expected keep-alive comment, got %q", got)
	}
}

func TestDisconnectRemovesSubscription(t *testing.T) {
	env := newTestEnv(t)
	_, reader, closeStream := startStream(t, env)

	readLine(t, reader)
	deadline := time.Now().Add(5 * time.Second)
	for env.hub.Len() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("stream never subscribed")
		}
		time.Sleep(5 * time.Millisecond)
	}

	closeStream()

	deadline = time.Now().Add(5 * time.Second)
	for env.hub.Len() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscription not removed after disconnect")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
