package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"tally/internal/hub"
	"tally/internal/store"
)

// Events opens the server's event stream and delivers each pushed
// snapshot on the returned channel. Comment lines and frames that fail
// to parse are skipped. The channel closes when the stream ends or the
// context is cancelled; reconnecting is the caller's job.
func (c *Client) Events(ctx context.Context) (<-chan store.Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/events", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		resp.Body.Close()
		return nil, ErrUnauthorized
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("GET /events: unexpected status %d", resp.StatusCode)
	}

	ch := make(chan store.Snapshot)
	go func() {
		defer close(ch)
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

		var data bytes.Buffer
		for scanner.Scan() {
			line := scanner.Text()
			switch {
			case line == "":
				if data.Len() > 0 {
					if items, ok := parseFrame(data.Bytes()); ok {
						select {
						case ch <- items:
						case <-ctx.Done():
							return
						}
					}
					data.Reset()
				}
			case strings.HasPrefix(line, ":"):
				// keep-alive or greeting comment
			case strings.HasPrefix(line, "data:"):
				data.WriteString(strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
			}
		}
	}()
	return ch, nil
}

func parseFrame(data []byte) (store.Snapshot, bool) {
	var msg hub.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, false
	}
	if msg.Type != "update" {
		return nil, false
	}
	return msg.Items, true
}
