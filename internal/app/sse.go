package app

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"tally/internal/hub"
)

// handleEvents streams snapshot pushes over SSE. The connection
// subscribes to the hub and stays open until the client disconnects; a
// comment heartbeat keeps idle proxies from reaping it.
func (s *HTTPServer) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "SERVER_ERROR", "Streaming unsupported")
		return
	}

	// The server-wide write deadline would cut the stream off; this
	// connection writes forever.
	rc := http.NewResponseController(w)
	_ = rc.SetWriteDeadline(time.Time{})

	header := w.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	sink := hub.NewChannelSink(16)
	id := s.service.Subscribe(sink)
	defer s.service.Unsubscribe(id)

	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	ticker := time.NewTicker(s.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case data := <-sink.C:
			if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
				log.Printf("app: event stream write: %v", err)
				return
			}
			flusher.Flush()
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
