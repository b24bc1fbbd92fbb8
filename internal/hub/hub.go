// Package hub fans out store snapshots to connected observers.
package hub

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"tally/internal/store"
)

// Sink is one observer's output. Send must not block indefinitely; a
// sink that cannot accept a message reports an error and is dropped.
type Sink interface {
	Send(data []byte) error
}

// Message is the wire shape pushed to observers.
type Message struct {
	Type  string         `json:"type"`
	Items store.Snapshot `json:"items"`
}

// Hub owns the observer set. Delivery is fire-and-forget, at most once
// per observer: no retry, no backpressure, no acknowledgment. An
// observer that missed a publish catches up with a full read on
// reconnect.
type Hub struct {
	mu     sync.Mutex
	sinks  map[int]Sink
	nextID int
}

func New() *Hub {
	return &Hub{sinks: make(map[int]Sink)}
}

// Subscribe registers a sink and returns its handle.
func (h *Hub) Subscribe(sink Sink) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.nextID
	h.nextID++
	h.sinks[id] = sink
	return id
}

// Unsubscribe removes a sink. Unknown handles are a no-op.
func (h *Hub) Unsubscribe(id int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.sinks, id)
}

// Len returns the number of connected observers.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sinks)
}

// Publish sends the snapshot to every subscribed sink. A failing sink
// is removed and the remaining sinks still get the message; the publish
// itself never fails on their behalf.
func (h *Hub) Publish(items store.Snapshot) error {
	data, err := json.Marshal(Message{Type: "update", Items: items})
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for id, sink := range h.sinks {
		if err := sink.Send(data); err != nil {
			log.Printf("hub: dropping observer %d: %v", id, err)
			delete(h.sinks, id)
		}
	}
	return nil
}

// ChannelSink adapts a byte channel into a Sink. Send never blocks: a
// full channel means the observer cannot keep up, and the resulting
// error gets it dropped.
type ChannelSink struct {
	C chan []byte
}

func NewChannelSink(buffer int) *ChannelSink {
	return &ChannelSink{C: make(chan []byte, buffer)}
}

func (s *ChannelSink) Send(data []byte) error {
	select {
	case s.C <- data:
		return nil
	default:
		return fmt.Errorf("observer channel full")
	}
}
