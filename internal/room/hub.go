// Package room is the in-process messaging side of a collaboration session:
// a fan-out hub that carries the coordinator's notifications (turn grants,
// decisions, phase advances) to whoever listens on a session's room, plus an
// SSE handler for live observation. The coordinator only produces payloads;
// delivery happens here or in whatever replaces this hub in production.
package room

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/quorumlabs/roundtable/internal/otel"
)

// AllRooms subscribes to every room on the hub.
const AllRooms = "*"

type subscriber struct {
	room string
	ch   chan []byte
}

// Hub routes JSON events to room subscribers. Safe for concurrent use.
type Hub struct {
	mu   sync.RWMutex
	subs map[chan []byte]*subscriber
}

func NewHub() *Hub {
	return &Hub{subs: make(map[chan []byte]*subscriber)}
}

// Subscribe registers a listener for one room (or AllRooms). The returned
// channel is closed by Unsubscribe.
func (h *Hub) Subscribe(roomID string) chan []byte {
	ch := make(chan []byte, 256)
	h.mu.Lock()
	h.subs[ch] = &subscriber{room: roomID, ch: ch}
	h.mu.Unlock()
	otel.AddRoomSubscriber()
	return ch
}

func (h *Hub) Unsubscribe(ch chan []byte) {
	h.mu.Lock()
	if _, ok := h.subs[ch]; ok {
		delete(h.subs, ch)
		close(ch)
		otel.RemoveRoomSubscriber()
	}
	h.mu.Unlock()
}

// Publish marshals the event and fans it out to the room's subscribers and to
// wildcard listeners.
func (h *Hub) Publish(roomID string, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	otel.RecordRoomEvent(context.Background())
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, sub := range h.subs {
		if sub.room != AllRooms && sub.room != roomID {
			continue
		}
		select {
		case sub.ch <- b:
		default:
			// Drop if subscriber is too slow; prevents global backpressure.
		}
	}
}

// PublishJSON broadcasts to every subscriber regardless of room. It satisfies
// the coordinator's Notifier interface; coordinator events carry their room id
// in the payload.
func (h *Hub) PublishJSON(v any) {
	room := AllRooms
	if ev, ok := v.(map[string]any); ok {
		if id, ok := ev["room_id"].(string); ok && id != "" {
			room = id
		}
	}
	if room == AllRooms {
		b, err := json.Marshal(v)
		if err != nil {
			return
		}
		otel.RecordRoomEvent(context.Background())
		h.mu.RLock()
		defer h.mu.RUnlock()
		for _, sub := range h.subs {
			select {
			case sub.ch <- b:
			default:
			}
		}
		return
	}
	h.Publish(room, v)
}

// Handler streams room events as SSE. The room is chosen with ?room=<id>;
// omitting it follows every room.
func (h *Hub) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "streaming unsupported", http.StatusInternalServerError)
			return
		}

		room := r.URL.Query().Get("room")
		if room == "" {
			room = AllRooms
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")

		ch := h.Subscribe(room)
		defer h.Unsubscribe(ch)

		// Initial ping so clients know the stream is live.
		_, _ = fmt.Fprintf(w, "data: %s\n\n", `{"type":"connected"}`)
		flusher.Flush()

		keepalive := time.NewTicker(30 * time.Second)
		defer keepalive.Stop()

		ctx := r.Context()
		for {
			select {
			case <-ctx.Done():
				return
			case <-keepalive.C:
				// Comment keepalive.
				_, _ = fmt.Fprint(w, ": keepalive\n\n")
				flusher.Flush()
			case msg, ok := <-ch:
				if !ok {
					return
				}
				_, _ = fmt.Fprintf(w, "data: %s\n\n", string(msg))
				flusher.Flush()
			}
		}
	}
}
