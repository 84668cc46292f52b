package room

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestHub_roomScopedPublish(t *testing.T) {
	hub := NewHub()
	a := hub.Subscribe("room-a")
	b := hub.Subscribe("room-b")
	all := hub.Subscribe(AllRooms)
	defer hub.Unsubscribe(a)
	defer hub.Unsubscribe(b)
	defer hub.Unsubscribe(all)

	hub.Publish("room-a", map[string]string{"type": "turn_granted"})

	msg := <-a
	if !strings.Contains(string(msg), "turn_granted") {
		t.Errorf("room-a: got %s", msg)
	}
	msg = <-all
	if !strings.Contains(string(msg), "turn_granted") {
		t.Errorf("wildcard: got %s", msg)
	}
	select {
	case msg := <-b:
		t.Errorf("room-b should not receive room-a events, got %s", msg)
	default:
	}
}

func TestHub_publishJSONRoutesByRoomID(t *testing.T) {
	hub := NewHub()
	a := hub.Subscribe("room-a")
	b := hub.Subscribe("room-b")
	defer hub.Unsubscribe(a)
	defer hub.Unsubscribe(b)

	hub.PublishJSON(map[string]any{"type": "decision_recorded", "room_id": "room-a"})
	msg := <-a
	if !strings.Contains(string(msg), "decision_recorded") {
		t.Errorf("room-a: got %s", msg)
	}
	select {
	case msg := <-b:
		t.Errorf("room-b should not receive the event, got %s", msg)
	default:
	}

	// Without a room id the event goes everywhere.
	hub.PublishJSON(map[string]any{"type": "announcement"})
	for name, ch := range map[string]chan []byte{"a": a, "b": b} {
		msg := <-ch
		if !strings.Contains(string(msg), "announcement") {
			t.Errorf("%s: got %s", name, msg)
		}
	}
}

func TestHub_unsubscribeCloses(t *testing.T) {
	hub := NewHub()
	ch := hub.Subscribe(AllRooms)
	hub.Unsubscribe(ch)
	if _, ok := <-ch; ok {
		t.Error("expected channel closed after Unsubscribe")
	}
	// Double unsubscribe is a no-op.
	hub.Unsubscribe(ch)
}

func TestHub_Handler(t *testing.T) {
	hub := NewHub()
	handler := hub.Handler()
	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequestWithContext(ctx, http.MethodGet, "/events?room=room-a", nil)
	rec := httptest.NewRecorder()
	done := make(chan struct{})
	go func() {
		handler(rec, req)
		close(done)
	}()
	// Wait for handler to send "connected" then stop (avoid reading rec.Body while handler writes - race).
	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done
	sc := bufio.NewScanner(rec.Body)
	var found bool
	for sc.Scan() {
		if strings.Contains(sc.Text(), "connected") {
			found = true
			break
		}
	}
	if err := sc.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if !found {
		t.Error("expected response to contain \"connected\"")
	}
}
