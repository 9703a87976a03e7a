package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	ws "github.com/coder/websocket"

	"github.com/dukerupert/choreboard/internal/auth"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// mockClient creates a Client with a send channel but no real connection.
func mockClient(hub *Hub, householdID string) *Client {
	return &Client{
		hub:         hub,
		householdID: householdID,
		send:        make(chan []byte, sendBufferSize),
	}
}

func receive(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case data := <-c.send:
		var got Message
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		return got
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout waiting for message")
	}
	return Message{}
}

func TestRegisterUnregister(t *testing.T) {
	hub := NewHub(testLogger)

	c1 := mockClient(hub, "h1")
	c2 := mockClient(hub, "h1")
	c3 := mockClient(hub, "h2")
	hub.Register(c1)
	hub.Register(c2)
	hub.Register(c3)

	if got := hub.ClientCount("h1"); got != 2 {
		t.Fatalf("expected 2 clients in h1, got %d", got)
	}
	if got := hub.ClientCount("h2"); got != 1 {
		t.Fatalf("expected 1 client in h2, got %d", got)
	}

	hub.Unregister(c1)
	hub.Unregister(c2)
	hub.Unregister(c3)

	if got := hub.ClientCount("h1"); got != 0 {
		t.Fatalf("expected 0 clients, got %d", got)
	}
	if len(hub.rooms) != 0 {
		t.Errorf("empty rooms should be removed, have %d", len(hub.rooms))
	}
}

func TestDoubleUnregister(t *testing.T) {
	hub := NewHub(testLogger)
	c := mockClient(hub, "h1")
	hub.Register(c)
	hub.Unregister(c)
	// Should not panic
	hub.Unregister(c)

	if got := hub.ClientCount("h1"); got != 0 {
		t.Fatalf("expected 0 clients, got %d", got)
	}
}

func TestBroadcastIsScopedToHousehold(t *testing.T) {
	hub := NewHub(testLogger)

	c1 := mockClient(hub, "h1")
	c2 := mockClient(hub, "h1")
	other := mockClient(hub, "h2")
	hub.Register(c1)
	hub.Register(c2)
	hub.Register(other)

	hub.Broadcast("h1", NewMessage("chore", "completed", "c42", map[string]any{"assigned_to": "u1"}))

	for _, c := range []*Client{c1, c2} {
		got := receive(t, c)
		if got.Type != "chore_completed" {
			t.Errorf("expected type chore_completed, got %s", got.Type)
		}
		if got.ID != "c42" {
			t.Errorf("expected id c42, got %s", got.ID)
		}
		if got.Extra["assigned_to"] != "u1" {
			t.Errorf("extra = %v", got.Extra)
		}
	}

	select {
	case <-other.send:
		t.Error("client of another household must not receive the message")
	default:
	}
}

func TestBroadcastEmptyHub(t *testing.T) {
	hub := NewHub(testLogger)
	// Should not panic
	hub.Broadcast("h1", NewMessage("chore", "completed", "c1", nil))
}

func TestBroadcastFullBuffer(t *testing.T) {
	hub := NewHub(testLogger)

	c := mockClient(hub, "h1")
	hub.Register(c)

	for i := 0; i < sendBufferSize; i++ {
		hub.Broadcast("h1", NewMessage("test", "fill", fmt.Sprint(i), nil))
	}

	// This should drop the message, not panic or block
	hub.Broadcast("h1", NewMessage("test", "dropped", "999", nil))

	count := 0
	for len(c.send) > 0 {
		<-c.send
		count++
	}
	if count != sendBufferSize {
		t.Errorf("expected %d messages, got %d", sendBufferSize, count)
	}

	hub.Unregister(c)
}

func TestNewMessage(t *testing.T) {
	msg := NewMessage("shopping_item", "created", "i5", nil)
	if msg.Type != "shopping_item_created" {
		t.Errorf("expected type shopping_item_created, got %s", msg.Type)
	}
	if msg.Entity != "shopping_item" {
		t.Errorf("expected entity shopping_item, got %s", msg.Entity)
	}
	if msg.Action != "created" {
		t.Errorf("expected action created, got %s", msg.Action)
	}
	if msg.ID != "i5" {
		t.Errorf("expected id i5, got %s", msg.ID)
	}
}

func TestConcurrentAccess(t *testing.T) {
	hub := NewHub(testLogger)
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			hid := fmt.Sprintf("h%d", i%3)
			c := mockClient(hub, hid)
			hub.Register(c)
			hub.Broadcast(hid, NewMessage("test", "concurrent", "", nil))
			for {
				select {
				case <-c.send:
				default:
					hub.Unregister(c)
					return
				}
			}
		}(i)
	}

	wg.Wait()

	for i := 0; i < 3; i++ {
		if got := hub.ClientCount(fmt.Sprintf("h%d", i)); got != 0 {
			t.Errorf("expected 0 clients after concurrent test, got %d", got)
		}
	}
}

func TestHandleWebSocketDeliversHouseholdMessages(t *testing.T) {
	hub := NewHub(testLogger)
	h := HandleWebSocket(hub, nil, testLogger)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := auth.WithAuth(r.Context(), auth.AuthContext{UserID: "u1", HouseholdID: "h1"})
		h(w, r.WithContext(ctx))
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := ws.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.CloseNow()

	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount("h1") == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	hub.Broadcast("h1", NewMessage("shopping_item", "deleted", "i1", nil))

	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var got Message
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Type != "shopping_item_deleted" || got.ID != "i1" {
		t.Errorf("got %+v", got)
	}
}

func TestHandleWebSocketRequiresHousehold(t *testing.T) {
	hub := NewHub(testLogger)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/ws", nil)

	HandleWebSocket(hub, nil, testLogger)(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusForbidden)
	}
}
