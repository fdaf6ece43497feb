package hub

import (
	"context"
	"encoding/json"
	"testing"
	"time"
)

func runHub(t *testing.T) (*Hub, context.CancelFunc) {
	t.Helper()
	h := New("test")
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-h.Done()
	})
	return h, cancel
}

func testClient(t *testing.T, h *Hub, buffer int) *Client {
	t.Helper()
	c := &Client{hub: h, send: make(chan Message, buffer)}
	if !h.subscribe(c) {
		t.Fatal("Expected hub to accept client")
	}
	return c
}

func receive(t *testing.T, c *Client) (Message, bool) {
	t.Helper()
	select {
	case msg, ok := <-c.send:
		return msg, ok
	case <-time.After(time.Second):
		t.Fatal("Timed out waiting for message")
		return Message{}, false
	}
}

func waitClients(t *testing.T, h *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for h.ClientCount() != n {
		if time.Now().After(deadline) {
			t.Fatalf("Expected %d clients, got %d", n, h.ClientCount())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestEncode(t *testing.T) {
	msg, err := Encode(TypeAlert, map[string]string{"kind": "fatigue"})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if msg.Type != TypeAlert {
		t.Errorf("Expected type alert, got %s", msg.Type)
	}

	var env struct {
		Type string            `json:"type"`
		Data map[string]string `json:"data"`
	}
	if err := json.Unmarshal(msg.Data, &env); err != nil {
		t.Fatalf("bad envelope: %v", err)
	}
	if env.Type != "alert" || env.Data["kind"] != "fatigue" {
		t.Errorf("Expected alert envelope, got %+v", env)
	}
}

func TestHub_FanOut(t *testing.T) {
	h, _ := runHub(t)
	a := testClient(t, h, 4)
	b := testClient(t, h, 4)
	waitClients(t, h, 2)

	h.Publish(TypeStatus, 1)

	for _, c := range []*Client{a, b} {
		msg, ok := receive(t, c)
		if !ok || msg.Type != TypeStatus {
			t.Errorf("Expected status message, got %+v (open=%v)", msg, ok)
		}
	}
}

func TestHub_ReplaysLatest(t *testing.T) {
	h, _ := runHub(t)
	first := testClient(t, h, 4)

	h.Publish(TypeStatus, 1)
	h.Publish(TypeStatus, 2)
	receive(t, first)
	receive(t, first)

	late := testClient(t, h, 4)
	msg, _ := receive(t, late)
	if string(msg.Data) != `{"type":"status","data":2}` {
		t.Errorf("Expected latest status replayed, got %s", msg.Data)
	}
}

func TestHub_DropsSlowClient(t *testing.T) {
	h, _ := runHub(t)
	slow := testClient(t, h, 1)
	waitClients(t, h, 1)

	h.Publish(TypeStatus, 1)
	h.Publish(TypeStatus, 2)

	waitClients(t, h, 0)
	receive(t, slow)
	if _, ok := receive(t, slow); ok {
		t.Error("Expected slow client's channel closed")
	}
}

func TestHub_Unsubscribe(t *testing.T) {
	h, _ := runHub(t)
	c := testClient(t, h, 1)
	waitClients(t, h, 1)

	h.unsubscribe(c)
	waitClients(t, h, 0)
	if _, ok := receive(t, c); ok {
		t.Error("Expected channel closed after unsubscribe")
	}
}

func TestHub_StopClosesClients(t *testing.T) {
	h, cancel := runHub(t)
	c := testClient(t, h, 1)

	cancel()
	<-h.Done()

	if _, ok := receive(t, c); ok {
		t.Error("Expected channel closed on shutdown")
	}
	if h.subscribe(&Client{hub: h, send: make(chan Message, 1)}) {
		t.Error("Expected subscribe to fail after shutdown")
	}
}
