package hub

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/websocket/v2"
)

// fakeConn is an in-memory websocket connection.
type fakeConn struct {
	writes    chan written
	closed    chan struct{}
	closeOnce sync.Once
}

type written struct {
	kind int
	data []byte
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		writes: make(chan written, 64),
		closed: make(chan struct{}),
	}
}

func (f *fakeConn) ReadMessage() (int, []byte, error) {
	<-f.closed
	return 0, nil, errors.New("closed")
}

func (f *fakeConn) WriteMessage(kind int, data []byte) error {
	select {
	case <-f.closed:
		return errors.New("closed")
	default:
	}
	f.writes <- written{kind: kind, data: data}
	return nil
}

func (f *fakeConn) SetReadLimit(int64)                {}
func (f *fakeConn) SetReadDeadline(time.Time) error   { return nil }
func (f *fakeConn) SetWriteDeadline(time.Time) error  { return nil }
func (f *fakeConn) SetPongHandler(func(string) error) {}
func (f *fakeConn) Close() error {
	f.closeOnce.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeConn) next(t *testing.T) written {
	t.Helper()
	select {
	case w := <-f.writes:
		return w
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for write")
		return written{}
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHub_BroadcastReachesClients(t *testing.T) {
	h := New("test", false)
	go h.Run()
	defer h.Stop()

	conns := []*fakeConn{newFakeConn(), newFakeConn()}
	for _, c := range conns {
		client := NewClient(h, c)
		go client.Run()
	}
	waitFor(t, func() bool { return h.ClientCount() == 2 })

	h.BroadcastBinary([]byte{0xFF, 0xD8})

	for i, c := range conns {
		w := c.next(t)
		if w.kind != websocket.BinaryMessage {
			t.Errorf("client %d: got type %d, want binary", i, w.kind)
		}
		if len(w.data) != 2 || w.data[0] != 0xFF {
			t.Errorf("client %d: got data %v", i, w.data)
		}
	}
}

func TestHub_BroadcastJSON(t *testing.T) {
	h := New("status", false)
	go h.Run()
	defer h.Stop()

	c := newFakeConn()
	go NewClient(h, c).Run()
	waitFor(t, func() bool { return h.ClientCount() == 1 })

	if err := h.BroadcastJSON(map[string]int{"fps": 24}); err != nil {
		t.Fatalf("BroadcastJSON: %v", err)
	}

	w := c.next(t)
	if w.kind != websocket.TextMessage {
		t.Errorf("got type %d, want text", w.kind)
	}
	if string(w.data) != `{"fps":24}` {
		t.Errorf("got %s", w.data)
	}
}

func TestHub_RetainReplaysLatest(t *testing.T) {
	h := New("frames", true)
	go h.Run()
	defer h.Stop()

	h.BroadcastBinary([]byte("old"))
	h.BroadcastBinary([]byte("latest"))
	waitFor(t, func() bool {
		h.mu.RLock()
		defer h.mu.RUnlock()
		return h.last != nil && string(h.last.Data) == "latest"
	})

	c := newFakeConn()
	go NewClient(h, c).Run()

	if w := c.next(t); string(w.data) != "latest" {
		t.Errorf("late joiner got %q, want latest", w.data)
	}
}

func TestHub_UnregisterOnDisconnect(t *testing.T) {
	h := New("test", false)
	go h.Run()
	defer h.Stop()

	c := newFakeConn()
	go NewClient(h, c).Run()
	waitFor(t, func() bool { return h.ClientCount() == 1 })

	c.Close()
	waitFor(t, func() bool { return h.ClientCount() == 0 })
}

func TestHub_StopClosesClients(t *testing.T) {
	h := New("test", false)
	go h.Run()

	c := newFakeConn()
	go NewClient(h, c).Run()
	waitFor(t, func() bool { return h.ClientCount() == 1 })

	h.Stop()
	h.Stop() // idempotent

	waitFor(t, func() bool { return !h.IsRunning() })
	select {
	case <-c.closed:
	case <-time.After(2 * time.Second):
		t.Fatal("connection not closed after Stop")
	}

	// Registering after stop must not block
	if client := NewClient(h, newFakeConn()); client != nil {
		t.Error("expected nil client after Stop")
	}
}
