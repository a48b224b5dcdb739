// SPDX-License-Identifier: MIT
package transport

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	applog "leafpipe/internal/log"

	"github.com/gorilla/websocket"
)

// recordingTransport keeps every frame it is sent.
type recordingTransport struct {
	frames []*Frame
	err    error
	closed bool
}

func (r *recordingTransport) Send(frame *Frame) error {
	r.frames = append(r.frames, frame)
	return r.err
}

func (r *recordingTransport) Close() error {
	r.closed = true
	return r.err
}

func testFrame(seq uint64) *Frame {
	return &Frame{
		Seq:       seq,
		Timestamp: time.Unix(1700000000, 0).UTC(),
		Spectrum:  []float64{1.5, 0.25},
		Panels: []Panel{
			{ID: 7, R: 255, G: 10, B: 0, Level: 42},
		},
		TransitionDS: 1,
	}
}

func TestMultiDeliversToAll(t *testing.T) {
	failing := &recordingTransport{err: errors.New("unreachable")}
	healthy := &recordingTransport{}
	multi := Multi{failing, healthy}

	err := multi.Send(testFrame(1))
	if err == nil || !strings.Contains(err.Error(), "unreachable") {
		t.Errorf("Send() = %v, want the failing transport's error", err)
	}
	if len(healthy.frames) != 1 {
		t.Errorf("healthy transport got %d frames, want 1", len(healthy.frames))
	}

	if err := multi.Close(); err == nil {
		t.Error("Close() should report the failing transport")
	}
	if !failing.closed || !healthy.closed {
		t.Error("Close() must reach every transport")
	}
}

func TestLoggingTransport(t *testing.T) {
	var buf bytes.Buffer
	applog.SetOutput(&buf)
	defer applog.SetOutput(os.Stderr)
	prev := applog.GetLevel()
	defer applog.SetLevel(prev)

	applog.SetLevel(applog.LevelDebug)
	lt := NewLoggingTransport()
	if err := lt.Send(testFrame(3)); err != nil {
		t.Fatalf("Send() error: %v", err)
	}

	if !strings.Contains(buf.String(), "frame 3: spectrum [1.50 0.25] panels 1") {
		t.Errorf("log output = %q", buf.String())
	}
}

func dialTestServer(t *testing.T, wst *WebSocketTransport) *websocket.Conn {
	t.Helper()
	server := httptest.NewServer(wst)
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	t.Cleanup(func() { conn.Close() })

	deadline := time.Now().Add(time.Second)
	for wst.Clients() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}
	return conn
}

func TestWebSocketBroadcast(t *testing.T) {
	wst := NewWebSocketTransport("")
	defer wst.Close()
	conn := dialTestServer(t, wst)

	if err := wst.Send(testFrame(9)); err != nil {
		t.Fatalf("Send() error: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage() error: %v", err)
	}

	var got Frame
	if err := json.Unmarshal(msg, &got); err != nil {
		t.Fatalf("frame is not JSON: %v", err)
	}
	if got.Seq != 9 || len(got.Panels) != 1 || got.Panels[0].ID != 7 || got.Panels[0].R != 255 {
		t.Errorf("received frame = %+v", got)
	}
}

func TestWebSocketClientDisconnect(t *testing.T) {
	wst := NewWebSocketTransport("")
	defer wst.Close()
	conn := dialTestServer(t, wst)

	conn.Close()
	deadline := time.Now().Add(time.Second)
	for wst.Clients() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("client still registered after disconnect")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestWebSocketSendAfterClose(t *testing.T) {
	wst := NewWebSocketTransport("")
	if err := wst.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	if err := wst.Close(); err != nil {
		t.Errorf("second Close() = %v", err)
	}
	if err := wst.Send(testFrame(1)); err == nil {
		t.Error("Send() after Close should fail")
	}
}

func TestWebSocketStart(t *testing.T) {
	wst := NewWebSocketTransport("127.0.0.1:0")
	defer wst.Close()

	addr, err := wst.Start()
	if err != nil {
		t.Fatalf("Start() error: %v", err)
	}

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+addr.String()+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	conn.Close()
}
