// SPDX-License-Identifier: MIT
package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	applog "leafpipe/internal/log"

	"github.com/gorilla/websocket"
)

const (
	broadcastBacklog = 16
	writeTimeout     = time.Second
)

// WebSocketTransport broadcasts every frame as JSON to all connected clients
// on /ws. Frames are dropped, not queued, while clients are slow.
type WebSocketTransport struct {
	addr      string
	upgrader  websocket.Upgrader
	clients   map[*websocket.Conn]struct{}
	clientsMu sync.Mutex
	broadcast chan []byte
	dropped   atomic.Uint64

	server    *http.Server
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewWebSocketTransport creates the transport and starts its broadcaster.
// Call Start to listen on addr, or mount it as an http.Handler.
func NewWebSocketTransport(addr string) *WebSocketTransport {
	wst := &WebSocketTransport{
		addr: addr,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				return true // local visualizers are served from anywhere
			},
		},
		clients:   make(map[*websocket.Conn]struct{}),
		broadcast: make(chan []byte, broadcastBacklog),
		done:      make(chan struct{}),
	}

	wst.wg.Add(1)
	go wst.handleBroadcasts()
	return wst
}

// Start listens on the configured address and serves /ws. It returns once
// the listener is bound.
func (wst *WebSocketTransport) Start() (net.Addr, error) {
	listener, err := net.Listen("tcp", wst.addr)
	if err != nil {
		return nil, fmt.Errorf("websocket listen on %s: %w", wst.addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/ws", wst)
	wst.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		applog.Infof("transport: websocket server on %s", listener.Addr())
		if err := wst.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			applog.Errorf("transport: websocket server error: %v", err)
		}
	}()

	return listener.Addr(), nil
}

// ServeHTTP upgrades the request and registers the client.
func (wst *WebSocketTransport) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := wst.upgrader.Upgrade(w, r, nil)
	if err != nil {
		applog.Warnf("transport: websocket upgrade error: %v", err)
		return
	}

	wst.clientsMu.Lock()
	wst.clients[conn] = struct{}{}
	total := len(wst.clients)
	wst.clientsMu.Unlock()
	applog.Infof("transport: websocket client %s connected, total: %d", conn.RemoteAddr(), total)

	// Clients never send; reading only detects the disconnect.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				wst.drop(conn)
				return
			}
		}
	}()
}

func (wst *WebSocketTransport) drop(conn *websocket.Conn) {
	wst.clientsMu.Lock()
	_, ok := wst.clients[conn]
	delete(wst.clients, conn)
	total := len(wst.clients)
	wst.clientsMu.Unlock()

	if ok {
		conn.Close()
		applog.Infof("transport: websocket client disconnected, total: %d", total)
	}
}

func (wst *WebSocketTransport) handleBroadcasts() {
	defer wst.wg.Done()
	for {
		select {
		case <-wst.done:
			return
		case msg := <-wst.broadcast:
			wst.clientsMu.Lock()
			for client := range wst.clients {
				client.SetWriteDeadline(time.Now().Add(writeTimeout))
				if err := client.WriteMessage(websocket.TextMessage, msg); err != nil {
					applog.Warnf("transport: websocket send failed: %v", err)
					client.Close()
					delete(wst.clients, client)
				}
			}
			wst.clientsMu.Unlock()
		}
	}
}

// Send queues frame for broadcast. When the queue is full the frame is
// dropped and counted.
func (wst *WebSocketTransport) Send(frame *Frame) error {
	msg, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("websocket encode frame %d: %w", frame.Seq, err)
	}

	select {
	case <-wst.done:
		return errors.New("websocket transport closed")
	default:
	}

	select {
	case wst.broadcast <- msg:
	default:
		wst.dropped.Add(1)
	}
	return nil
}

// Clients returns the number of connected clients.
func (wst *WebSocketTransport) Clients() int {
	wst.clientsMu.Lock()
	defer wst.clientsMu.Unlock()
	return len(wst.clients)
}

// Dropped returns how many frames were discarded because the queue was full.
func (wst *WebSocketTransport) Dropped() uint64 {
	return wst.dropped.Load()
}

// Close disconnects all clients and shuts the server down.
func (wst *WebSocketTransport) Close() error {
	var err error
	wst.closeOnce.Do(func() {
		close(wst.done)
		wst.wg.Wait()

		wst.clientsMu.Lock()
		for client := range wst.clients {
			client.Close()
		}
		clear(wst.clients)
		wst.clientsMu.Unlock()

		if wst.server != nil {
			err = wst.server.Close()
		}
	})
	return err
}

var _ Transport = (*WebSocketTransport)(nil)
