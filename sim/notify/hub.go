// Package notify streams simulation step snapshots to WebSocket clients.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/inference-sim/organoid-sim/sim"
)

const (
	queueSize    = 256
	enqueueWait  = 1 * time.Second
	writeTimeout = 10 * time.Second
)

// Hub broadcasts every StepSnapshot it observes, as JSON, to all connected
// WebSocket clients. It implements sim.StepObserver.
type Hub struct {
	mu         sync.RWMutex
	clients    map[*websocket.Conn]bool
	upgrader   websocket.Upgrader
	broadcast  chan []byte
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	done       chan struct{}
	closeOnce  sync.Once
	wg         sync.WaitGroup
}

// NewHub creates a hub and starts its broadcaster goroutine.
func NewHub() *Hub {
	h := &Hub{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan []byte, queueSize),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		done:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
	h.wg.Add(1)
	go h.run()
	return h
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ObserveStep queues snap for broadcast. It fails if the queue stays full for
// a second or the hub is closed.
func (h *Hub) ObserveStep(ctx context.Context, snap sim.StepSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal step %d: %w", snap.Step, err)
	}
	select {
	case <-h.done:
		return fmt.Errorf("hub closed")
	default:
	}
	select {
	case h.broadcast <- data:
		return nil
	case <-h.done:
		return fmt.Errorf("hub closed")
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(enqueueWait):
		return fmt.Errorf("snapshot queue full")
	}
}

// Handler upgrades HTTP requests to WebSocket connections and keeps each
// client registered until it disconnects. Clients only receive; anything they
// send is discarded.
func (h *Hub) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := h.upgrader.Upgrade(w, r, nil)
		if err != nil {
			logrus.Warnf("websocket upgrade from %s: %v", r.RemoteAddr, err)
			return
		}
		select {
		case h.register <- conn:
		case <-h.done:
			conn.Close()
			return
		}
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
		select {
		case h.unregister <- conn:
		case <-h.done:
		}
	})
}

// run handles client registration and broadcasting. Once the hub is closed it
// flushes whatever is still queued before returning.
func (h *Hub) run() {
	defer h.wg.Done()
	for {
		select {
		case <-h.done:
			h.drain()
			return

		case conn := <-h.register:
			h.mu.Lock()
			h.clients[conn] = true
			h.mu.Unlock()
			logrus.Debugf("websocket client %s connected", conn.RemoteAddr())

		case conn := <-h.unregister:
			h.remove(conn)

		case data := <-h.broadcast:
			h.send(data)
		}
	}
}

func (h *Hub) drain() {
	for {
		select {
		case data := <-h.broadcast:
			h.send(data)
		default:
			return
		}
	}
}

func (h *Hub) send(data []byte) {
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for conn := range h.clients {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	for _, conn := range conns {
		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			logrus.Debugf("websocket client %s dropped: %v", conn.RemoteAddr(), err)
			h.remove(conn)
		}
	}
}

func (h *Hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		conn.Close()
	}
}

// Close delivers the snapshots still queued, sends every client a normal
// closure frame and disconnects it. Safe to call more than once.
func (h *Hub) Close() error {
	h.closeOnce.Do(func() {
		close(h.done)
		h.wg.Wait()

		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "simulation finished")
		h.mu.Lock()
		for conn := range h.clients {
			if err := conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeTimeout)); err != nil {
				logrus.Debugf("websocket client %s close frame: %v", conn.RemoteAddr(), err)
			}
			conn.Close()
			delete(h.clients, conn)
		}
		h.mu.Unlock()
	})
	return nil
}
