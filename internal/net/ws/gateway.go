// Package ws serves the broadcast event stream to read-only browser
// observers as JSON over WebSocket. Observers get only public information;
// the engine hands this hub pre-fogged events.
package ws

import (
	"encoding/json"
	nethttp "net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"armada/server/internal/proto"
	"armada/server/internal/telemetry"
)

const writeWait = 5 * time.Second

// Hub fans broadcast events out to every connected observer.
type Hub struct {
	logger   telemetry.Logger
	upgrader websocket.Upgrader

	mu   sync.Mutex
	subs map[*subscriber]struct{}
}

type subscriber struct {
	conn *websocket.Conn
	// mu serializes writes; gorilla connections allow one writer at a time.
	mu sync.Mutex
}

// NewHub builds an observer hub. Origin checking is disabled: the server
// is LAN-only by design.
func NewHub(logger telemetry.Logger) *Hub {
	return &Hub{
		logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*nethttp.Request) bool { return true },
		},
		subs: make(map[*subscriber]struct{}),
	}
}

// Publish sends one event to every observer. Implements the engine's
// EventSink; slow or dead observers are dropped, never waited on.
func (h *Hub) Publish(ev proto.Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		if h.logger != nil {
			h.logger.Printf("observer marshal %s failed: %v", ev.Type, err)
		}
		return
	}

	h.mu.Lock()
	subs := make([]*subscriber, 0, len(h.subs))
	for sub := range h.subs {
		subs = append(subs, sub)
	}
	h.mu.Unlock()

	for _, sub := range subs {
		sub.mu.Lock()
		sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
		err := sub.conn.WriteMessage(websocket.TextMessage, payload)
		sub.mu.Unlock()
		if err != nil {
			h.drop(sub)
		}
	}
}

// Handler upgrades observer requests. Observer input is discarded; the
// read loop exists only to notice pings and closure.
func (h *Hub) Handler() nethttp.Handler {
	return nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		conn, err := h.upgrader.Upgrade(w, r, nil)
		if err != nil {
			if h.logger != nil {
				h.logger.Printf("observer upgrade failed: %v", err)
			}
			return
		}
		sub := &subscriber{conn: conn}

		h.mu.Lock()
		h.subs[sub] = struct{}{}
		h.mu.Unlock()

		go h.readLoop(sub)
	})
}

func (h *Hub) readLoop(sub *subscriber) {
	defer h.drop(sub)
	for {
		if _, _, err := sub.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) drop(sub *subscriber) {
	h.mu.Lock()
	_, ok := h.subs[sub]
	if ok {
		delete(h.subs, sub)
	}
	h.mu.Unlock()
	if ok {
		sub.conn.Close()
	}
}

// Close disconnects every observer.
func (h *Hub) Close() {
	h.mu.Lock()
	subs := make([]*subscriber, 0, len(h.subs))
	for sub := range h.subs {
		subs = append(subs, sub)
	}
	h.subs = make(map[*subscriber]struct{})
	h.mu.Unlock()

	for _, sub := range subs {
		sub.conn.Close()
	}
}

// ObserverCount reports connected observers for diagnostics.
func (h *Hub) ObserverCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
