package realtime

import (
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// Hub fans booking lifecycle events out to connected WebSocket
// clients. Events are advisory: a slow or absent hub never blocks the
// booking flow.
type Hub struct {
	connections map[*websocket.Conn]struct{}
	register    chan *websocket.Conn
	unregister  chan *websocket.Conn
	broadcast   chan []byte
	mu          sync.Mutex
}

// NewHub constructs a Hub.
func NewHub() *Hub {
	return &Hub{
		connections: make(map[*websocket.Conn]struct{}),
		register:    make(chan *websocket.Conn),
		unregister:  make(chan *websocket.Conn),
		broadcast:   make(chan []byte, 64),
	}
}

// Run processes register/unregister/broadcast events.
func (h *Hub) Run() {
	for {
		select {
		case conn := <-h.register:
			h.mu.Lock()
			h.connections[conn] = struct{}{}
			h.mu.Unlock()
		case conn := <-h.unregister:
			h.mu.Lock()
			delete(h.connections, conn)
			h.mu.Unlock()
			conn.Close()
		case msg := <-h.broadcast:
			h.mu.Lock()
			for conn := range h.connections {
				if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
					conn.Close()
					delete(h.connections, conn)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Broadcast queues a message for every connected client. If the queue
// is full the message is dropped.
func (h *Hub) Broadcast(msg []byte) {
	select {
	case h.broadcast <- msg:
	default:
		log.Printf("realtime: broadcast queue full, dropping message")
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

// ServeWS upgrades the request and subscribes the client to the event
// feed. The feed is one-way; inbound frames are read only to detect
// disconnects.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("realtime: upgrade: %v", err)
		return
	}
	h.register <- conn

	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				h.unregister <- conn
				return
			}
		}
	}()
}
