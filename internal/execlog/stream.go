package execlog

import (
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub fans freshly written log entries out to connected websocket clients.
// Delivery is best-effort: a slow or dead client is dropped, never waited on.
type Hub struct {
	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{conns: make(map[*websocket.Conn]struct{})}
}

// Broadcast sends the entry to every connected client.
func (h *Hub) Broadcast(entry Entry) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.conns {
		if err := conn.WriteJSON(entry); err != nil {
			log.Printf("execlog: websocket write: %v", err)
			conn.Close()
			delete(h.conns, conn)
		}
	}
}

// HandleStream upgrades the request to a websocket and keeps the
// connection registered until the client goes away.
func (h *Hub) HandleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("execlog: websocket upgrade: %v", err)
		return
	}

	h.mu.Lock()
	h.conns[conn] = struct{}{}
	h.mu.Unlock()

	// Drain client messages so pings are answered; drop the connection on
	// the first read error.
	go func() {
		defer func() {
			h.mu.Lock()
			delete(h.conns, conn)
			h.mu.Unlock()
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Printf("execlog: websocket read: %v", err)
				}
				return
			}
		}
	}()
}
