package ws

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/Vovarama1992/go-utils/logger"
	"github.com/awais2281/rizqa-ai/internal/models"
	"github.com/awais2281/rizqa-ai/internal/ports"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 5 * time.Second
	sendBuffer = 32
)

// client owns one socket. Only its writer goroutine touches the connection
// for writes, so a slow reader never stalls a publisher.
type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans events out to websocket subscribers grouped by room.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*websocket.Conn]*client
	log   *logger.ZapLogger
}

var _ ports.EventPublisher = (*Hub)(nil)

func NewHub(log *logger.ZapLogger) *Hub {
	return &Hub{
		rooms: make(map[string]map[*websocket.Conn]*client),
		log:   log,
	}
}

func (h *Hub) Register(roomID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.rooms[roomID]; !ok {
		h.rooms[roomID] = make(map[*websocket.Conn]*client)
	}
	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	h.rooms[roomID][conn] = c
	go h.writeLoop(roomID, c)
	h.debug("[hub] register", roomID, len(h.rooms[roomID]))
}

func (h *Hub) Unregister(roomID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns, ok := h.rooms[roomID]
	if !ok {
		return
	}
	if c, ok := conns[conn]; ok {
		delete(conns, conn)
		close(c.send)
		conn.Close()
		h.debug("[hub] unregister", roomID, len(conns))
	}
	if len(conns) == 0 {
		delete(h.rooms, roomID)
	}
}

// Count reports live subscribers in roomID.
func (h *Hub) Count(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}

// Publish sends ev as JSON to every subscriber of room.
func (h *Hub) Publish(room string, ev models.Event) {
	msg, err := json.Marshal(ev)
	if err != nil {
		h.log.Log(logger.LogEntry{
			Level:   "error",
			Message: "[hub][SEND-ERR] marshal",
			Error:   err,
			Fields:  map[string]any{"room": room, "type": ev.Type},
		})
		return
	}
	h.SendToRoom(room, msg)
}

// SendToRoom queues msg for every subscriber and never blocks. A subscriber
// whose queue is full misses the message.
func (h *Hub) SendToRoom(roomID string, msg []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, c := range h.rooms[roomID] {
		select {
		case c.send <- msg:
		default:
			h.log.Log(logger.LogEntry{
				Level:   "warn",
				Message: "[hub][DROP] subscriber queue full",
				Fields:  map[string]any{"room": roomID},
			})
		}
	}
}

func (h *Hub) writeLoop(roomID string, c *client) {
	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.log.Log(logger.LogEntry{
				Level:   "warn",
				Message: "[hub][SEND-ERR]",
				Error:   err,
				Fields:  map[string]any{"room": roomID},
			})
			// the read loop notices the broken socket and unregisters
			c.conn.Close()
			for range c.send {
			}
			return
		}
	}
}

func (h *Hub) debug(msg, room string, conns int) {
	h.log.Log(logger.LogEntry{
		Level:   "info",
		Message: msg,
		Fields:  map[string]any{"room": room, "conns": conns},
	})
}

var Upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}
