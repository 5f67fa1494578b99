package messaging

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/sudo-init-do/masterhub/internal/marketplace"
)

// Events pushed on an order hub
const (
	EventMessageNew    = "message_new"
	EventMessageRead   = "message_read"
	EventOrderStatus   = "order_status"
	EventPresenceJoin  = "presence_join"
	EventPresenceLeave = "presence_leave"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 32
)

type wsEvent struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// client owns one connection. Only its writer goroutine writes to conn.
type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans order events out to the websocket clients following each order.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*client]struct{}
	log   *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{rooms: make(map[string]map[*client]struct{}), log: logger}
}

func (h *Hub) join(orderID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[orderID]
	if !ok {
		room = make(map[*client]struct{})
		h.rooms[orderID] = room
	}
	room[c] = struct{}{}
}

func (h *Hub) leave(orderID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[orderID]
	if !ok {
		return
	}
	if _, ok := room[c]; ok {
		delete(room, c)
		close(c.send)
	}
	if len(room) == 0 {
		delete(h.rooms, orderID)
	}
}

// Subscribers reports how many clients follow an order.
func (h *Hub) Subscribers(orderID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[orderID])
}

// Publish sends an event to every client on the order. A client whose buffer
// is full misses the event.
func (h *Hub) Publish(orderID, eventType string, data any) {
	payload, err := json.Marshal(wsEvent{Type: eventType, Data: data})
	if err != nil {
		h.log.Error("encode ws event", zap.String("type", eventType), zap.Error(err))
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.rooms[orderID] {
		select {
		case c.send <- payload:
		default:
			h.log.Warn("ws client lagging, event dropped", zap.String("order_id", orderID), zap.String("type", eventType))
		}
	}
}

// BroadcastOrderStatus satisfies marketplace.OrderBroadcaster.
func (h *Hub) BroadcastOrderStatus(orderID string, order *marketplace.Order) {
	h.Publish(orderID, EventOrderStatus, order)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Serve upgrades the request and follows orderID until the peer goes away.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, orderID, userID string) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	h.join(orderID, c)
	go c.writeLoop()

	h.Publish(orderID, EventPresenceJoin, echo.Map{"user_id": userID})

	// Server push only; client frames are read to notice disconnects and pongs.
	conn.SetReadLimit(4096)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.leave(orderID, c)
	h.Publish(orderID, EventPresenceLeave, echo.Map{"user_id": userID})
	return nil
}

func (c *client) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
