// Package feed broadcasts verified webhook events to websocket subscribers
package feed

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 4096
	sendBuffer     = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Message is the envelope of everything written to subscribers
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Tracker is notified when subscribers come and go
type Tracker interface {
	SubscriberConnected()
	SubscriberDisconnected()
}

// Hub fans messages out to every connected subscriber
type Hub struct {
	logger  *zap.Logger
	tracker Tracker

	mu      sync.RWMutex
	clients map[*client]struct{}
}

type client struct {
	hub     *Hub
	conn    *websocket.Conn
	send    chan []byte
	subject string
}

// NewHub creates an empty hub. Tracker may be nil.
func NewHub(logger *zap.Logger, tracker Tracker) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		logger:  logger.With(zap.String("component", "feed")),
		tracker: tracker,
		clients: make(map[*client]struct{}),
	}
}

// Count returns the number of connected subscribers
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeWS upgrades the request and subscribes it to the feed
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, subject string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := &client{
		hub:     h,
		conn:    conn,
		send:    make(chan []byte, sendBuffer),
		subject: subject,
	}
	h.register(c)

	go c.writePump()
	go c.readPump()

	c.sendMessage("connected", map[string]string{"subject": subject})
}

// Broadcast sends a message to every subscriber. Subscribers whose buffer
// is full miss the message.
func (h *Hub) Broadcast(msgType string, payload interface{}) error {
	msg, err := encode(msgType, payload)
	if err != nil {
		return err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.logger.Warn("subscriber too slow, message dropped", zap.String("subject", c.subject))
		}
	}
	return nil
}

// Close disconnects every subscriber
func (h *Hub) Close() {
	h.mu.Lock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		h.unregister(c)
	}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	if h.tracker != nil {
		h.tracker.SubscriberConnected()
	}
	h.logger.Info("subscriber connected", zap.String("subject", c.subject))
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	close(c.send)
	h.mu.Unlock()

	if h.tracker != nil {
		h.tracker.SubscriberDisconnected()
	}
	h.logger.Info("subscriber disconnected", zap.String("subject", c.subject))
}

// writePump pumps messages from the send channel to the connection
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump keeps the connection alive and answers subscriber pings
func (c *client) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Warn("websocket read failed", zap.String("subject", c.subject), zap.Error(err))
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.sendError("INVALID_MESSAGE", "Invalid message format")
			continue
		}

		switch msg.Type {
		case "ping":
			c.sendMessage("pong", map[string]int64{"timestamp": time.Now().Unix()})
		default:
			c.sendError("UNKNOWN_MESSAGE", "Unknown message type: "+msg.Type)
		}
	}
}

// sendMessage queues a message for this subscriber only
func (c *client) sendMessage(msgType string, payload interface{}) {
	msg, err := encode(msgType, payload)
	if err != nil {
		return
	}

	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()

	if _, ok := c.hub.clients[c]; !ok {
		return
	}
	select {
	case c.send <- msg:
	default:
	}
}

func (c *client) sendError(code, message string) {
	c.sendMessage("error", map[string]string{
		"code":    code,
		"message": message,
	})
}

func encode(msgType string, payload interface{}) ([]byte, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Message{Type: msgType, Payload: payloadBytes})
}
