package websocket

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/capacitylab/fleet-advisor/internal/logger"
	"github.com/capacitylab/fleet-advisor/pkg/config"
)

type settings struct {
	writeWait       time.Duration
	pongWait        time.Duration
	pingPeriod      time.Duration
	maxMessageSize  int64
	readBufferSize  int
	writeBufferSize int
	clientBuffer    int
}

func settingsFromConfig(cfg *config.WebSocketConfig) settings {
	s := settings{
		writeWait:       10 * time.Second,
		pongWait:        60 * time.Second,
		maxMessageSize:  512,
		readBufferSize:  1024,
		writeBufferSize: 1024,
		clientBuffer:    256,
	}
	if cfg != nil {
		if cfg.WriteTimeout > 0 {
			s.writeWait = cfg.WriteTimeout
		}
		if cfg.PongTimeout > 0 {
			s.pongWait = cfg.PongTimeout
		}
		if cfg.MaxMessageSize > 0 {
			s.maxMessageSize = cfg.MaxMessageSize
		}
		if cfg.ReadBufferSize > 0 {
			s.readBufferSize = cfg.ReadBufferSize
		}
		if cfg.WriteBufferSize > 0 {
			s.writeBufferSize = cfg.WriteBufferSize
		}
		if cfg.ClientBuffer > 0 {
			s.clientBuffer = cfg.ClientBuffer
		}
	}
	s.pingPeriod = (s.pongWait * 9) / 10
	return s
}

type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	mu    sync.RWMutex
	types map[string]bool
}

type IncomingMessage struct {
	Type       string   `json:"type"`
	EventTypes []string `json:"event_types,omitempty"`
}

func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		hub:   hub,
		conn:  conn,
		send:  make(chan []byte, hub.settings.clientBuffer),
		types: make(map[string]bool),
	}
}

// wants reports whether the client should receive messages of msgType. An
// empty subscription set means everything.
func (c *Client) wants(msgType string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.types) == 0 {
		return true
	}
	return c.types[msgType]
}

func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	s := c.hub.settings
	c.conn.SetReadLimit(s.maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(s.pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(s.pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Errorf("WebSocket error: %v", err)
			}
			break
		}

		var msg IncomingMessage
		if err := json.Unmarshal(message, &msg); err == nil {
			c.handleMessage(&msg)
		}
	}
}

func (c *Client) WritePump() {
	s := c.hub.settings
	ticker := time.NewTicker(s.pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(s.writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Add queued messages to current websocket frame
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(s.writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handleMessage(msg *IncomingMessage) {
	switch msg.Type {
	case "subscribe":
		c.mu.Lock()
		for _, t := range msg.EventTypes {
			c.types[t] = true
		}
		c.mu.Unlock()
		c.sendConfirmation("subscribed", msg.EventTypes)
	case "unsubscribe":
		c.mu.Lock()
		if len(msg.EventTypes) == 0 {
			c.types = make(map[string]bool)
		} else {
			for _, t := range msg.EventTypes {
				delete(c.types, t)
			}
		}
		c.mu.Unlock()
		c.sendConfirmation("unsubscribed", msg.EventTypes)
	}
}

func (c *Client) sendConfirmation(action string, eventTypes []string) {
	confirmation := map[string]interface{}{
		"type":        "subscription_update",
		"action":      action,
		"event_types": eventTypes,
		"timestamp":   time.Now(),
	}
	data, err := json.Marshal(confirmation)
	if err != nil {
		logger.Errorf("Failed to marshal confirmation: %v", err)
		return
	}
	select {
	case c.send <- data:
	default:
		logger.Warn("Client send channel full, dropping confirmation")
	}
}

func ServeWebSocket(hub *Hub) gin.HandlerFunc {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  hub.settings.readBufferSize,
		WriteBufferSize: hub.settings.writeBufferSize,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}

	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Errorf("WebSocket upgrade failed: %v", err)
			return
		}

		client := NewClient(hub, conn)
		hub.Register(client)

		go client.WritePump()
		go client.ReadPump()
	}
}
