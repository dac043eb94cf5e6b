package websocket

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512

	ClientTypeCourier = "courier"
	ClientTypeWatcher = "watcher"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // tighten per deployment
	},
}

// Client is one websocket connection. SubjectID is the courier id for courier
// connections and an arbitrary caller id for watchers.
type Client struct {
	hub        *Hub
	conn       *websocket.Conn
	send       chan []byte
	SubjectID  primitive.ObjectID
	ClientType string
	rooms      map[string]bool
}

func NewClient(hub *Hub, conn *websocket.Conn, subjectID primitive.ObjectID, clientType string) *Client {
	return &Client{
		hub:        hub,
		conn:       conn,
		send:       make(chan []byte, 256),
		SubjectID:  subjectID,
		ClientType: clientType,
		rooms:      make(map[string]bool),
	}
}

// Start registers the client and runs its pumps. Returns immediately.
func (c *Client) Start() {
	c.hub.register <- c
	go c.writePump()
	go c.readPump()
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.WithError(err).Debug("websocket read error")
			}
			break
		}
		c.handleMessage(message)
	}
}

func (c *Client) writePump() {
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

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
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

// Clients only steer their room membership; all data flows server to client.
func (c *Client) handleMessage(message []byte) {
	var msg Message
	if err := json.Unmarshal(message, &msg); err != nil {
		c.hub.logger.WithError(err).Debug("dropping malformed client message")
		return
	}

	switch msg.Type {
	case "watch_delivery":
		if idHex, ok := msg.Data["delivery_id"].(string); ok {
			if deliveryID, err := primitive.ObjectIDFromHex(idHex); err == nil {
				c.hub.JoinDelivery(c, deliveryID)
			}
		}

	case "unwatch_delivery":
		if idHex, ok := msg.Data["delivery_id"].(string); ok {
			if deliveryID, err := primitive.ObjectIDFromHex(idHex); err == nil {
				c.hub.LeaveRoom(c, deliveryRoom(deliveryID))
			}
		}
	}
}
