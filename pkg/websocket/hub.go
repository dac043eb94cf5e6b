package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"godispatch/pkg/logger"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Hub fans live dispatch updates out to connected clients. Watchers join a
// per-delivery room to follow one delivery; couriers get a personal room for
// assignment pushes.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	rooms      map[string]map[*Client]bool
	mutex      sync.RWMutex
	logger     *logger.Logger
}

type Message struct {
	Type      string                 `json:"type"`
	RoomID    string                 `json:"room_id,omitempty"`
	Timestamp int64                  `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		rooms:      make(map[string]map[*Client]bool),
		logger:     log,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case message := <-h.broadcast:
			h.broadcastMessage(message)
		}
	}
}

func deliveryRoom(deliveryID primitive.ObjectID) string {
	return "delivery_" + deliveryID.Hex()
}

func courierRoom(courierID primitive.ObjectID) string {
	return "courier_" + courierID.Hex()
}

func (h *Hub) registerClient(client *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	h.clients[client] = true

	if client.ClientType == ClientTypeCourier {
		h.joinRoom(client, courierRoom(client.SubjectID))
	}

	h.logger.WithField("subject_id", client.SubjectID.Hex()).
		WithField("client_type", client.ClientType).
		Debug("websocket client registered")
}

func (h *Hub) unregisterClient(client *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)

		for roomID, room := range h.rooms {
			if _, exists := room[client]; exists {
				delete(room, client)
				if len(room) == 0 {
					delete(h.rooms, roomID)
				}
			}
		}
	}
}

func (h *Hub) broadcastMessage(message []byte) {
	var msg Message
	if err := json.Unmarshal(message, &msg); err != nil {
		h.logger.WithError(err).Warn("dropping malformed websocket message")
		return
	}

	if msg.RoomID != "" {
		h.sendToRoom(msg.RoomID, msg)
	}
}

func (h *Hub) sendToRoom(roomID string, message Message) {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	room, exists := h.rooms[roomID]
	if !exists {
		return
	}

	data, _ := json.Marshal(message)
	for client := range room {
		select {
		case client.send <- data:
		default:
			close(client.send)
			delete(h.clients, client)
			delete(room, client)
		}
	}
}

// SendDeliveryUpdate pushes a message to everyone watching the delivery.
func (h *Hub) SendDeliveryUpdate(deliveryID primitive.ObjectID, msgType string, data map[string]interface{}) {
	roomID := deliveryRoom(deliveryID)
	h.sendToRoom(roomID, Message{
		Type:      msgType,
		RoomID:    roomID,
		Timestamp: time.Now().Unix(),
		Data:      data,
	})
}

// SendToCourier pushes a message to a courier's personal room.
func (h *Hub) SendToCourier(courierID primitive.ObjectID, msgType string, data map[string]interface{}) {
	roomID := courierRoom(courierID)
	h.sendToRoom(roomID, Message{
		Type:      msgType,
		RoomID:    roomID,
		Timestamp: time.Now().Unix(),
		Data:      data,
	})
}

// JoinDelivery subscribes a client to one delivery's update stream.
func (h *Hub) JoinDelivery(client *Client, deliveryID primitive.ObjectID) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.joinRoom(client, deliveryRoom(deliveryID))
}

func (h *Hub) joinRoom(client *Client, roomID string) {
	if h.rooms[roomID] == nil {
		h.rooms[roomID] = make(map[*Client]bool)
	}
	h.rooms[roomID][client] = true
	client.rooms[roomID] = true
}

func (h *Hub) LeaveRoom(client *Client, roomID string) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if room, exists := h.rooms[roomID]; exists {
		delete(room, client)
		delete(client.rooms, roomID)

		if len(room) == 0 {
			delete(h.rooms, roomID)
		}
	}
}
