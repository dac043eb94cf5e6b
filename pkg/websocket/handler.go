package websocket

import (
	"fmt"
	"net/http"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ServeWS upgrades an HTTP request to a websocket connection and attaches it
// to the hub. The caller identifies itself with subject_id and client_type
// query parameters; watchers then send watch_delivery messages to subscribe.
func ServeWS(hub *Hub, w http.ResponseWriter, r *http.Request) error {
	subjectHex := r.URL.Query().Get("subject_id")
	subjectID, err := primitive.ObjectIDFromHex(subjectHex)
	if err != nil {
		return fmt.Errorf("invalid subject_id: %w", err)
	}

	clientType := r.URL.Query().Get("client_type")
	if clientType != ClientTypeCourier {
		clientType = ClientTypeWatcher
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("websocket upgrade failed: %w", err)
	}

	NewClient(hub, conn, subjectID, clientType).Start()
	return nil
}
