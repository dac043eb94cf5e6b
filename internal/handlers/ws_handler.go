package handlers

import (
	"godispatch/internal/utils"
	"godispatch/pkg/websocket"

	"github.com/gin-gonic/gin"
)

type WSHandler struct {
	hub *websocket.Hub
}

func NewWSHandler(hub *websocket.Hub) *WSHandler {
	return &WSHandler{hub: hub}
}

// Connect upgrades to a websocket for live delivery tracking.
func (h *WSHandler) Connect(c *gin.Context) {
	if err := websocket.ServeWS(h.hub, c.Writer, c.Request); err != nil {
		utils.BadRequestResponse(c, err.Error())
	}
}
