package handlers

import (
	"godispatch/internal/services"
	"godispatch/internal/utils"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type DeliveryHandler struct {
	dispatchService *services.DispatchService
}

func NewDeliveryHandler(dispatchService *services.DispatchService) *DeliveryHandler {
	return &DeliveryHandler{
		dispatchService: dispatchService,
	}
}

// CreateDelivery registers a new delivery in PENDING state.
func (h *DeliveryHandler) CreateDelivery(c *gin.Context) {
	var request services.CreateDeliveryRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	delivery, err := h.dispatchService.CreateDelivery(c.Request.Context(), &request)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.CreatedResponse(c, "Delivery created successfully", delivery)
}

// GetDelivery returns one delivery with its route and status timestamps.
func (h *DeliveryHandler) GetDelivery(c *gin.Context) {
	deliveryID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid delivery ID")
		return
	}

	delivery, err := h.dispatchService.GetDelivery(c.Request.Context(), deliveryID)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, "Delivery retrieved successfully", delivery)
}

// Dispatch assigns a courier and route to a pending delivery.
func (h *DeliveryHandler) Dispatch(c *gin.Context) {
	deliveryID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid delivery ID")
		return
	}

	delivery, err := h.dispatchService.Dispatch(c.Request.Context(), deliveryID)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, "Delivery dispatched successfully", delivery)
}

// Cancel fails the delivery and releases its courier.
func (h *DeliveryHandler) Cancel(c *gin.Context) {
	deliveryID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid delivery ID")
		return
	}

	delivery, err := h.dispatchService.Cancel(c.Request.Context(), deliveryID)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, "Delivery cancelled", delivery)
}

// Reassign moves the delivery to a different courier with a fresh route.
func (h *DeliveryHandler) Reassign(c *gin.Context) {
	deliveryID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid delivery ID")
		return
	}

	delivery, err := h.dispatchService.Reassign(c.Request.Context(), deliveryID)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, "Delivery reassigned successfully", delivery)
}

// MarkPickedUp records the courier collecting the package.
func (h *DeliveryHandler) MarkPickedUp(c *gin.Context) {
	deliveryID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid delivery ID")
		return
	}

	delivery, err := h.dispatchService.MarkPickedUp(c.Request.Context(), deliveryID)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, "Delivery picked up", delivery)
}

// MarkDelivered completes the delivery.
func (h *DeliveryHandler) MarkDelivered(c *gin.Context) {
	deliveryID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid delivery ID")
		return
	}

	delivery, err := h.dispatchService.MarkDelivered(c.Request.Context(), deliveryID)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, "Delivery completed", delivery)
}
