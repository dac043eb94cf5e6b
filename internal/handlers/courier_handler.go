package handlers

import (
	"godispatch/internal/services"
	"godispatch/internal/utils"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type CourierHandler struct {
	courierService  *services.CourierService
	trackingService *services.TrackingService
}

func NewCourierHandler(courierService *services.CourierService, trackingService *services.TrackingService) *CourierHandler {
	return &CourierHandler{
		courierService:  courierService,
		trackingService: trackingService,
	}
}

func (h *CourierHandler) RegisterCourier(c *gin.Context) {
	var request services.RegisterCourierRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	courier, err := h.courierService.RegisterCourier(c.Request.Context(), &request)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.CreatedResponse(c, "Courier registered successfully", courier)
}

func (h *CourierHandler) GetCourier(c *gin.Context) {
	courierID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid courier ID")
		return
	}

	courier, err := h.courierService.GetCourier(c.Request.Context(), courierID)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, "Courier retrieved successfully", courier)
}

func (h *CourierHandler) GoOnline(c *gin.Context) {
	courierID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid courier ID")
		return
	}

	courier, err := h.courierService.GoOnline(c.Request.Context(), courierID)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, "Courier is online", courier)
}

func (h *CourierHandler) GoOffline(c *gin.Context) {
	courierID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid courier ID")
		return
	}

	courier, err := h.courierService.GoOffline(c.Request.Context(), courierID)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, "Courier is offline", courier)
}

// UpdateLocation ingests a position report from the courier app.
func (h *CourierHandler) UpdateLocation(c *gin.Context) {
	courierID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid courier ID")
		return
	}

	var update services.CourierLocationUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	if err := h.trackingService.RecordCourierUpdate(c.Request.Context(), courierID, update); err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, "Location recorded", nil)
}

// GetLocation returns the latest tracked position, if any.
func (h *CourierHandler) GetLocation(c *gin.Context) {
	courierID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid courier ID")
		return
	}

	report, ok, err := h.trackingService.GetCourierLocation(c.Request.Context(), courierID)
	if err != nil {
		respondError(c, err)
		return
	}
	if !ok {
		utils.NotFoundResponse(c, "No tracked location for courier")
		return
	}

	utils.SuccessResponse(c, "Location retrieved successfully", report)
}
