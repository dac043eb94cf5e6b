package handlers

import (
	"godispatch/internal/models"
	"godispatch/internal/services"
	"godispatch/internal/utils"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ServiceAreaHandler struct {
	areaService *services.ServiceAreaService
}

func NewServiceAreaHandler(areaService *services.ServiceAreaService) *ServiceAreaHandler {
	return &ServiceAreaHandler{
		areaService: areaService,
	}
}

func (h *ServiceAreaHandler) CreateServiceArea(c *gin.Context) {
	var request services.CreateServiceAreaRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	area, err := h.areaService.CreateServiceArea(c.Request.Context(), &request)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.CreatedResponse(c, "Service area created successfully", area)
}

func (h *ServiceAreaHandler) GetServiceArea(c *gin.Context) {
	areaID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid service area ID")
		return
	}

	area, err := h.areaService.GetServiceArea(c.Request.Context(), areaID)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, "Service area retrieved successfully", area)
}

func (h *ServiceAreaHandler) ListServiceAreas(c *gin.Context) {
	tenantID, err := primitive.ObjectIDFromHex(c.Query("tenant_id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid tenant ID")
		return
	}

	areas, err := h.areaService.ListActiveByTenant(c.Request.Context(), tenantID)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, "Service areas retrieved successfully", areas)
}

func (h *ServiceAreaHandler) ActivateServiceArea(c *gin.Context) {
	areaID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid service area ID")
		return
	}

	area, err := h.areaService.ActivateServiceArea(c.Request.Context(), areaID)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, "Service area activated", area)
}

func (h *ServiceAreaHandler) DeactivateServiceArea(c *gin.Context) {
	areaID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid service area ID")
		return
	}

	area, err := h.areaService.DeactivateServiceArea(c.Request.Context(), areaID)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, "Service area deactivated", area)
}

// CheckCoverage reports whether a point is inside any active service area.
func (h *ServiceAreaHandler) CheckCoverage(c *gin.Context) {
	var query struct {
		Latitude  float64 `form:"lat" binding:"required"`
		Longitude float64 `form:"lng" binding:"required"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		utils.BadRequestResponse(c, "Invalid coordinates: "+err.Error())
		return
	}

	location, err := models.NewLocation(query.Latitude, query.Longitude)
	if err != nil {
		respondError(c, err)
		return
	}

	served, err := h.areaService.IsLocationServed(c.Request.Context(), location)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, "Coverage checked", gin.H{"served": served})
}
