package handlers

import (
	"errors"
	"net/http"

	"godispatch/internal/models"
	"godispatch/internal/utils"

	"github.com/gin-gonic/gin"
)

// respondError maps domain sentinel errors onto the API error taxonomy.
// Anything unrecognized is an internal error; the raw message is not leaked.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrDeliveryNotFound),
		errors.Is(err, models.ErrCourierNotFound),
		errors.Is(err, models.ErrServiceAreaNotFound):
		utils.ErrorResponse(c, http.StatusNotFound, utils.ErrCodeNotFound, err.Error())

	case errors.Is(err, models.ErrInvalidGeometry):
		utils.ErrorResponse(c, http.StatusBadRequest, utils.ErrCodeInvalidGeometry, err.Error())

	case errors.Is(err, models.ErrOutsideServiceArea):
		utils.ErrorResponse(c, http.StatusUnprocessableEntity, utils.ErrCodeOutsideArea, err.Error())

	case errors.Is(err, models.ErrNoCourierAvailable):
		utils.ErrorResponse(c, http.StatusConflict, utils.ErrCodeNoCourier, err.Error())

	case errors.Is(err, models.ErrServiceAreaOverlap):
		utils.ErrorResponse(c, http.StatusConflict, utils.ErrCodeAreaOverlap, err.Error())

	case errors.Is(err, models.ErrInvalidTransition):
		utils.ErrorResponse(c, http.StatusConflict, utils.ErrCodeInvalidTransition, err.Error())

	default:
		utils.ErrorResponse(c, http.StatusInternalServerError, utils.ErrCodeInternal, "internal error")
	}
}
