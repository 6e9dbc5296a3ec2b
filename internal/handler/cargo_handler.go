package handler

import (
	"net/http"

	"fleetbilling/internal/middleware"
	"fleetbilling/internal/model"
	"fleetbilling/internal/service"
	"fleetbilling/pkg/response"

	"github.com/gin-gonic/gin"
)

type CargoHandler struct {
	cargoService service.CargoService
}

func NewCargoHandler(cargoService service.CargoService) *CargoHandler {
	return &CargoHandler{cargoService: cargoService}
}

func (h *CargoHandler) RegisterRoutes(router *gin.RouterGroup) {
	cargo := router.Group("/api/cargo-details")
	{
		cargo.GET("/uninvoiced", middleware.RequirePermission(model.PermCargoRead), h.GetUninvoicedCargoDetails)
	}
}

// GetUninvoicedCargoDetails lists submitted cargo details of a customer not yet billed
// @Summary      List uninvoiced cargo details
// @Description  Returns every submitted cargo detail of the customer's submitted registrations that has no invoice yet, enriched with manifest vehicle and driver
// @Tags         cargo
// @Security     BearerAuth
// @Produce      json
// @Param        customer  query     string  true   "Customer"
// @Param        company   query     string  false  "Company"
// @Success      200       {object}  response.Response{data=[]service.UninvoicedCargoResponse}
// @Failure      400       {object}  response.Response
// @Router       /api/cargo-details/uninvoiced [get]
func (h *CargoHandler) GetUninvoicedCargoDetails(c *gin.Context) {
	var filter service.UninvoicedCargoFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid query: "+err.Error()))
		return
	}

	result, err := h.cargoService.GetUninvoicedCargoDetails(c.Request.Context(), filter)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.SuccessWithMessage(http.StatusOK, result.Notice, result.Details))
}
