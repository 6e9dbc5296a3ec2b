package handler

import (
	"net/http"
	"time"

	"fleetbilling/internal/middleware"
	"fleetbilling/internal/model"
	"fleetbilling/internal/service"
	"fleetbilling/pkg/response"

	"github.com/gin-gonic/gin"
)

type StatisticsHandler struct {
	statisticsService service.StatisticsService
	now               func() time.Time
}

func NewStatisticsHandler(statisticsService service.StatisticsService) *StatisticsHandler {
	return &StatisticsHandler{statisticsService: statisticsService, now: time.Now}
}

func (h *StatisticsHandler) RegisterRoutes(router *gin.RouterGroup) {
	statsGroup := router.Group("/api/statistics")
	{
		statsGroup.GET("", middleware.RequirePermission(model.PermInvoicesRead), h.GetStatistics)
	}
}

// GetStatistics returns billing totals for a posting-date window
// @Summary      Billing statistics
// @Description  Invoice counts by status, submitted totals, top customers and the current unbilled cargo backlog. Defaults to the current month.
// @Tags         statistics
// @Security     BearerAuth
// @Produce      json
// @Param        start_date  query     string  false  "Start date (YYYY-MM-DD)"
// @Param        end_date    query     string  false  "End date (YYYY-MM-DD)"
// @Success      200         {object}  response.Response{data=model.BillingStatistics}
// @Failure      400         {object}  response.Response
// @Router       /api/statistics [get]
func (h *StatisticsHandler) GetStatistics(c *gin.Context) {
	now := h.now().UTC()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	var err error
	if v := c.Query("start_date"); v != "" {
		if start, err = time.Parse("2006-01-02", v); err != nil {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "invalid start_date format, expected YYYY-MM-DD"))
			return
		}
	}
	if v := c.Query("end_date"); v != "" {
		if end, err = time.Parse("2006-01-02", v); err != nil {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "invalid end_date format, expected YYYY-MM-DD"))
			return
		}
	}
	if end.Before(start) {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "end_date is before start_date"))
		return
	}

	stats, err := h.statisticsService.GetStatistics(c.Request.Context(), start, end)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, stats))
}
