package handler

import (
	"net/http"
	"strconv"

	"fleetbilling/internal/middleware"
	"fleetbilling/internal/model"
	"fleetbilling/internal/service"
	"fleetbilling/pkg/pagination"
	"fleetbilling/pkg/response"

	"github.com/gin-gonic/gin"
)

type SalesInvoiceHandler struct {
	invoiceService service.SalesInvoiceService
}

func NewSalesInvoiceHandler(invoiceService service.SalesInvoiceService) *SalesInvoiceHandler {
	return &SalesInvoiceHandler{invoiceService: invoiceService}
}

func (h *SalesInvoiceHandler) RegisterRoutes(router *gin.RouterGroup) {
	invoices := router.Group("/api/sales-invoices")
	{
		invoices.POST("/from-cargo", middleware.RequirePermission(model.PermInvoicesWrite), h.CreateFromCargo)
		invoices.GET("", middleware.RequirePermission(model.PermInvoicesRead), h.ListInvoices)
		invoices.GET("/:id", middleware.RequirePermission(model.PermInvoicesRead), h.GetInvoice)
		invoices.PUT("/:id/submit", middleware.RequirePermission(model.PermInvoicesWrite), h.SubmitInvoice)
		invoices.PUT("/:id/cancel", middleware.RequirePermission(model.PermInvoicesCancel), h.CancelInvoice)
	}
}

// CreateFromCargo builds a draft sales invoice from selected cargo details
// @Summary      Create sales invoice from cargo
// @Description  Creates one draft invoice with a line per eligible cargo detail and links the details to it. cargo_detail_ids may be a list or a string holding a JSON list.
// @Tags         sales-invoices
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateFromCargoRequest  true  "Customer, company and cargo detail ids"
// @Success      201      {object}  response.Response{data=service.SalesInvoiceResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/sales-invoices/from-cargo [post]
func (h *SalesInvoiceHandler) CreateFromCargo(c *gin.Context) {
	var req service.CreateFromCargoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	created, err := h.invoiceService.CreateFromCargo(c.Request.Context(), req, middleware.UserID(c))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.SuccessWithMessage(http.StatusCreated, created.Notice, created.Invoice))
}

// ListInvoices returns a paginated list of sales invoices
// @Summary      List sales invoices
// @Tags         sales-invoices
// @Security     BearerAuth
// @Produce      json
// @Param        customer   query     string  false  "Filter by customer"
// @Param        docstatus  query     int     false  "Filter by docstatus (0 draft, 1 submitted, 2 cancelled)"
// @Param        page       query     int     false  "Page number (default 1)"
// @Param        limit      query     int     false  "Number of items per page (default 20)"
// @Success      200        {object}  response.Response{data=object}
// @Failure      400        {object}  response.Response
// @Router       /api/sales-invoices [get]
func (h *SalesInvoiceHandler) ListInvoices(c *gin.Context) {
	p := pagination.Parse(c)
	filter := service.SalesInvoiceFilter{
		Customer: c.Query("customer"),
		Page:     p.Page,
		Limit:    p.Limit,
	}
	if raw := c.Query("docstatus"); raw != "" {
		status, err := strconv.Atoi(raw)
		if err != nil || status < model.DocStatusDraft || status > model.DocStatusCancelled {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "docstatus must be 0, 1 or 2"))
			return
		}
		filter.DocStatus = &status
	}

	invoices, total, err := h.invoiceService.ListInvoices(c.Request.Context(), filter)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, pagination.Page("invoices", invoices, total, p)))
}

// GetInvoice returns one sales invoice with its lines
// @Summary      Get sales invoice
// @Tags         sales-invoices
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Sales invoice ID"
// @Success      200  {object}  response.Response{data=service.SalesInvoiceResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/sales-invoices/{id} [get]
func (h *SalesInvoiceHandler) GetInvoice(c *gin.Context) {
	invoice, err := h.invoiceService.GetInvoice(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, invoice))
}

// SubmitInvoice submits a draft sales invoice
// @Summary      Submit sales invoice
// @Tags         sales-invoices
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Sales invoice ID"
// @Success      200  {object}  response.Response{data=service.SalesInvoiceResponse}
// @Failure      400  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/sales-invoices/{id}/submit [put]
func (h *SalesInvoiceHandler) SubmitInvoice(c *gin.Context) {
	invoice, err := h.invoiceService.SubmitInvoice(c.Request.Context(), c.Param("id"), middleware.UserID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, invoice))
}

// CancelInvoice cancels a sales invoice and releases its cargo details
// @Summary      Cancel sales invoice
// @Description  Cancels a draft or submitted invoice. Every cargo detail billed on it becomes available for invoicing again.
// @Tags         sales-invoices
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Sales invoice ID"
// @Success      200  {object}  response.Response{data=service.SalesInvoiceResponse}
// @Failure      400  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/sales-invoices/{id}/cancel [put]
func (h *SalesInvoiceHandler) CancelInvoice(c *gin.Context) {
	invoice, err := h.invoiceService.CancelInvoice(c.Request.Context(), c.Param("id"), middleware.UserID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.SuccessWithMessage(http.StatusOK, "Sales Invoice "+invoice.Name+" cancelled", invoice))
}
