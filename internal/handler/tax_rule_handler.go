package handler

import (
	"net/http"

	"fleetbilling/internal/middleware"
	"fleetbilling/internal/model"
	"fleetbilling/internal/service"
	"fleetbilling/pkg/response"

	"github.com/gin-gonic/gin"
)

type TaxRuleHandler struct {
	taxRuleService service.TaxRuleService
}

func NewTaxRuleHandler(taxRuleService service.TaxRuleService) *TaxRuleHandler {
	return &TaxRuleHandler{taxRuleService: taxRuleService}
}

func (h *TaxRuleHandler) RegisterRoutes(router *gin.RouterGroup) {
	tax := router.Group("/api/tax-rules")
	{
		tax.GET("", middleware.RequirePermission(model.PermInvoicesRead), h.GetTaxRules)
		tax.GET("/active", middleware.RequirePermission(model.PermInvoicesRead), h.GetActiveTaxRate)
		tax.POST("", middleware.RequirePermission(model.PermTaxManage), h.CreateTaxRule)
		tax.PUT("/:id", middleware.RequirePermission(model.PermTaxManage), h.UpdateTaxRule)
		tax.DELETE("/:id", middleware.RequirePermission(model.PermTaxManage), h.DeleteTaxRule)
	}
}

// GetTaxRules returns all tax rules ordered by effective_from DESC
// @Summary      List tax rules
// @Tags         tax-rules
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=[]service.TaxRuleResponse}
// @Router       /api/tax-rules [get]
func (h *TaxRuleHandler) GetTaxRules(c *gin.Context) {
	rules, err := h.taxRuleService.GetTaxRules(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, rules))
}

// GetActiveTaxRate returns today's rate for a tax type; data is null when none applies
// @Summary      Active tax rate
// @Tags         tax-rules
// @Security     BearerAuth
// @Produce      json
// @Param        tax_type  query     string  true  "Tax type, e.g. VAT"
// @Success      200       {object}  response.Response{data=service.ActiveTaxRateResponse}
// @Failure      400       {object}  response.Response
// @Router       /api/tax-rules/active [get]
func (h *TaxRuleHandler) GetActiveTaxRate(c *gin.Context) {
	taxType := c.Query("tax_type")
	if taxType == "" {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "tax_type is required"))
		return
	}

	rate, err := h.taxRuleService.GetActiveTaxRate(c.Request.Context(), taxType)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, rate))
}

// CreateTaxRule creates a new tax rule entry
// @Summary      Create tax rule
// @Tags         tax-rules
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.TaxRuleRequest  true  "Tax rule"
// @Success      201      {object}  response.Response{data=service.TaxRuleResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/tax-rules [post]
func (h *TaxRuleHandler) CreateTaxRule(c *gin.Context) {
	var req service.TaxRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	rule, err := h.taxRuleService.CreateTaxRule(c.Request.Context(), req, middleware.UserID(c))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, rule))
}

// UpdateTaxRule replaces a tax rule's rate and validity window
// @Summary      Update tax rule
// @Tags         tax-rules
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                  true  "Tax rule ID"
// @Param        payload  body      service.TaxRuleRequest  true  "Tax rule"
// @Success      200      {object}  response.Response{data=service.TaxRuleResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/tax-rules/{id} [put]
func (h *TaxRuleHandler) UpdateTaxRule(c *gin.Context) {
	var req service.TaxRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	rule, err := h.taxRuleService.UpdateTaxRule(c.Request.Context(), c.Param("id"), req, middleware.UserID(c))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, rule))
}

// DeleteTaxRule removes a tax rule
// @Summary      Delete tax rule
// @Tags         tax-rules
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Tax rule ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/tax-rules/{id} [delete]
func (h *TaxRuleHandler) DeleteTaxRule(c *gin.Context) {
	if err := h.taxRuleService.DeleteTaxRule(c.Request.Context(), c.Param("id"), middleware.UserID(c)); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.SuccessWithMessage(http.StatusOK, "Tax rule deleted", nil))
}
