package handler

import (
	"net/http"
	"strings"

	"fiscalis/internal/middleware"
	"fiscalis/internal/service"
	"fiscalis/pkg/pagination"
	"fiscalis/pkg/response"

	"github.com/gin-gonic/gin"
)

type InvoiceHandler struct {
	invoiceService service.InvoiceService
}

func NewInvoiceHandler(invoiceService service.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{invoiceService: invoiceService}
}

func (h *InvoiceHandler) RegisterRoutes(router *gin.RouterGroup) {
	invoices := router.Group("/api/invoices")
	{
		invoices.POST("", middleware.RequireRole("admin", "manager"), h.CreateInvoice)
		invoices.GET("", middleware.RequireRole("admin", "manager", "collaborator"), h.ListInvoices)
		invoices.PUT("/:id/send", middleware.RequireRole("admin", "manager"), h.MarkSent)
		invoices.PUT("/:id/pay", middleware.RequireRole("admin", "manager"), h.MarkPaid)
	}
}

// CreateInvoice creates a new fee note for a client
// @Summary      Create invoice
// @Description  Creates a new fee note in DRAFT status with a sequential invoice number
// @Tags         invoices
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateInvoiceRequest  true  "Create Invoice Payload"
// @Success      201      {object}  response.Response{data=service.InvoiceResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/invoices [post]
func (h *InvoiceHandler) CreateInvoice(c *gin.Context) {
	var req service.CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	invoice, err := h.invoiceService.CreateInvoice(c.Request.Context(), req, currentUserID(c))
	if err != nil {
		status := invoiceErrStatus(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, invoice))
}

// ListInvoices returns a paginated list of invoices
// @Summary      List invoices
// @Description  Retrieves a paginated list of fee notes, optionally filtered by status and client
// @Tags         invoices
// @Security     BearerAuth
// @Produce      json
// @Param        status     query     string  false  "Filter by status (DRAFT, SENT, PAID)"
// @Param        client_id  query     string  false  "Filter by client ID"
// @Param        page       query     int     false  "Page number (default 1)"
// @Param        limit      query     int     false  "Number of items per page (default 20)"
// @Success      200        {object}  response.Response{data=object}
// @Failure      500        {object}  response.Response
// @Router       /api/invoices [get]
func (h *InvoiceHandler) ListInvoices(c *gin.Context) {
	params := pagination.Parse(c)

	filter := service.InvoiceFilter{
		Status:   c.Query("status"),
		ClientID: c.Query("client_id"),
		Page:     params.Page,
		Limit:    params.Limit,
	}

	invoices, total, err := h.invoiceService.ListInvoices(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.SuccessWithPagination(http.StatusOK, invoices, total, params.Page, params.Limit))
}

// MarkSent transitions a draft invoice to SENT
// @Summary      Send invoice
// @Description  Marks a DRAFT invoice as sent to the client
// @Tags         invoices
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Invoice ID"
// @Success      200  {object}  response.Response{data=service.InvoiceResponse}
// @Failure      400  {object}  response.Response
// @Router       /api/invoices/{id}/send [put]
func (h *InvoiceHandler) MarkSent(c *gin.Context) {
	invoice, err := h.invoiceService.MarkSent(c.Request.Context(), c.Param("id"), currentUserID(c))
	if err != nil {
		status := invoiceErrStatus(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, invoice))
}

// MarkPaid transitions a sent invoice to PAID
// @Summary      Settle invoice
// @Description  Marks a SENT invoice as paid, stamping the payment time
// @Tags         invoices
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Invoice ID"
// @Success      200  {object}  response.Response{data=service.InvoiceResponse}
// @Failure      400  {object}  response.Response
// @Router       /api/invoices/{id}/pay [put]
func (h *InvoiceHandler) MarkPaid(c *gin.Context) {
	invoice, err := h.invoiceService.MarkPaid(c.Request.Context(), c.Param("id"), currentUserID(c))
	if err != nil {
		status := invoiceErrStatus(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, invoice))
}

func invoiceErrStatus(err error) int {
	if strings.Contains(err.Error(), "not found") {
		return http.StatusNotFound
	}
	return http.StatusBadRequest
}
