package handler

import (
	"net/http"

	"github.com/cloud-wave-best-zizon/fulfillment-service/internal/domain"
	"github.com/cloud-wave-best-zizon/fulfillment-service/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type OrderHandler struct {
	orderService *service.OrderService
	logger       *zap.Logger
}

func NewOrderHandler(orderService *service.OrderService, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
		logger:       logger,
	}
}

func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req domain.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, h.logger, err)
		return
	}

	requestID := c.GetString("request_id")

	order, err := h.orderService.PlaceOrder(c.Request.Context(), req, requestID)
	if err != nil {
		writeError(c, h.logger, "Failed to create order", err)
		return
	}

	response := domain.CreateOrderResponse{
		OrderID:     order.OrderID,
		Status:      order.Status,
		TotalAmount: order.TotalAmount,
		Message:     "Order created successfully",
	}
	if order.Invoice != nil {
		response.InvoiceID = order.Invoice.InvoiceID
	}

	c.JSON(http.StatusCreated, response)
}

func (h *OrderHandler) GetOrder(c *gin.Context) {
	order, err := h.orderService.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, "Failed to get order", err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) ListOrders(c *gin.Context) {
	orders, err := h.orderService.ListOrders(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, "Failed to list orders", err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

func (h *OrderHandler) ListCustomerOrders(c *gin.Context) {
	orders, err := h.orderService.ListCustomerOrders(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, "Failed to list customer orders", err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	var req domain.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, h.logger, err)
		return
	}

	order, err := h.orderService.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status, c.GetString("request_id"))
	if err != nil {
		writeError(c, h.logger, "Failed to update order status", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"order_id": order.OrderID,
		"status":   order.Status,
		"message":  "Order status updated successfully",
	})
}

func (h *OrderHandler) GetInvoice(c *gin.Context) {
	invoice, err := h.orderService.GetInvoice(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, "Failed to get invoice", err)
		return
	}
	c.JSON(http.StatusOK, invoice)
}

func (h *OrderHandler) ListInvoices(c *gin.Context) {
	invoices, err := h.orderService.ListInvoices(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, "Failed to list invoices", err)
		return
	}
	c.JSON(http.StatusOK, invoices)
}
