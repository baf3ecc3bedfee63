package handler

import (
	"net/http"

	"github.com/cloud-wave-best-zizon/fulfillment-service/internal/domain"
	"github.com/cloud-wave-best-zizon/fulfillment-service/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type CatalogHandler struct {
	catalogService *service.CatalogService
	logger         *zap.Logger
}

func NewCatalogHandler(catalogService *service.CatalogService, logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{
		catalogService: catalogService,
		logger:         logger,
	}
}

func (h *CatalogHandler) CreateProduct(c *gin.Context) {
	var req domain.ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, h.logger, err)
		return
	}

	product, err := h.catalogService.CreateProduct(c.Request.Context(), req)
	if err != nil {
		writeError(c, h.logger, "Failed to create product", err)
		return
	}
	c.JSON(http.StatusCreated, product)
}

func (h *CatalogHandler) GetProduct(c *gin.Context) {
	product, err := h.catalogService.GetProduct(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, "Failed to get product", err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *CatalogHandler) ListProducts(c *gin.Context) {
	products, err := h.catalogService.ListProducts(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, "Failed to list products", err)
		return
	}
	c.JSON(http.StatusOK, products)
}

func (h *CatalogHandler) UpdateProduct(c *gin.Context) {
	var req domain.ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, h.logger, err)
		return
	}

	product, err := h.catalogService.UpdateProduct(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		writeError(c, h.logger, "Failed to update product", err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *CatalogHandler) DeleteProduct(c *gin.Context) {
	if err := h.catalogService.DeleteProduct(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, h.logger, "Failed to delete product", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *CatalogHandler) CreateCustomer(c *gin.Context) {
	var req domain.CustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, h.logger, err)
		return
	}

	customer, err := h.catalogService.CreateCustomer(c.Request.Context(), req)
	if err != nil {
		writeError(c, h.logger, "Failed to create customer", err)
		return
	}
	c.JSON(http.StatusCreated, customer)
}

func (h *CatalogHandler) GetCustomer(c *gin.Context) {
	customer, err := h.catalogService.GetCustomer(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, "Failed to get customer", err)
		return
	}
	c.JSON(http.StatusOK, customer)
}

func (h *CatalogHandler) ListCustomers(c *gin.Context) {
	customers, err := h.catalogService.ListCustomers(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, "Failed to list customers", err)
		return
	}
	c.JSON(http.StatusOK, customers)
}
