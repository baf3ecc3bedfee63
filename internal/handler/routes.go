package handler

import "github.com/gin-gonic/gin"

// Register mounts every endpoint under rg (normally /api/v1).
func Register(rg *gin.RouterGroup, orders *OrderHandler, catalog *CatalogHandler, health *HealthHandler) {
	rg.POST("/orders", orders.CreateOrder)
	rg.GET("/orders", orders.ListOrders)
	rg.GET("/orders/:id", orders.GetOrder)
	rg.PUT("/orders/:id/status", orders.UpdateStatus)

	rg.GET("/invoices", orders.ListInvoices)
	rg.GET("/invoices/:id", orders.GetInvoice)

	rg.GET("/products", catalog.ListProducts)
	rg.POST("/products", catalog.CreateProduct)
	rg.GET("/products/:id", catalog.GetProduct)
	rg.PUT("/products/:id", catalog.UpdateProduct)
	rg.DELETE("/products/:id", catalog.DeleteProduct)

	rg.GET("/customers", catalog.ListCustomers)
	rg.POST("/customers", catalog.CreateCustomer)
	rg.GET("/customers/:id", catalog.GetCustomer)
	rg.GET("/customers/:id/orders", orders.ListCustomerOrders)

	rg.GET("/health", health.Health)
}
