package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Stock     int             `json:"stock"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type Customer struct {
	CustomerID string    `json:"customer_id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	CreatedAt  time.Time `json:"created_at"`
}

type ProductRequest struct {
	Name  string          `json:"name" binding:"required"`
	Price decimal.Decimal `json:"price"`
	Stock int             `json:"stock"`
}

func (r ProductRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return invalidRequest("product name is required")
	}
	if r.Price.IsNegative() {
		return invalidRequest("price must not be negative")
	}
	if r.Stock < 0 {
		return invalidRequest("stock must not be negative")
	}
	return nil
}

type CustomerRequest struct {
	Name  string `json:"name" binding:"required"`
	Email string `json:"email" binding:"required,email"`
}

func (r CustomerRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return invalidRequest("customer name is required")
	}
	if !strings.Contains(r.Email, "@") {
		return invalidRequest("customer email %q is not an address", r.Email)
	}
	return nil
}
