package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// MaxOrderLines bounds a single order so it fits in one store transaction.
const MaxOrderLines = 50

type Order struct {
	OrderID       string          `json:"order_id"`
	CustomerID    string          `json:"customer_id"`
	Lines         []OrderLine     `json:"lines"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	PaymentMethod string          `json:"payment_method"`
	Status        OrderStatus     `json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	Invoice       *Invoice        `json:"invoice,omitempty"`
}

// OrderLine is a snapshot of a product at the time the order was placed.
// UnitPrice and Discount never follow later catalog changes.
type OrderLine struct {
	LineID    string          `json:"line_id"`
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Discount  decimal.Decimal `json:"discount"`
}

// NetAmount is (unit price - discount) * quantity.
func (l OrderLine) NetAmount() decimal.Decimal {
	return l.UnitPrice.Sub(l.Discount).Mul(decimal.NewFromInt(int64(l.Quantity)))
}

type Invoice struct {
	InvoiceID   string          `json:"invoice_id"`
	OrderID     string          `json:"order_id"`
	IssuedAt    time.Time       `json:"issued_at"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

// LineRequest is one requested (product, quantity) pair of PlaceOrder.
type LineRequest struct {
	ProductID string `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required"`
}

type CreateOrderRequest struct {
	CustomerID    string        `json:"customer_id" binding:"required"`
	Items         []LineRequest `json:"items" binding:"required,min=1"`
	PaymentMethod string        `json:"payment_method" binding:"required"`
}

type CreateOrderResponse struct {
	OrderID     string          `json:"order_id"`
	InvoiceID   string          `json:"invoice_id"`
	Status      OrderStatus     `json:"status"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Message     string          `json:"message"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// ValidateLines checks the request shape independently of any upstream binding.
func ValidateLines(lines []LineRequest) error {
	if len(lines) == 0 {
		return invalidRequest("order must contain at least one line")
	}
	if len(lines) > MaxOrderLines {
		return invalidRequest("order exceeds %d lines", MaxOrderLines)
	}
	for i, l := range lines {
		if l.ProductID == "" {
			return invalidRequest("line %d: product id is required", i)
		}
		if l.Quantity <= 0 {
			return invalidRequest("line %d: quantity must be positive, got %d", i, l.Quantity)
		}
	}
	return nil
}
