package repository

import (
	"context"

	"github.com/cloud-wave-best-zizon/fulfillment-service/internal/domain"
)

// StockReservation is a compare-and-swap on one product's stock count.
type StockReservation struct {
	ProductID     string
	ExpectedStock int
	NewStock      int
}

// OrderCommit is everything PlaceOrder writes. Stores apply it as a single
// atomic unit: every reservation must match or nothing is written.
type OrderCommit struct {
	Reservations []StockReservation
	Order        *domain.Order
	Invoice      *domain.Invoice
}

type CatalogStore interface {
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	ListProducts(ctx context.Context) ([]*domain.Product, error)
	CreateProduct(ctx context.Context, product *domain.Product) error
	// UpdateProduct replaces name, price and stock. expectedStock guards the
	// stock column the same way ConditionalUpdateStock does.
	UpdateProduct(ctx context.Context, product *domain.Product, expectedStock int) error
	DeleteProduct(ctx context.Context, id string) error
	ConditionalUpdateStock(ctx context.Context, id string, expectedStock, newStock int) error
}

type OrderStore interface {
	GetCustomer(ctx context.Context, id string) (*domain.Customer, error)
	ListCustomers(ctx context.Context) ([]*domain.Customer, error)
	CreateCustomer(ctx context.Context, customer *domain.Customer) error

	GetOrder(ctx context.Context, id string) (*domain.Order, error)
	ListOrders(ctx context.Context) ([]*domain.Order, error)
	ListOrdersByCustomer(ctx context.Context, customerID string) ([]*domain.Order, error)
	CommitOrder(ctx context.Context, commit OrderCommit) error
	UpdateOrderStatus(ctx context.Context, id string, from, to domain.OrderStatus) error

	GetInvoice(ctx context.Context, id string) (*domain.Invoice, error)
	ListInvoices(ctx context.Context) ([]*domain.Invoice, error)
}

// Store is the full persistence surface used by the service layer.
type Store interface {
	CatalogStore
	OrderStore
	Ping(ctx context.Context) error
	Close() error
}

func validateCommit(commit OrderCommit) error {
	if commit.Order == nil || commit.Invoice == nil {
		return domain.ErrInvalidRequest
	}
	for _, r := range commit.Reservations {
		if r.NewStock < 0 {
			return domain.ErrInvalidRequest
		}
	}
	return nil
}
