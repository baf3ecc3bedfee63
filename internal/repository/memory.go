package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cloud-wave-best-zizon/fulfillment-service/internal/domain"
)

// MemoryStore keeps everything in process. A single RWMutex makes every
// write, including a whole OrderCommit, visible to readers all at once.
type MemoryStore struct {
	mu        sync.RWMutex
	products  map[string]domain.Product
	customers map[string]domain.Customer
	orders    map[string]domain.Order
	invoices  map[string]domain.Invoice
	// order id -> invoice id
	invoiceByOrder map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		products:  make(map[string]domain.Product),
		customers: make(map[string]domain.Customer),
		orders:    make(map[string]domain.Order),
		invoices:  make(map[string]domain.Invoice),

		invoiceByOrder: make(map[string]string),
	}
}

func (s *MemoryStore) Ping(ctx context.Context) error { return ctx.Err() }

func (s *MemoryStore) Close() error { return nil }

// Products

func (s *MemoryStore) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	return &p, nil
}

func (s *MemoryStore) ListProducts(ctx context.Context) ([]*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Product, 0, len(s.products))
	for _, p := range s.products {
		p := p
		out = append(out, &p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out, nil
}

func (s *MemoryStore) CreateProduct(ctx context.Context, product *domain.Product) error {
	if product.Stock < 0 {
		return domain.ErrInvalidRequest
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[product.ProductID]; ok {
		return domain.ErrAlreadyExists
	}
	s.products[product.ProductID] = *product
	return nil
}

func (s *MemoryStore) UpdateProduct(ctx context.Context, product *domain.Product, expectedStock int) error {
	if product.Stock < 0 {
		return domain.ErrInvalidRequest
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.products[product.ProductID]
	if !ok {
		return domain.ErrProductNotFound
	}
	if current.Stock != expectedStock {
		return domain.ErrStockConflict
	}
	product.CreatedAt = current.CreatedAt
	s.products[product.ProductID] = *product
	return nil
}

func (s *MemoryStore) DeleteProduct(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[id]; !ok {
		return domain.ErrProductNotFound
	}
	delete(s.products, id)
	return nil
}

func (s *MemoryStore) ConditionalUpdateStock(ctx context.Context, id string, expectedStock, newStock int) error {
	if newStock < 0 {
		return domain.ErrInvalidRequest
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok {
		return domain.ErrProductNotFound
	}
	if p.Stock != expectedStock {
		return domain.ErrStockConflict
	}
	p.Stock = newStock
	p.UpdatedAt = time.Now().UTC()
	s.products[id] = p
	return nil
}

// Customers

func (s *MemoryStore) GetCustomer(ctx context.Context, id string) (*domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.customers[id]
	if !ok {
		return nil, domain.ErrCustomerNotFound
	}
	return &c, nil
}

func (s *MemoryStore) ListCustomers(ctx context.Context) ([]*domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Customer, 0, len(s.customers))
	for _, c := range s.customers {
		c := c
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CustomerID < out[j].CustomerID })
	return out, nil
}

func (s *MemoryStore) CreateCustomer(ctx context.Context, customer *domain.Customer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.customers[customer.CustomerID]; ok {
		return domain.ErrAlreadyExists
	}
	s.customers[customer.CustomerID] = *customer
	return nil
}

// Orders

func (s *MemoryStore) CommitOrder(ctx context.Context, commit OrderCommit) error {
	if err := validateCommit(commit); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Check every precondition before touching anything.
	for _, r := range commit.Reservations {
		p, ok := s.products[r.ProductID]
		if !ok {
			return &domain.ProductNotFoundError{ProductID: r.ProductID}
		}
		if p.Stock != r.ExpectedStock {
			return domain.ErrStockConflict
		}
	}
	if _, ok := s.orders[commit.Order.OrderID]; ok {
		return domain.ErrAlreadyExists
	}

	now := time.Now().UTC()
	for _, r := range commit.Reservations {
		p := s.products[r.ProductID]
		p.Stock = r.NewStock
		p.UpdatedAt = now
		s.products[r.ProductID] = p
	}
	s.orders[commit.Order.OrderID] = copyOrder(commit.Order, nil)
	s.invoices[commit.Invoice.InvoiceID] = *commit.Invoice
	s.invoiceByOrder[commit.Order.OrderID] = commit.Invoice.InvoiceID
	return nil
}

func (s *MemoryStore) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.orders[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	out := copyOrder(&o, s.invoiceFor(id))
	return &out, nil
}

func (s *MemoryStore) ListOrders(ctx context.Context) ([]*domain.Order, error) {
	return s.listOrders(func(*domain.Order) bool { return true }), nil
}

func (s *MemoryStore) ListOrdersByCustomer(ctx context.Context, customerID string) ([]*domain.Order, error) {
	return s.listOrders(func(o *domain.Order) bool { return o.CustomerID == customerID }), nil
}

func (s *MemoryStore) listOrders(keep func(*domain.Order) bool) []*domain.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Order, 0, len(s.orders))
	for id, o := range s.orders {
		if !keep(&o) {
			continue
		}
		c := copyOrder(&o, s.invoiceFor(id))
		out = append(out, &c)
	}
	sortOrders(out)
	return out
}

func (s *MemoryStore) UpdateOrderStatus(ctx context.Context, id string, from, to domain.OrderStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[id]
	if !ok {
		return domain.ErrOrderNotFound
	}
	if o.Status != from {
		return domain.ErrStatusConflict
	}
	o.Status = to
	o.UpdatedAt = time.Now().UTC()
	s.orders[id] = o
	return nil
}

// Invoices

func (s *MemoryStore) GetInvoice(ctx context.Context, id string) (*domain.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inv, ok := s.invoices[id]
	if !ok {
		return nil, domain.ErrInvoiceNotFound
	}
	return &inv, nil
}

func (s *MemoryStore) ListInvoices(ctx context.Context) ([]*domain.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Invoice, 0, len(s.invoices))
	for _, inv := range s.invoices {
		inv := inv
		out = append(out, &inv)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].IssuedAt.Equal(out[j].IssuedAt) {
			return out[i].InvoiceID < out[j].InvoiceID
		}
		return out[i].IssuedAt.Before(out[j].IssuedAt)
	})
	return out, nil
}

// invoiceFor must be called with mu held.
func (s *MemoryStore) invoiceFor(orderID string) *domain.Invoice {
	id, ok := s.invoiceByOrder[orderID]
	if !ok {
		return nil
	}
	inv := s.invoices[id]
	return &inv
}

func copyOrder(o *domain.Order, invoice *domain.Invoice) domain.Order {
	c := *o
	c.Lines = append([]domain.OrderLine(nil), o.Lines...)
	c.Invoice = invoice
	return c
}

func sortOrders(orders []*domain.Order) {
	sort.Slice(orders, func(i, j int) bool {
		if orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].OrderID < orders[j].OrderID
		}
		return orders[i].CreatedAt.Before(orders[j].CreatedAt)
	})
}
