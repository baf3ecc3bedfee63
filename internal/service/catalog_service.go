package service

import (
	"context"
	"strings"
	"time"

	"github.com/cloud-wave-best-zizon/fulfillment-service/internal/domain"
	"github.com/cloud-wave-best-zizon/fulfillment-service/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CatalogService administers products and customers.
type CatalogService struct {
	store  repository.Store
	logger *zap.Logger
}

func NewCatalogService(store repository.Store, logger *zap.Logger) *CatalogService {
	return &CatalogService{
		store:  store,
		logger: logger,
	}
}

func (s *CatalogService) CreateProduct(ctx context.Context, req domain.ProductRequest) (*domain.Product, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	product := &domain.Product{
		ProductID: uuid.New().String(),
		Name:      strings.TrimSpace(req.Name),
		Price:     req.Price,
		Stock:     req.Stock,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateProduct(ctx, product); err != nil {
		s.logger.Error("Failed to save product", zap.Error(err))
		return nil, err
	}

	s.logger.Info("Product created",
		zap.String("product_id", product.ProductID),
		zap.Int("stock", product.Stock))
	return product, nil
}

func (s *CatalogService) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	return s.store.GetProduct(ctx, id)
}

func (s *CatalogService) ListProducts(ctx context.Context) ([]*domain.Product, error) {
	return s.store.ListProducts(ctx)
}

// UpdateProduct replaces a product's name, price and stock. If an order
// reserves stock between the read and the write the update fails with
// ErrStockConflict rather than silently overwriting the reservation.
func (s *CatalogService) UpdateProduct(ctx context.Context, id string, req domain.ProductRequest) (*domain.Product, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	product, err := s.store.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	expectedStock := product.Stock

	product.Name = strings.TrimSpace(req.Name)
	product.Price = req.Price
	product.Stock = req.Stock
	product.UpdatedAt = time.Now().UTC()

	if err := s.store.UpdateProduct(ctx, product, expectedStock); err != nil {
		return nil, err
	}

	s.logger.Info("Product updated",
		zap.String("product_id", id),
		zap.Int("stock", product.Stock))
	return product, nil
}

func (s *CatalogService) DeleteProduct(ctx context.Context, id string) error {
	if err := s.store.DeleteProduct(ctx, id); err != nil {
		return err
	}
	s.logger.Info("Product deleted", zap.String("product_id", id))
	return nil
}

func (s *CatalogService) CreateCustomer(ctx context.Context, req domain.CustomerRequest) (*domain.Customer, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	customer := &domain.Customer{
		CustomerID: uuid.New().String(),
		Name:       strings.TrimSpace(req.Name),
		Email:      strings.TrimSpace(req.Email),
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.store.CreateCustomer(ctx, customer); err != nil {
		s.logger.Error("Failed to save customer", zap.Error(err))
		return nil, err
	}

	s.logger.Info("Customer created", zap.String("customer_id", customer.CustomerID))
	return customer, nil
}

func (s *CatalogService) GetCustomer(ctx context.Context, id string) (*domain.Customer, error) {
	return s.store.GetCustomer(ctx, id)
}

func (s *CatalogService) ListCustomers(ctx context.Context) ([]*domain.Customer, error) {
	return s.store.ListCustomers(ctx)
}
