package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloud-wave-best-zizon/fulfillment-service/internal/domain"
	"github.com/cloud-wave-best-zizon/fulfillment-service/internal/events"
	"github.com/cloud-wave-best-zizon/fulfillment-service/internal/notify"
	"github.com/cloud-wave-best-zizon/fulfillment-service/internal/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	tracerName = "fulfillment-service"

	StatusUpdatedSubject = "Order Status Updated"
)

type Options struct {
	// MaxCommitAttempts bounds how often a commit that lost a compare-and-swap
	// race is rebuilt from fresh reads.
	MaxCommitAttempts  int
	CommitRetryBackoff time.Duration
	NotifyTimeout      time.Duration
}

func DefaultOptions() Options {
	return Options{
		MaxCommitAttempts:  5,
		CommitRetryBackoff: 10 * time.Millisecond,
		NotifyTimeout:      5 * time.Second,
	}
}

type OrderService struct {
	store     repository.Store
	notifier  notify.Notifier
	publisher events.Publisher
	tracer    trace.Tracer
	opts      Options
	logger    *zap.Logger
}

// NewOrderService wires the fulfillment engine. publisher may be nil, in
// which case no integration events are emitted.
func NewOrderService(store repository.Store, notifier notify.Notifier, publisher events.Publisher, opts Options, logger *zap.Logger) *OrderService {
	if opts.MaxCommitAttempts < 1 {
		opts.MaxCommitAttempts = 1
	}
	if opts.NotifyTimeout <= 0 {
		opts.NotifyTimeout = DefaultOptions().NotifyTimeout
	}
	return &OrderService{
		store:     store,
		notifier:  notify.WithTimeout(notifier, opts.NotifyTimeout),
		publisher: publisher,
		tracer:    otel.Tracer(tracerName),
		opts:      opts,
		logger:    logger,
	}
}

// PlaceOrder validates the requested lines against live stock, reserves the
// stock, prices the order and persists order, lines and invoice as a single
// atomic commit. Nothing is written unless every line can be satisfied.
func (s *OrderService) PlaceOrder(ctx context.Context, req domain.CreateOrderRequest, requestID string) (order *domain.Order, err error) {
	ctx, span := s.tracer.Start(ctx, "PlaceOrder")
	defer func() { endSpan(span, err) }()

	span.SetAttributes(
		attribute.String("customer.id", req.CustomerID),
		attribute.Int("order.line_count", len(req.Items)),
	)

	if err := domain.ValidateLines(req.Items); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.PaymentMethod) == "" {
		return nil, fmt.Errorf("%w: payment method is required", domain.ErrInvalidRequest)
	}

	customer, err := s.store.GetCustomer(ctx, req.CustomerID)
	if err != nil {
		return nil, err
	}

	for attempt := 1; ; attempt++ {
		span.SetAttributes(attribute.Int("commit.attempt", attempt))

		commit, err := s.prepareOrder(ctx, customer, req)
		if err != nil {
			return nil, err
		}

		err = s.store.CommitOrder(ctx, commit)
		if err == nil {
			order = commit.Order
			break
		}
		if !errors.Is(err, domain.ErrStockConflict) {
			s.logger.Error("Failed to commit order",
				zap.String("customer_id", customer.CustomerID),
				zap.String("request_id", requestID),
				zap.Error(err))
			return nil, err
		}
		if attempt >= s.opts.MaxCommitAttempts {
			return nil, fmt.Errorf("order not placed after %d attempts: %w", attempt, err)
		}

		s.logger.Debug("Stock changed during commit, retrying",
			zap.String("customer_id", customer.CustomerID),
			zap.Int("attempt", attempt))
		if err := s.backoff(ctx, attempt); err != nil {
			return nil, err
		}
	}

	span.SetAttributes(attribute.String("order.id", order.OrderID))

	if s.publisher != nil {
		if err := s.publisher.PublishOrderPlaced(ctx, events.NewOrderPlaced(order, requestID)); err != nil {
			// The order is committed; a lost event is repaired downstream.
			s.logger.Error("Failed to publish event",
				zap.String("order_id", order.OrderID),
				zap.Error(err))
		}
	}

	s.logger.Info("Order placed successfully",
		zap.String("order_id", order.OrderID),
		zap.String("customer_id", order.CustomerID),
		zap.String("total_amount", order.TotalAmount.String()),
		zap.String("request_id", requestID))

	return order, nil
}

// prepareOrder reads current stock and builds the commit for one attempt.
// Several lines for the same product draw from one shared stock count.
func (s *OrderService) prepareOrder(ctx context.Context, customer *domain.Customer, req domain.CreateOrderRequest) (repository.OrderCommit, error) {
	products := make(map[string]*domain.Product, len(req.Items))
	demand := make(map[string]int, len(req.Items))
	var touched []string

	lines := make([]domain.OrderLine, 0, len(req.Items))
	subtotal := decimal.Zero

	for _, item := range req.Items {
		product, ok := products[item.ProductID]
		if !ok {
			p, err := s.store.GetProduct(ctx, item.ProductID)
			if err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					return repository.OrderCommit{}, &domain.ProductNotFoundError{ProductID: item.ProductID}
				}
				return repository.OrderCommit{}, err
			}
			product = p
			products[item.ProductID] = p
			touched = append(touched, item.ProductID)
		}

		available := product.Stock - demand[item.ProductID]
		if item.Quantity > available {
			return repository.OrderCommit{}, &domain.InsufficientStockError{
				ProductID: item.ProductID,
				Requested: item.Quantity,
				Available: available,
			}
		}
		demand[item.ProductID] += item.Quantity

		lines = append(lines, domain.OrderLine{
			LineID:    uuid.New().String(),
			ProductID: product.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: product.Price,
		})
		subtotal = subtotal.Add(product.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}

	total := domain.ApplyDiscount(lines, subtotal)

	reservations := make([]repository.StockReservation, 0, len(touched))
	for _, id := range touched {
		stock := products[id].Stock
		reservations = append(reservations, repository.StockReservation{
			ProductID:     id,
			ExpectedStock: stock,
			NewStock:      stock - demand[id],
		})
	}

	now := time.Now().UTC()
	invoice := &domain.Invoice{
		InvoiceID:   uuid.New().String(),
		IssuedAt:    now,
		TotalAmount: total,
	}
	order := &domain.Order{
		OrderID:       uuid.New().String(),
		CustomerID:    customer.CustomerID,
		Lines:         lines,
		TotalAmount:   total,
		PaymentMethod: strings.TrimSpace(req.PaymentMethod),
		Status:        domain.OrderStatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
		Invoice:       invoice,
	}
	invoice.OrderID = order.OrderID

	return repository.OrderCommit{
		Reservations: reservations,
		Order:        order,
		Invoice:      invoice,
	}, nil
}

// UpdateStatus moves an order along its lifecycle, then tells the customer.
// The new status is durable before the notifier is called, and a failed or
// slow notification never fails the update.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID, status, requestID string) (order *domain.Order, err error) {
	ctx, span := s.tracer.Start(ctx, "UpdateStatus")
	defer func() { endSpan(span, err) }()

	span.SetAttributes(attribute.String("order.id", orderID))

	next, err := domain.ParseOrderStatus(status)
	if err != nil {
		return nil, err
	}

	var (
		customer *domain.Customer
		from     domain.OrderStatus
	)
	for attempt := 1; ; attempt++ {
		order, err = s.store.GetOrder(ctx, orderID)
		if err != nil {
			return nil, err
		}
		customer, err = s.store.GetCustomer(ctx, order.CustomerID)
		if err != nil {
			return nil, err
		}
		if err := domain.CheckTransition(order.Status, next); err != nil {
			return nil, err
		}

		from = order.Status
		err = s.store.UpdateOrderStatus(ctx, orderID, from, next)
		if err == nil {
			break
		}
		if !errors.Is(err, domain.ErrStatusConflict) || attempt >= s.opts.MaxCommitAttempts {
			return nil, err
		}
		if err := s.backoff(ctx, attempt); err != nil {
			return nil, err
		}
	}

	order.Status = next
	order.UpdatedAt = time.Now().UTC()
	span.SetAttributes(
		attribute.String("order.status.from", string(from)),
		attribute.String("order.status.to", string(next)),
	)

	s.logger.Info("Order status updated",
		zap.String("order_id", orderID),
		zap.String("from", string(from)),
		zap.String("to", string(next)),
		zap.String("request_id", requestID))

	s.notifyStatusChange(ctx, customer, order)

	if s.publisher != nil {
		event := events.NewOrderStatusChanged(order, from, next, requestID)
		if err := s.publisher.PublishOrderStatusChanged(ctx, event); err != nil {
			s.logger.Error("Failed to publish event",
				zap.String("order_id", orderID),
				zap.Error(err))
		}
	}

	return order, nil
}

func (s *OrderService) notifyStatusChange(ctx context.Context, customer *domain.Customer, order *domain.Order) {
	// Detached from the caller so a client hanging up does not cut the
	// message short; the notifier's own deadline still applies.
	err := s.notifier.Notify(context.WithoutCancel(ctx), customer.Email, StatusUpdatedSubject, StatusUpdatedBody(customer.Name, order.OrderID, order.Status))
	if err != nil {
		s.logger.Warn("Failed to notify customer",
			zap.String("order_id", order.OrderID),
			zap.String("email", customer.Email),
			zap.String("status", string(order.Status)),
			zap.Error(err))
	}
}

func StatusUpdatedBody(name, orderID string, status domain.OrderStatus) string {
	return fmt.Sprintf("Hello %s,\n\nYour order #%s status has been updated to: %s.", name, orderID, status)
}

func (s *OrderService) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	return s.store.GetOrder(ctx, id)
}

func (s *OrderService) ListOrders(ctx context.Context) ([]*domain.Order, error) {
	return s.store.ListOrders(ctx)
}

func (s *OrderService) ListCustomerOrders(ctx context.Context, customerID string) ([]*domain.Order, error) {
	if _, err := s.store.GetCustomer(ctx, customerID); err != nil {
		return nil, err
	}
	return s.store.ListOrdersByCustomer(ctx, customerID)
}

func (s *OrderService) GetInvoice(ctx context.Context, id string) (*domain.Invoice, error) {
	return s.store.GetInvoice(ctx, id)
}

func (s *OrderService) ListInvoices(ctx context.Context) ([]*domain.Invoice, error) {
	return s.store.ListInvoices(ctx)
}

// backoff waits attempt * CommitRetryBackoff or until ctx is done.
func (s *OrderService) backoff(ctx context.Context, attempt int) error {
	d := time.Duration(attempt) * s.opts.CommitRetryBackoff
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
