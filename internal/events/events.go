package events

import (
	"context"
	"time"

	"github.com/cloud-wave-best-zizon/fulfillment-service/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	TypeOrderPlaced        = "OrderPlaced"
	TypeOrderStatusChanged = "OrderStatusChanged"
)

// Publisher emits integration events for other services. Events are
// published after the state they describe has been committed.
type Publisher interface {
	PublishOrderPlaced(ctx context.Context, event OrderPlacedEvent) error
	PublishOrderStatusChanged(ctx context.Context, event OrderStatusChangedEvent) error
}

type EventLine struct {
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Discount  decimal.Decimal `json:"discount"`
}

type OrderPlacedEvent struct {
	EventID     string          `json:"event_id"`
	EventType   string          `json:"event_type"`
	OrderID     string          `json:"order_id"`
	CustomerID  string          `json:"customer_id"`
	InvoiceID   string          `json:"invoice_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Lines       []EventLine     `json:"lines"`
	Status      string          `json:"status"`
	Timestamp   time.Time       `json:"timestamp"`
	RequestID   string          `json:"request_id,omitempty"`
}

type OrderStatusChangedEvent struct {
	EventID    string    `json:"event_id"`
	EventType  string    `json:"event_type"`
	OrderID    string    `json:"order_id"`
	CustomerID string    `json:"customer_id"`
	OldStatus  string    `json:"old_status"`
	NewStatus  string    `json:"new_status"`
	Timestamp  time.Time `json:"timestamp"`
	RequestID  string    `json:"request_id,omitempty"`
}

func NewOrderPlaced(order *domain.Order, requestID string) OrderPlacedEvent {
	lines := make([]EventLine, 0, len(order.Lines))
	for _, l := range order.Lines {
		lines = append(lines, EventLine{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			Discount:  l.Discount,
		})
	}

	event := OrderPlacedEvent{
		EventID:     uuid.New().String(),
		EventType:   TypeOrderPlaced,
		OrderID:     order.OrderID,
		CustomerID:  order.CustomerID,
		TotalAmount: order.TotalAmount,
		Lines:       lines,
		Status:      string(order.Status),
		Timestamp:   time.Now().UTC(),
		RequestID:   requestID,
	}
	if order.Invoice != nil {
		event.InvoiceID = order.Invoice.InvoiceID
	}
	return event
}

func NewOrderStatusChanged(order *domain.Order, from, to domain.OrderStatus, requestID string) OrderStatusChangedEvent {
	return OrderStatusChangedEvent{
		EventID:    uuid.New().String(),
		EventType:  TypeOrderStatusChanged,
		OrderID:    order.OrderID,
		CustomerID: order.CustomerID,
		OldStatus:  string(from),
		NewStatus:  string(to),
		Timestamp:  time.Now().UTC(),
		RequestID:  requestID,
	}
}

// orderKey partitions every event of one order together.
func orderKey(orderID string) string {
	return "ORDER#" + orderID
}
