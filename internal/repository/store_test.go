package repository

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/cloud-wave-best-zizon/fulfillment-service/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// storeFactories runs the shared behaviour tests against every local store.
var storeFactories = map[string]func(t *testing.T) Store{
	"memory": func(t *testing.T) Store {
		return NewMemoryStore()
	},
	"sqlite": func(t *testing.T) Store {
		store, err := NewSQLiteStore(":memory:")
		require.NoError(t, err)
		t.Cleanup(func() { store.Close() })
		return store
	},
}

func forEachStore(t *testing.T, fn func(t *testing.T, store Store)) {
	for name, factory := range storeFactories {
		t.Run(name, func(t *testing.T) {
			fn(t, factory(t))
		})
	}
}

func seed(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	require.NoError(t, store.CreateCustomer(ctx, &domain.Customer{
		CustomerID: "c1", Name: "Ada", Email: "ada@example.com", CreatedAt: now,
	}))
	for _, p := range []domain.Product{
		{ProductID: "p1", Name: "Lamp", Price: decimal.RequireFromString("125.00"), Stock: 10},
		{ProductID: "p2", Name: "Bulb", Price: decimal.RequireFromString("2.49"), Stock: 3},
	} {
		p.CreatedAt, p.UpdatedAt = now, now
		require.NoError(t, store.CreateProduct(ctx, &p))
	}
}

func newCommit(orderID string, created time.Time, reservations ...StockReservation) OrderCommit {
	total := decimal.RequireFromString("227.49")
	invoice := &domain.Invoice{
		InvoiceID:   "inv-" + orderID,
		OrderID:     orderID,
		IssuedAt:    created,
		TotalAmount: total,
	}
	return OrderCommit{
		Reservations: reservations,
		Order: &domain.Order{
			OrderID:       orderID,
			CustomerID:    "c1",
			PaymentMethod: "card",
			Status:        domain.OrderStatusPending,
			TotalAmount:   total,
			CreatedAt:     created,
			UpdatedAt:     created,
			Lines: []domain.OrderLine{
				{LineID: orderID + "-l1", ProductID: "p1", Quantity: 2, UnitPrice: decimal.RequireFromString("125.00"), Discount: decimal.RequireFromString("12.50")},
				{LineID: orderID + "-l2", ProductID: "p2", Quantity: 1, UnitPrice: decimal.RequireFromString("2.49"), Discount: decimal.Zero},
			},
			Invoice: invoice,
		},
		Invoice: invoice,
	}
}

func stockOf(t *testing.T, store Store, id string) int {
	t.Helper()
	p, err := store.GetProduct(context.Background(), id)
	require.NoError(t, err)
	return p.Stock
}

func TestStore_Products(t *testing.T) {
	forEachStore(t, func(t *testing.T, store Store) {
		seed(t, store)
		ctx := context.Background()

		p, err := store.GetProduct(ctx, "p2")
		require.NoError(t, err)
		assert.Equal(t, "Bulb", p.Name)
		assert.True(t, decimal.RequireFromString("2.49").Equal(p.Price))

		products, err := store.ListProducts(ctx)
		require.NoError(t, err)
		assert.Len(t, products, 2)

		_, err = store.GetProduct(ctx, "nope")
		assert.ErrorIs(t, err, domain.ErrProductNotFound)

		dup := *p
		assert.ErrorIs(t, store.CreateProduct(ctx, &dup), domain.ErrAlreadyExists)

		p.Name = "Bright bulb"
		p.Stock = 8
		assert.ErrorIs(t, store.UpdateProduct(ctx, p, 99), domain.ErrStockConflict)
		require.NoError(t, store.UpdateProduct(ctx, p, 3))
		assert.Equal(t, 8, stockOf(t, store, "p2"))

		require.NoError(t, store.DeleteProduct(ctx, "p2"))
		assert.ErrorIs(t, store.DeleteProduct(ctx, "p2"), domain.ErrProductNotFound)
	})
}

func TestStore_ConditionalUpdateStock(t *testing.T) {
	forEachStore(t, func(t *testing.T, store Store) {
		seed(t, store)
		ctx := context.Background()

		require.NoError(t, store.ConditionalUpdateStock(ctx, "p1", 10, 7))
		assert.Equal(t, 7, stockOf(t, store, "p1"))

		assert.ErrorIs(t, store.ConditionalUpdateStock(ctx, "p1", 10, 5), domain.ErrStockConflict)
		assert.ErrorIs(t, store.ConditionalUpdateStock(ctx, "p1", 7, -1), domain.ErrInvalidRequest)
		assert.ErrorIs(t, store.ConditionalUpdateStock(ctx, "ghost", 0, 0), domain.ErrProductNotFound)
		assert.Equal(t, 7, stockOf(t, store, "p1"))
	})
}

func TestStore_CommitOrder(t *testing.T) {
	forEachStore(t, func(t *testing.T, store Store) {
		seed(t, store)
		ctx := context.Background()
		created := time.Now().UTC().Truncate(time.Millisecond)

		commit := newCommit("o1", created,
			StockReservation{ProductID: "p1", ExpectedStock: 10, NewStock: 8},
			StockReservation{ProductID: "p2", ExpectedStock: 3, NewStock: 2},
		)
		require.NoError(t, store.CommitOrder(ctx, commit))

		assert.Equal(t, 8, stockOf(t, store, "p1"))
		assert.Equal(t, 2, stockOf(t, store, "p2"))

		order, err := store.GetOrder(ctx, "o1")
		require.NoError(t, err)
		assert.Equal(t, "c1", order.CustomerID)
		assert.Equal(t, domain.OrderStatusPending, order.Status)
		assert.True(t, decimal.RequireFromString("227.49").Equal(order.TotalAmount))
		require.Len(t, order.Lines, 2)
		assert.Equal(t, "o1-l1", order.Lines[0].LineID)
		assert.True(t, decimal.RequireFromString("12.50").Equal(order.Lines[0].Discount))
		assert.Equal(t, "o1-l2", order.Lines[1].LineID)
		require.NotNil(t, order.Invoice)
		assert.Equal(t, "inv-o1", order.Invoice.InvoiceID)

		invoice, err := store.GetInvoice(ctx, "inv-o1")
		require.NoError(t, err)
		assert.Equal(t, "o1", invoice.OrderID)
		assert.True(t, order.TotalAmount.Equal(invoice.TotalAmount))

		byCustomer, err := store.ListOrdersByCustomer(ctx, "c1")
		require.NoError(t, err)
		assert.Len(t, byCustomer, 1)
	})
}

func TestStore_CommitOrderIsAllOrNothing(t *testing.T) {
	forEachStore(t, func(t *testing.T, store Store) {
		seed(t, store)
		ctx := context.Background()
		created := time.Now().UTC()

		// The second reservation is stale, so the first must not apply either.
		commit := newCommit("o1", created,
			StockReservation{ProductID: "p1", ExpectedStock: 10, NewStock: 8},
			StockReservation{ProductID: "p2", ExpectedStock: 2, NewStock: 1},
		)
		assert.ErrorIs(t, store.CommitOrder(ctx, commit), domain.ErrStockConflict)

		commit = newCommit("o2", created,
			StockReservation{ProductID: "p1", ExpectedStock: 10, NewStock: 8},
			StockReservation{ProductID: "gone", ExpectedStock: 1, NewStock: 0},
		)
		var notFound *domain.ProductNotFoundError
		require.ErrorAs(t, store.CommitOrder(ctx, commit), &notFound)
		assert.Equal(t, "gone", notFound.ProductID)

		assert.Equal(t, 10, stockOf(t, store, "p1"))
		assert.Equal(t, 3, stockOf(t, store, "p2"))

		orders, err := store.ListOrders(ctx)
		require.NoError(t, err)
		assert.Empty(t, orders)
		invoices, err := store.ListInvoices(ctx)
		require.NoError(t, err)
		assert.Empty(t, invoices)
		_, err = store.GetOrder(ctx, "o1")
		assert.ErrorIs(t, err, domain.ErrOrderNotFound)
	})
}

func TestStore_CommitOrderRejectsNegativeStock(t *testing.T) {
	forEachStore(t, func(t *testing.T, store Store) {
		seed(t, store)
		commit := newCommit("o1", time.Now().UTC(),
			StockReservation{ProductID: "p2", ExpectedStock: 3, NewStock: -1},
		)
		assert.ErrorIs(t, store.CommitOrder(context.Background(), commit), domain.ErrInvalidRequest)
		assert.Equal(t, 3, stockOf(t, store, "p2"))
	})
}

func TestStore_ConcurrentCommitsOnlyOneWins(t *testing.T) {
	forEachStore(t, func(t *testing.T, store Store) {
		seed(t, store)
		ctx := context.Background()

		const n = 8
		var (
			wg   sync.WaitGroup
			mu   sync.Mutex
			wins int
		)
		for i := 0; i < n; i++ {
			i := i
			wg.Add(1)
			go func() {
				defer wg.Done()
				commit := newCommit(fmt.Sprintf("o%d", i), time.Now().UTC(),
					StockReservation{ProductID: "p1", ExpectedStock: 10, NewStock: 4})
				err := store.CommitOrder(ctx, commit)
				if err == nil {
					mu.Lock()
					wins++
					mu.Unlock()
					return
				}
				assert.ErrorIs(t, err, domain.ErrStockConflict)
			}()
		}
		wg.Wait()

		assert.Equal(t, 1, wins)
		assert.Equal(t, 4, stockOf(t, store, "p1"))
		orders, err := store.ListOrders(ctx)
		require.NoError(t, err)
		assert.Len(t, orders, 1)
	})
}

func TestStore_UpdateOrderStatus(t *testing.T) {
	forEachStore(t, func(t *testing.T, store Store) {
		seed(t, store)
		ctx := context.Background()
		require.NoError(t, store.CommitOrder(ctx, newCommit("o1", time.Now().UTC(),
			StockReservation{ProductID: "p1", ExpectedStock: 10, NewStock: 8})))

		require.NoError(t, store.UpdateOrderStatus(ctx, "o1", domain.OrderStatusPending, domain.OrderStatusProcessing))
		assert.ErrorIs(t,
			store.UpdateOrderStatus(ctx, "o1", domain.OrderStatusPending, domain.OrderStatusCancelled),
			domain.ErrStatusConflict)
		assert.ErrorIs(t,
			store.UpdateOrderStatus(ctx, "missing", domain.OrderStatusPending, domain.OrderStatusProcessing),
			domain.ErrOrderNotFound)

		order, err := store.GetOrder(ctx, "o1")
		require.NoError(t, err)
		assert.Equal(t, domain.OrderStatusProcessing, order.Status)
	})
}

func TestStore_ListOrdersInCreationOrder(t *testing.T) {
	forEachStore(t, func(t *testing.T, store Store) {
		seed(t, store)
		ctx := context.Background()
		base := time.Now().UTC().Truncate(time.Millisecond)

		stock := 10
		for i, id := range []string{"b", "a", "c"} {
			commit := newCommit(id, base.Add(time.Duration(i)*time.Second),
				StockReservation{ProductID: "p1", ExpectedStock: stock, NewStock: stock - 1})
			require.NoError(t, store.CommitOrder(ctx, commit))
			stock--
		}

		orders, err := store.ListOrders(ctx)
		require.NoError(t, err)
		require.Len(t, orders, 3)
		assert.Equal(t, "b", orders[0].OrderID)
		assert.Equal(t, "a", orders[1].OrderID)
		assert.Equal(t, "c", orders[2].OrderID)
		for _, o := range orders {
			assert.Len(t, o.Lines, 2)
		}
	})
}

func TestStore_Customers(t *testing.T) {
	forEachStore(t, func(t *testing.T, store Store) {
		seed(t, store)
		ctx := context.Background()

		c, err := store.GetCustomer(ctx, "c1")
		require.NoError(t, err)
		assert.Equal(t, "ada@example.com", c.Email)

		_, err = store.GetCustomer(ctx, "c2")
		assert.ErrorIs(t, err, domain.ErrCustomerNotFound)

		customers, err := store.ListCustomers(ctx)
		require.NoError(t, err)
		assert.Len(t, customers, 1)

		assert.ErrorIs(t, store.CreateCustomer(ctx, c), domain.ErrAlreadyExists)
		require.NoError(t, store.Ping(ctx))
	})
}
