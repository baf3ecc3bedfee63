package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/cloud-wave-best-zizon/fulfillment-service/internal/domain"
)

// SQLiteStore implements Store on a single SQLite database. CommitOrder runs
// in one transaction, so stock, order, lines and invoice land together.
type SQLiteStore struct {
	db *sql.DB
}

func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(SQLiteDriverName, dbPath)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// SQLite has a single writer; one connection also keeps ":memory:" shared.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// querier is an interface that both *sql.DB and *sql.Tx implement
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// withTx runs fn in a transaction and commits only if fn succeeds.
func (s *SQLiteStore) withTx(ctx context.Context, fn func(q querier) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Product operations

const productColumns = `id, name, price, stock, created_at, updated_at`

func scanProduct(row interface{ Scan(...any) error }) (*domain.Product, error) {
	var p domain.Product
	if err := row.Scan(&p.ProductID, &p.Name, &p.Price, &p.Stock, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *SQLiteStore) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	p, err := scanProduct(s.db.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return p, nil
}

func (s *SQLiteStore) ListProducts(ctx context.Context) ([]*domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+productColumns+` FROM products ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	var products []*domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (s *SQLiteStore) CreateProduct(ctx context.Context, product *domain.Product) error {
	if product.Stock < 0 {
		return domain.ErrInvalidRequest
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO products (`+productColumns+`)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, product.ProductID, product.Name, product.Price, product.Stock, product.CreatedAt, product.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}
	return insertedOne(res)
}

func (s *SQLiteStore) UpdateProduct(ctx context.Context, product *domain.Product, expectedStock int) error {
	if product.Stock < 0 {
		return domain.ErrInvalidRequest
	}
	return s.withTx(ctx, func(q querier) error {
		res, err := q.ExecContext(ctx, `
			UPDATE products SET name = ?, price = ?, stock = ?, updated_at = ?
			WHERE id = ? AND stock = ?
		`, product.Name, product.Price, product.Stock, product.UpdatedAt, product.ProductID, expectedStock)
		if err != nil {
			return fmt.Errorf("failed to update product: %w", err)
		}
		return s.checkProductCAS(ctx, q, res, product.ProductID)
	})
}

func (s *SQLiteStore) DeleteProduct(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}

func (s *SQLiteStore) ConditionalUpdateStock(ctx context.Context, id string, expectedStock, newStock int) error {
	if newStock < 0 {
		return domain.ErrInvalidRequest
	}
	return s.withTx(ctx, func(q querier) error {
		return s.reserveWithQuerier(ctx, q, StockReservation{
			ProductID:     id,
			ExpectedStock: expectedStock,
			NewStock:      newStock,
		}, time.Now().UTC())
	})
}

func (s *SQLiteStore) reserveWithQuerier(ctx context.Context, q querier, r StockReservation, now time.Time) error {
	res, err := q.ExecContext(ctx,
		`UPDATE products SET stock = ?, updated_at = ? WHERE id = ? AND stock = ?`,
		r.NewStock, now, r.ProductID, r.ExpectedStock)
	if err != nil {
		return fmt.Errorf("failed to update stock: %w", err)
	}
	return s.checkProductCAS(ctx, q, res, r.ProductID)
}

// checkProductCAS turns a zero-row conditional update into either a missing
// product or a stock conflict.
func (s *SQLiteStore) checkProductCAS(ctx context.Context, q querier, res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}
	var one int
	err = q.QueryRowContext(ctx, `SELECT 1 FROM products WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return &domain.ProductNotFoundError{ProductID: id}
	}
	if err != nil {
		return err
	}
	return domain.ErrStockConflict
}

// Customer operations

func (s *SQLiteStore) GetCustomer(ctx context.Context, id string) (*domain.Customer, error) {
	var c domain.Customer
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, email, created_at FROM customers WHERE id = ?`, id,
	).Scan(&c.CustomerID, &c.Name, &c.Email, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrCustomerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get customer: %w", err)
	}
	return &c, nil
}

func (s *SQLiteStore) ListCustomers(ctx context.Context) ([]*domain.Customer, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, email, created_at FROM customers ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}
	defer rows.Close()

	var customers []*domain.Customer
	for rows.Next() {
		var c domain.Customer
		if err := rows.Scan(&c.CustomerID, &c.Name, &c.Email, &c.CreatedAt); err != nil {
			return nil, err
		}
		customers = append(customers, &c)
	}
	return customers, rows.Err()
}

func (s *SQLiteStore) CreateCustomer(ctx context.Context, customer *domain.Customer) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO customers (id, name, email, created_at) VALUES (?, ?, ?, ?) ON CONFLICT(id) DO NOTHING`,
		customer.CustomerID, customer.Name, customer.Email, customer.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create customer: %w", err)
	}
	return insertedOne(res)
}

// insertedOne reports ErrAlreadyExists for an insert skipped by ON CONFLICT.
func insertedOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrAlreadyExists
	}
	return nil
}

// Order operations

func (s *SQLiteStore) CommitOrder(ctx context.Context, commit OrderCommit) error {
	if err := validateCommit(commit); err != nil {
		return err
	}
	order, invoice := commit.Order, commit.Invoice

	return s.withTx(ctx, func(q querier) error {
		now := time.Now().UTC()
		for _, r := range commit.Reservations {
			if err := s.reserveWithQuerier(ctx, q, r, now); err != nil {
				return err
			}
		}

		_, err := q.ExecContext(ctx, `
			INSERT INTO orders (id, customer_id, payment_method, status, total_amount, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, order.OrderID, order.CustomerID, order.PaymentMethod, string(order.Status),
			order.TotalAmount, order.CreatedAt, order.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert order: %w", err)
		}

		for i, l := range order.Lines {
			_, err := q.ExecContext(ctx, `
				INSERT INTO order_lines (id, order_id, position, product_id, quantity, unit_price, discount)
				VALUES (?, ?, ?, ?, ?, ?, ?)
			`, l.LineID, order.OrderID, i, l.ProductID, l.Quantity, l.UnitPrice, l.Discount)
			if err != nil {
				return fmt.Errorf("failed to insert order line %d: %w", i, err)
			}
		}

		_, err = q.ExecContext(ctx, `
			INSERT INTO invoices (id, order_id, issued_at, total_amount)
			VALUES (?, ?, ?, ?)
		`, invoice.InvoiceID, invoice.OrderID, invoice.IssuedAt, invoice.TotalAmount)
		if err != nil {
			return fmt.Errorf("failed to insert invoice: %w", err)
		}
		return nil
	})
}

func (s *SQLiteStore) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	orders, err := s.queryOrders(ctx, `WHERE o.id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, domain.ErrOrderNotFound
	}
	return orders[0], nil
}

func (s *SQLiteStore) ListOrders(ctx context.Context) ([]*domain.Order, error) {
	return s.queryOrders(ctx, ``)
}

func (s *SQLiteStore) ListOrdersByCustomer(ctx context.Context, customerID string) ([]*domain.Order, error) {
	return s.queryOrders(ctx, `WHERE o.customer_id = ?`, customerID)
}

// queryOrders loads orders with their invoice, then their lines, in two reads
// of one transaction so a concurrent commit is seen entirely or not at all.
func (s *SQLiteStore) queryOrders(ctx context.Context, where string, args ...any) ([]*domain.Order, error) {
	var orders []*domain.Order
	err := s.withTx(ctx, func(q querier) error {
		rows, err := q.QueryContext(ctx, `
			SELECT o.id, o.customer_id, o.payment_method, o.status, o.total_amount, o.created_at, o.updated_at,
			       i.id, i.issued_at, i.total_amount
			FROM orders o
			JOIN invoices i ON i.order_id = o.id
			`+where+`
			ORDER BY o.created_at, o.id
		`, args...)
		if err != nil {
			return fmt.Errorf("failed to query orders: %w", err)
		}
		byID := make(map[string]*domain.Order)
		for rows.Next() {
			var (
				o      domain.Order
				inv    domain.Invoice
				status string
			)
			if err := rows.Scan(&o.OrderID, &o.CustomerID, &o.PaymentMethod, &status, &o.TotalAmount,
				&o.CreatedAt, &o.UpdatedAt, &inv.InvoiceID, &inv.IssuedAt, &inv.TotalAmount); err != nil {
				rows.Close()
				return err
			}
			o.Status = domain.OrderStatus(status)
			inv.OrderID = o.OrderID
			o.Invoice = &inv
			o.Lines = []domain.OrderLine{}
			orders = append(orders, &o)
			byID[o.OrderID] = &o
		}
		if err := rows.Close(); err != nil {
			return err
		}
		if len(orders) == 0 {
			return nil
		}

		lines, err := q.QueryContext(ctx, `
			SELECT l.order_id, l.id, l.product_id, l.quantity, l.unit_price, l.discount
			FROM order_lines l
			JOIN orders o ON o.id = l.order_id
			`+where+`
			ORDER BY l.order_id, l.position
		`, args...)
		if err != nil {
			return fmt.Errorf("failed to query order lines: %w", err)
		}
		defer lines.Close()
		for lines.Next() {
			var (
				orderID string
				l       domain.OrderLine
			)
			if err := lines.Scan(&orderID, &l.LineID, &l.ProductID, &l.Quantity, &l.UnitPrice, &l.Discount); err != nil {
				return err
			}
			if o, ok := byID[orderID]; ok {
				o.Lines = append(o.Lines, l)
			}
		}
		return lines.Err()
	})
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (s *SQLiteStore) UpdateOrderStatus(ctx context.Context, id string, from, to domain.OrderStatus) error {
	return s.withTx(ctx, func(q querier) error {
		res, err := q.ExecContext(ctx,
			`UPDATE orders SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
			string(to), time.Now().UTC(), id, string(from))
		if err != nil {
			return fmt.Errorf("failed to update order status: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 1 {
			return nil
		}
		var one int
		err = q.QueryRowContext(ctx, `SELECT 1 FROM orders WHERE id = ?`, id).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrOrderNotFound
		}
		if err != nil {
			return err
		}
		return domain.ErrStatusConflict
	})
}

// Invoice operations

func (s *SQLiteStore) GetInvoice(ctx context.Context, id string) (*domain.Invoice, error) {
	var inv domain.Invoice
	err := s.db.QueryRowContext(ctx,
		`SELECT id, order_id, issued_at, total_amount FROM invoices WHERE id = ?`, id,
	).Scan(&inv.InvoiceID, &inv.OrderID, &inv.IssuedAt, &inv.TotalAmount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrInvoiceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}
	return &inv, nil
}

func (s *SQLiteStore) ListInvoices(ctx context.Context) ([]*domain.Invoice, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, order_id, issued_at, total_amount FROM invoices ORDER BY issued_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	defer rows.Close()

	var invoices []*domain.Invoice
	for rows.Next() {
		var inv domain.Invoice
		if err := rows.Scan(&inv.InvoiceID, &inv.OrderID, &inv.IssuedAt, &inv.TotalAmount); err != nil {
			return nil, err
		}
		invoices = append(invoices, &inv)
	}
	return invoices, rows.Err()
}
