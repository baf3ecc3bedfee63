package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/cloud-wave-best-zizon/fulfillment-service/internal/domain"
	pkgconfig "github.com/cloud-wave-best-zizon/fulfillment-service/pkg/config"
	"github.com/shopspring/decimal"
)

const (
	skMetadata = "METADATA"
	skProfile  = "PROFILE"
	gsi1Name   = "GSI1"
)

// DynamoAPI is the subset of *dynamodb.Client the store uses.
type DynamoAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, opts ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, in *dynamodb.ScanInput, opts ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	TransactWriteItems(ctx context.Context, in *dynamodb.TransactWriteItemsInput, opts ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
	DescribeTable(ctx context.Context, in *dynamodb.DescribeTableInput, opts ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

// DynamoStore keeps orders, invoices and customers in one table keyed by
// PK/SK, and products in a separate catalog table.
type DynamoStore struct {
	client       DynamoAPI
	orderTable   string
	catalogTable string
}

func NewDynamoDBClient(cfg *pkgconfig.Config) (*dynamodb.Client, error) {
	awsCfg, err := config.LoadDefaultConfig(context.TODO(),
		config.WithRegion(cfg.AWSRegion),
	)
	if err != nil {
		return nil, err
	}

	return dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.DynamoDBEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.DynamoDBEndpoint)
		}
	}), nil
}

func NewDynamoStore(client DynamoAPI, orderTable, catalogTable string) *DynamoStore {
	return &DynamoStore{
		client:       client,
		orderTable:   orderTable,
		catalogTable: catalogTable,
	}
}

func (r *DynamoStore) Close() error { return nil }

func (r *DynamoStore) Ping(ctx context.Context) error {
	for _, table := range []string{r.orderTable, r.catalogTable} {
		if _, err := r.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(table)}); err != nil {
			return fmt.Errorf("describe table %s: %w", table, err)
		}
	}
	return nil
}

// Items

type productItem struct {
	PK        string    `dynamodbav:"PK"`
	SK        string    `dynamodbav:"SK"`
	ProductID string    `dynamodbav:"product_id"`
	Name      string    `dynamodbav:"name"`
	Price     string    `dynamodbav:"price"`
	Stock     int       `dynamodbav:"stock"`
	CreatedAt time.Time `dynamodbav:"created_at"`
	UpdatedAt time.Time `dynamodbav:"updated_at"`
}

type customerItem struct {
	PK         string    `dynamodbav:"PK"`
	SK         string    `dynamodbav:"SK"`
	CustomerID string    `dynamodbav:"customer_id"`
	Name       string    `dynamodbav:"name"`
	Email      string    `dynamodbav:"email"`
	CreatedAt  time.Time `dynamodbav:"created_at"`
}

type lineItem struct {
	LineID    string `dynamodbav:"line_id"`
	ProductID string `dynamodbav:"product_id"`
	Quantity  int    `dynamodbav:"quantity"`
	UnitPrice string `dynamodbav:"unit_price"`
	Discount  string `dynamodbav:"discount"`
}

type orderItem struct {
	PK            string     `dynamodbav:"PK"`
	SK            string     `dynamodbav:"SK"`
	GSI1PK        string     `dynamodbav:"GSI1PK"`
	GSI1SK        string     `dynamodbav:"GSI1SK"`
	OrderID       string     `dynamodbav:"order_id"`
	CustomerID    string     `dynamodbav:"customer_id"`
	PaymentMethod string     `dynamodbav:"payment_method"`
	Status        string     `dynamodbav:"status"`
	TotalAmount   string     `dynamodbav:"total_amount"`
	InvoiceID     string     `dynamodbav:"invoice_id"`
	Lines         []lineItem `dynamodbav:"lines"`
	CreatedAt     time.Time  `dynamodbav:"created_at"`
	UpdatedAt     time.Time  `dynamodbav:"updated_at"`
}

type invoiceItem struct {
	PK          string    `dynamodbav:"PK"`
	SK          string    `dynamodbav:"SK"`
	InvoiceID   string    `dynamodbav:"invoice_id"`
	OrderID     string    `dynamodbav:"order_id"`
	IssuedAt    time.Time `dynamodbav:"issued_at"`
	TotalAmount string    `dynamodbav:"total_amount"`
}

func productKey(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: "PRODUCT#" + id},
		"SK": &types.AttributeValueMemberS{Value: skMetadata},
	}
}

func customerKey(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: "CUSTOMER#" + id},
		"SK": &types.AttributeValueMemberS{Value: skProfile},
	}
}

func orderKey(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: "ORDER#" + id},
		"SK": &types.AttributeValueMemberS{Value: skMetadata},
	}
}

func invoiceKey(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: "INVOICE#" + id},
		"SK": &types.AttributeValueMemberS{Value: skMetadata},
	}
}

func toProductItem(p *domain.Product) productItem {
	return productItem{
		PK:        "PRODUCT#" + p.ProductID,
		SK:        skMetadata,
		ProductID: p.ProductID,
		Name:      p.Name,
		Price:     p.Price.String(),
		Stock:     p.Stock,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

func (it productItem) toDomain() (*domain.Product, error) {
	price, err := parseAmount(it.Price)
	if err != nil {
		return nil, err
	}
	return &domain.Product{
		ProductID: it.ProductID,
		Name:      it.Name,
		Price:     price,
		Stock:     it.Stock,
		CreatedAt: it.CreatedAt,
		UpdatedAt: it.UpdatedAt,
	}, nil
}

func toOrderItem(o *domain.Order, invoiceID string) orderItem {
	lines := make([]lineItem, len(o.Lines))
	for i, l := range o.Lines {
		lines[i] = lineItem{
			LineID:    l.LineID,
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice.String(),
			Discount:  l.Discount.String(),
		}
	}
	return orderItem{
		PK:            "ORDER#" + o.OrderID,
		SK:            skMetadata,
		GSI1PK:        "CUSTOMER#" + o.CustomerID,
		GSI1SK:        fmt.Sprintf("ORDER#%s", o.CreatedAt.Format("2006-01-02T15:04:05.000000000Z")),
		OrderID:       o.OrderID,
		CustomerID:    o.CustomerID,
		PaymentMethod: o.PaymentMethod,
		Status:        string(o.Status),
		TotalAmount:   o.TotalAmount.String(),
		InvoiceID:     invoiceID,
		Lines:         lines,
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}
}

func (it orderItem) toDomain() (*domain.Order, error) {
	total, err := parseAmount(it.TotalAmount)
	if err != nil {
		return nil, err
	}
	o := &domain.Order{
		OrderID:       it.OrderID,
		CustomerID:    it.CustomerID,
		PaymentMethod: it.PaymentMethod,
		Status:        domain.OrderStatus(it.Status),
		TotalAmount:   total,
		CreatedAt:     it.CreatedAt,
		UpdatedAt:     it.UpdatedAt,
		Lines:         make([]domain.OrderLine, len(it.Lines)),
	}
	for i, l := range it.Lines {
		unit, err := parseAmount(l.UnitPrice)
		if err != nil {
			return nil, err
		}
		discount, err := parseAmount(l.Discount)
		if err != nil {
			return nil, err
		}
		o.Lines[i] = domain.OrderLine{
			LineID:    l.LineID,
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			UnitPrice: unit,
			Discount:  discount,
		}
	}
	return o, nil
}

func toInvoiceItem(inv *domain.Invoice) invoiceItem {
	return invoiceItem{
		PK:          "INVOICE#" + inv.InvoiceID,
		SK:          skMetadata,
		InvoiceID:   inv.InvoiceID,
		OrderID:     inv.OrderID,
		IssuedAt:    inv.IssuedAt,
		TotalAmount: inv.TotalAmount.String(),
	}
}

func (it invoiceItem) toDomain() (*domain.Invoice, error) {
	total, err := parseAmount(it.TotalAmount)
	if err != nil {
		return nil, err
	}
	return &domain.Invoice{
		InvoiceID:   it.InvoiceID,
		OrderID:     it.OrderID,
		IssuedAt:    it.IssuedAt,
		TotalAmount: total,
	}, nil
}

// Products

func (r *DynamoStore) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	var item productItem
	found, err := r.getItem(ctx, r.catalogTable, productKey(id), &item)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, domain.ErrProductNotFound
	}
	return item.toDomain()
}

func (r *DynamoStore) ListProducts(ctx context.Context) ([]*domain.Product, error) {
	var items []productItem
	if err := r.scan(ctx, r.catalogTable, "PRODUCT#", &items); err != nil {
		return nil, err
	}
	products := make([]*domain.Product, 0, len(items))
	for _, it := range items {
		p, err := it.toDomain()
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, nil
}

func (r *DynamoStore) CreateProduct(ctx context.Context, product *domain.Product) error {
	if product.Stock < 0 {
		return domain.ErrInvalidRequest
	}
	return r.putNew(ctx, r.catalogTable, toProductItem(product))
}

func (r *DynamoStore) UpdateProduct(ctx context.Context, product *domain.Product, expectedStock int) error {
	if product.Stock < 0 {
		return domain.ErrInvalidRequest
	}
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.catalogTable),
		Key:                 productKey(product.ProductID),
		UpdateExpression:    aws.String("SET #name = :name, price = :price, stock = :stock, updated_at = :now"),
		ConditionExpression: aws.String("stock = :expected"),
		ExpressionAttributeNames: map[string]string{
			"#name": "name",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":name":     &types.AttributeValueMemberS{Value: product.Name},
			":price":    &types.AttributeValueMemberS{Value: product.Price.String()},
			":stock":    numberValue(product.Stock),
			":now":      timeValue(product.UpdatedAt),
			":expected": numberValue(expectedStock),
		},
		ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
	})
	return stockConditionError(err, product.ProductID)
}

func (r *DynamoStore) DeleteProduct(ctx context.Context, id string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:           aws.String(r.catalogTable),
		Key:                 productKey(id),
		ConditionExpression: aws.String("attribute_exists(PK)"),
	})
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return domain.ErrProductNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	return nil
}

func (r *DynamoStore) ConditionalUpdateStock(ctx context.Context, id string, expectedStock, newStock int) error {
	if newStock < 0 {
		return domain.ErrInvalidRequest
	}
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                           aws.String(r.catalogTable),
		Key:                                 productKey(id),
		UpdateExpression:                    aws.String("SET stock = :new, updated_at = :now"),
		ConditionExpression:                 aws.String("stock = :expected"),
		ExpressionAttributeValues:           stockValues(StockReservation{ProductID: id, ExpectedStock: expectedStock, NewStock: newStock}),
		ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
	})
	return stockConditionError(err, id)
}

// stockConditionError maps a failed stock condition to not-found (no old
// item came back) or a stock conflict.
func stockConditionError(err error, productID string) error {
	if err == nil {
		return nil
	}
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		if len(ccf.Item) == 0 {
			return &domain.ProductNotFoundError{ProductID: productID}
		}
		return domain.ErrStockConflict
	}
	return fmt.Errorf("failed to update stock: %w", err)
}

// Customers

func (r *DynamoStore) GetCustomer(ctx context.Context, id string) (*domain.Customer, error) {
	var item customerItem
	found, err := r.getItem(ctx, r.orderTable, customerKey(id), &item)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, domain.ErrCustomerNotFound
	}
	return &domain.Customer{
		CustomerID: item.CustomerID,
		Name:       item.Name,
		Email:      item.Email,
		CreatedAt:  item.CreatedAt,
	}, nil
}

func (r *DynamoStore) ListCustomers(ctx context.Context) ([]*domain.Customer, error) {
	var items []customerItem
	if err := r.scan(ctx, r.orderTable, "CUSTOMER#", &items); err != nil {
		return nil, err
	}
	customers := make([]*domain.Customer, 0, len(items))
	for _, it := range items {
		customers = append(customers, &domain.Customer{
			CustomerID: it.CustomerID,
			Name:       it.Name,
			Email:      it.Email,
			CreatedAt:  it.CreatedAt,
		})
	}
	return customers, nil
}

func (r *DynamoStore) CreateCustomer(ctx context.Context, customer *domain.Customer) error {
	return r.putNew(ctx, r.orderTable, customerItem{
		PK:         "CUSTOMER#" + customer.CustomerID,
		SK:         skProfile,
		CustomerID: customer.CustomerID,
		Name:       customer.Name,
		Email:      customer.Email,
		CreatedAt:  customer.CreatedAt,
	})
}

// Orders

func (r *DynamoStore) CommitOrder(ctx context.Context, commit OrderCommit) error {
	if err := validateCommit(commit); err != nil {
		return err
	}
	in, err := r.commitInput(commit, time.Now().UTC())
	if err != nil {
		return err
	}
	_, err = r.client.TransactWriteItems(ctx, in)
	return commitError(err, commit.Reservations)
}

// commitInput builds one transaction: a conditional stock update per
// reservation, then the order and invoice puts.
func (r *DynamoStore) commitInput(commit OrderCommit, now time.Time) (*dynamodb.TransactWriteItemsInput, error) {
	items := make([]types.TransactWriteItem, 0, len(commit.Reservations)+2)
	for _, res := range commit.Reservations {
		values := stockValues(res)
		values[":now"] = timeValue(now)
		items = append(items, types.TransactWriteItem{
			Update: &types.Update{
				TableName:                           aws.String(r.catalogTable),
				Key:                                 productKey(res.ProductID),
				UpdateExpression:                    aws.String("SET stock = :new, updated_at = :now"),
				ConditionExpression:                 aws.String("stock = :expected"),
				ExpressionAttributeValues:           values,
				ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
			},
		})
	}

	orderAV, err := attributevalue.MarshalMap(toOrderItem(commit.Order, commit.Invoice.InvoiceID))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal order: %w", err)
	}
	invoiceAV, err := attributevalue.MarshalMap(toInvoiceItem(commit.Invoice))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal invoice: %w", err)
	}
	for _, av := range []map[string]types.AttributeValue{orderAV, invoiceAV} {
		items = append(items, types.TransactWriteItem{
			Put: &types.Put{
				TableName:           aws.String(r.orderTable),
				Item:                av,
				ConditionExpression: aws.String("attribute_not_exists(PK)"),
			},
		})
	}

	return &dynamodb.TransactWriteItemsInput{TransactItems: items}, nil
}

// commitError maps a cancelled transaction back to the item that failed.
// Reasons are positional: reservations first, then order and invoice.
func commitError(err error, reservations []StockReservation) error {
	if err == nil {
		return nil
	}
	var tce *types.TransactionCanceledException
	if !errors.As(err, &tce) {
		return fmt.Errorf("failed to commit order: %w", err)
	}
	for i, reason := range tce.CancellationReasons {
		if aws.ToString(reason.Code) != "ConditionalCheckFailed" {
			continue
		}
		if i < len(reservations) {
			if len(reason.Item) == 0 {
				return &domain.ProductNotFoundError{ProductID: reservations[i].ProductID}
			}
			return domain.ErrStockConflict
		}
		return domain.ErrAlreadyExists
	}
	// Cancelled for contention with another transaction on the same items.
	return fmt.Errorf("%w: %s", domain.ErrStockConflict, aws.ToString(tce.Message))
}

func (r *DynamoStore) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	var item orderItem
	found, err := r.getItem(ctx, r.orderTable, orderKey(id), &item)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, domain.ErrOrderNotFound
	}
	return r.withInvoice(ctx, item)
}

func (r *DynamoStore) ListOrders(ctx context.Context) ([]*domain.Order, error) {
	var items []orderItem
	if err := r.scan(ctx, r.orderTable, "ORDER#", &items); err != nil {
		return nil, err
	}
	orders, err := r.ordersWithInvoices(ctx, items)
	if err != nil {
		return nil, err
	}
	sortOrders(orders)
	return orders, nil
}

func (r *DynamoStore) ListOrdersByCustomer(ctx context.Context, customerID string) ([]*domain.Order, error) {
	paginator := dynamodb.NewQueryPaginator(r.client, &dynamodb.QueryInput{
		TableName:              aws.String(r.orderTable),
		IndexName:              aws.String(gsi1Name),
		KeyConditionExpression: aws.String("GSI1PK = :pk AND begins_with(GSI1SK, :prefix)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":     &types.AttributeValueMemberS{Value: "CUSTOMER#" + customerID},
			":prefix": &types.AttributeValueMemberS{Value: "ORDER#"},
		},
	})

	var items []orderItem
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to query customer orders: %w", err)
		}
		var batch []orderItem
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, err
		}
		items = append(items, batch...)
	}
	return r.ordersWithInvoices(ctx, items)
}

func (r *DynamoStore) ordersWithInvoices(ctx context.Context, items []orderItem) ([]*domain.Order, error) {
	orders := make([]*domain.Order, 0, len(items))
	for _, it := range items {
		o, err := r.withInvoice(ctx, it)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, nil
}

func (r *DynamoStore) withInvoice(ctx context.Context, item orderItem) (*domain.Order, error) {
	order, err := item.toDomain()
	if err != nil {
		return nil, err
	}
	if item.InvoiceID != "" {
		inv, err := r.GetInvoice(ctx, item.InvoiceID)
		if err != nil {
			return nil, fmt.Errorf("order %s: %w", item.OrderID, err)
		}
		order.Invoice = inv
	}
	return order, nil
}

func (r *DynamoStore) UpdateOrderStatus(ctx context.Context, id string, from, to domain.OrderStatus) error {
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.orderTable),
		Key:                 orderKey(id),
		UpdateExpression:    aws.String("SET #status = :to, updated_at = :now"),
		ConditionExpression: aws.String("attribute_exists(PK) AND #status = :from"),
		ExpressionAttributeNames: map[string]string{
			"#status": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":to":   &types.AttributeValueMemberS{Value: string(to)},
			":from": &types.AttributeValueMemberS{Value: string(from)},
			":now":  timeValue(time.Now().UTC()),
		},
		ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
	})
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		if len(ccf.Item) == 0 {
			return domain.ErrOrderNotFound
		}
		return domain.ErrStatusConflict
	}
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}
	return nil
}

// Invoices

func (r *DynamoStore) GetInvoice(ctx context.Context, id string) (*domain.Invoice, error) {
	var item invoiceItem
	found, err := r.getItem(ctx, r.orderTable, invoiceKey(id), &item)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, domain.ErrInvoiceNotFound
	}
	return item.toDomain()
}

func (r *DynamoStore) ListInvoices(ctx context.Context) ([]*domain.Invoice, error) {
	var items []invoiceItem
	if err := r.scan(ctx, r.orderTable, "INVOICE#", &items); err != nil {
		return nil, err
	}
	invoices := make([]*domain.Invoice, 0, len(items))
	for _, it := range items {
		inv, err := it.toDomain()
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, inv)
	}
	return invoices, nil
}

// helpers

func (r *DynamoStore) getItem(ctx context.Context, table string, key map[string]types.AttributeValue, out any) (bool, error) {
	res, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(table),
		Key:            key,
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return false, err
	}
	if len(res.Item) == 0 {
		return false, nil
	}
	if err := attributevalue.UnmarshalMap(res.Item, out); err != nil {
		return false, err
	}
	return true, nil
}

func (r *DynamoStore) putNew(ctx context.Context, table string, item any) error {
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("failed to marshal item: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(table),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	})
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return domain.ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("failed to put item: %w", err)
	}
	return nil
}

// scan reads every item whose PK starts with prefix into out (a pointer to a slice).
func (r *DynamoStore) scan(ctx context.Context, table, prefix string, out any) error {
	paginator := dynamodb.NewScanPaginator(r.client, &dynamodb.ScanInput{
		TableName:        aws.String(table),
		FilterExpression: aws.String("begins_with(PK, :prefix)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":prefix": &types.AttributeValueMemberS{Value: prefix},
		},
		ConsistentRead: aws.Bool(true),
	})

	var all []map[string]types.AttributeValue
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("failed to scan %s: %w", table, err)
		}
		all = append(all, page.Items...)
	}
	return attributevalue.UnmarshalListOfMaps(all, out)
}

func stockValues(r StockReservation) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		":new":      numberValue(r.NewStock),
		":expected": numberValue(r.ExpectedStock),
		":now":      timeValue(time.Now().UTC()),
	}
}

func parseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return d, nil
}

func numberValue(n int) types.AttributeValue {
	return &types.AttributeValueMemberN{Value: strconv.Itoa(n)}
}

func timeValue(t time.Time) types.AttributeValue {
	return &types.AttributeValueMemberS{Value: t.Format(time.RFC3339Nano)}
}
