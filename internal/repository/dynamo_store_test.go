package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/cloud-wave-best-zizon/fulfillment-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDynamo keeps items by table and PK/SK and lets tests script failures.
type fakeDynamo struct {
	DynamoAPI

	items       map[string]map[string]types.AttributeValue
	updateErr   error
	transactErr error
	lastTx      *dynamodb.TransactWriteItemsInput
}

func newFakeDynamo() *fakeDynamo {
	return &fakeDynamo{items: make(map[string]map[string]types.AttributeValue)}
}

func itemKey(table string, key map[string]types.AttributeValue) string {
	pk := key["PK"].(*types.AttributeValueMemberS).Value
	sk := key["SK"].(*types.AttributeValueMemberS).Value
	return table + "|" + pk + "|" + sk
}

func (f *fakeDynamo) GetItem(ctx context.Context, in *dynamodb.GetItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	return &dynamodb.GetItemOutput{Item: f.items[itemKey(aws.ToString(in.TableName), in.Key)]}, nil
}

func (f *fakeDynamo) PutItem(ctx context.Context, in *dynamodb.PutItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	key := itemKey(aws.ToString(in.TableName), in.Item)
	if _, ok := f.items[key]; ok {
		return nil, &types.ConditionalCheckFailedException{Message: aws.String("exists")}
	}
	f.items[key] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	return &dynamodb.UpdateItemOutput{}, f.updateErr
}

func (f *fakeDynamo) TransactWriteItems(ctx context.Context, in *dynamodb.TransactWriteItemsInput, opts ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error) {
	f.lastTx = in
	return &dynamodb.TransactWriteItemsOutput{}, f.transactErr
}

func reason(code string, item map[string]types.AttributeValue) types.CancellationReason {
	return types.CancellationReason{Code: aws.String(code), Item: item}
}

var oldProduct = map[string]types.AttributeValue{
	"stock": &types.AttributeValueMemberN{Value: "9"},
}

func TestDynamoStore_CommitInput(t *testing.T) {
	fake := newFakeDynamo()
	store := NewDynamoStore(fake, "orders", "catalog")

	commit := newCommit("o1", time.Now().UTC(),
		StockReservation{ProductID: "p1", ExpectedStock: 10, NewStock: 8},
		StockReservation{ProductID: "p2", ExpectedStock: 3, NewStock: 2},
	)
	require.NoError(t, store.CommitOrder(context.Background(), commit))

	require.NotNil(t, fake.lastTx)
	items := fake.lastTx.TransactItems
	require.Len(t, items, 4)

	for i, id := range []string{"p1", "p2"} {
		require.NotNil(t, items[i].Update)
		assert.Equal(t, "catalog", aws.ToString(items[i].Update.TableName))
		assert.Equal(t, "stock = :expected", aws.ToString(items[i].Update.ConditionExpression))
		assert.Equal(t, "PRODUCT#"+id, items[i].Update.Key["PK"].(*types.AttributeValueMemberS).Value)
	}
	assert.Equal(t, "10", items[0].Update.ExpressionAttributeValues[":expected"].(*types.AttributeValueMemberN).Value)
	assert.Equal(t, "8", items[0].Update.ExpressionAttributeValues[":new"].(*types.AttributeValueMemberN).Value)

	require.NotNil(t, items[2].Put)
	assert.Equal(t, "ORDER#o1", items[2].Put.Item["PK"].(*types.AttributeValueMemberS).Value)
	assert.Equal(t, "CUSTOMER#c1", items[2].Put.Item["GSI1PK"].(*types.AttributeValueMemberS).Value)
	assert.Equal(t, "227.49", items[2].Put.Item["total_amount"].(*types.AttributeValueMemberS).Value)
	require.NotNil(t, items[3].Put)
	assert.Equal(t, "INVOICE#inv-o1", items[3].Put.Item["PK"].(*types.AttributeValueMemberS).Value)
	assert.Equal(t, "attribute_not_exists(PK)", aws.ToString(items[3].Put.ConditionExpression))
}

func TestDynamoStore_CommitErrors(t *testing.T) {
	reservations := []StockReservation{
		{ProductID: "p1", ExpectedStock: 10, NewStock: 8},
		{ProductID: "p2", ExpectedStock: 3, NewStock: 2},
	}

	tests := []struct {
		name    string
		reasons []types.CancellationReason
		check   func(t *testing.T, err error)
	}{
		{
			name:    "stale stock",
			reasons: []types.CancellationReason{reason("None", nil), reason("ConditionalCheckFailed", oldProduct)},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, domain.ErrStockConflict)
			},
		},
		{
			name:    "missing product",
			reasons: []types.CancellationReason{reason("ConditionalCheckFailed", nil)},
			check: func(t *testing.T, err error) {
				var notFound *domain.ProductNotFoundError
				require.ErrorAs(t, err, &notFound)
				assert.Equal(t, "p1", notFound.ProductID)
			},
		},
		{
			name: "duplicate order",
			reasons: []types.CancellationReason{
				reason("None", nil), reason("None", nil), reason("ConditionalCheckFailed", nil),
			},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, domain.ErrAlreadyExists)
			},
		},
		{
			name:    "transaction conflict",
			reasons: []types.CancellationReason{reason("TransactionConflict", nil)},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, domain.ErrStockConflict)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := commitError(&types.TransactionCanceledException{
				Message:             aws.String("Transaction cancelled"),
				CancellationReasons: tt.reasons,
			}, reservations)
			tt.check(t, err)
		})
	}

	assert.NoError(t, commitError(nil, reservations))

	err := commitError(errors.New("throttled"), reservations)
	assert.Error(t, err)
	assert.Equal(t, domain.KindInternal, domain.KindOf(err))
}

func TestDynamoStore_ConditionalUpdateStock(t *testing.T) {
	fake := newFakeDynamo()
	store := NewDynamoStore(fake, "orders", "catalog")
	ctx := context.Background()

	require.NoError(t, store.ConditionalUpdateStock(ctx, "p1", 5, 4))

	fake.updateErr = &types.ConditionalCheckFailedException{Item: oldProduct}
	assert.ErrorIs(t, store.ConditionalUpdateStock(ctx, "p1", 5, 4), domain.ErrStockConflict)

	fake.updateErr = &types.ConditionalCheckFailedException{}
	assert.ErrorIs(t, store.ConditionalUpdateStock(ctx, "p1", 5, 4), domain.ErrProductNotFound)

	assert.ErrorIs(t, store.ConditionalUpdateStock(ctx, "p1", 5, -1), domain.ErrInvalidRequest)
}

func TestDynamoStore_UpdateOrderStatus(t *testing.T) {
	fake := newFakeDynamo()
	store := NewDynamoStore(fake, "orders", "catalog")
	ctx := context.Background()

	require.NoError(t, store.UpdateOrderStatus(ctx, "o1", domain.OrderStatusPending, domain.OrderStatusProcessing))

	fake.updateErr = &types.ConditionalCheckFailedException{Item: map[string]types.AttributeValue{
		"status": &types.AttributeValueMemberS{Value: "Processing"},
	}}
	assert.ErrorIs(t,
		store.UpdateOrderStatus(ctx, "o1", domain.OrderStatusPending, domain.OrderStatusProcessing),
		domain.ErrStatusConflict)

	fake.updateErr = &types.ConditionalCheckFailedException{}
	assert.ErrorIs(t,
		store.UpdateOrderStatus(ctx, "o1", domain.OrderStatusPending, domain.OrderStatusProcessing),
		domain.ErrOrderNotFound)
}

func TestDynamoStore_ProductAndCustomerRoundTrip(t *testing.T) {
	fake := newFakeDynamo()
	store := NewDynamoStore(fake, "orders", "catalog")
	ctx := context.Background()
	seed(t, store)

	p, err := store.GetProduct(ctx, "p2")
	require.NoError(t, err)
	assert.Equal(t, "Bulb", p.Name)
	assert.Equal(t, 3, p.Stock)
	assert.Equal(t, "2.49", p.Price.String())

	_, err = store.GetProduct(ctx, "ghost")
	assert.ErrorIs(t, err, domain.ErrProductNotFound)

	c, err := store.GetCustomer(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", c.Email)

	assert.ErrorIs(t, store.CreateCustomer(ctx, c), domain.ErrAlreadyExists)
}
