package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusProcessing,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

func TestCanTransitionTo(t *testing.T) {
	allowed := map[OrderStatus]map[OrderStatus]bool{
		OrderStatusPending:    {OrderStatusProcessing: true, OrderStatusCancelled: true},
		OrderStatusProcessing: {OrderStatusShipped: true, OrderStatusCancelled: true},
		OrderStatusShipped:    {OrderStatusDelivered: true},
	}

	for _, from := range allStatuses {
		for _, to := range allStatuses {
			want := allowed[from][to]
			assert.Equal(t, want, from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}
}

func TestTerminalStatusesRejectEverything(t *testing.T) {
	for _, from := range []OrderStatus{OrderStatusDelivered, OrderStatusCancelled} {
		assert.True(t, from.Terminal())
		for _, to := range allStatuses {
			err := CheckTransition(from, to)
			var invalid *InvalidTransitionError
			require.True(t, errors.As(err, &invalid), "%s -> %s", from, to)
			assert.Equal(t, from, invalid.From)
			assert.Equal(t, to, invalid.To)
			assert.Equal(t, KindConflict, KindOf(err))
		}
	}
}

func TestParseOrderStatus(t *testing.T) {
	st, err := ParseOrderStatus("shipped")
	require.NoError(t, err)
	assert.Equal(t, OrderStatusShipped, st)

	st, err = ParseOrderStatus(" CANCELLED ")
	require.NoError(t, err)
	assert.Equal(t, OrderStatusCancelled, st)

	_, err = ParseOrderStatus("Refunded")
	assert.ErrorIs(t, err, ErrInvalidRequest)
	assert.Equal(t, KindValidation, KindOf(err))
}
