package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToOrderStatus(t *testing.T) {
	for _, raw := range []string{"pending", "confirmed", "preparing", "out-for-delivery", "delivered", "cancelled"} {
		status, err := ToOrderStatus(raw)
		require.NoError(t, err)
		assert.Equal(t, OrderStatus(raw), status)
	}

	_, err := ToOrderStatus("shipped")
	assert.ErrorIs(t, err, ErrInvalidOrderStatus)
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from    OrderStatus
		to      OrderStatus
		allowed bool
	}{
		{OrderStatusPending, OrderStatusConfirmed, true},
		{OrderStatusPending, OrderStatusCancelled, true},
		{OrderStatusPending, OrderStatusDelivered, false},
		{OrderStatusConfirmed, OrderStatusPreparing, true},
		{OrderStatusConfirmed, OrderStatusCancelled, true},
		{OrderStatusConfirmed, OrderStatusPending, false},
		{OrderStatusPreparing, OrderStatusOutForDelivery, true},
		{OrderStatusPreparing, OrderStatusCancelled, true},
		{OrderStatusOutForDelivery, OrderStatusDelivered, true},
		{OrderStatusOutForDelivery, OrderStatusCancelled, false},
		{OrderStatusDelivered, OrderStatusCancelled, false},
		{OrderStatusCancelled, OrderStatusPending, false},
		{OrderStatusCancelled, OrderStatusCancelled, false},
	}

	for _, tt := range tests {
		assert.Equalf(t, tt.allowed, CanTransition(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestTerminalStatuses(t *testing.T) {
	assert.True(t, IsTerminal(OrderStatusDelivered))
	assert.True(t, IsTerminal(OrderStatusCancelled))
	assert.False(t, IsTerminal(OrderStatusPending))
	assert.False(t, IsTerminal(OrderStatusOutForDelivery))
}
