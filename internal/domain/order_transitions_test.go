package domain_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/eventhub/internal/domain"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name string
		from domain.OrderStatus
		to   domain.OrderStatus
		role domain.Role
		want error
	}{
		{"customer cancels pending", domain.OrderStatusPending, domain.OrderStatusCanceled, domain.RoleUser, nil},
		{"saga confirms paid", domain.OrderStatusPaid, domain.OrderStatusConfirmed, domain.RoleSystem, nil},
		{"business starts preparing", domain.OrderStatusConfirmed, domain.OrderStatusPreparing, domain.RoleBusiness, nil},
		{"customer cannot prepare", domain.OrderStatusConfirmed, domain.OrderStatusPreparing, domain.RoleUser, domain.ErrForbiddenTransition},
		{"partner picks up", domain.OrderStatusReady, domain.OrderStatusOutForDelivery, domain.RolePartner, nil},
		{"partner delivers", domain.OrderStatusOutForDelivery, domain.OrderStatusDelivered, domain.RolePartner, nil},
		{"business cannot deliver", domain.OrderStatusOutForDelivery, domain.OrderStatusDelivered, domain.RoleBusiness, domain.ErrForbiddenTransition},
		{"admin overrides role", domain.OrderStatusOutForDelivery, domain.OrderStatusDelivered, domain.RoleAdmin, nil},
		{"no skipping preparation", domain.OrderStatusConfirmed, domain.OrderStatusReady, domain.RoleAdmin, domain.ErrInvalidTransition},
		{"cannot cancel in delivery", domain.OrderStatusOutForDelivery, domain.OrderStatusCanceled, domain.RoleUser, domain.ErrInvalidTransition},
		{"refunded is terminal", domain.OrderStatusRefunded, domain.OrderStatusCompleted, domain.RoleAdmin, domain.ErrInvalidTransition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := domain.CanTransition(tt.from, tt.to, tt.role)
			if tt.want == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestOrderStatus_IsTerminal(t *testing.T) {
	assert.True(t, domain.OrderStatusCanceled.IsTerminal())
	assert.True(t, domain.OrderStatusRejected.IsTerminal())
	assert.True(t, domain.OrderStatusRefunded.IsTerminal())
	assert.False(t, domain.OrderStatusDelivered.IsTerminal())
	assert.False(t, domain.OrderStatusPending.IsTerminal())
}

func TestOrderTransition(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("same status is a no-op", func(t *testing.T) {
		order := makeOrder()
		changed, err := order.Transition(domain.OrderStatusPending, domain.RoleUser, now)
		require.NoError(t, err)
		assert.False(t, changed)
	})

	t.Run("delivered stamps delivery time", func(t *testing.T) {
		order := makeOrder()
		order.Status = domain.OrderStatusOutForDelivery
		changed, err := order.Transition(domain.OrderStatusDelivered, domain.RolePartner, now)
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, now, order.Delivery.DeliveredAt)
		assert.Equal(t, now, order.UpdatedAt)
	})

	t.Run("ticket orders skip the delivery branch", func(t *testing.T) {
		order := makeOrder()
		order.Kind = domain.OrderKindTicket
		order.Status = domain.OrderStatusConfirmed
		_, err := order.Transition(domain.OrderStatusPreparing, domain.RoleBusiness, now)
		require.ErrorIs(t, err, domain.ErrInvalidTransition)

		changed, err := order.Transition(domain.OrderStatusCompleted, domain.RoleSystem, now)
		require.NoError(t, err)
		assert.True(t, changed)
	})

	t.Run("goods orders cannot complete before delivery", func(t *testing.T) {
		order := makeOrder()
		order.Status = domain.OrderStatusConfirmed
		_, err := order.Transition(domain.OrderStatusCompleted, domain.RoleBusiness, now)
		require.ErrorIs(t, err, domain.ErrInvalidTransition)
		assert.Equal(t, domain.OrderStatusConfirmed, order.Status)
	})
}

func TestAllowedTransitions(t *testing.T) {
	got := domain.AllowedTransitions(domain.OrderStatusConfirmed, domain.RoleBusiness)
	assert.Equal(t, []domain.OrderStatus{
		domain.OrderStatusPreparing,
		domain.OrderStatusCompleted,
		domain.OrderStatusRejected,
		domain.OrderStatusCanceled,
		domain.OrderStatusRefunded,
	}, got)

	assert.Empty(t, domain.AllowedTransitions(domain.OrderStatusCanceled, domain.RoleAdmin))
}
