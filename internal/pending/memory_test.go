package pending

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rentflow/checkout/internal/domain/payment"
)

func pendingFixture(orderID string) *payment.PendingTransaction {
	return &payment.PendingTransaction{
		Type:        "booking_payment",
		OrderID:     orderID,
		BookingID:   "bkg_1",
		Amount:      125000,
		CallbackURL: "http://localhost:3000/payment/callback",
		CreatedAt:   time.Now(),
	}
}

func TestMemoryStore_SaveLoadClear(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, got, "empty store loads nil, not an error")

	require.NoError(t, store.Save(ctx, pendingFixture("order_1")))

	got, err = store.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "order_1", got.OrderID)

	require.NoError(t, store.Clear(ctx, "order_1"))
	got, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemoryStore_LastWriteWins(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.Save(ctx, pendingFixture("order_1")))
	require.NoError(t, store.Save(ctx, pendingFixture("order_2")))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "order_2", got.OrderID)

	list, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestMemoryStore_ClearIsScopedToOrder(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.Save(ctx, pendingFixture("order_2")))
	require.NoError(t, store.Clear(ctx, "order_1"), "clearing an unknown order is a no-op")

	got, err := store.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, got, "a newer attempt's record must survive a stale clear")
	assert.Equal(t, "order_2", got.OrderID)
}

func TestMemoryStore_LoadReturnsCopy(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Save(ctx, pendingFixture("order_1")))

	first, err := store.Load(ctx)
	require.NoError(t, err)
	first.OrderID = "mutated"

	second, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "order_1", second.OrderID)
}
