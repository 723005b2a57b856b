package models

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLedger(available, reserved int64) *Inventory {
	return &Inventory{
		ID:                1,
		SKU:               "BMW-11427566327",
		QuantityAvailable: available,
		QuantityReserved:  reserved,
		ReorderPoint:      10,
		MinimumStockLevel: 5,
		LastUpdated:       time.Now().Add(-time.Hour),
	}
}

func TestInventoryCanReserve(t *testing.T) {
	inv := newLedger(50, 20)

	assert.True(t, inv.CanReserve(1))
	assert.True(t, inv.CanReserve(50))
	assert.False(t, inv.CanReserve(51))
	assert.False(t, inv.CanReserve(0))
	assert.False(t, inv.CanReserve(-3))
}

func TestInventoryReserve(t *testing.T) {
	inv := newLedger(100, 0)

	require.NoError(t, inv.Reserve(30))
	assert.Equal(t, int64(70), inv.QuantityAvailable)
	assert.Equal(t, int64(30), inv.QuantityReserved)
	assert.Equal(t, int64(100), inv.TotalOnHand())
}

func TestInventoryReserveInsufficient(t *testing.T) {
	inv := newLedger(50, 20)
	before := *inv

	err := inv.Reserve(60)
	require.ErrorIs(t, err, ErrInsufficientStock)
	assert.Equal(t, before, *inv, "failed reserve must not mutate the ledger")
}

func TestInventoryRelease(t *testing.T) {
	inv := newLedger(70, 30)

	require.NoError(t, inv.Release(30))
	assert.Equal(t, int64(100), inv.QuantityAvailable)
	assert.Equal(t, int64(0), inv.QuantityReserved)
}

func TestInventoryReleaseInvalid(t *testing.T) {
	inv := newLedger(50, 20)
	before := *inv

	require.ErrorIs(t, inv.Release(30), ErrInvalidRelease)
	require.ErrorIs(t, inv.Release(0), ErrInvalidRelease)
	require.ErrorIs(t, inv.Release(-5), ErrInvalidRelease)
	assert.Equal(t, before, *inv)
}

func TestInventoryReserveThenReleaseRestoresCounters(t *testing.T) {
	inv := newLedger(42, 7)

	require.NoError(t, inv.Reserve(13))
	require.NoError(t, inv.Release(13))
	assert.Equal(t, int64(42), inv.QuantityAvailable)
	assert.Equal(t, int64(7), inv.QuantityReserved)
}

func TestInventoryConfirmSale(t *testing.T) {
	inv := newLedger(70, 30)

	require.NoError(t, inv.ConfirmSale(30))
	assert.Equal(t, int64(70), inv.QuantityAvailable)
	assert.Equal(t, int64(0), inv.QuantityReserved)
	assert.Equal(t, int64(70), inv.TotalOnHand(), "sold units leave the ledger permanently")
}

func TestInventoryConfirmSaleInvalid(t *testing.T) {
	inv := newLedger(70, 30)
	before := *inv

	require.ErrorIs(t, inv.ConfirmSale(31), ErrInvalidConfirm)
	require.ErrorIs(t, inv.ConfirmSale(0), ErrInvalidConfirm)
	assert.Equal(t, before, *inv)
}

func TestInventoryAdjustTotalTo(t *testing.T) {
	inv := newLedger(80, 20)

	require.NoError(t, inv.AdjustTotalTo(40))
	assert.Equal(t, int64(20), inv.QuantityAvailable)
	assert.Equal(t, int64(20), inv.QuantityReserved)
}

func TestInventoryAdjustTotalToInvalid(t *testing.T) {
	inv := newLedger(80, 20)
	before := *inv

	require.ErrorIs(t, inv.AdjustTotalTo(19), ErrInvalidAdjustment, "total cannot drop below held reservations")
	require.ErrorIs(t, inv.AdjustTotalTo(-1), ErrInvalidAdjustment)
	assert.Equal(t, before, *inv)
}

func TestInventoryAdjustTotalToReservedBoundary(t *testing.T) {
	inv := newLedger(80, 20)

	// A total equal to the reserved quantity is legal: everything on hand is held.
	require.NoError(t, inv.AdjustTotalTo(20))
	assert.Equal(t, int64(0), inv.QuantityAvailable)
	assert.Equal(t, int64(20), inv.QuantityReserved)
	assert.True(t, inv.IsOutOfStock())
}

func TestInventoryDerivedPredicates(t *testing.T) {
	inv := newLedger(0, 5)
	assert.True(t, inv.IsOutOfStock())

	inv.QuantityAvailable = 10
	assert.True(t, inv.IsLowStock(), "at the reorder point counts as low")
	inv.QuantityAvailable = 11
	assert.False(t, inv.IsLowStock())

	inv.QuantityAvailable = 5
	assert.False(t, inv.IsBelowMinimum(), "below minimum is strict")
	inv.QuantityAvailable = 4
	assert.True(t, inv.IsBelowMinimum())
}

func TestInventoryLastUpdatedOnlyOnSuccess(t *testing.T) {
	inv := newLedger(50, 20)
	stale := inv.LastUpdated

	require.Error(t, inv.Reserve(60))
	assert.Equal(t, stale, inv.LastUpdated)

	require.NoError(t, inv.Reserve(10))
	assert.True(t, inv.LastUpdated.After(stale))
}

// TestInventoryRandomOperationSequence drives the ledger through a long
// random sequence of operations and checks the counter invariants after
// every step: neither counter goes negative, and the total on hand only
// moves through confirmations and adjustments.
func TestInventoryRandomOperationSequence(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	inv := newLedger(100, 0)
	total := inv.TotalOnHand()

	for i := 0; i < 5000; i++ {
		qty := rng.Int63n(40) - 5 // occasionally zero or negative

		switch rng.Intn(4) {
		case 0:
			_ = inv.Reserve(qty)
		case 1:
			_ = inv.Release(qty)
		case 2:
			if inv.ConfirmSale(qty) == nil {
				total -= qty
			}
		case 3:
			newTotal := rng.Int63n(200) - 10
			if inv.AdjustTotalTo(newTotal) == nil {
				total = newTotal
			}
		}

		require.GreaterOrEqual(t, inv.QuantityAvailable, int64(0), "step %d", i)
		require.GreaterOrEqual(t, inv.QuantityReserved, int64(0), "step %d", i)
		require.Equal(t, total, inv.TotalOnHand(), "step %d", i)
	}
}
