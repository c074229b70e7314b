package service

import (
	"context"
	"io"
	"log/slog"
	"math/rand"
	"testing"

	carterrors "github.com/abgdnv/gocommerce/cart_service/internal/errors"
	"github.com/abgdnv/gocommerce/cart_service/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func newTestService(t *testing.T) (*Service, *store.CartStore) {
	t.Helper()
	cartStore, err := store.NewCartStore(context.Background(), store.NewMemoryRecordStore(), discardLogger)
	require.NoError(t, err)
	return NewService(cartStore, discardLogger), cartStore
}

func addDto(productID string, quantity, maxStock int) AddItemDto {
	return AddItemDto{ProductID: productID, Name: productID, UnitPrice: 1000, Quantity: quantity, MaxStock: maxStock, VendorID: "v1"}
}

func TestService_AddItem(t *testing.T) {
	testCases := []struct {
		name      string
		existing  int
		add       int
		maxStock  int
		expectErr error
		expectQty int
	}{
		{name: "fits under the ceiling", existing: 0, add: 2, maxStock: 3, expectQty: 2},
		{name: "exactly at the ceiling", existing: 1, add: 2, maxStock: 3, expectQty: 3},
		{name: "over the ceiling is rejected", existing: 2, add: 2, maxStock: 3, expectErr: carterrors.ErrInsufficientStock, expectQty: 2},
		{name: "zero quantity is invalid", existing: 0, add: 0, maxStock: 3, expectErr: carterrors.ErrInvalidQuantity, expectQty: 0},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			ctx := context.Background()
			svc, cartStore := newTestService(t)
			if tc.existing > 0 {
				_, err := svc.AddItem(ctx, addDto("p1", tc.existing, tc.maxStock))
				require.NoError(t, err)
			}

			// when
			view, err := svc.AddItem(ctx, addDto("p1", tc.add, tc.maxStock))

			// then
			if tc.expectErr != nil {
				assert.ErrorIs(t, err, tc.expectErr)
				assert.Nil(t, view)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tc.expectQty, view.TotalItems)
			}
			assert.Equal(t, tc.expectQty, cartStore.GetItemQuantity("p1"))
		})
	}
}

func TestService_CapacityErrorMessage(t *testing.T) {
	// given
	ctx := context.Background()
	svc, _ := newTestService(t)
	_, err := svc.AddItem(ctx, addDto("p1", 2, 3))
	require.NoError(t, err)

	// when
	_, err = svc.AddItem(ctx, addDto("p1", 2, 3))

	// then
	require.Error(t, err)
	assert.Equal(t, "product p1. Available: 1, Requested: 2: insufficient stock", err.Error())
}

func TestService_AddItemWithNewCeiling(t *testing.T) {
	testCases := []struct {
		name        string
		secondAdd   int
		secondMax   int
		expectErr   error
		expectQty   int
		expectMax   int
		updateTo    int
		updateErr   error
		expectFinal int
	}{
		{name: "raised ceiling is stored", secondAdd: 3, secondMax: 10, expectQty: 5, expectMax: 10, updateTo: 6, expectFinal: 6},
		{name: "lowered ceiling rejects the add", secondAdd: 1, secondMax: 2, expectErr: carterrors.ErrInsufficientStock, expectQty: 2, expectMax: 3, updateTo: 4, updateErr: carterrors.ErrInsufficientStock, expectFinal: 2},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			ctx := context.Background()
			svc, cartStore := newTestService(t)
			_, err := svc.AddItem(ctx, addDto("p1", 2, 3))
			require.NoError(t, err)

			// when
			_, err = svc.AddItem(ctx, addDto("p1", tc.secondAdd, tc.secondMax))

			// then
			if tc.expectErr != nil {
				assert.ErrorIs(t, err, tc.expectErr)
			} else {
				require.NoError(t, err)
			}
			items := cartStore.Items()
			require.Len(t, items, 1)
			assert.Equal(t, tc.expectQty, items[0].Quantity)
			assert.Equal(t, tc.expectMax, items[0].MaxStock)

			// when: the quantity is raised against the stored ceiling
			_, err = svc.UpdateItem(ctx, "p1", UpdateItemDto{Quantity: tc.updateTo})

			// then
			if tc.updateErr != nil {
				assert.ErrorIs(t, err, tc.updateErr)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tc.expectFinal, cartStore.GetItemQuantity("p1"))
		})
	}
}

func TestService_UpdateItem(t *testing.T) {
	testCases := []struct {
		name      string
		update    UpdateItemDto
		productID string
		expectErr error
		expectQty int
	}{
		{name: "decrease", productID: "p1", update: UpdateItemDto{Quantity: 1}, expectQty: 1},
		{name: "increase within stock", productID: "p1", update: UpdateItemDto{Quantity: 3}, expectQty: 3},
		{name: "increase over stock", productID: "p1", update: UpdateItemDto{Quantity: 4}, expectErr: carterrors.ErrInsufficientStock, expectQty: 2},
		{name: "zero removes", productID: "p1", update: UpdateItemDto{Quantity: 0}, expectQty: 0},
		{name: "negative removes", productID: "p1", update: UpdateItemDto{Quantity: -5}, expectQty: 0},
		{name: "absent product", productID: "p9", update: UpdateItemDto{Quantity: 1}, expectErr: carterrors.ErrItemNotFound, expectQty: 2},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			ctx := context.Background()
			svc, cartStore := newTestService(t)
			_, err := svc.AddItem(ctx, addDto("p1", 2, 3))
			require.NoError(t, err)

			// when
			_, err = svc.UpdateItem(ctx, tc.productID, tc.update)

			// then
			if tc.expectErr != nil {
				assert.ErrorIs(t, err, tc.expectErr)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tc.expectQty, cartStore.GetItemQuantity("p1"))
		})
	}
}

// Random guarded sequences never push a row over its ceiling.
func TestService_GuardedSequencesKeepInvariant(t *testing.T) {
	ctx := context.Background()
	rng := rand.New(rand.NewSource(42))
	ids := []string{"p1", "p2", "p3"}

	for run := 0; run < 20; run++ {
		svc, cartStore := newTestService(t)
		for step := 0; step < 50; step++ {
			id := ids[rng.Intn(len(ids))]
			switch rng.Intn(3) {
			case 0:
				// the ceiling changes per request, below and above the current quantity
				_, _ = svc.AddItem(ctx, addDto(id, rng.Intn(3)+1, rng.Intn(9)))
			case 1:
				_, _ = svc.UpdateItem(ctx, id, UpdateItemDto{Quantity: rng.Intn(7) - 1})
			case 2:
				_, _ = svc.RemoveItem(ctx, id)
			}
			for _, item := range cartStore.Items() {
				require.LessOrEqual(t, item.Quantity, item.MaxStock, "run %d step %d", run, step)
				require.GreaterOrEqual(t, item.Quantity, 1)
			}
			view := svc.View(ctx)
			var sum int
			var price int64
			for _, item := range view.Items {
				sum += item.Quantity
				price += item.UnitPrice * int64(item.Quantity)
			}
			require.Equal(t, sum, view.TotalItems)
			require.Equal(t, price, view.TotalPrice)
		}
	}
}

func TestService_Availability(t *testing.T) {
	// given
	ctx := context.Background()
	svc, _ := newTestService(t)
	_, err := svc.AddItem(ctx, addDto("p1", 2, 3))
	require.NoError(t, err)

	// when
	result := svc.Availability(ctx, "p1", 2, 3)

	// then
	assert.Equal(t, AvailabilityDto{ProductID: "p1", Current: 2, Requested: 2, MaxStock: 3, CanAdd: false}, result)
}

func TestService_ViewAndClear(t *testing.T) {
	// given
	ctx := context.Background()
	svc, _ := newTestService(t)
	_, err := svc.AddItem(ctx, addDto("p1", 2, 3))
	require.NoError(t, err)
	other := addDto("p2", 1, 3)
	other.VendorID = "v2"
	_, err = svc.AddItem(ctx, other)
	require.NoError(t, err)

	// when
	view := svc.View(ctx)
	totals := svc.Totals(ctx)
	require.NoError(t, svc.Clear(ctx))
	require.NoError(t, svc.Clear(ctx))

	// then
	assert.Len(t, view.Vendors, 2)
	assert.Equal(t, "COLD", view.Phase)
	assert.Equal(t, TotalsDto{TotalItems: 3, TotalPrice: 3000}, totals)
	assert.Equal(t, 0, svc.ItemQuantity(ctx, "p1"))
	assert.Empty(t, svc.View(ctx).Items)
}
