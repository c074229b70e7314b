package store

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/abgdnv/gocommerce/cart_service/internal/cart"
	carterrors "github.com/abgdnv/gocommerce/cart_service/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// failingRecordStore fails every Save after failAfter successful ones.
type failingRecordStore struct {
	*MemoryRecordStore
	mu        sync.Mutex
	saves     int
	failAfter int
	loadErr   error
}

func (f *failingRecordStore) Load(ctx context.Context, name string) ([]byte, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return f.MemoryRecordStore.Load(ctx, name)
}

func (f *failingRecordStore) Save(ctx context.Context, name string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saves >= f.failAfter {
		return errors.New("disk full")
	}
	f.saves++
	return f.MemoryRecordStore.Save(ctx, name, data)
}

func newTestStore(t *testing.T) (*CartStore, *MemoryRecordStore) {
	t.Helper()
	records := NewMemoryRecordStore()
	s, err := NewCartStore(context.Background(), records, discardLogger)
	require.NoError(t, err)
	return s, records
}

func lineItem(productID string, price int64, maxStock int) cart.LineItem {
	return cart.LineItem{ProductID: productID, Name: "Product " + productID, UnitPrice: price, MaxStock: maxStock}
}

func persistedItems(t *testing.T, records RecordStore) []cart.LineItem {
	t.Helper()
	data, err := records.Load(context.Background(), RecordName)
	require.NoError(t, err)
	items, err := DecodeRecord(data)
	require.NoError(t, err)
	return items
}

func TestCartStore_AddItem(t *testing.T) {
	ctx := context.Background()

	t.Run("merges by product id", func(t *testing.T) {
		// given
		s, records := newTestStore(t)

		// when
		require.NoError(t, s.AddItem(ctx, lineItem("p1", 500, 10), 2))
		require.NoError(t, s.AddItem(ctx, lineItem("p1", 500, 10), 3))

		// then
		items := s.Items()
		require.Len(t, items, 1)
		assert.Equal(t, 5, items[0].Quantity)
		assert.NotEmpty(t, items[0].ItemID)
		assert.Equal(t, items, persistedItems(t, records))
	})

	t.Run("merge refreshes the stock ceiling", func(t *testing.T) {
		// given
		s, records := newTestStore(t)
		require.NoError(t, s.AddItem(ctx, lineItem("p1", 500, 3), 2))
		rowID := s.Items()[0].ItemID

		// when
		require.NoError(t, s.AddItem(ctx, lineItem("p1", 450, 10), 3))

		// then
		items := s.Items()
		require.Len(t, items, 1)
		assert.Equal(t, rowID, items[0].ItemID)
		assert.Equal(t, 5, items[0].Quantity)
		assert.Equal(t, 10, items[0].MaxStock)
		assert.Equal(t, int64(450), items[0].UnitPrice)
		assert.Equal(t, items, persistedItems(t, records))
	})

	t.Run("keeps provided item id", func(t *testing.T) {
		// given
		s, _ := newTestStore(t)
		candidate := lineItem("p1", 500, 10)
		candidate.ItemID = "legacy-row-1"

		// when
		require.NoError(t, s.AddItem(ctx, candidate, 1))

		// then
		assert.Equal(t, "legacy-row-1", s.Items()[0].ItemID)
	})

	t.Run("rejects quantity below one", func(t *testing.T) {
		// given
		s, _ := newTestStore(t)

		// when
		err := s.AddItem(ctx, lineItem("p1", 500, 10), 0)

		// then
		assert.ErrorIs(t, err, carterrors.ErrInvalidQuantity)
		assert.Empty(t, s.Items())
	})
}

func TestCartStore_UpdateQuantity(t *testing.T) {
	ctx := context.Background()
	testCases := []struct {
		name        string
		productID   string
		quantity    int
		expectItems int
		expectQty   int
	}{
		{name: "sets absolute quantity", productID: "p1", quantity: 7, expectItems: 2, expectQty: 7},
		{name: "zero removes the row", productID: "p1", quantity: 0, expectItems: 1, expectQty: 0},
		{name: "negative removes the row", productID: "p1", quantity: -5, expectItems: 1, expectQty: 0},
		{name: "absent row is a no-op", productID: "missing", quantity: 3, expectItems: 2, expectQty: 2},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			s, _ := newTestStore(t)
			require.NoError(t, s.AddItem(ctx, lineItem("p1", 100, 10), 2))
			require.NoError(t, s.AddItem(ctx, lineItem("p2", 100, 10), 1))

			// when
			err := s.UpdateQuantity(ctx, tc.productID, tc.quantity)

			// then
			require.NoError(t, err)
			assert.Len(t, s.Items(), tc.expectItems)
			assert.Equal(t, tc.expectQty, s.GetItemQuantity("p1"))
		})
	}
}

func TestCartStore_RemoveItem(t *testing.T) {
	// given
	ctx := context.Background()
	s, _ := newTestStore(t)
	require.NoError(t, s.AddItem(ctx, lineItem("p1", 100, 10), 1))
	rev := s.Revision()

	// when
	require.NoError(t, s.RemoveItem(ctx, "missing"))
	require.NoError(t, s.RemoveItem(ctx, "p1"))

	// then
	assert.Empty(t, s.Items())
	assert.Equal(t, rev+1, s.Revision(), "absent remove must not count as a mutation")
}

func TestCartStore_Totals(t *testing.T) {
	// given
	ctx := context.Background()
	s, _ := newTestStore(t)

	// when
	require.NoError(t, s.AddItem(ctx, lineItem("p1", 1000, 10), 2))
	require.NoError(t, s.AddItem(ctx, lineItem("p2", 250, 10), 4))
	require.NoError(t, s.AddItem(ctx, lineItem("p3", 99, 10), 1))
	require.NoError(t, s.UpdateQuantity(ctx, "p2", 1))
	require.NoError(t, s.RemoveItem(ctx, "p3"))

	// then
	items := s.Items()
	assert.Equal(t, cart.TotalItems(items), s.GetTotalItems())
	assert.Equal(t, cart.TotalPrice(items), s.GetTotalPrice())
	assert.Equal(t, 3, s.GetTotalItems())
	assert.Equal(t, int64(2250), s.GetTotalPrice())
}

func TestCartStore_ClearCart_Idempotent(t *testing.T) {
	// given
	ctx := context.Background()
	s, records := newTestStore(t)
	require.NoError(t, s.AddItem(ctx, lineItem("p1", 100, 10), 1))

	// when
	require.NoError(t, s.ClearCart(ctx))
	first := s.Snapshot()
	require.NoError(t, s.ClearCart(ctx))
	second := s.Snapshot()

	// then
	assert.Empty(t, first.Items)
	assert.Equal(t, first, second)
	assert.Empty(t, persistedItems(t, records))
}

func TestCartStore_SetItems_Normalizes(t *testing.T) {
	// given
	ctx := context.Background()
	s, _ := newTestStore(t)
	require.NoError(t, s.AddItem(ctx, lineItem("local", 100, 10), 1))
	server := []cart.LineItem{
		{ProductID: "p1", Quantity: 5, MaxStock: 10},
		{ProductID: "p2", Quantity: 0, MaxStock: 10},
	}

	// when
	err := s.SetItems(ctx, server)

	// then
	require.NoError(t, err)
	items := s.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "p1", items[0].ProductID)
}

func TestCartStore_SetItemsIfRevision(t *testing.T) {
	// given
	ctx := context.Background()
	s, _ := newTestStore(t)
	rev := s.Revision()
	require.NoError(t, s.AddItem(ctx, lineItem("p1", 100, 10), 1))

	// when
	stale, err := s.SetItemsIfRevision(ctx, nil, rev)
	require.NoError(t, err)
	fresh, err := s.SetItemsIfRevision(ctx, nil, s.Revision())
	require.NoError(t, err)

	// then
	assert.False(t, stale)
	assert.True(t, fresh)
	assert.Empty(t, s.Items())
}

func TestCartStore_PersistFailureLeavesMemoryUnchanged(t *testing.T) {
	// given
	ctx := context.Background()
	records := &failingRecordStore{MemoryRecordStore: NewMemoryRecordStore(), failAfter: 1}
	s, err := NewCartStore(ctx, records, discardLogger)
	require.NoError(t, err)
	require.NoError(t, s.AddItem(ctx, lineItem("p1", 100, 10), 1))
	before := s.Snapshot()

	// when
	errAdd := s.AddItem(ctx, lineItem("p1", 100, 10), 1)
	errClear := s.ClearCart(ctx)

	// then
	assert.ErrorIs(t, errAdd, carterrors.ErrPersistCart)
	assert.ErrorIs(t, errClear, carterrors.ErrPersistCart)
	assert.Equal(t, before, s.Snapshot())
}

func TestNewCartStore_RestoresRecord(t *testing.T) {
	testCases := []struct {
		name        string
		seed        []byte
		loadErr     error
		expectErr   error
		expectItems int
	}{
		{name: "no record", expectItems: 0},
		{name: "valid record", seed: []byte(`{"version":1,"items":[{"product_id":"p1","quantity":2,"max_stock":3}]}`), expectItems: 1},
		{name: "corrupt record", seed: []byte(`{not json`), expectItems: 0},
		{name: "unknown version", seed: []byte(`{"version":9,"items":[]}`), expectItems: 0},
		{name: "backend error", loadErr: errors.New("io"), expectErr: carterrors.ErrLoadCart},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			ctx := context.Background()
			records := &failingRecordStore{MemoryRecordStore: NewMemoryRecordStore(), failAfter: 100, loadErr: tc.loadErr}
			if tc.seed != nil {
				require.NoError(t, records.MemoryRecordStore.Save(ctx, RecordName, tc.seed))
			}

			// when
			s, err := NewCartStore(ctx, records, discardLogger)

			// then
			if tc.expectErr != nil {
				assert.ErrorIs(t, err, tc.expectErr)
				return
			}
			require.NoError(t, err)
			assert.Len(t, s.Items(), tc.expectItems)
		})
	}
}

func TestCartStore_HydrationPhases(t *testing.T) {
	// given
	ctx := context.Background()
	s, _ := newTestStore(t)

	// when
	ticket, ok := s.BeginHydration()
	_, again := s.BeginHydration()

	// then
	require.True(t, ok)
	assert.False(t, again, "only one pass may enter RESOLVING")
	assert.Equal(t, PhaseResolving, s.Phase())
	assert.True(t, s.IsLoading())

	applied, err := s.ApplyHydration(ctx, ticket, []cart.LineItem{{ProductID: "p1", Quantity: 5, MaxStock: 10}}, nil)
	require.NoError(t, err)
	assert.True(t, applied)
	assert.True(t, s.SettleHydration(ticket))

	snap := s.Snapshot()
	assert.Equal(t, PhaseSettled, snap.Phase)
	assert.True(t, snap.IsHydrated)
	assert.False(t, snap.IsLoading)

	_, afterSettle := s.BeginHydration()
	assert.False(t, afterSettle, "SETTLED is terminal for the session")
}

func TestCartStore_ResetSessionRevokesTicket(t *testing.T) {
	// given
	ctx := context.Background()
	s, _ := newTestStore(t)
	ticket, ok := s.BeginHydration()
	require.True(t, ok)

	// when
	s.ResetSession()
	applied, err := s.ApplyHydration(ctx, ticket, []cart.LineItem{{ProductID: "p1", Quantity: 1}}, nil)
	settled := s.SettleHydration(ticket)

	// then
	require.NoError(t, err)
	assert.False(t, applied)
	assert.False(t, settled)
	assert.Equal(t, PhaseCold, s.Phase())
	assert.Empty(t, s.Items())
}

func TestCartStore_ApplyHydrationFunc(t *testing.T) {
	// given
	ctx := context.Background()
	s, records := newTestStore(t)
	require.NoError(t, s.AddItem(ctx, lineItem("local", 100, 5), 1))
	rev := s.Revision()
	ticket, ok := s.BeginHydration()
	require.True(t, ok)
	require.NoError(t, s.AddItem(ctx, lineItem("late", 100, 5), 1))

	// when
	stale, err := s.ApplyHydrationFunc(ctx, ticket, func([]cart.LineItem) []cart.LineItem { return nil }, &rev)
	require.NoError(t, err)
	var seen []cart.LineItem
	applied, err := s.ApplyHydrationFunc(ctx, ticket, func(current []cart.LineItem) []cart.LineItem {
		seen = current
		return cart.Merge([]cart.LineItem{{ProductID: "server", Quantity: 2}}, current)
	}, nil)

	// then
	require.NoError(t, err)
	assert.False(t, stale, "a revision change blocks the replace")
	assert.True(t, applied)
	assert.Len(t, seen, 2)
	assert.True(t, s.Owns(ticket))
	assert.Equal(t, []string{"server", "local", "late"}, productIDs(s.Items()))
	assert.Equal(t, productIDs(s.Items()), productIDs(persistedItems(t, records)))
}

func productIDs(items []cart.LineItem) []string {
	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}
	return ids
}

func TestCartStore_AbortHydration(t *testing.T) {
	// given
	s, _ := newTestStore(t)
	ticket, _ := s.BeginHydration()

	// when
	aborted := s.AbortHydration(ticket)

	// then
	assert.True(t, aborted)
	assert.False(t, s.AbortHydration(ticket), "the session is no longer owned")
	assert.Equal(t, PhaseCold, s.Phase())
	assert.False(t, s.IsLoading())
	_, ok := s.BeginHydration()
	assert.True(t, ok, "an aborted pass lets a later mount hydrate")
}

func TestCartStore_SetHydratedNeverResets(t *testing.T) {
	// given
	s, _ := newTestStore(t)

	// when
	s.SetHydrated(true)
	s.SetHydrated(false)
	s.SetLoading(true)

	// then
	assert.True(t, s.IsHydrated())
	assert.True(t, s.IsLoading())
}

func TestCartStore_ConcurrentAdds(t *testing.T) {
	// given
	ctx := context.Background()
	s, _ := newTestStore(t)
	var wg sync.WaitGroup

	// when
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.AddItem(ctx, lineItem("p1", 100, 1000), 1)
		}()
	}
	wg.Wait()

	// then
	assert.Equal(t, 50, s.GetItemQuantity("p1"))
	assert.Len(t, s.Items(), 1)
}
