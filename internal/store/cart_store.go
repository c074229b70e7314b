package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/abgdnv/gocommerce/cart_service/internal/cart"
	carterrors "github.com/abgdnv/gocommerce/cart_service/internal/errors"
	"github.com/google/uuid"
)

// Phase is the hydration state of the current session.
type Phase int32

const (
	PhaseCold Phase = iota
	PhaseResolving
	PhaseSettled
)

func (p Phase) String() string {
	switch p {
	case PhaseCold:
		return "COLD"
	case PhaseResolving:
		return "RESOLVING"
	case PhaseSettled:
		return "SETTLED"
	default:
		return fmt.Sprintf("Phase(%d)", int32(p))
	}
}

// Snapshot is a consistent copy of the cart state.
type Snapshot struct {
	Items      []cart.LineItem
	IsHydrated bool
	IsLoading  bool
	Phase      Phase
	Revision   uint64
}

// CartStore is the single mutable source of cart line items.
// Every operation is atomic with respect to the others. Item mutations are
// written to the RecordStore before the in-memory state changes, so a failed
// write leaves the cart as it was.
type CartStore struct {
	mu       sync.RWMutex
	records  RecordStore
	logger   *slog.Logger
	items    []cart.LineItem
	hydrated bool
	loading  bool
	phase    Phase
	ticket   HydrationTicket
	revision uint64
}

// NewCartStore creates the store and reads the persisted record once.
// A missing record starts an empty cart. A record that can't be decoded is
// logged and ignored.
func NewCartStore(ctx context.Context, records RecordStore, logger *slog.Logger) (*CartStore, error) {
	s := &CartStore{
		records: records,
		logger:  logger.With("component", "cart_store"),
		items:   []cart.LineItem{},
	}
	data, err := records.Load(ctx, RecordName)
	switch {
	case errors.Is(err, carterrors.ErrRecordNotFound):
		s.logger.DebugContext(ctx, "No persisted cart found, starting empty")
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("%w: %w", carterrors.ErrLoadCart, err)
	}
	items, err := DecodeRecord(data)
	if err != nil {
		s.logger.WarnContext(ctx, "Persisted cart is unreadable, starting empty", "error", err)
		return s, nil
	}
	s.items = items
	s.logger.InfoContext(ctx, "Persisted cart restored", "items", len(items))
	return s, nil
}

// commit persists next and swaps it in. Caller holds the write lock.
func (s *CartStore) commit(ctx context.Context, next []cart.LineItem) error {
	data, err := EncodeRecord(next)
	if err != nil {
		return fmt.Errorf("%w: %w", carterrors.ErrPersistCart, err)
	}
	if err := s.records.Save(ctx, RecordName, data); err != nil {
		s.logger.ErrorContext(ctx, "Failed to persist cart", "error", err)
		return fmt.Errorf("%w: %w", carterrors.ErrPersistCart, err)
	}
	s.items = next
	s.revision++
	return nil
}

// AddItem increments the row with the candidate's product id by quantity,
// or appends the candidate with that quantity. A merged row takes the
// candidate's catalogue fields, MaxStock included, and keeps its ItemID.
// No stock check is done here.
func (s *CartStore) AddItem(ctx context.Context, candidate cart.LineItem, quantity int) error {
	if quantity < 1 {
		return carterrors.ErrInvalidQuantity
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	next := cart.Clone(s.items)
	if idx := cart.Find(next, candidate.ProductID); idx >= 0 {
		row := cart.Clone([]cart.LineItem{candidate})[0]
		row.ItemID = next[idx].ItemID
		row.Quantity = next[idx].Quantity + quantity
		next[idx] = row
	} else {
		row := cart.Clone([]cart.LineItem{candidate})[0]
		if row.ItemID == "" {
			row.ItemID = uuid.NewString()
		}
		row.Quantity = quantity
		next = append(next, row)
	}
	return s.commit(ctx, next)
}

// RemoveItem deletes the row with productID. Absent rows are a no-op.
func (s *CartStore) RemoveItem(ctx context.Context, productID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeLocked(ctx, productID)
}

func (s *CartStore) removeLocked(ctx context.Context, productID string) error {
	idx := cart.Find(s.items, productID)
	if idx < 0 {
		return nil
	}
	next := make([]cart.LineItem, 0, len(s.items)-1)
	next = append(next, cart.Clone(s.items[:idx])...)
	next = append(next, cart.Clone(s.items[idx+1:])...)
	return s.commit(ctx, next)
}

// UpdateQuantity sets the row's quantity to exactly quantity.
// A quantity <= 0 removes the row. Absent rows are a no-op.
func (s *CartStore) UpdateQuantity(ctx context.Context, productID string, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if quantity <= 0 {
		return s.removeLocked(ctx, productID)
	}
	idx := cart.Find(s.items, productID)
	if idx < 0 {
		return nil
	}
	next := cart.Clone(s.items)
	next[idx].Quantity = quantity
	return s.commit(ctx, next)
}

// SetItems replaces the whole collection.
func (s *CartStore) SetItems(ctx context.Context, items []cart.LineItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commit(ctx, cart.Normalize(items))
}

// SetItemsIfRevision replaces the collection only if no item mutation happened
// since revision was read. Reports whether the replace was applied.
func (s *CartStore) SetItemsIfRevision(ctx context.Context, items []cart.LineItem, revision uint64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.revision != revision {
		return false, nil
	}
	if err := s.commit(ctx, cart.Normalize(items)); err != nil {
		return false, err
	}
	return true, nil
}

// ClearCart empties the collection. Idempotent.
func (s *CartStore) ClearCart(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.items) == 0 {
		return nil
	}
	return s.commit(ctx, []cart.LineItem{})
}

// GetItemQuantity returns the quantity for productID, or 0 if absent.
func (s *CartStore) GetItemQuantity(productID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if idx := cart.Find(s.items, productID); idx >= 0 {
		return s.items[idx].Quantity
	}
	return 0
}

func (s *CartStore) GetTotalItems() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cart.TotalItems(s.items)
}

func (s *CartStore) GetTotalPrice() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cart.TotalPrice(s.items)
}

// Items returns a copy of the current rows.
func (s *CartStore) Items() []cart.LineItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cart.Clone(s.items)
}

func (s *CartStore) Revision() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revision
}

func (s *CartStore) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Items:      cart.Clone(s.items),
		IsHydrated: s.hydrated,
		IsLoading:  s.loading,
		Phase:      s.phase,
		Revision:   s.revision,
	}
}

func (s *CartStore) SetLoading(loading bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = loading
}

// SetHydrated sets the hydrated flag. Once true it stays true for the session.
func (s *CartStore) SetHydrated(hydrated bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hydrated && !hydrated {
		return
	}
	s.hydrated = hydrated
}

func (s *CartStore) IsLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

func (s *CartStore) IsHydrated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hydrated
}

func (s *CartStore) Phase() Phase {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.phase
}

// HydrationTicket identifies one hydration pass within one session.
type HydrationTicket uint64

// BeginHydration moves COLD to RESOLVING and sets loading.
// Returns false if the session is already resolving or settled.
func (s *CartStore) BeginHydration() (HydrationTicket, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseCold {
		return 0, false
	}
	s.ticket++
	s.phase = PhaseResolving
	s.loading = true
	return s.ticket, true
}

func (s *CartStore) currentLocked(t HydrationTicket) bool {
	return s.phase == PhaseResolving && s.ticket == t
}

// ApplyHydration replaces the items on behalf of the pass holding t.
// When expectRevision is set, the replace also requires that no item
// mutation happened since that revision. Reports whether items were replaced.
func (s *CartStore) ApplyHydration(ctx context.Context, t HydrationTicket, items []cart.LineItem, expectRevision *uint64) (bool, error) {
	return s.ApplyHydrationFunc(ctx, t, func([]cart.LineItem) []cart.LineItem { return items }, expectRevision)
}

// ApplyHydrationFunc is ApplyHydration with the next items built from a copy
// of the current ones while the store is locked.
func (s *CartStore) ApplyHydrationFunc(ctx context.Context, t HydrationTicket, build func(current []cart.LineItem) []cart.LineItem, expectRevision *uint64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.currentLocked(t) {
		return false, nil
	}
	if expectRevision != nil && *expectRevision != s.revision {
		return false, nil
	}
	if err := s.commit(ctx, cart.Normalize(build(cart.Clone(s.items)))); err != nil {
		return false, err
	}
	return true, nil
}

// Owns reports whether t still holds the RESOLVING phase.
func (s *CartStore) Owns(t HydrationTicket) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentLocked(t)
}

// SettleHydration marks the session settled and hydrated if t still owns it.
func (s *CartStore) SettleHydration(t HydrationTicket) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.currentLocked(t) {
		return false
	}
	s.phase = PhaseSettled
	s.loading = false
	s.hydrated = true
	return true
}

// AbortHydration returns the pass's session from RESOLVING to COLD without
// touching items. Reports false when t no longer owns the session.
func (s *CartStore) AbortHydration(t HydrationTicket) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.currentLocked(t) {
		return false
	}
	s.phase = PhaseCold
	s.loading = false
	return true
}

// ResetSession starts a fresh hydration cycle for a new auth session.
// Any pass still resolving loses its ticket.
func (s *CartStore) ResetSession() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ticket++
	s.phase = PhaseCold
	s.hydrated = false
	s.loading = false
}
