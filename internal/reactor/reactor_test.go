package reactor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/abgdnv/gocommerce/cart_service/internal/cart"
	"github.com/abgdnv/gocommerce/cart_service/internal/session"
	"github.com/abgdnv/gocommerce/cart_service/internal/store"
	"github.com/abgdnv/gocommerce/cart_service/pkg/messaging"
	"github.com/abgdnv/gocommerce/cart_service/pkg/messaging/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type recordingPublisher struct {
	mu     sync.Mutex
	events []messaging.Event
}

func (p *recordingPublisher) Publish(_ context.Context, event messaging.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

type failingSource struct{}

func (failingSource) Subscribe(session.Handler) (session.Subscription, error) {
	return nil, errors.New("not connected")
}

func newStore(t *testing.T, items ...cart.LineItem) *store.CartStore {
	t.Helper()
	s, err := store.NewCartStore(context.Background(), store.NewMemoryRecordStore(), discardLogger)
	require.NoError(t, err)
	require.NoError(t, s.SetItems(context.Background(), items))
	return s
}

func event(kind session.EventKind) session.Event {
	return session.Event{Kind: kind, UserID: "u1", OccurredAt: time.Now()}
}

func TestReactor_SignedOutClearsCart(t *testing.T) {
	// given
	ctx := context.Background()
	s := newStore(t,
		cart.LineItem{ProductID: "p1", Quantity: 2, UnitPrice: 100, MaxStock: 5},
		cart.LineItem{ProductID: "p2", Quantity: 1, UnitPrice: 300, MaxStock: 5},
	)
	broker := session.NewBroker()
	pub := &recordingPublisher{}
	r := New(broker, s, pub, discardLogger)
	require.NoError(t, r.Attach(ctx))

	// when
	require.NoError(t, broker.Publish(ctx, event(session.SignedOut)))

	// then
	assert.Empty(t, s.Items())
	assert.Zero(t, s.GetTotalItems())
	assert.Zero(t, s.GetTotalPrice())
	require.Len(t, pub.events, 1)
	cleared, ok := pub.events[0].(events.CartClearedEvent)
	require.True(t, ok)
	assert.Equal(t, 3, cleared.ItemsDropped)
	assert.Equal(t, "signed_out", cleared.Reason)
}

func TestReactor_OtherKindsIgnored(t *testing.T) {
	for _, kind := range []session.EventKind{session.SignedIn, session.TokenRefreshed} {
		t.Run(string(kind), func(t *testing.T) {
			// given
			ctx := context.Background()
			s := newStore(t, cart.LineItem{ProductID: "p1", Quantity: 2, MaxStock: 5})
			broker := session.NewBroker()
			pub := &recordingPublisher{}
			r := New(broker, s, pub, discardLogger)
			require.NoError(t, r.Attach(ctx))

			// when
			require.NoError(t, broker.Publish(ctx, event(kind)))

			// then
			assert.Equal(t, 2, s.GetTotalItems())
			assert.Empty(t, pub.events)
		})
	}
}

func TestReactor_DetachStopsReacting(t *testing.T) {
	// given
	ctx := context.Background()
	s := newStore(t, cart.LineItem{ProductID: "p1", Quantity: 2, MaxStock: 5})
	broker := session.NewBroker()
	r := New(broker, s, nil, discardLogger)
	require.NoError(t, r.Attach(ctx))

	// when
	require.NoError(t, r.Detach())
	require.NoError(t, r.Detach())
	require.NoError(t, broker.Publish(ctx, event(session.SignedOut)))

	// then
	assert.Equal(t, 2, s.GetTotalItems())
}

func TestReactor_Attach(t *testing.T) {
	// given
	ctx := context.Background()
	s := newStore(t)
	attached := New(session.NewBroker(), s, nil, discardLogger)
	broken := New(failingSource{}, s, nil, discardLogger)

	// when
	first := attached.Attach(ctx)
	second := attached.Attach(ctx)
	failed := broken.Attach(ctx)

	// then
	assert.NoError(t, first)
	assert.ErrorIs(t, second, ErrAlreadyAttached)
	assert.Error(t, failed)
	assert.NoError(t, broken.Detach())
}
