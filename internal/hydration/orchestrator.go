// Package hydration decides when the server cart is pulled into the local one.
package hydration

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/abgdnv/gocommerce/cart_service/internal/cart"
	"github.com/abgdnv/gocommerce/cart_service/internal/remote"
	"github.com/abgdnv/gocommerce/cart_service/internal/session"
	"github.com/abgdnv/gocommerce/cart_service/internal/store"
	"github.com/abgdnv/gocommerce/cart_service/pkg/messaging"
	"github.com/abgdnv/gocommerce/cart_service/pkg/messaging/events"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const publishTimeout = 5 * time.Second

// Store is the part of the cart store a hydration pass drives.
type Store interface {
	BeginHydration() (store.HydrationTicket, bool)
	ApplyHydrationFunc(ctx context.Context, t store.HydrationTicket, build func(current []cart.LineItem) []cart.LineItem, expectRevision *uint64) (bool, error)
	SettleHydration(t store.HydrationTicket) bool
	AbortHydration(t store.HydrationTicket) bool
	Owns(t store.HydrationTicket) bool
	Revision() uint64
	GetTotalItems() int
}

// Orchestrator runs at most one hydration pass per session for one mounted view.
// A pass that resolves after Detach changes nothing.
type Orchestrator struct {
	store     Store
	auth      session.AuthChecker
	loader    remote.CartLoader
	publisher messaging.Publisher
	opts      Options
	logger    *slog.Logger
	passes    metric.Int64Counter

	mu       sync.Mutex
	attached bool
	owning   bool
	ticket   store.HydrationTicket
	cancel   context.CancelFunc
	done     chan struct{}
}

func NewOrchestrator(s Store, auth session.AuthChecker, loader remote.CartLoader, publisher messaging.Publisher, opts Options, logger *slog.Logger) *Orchestrator {
	if publisher == nil {
		publisher = messaging.NoopPublisher{}
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	passes, err := otel.Meter("cart-service").Int64Counter("cart_hydration_passes", metric.WithDescription("Total number of hydration passes by outcome"))
	if err != nil {
		panic(fmt.Sprintf("failed to create cart_hydration_passes counter: %v", err))
	}
	return &Orchestrator{
		store:     s,
		auth:      auth,
		loader:    loader,
		publisher: publisher,
		opts:      opts,
		logger:    logger.With("component", "hydration"),
		passes:    passes,
	}
}

// Attach starts a hydration pass in the background. The returned channel is
// closed when the pass ends or when there is nothing to do because another
// pass already owns the session. Attaching twice returns the first channel.
func (o *Orchestrator) Attach(ctx context.Context) <-chan struct{} {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.attached {
		return o.done
	}
	o.attached = true
	return o.startLocked(ctx)
}

// Retry lets a view that is still attached take over a session whose owning
// view was detached before its pass settled. A view that owns a pass, or that
// is not attached, is left as is.
func (o *Orchestrator) Retry(ctx context.Context) <-chan struct{} {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.attached || o.owning {
		return o.done
	}
	return o.startLocked(ctx)
}

func (o *Orchestrator) startLocked(ctx context.Context) <-chan struct{} {
	o.done = make(chan struct{})
	ticket, ok := o.store.BeginHydration()
	if !ok {
		o.owning = false
		o.logger.DebugContext(ctx, "Hydration already started or settled, skipping")
		o.passes.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", string(OutcomeSkipped))))
		close(o.done)
		return o.done
	}
	o.owning = true
	o.ticket = ticket

	passCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.opts.Timeout)
	o.cancel = cancel
	go o.run(passCtx, cancel, ticket, o.done)
	return o.done
}

// Detach cancels the in-flight pass. If this view owned a pass that has not
// settled, the session goes back to COLD and Detach reports true.
func (o *Orchestrator) Detach() bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.attached {
		return false
	}
	o.attached = false
	if o.cancel != nil {
		o.cancel()
		o.cancel = nil
	}
	if !o.owning {
		return false
	}
	o.owning = false
	return o.store.AbortHydration(o.ticket)
}

func (o *Orchestrator) run(ctx context.Context, cancel context.CancelFunc, ticket store.HydrationTicket, done chan struct{}) {
	defer close(done)
	defer cancel()

	outcome, userID := o.resolve(ctx, ticket)
	o.passes.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", string(outcome))))
	if outcome == OutcomeSuppressed {
		o.logger.DebugContext(ctx, "Stale hydration result suppressed")
		return
	}
	o.logger.InfoContext(ctx, "Hydration settled", "outcome", outcome, "items", o.store.GetTotalItems())
	o.publish(ctx, outcome, userID)
	if o.opts.OnSettled != nil {
		o.opts.OnSettled()
	}
}

// resolve runs one pass. Every store write happens under o.mu after checking
// that this view still owns the pass.
func (o *Orchestrator) resolve(ctx context.Context, ticket store.HydrationTicket) (Outcome, string) {
	state, err := await(ctx, func() session.AuthState { return o.auth.CheckAuth(ctx) })
	if err != nil {
		if o.stale(ticket) {
			return OutcomeSuppressed, ""
		}
		o.logger.WarnContext(ctx, "Auth check did not finish, keeping local cart", "error", err)
		return o.settle(ticket, OutcomeFailed), ""
	}

	if !state.IsAuth {
		return o.applyGuest(ctx, ticket), ""
	}

	revision := o.store.Revision()
	loadCtx := session.WithPrincipal(ctx, state.UserID)
	result, err := await(ctx, func() remote.LoadResult { return o.loader.LoadUserCart(loadCtx) })
	if err != nil {
		result = remote.Failure(err)
	}
	if !result.Success {
		if o.stale(ticket) {
			return OutcomeSuppressed, state.UserID
		}
		o.logger.WarnContext(ctx, "Failed to load server cart, keeping local cart", "error", result.Error)
		return o.settle(ticket, OutcomeFailed), state.UserID
	}
	return o.applyServer(ctx, ticket, result.Items, revision), state.UserID
}

func (o *Orchestrator) applyGuest(ctx context.Context, ticket store.HydrationTicket) Outcome {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.liveLocked(ticket) {
		return OutcomeSuppressed
	}
	if o.opts.Guest == GuestClear {
		if _, err := o.store.ApplyHydrationFunc(ctx, ticket, func([]cart.LineItem) []cart.LineItem { return nil }, nil); err != nil {
			o.logger.WarnContext(ctx, "Failed to clear guest cart", "error", err)
		}
	}
	return o.settleLocked(ticket, OutcomeGuest)
}

func (o *Orchestrator) applyServer(ctx context.Context, ticket store.HydrationTicket, server []cart.LineItem, revision uint64) Outcome {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.liveLocked(ticket) {
		return OutcomeSuppressed
	}

	build := func([]cart.LineItem) []cart.LineItem { return server }
	outcome := OutcomeReplaced
	if o.opts.Login == LoginMerge {
		build = func(local []cart.LineItem) []cart.LineItem { return cart.Merge(server, local) }
		outcome = OutcomeMerged
	}
	var expect *uint64
	if o.opts.Conflict == KeepLocalEdits {
		expect = &revision
	}

	applied, err := o.store.ApplyHydrationFunc(ctx, ticket, build, expect)
	switch {
	case err != nil:
		o.logger.WarnContext(ctx, "Failed to apply server cart, keeping local cart", "error", err)
		outcome = OutcomeFailed
	case !applied:
		o.logger.InfoContext(ctx, "Cart changed while loading, keeping local edits")
		outcome = OutcomeLocalKept
	}
	return o.settleLocked(ticket, outcome)
}

func (o *Orchestrator) settle(ticket store.HydrationTicket, outcome Outcome) Outcome {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.liveLocked(ticket) {
		return OutcomeSuppressed
	}
	return o.settleLocked(ticket, outcome)
}

func (o *Orchestrator) settleLocked(ticket store.HydrationTicket, outcome Outcome) Outcome {
	if !o.store.SettleHydration(ticket) {
		return OutcomeSuppressed
	}
	o.owning = false
	return outcome
}

func (o *Orchestrator) liveLocked(ticket store.HydrationTicket) bool {
	return o.attached && o.owning && o.ticket == ticket && o.store.Owns(ticket)
}

func (o *Orchestrator) stale(ticket store.HydrationTicket) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return !o.liveLocked(ticket)
}

func (o *Orchestrator) publish(ctx context.Context, outcome Outcome, userID string) {
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	event := events.NewCartHydrated(pubCtx, userID, string(outcome), o.store.GetTotalItems())
	if err := o.publisher.Publish(pubCtx, event); err != nil {
		o.logger.ErrorContext(pubCtx, "Failed to publish CartHydratedEvent", "error", err)
	}
}

// await runs fn and waits for it or for ctx, whichever comes first.
func await[T any](ctx context.Context, fn func() T) (T, error) {
	ch := make(chan T, 1)
	go func() { ch <- fn() }()
	select {
	case v := <-ch:
		return v, nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
