package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	carterrors "github.com/abgdnv/gocommerce/cart_service/internal/errors"
)

// Resetter starts a fresh hydration cycle for a new auth session.
type Resetter interface {
	ResetSession()
}

// Manager handles explicit sign-in and sign-out.
type Manager struct {
	holder    *Holder
	auth      AuthChecker
	resetter  Resetter
	publisher EventPublisher
	logger    *slog.Logger
}

func NewManager(holder *Holder, auth AuthChecker, resetter Resetter, publisher EventPublisher, logger *slog.Logger) *Manager {
	return &Manager{
		holder:    holder,
		auth:      auth,
		resetter:  resetter,
		publisher: publisher,
		logger:    logger.With("component", "session_manager"),
	}
}

// SignIn stores token, checks it and starts a fresh hydration cycle.
// A token that doesn't authenticate is forgotten and ErrUnauthenticated returned.
func (m *Manager) SignIn(ctx context.Context, token string) (AuthState, error) {
	m.holder.Set(token)
	state := m.auth.CheckAuth(ctx)
	if !state.IsAuth {
		m.holder.Clear()
		return AuthState{}, carterrors.ErrUnauthenticated
	}
	m.resetter.ResetSession()
	m.logger.InfoContext(ctx, "Signed in", "user_id", state.UserID)
	m.announce(ctx, Event{Kind: SignedIn, UserID: state.UserID, OccurredAt: time.Now().UTC()})
	return state, nil
}

// SignOut forgets the token and announces SIGNED_OUT.
func (m *Manager) SignOut(ctx context.Context) error {
	m.holder.Clear()
	m.logger.InfoContext(ctx, "Signed out")
	if err := m.publisher.Publish(ctx, Event{Kind: SignedOut, OccurredAt: time.Now().UTC()}); err != nil {
		return fmt.Errorf("failed to publish sign-out: %w", err)
	}
	return nil
}

func (m *Manager) announce(ctx context.Context, event Event) {
	if err := m.publisher.Publish(ctx, event); err != nil {
		m.logger.ErrorContext(ctx, "Failed to publish session event", "kind", event.Kind, "error", err)
	}
}
