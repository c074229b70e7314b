// Package session covers who the current user is and how session changes are announced.
package session

import (
	"context"
	"log/slog"
	"sync"
)

// AuthState is the result of an auth check. UserID is empty for guests.
type AuthState struct {
	IsAuth bool   `json:"is_auth"`
	UserID string `json:"user_id,omitempty"`
}

// AuthChecker resolves the current auth state.
// Implementations never fail: any ambiguity resolves to a guest.
type AuthChecker interface {
	CheckAuth(ctx context.Context) AuthState
}

// TokenSource provides the bearer token of the signed-in user.
type TokenSource interface {
	Token() (string, bool)
}

// Holder keeps the bearer token for the current session.
type Holder struct {
	mu    sync.RWMutex
	token string
}

func NewHolder() *Holder {
	return &Holder{}
}

func (h *Holder) Set(token string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.token = token
}

func (h *Holder) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.token = ""
}

func (h *Holder) Token() (string, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.token, h.token != ""
}

type principalKey struct{}

// WithPrincipal stores the authenticated user id in the context.
func WithPrincipal(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, principalKey{}, userID)
}

// PrincipalAttr is a log extractor adding the user id of a resolving hydration pass.
func PrincipalAttr(ctx context.Context) (slog.Attr, bool) {
	userID, ok := PrincipalFrom(ctx)
	if !ok {
		return slog.Attr{}, false
	}
	return slog.String("user_id", userID), true
}

// PrincipalFrom returns the user id stored by WithPrincipal.
func PrincipalFrom(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(principalKey{}).(string)
	return userID, ok && userID != ""
}
