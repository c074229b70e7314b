package hydration

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Attacher is one mounted view's hydration lifecycle.
// Detach reports whether the view gave up a pass that had not settled.
type Attacher interface {
	Attach(ctx context.Context) <-chan struct{}
	Retry(ctx context.Context) <-chan struct{}
	Detach() bool
}

// Mounts tracks mounted views. Each view owns one Attacher built by the factory.
// When the view owning an unsettled pass is unmounted, one remaining view
// retries, so the session still hydrates without a new mount.
type Mounts struct {
	mu      sync.Mutex
	factory func() Attacher
	views   map[string]Attacher
	closed  bool
	logger  *slog.Logger
}

func NewMounts(factory func() Attacher, logger *slog.Logger) *Mounts {
	return &Mounts{
		factory: factory,
		views:   make(map[string]Attacher),
		logger:  logger.With("component", "mounts"),
	}
}

// Mount registers a new view and attaches its orchestrator.
// The channel closes when the view's hydration pass is over.
// After Close, Mount returns an empty id and a closed channel.
func (m *Mounts) Mount(ctx context.Context) (string, <-chan struct{}) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		done := make(chan struct{})
		close(done)
		return "", done
	}
	id := uuid.NewString()
	view := m.factory()
	m.views[id] = view
	m.logger.DebugContext(ctx, "View mounted", "view_id", id)
	return id, view.Attach(ctx)
}

// Unmount detaches the view. Reports false for unknown ids.
func (m *Mounts) Unmount(id string) bool {
	m.mu.Lock()
	view, ok := m.views[id]
	delete(m.views, id)
	m.mu.Unlock()

	if !ok {
		return false
	}
	released := view.Detach()
	m.logger.Debug("View unmounted", "view_id", id, "released", released)
	if released {
		m.handOff()
	}
	return true
}

func (m *Mounts) handOff() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, view := range m.views {
		m.logger.Debug("Hydration handed off", "view_id", id)
		view.Retry(context.Background())
		return
	}
}

// Len returns the number of mounted views.
func (m *Mounts) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.views)
}

// Close detaches every view. Later mounts are refused.
func (m *Mounts) Close() {
	m.mu.Lock()
	views := m.views
	m.views = make(map[string]Attacher)
	m.closed = true
	m.mu.Unlock()

	for _, view := range views {
		view.Detach()
	}
}
