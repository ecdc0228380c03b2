package store

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/MarkLin1511/MedBridge/internal/platform/api"
	"github.com/MarkLin1511/MedBridge/internal/platform/events"
)

// ProvidersStore manages provider-access grants: the connected list, the
// pending request list, and the approve/deny/revoke dispatchers. Revoke is
// destructive and sits behind the two-step confirm.
type ProvidersStore struct {
	notifier

	client *api.Client
	bus    *events.Bus
	logger zerolog.Logger

	Pending *PendingMap
	Revokes Confirm

	mu        sync.RWMutex
	connected []api.ConnectedProvider
	requests  []api.PendingProvider
	loading   bool
	loaded    bool
}

func NewProvidersStore(client *api.Client, bus *events.Bus, logger zerolog.Logger) *ProvidersStore {
	return &ProvidersStore{
		client:  client,
		bus:     bus,
		logger:  logger,
		Pending: NewPendingMap(),
	}
}

// Load fetches both provider lists. Failure toasts and leaves the page
// usable with whatever was loaded before.
func (s *ProvidersStore) Load(ctx context.Context) {
	s.mu.Lock()
	s.loading = true
	s.mu.Unlock()
	s.notify()

	defer func() {
		s.mu.Lock()
		s.loading = false
		s.mu.Unlock()
		s.notify()
	}()

	res, err := s.client.Providers(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("providers load failed")
		s.bus.ToastErrorf(errMessage(err))
		return
	}

	s.mu.Lock()
	s.connected = res.Connected
	s.requests = res.Pending
	s.loaded = true
	s.mu.Unlock()
}

// Approve grants a pending provider request.
func (s *ProvidersStore) Approve(ctx context.Context, id int) {
	s.dispatch(ctx, id, "approve", "Provider access approved", func() error {
		return s.client.ApproveProvider(ctx, id)
	})
}

// Deny rejects a pending provider request.
func (s *ProvidersStore) Deny(ctx context.Context, id int) {
	s.dispatch(ctx, id, "deny", "Provider request denied", func() error {
		return s.client.DenyProvider(ctx, id)
	})
}

// Revoke removes a connected provider's access. The first call arms the
// confirm for id; the second call within the armed state performs the
// revoke. Arming a different id displaces the previous one.
func (s *ProvidersStore) Revoke(ctx context.Context, id int) {
	if !s.Revokes.IsArmed(id) {
		s.Revokes.Arm(id)
		s.notify()
		return
	}
	s.Revokes.Disarm()
	s.dispatch(ctx, id, "revoke", "Provider access revoked", func() error {
		return s.client.RevokeProvider(ctx, id)
	})
}

// CancelRevoke disarms any pending confirm.
func (s *ProvidersStore) CancelRevoke() {
	s.Revokes.Disarm()
	s.notify()
}

// dispatch runs one mutation: pending entry set before the call, cleared on
// every exit path; success toasts and reloads from the server, never
// patching locally.
func (s *ProvidersStore) dispatch(ctx context.Context, id int, op, success string, call func() error) {
	s.Pending.Set(id, op)
	s.notify()
	defer func() {
		s.Pending.Clear(id)
		s.notify()
	}()

	if err := call(); err != nil {
		s.logger.Warn().Err(err).Int("provider_id", id).Str("op", op).Msg("provider action failed")
		s.bus.ToastErrorf(errMessage(err))
		return
	}
	s.bus.ToastSuccessf(success)
	s.Load(ctx)
}

// Connected returns the active grants.
func (s *ProvidersStore) Connected() []api.ConnectedProvider {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}

// Requests returns the pending provider requests.
func (s *ProvidersStore) Requests() []api.PendingProvider {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.requests
}

// Loading reports whether a fetch is in flight.
func (s *ProvidersStore) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}
