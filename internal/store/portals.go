package store

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/MarkLin1511/MedBridge/internal/platform/api"
	"github.com/MarkLin1511/MedBridge/internal/platform/events"
)

// PortalsStore manages patient-portal connections. Connect is a plain
// dispatch; Disconnect sits behind the two-step confirm.
type PortalsStore struct {
	notifier

	client *api.Client
	bus    *events.Bus
	logger zerolog.Logger

	Pending     *PendingMap
	Disconnects Confirm

	mu      sync.RWMutex
	portals []api.Portal
	loading bool
}

func NewPortalsStore(client *api.Client, bus *events.Bus, logger zerolog.Logger) *PortalsStore {
	return &PortalsStore{
		client:  client,
		bus:     bus,
		logger:  logger,
		Pending: NewPendingMap(),
	}
}

// Load fetches the portal list.
func (s *PortalsStore) Load(ctx context.Context) {
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

	portals, err := s.client.Portals(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("portals load failed")
		s.bus.ToastErrorf(errMessage(err))
		return
	}

	s.mu.Lock()
	s.portals = portals
	s.mu.Unlock()
}

// Connect links an available portal.
func (s *PortalsStore) Connect(ctx context.Context, id int) {
	s.dispatch(ctx, id, "connect", "Portal connected", func() error {
		_, err := s.client.ConnectPortal(ctx, id)
		return err
	})
}

// Disconnect unlinks a connected portal behind the two-step confirm: the
// first call arms, the second performs.
func (s *PortalsStore) Disconnect(ctx context.Context, id int) {
	if !s.Disconnects.IsArmed(id) {
		s.Disconnects.Arm(id)
		s.notify()
		return
	}
	s.Disconnects.Disarm()
	s.dispatch(ctx, id, "disconnect", "Portal disconnected", func() error {
		return s.client.DisconnectPortal(ctx, id)
	})
}

// CancelDisconnect disarms any pending confirm.
func (s *PortalsStore) CancelDisconnect() {
	s.Disconnects.Disarm()
	s.notify()
}

func (s *PortalsStore) dispatch(ctx context.Context, id int, op, success string, call func() error) {
	s.Pending.Set(id, op)
	s.notify()
	defer func() {
		s.Pending.Clear(id)
		s.notify()
	}()

	if err := call(); err != nil {
		s.logger.Warn().Err(err).Int("portal_id", id).Str("op", op).Msg("portal action failed")
		s.bus.ToastErrorf(errMessage(err))
		return
	}
	s.bus.ToastSuccessf(success)
	s.Load(ctx)
}

// Portals returns the current list.
func (s *PortalsStore) Portals() []api.Portal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.portals
}

// Loading reports whether a fetch is in flight.
func (s *PortalsStore) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}
