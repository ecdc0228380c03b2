package store

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/MarkLin1511/MedBridge/internal/platform/api"
	"github.com/MarkLin1511/MedBridge/internal/platform/events"
)

// NotificationsStore manages the alert feed and the read / read-all
// dispatchers.
type NotificationsStore struct {
	notifier

	client *api.Client
	bus    *events.Bus
	logger zerolog.Logger

	Pending *PendingMap

	mu      sync.RWMutex
	items   []api.Notification
	loading bool
}

func NewNotificationsStore(client *api.Client, bus *events.Bus, logger zerolog.Logger) *NotificationsStore {
	return &NotificationsStore{
		client:  client,
		bus:     bus,
		logger:  logger,
		Pending: NewPendingMap(),
	}
}

// Load fetches the notification feed.
func (s *NotificationsStore) Load(ctx context.Context) {
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

	items, err := s.client.Notifications(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("notifications load failed")
		s.bus.ToastErrorf(errMessage(err))
		return
	}

	s.mu.Lock()
	s.items = items
	s.mu.Unlock()
}

// MarkRead marks one notification read and reloads the feed.
func (s *NotificationsStore) MarkRead(ctx context.Context, id int) {
	s.Pending.Set(id, "read")
	s.notify()
	defer func() {
		s.Pending.Clear(id)
		s.notify()
	}()

	if err := s.client.MarkNotificationRead(ctx, id); err != nil {
		s.logger.Warn().Err(err).Int("notification_id", id).Msg("mark read failed")
		s.bus.ToastErrorf(errMessage(err))
		return
	}
	s.Load(ctx)
}

// MarkAllRead marks the whole feed read. Idempotent server-side.
func (s *NotificationsStore) MarkAllRead(ctx context.Context) {
	if err := s.client.MarkAllNotificationsRead(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("mark all read failed")
		s.bus.ToastErrorf(errMessage(err))
		return
	}
	s.bus.ToastSuccessf("All notifications marked read")
	s.Load(ctx)
}

// Items returns the current feed.
func (s *NotificationsStore) Items() []api.Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.items
}

// UnreadCount returns the number of unread notifications.
func (s *NotificationsStore) UnreadCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, it := range s.items {
		if !it.Read {
			n++
		}
	}
	return n
}

// Loading reports whether a fetch is in flight.
func (s *NotificationsStore) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}
