package store

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/MarkLin1511/MedBridge/internal/platform/api"
	"github.com/MarkLin1511/MedBridge/internal/session"
)

// errMessage extracts the human-readable detail for toast surfaces.
func errMessage(err error) string {
	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		return apiErr.Detail
	}
	return err.Error()
}

// DashboardStore loads the /api/dashboard snapshot. A load failure is
// treated as an expired session: the store navigates back to login instead
// of surfacing a toast.
type DashboardStore struct {
	notifier

	client *api.Client
	nav    session.Navigator
	logger zerolog.Logger

	mu      sync.RWMutex
	data    *api.Dashboard
	loading bool
}

func NewDashboardStore(client *api.Client, nav session.Navigator, logger zerolog.Logger) *DashboardStore {
	return &DashboardStore{client: client, nav: nav, logger: logger}
}

// Load fetches the dashboard snapshot.
func (s *DashboardStore) Load(ctx context.Context) {
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

	data, err := s.client.Dashboard(ctx)
	if err != nil {
		s.logger.Debug().Err(err).Msg("dashboard load failed, treating as expired session")
		s.nav.Navigate(session.RouteLogin)
		return
	}

	s.mu.Lock()
	s.data = data
	s.mu.Unlock()
}

// Data returns the last loaded snapshot, or nil.
func (s *DashboardStore) Data() *api.Dashboard {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data
}

// Loading reports whether a fetch is in flight.
func (s *DashboardStore) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}
