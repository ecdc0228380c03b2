package store

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/MarkLin1511/MedBridge/internal/platform/api"
	"github.com/MarkLin1511/MedBridge/internal/platform/events"
)

// IntegrationsStore manages SMART on FHIR EHR connections and the sync
// history feed. Connections and history load in parallel; Disconnect sits
// behind the two-step confirm.
type IntegrationsStore struct {
	notifier

	client *api.Client
	bus    *events.Bus
	logger zerolog.Logger

	Pending     *PendingMap
	Disconnects Confirm

	mu          sync.RWMutex
	connections []api.FHIRConnection
	history     []api.SyncHistoryItem
	loading     bool
}

func NewIntegrationsStore(client *api.Client, bus *events.Bus, logger zerolog.Logger) *IntegrationsStore {
	return &IntegrationsStore{
		client:  client,
		bus:     bus,
		logger:  logger,
		Pending: NewPendingMap(),
	}
}

// Load fetches connections and sync history in parallel. Either failure
// toasts; the page stays usable with whatever arrived.
func (s *IntegrationsStore) Load(ctx context.Context) {
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

	var (
		wg          sync.WaitGroup
		connections []api.FHIRConnection
		history     []api.SyncHistoryItem
		connErr     error
		histErr     error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		connections, connErr = s.client.FHIRConnections(ctx)
	}()
	go func() {
		defer wg.Done()
		history, histErr = s.client.FHIRSyncHistory(ctx)
	}()
	wg.Wait()

	if connErr != nil {
		s.logger.Warn().Err(connErr).Msg("fhir connections load failed")
		s.bus.ToastErrorf(errMessage(connErr))
	}
	if histErr != nil {
		s.logger.Warn().Err(histErr).Msg("sync history load failed")
		s.bus.ToastErrorf(errMessage(histErr))
	}

	s.mu.Lock()
	if connErr == nil {
		s.connections = connections
	}
	if histErr == nil {
		s.history = history
	}
	s.mu.Unlock()
}

// Connect starts the OAuth handoff for an EHR and returns the server-issued
// authorize URL. The connection itself is created by the redirect callback
// server-side; the caller re-loads afterwards.
func (s *IntegrationsStore) Connect(ctx context.Context, ehr, fhirURL string) (string, error) {
	res, err := s.client.FHIRAuthorize(ctx, ehr, fhirURL)
	if err != nil {
		s.logger.Warn().Err(err).Str("ehr", ehr).Msg("fhir authorize failed")
		s.bus.ToastErrorf(errMessage(err))
		return "", err
	}
	return res.AuthorizeURL, nil
}

// Sync triggers a data pull for one connection.
func (s *IntegrationsStore) Sync(ctx context.Context, id int) {
	s.dispatch(ctx, id, "sync", "Sync started", func() error {
		_, err := s.client.FHIRSync(ctx, id)
		return err
	})
}

// Disconnect removes a connection behind the two-step confirm.
func (s *IntegrationsStore) Disconnect(ctx context.Context, id int) {
	if !s.Disconnects.IsArmed(id) {
		s.Disconnects.Arm(id)
		s.notify()
		return
	}
	s.Disconnects.Disarm()
	s.dispatch(ctx, id, "disconnect", "Connection removed", func() error {
		return s.client.FHIRDisconnect(ctx, id)
	})
}

// CancelDisconnect disarms any pending confirm.
func (s *IntegrationsStore) CancelDisconnect() {
	s.Disconnects.Disarm()
	s.notify()
}

func (s *IntegrationsStore) dispatch(ctx context.Context, id int, op, success string, call func() error) {
	s.Pending.Set(id, op)
	s.notify()
	defer func() {
		s.Pending.Clear(id)
		s.notify()
	}()

	if err := call(); err != nil {
		s.logger.Warn().Err(err).Int("connection_id", id).Str("op", op).Msg("fhir action failed")
		s.bus.ToastErrorf(errMessage(err))
		return
	}
	s.bus.ToastSuccessf(success)
	s.Load(ctx)
}

// Connections returns the current EHR connections.
func (s *IntegrationsStore) Connections() []api.FHIRConnection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connections
}

// History returns the sync history feed.
func (s *IntegrationsStore) History() []api.SyncHistoryItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.history
}

// Loading reports whether a fetch is in flight.
func (s *IntegrationsStore) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}
