package store

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/MarkLin1511/MedBridge/internal/platform/api"
	"github.com/MarkLin1511/MedBridge/internal/platform/events"
)

// RecordsStore drives the medical-records timeline: a type filter plus a
// debounced free-text search. Raw input updates immediately; the committed
// query changes only after the quiet period, and each change of committed
// query or type filter re-fetches, replacing the result list.
type RecordsStore struct {
	notifier

	client   *api.Client
	bus      *events.Bus
	logger   zerolog.Logger
	debounce *Debouncer

	mu         sync.RWMutex
	input      string
	query      string
	typeFilter string
	records    []api.Record
	loading    bool
	loaded     bool
}

func NewRecordsStore(client *api.Client, bus *events.Bus, logger zerolog.Logger) *RecordsStore {
	return &RecordsStore{
		client:     client,
		bus:        bus,
		logger:     logger,
		debounce:   NewDebouncer(DefaultDebounce),
		typeFilter: "all",
	}
}

// SetInput updates the raw search text immediately and schedules the query
// commit after the quiet period. A later keystroke cancels the pending
// commit, so only the final value fetches.
func (s *RecordsStore) SetInput(ctx context.Context, text string) {
	s.mu.Lock()
	s.input = text
	s.mu.Unlock()
	s.notify()

	s.debounce.Trigger(func() {
		s.mu.Lock()
		if s.query == text {
			s.mu.Unlock()
			return
		}
		s.query = text
		s.mu.Unlock()
		s.Load(ctx)
	})
}

// SetTypeFilter switches the active record-type filter and re-fetches
// immediately. "all" (or empty) means no type constraint.
func (s *RecordsStore) SetTypeFilter(ctx context.Context, t string) {
	s.mu.Lock()
	if s.typeFilter == t {
		s.mu.Unlock()
		return
	}
	s.typeFilter = t
	s.mu.Unlock()
	s.Load(ctx)
}

// Load fetches records for the committed query and type filter, replacing
// the current list. Failure toasts and leaves the page usable.
func (s *RecordsStore) Load(ctx context.Context) {
	s.mu.Lock()
	s.loading = true
	q := api.RecordsQuery{Type: s.typeFilter, Search: s.query}
	s.mu.Unlock()
	s.notify()

	defer func() {
		s.mu.Lock()
		s.loading = false
		s.mu.Unlock()
		s.notify()
	}()

	records, err := s.client.Records(ctx, q)
	if err != nil {
		s.logger.Warn().Err(err).Msg("records load failed")
		s.bus.ToastErrorf(errMessage(err))
		return
	}

	s.mu.Lock()
	s.records = records
	s.loaded = true
	s.mu.Unlock()
}

// Records returns the current result list.
func (s *RecordsStore) Records() []api.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.records
}

// Input returns the raw search text.
func (s *RecordsStore) Input() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.input
}

// Query returns the committed search query.
func (s *RecordsStore) Query() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.query
}

// TypeFilter returns the active record-type filter.
func (s *RecordsStore) TypeFilter() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.typeFilter
}

// Loading reports whether a fetch is in flight.
func (s *RecordsStore) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Empty reports a completed fetch with zero results, distinguishable from
// a fetch that has not finished yet.
func (s *RecordsStore) Empty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded && !s.loading && len(s.records) == 0
}
