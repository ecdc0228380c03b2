package store

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MarkLin1511/MedBridge/internal/platform/api"
)

type recordsServer struct {
	mu      sync.Mutex
	queries []url.Values
	fail    bool
}

func (rs *recordsServer) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rs.mu.Lock()
		rs.queries = append(rs.queries, r.URL.Query())
		fail := rs.fail
		rs.mu.Unlock()

		if fail {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{"detail": "bad filter"})
			return
		}
		search := r.URL.Query().Get("search")
		out := []api.Record{}
		if search != "nohit" {
			out = append(out, api.Record{ID: 1, Type: "lab", Title: "Glucose Panel"})
		}
		json.NewEncoder(w).Encode(out)
	})
}

func (rs *recordsServer) count() int {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return len(rs.queries)
}

func (rs *recordsServer) last() url.Values {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	if len(rs.queries) == 0 {
		return nil
	}
	return rs.queries[len(rs.queries)-1]
}

func newRecordsStore(t *testing.T, rs *recordsServer) (*RecordsStore, *harness) {
	t.Helper()
	h := newHarness(t, rs.handler())
	s := NewRecordsStore(h.client, h.bus, nop())
	s.debounce = NewDebouncer(25 * time.Millisecond)
	return s, h
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition never met")
}

func TestRecordsDebouncedSearchFetchesOnce(t *testing.T) {
	rs := &recordsServer{}
	s, _ := newRecordsStore(t, rs)
	ctx := context.Background()

	for _, q := range []string{"g", "gl", "glu", "glucose"} {
		s.SetInput(ctx, q)
		assert.Equal(t, q, s.Input(), "raw input updates immediately")
	}
	assert.Equal(t, "", s.Query(), "query not committed before quiet period")

	waitFor(t, func() bool { return rs.count() == 1 })
	time.Sleep(50 * time.Millisecond)

	require.Equal(t, 1, rs.count(), "intermediate keystrokes must not fetch")
	assert.Equal(t, "glucose", s.Query())
	assert.Equal(t, "glucose", rs.last().Get("search"))
	assert.Len(t, s.Records(), 1)
}

func TestRecordsClearingSearchRestoresUnfiltered(t *testing.T) {
	rs := &recordsServer{}
	s, _ := newRecordsStore(t, rs)
	ctx := context.Background()

	s.SetInput(ctx, "glucose")
	waitFor(t, func() bool { return rs.count() == 1 })

	s.SetInput(ctx, "")
	waitFor(t, func() bool { return rs.count() == 2 })

	assert.Equal(t, "", s.Query())
	assert.Equal(t, "", rs.last().Get("search"))
}

func TestRecordsTypeFilterFetchesImmediately(t *testing.T) {
	rs := &recordsServer{}
	s, _ := newRecordsStore(t, rs)
	ctx := context.Background()

	s.SetTypeFilter(ctx, "lab")
	require.Equal(t, 1, rs.count(), "type filter change fetches without debounce")
	assert.Equal(t, "lab", rs.last().Get("type"))

	// same filter again is a no-op
	s.SetTypeFilter(ctx, "lab")
	assert.Equal(t, 1, rs.count())

	// "all" is sent as no type constraint
	s.SetTypeFilter(ctx, "all")
	require.Equal(t, 2, rs.count())
	assert.Equal(t, "", rs.last().Get("type"))
}

func TestRecordsEmptyDistinctFromLoading(t *testing.T) {
	rs := &recordsServer{}
	s, _ := newRecordsStore(t, rs)
	ctx := context.Background()

	assert.False(t, s.Empty(), "never-loaded store is not empty, it is unloaded")

	s.SetInput(ctx, "nohit")
	waitFor(t, func() bool { return rs.count() == 1 })

	assert.True(t, s.Empty())
	assert.Len(t, s.Records(), 0)
}

func TestRecordsLoadFailureToastsAndStaysUsable(t *testing.T) {
	rs := &recordsServer{}
	s, h := newRecordsStore(t, rs)
	ctx := context.Background()

	s.Load(ctx)
	require.Len(t, s.Records(), 1)

	rs.mu.Lock()
	rs.fail = true
	rs.mu.Unlock()

	s.SetTypeFilter(ctx, "lab")

	toasts := h.drainToasts()
	require.Len(t, toasts, 1)
	assert.Equal(t, "bad filter", toasts[0].Message)
	assert.Len(t, s.Records(), 1, "previous results survive a failed fetch")
	assert.False(t, s.Loading(), "loading cleared on failure")
}
