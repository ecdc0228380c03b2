package store

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MarkLin1511/MedBridge/internal/platform/api"
	"github.com/MarkLin1511/MedBridge/internal/platform/events"
)

type providersServer struct {
	mu      sync.Mutex
	loads   int
	actions []string
	failOn  string
}

func (ps *providersServer) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ps.mu.Lock()
		defer ps.mu.Unlock()

		if r.Method == http.MethodGet {
			ps.loads++
			json.NewEncoder(w).Encode(api.Providers{
				Connected: []api.ConnectedProvider{{ID: 1, Name: "Dr. Sarah Chen"}},
				Pending:   []api.PendingProvider{{ID: 4, Name: "Dr. Maria Lopez"}},
			})
			return
		}

		action := r.URL.Path
		ps.actions = append(ps.actions, action)
		if ps.failOn != "" && action == ps.failOn {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{"detail": "Provider request not found"})
			return
		}
		json.NewEncoder(w).Encode(api.StatusResponse{Status: "approved"})
	})
}

func (ps *providersServer) loadCount() int {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return ps.loads
}

func (ps *providersServer) actionCount() int {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return len(ps.actions)
}

func newProvidersStore(t *testing.T, ps *providersServer) (*ProvidersStore, *harness) {
	t.Helper()
	h := newHarness(t, ps.handler())
	return NewProvidersStore(h.client, h.bus, nop()), h
}

func TestProvidersApproveReloadsFromServer(t *testing.T) {
	ps := &providersServer{}
	s, h := newProvidersStore(t, ps)
	ctx := context.Background()

	s.Load(ctx)
	require.Equal(t, 1, ps.loadCount())

	s.Approve(ctx, 4)

	assert.Equal(t, []string{"/api/providers/4/approve"}, ps.actions)
	assert.Equal(t, 2, ps.loadCount(), "success reloads instead of patching locally")
	assert.False(t, s.Pending.IsPending(4), "pending entry cleared after success")

	toasts := h.drainToasts()
	require.Len(t, toasts, 1)
	assert.Equal(t, events.ToastSuccess, toasts[0].Level)
	assert.Equal(t, "Provider access approved", toasts[0].Message)
}

func TestProvidersDenyFailureClearsPendingAndToasts(t *testing.T) {
	ps := &providersServer{failOn: "/api/providers/4/deny"}
	s, h := newProvidersStore(t, ps)
	ctx := context.Background()

	s.Load(ctx)
	s.Deny(ctx, 4)

	assert.Equal(t, 1, ps.loadCount(), "failure must not reload")
	assert.False(t, s.Pending.IsPending(4), "pending entry cleared on failure too")

	toasts := h.drainToasts()
	require.Len(t, toasts, 1)
	assert.Equal(t, events.ToastError, toasts[0].Level)
	assert.Equal(t, "Provider request not found", toasts[0].Message)
}

func TestProvidersRevokeRequiresTwoSteps(t *testing.T) {
	ps := &providersServer{}
	s, _ := newProvidersStore(t, ps)
	ctx := context.Background()

	s.Revoke(ctx, 1)
	assert.True(t, s.Revokes.IsArmed(1), "first call arms the confirm")
	assert.Equal(t, 0, ps.actionCount(), "no request before confirmation")

	s.Revoke(ctx, 1)
	assert.Equal(t, []string{"/api/providers/1/revoke"}, ps.actions)
	assert.False(t, s.Revokes.IsArmed(1))
}

func TestProvidersRevokeArmDisplacedByOtherID(t *testing.T) {
	ps := &providersServer{}
	s, _ := newProvidersStore(t, ps)
	ctx := context.Background()

	s.Revoke(ctx, 1)
	s.Revoke(ctx, 2)
	assert.False(t, s.Revokes.IsArmed(1), "only one id armed per list")
	assert.True(t, s.Revokes.IsArmed(2))
	assert.Equal(t, 0, ps.actionCount())

	s.CancelRevoke()
	assert.False(t, s.Revokes.IsArmed(2))
}

func TestProvidersConcurrentActionsIndependent(t *testing.T) {
	ps := &providersServer{}
	s, _ := newProvidersStore(t, ps)
	ctx := context.Background()

	var wg sync.WaitGroup
	for _, id := range []int{4, 5, 6} {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			s.Approve(ctx, id)
		}(id)
	}
	wg.Wait()

	assert.Equal(t, 3, ps.actionCount())
	assert.Equal(t, 0, s.Pending.Len(), "all pending entries cleared")
}

func TestProvidersLoadFailureKeepsPageUsable(t *testing.T) {
	fail := true
	var mu sync.Mutex
	h := newHarness(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		f := fail
		mu.Unlock()
		if f {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"detail":"boom"}`)
			return
		}
		json.NewEncoder(w).Encode(api.Providers{})
	}))
	s := NewProvidersStore(h.client, h.bus, nop())

	s.Load(context.Background())
	assert.False(t, s.Loading(), "loading cleared even on failure")

	toasts := h.drainToasts()
	require.Len(t, toasts, 1)
	assert.Equal(t, "boom", toasts[0].Message)

	mu.Lock()
	fail = false
	mu.Unlock()
	s.Load(context.Background())
	assert.False(t, s.Loading())
}
