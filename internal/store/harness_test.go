package store

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"github.com/MarkLin1511/MedBridge/internal/platform/api"
	"github.com/MarkLin1511/MedBridge/internal/platform/events"
)

// harness wires a store-layer test: a fake API server, a client pointed at
// it, and a toast recorder draining the bus.
type harness struct {
	client *api.Client
	bus    *events.Bus
	toasts <-chan events.Event
}

func newHarness(t *testing.T, handler http.Handler) *harness {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	bus := events.NewBus()
	ch, cancel := bus.Subscribe(events.TopicToast)
	t.Cleanup(cancel)

	client := api.NewClient(api.ClientConfig{
		BaseURL: srv.URL,
		Logger:  zerolog.Nop(),
		Bus:     bus,
	})
	return &harness{client: client, bus: bus, toasts: ch}
}

// drainToasts returns every toast published so far. Publish writes into a
// buffered channel synchronously, so anything toasted before this call is
// already queued.
func (h *harness) drainToasts() []events.Event {
	var out []events.Event
	for {
		select {
		case evt := <-h.toasts:
			out = append(out, evt)
		default:
			return out
		}
	}
}

func nop() zerolog.Logger { return zerolog.Nop() }
