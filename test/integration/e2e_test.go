package integration

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/MarkLin1511/MedBridge/internal/platform/api"
	"github.com/MarkLin1511/MedBridge/internal/platform/events"
	"github.com/MarkLin1511/MedBridge/internal/sandbox"
	"github.com/MarkLin1511/MedBridge/internal/session"
	"github.com/MarkLin1511/MedBridge/internal/store"
)

type env struct {
	client *api.Client
	bus    *events.Bus
	sess   *session.Store

	mu     sync.Mutex
	routes []string
}

func (e *env) lastRoute() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.routes) == 0 {
		return ""
	}
	return e.routes[len(e.routes)-1]
}

func newEnv(t *testing.T) *env {
	t.Helper()

	srv, err := sandbox.New(sandbox.Config{JWTSecret: "integration-secret", Logger: zerolog.Nop()})
	if err != nil {
		t.Fatalf("sandbox.New: %v", err)
	}
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	bus := events.NewBus()
	client := api.NewClient(api.ClientConfig{BaseURL: ts.URL, Logger: zerolog.Nop(), Bus: bus})
	tokens := session.NewFileTokenStore(filepath.Join(t.TempDir(), "token"))

	e := &env{client: client, bus: bus}
	nav := session.NavigatorFunc(func(route string) {
		e.mu.Lock()
		e.routes = append(e.routes, route)
		e.mu.Unlock()
	})
	e.sess = session.NewStore(client, tokens, nav, bus, zerolog.Nop())
	t.Cleanup(e.sess.Close)
	return e
}

func (e *env) login(t *testing.T) {
	t.Helper()
	if err := e.sess.Login(context.Background(), sandbox.DemoEmail, sandbox.DemoPassword); err != nil {
		t.Fatalf("login: %v", err)
	}
}

func TestLoginToDashboard(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	e.login(t)
	if e.sess.State() != session.Authenticated {
		t.Fatalf("state = %v", e.sess.State())
	}
	if got := e.lastRoute(); got != session.RouteDashboard {
		t.Fatalf("last route = %q, want dashboard", got)
	}
	if got := e.sess.User().FullName(); got != "Marcus Johnson" {
		t.Fatalf("user = %q", got)
	}

	d, err := e.client.Dashboard(ctx)
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if d.Patient.PatientID != sandbox.DemoPatientID {
		t.Errorf("patient_id = %q", d.Patient.PatientID)
	}
	if len(d.RecentLabs) == 0 || len(d.Vitals) == 0 {
		t.Errorf("dashboard missing data: %d labs, %d vitals", len(d.RecentLabs), len(d.Vitals))
	}
}

func TestTokenSurvivesRestart(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.login(t)
	token := e.sess.Token()

	// A second store sharing the token file restores the session without
	// logging in again, as a fresh process would.
	tokens := session.NewFileTokenStore(filepath.Join(t.TempDir(), "token"))
	if err := tokens.Write(token); err != nil {
		t.Fatalf("write token: %v", err)
	}
	nav := session.NavigatorFunc(func(string) {})
	sess2 := session.NewStore(e.client, tokens, nav, e.bus, zerolog.Nop())
	defer sess2.Close()

	sess2.Restore(ctx)
	if sess2.State() != session.Authenticated {
		t.Fatalf("restored state = %v", sess2.State())
	}
	if sess2.User().Email != sandbox.DemoEmail {
		t.Errorf("restored user = %q", sess2.User().Email)
	}
}

func TestProviderApprovalRoundTrip(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.login(t)

	toasts, unsub := e.bus.Subscribe(events.TopicToast)
	defer unsub()

	ps := store.NewProvidersStore(e.client, e.bus, zerolog.Nop())
	ps.Load(ctx)
	if len(ps.Requests()) == 0 {
		t.Fatal("expected a pending request from the seed")
	}
	id := ps.Requests()[0].ID

	ps.Approve(ctx, id)

	select {
	case evt := <-toasts:
		if evt.Level != events.ToastSuccess {
			t.Errorf("toast = %+v", evt)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no toast after approve")
	}

	found := false
	for _, c := range ps.Connected() {
		if c.ID == id {
			found = true
		}
	}
	if !found {
		t.Error("approved provider not in connected list")
	}

	ns := store.NewNotificationsStore(e.client, e.bus, zerolog.Nop())
	ns.Load(ctx)
	if len(ns.Items()) == 0 || ns.Items()[0].Title != "Provider approved" {
		t.Errorf("newest notification = %+v", ns.Items())
	}
}

func TestSearchDebounceAgainstServer(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.login(t)

	rs := store.NewRecordsStore(e.client, e.bus, zerolog.Nop())
	rs.Load(ctx)
	total := len(rs.Records())
	if total == 0 {
		t.Fatal("expected seeded records")
	}

	rs.SetInput(ctx, "m")
	rs.SetInput(ctx, "me")
	rs.SetInput(ctx, "metformin")

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		recs := rs.Records()
		if len(recs) == 1 && strings.Contains(recs[0].Title, "Metformin") {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("search never settled; have %d records", len(rs.Records()))
}

func TestSettingsSaveRoundTrip(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.login(t)

	ss := store.NewSettingsStore(e.client, e.bus, zerolog.Nop())
	ss.Load(ctx)
	if ss.Dirty() {
		t.Fatal("freshly loaded settings are dirty")
	}

	ss.UpdatePrivacy(func(p *api.PrivacySettings) { p.ShareWearable = false })
	if !ss.Dirty() {
		t.Fatal("expected dirty after edit")
	}
	if err := ss.Save(ctx); err != nil {
		t.Fatalf("save: %v", err)
	}
	if ss.Dirty() {
		t.Error("still dirty after save")
	}

	fresh, err := e.client.GetSettings(ctx)
	if err != nil {
		t.Fatalf("get settings: %v", err)
	}
	if fresh.Privacy.ShareWearable {
		t.Error("server did not persist the change")
	}
}

func TestExportWritesBundle(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.login(t)

	dir := t.TempDir()
	exp := store.NewExporter(e.client, e.bus, zerolog.Nop(), dir)
	path, err := exp.Export(ctx)
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	var bundle struct {
		ResourceType string            `json:"resourceType"`
		Entry        []json.RawMessage `json:"entry"`
	}
	if err := json.Unmarshal(raw, &bundle); err != nil {
		t.Fatalf("parse export: %v", err)
	}
	if bundle.ResourceType != "Bundle" {
		t.Errorf("resourceType = %q", bundle.ResourceType)
	}
	if len(bundle.Entry) < 2 {
		t.Errorf("entries = %d", len(bundle.Entry))
	}
}

func TestExpiredTokenForcesLogin(t *testing.T) {
	e := newEnv(t)
	e.login(t)

	// Corrupt the installed token so the next authed call 401s.
	e.client.SetToken("garbage")
	_, err := e.client.Dashboard(context.Background())
	if err == nil {
		t.Fatal("expected an auth error")
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if e.sess.State() == session.Unauthenticated {
			if got := e.lastRoute(); got != session.RouteLogin {
				t.Fatalf("last route = %q, want login", got)
			}
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("session never expired after 401")
}
