// Package session owns the client-side auth lifecycle: exchanging
// credentials for a bearer token, restoring a durable token on startup,
// logging out, and reacting to the session-expired broadcast. Exactly one
// session is active at a time.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/MarkLin1511/MedBridge/internal/platform/api"
	"github.com/MarkLin1511/MedBridge/internal/platform/events"
)

// State is the session lifecycle phase.
type State int

const (
	Unauthenticated State = iota
	Authenticating
	Authenticated
)

func (s State) String() string {
	switch s {
	case Authenticating:
		return "authenticating"
	case Authenticated:
		return "authenticated"
	default:
		return "unauthenticated"
	}
}

// Routes the store navigates to on auth transitions.
const (
	RouteDashboard = "/dashboard"
	RouteLogin     = "/login"
)

// Navigator receives route changes; the CLI prints them, tests record them.
type Navigator interface {
	Navigate(route string)
}

// NavigatorFunc adapts a func to Navigator.
type NavigatorFunc func(route string)

func (f NavigatorFunc) Navigate(route string) { f(route) }

// Store is the auth session store.
type Store struct {
	client *api.Client
	tokens TokenStore
	nav    Navigator
	logger zerolog.Logger

	mu        sync.RWMutex
	state     State
	user      *api.User
	token     string
	loading   bool
	listeners map[int]func()
	nextID    int

	unsubscribe func()
}

// NewStore creates a session store and subscribes it to the auth-expired
// broadcast. Loading is true until Restore settles.
func NewStore(client *api.Client, tokens TokenStore, nav Navigator, bus *events.Bus, logger zerolog.Logger) *Store {
	s := &Store{
		client:    client,
		tokens:    tokens,
		nav:       nav,
		logger:    logger,
		state:     Unauthenticated,
		loading:   true,
		listeners: make(map[int]func()),
	}

	if bus != nil {
		ch, cancel := bus.Subscribe(events.TopicAuthExpired)
		s.unsubscribe = cancel
		go func() {
			for range ch {
				s.expire()
			}
		}()
	}
	return s
}

// Close detaches the store from the event bus.
func (s *Store) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
}

// Subscribe registers a change listener and returns its removal func.
func (s *Store) Subscribe(fn func()) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *Store) notify() {
	s.mu.RLock()
	fns := make([]func(), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.RUnlock()
	for _, fn := range fns {
		fn()
	}
}

// State returns the current lifecycle phase.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// User returns the current account, or nil when unauthenticated.
func (s *Store) User() *api.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

// Loading is true while the initial token restoration is in flight, so
// dependent surfaces can avoid a premature redirect to login.
func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Token returns the active bearer token.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Restore loads a durable token, if any, and validates it against the API.
// An expired or invalid token is cleared silently: restoration failure never
// propagates past this boundary. Loading is false once Restore returns.
func (s *Store) Restore(ctx context.Context) {
	defer func() {
		s.mu.Lock()
		s.loading = false
		s.mu.Unlock()
		s.notify()
	}()

	token, err := s.tokens.Read()
	if err != nil {
		s.logger.Warn().Err(err).Msg("could not read stored token")
		return
	}
	if token == "" {
		return
	}

	s.client.SetToken(token)
	user, err := s.client.Me(ctx)
	if err != nil {
		s.logger.Debug().Err(err).Msg("stored token rejected, clearing")
		s.client.ClearToken()
		if err := s.tokens.Clear(); err != nil {
			s.logger.Warn().Err(err).Msg("could not clear stored token")
		}
		return
	}

	s.mu.Lock()
	s.state = Authenticated
	s.token = token
	s.user = user
	s.mu.Unlock()
}

// Login exchanges credentials for a session and navigates to the dashboard.
func (s *Store) Login(ctx context.Context, email, password string) error {
	s.setState(Authenticating)
	res, err := s.client.Login(ctx, email, password)
	if err != nil {
		s.setState(Unauthenticated)
		return err
	}
	s.establish(res)
	return nil
}

// Signup registers an account; on success the returned session is installed
// exactly as for Login.
func (s *Store) Signup(ctx context.Context, req api.SignupRequest) error {
	s.setState(Authenticating)
	res, err := s.client.Signup(ctx, req)
	if err != nil {
		s.setState(Unauthenticated)
		return err
	}
	s.establish(res)
	return nil
}

// Logout clears the in-memory and durable token, resets the client, and
// navigates to login.
func (s *Store) Logout() {
	s.clear()
	s.nav.Navigate(RouteLogin)
	s.notify()
}

// expire handles the auth-expired broadcast: same teardown as Logout, but
// only when a session was actually active.
func (s *Store) expire() {
	s.mu.Lock()
	active := s.state == Authenticated
	s.mu.Unlock()
	if !active {
		return
	}
	s.logger.Info().Msg("session expired")
	s.clear()
	s.nav.Navigate(RouteLogin)
	s.notify()
}

func (s *Store) establish(res *api.AuthResponse) {
	s.client.SetToken(res.AccessToken)
	if err := s.tokens.Write(res.AccessToken); err != nil {
		s.logger.Warn().Err(err).Msg("could not persist token")
	}

	s.mu.Lock()
	s.state = Authenticated
	s.token = res.AccessToken
	user := res.User
	s.user = &user
	s.mu.Unlock()

	s.nav.Navigate(RouteDashboard)
	s.notify()
}

func (s *Store) clear() {
	s.client.ClearToken()
	if err := s.tokens.Clear(); err != nil {
		s.logger.Warn().Err(err).Msg("could not clear stored token")
	}
	s.mu.Lock()
	s.state = Unauthenticated
	s.token = ""
	s.user = nil
	s.mu.Unlock()
}

func (s *Store) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
	s.notify()
}

// Claims is the displayable slice of the bearer token payload.
type Claims struct {
	Subject   string
	ExpiresAt time.Time
}

// ParseClaims decodes the token payload without verifying the signature;
// verification is the server's job, this is display-only.
func ParseClaims(token string) (*Claims, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	out := &Claims{}
	if sub, err := claims.GetSubject(); err == nil {
		out.Subject = sub
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		out.ExpiresAt = exp.Time
	}
	return out, nil
}
