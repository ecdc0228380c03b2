package store

import (
	"context"
	"errors"
	"sync"
	"unicode"

	"github.com/rs/zerolog"

	"github.com/MarkLin1511/MedBridge/internal/platform/api"
	"github.com/MarkLin1511/MedBridge/internal/platform/events"
)

// SettingsStore holds the editable settings copy, the baseline snapshot
// taken at load and after every successful save, and the dirty flag derived
// from a field-by-field diff between the two. Password change is a separate
// action, validated locally before any network call.
type SettingsStore struct {
	notifier

	client *api.Client
	bus    *events.Bus
	logger zerolog.Logger

	mu          sync.RWMutex
	current     api.Settings
	baseline    api.Settings
	loading     bool
	loaded      bool
	saving      bool
	deleteArmed bool
}

func NewSettingsStore(client *api.Client, bus *events.Bus, logger zerolog.Logger) *SettingsStore {
	return &SettingsStore{client: client, bus: bus, logger: logger}
}

// Load fetches settings and captures the baseline snapshot.
func (s *SettingsStore) Load(ctx context.Context) {
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

	res, err := s.client.GetSettings(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("settings load failed")
		s.bus.ToastErrorf(errMessage(err))
		return
	}

	s.mu.Lock()
	s.current = *res
	s.baseline = *res
	s.loaded = true
	s.mu.Unlock()
}

// UpdateProfile applies a mutation to the profile section.
func (s *SettingsStore) UpdateProfile(mut func(*api.ProfileSettings)) {
	s.mu.Lock()
	mut(&s.current.Profile)
	s.mu.Unlock()
	s.notify()
}

// UpdateSecurity applies a mutation to the security section.
func (s *SettingsStore) UpdateSecurity(mut func(*api.SecuritySettings)) {
	s.mu.Lock()
	mut(&s.current.Security)
	s.mu.Unlock()
	s.notify()
}

// UpdatePrivacy applies a mutation to the privacy section.
func (s *SettingsStore) UpdatePrivacy(mut func(*api.PrivacySettings)) {
	s.mu.Lock()
	mut(&s.current.Privacy)
	s.mu.Unlock()
	s.notify()
}

// UpdateNotifications applies a mutation to the notification preferences.
func (s *SettingsStore) UpdateNotifications(mut func(*api.NotificationSettings)) {
	s.mu.Lock()
	mut(&s.current.Notifications)
	s.mu.Unlock()
	s.notify()
}

// Current returns the editable settings copy.
func (s *SettingsStore) Current() api.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Dirty reports whether any field diverges from the baseline.
func (s *SettingsStore) Dirty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !settingsEqual(s.current, s.baseline)
}

// Loading reports whether the initial fetch is in flight.
func (s *SettingsStore) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Saving reports whether a save is in flight.
func (s *SettingsStore) Saving() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saving
}

// Save sends only the changed fields. On success the just-saved state
// becomes the new baseline and the dirty flag clears.
func (s *SettingsStore) Save(ctx context.Context) error {
	s.mu.Lock()
	if !s.loaded {
		s.mu.Unlock()
		return errors.New("settings not loaded")
	}
	upd := diffSettings(s.baseline, s.current)
	saved := s.current
	s.saving = true
	s.mu.Unlock()
	s.notify()

	defer func() {
		s.mu.Lock()
		s.saving = false
		s.mu.Unlock()
		s.notify()
	}()

	if err := s.client.UpdateSettings(ctx, upd); err != nil {
		s.logger.Warn().Err(err).Msg("settings save failed")
		s.bus.ToastErrorf(errMessage(err))
		return err
	}

	s.mu.Lock()
	s.baseline = saved
	s.mu.Unlock()
	s.bus.ToastSuccessf("Settings saved")
	return nil
}

// Local password validation failures, surfaced before any network call.
var (
	ErrCurrentPasswordRequired = errors.New("current password is required")
	ErrPasswordTooShort        = errors.New("new password must be at least 8 characters")
	ErrPasswordNeedsUpper      = errors.New("new password must contain an uppercase letter")
	ErrPasswordNeedsLower      = errors.New("new password must contain a lowercase letter")
	ErrPasswordNeedsDigit      = errors.New("new password must contain a digit")
	ErrPasswordMismatch        = errors.New("password confirmation does not match")
)

// ValidatePassword checks the strength rules for a new password.
func ValidatePassword(pw string) error {
	if len(pw) < 8 {
		return ErrPasswordTooShort
	}
	var upper, lower, digit bool
	for _, r := range pw {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !upper {
		return ErrPasswordNeedsUpper
	}
	if !lower {
		return ErrPasswordNeedsLower
	}
	if !digit {
		return ErrPasswordNeedsDigit
	}
	return nil
}

// ChangePassword validates locally first and fails fast before any network
// call; only a fully valid request reaches the API.
func (s *SettingsStore) ChangePassword(ctx context.Context, current, next, confirm string) error {
	if current == "" {
		return ErrCurrentPasswordRequired
	}
	if err := ValidatePassword(next); err != nil {
		return err
	}
	if next != confirm {
		return ErrPasswordMismatch
	}

	if err := s.client.ChangePassword(ctx, current, next); err != nil {
		s.logger.Warn().Err(err).Msg("password change failed")
		s.bus.ToastErrorf(errMessage(err))
		return err
	}
	s.bus.ToastSuccessf("Password updated")
	return nil
}

// RequestDeleteAccount stages the delete intent; there is no backend
// support, so the second step only records that the request was made.
func (s *SettingsStore) RequestDeleteAccount() {
	s.mu.Lock()
	armed := s.deleteArmed
	s.deleteArmed = !armed
	s.mu.Unlock()
	s.notify()

	if armed {
		s.bus.ToastSuccessf("Account deletion request recorded. Our team will contact you.")
	}
}

// CancelDeleteAccount disarms the staged delete intent.
func (s *SettingsStore) CancelDeleteAccount() {
	s.mu.Lock()
	s.deleteArmed = false
	s.mu.Unlock()
	s.notify()
}

// DeleteArmed reports whether the delete intent is staged.
func (s *SettingsStore) DeleteArmed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.deleteArmed
}

func strPtrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func settingsEqual(a, b api.Settings) bool {
	if a.Profile.FirstName != b.Profile.FirstName ||
		a.Profile.LastName != b.Profile.LastName ||
		a.Profile.Email != b.Profile.Email ||
		!strPtrEqual(a.Profile.DOB, b.Profile.DOB) {
		return false
	}
	if a.Security != b.Security || a.Privacy != b.Privacy || a.Notifications != b.Notifications {
		return false
	}
	return true
}

// diffSettings builds the flat update body from only the fields that
// changed against the baseline.
func diffSettings(base, cur api.Settings) api.SettingsUpdate {
	var upd api.SettingsUpdate
	if cur.Profile.FirstName != base.Profile.FirstName {
		upd.FirstName = &cur.Profile.FirstName
	}
	if cur.Profile.LastName != base.Profile.LastName {
		upd.LastName = &cur.Profile.LastName
	}
	if cur.Profile.Email != base.Profile.Email {
		upd.Email = &cur.Profile.Email
	}
	if !strPtrEqual(cur.Profile.DOB, base.Profile.DOB) {
		// A nil Value marshals as an explicit null so the server clears
		// the stored date instead of keeping it.
		upd.DOB = &api.NullableString{Set: true, Value: cur.Profile.DOB}
	}
	if cur.Security.TwoFactorEnabled != base.Security.TwoFactorEnabled {
		upd.TwoFactorEnabled = &cur.Security.TwoFactorEnabled
	}
	if cur.Security.SessionTimeout != base.Security.SessionTimeout {
		upd.SessionTimeout = &cur.Security.SessionTimeout
	}
	if cur.Privacy.ShareLabs != base.Privacy.ShareLabs {
		upd.ShareLabs = &cur.Privacy.ShareLabs
	}
	if cur.Privacy.ShareWearable != base.Privacy.ShareWearable {
		upd.ShareWearable = &cur.Privacy.ShareWearable
	}
	if cur.Privacy.AllowExport != base.Privacy.AllowExport {
		upd.AllowExport = &cur.Privacy.AllowExport
	}
	if cur.Privacy.RequireApproval != base.Privacy.RequireApproval {
		upd.RequireApproval = &cur.Privacy.RequireApproval
	}
	if cur.Notifications.NotifyLabs != base.Notifications.NotifyLabs {
		upd.NotifyLabs = &cur.Notifications.NotifyLabs
	}
	if cur.Notifications.NotifyProviderRequests != base.Notifications.NotifyProviderRequests {
		upd.NotifyProviderRequests = &cur.Notifications.NotifyProviderRequests
	}
	if cur.Notifications.NotifyWearableSync != base.Notifications.NotifyWearableSync {
		upd.NotifyWearableSync = &cur.Notifications.NotifyWearableSync
	}
	if cur.Notifications.NotifyWeeklySummary != base.Notifications.NotifyWeeklySummary {
		upd.NotifyWeeklySummary = &cur.Notifications.NotifyWeeklySummary
	}
	return upd
}
