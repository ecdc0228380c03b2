// Package sandbox is the in-memory demo API server. It serves the same
// JSON-over-HTTP surface the hosted backend does, seeded with a realistic
// demo patient, so the client and CLI can run end-to-end with no external
// service. Nothing is persisted; restarting resets to the seed.
package sandbox

import (
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// account is a registered user plus everything the demo keeps per patient.
type account struct {
	ID             int
	Email          string
	FirstName      string
	LastName       string
	Role           string
	PatientID      string
	DOB            *string
	HashedPassword []byte

	TwoFactorEnabled bool
	SessionTimeout   int
	ShareLabs        bool
	ShareWearable    bool
	AllowExport      bool
	RequireApproval  bool

	NotifyLabs             string
	NotifyProviderRequests string
	NotifyWearableSync     string
	NotifyWeeklySummary    string
}

type labObservation struct {
	TestName  string
	LOINC     string
	Value     float64
	Unit      string
	RefRange  string
	Status    string
	Source    string
	Timestamp time.Time
}

type medicalRecord struct {
	ID          int
	Type        string
	Title       string
	Description string
	Date        string
	Source      string
	Provider    string
	Flags       []string
}

type wearableMetric struct {
	Metric string
	Value  string
	Trend  string
	Period string
	Source string
}

type providerAccess struct {
	ID              int
	Name            string
	Specialty       string
	Facility        string
	Portal          string
	AccessLevel     string
	Status          string // "active", "pending", "revoked"
	LastAccess      string
	RequestedAccess string
	RequestDate     string
}

type portalConnection struct {
	ID      int
	Name    string
	Doctors string
	Status  string // "connected", "available"
	Color   string
}

type fhirConnection struct {
	ID             int
	EHRName        string
	FHIRBaseURL    string
	PatientFHIRID  *string
	Status         string // "active", "expired"
	TokenExpiresAt *time.Time
	CreatedAt      time.Time
	LastSyncedAt   *time.Time
}

type syncEvent struct {
	ID      int
	EHRName string
	Action  string
	Status  string
	At      time.Time
}

type auditEntry struct {
	ID        int
	Action    string
	By        string
	Icon      string
	CreatedAt time.Time
}

type notification struct {
	ID        int
	Type      string
	Title     string
	Message   string
	Read      bool
	CreatedAt time.Time
}

// patientData is everything keyed to one patient id.
type patientData struct {
	Labs          []labObservation
	Records       []medicalRecord
	Wearables     []wearableMetric
	Providers     []providerAccess
	Portals       []portalConnection
	FHIRConns     []fhirConnection
	SyncEvents    []syncEvent
	Audit         []auditEntry
	Notifications []notification
}

// state is the whole in-memory world behind the sandbox, guarded by one
// mutex. Volumes are demo-sized; contention is not a concern.
type state struct {
	mu       sync.Mutex
	accounts map[string]*account // keyed by lowercase email
	patients map[string]*patientData
	nextID   int
	now      func() time.Time
}

func newState() *state {
	return &state{
		accounts: make(map[string]*account),
		patients: make(map[string]*patientData),
		nextID:   1,
		now:      time.Now,
	}
}

func (s *state) nextIDLocked() int {
	id := s.nextID
	s.nextID++
	return id
}

func (s *state) findAccount(email string) *account {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accounts[strings.ToLower(email)]
}

func (s *state) data(patientID string) *patientData {
	if d, ok := s.patients[patientID]; ok {
		return d
	}
	d := &patientData{}
	s.patients[patientID] = d
	return d
}

func (s *state) addAudit(patientID, action, by, icon string) {
	d := s.data(patientID)
	d.Audit = append(d.Audit, auditEntry{
		ID:        s.nextIDLocked(),
		Action:    action,
		By:        by,
		Icon:      icon,
		CreatedAt: s.now(),
	})
}

func (s *state) addNotification(patientID, typ, title, message string) {
	d := s.data(patientID)
	d.Notifications = append(d.Notifications, notification{
		ID:        s.nextIDLocked(),
		Type:      typ,
		Title:     title,
		Message:   message,
		CreatedAt: s.now(),
	})
}

func (s *state) addSyncEvent(patientID, ehr, action, status string) {
	d := s.data(patientID)
	d.SyncEvents = append(d.SyncEvents, syncEvent{
		ID:      s.nextIDLocked(),
		EHRName: ehr,
		Action:  action,
		Status:  status,
		At:      s.now(),
	})
}

func hashPassword(pw string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
}

func checkPassword(hashed []byte, pw string) bool {
	return bcrypt.CompareHashAndPassword(hashed, []byte(pw)) == nil
}

// sortAuditDesc returns a copy sorted newest first, stable on equal
// timestamps.
func sortAuditDesc(entries []auditEntry) []auditEntry {
	out := make([]auditEntry, len(entries))
	copy(out, entries)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func sortNotificationsDesc(items []notification) []notification {
	out := make([]notification, len(items))
	copy(out, items)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// relativeTime renders timestamps the way the dashboard shows them.
func relativeTime(t, now time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return plural(int(d.Minutes()), "minute")
	case d < 24*time.Hour:
		return plural(int(d.Hours()), "hour")
	case d < 7*24*time.Hour:
		return plural(int(d.Hours()/24), "day")
	default:
		return plural(int(d.Hours()/(24*7)), "week")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit + " ago"
	}
	return strconv.Itoa(n) + " " + unit + "s ago"
}
