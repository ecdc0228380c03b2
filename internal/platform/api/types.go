package api

import "encoding/json"

// User is the authenticated account as returned by /api/auth/me.
type User struct {
	ID        int     `json:"id"`
	Email     string  `json:"email"`
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
	Role      string  `json:"role"`
	PatientID string  `json:"patient_id"`
	DOB       *string `json:"dob"`
}

// FullName returns "First Last" for display surfaces.
func (u User) FullName() string {
	return u.FirstName + " " + u.LastName
}

// AuthResponse is returned by login and signup.
type AuthResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	User        User   `json:"user"`
}

// SignupRequest carries the signup form fields.
type SignupRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`
	DOB       string `json:"dob,omitempty"`
}

// StatusResponse is the generic { "status": "ok" } mutation reply.
type StatusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// Patient is the dashboard header block.
type Patient struct {
	Name             string   `json:"name"`
	DOB              *string  `json:"dob"`
	PatientID        string   `json:"patient_id"`
	ConnectedPortals []string `json:"connected_portals"`
	Wearable         *string  `json:"wearable"`
}

// Vital is a single wearable-derived dashboard metric.
type Vital struct {
	Label  string `json:"label"`
	Value  string `json:"value"`
	Trend  string `json:"trend"` // "up", "down", "stable"
	Period string `json:"period"`
}

// LabPoint is one point in a lab trend series.
type LabPoint struct {
	Date   string  `json:"date"`
	Value  float64 `json:"value"`
	Source string  `json:"source"`
}

// LabTrends groups the charted trend series by analyte.
type LabTrends struct {
	Glucose     []LabPoint `json:"glucose"`
	A1c         []LabPoint `json:"a1c"`
	Cholesterol []LabPoint `json:"cholesterol"`
}

// LabResult is a recent lab row. Status drives badge rendering and is one of
// "normal", "high", "low".
type LabResult struct {
	Test   string  `json:"test"`
	LOINC  string  `json:"loinc"`
	Value  float64 `json:"value"`
	Unit   string  `json:"unit"`
	Range  string  `json:"range"`
	Status string  `json:"status"`
	Date   string  `json:"date"`
	Source string  `json:"source"`
}

// AuditEntry is a recent-activity row. When is server-formatted relative time.
type AuditEntry struct {
	ID     int    `json:"id,omitempty"`
	Action string `json:"action"`
	By     string `json:"by"`
	When   string `json:"when"`
	Icon   string `json:"icon"`
}

// Dashboard is the full /api/dashboard snapshot.
type Dashboard struct {
	Patient    Patient      `json:"patient"`
	Vitals     []Vital      `json:"vitals"`
	LabTrends  LabTrends    `json:"lab_trends"`
	RecentLabs []LabResult  `json:"recent_labs"`
	AuditLog   []AuditEntry `json:"audit_log"`
}

// Record is one medical-records timeline item. Type is one of "lab",
// "medication", "imaging", "visit", "wearable".
type Record struct {
	ID          int      `json:"id"`
	Type        string   `json:"type"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Date        string   `json:"date"`
	Source      string   `json:"source"`
	Provider    string   `json:"provider"`
	Flags       []string `json:"flags"`
}

// ConnectedProvider is an active provider-access grant.
type ConnectedProvider struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Specialty   string `json:"specialty"`
	Facility    string `json:"facility"`
	Portal      string `json:"portal"`
	LastAccess  string `json:"lastAccess"`
	AccessLevel string `json:"accessLevel"`
	Status      string `json:"status"`
}

// PendingProvider is a provider request awaiting approval or denial.
type PendingProvider struct {
	ID              int    `json:"id"`
	Name            string `json:"name"`
	Specialty       string `json:"specialty"`
	Facility        string `json:"facility"`
	Portal          string `json:"portal"`
	RequestedAccess string `json:"requestedAccess"`
	RequestDate     string `json:"requestDate"`
}

// Providers is the /api/providers payload.
type Providers struct {
	Connected []ConnectedProvider `json:"connected"`
	Pending   []PendingProvider   `json:"pending"`
}

// Portal is a patient-portal data source. Status is "connected" or
// "available".
type Portal struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Doctors string `json:"doctors"`
	Status  string `json:"status"`
	Color   string `json:"color"`
}

// FHIRConnection is a SMART on FHIR EHR link. Status is "active" or
// "expired".
type FHIRConnection struct {
	ID             int     `json:"id"`
	EHRName        string  `json:"ehr_name"`
	FHIRBaseURL    string  `json:"fhir_base_url"`
	PatientFHIRID  *string `json:"patient_fhir_id"`
	Status         string  `json:"status"`
	TokenExpiresAt *string `json:"token_expires_at"`
	CreatedAt      string  `json:"created_at"`
	LastSyncedAt   *string `json:"last_synced_at"`
}

// AuthorizeResponse carries the OAuth handoff URL for an EHR connection.
type AuthorizeResponse struct {
	AuthorizeURL string `json:"authorize_url"`
	EHR          string `json:"ehr"`
}

// SyncHistoryItem is one row of the integrations sync feed.
type SyncHistoryItem struct {
	ID      int    `json:"id"`
	EHRName string `json:"ehr_name"`
	Action  string `json:"action"`
	Status  string `json:"status"` // "success", "failed", "pending"
	When    string `json:"when"`
}

// Notification is a patient-facing alert row.
type Notification struct {
	ID        int    `json:"id"`
	Type      string `json:"type"`
	Title     string `json:"title"`
	Message   string `json:"message"`
	Read      bool   `json:"read"`
	CreatedAt string `json:"created_at"`
}

// ProfileSettings is the editable profile section.
type ProfileSettings struct {
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
	Email     string  `json:"email"`
	DOB       *string `json:"dob"`
	PatientID string  `json:"patient_id"`
}

// SecuritySettings is the editable security section.
type SecuritySettings struct {
	TwoFactorEnabled bool `json:"two_factor_enabled"`
	SessionTimeout   int  `json:"session_timeout"`
}

// PrivacySettings is the editable privacy / data-sharing section.
type PrivacySettings struct {
	ShareLabs       bool `json:"share_labs"`
	ShareWearable   bool `json:"share_wearable"`
	AllowExport     bool `json:"allow_export"`
	RequireApproval bool `json:"require_approval"`
}

// NotificationSettings holds per-channel delivery preferences
// ("Email + Push", "Push only", "Email", "Off").
type NotificationSettings struct {
	NotifyLabs             string `json:"notify_labs"`
	NotifyProviderRequests string `json:"notify_provider_requests"`
	NotifyWearableSync     string `json:"notify_wearable_sync"`
	NotifyWeeklySummary    string `json:"notify_weekly_summary"`
}

// Settings is the full GET /api/settings payload.
type Settings struct {
	Profile       ProfileSettings      `json:"profile"`
	Security      SecuritySettings     `json:"security"`
	Privacy       PrivacySettings      `json:"privacy"`
	Notifications NotificationSettings `json:"notifications"`
}

// NullableString carries a field that must distinguish "absent" from an
// explicit JSON null in a partial update. A nil *NullableString is omitted
// from the body; a non-nil one with a nil Value marshals as null, which the
// server treats as clearing the field.
type NullableString struct {
	Set   bool
	Value *string
}

func (n NullableString) MarshalJSON() ([]byte, error) {
	if n.Value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(*n.Value)
}

func (n *NullableString) UnmarshalJSON(data []byte) error {
	n.Set = true
	if string(data) == "null" {
		n.Value = nil
		return nil
	}
	return json.Unmarshal(data, &n.Value)
}

// UnmarshalJSON recovers the absent-vs-null distinction for dob: the stdlib
// decoder sets a nil pointer field straight to nil on JSON null, so presence
// has to be read off the raw key set.
func (u *SettingsUpdate) UnmarshalJSON(data []byte) error {
	type plain SettingsUpdate
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*u = SettingsUpdate(p)

	var keys map[string]json.RawMessage
	if err := json.Unmarshal(data, &keys); err != nil {
		return err
	}
	if raw, ok := keys["dob"]; ok {
		n := &NullableString{}
		if err := n.UnmarshalJSON(raw); err != nil {
			return err
		}
		u.DOB = n
	}
	return nil
}

// SettingsUpdate is the flat PUT /api/settings body. Nil fields are left
// unchanged server-side.
type SettingsUpdate struct {
	FirstName              *string         `json:"first_name,omitempty"`
	LastName               *string         `json:"last_name,omitempty"`
	Email                  *string         `json:"email,omitempty"`
	DOB                    *NullableString `json:"dob,omitempty"`
	TwoFactorEnabled       *bool           `json:"two_factor_enabled,omitempty"`
	SessionTimeout         *int            `json:"session_timeout,omitempty"`
	ShareLabs              *bool           `json:"share_labs,omitempty"`
	ShareWearable          *bool           `json:"share_wearable,omitempty"`
	AllowExport            *bool           `json:"allow_export,omitempty"`
	RequireApproval        *bool           `json:"require_approval,omitempty"`
	NotifyLabs             *string         `json:"notify_labs,omitempty"`
	NotifyProviderRequests *string         `json:"notify_provider_requests,omitempty"`
	NotifyWearableSync     *string         `json:"notify_wearable_sync,omitempty"`
	NotifyWeeklySummary    *string         `json:"notify_weekly_summary,omitempty"`
}
