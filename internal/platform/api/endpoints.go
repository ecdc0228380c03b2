package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// -- Auth --

// Signup registers a new account and returns the issued session.
func (c *Client) Signup(ctx context.Context, req SignupRequest) (*AuthResponse, error) {
	var out AuthResponse
	if err := c.request(ctx, http.MethodPost, "/api/auth/signup", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Login exchanges form-encoded credentials for a bearer token and profile.
func (c *Client) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	form := url.Values{
		"username": {email},
		"password": {password},
	}
	var out AuthResponse
	if err := c.request(ctx, http.MethodPost, "/api/auth/login", nil, form, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Me returns the account behind the installed token.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var out User
	if err := c.request(ctx, http.MethodGet, "/api/auth/me", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ChangePassword swaps the account password after server-side verification of
// the current one.
func (c *Client) ChangePassword(ctx context.Context, oldPassword, newPassword string) error {
	body := map[string]string{
		"old_password": oldPassword,
		"new_password": newPassword,
	}
	return c.request(ctx, http.MethodPost, "/api/auth/change-password", nil, body, nil)
}

// -- Dashboard --

func (c *Client) Dashboard(ctx context.Context) (*Dashboard, error) {
	var out Dashboard
	if err := c.request(ctx, http.MethodGet, "/api/dashboard", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// -- Records --

// RecordsQuery narrows the records timeline. Zero values are omitted; Type
// "all" means no type filter.
type RecordsQuery struct {
	Type   string
	Search string
	Skip   int
	Limit  int
}

func (c *Client) Records(ctx context.Context, q RecordsQuery) ([]Record, error) {
	params := url.Values{}
	if q.Type != "" && q.Type != "all" {
		params.Set("type", q.Type)
	}
	if q.Search != "" {
		params.Set("search", q.Search)
	}
	if q.Skip > 0 {
		params.Set("skip", strconv.Itoa(q.Skip))
	}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	var out []Record
	if err := c.request(ctx, http.MethodGet, "/api/records", params, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// -- Providers --

func (c *Client) Providers(ctx context.Context) (*Providers, error) {
	var out Providers
	if err := c.request(ctx, http.MethodGet, "/api/providers", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ApproveProvider(ctx context.Context, id int) error {
	return c.request(ctx, http.MethodPost, fmt.Sprintf("/api/providers/%d/approve", id), nil, nil, nil)
}

func (c *Client) DenyProvider(ctx context.Context, id int) error {
	return c.request(ctx, http.MethodPost, fmt.Sprintf("/api/providers/%d/deny", id), nil, nil, nil)
}

func (c *Client) RevokeProvider(ctx context.Context, id int) error {
	return c.request(ctx, http.MethodPost, fmt.Sprintf("/api/providers/%d/revoke", id), nil, nil, nil)
}

// -- Portals --

func (c *Client) Portals(ctx context.Context) ([]Portal, error) {
	var out []Portal
	if err := c.request(ctx, http.MethodGet, "/api/portals", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ConnectPortal(ctx context.Context, id int) (*StatusResponse, error) {
	var out StatusResponse
	if err := c.request(ctx, http.MethodPost, fmt.Sprintf("/api/portals/%d/connect", id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DisconnectPortal(ctx context.Context, id int) error {
	return c.request(ctx, http.MethodPost, fmt.Sprintf("/api/portals/%d/disconnect", id), nil, nil, nil)
}

// -- FHIR integrations --

// FHIRAuthorize builds the SMART on FHIR authorization URL for an EHR.
// fhirURL is required for the "custom" EHR and ignored otherwise.
func (c *Client) FHIRAuthorize(ctx context.Context, ehr, fhirURL string) (*AuthorizeResponse, error) {
	params := url.Values{"ehr": {ehr}}
	if fhirURL != "" {
		params.Set("fhir_url", fhirURL)
	}
	var out AuthorizeResponse
	if err := c.request(ctx, http.MethodGet, "/api/fhir/authorize", params, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) FHIRConnections(ctx context.Context) ([]FHIRConnection, error) {
	var out []FHIRConnection
	if err := c.request(ctx, http.MethodGet, "/api/fhir/connections", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) FHIRSync(ctx context.Context, id int) (*StatusResponse, error) {
	var out StatusResponse
	if err := c.request(ctx, http.MethodPost, fmt.Sprintf("/api/fhir/connections/%d/sync", id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) FHIRDisconnect(ctx context.Context, id int) error {
	return c.request(ctx, http.MethodDelete, fmt.Sprintf("/api/fhir/connections/%d", id), nil, nil, nil)
}

func (c *Client) FHIRSyncHistory(ctx context.Context) ([]SyncHistoryItem, error) {
	var out []SyncHistoryItem
	if err := c.request(ctx, http.MethodGet, "/api/fhir/sync-history", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// -- Notifications --

func (c *Client) Notifications(ctx context.Context) ([]Notification, error) {
	var out []Notification
	if err := c.request(ctx, http.MethodGet, "/api/notifications", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) MarkNotificationRead(ctx context.Context, id int) error {
	return c.request(ctx, http.MethodPut, fmt.Sprintf("/api/notifications/%d/read", id), nil, nil, nil)
}

func (c *Client) MarkAllNotificationsRead(ctx context.Context) error {
	return c.request(ctx, http.MethodPut, "/api/notifications/read-all", nil, nil, nil)
}

// -- Settings --

func (c *Client) GetSettings(ctx context.Context) (*Settings, error) {
	var out Settings
	if err := c.request(ctx, http.MethodGet, "/api/settings", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateSettings(ctx context.Context, upd SettingsUpdate) error {
	return c.request(ctx, http.MethodPut, "/api/settings", nil, upd, nil)
}

// -- Export / audit --

// ExportFHIR returns the patient's FHIR R4 bundle as raw JSON; the caller is
// responsible for writing it to disk.
func (c *Client) ExportFHIR(ctx context.Context) (json.RawMessage, error) {
	var out json.RawMessage
	if err := c.request(ctx, http.MethodGet, "/api/export/fhir", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) AuditLog(ctx context.Context) ([]AuditEntry, error) {
	var out []AuditEntry
	if err := c.request(ctx, http.MethodGet, "/api/audit-log", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
