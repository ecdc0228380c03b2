package sandbox

import (
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/MarkLin1511/MedBridge/internal/platform/api"
)

func (s *Server) dashboard(c echo.Context) error {
	acct := currentAccount(c)

	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	d := s.state.data(acct.PatientID)
	now := s.state.now()

	var portalNames []string
	var wearable *string
	for _, p := range d.Portals {
		if p.Status != "connected" {
			continue
		}
		portalNames = append(portalNames, p.Name)
		if wearable == nil && (strings.Contains(p.Name, "Apple") || strings.Contains(p.Name, "Watch") || strings.Contains(p.Name, "Fitbit")) {
			name := p.Name
			wearable = &name
		}
	}

	vitalLabels := map[string]string{
		"heart_rate":     "Avg Heart Rate",
		"hrv":            "Avg HRV",
		"blood_pressure": "Blood Pressure",
		"resting_hr":     "Resting HR",
	}
	vitals := make([]api.Vital, 0, len(d.Wearables))
	seen := make(map[string]bool)
	for _, w := range d.Wearables {
		if seen[w.Metric] {
			continue
		}
		seen[w.Metric] = true
		label := vitalLabels[w.Metric]
		if label == "" {
			label = w.Metric
		}
		trend := w.Trend
		if trend == "" {
			trend = "stable"
		}
		period := w.Period
		if period == "" {
			period = "Last 7 days"
		}
		vitals = append(vitals, api.Vital{Label: label, Value: w.Value, Trend: trend, Period: period})
	}

	trend := func(substr string) []api.LabPoint {
		var matched []labObservation
		for _, l := range d.Labs {
			if strings.Contains(strings.ToLower(l.TestName), substr) {
				matched = append(matched, l)
			}
		}
		sort.SliceStable(matched, func(i, j int) bool { return matched[i].Timestamp.Before(matched[j].Timestamp) })
		out := make([]api.LabPoint, 0, len(matched))
		for _, l := range matched {
			out = append(out, api.LabPoint{
				Date:   l.Timestamp.Format("Jan 06"),
				Value:  l.Value,
				Source: l.Source,
			})
		}
		return out
	}

	sortedLabs := make([]labObservation, len(d.Labs))
	copy(sortedLabs, d.Labs)
	sort.SliceStable(sortedLabs, func(i, j int) bool { return sortedLabs[i].Timestamp.After(sortedLabs[j].Timestamp) })
	if len(sortedLabs) > 10 {
		sortedLabs = sortedLabs[:10]
	}
	recent := make([]api.LabResult, 0, len(sortedLabs))
	for _, l := range sortedLabs {
		recent = append(recent, api.LabResult{
			Test:   l.TestName,
			LOINC:  l.LOINC,
			Value:  l.Value,
			Unit:   l.Unit,
			Range:  l.RefRange,
			Status: l.Status,
			Date:   l.Timestamp.Format("2006-01-02"),
			Source: l.Source,
		})
	}

	audit := sortAuditDesc(d.Audit)
	if len(audit) > 10 {
		audit = audit[:10]
	}
	auditOut := make([]api.AuditEntry, 0, len(audit))
	for _, a := range audit {
		auditOut = append(auditOut, api.AuditEntry{
			Action: a.Action,
			By:     a.By,
			When:   relativeTime(a.CreatedAt, now),
			Icon:   a.Icon,
		})
	}

	return c.JSON(http.StatusOK, api.Dashboard{
		Patient: api.Patient{
			Name:             acct.FirstName + " " + acct.LastName,
			DOB:              acct.DOB,
			PatientID:        acct.PatientID,
			ConnectedPortals: portalNames,
			Wearable:         wearable,
		},
		Vitals: vitals,
		LabTrends: api.LabTrends{
			Glucose:     trend("glucose"),
			A1c:         trend("a1c"),
			Cholesterol: trend("cholesterol"),
		},
		RecentLabs: recent,
		AuditLog:   auditOut,
	})
}

func (s *Server) records(c echo.Context) error {
	acct := currentAccount(c)
	typ := c.QueryParam("type")
	search := strings.ToLower(c.QueryParam("search"))
	skip, _ := strconv.Atoi(c.QueryParam("skip"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	d := s.state.data(acct.PatientID)

	var out []api.Record
	for _, r := range d.Records {
		if typ != "" && typ != "all" && r.Type != typ {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(r.Title), search) &&
			!strings.Contains(strings.ToLower(r.Description), search) &&
			!strings.Contains(strings.ToLower(r.Provider), search) {
			continue
		}
		flags := r.Flags
		if flags == nil {
			flags = []string{}
		}
		out = append(out, api.Record{
			ID:          r.ID,
			Type:        r.Type,
			Title:       r.Title,
			Description: r.Description,
			Date:        r.Date,
			Source:      r.Source,
			Provider:    r.Provider,
			Flags:       flags,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date > out[j].Date })

	if skip > 0 {
		if skip > len(out) {
			skip = len(out)
		}
		out = out[skip:]
	}
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	if out == nil {
		out = []api.Record{}
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) providers(c echo.Context) error {
	acct := currentAccount(c)

	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	d := s.state.data(acct.PatientID)

	res := api.Providers{
		Connected: []api.ConnectedProvider{},
		Pending:   []api.PendingProvider{},
	}
	for _, p := range d.Providers {
		switch p.Status {
		case "active":
			lastAccess := p.LastAccess
			if lastAccess == "" {
				lastAccess = "Never"
			}
			res.Connected = append(res.Connected, api.ConnectedProvider{
				ID:          p.ID,
				Name:        p.Name,
				Specialty:   p.Specialty,
				Facility:    p.Facility,
				Portal:      p.Portal,
				LastAccess:  lastAccess,
				AccessLevel: p.AccessLevel,
				Status:      p.Status,
			})
		case "pending":
			requested := p.RequestedAccess
			if requested == "" {
				requested = "Full records"
			}
			res.Pending = append(res.Pending, api.PendingProvider{
				ID:              p.ID,
				Name:            p.Name,
				Specialty:       p.Specialty,
				Facility:        p.Facility,
				Portal:          p.Portal,
				RequestedAccess: requested,
				RequestDate:     p.RequestDate,
			})
		}
	}
	return c.JSON(http.StatusOK, res)
}

func (s *Server) findProviderLocked(acct *account, id int) *providerAccess {
	d := s.state.data(acct.PatientID)
	for i := range d.Providers {
		if d.Providers[i].ID == id {
			return &d.Providers[i]
		}
	}
	return nil
}

func (s *Server) approveProvider(c echo.Context) error {
	acct := currentAccount(c)
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid provider id")
	}

	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	p := s.findProviderLocked(acct, id)
	if p == nil {
		return echo.NewHTTPError(http.StatusNotFound, "Provider not found")
	}
	p.Status = "active"
	s.state.addAudit(acct.PatientID, fmt.Sprintf("Approved access for %s", p.Name), "You", "share")
	s.state.addNotification(acct.PatientID, "system", "Provider approved", fmt.Sprintf("%s now has access to your records", p.Name))
	return c.JSON(http.StatusOK, api.StatusResponse{Status: "ok"})
}

func (s *Server) denyProvider(c echo.Context) error {
	acct := currentAccount(c)
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid provider id")
	}

	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	p := s.findProviderLocked(acct, id)
	if p == nil {
		return echo.NewHTTPError(http.StatusNotFound, "Provider not found")
	}
	p.Status = "revoked"
	return c.JSON(http.StatusOK, api.StatusResponse{Status: "ok"})
}

func (s *Server) revokeProvider(c echo.Context) error {
	acct := currentAccount(c)
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid provider id")
	}

	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	p := s.findProviderLocked(acct, id)
	if p == nil {
		return echo.NewHTTPError(http.StatusNotFound, "Provider not found")
	}
	p.Status = "revoked"
	s.state.addAudit(acct.PatientID, fmt.Sprintf("Revoked access for %s", p.Name), "You", "share")
	return c.JSON(http.StatusOK, api.StatusResponse{Status: "ok"})
}

func (s *Server) portals(c echo.Context) error {
	acct := currentAccount(c)

	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	d := s.state.data(acct.PatientID)

	out := make([]api.Portal, 0, len(d.Portals))
	for _, p := range d.Portals {
		out = append(out, api.Portal{ID: p.ID, Name: p.Name, Doctors: p.Doctors, Status: p.Status, Color: p.Color})
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) findPortalLocked(acct *account, id int) *portalConnection {
	d := s.state.data(acct.PatientID)
	for i := range d.Portals {
		if d.Portals[i].ID == id {
			return &d.Portals[i]
		}
	}
	return nil
}

func (s *Server) connectPortal(c echo.Context) error {
	acct := currentAccount(c)
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid portal id")
	}

	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	p := s.findPortalLocked(acct, id)
	if p == nil {
		return echo.NewHTTPError(http.StatusNotFound, "Portal not found")
	}
	p.Status = "connected"
	s.state.addAudit(acct.PatientID, fmt.Sprintf("Connected %s", p.Name), "You", "sync")
	s.state.addNotification(acct.PatientID, "system", "Portal connected", fmt.Sprintf("%s has been connected to your account", p.Name))
	return c.JSON(http.StatusOK, api.StatusResponse{Status: "ok", Message: fmt.Sprintf("%s connected successfully", p.Name)})
}

func (s *Server) disconnectPortal(c echo.Context) error {
	acct := currentAccount(c)
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid portal id")
	}

	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	p := s.findPortalLocked(acct, id)
	if p == nil {
		return echo.NewHTTPError(http.StatusNotFound, "Portal not found")
	}
	p.Status = "available"
	s.state.addAudit(acct.PatientID, fmt.Sprintf("Disconnected %s", p.Name), "You", "sync")
	return c.JSON(http.StatusOK, api.StatusResponse{Status: "ok"})
}

// EHR OAuth endpoints, keyed the way upstream SMART deployments publish
// them. Generic servers derive endpoints from the supplied base URL.
var ehrConfigs = map[string]struct {
	authorizeURL string
	fhirBase     string
}{
	"epic": {
		authorizeURL: "https://fhir.epic.com/interconnect-fhir-oauth/oauth2/authorize",
		fhirBase:     "https://fhir.epic.com/interconnect-fhir-oauth/api/FHIR/R4",
	},
	"cerner": {
		authorizeURL: "https://authorization.cerner.com/tenants/ec2458f2-1e24-41c8-b71b-0e701af7583d/protocols/oauth2/profiles/smart-v1/personas/patient/authorize",
		fhirBase:     "https://fhir-open.cerner.com/r4/ec2458f2-1e24-41c8-b71b-0e701af7583d",
	},
}

const smartScopes = "openid fhirUser patient/*.read launch/patient"

func (s *Server) fhirAuthorize(c echo.Context) error {
	acct := currentAccount(c)
	ehr := c.QueryParam("ehr")
	fhirURL := c.QueryParam("fhir_url")

	var authorizeURL, fhirBase string
	if cfg, ok := ehrConfigs[ehr]; ok {
		authorizeURL = cfg.authorizeURL
		fhirBase = cfg.fhirBase
	} else if ehr == "generic" && fhirURL != "" {
		base := strings.TrimRight(fhirURL, "/")
		authorizeURL = base + "/auth/authorize"
		fhirBase = base
	} else {
		return echo.NewHTTPError(http.StatusBadRequest,
			fmt.Sprintf("Unknown EHR '%s'. Use 'epic', 'cerner', or 'generic' with a fhir_url.", ehr))
	}

	params := url.Values{}
	params.Set("response_type", "code")
	params.Set("client_id", "medbridge-local-dev")
	params.Set("redirect_uri", "http://localhost:8000/api/fhir/callback")
	params.Set("scope", smartScopes)
	params.Set("state", acct.PatientID+"|"+ehr+"|"+fhirBase)
	params.Set("aud", fhirBase)

	return c.JSON(http.StatusOK, api.AuthorizeResponse{
		AuthorizeURL: authorizeURL + "?" + params.Encode(),
		EHR:          ehr,
	})
}

func (s *Server) fhirConnections(c echo.Context) error {
	acct := currentAccount(c)

	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	d := s.state.data(acct.PatientID)

	out := make([]api.FHIRConnection, 0, len(d.FHIRConns))
	for _, conn := range d.FHIRConns {
		out = append(out, api.FHIRConnection{
			ID:             conn.ID,
			EHRName:        conn.EHRName,
			FHIRBaseURL:    conn.FHIRBaseURL,
			PatientFHIRID:  conn.PatientFHIRID,
			Status:         conn.Status,
			TokenExpiresAt: isoPtr(conn.TokenExpiresAt),
			CreatedAt:      conn.CreatedAt.Format(time.RFC3339),
			LastSyncedAt:   isoPtr(conn.LastSyncedAt),
		})
	}
	return c.JSON(http.StatusOK, out)
}

func isoPtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}

func (s *Server) fhirSync(c echo.Context) error {
	acct := currentAccount(c)
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid connection id")
	}

	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	d := s.state.data(acct.PatientID)
	for i := range d.FHIRConns {
		conn := &d.FHIRConns[i]
		if conn.ID != id {
			continue
		}
		if conn.Status != "active" {
			return echo.NewHTTPError(http.StatusBadRequest,
				fmt.Sprintf("Connection is %s; cannot sync", conn.Status))
		}
		now := s.state.now()
		conn.LastSyncedAt = &now
		s.state.addSyncEvent(acct.PatientID, conn.EHRName, "Manual sync", "success")
		s.state.addAudit(acct.PatientID, fmt.Sprintf("FHIR data re-synced (%s)", conn.EHRName), "You", "sync")
		return c.JSON(http.StatusOK, api.StatusResponse{Status: "synced"})
	}
	return echo.NewHTTPError(http.StatusNotFound, "FHIR connection not found")
}

func (s *Server) fhirDisconnect(c echo.Context) error {
	acct := currentAccount(c)
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid connection id")
	}

	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	d := s.state.data(acct.PatientID)
	for i := range d.FHIRConns {
		if d.FHIRConns[i].ID != id {
			continue
		}
		ehr := d.FHIRConns[i].EHRName
		d.FHIRConns = append(d.FHIRConns[:i], d.FHIRConns[i+1:]...)
		s.state.addAudit(acct.PatientID, fmt.Sprintf("FHIR connection removed (%s)", ehr), "You", "sync")
		return c.JSON(http.StatusOK, api.StatusResponse{Status: "deleted"})
	}
	return echo.NewHTTPError(http.StatusNotFound, "FHIR connection not found")
}

func (s *Server) fhirSyncHistory(c echo.Context) error {
	acct := currentAccount(c)

	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	d := s.state.data(acct.PatientID)
	now := s.state.now()

	events := make([]syncEvent, len(d.SyncEvents))
	copy(events, d.SyncEvents)
	sort.SliceStable(events, func(i, j int) bool { return events[i].At.After(events[j].At) })

	out := make([]api.SyncHistoryItem, 0, len(events))
	for _, e := range events {
		out = append(out, api.SyncHistoryItem{
			ID:      e.ID,
			EHRName: e.EHRName,
			Action:  e.Action,
			Status:  e.Status,
			When:    relativeTime(e.At, now),
		})
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) notifications(c echo.Context) error {
	acct := currentAccount(c)
	skip, _ := strconv.Atoi(c.QueryParam("skip"))
	limit := 20
	if v := c.QueryParam("limit"); v != "" {
		limit, _ = strconv.Atoi(v)
	}

	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	items := sortNotificationsDesc(s.state.data(acct.PatientID).Notifications)

	if skip > 0 {
		if skip > len(items) {
			skip = len(items)
		}
		items = items[skip:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}

	out := make([]api.Notification, 0, len(items))
	for _, n := range items {
		out = append(out, api.Notification{
			ID:        n.ID,
			Type:      n.Type,
			Title:     n.Title,
			Message:   n.Message,
			Read:      n.Read,
			CreatedAt: n.CreatedAt.Format(time.RFC3339),
		})
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) markNotificationRead(c echo.Context) error {
	acct := currentAccount(c)
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid notification id")
	}

	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	d := s.state.data(acct.PatientID)
	for i := range d.Notifications {
		if d.Notifications[i].ID == id {
			d.Notifications[i].Read = true
			return c.JSON(http.StatusOK, api.StatusResponse{Status: "ok"})
		}
	}
	return echo.NewHTTPError(http.StatusNotFound, "Notification not found")
}

func (s *Server) markAllNotificationsRead(c echo.Context) error {
	acct := currentAccount(c)

	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	d := s.state.data(acct.PatientID)
	for i := range d.Notifications {
		d.Notifications[i].Read = true
	}
	return c.JSON(http.StatusOK, api.StatusResponse{Status: "ok"})
}

func (s *Server) getSettings(c echo.Context) error {
	acct := currentAccount(c)

	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	return c.JSON(http.StatusOK, api.Settings{
		Profile: api.ProfileSettings{
			FirstName: acct.FirstName,
			LastName:  acct.LastName,
			Email:     acct.Email,
			DOB:       acct.DOB,
			PatientID: acct.PatientID,
		},
		Security: api.SecuritySettings{
			TwoFactorEnabled: acct.TwoFactorEnabled,
			SessionTimeout:   acct.SessionTimeout,
		},
		Privacy: api.PrivacySettings{
			ShareLabs:       acct.ShareLabs,
			ShareWearable:   acct.ShareWearable,
			AllowExport:     acct.AllowExport,
			RequireApproval: acct.RequireApproval,
		},
		Notifications: api.NotificationSettings{
			NotifyLabs:             acct.NotifyLabs,
			NotifyProviderRequests: acct.NotifyProviderRequests,
			NotifyWearableSync:     acct.NotifyWearableSync,
			NotifyWeeklySummary:    acct.NotifyWeeklySummary,
		},
	})
}

func (s *Server) updateSettings(c echo.Context) error {
	acct := currentAccount(c)

	var upd api.SettingsUpdate
	if err := c.Bind(&upd); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	if upd.FirstName != nil {
		acct.FirstName = *upd.FirstName
	}
	if upd.LastName != nil {
		acct.LastName = *upd.LastName
	}
	if upd.Email != nil {
		acct.Email = *upd.Email
	}
	if upd.DOB != nil {
		acct.DOB = upd.DOB.Value
	}
	if upd.TwoFactorEnabled != nil {
		acct.TwoFactorEnabled = *upd.TwoFactorEnabled
	}
	if upd.SessionTimeout != nil {
		acct.SessionTimeout = *upd.SessionTimeout
	}
	if upd.ShareLabs != nil {
		acct.ShareLabs = *upd.ShareLabs
	}
	if upd.ShareWearable != nil {
		acct.ShareWearable = *upd.ShareWearable
	}
	if upd.AllowExport != nil {
		acct.AllowExport = *upd.AllowExport
	}
	if upd.RequireApproval != nil {
		acct.RequireApproval = *upd.RequireApproval
	}
	if upd.NotifyLabs != nil {
		acct.NotifyLabs = *upd.NotifyLabs
	}
	if upd.NotifyProviderRequests != nil {
		acct.NotifyProviderRequests = *upd.NotifyProviderRequests
	}
	if upd.NotifyWearableSync != nil {
		acct.NotifyWearableSync = *upd.NotifyWearableSync
	}
	if upd.NotifyWeeklySummary != nil {
		acct.NotifyWeeklySummary = *upd.NotifyWeeklySummary
	}
	return c.JSON(http.StatusOK, api.StatusResponse{Status: "ok"})
}

func (s *Server) exportFHIR(c echo.Context) error {
	acct := currentAccount(c)

	s.state.mu.Lock()
	d := s.state.data(acct.PatientID)
	now := s.state.now()

	entries := []map[string]interface{}{
		{
			"resource": map[string]interface{}{
				"resourceType": "Patient",
				"id":           acct.PatientID,
				"name":         []map[string]interface{}{{"family": acct.LastName, "given": []string{acct.FirstName}}},
				"birthDate":    acct.DOB,
				"identifier":   []map[string]interface{}{{"system": "urn:medbridge:patient", "value": acct.PatientID}},
			},
		},
	}

	for _, lab := range d.Labs {
		resource := map[string]interface{}{
			"resourceType": "Observation",
			"status":       "final",
			"category": []map[string]interface{}{{
				"coding": []map[string]interface{}{{
					"system": "http://terminology.hl7.org/CodeSystem/observation-category",
					"code":   "laboratory",
				}},
			}},
			"code": map[string]interface{}{
				"coding": []map[string]interface{}{{
					"system":  "http://loinc.org",
					"code":    lab.LOINC,
					"display": lab.TestName,
				}},
			},
			"subject":           map[string]interface{}{"reference": "Patient/" + acct.PatientID},
			"effectiveDateTime": lab.Timestamp.Format(time.RFC3339),
			"valueQuantity": map[string]interface{}{
				"value":  lab.Value,
				"unit":   lab.Unit,
				"system": "http://unitsofmeasure.org",
			},
		}
		if lab.Source != "" {
			resource["performer"] = []map[string]interface{}{{"display": lab.Source}}
		}
		entries = append(entries, map[string]interface{}{"resource": resource})
	}

	for _, rec := range d.Records {
		entries = append(entries, map[string]interface{}{
			"resource": map[string]interface{}{
				"resourceType": "DocumentReference",
				"status":       "current",
				"type":         map[string]interface{}{"text": rec.Type},
				"subject":      map[string]interface{}{"reference": "Patient/" + acct.PatientID},
				"date":         rec.Date,
				"description":  rec.Title,
				"content": []map[string]interface{}{{
					"attachment": map[string]interface{}{
						"contentType": "text/plain",
						"data":        rec.Description,
					},
				}},
				"context": map[string]interface{}{
					"related": []map[string]interface{}{{"display": rec.Source}},
				},
			},
		})
	}

	bundle := map[string]interface{}{
		"resourceType": "Bundle",
		"type":         "collection",
		"timestamp":    now.Format(time.RFC3339),
		"meta": map[string]interface{}{
			"lastUpdated": now.Format(time.RFC3339),
			"source":      "MedBridge Health Platform",
		},
		"entry": entries,
	}

	s.state.addAudit(acct.PatientID, "FHIR R4 data exported", "You", "download")
	s.state.mu.Unlock()

	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf("attachment; filename=medbridge_%s_fhir_export.json", acct.PatientID))
	c.Response().Header().Set(echo.HeaderContentType, "application/fhir+json")
	return c.JSON(http.StatusOK, bundle)
}

func (s *Server) auditLog(c echo.Context) error {
	acct := currentAccount(c)

	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	now := s.state.now()

	entries := sortAuditDesc(s.state.data(acct.PatientID).Audit)
	if len(entries) > 50 {
		entries = entries[:50]
	}
	out := make([]api.AuditEntry, 0, len(entries))
	for _, a := range entries {
		out = append(out, api.AuditEntry{
			ID:     a.ID,
			Action: a.Action,
			By:     a.By,
			When:   relativeTime(a.CreatedAt, now),
			Icon:   a.Icon,
		})
	}
	return c.JSON(http.StatusOK, out)
}
