package sandbox

import "time"

// Demo credentials.
const (
	DemoEmail     = "marcus.johnson@email.com"
	DemoPassword  = "demo1234"
	DemoPatientID = "MBR-20240001"
)

// SeedSummary describes the demo dataset, for inspection without starting
// a server.
type SeedSummary struct {
	Email         string `json:"email"`
	Password      string `json:"password"`
	PatientID     string `json:"patient_id"`
	Labs          int    `json:"labs"`
	Records       int    `json:"records"`
	Wearables     int    `json:"wearables"`
	Providers     int    `json:"providers"`
	Portals       int    `json:"portals"`
	Connections   int    `json:"fhir_connections"`
	Notifications int    `json:"notifications"`
}

// DemoSeedSummary seeds a fresh state and reports what it contains.
func DemoSeedSummary() (SeedSummary, error) {
	st := newState()
	if err := st.Seed(); err != nil {
		return SeedSummary{}, err
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	d := st.data(DemoPatientID)
	return SeedSummary{
		Email:         DemoEmail,
		Password:      DemoPassword,
		PatientID:     DemoPatientID,
		Labs:          len(d.Labs),
		Records:       len(d.Records),
		Wearables:     len(d.Wearables),
		Providers:     len(d.Providers),
		Portals:       len(d.Portals),
		Connections:   len(d.FHIRConns),
		Notifications: len(d.Notifications),
	}, nil
}

// Seed installs the demo patient: Marcus Johnson, a pre-diabetic scenario
// with a year of lab trends, two connected portals, an active wearable,
// provider grants including one pending request, and a notification feed.
// Seeding twice is a no-op.
func (s *state) Seed() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[DemoEmail]; ok {
		return nil
	}

	hashed, err := hashPassword(DemoPassword)
	if err != nil {
		return err
	}

	now := s.now()
	dob := "1988-03-14"
	s.accounts[DemoEmail] = &account{
		ID:               s.nextIDLocked(),
		Email:            DemoEmail,
		FirstName:        "Marcus",
		LastName:         "Johnson",
		Role:             "patient",
		PatientID:        DemoPatientID,
		DOB:              &dob,
		HashedPassword:   hashed,
		TwoFactorEnabled: true,
		SessionTimeout:   30,
		ShareLabs:        true,
		ShareWearable:    true,
		AllowExport:      true,
		RequireApproval:  true,

		NotifyLabs:             "Email + Push",
		NotifyProviderRequests: "Email + Push",
		NotifyWearableSync:     "Push only",
		NotifyWeeklySummary:    "Email",
	}

	d := s.data(DemoPatientID)

	days := func(n int) time.Time { return now.AddDate(0, 0, -n) }
	hours := func(n int) time.Time { return now.Add(-time.Duration(n) * time.Hour) }

	d.Labs = []labObservation{
		// Glucose: pre-diabetes progression
		{TestName: "Glucose (fasting)", LOINC: "1558-6", Value: 95, Unit: "mg/dL", RefRange: "70-100", Status: "normal", Source: "Epic MyChart", Timestamp: days(240)},
		{TestName: "Glucose (fasting)", LOINC: "1558-6", Value: 98, Unit: "mg/dL", RefRange: "70-100", Status: "normal", Source: "Epic MyChart", Timestamp: days(180)},
		{TestName: "Glucose (fasting)", LOINC: "1558-6", Value: 105, Unit: "mg/dL", RefRange: "70-100", Status: "high", Source: "VA Health", Timestamp: days(120)},
		{TestName: "Glucose (fasting)", LOINC: "1558-6", Value: 108, Unit: "mg/dL", RefRange: "70-100", Status: "high", Source: "Epic MyChart", Timestamp: days(60)},
		{TestName: "Glucose (fasting)", LOINC: "1558-6", Value: 112, Unit: "mg/dL", RefRange: "70-100", Status: "high", Source: "VA Health", Timestamp: days(26)},

		{TestName: "Hemoglobin A1c", LOINC: "4548-4", Value: 5.4, Unit: "%", RefRange: "4.0-5.6", Status: "normal", Source: "Epic MyChart", Timestamp: days(330)},
		{TestName: "Hemoglobin A1c", LOINC: "4548-4", Value: 5.5, Unit: "%", RefRange: "4.0-5.6", Status: "normal", Source: "Epic MyChart", Timestamp: days(240)},
		{TestName: "Hemoglobin A1c", LOINC: "4548-4", Value: 5.7, Unit: "%", RefRange: "4.0-5.6", Status: "high", Source: "VA Health", Timestamp: days(150)},
		{TestName: "Hemoglobin A1c", LOINC: "4548-4", Value: 5.9, Unit: "%", RefRange: "4.0-5.6", Status: "high", Source: "Epic MyChart", Timestamp: days(60)},
		{TestName: "Hemoglobin A1c", LOINC: "4548-4", Value: 6.1, Unit: "%", RefRange: "4.0-5.6", Status: "high", Source: "VA Health", Timestamp: days(26)},

		{TestName: "Cholesterol (total)", LOINC: "2093-3", Value: 195, Unit: "mg/dL", RefRange: "<200", Status: "normal", Source: "Epic MyChart", Timestamp: days(330)},
		{TestName: "Cholesterol (total)", LOINC: "2093-3", Value: 200, Unit: "mg/dL", RefRange: "<200", Status: "normal", Source: "Epic MyChart", Timestamp: days(240)},
		{TestName: "Cholesterol (total)", LOINC: "2093-3", Value: 208, Unit: "mg/dL", RefRange: "<200", Status: "high", Source: "VA Health", Timestamp: days(150)},
		{TestName: "Cholesterol (total)", LOINC: "2093-3", Value: 215, Unit: "mg/dL", RefRange: "<200", Status: "high", Source: "Epic MyChart", Timestamp: days(60)},

		{TestName: "Potassium", LOINC: "2823-3", Value: 4.1, Unit: "mmol/L", RefRange: "3.5-5.0", Status: "normal", Source: "Epic MyChart", Timestamp: days(13)},
		{TestName: "Sodium", LOINC: "2951-2", Value: 141, Unit: "mmol/L", RefRange: "136-145", Status: "normal", Source: "Epic MyChart", Timestamp: days(13)},
		{TestName: "Calcium", LOINC: "17861-6", Value: 9.8, Unit: "mg/dL", RefRange: "8.5-10.5", Status: "normal", Source: "Epic MyChart", Timestamp: days(13)},
		{TestName: "Creatinine", LOINC: "2160-0", Value: 1.0, Unit: "mg/dL", RefRange: "0.7-1.3", Status: "normal", Source: "VA Health", Timestamp: days(26)},
		{TestName: "TSH", LOINC: "3016-3", Value: 2.4, Unit: "mIU/L", RefRange: "0.4-4.0", Status: "normal", Source: "Epic MyChart", Timestamp: days(70)},
	}

	d.Records = []medicalRecord{
		{ID: s.nextIDLocked(), Type: "lab", Title: "Complete Metabolic Panel (CMP)", Description: "Potassium 4.1 mmol/L, Sodium 141 mmol/L, Calcium 9.8 mg/dL, Glucose 112 mg/dL", Date: "2026-02-10", Source: "Epic MyChart", Provider: "Dr. Sarah Chen", Flags: []string{"Glucose: High"}},
		{ID: s.nextIDLocked(), Type: "wearable", Title: "Weekly Health Summary", Description: "Avg HR: 72 bpm, Avg HRV: 42 ms, Sleep: 7.2h avg, Steps: 8,400 avg/day", Date: "2026-02-09", Source: "Apple Watch", Provider: "Self-reported"},
		{ID: s.nextIDLocked(), Type: "lab", Title: "Hemoglobin A1c + Fasting Glucose", Description: "A1c: 6.1% (High), Fasting Glucose: 112 mg/dL (High), Creatinine: 1.0 mg/dL", Date: "2026-01-28", Source: "VA Health", Provider: "Dr. James Wright", Flags: []string{"A1c: High", "Glucose: High"}},
		{ID: s.nextIDLocked(), Type: "medication", Title: "Metformin 500mg prescribed", Description: "Take once daily with dinner. Monitor blood glucose weekly. Follow up in 3 months.", Date: "2026-01-28", Source: "VA Health", Provider: "Dr. James Wright"},
		{ID: s.nextIDLocked(), Type: "visit", Title: "Annual Physical Exam", Description: "BP: 128/82, Weight: 185 lbs, BMI: 26.1. Pre-diabetic markers discussed. Lifestyle modifications recommended.", Date: "2026-01-15", Source: "Epic MyChart", Provider: "Dr. Sarah Chen"},
		{ID: s.nextIDLocked(), Type: "lab", Title: "Lipid Panel + TSH", Description: "Total Cholesterol: 215 mg/dL (High), LDL: 140 mg/dL, HDL: 48 mg/dL, TSH: 2.4 mIU/L", Date: "2025-12-15", Source: "Epic MyChart", Provider: "Dr. Sarah Chen", Flags: []string{"Cholesterol: High"}},
		{ID: s.nextIDLocked(), Type: "imaging", Title: "Chest X-Ray", Description: "No acute cardiopulmonary process. Heart size normal. Lungs clear bilaterally.", Date: "2025-11-20", Source: "VA Health", Provider: "Dr. Maria Lopez"},
		{ID: s.nextIDLocked(), Type: "visit", Title: "Cardiology Consultation", Description: "Elevated cholesterol discussed. Statin therapy considered but deferred for lifestyle changes. Recheck in 6 months.", Date: "2025-11-10", Source: "Epic MyChart", Provider: "Dr. Raj Patel"},
	}

	d.Wearables = []wearableMetric{
		{Metric: "heart_rate", Value: "72 bpm", Trend: "stable", Period: "Last 7 days", Source: "Apple Watch Series 9"},
		{Metric: "hrv", Value: "42 ms", Trend: "up", Period: "Last 7 days", Source: "Apple Watch Series 9"},
		{Metric: "blood_pressure", Value: "128/82", Trend: "stable", Period: "Last reading", Source: "Apple Watch Series 9"},
		{Metric: "resting_hr", Value: "64 bpm", Trend: "down", Period: "Last 30 days", Source: "Apple Watch Series 9"},
	}

	d.Providers = []providerAccess{
		{ID: s.nextIDLocked(), Name: "Dr. Sarah Chen", Specialty: "Primary Care", Facility: "Bay Area Medical Group", Portal: "Epic MyChart", AccessLevel: "Full records", Status: "active", LastAccess: "2 hours ago"},
		{ID: s.nextIDLocked(), Name: "Dr. James Wright", Specialty: "Internal Medicine", Facility: "VA Palo Alto Health Care", Portal: "VA Health", AccessLevel: "Full records", Status: "active", LastAccess: "3 weeks ago"},
		{ID: s.nextIDLocked(), Name: "Dr. Raj Patel", Specialty: "Cardiology", Facility: "Stanford Heart Center", Portal: "Epic MyChart", AccessLevel: "Labs & vitals only", Status: "active", LastAccess: "2 days ago"},
		{ID: s.nextIDLocked(), Name: "Dr. Maria Lopez", Specialty: "Radiology", Facility: "VA Palo Alto Health Care", Portal: "VA Health", Status: "pending", RequestedAccess: "Imaging records", RequestDate: "2026-02-18"},
	}

	d.Portals = []portalConnection{
		{ID: s.nextIDLocked(), Name: "Epic MyChart", Doctors: "300,000+", Status: "connected", Color: "violet"},
		{ID: s.nextIDLocked(), Name: "VA Health", Doctors: "150,000+", Status: "connected", Color: "sky"},
		{ID: s.nextIDLocked(), Name: "Cerner / Oracle Health", Doctors: "250,000+", Status: "available", Color: "gray"},
		{ID: s.nextIDLocked(), Name: "Athenahealth", Doctors: "160,000+", Status: "available", Color: "gray"},
		{ID: s.nextIDLocked(), Name: "Apple Health", Doctors: "N/A", Status: "connected", Color: "emerald"},
		{ID: s.nextIDLocked(), Name: "Allscripts", Doctors: "180,000+", Status: "available", Color: "gray"},
	}

	epicPatient := "eXbMn3kqSVBy8aBR4Hqzqw3"
	lastSynced := hours(2)
	expires := now.Add(4 * time.Hour)
	d.FHIRConns = []fhirConnection{
		{ID: s.nextIDLocked(), EHRName: "epic", FHIRBaseURL: "https://fhir.epic.com/interconnect-fhir-oauth/api/FHIR/R4", PatientFHIRID: &epicPatient, Status: "active", TokenExpiresAt: &expires, CreatedAt: days(90), LastSyncedAt: &lastSynced},
	}

	d.SyncEvents = []syncEvent{
		{ID: s.nextIDLocked(), EHRName: "epic", Action: "Full sync", Status: "success", At: hours(2)},
		{ID: s.nextIDLocked(), EHRName: "epic", Action: "Initial sync", Status: "success", At: days(90)},
	}

	d.Audit = []auditEntry{
		{ID: s.nextIDLocked(), Action: "Lab results viewed", By: "Dr. Sarah Chen (PCP)", Icon: "eye", CreatedAt: hours(2)},
		{ID: s.nextIDLocked(), Action: "Wearable data synced", By: "Apple Watch", Icon: "sync", CreatedAt: hours(6)},
		{ID: s.nextIDLocked(), Action: "Records shared", By: "You → Dr. Patel (Cardiology)", Icon: "share", CreatedAt: days(2)},
		{ID: s.nextIDLocked(), Action: "Lab results ingested", By: "VA Health Portal", Icon: "download", CreatedAt: days(21)},
		{ID: s.nextIDLocked(), Action: "Annual physical completed", By: "Dr. Sarah Chen (PCP)", Icon: "eye", CreatedAt: days(39)},
		{ID: s.nextIDLocked(), Action: "Portal connected", By: "You", Icon: "sync", CreatedAt: days(90)},
	}

	d.Notifications = []notification{
		{ID: s.nextIDLocked(), Type: "lab_result", Title: "New lab results", Message: "Your Complete Metabolic Panel results from Epic MyChart are ready to view.", CreatedAt: hours(1)},
		{ID: s.nextIDLocked(), Type: "provider_request", Title: "Provider access request", Message: "Dr. Maria Lopez (Radiology) is requesting access to your imaging records.", CreatedAt: hours(3)},
		{ID: s.nextIDLocked(), Type: "wearable_sync", Title: "Wearable sync complete", Message: "Your Apple Watch data has been synced. 7-day health summary is ready.", CreatedAt: hours(6)},
		{ID: s.nextIDLocked(), Type: "system", Title: "Weekly health summary", Message: "Your weekly health summary for Feb 10-16 is available.", Read: true, CreatedAt: days(3)},
		{ID: s.nextIDLocked(), Type: "lab_result", Title: "A1c results flagged", Message: "Your Hemoglobin A1c from VA Health shows elevated levels (6.1%). Consider discussing with your provider.", Read: true, CreatedAt: days(26)},
	}

	return nil
}
