package store

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportWritesDatedFile(t *testing.T) {
	h := newHarness(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/fhir+json")
		w.Write([]byte(`{"resourceType":"Bundle","type":"collection","entry":[]}`))
	}))

	dir := t.TempDir()
	e := NewExporter(h.client, h.bus, nop(), dir)
	e.now = func() time.Time { return time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC) }

	path, err := e.Export(context.Background())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "medbridge_fhir_export_2026-09-01.json"), path)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var bundle map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &bundle))
	assert.Equal(t, "Bundle", bundle["resourceType"])

	toasts := h.drainToasts()
	require.Len(t, toasts, 1)
	assert.Equal(t, "FHIR export downloaded", toasts[0].Message)
}

func TestExportRetriesOnceThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	h := newHarness(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"resourceType":"Bundle"}`))
	}))

	e := NewExporter(h.client, h.bus, nop(), t.TempDir())

	path, err := e.Export(context.Background())
	require.NoError(t, err)
	assert.FileExists(t, path)
	assert.Equal(t, int32(2), calls.Load())
}

func TestExportFailureToasts(t *testing.T) {
	h := newHarness(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		json.NewEncoder(w).Encode(map[string]string{"detail": "Export is disabled for this account"})
	}))

	e := NewExporter(h.client, h.bus, nop(), t.TempDir())

	_, err := e.Export(context.Background())
	require.Error(t, err)

	toasts := h.drainToasts()
	require.Len(t, toasts, 1)
	assert.Equal(t, "Export is disabled for this account", toasts[0].Message)
}
