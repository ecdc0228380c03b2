package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/MarkLin1511/MedBridge/internal/platform/api"
	"github.com/MarkLin1511/MedBridge/internal/platform/events"
)

// Exporter downloads the FHIR bundle and writes it as a dated file in Dir.
type Exporter struct {
	client *api.Client
	bus    *events.Bus
	logger zerolog.Logger

	Dir string
	now func() time.Time
}

func NewExporter(client *api.Client, bus *events.Bus, logger zerolog.Logger, dir string) *Exporter {
	return &Exporter{client: client, bus: bus, logger: logger, Dir: dir, now: time.Now}
}

// Export fetches the bundle and writes medbridge_fhir_export_YYYY-MM-DD.json,
// returning the written path.
func (e *Exporter) Export(ctx context.Context) (string, error) {
	raw, err := e.client.ExportFHIR(ctx)
	if err != nil {
		e.logger.Warn().Err(err).Msg("fhir export failed")
		e.bus.ToastErrorf(errMessage(err))
		return "", err
	}

	name := fmt.Sprintf("medbridge_fhir_export_%s.json", e.now().Format("2006-01-02"))
	path := filepath.Join(e.Dir, name)
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		e.logger.Warn().Err(err).Str("path", path).Msg("could not write export file")
		e.bus.ToastErrorf("Could not write export file")
		return "", err
	}

	e.bus.ToastSuccessf("FHIR export downloaded")
	return path, nil
}
