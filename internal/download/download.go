// Package download stores publication PDFs on disk. It is a fire-and-forget
// collaborator: a failed download is logged and skipped, never propagated
// into the sync state machine, so one unavailable file cannot cost a run.
package download

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kamerwatch/kamerwatch/internal/transport"
	"github.com/kamerwatch/kamerwatch/pkg/logging"
)

// Downloader fetches publication PDFs from the gazette and writes them into
// per-dossier result directories.
type Downloader struct {
	client     *transport.Client
	baseURL    string
	resultsDir string
}

// New creates a downloader writing under resultsDir.
func New(client *transport.Client, baseURL, resultsDir string) *Downloader {
	return &Downloader{
		client:     client,
		baseURL:    baseURL,
		resultsDir: resultsDir,
	}
}

// Dir returns the result directory for a dossier.
func (d *Downloader) Dir(dossierID string) string {
	return filepath.Join(d.resultsDir, dossierID)
}

// PDF downloads one publication PDF into the dossier's result directory
// under destName. Failures are logged, not returned.
func (d *Downloader) PDF(ctx context.Context, id, destName, dossierID string) {
	dir := d.Dir(dossierID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		logging.Warn().Str("dir", dir).Err(err).Msg("Cannot create result directory")
		return
	}

	body, err := d.client.Get(ctx, fmt.Sprintf("%s%s.pdf", d.baseURL, id))
	if err != nil {
		logging.Warn().
			Str("publication", id).
			Str("dossier", dossierID).
			Err(err).
			Msg("Download failed")
		return
	}

	path := filepath.Join(dir, destName)
	if err := os.WriteFile(path, body, 0o644); err != nil {
		logging.Warn().Str("file", path).Err(err).Msg("Cannot write download")
	}
}
