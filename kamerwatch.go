// Package kamerwatch tracks Dutch parliamentary dossiers across two public
// registries: the document repository that enumerates papers per dossier and
// the official gazette portal that covers search, secondary publications and
// item counts. It keeps a persisted snapshot of per-dossier collections and
// summaries, syncs it incrementally, and drives downstream effects on real
// changes: downloads, reports, archives and notifications.
package kamerwatch

import (
	"context"
	"fmt"
	"sync"

	"github.com/kamerwatch/kamerwatch/internal/archive"
	"github.com/kamerwatch/kamerwatch/internal/download"
	"github.com/kamerwatch/kamerwatch/internal/notify"
	"github.com/kamerwatch/kamerwatch/internal/report"
	"github.com/kamerwatch/kamerwatch/internal/sources/gazette"
	"github.com/kamerwatch/kamerwatch/internal/sources/repository"
	"github.com/kamerwatch/kamerwatch/internal/transport"
	"github.com/kamerwatch/kamerwatch/pkg/dossiers"
	"github.com/kamerwatch/kamerwatch/pkg/snapshot"
	"github.com/kamerwatch/kamerwatch/pkg/sources"
)

// PDFDownloader stores publication PDFs. Implementations are best-effort:
// a failed download must be logged, not returned.
type PDFDownloader interface {
	PDF(ctx context.Context, id, destName, dossierID string)
}

// Notifier delivers best-effort change notifications.
type Notifier interface {
	Notify(ctx context.Context, text string)
}

// Kamerwatch tracks configured dossiers against the public registries.
type Kamerwatch interface {
	// Sync runs one full synchronization pass: bootstrap for unseen
	// dossiers, incremental delta for known ones, summary maintenance,
	// and persistence. Exactly one run at a time; a concurrent call
	// fails with errors.ErrSyncInProgress.
	Sync(ctx context.Context) (*Result, error)

	// Summaries returns the persisted per-dossier summaries, ordered by
	// dossier id.
	Summaries() []*dossiers.Summary
}

// kamerwatch is the internal implementation of the Kamerwatch interface.
type kamerwatch struct {
	mu     sync.Mutex
	config *config

	primary   sources.PrimarySource
	secondary sources.SecondarySource

	downloader PDFDownloader
	notifier   Notifier
	reporter   *report.Writer
	archiver   *archive.Archiver
}

// New creates a Kamerwatch instance with the given options.
func New(opts ...Option) (Kamerwatch, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, fmt.Errorf("applying options: %w", err)
		}
	}

	k := &kamerwatch{
		config:     cfg,
		primary:    cfg.primary,
		secondary:  cfg.secondary,
		downloader: cfg.downloader,
		notifier:   cfg.notifier,
		reporter:   report.New(cfg.resultsDir),
		archiver:   archive.New(cfg.resultsDir),
	}

	var client *transport.Client
	if cfg.httpClient != nil {
		client = transport.New(transport.WithHTTPClient(cfg.httpClient))
	} else {
		client = transport.New()
	}

	if k.primary == nil {
		k.primary = repository.New(client)
	}
	if k.secondary == nil {
		k.secondary = gazette.New(client)
	}
	if k.downloader == nil {
		k.downloader = download.New(client, gazette.DefaultBaseURL, cfg.resultsDir)
	}
	if k.notifier == nil {
		k.notifier = notify.New(cfg.webhookURL)
	}

	return k, nil
}

// Summaries returns the persisted summaries ordered by dossier id.
func (k *kamerwatch) Summaries() []*dossiers.Summary {
	k.mu.Lock()
	defer k.mu.Unlock()

	return snapshot.Load(k.config.snapshotDir).Summaries.List()
}
