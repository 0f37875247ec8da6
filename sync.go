package kamerwatch

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/kamerwatch/kamerwatch/internal/export"
	"github.com/kamerwatch/kamerwatch/pkg/dossiers"
	"github.com/kamerwatch/kamerwatch/pkg/errors"
	"github.com/kamerwatch/kamerwatch/pkg/linker"
	"github.com/kamerwatch/kamerwatch/pkg/logging"
	"github.com/kamerwatch/kamerwatch/pkg/snapshot"
	"github.com/kamerwatch/kamerwatch/pkg/sources"
)

// Result reports the effects of one synchronization run.
type Result struct {
	// RunTime is the timestamp recorded in both stores.
	RunTime time.Time

	// Since is the incremental baseline used, zero for a full bootstrap.
	Since time.Time

	// Dossiers maps dossier id to its per-dossier outcome.
	Dossiers map[string]*DossierResult

	// NewSummaries lists dossier ids first observed this run, sorted.
	NewSummaries []string

	// OverviewWritten reports whether the CSV overview was rewritten.
	OverviewWritten bool

	// CollectionsRebuilt and SummariesRebuilt report stores that could
	// not be loaded and started empty.
	CollectionsRebuilt bool
	SummariesRebuilt   bool
}

// DossierResult is the outcome of one dossier's pass.
type DossierResult struct {
	// Bootstrapped reports whether the dossier took the full-enumeration
	// path instead of the incremental one.
	Bootstrapped bool

	// Added is the number of publications added as standalone members.
	Added int

	// Attached is the number of identifiers newly merged into members'
	// attachment maps.
	Attached int

	// ArchivePath is the point-in-time archive written after a change,
	// empty when nothing changed.
	ArchivePath string
}

// Changed reports whether any dossier gained members or attachments.
func (r *Result) Changed() bool {
	for _, dr := range r.Dossiers {
		if dr.Added > 0 || dr.Attached > 0 {
			return true
		}
	}
	return false
}

// observation pairs a parsed publication with the dossier title its metadata
// declared, feeding summary maintenance without a second fetch.
type observation struct {
	pub          *dossiers.Publication
	dossierTitle string
}

// Sync runs one full synchronization pass.
//
// Registry fetching is strictly sequential: the registries reset connections
// under concurrent load, so dossiers are processed one at a time.
func (k *kamerwatch) Sync(ctx context.Context) (*Result, error) {
	if !k.mu.TryLock() {
		return nil, errors.ErrSyncInProgress
	}
	defer k.mu.Unlock()

	if ctx == nil {
		ctx = context.Background()
	}

	// Step 1: dossier configuration, re-read every run so term changes
	// take effect without a restart.
	cfg := k.config.dossiers
	if cfg == nil {
		loaded, err := LoadConfig(k.config.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	// Step 2: persisted state; the effective baseline is the older of
	// the two stores' run times.
	snap := snapshot.Load(k.config.snapshotDir)
	since := snap.Since()
	runTime := k.config.now()

	result := &Result{
		RunTime:            runTime,
		Since:              since,
		Dossiers:           make(map[string]*DossierResult, len(cfg.Dossiers)),
		CollectionsRebuilt: snap.CollectionsRebuilt(),
		SummariesRebuilt:   snap.SummariesRebuilt(),
	}

	// Step 3: a lost summaries store is rebuilt from the repository's
	// full dossier listing before any delta work, so the overview keeps
	// covering every dossier, not only the configured ones.
	summariesSeeded := false
	if snap.SummariesRebuilt() {
		var err error
		if summariesSeeded, err = k.rebuildSummaries(ctx, snap); err != nil {
			return nil, err
		}
	}

	// Step 4: drop collections for dossiers no longer configured. Their
	// summaries stay: summaries track every dossier ever seen.
	for id := range snap.Collections {
		if !cfg.Has(id) {
			logging.Info().Str("dossier", id).Msg("Dossier no longer configured, dropping collection")
			snap.DropCollection(id)
		}
	}

	// Step 5: global delta, fetched once and shared across dossiers.
	var deltaPrimary, deltaSecondary []*observation
	if !since.IsZero() {
		var err error
		if deltaPrimary, err = k.searchPrimary(ctx, sources.Criteria{Since: since}); err != nil {
			return nil, err
		}
		if deltaSecondary, err = k.searchSecondary(ctx, sources.Criteria{Since: since}); err != nil {
			return nil, err
		}
		logging.Info().
			Str("since", since.Format(dossiers.DateFormat)).
			Int("primary", len(deltaPrimary)).
			Int("secondary", len(deltaSecondary)).
			Msg("Global delta fetched")
	}

	observed := slices.Clone(deltaPrimary)

	// Step 6: per-dossier state machine.
	for _, d := range cfg.Dossiers {
		col, known := snap.Collection(d.ID)

		var (
			dr  *DossierResult
			obs []*observation
			err error
		)
		if known {
			dr, obs, err = k.syncIncremental(ctx, d, col, deltaPrimary, deltaSecondary)
		} else {
			col, dr, obs, err = k.syncBootstrap(ctx, d)
			if err == nil {
				snap.SetCollection(col)
			}
		}
		if err != nil {
			return nil, err
		}

		observed = append(observed, obs...)
		result.Dossiers[d.ID] = dr
	}

	// Step 7: summary maintenance over everything observed this run.
	if k.maintainSummaries(ctx, snap, observed, result) || summariesSeeded {
		if err := export.WriteOverview(k.config.overviewPath(), snap.Summaries.List()); err != nil {
			logging.Warn().Err(err).Msg("Cannot write summary overview")
		} else {
			result.OverviewWritten = true
		}
	}

	// Step 8: persist both stores, always, so the baseline advances even
	// on a run with zero changes.
	if err := snap.Save(runTime); err != nil {
		return nil, err
	}

	logging.Info().
		Int("dossiers", len(result.Dossiers)).
		Bool("changed", result.Changed()).
		Msg("Sync completed")
	return result, nil
}

// syncBootstrap builds a dossier's collection from scratch: full repository
// enumeration plus gazette sweeps, then downloads and a report for the whole
// membership.
func (k *kamerwatch) syncBootstrap(ctx context.Context, d DossierConfig) (*dossiers.Collection, *DossierResult, []*observation, error) {
	logging.Info().Str("dossier", d.ID).Msg("Bootstrapping dossier")

	col := dossiers.NewCollection(d.ID)
	col.SearchTerms = slices.Clone(d.Terms)

	ids, err := k.primary.EnumerateDossier(ctx, d.ID)
	if err != nil {
		return nil, nil, nil, err
	}

	var observed []*observation
	for _, id := range ids {
		raw, err := k.primary.FetchByID(ctx, id)
		if err != nil {
			if errors.IsDiscardable(err) {
				logging.Warn().Str("publication", id).Err(err).Msg("Skipping unreadable publication")
				continue
			}
			return nil, nil, nil, err
		}
		if obs := parsePrimaryBag(raw); obs != nil {
			observed = append(observed, obs)
		}
	}

	// Gazette sweeps: dossier-scoped, one per search term, and the
	// secondary publications declaring the dossier.
	scoped, err := k.searchPrimary(ctx, sources.Criteria{DossierID: d.ID})
	if err != nil {
		return nil, nil, nil, err
	}
	observed = append(observed, scoped...)

	for _, term := range d.Terms {
		hits, err := k.searchPrimary(ctx, sources.Criteria{Term: term})
		if err != nil {
			return nil, nil, nil, err
		}
		observed = append(observed, hits...)
	}

	secondary, err := k.searchSecondary(ctx, sources.Criteria{DossierID: d.ID})
	if err != nil {
		return nil, nil, nil, err
	}

	batch := publications(observed)
	batch = append(batch, publications(secondary)...)

	res := linker.Link(col, d.ID, batch)

	for _, pub := range col.List() {
		pub.ResolveAttachmentTitles(ctx, k.attachmentTitle)
		k.downloadPublication(ctx, d.ID, pub)
	}
	k.writeReport(d.ID, col)

	dr := &DossierResult{
		Bootstrapped: true,
		Added:        len(res.Added),
		Attached:     res.AttachedCount(),
	}
	return col, dr, observed, nil
}

// syncIncremental applies the global delta and any new-term backfill to a
// known dossier's collection, with side effects only on real changes.
func (k *kamerwatch) syncIncremental(ctx context.Context, d DossierConfig, col *dossiers.Collection, deltaPrimary, deltaSecondary []*observation) (*DossierResult, []*observation, error) {
	// Terms added since the last run get a one-time historical sweep;
	// established terms are already covered by the global delta.
	var backfill []*observation
	for _, term := range d.Terms {
		if slices.Contains(col.SearchTerms, term) {
			continue
		}
		logging.Info().Str("dossier", d.ID).Str("term", term).Msg("New search term, running historical sweep")
		hits, err := k.searchPrimary(ctx, sources.Criteria{Term: term})
		if err != nil {
			return nil, nil, err
		}
		backfill = append(backfill, hits...)
	}
	col.SearchTerms = slices.Clone(d.Terms)

	batch := publications(backfill)
	batch = append(batch, publications(deltaPrimary)...)
	batch = append(batch, publications(deltaSecondary)...)

	res := linker.Link(col, d.ID, batch)

	// One notification per standalone addition, none per attachment.
	for _, pub := range res.Added {
		pub.ResolveAttachmentTitles(ctx, k.attachmentTitle)
		k.downloadPublication(ctx, d.ID, pub)
		k.notifier.Notify(ctx, fmt.Sprintf("Dossier %s: new publication %s %q", d.ID, pub.ID, pub.Title))
	}
	for primaryID, attIDs := range res.Attached {
		owner, ok := col.Get(primaryID)
		if !ok {
			continue
		}
		for _, attID := range attIDs {
			k.downloader.PDF(ctx, attID, downloadName(owner, attID), d.ID)
		}
	}

	dr := &DossierResult{
		Added:    len(res.Added),
		Attached: res.AttachedCount(),
	}
	if res.Changed() {
		k.writeReport(d.ID, col)
		path, err := k.archiver.Directory(d.ID)
		if err != nil {
			logging.Warn().Str("dossier", d.ID).Err(err).Msg("Cannot archive dossier directory")
		} else {
			dr.ArchivePath = path
		}
	}
	return dr, backfill, nil
}

// maintainSummaries updates the summary of every dossier touched by this
// run's valid primary observations. Returns true when any summary changed.
func (k *kamerwatch) maintainSummaries(ctx context.Context, snap *snapshot.Snapshot, observed []*observation, result *Result) bool {
	changed := false
	counted := make(map[string]bool)

	for _, obs := range observed {
		pub := obs.pub
		if pub.Kind != dossiers.KindPrimary || !pub.HasDate() {
			continue
		}
		dossierID := pub.PrimaryDossier()
		if dossierID == "" {
			continue
		}

		sum, created := snap.Summaries.GetOrCreate(dossierID)
		if created {
			changed = true
			result.NewSummaries = append(result.NewSummaries, dossierID)
		}

		// A new dossier is only announced once its title is known, which
		// may be a later run than the one that first saw it.
		untitled := sum.Title == ""
		if sum.SetTitle(obs.dossierTitle) {
			changed = true
		}
		if untitled && sum.Title != "" {
			k.notifier.Notify(ctx, fmt.Sprintf("New dossier %s %q", dossierID, sum.Title))
		}
		if sum.AdvanceLastItemDate(*pub.Available) {
			changed = true
		}

		if counted[dossierID] {
			continue
		}
		counted[dossierID] = true
		n, ok := k.secondary.Count(ctx, dossierID)
		if !ok {
			// Gazette count failed; the repository listing's total
			// is the fallback.
			n, ok = k.primary.Count(ctx, dossierID)
		}
		if ok {
			if n < sum.ItemCount {
				logging.Warn().
					Str("dossier", dossierID).
					Int("reported", n).
					Int("stored", sum.ItemCount).
					Msg("Registry item count regressed")
			}
			if sum.SetItemCount(n) {
				changed = true
			}
		}
	}

	slices.Sort(result.NewSummaries)
	return changed
}

// rebuildSummaries repopulates a lost summaries store from the repository's
// full dossier listing. Returns true when any summary was seeded. Rebuilt
// summaries are never announced as new dossiers.
func (k *kamerwatch) rebuildSummaries(ctx context.Context, snap *snapshot.Snapshot) (bool, error) {
	ids, err := k.primary.ListDossiers(ctx)
	if err != nil {
		return false, err
	}
	if len(ids) == 0 {
		return false, nil
	}
	logging.Info().Int("dossiers", len(ids)).Msg("Rebuilding summaries from repository listing")

	for _, dossierID := range ids {
		sum, _ := snap.Summaries.GetOrCreate(dossierID)
		if n, ok := k.primary.Count(ctx, dossierID); ok {
			sum.SetItemCount(n)
		}
		k.seedSummary(ctx, dossierID, sum)
	}
	return true, nil
}

// seedSummary fills a rebuilt summary from the dossier's own records: the
// title from the first record declaring one, the last item date from the
// newest record. Both are best-effort.
func (k *kamerwatch) seedSummary(ctx context.Context, dossierID string, sum *dossiers.Summary) {
	items, err := k.primary.EnumerateDossier(ctx, dossierID)
	if err != nil || len(items) == 0 {
		return
	}

	for _, id := range items {
		if sum.Title != "" {
			break
		}
		raw, err := k.primary.FetchByID(ctx, id)
		if err != nil {
			continue
		}
		if title, ok := raw.First(dossiers.FieldDossierTitle); ok {
			sum.SetTitle(strings.TrimSpace(title))
		}
	}
	if sum.Title == "" {
		logging.Warn().Str("dossier", dossierID).Msg("No title found for dossier")
	}

	// The listing is ordered by sub-number, so the last item is the
	// newest one.
	raw, err := k.primary.FetchByID(ctx, items[len(items)-1])
	if err != nil {
		return
	}
	if v, ok := raw.First(dossiers.FieldAvailable); ok {
		if date, err := dossiers.ParseDate(v); err == nil {
			sum.AdvanceLastItemDate(date)
		}
	}
}

// searchPrimary runs a gazette search for parliamentary papers and parses
// the hits into observations.
func (k *kamerwatch) searchPrimary(ctx context.Context, c sources.Criteria) ([]*observation, error) {
	raws, err := k.secondary.Search(ctx, c)
	if err != nil {
		return nil, err
	}

	var observed []*observation
	for _, raw := range raws {
		if obs := parsePrimaryBag(raw); obs != nil {
			observed = append(observed, obs)
		}
	}
	return observed, nil
}

// searchSecondary runs a gazette search for enactment publications.
func (k *kamerwatch) searchSecondary(ctx context.Context, c sources.Criteria) ([]*observation, error) {
	raws, err := k.secondary.SearchSecondary(ctx, c)
	if err != nil {
		return nil, err
	}

	var observed []*observation
	for _, raw := range raws {
		pub, err := dossiers.ParseSecondary(raw)
		if err != nil {
			logging.Warn().Str("publication", raw.ID()).Err(err).Msg("Skipping unparsable secondary publication")
			continue
		}
		observed = append(observed, &observation{pub: pub})
	}
	return observed, nil
}

// parsePrimaryBag classifies a search hit by identifier shape. Parliamentary
// papers parse as primary records; stray attachment hits become
// secondary-shaped carriers keyed to their parent paper so the linker merges
// them; enactments take the dedicated secondary path and are skipped here.
func parsePrimaryBag(raw sources.RawMetadata) *observation {
	id := raw.ID()
	switch {
	case strings.HasPrefix(id, dossiers.PrimaryIDPrefix+"-"):
		pub, err := dossiers.ParsePrimary(raw)
		if err != nil {
			if errors.IsUnknownDocumentType(err) {
				logging.Debug().Str("publication", id).Err(err).Msg("Skipping non-paper document type")
			} else {
				logging.Warn().Str("publication", id).Err(err).Msg("Skipping unparsable publication")
			}
			return nil
		}
		title, _ := raw.First(dossiers.FieldDossierTitle)
		return &observation{pub: pub, dossierTitle: title}
	case strings.HasPrefix(id, "blg-"):
		pub, err := dossiers.ParseAttachment(raw)
		if err != nil {
			logging.Warn().Str("publication", id).Err(err).Msg("Skipping unparsable attachment hit")
			return nil
		}
		return &observation{pub: pub}
	case strings.HasPrefix(id, "stb-"):
		return nil
	default:
		logging.Debug().Str("publication", id).Msg("Unrecognized identifier in search results")
		return nil
	}
}

// publications projects observations onto their publications.
func publications(observed []*observation) []*dossiers.Publication {
	pubs := make([]*dossiers.Publication, 0, len(observed))
	for _, obs := range observed {
		pubs = append(pubs, obs.pub)
	}
	return pubs
}

// attachmentTitle resolves one attachment identifier to its document title
// through the gazette.
func (k *kamerwatch) attachmentTitle(ctx context.Context, id string) (string, error) {
	raw, err := k.secondary.FetchByID(ctx, id)
	if err != nil {
		return "", err
	}
	if title, ok := raw.First(dossiers.FieldDocumentTitle); ok {
		return title, nil
	}
	if title, ok := raw.First(dossiers.FieldTitle); ok {
		return title, nil
	}
	return "", errors.NewMissingFieldError(dossiers.FieldDocumentTitle, id)
}

// downloadPublication fetches a member's PDF and its attachments' PDFs.
func (k *kamerwatch) downloadPublication(ctx context.Context, dossierID string, pub *dossiers.Publication) {
	k.downloader.PDF(ctx, pub.ID, downloadName(pub, pub.ID), dossierID)
	for _, attID := range pub.AttachmentIDs() {
		k.downloader.PDF(ctx, attID, downloadName(pub, attID), dossierID)
	}
}

// downloadName builds a download file name: the owning publication's date
// first so a directory listing reads chronologically, and for attachments
// the owner's id so they sort next to their paper.
func downloadName(pub *dossiers.Publication, id string) string {
	name := id + ".pdf"
	if id != pub.ID {
		name = pub.ID + "-" + name
	}
	if pub.HasDate() {
		name = pub.AvailableString() + "-" + name
	}
	return name
}

func (k *kamerwatch) writeReport(dossierID string, col *dossiers.Collection) {
	if err := k.reporter.WriteHTML(dossierID, col.List()); err != nil {
		logging.Warn().Str("dossier", dossierID).Err(err).Msg("Cannot write dossier report")
	}
}
