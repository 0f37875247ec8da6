package kamerwatch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kamerwatch/kamerwatch/pkg/dossiers"
	"github.com/kamerwatch/kamerwatch/pkg/errors"
	"github.com/kamerwatch/kamerwatch/pkg/snapshot"
	"github.com/kamerwatch/kamerwatch/pkg/sources"
)

// fakePrimary is an in-memory repository adapter.
type fakePrimary struct {
	dossiers map[string][]string
	bags     map[string]sources.RawMetadata
	counts   map[string]int
	listing  []string

	started chan struct{}
	release chan struct{}
}

func (f *fakePrimary) ID() sources.ID { return sources.RepositoryID }

func (f *fakePrimary) FetchByID(_ context.Context, id string) (sources.RawMetadata, error) {
	bag, ok := f.bags[id]
	if !ok {
		return nil, errors.NewNotFoundError("publication", id)
	}
	return bag, nil
}

func (f *fakePrimary) Search(context.Context, sources.Criteria) ([]sources.RawMetadata, error) {
	return nil, errors.ErrNotSupported
}

func (f *fakePrimary) EnumerateDossier(_ context.Context, dossierID string) ([]string, error) {
	if f.started != nil {
		close(f.started)
		f.started = nil
	}
	if f.release != nil {
		<-f.release
	}
	return f.dossiers[dossierID], nil
}

func (f *fakePrimary) Count(_ context.Context, dossierID string) (int, bool) {
	n, ok := f.counts[dossierID]
	return n, ok
}

func (f *fakePrimary) ListDossiers(context.Context) ([]string, error) {
	return f.listing, nil
}

// fakeSecondary is an in-memory gazette adapter.
type fakeSecondary struct {
	bags map[string]sources.RawMetadata

	scoped         map[string][]string
	byTerm         map[string][]string
	since          []string
	secondarySince []string
	counts         map[string]int
}

func (f *fakeSecondary) ID() sources.ID { return sources.GazetteID }

func (f *fakeSecondary) FetchByID(_ context.Context, id string) (sources.RawMetadata, error) {
	bag, ok := f.bags[id]
	if !ok {
		return nil, errors.NewNotFoundError("publication", id)
	}
	return bag, nil
}

func (f *fakeSecondary) lookup(ids []string) []sources.RawMetadata {
	raws := make([]sources.RawMetadata, 0, len(ids))
	for _, id := range ids {
		if bag, ok := f.bags[id]; ok {
			raws = append(raws, bag)
		}
	}
	return raws
}

func (f *fakeSecondary) Search(_ context.Context, c sources.Criteria) ([]sources.RawMetadata, error) {
	switch {
	case !c.Since.IsZero():
		return f.lookup(f.since), nil
	case c.Term != "":
		return f.lookup(f.byTerm[c.Term]), nil
	case c.DossierID != "":
		return f.lookup(f.scoped[c.DossierID]), nil
	}
	return nil, nil
}

func (f *fakeSecondary) SearchSecondary(_ context.Context, c sources.Criteria) ([]sources.RawMetadata, error) {
	if !c.Since.IsZero() {
		return f.lookup(f.secondarySince), nil
	}
	return nil, nil
}

func (f *fakeSecondary) EnumerateDossier(_ context.Context, dossierID string) ([]string, error) {
	return f.scoped[dossierID], nil
}

func (f *fakeSecondary) Count(_ context.Context, dossierID string) (int, bool) {
	n, ok := f.counts[dossierID]
	return n, ok
}

// fakeDownloader records download requests.
type fakeDownloader struct {
	mu    sync.Mutex
	files []string
}

func (f *fakeDownloader) PDF(_ context.Context, id, destName, dossierID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files = append(f.files, dossierID+"/"+destName)
}

// fakeNotifier records notifications.
type fakeNotifier struct {
	mu   sync.Mutex
	sent []string
}

func (f *fakeNotifier) Notify(_ context.Context, text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, text)
}

func primaryBag(id, dossier, sub, date, title string) sources.RawMetadata {
	bag := sources.RawMetadata{}
	bag.Add(sources.KeyID, id)
	bag.Add("OVERHEIDop.Parlementair", "Kamerstuk")
	bag.Add("OVERHEIDop.dossiernummer", dossier)
	bag.Add("OVERHEIDop.ondernummer", sub)
	bag.Add("DCTERMS.available", date)
	bag.Add("OVERHEIDop.documenttitel", title)
	bag.Add("OVERHEIDop.dossiertitel", "Telecomdossier")
	return bag
}

func secondaryBag(id, date string, keys ...string) sources.RawMetadata {
	bag := sources.RawMetadata{}
	bag.Add(sources.KeyID, id)
	bag.Add("DCTERMS.available", date)
	for _, key := range keys {
		bag.Add("OVERHEIDop.behandeldDossier", key)
	}
	bag.Add("DC.title", "Besluit")
	return bag
}

type fixture struct {
	primary    *fakePrimary
	secondary  *fakeSecondary
	downloader *fakeDownloader
	notifier   *fakeNotifier
	dirs       struct{ snapshot, results string }
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		primary: &fakePrimary{
			dossiers: map[string][]string{},
			bags:     map[string]sources.RawMetadata{},
			counts:   map[string]int{},
		},
		secondary: &fakeSecondary{
			bags:   map[string]sources.RawMetadata{},
			scoped: map[string][]string{},
			byTerm: map[string][]string{},
			counts: map[string]int{},
		},
		downloader: &fakeDownloader{},
		notifier:   &fakeNotifier{},
	}
	f.dirs.snapshot = filepath.Join(t.TempDir(), "data")
	f.dirs.results = filepath.Join(t.TempDir(), "results")
	return f
}

func (f *fixture) watch(t *testing.T, cfg *Config, extra ...Option) Kamerwatch {
	t.Helper()
	opts := append([]Option{
		WithConfig(cfg),
		WithSnapshotDir(f.dirs.snapshot),
		WithResultsDir(f.dirs.results),
		WithPrimarySource(f.primary),
		WithSecondarySource(f.secondary),
		WithDownloader(f.downloader),
		WithNotifier(f.notifier),
	}, extra...)
	kw, err := New(opts...)
	require.NoError(t, err)
	return kw
}

func TestSyncBootstrapThenIncremental(t *testing.T) {
	f := newFixture(t)
	f.primary.dossiers["25124"] = []string{"kst-25124-1"}
	f.primary.bags["kst-25124-1"] = primaryBag("kst-25124-1", "25124", "1", "2023-05-11", "Brief")
	f.secondary.counts["25124"] = 1

	cfg := &Config{Dossiers: []DossierConfig{{ID: "25124"}}}
	kw := f.watch(t, cfg)

	res, err := kw.Sync(context.Background())
	require.NoError(t, err)

	require.Contains(t, res.Dossiers, "25124")
	assert.True(t, res.Dossiers["25124"].Bootstrapped)
	assert.Equal(t, 1, res.Dossiers["25124"].Added)
	assert.True(t, res.Since.IsZero())
	assert.Equal(t, []string{"25124"}, res.NewSummaries)
	assert.True(t, res.OverviewWritten)
	assert.Contains(t, f.downloader.files, "25124/2023-05-11-kst-25124-1.pdf")

	_, err = os.Stat(filepath.Join(f.dirs.results, OverviewFile))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(f.dirs.results, "25124", "overview.html"))
	require.NoError(t, err)

	sums := kw.Summaries()
	require.Len(t, sums, 1)
	assert.Equal(t, "Telecomdossier", sums[0].Title)
	assert.Equal(t, 1, sums[0].ItemCount)
	assert.Equal(t, "2023-05-11", sums[0].LastItemDateString())

	// Second run takes the incremental path against the saved baseline.
	res2, err := kw.Sync(context.Background())
	require.NoError(t, err)
	assert.False(t, res2.Dossiers["25124"].Bootstrapped)
	assert.False(t, res2.Since.IsZero())
	assert.False(t, res2.Changed())
}

func TestSyncIncrementalAddsAndNotifies(t *testing.T) {
	f := newFixture(t)
	f.primary.dossiers["25124"] = []string{"kst-25124-1"}
	f.primary.bags["kst-25124-1"] = primaryBag("kst-25124-1", "25124", "1", "2023-05-11", "Brief")

	cfg := &Config{Dossiers: []DossierConfig{{ID: "25124"}}}
	kw := f.watch(t, cfg)
	_, err := kw.Sync(context.Background())
	require.NoError(t, err)
	f.notifier.sent = nil

	// A new paper appears in the global delta.
	f.secondary.bags["kst-25124-2"] = primaryBag("kst-25124-2", "25124", "2", "2023-06-01", "Verslag")
	f.secondary.since = []string{"kst-25124-2"}

	res, err := kw.Sync(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, res.Dossiers["25124"].Added)
	require.Len(t, f.notifier.sent, 1)
	assert.Contains(t, f.notifier.sent[0], "kst-25124-2")
	assert.Contains(t, f.downloader.files, "25124/2023-06-01-kst-25124-2.pdf")
	assert.NotEmpty(t, res.Dossiers["25124"].ArchivePath)
}

func TestSyncIncrementalAttachesSecondaryWithoutNotifying(t *testing.T) {
	f := newFixture(t)
	f.primary.dossiers["25124"] = []string{"kst-25124-84"}
	f.primary.bags["kst-25124-84"] = primaryBag("kst-25124-84", "25124", "84", "2023-05-11", "Brief")

	cfg := &Config{Dossiers: []DossierConfig{{ID: "25124"}}}
	kw := f.watch(t, cfg)
	_, err := kw.Sync(context.Background())
	require.NoError(t, err)
	f.notifier.sent = nil

	// An enactment amending kst-25124-84 appears in the secondary delta.
	f.secondary.bags["stb-2023-145"] = secondaryBag("stb-2023-145", "2023-07-01", "25124;84")
	f.secondary.secondarySince = []string{"stb-2023-145"}

	res, err := kw.Sync(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, res.Dossiers["25124"].Added)
	assert.Equal(t, 1, res.Dossiers["25124"].Attached)
	assert.Empty(t, f.notifier.sent, "attachments must not notify")
	assert.Contains(t, f.downloader.files, "25124/2023-05-11-kst-25124-84-stb-2023-145.pdf")
}

func TestSyncNewTermBackfill(t *testing.T) {
	f := newFixture(t)
	f.primary.dossiers["25124"] = nil

	cfg := &Config{Dossiers: []DossierConfig{{ID: "25124"}}}
	kw := f.watch(t, cfg)
	_, err := kw.Sync(context.Background())
	require.NoError(t, err)

	// The dossier gains a search term; its historical hits must be swept
	// once even though they predate the baseline.
	f.secondary.bags["kst-25124-7"] = primaryBag("kst-25124-7", "25124", "7", "2020-01-15", "Motie")
	f.secondary.byTerm["frequentiebeleid"] = []string{"kst-25124-7"}

	cfg2 := &Config{Dossiers: []DossierConfig{{ID: "25124", Terms: []string{"frequentiebeleid"}}}}
	kw2 := f.watch(t, cfg2)

	res, err := kw2.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Dossiers["25124"].Added)

	// The sweep is one-time: a rerun with the same terms adds nothing.
	res2, err := kw2.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, res2.Dossiers["25124"].Added)
}

func TestSyncDropsUnconfiguredCollectionKeepsSummary(t *testing.T) {
	f := newFixture(t)
	f.primary.dossiers["25124"] = []string{"kst-25124-1"}
	f.primary.bags["kst-25124-1"] = primaryBag("kst-25124-1", "25124", "1", "2023-05-11", "Brief")

	kw := f.watch(t, &Config{Dossiers: []DossierConfig{{ID: "25124"}}})
	_, err := kw.Sync(context.Background())
	require.NoError(t, err)

	kw2 := f.watch(t, &Config{})
	_, err = kw2.Sync(context.Background())
	require.NoError(t, err)

	snap := snapshot.Load(f.dirs.snapshot)
	_, hasCollection := snap.Collection("25124")
	assert.False(t, hasCollection)
	_, hasSummary := snap.Summaries.Get("25124")
	assert.True(t, hasSummary)
}

func TestSyncRejectsConcurrentRun(t *testing.T) {
	f := newFixture(t)
	f.primary.started = make(chan struct{})
	f.primary.release = make(chan struct{})

	kw := f.watch(t, &Config{Dossiers: []DossierConfig{{ID: "25124"}}})

	done := make(chan error, 1)
	go func() {
		_, err := kw.Sync(context.Background())
		done <- err
	}()

	<-f.primary.started
	_, err := kw.Sync(context.Background())
	assert.ErrorIs(t, err, errors.ErrSyncInProgress)

	close(f.primary.release)
	require.NoError(t, <-done)
}

func TestSyncAlwaysAdvancesBaseline(t *testing.T) {
	f := newFixture(t)

	day1 := time.Date(2023, 5, 1, 12, 0, 0, 0, time.UTC)
	day2 := time.Date(2023, 5, 2, 12, 0, 0, 0, time.UTC)
	clock := day1
	kw := f.watch(t, &Config{Dossiers: []DossierConfig{{ID: "25124"}}},
		WithClock(func() time.Time { return clock }))

	_, err := kw.Sync(context.Background())
	require.NoError(t, err)

	clock = day2
	res, err := kw.Sync(context.Background())
	require.NoError(t, err)

	// A run with zero changes still moves the baseline forward.
	assert.False(t, res.Changed())
	assert.Equal(t, day1, res.Since)
	assert.Equal(t, day2, snapshot.Load(f.dirs.snapshot).Since())
}

func TestSyncIncrementalMergesStrayAttachmentHit(t *testing.T) {
	f := newFixture(t)
	f.primary.dossiers["25124"] = []string{"kst-25124-84"}
	f.primary.bags["kst-25124-84"] = primaryBag("kst-25124-84", "25124", "84", "2023-05-11", "Brief")

	cfg := &Config{Dossiers: []DossierConfig{{ID: "25124"}}}
	kw := f.watch(t, cfg)
	_, err := kw.Sync(context.Background())
	require.NoError(t, err)
	f.notifier.sent = nil

	// A bare attachment shows up in the delta; its metadata names the
	// paper it belongs to.
	blg := sources.RawMetadata{}
	blg.Add(sources.KeyID, "blg-100")
	blg.Add("OVERHEIDop.dossiernummer", "25124")
	blg.Add("OVERHEIDop.ondernummer", "84")
	blg.Add("DCTERMS.available", "2023-06-01")
	blg.Add("OVERHEIDop.documenttitel", "Onderzoeksrapport")
	f.secondary.bags["blg-100"] = blg
	f.secondary.since = []string{"blg-100"}

	res, err := kw.Sync(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, res.Dossiers["25124"].Added)
	assert.Equal(t, 1, res.Dossiers["25124"].Attached)
	assert.Empty(t, f.notifier.sent)

	snap := snapshot.Load(f.dirs.snapshot)
	col, ok := snap.Collection("25124")
	require.True(t, ok)
	owner, ok := col.Get("kst-25124-84")
	require.True(t, ok)
	assert.Equal(t, "Onderzoeksrapport", owner.Attachments["blg-100"])
}

func TestSyncCountFallsBackToRepository(t *testing.T) {
	f := newFixture(t)
	f.primary.dossiers["25124"] = []string{"kst-25124-1"}
	f.primary.bags["kst-25124-1"] = primaryBag("kst-25124-1", "25124", "1", "2023-05-11", "Brief")
	f.primary.counts["25124"] = 84

	kw := f.watch(t, &Config{Dossiers: []DossierConfig{{ID: "25124"}}})
	_, err := kw.Sync(context.Background())
	require.NoError(t, err)

	sums := kw.Summaries()
	require.Len(t, sums, 1)
	assert.Equal(t, 84, sums[0].ItemCount)
}

func TestSyncRebuildsSummariesFromRegistryListing(t *testing.T) {
	f := newFixture(t)
	f.primary.listing = []string{"25124", "36200"}
	f.primary.dossiers["25124"] = []string{"kst-25124-1", "kst-25124-2"}
	f.primary.bags["kst-25124-1"] = primaryBag("kst-25124-1", "25124", "1", "2023-05-11", "Brief")
	f.primary.bags["kst-25124-2"] = primaryBag("kst-25124-2", "25124", "2", "2023-06-01", "Verslag")
	f.primary.dossiers["36200"] = []string{"kst-36200-1"}
	f.primary.bags["kst-36200-1"] = primaryBag("kst-36200-1", "36200", "1", "2023-09-19", "Nota")
	f.primary.counts["25124"] = 84
	f.primary.counts["36200"] = 12

	// No configured dossiers: the summaries still cover the whole
	// registry listing after a fresh start.
	kw := f.watch(t, &Config{})
	res, err := kw.Sync(context.Background())
	require.NoError(t, err)

	assert.True(t, res.SummariesRebuilt)
	assert.True(t, res.OverviewWritten)
	assert.Empty(t, res.NewSummaries, "rebuilt summaries are not new dossiers")
	assert.Empty(t, f.notifier.sent, "a rebuild announces nothing")

	sums := kw.Summaries()
	require.Len(t, sums, 2)
	assert.Equal(t, "25124", sums[0].ID)
	assert.Equal(t, "Telecomdossier", sums[0].Title)
	assert.Equal(t, 84, sums[0].ItemCount)
	assert.Equal(t, "2023-06-01", sums[0].LastItemDateString())
	assert.Equal(t, "36200", sums[1].ID)
	assert.Equal(t, 12, sums[1].ItemCount)

	// The rebuilt store persists: a second run does not rebuild again.
	res2, err := kw.Sync(context.Background())
	require.NoError(t, err)
	assert.False(t, res2.SummariesRebuilt)
}

func TestSyncNewDossierAnnouncedOnlyWithTitle(t *testing.T) {
	f := newFixture(t)
	f.primary.dossiers["25124"] = nil

	kw := f.watch(t, &Config{Dossiers: []DossierConfig{{ID: "25124"}}})
	_, err := kw.Sync(context.Background())
	require.NoError(t, err)
	f.notifier.sent = nil

	// A paper of an unseen dossier appears without a dossier title.
	bag := sources.RawMetadata{}
	bag.Add(sources.KeyID, "kst-36200-1")
	bag.Add("OVERHEIDop.Parlementair", "Kamerstuk")
	bag.Add("OVERHEIDop.dossiernummer", "36200")
	bag.Add("OVERHEIDop.ondernummer", "1")
	bag.Add("DCTERMS.available", "2023-06-01")
	f.secondary.bags["kst-36200-1"] = bag
	f.secondary.since = []string{"kst-36200-1"}

	_, err = kw.Sync(context.Background())
	require.NoError(t, err)
	assert.Empty(t, f.notifier.sent, "untitled dossiers are not announced")

	sums := kw.Summaries()
	require.Len(t, sums, 1)
	assert.Equal(t, "36200", sums[0].ID)
	assert.Empty(t, sums[0].Title)

	// The title arrives on a later run; the announcement follows it.
	bag.Add("OVERHEIDop.dossiertitel", "Miljoenennota")
	_, err = kw.Sync(context.Background())
	require.NoError(t, err)

	require.Len(t, f.notifier.sent, 1)
	assert.Contains(t, f.notifier.sent[0], "36200")
	assert.Contains(t, f.notifier.sent[0], "Miljoenennota")
}

func TestDownloadNameGroupsAttachmentsWithPaper(t *testing.T) {
	available, err := dossiers.ParseDate("2023-05-11")
	require.NoError(t, err)
	pub := &dossiers.Publication{
		ID:        "kst-25124-84",
		Kind:      dossiers.KindPrimary,
		Available: &available,
	}

	assert.Equal(t, "2023-05-11-kst-25124-84.pdf", downloadName(pub, pub.ID))
	assert.Equal(t, "2023-05-11-kst-25124-84-blg-100.pdf", downloadName(pub, "blg-100"))

	dateless := &dossiers.Publication{ID: "kst-25124-85", Kind: dossiers.KindPrimary}
	assert.Equal(t, "kst-25124-85-blg-200.pdf", downloadName(dateless, "blg-200"))
}
