// Package snapshot persists the engine's state between runs as two
// independently versioned YAML stores: the document collections store and
// the summaries store.
//
// A store that is absent, unreadable, or carries an unknown schema version
// is not an error — it signals "rebuild from scratch" for that store only.
// The two stores may therefore be at different ages; the effective since
// timestamp for an incremental run is the older of the two stores' recorded
// run times, so a gap in either store cannot cause missed deltas.
package snapshot

import (
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/kamerwatch/kamerwatch/pkg/dossiers"
	"github.com/kamerwatch/kamerwatch/pkg/errors"
	"github.com/kamerwatch/kamerwatch/pkg/logging"
)

// Version is the schema version both stores are written with. Loading any
// other version rebuilds the store.
const Version = 1

// Store file names inside the snapshot directory.
const (
	CollectionsFile = "collections.yaml"
	SummariesFile   = "summaries.yaml"
)

const filePermissions = 0o644

// collectionsStore is the on-disk layout of the collections store.
type collectionsStore struct {
	Version  int                             `yaml:"version"`
	LastRun  time.Time                       `yaml:"last_run"`
	Dossiers map[string]*dossiers.Collection `yaml:"dossiers"`
}

// summariesStore is the on-disk layout of the summaries store.
type summariesStore struct {
	Version   int                `yaml:"version"`
	LastRun   time.Time          `yaml:"last_run"`
	Summaries dossiers.Summaries `yaml:"summaries"`
}

// Snapshot is the full persisted state: per-dossier collections, per-dossier
// summaries, and each store's last successful run time. It is exclusively
// owned by the sync controller for the duration of a run.
type Snapshot struct {
	dir string

	// Collections maps dossier id to its document collection. Only
	// configured dossiers have collections.
	Collections map[string]*dossiers.Collection

	// Summaries tracks every dossier ever seen.
	Summaries dossiers.Summaries

	collectionsRun time.Time
	summariesRun   time.Time

	collectionsRebuilt bool
	summariesRebuilt   bool
}

// Load reads both stores from dir. Load never fails: each store that cannot
// be read is replaced by an empty rebuilt one with a warning.
func Load(dir string) *Snapshot {
	s := &Snapshot{
		dir:         dir,
		Collections: make(map[string]*dossiers.Collection),
		Summaries:   make(dossiers.Summaries),
	}

	var cols collectionsStore
	if ok := loadStore(filepath.Join(dir, CollectionsFile), &cols); ok && cols.Version == Version {
		if cols.Dossiers != nil {
			s.Collections = cols.Dossiers
		}
		s.collectionsRun = cols.LastRun
	} else {
		if ok {
			logging.Warn().
				Int("version", cols.Version).
				Str("store", CollectionsFile).
				Msg("Unknown store version, rebuilding")
		}
		s.collectionsRebuilt = true
	}

	var sums summariesStore
	if ok := loadStore(filepath.Join(dir, SummariesFile), &sums); ok && sums.Version == Version {
		if sums.Summaries != nil {
			s.Summaries = sums.Summaries
		}
		s.summariesRun = sums.LastRun
	} else {
		if ok {
			logging.Warn().
				Int("version", sums.Version).
				Str("store", SummariesFile).
				Msg("Unknown store version, rebuilding")
		}
		s.summariesRebuilt = true
	}

	return s
}

// loadStore reads one YAML store into out. Returns false when the store is
// absent or unreadable, which callers treat as rebuild-from-scratch.
func loadStore(path string, out any) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logging.Warn().Str("store", path).Err(err).Msg("Unreadable store, rebuilding")
		}
		return false
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		logging.Warn().Str("store", path).Err(err).Msg("Corrupt store, rebuilding")
		return false
	}
	return true
}

// CollectionsRebuilt reports whether the collections store started empty
// this run, which forces the full-bootstrap path for every configured
// dossier.
func (s *Snapshot) CollectionsRebuilt() bool {
	return s.collectionsRebuilt
}

// SummariesRebuilt reports whether the summaries store started empty.
func (s *Snapshot) SummariesRebuilt() bool {
	return s.summariesRebuilt
}

// Since returns the effective since timestamp for incremental fetching: the
// older of the two stores' last run times. The zero time means no
// incremental baseline exists.
func (s *Snapshot) Since() time.Time {
	if s.collectionsRebuilt {
		return time.Time{}
	}
	if s.summariesRebuilt || s.summariesRun.IsZero() {
		return s.collectionsRun
	}
	if s.summariesRun.Before(s.collectionsRun) {
		return s.summariesRun
	}
	return s.collectionsRun
}

// Collection returns the collection for a dossier, if present.
func (s *Snapshot) Collection(dossierID string) (*dossiers.Collection, bool) {
	col, ok := s.Collections[dossierID]
	return col, ok
}

// SetCollection stores a dossier's collection.
func (s *Snapshot) SetCollection(col *dossiers.Collection) {
	s.Collections[col.DossierID] = col
}

// DropCollection removes a dossier's collection. Its summary is retained:
// summaries track all dossiers ever seen, collections only configured ones.
func (s *Snapshot) DropCollection(dossierID string) {
	delete(s.Collections, dossierID)
}

// Save writes both stores atomically with runTime recorded as the last
// successful run. It is called at the end of every successful run even when
// nothing changed, so the since timestamp always advances.
func (s *Snapshot) Save(runTime time.Time) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return errors.WrapIO("create", s.dir, err)
	}

	cols := collectionsStore{Version: Version, LastRun: runTime, Dossiers: s.Collections}
	if err := writeStore(filepath.Join(s.dir, CollectionsFile), &cols); err != nil {
		return err
	}

	sums := summariesStore{Version: Version, LastRun: runTime, Summaries: s.Summaries}
	if err := writeStore(filepath.Join(s.dir, SummariesFile), &sums); err != nil {
		return err
	}

	s.collectionsRun = runTime
	s.summariesRun = runTime
	return nil
}

// writeStore marshals a store and writes it via temp-file-plus-rename so a
// crash mid-write never corrupts the previous store.
func writeStore(path string, store any) error {
	data, err := yaml.Marshal(store)
	if err != nil {
		return errors.WrapParse("yaml", path, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return errors.WrapIO("create", path, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.WrapIO("write", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.WrapIO("close", tmpName, err)
	}
	if err := os.Chmod(tmpName, filePermissions); err != nil {
		os.Remove(tmpName)
		return errors.WrapIO("chmod", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return errors.WrapIO("rename", path, err)
	}
	return nil
}
