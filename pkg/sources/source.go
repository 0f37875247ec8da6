// Package sources defines interfaces and types for registry data sources.
// Sources are responsible for fetching publication metadata from the two
// public registries the engine consumes: the document repository that
// enumerates parliamentary papers per dossier, and the gazette search portal
// that covers search, secondary publications and item counts.
//
// The package provides a unified interface so the sync engine never depends
// on either registry's wire format. Adapters return RawMetadata bags; the
// record model owns turning a bag into a Publication.
//
// Example usage:
//
//	raw, err := src.FetchByID(ctx, "kst-25124-84")
//	if err != nil {
//	    return err
//	}
//	pub, err := dossiers.ParsePrimary(raw)
package sources

import (
	"context"
	"slices"
	"time"
)

// ID represents the identifier of a registry data source.
type ID string

// String returns the string representation of a source ID.
func (id ID) String() string {
	return string(id)
}

// Common source IDs.
const (
	// RepositoryID is the primary registry: the document repository that
	// enumerates all parliamentary papers belonging to a dossier.
	RepositoryID ID = "repository"

	// GazetteID is the secondary registry: the official gazette search
	// portal used for incremental searches, secondary publications and
	// authoritative item counts.
	GazetteID ID = "gazette"
)

// IDs returns all defined source IDs.
func IDs() []ID {
	return []ID{RepositoryID, GazetteID}
}

// IsValid returns true if the ID is one of the defined constants.
func (id ID) IsValid() bool {
	return slices.Contains(IDs(), id)
}

// KeyID is the reserved RawMetadata key under which an adapter records the
// source-assigned identifier of the document the bag describes.
const KeyID = "_id"

// RawMetadata is an opaque key-value bag of metadata attributes as returned
// by a registry. Keys may repeat upstream, so every key maps to the ordered
// list of observed values.
type RawMetadata map[string][]string

// First returns the first value for key and whether the key is present with
// at least one value. This is the typed optional-field accessor the record
// model builds on: absence is reported explicitly, never by panic.
func (m RawMetadata) First(key string) (string, bool) {
	vals, ok := m[key]
	if !ok || len(vals) == 0 {
		return "", false
	}
	return vals[0], true
}

// All returns every value recorded for key, in observation order.
func (m RawMetadata) All(key string) []string {
	return m[key]
}

// Add appends a value under key.
func (m RawMetadata) Add(key, value string) {
	m[key] = append(m[key], value)
}

// ID returns the source-assigned document identifier, if recorded.
func (m RawMetadata) ID() string {
	id, _ := m.First(KeyID)
	return id
}

// Criteria describes one search against a source. Exactly one of Term,
// DossierID and Since must be set; the adapter handles pagination internally
// and returns the complete finite result set.
type Criteria struct {
	// Term is a free-text search term.
	Term string

	// DossierID restricts results to publications declaring the dossier.
	DossierID string

	// Since restricts results to publications available on or after the
	// given date.
	Since time.Time
}

// IsZero reports whether no criterion is set.
func (c Criteria) IsZero() bool {
	return c.Term == "" && c.DossierID == "" && c.Since.IsZero()
}

// Source represents a registry data source.
//
// All operations are synchronous and sequential by contract: the registries
// reset connections under concurrent load, so callers must not fan out.
type Source interface {
	// ID returns the identifier of this source.
	ID() ID

	// FetchByID retrieves the metadata bag for a single document
	// identifier. A missing document yields an error matching
	// errors.ErrNotFound.
	FetchByID(ctx context.Context, id string) (RawMetadata, error)

	// Search returns metadata bags for every document matching the
	// criteria. Results are not pre-filtered by dossier; callers filter
	// on the parsed record's dossier keys.
	Search(ctx context.Context, c Criteria) ([]RawMetadata, error)

	// EnumerateDossier returns the identifiers of every document the
	// source holds for the dossier.
	EnumerateDossier(ctx context.Context, dossierID string) ([]string, error)
}

// Counter is implemented by sources that expose an authoritative per-dossier
// item count. The count endpoint, not collection length, is the source of
// truth for summary statistics.
type Counter interface {
	// Count returns the number of items the source reports for the
	// dossier, and false when the count could not be determined.
	Count(ctx context.Context, dossierID string) (int, bool)
}

// Lister is implemented by sources that can enumerate every dossier the
// registry holds. The engine uses it to rebuild a lost summaries store so
// the overview keeps covering all dossiers, not only configured ones.
type Lister interface {
	// ListDossiers returns the identifiers of all dossiers in the
	// registry, across all listing pages.
	ListDossiers(ctx context.Context) ([]string, error)
}

// SecondarySearcher is implemented by sources that can search secondary
// (enactment) publications in addition to parliamentary papers.
type SecondarySearcher interface {
	// SearchSecondary returns metadata bags for secondary publications
	// matching the criteria.
	SearchSecondary(ctx context.Context, c Criteria) ([]RawMetadata, error)
}

// PrimarySource combines the operations the sync engine needs from the
// primary registry: complete enumeration, an item count, and the full
// dossier listing.
type PrimarySource interface {
	Source
	Counter
	Lister
}

// SecondarySource combines the operations the sync engine needs from the
// gazette: search over both publication kinds, metadata by identifier, and
// the authoritative item count.
type SecondarySource interface {
	Source
	SecondarySearcher
	Counter
}
