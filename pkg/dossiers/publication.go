// Package dossiers provides the record model for parliamentary dossiers:
// publications drawn from two registries, the per-dossier collections that
// own them, and the per-dossier summary aggregates.
//
// Identity is the source-assigned id string. Collections index publications
// by id in a map; two publications are the same record iff their IDs match,
// regardless of other fields, so a record with stale metadata can be
// replaced by a refetch with the same id.
package dossiers

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/kamerwatch/kamerwatch/pkg/logging"
)

// Kind distinguishes the two publication variants.
type Kind string

const (
	// KindPrimary is a parliamentary paper enumerated by the primary
	// registry, the canonical representative of one dossier item.
	KindPrimary Kind = "primary"

	// KindSecondary is a publication from the gazette (an enactment) that
	// may reference one or more dossiers or dossier items.
	KindSecondary Kind = "secondary"
)

// PrimaryIDPrefix is the identifier prefix of primary documents. A composite
// dossier key "dossier;sub" resolves to the primary id
// "kst-{dossier}-{sub}".
const PrimaryIDPrefix = "kst"

// DateFormat is the day-granular date format both registries use for the
// availability date.
const DateFormat = "2006-01-02"

// Publication is one document record from either registry.
type Publication struct {
	// ID is the source-assigned identifier and the identity key.
	ID string `yaml:"id" json:"id"`

	// Kind marks the variant this record was parsed as.
	Kind Kind `yaml:"kind" json:"kind"`

	Title       string `yaml:"title,omitempty" json:"title,omitempty"`
	SessionYear string `yaml:"session_year,omitempty" json:"session_year,omitempty"`
	IssuingBody string `yaml:"issuing_body,omitempty" json:"issuing_body,omitempty"`

	// Available is the registry's availability date. A record without a
	// parseable date is invalid and must never enter a collection.
	Available *time.Time `yaml:"available,omitempty" json:"available,omitempty"`

	// DossierKeys lists the dossier associations the record declares, in
	// source order. For primary records every entry is a bare dossier id.
	// For secondary records an entry is "dossierID" or
	// "dossierID;subNumber". Only the first key is treated as primary for
	// display; all are consulted for linking.
	DossierKeys []string `yaml:"dossier_keys,omitempty" json:"dossier_keys,omitempty"`

	// SubNumber distinguishes this record among others in the same
	// dossier and participates in composite-key linking.
	SubNumber string `yaml:"sub_number,omitempty" json:"sub_number,omitempty"`

	// Attachments maps attachment identifier to attachment title. The
	// title is empty until resolved; resolution is a separate phase
	// because it costs one fetch per attachment.
	Attachments map[string]string `yaml:"attachments,omitempty" json:"attachments,omitempty"`
}

// HasDate reports whether the record carries a parseable availability date.
// Records without one are invalid and are discarded by callers.
func (p *Publication) HasDate() bool {
	return p != nil && p.Available != nil
}

// AvailableString returns the availability date in registry format, or the
// empty string for an invalid record.
func (p *Publication) AvailableString() string {
	if !p.HasDate() {
		return ""
	}
	return p.Available.Format(DateFormat)
}

// PrimaryDossier returns the dossier id of the first declared dossier key,
// the one used for display and summary bookkeeping.
func (p *Publication) PrimaryDossier() string {
	if len(p.DossierKeys) == 0 {
		return ""
	}
	id, _ := SplitDossierKey(p.DossierKeys[0])
	return id
}

// HasDossier reports whether any declared dossier key names the dossier.
func (p *Publication) HasDossier(dossierID string) bool {
	for _, key := range p.DossierKeys {
		if id, _ := SplitDossierKey(key); id == dossierID {
			return true
		}
	}
	return false
}

// AddAttachment records an attachment identifier with its title, first-seen
// wins: an already-known identifier keeps its existing entry. Returns true
// when the identifier was new.
func (p *Publication) AddAttachment(id, title string) bool {
	if p.Attachments == nil {
		p.Attachments = make(map[string]string)
	}
	if _, ok := p.Attachments[id]; ok {
		return false
	}
	p.Attachments[id] = title
	return true
}

// AttachmentIDs returns the attachment identifiers in deterministic order.
func (p *Publication) AttachmentIDs() []string {
	ids := make([]string, 0, len(p.Attachments))
	for id := range p.Attachments {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// TitleFetcher retrieves the title of a single attachment identifier.
type TitleFetcher func(ctx context.Context, attachmentID string) (string, error)

// ResolveAttachmentTitles fills unresolved attachment titles in place, one
// fetch per unresolved identifier. A title that cannot be resolved is logged
// and left unresolved; resolution never invalidates the owning record.
func (p *Publication) ResolveAttachmentTitles(ctx context.Context, fetch TitleFetcher) {
	for _, id := range p.AttachmentIDs() {
		if p.Attachments[id] != "" {
			continue
		}
		title, err := fetch(ctx, id)
		if err != nil {
			logging.Warn().
				Str("publication", p.ID).
				Str("attachment", id).
				Err(err).
				Msg("No title for attachment")
			continue
		}
		p.Attachments[id] = title
	}
}

// Less orders publications for display: availability date descending, ties
// broken by id ascending for determinism.
func (p *Publication) Less(other *Publication) bool {
	switch {
	case p.HasDate() && !other.HasDate():
		return true
	case !p.HasDate() && other.HasDate():
		return false
	case p.HasDate() && other.HasDate() && !p.Available.Equal(*other.Available):
		return p.Available.After(*other.Available)
	default:
		return p.ID < other.ID
	}
}

// SplitDossierKey splits a dossier key into dossier id and optional
// sub-number. "25124;84" yields ("25124", "84"); "25124" yields
// ("25124", "").
func SplitDossierKey(key string) (dossierID, subNumber string) {
	parts := strings.SplitN(key, ";", 2)
	dossierID = strings.TrimSpace(parts[0])
	if len(parts) == 2 {
		subNumber = strings.TrimSpace(parts[1])
	}
	return dossierID, subNumber
}

// PrimaryID derives the candidate primary-record id for a composite
// dossier-id + sub-number pair.
func PrimaryID(dossierID, subNumber string) string {
	return fmt.Sprintf("%s-%s-%s", PrimaryIDPrefix, dossierID, subNumber)
}

// ParseDate parses a registry availability date. The registries report
// day-granular civil dates; they are stored at UTC midnight.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateFormat, strings.TrimSpace(s), time.UTC)
}
