// Package linker implements the linking and deduplication engine: given a
// batch of freshly observed publications and a target dossier, it decides
// set membership and cross-links between secondary publications and the
// primary documents they amend.
//
// The engine is pure: it mutates only the collection it is handed and
// reports every effect in a Result, so callers can trigger downstream side
// effects (downloads, notifications, archiving) on real additions only.
package linker

import (
	"github.com/kamerwatch/kamerwatch/pkg/dossiers"
	"github.com/kamerwatch/kamerwatch/pkg/logging"
)

// Result reports the effects of one linking pass over a batch.
type Result struct {
	// Added lists publications added as standalone collection members,
	// in batch order. Notifications fire once per entry.
	Added []*dossiers.Publication

	// Attached maps primary-record id to the attachment identifiers
	// newly merged into that record's attachment map.
	Attached map[string][]string
}

// Changed reports whether the pass produced any real addition or
// attachment-map mutation.
func (r *Result) Changed() bool {
	return len(r.Added) > 0 || len(r.Attached) > 0
}

// AttachedCount returns the total number of newly attached identifiers.
func (r *Result) AttachedCount() int {
	n := 0
	for _, ids := range r.Attached {
		n += len(ids)
	}
	return n
}

func (r *Result) recordAttachment(primaryID, attachmentID string) {
	if r.Attached == nil {
		r.Attached = make(map[string][]string)
	}
	r.Attached[primaryID] = append(r.Attached[primaryID], attachmentID)
}

// Link merges a batch of freshly observed publications into the collection
// of the target dossier.
//
// Primary records whose dossier keys include the target dossier become
// standalone members unless a member with the same id already exists;
// identity dedup never shrinks or replaces, and a duplicate's attachment
// identifiers are unioned into the existing member in place.
//
// Secondary records are resolved per composite key: a key
// "dossier;subNumber" naming the target dossier derives the candidate
// primary id and, when that primary is a member, attaches the secondary
// record into its attachment map instead of adding it standalone. A key
// without sub-number, or a composite key whose primary is not present
// locally, falls back to standalone addition — the gazette sometimes
// references papers the repository has not served yet.
//
// Records without an availability date never enter the collection.
func Link(col *dossiers.Collection, dossierID string, batch []*dossiers.Publication) *Result {
	result := &Result{}

	for _, pub := range batch {
		if pub == nil {
			continue
		}
		if !pub.HasDate() {
			logging.Warn().
				Str("dossier", dossierID).
				Str("publication", pub.ID).
				Msg("Record without availability date discarded")
			continue
		}

		switch pub.Kind {
		case dossiers.KindSecondary:
			linkSecondary(col, dossierID, pub, result)
		default:
			linkPrimary(col, dossierID, pub, result)
		}
	}

	return result
}

func linkPrimary(col *dossiers.Collection, dossierID string, pub *dossiers.Publication, result *Result) {
	if !pub.HasDossier(dossierID) {
		return
	}

	if existing, ok := col.Get(pub.ID); ok {
		// Same identity: refresh the attachment map in place,
		// first-seen-wins, counting only genuinely new identifiers.
		for id, title := range pub.Attachments {
			if existing.AddAttachment(id, title) {
				result.recordAttachment(existing.ID, id)
			}
		}
		return
	}

	if col.Add(pub) {
		result.Added = append(result.Added, pub)
	}
}

func linkSecondary(col *dossiers.Collection, dossierID string, pub *dossiers.Publication, result *Result) {
	standalone := false

	for _, key := range pub.DossierKeys {
		keyDossier, subNumber := dossiers.SplitDossierKey(key)
		if keyDossier != dossierID {
			continue
		}
		standalone = true

		if subNumber == "" {
			continue
		}

		primaryID := dossiers.PrimaryID(keyDossier, subNumber)
		primary, ok := col.Get(primaryID)
		if !ok {
			// Linking miss: the referenced paper is not present
			// locally, keep the standalone fallback.
			logging.Debug().
				Str("dossier", dossierID).
				Str("publication", pub.ID).
				Str("primary", primaryID).
				Msg("No primary record for composite key, falling back to standalone")
			continue
		}

		if primary.AddAttachment(pub.ID, pub.Title) {
			result.recordAttachment(primary.ID, pub.ID)
		}
		standalone = false
	}

	if standalone {
		if col.Add(pub) {
			result.Added = append(result.Added, pub)
		}
	}
}
