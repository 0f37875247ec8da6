package dossiers

import (
	"strings"

	"github.com/kamerwatch/kamerwatch/pkg/errors"
	"github.com/kamerwatch/kamerwatch/pkg/sources"
)

// Metadata attribute names as used by both registries. The gazette and the
// repository serve the same metadata.xml vocabulary, which is the one piece
// of consistency between them.
const (
	FieldDocumentType  = "OVERHEIDop.Parlementair"
	FieldDossierNumber = "OVERHEIDop.dossiernummer"
	FieldSubNumber     = "OVERHEIDop.ondernummer"
	FieldSessionYear   = "OVERHEIDop.vergaderjaar"
	FieldDocumentTitle = "OVERHEIDop.documenttitel"
	FieldDossierTitle  = "OVERHEIDop.dossiertitel"
	FieldAttachment    = "OVERHEIDop.bijlage"
	FieldLinkedDossier = "OVERHEIDop.behandeldDossier"
	FieldAvailable     = "DCTERMS.available"
	FieldRelation      = "DCTERMS.relation"
	FieldReplacedBy    = "DCTERMS.isReplacedBy"
	FieldTitle         = "DC.title"
	FieldCreator       = "DC.creator"
)

// Document type values carried by FieldDocumentType.
const (
	DocTypePrimary    = "Kamerstuk"
	DocTypeAttachment = "Bijlage"
)

// ParsePrimary parses a metadata bag into a primary publication.
//
// Required fields: document type (must classify as a parliamentary paper),
// dossier number and availability date. Absence of the first two yields a
// MissingFieldError or UnknownDocumentTypeError; a missing or unparseable
// date yields an InvalidRecordError. All three mark the record as
// discardable, never as run-fatal.
func ParsePrimary(raw sources.RawMetadata) (*Publication, error) {
	id := raw.ID()

	docType, ok := raw.First(FieldDocumentType)
	if !ok {
		return nil, errors.NewMissingFieldError(FieldDocumentType, id)
	}
	if docType != DocTypePrimary {
		return nil, errors.NewUnknownDocumentTypeError(id, docType)
	}

	dossierNumber, ok := raw.First(FieldDossierNumber)
	if !ok {
		return nil, errors.NewMissingFieldError(FieldDossierNumber, id)
	}

	available, ok := raw.First(FieldAvailable)
	if !ok {
		return nil, errors.NewInvalidRecordError(id, "no availability date")
	}
	date, err := ParseDate(available)
	if err != nil {
		return nil, errors.NewInvalidRecordError(id, "unparseable availability date "+available)
	}

	p := &Publication{
		ID:          id,
		Kind:        KindPrimary,
		Available:   &date,
		DossierKeys: splitList(dossierNumber),
		Attachments: make(map[string]string),
	}

	// Sub-number falls back to the id's trailing segment; the registries
	// omit the field on older records but encode it in the id.
	if sub, ok := raw.First(FieldSubNumber); ok {
		p.SubNumber = strings.TrimSpace(sub)
	} else if i := strings.LastIndex(id, "-"); i >= 0 {
		p.SubNumber = id[i+1:]
	}

	// Title falls back to the tail of the generic title field, which
	// prefixes the document title with the dossier title.
	if title, ok := raw.First(FieldDocumentTitle); ok {
		p.Title = strings.TrimSpace(title)
	} else if title, ok := raw.First(FieldTitle); ok {
		p.Title = tailSegment(title)
	}

	if year, ok := raw.First(FieldSessionYear); ok {
		p.SessionYear = strings.TrimSpace(year)
	}
	if body, ok := raw.First(FieldCreator); ok {
		p.IssuingBody = strings.TrimSpace(body)
	}

	// Attachment identifiers come from three generations of linking
	// fields. All are unioned, first-seen-wins, titles unresolved.
	for _, v := range raw.All(FieldAttachment) {
		p.AddAttachment(strings.TrimSpace(v), "")
	}
	for _, v := range raw.All(FieldRelation) {
		p.AddAttachment(tailSegment(v), "")
	}
	for _, v := range raw.All(FieldReplacedBy) {
		p.AddAttachment(tailSegment(v), "")
	}

	return p, nil
}

// ParseSecondary parses a metadata bag into a secondary publication.
//
// Secondary records declare their dossier associations as composite keys
// ("dossier" or "dossier;subNumber") in the linked-dossier field. A record
// without an availability date is invalid and discarded.
func ParseSecondary(raw sources.RawMetadata) (*Publication, error) {
	id := raw.ID()

	available, ok := raw.First(FieldAvailable)
	if !ok {
		return nil, errors.NewInvalidRecordError(id, "no availability date")
	}
	date, err := ParseDate(available)
	if err != nil {
		return nil, errors.NewInvalidRecordError(id, "unparseable availability date "+available)
	}

	p := &Publication{
		ID:          id,
		Kind:        KindSecondary,
		Available:   &date,
		Attachments: make(map[string]string),
	}

	for _, key := range raw.All(FieldLinkedDossier) {
		key = strings.TrimSpace(key)
		if key != "" {
			p.DossierKeys = append(p.DossierKeys, key)
		}
	}

	if title, ok := raw.First(FieldTitle); ok {
		p.Title = strings.TrimSpace(title)
	}
	if body, ok := raw.First(FieldCreator); ok {
		p.IssuingBody = strings.TrimSpace(body)
	}

	return p, nil
}

// ParseAttachment parses a metadata bag for a stray attachment search hit
// into a secondary-shaped record keyed to its parent paper, so the linker
// merges it into the paper's attachment map instead of treating it as a
// member in its own right.
func ParseAttachment(raw sources.RawMetadata) (*Publication, error) {
	id := raw.ID()

	dossierNumber, ok := raw.First(FieldDossierNumber)
	if !ok {
		return nil, errors.NewMissingFieldError(FieldDossierNumber, id)
	}

	available, ok := raw.First(FieldAvailable)
	if !ok {
		return nil, errors.NewInvalidRecordError(id, "no availability date")
	}
	date, err := ParseDate(available)
	if err != nil {
		return nil, errors.NewInvalidRecordError(id, "unparseable availability date "+available)
	}

	p := &Publication{
		ID:          id,
		Kind:        KindSecondary,
		Available:   &date,
		Attachments: make(map[string]string),
	}

	dossiersList := splitList(dossierNumber)
	if len(dossiersList) == 0 {
		return nil, errors.NewMissingFieldError(FieldDossierNumber, id)
	}
	key := dossiersList[0]
	if sub, ok := raw.First(FieldSubNumber); ok {
		key += ";" + strings.TrimSpace(sub)
	}
	p.DossierKeys = []string{key}

	if title, ok := raw.First(FieldDocumentTitle); ok {
		p.Title = strings.TrimSpace(title)
	} else if title, ok := raw.First(FieldTitle); ok {
		p.Title = tailSegment(title)
	}

	return p, nil
}

// splitList splits a ";"-separated metadata value into trimmed entries.
func splitList(s string) []string {
	parts := strings.Split(s, ";")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// tailSegment returns the trimmed segment after the last ";".
func tailSegment(s string) string {
	if i := strings.LastIndex(s, ";"); i >= 0 {
		s = s[i+1:]
	}
	return strings.TrimSpace(s)
}
