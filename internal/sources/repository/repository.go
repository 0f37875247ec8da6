// Package repository implements the primary registry adapter: the document
// repository that enumerates every parliamentary paper belonging to a
// dossier and serves per-document metadata.
//
// The repository is used for initial enumeration because the gazette's
// search output is both incomplete (papers exist here that its index never
// returns) and capped, while this registry's paged XML listing is complete.
package repository

import (
	"context"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/kamerwatch/kamerwatch/internal/sources/metadata"
	"github.com/kamerwatch/kamerwatch/internal/transport"
	"github.com/kamerwatch/kamerwatch/pkg/dossiers"
	"github.com/kamerwatch/kamerwatch/pkg/errors"
	"github.com/kamerwatch/kamerwatch/pkg/logging"
	"github.com/kamerwatch/kamerwatch/pkg/sources"
)

// DefaultBaseURL is the production endpoint for parliamentary papers.
const DefaultBaseURL = "https://repository.overheid.nl/frbr/officielepublicaties/kst/"

// Source is the repository adapter.
type Source struct {
	client  *transport.Client
	baseURL string
}

// Option configures the adapter.
type Option func(*Source)

// WithBaseURL overrides the registry endpoint, mainly for tests.
func WithBaseURL(url string) Option {
	return func(s *Source) {
		if !strings.HasSuffix(url, "/") {
			url += "/"
		}
		s.baseURL = url
	}
}

// New creates a repository adapter on the given transport.
func New(client *transport.Client, opts ...Option) *Source {
	s := &Source{
		client:  client,
		baseURL: DefaultBaseURL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ID implements sources.Source.
func (s *Source) ID() sources.ID {
	return sources.RepositoryID
}

// listing is the paged XML enumeration format: nested subareas carrying
// paging attributes, each dossier subarea listing its work identifiers.
type listing struct {
	Subareas []subarea `xml:"subarea"`
}

type subarea struct {
	Label    string    `xml:"label,attr"`
	PageSize int       `xml:"pagesize,attr"`
	Total    int       `xml:"total,attr"`
	Text     string    `xml:",chardata"`
	Works    []string  `xml:"work"`
	Subareas []subarea `xml:"subarea"`
}

// id returns the dossier number a listing entry names: the label attribute
// where present, the element text otherwise. The registry uses both forms.
func (s *subarea) id() string {
	if s.Label != "" {
		return s.Label
	}
	return strings.TrimSpace(s.Text)
}

// last returns the innermost trailing subarea, which carries the paging
// attributes for the requested level.
func (l *listing) last() (*subarea, bool) {
	if len(l.Subareas) == 0 {
		return nil, false
	}
	sub := &l.Subareas[len(l.Subareas)-1]
	for len(sub.Subareas) > 0 {
		sub = &sub.Subareas[len(sub.Subareas)-1]
	}
	return sub, true
}

func (l *listing) works() []string {
	var out []string
	var walk func(subs []subarea)
	walk = func(subs []subarea) {
		for i := range subs {
			for _, w := range subs[i].Works {
				if w = strings.TrimSpace(w); w != "" {
					out = append(out, w)
				}
			}
			walk(subs[i].Subareas)
		}
	}
	walk(l.Subareas)
	return out
}

// EnumerateDossier implements sources.Source: every work identifier the
// repository holds for the dossier, across all listing pages.
func (s *Source) EnumerateDossier(ctx context.Context, dossierID string) ([]string, error) {
	seen := make(map[string]struct{})
	var ids []string

	start, total := 1, 2
	pages := 0
	for start < total {
		url := fmt.Sprintf("%s%s/?start=%d&format=xml", s.baseURL, dossierID, start)
		body, err := s.client.Get(ctx, url)
		if err != nil {
			return nil, err
		}

		var page listing
		if err := xml.Unmarshal(body, &page); err != nil {
			return nil, errors.WrapParse("xml", url, err)
		}
		paging, ok := page.last()
		if !ok || paging.PageSize <= 0 {
			return nil, errors.NewParseError("xml", url, "listing without paging subarea", nil)
		}
		total = paging.Total

		for _, work := range page.works() {
			if _, dup := seen[work]; !dup {
				seen[work] = struct{}{}
				ids = append(ids, work)
			}
		}

		start += paging.PageSize
		pages++
	}

	logging.Debug().
		Str("dossier", dossierID).
		Int("pages", pages).
		Int("works", len(ids)).
		Msg("Enumerated dossier from repository")
	return ids, nil
}

// ListDossiers implements sources.Lister: every dossier number in the
// registry, from the paged top-level listing.
func (s *Source) ListDossiers(ctx context.Context) ([]string, error) {
	seen := make(map[string]struct{})
	var ids []string

	start, total := 1, 2
	pages := 0
	for start < total {
		url := fmt.Sprintf("%s?start=%d&format=xml", s.baseURL, start)
		body, err := s.client.Get(ctx, url)
		if err != nil {
			return nil, err
		}

		var page listing
		if err := xml.Unmarshal(body, &page); err != nil {
			return nil, errors.WrapParse("xml", url, err)
		}
		if len(page.Subareas) == 0 || page.Subareas[0].PageSize <= 0 {
			return nil, errors.NewParseError("xml", url, "listing without paging subarea", nil)
		}
		area := &page.Subareas[0]
		total = area.Total

		for i := range area.Subareas {
			id := area.Subareas[i].id()
			if id == "" {
				continue
			}
			if _, dup := seen[id]; !dup {
				seen[id] = struct{}{}
				ids = append(ids, id)
			}
		}

		start += area.PageSize
		pages++
	}

	logging.Debug().
		Int("pages", pages).
		Int("dossiers", len(ids)).
		Msg("Listed dossiers from repository")
	return ids, nil
}

// Count implements sources.Counter: the total attribute of the dossier's
// own subarea in the first listing page.
func (s *Source) Count(ctx context.Context, dossierID string) (int, bool) {
	url := fmt.Sprintf("%s%s/?format=xml", s.baseURL, dossierID)
	body, err := s.client.Get(ctx, url)
	if err != nil {
		logging.Warn().Str("dossier", dossierID).Err(err).Msg("No item count from repository")
		return 0, false
	}

	var page listing
	if err := xml.Unmarshal(body, &page); err != nil {
		logging.Warn().Str("dossier", dossierID).Err(err).Msg("Unparsable repository listing")
		return 0, false
	}

	var find func(subs []subarea) (int, bool)
	find = func(subs []subarea) (int, bool) {
		for i := range subs {
			if subs[i].Label == dossierID {
				return subs[i].Total, true
			}
			if n, ok := find(subs[i].Subareas); ok {
				return n, ok
			}
		}
		return 0, false
	}
	return find(page.Subareas)
}

// FetchByID implements sources.Source. The repository addresses metadata by
// dossier and work id, both recoverable from the document identifier.
func (s *Source) FetchByID(ctx context.Context, id string) (sources.RawMetadata, error) {
	dossierID, err := dossierOf(id)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s%s/%s/1/metadata/metadata.xml", s.baseURL, dossierID, id)
	body, err := s.client.Get(ctx, url)
	if err != nil {
		return nil, err
	}

	raw, err := metadata.Parse(body)
	if err != nil {
		return nil, errors.WrapParse("xml", url, err)
	}
	raw.Add(sources.KeyID, id)
	return raw, nil
}

// Search implements sources.Source. The repository exposes no search
// endpoint; searching is the gazette's job.
func (s *Source) Search(_ context.Context, _ sources.Criteria) ([]sources.RawMetadata, error) {
	return nil, fmt.Errorf("repository search: %w", errors.ErrNotSupported)
}

// dossierOf recovers the dossier number from a primary document id such as
// kst-25124-84 or kst-25124-84-h1.
func dossierOf(id string) (string, error) {
	parts := strings.Split(id, "-")
	if len(parts) < 3 || parts[0] != dossiers.PrimaryIDPrefix {
		return "", errors.NewUnknownDocumentTypeError(id, "")
	}
	return parts[1], nil
}
