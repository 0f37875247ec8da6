// Package gazette implements the secondary registry adapter: the official
// gazette search portal. It covers everything the repository cannot:
// free-text and since-date searches, secondary (enactment) publications,
// per-document metadata by bare identifier, and the authoritative
// per-dossier item count.
//
// The portal has no machine API for large result sets, so result pages are
// fetched as HTML and mined for download links and the result-count header.
package gazette

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/kamerwatch/kamerwatch/internal/sources/metadata"
	"github.com/kamerwatch/kamerwatch/internal/transport"
	"github.com/kamerwatch/kamerwatch/pkg/errors"
	"github.com/kamerwatch/kamerwatch/pkg/logging"
	"github.com/kamerwatch/kamerwatch/pkg/sources"
)

// DefaultBaseURL is the production endpoint of the gazette portal.
const DefaultBaseURL = "https://zoek.officielebekendmakingen.nl/"

// maxPerPage is the largest page size the portal accepts.
const maxPerPage = 1000

// Publication names in the portal's query language.
const (
	pubPrimary   = "Kamerstuk"
	pubSecondary = "Staatsblad"
)

// Source is the gazette adapter.
type Source struct {
	client  *transport.Client
	baseURL string
}

// Option configures the adapter.
type Option func(*Source)

// WithBaseURL overrides the portal endpoint, mainly for tests.
func WithBaseURL(u string) Option {
	return func(s *Source) {
		if !strings.HasSuffix(u, "/") {
			u += "/"
		}
		s.baseURL = u
	}
}

// New creates a gazette adapter on the given transport.
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
	return sources.GazetteID
}

// FetchByID implements sources.Source: the portal serves metadata.xml for
// any publication by bare identifier.
func (s *Source) FetchByID(ctx context.Context, id string) (sources.RawMetadata, error) {
	u := fmt.Sprintf("%s%s/metadata.xml", s.baseURL, id)
	body, err := s.client.Get(ctx, u)
	if err != nil {
		return nil, err
	}

	raw, err := metadata.Parse(body)
	if err != nil {
		return nil, errors.WrapParse("xml", u, err)
	}
	raw.Add(sources.KeyID, id)
	return raw, nil
}

// Search implements sources.Source over primary (parliamentary paper)
// publications. Every hit's metadata is fetched individually; the caller
// classifies and filters the resulting bags.
func (s *Source) Search(ctx context.Context, c sources.Criteria) ([]sources.RawMetadata, error) {
	return s.search(ctx, pubPrimary, c)
}

// SearchSecondary returns metadata bags for secondary (enactment)
// publications matching the criteria. A dossier criterion is searched as
// free text: enactments carry no dossier-number index, only their metadata
// declares the linked dossiers.
func (s *Source) SearchSecondary(ctx context.Context, c sources.Criteria) ([]sources.RawMetadata, error) {
	if c.DossierID != "" {
		c = sources.Criteria{Term: c.DossierID}
	}
	return s.search(ctx, pubSecondary, c)
}

func (s *Source) search(ctx context.Context, publication string, c sources.Criteria) ([]sources.RawMetadata, error) {
	ids, err := s.searchIDs(ctx, publication, c)
	if err != nil {
		return nil, err
	}

	raws := make([]sources.RawMetadata, 0, len(ids))
	for _, id := range ids {
		raw, err := s.FetchByID(ctx, id)
		if err != nil {
			if errors.IsDiscardable(err) {
				logging.Warn().Str("publication", id).Err(err).Msg("Skipping unreadable search hit")
				continue
			}
			return nil, err
		}
		raws = append(raws, raw)
	}
	return raws, nil
}

// searchIDs pages through the portal's HTML result list and collects the
// publication identifiers behind the download links.
func (s *Source) searchIDs(ctx context.Context, publication string, c sources.Criteria) ([]string, error) {
	base := s.queryURL(publication, c)

	seen := make(map[string]struct{})
	var ids []string

	page, maxPage := 1, 1
	for page <= maxPage {
		u := fmt.Sprintf("%s&pg=%d&pagina=%d", base, maxPerPage, page)
		body, err := s.client.Get(ctx, u)
		if err != nil {
			return nil, err
		}

		doc, err := html.Parse(strings.NewReader(string(body)))
		if err != nil {
			return nil, errors.WrapParse("html", u, err)
		}

		total := resultCount(doc)
		maxPage = (total + maxPerPage - 1) / maxPerPage
		page++

		for _, id := range downloadIDs(doc) {
			if _, dup := seen[id]; !dup {
				seen[id] = struct{}{}
				ids = append(ids, id)
			}
		}
	}

	logging.Debug().
		Str("publication", publication).
		Int("hits", len(ids)).
		Msg("Gazette search finished")
	return ids, nil
}

// queryURL builds the portal's CQL-flavored result URL for the criteria.
func (s *Source) queryURL(publication string, c sources.Criteria) string {
	q := fmt.Sprintf(`(c.product-area=="officielepublicaties")and(w.publicatienaam==%q)`, publication)
	switch {
	case !c.Since.IsZero():
		q += fmt.Sprintf(`and(dt.available>=%q)`, c.Since.Format("2006-01-02"))
	case c.Term != "":
		q += fmt.Sprintf(`and(cql.textAndIndexes=%q)`, c.Term)
	case c.DossierID != "":
		q += fmt.Sprintf(`and(w.dossiernummer==%q)`, c.DossierID)
	}
	return s.baseURL + "resultaten?q=" + url.QueryEscape(q)
}

// Count implements sources.Counter: the result-count header of a
// dossier-number query. The portal, not local collection length, is the
// source of truth for summary item counts.
func (s *Source) Count(ctx context.Context, dossierID string) (int, bool) {
	u := s.queryURL(pubPrimary, sources.Criteria{DossierID: dossierID})
	body, err := s.client.Get(ctx, u)
	if err != nil {
		logging.Warn().Str("dossier", dossierID).Err(err).Msg("No item count from gazette")
		return 0, false
	}

	doc, err := html.Parse(strings.NewReader(string(body)))
	if err != nil {
		logging.Warn().Str("dossier", dossierID).Err(err).Msg("Unparsable gazette result page")
		return 0, false
	}

	n := resultCount(doc)
	if n < 0 {
		return 0, false
	}
	return n, true
}

// EnumerateDossier implements sources.Source via a dossier-number search.
// The repository is preferred for enumeration; this exists so the engine
// can merge gazette-only hits during bootstrap.
func (s *Source) EnumerateDossier(ctx context.Context, dossierID string) ([]string, error) {
	return s.searchIDs(ctx, pubPrimary, sources.Criteria{DossierID: dossierID})
}

// resultCount extracts the hit count from the result page's header, e.g.
// "Er zijn 84 resultaten". Returns -1 when no header is present, which the
// portal renders for an empty result set.
func resultCount(doc *html.Node) int {
	node := findNode(doc, func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == "span" && hasClass(n, "h1__sub")
	})
	if node == nil {
		return -1
	}

	fields := strings.Fields(text(node))
	if len(fields) < 2 {
		return -1
	}
	n, err := strconv.Atoi(fields[len(fields)-2])
	if err != nil {
		return -1
	}
	return n
}

// downloadIDs collects publication identifiers from the result list's
// download links.
func downloadIDs(doc *html.Node) []string {
	var ids []string
	walkNodes(doc, func(n *html.Node) {
		if n.Type != html.ElementNode || n.Data != "a" {
			return
		}
		if !hasClass(n, "icon--download") || attr(n, "data-nabs-follow") != "false" {
			return
		}
		href := attr(n, "href")
		if strings.HasSuffix(href, ".pdf") {
			ids = append(ids, strings.TrimSuffix(strings.TrimPrefix(href, "/"), ".pdf"))
		}
	})
	return ids
}

func findNode(n *html.Node, match func(*html.Node) bool) *html.Node {
	if match(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findNode(c, match); found != nil {
			return found
		}
	}
	return nil
}

func walkNodes(n *html.Node, visit func(*html.Node)) {
	visit(n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walkNodes(c, visit)
	}
}

func hasClass(n *html.Node, class string) bool {
	for _, f := range strings.Fields(attr(n, "class")) {
		if f == class {
			return true
		}
	}
	return false
}

func attr(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

func text(n *html.Node) string {
	var b strings.Builder
	walkNodes(n, func(c *html.Node) {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	})
	return strings.TrimSpace(b.String())
}
