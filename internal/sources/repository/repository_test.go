package repository_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kamerwatch/kamerwatch/internal/sources/repository"
	"github.com/kamerwatch/kamerwatch/internal/transport"
	"github.com/kamerwatch/kamerwatch/pkg/dossiers"
	"github.com/kamerwatch/kamerwatch/pkg/errors"
	"github.com/kamerwatch/kamerwatch/pkg/sources"
)

const metadataXML = `<?xml version="1.0" encoding="UTF-8"?>
<metadata_gegevens>
  <metadata name="DC.type" scheme="OVERHEIDop.Parlementair" content="Kamerstuk"/>
  <metadata name="OVERHEIDop.dossiernummer" content="25124"/>
  <metadata name="OVERHEIDop.ondernummer" content="84"/>
  <metadata name="DCTERMS.available" content="2023-05-11"/>
  <metadata name="OVERHEIDop.documenttitel" content="Brief van de minister"/>
  <metadata name="OVERHEIDop.bijlage" content="blg-100"/>
  <metadata name="OVERHEIDop.bijlage" content="blg-200"/>
</metadata_gegevens>`

func listingPage(start, pagesize, total int, works ...string) string {
	body := fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<subareas><subarea label="25124" pagesize="%d" total="%d" start="%d">`, pagesize, total, start)
	for _, w := range works {
		body += "<work>" + w + "</work>"
	}
	return body + "</subarea></subareas>"
}

func TestEnumerateDossierPagination(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("start") {
		case "1":
			fmt.Fprint(w, listingPage(1, 2, 4, "kst-25124-1", "kst-25124-2"))
		case "3":
			fmt.Fprint(w, listingPage(3, 2, 4, "kst-25124-2", "kst-25124-3"))
		default:
			t.Errorf("unexpected start %q", r.URL.Query().Get("start"))
		}
	}))
	defer srv.Close()

	src := repository.New(transport.New(), repository.WithBaseURL(srv.URL))
	ids, err := src.EnumerateDossier(context.Background(), "25124")
	require.NoError(t, err)

	// Overlapping pages are deduplicated while preserving order.
	assert.Equal(t, []string{"kst-25124-1", "kst-25124-2", "kst-25124-3"}, ids)
}

func dossierListingPage(start, pagesize, total int, dossiers ...string) string {
	body := fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<subareas><subarea label="kst" pagesize="%d" total="%d" start="%d">`, pagesize, total, start)
	for _, d := range dossiers {
		body += "<subarea>" + d + "</subarea>"
	}
	return body + "</subarea></subareas>"
}

func TestListDossiersPagination(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("start") {
		case "1":
			fmt.Fprint(w, dossierListingPage(1, 2, 4, "25124", "36200"))
		case "3":
			fmt.Fprint(w, dossierListingPage(3, 2, 4, "36200", "36410"))
		default:
			t.Errorf("unexpected start %q", r.URL.Query().Get("start"))
		}
	}))
	defer srv.Close()

	src := repository.New(transport.New(), repository.WithBaseURL(srv.URL))
	ids, err := src.ListDossiers(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"25124", "36200", "36410"}, ids)
}

func TestCount(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, listingPage(1, 100, 84, "kst-25124-1"))
	}))
	defer srv.Close()

	src := repository.New(transport.New(), repository.WithBaseURL(srv.URL))
	n, ok := src.Count(context.Background(), "25124")
	assert.True(t, ok)
	assert.Equal(t, 84, n)
}

func TestFetchByID(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		fmt.Fprint(w, metadataXML)
	}))
	defer srv.Close()

	src := repository.New(transport.New(), repository.WithBaseURL(srv.URL))
	raw, err := src.FetchByID(context.Background(), "kst-25124-84")
	require.NoError(t, err)

	assert.Equal(t, "/25124/kst-25124-84/1/metadata/metadata.xml", gotPath)
	assert.Equal(t, "kst-25124-84", raw.ID())

	docType, ok := raw.First(dossiers.FieldDocumentType)
	assert.True(t, ok)
	assert.Equal(t, dossiers.DocTypePrimary, docType)
	assert.Equal(t, []string{"blg-100", "blg-200"}, raw.All(dossiers.FieldAttachment))

	// The bag parses straight into a primary publication.
	pub, err := dossiers.ParsePrimary(raw)
	require.NoError(t, err)
	assert.Equal(t, "kst-25124-84", pub.ID)
	assert.Equal(t, []string{"blg-100", "blg-200"}, pub.AttachmentIDs())
}

func TestFetchByIDRejectsForeignIdentifier(t *testing.T) {
	src := repository.New(transport.New())
	_, err := src.FetchByID(context.Background(), "stb-2023-145")
	assert.True(t, errors.IsUnknownDocumentType(err))
}

func TestSearchNotSupported(t *testing.T) {
	src := repository.New(transport.New())
	_, err := src.Search(context.Background(), sources.Criteria{Term: "telecom"})
	assert.ErrorIs(t, err, errors.ErrNotSupported)
}
