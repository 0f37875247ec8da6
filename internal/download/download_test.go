package download_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kamerwatch/kamerwatch/internal/download"
	"github.com/kamerwatch/kamerwatch/internal/transport"
)

func TestPDFWritesIntoDossierDirectory(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/kst-25124-84.pdf", r.URL.Path)
		fmt.Fprint(w, "%PDF-1.4 fake")
	}))
	defer srv.Close()

	dir := t.TempDir()
	d := download.New(transport.New(), srv.URL+"/", dir)
	d.PDF(context.Background(), "kst-25124-84", "2023-05-11-kst-25124-84.pdf", "25124")

	body, err := os.ReadFile(filepath.Join(dir, "25124", "2023-05-11-kst-25124-84.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 fake", string(body))
}

func TestPDFFailureLeavesNoFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	dir := t.TempDir()
	d := download.New(transport.New(), srv.URL+"/", dir)
	d.PDF(context.Background(), "kst-25124-99", "gone.pdf", "25124")

	_, err := os.Stat(filepath.Join(dir, "25124", "gone.pdf"))
	assert.True(t, os.IsNotExist(err))
}
