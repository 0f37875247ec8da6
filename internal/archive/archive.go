// Package archive zips dossier result directories so a changed dossier
// leaves a dated point-in-time copy behind.
package archive

import (
	"archive/zip"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/kamerwatch/kamerwatch/pkg/errors"
)

// Archiver zips per-dossier result directories.
type Archiver struct {
	resultsDir string
	now        func() time.Time
}

// Option configures an Archiver.
type Option func(*Archiver)

// WithClock overrides the timestamp source, for tests.
func WithClock(now func() time.Time) Option {
	return func(a *Archiver) {
		a.now = now
	}
}

// New creates an Archiver rooted at resultsDir.
func New(resultsDir string, opts ...Option) *Archiver {
	a := &Archiver{
		resultsDir: resultsDir,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Directory zips the dossier's result directory into a dated archive next
// to it and returns the archive path. A missing directory is not an error;
// it returns an empty path.
func (a *Archiver) Directory(dossierID string) (string, error) {
	dir := filepath.Join(a.resultsDir, dossierID)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return "", nil
	}

	name := dossierID + "-" + a.now().UTC().Format("2006-01-02") + ".zip"
	path := filepath.Join(a.resultsDir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", errors.WrapIO("create", path, err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	err = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(a.resultsDir, p)
		if err != nil {
			return err
		}
		w, err := zw.Create(filepath.ToSlash(rel))
		if err != nil {
			return err
		}
		src, err := os.Open(p)
		if err != nil {
			return err
		}
		defer src.Close()
		_, err = io.Copy(w, src)
		return err
	})
	if err != nil {
		zw.Close()
		return "", errors.WrapIO("archive", dir, err)
	}
	if err := zw.Close(); err != nil {
		return "", errors.WrapIO("archive", dir, err)
	}
	return path, nil
}
