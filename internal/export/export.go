// Package export writes the dossier summary overview as a CSV file.
package export

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"

	"github.com/kamerwatch/kamerwatch/pkg/dossiers"
	"github.com/kamerwatch/kamerwatch/pkg/errors"
)

// header is the overview's column layout.
var header = []string{"dossier", "last_item_date", "item_count", "title"}

// WriteOverview writes one semicolon-separated row per summary, sorted by
// dossier id, with a header row.
func WriteOverview(path string, summaries []*dossiers.Summary) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.WrapIO("mkdir", dir, err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.WrapIO("create", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Comma = ';'

	if err := w.Write(header); err != nil {
		return errors.WrapIO("write", path, err)
	}
	for _, s := range summaries {
		row := []string{s.ID, s.LastItemDateString(), strconv.Itoa(s.ItemCount), s.Title}
		if err := w.Write(row); err != nil {
			return errors.WrapIO("write", path, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return errors.WrapIO("write", path, err)
	}
	return nil
}
