// Package report renders a per-dossier HTML overview of all known
// publications, newest first, with links into the gazette portal.
package report

import (
	"html/template"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kamerwatch/kamerwatch/pkg/dossiers"
	"github.com/kamerwatch/kamerwatch/pkg/errors"
)

// DefaultLinkBase is where report rows link to; every publication is
// reachable there by bare identifier.
const DefaultLinkBase = "https://zoek.officielebekendmakingen.nl/"

// FileName is the report file written into each dossier's result directory.
const FileName = "overview.html"

var tmpl = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Dossier {{.DossierID}}</title>
<style>
body { font-family: sans-serif; }
table { border-collapse: collapse; }
td, th { border: 1px solid #ccc; padding: 4px 8px; text-align: left; }
</style>
</head>
<body>
<h1>Dossier {{.DossierID}}</h1>
<table>
<tr><th>Date</th><th>Document</th><th>Session</th><th>Body</th><th>Title</th><th>Attachments</th></tr>
{{range .Rows}}<tr>
<td>{{.Date}}</td>
<td><a href="{{.Link}}">{{.ID}}</a></td>
<td>{{.SessionYear}}</td>
<td>{{.IssuingBody}}</td>
<td>{{.Title}}</td>
<td>{{.Attachments}}</td>
</tr>
{{end}}</table>
</body>
</html>
`))

type row struct {
	Date        string
	ID          string
	Link        string
	SessionYear string
	IssuingBody string
	Title       string
	Attachments string
}

type reportData struct {
	DossierID string
	Rows      []row
}

// Writer renders dossier reports into per-dossier result directories.
type Writer struct {
	resultsDir string
	linkBase   string
}

// New creates a report writer rooted at resultsDir.
func New(resultsDir string) *Writer {
	return &Writer{
		resultsDir: resultsDir,
		linkBase:   DefaultLinkBase,
	}
}

// WriteHTML writes the overview table for a dossier. Publications are
// rendered in display order regardless of input order.
func (w *Writer) WriteHTML(dossierID string, pubs []*dossiers.Publication) error {
	ordered := make([]*dossiers.Publication, len(pubs))
	copy(ordered, pubs)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].Less(ordered[j])
	})

	data := reportData{DossierID: dossierID}
	for _, pub := range ordered {
		var atts []string
		for _, id := range pub.AttachmentIDs() {
			if title := pub.Attachments[id]; title != "" {
				atts = append(atts, title)
			} else {
				atts = append(atts, id)
			}
		}
		data.Rows = append(data.Rows, row{
			Date:        pub.AvailableString(),
			ID:          pub.ID,
			Link:        w.linkBase + pub.ID + ".html",
			SessionYear: pub.SessionYear,
			IssuingBody: pub.IssuingBody,
			Title:       pub.Title,
			Attachments: strings.Join(atts, "; "),
		})
	}

	dir := filepath.Join(w.resultsDir, dossierID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.WrapIO("mkdir", dir, err)
	}

	path := filepath.Join(dir, FileName)
	f, err := os.Create(path)
	if err != nil {
		return errors.WrapIO("create", path, err)
	}
	defer f.Close()

	if err := tmpl.Execute(f, data); err != nil {
		return errors.WrapIO("render", path, err)
	}
	return nil
}
