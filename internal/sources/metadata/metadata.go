// Package metadata parses the metadata.xml vocabulary shared by both
// registries into RawMetadata bags. It is the one piece of wire format the
// two registries agree on.
package metadata

import (
	"encoding/xml"

	"github.com/kamerwatch/kamerwatch/pkg/dossiers"
	"github.com/kamerwatch/kamerwatch/pkg/sources"
)

type document struct {
	Items []item `xml:"metadata"`
}

type item struct {
	Name    string `xml:"name,attr"`
	Scheme  string `xml:"scheme,attr"`
	Content string `xml:"content,attr"`
}

// Parse converts a metadata.xml document into a RawMetadata bag. Attributes
// keep their declared name; the parliamentary document type is declared
// through the scheme attribute and is surfaced under the scheme's name so
// the record model sees one vocabulary.
func Parse(body []byte) (sources.RawMetadata, error) {
	var doc document
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, err
	}

	raw := make(sources.RawMetadata, len(doc.Items))
	for _, it := range doc.Items {
		if it.Name != "" {
			raw.Add(it.Name, it.Content)
		}
		if it.Scheme == dossiers.FieldDocumentType {
			raw.Add(dossiers.FieldDocumentType, it.Content)
		}
	}
	return raw, nil
}
