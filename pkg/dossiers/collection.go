package dossiers

import "sort"

// Collection owns the set of publications for one dossier, indexed by
// identity. Mutation during a sync pass is append/merge-only: records are
// never deleted, and membership tests use identity only.
type Collection struct {
	// DossierID is the registry-assigned dossier number.
	DossierID string `yaml:"dossier_id" json:"dossier_id"`

	// SearchTerms are the free-text terms configured for this dossier at
	// the time of the last run. Kept so a later run can detect newly
	// added terms and issue their one-time historical search.
	SearchTerms []string `yaml:"search_terms,omitempty" json:"search_terms,omitempty"`

	// Publications maps publication id to record.
	Publications map[string]*Publication `yaml:"publications,omitempty" json:"publications,omitempty"`
}

// NewCollection creates an empty collection for a dossier.
func NewCollection(dossierID string) *Collection {
	return &Collection{
		DossierID:    dossierID,
		Publications: make(map[string]*Publication),
	}
}

// Get returns the publication with the given id, if present.
func (c *Collection) Get(id string) (*Publication, bool) {
	p, ok := c.Publications[id]
	return p, ok
}

// Has reports whether a publication with the given id is a member.
func (c *Collection) Has(id string) bool {
	_, ok := c.Publications[id]
	return ok
}

// Add inserts a publication if no member shares its id. Adding an existing
// id never grows the collection; updates to an existing record's mutable
// fields happen in place via Get, not by replacement.
func (c *Collection) Add(p *Publication) bool {
	if p == nil || p.ID == "" {
		return false
	}
	if c.Publications == nil {
		c.Publications = make(map[string]*Publication)
	}
	if _, ok := c.Publications[p.ID]; ok {
		return false
	}
	c.Publications[p.ID] = p
	return true
}

// Len returns the number of member publications.
func (c *Collection) Len() int {
	return len(c.Publications)
}

// List returns the members in display order: availability date descending,
// ties by id ascending.
func (c *Collection) List() []*Publication {
	list := make([]*Publication, 0, len(c.Publications))
	for _, p := range c.Publications {
		list = append(list, p)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].Less(list[j])
	})
	return list
}
