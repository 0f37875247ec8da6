package dossiers

import (
	"sort"
	"time"
)

// Summary is the per-dossier aggregate tracked for every dossier ever seen,
// independent of whether the dossier is configured for collection.
type Summary struct {
	// ID is the registry-assigned dossier number.
	ID string `yaml:"id" json:"id"`

	// Title is the dossier title, set on first observation and never
	// overwritten once set.
	Title string `yaml:"title,omitempty" json:"title,omitempty"`

	// ItemCount is the latest count reported by the registry's count
	// endpoint. The endpoint, not collection length, is authoritative.
	ItemCount int `yaml:"item_count" json:"item_count"`

	// LastItemDate is the availability date of the newest item observed,
	// monotonically non-decreasing.
	LastItemDate *time.Time `yaml:"last_item_date,omitempty" json:"last_item_date,omitempty"`
}

// LastItemDateString returns the last item date in registry format, or the
// empty string when no item has been observed.
func (s *Summary) LastItemDateString() string {
	if s.LastItemDate == nil {
		return ""
	}
	return s.LastItemDate.Format(DateFormat)
}

// SetTitle records the title if none is set yet. Returns true on change.
func (s *Summary) SetTitle(title string) bool {
	if s.Title != "" || title == "" {
		return false
	}
	s.Title = title
	return true
}

// SetItemCount overwrites the item count with the latest authoritative
// value. Returns true on change.
func (s *Summary) SetItemCount(count int) bool {
	if s.ItemCount == count {
		return false
	}
	s.ItemCount = count
	return true
}

// AdvanceLastItemDate max-merges a candidate date: the stored value only
// ever moves forward, so the final value equals the maximum date observed
// regardless of application order. Returns true on change.
func (s *Summary) AdvanceLastItemDate(candidate time.Time) bool {
	if candidate.IsZero() {
		return false
	}
	if s.LastItemDate == nil || candidate.After(*s.LastItemDate) {
		d := candidate
		s.LastItemDate = &d
		return true
	}
	return false
}

// Summaries maps dossier id to summary.
type Summaries map[string]*Summary

// Get returns the summary for a dossier, if present.
func (s Summaries) Get(dossierID string) (*Summary, bool) {
	sum, ok := s[dossierID]
	return sum, ok
}

// GetOrCreate returns the summary for a dossier, creating an empty one if
// absent. The second return reports whether the summary was created.
func (s Summaries) GetOrCreate(dossierID string) (*Summary, bool) {
	if sum, ok := s[dossierID]; ok {
		return sum, false
	}
	sum := &Summary{ID: dossierID}
	s[dossierID] = sum
	return sum, true
}

// List returns the summaries ordered by dossier id.
func (s Summaries) List() []*Summary {
	list := make([]*Summary, 0, len(s))
	for _, sum := range s {
		list = append(list, sum)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].ID < list[j].ID
	})
	return list
}
