// Package version provides the append-only document version store and the
// section-level diff between consecutive versions.
package version

import (
	"github.com/rbagg/ProjectAlignment/document"
)

// ChangeRecord is the section-level diff between two consecutive versions.
// The three name sets are disjoint; a section present in both versions with
// structurally equal content appears in none of them.
type ChangeRecord struct {
	Added    []string          `json:"added"`
	Modified []ModifiedSection `json:"modified"`
	Removed  []string          `json:"removed"`
}

// ModifiedSection carries the before/after content of a changed section.
type ModifiedSection struct {
	Name   string           `json:"name"`
	Before document.Content `json:"before"`
	After  document.Content `json:"after"`
}

// IsEmpty reports whether the diff records no changes.
func (c *ChangeRecord) IsEmpty() bool {
	return c == nil || (len(c.Added) == 0 && len(c.Modified) == 0 && len(c.Removed) == 0)
}

// ModifiedNames returns the names of modified sections in order.
func (c *ChangeRecord) ModifiedNames() []string {
	names := make([]string, 0, len(c.Modified))
	for _, m := range c.Modified {
		names = append(names, m.Name)
	}
	return names
}

// TouchedNames returns all section names the diff touches, in the order
// added, modified, removed.
func (c *ChangeRecord) TouchedNames() []string {
	if c == nil {
		return nil
	}
	names := make([]string, 0, len(c.Added)+len(c.Modified)+len(c.Removed))
	names = append(names, c.Added...)
	names = append(names, c.ModifiedNames()...)
	names = append(names, c.Removed...)
	return names
}

// Diff computes the section-level change record from old to new. Added and
// modified sections follow the new Structure's order, removed sections follow
// the old one's. Content is compared structurally, so whitespace-only edits
// inside a section do not register; a kind change for the same name counts
// as modified, not added+removed.
func Diff(old, new document.Structure) *ChangeRecord {
	rec := &ChangeRecord{
		Added:    []string{},
		Modified: []ModifiedSection{},
		Removed:  []string{},
	}

	for _, sec := range new.Sections {
		before, existed := old.Get(sec.Name)
		if !existed {
			rec.Added = append(rec.Added, sec.Name)
			continue
		}
		if !before.Equal(sec.Content) {
			rec.Modified = append(rec.Modified, ModifiedSection{
				Name:   sec.Name,
				Before: before,
				After:  sec.Content,
			})
		}
	}

	for _, sec := range old.Sections {
		if !new.Has(sec.Name) {
			rec.Removed = append(rec.Removed, sec.Name)
		}
	}

	return rec
}
