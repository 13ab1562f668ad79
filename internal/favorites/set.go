// Package favorites tracks which query definitions the user has marked.
package favorites

import "github.com/kyleking/query-runner/internal/catalog"

// Set holds favorited definitions in insertion order, keyed by title.
// Entries survive deletion of a predefined source and are removed
// alongside a deleted user entry through RemoveByIdentity.
type Set struct {
	items []catalog.QueryDefinition
}

// New returns an empty set
func New() *Set {
	return &Set{}
}

// Toggle removes the favorite sharing q's title, or adds q when none exists.
// It reports whether q is a favorite afterwards.
func (s *Set) Toggle(q catalog.QueryDefinition) bool {
	if idx := s.indexOf(q.Title); idx >= 0 {
		s.items = append(s.items[:idx], s.items[idx+1:]...)
		return false
	}

	s.items = append(s.items, q)

	return true
}

// Add marks q unless a favorite with its title already exists
func (s *Set) Add(q catalog.QueryDefinition) bool {
	if s.IsFavorite(q) {
		return false
	}

	s.items = append(s.items, q)

	return true
}

// IsFavorite reports whether a favorite with q's title exists
func (s *Set) IsFavorite(q catalog.QueryDefinition) bool {
	return s.indexOf(q.Title) >= 0
}

// ContainsTitle reports whether a favorite with the given title exists
func (s *Set) ContainsTitle(title string) bool {
	return s.indexOf(title) >= 0
}

// RemoveByIdentity drops every favorite whose ID equals id and returns how many went
func (s *Set) RemoveByIdentity(id string) int {
	if id == "" {
		return 0
	}

	kept := s.items[:0]
	removed := 0

	for _, item := range s.items {
		if item.ID == id {
			removed++
			continue
		}

		kept = append(kept, item)
	}

	s.items = kept

	return removed
}

// Refresh rewrites every favorite whose ID equals q.ID with q's fields and
// returns how many changed
func (s *Set) Refresh(q catalog.QueryDefinition) int {
	if q.ID == "" {
		return 0
	}

	updated := 0

	for i, item := range s.items {
		if item.ID == q.ID {
			s.items[i] = q
			updated++
		}
	}

	return updated
}

// List returns favorites in the order they were added
func (s *Set) List() []catalog.QueryDefinition {
	return append([]catalog.QueryDefinition(nil), s.items...)
}

// Len returns the number of favorites
func (s *Set) Len() int {
	return len(s.items)
}

// Replace swaps the contents, used when restoring a persisted workspace
func (s *Set) Replace(items []catalog.QueryDefinition) {
	s.items = append([]catalog.QueryDefinition(nil), items...)
}

func (s *Set) indexOf(title string) int {
	for i, item := range s.items {
		if item.Title == title {
			return i
		}
	}

	return -1
}
