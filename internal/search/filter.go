// Package search narrows lists of catalog-like items by a text needle.
package search

import "strings"

// Searchable is anything with a title and a description to match against
type Searchable interface {
	SearchTitle() string
	SearchDescription() string
}

// Filter returns the items whose title or description contains needle,
// ignoring case. Relative order is preserved and an empty needle keeps every item.
func Filter[T Searchable](items []T, needle string) []T {
	if needle == "" {
		return append([]T(nil), items...)
	}

	lowered := strings.ToLower(needle)
	matched := make([]T, 0, len(items))

	for _, item := range items {
		if Matches(item, lowered) {
			matched = append(matched, item)
		}
	}

	return matched
}

// Matches reports whether item matches an already lower-cased needle
func Matches(item Searchable, loweredNeedle string) bool {
	return strings.Contains(strings.ToLower(item.SearchTitle()), loweredNeedle) ||
		strings.Contains(strings.ToLower(item.SearchDescription()), loweredNeedle)
}
