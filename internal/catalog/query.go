package catalog

import (
	"strings"
	"time"
)

// Origin tags where a query definition came from
type Origin string

const (
	OriginPredefined Origin = "predefined"
	OriginUser       Origin = "user"
)

// QueryDefinition is a named SQL body. Predefined entries have no ID and are
// identified by Title; user entries carry a generated ID.
type QueryDefinition struct {
	ID          string    `json:"id,omitempty"          yaml:"id,omitempty"`
	Origin      Origin    `json:"origin"                yaml:"origin,omitempty"`
	Title       string    `json:"title"                 yaml:"title"`
	Description string    `json:"description"           yaml:"description"`
	Text        string    `json:"text"                  yaml:"text"`
	CreatedAt   time.Time `json:"created_at,omitempty"  yaml:"-"`
}

// IsPredefined reports whether the definition is part of the built-in set
func (q QueryDefinition) IsPredefined() bool {
	return q.Origin == OriginPredefined
}

// Identity returns the key used to compare two definitions:
// the ID for user entries, the title for predefined ones.
func (q QueryDefinition) Identity() string {
	if q.Origin == OriginUser && q.ID != "" {
		return q.ID
	}

	return q.Title
}

// SearchTitle and SearchDescription expose the fields the search filter matches on
func (q QueryDefinition) SearchTitle() string       { return q.Title }
func (q QueryDefinition) SearchDescription() string { return q.Description }

// ShortID returns the first segment of a user ID for compact listings
func (q QueryDefinition) ShortID() string {
	if q.ID == "" {
		return "-"
	}

	if i := strings.IndexByte(q.ID, '-'); i > 0 {
		return q.ID[:i]
	}

	return q.ID
}
