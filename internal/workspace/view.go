package workspace

import (
	"fmt"
	"strings"

	"github.com/kyleking/query-runner/internal/errors"
)

// View is the catalog tab currently shown
type View string

const (
	ViewPredefined View = "predefined"
	ViewFavorites  View = "favorites"
	ViewHistory    View = "history"
)

// Views lists every view in display order
var Views = []View{ViewPredefined, ViewFavorites, ViewHistory}

// ParseView accepts a view name in any case
func ParseView(s string) (View, error) {
	v := View(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Views {
		if v == known {
			return v, nil
		}
	}

	return "", errors.NewValidationError(fmt.Sprintf("unknown view %q", s), "view").
		WithSuggestion("Use one of: predefined, favorites, history")
}

// Label returns the capitalized tab name
func (v View) Label() string {
	switch v {
	case ViewFavorites:
		return "Favorites"
	case ViewHistory:
		return "History"
	default:
		return "Predefined"
	}
}
