// Package catalog holds the predefined and user-authored query definitions.
package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/kyleking/query-runner/internal/errors"
)

//go:embed predefined.yaml
var predefinedYAML []byte

type seedFile struct {
	Queries []QueryDefinition `yaml:"queries"`
}

// Catalog keeps the fixed predefined list and the mutable user list.
// It is not safe for concurrent use; the workspace serializes access.
type Catalog struct {
	predefined []QueryDefinition
	user       []QueryDefinition
	newID      func() string
	now        func() time.Time
}

// Option configures a Catalog
type Option func(*Catalog)

// WithIDGenerator replaces the uuid generator, mainly for tests
func WithIDGenerator(gen func() string) Option {
	return func(c *Catalog) { c.newID = gen }
}

// WithClock replaces the creation timestamp source
func WithClock(now func() time.Time) Option {
	return func(c *Catalog) { c.now = now }
}

// New builds a catalog over the given predefined entries
func New(predefined []QueryDefinition, opts ...Option) (*Catalog, error) {
	if len(predefined) == 0 {
		return nil, errors.New(errors.ErrTypeValidation, "predefined catalog must not be empty")
	}

	seen := make(map[string]struct{}, len(predefined))
	fixed := make([]QueryDefinition, 0, len(predefined))

	for i, def := range predefined {
		if err := validateFields(def.Title, def.Description, def.Text); err != nil {
			return nil, errors.Wrapf(err, errors.ErrTypeValidation, "predefined entry %d", i)
		}

		if _, dup := seen[def.Title]; dup {
			return nil, errors.NewValidationError(fmt.Sprintf("duplicate predefined title %q", def.Title), "title")
		}

		seen[def.Title] = struct{}{}

		def.ID = ""
		def.Origin = OriginPredefined
		fixed = append(fixed, def)
	}

	c := &Catalog{
		predefined: fixed,
		newID:      func() string { return uuid.NewString() },
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Default builds a catalog over the embedded predefined queries
func Default(opts ...Option) (*Catalog, error) {
	defs, err := ParseSeed(predefinedYAML)
	if err != nil {
		return nil, err
	}

	return New(defs, opts...)
}

// Load reads predefined entries from a YAML file, or the embedded seed when path is empty
func Load(path string, opts ...Option) (*Catalog, error) {
	if path == "" {
		return Default(opts...)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrTypeFileSystem, "failed to read catalog file %s", path)
	}

	defs, err := ParseSeed(data)
	if err != nil {
		return nil, err
	}

	return New(defs, opts...)
}

// ParseSeed decodes a YAML document of the form `queries: [{title, description, text}]`
func ParseSeed(data []byte) ([]QueryDefinition, error) {
	var seed seedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeConfig, "failed to parse catalog seed")
	}

	return seed.Queries, nil
}

// ListPredefined returns the built-in entries in their fixed order
func (c *Catalog) ListPredefined() []QueryDefinition {
	return append([]QueryDefinition(nil), c.predefined...)
}

// ListUser returns user entries in insertion order
func (c *Catalog) ListUser() []QueryDefinition {
	return append([]QueryDefinition(nil), c.user...)
}

// All returns predefined entries followed by user entries
func (c *Catalog) All() []QueryDefinition {
	all := make([]QueryDefinition, 0, len(c.predefined)+len(c.user))
	all = append(all, c.predefined...)

	return append(all, c.user...)
}

// Add validates the fields and appends a new user entry with a fresh ID
func (c *Catalog) Add(title, description, text string) (QueryDefinition, error) {
	if err := c.CheckAdd(title, description, text); err != nil {
		return QueryDefinition{}, err
	}

	def := QueryDefinition{
		ID:          c.newID(),
		Origin:      OriginUser,
		Title:       title,
		Description: description,
		Text:        text,
		CreatedAt:   c.now(),
	}
	c.user = append(c.user, def)

	return def, nil
}

// CheckAdd reports the error Add would return without mutating the catalog
func (c *Catalog) CheckAdd(title, description, text string) error {
	if err := validateFields(title, description, text); err != nil {
		return err
	}

	if _, ok := c.FindByTitle(title); ok {
		return errors.NewValidationError(fmt.Sprintf("a query titled %q already exists", title), "title").
			WithSuggestion("Choose a different title")
	}

	return nil
}

// Replace swaps the body of a user entry in full, keeping its ID
func (c *Catalog) Replace(id string, title, description, text string) (QueryDefinition, error) {
	if err := validateFields(title, description, text); err != nil {
		return QueryDefinition{}, err
	}

	idx := c.indexOf(id)
	if idx < 0 {
		return QueryDefinition{}, errors.NewNotFoundError("query", id)
	}

	if existing, ok := c.FindByTitle(title); ok && existing.ID != id {
		return QueryDefinition{}, errors.NewValidationError(fmt.Sprintf("a query titled %q already exists", title), "title")
	}

	def := c.user[idx]
	def.Title = title
	def.Description = description
	def.Text = text
	c.user[idx] = def

	return def, nil
}

// Remove deletes the user entry with the given ID. Unknown IDs are ignored.
func (c *Catalog) Remove(id string) (QueryDefinition, bool) {
	idx := c.indexOf(id)
	if idx < 0 {
		return QueryDefinition{}, false
	}

	removed := c.user[idx]
	c.user = append(c.user[:idx], c.user[idx+1:]...)

	return removed, true
}

// Get returns the user entry with the given ID
func (c *Catalog) Get(id string) (QueryDefinition, bool) {
	idx := c.indexOf(id)
	if idx < 0 {
		return QueryDefinition{}, false
	}

	return c.user[idx], true
}

// FindByTitle searches predefined entries first, then user entries
func (c *Catalog) FindByTitle(title string) (QueryDefinition, bool) {
	for _, def := range c.predefined {
		if def.Title == title {
			return def, true
		}
	}

	for _, def := range c.user {
		if def.Title == title {
			return def, true
		}
	}

	return QueryDefinition{}, false
}

// SetUser replaces the user list, used when restoring a persisted workspace
func (c *Catalog) SetUser(defs []QueryDefinition) {
	c.user = make([]QueryDefinition, 0, len(defs))
	for _, def := range defs {
		def.Origin = OriginUser
		c.user = append(c.user, def)
	}
}

func (c *Catalog) indexOf(id string) int {
	if id == "" {
		return -1
	}

	for i, def := range c.user {
		if def.ID == id {
			return i
		}
	}

	return -1
}

func validateFields(title, description, text string) error {
	switch {
	case strings.TrimSpace(title) == "":
		return errors.NewValidationError("title is required", "title")
	case strings.TrimSpace(description) == "":
		return errors.NewValidationError("description is required", "description")
	case strings.TrimSpace(text) == "":
		return errors.NewValidationError("query text is required", "text")
	}

	return nil
}
