package cache

import (
	"context"
	"time"
)

const draftKey = "editor-buffer"

// Drafts keeps the editor buffer between shell sessions
type Drafts struct {
	cache Cache
	ttl   time.Duration
}

// NewDrafts stores drafts in c, expiring after ttl (zero uses the cache default)
func NewDrafts(c Cache, ttl time.Duration) *Drafts {
	return &Drafts{cache: c, ttl: ttl}
}

// Save stores the buffer; an empty buffer discards the draft
func (d *Drafts) Save(ctx context.Context, buffer string) error {
	if buffer == "" {
		return d.Discard(ctx)
	}

	return d.cache.Set(ctx, draftKey, []byte(buffer), d.ttl)
}

// Load returns the stored draft and whether one was found
func (d *Drafts) Load(ctx context.Context) (string, bool, error) {
	data, err := d.cache.Get(ctx, draftKey)
	if IsMiss(err) {
		return "", false, nil
	}

	if err != nil {
		return "", false, err
	}

	return string(data), true, nil
}

// Discard removes the stored draft
func (d *Drafts) Discard(ctx context.Context) error {
	return d.cache.Delete(ctx, draftKey)
}
