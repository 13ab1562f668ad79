// Package history records executed query texts, most recent first.
package history

import "time"

// CustomQueryTitle labels executions with no selected query
const CustomQueryTitle = "Custom Query"

// Entry is one execute invocation. Entries are never mutated or deduplicated.
type Entry struct {
	Text      string    `json:"text"`
	Title     string    `json:"title"`
	Timestamp time.Time `json:"timestamp"`
}

// SearchTitle and SearchDescription let the search filter match on title and query text
func (e Entry) SearchTitle() string       { return e.Title }
func (e Entry) SearchDescription() string { return e.Text }

// Log is a newest-first list with an optional size cap
type Log struct {
	entries []Entry
	limit   int
	now     func() time.Time
}

// Option configures a Log
type Option func(*Log)

// WithLimit caps the log, dropping the oldest entries. Zero means unbounded.
func WithLimit(limit int) Option {
	return func(l *Log) {
		if limit > 0 {
			l.limit = limit
		}
	}
}

// WithClock replaces the timestamp source
func WithClock(now func() time.Time) Option {
	return func(l *Log) { l.now = now }
}

// New returns an empty log
func New(opts ...Option) *Log {
	l := &Log{now: time.Now}
	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Record prepends an entry stamped with the current instant
func (l *Log) Record(text, title string) Entry {
	if title == "" {
		title = CustomQueryTitle
	}

	entry := Entry{Text: text, Title: title, Timestamp: l.now()}

	l.entries = append([]Entry{entry}, l.entries...)
	if l.limit > 0 && len(l.entries) > l.limit {
		l.entries = l.entries[:l.limit]
	}

	return entry
}

// List returns entries newest first
func (l *Log) List() []Entry {
	return append([]Entry(nil), l.entries...)
}

// At returns the entry at index i of List
func (l *Log) At(i int) (Entry, bool) {
	if i < 0 || i >= len(l.entries) {
		return Entry{}, false
	}

	return l.entries[i], true
}

// Len returns the number of entries
func (l *Log) Len() int {
	return len(l.entries)
}

// Replace swaps the contents with entries already in newest-first order
func (l *Log) Replace(entries []Entry) {
	l.entries = append([]Entry(nil), entries...)
	if l.limit > 0 && len(l.entries) > l.limit {
		l.entries = l.entries[:l.limit]
	}
}
