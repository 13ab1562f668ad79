// Package theme holds the dark flag and the display hints derived from it.
package theme

import "sync"

// Editor theme names used by the SQL editor
const (
	EditorDark  = "dracula"
	EditorLight = "github"
)

// Theme is a toggleable dark flag
type Theme struct {
	mu   sync.RWMutex
	dark bool
}

// New returns a theme with the given initial flag
func New(dark bool) *Theme {
	return &Theme{dark: dark}
}

// IsDark reports the current flag
func (t *Theme) IsDark() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.dark
}

// Toggle flips the flag and returns the new value
func (t *Theme) Toggle() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.dark = !t.dark

	return t.dark
}

// Set assigns the flag
func (t *Theme) Set(dark bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.dark = dark
}

// EditorTheme returns the editor styling hint for the current flag
func (t *Theme) EditorTheme() string {
	if t.IsDark() {
		return EditorDark
	}

	return EditorLight
}

// Name returns "dark" or "light"
func (t *Theme) Name() string {
	if t.IsDark() {
		return "dark"
	}

	return "light"
}
