// Package prefs holds the process-wide display preferences. They live apart
// from entity state and are persisted as plain key/value pairs.
package prefs

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"sizes/pkg/domain"
)

// Language is a supported interface language.
type Language string

// Supported languages.
const (
	LanguageES Language = "es"
	LanguageEN Language = "en"
)

// Valid reports whether l is supported.
func (l Language) Valid() bool { return l == LanguageES || l == LanguageEN }

// Theme is the display theme.
type Theme string

// Supported themes.
const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// Valid reports whether t is supported.
func (t Theme) Valid() bool { return t == ThemeLight || t == ThemeDark }

// Storage keys.
const (
	KeyLanguage = "language"
	KeyTheme    = "theme"
)

// Preferences is the current preference set.
type Preferences struct {
	Language Language `json:"language"`
	Theme    Theme    `json:"theme"`
}

// Patch changes a subset of preferences.
type Patch struct {
	Language *Language `json:"language,omitempty"`
	Theme    *Theme    `json:"theme,omitempty"`
}

// DetectLanguage maps a locale such as "en_US.UTF-8" to a supported language.
// Anything that is not English falls back to Spanish.
func DetectLanguage(locale string) Language {
	locale = strings.ToLower(strings.TrimSpace(locale))
	base, _, _ := strings.Cut(locale, ".")
	base, _, _ = strings.Cut(base, "_")
	base, _, _ = strings.Cut(base, "-")
	if Language(base) == LanguageEN {
		return LanguageEN
	}
	return LanguageES
}

// Defaults returns the preferences used before anything is stored.
func Defaults(locale string) Preferences {
	return Preferences{Language: DetectLanguage(locale), Theme: ThemeLight}
}

// Manager owns the current preferences. Update is the only mutation path.
type Manager struct {
	store domain.PreferenceStore

	mu      sync.RWMutex
	current Preferences
	subs    map[int]func(Preferences)
	nextSub int
}

// New returns a manager starting from defaults. Call Init to load stored values.
func New(store domain.PreferenceStore, defaults Preferences) *Manager {
	if !defaults.Language.Valid() {
		defaults.Language = LanguageES
	}
	if !defaults.Theme.Valid() {
		defaults.Theme = ThemeLight
	}
	return &Manager{store: store, current: defaults, subs: make(map[int]func(Preferences))}
}

// Init loads stored preferences. Unknown stored values are ignored.
func (m *Manager) Init(ctx context.Context) error {
	if m.store == nil {
		return nil
	}
	stored, err := m.store.LoadPreferences(ctx)
	if err != nil {
		return fmt.Errorf("load preferences: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if l := Language(stored[KeyLanguage]); l.Valid() {
		m.current.Language = l
	}
	if t := Theme(stored[KeyTheme]); t.Valid() {
		m.current.Theme = t
	}
	return nil
}

// Current returns the active preferences.
func (m *Manager) Current() Preferences {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Update validates and applies patch, persists the changed keys and notifies
// subscribers. Nothing changes when validation or persistence fails.
func (m *Manager) Update(ctx context.Context, patch Patch) (Preferences, error) {
	if patch.Language != nil && !patch.Language.Valid() {
		return m.Current(), domain.ValidationError{Entity: "preferences", Field: KeyLanguage, Reason: fmt.Sprintf("unsupported language %q", *patch.Language)}
	}
	if patch.Theme != nil && !patch.Theme.Valid() {
		return m.Current(), domain.ValidationError{Entity: "preferences", Field: KeyTheme, Reason: fmt.Sprintf("unsupported theme %q", *patch.Theme)}
	}

	m.mu.Lock()
	next := m.current
	if patch.Language != nil {
		next.Language = *patch.Language
	}
	if patch.Theme != nil {
		next.Theme = *patch.Theme
	}
	if next == m.current {
		m.mu.Unlock()
		return next, nil
	}
	if m.store != nil {
		if err := m.persist(ctx, m.current, next); err != nil {
			m.mu.Unlock()
			return m.Current(), err
		}
	}
	m.current = next
	subs := make([]func(Preferences), 0, len(m.subs))
	for _, fn := range m.subs {
		subs = append(subs, fn)
	}
	m.mu.Unlock()

	for _, fn := range subs {
		fn(next)
	}
	return next, nil
}

// ToggleTheme switches between light and dark.
func (m *Manager) ToggleTheme(ctx context.Context) (Preferences, error) {
	theme := ThemeDark
	if m.Current().Theme == ThemeDark {
		theme = ThemeLight
	}
	return m.Update(ctx, Patch{Theme: &theme})
}

func (m *Manager) persist(ctx context.Context, prev, next Preferences) error {
	if prev.Language != next.Language {
		if err := m.store.SavePreference(ctx, KeyLanguage, string(next.Language)); err != nil {
			return fmt.Errorf("save %s: %w", KeyLanguage, err)
		}
	}
	if prev.Theme != next.Theme {
		if err := m.store.SavePreference(ctx, KeyTheme, string(next.Theme)); err != nil {
			return fmt.Errorf("save %s: %w", KeyTheme, err)
		}
	}
	return nil
}

// Subscribe registers fn to run after every effective update. The returned
// function removes the subscription.
func (m *Manager) Subscribe(fn func(Preferences)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subs, id)
	}
}
