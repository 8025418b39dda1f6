package services

import (
	"context"
	"fmt"

	"finance/internal/core"
)

const themeKey = "theme"

const (
	ThemeLight = "light"
	ThemeDark  = "dark"
)

// SettingsStore persists key/value preferences.
type SettingsStore interface {
	GetSetting(ctx context.Context, key string) (string, bool, error)
	SetSetting(ctx context.Context, key, value string) error
}

// Preferences holds the client preferences that outlive a session. Only the
// theme is persisted.
type Preferences struct {
	store SettingsStore
}

func NewPreferences(store SettingsStore) *Preferences {
	return &Preferences{store: store}
}

// Theme returns the stored theme, light when none was chosen.
func (p *Preferences) Theme(ctx context.Context) (string, error) {
	v, ok, err := p.store.GetSetting(ctx, themeKey)
	if err != nil {
		return "", fmt.Errorf("read theme: %w", err)
	}
	if !ok || (v != ThemeLight && v != ThemeDark) {
		return ThemeLight, nil
	}
	return v, nil
}

func (p *Preferences) SetTheme(ctx context.Context, theme string) error {
	if theme != ThemeLight && theme != ThemeDark {
		return fmt.Errorf("%w: %q", core.ErrInvalidTheme, theme)
	}
	if err := p.store.SetSetting(ctx, themeKey, theme); err != nil {
		return fmt.Errorf("save theme: %w", err)
	}
	return nil
}

// ToggleTheme flips between light and dark and returns the new theme.
func (p *Preferences) ToggleTheme(ctx context.Context) (string, error) {
	current, err := p.Theme(ctx)
	if err != nil {
		return "", err
	}
	next := ThemeDark
	if current == ThemeDark {
		next = ThemeLight
	}
	return next, p.SetTheme(ctx, next)
}
