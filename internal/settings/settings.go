// Package settings owns the user-facing preference flags. Settings live in
// their own store, separate from cache/stats/auth state, so they can follow
// the user across installations. Only explicit user actions routed through
// the message router mutate them.
package settings

import (
	"log/slog"
	"sync"

	"linkguard/internal/storage"
)

// Settings are the flags consulted on every scan decision plus display
// preferences for the indicator.
type Settings struct {
	AutoScan          bool   `json:"autoScan"`
	BlockMalicious    bool   `json:"blockMalicious"`
	ShowWarnings      bool   `json:"showWarnings"`
	Notifications     bool   `json:"notifications"`
	Theme             string `json:"theme"`
	IndicatorPosition string `json:"indicatorPosition"`
}

// Defaults returns the install-time settings.
func Defaults() Settings {
	return Settings{
		AutoScan:          true,
		BlockMalicious:    true,
		ShowWarnings:      true,
		Notifications:     true,
		Theme:             "light",
		IndicatorPosition: "top-right",
	}
}

// Patch is a partial settings update; nil fields are left unchanged.
type Patch struct {
	AutoScan          *bool   `json:"autoScan,omitempty"`
	BlockMalicious    *bool   `json:"blockMalicious,omitempty"`
	ShowWarnings      *bool   `json:"showWarnings,omitempty"`
	Notifications     *bool   `json:"notifications,omitempty"`
	Theme             *string `json:"theme,omitempty"`
	IndicatorPosition *string `json:"indicatorPosition,omitempty"`
}

// Manager owns the current settings. Safe for concurrent use.
type Manager struct {
	mu      sync.RWMutex
	current Settings
	file    *storage.JSONFile
}

// NewManager creates a Manager, restoring persisted settings or falling back
// to defaults.
func NewManager(file *storage.JSONFile) *Manager {
	m := &Manager{current: Defaults(), file: file}
	if file != nil {
		var saved Settings
		ok, err := file.Load(&saved)
		if err != nil {
			slog.Warn("failed to restore settings, using defaults", "error", err)
		} else if ok {
			m.current = saved
		}
	}
	return m
}

// Get returns the current settings.
func (m *Manager) Get() Settings {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Apply merges a patch into the current settings and persists the result.
func (m *Manager) Apply(p Patch) Settings {
	m.mu.Lock()
	if p.AutoScan != nil {
		m.current.AutoScan = *p.AutoScan
	}
	if p.BlockMalicious != nil {
		m.current.BlockMalicious = *p.BlockMalicious
	}
	if p.ShowWarnings != nil {
		m.current.ShowWarnings = *p.ShowWarnings
	}
	if p.Notifications != nil {
		m.current.Notifications = *p.Notifications
	}
	if p.Theme != nil {
		m.current.Theme = *p.Theme
	}
	if p.IndicatorPosition != nil {
		m.current.IndicatorPosition = *p.IndicatorPosition
	}
	updated := m.current
	m.mu.Unlock()

	m.persist(updated)
	return updated
}

func (m *Manager) persist(s Settings) {
	if m.file == nil {
		return
	}
	if err := m.file.Save(s); err != nil {
		slog.Warn("failed to persist settings", "error", err)
	}
}
