package orchestrator

import (
	"sync/atomic"

	"storefront-importer/internal/state"
)

// FlagStore persists the debug flag between runs
type FlagStore interface {
	GetBool(key string) bool
	Set(key string, value any) error
}

// DebugConfig holds the runtime debug flag. It is read from the store once at
// construction and written back on every change. Debug mode only adds log
// output; it never changes control flow.
type DebugConfig struct {
	enabled atomic.Bool
	store   FlagStore
}

// NewDebugConfig loads the flag from store. A nil store keeps the flag in
// memory only.
func NewDebugConfig(store FlagStore) *DebugConfig {
	d := &DebugConfig{store: store}
	if store != nil {
		d.enabled.Store(store.GetBool(state.DebugModeKey))
	}
	return d
}

// Enabled reports whether debug mode is on
func (d *DebugConfig) Enabled() bool {
	if d == nil {
		return false
	}
	return d.enabled.Load()
}

// Set changes the flag and persists it
func (d *DebugConfig) Set(on bool) error {
	d.enabled.Store(on)
	if d.store == nil {
		return nil
	}
	return d.store.Set(state.DebugModeKey, on)
}

// Toggle flips the flag and returns the new value
func (d *DebugConfig) Toggle() (bool, error) {
	on := !d.Enabled()
	return on, d.Set(on)
}
