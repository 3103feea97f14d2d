package orchestrator

import (
	"fmt"
	"strings"

	"storefront-importer/internal/types"
)

// Preset names accepted by ParsePreset
const (
	PresetQuick   = "quick"
	PresetFull    = "full"
	PresetReviews = "reviews"
)

// ParsePreset maps a preset name onto its ImportOptions. An empty name is quick.
func ParsePreset(name string) (types.ImportOptions, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", PresetQuick:
		return types.QuickImport, nil
	case PresetFull:
		return types.FullImport, nil
	case PresetReviews:
		return types.ImportWithReviews, nil
	default:
		return types.ImportOptions{}, fmt.Errorf("unknown preset %q (want quick, full or reviews)", name)
	}
}
