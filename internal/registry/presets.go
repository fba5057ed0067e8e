package registry

import (
	"strings"

	"hdi1d/pkg/types"
)

// CustomResolution is the sentinel choice that requires explicit width/height.
const CustomResolution = "Custom"

// Bounds for custom dimensions, inclusive.
const (
	MinDimension = 64
	MaxDimension = 2048
)

type Preset struct {
	Label  string
	Width  int
	Height int
}

// Name is the dimension part of the label, e.g. "1024 × 1024".
func (p Preset) Name() string {
	if i := strings.Index(p.Label, "("); i >= 0 {
		return strings.TrimSpace(p.Label[:i])
	}
	return p.Label
}

func (p Preset) API() types.Preset {
	return types.Preset{Label: p.Label, Width: p.Width, Height: p.Height}
}

var presets = []Preset{
	{"1024 × 1024 (Square)", 1024, 1024},
	{"768 × 1360 (Portrait)", 768, 1360},
	{"1360 × 768 (Landscape)", 1360, 768},
	{"880 × 1168 (Portrait)", 880, 1168},
	{"1168 × 880 (Landscape)", 1168, 880},
	{"1248 × 832 (Landscape)", 1248, 832},
	{"832 × 1248 (Portrait)", 832, 1248},
}

// Presets returns the named resolutions in display order; Custom is not included.
func Presets() []Preset {
	return append([]Preset(nil), presets...)
}

// DefaultPreset is the first preset.
func DefaultPreset() Preset { return presets[0] }

// LookupPreset matches a choice against a preset's full label or its
// dimension part. Surrounding whitespace is ignored.
func LookupPreset(choice string) (Preset, bool) {
	c := strings.TrimSpace(choice)
	for _, p := range presets {
		if c == p.Label || c == p.Name() {
			return p, true
		}
	}
	return Preset{}, false
}
