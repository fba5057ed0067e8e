package registry

import (
	"fmt"

	"hdi1d/internal/common/fsutil"
	"hdi1d/internal/config"
)

// File is the on-disk shape of a variants file (.yaml, .json or .toml).
type File struct {
	Default  string    `json:"default" yaml:"default" toml:"default"`
	Variants []Variant `json:"variants" yaml:"variants" toml:"variants"`
}

// LoadFile reads a variants file and builds a Registry from it. A file without
// variants is rejected.
func LoadFile(path string) (*Registry, error) {
	p, err := fsutil.ExpandHome(path)
	if err != nil {
		return nil, err
	}
	var f File
	if err := config.DecodeFile(p, &f); err != nil {
		return nil, fmt.Errorf("registry: %s: %w", path, err)
	}
	return New(f.Variants, f.Default)
}

// FromConfig returns the registry selected by cfg: the variants file when set,
// the built-in table otherwise. DefaultVariant in cfg overrides the file's default.
func FromConfig(cfg config.Config) (*Registry, error) {
	if cfg.VariantsFile == "" {
		def := cfg.DefaultVariant
		if def == "" {
			def = "fast"
		}
		return New(BuiltinVariants(), def)
	}
	r, err := LoadFile(cfg.VariantsFile)
	if err != nil {
		return nil, err
	}
	if cfg.DefaultVariant != "" && cfg.DefaultVariant != r.defaultID {
		return New(r.variants, cfg.DefaultVariant)
	}
	return r, nil
}
