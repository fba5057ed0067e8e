// Package registry holds the static tables the daemon is configured with:
// model variants, scheduler kinds and resolution presets. A Registry is built
// once at start-up and never mutated afterwards.
package registry

import (
	"fmt"
	"strings"

	"hdi1d/pkg/types"
)

// Shared text encoder and tokenizer source for every variant.
const TextEncoder = "unsloth/Meta-Llama-3.1-8B-Instruct"

const modelPrefix = "azaneko"

// SchedulerKind names one of the externally implemented flow-matching schedulers.
type SchedulerKind string

const (
	FlashFlowMatchEuler SchedulerKind = "FlashFlowMatchEulerDiscreteScheduler"
	FlowUniPCMultistep  SchedulerKind = "FlowUniPCMultistepScheduler"
)

// NumTrainTimesteps is the fixed total-timestep constant every scheduler is built with.
const NumTrainTimesteps = 1000

var schedulerKinds = []SchedulerKind{FlashFlowMatchEuler, FlowUniPCMultistep}

// Schedulers returns the supported scheduler kinds in display order.
func Schedulers() []SchedulerKind {
	return append([]SchedulerKind(nil), schedulerKinds...)
}

// ParseScheduler maps a scheduler name to its kind.
func ParseScheduler(name string) (SchedulerKind, bool) {
	for _, k := range schedulerKinds {
		if string(k) == name {
			return k, true
		}
	}
	return "", false
}

// Variant is the immutable configuration of one model variant.
type Variant struct {
	ID            string        `json:"id" yaml:"id" toml:"id"`
	Name          string        `json:"name" yaml:"name" toml:"name"`
	Path          string        `json:"path" yaml:"path" toml:"path"`
	Description   string        `json:"description" yaml:"description" toml:"description"`
	GuidanceScale float64       `json:"guidance_scale" yaml:"guidance_scale" toml:"guidance_scale"`
	Steps         int           `json:"steps" yaml:"steps" toml:"steps"`
	Shift         float64       `json:"shift" yaml:"shift" toml:"shift"`
	Scheduler     SchedulerKind `json:"scheduler" yaml:"scheduler" toml:"scheduler"`
}

// API converts the variant into its wire representation.
func (v Variant) API() types.Variant {
	return types.Variant{
		ID:            v.ID,
		Name:          v.Name,
		Path:          v.Path,
		GuidanceScale: v.GuidanceScale,
		Steps:         v.Steps,
		Shift:         v.Shift,
		Scheduler:     string(v.Scheduler),
		Description:   v.Description,
	}
}

// BuiltinVariants is the reference variant table.
func BuiltinVariants() []Variant {
	return []Variant{
		{
			ID:            "fast",
			Name:          "HiDream-I1 Fast (nf4)",
			Path:          modelPrefix + "/HiDream-I1-Fast-nf4",
			Description:   "Low latency, 16 steps",
			GuidanceScale: 0.0,
			Steps:         16,
			Shift:         3.0,
			Scheduler:     FlashFlowMatchEuler,
		},
		{
			ID:            "dev",
			Name:          "HiDream-I1 Dev (nf4)",
			Path:          modelPrefix + "/HiDream-I1-Dev-nf4",
			Description:   "Balanced, 28 steps",
			GuidanceScale: 0.0,
			Steps:         28,
			Shift:         6.0,
			Scheduler:     FlashFlowMatchEuler,
		},
		{
			ID:            "full",
			Name:          "HiDream-I1 Full (nf4)",
			Path:          modelPrefix + "/HiDream-I1-Full-nf4",
			Description:   "High fidelity, 50 steps with guidance",
			GuidanceScale: 5.0,
			Steps:         50,
			Shift:         3.0,
			Scheduler:     FlowUniPCMultistep,
		},
	}
}

// Registry is the read-only variant table.
type Registry struct {
	variants  []Variant
	byID      map[string]int
	defaultID string
}

// New validates variants and builds a Registry. An empty defaultID selects
// the first variant.
func New(variants []Variant, defaultID string) (*Registry, error) {
	if len(variants) == 0 {
		return nil, fmt.Errorf("registry: no variants")
	}
	r := &Registry{byID: make(map[string]int, len(variants))}
	for _, v := range variants {
		v.ID = strings.TrimSpace(v.ID)
		if err := checkVariant(v); err != nil {
			return nil, err
		}
		if _, dup := r.byID[v.ID]; dup {
			return nil, fmt.Errorf("registry: duplicate variant %q", v.ID)
		}
		if v.Name == "" {
			v.Name = v.ID
		}
		r.byID[v.ID] = len(r.variants)
		r.variants = append(r.variants, v)
	}
	if defaultID == "" {
		defaultID = r.variants[0].ID
	}
	if _, ok := r.byID[defaultID]; !ok {
		return nil, fmt.Errorf("registry: default variant %q not defined", defaultID)
	}
	r.defaultID = defaultID
	return r, nil
}

// Default returns the built-in registry with "fast" as the default variant.
func Default() *Registry {
	r, err := New(BuiltinVariants(), "fast")
	if err != nil {
		panic(err)
	}
	return r
}

func checkVariant(v Variant) error {
	switch {
	case v.ID == "":
		return fmt.Errorf("registry: variant with empty id")
	case strings.TrimSpace(v.Path) == "":
		return fmt.Errorf("registry: variant %q has empty path", v.ID)
	case v.Steps < 1 || v.Steps > 100:
		return fmt.Errorf("registry: variant %q steps %d out of [1,100]", v.ID, v.Steps)
	case v.GuidanceScale < 0 || v.GuidanceScale > 10:
		return fmt.Errorf("registry: variant %q guidance %.2f out of [0,10]", v.ID, v.GuidanceScale)
	case v.Shift < 1 || v.Shift > 10:
		return fmt.Errorf("registry: variant %q shift %.2f out of [1,10]", v.ID, v.Shift)
	}
	if _, ok := ParseScheduler(string(v.Scheduler)); !ok {
		return fmt.Errorf("registry: variant %q has unknown scheduler %q", v.ID, v.Scheduler)
	}
	return nil
}

// Lookup returns the variant with the given id.
func (r *Registry) Lookup(id string) (Variant, bool) {
	i, ok := r.byID[id]
	if !ok {
		return Variant{}, false
	}
	return r.variants[i], true
}

// Variants returns a copy of the table in declaration order.
func (r *Registry) Variants() []Variant {
	out := make([]Variant, len(r.variants))
	copy(out, r.variants)
	return out
}

// IDs returns the variant ids in declaration order.
func (r *Registry) IDs() []string {
	out := make([]string, 0, len(r.variants))
	for _, v := range r.variants {
		out = append(out, v.ID)
	}
	return out
}

func (r *Registry) DefaultID() string { return r.defaultID }
