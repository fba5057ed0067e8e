package generation

import (
	"fmt"
	"strings"

	"hdi1d/internal/errs"
	"hdi1d/internal/imaging"
	"hdi1d/internal/registry"
)

// Parameter bounds, inclusive.
const (
	MinSteps    = 1
	MaxSteps    = 100
	MinGuidance = 0.0
	MaxGuidance = 10.0
	MinShift    = 1.0
	MaxShift    = 10.0
)

// plan is a fully resolved request: every value the pipeline will see.
type plan struct {
	variant   registry.Variant
	prompt    string
	width     int
	height    int
	seed      int64
	scheduler registry.SchedulerKind
	guidance  float64
	steps     int
	shift     float64
	format    imaging.Format
}

// Validate checks req against the registry without touching any resource.
func Validate(reg *registry.Registry, req Request) error {
	_, err := resolve(reg, req)
	return err
}

// resolve validates req and fills in defaults. Field checks run first, then
// resolution, scheduler and variant resolution.
func resolve(reg *registry.Registry, req Request) (plan, error) {
	var p plan
	if strings.TrimSpace(req.Prompt) == "" {
		return p, errs.Validation("prompt", "must not be empty")
	}
	p.prompt = req.Prompt
	if req.Seed < RandomSeed {
		return p, errs.Validation("seed", "must be -1 (random) or a non-negative integer")
	}
	p.seed = req.Seed
	if req.Steps != nil && (*req.Steps < MinSteps || *req.Steps > MaxSteps) {
		return p, errs.Validation("steps", fmt.Sprintf("must be between %d and %d", MinSteps, MaxSteps))
	}
	if req.GuidanceScale != nil && !inRange(*req.GuidanceScale, MinGuidance, MaxGuidance) {
		return p, errs.Validation("guidance_scale", fmt.Sprintf("must be between %g and %g", MinGuidance, MaxGuidance))
	}
	if req.Shift != nil && !inRange(*req.Shift, MinShift, MaxShift) {
		return p, errs.Validation("shift", fmt.Sprintf("must be between %g and %g", MinShift, MaxShift))
	}
	p.format = imaging.PNG
	if strings.TrimSpace(req.Format) != "" {
		f, ok := imaging.ParseFormat(req.Format)
		if !ok {
			return p, errs.Validation("format", fmt.Sprintf("unsupported format %q (want PNG, JPEG or WEBP)", req.Format))
		}
		p.format = f
	}

	w, h, err := resolveResolution(req)
	if err != nil {
		return p, err
	}
	p.width, p.height = w, h

	var kind registry.SchedulerKind
	if name := strings.TrimSpace(req.Scheduler); name != "" {
		k, ok := registry.ParseScheduler(name)
		if !ok {
			return p, errs.Validation("scheduler", fmt.Sprintf("unknown scheduler %q", name))
		}
		kind = k
	}

	id := strings.TrimSpace(req.Variant)
	if id == "" {
		id = reg.DefaultID()
	}
	v, ok := reg.Lookup(id)
	if !ok {
		return p, errs.Configuration("resolve", fmt.Sprintf("unknown model variant %q", id))
	}
	p.variant = v
	p.scheduler = v.Scheduler
	if kind != "" {
		p.scheduler = kind
	}
	p.guidance = v.GuidanceScale
	if req.GuidanceScale != nil {
		p.guidance = *req.GuidanceScale
	}
	p.steps = v.Steps
	if req.Steps != nil {
		p.steps = *req.Steps
	}
	p.shift = v.Shift
	if req.Shift != nil {
		p.shift = *req.Shift
	}
	return p, nil
}

// resolveResolution maps the resolution choice to pixel dimensions. Presets
// ignore any custom width/height.
func resolveResolution(req Request) (int, int, error) {
	choice := strings.TrimSpace(req.Resolution)
	if choice == "" {
		d := registry.DefaultPreset()
		return d.Width, d.Height, nil
	}
	if p, ok := registry.LookupPreset(choice); ok {
		return p.Width, p.Height, nil
	}
	if !strings.EqualFold(choice, registry.CustomResolution) {
		return 0, 0, errs.Validation("resolution", fmt.Sprintf("unknown resolution %q", req.Resolution))
	}
	if req.Width == nil {
		return 0, 0, errs.Validation("width", "required for a Custom resolution")
	}
	if req.Height == nil {
		return 0, 0, errs.Validation("height", "required for a Custom resolution")
	}
	if err := checkDimension("width", *req.Width); err != nil {
		return 0, 0, err
	}
	if err := checkDimension("height", *req.Height); err != nil {
		return 0, 0, err
	}
	return *req.Width, *req.Height, nil
}

// inRange is false for NaN.
func inRange(v, lo, hi float64) bool { return v >= lo && v <= hi }

func checkDimension(field string, v int) error {
	if v < registry.MinDimension || v > registry.MaxDimension {
		return errs.Validation(field, fmt.Sprintf("must be between %d and %d", registry.MinDimension, registry.MaxDimension))
	}
	return nil
}
