package manager

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"image"
	"sync"
	"time"
)

// SyntheticBackend renders a deterministic pattern in-process. It stands in
// for a real pipeline in development and tests: identical prompt, seed, size
// and sampling settings always yield identical pixels.
//
// Configure the failure knobs before the first Load.
type SyntheticBackend struct {
	// FailPrimary fails loads of these variants while a Dtype hint is set, so
	// the reduced-configuration retry succeeds.
	FailPrimary map[string]bool
	// FailAll fails every load of these variants.
	FailAll map[string]bool
	// GenerateErr, when set, is returned by every Generate.
	GenerateErr error
	// GenerateDelay simulates sampling time.
	GenerateDelay time.Duration

	mu      sync.Mutex
	calls   []string
	loads   []LoadSpec
	open    int
	maxOpen int
}

func NewSyntheticBackend() *SyntheticBackend { return &SyntheticBackend{} }

func (b *SyntheticBackend) Name() string { return "synthetic" }

func (b *SyntheticBackend) Load(ctx context.Context, spec LoadSpec) (Pipeline, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.loads = append(b.loads, spec)
	b.calls = append(b.calls, "load:"+spec.Variant)
	if b.FailAll[spec.Variant] || (b.FailPrimary[spec.Variant] && spec.Dtype != "") {
		return nil, fmt.Errorf("synthetic: cannot load %s (dtype=%q)", spec.Variant, spec.Dtype)
	}
	b.open++
	if b.open > b.maxOpen {
		b.maxOpen = b.open
	}
	return &syntheticPipeline{b: b, variant: spec.Variant, sched: SchedulerConfig{Kind: spec.Scheduler, Shift: spec.Shift}}, nil
}

// Calls returns "load:<id>" / "close:<id>" records in call order.
func (b *SyntheticBackend) Calls() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.calls...)
}

// Loads returns every LoadSpec received, including failed attempts.
func (b *SyntheticBackend) Loads() []LoadSpec {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]LoadSpec(nil), b.loads...)
}

// MaxOpen is the highest number of simultaneously open pipelines observed.
func (b *SyntheticBackend) MaxOpen() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.maxOpen
}

// Open is the number of pipelines currently open.
func (b *SyntheticBackend) Open() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.open
}

type syntheticPipeline struct {
	b       *SyntheticBackend
	variant string

	mu     sync.Mutex
	sched  SchedulerConfig
	closed bool
}

var errPipelineClosed = errors.New("synthetic: pipeline closed")

func (p *syntheticPipeline) SetScheduler(ctx context.Context, cfg SchedulerConfig) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return errPipelineClosed
	}
	p.sched = cfg
	return nil
}

func (p *syntheticPipeline) Generate(ctx context.Context, gp GenerateParams) (image.Image, error) {
	p.mu.Lock()
	closed, sched := p.closed, p.sched
	p.mu.Unlock()
	if closed {
		return nil, errPipelineClosed
	}
	if p.b.GenerateErr != nil {
		return nil, p.b.GenerateErr
	}
	if gp.Width <= 0 || gp.Height <= 0 {
		return nil, fmt.Errorf("synthetic: bad size %dx%d", gp.Width, gp.Height)
	}
	if p.b.GenerateDelay > 0 {
		select {
		case <-time.After(p.b.GenerateDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return renderSynthetic(gp, sched), nil
}

func (p *syntheticPipeline) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()
	p.b.mu.Lock()
	p.b.open--
	p.b.calls = append(p.b.calls, "close:"+p.variant)
	p.b.mu.Unlock()
	return nil
}

// renderSynthetic draws a seeded gradient. Every input that would change a
// real sample feeds the hash.
func renderSynthetic(gp GenerateParams, sc SchedulerConfig) *image.NRGBA {
	h := fnv.New64a()
	fmt.Fprintf(h, "%s|%d|%d|%d|%g|%d|%s|%g|%d|%t",
		gp.Prompt, gp.Seed, gp.Width, gp.Height, gp.GuidanceScale, gp.NumInferenceSteps,
		sc.Kind, sc.Shift, sc.NumTrainTimesteps, sc.UseDynamicShifting)
	sum := h.Sum64()
	r0, g0, b0 := uint8(sum), uint8(sum>>8), uint8(sum>>16)
	fx, fy := int(sum>>24&0x0f)+1, int(sum>>28&0x0f)+1
	img := image.NewNRGBA(image.Rect(0, 0, gp.Width, gp.Height))
	for y := 0; y < gp.Height; y++ {
		for x := 0; x < gp.Width; x++ {
			i := img.PixOffset(x, y)
			img.Pix[i+0] = r0 + uint8(x*fx>>2)
			img.Pix[i+1] = g0 + uint8(y*fy>>2)
			img.Pix[i+2] = b0 + uint8(x^y)
			img.Pix[i+3] = 0xff
		}
	}
	return img
}
