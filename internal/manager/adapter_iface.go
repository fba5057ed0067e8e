package manager

import (
	"context"
	"image"

	"hdi1d/internal/registry"
)

// Backend abstracts the diffusion runtime used by the Manager.
// Concrete implementations: workerBackend (spawned subprocess), remoteBackend
// (already-running worker) and SyntheticBackend (in-process renderer).
type Backend interface {
	// Name identifies the backend kind in status output.
	Name() string
	// Load brings a pipeline for spec into memory.
	Load(ctx context.Context, spec LoadSpec) (Pipeline, error)
}

// Pipeline is a loaded, ready-to-sample model. A Pipeline is used by one
// generation at a time; the Manager's admission gate guarantees that.
type Pipeline interface {
	// SetScheduler replaces the sampling scheduler.
	SetScheduler(ctx context.Context, cfg SchedulerConfig) error
	// Generate produces exactly one image.
	Generate(ctx context.Context, p GenerateParams) (image.Image, error)
	// Close releases the weights and any accelerator memory.
	Close() error
}

// OffloadSequentialCPU asks the worker to keep idle submodules on the CPU.
const OffloadSequentialCPU = "sequential_cpu"

// DtypeBFloat16 is the preferred precision hint.
const DtypeBFloat16 = "bfloat16"

// LoadSpec describes what to load. An empty Dtype lets the runtime pick its
// own default precision.
type LoadSpec struct {
	Variant     string                 `json:"variant"`
	Path        string                 `json:"path"`
	TextEncoder string                 `json:"text_encoder"`
	Scheduler   registry.SchedulerKind `json:"scheduler"`
	Shift       float64                `json:"shift"`
	Dtype       string                 `json:"dtype,omitempty"`
	Offload     string                 `json:"offload,omitempty"`
}

// SchedulerConfig is assigned to a pipeline before each generation.
type SchedulerConfig struct {
	Kind               registry.SchedulerKind `json:"kind"`
	NumTrainTimesteps  int                    `json:"num_train_timesteps"`
	Shift              float64                `json:"shift"`
	UseDynamicShifting bool                   `json:"use_dynamic_shifting"`
}

// GenerateParams are the per-request sampling inputs.
type GenerateParams struct {
	Prompt            string  `json:"prompt"`
	Width             int     `json:"width"`
	Height            int     `json:"height"`
	GuidanceScale     float64 `json:"guidance_scale"`
	NumInferenceSteps int     `json:"num_inference_steps"`
	Seed              int64   `json:"seed"`
}
