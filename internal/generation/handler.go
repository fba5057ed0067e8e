package generation

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"hdi1d/internal/errs"
	"hdi1d/internal/imaging"
	"hdi1d/internal/manager"
	"hdi1d/internal/registry"
	"hdi1d/pkg/types"
)

// Models is the part of the model manager the handler needs.
type Models interface {
	Admit(ctx context.Context) (func(), error)
	EnsureLoaded(ctx context.Context, variantID string) (manager.Pipeline, error)
	Registry() *registry.Registry
}

// Recorder journals successful generations.
type Recorder interface {
	Record(ctx context.Context, e types.HistoryEntry) error
}

// SeedSource draws a random seed in [0, MaxRandomSeed).
type SeedSource func() int64

func defaultSeeds() int64 { return rand.Int64N(MaxRandomSeed) }

// Options wires a Handler. Models and Store are required.
type Options struct {
	Models    Models
	Store     *imaging.Store
	Recorder  Recorder
	Publisher manager.EventPublisher
	Logger    *zerolog.Logger
	Seeds     SeedSource
	Now       func() time.Time
}

// Handler runs generation requests. It is safe for concurrent use; the
// model manager's admission gate serializes the expensive part.
type Handler struct {
	models    Models
	store     *imaging.Store
	recorder  Recorder
	publisher manager.EventPublisher
	log       zerolog.Logger
	seeds     SeedSource
	now       func() time.Time
}

func New(opts Options) *Handler {
	h := &Handler{
		models:    opts.Models,
		store:     opts.Store,
		recorder:  opts.Recorder,
		publisher: opts.Publisher,
		seeds:     opts.Seeds,
		now:       opts.Now,
	}
	if h.publisher == nil {
		h.publisher = manager.MultiPublisher()
	}
	if opts.Logger != nil {
		h.log = opts.Logger.With().Str("component", "generation").Logger()
	} else {
		h.log = zerolog.Nop()
	}
	if h.seeds == nil {
		h.seeds = defaultSeeds
	}
	if h.now == nil {
		h.now = time.Now
	}
	return h
}

// Store exposes the file store used for outputs and downloads.
func (h *Handler) Store() *imaging.Store { return h.store }

func (h *Handler) emit(name, id, variant string, fields map[string]any) {
	if fields == nil {
		fields = map[string]any{}
	}
	fields["request_id"] = id
	h.publisher.Publish(manager.Event{Name: name, Variant: variant, Time: h.now(), Fields: fields})
}

// Handle runs req to completion. It never panics and never returns a bare
// error: failures are reported through Result.Err and Result.Status.
func (h *Handler) Handle(ctx context.Context, req Request) (res Result) {
	id := uuid.NewString()
	start := h.now()
	defer func() {
		if r := recover(); r != nil {
			h.log.Error().Str("event", "panic").Str("request_id", id).Interface("panic", r).Msg("generation")
			res = h.fail(id, res.Variant, start, errs.E(errs.KindInternal, "generate", fmt.Errorf("panic: %v", r)))
		}
	}()

	p, err := resolve(h.models.Registry(), req)
	if err != nil {
		return h.fail(id, req.Variant, start, err)
	}
	h.emit("generation_start", id, p.variant.ID, map[string]any{"width": p.width, "height": p.height, "format": string(p.format)})

	release, err := h.models.Admit(ctx)
	if err != nil {
		return h.fail(id, p.variant.ID, start, err)
	}
	defer release()

	h.emit("cleanup", id, p.variant.ID, nil)
	if rep := h.store.CleanTemp(); rep.Err() != nil {
		h.log.Warn().Str("event", "cleanup_error").Str("kind", string(errs.KindCleanup)).Err(rep.Err()).Int("failed", len(rep.Failed)).Msg("generation")
	}

	h.emit("loading", id, p.variant.ID, nil)
	pipe, err := h.models.EnsureLoaded(ctx, p.variant.ID)
	if err != nil {
		return h.fail(id, p.variant.ID, start, err)
	}

	sc := manager.SchedulerConfig{
		Kind:               p.scheduler,
		NumTrainTimesteps:  registry.NumTrainTimesteps,
		Shift:              p.shift,
		UseDynamicShifting: false,
	}
	if err := pipe.SetScheduler(ctx, sc); err != nil {
		return h.fail(id, p.variant.ID, start, errs.E(errs.KindGeneration, "set scheduler", err))
	}

	seed := p.seed
	if seed == RandomSeed {
		seed = h.seeds()
		randomSeedsTotal.Inc()
	}

	h.emit("generating", id, p.variant.ID, map[string]any{"seed": seed, "steps": p.steps})
	h.log.Info().Str("event", "generating").Str("request_id", id).Str("variant", p.variant.ID).
		Int64("seed", seed).Int("steps", p.steps).Float64("guidance", p.guidance).
		Str("scheduler", string(p.scheduler)).Int("width", p.width).Int("height", p.height).Msg("generation")
	img, err := pipe.Generate(ctx, manager.GenerateParams{
		Prompt:            p.prompt,
		Width:             p.width,
		Height:            p.height,
		GuidanceScale:     p.guidance,
		NumInferenceSteps: p.steps,
		Seed:              seed,
	})
	if err != nil {
		return h.fail(id, p.variant.ID, start, errs.E(errs.KindGeneration, "generate", err))
	}
	if img == nil {
		return h.fail(id, p.variant.ID, start, errs.E(errs.KindGeneration, "generate", fmt.Errorf("pipeline returned no image")))
	}

	h.emit("saving", id, p.variant.ID, nil)
	saved, err := h.store.Save(img, p.format)
	if err != nil {
		return h.fail(id, p.variant.ID, start, errs.E(errs.KindPersist, "save", err))
	}

	dur := h.now().Sub(start)
	res = Result{
		ID:            id,
		Image:         img,
		Seed:          seed,
		SavedPath:     saved.OutputPath,
		SaveMessage:   SaveMessage(saved.OutputPath),
		TempPath:      saved.TempPath,
		Status:        StatusComplete,
		Variant:       p.variant.ID,
		Width:         p.width,
		Height:        p.height,
		Format:        p.format,
		Scheduler:     p.scheduler,
		GuidanceScale: p.guidance,
		Steps:         p.steps,
		Shift:         p.shift,
		Duration:      dur,
	}
	h.journal(ctx, p, res)

	requestsTotal.WithLabelValues("ok").Inc()
	generationDuration.WithLabelValues(p.variant.ID).Observe(dur.Seconds())
	h.log.Info().Str("event", "generation_done").Str("request_id", id).Str("variant", p.variant.ID).
		Str("path", saved.OutputPath).Dur("dur", dur).Msg("generation")
	h.emit("generation_done", id, p.variant.ID, map[string]any{"seed": seed, "saved_path": saved.OutputPath, "dur_ms": dur.Milliseconds()})
	return res
}

func (h *Handler) journal(ctx context.Context, p plan, res Result) {
	if h.recorder == nil {
		return
	}
	e := types.HistoryEntry{
		ID:            res.ID,
		CreatedAtUnix: h.now().Unix(),
		Variant:       res.Variant,
		Prompt:        p.prompt,
		Seed:          res.Seed,
		Scheduler:     string(res.Scheduler),
		GuidanceScale: res.GuidanceScale,
		Steps:         res.Steps,
		Shift:         res.Shift,
		Width:         res.Width,
		Height:        res.Height,
		Format:        string(res.Format),
		SavedPath:     res.SavedPath,
		DurationMS:    res.Duration.Milliseconds(),
	}
	if err := h.recorder.Record(ctx, e); err != nil {
		h.log.Warn().Str("event", "journal_error").Str("request_id", res.ID).Err(err).Msg("generation")
	}
}

func (h *Handler) fail(id, variant string, start time.Time, err error) Result {
	kind := errs.KindOf(err)
	requestsTotal.WithLabelValues(string(kind)).Inc()
	ev := h.log.Error()
	if kind == errs.KindValidation || kind == errs.KindConfiguration || kind == errs.KindBusy {
		ev = h.log.Warn()
	}
	ev.Str("event", "generation_error").Str("request_id", id).Str("variant", variant).Str("kind", string(kind)).Err(err).Msg("generation")
	h.emit("generation_error", id, variant, map[string]any{"kind": string(kind), "error": err.Error()})
	return Result{ID: id, Status: ErrorStatus(err), Err: err, Variant: variant, Duration: h.now().Sub(start)}
}

// CleanupAll deletes every temporary artifact. Partial failures are reported
// in the returned report and as a Cleanup error.
func (h *Handler) CleanupAll(ctx context.Context) (imaging.CleanupReport, error) {
	rep := h.store.CleanTemp()
	h.publisher.Publish(manager.Event{Name: "cleanup", Time: h.now(), Fields: map[string]any{"deleted": len(rep.Deleted), "failed": len(rep.Failed)}})
	h.log.Info().Str("event", "cleanup_all").Int("deleted", len(rep.Deleted)).Int("failed", len(rep.Failed)).Msg("generation")
	if err := rep.Err(); err != nil {
		return rep, errs.E(errs.KindCleanup, "cleanup", err)
	}
	return rep, nil
}
