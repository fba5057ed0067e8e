package httpapi

import (
	"context"

	"hdi1d/internal/generation"
	"hdi1d/internal/history"
	"hdi1d/internal/imaging"
	"hdi1d/internal/manager"
	"hdi1d/internal/registry"
	"hdi1d/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	Options() types.OptionsResponse
	Status() types.StatusResponse
	Ready() bool
	Generate(ctx context.Context, req generation.Request) generation.Result
	Switch(ctx context.Context, variant string) (string, error)
	Unload(ctx context.Context) error
	Cleanup(ctx context.Context) (imaging.CleanupReport, error)
	History(ctx context.Context, variant string, limit int) ([]types.HistoryEntry, error)
	TempFile(name string) (string, imaging.Format, bool)
	OutputFile(name string) (string, imaging.Format, bool)
	// Subscribe returns a nil channel when no event stream is wired.
	Subscribe(buf int) (<-chan manager.Event, func())
}

// Deps are the components behind the default Service. History and Events
// are optional.
type Deps struct {
	Manager *manager.Manager
	Handler *generation.Handler
	History *history.Store
	Events  *manager.Broadcaster
}

type service struct{ d Deps }

// NewService adapts the manager, the generation handler and the history
// journal to the HTTP layer.
func NewService(d Deps) Service { return &service{d: d} }

func (s *service) Options() types.OptionsResponse {
	reg := s.d.Manager.Registry()
	out := types.OptionsResponse{DefaultVariant: reg.DefaultID()}
	for _, v := range reg.Variants() {
		out.Variants = append(out.Variants, v.API())
	}
	for _, k := range registry.Schedulers() {
		out.Schedulers = append(out.Schedulers, string(k))
	}
	for _, p := range registry.Presets() {
		out.Presets = append(out.Presets, p.API())
	}
	for _, f := range imaging.Formats() {
		out.Formats = append(out.Formats, string(f))
	}
	return out
}

func (s *service) Status() types.StatusResponse { return s.d.Manager.Status() }
func (s *service) Ready() bool                  { return s.d.Manager.Ready() }

func (s *service) Generate(ctx context.Context, req generation.Request) generation.Result {
	return s.d.Handler.Handle(ctx, req)
}

func (s *service) Switch(ctx context.Context, variant string) (string, error) {
	return s.d.Manager.Switch(ctx, variant)
}

// Unload waits for the generation slot so a running request keeps its pipeline.
func (s *service) Unload(ctx context.Context) error {
	release, err := s.d.Manager.Admit(ctx)
	if err != nil {
		return err
	}
	defer release()
	return s.d.Manager.Release(ctx)
}

// Cleanup also takes the generation slot, so a download copy is never
// deleted before its response is written.
func (s *service) Cleanup(ctx context.Context) (imaging.CleanupReport, error) {
	release, err := s.d.Manager.Admit(ctx)
	if err != nil {
		return imaging.CleanupReport{}, err
	}
	defer release()
	return s.d.Handler.CleanupAll(ctx)
}

func (s *service) History(ctx context.Context, variant string, limit int) ([]types.HistoryEntry, error) {
	if s.d.History == nil {
		return []types.HistoryEntry{}, nil
	}
	return s.d.History.List(ctx, variant, limit)
}

func (s *service) TempFile(name string) (string, imaging.Format, bool) {
	return s.d.Handler.Store().TempFile(name)
}

func (s *service) OutputFile(name string) (string, imaging.Format, bool) {
	return s.d.Handler.Store().OutputFile(name)
}

func (s *service) Subscribe(buf int) (<-chan manager.Event, func()) {
	if s.d.Events == nil {
		return nil, func() {}
	}
	return s.d.Events.Subscribe(buf)
}
