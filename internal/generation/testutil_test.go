package generation

import (
	"context"
	"errors"
	"image"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"hdi1d/internal/imaging"
	"hdi1d/internal/manager"
	"hdi1d/internal/registry"
	"hdi1d/pkg/types"
)

// recordingPipeline captures what the handler hands to the pipeline.
type recordingPipeline struct {
	mu       sync.Mutex
	sched    []manager.SchedulerConfig
	params   []manager.GenerateParams
	genErr   error
	panicMsg string
}

func (p *recordingPipeline) SetScheduler(ctx context.Context, cfg manager.SchedulerConfig) error {
	p.mu.Lock()
	p.sched = append(p.sched, cfg)
	p.mu.Unlock()
	return nil
}

func (p *recordingPipeline) Generate(ctx context.Context, gp manager.GenerateParams) (image.Image, error) {
	if p.panicMsg != "" {
		panic(p.panicMsg)
	}
	p.mu.Lock()
	p.params = append(p.params, gp)
	p.mu.Unlock()
	if p.genErr != nil {
		return nil, p.genErr
	}
	return image.NewNRGBA(image.Rect(0, 0, gp.Width, gp.Height)), nil
}

func (p *recordingPipeline) Close() error { return nil }

// fakeModels satisfies Models without a real manager.
type fakeModels struct {
	reg      *registry.Registry
	pipe     *recordingPipeline
	admitErr error
	loadErr  error
	admits   int
	ensured  []string
}

func (f *fakeModels) Admit(ctx context.Context) (func(), error) {
	f.admits++
	if f.admitErr != nil {
		return func() {}, f.admitErr
	}
	return func() {}, nil
}

func (f *fakeModels) EnsureLoaded(ctx context.Context, id string) (manager.Pipeline, error) {
	f.ensured = append(f.ensured, id)
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return f.pipe, nil
}

func (f *fakeModels) Registry() *registry.Registry { return f.reg }

type memRecorder struct {
	mu      sync.Mutex
	entries []types.HistoryEntry
	err     error
}

func (r *memRecorder) Record(ctx context.Context, e types.HistoryEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.entries = append(r.entries, e)
	return nil
}

func newStore(t *testing.T) *imaging.Store {
	t.Helper()
	s, err := imaging.NewStore(filepath.Join(t.TempDir(), "outputs"), filepath.Join(t.TempDir(), "tmp"))
	require.NoError(t, err)
	return s
}

// newSyntheticHandler wires a Handler to a real manager over the synthetic backend.
func newSyntheticHandler(t *testing.T, seeds SeedSource) (*Handler, *manager.Manager, *manager.SyntheticBackend, *manager.MemoryPublisher) {
	t.Helper()
	sb := manager.NewSyntheticBackend()
	pub := manager.NewMemoryPublisher()
	m := manager.New(manager.Config{Backend: sb, Publisher: pub})
	h := New(Options{Models: m, Store: newStore(t), Publisher: pub, Seeds: seeds})
	return h, m, sb, pub
}

func newFakeHandler(t *testing.T) (*Handler, *fakeModels, *memRecorder) {
	t.Helper()
	fm := &fakeModels{reg: registry.Default(), pipe: &recordingPipeline{}}
	rec := &memRecorder{}
	h := New(Options{Models: fm, Store: newStore(t), Recorder: rec, Seeds: func() int64 { return 777 }})
	return h, fm, rec
}

func intp(v int) *int           { return &v }
func floatp(v float64) *float64 { return &v }

var errBoom = errors.New("boom")
