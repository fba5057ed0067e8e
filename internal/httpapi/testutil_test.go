package httpapi

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"hdi1d/internal/generation"
	"hdi1d/internal/imaging"
	"hdi1d/internal/manager"
	"hdi1d/pkg/types"
)

type mockService struct {
	mu          sync.Mutex
	options     types.OptionsResponse
	status      types.StatusResponse
	ready       bool
	result      generation.Result
	got         []generation.Request
	switchID    string
	switchErr   error
	unloadErr   error
	unloads     int
	cleanup     imaging.CleanupReport
	cleanErr    error
	history     []types.HistoryEntry
	histVariant string
	histLimit   int
	files       map[string]string
	events      *manager.Broadcaster
}

func (m *mockService) Options() types.OptionsResponse { return m.options }
func (m *mockService) Status() types.StatusResponse   { return m.status }
func (m *mockService) Ready() bool                    { return m.ready }
func (m *mockService) Generate(ctx context.Context, req generation.Request) generation.Result {
	m.mu.Lock()
	m.got = append(m.got, req)
	m.mu.Unlock()
	return m.result
}
func (m *mockService) Switch(ctx context.Context, variant string) (string, error) {
	return m.switchID, m.switchErr
}
func (m *mockService) Unload(ctx context.Context) error { m.unloads++; return m.unloadErr }
func (m *mockService) Cleanup(ctx context.Context) (imaging.CleanupReport, error) {
	return m.cleanup, m.cleanErr
}
func (m *mockService) History(ctx context.Context, variant string, limit int) ([]types.HistoryEntry, error) {
	m.histVariant, m.histLimit = variant, limit
	return m.history, nil
}
func (m *mockService) lookup(name string) (string, imaging.Format, bool) {
	p, ok := m.files[name]
	if !ok {
		return "", "", false
	}
	f, _ := imaging.ParseFormat(filepath.Ext(p)[1:])
	return p, f, true
}
func (m *mockService) TempFile(name string) (string, imaging.Format, bool)   { return m.lookup(name) }
func (m *mockService) OutputFile(name string) (string, imaging.Format, bool) { return m.lookup(name) }
func (m *mockService) Subscribe(buf int) (<-chan manager.Event, func()) {
	if m.events == nil {
		return nil, func() {}
	}
	return m.events.Subscribe(buf)
}

func (m *mockService) requests() []generation.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]generation.Request(nil), m.got...)
}

func okResult(dir string) generation.Result {
	return generation.Result{
		ID:          "req-1",
		Seed:        42,
		Status:      generation.StatusComplete,
		SavedPath:   filepath.Join(dir, "output_2025-01-02_03-04-05.png"),
		SaveMessage: generation.SaveMessage(filepath.Join(dir, "output_2025-01-02_03-04-05.png")),
		TempPath:    filepath.Join(os.TempDir(), "hdi1_abc.png"),
		Variant:     "fast",
		Width:       1024,
		Height:      1024,
		Format:      imaging.PNG,
		Duration:    1500 * time.Millisecond,
	}
}
