package manager

import (
	"context"

	"github.com/google/uuid"
)

// Switch kicks off an asynchronous load of variantID and returns an operation
// ID. The load waits its turn at the admission gate like any generation, so it
// never swaps the pipeline out from under a running request. Completion is
// reported through switch_done / switch_error events carrying the op id.
func (m *Manager) Switch(ctx context.Context, variantID string) (string, error) {
	if _, ok := m.reg.Lookup(variantID); !ok {
		return "", errVariantNotFound(variantID)
	}
	op := uuid.NewString()
	m.bg.Add(1)
	go func() {
		defer m.bg.Done()
		// Detached from the caller: the HTTP request returns immediately.
		bctx := context.Background()
		release, err := m.Admit(bctx)
		if err != nil {
			m.emit("switch_error", variantID, map[string]any{"op": op, "error": err.Error()})
			return
		}
		defer release()
		if _, err := m.EnsureLoaded(bctx, variantID); err != nil {
			m.emit("switch_error", variantID, map[string]any{"op": op, "error": err.Error()})
			return
		}
		m.emit("switch_done", variantID, map[string]any{"op": op})
	}()
	return op, nil
}

// Wait blocks until background switches have finished.
func (m *Manager) Wait() { m.bg.Wait() }
