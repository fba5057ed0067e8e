package manager

import (
	"context"
	"fmt"
	"time"

	"hdi1d/internal/errs"
)

// Release closes and clears the loaded pipeline. It is a no-op when nothing
// is loaded.
func (m *Manager) Release(ctx context.Context) error {
	m.loadMu.Lock()
	defer m.loadMu.Unlock()
	return m.releaseLocked()
}

// releaseLocked requires loadMu. State is cleared before the handle is
// closed so readers never see a closed pipeline.
func (m *Manager) releaseLocked() error {
	m.mu.Lock()
	pipe, variant := m.pipe, m.variant
	if pipe == nil {
		m.mu.Unlock()
		return nil
	}
	m.pipe = nil
	m.variant = ""
	m.state = StateUnloaded
	m.loadedAt = time.Time{}
	m.mu.Unlock()

	m.log.Info().Str("event", "unload_start").Str("variant", variant).Msg("manager")
	m.emit("unload_start", variant, nil)
	loadedVariant.WithLabelValues(variant).Set(0)
	err := pipe.Close()
	m.emit("unload_done", variant, nil)
	if err != nil {
		return errs.E(errs.KindInternal, "unload "+variant, err)
	}
	m.log.Info().Str("event", "unload_done").Str("variant", variant).Msg("manager")
	return nil
}

// Shutdown stops admitting work, waits up to DrainTimeout (or ctx) for queued
// and in-flight requests and background switches, then releases the pipeline.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	m.closing = true
	m.mu.Unlock()

	deadline := time.Now().Add(m.drainTimeout)
	for {
		qlen, inflight := len(m.queueCh), len(m.genCh)
		if qlen == 0 && inflight == 0 {
			break
		}
		if time.Now().After(deadline) || ctx.Err() != nil {
			m.log.Warn().Str("event", "drain_timeout").Int("queue", qlen).Int("inflight", inflight).Msg("manager")
			m.emit("drain_timeout", "", map[string]any{"queue": qlen, "inflight": inflight})
			return fmt.Errorf("drain: %d queued, %d in flight", qlen, inflight)
		}
		select {
		case <-ctx.Done():
		case <-time.After(10 * time.Millisecond):
		}
	}
	m.bg.Wait()
	return m.Release(ctx)
}
