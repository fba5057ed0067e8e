package manager

import (
	"context"
	"time"

	"hdi1d/internal/errs"
	"hdi1d/internal/registry"
)

// EnsureLoaded returns the pipeline for variantID, loading it if needed.
// When a different variant is loaded it is released before the new load
// starts, so two pipelines never coexist. A failed primary load is retried
// once without the precision hint; if that fails too, the manager stays
// unloaded.
func (m *Manager) EnsureLoaded(ctx context.Context, variantID string) (Pipeline, error) {
	v, ok := m.reg.Lookup(variantID)
	if !ok {
		return nil, errVariantNotFound(variantID)
	}
	if p := m.loadedPipeline(variantID); p != nil {
		return p, nil
	}

	m.loadMu.Lock()
	defer m.loadMu.Unlock()
	// Another caller may have loaded it while we waited for loadMu.
	if p := m.loadedPipeline(variantID); p != nil {
		return p, nil
	}

	start := time.Now()
	m.log.Info().Str("event", "ensure_start").Str("variant", variantID).Msg("manager")
	m.emit("ensure_start", variantID, nil)

	if err := m.releaseLocked(); err != nil {
		m.log.Warn().Err(err).Str("event", "unload_error").Msg("manager")
	}
	m.setState(StateLoading, "")

	spec := m.loadSpec(v)
	pipe, err := m.backend.Load(ctx, spec)
	if err != nil {
		loadsTotal.WithLabelValues(variantID, "error").Inc()
		loadFallbacksTotal.WithLabelValues(variantID).Inc()
		m.fallbacks.Add(1)
		m.log.Warn().Err(err).Str("event", "load_fallback").Str("variant", variantID).Msg("manager")
		m.emit("load_fallback", variantID, map[string]any{"error": err.Error(), "dropped": "dtype"})
		spec.Dtype = ""
		pipe, err = m.backend.Load(ctx, spec)
	}
	if err != nil {
		loadsTotal.WithLabelValues(variantID, "error").Inc()
		m.setState(StateError, err.Error())
		m.log.Error().Err(err).Str("event", "ensure_error").Str("variant", variantID).Msg("manager")
		m.emit("ensure_error", variantID, map[string]any{"error": err.Error()})
		return nil, errs.E(errs.KindLoad, "load "+variantID, err)
	}

	now := time.Now()
	m.mu.Lock()
	m.variant = variantID
	m.pipe = pipe
	m.state = StateReady
	m.err = ""
	m.loadedAt = now
	m.mu.Unlock()
	m.loads.Add(1)
	loadsTotal.WithLabelValues(variantID, "ok").Inc()
	loadDuration.WithLabelValues(variantID).Observe(now.Sub(start).Seconds())
	loadedVariant.WithLabelValues(variantID).Set(1)

	dur := now.Sub(start)
	m.log.Info().Str("event", "ensure_ready").Str("variant", variantID).Dur("dur", dur).Str("dtype", spec.Dtype).Msg("manager")
	m.emit("ensure_ready", variantID, map[string]any{"dur_ms": dur.Milliseconds(), "dtype": spec.Dtype})
	return pipe, nil
}

func (m *Manager) loadedPipeline(variantID string) Pipeline {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.pipe != nil && m.variant == variantID {
		return m.pipe
	}
	return nil
}

func (m *Manager) loadSpec(v registry.Variant) LoadSpec {
	return LoadSpec{
		Variant:     v.ID,
		Path:        v.Path,
		TextEncoder: m.textEncoder,
		Scheduler:   v.Scheduler,
		Shift:       v.Shift,
		Dtype:       DtypeBFloat16,
		Offload:     OffloadSequentialCPU,
	}
}
