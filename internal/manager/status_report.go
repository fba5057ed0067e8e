package manager

import (
	"time"

	"hdi1d/pkg/types"
)

// Snapshot returns a read-only view of the manager state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Snapshot{
		State:    m.state,
		Variant:  m.variant,
		Loaded:   m.pipe != nil,
		Err:      m.err,
		LoadedAt: m.loadedAt,
	}
}

// Status builds a detailed status response for /status.
func (m *Manager) Status() types.StatusResponse {
	m.mu.RLock()
	resp := types.StatusResponse{
		LoadedVariant: m.variant,
		State:         string(m.state),
		LastError:     m.err,
	}
	if !m.loadedAt.IsZero() {
		resp.LoadedAtUnix = m.loadedAt.Unix()
	}
	m.mu.RUnlock()
	now := time.Now()
	resp.Backend = m.backend.Name()
	resp.QueueLen = len(m.queueCh)
	resp.Inflight = len(m.genCh)
	resp.MaxQueueDepth = cap(m.queueCh)
	resp.LoadsTotal = m.loads.Load()
	resp.FallbacksTotal = m.fallbacks.Load()
	resp.UptimeSeconds = int64(now.Sub(m.startTime).Seconds())
	resp.ServerTimeUnix = now.Unix()
	return resp
}
