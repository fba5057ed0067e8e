package manager

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"hdi1d/internal/registry"
)

// Manager owns at most one loaded pipeline. EnsureLoaded and Release are the
// only mutators of the loaded state; everything else reads it.
type Manager struct {
	// mu guards the fields below it; it is never held across backend calls.
	mu       sync.RWMutex
	state    State
	variant  string
	pipe     Pipeline
	err      string
	loadedAt time.Time
	closing  bool

	// loadMu serializes EnsureLoaded and Release.
	loadMu sync.Mutex

	reg         *registry.Registry
	backend     Backend
	textEncoder string
	publisher   EventPublisher
	log         zerolog.Logger
	startTime   time.Time

	loads     atomic.Uint64
	fallbacks atomic.Uint64

	// Admission: queueCh holds waiting+running requests, genCh the single
	// in-flight slot.
	genCh         chan struct{}
	queueCh       chan struct{}
	maxQueueDepth int
	maxWait       time.Duration
	drainTimeout  time.Duration

	bg sync.WaitGroup
}

// Ready reports whether the manager accepts new work.
func (m *Manager) Ready() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return !m.closing
}

// Current returns the loaded variant id, if any.
func (m *Manager) Current() (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.variant, m.pipe != nil
}

func (m *Manager) Registry() *registry.Registry { return m.reg }

func (m *Manager) BackendName() string { return m.backend.Name() }

// SetPublisher swaps the event publisher. Not safe to call concurrently with
// running operations; intended for start-up wiring.
func (m *Manager) SetPublisher(p EventPublisher) {
	if p == nil {
		p = noopPublisher{}
	}
	m.publisher = p
}

func (m *Manager) setState(s State, errMsg string) {
	m.mu.Lock()
	m.state = s
	m.err = errMsg
	m.mu.Unlock()
}
