package manager

import (
	"time"

	"github.com/rs/zerolog"

	"hdi1d/internal/registry"
)

// Defaults applied when corresponding Config fields are unset.
const (
	defaultMaxQueueDepth = 32
	defaultMaxWait       = 30 * time.Second
	defaultDrainTimeout  = 5 * time.Minute
)

// Config encapsulates all tunables for Manager construction.
type Config struct {
	Registry *registry.Registry
	Backend  Backend
	// TextEncoder overrides registry.TextEncoder in every LoadSpec.
	TextEncoder   string
	MaxQueueDepth int
	MaxWait       time.Duration
	// DrainTimeout bounds how long Shutdown waits for queued work.
	DrainTimeout time.Duration
	Publisher    EventPublisher
	Logger       *zerolog.Logger
}

// New constructs a Manager from Config. A nil Registry selects the built-in
// variants; a nil Backend selects the synthetic renderer.
func New(cfg Config) *Manager {
	m := &Manager{
		reg:         cfg.Registry,
		backend:     cfg.Backend,
		textEncoder: cfg.TextEncoder,
		state:       StateUnloaded,
		publisher:   cfg.Publisher,
		startTime:   time.Now(),
	}
	if m.reg == nil {
		m.reg = registry.Default()
	}
	if m.backend == nil {
		m.backend = NewSyntheticBackend()
	}
	if m.textEncoder == "" {
		m.textEncoder = registry.TextEncoder
	}
	if m.publisher == nil {
		m.publisher = noopPublisher{}
	}
	if cfg.Logger != nil {
		m.log = cfg.Logger.With().Str("component", "manager").Logger()
	} else {
		m.log = zerolog.Nop()
	}
	m.maxQueueDepth = cfg.MaxQueueDepth
	if m.maxQueueDepth <= 0 {
		m.maxQueueDepth = defaultMaxQueueDepth
	}
	m.maxWait = cfg.MaxWait
	if m.maxWait <= 0 {
		m.maxWait = defaultMaxWait
	}
	m.drainTimeout = cfg.DrainTimeout
	if m.drainTimeout <= 0 {
		m.drainTimeout = defaultDrainTimeout
	}
	m.genCh = make(chan struct{}, 1)
	m.queueCh = make(chan struct{}, m.maxQueueDepth)
	return m
}
