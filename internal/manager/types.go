package manager

import "time"

// State represents the lifecycle state of the manager.
type State string

const (
	StateUnloaded State = "unloaded"
	StateLoading  State = "loading"
	StateReady    State = "ready"
	StateError    State = "error"
)

// Snapshot is a read-only projection of the manager state. Variant is
// non-empty iff Loaded is true.
type Snapshot struct {
	State    State
	Variant  string
	Loaded   bool
	Err      string
	LoadedAt time.Time
}
