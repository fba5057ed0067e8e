package manager

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"hdi1d/internal/config"
)

// NewBackend builds the backend selected by cfg.Backend.
func NewBackend(cfg config.Config, lg *zerolog.Logger) (Backend, error) {
	switch cfg.Backend {
	case config.BackendWorker:
		return NewWorkerBackend(WorkerOptions{
			Cmd:          cfg.WorkerCmd,
			Args:         cfg.WorkerArgs,
			Host:         cfg.WorkerHost,
			PortStart:    cfg.WorkerPortStart,
			PortEnd:      cfg.WorkerPortEnd,
			ReadyTimeout: time.Duration(cfg.WorkerReadyTimeoutSec) * time.Second,
			Logger:       lg,
		}), nil
	case config.BackendRemote:
		if cfg.RemoteURL == "" {
			return nil, fmt.Errorf("remote backend requires remote_url")
		}
		return NewRemoteBackend(cfg.RemoteURL), nil
	case config.BackendSynthetic:
		return NewSyntheticBackend(), nil
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}
