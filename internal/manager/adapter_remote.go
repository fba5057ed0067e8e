package manager

import (
	"context"
	"time"
)

// remoteBackend talks to an already-running pipeline worker. Close only asks
// the worker to unload; the process itself is not ours to stop.
type remoteBackend struct {
	baseURL string
}

func NewRemoteBackend(baseURL string) Backend { return &remoteBackend{baseURL: baseURL} }

func (b *remoteBackend) Name() string { return "remote" }

func (b *remoteBackend) Load(ctx context.Context, spec LoadSpec) (Pipeline, error) {
	client := newWorkerClient(b.baseURL, 5*time.Second)
	hctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	err := client.health(hctx)
	cancel()
	if err != nil {
		return nil, err
	}
	if err := client.load(ctx, spec); err != nil {
		return nil, err
	}
	return &workerPipeline{client: client}, nil
}
