// Package manager owns the single loaded diffusion pipeline and the admission
// gate in front of it. It is structured into small files by concern:
//
//   - manager.go: core Manager type and simple getters.
//   - config.go: Config and package defaults; New applies defaults.
//   - types.go: State and Snapshot.
//   - errors.go: error constructors and predicates over internal/errs kinds.
//   - admission.go: queue slots plus the single in-flight slot (Admit).
//   - ensure.go: EnsureLoaded, including the reduced-configuration retry.
//   - unload.go: Release and Shutdown.
//   - ops.go: asynchronous Switch.
//   - status_report.go: Snapshot/Status.
//   - events.go, eventpub_*.go: event publishing (memory, broadcast).
//   - adapter_iface.go: Backend/Pipeline contract.
//   - adapter_worker.go, adapter_remote.go, worker_client.go: the JSON worker
//     protocol, spawned or remote.
//   - adapter_synthetic.go: deterministic in-process renderer.
//   - backends.go: NewBackend picks a backend from config.
//   - metrics.go: prometheus collectors.
//
// The manager never holds its state mutex across a backend call. Loads and
// releases are serialized by a separate mutex, so Status stays responsive
// while a multi-minute load is in progress.
package manager
