// Package manager supervises the single gateway child process. It is
// structured into small files by concern:
//
//   - manager.go: core Manager type, constructor, read-only accessors.
//   - config.go: ManagerConfig and package defaults; NewWithConfig applies defaults.
//   - types.go: State, Status, Result, LogLine and the internal run handle.
//   - errors.go: SpawnError, ExitError, InvariantError and helpers.
//   - ops.go: Start/Stop/Restart/Close; the state machine entry points.
//   - process.go: spawning, output reader, exit watcher, readiness probe.
//   - logbuffer.go: fixed-capacity ring of output lines.
//   - env.go: child environment construction.
//   - events.go, eventpub_*.go: EventPublisher and implementations.
//   - metrics.go: Prometheus collectors for lifecycle and output.
//   - proc_unix.go, proc_other.go: process-group signalling.
//
// State machine:
//
//	stopped  --Start--> starting --probe ok / startup window--> running
//	running  --Stop-->  stopping --exit--> stopped
//	starting|running --unexpected exit--> crashed
//	starting --spawn failure--> crashed
//	crashed  --Start--> starting
//	crashed  --Stop-->  stopped
//
// Start, Stop and Restart are serialized by an operation lock. State, the
// process handle and exit metadata are guarded by a separate RWMutex that the
// background tasks (reader, watcher, prober) also use, so Status never observes
// a live state without a handle.
package manager
