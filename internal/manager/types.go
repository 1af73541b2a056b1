package manager

import (
	"os/exec"
	"time"
)

// State represents the lifecycle state of the supervised gateway.
type State string

const (
	StateStopped  State = "stopped"
	StateStarting State = "starting"
	StateRunning  State = "running"
	StateStopping State = "stopping"
	StateCrashed  State = "crashed"
)

// allStates is used to reset the state gauge.
var allStates = []State{StateStopped, StateStarting, StateRunning, StateStopping, StateCrashed}

// live reports whether a child process is expected to exist in this state.
func (s State) live() bool {
	return s == StateStarting || s == StateRunning || s == StateStopping
}

// ExitInfo describes how the last child process ended.
type ExitInfo struct {
	Code     int
	Signal   string
	At       time.Time
	Expected bool // exit was requested via Stop
}

// Status is a read-only snapshot of the supervisor.
type Status struct {
	State     State
	PID       int // 0 when no process is live
	RunID     string
	StartedAt time.Time // zero when no process is live
	LastExit  *ExitInfo
	LastError string
	Starts    uint64
	Crashes   uint64
}

// LogLine is a single line of child output.
type LogLine struct {
	Seq  uint64
	Time time.Time
	Text string
}

// Result is returned by Start, Stop and Restart. Spawn failures and abnormal
// exits are reported here rather than as Go errors.
type Result struct {
	Action  string
	State   State
	Changed bool  // false when the call was a no-op
	Err     error // recorded failure, if any
}

// OK reports whether the action completed without a recorded failure.
func (r Result) OK() bool { return r.Err == nil }

// run is one spawned child process. A run is owned by the Manager; background
// tasks hold a pointer to their run and only mutate Manager state while it is
// still current.
type run struct {
	id        string
	cmd       *exec.Cmd
	pid       int
	startedAt time.Time
	done      chan struct{} // closed by the exit watcher
	readerEOF chan struct{} // closed when the output reader drains
}
