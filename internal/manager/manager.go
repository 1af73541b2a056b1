package manager

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

type Manager struct {
	cfg ManagerConfig

	// opMu serializes Start/Stop/Restart so a Start issued while a Stop is in
	// flight runs after it. Background tasks never take opMu.
	opMu sync.Mutex

	mu       sync.RWMutex
	state    State
	cur      *run
	lastExit *ExitInfo
	err      string
	starts   uint64
	crashes  uint64

	// lineMu keeps log publication in sequence order across the reader and
	// supervisor notes.
	lineMu    sync.Mutex
	logs      *LogBuffer
	log       zerolog.Logger
	publisher EventPublisher
}

// New constructs a Manager for bin/args with package defaults.
func New(bin string, args []string, src ConfigSource) *Manager {
	return NewWithConfig(ManagerConfig{Bin: bin, Args: args, Source: src})
}

// Ready reports whether the gateway is running.
func (m *Manager) Ready() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state == StateRunning
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Status returns a consistent snapshot of the supervisor.
func (m *Manager) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st := Status{
		State:     m.state,
		LastError: m.err,
		Starts:    m.starts,
		Crashes:   m.crashes,
	}
	if m.cur != nil {
		st.PID = m.cur.pid
		st.RunID = m.cur.id
		st.StartedAt = m.cur.startedAt
	}
	if m.lastExit != nil {
		le := *m.lastExit
		st.LastExit = &le
	}
	return st
}

// Uptime returns how long the current child has been alive, or zero.
func (m *Manager) Uptime() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.cur == nil {
		return 0
	}
	return time.Since(m.cur.startedAt)
}

// TailLogs returns up to n of the most recent output lines as a copy.
func (m *Manager) TailLogs(n int) []LogLine {
	return m.logs.Tail(n)
}

// LogCapacity returns the fixed size of the log ring.
func (m *Manager) LogCapacity() int { return m.logs.Cap() }

// setState must be called with mu held.
func (m *Manager) setState(s State) {
	if m.state == s {
		return
	}
	m.log.Debug().Str("from", string(m.state)).Str("to", string(s)).Msg("state transition")
	m.state = s
	setStateGauge(s)
}
