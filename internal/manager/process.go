package manager

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/google/uuid"
)

// spawn materializes the stored config and launches the child with stdout
// and stderr merged into one pipe. The returned file is the read end.
func (m *Manager) spawn() (*run, *os.File, error) {
	if strings.TrimSpace(m.cfg.Bin) == "" {
		return nil, nil, &SpawnError{Bin: m.cfg.Bin, Err: errors.New("gateway binary not configured")}
	}
	var cfgPath string
	if m.cfg.Source != nil {
		p, err := m.cfg.Source.Materialize()
		if err != nil {
			return nil, nil, &SpawnError{Bin: m.cfg.Bin, Err: fmt.Errorf("materialize config: %w", err)}
		}
		cfgPath = p
	}

	pr, pw, err := os.Pipe()
	if err != nil {
		return nil, nil, &SpawnError{Bin: m.cfg.Bin, Err: fmt.Errorf("output pipe: %w", err)}
	}
	environ := os.Environ
	if m.cfg.Environ != nil {
		environ = m.cfg.Environ
	}
	cmd := exec.Command(m.cfg.Bin, m.cfg.Args...)
	cmd.Dir = m.cfg.Dir
	cmd.Env = childEnv(environ(), m.cfg.PassthroughPrefix, m.cfg.ConfigEnvVar, cfgPath)
	cmd.Stdout = pw
	cmd.Stderr = pw
	setProcessGroup(cmd)
	if err := cmd.Start(); err != nil {
		_ = pr.Close()
		_ = pw.Close()
		return nil, nil, &SpawnError{Bin: m.cfg.Bin, Err: err}
	}
	// The child holds its own copy of the write end; ours must be closed so
	// the reader sees EOF when the child (and its group) exits.
	_ = pw.Close()
	r := &run{
		id:        uuid.NewString(),
		cmd:       cmd,
		pid:       cmd.Process.Pid,
		startedAt: time.Now(),
		done:      make(chan struct{}),
		readerEOF: make(chan struct{}),
	}
	return r, pr, nil
}

// readOutput drains the child's output into the log buffer in emit order.
// Lines longer than MaxLineBytes are truncated.
func (m *Manager) readOutput(r *run, f *os.File) {
	defer close(r.readerEOF)
	defer f.Close()
	br := bufio.NewReaderSize(f, 4096)
	limit := m.cfg.MaxLineBytes
	buf := make([]byte, 0, 256)
	for {
		frag, err := br.ReadSlice('\n')
		if room := limit - len(buf); room > 0 {
			if len(frag) > room {
				frag = frag[:room]
			}
			buf = append(buf, frag...)
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		if len(buf) > 0 {
			m.appendLine(r, strings.TrimRight(string(buf), "\r\n"))
			buf = buf[:0]
		}
		if err != nil {
			return
		}
	}
}

func (m *Manager) appendLine(r *run, text string) {
	m.lineMu.Lock()
	defer m.lineMu.Unlock()
	ln := m.logs.Append(text)
	logLinesTotal.Inc()
	if r != nil {
		m.log.Debug().Str("run_id", r.id).Msg(text)
		m.emit(EventLog, r.id, map[string]any{"seq": ln.Seq, "line": ln.Text})
		return
	}
	m.emit(EventLog, "", map[string]any{"seq": ln.Seq, "line": ln.Text})
}

// note appends a supervisor-authored line to the log buffer.
func (m *Manager) note(format string, a ...any) {
	m.appendLine(nil, "[gatewayd] "+fmt.Sprintf(format, a...))
}

// watch waits for the child to exit and records the transition. It is the
// only place a live run is cleared.
func (m *Manager) watch(r *run) {
	werr := r.cmd.Wait()
	info := ExitInfo{Code: -1, At: time.Now()}
	if ps := r.cmd.ProcessState; ps != nil {
		info.Code = ps.ExitCode()
		info.Signal = exitSignal(ps)
	}

	m.mu.Lock()
	if m.cur != r {
		m.mu.Unlock()
		close(r.done)
		m.log.Error().Str("run_id", r.id).Msg("exit watcher found a foreign run; state left untouched")
		return
	}
	m.cur = nil
	prev := m.state
	switch prev {
	case StateStopping:
		info.Expected = true
		m.setState(StateStopped)
	case StateStarting, StateRunning:
		m.crashes++
		crashesTotal.Inc()
		m.err = (&ExitError{Code: info.Code, Signal: info.Signal}).Error()
		m.setState(StateCrashed)
	default:
		inv := &InvariantError{Op: "watch", State: prev, Msg: "live run in a non-live state"}
		m.log.Error().Err(inv).Str("run_id", r.id).Msg("supervisor invariant violated")
		m.setState(StateCrashed)
	}
	m.lastExit = &info
	m.mu.Unlock()
	close(r.done)

	ev := m.log.Info()
	if !info.Expected {
		ev = m.log.Warn()
	}
	ev.Str("run_id", r.id).Int("pid", r.pid).Int("code", info.Code).Str("signal", info.Signal).
		Bool("expected", info.Expected).AnErr("wait_err", werr).Msg("gateway exited")
	m.emit(EventSpawnExit, r.id, map[string]any{"pid": r.pid, "code": info.Code, "signal": info.Signal, "expected": info.Expected})

	// Let the reader flush the child's last lines before the exit note.
	select {
	case <-r.readerEOF:
	case <-time.After(500 * time.Millisecond):
	}
	if info.Signal != "" {
		m.note("gateway exited (signal %s)", info.Signal)
	} else {
		m.note("gateway exited (code %d)", info.Code)
	}
}

// probe promotes a starting run to running on the first successful dial of
// the probe address, or when the startup window passes with the child still
// alive.
func (m *Manager) probe(r *run) {
	addr := m.cfg.ProbeAddr
	if m.cfg.ProbeResolver != nil {
		addr = m.cfg.ProbeResolver()
	}
	if addr == "" {
		select {
		case <-r.done:
		case <-time.After(m.cfg.StartupGrace):
			m.promote(r, "grace")
		}
		return
	}
	deadline := time.NewTimer(m.cfg.StartupTimeout)
	defer deadline.Stop()
	tick := time.NewTicker(m.cfg.ProbeInterval)
	defer tick.Stop()
	for {
		select {
		case <-r.done:
			return
		case <-deadline.C:
			m.log.Warn().Str("run_id", r.id).Str("addr", addr).Dur("timeout", m.cfg.StartupTimeout).
				Msg("readiness probe did not succeed; promoting live gateway")
			m.promote(r, "timeout")
			return
		case <-tick.C:
			if dialOK(addr, time.Second) {
				m.promote(r, "probe")
				return
			}
		}
	}
}

func dialOK(addr string, timeout time.Duration) bool {
	c, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return false
	}
	_ = c.Close()
	return true
}

func (m *Manager) promote(r *run, reason string) {
	m.mu.Lock()
	if m.cur != r || m.state != StateStarting {
		m.mu.Unlock()
		return
	}
	m.setState(StateRunning)
	m.mu.Unlock()
	m.log.Info().Str("run_id", r.id).Int("pid", r.pid).Str("reason", reason).Msg("gateway running")
	m.emit(EventSpawnReady, r.id, map[string]any{"pid": r.pid, "reason": reason})
}
