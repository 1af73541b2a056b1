package manager

import (
	"context"
	"time"
)

// Start launches the gateway unless it is already starting or running.
// Spawn failures leave the manager crashed and are reported in the Result.
func (m *Manager) Start(ctx context.Context) Result {
	m.opMu.Lock()
	defer m.opMu.Unlock()
	return m.start(ctx, "start")
}

// Stop terminates the gateway: SIGTERM, then SIGKILL once GracePeriod passes
// or ctx is done. It returns once the child has exited or KillTimeout elapses.
func (m *Manager) Stop(ctx context.Context) Result {
	m.opMu.Lock()
	defer m.opMu.Unlock()
	return m.stop(ctx, "stop")
}

// Restart stops and starts the gateway as one operation.
func (m *Manager) Restart(ctx context.Context) Result {
	m.opMu.Lock()
	defer m.opMu.Unlock()
	stopped := m.stop(ctx, "restart")
	if stopped.Err != nil {
		return stopped
	}
	res := m.start(ctx, "restart")
	res.Changed = res.Changed || stopped.Changed
	return res
}

// Close stops the gateway; used at shutdown.
func (m *Manager) Close(ctx context.Context) error {
	return m.Stop(ctx).Err
}

func (m *Manager) start(ctx context.Context, action string) Result {
	m.mu.Lock()
	st := m.state
	switch {
	case st == StateStarting || st == StateRunning:
		if m.cur == nil {
			m.mu.Unlock()
			return m.invariant(action, st, "live state without a process handle")
		}
		m.mu.Unlock()
		return Result{Action: action, State: st}
	case st == StateStopping:
		if m.cur == nil {
			m.mu.Unlock()
			return m.invariant(action, st, "stopping without a process handle")
		}
		// Only a stop that timed out leaves a stopping run behind the lock.
		pid := m.cur.pid
		m.mu.Unlock()
		m.log.Warn().Int("pid", pid).Msg("start refused: previous gateway has not exited")
		return Result{Action: action, State: st, Err: ErrStopTimeout}
	case m.cur != nil:
		m.mu.Unlock()
		return m.invariant(action, st, "process handle present while not live")
	}
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return Result{Action: action, State: st, Err: err}
	}

	r, out, err := m.spawn()
	if err != nil {
		spawnFailuresTotal.Inc()
		m.mu.Lock()
		m.err = err.Error()
		m.setState(StateCrashed)
		m.mu.Unlock()
		m.log.Error().Err(err).Str("bin", m.cfg.Bin).Msg("gateway spawn failed")
		m.note("spawn failed: %v", err)
		m.emit(EventSpawnError, "", map[string]any{"error": err.Error()})
		return Result{Action: action, State: StateCrashed, Changed: true, Err: err}
	}

	m.mu.Lock()
	m.cur = r
	m.err = ""
	m.starts++
	m.setState(StateStarting)
	m.mu.Unlock()
	startsTotal.Inc()

	m.note("gateway started (pid %d)", r.pid)
	go m.readOutput(r, out)
	go m.watch(r)
	go m.probe(r)

	m.log.Info().Str("run_id", r.id).Int("pid", r.pid).Str("bin", m.cfg.Bin).Strs("args", m.cfg.Args).Msg("gateway spawned")
	m.emit(EventSpawnStart, r.id, map[string]any{"pid": r.pid})
	return Result{Action: action, State: StateStarting, Changed: true}
}

func (m *Manager) stop(ctx context.Context, action string) Result {
	m.mu.Lock()
	st := m.state
	switch st {
	case StateStopped, StateStopping:
		m.mu.Unlock()
		return Result{Action: action, State: st}
	case StateCrashed:
		if m.cur != nil {
			m.mu.Unlock()
			return m.invariant(action, st, "crashed with a live process handle")
		}
		m.setState(StateStopped)
		m.mu.Unlock()
		return Result{Action: action, State: StateStopped, Changed: true}
	}
	r := m.cur
	if r == nil {
		m.mu.Unlock()
		return m.invariant(action, st, "live state without a process handle")
	}
	m.setState(StateStopping)
	m.mu.Unlock()

	m.log.Info().Str("run_id", r.id).Int("pid", r.pid).Dur("grace", m.cfg.GracePeriod).Msg("stopping gateway")
	if err := terminate(r.cmd.Process); err != nil {
		m.log.Warn().Err(err).Int("pid", r.pid).Msg("terminate signal failed")
	}

	grace := time.NewTimer(m.cfg.GracePeriod)
	defer grace.Stop()
	select {
	case <-r.done:
	case <-grace.C:
		m.forceKill(r, "grace period elapsed")
	case <-ctx.Done():
		m.forceKill(r, "caller cancelled")
	}

	select {
	case <-r.done:
	case <-time.After(m.cfg.KillTimeout):
		m.log.Error().Str("run_id", r.id).Int("pid", r.pid).Msg("gateway survived SIGKILL")
		return Result{Action: action, State: m.State(), Changed: true, Err: ErrStopTimeout}
	}

	m.emit(EventSpawnStop, r.id, map[string]any{"pid": r.pid})
	return Result{Action: action, State: m.State(), Changed: true}
}

func (m *Manager) forceKill(r *run, reason string) {
	select {
	case <-r.done:
		return
	default:
	}
	m.log.Warn().Str("run_id", r.id).Int("pid", r.pid).Str("reason", reason).Msg("killing gateway")
	m.note("killing gateway (%s)", reason)
	if err := kill(r.cmd.Process); err != nil {
		m.log.Warn().Err(err).Int("pid", r.pid).Msg("kill signal failed")
	}
}

func (m *Manager) invariant(op string, st State, msg string) Result {
	err := &InvariantError{Op: op, State: st, Msg: msg}
	m.log.Error().Err(err).Msg("supervisor invariant violated")
	return Result{Action: op, State: st, Err: err}
}
