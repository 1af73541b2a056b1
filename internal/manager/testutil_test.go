package manager

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// shellConfig returns a ManagerConfig that runs script under /bin/sh with
// short timeouts suitable for tests.
func shellConfig(script string) ManagerConfig {
	return ManagerConfig{
		Bin:          "/bin/sh",
		Args:         []string{"-c", script},
		GracePeriod:  2 * time.Second,
		KillTimeout:  2 * time.Second,
		StartupGrace: 50 * time.Millisecond,
		Logger:       zerolog.Nop(),
	}
}

// newTestManager constructs a manager and stops it on test cleanup.
func newTestManager(t *testing.T, cfg ManagerConfig) *Manager {
	t.Helper()
	m := NewWithConfig(cfg)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = m.Close(ctx)
	})
	return m
}

// waitFor polls cond until it holds or timeout elapses.
func waitFor(t *testing.T, timeout time.Duration, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out after %s waiting for %s", timeout, what)
}

func waitState(t *testing.T, m *Manager, want State) {
	t.Helper()
	waitFor(t, 5*time.Second, "state "+string(want), func() bool { return m.State() == want })
}

func logTexts(lines []LogLine) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l.Text
	}
	return out
}

func hasLine(lines []LogLine, substr string) bool {
	for _, l := range lines {
		if strings.Contains(l.Text, substr) {
			return true
		}
	}
	return false
}

// fileSource writes a fixed payload to a temp file on every Materialize.
type fileSource struct {
	mu      sync.Mutex
	path    string
	payload string
	err     error
	calls   int
}

func newFileSource(t *testing.T, payload string) *fileSource {
	return &fileSource{path: filepath.Join(t.TempDir(), "config.json"), payload: payload}
}

func (s *fileSource) Materialize() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return s.path, os.WriteFile(s.path, []byte(s.payload), 0o600)
}

// testCtx returns a context with a short timeout, canceled on test cleanup.
func testCtx(t *testing.T) context.Context {
	t.Helper()
	c, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return c
}
