package control

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gatewayd/internal/gwconfig"
	"gatewayd/internal/manager"
	"gatewayd/internal/secrets"
)

type fixture struct {
	svc   *Service
	store *gwconfig.Store
	mgr   *manager.Manager
}

func newFixture(t *testing.T, seed, script string) fixture {
	t.Helper()
	store, _, err := gwconfig.Open(filepath.Join(t.TempDir(), "config.json"), seed, zerolog.Nop())
	require.NoError(t, err)
	bus := manager.NewBroadcaster(16)
	mgr := manager.NewWithConfig(manager.ManagerConfig{
		Bin:          "/bin/sh",
		Args:         []string{"-c", script},
		Source:       store,
		GracePeriod:  time.Second,
		KillTimeout:  time.Second,
		StartupGrace: 20 * time.Millisecond,
		Publisher:    bus,
		Logger:       zerolog.Nop(),
	})
	t.Cleanup(func() { _ = mgr.Close(context.Background()) })
	return fixture{svc: New(store, mgr, bus, gwconfig.Options{}, zerolog.Nop()), store: store, mgr: mgr}
}

func waitUntil(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

const seedWithKey = `{"providers":{"openai":{"apiKey":"sk-123"}}}`

func TestUpdateConfig_PlaceholderKeepsStoredKey(t *testing.T) {
	f := newFixture(t, seedWithKey, "exec sleep 30")
	doc := map[string]any{"providers": map[string]any{"openai": map[string]any{"apiKey": secrets.Placeholder}}}

	resp, err := f.svc.UpdateConfig(context.Background(), doc)
	require.NoError(t, err)
	assert.Equal(t, "sk-123", f.store.Snapshot().Providers["openai"].APIKey)
	assert.Equal(t, []string{"providers.openai.apiKey"}, resp.SecretsSet)

	masked := resp.Config.(gwconfig.Config)
	assert.Equal(t, secrets.Placeholder, masked.Providers["openai"].APIKey)
}

func TestUpdateConfig_ExplicitEmptyClears(t *testing.T) {
	f := newFixture(t, seedWithKey, "exec sleep 30")
	doc := map[string]any{"providers": map[string]any{"openai": map[string]any{"apiKey": ""}}}

	resp, err := f.svc.UpdateConfig(context.Background(), doc)
	require.NoError(t, err)
	assert.Equal(t, "", f.store.Snapshot().Providers["openai"].APIKey)
	assert.Empty(t, resp.SecretsSet)
}

func TestUpdateConfig_InvalidLeavesEverythingUntouched(t *testing.T) {
	f := newFixture(t, seedWithKey, "exec sleep 30")
	_, err := f.svc.Start(context.Background())
	require.NoError(t, err)
	waitUntil(t, f.mgr.Ready)
	before := f.mgr.Status()
	fileBefore, err := os.ReadFile(f.store.Path())
	require.NoError(t, err)

	_, err = f.svc.UpdateConfig(context.Background(), map[string]any{"gateway": map[string]any{"port": 0}})
	ve, ok := gwconfig.AsValidation(err)
	require.True(t, ok, "expected validation error, got %v", err)
	assert.Equal(t, "gateway.port", ve[0].Path)

	after := f.mgr.Status()
	assert.Equal(t, before.PID, after.PID)
	assert.Equal(t, before.Starts, after.Starts)
	assert.Equal(t, "sk-123", f.store.Snapshot().Providers["openai"].APIKey)
	fileAfter, err := os.ReadFile(f.store.Path())
	require.NoError(t, err)
	assert.Equal(t, fileBefore, fileAfter)
}

func TestUpdateConfig_RestartsGatewayWithNewConfig(t *testing.T) {
	f := newFixture(t, "", `cat "$NANOBOT_CONFIG"; echo; exec sleep 30`)
	_, err := f.svc.Start(context.Background())
	require.NoError(t, err)
	waitUntil(t, f.mgr.Ready)
	firstPID := f.mgr.Status().PID

	resp, err := f.svc.UpdateConfig(context.Background(), map[string]any{"gateway": map[string]any{"port": 19999}})
	require.NoError(t, err)
	assert.True(t, resp.Restart.OK)
	assert.Equal(t, "restart", resp.Restart.Action)
	assert.NotEqual(t, firstPID, resp.Gateway.PID)

	waitUntil(t, func() bool {
		for _, l := range f.svc.Logs(0).Lines {
			if strings.Contains(l.Text, "19999") {
				return true
			}
		}
		return false
	})
}

func TestActions_SpawnFailureIsNotAnError(t *testing.T) {
	store, _, err := gwconfig.Open(filepath.Join(t.TempDir(), "config.json"), "", zerolog.Nop())
	require.NoError(t, err)
	mgr := manager.NewWithConfig(manager.ManagerConfig{Bin: "/nonexistent/nanobot", Source: store, Logger: zerolog.Nop()})
	svc := New(store, mgr, nil, gwconfig.Options{}, zerolog.Nop())

	resp, err := svc.Start(context.Background())
	require.NoError(t, err)
	assert.False(t, resp.OK)
	assert.Equal(t, "crashed", resp.State)
	assert.Contains(t, resp.Error, "/nonexistent/nanobot")
	assert.Equal(t, "crashed", svc.Status().State)
	assert.NotEmpty(t, svc.Status().LastError)
}

func TestConfigView_NeverLeaksSecrets(t *testing.T) {
	f := newFixture(t, seedWithKey, "exec sleep 30")
	view := f.svc.Config()
	b, err := gwconfig.Encode(view.Config.(gwconfig.Config))
	require.NoError(t, err)
	assert.NotContains(t, string(b), "sk-123")
	assert.Equal(t, secrets.Placeholder, view.Placeholder)
}

func TestSubscribe_WithoutBusIsClosed(t *testing.T) {
	store, _, err := gwconfig.Open(filepath.Join(t.TempDir(), "c.json"), "", zerolog.Nop())
	require.NoError(t, err)
	svc := New(store, manager.NewWithConfig(manager.ManagerConfig{Logger: zerolog.Nop()}), nil, gwconfig.Options{}, zerolog.Nop())
	ch, cancel := svc.Subscribe()
	defer cancel()
	_, ok := <-ch
	assert.False(t, ok)
}
