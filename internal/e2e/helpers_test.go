package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"gatewayd/internal/auth"
	"gatewayd/internal/control"
	"gatewayd/internal/gwconfig"
	"gatewayd/internal/httpapi"
	"gatewayd/internal/manager"
	"gatewayd/pkg/types"
)

const (
	adminUser = "admin"
	adminPass = "e2e-password"
)

// gatewayScript prints the materialized config, then idles like a gateway.
const gatewayScript = `echo "config: $(cat "$NANOBOT_CONFIG" | tr -d '\n ')"; echo "gateway ready"; exec sleep 60`

type harness struct {
	srv   *httptest.Server
	store *gwconfig.Store
}

// newHarness wires the real store, supervisor, control service and router
// around a /bin/sh gateway. seed is the initial stored config (JSON).
func newHarness(t *testing.T, script, seed string, tweaks ...func(*manager.ManagerConfig)) *harness {
	t.Helper()
	dir := t.TempDir()
	log := zerolog.Nop()
	store, _, err := gwconfig.Open(filepath.Join(dir, "config.json"), seed, log)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	bus := manager.NewBroadcaster(0)
	cfg := manager.ManagerConfig{
		Bin:          "/bin/sh",
		Args:         []string{"-c", script},
		Dir:          dir,
		Source:       store,
		GracePeriod:  2 * time.Second,
		KillTimeout:  2 * time.Second,
		StartupGrace: 50 * time.Millisecond,
		Logger:       log,
		Publisher:    bus,
	}
	for _, tweak := range tweaks {
		tweak(&cfg)
	}
	mgr := manager.NewWithConfig(cfg)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = mgr.Close(ctx)
	})
	creds, err := auth.NewCredentials(adminUser, adminPass, bcrypt.MinCost)
	if err != nil {
		t.Fatalf("credentials: %v", err)
	}
	svc := control.New(store, mgr, bus, gwconfig.Options{}, log)
	httpapi.SetRateLimit(0, 0)
	srv := httptest.NewServer(httpapi.NewMux(svc, auth.NewGate(creds)))
	t.Cleanup(srv.Close)
	return &harness{srv: srv, store: store}
}

func (h *harness) do(t *testing.T, method, path, contentType string, body []byte, authed bool) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), method, h.srv.URL+path, bytes.NewReader(body))
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if authed {
		req.SetBasicAuth(adminUser, adminPass)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do req: %v", err)
	}
	b, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, b
}

func (h *harness) status(t *testing.T) types.StatusResponse {
	t.Helper()
	resp, body := h.do(t, http.MethodGet, "/api/status", "", nil, true)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/api/status %d %s", resp.StatusCode, body)
	}
	var st types.StatusResponse
	if err := json.Unmarshal(body, &st); err != nil {
		t.Fatalf("status json: %v", err)
	}
	return st
}

func (h *harness) waitState(t *testing.T, want string) types.StatusResponse {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		st := h.status(t)
		if st.State == want {
			return st
		}
		if time.Now().After(deadline) {
			t.Fatalf("state %q not reached; last %+v", want, st)
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func (h *harness) logs(t *testing.T) []types.LogLine {
	t.Helper()
	resp, body := h.do(t, http.MethodGet, "/api/logs?n=500", "", nil, true)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/api/logs %d %s", resp.StatusCode, body)
	}
	var lr types.LogsResponse
	if err := json.Unmarshal(body, &lr); err != nil {
		t.Fatalf("logs json: %v", err)
	}
	return lr.Lines
}

func (h *harness) waitLog(t *testing.T, substr string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		for _, l := range h.logs(t) {
			if bytes.Contains([]byte(l.Text), []byte(substr)) {
				return
			}
		}
		if time.Now().After(deadline) {
			t.Fatalf("log line containing %q not seen", substr)
		}
		time.Sleep(20 * time.Millisecond)
	}
}
