package httpapi

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"gatewayd/internal/auth"
	"gatewayd/internal/gwconfig"
	"gatewayd/internal/manager"
	"gatewayd/pkg/types"
)

const (
	testUser = "admin"
	testPass = "s3cret-pass"
)

type mockService struct {
	mu       sync.Mutex
	status   types.StatusResponse
	ready    bool
	lines    []types.LogLine
	capacity int
	lastN    int
	events   chan manager.Event
	config   types.ConfigResponse
	docs     []map[string]any
	updErr   error
	action   types.ActionResponse
	actErr   error
	calls    []string
}

func (m *mockService) record(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, name)
}

func (m *mockService) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

func (m *mockService) Status() types.StatusResponse { return m.status }
func (m *mockService) Ready() bool                  { return m.ready }
func (m *mockService) LogCapacity() int             { return m.capacity }

func (m *mockService) Logs(n int) types.LogsResponse {
	m.mu.Lock()
	m.lastN = n
	m.mu.Unlock()
	lines := m.lines
	if n < len(lines) {
		lines = lines[len(lines)-n:]
	}
	return types.LogsResponse{Lines: lines, Count: len(lines), Capacity: m.capacity}
}

func (m *mockService) Subscribe() (<-chan manager.Event, func()) {
	if m.events == nil {
		ch := make(chan manager.Event)
		close(ch)
		return ch, func() {}
	}
	return m.events, func() {}
}

func (m *mockService) Config() types.ConfigResponse { return m.config }

func (m *mockService) UpdateConfig(ctx context.Context, doc map[string]any) (types.UpdateConfigResponse, error) {
	m.record("update")
	m.mu.Lock()
	m.docs = append(m.docs, doc)
	m.mu.Unlock()
	if m.updErr != nil {
		return types.UpdateConfigResponse{}, m.updErr
	}
	return types.UpdateConfigResponse{ConfigResponse: m.config, Restart: m.action}, nil
}

func (m *mockService) Start(ctx context.Context) (types.ActionResponse, error) {
	m.record("start")
	return m.action, m.actErr
}

func (m *mockService) Stop(ctx context.Context) (types.ActionResponse, error) {
	m.record("stop")
	return m.action, m.actErr
}

func (m *mockService) Restart(ctx context.Context) (types.ActionResponse, error) {
	m.record("restart")
	return m.action, m.actErr
}

func testGate(t *testing.T) *auth.Gate {
	t.Helper()
	creds, err := auth.NewCredentials(testUser, testPass, bcrypt.MinCost)
	if err != nil {
		t.Fatalf("credentials: %v", err)
	}
	return auth.NewGate(creds)
}

func newTestMux(t *testing.T, svc Service) http.Handler {
	t.Helper()
	return NewMux(svc, testGate(t))
}

func authed(req *http.Request) *http.Request {
	req.SetBasicAuth(testUser, testPass)
	return req
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) types.ErrorResponse {
	t.Helper()
	var body types.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v body=%s", err, w.Body.String())
	}
	return body
}

func TestHealthz(t *testing.T) {
	h := newTestMux(t, &mockService{})
	w := serve(h, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	if w.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatalf("missing nosniff header")
	}
}

func TestReadyz(t *testing.T) {
	h := newTestMux(t, &mockService{ready: true})
	w := serve(h, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestReadyz_NotReady(t *testing.T) {
	h := newTestMux(t, &mockService{status: types.StatusResponse{State: "crashed"}})
	w := serve(h, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status=%d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "crashed") {
		t.Fatalf("body=%q", w.Body.String())
	}
}

func TestAPI_RequiresAuth(t *testing.T) {
	svc := &mockService{}
	h := newTestMux(t, svc)
	cases := []struct {
		name  string
		setup func(*http.Request)
	}{
		{"none", func(*http.Request) {}},
		{"wrong password", func(r *http.Request) { r.SetBasicAuth(testUser, "nope") }},
		{"wrong user", func(r *http.Request) { r.SetBasicAuth("root", testPass) }},
		{"bearer", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+testPass) }},
		{"garbage", func(r *http.Request) {
			r.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte("nocolon")))
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for _, target := range []string{"/api/gateway/stop", "/api/gateway/start", "/api/gateway/restart"} {
				req := httptest.NewRequest(http.MethodPost, target, nil)
				tc.setup(req)
				w := serve(h, req)
				if w.Code != http.StatusUnauthorized {
					t.Fatalf("%s: status=%d", target, w.Code)
				}
				if !strings.Contains(w.Header().Get("WWW-Authenticate"), "Basic") {
					t.Fatalf("missing challenge header")
				}
				if body := decodeError(t, w); body.Category != types.CategoryAuth {
					t.Fatalf("category=%q", body.Category)
				}
			}
			req := httptest.NewRequest(http.MethodPut, "/api/config", strings.NewReader(`{}`))
			tc.setup(req)
			if w := serve(h, req); w.Code != http.StatusUnauthorized {
				t.Fatalf("put config status=%d", w.Code)
			}
		})
	}
	if calls := svc.Calls(); len(calls) != 0 {
		t.Fatalf("unauthorized requests reached the service: %v", calls)
	}
}

func TestStatusHandler(t *testing.T) {
	svc := &mockService{status: types.StatusResponse{State: "running", PID: 42, Starts: 1}}
	h := newTestMux(t, svc)
	w := serve(h, authed(httptest.NewRequest(http.MethodGet, "/api/status", nil)))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "application/json") {
		t.Fatalf("content-type=%s", ct)
	}
	var body types.StatusResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	if body.State != "running" || body.PID != 42 {
		t.Fatalf("unexpected body: %+v", body)
	}
}

func TestLogsHandler_LineCount(t *testing.T) {
	cases := []struct {
		query string
		code  int
		wantN int
	}{
		{"", http.StatusOK, DefaultLogLines},
		{"?n=5", http.StatusOK, 5},
		{"?n=100000", http.StatusOK, 500},
		{"?n=0", http.StatusBadRequest, 0},
		{"?n=-3", http.StatusBadRequest, 0},
		{"?n=ten", http.StatusBadRequest, 0},
	}
	for _, tc := range cases {
		svc := &mockService{capacity: 500, lines: []types.LogLine{{Seq: 1, Text: "a"}, {Seq: 2, Text: "b"}}}
		h := newTestMux(t, svc)
		w := serve(h, authed(httptest.NewRequest(http.MethodGet, "/api/logs"+tc.query, nil)))
		if w.Code != tc.code {
			t.Fatalf("%q: status=%d body=%s", tc.query, w.Code, w.Body.String())
		}
		if tc.code != http.StatusOK {
			if body := decodeError(t, w); body.Category != types.CategoryRequest {
				t.Fatalf("%q: category=%q", tc.query, body.Category)
			}
			continue
		}
		if svc.lastN != tc.wantN {
			t.Fatalf("%q: n=%d want %d", tc.query, svc.lastN, tc.wantN)
		}
		var body types.LogsResponse
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("json: %v", err)
		}
		if body.Capacity != 500 || len(body.Lines) == 0 {
			t.Fatalf("%q: unexpected body %+v", tc.query, body)
		}
	}
}

func TestGetConfig(t *testing.T) {
	svc := &mockService{config: types.ConfigResponse{
		Config:      map[string]any{"gateway": map[string]any{"port": 18790}},
		SecretsSet:  []string{"providers.openai.apiKey"},
		Placeholder: "••••••••",
	}}
	h := newTestMux(t, svc)
	w := serve(h, authed(httptest.NewRequest(http.MethodGet, "/api/config", nil)))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	var body types.ConfigResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	if len(body.SecretsSet) != 1 || body.Placeholder != "••••••••" {
		t.Fatalf("unexpected body: %+v", body)
	}
}

func TestPutConfig_Formats(t *testing.T) {
	cases := []struct {
		ct   string
		body string
	}{
		{"", `{"gateway": {"port": 9000}}`},
		{"application/json; charset=utf-8", "{\n  // comment\n  \"gateway\": {\"port\": 9000},\n}"},
		{"application/yaml", "gateway:\n  port: 9000\n"},
		{"application/toml", "[gateway]\nport = 9000\n"},
	}
	for _, tc := range cases {
		svc := &mockService{action: types.ActionResponse{Action: "restart", OK: true, Changed: true, State: "starting"}}
		h := newTestMux(t, svc)
		req := authed(httptest.NewRequest(http.MethodPut, "/api/config", strings.NewReader(tc.body)))
		if tc.ct != "" {
			req.Header.Set("Content-Type", tc.ct)
		}
		w := serve(h, req)
		if w.Code != http.StatusOK {
			t.Fatalf("%q: status=%d body=%s", tc.ct, w.Code, w.Body.String())
		}
		if len(svc.docs) != 1 {
			t.Fatalf("%q: update not called", tc.ct)
		}
		gw, ok := svc.docs[0]["gateway"].(map[string]any)
		if !ok || gw["port"] == nil {
			t.Fatalf("%q: decoded doc=%v", tc.ct, svc.docs[0])
		}
		var body types.UpdateConfigResponse
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("json: %v", err)
		}
		if !body.Restart.OK || body.Restart.Action != "restart" {
			t.Fatalf("%q: restart=%+v", tc.ct, body.Restart)
		}
	}
}

func TestPutConfig_UnsupportedMediaType(t *testing.T) {
	svc := &mockService{}
	h := newTestMux(t, svc)
	req := authed(httptest.NewRequest(http.MethodPut, "/api/config", strings.NewReader(`{}`)))
	req.Header.Set("Content-Type", "text/plain")
	w := serve(h, req)
	if w.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("status=%d", w.Code)
	}
	if len(svc.Calls()) != 0 {
		t.Fatalf("service called: %v", svc.Calls())
	}
}

func TestPutConfig_BodyTooLarge(t *testing.T) {
	svc := &mockService{}
	h := newTestMux(t, svc)
	big := bytes.Repeat([]byte("a"), (1<<20)+10)
	req := authed(httptest.NewRequest(http.MethodPut, "/api/config", bytes.NewReader(big)))
	req.Header.Set("Content-Type", "application/json")
	w := serve(h, req)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", w.Code)
	}
	if len(svc.Calls()) != 0 {
		t.Fatalf("service called: %v", svc.Calls())
	}
}

func TestPutConfig_Malformed(t *testing.T) {
	svc := &mockService{}
	h := newTestMux(t, svc)
	req := authed(httptest.NewRequest(http.MethodPut, "/api/config", strings.NewReader("not-json")))
	req.Header.Set("Content-Type", "application/json")
	w := serve(h, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d", w.Code)
	}
	if body := decodeError(t, w); body.Category != types.CategoryRequest {
		t.Fatalf("category=%q", body.Category)
	}
	if len(svc.Calls()) != 0 {
		t.Fatalf("service called: %v", svc.Calls())
	}
}

func TestPutConfig_ValidationErrors(t *testing.T) {
	svc := &mockService{updErr: gwconfig.ValidationErrors{
		{Path: "gateway.port", Reason: "must be at most 65535"},
		{Path: "providers.openai.apiBase", Reason: "must be a valid URL"},
	}}
	h := newTestMux(t, svc)
	req := authed(httptest.NewRequest(http.MethodPut, "/api/config", strings.NewReader(`{"gateway":{"port":70000}}`)))
	w := serve(h, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d", w.Code)
	}
	body := decodeError(t, w)
	if body.Category != types.CategoryValidation || len(body.Fields) != 2 {
		t.Fatalf("unexpected body: %+v", body)
	}
	if body.Fields[0].Path != "gateway.port" {
		t.Fatalf("fields=%+v", body.Fields)
	}
}

func TestPutConfig_StoreFailureIsInternal(t *testing.T) {
	svc := &mockService{updErr: errors.New("disk full: /secret/path")}
	h := newTestMux(t, svc)
	w := serve(h, authed(httptest.NewRequest(http.MethodPut, "/api/config", strings.NewReader(`{}`))))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d", w.Code)
	}
	if strings.Contains(w.Body.String(), "/secret/path") {
		t.Fatalf("internal detail leaked: %s", w.Body.String())
	}
}

func TestActions(t *testing.T) {
	for _, action := range []string{"start", "stop", "restart"} {
		svc := &mockService{action: types.ActionResponse{Action: action, OK: true, Changed: true, State: "running"}}
		h := newTestMux(t, svc)
		w := serve(h, authed(httptest.NewRequest(http.MethodPost, "/api/gateway/"+action, nil)))
		if w.Code != http.StatusOK {
			t.Fatalf("%s: status=%d", action, w.Code)
		}
		if calls := svc.Calls(); len(calls) != 1 || calls[0] != action {
			t.Fatalf("%s: calls=%v", action, calls)
		}
	}
}

func TestActions_MethodNotAllowed(t *testing.T) {
	svc := &mockService{}
	h := newTestMux(t, svc)
	w := serve(h, authed(httptest.NewRequest(http.MethodGet, "/api/gateway/start", nil)))
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status=%d", w.Code)
	}
	if len(svc.Calls()) != 0 {
		t.Fatalf("service called: %v", svc.Calls())
	}
}

func TestActions_SpawnFailureIsNotHTTPError(t *testing.T) {
	svc := &mockService{action: types.ActionResponse{Action: "start", OK: false, Changed: true, State: "crashed", Error: "spawn nanobot: not found"}}
	h := newTestMux(t, svc)
	w := serve(h, authed(httptest.NewRequest(http.MethodPost, "/api/gateway/start", nil)))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	var body types.ActionResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	if body.OK || body.State != "crashed" || body.Error == "" {
		t.Fatalf("unexpected body: %+v", body)
	}
}

func TestActions_InvariantIs500(t *testing.T) {
	svc := &mockService{actErr: &manager.InvariantError{Op: "start", State: manager.StateRunning, Msg: "live state without a process handle"}}
	h := newTestMux(t, svc)
	w := serve(h, authed(httptest.NewRequest(http.MethodPost, "/api/gateway/start", nil)))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d", w.Code)
	}
	if body := decodeError(t, w); body.Category != types.CategoryInternal {
		t.Fatalf("category=%q", body.Category)
	}
}

func TestRateLimit(t *testing.T) {
	SetRateLimit(2, time.Minute)
	defer SetRateLimit(120, time.Minute)
	h := newTestMux(t, &mockService{})
	var last int
	for i := 0; i < 3; i++ {
		last = serve(h, authed(httptest.NewRequest(http.MethodGet, "/api/status", nil))).Code
	}
	if last != http.StatusTooManyRequests {
		t.Fatalf("expected 429 on third request, got %d", last)
	}
	// Public endpoints are not limited.
	if w := serve(h, httptest.NewRequest(http.MethodGet, "/healthz", nil)); w.Code != http.StatusOK {
		t.Fatalf("healthz status=%d", w.Code)
	}
}

func TestParseLineCount(t *testing.T) {
	if n, err := parseLineCount("", 100, 500); err != nil || n != 100 {
		t.Fatalf("default: n=%d err=%v", n, err)
	}
	if n, err := parseLineCount("900", 100, 500); err != nil || n != 500 {
		t.Fatalf("clamp: n=%d err=%v", n, err)
	}
	if _, err := parseLineCount("0", 100, 500); err == nil {
		t.Fatalf("expected error for 0")
	}
	if _, err := parseLineCount("1.5", 100, 500); err == nil {
		t.Fatalf("expected error for non-integer")
	}
}
