package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/varekai/stackup/internal/monitor"
	"github.com/varekai/stackup/internal/probe"
	"github.com/varekai/stackup/internal/service"
)

type fakeRuntime struct {
	states    map[string]probe.Result
	logs      map[string]string
	restarted []string
}

func (f *fakeRuntime) Ping(context.Context) error { return nil }

func (f *fakeRuntime) Start(_ context.Context, name string) error { return nil }

func (f *fakeRuntime) Inspect(_ context.Context, name string) (probe.Result, error) {
	if r, ok := f.states[name]; ok {
		r.CheckedAt = time.Now()
		return r, nil
	}
	return probe.Result{State: probe.StateNotFound, CheckedAt: time.Now()}, nil
}

func (f *fakeRuntime) Logs(_ context.Context, name string, _ int) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader(f.logs[name])), nil
}

func (f *fakeRuntime) Restart(_ context.Context, name string) error {
	f.restarted = append(f.restarted, name)
	return nil
}

func newTestRouter(t *testing.T, rt *fakeRuntime, specs ...service.Spec) http.Handler {
	t.Helper()
	reg, err := service.NewRegistry(specs)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	return NewRouter(monitor.New(reg, rt), nil, "").Handler()
}

func TestStatusEndpoint(t *testing.T) {
	rt := &fakeRuntime{states: map[string]probe.Result{
		"stack-db":  {State: probe.StateHealthy},
		"stack-api": {State: probe.StateStopped},
	}}
	h := newTestRouter(t, rt,
		service.Spec{Name: "db", Container: "stack-db"},
		service.Spec{Name: "api", Container: "stack-api", DependsOn: []string{"db"}},
	)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/status", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var st service.StackStatus
	if err := json.Unmarshal(w.Body.Bytes(), &st); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if len(st.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(st.Entries))
	}
}

func TestStatusSingleService(t *testing.T) {
	rt := &fakeRuntime{states: map[string]probe.Result{
		"stack-db": {State: probe.StateHealthy},
	}}
	h := newTestRouter(t, rt, service.Spec{Name: "db", Container: "stack-db"})

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/status?name=db", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var e service.Entry
	if err := json.Unmarshal(w.Body.Bytes(), &e); err != nil {
		t.Fatalf("decode entry: %v", err)
	}
	if e.Name != "db" || e.Result.State != probe.StateHealthy {
		t.Fatalf("unexpected entry: %+v", e)
	}

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/status?name=nope", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown service, got %d", w.Code)
	}
}

func TestLogsEndpoint(t *testing.T) {
	rt := &fakeRuntime{
		states: map[string]probe.Result{"stack-db": {State: probe.StateHealthy}},
		logs:   map[string]string{"stack-db": "line1\nline2\n"},
	}
	h := newTestRouter(t, rt, service.Spec{Name: "db", Container: "stack-db"})

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/logs?name=db&tail=10", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if w.Body.String() != "line1\nline2\n" {
		t.Fatalf("log stream modified: %q", w.Body.String())
	}

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/logs", nil))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without name, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/logs?name=db&tail=-1", nil))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for negative tail, got %d", w.Code)
	}
}

func TestRestartEndpoint(t *testing.T) {
	rt := &fakeRuntime{states: map[string]probe.Result{"stack-db": {State: probe.StateHealthy}}}
	h := newTestRouter(t, rt, service.Spec{Name: "db", Container: "stack-db"})

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/restart?name=db", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if len(rt.restarted) != 1 || rt.restarted[0] != "stack-db" {
		t.Fatalf("expected restart of stack-db, got %v", rt.restarted)
	}

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/restart?name=nope", nil))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown service, got %d", w.Code)
	}
}

func TestRepairNotConfigured(t *testing.T) {
	rt := &fakeRuntime{}
	h := newTestRouter(t, rt, service.Spec{Name: "db", Container: "stack-db"})

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/repair", nil))
	if w.Code != http.StatusNotImplemented {
		t.Fatalf("expected 501 when bootstrap is not configured, got %d", w.Code)
	}
}

func TestHealthzAndMetrics(t *testing.T) {
	rt := &fakeRuntime{}
	h := newTestRouter(t, rt, service.Spec{Name: "db", Container: "stack-db"})

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 from healthz, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 from metrics, got %d", w.Code)
	}
}

func TestSanitizeBase(t *testing.T) {
	cases := map[string]string{
		"":      "",
		"/":     "",
		"abc":   "/abc",
		"/abc":  "/abc",
		"/abc/": "/abc",
		" /v1 ": "/v1",
	}
	for in, want := range cases {
		if got := sanitizeBase(in); got != want {
			t.Errorf("sanitizeBase(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestIsSafeName(t *testing.T) {
	good := []string{"db", "svc-1", "a.b_c"}
	bad := []string{"", "a/b", `a\b`, "..", "a..b", "a b"}
	for _, s := range good {
		if !isSafeName(s) {
			t.Errorf("expected %q to be safe", s)
		}
	}
	for _, s := range bad {
		if isSafeName(s) {
			t.Errorf("expected %q to be rejected", s)
		}
	}
}
