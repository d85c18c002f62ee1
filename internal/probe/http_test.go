package probe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func serveStatus(code int) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(code)
	}))
}

func TestHTTPProbeDefault2xx(t *testing.T) {
	srv := serveStatus(http.StatusNoContent)
	defer srv.Close()

	res, err := HTTPProbe{URL: srv.URL}.Check(context.Background())
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if res.State != StateHealthy || res.Code != http.StatusNoContent {
		t.Fatalf("expected healthy 204, got %+v", res)
	}
}

func TestHTTPProbeExpectStatusExact(t *testing.T) {
	srv := serveStatus(http.StatusNoContent)
	defer srv.Close()

	// 204 does not satisfy an explicit expectation of 200
	res, err := HTTPProbe{URL: srv.URL, ExpectStatus: http.StatusOK}.Check(context.Background())
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if res.State != StateStarting {
		t.Fatalf("expected starting for unexpected code, got %v", res.State)
	}
}

func TestHTTPProbeAllowedStatusCaveat(t *testing.T) {
	srv := serveStatus(http.StatusForbidden)
	defer srv.Close()

	res, err := HTTPProbe{URL: srv.URL, AllowedStatus: []int{http.StatusForbidden}}.Check(context.Background())
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if res.State != StateHealthy {
		t.Fatalf("allowed 403 must be healthy, got %v", res.State)
	}
	if !res.Caveat {
		t.Fatal("allowed status must set the caveat flag")
	}
	if res.Code != http.StatusForbidden {
		t.Fatalf("original code must be preserved, got %d", res.Code)
	}
}

func TestHTTPProbeServerErrorIsUnhealthy(t *testing.T) {
	srv := serveStatus(http.StatusInternalServerError)
	defer srv.Close()

	res, err := HTTPProbe{URL: srv.URL}.Check(context.Background())
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if res.State != StateUnhealthy {
		t.Fatalf("5xx must be unhealthy, got %v", res.State)
	}
}

func TestHTTPProbeConnectionRefusedIsStarting(t *testing.T) {
	// nothing listens here
	res, err := HTTPProbe{URL: "http://127.0.0.1:1/healthz"}.Check(context.Background())
	if err != nil {
		t.Fatalf("connection errors are transient, not probe errors: %v", err)
	}
	if res.State != StateStarting {
		t.Fatalf("refused connection must read as starting, got %v", res.State)
	}
}

func TestStateJSONRoundTrip(t *testing.T) {
	for s := StateUnknown; s <= StateNotFound; s++ {
		b, err := s.MarshalJSON()
		if err != nil {
			t.Fatalf("marshal %v: %v", s, err)
		}
		var got State
		if err := got.UnmarshalJSON(b); err != nil {
			t.Fatalf("unmarshal %s: %v", b, err)
		}
		if got != s {
			t.Fatalf("round trip %v -> %v", s, got)
		}
	}
	var s State
	if err := s.UnmarshalJSON([]byte(`"bogus"`)); err == nil {
		t.Fatal("expected error for unknown state name")
	}
}
