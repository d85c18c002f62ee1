package probe

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// HTTPProbe checks readiness by requesting a locally reachable endpoint and
// classifying the status code. ExpectStatus pins an exact code; when it is
// zero any 2xx counts. Codes listed in AllowedStatus are reclassified to
// healthy with the caveat flag set, for services whose known readiness signal
// is non-standard (e.g. an auth-guarded endpoint answering 403).
type HTTPProbe struct {
	URL           string
	ExpectStatus  int
	AllowedStatus []int
	Client        *http.Client
}

func (p HTTPProbe) Check(ctx context.Context) (Result, error) {
	client := p.Client
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.URL, nil)
	if err != nil {
		return Result{State: StateUnknown, CheckedAt: time.Now()}, err
	}
	resp, err := client.Do(req)
	if err != nil {
		// Connection refused while the service comes up: still starting.
		return Result{State: StateStarting, Detail: err.Error(), CheckedAt: time.Now()}, nil
	}
	defer func() { _ = resp.Body.Close() }()

	res := Result{Code: resp.StatusCode, CheckedAt: time.Now()}
	switch {
	case p.matchExpected(resp.StatusCode):
		res.State = StateHealthy
	case p.allowed(resp.StatusCode):
		res.State = StateHealthy
		res.Caveat = true
		res.Detail = fmt.Sprintf("allowed non-standard status %d", resp.StatusCode)
	case resp.StatusCode >= 500:
		res.State = StateUnhealthy
		res.Detail = fmt.Sprintf("status %d", resp.StatusCode)
	default:
		res.State = StateStarting
		res.Detail = fmt.Sprintf("status %d", resp.StatusCode)
	}
	return res, nil
}

func (p HTTPProbe) matchExpected(code int) bool {
	if p.ExpectStatus != 0 {
		return code == p.ExpectStatus
	}
	return code >= 200 && code < 300
}

func (p HTTPProbe) allowed(code int) bool {
	for _, c := range p.AllowedStatus {
		if c == code {
			return true
		}
	}
	return false
}

func (p HTTPProbe) Describe() string { return "http:" + p.URL }
