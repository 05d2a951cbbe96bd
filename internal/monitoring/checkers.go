package monitoring

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// FuncChecker adapts a ping function into a HealthChecker. A slow but
// successful ping reports degraded.
type FuncChecker struct {
	name      string
	ping      func(ctx context.Context) error
	slowAfter time.Duration
}

func NewFuncChecker(name string, ping func(ctx context.Context) error) *FuncChecker {
	return &FuncChecker{name: name, ping: ping, slowAfter: time.Second}
}

func (f *FuncChecker) Name() string {
	return f.name
}

func (f *FuncChecker) Check(ctx context.Context) (*ComponentHealth, error) {
	health := &ComponentHealth{Name: f.name, Status: HealthStatusOK}

	start := time.Now()
	if err := f.ping(ctx); err != nil {
		health.Status = HealthStatusDown
		return health, err
	}
	if elapsed := time.Since(start); elapsed > f.slowAfter {
		health.Status = HealthStatusDegraded
		health.Message = fmt.Sprintf("slow response: %v", elapsed)
	}
	return health, nil
}

// APIHealthChecker checks an HTTP dependency such as the reports backend
type APIHealthChecker struct {
	name     string
	endpoint string
	client   *http.Client
}

func NewAPIHealthChecker(name, endpoint string) *APIHealthChecker {
	return &APIHealthChecker{
		name:     name,
		endpoint: endpoint,
		client:   &http.Client{Timeout: 5 * time.Second},
	}
}

func (a *APIHealthChecker) Name() string {
	return a.name
}

// Check treats any response below 500 as reachable; the backend may
// legitimately answer 401 without a session.
func (a *APIHealthChecker) Check(ctx context.Context) (*ComponentHealth, error) {
	health := &ComponentHealth{
		Name:    a.name,
		Status:  HealthStatusOK,
		Details: map[string]interface{}{"endpoint": a.endpoint},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.endpoint, nil)
	if err != nil {
		health.Status = HealthStatusDown
		return health, fmt.Errorf("failed to build request: %w", err)
	}

	start := time.Now()
	resp, err := a.client.Do(req)
	if err != nil {
		health.Status = HealthStatusDown
		return health, fmt.Errorf("API endpoint not reachable: %w", err)
	}
	defer resp.Body.Close()

	health.Details["status_code"] = resp.StatusCode
	if resp.StatusCode >= 500 {
		health.Status = HealthStatusDown
		return health, fmt.Errorf("API returned status %d", resp.StatusCode)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		health.Status = HealthStatusDegraded
		health.Message = fmt.Sprintf("slow response: %v", elapsed)
	}
	return health, nil
}
