package monitoring

import (
	"context"
	"encoding/json"
	"net/http"
	"runtime"
	"sync"
	"time"
)

// HealthStatus represents the health status of a component
type HealthStatus string

const (
	HealthStatusOK       HealthStatus = "ok"
	HealthStatusDegraded HealthStatus = "degraded"
	HealthStatusDown     HealthStatus = "down"
)

// ComponentHealth represents health information for a single component
type ComponentHealth struct {
	Name           string                 `json:"name"`
	Status         HealthStatus           `json:"status"`
	Message        string                 `json:"message,omitempty"`
	LastChecked    time.Time              `json:"last_checked"`
	ResponseTimeMs int64                  `json:"response_time_ms"`
	Details        map[string]interface{} `json:"details,omitempty"`
}

// SystemHealth represents overall system health
type SystemHealth struct {
	Status        HealthStatus                `json:"status"`
	Timestamp     time.Time                   `json:"timestamp"`
	Version       string                      `json:"version"`
	UptimeSeconds int64                       `json:"uptime_seconds"`
	Components    map[string]*ComponentHealth `json:"components"`
	SystemInfo    SystemInfo                  `json:"system_info"`
}

type SystemInfo struct {
	GoVersion     string  `json:"go_version"`
	NumGoroutines int     `json:"num_goroutines"`
	MemoryAllocMB float64 `json:"memory_alloc_mb"`
	NumCPU        int     `json:"num_cpu"`
}

// HealthChecker is implemented by every dependency the service checks
type HealthChecker interface {
	Name() string
	Check(ctx context.Context) (*ComponentHealth, error)
}

// HealthMonitor runs registered checkers in parallel
type HealthMonitor struct {
	mu        sync.RWMutex
	checkers  map[string]HealthChecker
	startTime time.Time
	version   string
	timeout   time.Duration
}

func NewHealthMonitor(version string) *HealthMonitor {
	return &HealthMonitor{
		checkers:  make(map[string]HealthChecker),
		startTime: time.Now(),
		version:   version,
		timeout:   5 * time.Second,
	}
}

// RegisterChecker registers a health checker, replacing one with the same name
func (h *HealthMonitor) RegisterChecker(checker HealthChecker) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checkers[checker.Name()] = checker
}

// GetHealth performs all health checks and returns system health
func (h *HealthMonitor) GetHealth(ctx context.Context) *SystemHealth {
	h.mu.RLock()
	checkers := make(map[string]HealthChecker, len(h.checkers))
	for name, c := range h.checkers {
		checkers[name] = c
	}
	h.mu.RUnlock()

	health := &SystemHealth{
		Status:        HealthStatusOK,
		Timestamp:     time.Now(),
		Version:       h.version,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		Components:    make(map[string]*ComponentHealth, len(checkers)),
		SystemInfo:    systemInfo(),
	}

	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for name, checker := range checkers {
		wg.Add(1)
		go func(n string, c HealthChecker) {
			defer wg.Done()

			start := time.Now()
			component, err := c.Check(ctx)
			if component == nil {
				component = &ComponentHealth{Name: n, Status: HealthStatusOK}
			}
			if err != nil {
				component.Status = HealthStatusDown
				component.Message = err.Error()
			}
			component.ResponseTimeMs = time.Since(start).Milliseconds()
			component.LastChecked = time.Now()

			mu.Lock()
			health.Components[n] = component
			mu.Unlock()
		}(name, checker)
	}
	wg.Wait()

	for _, component := range health.Components {
		switch component.Status {
		case HealthStatusDown:
			health.Status = HealthStatusDown
		case HealthStatusDegraded:
			if health.Status != HealthStatusDown {
				health.Status = HealthStatusDegraded
			}
		}
	}

	return health
}

// HTTPHandler reports full health; anything but ok is a 503
func (h *HealthMonitor) HTTPHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		health := h.GetHealth(r.Context())

		statusCode := http.StatusOK
		if health.Status != HealthStatusOK {
			statusCode = http.StatusServiceUnavailable
		}
		writeJSON(w, statusCode, health)
	}
}

// LivenessHandler returns a simple liveness check handler
func (h *HealthMonitor) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status":    "alive",
			"timestamp": time.Now().Format(time.RFC3339),
		})
	}
}

// ReadinessHandler fails only when a component is down
func (h *HealthMonitor) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		health := h.GetHealth(r.Context())

		if health.Status == HealthStatusDown {
			writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
				"status":     "not_ready",
				"components": health.Components,
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func systemInfo() SystemInfo {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return SystemInfo{
		GoVersion:     runtime.Version(),
		NumGoroutines: runtime.NumGoroutine(),
		MemoryAllocMB: float64(m.Alloc) / 1024 / 1024,
		NumCPU:        runtime.NumCPU(),
	}
}
