// Package services provides health monitoring and other service implementations.
package services

import (
	"context"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/pocketbase/dbx"
)

// HealthStatus represents the health status of a component.
type HealthStatus string

const (
	// HealthStatusHealthy indicates the component is fully operational.
	HealthStatusHealthy HealthStatus = "healthy"
	// HealthStatusUnhealthy indicates the component is not operational.
	HealthStatusUnhealthy HealthStatus = "unhealthy"
	// HealthStatusDegraded indicates the component has issues but is still functional.
	HealthStatusDegraded HealthStatus = "degraded"
)

// HealthCheck represents the outcome of a single health check.
type HealthCheck struct {
	LastChecked time.Time              `json:"last_checked"`
	Details     map[string]interface{} `json:"details,omitempty"`
	Name        string                 `json:"name"`
	Message     string                 `json:"message,omitempty"`
	Error       string                 `json:"error,omitempty"`
	Status      HealthStatus           `json:"status"`
	Duration    time.Duration          `json:"duration"`
}

// HealthResponse represents the overall health response.
type HealthResponse struct {
	Timestamp   time.Time              `json:"timestamp"`
	System      map[string]interface{} `json:"system,omitempty"`
	Version     string                 `json:"version"`
	Environment string                 `json:"environment"`
	Status      HealthStatus           `json:"status"`
	Checks      []HealthCheck          `json:"checks,omitempty"`
	Uptime      time.Duration          `json:"uptime"`
}

// HealthChecker defines the interface for health checkers.
type HealthChecker interface {
	Check(ctx context.Context) HealthCheck
	Name() string
}

// HealthService manages health checks for the application.
type HealthService struct {
	startTime time.Time
	version   string
	env       string
	checkers  []HealthChecker
}

// NewHealthService creates a new health service.
func NewHealthService(version, env string) *HealthService {
	return &HealthService{
		checkers:  make([]HealthChecker, 0),
		startTime: time.Now(),
		version:   version,
		env:       env,
	}
}

// RegisterChecker registers a health checker.
func (h *HealthService) RegisterChecker(checker HealthChecker) {
	h.checkers = append(h.checkers, checker)
}

// Check runs every registered checker and reports the overall status.
// A single unhealthy component makes the whole response unhealthy.
func (h *HealthService) Check(ctx context.Context) HealthResponse {
	checks := make([]HealthCheck, 0, len(h.checkers))
	overallStatus := HealthStatusHealthy

	for _, checker := range h.checkers {
		start := time.Now()
		check := checker.Check(ctx)
		check.Duration = time.Since(start)
		check.LastChecked = time.Now()

		checks = append(checks, check)

		if check.Status == HealthStatusUnhealthy {
			overallStatus = HealthStatusUnhealthy
		} else if check.Status == HealthStatusDegraded && overallStatus == HealthStatusHealthy {
			overallStatus = HealthStatusDegraded
		}
	}

	return HealthResponse{
		Status:      overallStatus,
		Timestamp:   time.Now(),
		Version:     h.version,
		Uptime:      time.Since(h.startTime),
		Checks:      checks,
		System:      h.getSystemInfo(),
		Environment: h.env,
	}
}

// getSystemInfo returns runtime information for the detailed health view.
func (h *HealthService) getSystemInfo() map[string]interface{} {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	return map[string]interface{}{
		"go_version": runtime.Version(),
		"go_os":      runtime.GOOS,
		"go_arch":    runtime.GOARCH,
		"cpu_count":  runtime.NumCPU(),
		"goroutines": runtime.NumGoroutine(),
		"memory": map[string]interface{}{
			"alloc_bytes": memStats.Alloc,
			"sys_bytes":   memStats.Sys,
			"heap_inuse":  memStats.HeapInuse,
			"gc_cycles":   memStats.NumGC,
		},
	}
}

// Liveness returns a simple liveness probe (application is running).
func (h *HealthService) Liveness() HealthResponse {
	return HealthResponse{
		Status:      HealthStatusHealthy,
		Timestamp:   time.Now(),
		Version:     h.version,
		Uptime:      time.Since(h.startTime),
		Environment: h.env,
	}
}

// Readiness reports whether the application can serve traffic. Only
// critical dependencies count; a flaky external API must not flip
// readiness and take the instance out of rotation.
func (h *HealthService) Readiness(ctx context.Context) HealthResponse {
	checks := make([]HealthCheck, 0, len(h.checkers))
	overallStatus := HealthStatusHealthy

	for _, checker := range h.checkers {
		if !isCriticalChecker(checker) {
			continue
		}

		start := time.Now()
		check := checker.Check(ctx)
		check.Duration = time.Since(start)
		check.LastChecked = time.Now()

		checks = append(checks, check)

		if check.Status != HealthStatusHealthy {
			overallStatus = HealthStatusUnhealthy
		}
	}

	return HealthResponse{
		Status:      overallStatus,
		Timestamp:   time.Now(),
		Version:     h.version,
		Uptime:      time.Since(h.startTime),
		Checks:      checks,
		Environment: h.env,
	}
}

// isCriticalChecker determines if a checker is critical for readiness.
func isCriticalChecker(checker HealthChecker) bool {
	return checker.Name() == "database"
}

// DatabaseHealthChecker verifies that the SQLite database answers queries.
type DatabaseHealthChecker struct {
	db *dbx.DB
}

// NewDatabaseHealthChecker creates a health checker for the database.
func NewDatabaseHealthChecker(db *dbx.DB) *DatabaseHealthChecker {
	return &DatabaseHealthChecker{db: db}
}

// Name returns the checker name.
func (d *DatabaseHealthChecker) Name() string {
	return "database"
}

// Check pings the database.
func (d *DatabaseHealthChecker) Check(ctx context.Context) HealthCheck {
	if d.db == nil {
		return HealthCheck{
			Name:   "database",
			Status: HealthStatusUnhealthy,
			Error:  "database is not configured",
		}
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := d.db.DB().PingContext(ctx); err != nil {
		return HealthCheck{
			Name:   "database",
			Status: HealthStatusUnhealthy,
			Error:  fmt.Sprintf("ping failed: %v", err),
		}
	}

	return HealthCheck{
		Name:    "database",
		Status:  HealthStatusHealthy,
		Message: "database is reachable",
	}
}

// BroadcasterHealthChecker reports on the analysis event broadcaster.
type BroadcasterHealthChecker struct {
	broadcaster AnalysisBroadcaster
}

// NewBroadcasterHealthChecker creates a health checker for the broadcaster.
func NewBroadcasterHealthChecker(broadcaster AnalysisBroadcaster) *BroadcasterHealthChecker {
	return &BroadcasterHealthChecker{broadcaster: broadcaster}
}

// Name returns the checker name.
func (b *BroadcasterHealthChecker) Name() string {
	return "broadcaster"
}

// Check reports the broadcaster's subscription count.
func (b *BroadcasterHealthChecker) Check(_ context.Context) HealthCheck {
	if b.broadcaster == nil {
		return HealthCheck{
			Name:   "broadcaster",
			Status: HealthStatusUnhealthy,
			Error:  "event broadcaster is not available",
		}
	}

	return HealthCheck{
		Name:    "broadcaster",
		Status:  HealthStatusHealthy,
		Message: "event broadcaster is operational",
		Details: map[string]interface{}{
			"active_subscriptions": b.broadcaster.SubscriberCount(),
		},
	}
}

// HTTPHealthChecker checks that an HTTP endpoint answers with the
// expected status. Used for external dependencies like the GitHub API.
type HTTPHealthChecker struct {
	name     string
	url      string
	timeout  time.Duration
	expected int
}

// NewHTTPHealthChecker creates a new HTTP health checker.
func NewHTTPHealthChecker(name, url string, timeout time.Duration, expectedStatus int) *HTTPHealthChecker {
	return &HTTPHealthChecker{
		name:     name,
		url:      url,
		timeout:  timeout,
		expected: expectedStatus,
	}
}

// Name returns the checker name.
func (h *HTTPHealthChecker) Name() string {
	return h.name
}

// Check performs the HTTP health check. External endpoints report
// degraded rather than unhealthy so they never fail readiness.
func (h *HTTPHealthChecker) Check(ctx context.Context) HealthCheck {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.url, nil)
	if err != nil {
		return HealthCheck{
			Name:   h.name,
			Status: HealthStatusDegraded,
			Error:  fmt.Sprintf("failed to create request: %v", err),
		}
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return HealthCheck{
			Name:   h.name,
			Status: HealthStatusDegraded,
			Error:  fmt.Sprintf("request failed: %v", err),
		}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != h.expected {
		return HealthCheck{
			Name:   h.name,
			Status: HealthStatusDegraded,
			Error:  fmt.Sprintf("expected HTTP %d, got %d", h.expected, resp.StatusCode),
		}
	}

	return HealthCheck{
		Name:    h.name,
		Status:  HealthStatusHealthy,
		Message: fmt.Sprintf("HTTP %d OK", resp.StatusCode),
	}
}
