package health

import (
	"fmt"
	"runtime"
	"sync"
	"time"

	"gorm.io/gorm"
)

// HealthStatus represents the overall health of the application
type HealthStatus struct {
	Status    string                 `json:"status"` // "healthy", "degraded", "unhealthy"
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Checks    map[string]interface{} `json:"checks"`
	Duration  int64                  `json:"duration_ms"`
}

// HealthChecker provides health check functionality
type HealthChecker struct {
	db        *gorm.DB
	version   string
	startTime time.Time
	mu        sync.RWMutex
	lastCheck string
}

// NewHealthChecker creates a new health checker
func NewHealthChecker(db *gorm.DB, version string) *HealthChecker {
	return &HealthChecker{
		db:        db,
		version:   version,
		startTime: time.Now(),
	}
}

// Check performs a complete health check
func (hc *HealthChecker) Check() HealthStatus {
	start := time.Now()
	status := HealthStatus{
		Timestamp: start,
		Version:   hc.version,
		Checks:    make(map[string]interface{}),
	}

	dbHealthy := hc.checkDatabase(status.Checks)

	goroutineCount := runtime.NumGoroutine()
	status.Checks["goroutines"] = map[string]interface{}{
		"count":   goroutineCount,
		"healthy": goroutineCount < 10000,
	}

	status.Checks["uptime_seconds"] = int64(time.Since(hc.startTime).Seconds())

	if dbHealthy && goroutineCount < 10000 {
		status.Status = "healthy"
	} else {
		status.Status = "degraded"
	}

	status.Duration = time.Since(start).Milliseconds()

	hc.mu.Lock()
	hc.lastCheck = status.Status
	hc.mu.Unlock()

	return status
}

func (hc *HealthChecker) checkDatabase(checks map[string]interface{}) bool {
	if hc.db == nil {
		checks["database"] = map[string]interface{}{
			"healthy": false,
			"error":   "database not configured",
		}
		return false
	}

	sqlDB, err := hc.db.DB()
	if err != nil {
		checks["database"] = map[string]interface{}{
			"healthy": false,
			"error":   fmt.Sprintf("failed to access database: %v", err),
		}
		return false
	}

	start := time.Now()
	if err := sqlDB.Ping(); err != nil {
		checks["database"] = map[string]interface{}{
			"healthy": false,
			"error":   fmt.Sprintf("ping failed: %v", err),
		}
		return false
	}

	checks["database"] = map[string]interface{}{
		"healthy":    true,
		"latency_ms": time.Since(start).Milliseconds(),
	}
	return true
}

// IsReady reports whether the service can accept traffic.
func (hc *HealthChecker) IsReady() bool {
	if hc.db == nil {
		return false
	}
	sqlDB, err := hc.db.DB()
	if err != nil {
		return false
	}
	return sqlDB.Ping() == nil
}

// IsAlive reports whether the process is responsive.
func (hc *HealthChecker) IsAlive() bool {
	return true
}
