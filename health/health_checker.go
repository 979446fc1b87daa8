// Package health derives the service health from the loaded drug table.
package health

import (
	"math"
	"net/http"
	"time"

	"github.com/giygas/tbdose-api/interfaces"
)

const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"

	// staleCheckIntervals is how many missed drift checks mark the service degraded
	staleCheckIntervals = 3
)

// HealthCheckerImpl implements the interfaces.HealthChecker interface
type HealthCheckerImpl struct {
	dataStore     interfaces.DataStore
	checkInterval time.Duration
}

// NewHealthChecker creates a new health checker with injected dependencies.
// checkInterval is the drift check period of the scheduler.
func NewHealthChecker(dataStore interfaces.DataStore, checkInterval time.Duration) interfaces.HealthChecker {
	if checkInterval <= 0 {
		checkInterval = time.Hour
	}
	return &HealthCheckerImpl{
		dataStore:     dataStore,
		checkInterval: checkInterval,
	}
}

// lastReference returns the last drift check, or the load time before the first check
func (h *HealthCheckerImpl) lastReference() time.Time {
	if last := h.dataStore.GetLastChecked(); !last.IsZero() {
		return last
	}
	return h.dataStore.GetLoadedAt()
}

// HealthCheck returns the status, the report body and the HTTP status code
func (h *HealthCheckerImpl) HealthCheck() (status string, data map[string]any, httpStatus int) {
	drugs := h.dataStore.GetDrugs()
	lastChecked := h.dataStore.GetLastChecked()
	drift := h.dataStore.HasDrift()
	sinceCheck := time.Since(h.lastReference())

	switch {
	case len(drugs) == 0:
		status = StatusUnhealthy
		httpStatus = http.StatusServiceUnavailable

	case drift:
		status = StatusDegraded
		httpStatus = http.StatusOK

	case sinceCheck > staleCheckIntervals*h.checkInterval:
		status = StatusDegraded
		httpStatus = http.StatusOK

	default:
		status = StatusHealthy
		httpStatus = http.StatusOK
	}

	data = map[string]any{
		"drugs":              len(drugs),
		"source":             h.dataStore.GetSource(),
		"checksum":           h.dataStore.GetChecksum(),
		"loaded_at":          h.dataStore.GetLoadedAt().Format(time.RFC3339),
		"source_drift":       drift,
		"is_checking":        h.dataStore.IsChecking(),
		"next_check":         h.CalculateNextCheck().Format(time.RFC3339),
		"check_interval_min": h.checkInterval.Minutes(),
	}

	if !lastChecked.IsZero() {
		data["last_checked"] = lastChecked.Format(time.RFC3339)
		data["check_age_minutes"] = math.Round(time.Since(lastChecked).Minutes()*10) / 10
	}

	if start := h.dataStore.GetServerStartTime(); !start.IsZero() {
		data["uptime_seconds"] = math.Round(time.Since(start).Seconds())
	}

	return status, data, httpStatus
}

// CalculateNextCheck returns when the next drift check is due
func (h *HealthCheckerImpl) CalculateNextCheck() time.Time {
	now := time.Now()
	ref := h.lastReference()
	if ref.IsZero() {
		return now.Add(h.checkInterval)
	}

	next := ref.Add(h.checkInterval)
	if next.Before(now) {
		return now
	}
	return next
}
