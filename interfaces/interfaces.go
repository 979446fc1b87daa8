// Package interfaces defines core abstractions for the TB dose API
// to improve testability, maintainability, and separation of concerns.
package interfaces

import (
	"net/http"
	"time"

	"github.com/giygas/tbdose-api/drugtable/entities"
)

// DataStore defines the contract for the drug table storage.
// The table is loaded once and is read-only afterwards; only the
// drift-check metadata changes at runtime.
type DataStore interface {
	// Table retrieval methods
	GetDrugs() []entities.DrugDefinition
	GetDrug(id string) (entities.DrugDefinition, bool)
	GetChecksum() string
	GetSource() string
	GetLoadedAt() time.Time
	GetServerStartTime() time.Time

	// Drift check methods
	GetLastChecked() time.Time
	HasDrift() bool
	MarkChecked(at time.Time, drift bool)
	IsChecking() bool
	BeginCheck() bool
	EndCheck()
}

// TableLoader defines the contract for reading the drug table from its source.
type TableLoader interface {
	// Load reads, decodes, parses and validates the table
	Load() (entities.Table, error)

	// Source names where the table comes from
	Source() string
}

// Scheduler defines the contract for background jobs.
type Scheduler interface {
	// Lifecycle management
	Start() error
	Stop()
}

// HTTPHandler defines the contract for HTTP request handlers.
type HTTPHandler interface {
	ServeDrugs(w http.ResponseWriter, r *http.Request)
	FindDrug(w http.ResponseWriter, r *http.Request)
	CalculateDoses(w http.ResponseWriter, r *http.Request)
	CalculateDrugDose(w http.ResponseWriter, r *http.Request)
	// This will stay in all versions
	HealthCheck(w http.ResponseWriter, r *http.Request)
}

// HealthChecker defines the contract for health check functionality.
type HealthChecker interface {
	// HealthCheck returns current status, details and the HTTP status to use
	HealthCheck() (status string, details map[string]any, httpStatus int)

	// CalculateNextCheck returns the next scheduled table check time
	CalculateNextCheck() time.Time
}

// InputValidator defines the contract for user input validation.
type InputValidator interface {
	// ParseWeight parses and range-checks a body weight in kilograms
	ParseWeight(input string) (float64, error)

	// ValidateDrugID validates a drug identifier
	ValidateDrugID(input string) error

	// ValidateCategory validates a category filter
	ValidateCategory(input string) (entities.Category, error)
}
