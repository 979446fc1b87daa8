// Package data holds the loaded drug table for concurrent readers.
// The table is stored once at startup and never replaced; only the
// drift-check metadata changes afterwards.
package data

import (
	"errors"
	"sync/atomic"
	"time"

	"github.com/giygas/tbdose-api/drugtable/entities"
	"github.com/giygas/tbdose-api/interfaces"
	"github.com/giygas/tbdose-api/logging"
)

// Compile-time check to ensure DataContainer implements DataStore
var _ interfaces.DataStore = (*DataContainer)(nil)

// ErrAlreadyLoaded is returned when Load is called a second time
var ErrAlreadyLoaded = errors.New("drug table already loaded")

// DataContainer holds the table with atomic values for lock-free reads
type DataContainer struct {
	drugs           atomic.Value // []entities.DrugDefinition
	drugsMap        atomic.Value // map[string]entities.DrugDefinition
	checksum        atomic.Value // string
	source          atomic.Value // string
	loadedAt        atomic.Value // time.Time
	lastChecked     atomic.Value // time.Time
	serverStartTime atomic.Value // time.Time
	loaded          atomic.Bool
	drift           atomic.Bool
	checking        atomic.Bool
}

// NewDataContainer creates a new DataContainer with an empty table
func NewDataContainer() *DataContainer {
	dc := &DataContainer{}
	dc.drugs.Store(make([]entities.DrugDefinition, 0))
	dc.drugsMap.Store(make(map[string]entities.DrugDefinition))
	dc.checksum.Store("")
	dc.source.Store("")
	dc.loadedAt.Store(time.Time{})
	dc.lastChecked.Store(time.Time{})
	dc.serverStartTime.Store(time.Time{})
	return dc
}

// Load stores the table. It succeeds only once.
func (dc *DataContainer) Load(table entities.Table) error {
	if !dc.loaded.CompareAndSwap(false, true) {
		return ErrAlreadyLoaded
	}

	drugs := make([]entities.DrugDefinition, len(table.Drugs))
	drugsMap := make(map[string]entities.DrugDefinition, len(table.Drugs))
	for i, d := range table.Drugs {
		drugs[i] = d.Clone()
		drugsMap[d.ID] = drugs[i]
	}

	dc.drugs.Store(drugs)
	dc.drugsMap.Store(drugsMap)
	dc.checksum.Store(table.Checksum)
	dc.source.Store(table.Source)
	dc.loadedAt.Store(table.LoadedAt)

	logging.Info("Drug table loaded", "drugs", len(drugs), "source", table.Source, "checksum", table.Checksum)
	return nil
}

// GetDrugs returns a copy of the table in table order
func (dc *DataContainer) GetDrugs() []entities.DrugDefinition {
	if v := dc.drugs.Load(); v != nil {
		if drugs, ok := v.([]entities.DrugDefinition); ok {
			out := make([]entities.DrugDefinition, len(drugs))
			for i, d := range drugs {
				out[i] = d.Clone()
			}
			return out
		}
	}

	logging.Warn("Drug list is empty or invalid")
	return []entities.DrugDefinition{}
}

// GetDrug returns a copy of the drug with the given id
func (dc *DataContainer) GetDrug(id string) (entities.DrugDefinition, bool) {
	if v := dc.drugsMap.Load(); v != nil {
		if drugsMap, ok := v.(map[string]entities.DrugDefinition); ok {
			d, found := drugsMap[id]
			if !found {
				return entities.DrugDefinition{}, false
			}
			return d.Clone(), true
		}
	}

	logging.Warn("Drug map is empty or invalid")
	return entities.DrugDefinition{}, false
}

// GetChecksum returns the sha256 of the loaded table content
func (dc *DataContainer) GetChecksum() string {
	return loadString(&dc.checksum)
}

// GetSource returns where the table was loaded from
func (dc *DataContainer) GetSource() string {
	return loadString(&dc.source)
}

func (dc *DataContainer) GetLoadedAt() time.Time {
	return loadTime(&dc.loadedAt, "loaded at")
}

// SetServerStartTime sets the server start time
func (dc *DataContainer) SetServerStartTime(startTime time.Time) {
	dc.serverStartTime.Store(startTime)
}

// GetServerStartTime returns the server start time
func (dc *DataContainer) GetServerStartTime() time.Time {
	return loadTime(&dc.serverStartTime, "server start time")
}

// GetLastChecked returns when the source was last compared with the loaded table
func (dc *DataContainer) GetLastChecked() time.Time {
	return loadTime(&dc.lastChecked, "last checked")
}

// HasDrift reports whether the last check found the source changed
func (dc *DataContainer) HasDrift() bool {
	return dc.drift.Load()
}

// MarkChecked records the outcome of a drift check
func (dc *DataContainer) MarkChecked(at time.Time, drift bool) {
	dc.lastChecked.Store(at)
	dc.drift.Store(drift)
}

// IsChecking returns true while a drift check is running
func (dc *DataContainer) IsChecking() bool {
	return dc.checking.Load()
}

// BeginCheck marks the start of a drift check.
// Returns false if another check is in progress.
func (dc *DataContainer) BeginCheck() bool {
	return dc.checking.CompareAndSwap(false, true)
}

// EndCheck marks the end of a drift check
func (dc *DataContainer) EndCheck() {
	dc.checking.Store(false)
}

func loadString(v *atomic.Value) string {
	if s, ok := v.Load().(string); ok {
		return s
	}
	return ""
}

func loadTime(v *atomic.Value, name string) time.Time {
	if t, ok := v.Load().(time.Time); ok {
		return t
	}

	logging.Warn("Could not get the " + name + " value")
	return time.Time{}
}
