// Package scheduler runs the periodic drug table drift check. The check
// re-reads the configured source and compares it with the loaded table;
// the loaded table itself is never replaced.
package scheduler

import (
	"fmt"
	"time"

	"github.com/giygas/tbdose-api/interfaces"
	"github.com/giygas/tbdose-api/logging"
	"github.com/giygas/tbdose-api/metrics"
	"github.com/go-co-op/gocron"
)

// Compile-time check to ensure Scheduler implements Scheduler interface
var _ interfaces.Scheduler = (*Scheduler)(nil)

// Scheduler checks the table source for drift using dependency injection
type Scheduler struct {
	dataStore interfaces.DataStore
	loader    interfaces.TableLoader
	interval  time.Duration
	scheduler *gocron.Scheduler
}

// NewScheduler creates a new scheduler instance with injected dependencies
func NewScheduler(dataStore interfaces.DataStore, loader interfaces.TableLoader, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Scheduler{
		dataStore: dataStore,
		loader:    loader,
		interval:  interval,
		scheduler: gocron.NewScheduler(time.Local),
	}
}

// Start schedules the drift check. The first run happens one interval after start.
func (s *Scheduler) Start() error {
	_, err := s.scheduler.Every(s.interval).WaitForSchedule().SingletonMode().Do(func() {
		if _, err := s.checkTable(); err != nil {
			logging.Error("Drug table check failed", "error", err)
		}
	})

	if err != nil {
		logging.Error("Failed to schedule table checks", "error", err)
		return fmt.Errorf("failed to schedule table checks: %w", err)
	}

	s.scheduler.StartAsync()
	logging.Info("Drug table check scheduled", "interval", s.interval.String(), "source", s.loader.Source())

	return nil
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

// checkTable reloads the source and records whether it differs from the loaded table
func (s *Scheduler) checkTable() (drift bool, err error) {
	if !s.dataStore.BeginCheck() {
		logging.Info("Table check already in progress, skipping...")
		metrics.RecordTableCheck(metrics.CheckSkipped)
		return false, nil
	}
	defer s.dataStore.EndCheck()

	start := time.Now()

	table, err := s.loader.Load()
	if err != nil {
		metrics.RecordTableCheck(metrics.CheckFailed)
		return false, fmt.Errorf("failed to reload %s: %w", s.loader.Source(), err)
	}

	loaded := s.dataStore.GetChecksum()
	drift = table.Checksum != loaded
	s.dataStore.MarkChecked(time.Now(), drift)

	if drift {
		metrics.RecordTableCheck(metrics.CheckDrift)
		logging.Warn("Drug table source changed, restart required to apply it",
			"source", s.loader.Source(),
			"loaded_checksum", loaded,
			"source_checksum", table.Checksum,
			"source_drugs", len(table.Drugs),
		)
		return true, nil
	}

	metrics.RecordTableCheck(metrics.CheckUnchanged)
	logging.Debug("Drug table check completed", "duration", time.Since(start).String(), "checksum", loaded)

	return false, nil
}
