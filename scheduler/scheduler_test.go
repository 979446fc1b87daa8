package scheduler

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/giygas/tbdose-api/data"
	"github.com/giygas/tbdose-api/drugtable"
	"github.com/giygas/tbdose-api/drugtable/entities"
	"github.com/giygas/tbdose-api/logging"
)

// mockSchedulerDataStore for testing scheduler
type mockSchedulerDataStore struct {
	mu          sync.Mutex
	checksum    string
	lastChecked time.Time
	drift       bool
	checking    bool
	checkCount  int
}

func (m *mockSchedulerDataStore) GetDrugs() []entities.DrugDefinition { return nil }

func (m *mockSchedulerDataStore) GetDrug(id string) (entities.DrugDefinition, bool) {
	return entities.DrugDefinition{}, false
}

func (m *mockSchedulerDataStore) GetChecksum() string { return m.checksum }

func (m *mockSchedulerDataStore) GetSource() string { return "mock" }

func (m *mockSchedulerDataStore) GetLoadedAt() time.Time { return time.Time{} }

func (m *mockSchedulerDataStore) GetServerStartTime() time.Time { return time.Time{} }

func (m *mockSchedulerDataStore) GetLastChecked() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastChecked
}

func (m *mockSchedulerDataStore) HasDrift() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.drift
}

func (m *mockSchedulerDataStore) MarkChecked(at time.Time, drift bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastChecked = at
	m.drift = drift
	m.checkCount++
}

func (m *mockSchedulerDataStore) IsChecking() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.checking
}

func (m *mockSchedulerDataStore) BeginCheck() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.checking {
		return false
	}
	m.checking = true
	return true
}

func (m *mockSchedulerDataStore) EndCheck() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checking = false
}

func (m *mockSchedulerDataStore) checks() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.checkCount
}

// mockLoader returns a fixed table or error
type mockLoader struct {
	mu       sync.Mutex
	checksum string
	err      error
	calls    int
}

func (l *mockLoader) Load() (entities.Table, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	if l.err != nil {
		return entities.Table{}, l.err
	}
	return entities.Table{
		Drugs:    []entities.DrugDefinition{{ID: "isoniazid"}},
		Source:   "mock",
		Checksum: l.checksum,
		LoadedAt: time.Now(),
	}, nil
}

func (l *mockLoader) Source() string { return "mock" }

func TestNewSchedulerDefaultInterval(t *testing.T) {
	s := NewScheduler(&mockSchedulerDataStore{}, &mockLoader{}, 0)
	if s.interval != time.Hour {
		t.Errorf("Expected default interval of one hour, got %v", s.interval)
	}
}

func TestCheckTableUnchanged(t *testing.T) {
	logging.InitLogger("")

	store := &mockSchedulerDataStore{checksum: "same"}
	s := NewScheduler(store, &mockLoader{checksum: "same"}, time.Hour)

	drift, err := s.checkTable()
	if err != nil {
		t.Fatalf("checkTable returned error: %v", err)
	}
	if drift || store.HasDrift() {
		t.Error("Expected no drift for identical checksums")
	}
	if store.GetLastChecked().IsZero() {
		t.Error("Expected last checked to be recorded")
	}
	if store.IsChecking() {
		t.Error("Expected check flag to be released")
	}
}

func TestCheckTableDrift(t *testing.T) {
	logging.InitLogger("")

	store := &mockSchedulerDataStore{checksum: "loaded"}
	s := NewScheduler(store, &mockLoader{checksum: "edited"}, time.Hour)

	drift, err := s.checkTable()
	if err != nil {
		t.Fatalf("checkTable returned error: %v", err)
	}
	if !drift || !store.HasDrift() {
		t.Error("Expected drift for differing checksums")
	}
	if store.GetChecksum() != "loaded" {
		t.Error("The loaded table checksum must not change")
	}
}

func TestCheckTableLoadFailure(t *testing.T) {
	logging.InitLogger("")

	store := &mockSchedulerDataStore{checksum: "loaded"}
	s := NewScheduler(store, &mockLoader{err: errors.New("file vanished")}, time.Hour)

	_, err := s.checkTable()
	if err == nil {
		t.Fatal("Expected error when the source cannot be loaded")
	}
	if store.checks() != 0 {
		t.Error("A failed check must not be recorded as a completed check")
	}
	if store.IsChecking() {
		t.Error("Expected check flag to be released after failure")
	}
}

func TestCheckTableSkipsWhenRunning(t *testing.T) {
	logging.InitLogger("")

	store := &mockSchedulerDataStore{checksum: "loaded", checking: true}
	loader := &mockLoader{checksum: "edited"}
	s := NewScheduler(store, loader, time.Hour)

	drift, err := s.checkTable()
	if err != nil || drift {
		t.Errorf("Expected a silent skip, got drift=%v err=%v", drift, err)
	}
	if loader.calls != 0 {
		t.Error("Loader must not run while another check is in progress")
	}
}

func TestCheckTableDetectsEditedFile(t *testing.T) {
	logging.InitLogger("")

	content, err := os.ReadFile(filepath.Join("..", "drugtable", "ddc_table_5_1.tsv"))
	if err != nil {
		t.Fatalf("Failed to read table: %v", err)
	}
	path := filepath.Join(t.TempDir(), "table.tsv")
	if err := os.WriteFile(path, content, 0600); err != nil {
		t.Fatal(err)
	}

	loader := drugtable.NewLoader(path, drugtable.EncodingUTF8)
	table, err := loader.Load()
	if err != nil {
		t.Fatalf("Failed to load table: %v", err)
	}

	store := data.NewDataContainer()
	if err := store.Load(table); err != nil {
		t.Fatal(err)
	}

	s := NewScheduler(store, loader, time.Hour)
	if drift, err := s.checkTable(); err != nil || drift {
		t.Fatalf("Expected no drift before edit, got drift=%v err=%v", drift, err)
	}

	edited := append(content, []byte("# reviewed\n")...)
	if err := os.WriteFile(path, edited, 0600); err != nil {
		t.Fatal(err)
	}

	drift, err := s.checkTable()
	if err != nil {
		t.Fatalf("checkTable returned error: %v", err)
	}
	if !drift || !store.HasDrift() {
		t.Error("Expected drift after editing the source")
	}
	if store.GetChecksum() != table.Checksum || len(store.GetDrugs()) != len(table.Drugs) {
		t.Error("The live table must be kept after drift")
	}
}

func TestSchedulerStartStop(t *testing.T) {
	logging.InitLogger("")

	store := &mockSchedulerDataStore{checksum: "same"}
	s := NewScheduler(store, &mockLoader{checksum: "same"}, 50*time.Millisecond)

	if err := s.Start(); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for store.checks() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	s.Stop()

	if store.checks() == 0 {
		t.Error("Expected at least one scheduled check")
	}
}
