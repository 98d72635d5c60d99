package storage

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestFileBackendRoundTrip(t *testing.T) {
	dir := t.TempDir()
	b, err := NewFileBackend(dir)
	if err != nil {
		t.Fatalf("NewFileBackend: %v", err)
	}

	avatar := "https://example.com/u1.png"
	st := NewState()
	st.SetAvatar("U1", &avatar)
	st.SetAvatar("U2", nil)
	st.SetPlan("U1", "current", &PlanRecord{
		Locations: map[string]string{"day_0": "prague", "day_1": "home"},
		Timestamp: 1700000000000,
	})
	st.SetTimeOff("U1", "2026-09-07", &TimeOffRecord{
		ID: "t-1", LeaveType: "holiday", Duration: "full", Timestamp: 1700000000001,
	})

	if err := b.Save(st); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// Simulate a process restart by loading through a fresh backend.
	b2, err := NewFileBackend(dir)
	if err != nil {
		t.Fatalf("NewFileBackend: %v", err)
	}
	got, err := b2.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if !reflect.DeepEqual(got.Plans, st.Plans) {
		t.Errorf("plans round-trip mismatch:\ngot  %+v\nwant %+v", got.Plans, st.Plans)
	}
	if !reflect.DeepEqual(got.Users, st.Users) {
		t.Errorf("users round-trip mismatch:\ngot  %+v\nwant %+v", got.Users, st.Users)
	}
	if !reflect.DeepEqual(got.TimeOff, st.TimeOff) {
		t.Errorf("timeoff round-trip mismatch:\ngot  %+v\nwant %+v", got.TimeOff, st.TimeOff)
	}
}

func TestFileBackendMissingFileIsEmpty(t *testing.T) {
	b, err := NewFileBackend(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileBackend: %v", err)
	}

	st, err := b.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(st.Users) != 0 || len(st.Plans) != 0 {
		t.Errorf("expected empty state, got %+v", st)
	}
}

func TestFileBackendCorruptFileErrors(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, stateFileName), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	b, err := NewFileBackend(dir)
	if err != nil {
		t.Fatalf("NewFileBackend: %v", err)
	}
	if _, err := b.Load(); err == nil {
		t.Error("expected parse error for corrupt file")
	}
}

func TestFileBackendPartialDocumentNormalized(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, stateFileName), []byte(`{"users":{}}`), 0o644); err != nil {
		t.Fatal(err)
	}

	b, err := NewFileBackend(dir)
	if err != nil {
		t.Fatalf("NewFileBackend: %v", err)
	}
	st, err := b.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if st.Plans == nil || st.TimeOff == nil {
		t.Error("missing sections were not initialized")
	}
}
