package storage

import (
	"reflect"
	"testing"
)

func openTestBackend(t *testing.T) *SQLiteBackend {
	t.Helper()
	b, err := OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("OpenSQLite(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { b.Close() })
	return b
}

// TestMigrationsIdempotent runs OpenSQLite twice on the same database and
// verifies the schema_version count stays correct.
func TestMigrationsIdempotent(t *testing.T) {
	dir := t.TempDir()

	b1, err := OpenSQLite(dir)
	if err != nil {
		t.Fatalf("first OpenSQLite failed: %v", err)
	}
	v1, err := b1.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}
	b1.Close()

	b2, err := OpenSQLite(dir)
	if err != nil {
		t.Fatalf("second OpenSQLite failed: %v", err)
	}
	defer b2.Close()

	v2, err := b2.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}
	if len(v1) != len(v2) {
		t.Errorf("migration count changed: %d -> %d", len(v1), len(v2))
	}
}

func TestSQLiteRoundTrip(t *testing.T) {
	b := openTestBackend(t)

	avatar := "https://example.com/u1.png"
	st := NewState()
	st.SetAvatar("U1", &avatar)
	st.SetAvatar("U2", nil)
	st.SetPlan("U1", "current", &PlanRecord{
		Locations: map[string]string{"day_0": "prague", "day_1": "home"},
		Timestamp: 1700000000000,
	})
	st.SetPlan("U1", "next", &PlanRecord{
		Locations: map[string]string{"day_2": "travel"},
		Timestamp: 1700000000002,
	})
	st.SetTimeOff("U2", "2026-09-07", &TimeOffRecord{
		ID: "t-1", LeaveType: "sick", Duration: "half_am", Timestamp: 1700000000003,
	})

	if err := b.Save(st); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := b.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if !reflect.DeepEqual(got.Plans, st.Plans) {
		t.Errorf("plans mismatch:\ngot  %+v\nwant %+v", got.Plans, st.Plans)
	}
	if !reflect.DeepEqual(got.Users, st.Users) {
		t.Errorf("users mismatch:\ngot  %+v\nwant %+v", got.Users, st.Users)
	}
	if !reflect.DeepEqual(got.TimeOff, st.TimeOff) {
		t.Errorf("timeoff mismatch:\ngot  %+v\nwant %+v", got.TimeOff, st.TimeOff)
	}
}

// TestSQLiteSaveReplacesContents verifies Save is a whole-store rewrite,
// not a merge.
func TestSQLiteSaveReplacesContents(t *testing.T) {
	b := openTestBackend(t)

	st1 := NewState()
	st1.SetPlan("U1", "current", &PlanRecord{Locations: map[string]string{"day_0": "london"}, Timestamp: 1})
	if err := b.Save(st1); err != nil {
		t.Fatalf("Save: %v", err)
	}

	st2 := NewState()
	st2.SetPlan("U2", "next", &PlanRecord{Locations: map[string]string{"day_3": "home"}, Timestamp: 2})
	if err := b.Save(st2); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := b.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, ok := got.Plans["U1"]; ok {
		t.Error("U1 survived a full rewrite")
	}
	if got.Plan("U2", "next") == nil {
		t.Error("U2 missing after save")
	}
}

func TestSQLiteEmptyDatabaseLoadsEmptyState(t *testing.T) {
	b := openTestBackend(t)

	st, err := b.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(st.Users) != 0 || len(st.Plans) != 0 || len(st.TimeOff) != 0 {
		t.Errorf("expected empty state, got %+v", st)
	}
}
