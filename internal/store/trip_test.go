package store

import (
	"database/sql"
	"testing"

	"github.com/wayfarer-app/wayfarer/internal/database"
	"github.com/wayfarer-app/wayfarer/internal/model"
)

func testDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestTripCreateGetList(t *testing.T) {
	s := NewTripStore(testDB(t))

	if err := s.Create(model.TripMeta{ID: "trip_a", Destination: "Seoul", StartDate: "2026-10-01", DaysCount: 5}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.Create(model.TripMeta{ID: "trip_b", Destination: "Osaka", StartDate: "2026-11-10", DaysCount: 4}); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := s.Get("trip_a")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil || got.Destination != "Seoul" || got.DaysCount != 5 {
		t.Fatalf("get = %+v", got)
	}

	missing, err := s.Get("trip_nope")
	if err != nil {
		t.Fatalf("get missing: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for unknown trip, got %+v", missing)
	}

	trips, err := s.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(trips) != 2 {
		t.Fatalf("list = %d trips, want 2", len(trips))
	}
	// Same created_at second, so the id tiebreak puts trip_b first.
	if trips[0].ID != "trip_b" {
		t.Errorf("list order = [%s %s], want newest first", trips[0].ID, trips[1].ID)
	}
}

func TestTripSections(t *testing.T) {
	s := NewTripStore(testDB(t))

	if err := s.Create(model.TripMeta{ID: "trip_a", Destination: "Seoul", StartDate: "2026-10-01", DaysCount: 5}); err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, ok, err := s.LoadSection("trip_a", SectionDays); err != nil || ok {
		t.Fatalf("load before save = ok=%v err=%v, want absent", ok, err)
	}

	if err := s.SaveSection("trip_a", SectionDays, `[{"title":"Day 1"}]`); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.SaveSection("trip_a", SectionRate, "0.022"); err != nil {
		t.Fatalf("save: %v", err)
	}

	value, ok, err := s.LoadSection("trip_a", SectionDays)
	if err != nil || !ok {
		t.Fatalf("load = ok=%v err=%v", ok, err)
	}
	if value != `[{"title":"Day 1"}]` {
		t.Errorf("value = %q", value)
	}

	// Saving again replaces the value.
	if err := s.SaveSection("trip_a", SectionDays, `[]`); err != nil {
		t.Fatalf("save again: %v", err)
	}
	value, _, _ = s.LoadSection("trip_a", SectionDays)
	if value != `[]` {
		t.Errorf("value after upsert = %q", value)
	}

	all, err := s.LoadAll("trip_a")
	if err != nil {
		t.Fatalf("load all: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("load all = %d sections, want 2", len(all))
	}
	if all[SectionRate] != "0.022" {
		t.Errorf("rate section = %q", all[SectionRate])
	}
}

func TestTripDeletePurgesSnapshots(t *testing.T) {
	s := NewTripStore(testDB(t))

	if err := s.Create(model.TripMeta{ID: "trip_a", Destination: "Seoul", StartDate: "2026-10-01", DaysCount: 5}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.SaveSection("trip_a", SectionDays, `[]`); err != nil {
		t.Fatalf("save: %v", err)
	}

	if err := s.Delete("trip_a"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if got, _ := s.Get("trip_a"); got != nil {
		t.Fatal("trip still present after delete")
	}
	if _, ok, _ := s.LoadSection("trip_a", SectionDays); ok {
		t.Fatal("snapshot still present after delete")
	}
}
