package store

import (
	"testing"
	"time"

	"github.com/wayfarer-app/wayfarer/internal/model"
)

func TestArchiveCreateAndGet(t *testing.T) {
	db := testDB(t)
	s := NewArchiveStore(db)

	a, err := s.Create("archive-20260101.db.enc", "trips/archive-20260101.db.enc")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if a.ID == 0 {
		t.Error("expected non-zero ID")
	}
	if a.Status != model.ArchiveStatusPending {
		t.Errorf("status = %q, want pending", a.Status)
	}
	if a.CompletedAt != nil {
		t.Error("new archive should not have completed_at")
	}

	got, err := s.GetByID(a.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Filename != "archive-20260101.db.enc" {
		t.Errorf("filename = %q", got.Filename)
	}

	missing, err := s.GetByID(9999)
	if err != nil {
		t.Fatalf("GetByID missing: %v", err)
	}
	if missing != nil {
		t.Error("expected nil for missing archive")
	}
}

func TestArchiveStatusLifecycle(t *testing.T) {
	db := testDB(t)
	s := NewArchiveStore(db)

	a, err := s.Create("a.db.enc", "trips/a.db.enc")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := s.UpdateStatus(a.ID, model.ArchiveStatusUploading, ""); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	got, _ := s.GetByID(a.ID)
	if got.Status != model.ArchiveStatusUploading {
		t.Errorf("status = %q, want uploading", got.Status)
	}

	if err := s.UpdateCompleted(a.ID, 4096); err != nil {
		t.Fatalf("UpdateCompleted: %v", err)
	}
	got, _ = s.GetByID(a.ID)
	if got.Status != model.ArchiveStatusCompleted {
		t.Errorf("status = %q, want completed", got.Status)
	}
	if got.SizeBytes != 4096 {
		t.Errorf("size = %d, want 4096", got.SizeBytes)
	}
	if got.CompletedAt == nil {
		t.Error("expected completed_at to be set")
	}

	if err := s.UpdateStatus(a.ID, model.ArchiveStatusFailed, "upload timed out"); err != nil {
		t.Fatalf("UpdateStatus failed: %v", err)
	}
	got, _ = s.GetByID(a.ID)
	if got.Status != model.ArchiveStatusFailed {
		t.Errorf("status = %q, want failed", got.Status)
	}
	if got.ErrorMessage != "upload timed out" {
		t.Errorf("error message = %q", got.ErrorMessage)
	}
}

func TestArchiveListNewestFirst(t *testing.T) {
	db := testDB(t)
	s := NewArchiveStore(db)

	first, err := s.Create("old.db.enc", "trips/old.db.enc")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	second, err := s.Create("new.db.enc", "trips/new.db.enc")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	list, err := s.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("len = %d, want 2", len(list))
	}
	// Same created_at second, so the id tiebreak orders the newer row first.
	if list[0].ID != second.ID || list[1].ID != first.ID {
		t.Errorf("order = [%d %d], want [%d %d]", list[0].ID, list[1].ID, second.ID, first.ID)
	}
}

func TestArchiveDeleteOlderThan(t *testing.T) {
	db := testDB(t)
	s := NewArchiveStore(db)

	old, err := s.Create("old.db.enc", "trips/old.db.enc")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	// Backdate the first row so the cutoff splits the two.
	if _, err := db.Exec(`UPDATE archives SET created_at = ? WHERE id = ?`,
		time.Now().UTC().Add(-100*24*time.Hour), old.ID); err != nil {
		t.Fatalf("backdate: %v", err)
	}
	kept, err := s.Create("recent.db.enc", "trips/recent.db.enc")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	keys, err := s.DeleteOlderThan(time.Now().UTC().Add(-90 * 24 * time.Hour))
	if err != nil {
		t.Fatalf("DeleteOlderThan: %v", err)
	}
	if len(keys) != 1 || keys[0] != "trips/old.db.enc" {
		t.Errorf("keys = %v, want [trips/old.db.enc]", keys)
	}

	list, err := s.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 1 || list[0].ID != kept.ID {
		t.Errorf("remaining = %v", list)
	}
}
