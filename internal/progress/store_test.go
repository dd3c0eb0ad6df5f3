package progress

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileReturnsEmptyRecord(t *testing.T) {
	store := NewStore(t.TempDir())
	record, restored, err := store.Load("sn0001", "loc")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if restored {
		t.Fatal("fresh record must not report a backup restore")
	}
	if record.CollectionID != "sn0001" || record.Source != "loc" {
		t.Fatalf("unexpected identity: %+v", record)
	}
	if len(record.CompletedIssues) != 0 {
		t.Fatal("fresh record should be empty")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	store := NewStore(t.TempDir())
	record := NewRecord("sn0001", "loc")
	record.RecordPageSuccess("1900-01-01_ed-1", PageOutcome{Index: 1, File: "1900/p01.pdf", Size: 1234})
	record.CompleteIssue("1900-01-01_ed-1", "1900-01-01", 1, time.Now())

	if err := store.Save(record); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, restored, err := store.Load("sn0001", "loc")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if restored {
		t.Fatal("unexpected backup restore")
	}
	if !loaded.IssueCompleted("1900-01-01_ed-1") {
		t.Fatal("completed issue lost in round trip")
	}
	if got := loaded.CompletedIssues["1900-01-01_ed-1"].Pages[0].Size; got != 1234 {
		t.Fatalf("page size = %d, want 1234", got)
	}
}

func TestCorruptPrimaryFallsBackToBackup(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)

	record := NewRecord("sn0001", "loc")
	record.RecordPageSuccess("1900-01-01_ed-1", PageOutcome{Index: 1})
	record.CompleteIssue("1900-01-01_ed-1", "1900-01-01", 1, time.Now())
	if err := store.Save(record); err != nil {
		t.Fatalf("first Save: %v", err)
	}
	// Second save copies the known-good primary to the backup.
	if err := store.Save(record); err != nil {
		t.Fatalf("second Save: %v", err)
	}

	// Simulate a crash mid-write leaving a half-written primary.
	if err := os.WriteFile(store.Path(), []byte(`{"collection_id": "sn0`), 0o644); err != nil {
		t.Fatalf("corrupt primary: %v", err)
	}

	loaded, restored, err := store.Load("sn0001", "loc")
	if err != nil {
		t.Fatalf("Load after corruption: %v", err)
	}
	if !restored {
		t.Fatal("expected a backup restore")
	}
	if !loaded.IssueCompleted("1900-01-01_ed-1") {
		t.Fatal("backup lost the completed issue")
	}
}

func TestCorruptPrimaryWithoutBackupFails(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)
	if err := os.WriteFile(store.Path(), []byte("not json"), 0o644); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}
	if _, _, err := store.Load("sn0001", "loc"); err == nil {
		t.Fatal("expected error when both primary and backup are unusable")
	}
}

func TestSaveLeavesPriorRecordIntactOnReload(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)

	saved := NewRecord("sn0001", "loc")
	saved.RecordPageSuccess("1900-01-01_ed-1", PageOutcome{Index: 1})
	if err := store.Save(saved); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// Mutate in memory without saving, then reload: the file must still
	// hold only the persisted state.
	saved.RecordPageSuccess("1900-01-01_ed-1", PageOutcome{Index: 2})

	loaded, _, err := store.Load("sn0001", "loc")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.PageSucceeded("1900-01-01_ed-1", 2) {
		t.Fatal("unsaved mutation leaked into the persisted record")
	}
	if !loaded.PageSucceeded("1900-01-01_ed-1", 1) {
		t.Fatal("persisted page missing")
	}
}

func TestOpenSessionRejectsConcurrentRun(t *testing.T) {
	dir := t.TempDir()

	first, err := OpenSession(dir, "sn0001", "loc")
	if err != nil {
		t.Fatalf("first OpenSession: %v", err)
	}
	defer first.Close()

	if _, err := OpenSession(dir, "sn0001", "loc"); !errors.Is(err, ErrLocked) {
		t.Fatalf("second OpenSession = %v, want ErrLocked", err)
	}

	if err := first.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	third, err := OpenSession(dir, "sn0001", "loc")
	if err != nil {
		t.Fatalf("OpenSession after release: %v", err)
	}
	third.Close()
}

func TestSessionSavePersists(t *testing.T) {
	dir := t.TempDir()
	session, err := OpenSession(dir, "sn0001", "loc")
	if err != nil {
		t.Fatalf("OpenSession: %v", err)
	}
	defer session.Close()

	session.Record.RecordPageSuccess("1900-01-01_ed-1", PageOutcome{Index: 1})
	if err := session.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, recordFile)); err != nil {
		t.Fatalf("progress file missing: %v", err)
	}
}
