package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/OtherLeadingBrand/PaperRouter/internal/source"
)

func testDetails(id string) source.Details {
	return source.Details{
		CollectionID: id,
		Title:        "The Test Gazette",
		Place:        "Springfield, Illinois",
		StartYear:    1899,
		EndYear:      1905,
		URL:          "https://www.loc.gov/item/" + id + "/",
	}
}

func TestGetAbsentReturnsNil(t *testing.T) {
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	entry, err := store.Get(context.Background(), "sn0001")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if entry != nil {
		t.Fatalf("expected nil entry, got %+v", entry)
	}
}

func TestPutGetRoundTrip(t *testing.T) {
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	want := testDetails("sn0001")
	if err := store.Put(ctx, "loc", want); err != nil {
		t.Fatalf("Put: %v", err)
	}

	entry, err := store.Get(ctx, "sn0001")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if entry == nil {
		t.Fatal("entry missing")
	}
	if entry.Details != want {
		t.Fatalf("details = %+v, want %+v", entry.Details, want)
	}
	if entry.Source != "loc" {
		t.Fatalf("source = %q", entry.Source)
	}
	if entry.FetchedAt.IsZero() {
		t.Fatal("fetched_at not recorded")
	}
}

func TestPutReplacesExisting(t *testing.T) {
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	first := testDetails("sn0001")
	if err := store.Put(ctx, "loc", first); err != nil {
		t.Fatalf("Put: %v", err)
	}

	second := first
	second.Title = "The Test Gazette and Advertiser"
	second.EndYear = 1910
	if err := store.Put(ctx, "loc", second); err != nil {
		t.Fatalf("Put (replace): %v", err)
	}

	entry, err := store.Get(ctx, "sn0001")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if entry.Details != second {
		t.Fatalf("details = %+v, want replaced %+v", entry.Details, second)
	}
}

func TestReopenKeepsEntries(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := store.Put(ctx, "loc", testDetails("sn0001")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	store, err = Open(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer store.Close()

	entry, err := store.Get(ctx, "sn0001")
	if err != nil {
		t.Fatalf("Get after reopen: %v", err)
	}
	if entry == nil {
		t.Fatal("entry lost on reopen")
	}
}

func TestSchemaMismatchRejected(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := store.db.Exec("UPDATE schema_version SET version = 99"); err != nil {
		t.Fatalf("force version: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if _, err := Open(dir); !errors.Is(err, ErrSchemaMismatch) {
		t.Fatalf("stale schema accepted: %v", err)
	}
}

func TestSearchMatchesCachedEntries(t *testing.T) {
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	gazette := testDetails("sn0001")
	herald := source.Details{
		CollectionID: "sn0002",
		Title:        "The Morning Herald",
		Place:        "Baltimore, Maryland",
		StartYear:    1880,
		EndYear:      1902,
	}
	for _, details := range []source.Details{gazette, herald} {
		if err := store.Put(ctx, "loc", details); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}

	entries, err := store.Search(ctx, "gazette")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(entries) != 1 || entries[0].Details.CollectionID != "sn0001" {
		t.Fatalf("title search = %+v", entries)
	}

	// Place and collection id match too, case-insensitively.
	entries, err = store.Search(ctx, "BALTIMORE")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(entries) != 1 || entries[0].Details.CollectionID != "sn0002" {
		t.Fatalf("place search = %+v", entries)
	}
	entries, err = store.Search(ctx, "sn000")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("id search matched %d entries, want 2", len(entries))
	}
	// Ordered by title.
	if entries[0].Details.CollectionID != "sn0002" {
		t.Fatalf("search order = %+v", entries)
	}

	entries, err = store.Search(ctx, "tribune")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("unexpected matches: %+v", entries)
	}
}

func TestPruneDropsOldEntries(t *testing.T) {
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.Put(ctx, "loc", testDetails("sn0001")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := store.Put(ctx, "loc", testDetails("sn0002")); err != nil {
		t.Fatalf("Put: %v", err)
	}

	// Cutoff in the past keeps everything.
	dropped, err := store.Prune(ctx, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if dropped != 0 {
		t.Fatalf("dropped %d entries before cutoff", dropped)
	}

	dropped, err = store.Prune(ctx, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if dropped != 2 {
		t.Fatalf("dropped %d entries, want 2", dropped)
	}
}
