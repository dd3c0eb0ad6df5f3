package progress

import (
	"testing"
	"time"
)

func TestRecordPageSuccessClearsFailure(t *testing.T) {
	record := NewRecord("sn0001", "loc")
	key := "1900-01-01_ed-1"
	now := time.Now()

	record.RecordPageFailure(key, "1900-01-01", 1, 2, "timeout", now)
	if len(record.FailedPages) != 1 {
		t.Fatalf("expected one failed page, got %d", len(record.FailedPages))
	}

	record.RecordPageSuccess(key, PageOutcome{Index: 2, File: "1900/p02.pdf", Size: 2000})
	if len(record.FailedPages) != 0 {
		t.Fatal("page success must clear the failed-page entry")
	}
	if !record.PageSucceeded(key, 2) {
		t.Fatal("page 2 should be recorded as succeeded")
	}
	if record.PageSucceeded(key, 1) {
		t.Fatal("page 1 was never downloaded")
	}
}

func TestRecordPageSuccessReplacesAndSorts(t *testing.T) {
	record := NewRecord("sn0001", "loc")
	key := "1900-01-01_ed-1"

	record.RecordPageSuccess(key, PageOutcome{Index: 3, Size: 30})
	record.RecordPageSuccess(key, PageOutcome{Index: 1, Size: 10})
	record.RecordPageSuccess(key, PageOutcome{Index: 3, Size: 99})

	pages := record.PartialPages[key]
	if len(pages) != 2 {
		t.Fatalf("expected 2 pages, got %d", len(pages))
	}
	if pages[0].Index != 1 || pages[1].Index != 3 {
		t.Fatalf("pages not sorted by index: %+v", pages)
	}
	if pages[1].Size != 99 {
		t.Fatalf("re-recording index 3 should replace the outcome, got size %d", pages[1].Size)
	}
}

func TestCompleteIssueMovesPartialsAndClearsFailures(t *testing.T) {
	record := NewRecord("sn0001", "loc")
	key := "1900-01-01_ed-1"
	now := time.Now()

	record.FailIssue(key, "1900-01-01", 1, "/loc", "1/2 pages", now)
	record.RecordPageSuccess(key, PageOutcome{Index: 1})
	record.RecordPageSuccess(key, PageOutcome{Index: 2})
	record.CompleteIssue(key, "1900-01-01", 1, now)

	if !record.IssueCompleted(key) {
		t.Fatal("issue should be completed")
	}
	if _, ok := record.FailedIssues[key]; ok {
		t.Fatal("completion must clear the failed-issue entry")
	}
	if len(record.PartialPages[key]) != 0 {
		t.Fatal("completion must consume partial pages")
	}
	if got := len(record.CompletedIssues[key].Pages); got != 2 {
		t.Fatalf("completed issue should carry 2 pages, got %d", got)
	}
	if !record.PageSucceeded(key, 1) {
		t.Fatal("completed pages still count as succeeded")
	}
}

func TestFailIssueKeepsPartialProgress(t *testing.T) {
	record := NewRecord("sn0001", "loc")
	key := "1900-01-01_ed-1"
	now := time.Now()

	record.RecordPageSuccess(key, PageOutcome{Index: 1})
	record.RecordPageFailure(key, "1900-01-01", 1, 2, "timeout", now)
	record.FailIssue(key, "1900-01-01", 1, "/loc", "1/2 pages", now)

	if record.IssueCompleted(key) {
		t.Fatal("failed issue must not count as completed")
	}
	if !record.PageSucceeded(key, 1) {
		t.Fatal("partial page progress must survive an issue failure")
	}
	if record.FailedIssues[key].Reason != "1/2 pages" {
		t.Fatalf("unexpected reason %q", record.FailedIssues[key].Reason)
	}
}

func TestDemoteIssueKeepsValidOutcomes(t *testing.T) {
	record := NewRecord("sn0001", "loc")
	key := "1900-01-01_ed-1"
	now := time.Now()

	for index := 1; index <= 3; index++ {
		record.RecordPageSuccess(key, PageOutcome{Index: index, File: "f", Size: 2000})
	}
	record.CompleteIssue(key, "1900-01-01", 1, now)

	record.DemoteIssue(key, []PageOutcome{
		{Index: 3, File: "f", Size: 2000},
		{Index: 1, File: "f", Size: 2000},
	})
	if record.IssueCompleted(key) {
		t.Fatal("issue should no longer be completed")
	}
	if record.PageSucceeded(key, 2) {
		t.Fatal("the dropped page must re-download")
	}
	for _, index := range []int{1, 3} {
		if !record.PageSucceeded(key, index) {
			t.Fatalf("page %d outcome lost during demotion", index)
		}
	}
	if pages := record.PartialPages[key]; len(pages) != 2 || pages[0].Index != 1 {
		t.Fatalf("partial pages = %+v, want indices 1,3 sorted", pages)
	}

	// Demoting with nothing valid leaves no partial entry behind.
	record.CompleteIssue(key, "1900-01-01", 1, now)
	record.DemoteIssue(key, nil)
	if _, ok := record.PartialPages[key]; ok {
		t.Fatal("empty demotion should not create a partial entry")
	}
}

func TestRetryTargets(t *testing.T) {
	record := NewRecord("sn0001", "loc")
	now := time.Now()

	record.FailIssue("1900-01-02_ed-1", "1900-01-02", 1, "", "0/4 pages", now)
	record.RecordPageSuccess("1900-01-01_ed-1", PageOutcome{Index: 1})
	record.RecordPageFailure("1900-01-03_ed-2", "1900-01-03", 2, 1, "404", now)

	// Completed issues never appear, even with stray page history.
	record.RecordPageSuccess("1899-12-31_ed-1", PageOutcome{Index: 1})
	record.CompleteIssue("1899-12-31_ed-1", "1899-12-31", 1, now)

	got := record.RetryTargets()
	want := []string{"1900-01-01_ed-1", "1900-01-02_ed-1", "1900-01-03_ed-2"}
	if len(got) != len(want) {
		t.Fatalf("RetryTargets = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("RetryTargets = %v, want %v", got, want)
		}
	}
}

func TestPageKey(t *testing.T) {
	if got := PageKey("1900-01-01_ed-1", 7); got != "1900-01-01_ed-1_page07" {
		t.Fatalf("PageKey = %q", got)
	}
}
