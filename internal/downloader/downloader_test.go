package downloader

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/OtherLeadingBrand/PaperRouter/internal/logging"
	"github.com/OtherLeadingBrand/PaperRouter/internal/progress"
	"github.com/OtherLeadingBrand/PaperRouter/internal/ratelimit"
	"github.com/OtherLeadingBrand/PaperRouter/internal/source"
)

type fakeSource struct {
	issues        []source.Issue
	pages         map[string][]source.Page
	failPages     map[string]error
	fetchIssueErr error
	resolveErr    error

	downloads     int
	downloadOrder []string
}

func (f *fakeSource) Name() string        { return "fake" }
func (f *fakeSource) DisplayName() string { return "Fake Archive" }

func (f *fakeSource) SearchTitles(context.Context, string) ([]source.TitleResult, error) {
	return nil, nil
}

func (f *fakeSource) FetchDetails(context.Context, string) (*source.Details, error) {
	return nil, nil
}

func (f *fakeSource) FetchIssues(_ context.Context, _ string, _ source.YearSet) ([]source.Issue, error) {
	if f.fetchIssueErr != nil {
		return nil, f.fetchIssueErr
	}
	return f.issues, nil
}

func (f *fakeSource) ResolvePages(_ context.Context, issue source.Issue) ([]source.Page, error) {
	if f.resolveErr != nil {
		return nil, f.resolveErr
	}
	return f.pages[issue.Key()], nil
}

func (f *fakeSource) DownloadArtifact(_ context.Context, page source.Page, destPath string) (source.DownloadResult, error) {
	f.downloads++
	f.downloadOrder = append(f.downloadOrder, page.Key())
	if err := f.failPages[page.Key()]; err != nil {
		return source.DownloadResult{}, err
	}
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return source.DownloadResult{}, err
	}
	data := pdfBytes(2000)
	if err := os.WriteFile(destPath, data, 0o644); err != nil {
		return source.DownloadResult{}, err
	}
	return source.DownloadResult{Path: destPath, SizeBytes: int64(len(data))}, nil
}

func (f *fakeSource) FetchText(context.Context, source.Page, string) (source.TextResult, error) {
	return source.TextResult{Supported: false}, nil
}

func (f *fakeSource) RebuildPageLocator(collectionID, date string, edition, index int) string {
	return fmt.Sprintf("/%s/%s/ed-%d/seq-%d/", collectionID, date, edition, index)
}

func pdfBytes(size int) []byte {
	data := make([]byte, size)
	copy(data, "%PDF-1.4\n")
	for i := 9; i < size; i++ {
		data[i] = 0x42
	}
	return data
}

type countingOCR struct {
	calls []string
}

func (c *countingOCR) ProcessPage(_ context.Context, page source.Page, _ string) error {
	c.calls = append(c.calls, page.Key())
	return nil
}

func issue(date string, edition int) source.Issue {
	year := 0
	fmt.Sscanf(date[:4], "%d", &year)
	return source.Issue{
		CollectionID: "sn0001",
		Date:         date,
		Edition:      edition,
		Year:         year,
		Locator:      "/loc/" + date,
		Title:        "The Test Gazette",
	}
}

func pagesFor(issue source.Issue, n int) []source.Page {
	pages := make([]source.Page, 0, n)
	for i := 1; i <= n; i++ {
		pages = append(pages, source.Page{
			CollectionID: issue.CollectionID,
			IssueDate:    issue.Date,
			Edition:      issue.Edition,
			Index:        i,
		})
	}
	return pages
}

func newTestOrchestrator(t *testing.T, src source.Source, ocr OCRRunner) (*Orchestrator, *progress.Session, string) {
	t.Helper()
	dir := t.TempDir()
	session, err := progress.OpenSession(dir, "sn0001", "fake")
	if err != nil {
		t.Fatalf("OpenSession: %v", err)
	}
	t.Cleanup(func() { session.Close() })
	limiter := ratelimit.New(ratelimit.Profile{Name: "test"})
	return New(src, session, limiter, dir, logging.Discard(), nil, ocr), session, dir
}

func TestRunDownloadsEverything(t *testing.T) {
	issueA := issue("1900-01-01", 1)
	issueB := issue("1900-01-02", 1)
	src := &fakeSource{
		issues: []source.Issue{issueA, issueB},
		pages: map[string][]source.Page{
			issueA.Key(): pagesFor(issueA, 2),
			issueB.Key(): pagesFor(issueB, 3),
		},
	}
	orch, session, dir := newTestOrchestrator(t, src, nil)

	summary, err := orch.Run(context.Background(), Target{CollectionID: "sn0001"}, Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.IssuesCompleted != 2 || summary.PagesDownloaded != 5 || summary.PagesFailed != 0 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if summary.Title != "The Test Gazette" {
		t.Fatalf("title = %q", summary.Title)
	}
	if !session.Record.IssueCompleted(issueA.Key()) || !session.Record.IssueCompleted(issueB.Key()) {
		t.Fatal("issues not recorded as completed")
	}
	for _, page := range session.Record.CompletedIssues[issueA.Key()].Pages {
		if _, err := os.Stat(filepath.Join(dir, page.File)); err != nil {
			t.Fatalf("artifact %s missing: %v", page.File, err)
		}
	}
}

func TestRunProcessesPagesInIndexOrder(t *testing.T) {
	iss := issue("1900-01-01", 1)
	shuffled := pagesFor(iss, 3)
	shuffled[0], shuffled[2] = shuffled[2], shuffled[0]
	src := &fakeSource{
		issues: []source.Issue{iss},
		pages:  map[string][]source.Page{iss.Key(): shuffled},
	}
	orch, _, _ := newTestOrchestrator(t, src, nil)

	if _, err := orch.Run(context.Background(), Target{CollectionID: "sn0001"}, Options{}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := []string{"1900-01-01_ed-1_page01", "1900-01-01_ed-1_page02", "1900-01-01_ed-1_page03"}
	if len(src.downloadOrder) != len(want) {
		t.Fatalf("download order %v", src.downloadOrder)
	}
	for i := range want {
		if src.downloadOrder[i] != want[i] {
			t.Fatalf("download order %v, want %v", src.downloadOrder, want)
		}
	}
}

func TestSecondRunDownloadsNothing(t *testing.T) {
	iss := issue("1900-01-01", 1)
	src := &fakeSource{
		issues: []source.Issue{iss},
		pages:  map[string][]source.Page{iss.Key(): pagesFor(iss, 2)},
	}
	orch, session, _ := newTestOrchestrator(t, src, nil)

	if _, err := orch.Run(context.Background(), Target{CollectionID: "sn0001"}, Options{}); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	firstDownloads := src.downloads

	summary, err := orch.Run(context.Background(), Target{CollectionID: "sn0001"}, Options{})
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if src.downloads != firstDownloads {
		t.Fatalf("second run performed %d downloads", src.downloads-firstDownloads)
	}
	if summary.IssuesSkipped != 1 || summary.IssuesCompleted != 0 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if !session.Record.IssueCompleted(iss.Key()) {
		t.Fatal("completed issue lost")
	}
}

func TestRetryFailedAttemptsOnlyFailedPage(t *testing.T) {
	iss := issue("1900-01-01", 1)
	key := iss.Key()
	src := &fakeSource{
		issues: []source.Issue{iss},
		pages:  map[string][]source.Page{key: pagesFor(iss, 3)},
	}
	orch, session, dir := newTestOrchestrator(t, src, nil)

	// Pages 1 and 2 succeeded in a prior run; page 3 failed.
	now := time.Now().UTC()
	for index := 1; index <= 2; index++ {
		rel := ArtifactRelPath("sn0001", iss.Date, 1, index)
		path := filepath.Join(dir, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, pdfBytes(2000), 0o644); err != nil {
			t.Fatal(err)
		}
		session.Record.RecordPageSuccess(key, progress.PageOutcome{Index: index, File: rel, Size: 2000})
	}
	session.Record.RecordPageFailure(key, iss.Date, 1, 3, "503", now)
	session.Record.FailIssue(key, iss.Date, 1, iss.Locator, "2/3 pages", now)

	summary, err := orch.Run(context.Background(), Target{CollectionID: "sn0001"}, Options{RetryFailed: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if src.downloads != 1 {
		t.Fatalf("expected exactly one download, got %d", src.downloads)
	}
	if src.downloadOrder[0] != "1900-01-01_ed-1_page03" {
		t.Fatalf("downloaded %s, want page 3", src.downloadOrder[0])
	}
	if summary.IssuesRetried != 1 {
		t.Fatalf("retry worklist size = %d, want 1", summary.IssuesRetried)
	}
	if !session.Record.IssueCompleted(key) {
		t.Fatal("issue should be completed after the missing page succeeds")
	}
	if len(session.Record.FailedIssues) != 0 || len(session.Record.FailedPages) != 0 {
		t.Fatal("failure entries should be cleared on completion")
	}
	if summary.IssuesCompleted != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}

func TestFailedIssueSkippedWithoutRetryFlag(t *testing.T) {
	iss := issue("1900-01-01", 1)
	src := &fakeSource{
		issues: []source.Issue{iss},
		pages:  map[string][]source.Page{iss.Key(): pagesFor(iss, 1)},
	}
	orch, session, _ := newTestOrchestrator(t, src, nil)
	session.Record.FailIssue(iss.Key(), iss.Date, 1, "", "0/1 pages", time.Now().UTC())

	summary, err := orch.Run(context.Background(), Target{CollectionID: "sn0001"}, Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if src.downloads != 0 {
		t.Fatalf("failed issue should be skipped, got %d downloads", src.downloads)
	}
	if summary.IssuesSkipped != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}

func TestPageFailureIsLocal(t *testing.T) {
	iss := issue("1900-01-01", 1)
	key := iss.Key()
	src := &fakeSource{
		issues:    []source.Issue{iss},
		pages:     map[string][]source.Page{key: pagesFor(iss, 2)},
		failPages: map[string]error{"1900-01-01_ed-1_page01": errors.New("404 not found")},
	}
	orch, session, _ := newTestOrchestrator(t, src, nil)

	summary, err := orch.Run(context.Background(), Target{CollectionID: "sn0001"}, Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.PagesFailed != 1 || summary.PagesDownloaded != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	failed, ok := session.Record.FailedIssues[key]
	if !ok {
		t.Fatal("issue should be recorded as failed")
	}
	if failed.Reason != "1/2 pages" {
		t.Fatalf("reason = %q, want \"1/2 pages\"", failed.Reason)
	}
	if _, ok := session.Record.FailedPages[progress.PageKey(key, 1)]; !ok {
		t.Fatal("failed page entry missing")
	}
	if !session.Record.PageSucceeded(key, 2) {
		t.Fatal("page 2 should still have succeeded")
	}
}

func TestDiscoveryFailureIsFatal(t *testing.T) {
	src := &fakeSource{fetchIssueErr: errors.New("api unreachable")}
	orch, _, _ := newTestOrchestrator(t, src, nil)

	_, err := orch.Run(context.Background(), Target{CollectionID: "sn0001"}, Options{})
	if !errors.Is(err, ErrFatalDiscovery) {
		t.Fatalf("err = %v, want ErrFatalDiscovery", err)
	}
}

func TestCorruptArtifactTriggersRedownload(t *testing.T) {
	iss := issue("1900-01-01", 1)
	src := &fakeSource{
		issues: []source.Issue{iss},
		pages:  map[string][]source.Page{iss.Key(): pagesFor(iss, 1)},
	}
	orch, session, dir := newTestOrchestrator(t, src, nil)

	if _, err := orch.Run(context.Background(), Target{CollectionID: "sn0001"}, Options{}); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	// Truncate the artifact behind the record's back.
	rel := session.Record.CompletedIssues[iss.Key()].Pages[0].File
	if err := os.WriteFile(filepath.Join(dir, rel), []byte("%PDF-"), 0o644); err != nil {
		t.Fatal(err)
	}
	before := src.downloads

	if _, err := orch.Run(context.Background(), Target{CollectionID: "sn0001"}, Options{}); err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if src.downloads != before+1 {
		t.Fatalf("expected one re-download, got %d", src.downloads-before)
	}
	if !session.Record.IssueCompleted(iss.Key()) {
		t.Fatal("issue should be completed again")
	}
}

func TestCorruptPageKeepsValidSiblingsAsPartialProgress(t *testing.T) {
	iss := issue("1900-01-01", 1)
	key := iss.Key()
	src := &fakeSource{
		issues: []source.Issue{iss},
		pages:  map[string][]source.Page{key: pagesFor(iss, 3)},
	}
	orch, session, dir := newTestOrchestrator(t, src, nil)

	if _, err := orch.Run(context.Background(), Target{CollectionID: "sn0001"}, Options{}); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	// Corrupt only the middle page behind the record's back.
	rel := session.Record.CompletedIssues[key].Pages[1].File
	if err := os.WriteFile(filepath.Join(dir, rel), []byte("%PDF-"), 0o644); err != nil {
		t.Fatal(err)
	}
	before := src.downloads

	if _, err := orch.Run(context.Background(), Target{CollectionID: "sn0001"}, Options{}); err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if src.downloads != before+1 {
		t.Fatalf("expected one re-download, got %d", src.downloads-before)
	}
	if got := src.downloadOrder[len(src.downloadOrder)-1]; got != "1900-01-01_ed-1_page02" {
		t.Fatalf("re-downloaded %s, want page 2 only", got)
	}
	if !session.Record.IssueCompleted(key) {
		t.Fatal("issue should be completed again")
	}
	if pages := session.Record.CompletedIssues[key].Pages; len(pages) != 3 {
		t.Fatalf("completed issue records %d pages, want 3", len(pages))
	}
}

func TestOCRInvokedForDownloadedAndSkippedPages(t *testing.T) {
	iss := issue("1900-01-01", 1)
	src := &fakeSource{
		issues: []source.Issue{iss},
		pages:  map[string][]source.Page{iss.Key(): pagesFor(iss, 2)},
	}
	ocr := &countingOCR{}
	orch, _, _ := newTestOrchestrator(t, src, ocr)

	if _, err := orch.Run(context.Background(), Target{CollectionID: "sn0001"}, Options{}); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	if len(ocr.calls) != 2 {
		t.Fatalf("expected 2 OCR calls, got %d", len(ocr.calls))
	}

	// The second run skips the completed issue entirely; batch mode covers
	// retroactive extraction, so no OCR calls happen here.
	ocr.calls = nil
	if _, err := orch.Run(context.Background(), Target{CollectionID: "sn0001"}, Options{}); err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if len(ocr.calls) != 0 {
		t.Fatalf("skipped issue should not trigger OCR, got %d calls", len(ocr.calls))
	}
}

func TestIssueDateLimitsRun(t *testing.T) {
	issues := []source.Issue{issue("1900-01-01", 1), issue("1900-01-02", 1), issue("1900-01-02", 2)}
	pages := make(map[string][]source.Page)
	for _, iss := range issues {
		pages[iss.Key()] = pagesFor(iss, 1)
	}
	src := &fakeSource{issues: issues, pages: pages}
	orch, session, _ := newTestOrchestrator(t, src, nil)

	summary, err := orch.Run(context.Background(), Target{CollectionID: "sn0001", IssueDate: "1900-01-02"}, Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	// Both editions of the requested date, nothing else.
	if summary.IssuesCompleted != 2 {
		t.Fatalf("expected 2 issues, got %+v", summary)
	}
	if session.Record.IssueCompleted("1900-01-01_ed-1") {
		t.Fatal("issue outside the date filter was fetched")
	}

	summary, err = orch.Run(context.Background(), Target{CollectionID: "sn0001", IssueDate: "1900-02-01"}, Options{})
	if err != nil {
		t.Fatalf("Run with absent date: %v", err)
	}
	if summary.IssuesCompleted != 0 || summary.IssuesSkipped != 0 {
		t.Fatalf("absent date should match nothing, got %+v", summary)
	}
}

func TestMaxIssuesCapsRun(t *testing.T) {
	issues := []source.Issue{issue("1900-01-01", 1), issue("1900-01-02", 1), issue("1900-01-03", 1)}
	pages := make(map[string][]source.Page)
	for _, iss := range issues {
		pages[iss.Key()] = pagesFor(iss, 1)
	}
	src := &fakeSource{issues: issues, pages: pages}
	orch, _, _ := newTestOrchestrator(t, src, nil)

	summary, err := orch.Run(context.Background(), Target{CollectionID: "sn0001", MaxIssues: 2}, Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.IssuesCompleted != 2 {
		t.Fatalf("expected 2 issues, got %+v", summary)
	}
}
