package downloader

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/OtherLeadingBrand/PaperRouter/internal/fileutil"
	"github.com/OtherLeadingBrand/PaperRouter/internal/progress"
	"github.com/OtherLeadingBrand/PaperRouter/internal/ratelimit"
	"github.com/OtherLeadingBrand/PaperRouter/internal/report"
	"github.com/OtherLeadingBrand/PaperRouter/internal/source"
)

// Target identifies what one run fetches. Immutable for the run.
type Target struct {
	CollectionID string
	Years        source.YearSet
	IssueDate    string // "" = all issues; else only issues on this date
	MaxIssues    int    // 0 = no cap
}

// Options tunes a single run.
type Options struct {
	// RetryFailed re-attempts issues recorded in the failed set. Partially
	// complete issues are always resumed regardless of this flag.
	RetryFailed bool
}

// OCRRunner extracts text for a page after its artifact lands on disk.
// A nil runner disables extraction.
type OCRRunner interface {
	ProcessPage(ctx context.Context, page source.Page, artifactPath string) error
}

// RunSummary reports what one run accomplished.
type RunSummary struct {
	RunID           string
	Collection      string
	Title           string
	IssuesCompleted int
	IssuesFailed    int
	IssuesSkipped   int
	IssuesRetried   int
	PagesDownloaded int
	PagesFailed     int
	BytesDownloaded int64
	Elapsed         time.Duration
}

// Orchestrator drives one resumable download run: it consumes a Source and
// a progress session, decides what work remains, executes it sequentially
// under the rate limiter, and persists after every issue.
type Orchestrator struct {
	src       source.Source
	session   *progress.Session
	limiter   *ratelimit.Limiter
	logger    *slog.Logger
	emitter   *report.Emitter
	outputDir string
	ocr       OCRRunner
	now       func() time.Time
}

// New constructs an orchestrator. The emitter and OCR runner may be nil.
func New(src source.Source, session *progress.Session, limiter *ratelimit.Limiter, outputDir string, logger *slog.Logger, emitter *report.Emitter, ocrRunner OCRRunner) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		src:       src,
		session:   session,
		limiter:   limiter,
		logger:    logger,
		emitter:   emitter,
		outputDir: outputDir,
		ocr:       ocrRunner,
		now:       time.Now,
	}
}

// Run executes the state machine for the target. Page- and issue-level
// failures are recorded and the loop continues; only discovery failures
// and progress-store write failures abort the run.
func (o *Orchestrator) Run(ctx context.Context, target Target, opts Options) (*RunSummary, error) {
	start := o.now()
	record := o.session.Record
	summary := &RunSummary{
		RunID:      o.emitter.RunID(),
		Collection: target.CollectionID,
		Title:      record.Title,
	}

	o.checkDiskSpace()

	issues, err := o.src.FetchIssues(ctx, target.CollectionID, target.Years)
	if err != nil {
		return summary, fmt.Errorf("%w: %w", ErrFatalDiscovery, err)
	}
	if target.IssueDate != "" {
		kept := issues[:0]
		for _, issue := range issues {
			if issue.Date == target.IssueDate {
				kept = append(kept, issue)
			}
		}
		issues = kept
		if len(issues) == 0 {
			o.logger.Warn("no issues published on the requested date", "date", target.IssueDate)
		}
	}
	if target.MaxIssues > 0 && len(issues) > target.MaxIssues {
		issues = issues[:target.MaxIssues]
	}
	if title := firstTitle(issues); title != "" && record.Title == "" {
		record.Title = title
		summary.Title = title
	}

	o.emitter.Emit(report.Event{Type: report.EventRunStarted, Collection: target.CollectionID, Issues: len(issues)})
	o.logger.Info("run started",
		"collection", target.CollectionID,
		"issues", len(issues),
		"speed", o.limiter.Profile().Name,
		"retry_failed", opts.RetryFailed)

	if opts.RetryFailed {
		targets := record.RetryTargets()
		summary.IssuesRetried = len(targets)
		if len(targets) == 0 {
			o.logger.Info("no failed issues recorded, nothing to retry")
		} else {
			o.logger.Info("retrying recorded failures", "issues", len(targets), "worklist", targets)
		}
	}

	for i, issue := range issues {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		key := issue.Key()
		if o.skipIssue(key, opts) {
			summary.IssuesSkipped++
			o.logger.Debug("skipping issue", "issue", key)
			continue
		}

		o.logger.Info("processing issue", "issue", key, "position", fmt.Sprintf("%d/%d", i+1, len(issues)))
		o.emitter.Emit(report.Event{Type: report.EventIssueStarted, Issue: key})

		if err := o.processIssue(ctx, issue, summary); err != nil {
			return summary, err
		}

		if err := o.session.Save(); err != nil {
			return summary, fmt.Errorf("%w: %w", ErrProgressStore, err)
		}
	}

	summary.Elapsed = o.now().Sub(start)
	record.UpdatedAt = o.now().UTC()
	if err := o.session.Save(); err != nil {
		return summary, fmt.Errorf("%w: %w", ErrProgressStore, err)
	}

	o.emitter.Emit(report.Event{
		Type:       report.EventRunCompleted,
		Collection: target.CollectionID,
		Issues:     summary.IssuesCompleted,
		Pages:      summary.PagesDownloaded,
		Failed:     summary.PagesFailed,
		Bytes:      summary.BytesDownloaded,
	})
	o.logger.Info("run finished",
		"issues_completed", summary.IssuesCompleted,
		"issues_failed", summary.IssuesFailed,
		"issues_skipped", summary.IssuesSkipped,
		"pages_downloaded", summary.PagesDownloaded,
		"pages_failed", summary.PagesFailed,
		"bytes", humanize.Bytes(uint64(summary.BytesDownloaded)),
		"elapsed", summary.Elapsed.Round(time.Second))
	return summary, nil
}

// skipIssue decides whether the issue needs no work this run. Completed
// issues are trusted only after their artifacts re-validate on disk.
func (o *Orchestrator) skipIssue(key string, opts Options) bool {
	record := o.session.Record
	if record.IssueCompleted(key) {
		valid, ok := o.verifyCompleted(key)
		if ok {
			return true
		}
		// Artifacts vanished or went corrupt since the record was
		// written; keep the pages that still validate as partial
		// progress and re-download only the rest.
		record.DemoteIssue(key, valid)
		return false
	}
	if _, failed := record.FailedIssues[key]; failed && !opts.RetryFailed {
		return true
	}
	return false
}

// verifyCompleted checks every recorded page of a completed issue against
// the filesystem. It returns the outcomes that still validate and whether
// the issue survived intact; corrupt artifacts are deleted so they
// re-download.
func (o *Orchestrator) verifyCompleted(key string) ([]progress.PageOutcome, bool) {
	issue, ok := o.session.Record.CompletedIssues[key]
	if !ok {
		return nil, false
	}
	valid := make([]progress.PageOutcome, 0, len(issue.Pages))
	for _, page := range issue.Pages {
		path := filepath.Join(o.outputDir, page.File)
		if !fileutil.ValidPDF(path, 0) {
			o.logger.Warn("recorded artifact missing or corrupt, scheduling re-download",
				"issue", key, "file", page.File)
			_ = os.Remove(path)
			continue
		}
		valid = append(valid, page)
	}
	return valid, len(valid) == len(issue.Pages)
}

func (o *Orchestrator) processIssue(ctx context.Context, issue source.Issue, summary *RunSummary) error {
	record := o.session.Record
	key := issue.Key()

	if err := o.limiter.WaitScan(ctx); err != nil {
		return err
	}
	pages, err := o.src.ResolvePages(ctx, issue)
	if err != nil {
		// A failure resolving one issue's pages is local: record it and
		// move on to the next issue.
		record.FailIssue(key, issue.Date, issue.Edition, issue.Locator, fmt.Sprintf("page resolution failed: %v", err), o.now().UTC())
		summary.IssuesFailed++
		o.emitter.Emit(report.Event{Type: report.EventIssueFailed, Issue: key, Error: err.Error()})
		o.logger.Error("page resolution failed", "issue", key, "error", err)
		return nil
	}
	if len(pages) == 0 {
		record.FailIssue(key, issue.Date, issue.Edition, issue.Locator, "no pages found", o.now().UTC())
		summary.IssuesFailed++
		o.emitter.Emit(report.Event{Type: report.EventIssueFailed, Issue: key, Error: "no pages found"})
		return nil
	}
	source.SortPages(pages)

	succeeded := 0
	for _, page := range pages {
		if err := ctx.Err(); err != nil {
			return err
		}
		if record.PageSucceeded(key, page.Index) {
			succeeded++
			o.runOCR(ctx, page)
			continue
		}

		if err := o.limiter.Wait(ctx); err != nil {
			return err
		}

		relPath := ArtifactRelPath(issue.CollectionID, issue.Date, issue.Edition, page.Index)
		destPath := filepath.Join(o.outputDir, relPath)
		result, err := o.src.DownloadArtifact(ctx, page, destPath)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			record.RecordPageFailure(key, issue.Date, issue.Edition, page.Index, err.Error(), o.now().UTC())
			summary.PagesFailed++
			o.emitter.Emit(report.Event{Type: report.EventPageFailed, Issue: key, Page: page.Index, Error: err.Error()})
			o.logger.Error("page download failed", "issue", key, "page", page.Index, "error", err)
			continue
		}

		record.RecordPageSuccess(key, progress.PageOutcome{
			Index: page.Index,
			File:  relPath,
			Size:  result.SizeBytes,
		})
		summary.PagesDownloaded++
		summary.BytesDownloaded += result.SizeBytes
		succeeded++
		o.emitter.Emit(report.Event{Type: report.EventPageDownloaded, Issue: key, Page: page.Index, File: relPath, Bytes: result.SizeBytes})
		o.logger.Debug("page downloaded", "issue", key, "page", page.Index, "bytes", result.SizeBytes)

		o.runOCR(ctx, page)
	}

	now := o.now().UTC()
	if succeeded == len(pages) {
		record.CompleteIssue(key, issue.Date, issue.Edition, now)
		summary.IssuesCompleted++
		o.emitter.Emit(report.Event{Type: report.EventIssueCompleted, Issue: key, Pages: len(pages)})
		o.logger.Info("issue completed", "issue", key, "pages", len(pages))
	} else {
		reason := fmt.Sprintf("%d/%d pages", succeeded, len(pages))
		record.FailIssue(key, issue.Date, issue.Edition, issue.Locator, reason, now)
		summary.IssuesFailed++
		o.emitter.Emit(report.Event{Type: report.EventIssueFailed, Issue: key, Error: reason})
		o.logger.Warn("issue incomplete", "issue", key, "progress", reason)
	}
	return nil
}

// runOCR feeds a downloaded page to the OCR runner. Extraction failures
// never fail the page; they are logged and reported only.
func (o *Orchestrator) runOCR(ctx context.Context, page source.Page) {
	if o.ocr == nil {
		return
	}
	relPath := ArtifactRelPath(page.CollectionID, page.IssueDate, page.Edition, page.Index)
	artifactPath := filepath.Join(o.outputDir, relPath)
	if err := o.ocr.ProcessPage(ctx, page, artifactPath); err != nil {
		o.emitter.Emit(report.Event{Type: report.EventOCRPage, Issue: fmt.Sprintf("%s_ed-%d", page.IssueDate, page.Edition), Page: page.Index, Error: err.Error()})
		o.logger.Warn("ocr failed", "page", page.Key(), "error", err)
	}
}

func (o *Orchestrator) checkDiskSpace() {
	free, err := fileutil.FreeSpace(o.outputDir)
	if err != nil || free == 0 {
		return
	}
	o.logger.Info("available disk space", "free", humanize.Bytes(free))
	if free < 1<<30 {
		o.logger.Warn("less than 1 GiB of free disk space remaining")
	}
}

func firstTitle(issues []source.Issue) string {
	for _, issue := range issues {
		if issue.Title != "" {
			return issue.Title
		}
	}
	return ""
}
