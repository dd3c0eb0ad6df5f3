package progress

import (
	"fmt"
	"sort"
	"time"
)

// PageOutcome records one successfully downloaded page. File is relative to
// the output directory so the record survives a directory move.
type PageOutcome struct {
	Index int    `json:"index"`
	File  string `json:"file"`
	Size  int64  `json:"size"`
}

// CompletedIssue is an issue whose every page succeeded.
type CompletedIssue struct {
	Date        string        `json:"date"`
	Edition     int           `json:"edition"`
	Pages       []PageOutcome `json:"pages"`
	CompletedAt time.Time     `json:"completed_at"`
}

// FailedIssue summarizes the last failure of an issue that could not be
// completed. Reason is human-readable, e.g. "3/4 pages".
type FailedIssue struct {
	Date     string    `json:"date"`
	Edition  int       `json:"edition"`
	Locator  string    `json:"locator,omitempty"`
	Reason   string    `json:"reason"`
	FailedAt time.Time `json:"failed_at"`
}

// FailedPage records a page-level failure independent of issue state, so a
// retry touches only the pages that actually failed.
type FailedPage struct {
	Date        string    `json:"date"`
	Edition     int       `json:"edition"`
	Index       int       `json:"index"`
	Error       string    `json:"error"`
	LastAttempt time.Time `json:"last_attempt_at"`
}

// Record is the durable unit of truth for one collection target. An issue
// key appears in at most one of CompletedIssues and FailedIssues; a page
// never counts as both succeeded and failed.
type Record struct {
	CollectionID    string                    `json:"collection_id"`
	Source          string                    `json:"source"`
	Title           string                    `json:"title,omitempty"`
	UpdatedAt       time.Time                 `json:"updated_at"`
	CompletedIssues map[string]CompletedIssue `json:"completed_issues"`
	FailedIssues    map[string]FailedIssue    `json:"failed_issues"`
	FailedPages     map[string]FailedPage     `json:"failed_pages"`

	// PartialPages holds in-progress per-page successes for issues that
	// are not yet complete, keyed by issue key. Carried across runs so a
	// resumed issue re-downloads only what is missing.
	PartialPages map[string][]PageOutcome `json:"partial_pages,omitempty"`
}

// NewRecord returns an empty record for the collection.
func NewRecord(collectionID, sourceName string) *Record {
	return &Record{
		CollectionID:    collectionID,
		Source:          sourceName,
		CompletedIssues: make(map[string]CompletedIssue),
		FailedIssues:    make(map[string]FailedIssue),
		FailedPages:     make(map[string]FailedPage),
		PartialPages:    make(map[string][]PageOutcome),
	}
}

func (r *Record) normalize() {
	if r.CompletedIssues == nil {
		r.CompletedIssues = make(map[string]CompletedIssue)
	}
	if r.FailedIssues == nil {
		r.FailedIssues = make(map[string]FailedIssue)
	}
	if r.FailedPages == nil {
		r.FailedPages = make(map[string]FailedPage)
	}
	if r.PartialPages == nil {
		r.PartialPages = make(map[string][]PageOutcome)
	}
}

// PageKey builds the page identity key used by FailedPages.
func PageKey(issueKey string, index int) string {
	return fmt.Sprintf("%s_page%02d", issueKey, index)
}

// IssueCompleted reports whether the issue is fully done.
func (r *Record) IssueCompleted(issueKey string) bool {
	_, ok := r.CompletedIssues[issueKey]
	return ok
}

// PageSucceeded reports whether the page already succeeded, either inside a
// completed issue or in the issue's partial progress.
func (r *Record) PageSucceeded(issueKey string, index int) bool {
	if issue, ok := r.CompletedIssues[issueKey]; ok {
		for _, page := range issue.Pages {
			if page.Index == index {
				return true
			}
		}
	}
	for _, page := range r.PartialPages[issueKey] {
		if page.Index == index {
			return true
		}
	}
	return false
}

// RecordPageSuccess appends the outcome to the issue's partial progress and
// clears any stale page-level failure. Re-recording an index overwrites the
// previous outcome.
func (r *Record) RecordPageSuccess(issueKey string, outcome PageOutcome) {
	pages := r.PartialPages[issueKey]
	replaced := false
	for i, page := range pages {
		if page.Index == outcome.Index {
			pages[i] = outcome
			replaced = true
			break
		}
	}
	if !replaced {
		pages = append(pages, outcome)
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i].Index < pages[j].Index })
	r.PartialPages[issueKey] = pages
	delete(r.FailedPages, PageKey(issueKey, outcome.Index))
}

// RecordPageFailure writes a page-level failure entry.
func (r *Record) RecordPageFailure(issueKey, date string, edition, index int, cause string, now time.Time) {
	r.FailedPages[PageKey(issueKey, index)] = FailedPage{
		Date:        date,
		Edition:     edition,
		Index:       index,
		Error:       cause,
		LastAttempt: now,
	}
}

// CompleteIssue moves the issue's partial pages into CompletedIssues and
// clears its failure entries. Call only when every page succeeded.
func (r *Record) CompleteIssue(issueKey, date string, edition int, now time.Time) {
	pages := r.PartialPages[issueKey]
	r.CompletedIssues[issueKey] = CompletedIssue{
		Date:        date,
		Edition:     edition,
		Pages:       pages,
		CompletedAt: now,
	}
	delete(r.PartialPages, issueKey)
	delete(r.FailedIssues, issueKey)
	for _, page := range pages {
		delete(r.FailedPages, PageKey(issueKey, page.Index))
	}
}

// FailIssue records an issue-level failure summary. Partial page progress
// is retained for the next run.
func (r *Record) FailIssue(issueKey, date string, edition int, locator, reason string, now time.Time) {
	delete(r.CompletedIssues, issueKey)
	r.FailedIssues[issueKey] = FailedIssue{
		Date:     date,
		Edition:  edition,
		Locator:  locator,
		Reason:   reason,
		FailedAt: now,
	}
}

// DemoteIssue drops a completed record for the issue while keeping the
// still-valid page outcomes as partial progress, so only the broken pages
// re-download. Used when on-disk artifacts turn out missing or corrupt.
func (r *Record) DemoteIssue(issueKey string, keep []PageOutcome) {
	delete(r.CompletedIssues, issueKey)
	if len(keep) > 0 {
		sort.Slice(keep, func(i, j int) bool { return keep[i].Index < keep[j].Index })
		r.PartialPages[issueKey] = keep
	}
}

// RetryTargets lists issues that deserve another attempt: everything in
// FailedIssues plus issues with partial progress or failed pages that never
// reached an issue-level verdict. Keys are returned sorted for stable
// processing order.
func (r *Record) RetryTargets() []string {
	keys := make(map[string]struct{})
	for key := range r.FailedIssues {
		keys[key] = struct{}{}
	}
	for key := range r.PartialPages {
		if !r.IssueCompleted(key) {
			keys[key] = struct{}{}
		}
	}
	for _, page := range r.FailedPages {
		key := fmt.Sprintf("%s_ed-%d", page.Date, page.Edition)
		if !r.IssueCompleted(key) {
			keys[key] = struct{}{}
		}
	}
	sorted := make([]string, 0, len(keys))
	for key := range keys {
		sorted = append(sorted, key)
	}
	sort.Strings(sorted)
	return sorted
}
