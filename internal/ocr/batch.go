package ocr

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/OtherLeadingBrand/PaperRouter/internal/progress"
	"github.com/OtherLeadingBrand/PaperRouter/internal/source"
)

// BatchSummary reports one batch extraction pass.
type BatchSummary struct {
	Issues      int
	Pages       int
	FailedPages int
}

// RunBatch extracts text for every already-downloaded page recorded for a
// collection, without touching the network for page discovery: page
// locators are rebuilt from persisted identity fields. issueDate, when
// non-empty, limits the pass to issues of that date.
func (r *Runner) RunBatch(ctx context.Context, record *progress.Record, issueDate string) (BatchSummary, error) {
	var summary BatchSummary
	if r.mode == ModeNone {
		return summary, nil
	}

	type batchIssue struct {
		key     string
		date    string
		edition int
		pages   []progress.PageOutcome
	}

	issues := make([]batchIssue, 0, len(record.CompletedIssues)+len(record.PartialPages))
	for key, issue := range record.CompletedIssues {
		issues = append(issues, batchIssue{key: key, date: issue.Date, edition: issue.Edition, pages: issue.Pages})
	}
	for key, pages := range record.PartialPages {
		if record.IssueCompleted(key) {
			continue
		}
		date, edition, err := parseIssueKey(key)
		if err != nil {
			r.logger.Warn("skipping malformed progress entry", "issue", key, "error", err)
			continue
		}
		issues = append(issues, batchIssue{key: key, date: date, edition: edition, pages: pages})
	}
	sort.Slice(issues, func(i, j int) bool { return issues[i].key < issues[j].key })

	for _, issue := range issues {
		if issueDate != "" && issue.date != issueDate {
			continue
		}
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		summary.Issues++
		r.logger.Info("extracting issue text", "issue", issue.key, "pages", len(issue.pages))

		for _, outcome := range issue.pages {
			page := source.Page{
				CollectionID: record.CollectionID,
				IssueDate:    issue.date,
				Edition:      issue.edition,
				Index:        outcome.Index,
				Locator:      r.src.RebuildPageLocator(record.CollectionID, issue.date, issue.edition, outcome.Index),
			}
			artifactPath := filepath.Join(r.outputDir, filepath.FromSlash(outcome.File))
			if err := r.ProcessPage(ctx, page, artifactPath); err != nil {
				if isContextErr(err) {
					return summary, err
				}
				summary.FailedPages++
				continue
			}
			summary.Pages++
		}
	}
	return summary, nil
}

// parseIssueKey splits "YYYY-MM-DD_ed-N" back into its parts.
func parseIssueKey(key string) (date string, edition int, err error) {
	date, tail, ok := strings.Cut(key, "_ed-")
	if !ok {
		return "", 0, fmt.Errorf("issue key %q missing edition", key)
	}
	edition, err = strconv.Atoi(tail)
	if err != nil {
		return "", 0, fmt.Errorf("issue key %q edition: %w", key, err)
	}
	return date, edition, nil
}
