package loc

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/OtherLeadingBrand/PaperRouter/internal/source"
	"github.com/OtherLeadingBrand/PaperRouter/internal/textutil"
)

// FetchIssues implements source.Source. The year filter is pushed into the
// collection query via the dates= facet so large collections do not force a
// full pagination walk; the filter is re-applied locally because the facet
// is range-based while the set may have holes.
func (l *LOC) FetchIssues(ctx context.Context, collectionID string, years source.YearSet) ([]source.Issue, error) {
	apiURL := l.collectionQuery(collectionID, years)
	l.logger.Info("fetching issue list", "collection", collectionID, "source", l.Name())

	var issues []source.Issue
	pageNum := 0
	for apiURL != "" {
		pageNum++
		l.logger.Debug("fetching issue list page", "page", pageNum)

		var payload collectionPage
		if err := l.client.getJSON(ctx, apiURL, &payload); err != nil {
			return nil, source.Wrap(source.ErrTransient, "list issues", fmt.Sprintf("page %d", pageNum), err)
		}

		for _, item := range payload.Results {
			// Title-level records carry a bare year instead of a full
			// date; they are not issues.
			if len(item.Date) < 8 {
				continue
			}
			year, err := strconv.Atoi(item.Date[:4])
			if err != nil {
				continue
			}
			if !years.Contains(year) {
				continue
			}
			locator := item.locator()
			if locator == "" {
				continue
			}
			issues = append(issues, source.Issue{
				CollectionID: collectionID,
				Date:         item.Date,
				Edition:      editionFromLocator(locator),
				Year:         year,
				Locator:      locator,
				Title:        textutil.CleanTitle(item.Title),
			})
		}

		apiURL = payload.Pagination.Next
		if apiURL != "" {
			if err := l.waitScan(ctx); err != nil {
				return nil, err
			}
		}
	}

	source.SortIssues(issues)
	l.logger.Info("issue list resolved", "collection", collectionID, "issues", len(issues))
	return issues, nil
}

func (l *LOC) collectionQuery(collectionID string, years source.YearSet) string {
	query := url.Values{}
	query.Set("fa", "number_lccn:"+collectionID)
	query.Set("c", strconv.Itoa(apiPageSize))
	query.Set("fo", "json")
	if min, max, ok := years.Bounds(); ok {
		if min == max {
			query.Set("dates", strconv.Itoa(min))
		} else {
			query.Set("dates", fmt.Sprintf("%d/%d", min, max))
		}
	}
	return collectionAPIURL + "?" + query.Encode()
}
