package loc

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/OtherLeadingBrand/PaperRouter/internal/source"
	"github.com/OtherLeadingBrand/PaperRouter/internal/textutil"
)

// SearchTitles implements source.Source.
func (l *LOC) SearchTitles(ctx context.Context, query string) ([]source.TitleResult, error) {
	apiURL := fmt.Sprintf("%s?q=%s&c=50&fo=json", collectionAPIURL, url.QueryEscape(query))

	var payload collectionPage
	if err := l.client.getJSON(ctx, apiURL, &payload); err != nil {
		return nil, source.Wrap(source.ErrTransient, "search titles", query, err)
	}

	seen := make(map[string]struct{})
	results := make([]source.TitleResult, 0, len(payload.Results))
	for _, item := range payload.Results {
		lccn := item.LCCNs.first()
		if lccn == "" {
			continue
		}
		if _, dup := seen[lccn]; dup {
			continue
		}
		seen[lccn] = struct{}{}

		results = append(results, source.TitleResult{
			CollectionID: lccn,
			Title:        textutil.CleanTitle(item.Title),
			Place:        textutil.JoinPlace(append(item.LocationCity, item.LocationState...)...),
			Dates:        item.Date,
			URL:          item.URL,
		})
	}
	return results, nil
}

// FetchDetails implements source.Source. The collection listing is scanned
// page by page to discover the publication's year range; the scan respects
// the limiter's lighter spacing.
func (l *LOC) FetchDetails(ctx context.Context, collectionID string) (*source.Details, error) {
	apiURL := l.collectionQuery(collectionID, nil)

	var details *source.Details
	for apiURL != "" {
		var payload collectionPage
		if err := l.client.getJSON(ctx, apiURL, &payload); err != nil {
			return nil, source.Wrap(source.ErrTransient, "fetch details", collectionID, err)
		}
		if details == nil && len(payload.Results) == 0 {
			return nil, nil
		}

		for _, item := range payload.Results {
			if details == nil {
				details = &source.Details{
					CollectionID: collectionID,
					Title:        textutil.CleanTitle(item.Title),
					Place:        textutil.JoinPlace(append(item.LocationCity, item.LocationState...)...),
					URL:          item.URL,
				}
			}
			if len(item.Date) < 4 {
				continue
			}
			year, err := strconv.Atoi(item.Date[:4])
			if err != nil {
				continue
			}
			if details.StartYear == 0 || year < details.StartYear {
				details.StartYear = year
			}
			if year > details.EndYear {
				details.EndYear = year
			}
		}

		apiURL = payload.Pagination.Next
		if apiURL != "" {
			if err := l.waitScan(ctx); err != nil {
				return nil, err
			}
		}
	}

	if details != nil && details.URL == "" {
		details.URL = fmt.Sprintf("%s/item/%s/", baseURL, collectionID)
	}
	return details, nil
}
