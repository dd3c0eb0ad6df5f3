package loc

import (
	"context"
	"strings"

	"github.com/OtherLeadingBrand/PaperRouter/internal/source"
)

// ResolvePages implements source.Source. The issue's fo=json body lists one
// resource per page in reading order; indices are assigned 1..N from that
// order so they stay contiguous even when the archive omits sequence
// numbers. Artifact and text locators are resolved lazily per page.
func (l *LOC) ResolvePages(ctx context.Context, issue source.Issue) ([]source.Page, error) {
	l.logger.Debug("resolving pages", "issue", issue.Key())

	var payload issuePayload
	if err := l.client.getJSON(ctx, jsonURL(issue.Locator), &payload); err != nil {
		return nil, source.Wrap(nil, "resolve pages", issue.Key(), err)
	}

	pages := make([]source.Page, 0, len(payload.Resources))
	for _, res := range payload.Resources {
		locator := res.locator()
		if locator == "" {
			continue
		}
		// The /resource/ endpoint carries the fulltext metadata the
		// /item/ endpoint omits.
		locator = strings.Replace(locator, "/item/", "/resource/", 1)
		pages = append(pages, source.Page{
			CollectionID: issue.CollectionID,
			IssueDate:    issue.Date,
			Edition:      issue.Edition,
			Index:        len(pages) + 1,
			Locator:      locator,
		})
	}
	return pages, nil
}

// resolvePageFiles fills the page's artifact and text locators from its
// fo=json body. Newer records carry a resource block with direct pdf and
// fulltext_file links; older ones list files with mimetypes.
func (l *LOC) resolvePageFiles(ctx context.Context, page *source.Page) error {
	if page.ArtifactLocator != "" && page.TextLocator != "" {
		return nil
	}

	if err := l.waitScan(ctx); err != nil {
		return err
	}
	var payload pagePayload
	if err := l.client.getJSON(ctx, jsonURL(page.Locator), &payload); err != nil {
		return source.Wrap(nil, "resolve page files", page.Key(), err)
	}

	if page.ArtifactLocator == "" {
		page.ArtifactLocator = payload.Resource.PDF
	}
	if page.ArtifactLocator == "" {
		for _, file := range payload.Files {
			if file.Mimetype == "application/pdf" && file.URL != "" {
				page.ArtifactLocator = file.URL
				page.ExpectedSize = file.Size
				break
			}
		}
	}
	if page.ArtifactLocator == "" {
		// Last resort: resource IDs usually answer with a PDF when the
		// extension is appended.
		page.ArtifactLocator = strings.TrimSuffix(page.Locator, "/") + ".pdf"
	}

	if page.TextLocator == "" {
		page.TextLocator = payload.Resource.FulltextFile
	}
	if page.TextLocator == "" {
		page.TextLocator = payload.FulltextService
	}
	return nil
}
