package source

import (
	"context"
	"fmt"
	"sort"
)

// Issue is one dated edition of a publication.
type Issue struct {
	CollectionID string
	Date         string // YYYY-MM-DD
	Edition      int    // positive, 1 when the archive lists no edition
	Year         int
	Locator      string // source-specific address, opaque to callers
	Title        string
}

// Key returns the identity key for the issue, shared with the progress
// record and artifact file names.
func (i Issue) Key() string {
	return fmt.Sprintf("%s_ed-%d", i.Date, i.Edition)
}

// Page is one scanned unit within an issue.
type Page struct {
	CollectionID    string
	IssueDate       string
	Edition         int
	Index           int // 1-based, contiguous
	Locator         string
	ArtifactLocator string // binary download address, resolved lazily
	TextLocator     string // source-provided text address, may be empty
	ExpectedSize    int64  // artifact size when the archive reports one
}

// Key returns the identity key for the page within its collection.
func (p Page) Key() string {
	return fmt.Sprintf("%s_ed-%d_page%02d", p.IssueDate, p.Edition, p.Index)
}

// DownloadResult reports a completed artifact download.
type DownloadResult struct {
	Path      string
	SizeBytes int64
}

// TextResult reports a source-provided text fetch. Supported is false when
// the archive has no pre-existing text for the page; that is not an error.
type TextResult struct {
	Supported bool
	TextPath  string
	WordCount int
}

// TitleResult is one hit from a title search.
type TitleResult struct {
	CollectionID string
	Title        string
	Place        string
	Dates        string
	URL          string
}

// Details describes a collection looked up by identifier.
type Details struct {
	CollectionID string
	Title        string
	Place        string
	StartYear    int
	EndYear      int
	URL          string
}

// YearSet is an optional filter over issue years. A nil set admits all years.
type YearSet map[int]struct{}

// Contains reports whether year passes the filter.
func (s YearSet) Contains(year int) bool {
	if s == nil {
		return true
	}
	_, ok := s[year]
	return ok
}

// Bounds returns the smallest and largest year in the set.
func (s YearSet) Bounds() (min, max int, ok bool) {
	for year := range s {
		if !ok || year < min {
			min = year
		}
		if !ok || year > max {
			max = year
		}
		ok = true
	}
	return min, max, ok
}

// Years returns the filter's members in ascending order.
func (s YearSet) Years() []int {
	years := make([]int, 0, len(s))
	for year := range s {
		years = append(years, year)
	}
	sort.Ints(years)
	return years
}

// Source is the contract between the download orchestrator and one archive.
// Implementations own all archive-specific API shapes; the orchestrator
// never sees a URL it did not get from a Source.
type Source interface {
	// Name is the registry identifier, e.g. "loc".
	Name() string
	// DisplayName is the human-readable archive name.
	DisplayName() string

	// SearchTitles finds publications matching a free-text query.
	SearchTitles(ctx context.Context, query string) ([]TitleResult, error)
	// FetchDetails looks up a collection by identifier. A nil result with
	// a nil error means the collection does not exist.
	FetchDetails(ctx context.Context, collectionID string) (*Details, error)
	// FetchIssues lists every issue for a collection sorted ascending by
	// (date, edition). Year filtering is pushed into the archive query
	// where the API allows it.
	FetchIssues(ctx context.Context, collectionID string, years YearSet) ([]Issue, error)
	// ResolvePages resolves the pages of an issue with contiguous 1-based
	// indices. Safe to call repeatedly for the same issue.
	ResolvePages(ctx context.Context, issue Issue) ([]Page, error)
	// DownloadArtifact streams the page artifact to destPath.
	DownloadArtifact(ctx context.Context, page Page, destPath string) (DownloadResult, error)
	// FetchText retrieves archive-provided text for the page into outputDir.
	FetchText(ctx context.Context, page Page, outputDir string) (TextResult, error)
	// RebuildPageLocator reconstructs a page locator from persisted identity
	// fields so batch OCR never re-touches the network for page discovery.
	RebuildPageLocator(collectionID, date string, edition, index int) string
}

// SortIssues orders issues ascending by (date, edition) in place.
func SortIssues(issues []Issue) {
	sort.SliceStable(issues, func(i, j int) bool {
		if issues[i].Date != issues[j].Date {
			return issues[i].Date < issues[j].Date
		}
		return issues[i].Edition < issues[j].Edition
	})
}

// SortPages orders pages ascending by index in place.
func SortPages(pages []Page) {
	sort.SliceStable(pages, func(i, j int) bool {
		return pages[i].Index < pages[j].Index
	})
}
