package downloader

import (
	"fmt"
	"path/filepath"
)

// ArtifactRelPath builds the output-relative path for a page artifact:
// a per-year subdirectory holding
// {collectionID}_{date}_ed-{edition}_pageNN.pdf. The two-digit 1-based
// page number keeps lexical order equal to reading order for consumers
// listing the directory.
func ArtifactRelPath(collectionID, date string, edition, index int) string {
	year := "unknown"
	if len(date) >= 4 {
		year = date[:4]
	}
	name := fmt.Sprintf("%s_%s_ed-%d_page%02d.pdf", collectionID, date, edition, index)
	return filepath.Join(year, name)
}

// TextDir returns the output-relative directory for a page's text
// artifacts, which sit next to the page PDFs in the year directory.
func TextDir(date string) string {
	if len(date) >= 4 {
		return date[:4]
	}
	return "unknown"
}
