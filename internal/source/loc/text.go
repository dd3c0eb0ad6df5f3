package loc

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	"github.com/OtherLeadingBrand/PaperRouter/internal/source"
)

// FetchText implements source.Source. It pulls the archive's
// word-coordinates full text for the page, cleans it up, and writes a text
// artifact into outputDir. An absent fulltext service is reported as
// unsupported, not as an error.
func (l *LOC) FetchText(ctx context.Context, page source.Page, outputDir string) (source.TextResult, error) {
	if err := l.resolvePageFiles(ctx, &page); err != nil {
		return source.TextResult{}, err
	}
	if page.TextLocator == "" {
		l.logger.Debug("no fulltext service for page", "page", page.Key())
		return source.TextResult{Supported: false}, nil
	}

	textURL := absoluteURL(page.TextLocator)
	if strings.Contains(textURL, "word-coordinates-service") && !strings.Contains(textURL, "full_text=1") {
		sep := "?"
		if strings.Contains(textURL, "?") {
			sep = "&"
		}
		textURL += sep + "full_text=1"
	}

	if err := l.waitScan(ctx); err != nil {
		return source.TextResult{}, err
	}
	// The service answers with a single segment keyed by its internal ID.
	var payload map[string]struct {
		FullText string `json:"full_text"`
	}
	if err := l.client.getJSON(ctx, textURL, &payload); err != nil {
		return source.TextResult{}, source.Wrap(nil, "fetch text", page.Key(), err)
	}

	var raw string
	for _, segment := range payload {
		raw = segment.FullText
		break
	}
	if strings.TrimSpace(raw) == "" {
		return source.TextResult{Supported: false}, nil
	}

	processed := postprocessText(raw)

	filename := fmt.Sprintf("%s_ed-%d_page%02d_loc.txt", page.IssueDate, page.Edition, page.Index)
	destPath := filepath.Join(outputDir, filename)
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return source.TextResult{}, fmt.Errorf("create text directory: %w", err)
	}

	header := fmt.Sprintf("# OCR Text — %s — %s\n# Page: %d\n# OCR Method: loc-api\n# ---\n\n",
		page.CollectionID, page.IssueDate, page.Index)
	if err := os.WriteFile(destPath, []byte(header+processed), 0o644); err != nil {
		return source.TextResult{}, fmt.Errorf("write text artifact: %w", err)
	}

	return source.TextResult{
		Supported: true,
		TextPath:  destPath,
		WordCount: len(strings.Fields(processed)),
	}, nil
}

// artifactChars are lone column-rule characters that bleed from the ALTO
// layout into the text stream.
const artifactChars = `|iIlj[](){}<>\/`

var hyphenBreak = regexp.MustCompile(`(\w+)-\n\s*([a-z]\w*)`)

// postprocessText cleans the raw word-coordinates full text: drops
// single-character column artifacts, spaces out all-caps headings from the
// body text above them, and joins words hyphenated across line breaks.
func postprocessText(text string) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	lastWasHeading := false

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if len(trimmed) == 1 && strings.ContainsAny(trimmed, artifactChars) {
			continue
		}

		heading := isHeading(trimmed)
		if heading && !lastWasHeading && len(out) > 0 {
			out = append(out, "")
		}
		out = append(out, line)
		lastWasHeading = heading
	}

	return hyphenBreak.ReplaceAllString(strings.Join(out, "\n"), "$1$2")
}

func isHeading(line string) bool {
	if len(line) <= 3 {
		return false
	}
	hasLetter := false
	for _, r := range line {
		if unicode.IsDigit(r) {
			return false
		}
		if unicode.IsLetter(r) {
			hasLetter = true
			if !unicode.IsUpper(r) {
				return false
			}
		}
	}
	return hasLetter
}
