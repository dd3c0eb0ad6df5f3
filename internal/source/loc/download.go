package loc

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/OtherLeadingBrand/PaperRouter/internal/fileutil"
	"github.com/OtherLeadingBrand/PaperRouter/internal/source"
)

// DownloadArtifact implements source.Source. The body streams to a
// temporary file that is renamed into place only after validation, so an
// interrupted transfer never leaves a plausible-looking artifact behind.
func (l *LOC) DownloadArtifact(ctx context.Context, page source.Page, destPath string) (source.DownloadResult, error) {
	if err := l.resolvePageFiles(ctx, &page); err != nil {
		return source.DownloadResult{}, err
	}

	if fileutil.ValidPDF(destPath, page.ExpectedSize) {
		info, err := os.Stat(destPath)
		if err != nil {
			return source.DownloadResult{}, err
		}
		l.logger.Debug("artifact already complete", "page", page.Key())
		return source.DownloadResult{Path: destPath, SizeBytes: info.Size()}, nil
	}
	// A stale partial or invalid artifact gets replaced.
	_ = os.Remove(destPath)

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return source.DownloadResult{}, fmt.Errorf("create artifact directory: %w", err)
	}

	resp, err := l.client.get(ctx, absoluteURL(page.ArtifactLocator))
	if err != nil {
		return source.DownloadResult{}, err
	}
	defer resp.Body.Close()

	if strings.Contains(resp.Header.Get("Content-Type"), "text/html") {
		return source.DownloadResult{}, source.Wrap(source.ErrPermanent, "download artifact", page.Key()+": archive answered with HTML instead of a PDF", nil)
	}

	tmpPath := destPath + ".tmp"
	written, err := streamTo(tmpPath, resp.Body)
	if err != nil {
		_ = os.Remove(tmpPath)
		if ctx.Err() != nil {
			return source.DownloadResult{}, ctx.Err()
		}
		return source.DownloadResult{}, source.Wrap(source.ErrTransient, "download artifact", page.Key(), err)
	}
	if written == 0 {
		_ = os.Remove(tmpPath)
		return source.DownloadResult{}, source.Wrap(source.ErrTransient, "download artifact", page.Key()+": empty body", nil)
	}
	if page.ExpectedSize > 0 && written != page.ExpectedSize {
		l.logger.Warn("artifact size mismatch",
			"page", page.Key(), "expected", page.ExpectedSize, "got", written)
	}
	if !fileutil.ValidPDF(tmpPath, 0) {
		_ = os.Remove(tmpPath)
		return source.DownloadResult{}, source.Wrap(source.ErrPermanent, "download artifact", page.Key()+": body is not a valid PDF", nil)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		_ = os.Remove(tmpPath)
		return source.DownloadResult{}, fmt.Errorf("finalize artifact: %w", err)
	}
	return source.DownloadResult{Path: destPath, SizeBytes: written}, nil
}

func streamTo(path string, body io.Reader) (int64, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, err
	}
	written, err := io.Copy(file, body)
	if err != nil {
		_ = file.Close()
		return written, err
	}
	return written, file.Close()
}
