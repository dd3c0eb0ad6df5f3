package ocr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/OtherLeadingBrand/PaperRouter/internal/downloader"
	"github.com/OtherLeadingBrand/PaperRouter/internal/ocr/surya"
	"github.com/OtherLeadingBrand/PaperRouter/internal/report"
	"github.com/OtherLeadingBrand/PaperRouter/internal/source"
)

// Mode selects which text tiers run for each page.
type Mode string

const (
	// ModeNone skips text extraction entirely.
	ModeNone Mode = "none"
	// ModeFast fetches the archive's pre-existing text.
	ModeFast Mode = "fast"
	// ModeSlow runs local model inference on the page artifact.
	ModeSlow Mode = "slow"
	// ModeBoth runs the fast tier and then the slow tier.
	ModeBoth Mode = "both"
)

// ParseMode validates a mode string from config or flags.
func ParseMode(value string) (Mode, error) {
	switch Mode(value) {
	case ModeNone, ModeFast, ModeSlow, ModeBoth:
		return Mode(value), nil
	default:
		return "", fmt.Errorf("unknown ocr mode %q (want none, fast, slow, or both)", value)
	}
}

func (m Mode) fast() bool { return m == ModeFast || m == ModeBoth }
func (m Mode) slow() bool { return m == ModeSlow || m == ModeBoth }

// Options configure a Runner beyond its collaborators.
type Options struct {
	Mode  Mode
	Force bool // re-extract even when the tier's output file exists
}

// Runner produces per-page text artifacts. Each tier writes its own output
// file next to the page PDF, and an existing output file makes that tier a
// no-op, so re-running after an interrupt repeats no extraction work.
type Runner struct {
	src       source.Source
	engine    surya.Client
	outputDir string
	mode      Mode
	force     bool
	logger    *slog.Logger
	emitter   *report.Emitter
}

// NewRunner wires a runner for one collection output directory. engine may
// be nil when the mode never reaches the slow tier.
func NewRunner(src source.Source, engine surya.Client, outputDir string, opts Options, logger *slog.Logger, emitter *report.Emitter) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	mode := opts.Mode
	if mode == "" {
		mode = ModeNone
	}
	return &Runner{
		src:       src,
		engine:    engine,
		outputDir: outputDir,
		mode:      mode,
		force:     opts.Force,
		logger:    logger,
		emitter:   emitter,
	}
}

// Mode returns the runner's configured mode.
func (r *Runner) Mode() Mode {
	return r.mode
}

// ProcessPage runs the enabled tiers for one downloaded page. Tier failures
// never undo the download; both tiers are attempted even when the first
// fails, and their errors are joined.
func (r *Runner) ProcessPage(ctx context.Context, page source.Page, artifactPath string) error {
	if r == nil || r.mode == ModeNone {
		return nil
	}

	var errs []error
	if r.mode.fast() {
		if err := r.runFast(ctx, page); err != nil {
			if isContextErr(err) {
				return err
			}
			r.logger.Warn("fast text tier failed", "page", page.Key(), "error", err)
			errs = append(errs, fmt.Errorf("fast tier: %w", err))
		}
	}
	if r.mode.slow() {
		if err := r.runSlow(ctx, page, artifactPath); err != nil {
			if isContextErr(err) {
				return err
			}
			r.logger.Warn("slow text tier failed", "page", page.Key(), "error", err)
			errs = append(errs, fmt.Errorf("slow tier: %w", err))
		}
	}
	return errors.Join(errs...)
}

// runFast fetches archive-provided text. The output file name carries the
// source's registry name as its tier suffix.
func (r *Runner) runFast(ctx context.Context, page source.Page) error {
	dest := r.tierPath(page, r.src.Name())
	if r.skipExisting(dest, "fast", page) {
		return nil
	}

	result, err := r.src.FetchText(ctx, page, filepath.Dir(dest))
	if err != nil {
		return err
	}
	if !result.Supported {
		r.logger.Debug("archive has no text for page", "page", page.Key())
		return nil
	}

	r.logger.Info("fetched archive text", "page", page.Key(), "words", result.WordCount)
	r.emitter.Emit(report.Event{
		Type:       report.EventOCRPage,
		Collection: page.CollectionID,
		Issue:      fmt.Sprintf("%s_ed-%d", page.IssueDate, page.Edition),
		Page:       page.Index,
		File:       result.TextPath,
		Tier:       "fast",
	})
	return nil
}

// runSlow extracts text locally from the page PDF.
func (r *Runner) runSlow(ctx context.Context, page source.Page, artifactPath string) error {
	if r.engine == nil {
		return errors.New("no extraction engine configured")
	}
	dest := r.tierPath(page, "surya")
	if r.skipExisting(dest, "slow", page) {
		return nil
	}
	if _, err := os.Stat(artifactPath); err != nil {
		return fmt.Errorf("page artifact missing: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("create text directory: %w", err)
	}

	result, err := r.engine.Extract(ctx, artifactPath, dest, func(update surya.ProgressUpdate) {
		r.logger.Debug("extraction progress",
			"page", page.Key(),
			"stage", update.Stage,
			"percent", update.Percent)
	})
	if err != nil {
		return err
	}

	r.logger.Info("extracted page text", "page", page.Key(), "words", result.WordCount)
	r.emitter.Emit(report.Event{
		Type:       report.EventOCRPage,
		Collection: page.CollectionID,
		Issue:      fmt.Sprintf("%s_ed-%d", page.IssueDate, page.Edition),
		Page:       page.Index,
		File:       result.TextPath,
		Tier:       "slow",
	})
	return nil
}

// tierPath builds the tier's output file path for the page.
func (r *Runner) tierPath(page source.Page, tier string) string {
	name := fmt.Sprintf("%s_ed-%d_page%02d_%s.txt", page.IssueDate, page.Edition, page.Index, tier)
	return filepath.Join(r.outputDir, downloader.TextDir(page.IssueDate), name)
}

func (r *Runner) skipExisting(dest, tier string, page source.Page) bool {
	if r.force {
		return false
	}
	if _, err := os.Stat(dest); err != nil {
		return false
	}
	r.logger.Debug("text artifact exists, skipping", "page", page.Key(), "tier", tier)
	return true
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
