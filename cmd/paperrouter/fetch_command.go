package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/OtherLeadingBrand/PaperRouter/internal/catalog"
	"github.com/OtherLeadingBrand/PaperRouter/internal/downloader"
	"github.com/OtherLeadingBrand/PaperRouter/internal/ocr"
	"github.com/OtherLeadingBrand/PaperRouter/internal/ocr/surya"
	"github.com/OtherLeadingBrand/PaperRouter/internal/progress"
	"github.com/OtherLeadingBrand/PaperRouter/internal/report"
)

func newFetchCommand(ctx *commandContext) *cobra.Command {
	var (
		sourceName   string
		yearsFlag    string
		issueDate    string
		maxIssues    int
		outputFlag   string
		retryFailed  bool
		speedFlag    string
		ocrFlag      string
		forceOCR     bool
		progressJSON bool
	)

	cmd := &cobra.Command{
		Use:   "fetch <collection-id>",
		Short: "Download a newspaper collection, resuming prior progress",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			collectionID := args[0]
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			years, err := parseYears(yearsFlag)
			if err != nil {
				return err
			}

			mode := cfg.OCR.Mode
			if ocrFlag != "" {
				mode = ocrFlag
			}
			ocrMode, err := ocr.ParseMode(mode)
			if err != nil {
				return err
			}

			src, limiter, err := ctx.openSource(sourceName, speedFlag)
			if err != nil {
				return err
			}

			outputDir := outputFlag
			if outputDir == "" {
				outputDir = filepath.Join(cfg.Paths.DownloadDir, collectionID)
			}
			if err := os.MkdirAll(outputDir, 0o755); err != nil {
				return fmt.Errorf("create output directory: %w", err)
			}

			session, err := progress.OpenSession(outputDir, collectionID, src.Name())
			if err != nil {
				if errors.Is(err, progress.ErrLocked) {
					return fmt.Errorf("%s: %w", outputDir, err)
				}
				return fmt.Errorf("open progress: %w", err)
			}
			defer session.Close()
			if session.Restored {
				logger.Warn("progress file was corrupt; restored from backup", "collection", collectionID)
			}
			if len(session.Record.CompletedIssues) > 0 || len(session.Record.PartialPages) > 0 {
				logger.Info("resuming prior progress",
					"collection", collectionID,
					"completed_issues", len(session.Record.CompletedIssues),
					"failed_issues", len(session.Record.FailedIssues))
			}

			var emitter *report.Emitter
			if progressJSON {
				emitter = report.New(os.Stdout)
			}

			var engine surya.Client
			if ocrMode == ocr.ModeSlow || ocrMode == ocr.ModeBoth {
				engine = surya.NewCLI(
					surya.WithBinary(cfg.OCR.SuryaBinary),
					surya.WithModelDir(cfg.OCR.ModelDir),
				)
			}
			runner := ocr.NewRunner(src, engine, outputDir, ocr.Options{Mode: ocrMode, Force: forceOCR}, logger, emitter)

			orch := downloader.New(src, session, limiter, outputDir, logger, emitter, runner)

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			summary, runErr := orch.Run(runCtx,
				downloader.Target{CollectionID: collectionID, Years: years, IssueDate: issueDate, MaxIssues: maxIssues},
				downloader.Options{RetryFailed: retryFailed})

			if summary != nil {
				rememberTitle(cmd, ctx, src.Name(), collectionID)
				printRunSummary(cmd, summary)
			}
			return runErr
		},
	}

	cmd.Flags().StringVar(&sourceName, "source", "loc", "Archive source to fetch from")
	cmd.Flags().StringVar(&yearsFlag, "years", "", "Year filter, e.g. 1900-1905,1910")
	cmd.Flags().StringVar(&issueDate, "issue", "", "Fetch only issues published on this date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&maxIssues, "max-issues", 0, "Stop after this many issues (0 = all)")
	cmd.Flags().StringVarP(&outputFlag, "output", "o", "", "Output directory (default <download_dir>/<collection-id>)")
	cmd.Flags().BoolVar(&retryFailed, "retry-failed", false, "Re-attempt issues recorded as failed")
	cmd.Flags().StringVar(&speedFlag, "speed", "", "Speed profile: safe or standard")
	cmd.Flags().StringVar(&ocrFlag, "ocr", "", "Text extraction mode: none, fast, slow, or both")
	cmd.Flags().BoolVar(&forceOCR, "force-ocr", false, "Re-extract text even when output files exist")
	cmd.Flags().BoolVar(&progressJSON, "progress-json", false, "Stream JSON progress events on stdout")
	return cmd
}

// rememberTitle caches collection details in the catalog so later info
// calls skip the network. Best effort only.
func rememberTitle(cmd *cobra.Command, ctx *commandContext, sourceName, collectionID string) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return
	}
	logger, _ := ctx.ensureLogger()

	cat, err := catalog.Open(cfg.Paths.DownloadDir)
	if err != nil {
		return
	}
	defer cat.Close()

	entry, err := cat.Get(cmd.Context(), collectionID)
	if err != nil || entry != nil {
		return
	}
	src, _, err := ctx.openSource(sourceName, "")
	if err != nil {
		return
	}
	details, err := src.FetchDetails(cmd.Context(), collectionID)
	if err != nil || details == nil {
		return
	}
	if err := cat.Put(cmd.Context(), sourceName, *details); err != nil && logger != nil {
		logger.Debug("catalog update failed", "collection", collectionID, "error", err)
	}
}

func printRunSummary(cmd *cobra.Command, summary *downloader.RunSummary) {
	rows := [][]string{
		{"Issues completed", strconv.Itoa(summary.IssuesCompleted)},
		{"Issues failed", strconv.Itoa(summary.IssuesFailed)},
		{"Issues skipped", strconv.Itoa(summary.IssuesSkipped)},
	}
	if summary.IssuesRetried > 0 {
		rows = append(rows, []string{"Issues retried", strconv.Itoa(summary.IssuesRetried)})
	}
	rows = append(rows,
		[]string{"Pages downloaded", strconv.Itoa(summary.PagesDownloaded)},
		[]string{"Pages failed", strconv.Itoa(summary.PagesFailed)},
		[]string{"Bytes transferred", humanize.Bytes(uint64(summary.BytesDownloaded))},
		[]string{"Elapsed", summary.Elapsed.Round(time.Second).String()},
	)
	out := cmd.OutOrStdout()
	title := summary.Collection
	if summary.Title != "" {
		title = fmt.Sprintf("%s (%s)", summary.Title, summary.Collection)
	}
	fmt.Fprintf(out, "Run %s — %s\n", summary.RunID, title)
	fmt.Fprintln(out, renderTable([]string{"Metric", "Value"}, rows, 2))
}
