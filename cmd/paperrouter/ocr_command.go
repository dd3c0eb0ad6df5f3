package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/OtherLeadingBrand/PaperRouter/internal/ocr"
	"github.com/OtherLeadingBrand/PaperRouter/internal/ocr/surya"
	"github.com/OtherLeadingBrand/PaperRouter/internal/progress"
	"github.com/OtherLeadingBrand/PaperRouter/internal/report"
)

func newOCRCommand(ctx *commandContext) *cobra.Command {
	var (
		sourceName   string
		outputFlag   string
		issueDate    string
		modeFlag     string
		force        bool
		progressJSON bool
	)

	cmd := &cobra.Command{
		Use:   "ocr <collection-id>",
		Short: "Extract text for already-downloaded pages",
		Long: `Extract text for pages recorded in a collection's progress file,
without re-resolving anything from the remote archive. Tiers that already
produced an output file are skipped unless --force is set.`,
		Args: cobra.ExactArgs(1),
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

			mode := cfg.OCR.Mode
			if modeFlag != "" {
				mode = modeFlag
			}
			ocrMode, err := ocr.ParseMode(mode)
			if err != nil {
				return err
			}
			if ocrMode == ocr.ModeNone {
				return errors.New("nothing to do with ocr mode none")
			}

			src, _, err := ctx.openSource(sourceName, "")
			if err != nil {
				return err
			}

			outputDir := outputFlag
			if outputDir == "" {
				outputDir = filepath.Join(cfg.Paths.DownloadDir, collectionID)
			}

			session, err := progress.OpenSession(outputDir, collectionID, src.Name())
			if err != nil {
				if errors.Is(err, progress.ErrLocked) {
					return fmt.Errorf("%s: %w", outputDir, err)
				}
				return fmt.Errorf("open progress: %w", err)
			}
			defer session.Close()
			if len(session.Record.CompletedIssues) == 0 && len(session.Record.PartialPages) == 0 {
				return fmt.Errorf("no downloaded pages recorded under %s", outputDir)
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
			runner := ocr.NewRunner(src, engine, outputDir, ocr.Options{Mode: ocrMode, Force: force}, logger, emitter)

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			summary, runErr := runner.RunBatch(runCtx, session.Record, issueDate)

			rows := [][]string{
				{"Issues processed", strconv.Itoa(summary.Issues)},
				{"Pages extracted", strconv.Itoa(summary.Pages)},
				{"Pages failed", strconv.Itoa(summary.FailedPages)},
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Metric", "Value"}, rows, 2))
			return runErr
		},
	}

	cmd.Flags().StringVar(&sourceName, "source", "loc", "Archive source the pages came from")
	cmd.Flags().StringVarP(&outputFlag, "output", "o", "", "Output directory (default <download_dir>/<collection-id>)")
	cmd.Flags().StringVar(&issueDate, "issue", "", "Limit to one issue date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&modeFlag, "mode", "", "Text extraction mode: fast, slow, or both")
	cmd.Flags().BoolVar(&force, "force", false, "Re-extract even when output files exist")
	cmd.Flags().BoolVar(&progressJSON, "progress-json", false, "Stream JSON progress events on stdout")
	return cmd
}
