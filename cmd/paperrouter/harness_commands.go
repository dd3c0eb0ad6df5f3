package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/OtherLeadingBrand/PaperRouter/internal/harness"
)

func newHarnessCommand(ctx *commandContext) *cobra.Command {
	harnessCmd := &cobra.Command{
		Use:   "harness",
		Short: "Run or control a resource-supervised worker",
	}

	harnessCmd.AddCommand(newHarnessRunCommand(ctx))
	harnessCmd.AddCommand(newHarnessKillCommand(ctx))
	return harnessCmd
}

func newHarnessRunCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [flags] -- <paperrouter args>",
		Short: "Re-invoke paperrouter under memory and time ceilings",
		Long: `Run a paperrouter command as a supervised child process tree.
The tree is killed if its aggregate resident memory crosses the configured
ceiling or if it outlives the configured timeout. Intended for slow-tier
text extraction, whose model inference is memory-unbounded.

Example:
  paperrouter harness run -- fetch sn86069873 --years 1900-1905 --ocr both`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			self, err := os.Executable()
			if err != nil {
				return fmt.Errorf("locate executable: %w", err)
			}

			limits := harness.Limits{
				MemoryFraction:   cfg.Harness.MemoryFraction,
				MemoryLimitBytes: uint64(cfg.Harness.MemoryLimitMB) * 1024 * 1024,
				Timeout:          time.Duration(cfg.Harness.TimeoutMinutes) * time.Minute,
				PollInterval:     time.Duration(cfg.Harness.PollSeconds) * time.Second,
			}
			supervisor := harness.New(cfg.Paths.LogDir, limits, logger)

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			result, err := supervisor.Run(runCtx, self, args...)
			if err != nil {
				return err
			}
			if result.Outcome != harness.OutcomeCompleted || result.ExitCode != 0 {
				return fmt.Errorf("worker %s: %s", result.Outcome, result.Reason)
			}
			return nil
		},
	}
	return cmd
}

func newHarnessKillCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "kill",
		Short: "Kill the currently supervised worker tree",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			report, err := harness.Kill(cfg.Paths.LogDir, logger)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			switch {
			case !report.Found:
				fmt.Fprintln(out, "No supervised run found — nothing to kill.")
			case report.Stale:
				fmt.Fprintf(out, "Supervision lock for PID %d was stale; removed.\n", report.PID)
			default:
				fmt.Fprintf(out, "Killed supervised tree rooted at PID %d (%d processes).\n", report.PID, report.Processes)
			}
			return nil
		},
	}
}
