package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/OtherLeadingBrand/PaperRouter/internal/catalog"
	"github.com/OtherLeadingBrand/PaperRouter/internal/source"
	"github.com/OtherLeadingBrand/PaperRouter/internal/textutil"
)

// catalogMaxAge bounds how long cached collection details are trusted
// before the archive is asked again.
const catalogMaxAge = 30 * 24 * time.Hour

func newInfoCommand(ctx *commandContext) *cobra.Command {
	var sourceName string
	var refresh bool

	cmd := &cobra.Command{
		Use:   "info <collection-id>",
		Short: "Show details for a newspaper collection",
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

			cat, err := catalog.Open(cfg.Paths.DownloadDir)
			if err != nil {
				return fmt.Errorf("open catalog: %w", err)
			}
			defer cat.Close()

			if dropped, err := cat.Prune(cmd.Context(), time.Now().Add(-catalogMaxAge)); err != nil {
				logger.Warn("catalog prune failed", "error", err)
			} else if dropped > 0 {
				logger.Debug("pruned stale catalog entries", "dropped", dropped)
			}

			var details *source.Details
			if !refresh {
				entry, err := cat.Get(cmd.Context(), collectionID)
				if err != nil {
					logger.Warn("catalog lookup failed", "collection", collectionID, "error", err)
				} else if entry != nil && time.Since(entry.FetchedAt) < catalogMaxAge {
					details = &entry.Details
				}
			}

			if details == nil {
				src, _, err := ctx.openSource(sourceName, "")
				if err != nil {
					return err
				}
				details, err = src.FetchDetails(cmd.Context(), collectionID)
				if err != nil {
					return fmt.Errorf("fetch details: %w", err)
				}
				if details == nil {
					return fmt.Errorf("collection %s not found on %s", collectionID, src.DisplayName())
				}
				if err := cat.Put(cmd.Context(), src.Name(), *details); err != nil {
					logger.Warn("catalog update failed", "collection", collectionID, "error", err)
				}
			}

			years := ""
			if details.StartYear > 0 {
				years = strconv.Itoa(details.StartYear)
				if details.EndYear >= details.StartYear {
					years += "-" + strconv.Itoa(details.EndYear)
				}
			}
			rows := [][]string{{
				details.CollectionID,
				textutil.Truncate(textutil.CleanTitle(details.Title), 48),
				textutil.Truncate(details.Place, 32),
				years,
			}}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"ID", "Title", "Place", "Years"}, rows))
			if details.URL != "" {
				fmt.Fprintln(cmd.OutOrStdout(), details.URL)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&sourceName, "source", "loc", "Archive source to query")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "Bypass the local catalog cache")
	return cmd
}
