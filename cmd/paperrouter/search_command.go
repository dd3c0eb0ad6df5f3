package main

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/OtherLeadingBrand/PaperRouter/internal/catalog"
	"github.com/OtherLeadingBrand/PaperRouter/internal/source"
	"github.com/OtherLeadingBrand/PaperRouter/internal/textutil"
)

func newSearchCommand(ctx *commandContext) *cobra.Command {
	var sourceName string

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search an archive for newspaper titles",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			src, _, err := ctx.openSource(sourceName, "")
			if err != nil {
				return err
			}

			cat, err := catalog.Open(cfg.Paths.DownloadDir)
			if err != nil {
				logger.Warn("open catalog failed", "error", err)
				cat = nil
			} else {
				defer cat.Close()
			}

			out := cmd.OutOrStdout()
			results, err := src.SearchTitles(cmd.Context(), query)
			if err != nil {
				// The archive is unreachable; fall back to whatever earlier
				// runs cached locally.
				cached := cachedResults(cmd.Context(), cat, query)
				if len(cached) == 0 {
					return fmt.Errorf("search %s: %w", src.DisplayName(), err)
				}
				logger.Warn("archive search failed, showing cached results", "error", err)
				fmt.Fprintln(out, renderTable([]string{"ID", "Title", "Place", "Dates"}, resultRows(cached)))
				fmt.Fprintf(out, "%d cached title(s); %s was unreachable.\n", len(cached), src.DisplayName())
				return nil
			}
			if len(results) == 0 {
				fmt.Fprintf(out, "No titles matched %q on %s.\n", query, src.DisplayName())
				return nil
			}

			cacheResults(cmd.Context(), cat, src.Name(), results, logger)

			fmt.Fprintln(out, renderTable([]string{"ID", "Title", "Place", "Dates"}, resultRows(results)))
			fmt.Fprintf(out, "%d title(s). Fetch one with: paperrouter fetch <id>\n", len(results))
			return nil
		},
	}

	cmd.Flags().StringVar(&sourceName, "source", "loc", "Archive source to query")
	return cmd
}

func resultRows(results []source.TitleResult) [][]string {
	rows := make([][]string, 0, len(results))
	for _, result := range results {
		rows = append(rows, []string{
			result.CollectionID,
			textutil.Truncate(textutil.CleanTitle(result.Title), 48),
			textutil.Truncate(result.Place, 32),
			result.Dates,
		})
	}
	return rows
}

// cacheResults records search hits in the catalog so later searches work
// offline. Failures never fail the search.
func cacheResults(ctx context.Context, cat *catalog.Store, sourceName string, results []source.TitleResult, logger *slog.Logger) {
	if cat == nil {
		return
	}
	for _, result := range results {
		start, end := parseYearSpan(result.Dates)
		details := source.Details{
			CollectionID: result.CollectionID,
			Title:        textutil.CleanTitle(result.Title),
			Place:        result.Place,
			StartYear:    start,
			EndYear:      end,
			URL:          result.URL,
		}
		if err := cat.Put(ctx, sourceName, details); err != nil {
			logger.Warn("caching search hit failed", "collection", result.CollectionID, "error", err)
			return
		}
	}
}

func cachedResults(ctx context.Context, cat *catalog.Store, query string) []source.TitleResult {
	if cat == nil {
		return nil
	}
	entries, err := cat.Search(ctx, query)
	if err != nil {
		return nil
	}
	results := make([]source.TitleResult, 0, len(entries))
	for _, entry := range entries {
		dates := ""
		if entry.Details.StartYear > 0 {
			dates = strconv.Itoa(entry.Details.StartYear)
			if entry.Details.EndYear >= entry.Details.StartYear {
				dates += "-" + strconv.Itoa(entry.Details.EndYear)
			}
		}
		results = append(results, source.TitleResult{
			CollectionID: entry.Details.CollectionID,
			Title:        entry.Details.Title,
			Place:        entry.Details.Place,
			Dates:        dates,
			URL:          entry.Details.URL,
		})
	}
	return results
}

// parseYearSpan pulls the first and last four-digit years out of a free-form
// dates string like "1900-1910" or "1836/1922". Zero values mean unknown.
func parseYearSpan(dates string) (start, end int) {
	digits := 0
	for i := 0; i <= len(dates); i++ {
		if i < len(dates) && dates[i] >= '0' && dates[i] <= '9' {
			digits++
			continue
		}
		if digits == 4 {
			year, _ := strconv.Atoi(dates[i-4 : i])
			if start == 0 {
				start = year
			}
			end = year
		}
		digits = 0
	}
	return start, end
}
