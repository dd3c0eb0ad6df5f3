package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/OtherLeadingBrand/PaperRouter/internal/source"
)

// parseYears turns a year filter expression like "1900-1905,1910" into a
// YearSet. An empty expression returns nil, admitting all years.
func parseYears(expr string) (source.YearSet, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, nil
	}

	years := make(source.YearSet)
	for _, part := range strings.Split(expr, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if lo, hi, ok := strings.Cut(part, "-"); ok {
			start, err := parseYear(lo)
			if err != nil {
				return nil, err
			}
			end, err := parseYear(hi)
			if err != nil {
				return nil, err
			}
			if end < start {
				return nil, fmt.Errorf("year range %q runs backwards", part)
			}
			for year := start; year <= end; year++ {
				years[year] = struct{}{}
			}
			continue
		}
		year, err := parseYear(part)
		if err != nil {
			return nil, err
		}
		years[year] = struct{}{}
	}
	if len(years) == 0 {
		return nil, nil
	}
	return years, nil
}

func parseYear(s string) (int, error) {
	year, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || year < 1000 || year > 9999 {
		return 0, fmt.Errorf("invalid year %q", s)
	}
	return year, nil
}
