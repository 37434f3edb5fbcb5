package pipeline

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/deixis/covpipe/internal/report"
)

// summaryRow matches data rows of the report tool's summary table:
//
//	src/lib.rs    144    12  91.67%    24    2  91.67%    310    25  91.94%
//	TOTAL         144    12  91.67%    24    2  91.67%    310    25  91.94%
//
// Columns are regions, functions, and lines, each as count / missed /
// percent. Trailing columns (branches) are ignored.
var summaryRow = regexp.MustCompile(`^(\S+)\s+(\d+)\s+(\d+)\s+(\d+\.\d+)%\s+(\d+)\s+(\d+)\s+(\d+\.\d+)%\s+(\d+)\s+(\d+)\s+(\d+\.\d+)%`)

// parseSummary extracts per-file coverage rows and the TOTAL row from
// the textual summary. Lines that do not match the table layout are
// skipped; an empty parse is not an error — the raw text remains the
// authoritative summary.
func parseSummary(data []byte) ([]report.FileCoverage, *report.FileCoverage) {
	var files []report.FileCoverage
	var total *report.FileCoverage

	for _, line := range strings.Split(string(data), "\n") {
		m := summaryRow.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}

		row := report.FileCoverage{
			File:            m[1],
			Regions:         atoi(m[2]),
			MissedRegions:   atoi(m[3]),
			RegionCover:     atof(m[4]),
			Functions:       atoi(m[5]),
			MissedFunctions: atoi(m[6]),
			FunctionCover:   atof(m[7]),
			Lines:           atoi(m[8]),
			MissedLines:     atoi(m[9]),
			LineCover:       atof(m[10]),
		}

		if row.File == "TOTAL" {
			t := row
			total = &t
			continue
		}
		files = append(files, row)
	}

	return files, total
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func atof(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}

// FormatCoverageSummary formats parsed coverage rows for display.
func FormatCoverageSummary(files []report.FileCoverage, total *report.FileCoverage) string {
	var b strings.Builder

	fmt.Fprintf(&b, "  Files: %d\n", len(files))
	if total != nil {
		fmt.Fprintf(&b, "  Line coverage: %.1f%% (%d/%d)\n", total.LineCover, total.Lines-total.MissedLines, total.Lines)
		fmt.Fprintf(&b, "  Function coverage: %.1f%%\n", total.FunctionCover)
	}

	// Lowest-covered files first.
	worst := make([]report.FileCoverage, len(files))
	copy(worst, files)
	sort.Slice(worst, func(i, j int) bool { return worst[i].LineCover < worst[j].LineCover })

	limit := 5
	shown := 0
	for _, f := range worst {
		if f.LineCover >= 100.0 {
			break
		}
		if shown >= limit {
			break
		}
		if shown == 0 {
			fmt.Fprintf(&b, "  Least covered:\n")
		}
		fmt.Fprintf(&b, "    %s — %.1f%% lines\n", f.File, f.LineCover)
		shown++
	}

	return b.String()
}
