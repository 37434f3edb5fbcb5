// Package report provides structured persistence and retrieval of
// pipeline run records. Records are stored as typed structs and can be
// queried by source file.
package report

import (
	"fmt"
	"strings"
	"time"
)

// Status summarises the outcome of a pipeline run.
type Status string

const (
	// Pass means every stage completed.
	Pass Status = "pass"
	// Fail means a stage failed and the remaining stages were skipped.
	Fail Status = "fail"
)

// Store persists and retrieves run records.
type Store interface {
	Save(rec *Record) error
	Load(runID string) (*Record, error)
	// List returns all stored records, newest first.
	List() ([]*Record, error)
}

// Record holds the structured outcome of one pipeline run.
type Record struct {
	ID     string    `json:"id"`
	When   time.Time `json:"when"`
	Status Status    `json:"status"`

	Executable string `json:"executable,omitempty"` // discovered test binary
	HTMLPath   string `json:"html_path,omitempty"`  // rendered HTML report
	Summary    string `json:"summary,omitempty"`    // raw textual summary

	// Failure fields (Status == Fail).
	FailedStage   string `json:"failed_stage,omitempty"`
	FailureDetail string `json:"failure_detail,omitempty"`

	// Per-file rows parsed from the textual summary.
	Files []FileCoverage `json:"files,omitempty"`
	Total *FileCoverage  `json:"total,omitempty"`
}

// FileCoverage holds one row of the coverage summary table.
type FileCoverage struct {
	File            string  `json:"file"`
	Regions         int     `json:"regions"`
	MissedRegions   int     `json:"missed_regions"`
	RegionCover     float64 `json:"region_cover"` // 0.0–100.0
	Functions       int     `json:"functions"`
	MissedFunctions int     `json:"missed_functions"`
	FunctionCover   float64 `json:"function_cover"`
	Lines           int     `json:"lines"`
	MissedLines     int     `json:"missed_lines"`
	LineCover       float64 `json:"line_cover"`
}

// String formats a row for display.
func (f FileCoverage) String() string {
	return fmt.Sprintf("%s: %.1f%% lines (%d/%d), %.1f%% functions, %.1f%% regions",
		f.File, f.LineCover, f.Lines-f.MissedLines, f.Lines, f.FunctionCover, f.RegionCover)
}

// FilesMatching returns the coverage rows whose file path contains the
// given pattern. An empty pattern matches every row.
func (r *Record) FilesMatching(pattern string) []FileCoverage {
	if pattern == "" {
		return r.Files
	}
	var out []FileCoverage
	for _, f := range r.Files {
		if strings.Contains(f.File, pattern) {
			out = append(out, f)
		}
	}
	return out
}
