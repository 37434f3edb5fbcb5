package pipeline

import (
	"strings"
	"testing"
)

func TestParseSummary_Table(t *testing.T) {
	files, total := parseSummary(summaryTable())

	if len(files) != 2 {
		t.Fatalf("len(files) = %d, want 2", len(files))
	}
	lib := files[0]
	if lib.File != "src/lib.rs" {
		t.Errorf("File = %q, want src/lib.rs", lib.File)
	}
	if lib.Regions != 144 || lib.MissedRegions != 12 {
		t.Errorf("regions = %d/%d, want 144/12", lib.Regions, lib.MissedRegions)
	}
	if lib.FunctionCover != 91.67 {
		t.Errorf("FunctionCover = %v, want 91.67", lib.FunctionCover)
	}
	if lib.Lines != 310 || lib.MissedLines != 25 || lib.LineCover != 91.94 {
		t.Errorf("lines = %d/%d (%v%%), want 310/25 (91.94%%)", lib.Lines, lib.MissedLines, lib.LineCover)
	}

	if total == nil {
		t.Fatal("total row not parsed")
	}
	if total.LineCover != 71.25 {
		t.Errorf("total.LineCover = %v, want 71.25", total.LineCover)
	}
}

func TestParseSummary_UnknownLayout(t *testing.T) {
	files, total := parseSummary([]byte("some tool printed\nsomething unexpected\n"))
	if files != nil || total != nil {
		t.Errorf("parseSummary = %v, %v, want nil, nil", files, total)
	}
}

func TestFormatCoverageSummary(t *testing.T) {
	files, total := parseSummary(summaryTable())
	out := FormatCoverageSummary(files, total)

	if !strings.Contains(out, "Files: 2") {
		t.Errorf("output missing file count:\n%s", out)
	}
	if !strings.Contains(out, "71.2% (285/400)") {
		t.Errorf("output missing total line coverage:\n%s", out)
	}
	// The fully-uncovered file leads the least-covered list.
	if !strings.Contains(out, "src/iter.rs — 0.0% lines") {
		t.Errorf("output missing least-covered file:\n%s", out)
	}
}
