package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/deixis/covpipe/internal/report"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type inspectParams struct {
	RunID string `json:"run_id,omitempty" jsonschema:"Run identifier from cov_run output. Omit to list stored runs."`
	File  string `json:"file,omitempty" jsonschema:"Optional path fragment; narrows the rows to files whose path contains it."`
}

func (h *handler) inspectHandler(ctx context.Context, req *mcp.CallToolRequest, params inspectParams) (*mcp.CallToolResult, any, error) {
	if params.RunID == "" {
		recs, err := h.store.List()
		if err != nil {
			return errorResult(fmt.Sprintf("listing runs: %v", err))
		}
		return textResult(formatRunList(recs))
	}

	rec, err := h.store.Load(params.RunID)
	if err != nil {
		return errorResult(fmt.Sprintf("run %s not found: %v", params.RunID, err))
	}

	return textResult(formatInspect(rec, params.File))
}

func formatRunList(recs []*report.Record) string {
	if len(recs) == 0 {
		return "No stored runs. Use cov_run first.\n"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Stored runs (%d, newest first):\n", len(recs))
	for _, r := range recs {
		fmt.Fprintf(&b, "  %s  %s  %s", r.ID, r.When.Format("2006-01-02 15:04:05"), r.Status)
		if r.Status == report.Fail {
			fmt.Fprintf(&b, " (%s)", r.FailedStage)
		} else if r.Total != nil {
			fmt.Fprintf(&b, " (%.1f%% lines)", r.Total.LineCover)
		}
		fmt.Fprintln(&b)
	}
	fmt.Fprintln(&b)
	fmt.Fprintln(&b, "Pass a run_id to see per-file coverage.")
	return b.String()
}

func formatInspect(rec *report.Record, filePattern string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Run: %s (%s)\n", rec.ID, rec.Status)
	fmt.Fprintln(&b)

	if rec.Status == report.Fail {
		fmt.Fprintf(&b, "Failed stage: %s\n", rec.FailedStage)
		fmt.Fprintln(&b)
		fmt.Fprintln(&b, rec.FailureDetail)
		return b.String()
	}

	rows := rec.FilesMatching(filePattern)
	if len(rows) == 0 {
		if filePattern != "" {
			fmt.Fprintf(&b, "No files matching %q.\n", filePattern)
		} else {
			fmt.Fprintln(&b, "No per-file rows were parsed from the summary; raw text follows.")
			fmt.Fprintln(&b)
			fmt.Fprintln(&b, rec.Summary)
		}
		return b.String()
	}

	for _, f := range rows {
		fmt.Fprintf(&b, "  %s\n", f)
	}
	if rec.Total != nil {
		fmt.Fprintln(&b)
		fmt.Fprintf(&b, "  TOTAL: %.1f%% lines, %.1f%% functions, %.1f%% regions\n",
			rec.Total.LineCover, rec.Total.FunctionCover, rec.Total.RegionCover)
	}
	if rec.HTMLPath != "" {
		fmt.Fprintln(&b)
		fmt.Fprintf(&b, "Full report: %s\n", rec.HTMLPath)
	}

	return b.String()
}
