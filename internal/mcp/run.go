package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/deixis/covpipe/internal/pipeline"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type runParams struct{}

func (h *handler) runHandler(ctx context.Context, req *mcp.CallToolRequest, _ runParams) (*mcp.CallToolResult, any, error) {
	out, err := h.engine.Run(ctx)

	var failure *pipeline.StageError
	if err != nil && !errors.As(err, &failure) {
		return errorResult(fmt.Sprintf("pipeline failed: %v", err))
	}

	// Save the record for cov_inspect, pass or fail.
	_ = h.store.Save(out.Record(failure))

	return textResult(formatRun(out, failure))
}

func formatRun(out *pipeline.Outcome, failure *pipeline.StageError) string {
	var b strings.Builder

	if failure == nil {
		fmt.Fprintln(&b, "Status: PASS")
	} else {
		fmt.Fprintln(&b, "Status: FAIL")
	}
	fmt.Fprintf(&b, "Run: %s\n", out.RunID)
	fmt.Fprintln(&b)

	fmt.Fprintln(&b, "Stages:")
	for _, s := range out.Stages {
		fmt.Fprintf(&b, "  %s: %s\n", s.Name, s.Status)
	}
	fmt.Fprintln(&b)

	if failure != nil {
		fmt.Fprintf(&b, "Failed stage: %s\n", failure.Stage)
		fmt.Fprintln(&b)
		fmt.Fprintln(&b, failure.Err.Error())

		var unavail pipeline.ErrToolUnavailable
		if errors.As(failure.Err, &unavail) {
			fmt.Fprintf(&b, "\nAction: install %s and re-run cov_run.\n", unavail.Name)
		}
		return b.String()
	}

	fmt.Fprintln(&b, "Coverage:")
	fmt.Fprint(&b, pipeline.FormatCoverageSummary(out.Files, out.Total))
	fmt.Fprintln(&b)
	fmt.Fprintf(&b, "HTML report: %s\n", out.HTMLPath)
	fmt.Fprintf(&b, "Inspect with cov_inspect(run_id=%q, file=\"<path fragment>\").\n", out.RunID)

	return b.String()
}
