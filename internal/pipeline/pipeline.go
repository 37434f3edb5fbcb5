// Package pipeline implements the coverage-report pipeline: build and
// discover the instrumented test executable, run it, merge the raw
// profile, and render the HTML and textual reports. It is consumed by
// both the MCP server and the CLI.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/deixis/covpipe/internal/config"
	"github.com/deixis/covpipe/internal/report"
	"github.com/deixis/covpipe/internal/runner"
	"github.com/google/uuid"
)

// CommandRunner executes commands within a workspace.
// Implemented by runner.Runner.
type CommandRunner interface {
	Run(ctx context.Context, inv runner.Invocation) (*runner.Result, error)
}

// Engine holds shared dependencies for a pipeline run.
type Engine struct {
	Config    *config.Config
	Runner    CommandRunner
	Workspace string
	// InstrumentEnv holds the KEY=VALUE pairs injected into the
	// discovery invocation only. Later stages run uninstrumented.
	InstrumentEnv []string
}

// StageStatus describes the outcome of one stage within a run.
type StageStatus struct {
	Name   string `json:"name"`
	Status string `json:"status"` // done, failed, skipped
	Detail string `json:"detail,omitempty"`
}

// Outcome holds the result of a pipeline run. It is populated as far as
// the run progressed; stages after a failure remain skipped.
type Outcome struct {
	RunID      string                `json:"run_id"`
	Executable string                `json:"executable,omitempty"`
	HTMLPath   string                `json:"html_path,omitempty"`
	Summary    string                `json:"summary,omitempty"`
	Stages     []StageStatus         `json:"stages"`
	Files      []report.FileCoverage `json:"files,omitempty"`
	Total      *report.FileCoverage  `json:"total,omitempty"`
}

// Run executes the four stages in order, stopping on the first failure.
// The returned Outcome is always non-nil; on failure the error is a
// *StageError identifying the failed stage.
func (e *Engine) Run(ctx context.Context) (*Outcome, error) {
	out := &Outcome{
		RunID:  uuid.New().String(),
		Stages: newStageStatuses(),
	}

	exe, err := e.discover(ctx)
	if err != nil {
		return out, out.fail(StageDiscover, err)
	}
	out.Executable = exe
	out.done(StageDiscover)

	if err := e.execute(ctx, exe); err != nil {
		return out, out.fail(StageExecute, err)
	}
	out.done(StageExecute)

	if err := e.merge(ctx); err != nil {
		return out, out.fail(StageMerge, err)
	}
	out.done(StageMerge)

	summary, htmlPath, err := e.render(ctx, exe)
	if err != nil {
		return out, out.fail(StageReport, err)
	}
	out.Summary = summary
	out.HTMLPath = htmlPath
	out.Files, out.Total = parseSummary([]byte(summary))
	out.done(StageReport)

	return out, nil
}

func newStageStatuses() []StageStatus {
	stages := make([]StageStatus, stageCount)
	for s := StageDiscover; s < stageCount; s++ {
		stages[s] = StageStatus{Name: s.String(), Status: "skipped"}
	}
	return stages
}

func (o *Outcome) done(s Stage) {
	o.Stages[s].Status = "done"
}

func (o *Outcome) fail(s Stage, err error) *StageError {
	o.Stages[s].Status = "failed"
	o.Stages[s].Detail = err.Error()
	return &StageError{Stage: s, Err: err}
}

// Record converts the outcome into a persistable run record. failure is
// nil when every stage completed.
func (o *Outcome) Record(failure *StageError) *report.Record {
	rec := &report.Record{
		ID:         o.RunID,
		When:       time.Now(),
		Status:     report.Pass,
		Executable: o.Executable,
		HTMLPath:   o.HTMLPath,
		Summary:    o.Summary,
		Files:      o.Files,
		Total:      o.Total,
	}
	if failure != nil {
		rec.Status = report.Fail
		rec.FailedStage = failure.Stage.String()
		rec.FailureDetail = failure.Err.Error()
	}
	return rec
}

// maxStderrLines caps how much tool stderr is embedded in error messages.
const maxStderrLines = 20

// excerpt trims tool stderr for embedding in an error message.
func excerpt(stderr []byte) string {
	s := strings.TrimSpace(string(stderr))
	if s == "" {
		return "(no stderr)"
	}
	lines := strings.Split(s, "\n")
	if len(lines) <= maxStderrLines {
		return s
	}
	return fmt.Sprintf("%s\n... (%d more lines)", strings.Join(lines[:maxStderrLines], "\n"), len(lines)-maxStderrLines)
}
