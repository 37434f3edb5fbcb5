package pipeline

import (
	"fmt"
	"os/exec"
	"strings"
)

// Stage identifies one of the four pipeline stages.
type Stage int

const (
	// StageDiscover builds the project and locates the test executable.
	StageDiscover Stage = iota
	// StageExecute runs the instrumented test executable.
	StageExecute
	// StageMerge consolidates the raw profile into profile data.
	StageMerge
	// StageReport renders the HTML report and the textual summary.
	StageReport

	stageCount
)

var stageNames = [...]string{"discover", "execute", "merge", "report"}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return fmt.Sprintf("stage(%d)", int(s))
	}
	return stageNames[s]
}

// ExitCode returns the CLI exit code for a failure in this stage:
// 1=discover, 2=execute, 3=merge, 4=report.
func (s Stage) ExitCode() int {
	return int(s) + 1
}

// StageError reports which stage aborted the pipeline.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// knownTools maps tool binary names to install hints.
var knownTools = map[string]string{
	"cargo":         "install via https://rustup.rs",
	"llvm-profdata": "rustup component add llvm-tools, or install LLVM",
	"llvm-cov":      "rustup component add llvm-tools, or install LLVM",
	"rustfilt":      "cargo install rustfilt",
}

// ErrToolUnavailable is returned when a required external tool is not
// installed. It includes an actionable install hint when the tool is known.
type ErrToolUnavailable struct {
	Name string
	Hint string
}

func NewErrToolUnavailable(name string) ErrToolUnavailable {
	return ErrToolUnavailable{Name: name, Hint: knownTools[name]}
}

func (e ErrToolUnavailable) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s is required but not installed.", e.Name)
	if e.Hint != "" {
		fmt.Fprintf(&b, "\nInstall: %s", e.Hint)
	}
	return b.String()
}

// ToolPath resolves a tool name on PATH.
func ToolPath(name string) (string, bool) {
	p, err := exec.LookPath(name)
	return p, err == nil
}
