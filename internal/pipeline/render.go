package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/deixis/covpipe/internal/runner"
)

// render invokes the report tool twice with identical profile, demangler,
// and exclusion arguments: once streaming an HTML report to disk, once
// capturing the textual summary. It returns the summary text and the
// HTML file path.
func (e *Engine) render(ctx context.Context, exe string) (string, string, error) {
	common := []string{"-instr-profile=" + e.Config.MergedProfile()}
	if d := e.Config.Demangler(); d != "" {
		common = append(common, "-Xdemangler="+d)
	}
	if x := e.Config.Exclude(); x != "" {
		common = append(common, "-ignore-filename-regex="+x)
	}

	htmlPath := filepath.Join(e.Workspace, e.Config.HTMLReport())
	if err := e.renderHTML(ctx, exe, common, htmlPath); err != nil {
		return "", "", err
	}

	summary, err := e.renderSummary(ctx, exe, common)
	if err != nil {
		return "", "", err
	}
	return summary, htmlPath, nil
}

func (e *Engine) renderHTML(ctx context.Context, exe string, common []string, htmlPath string) error {
	argv := append([]string{}, e.Config.ReportArgs()...)
	argv = append(argv, "show", "-format=html")
	argv = append(argv, common...)
	argv = append(argv, exe)

	f, err := os.Create(htmlPath)
	if err != nil {
		return fmt.Errorf("creating %s: %w", htmlPath, err)
	}

	res, runErr := e.Runner.Run(ctx, runner.Invocation{Argv: argv, Stdout: f})
	closeErr := f.Close()

	// No half-written report left behind on failure.
	if runErr != nil {
		_ = os.Remove(htmlPath)
		if errors.Is(runErr, exec.ErrNotFound) {
			return NewErrToolUnavailable(argv[0])
		}
		return runErr
	}
	if res.ExitCode != 0 {
		_ = os.Remove(htmlPath)
		return fmt.Errorf("%s show failed (exit %d): %s", argv[0], res.ExitCode, excerpt(res.Stderr))
	}
	if closeErr != nil {
		_ = os.Remove(htmlPath)
		return fmt.Errorf("writing %s: %w", htmlPath, closeErr)
	}
	return nil
}

func (e *Engine) renderSummary(ctx context.Context, exe string, common []string) (string, error) {
	argv := append([]string{}, e.Config.ReportArgs()...)
	argv = append(argv, "report")
	argv = append(argv, common...)
	argv = append(argv, exe)

	res, err := e.Runner.Run(ctx, runner.Invocation{Argv: argv})
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return "", NewErrToolUnavailable(argv[0])
		}
		return "", err
	}
	if res.ExitCode != 0 {
		return "", fmt.Errorf("%s report failed (exit %d): %s", argv[0], res.ExitCode, excerpt(res.Stderr))
	}
	return string(res.Stdout), nil
}
