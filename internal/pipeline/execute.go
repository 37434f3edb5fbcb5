package pipeline

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/deixis/covpipe/internal/runner"
)

// execute runs the discovered test executable from the workspace root.
// The instrumented binary writes the raw profile as a side effect; its
// existence is not checked here — a missing profile surfaces as a merge
// failure. The instrumentation variable is deliberately absent from this
// invocation.
func (e *Engine) execute(ctx context.Context, exe string) error {
	res, err := e.Runner.Run(ctx, runner.Invocation{Argv: []string{exe}})
	if err != nil {
		return err
	}
	if res.ExitCode != 0 {
		return fmt.Errorf("%s failed (exit %d): %s", filepath.Base(exe), res.ExitCode, excerpt(res.Stderr))
	}
	return nil
}
