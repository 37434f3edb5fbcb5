package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os/exec"

	"github.com/deixis/covpipe/internal/runner"
)

// merge consolidates the raw profile into the profile-data file the
// report tool consumes. A missing or malformed raw profile surfaces
// here as a non-zero exit from the merge tool.
func (e *Engine) merge(ctx context.Context) error {
	argv := append([]string{}, e.Config.MergeArgs()...)
	argv = append(argv, e.Config.RawProfile(), "-o", e.Config.MergedProfile())

	res, err := e.Runner.Run(ctx, runner.Invocation{Argv: argv})
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return NewErrToolUnavailable(argv[0])
		}
		return err
	}
	if res.ExitCode != 0 {
		return fmt.Errorf("%s failed (exit %d): %s", argv[0], res.ExitCode, excerpt(res.Stderr))
	}
	return nil
}
