package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/deixis/covpipe/internal/runner"
)

// buildRecord is one JSON record from the build-and-list tool's stdout.
// For cargo this is a compiler-artifact message; only the fields the
// pipeline needs are decoded.
type buildRecord struct {
	Profile struct {
		Test bool `json:"test"`
	} `json:"profile"`
	Executable string `json:"executable"`
}

// discover builds the project with instrumentation enabled and returns
// the path of the single test executable. The instrumentation variable
// is applied to this child process only.
func (e *Engine) discover(ctx context.Context) (string, error) {
	argv := e.Config.DiscoverArgs()

	res, err := e.Runner.Run(ctx, runner.Invocation{
		Argv: argv,
		Env:  e.InstrumentEnv,
	})
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return "", NewErrToolUnavailable(argv[0])
		}
		return "", err
	}
	if res.ExitCode != 0 {
		return "", fmt.Errorf("%s failed (exit %d): %s", argv[0], res.ExitCode, excerpt(res.Stderr))
	}

	return parseBuildRecords(res.Stdout)
}

// parseBuildRecords extracts the test executable from a stream of
// newline-delimited JSON records. Lines that are not JSON objects are
// skipped; a stream with no parseable record at all is an error, as is
// anything other than exactly one test-profile record.
func parseBuildRecords(data []byte) (string, error) {
	var execs []string
	parsed := false

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var rec buildRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			continue
		}
		parsed = true
		if rec.Profile.Test && rec.Executable != "" {
			execs = append(execs, rec.Executable)
		}
	}

	if !parsed {
		return "", fmt.Errorf("build output contained no parseable records")
	}
	switch len(execs) {
	case 1:
		return execs[0], nil
	case 0:
		return "", fmt.Errorf("no test executable in build output")
	default:
		return "", fmt.Errorf("found %d test executables, want exactly one", len(execs))
	}
}
