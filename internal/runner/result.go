package runner

// Result holds the output of a command execution.
type Result struct {
	RunID     string // unique identifier for this run
	ExitCode  int    // process exit code
	Stdout    []byte // captured stdout (empty when streamed to a sink)
	Stderr    []byte // captured stderr (may be truncated)
	Truncated bool   // true if captured output exceeded the size cap
}
