package mcp

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/deixis/covpipe/internal/config"
	"github.com/deixis/covpipe/internal/report"
	"github.com/deixis/covpipe/internal/runner"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// setup creates a full covpipe MCP server + client over in-memory transports.
func setup(t *testing.T, workspaceDir string, cfg *config.Config) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()

	if cfg == nil {
		cfg = &config.Config{}
	}

	store := report.NewLRUStore(5, report.NewDiskStore())
	r := &runner.Runner{
		Workspace: workspaceDir,
		Timeout:   30 * time.Second,
		MaxOutput: cfg.MaxOutputBytes(),
	}

	env := []string{cfg.InstrumentVar() + "=" + cfg.InstrumentValue()}
	server := NewServer(cfg, env, r, store, workspaceDir)

	ct, st := mcp.NewInMemoryTransports()
	ss, err := server.Connect(ctx, st, nil)
	if err != nil {
		t.Fatalf("server.Connect: %v", err)
	}

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	cs, err := client.Connect(ctx, ct, nil)
	if err != nil {
		t.Fatalf("client.Connect: %v", err)
	}

	t.Cleanup(func() {
		_ = cs.Close()
		_ = ss.Wait()
	})

	return cs
}

func callTool(t *testing.T, cs *mcp.ClientSession, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		t.Fatalf("CallTool(%s): %v", name, err)
	}
	return res
}

func resultText(r *mcp.CallToolResult) string {
	var parts []string
	for _, c := range r.Content {
		if tc, ok := c.(*mcp.TextContent); ok {
			parts = append(parts, tc.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// stubWorkspace prepares a workspace whose configured tools are shell stubs.
func stubWorkspace(t *testing.T) (string, *config.Config) {
	t.Helper()
	ws := t.TempDir()

	write := func(name, body string) string {
		path := filepath.Join(ws, name)
		if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
			t.Fatal(err)
		}
		return path
	}

	testBin := write("testbin", "printf 'profile' > default.profraw\n")
	discoverTool := write("builder",
		`echo '{"profile":{"test":true},"executable":"'`+testBin+`'"}'`)
	mergeTool := write("merger", `cp "$1" "$3"`)
	reportTool := write("reporter", `
if [ "$1" = "show" ]; then
  echo '<html>ok</html>'
else
  echo 'src/lib.rs  10  1  90.00%  4  0  100.00%  20  2  90.00%'
  echo 'TOTAL       10  1  90.00%  4  0  100.00%  20  2  90.00%'
fi
`)

	cfg := &config.Config{
		Discover: config.DiscoverConfig{Args: []string{discoverTool}},
		Merge:    config.MergeConfig{Args: []string{mergeTool}},
		Report:   config.ReportConfig{Args: []string{reportTool}},
	}
	return ws, cfg
}

// --- cov_workspace ---

func TestCovWorkspace(t *testing.T) {
	ws, cfg := stubWorkspace(t)
	cs := setup(t, ws, cfg)

	res := callTool(t, cs, "cov_workspace", nil)
	text := resultText(res)

	if !strings.Contains(text, "Workspace: "+ws) {
		t.Errorf("missing workspace path:\n%s", text)
	}
	if !strings.Contains(text, "raw profile:    default.profraw") {
		t.Errorf("missing artifact names:\n%s", text)
	}
	if !strings.Contains(text, "discovery stage only") {
		t.Errorf("missing instrumentation scoping note:\n%s", text)
	}
}

// --- cov_run + cov_inspect ---

var runIDLine = regexp.MustCompile(`Run: (\S+)`)

func TestCovRunThenInspect(t *testing.T) {
	ws, cfg := stubWorkspace(t)
	cs := setup(t, ws, cfg)

	res := callTool(t, cs, "cov_run", nil)
	text := resultText(res)

	if res.IsError {
		t.Fatalf("cov_run returned error:\n%s", text)
	}
	if !strings.Contains(text, "Status: PASS") {
		t.Errorf("missing PASS status:\n%s", text)
	}
	if !strings.Contains(text, "Line coverage: 90.0%") {
		t.Errorf("missing coverage summary:\n%s", text)
	}

	m := runIDLine.FindStringSubmatch(text)
	if m == nil {
		t.Fatalf("no run id in output:\n%s", text)
	}
	runID := m[1]

	res = callTool(t, cs, "cov_inspect", map[string]any{"run_id": runID, "file": "lib"})
	text = resultText(res)
	if res.IsError {
		t.Fatalf("cov_inspect returned error:\n%s", text)
	}
	if !strings.Contains(text, "src/lib.rs") {
		t.Errorf("missing per-file row:\n%s", text)
	}
	if !strings.Contains(text, "TOTAL: 90.0% lines") {
		t.Errorf("missing total row:\n%s", text)
	}
}

func TestCovRun_FailureReportsStage(t *testing.T) {
	ws, cfg := stubWorkspace(t)

	// Replace the test binary with one that fails.
	testBin := filepath.Join(ws, "testbin")
	if err := os.WriteFile(testBin, []byte("#!/bin/sh\nexit 7\n"), 0o755); err != nil {
		t.Fatal(err)
	}

	cs := setup(t, ws, cfg)

	res := callTool(t, cs, "cov_run", nil)
	text := resultText(res)

	if !strings.Contains(text, "Status: FAIL") {
		t.Errorf("missing FAIL status:\n%s", text)
	}
	if !strings.Contains(text, "Failed stage: execute") {
		t.Errorf("missing failed stage:\n%s", text)
	}

	// The failure is stored and inspectable.
	m := runIDLine.FindStringSubmatch(text)
	if m == nil {
		t.Fatalf("no run id in output:\n%s", text)
	}
	res = callTool(t, cs, "cov_inspect", map[string]any{"run_id": m[1]})
	text = resultText(res)
	if !strings.Contains(text, "Failed stage: execute") {
		t.Errorf("inspect missing failure detail:\n%s", text)
	}
}

func TestCovInspect_UnknownRun(t *testing.T) {
	ws, cfg := stubWorkspace(t)
	cs := setup(t, ws, cfg)

	res := callTool(t, cs, "cov_inspect", map[string]any{"run_id": "no-such-run"})
	if !res.IsError {
		t.Errorf("expected error result, got:\n%s", resultText(res))
	}
}

func TestCovInspect_ListsRuns(t *testing.T) {
	ws, cfg := stubWorkspace(t)
	cs := setup(t, ws, cfg)

	// No run_id and nothing stored yet.
	res := callTool(t, cs, "cov_inspect", map[string]any{})
	text := resultText(res)
	if res.IsError {
		t.Fatalf("cov_inspect returned error:\n%s", text)
	}
	if !strings.Contains(text, "No stored runs") {
		t.Errorf("missing empty-store message:\n%s", text)
	}

	res = callTool(t, cs, "cov_run", nil)
	m := runIDLine.FindStringSubmatch(resultText(res))
	if m == nil {
		t.Fatalf("no run id in output:\n%s", resultText(res))
	}

	res = callTool(t, cs, "cov_inspect", map[string]any{})
	text = resultText(res)
	if !strings.Contains(text, m[1]) {
		t.Errorf("listing missing run %s:\n%s", m[1], text)
	}
	if !strings.Contains(text, "pass (90.0% lines)") {
		t.Errorf("listing missing status and coverage:\n%s", text)
	}
}
