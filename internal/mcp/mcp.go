// Package mcp provides the covpipe MCP server, registering all tools
// and publishing model instructions.
package mcp

import (
	"context"
	_ "embed"
	"net/url"
	"time"

	"github.com/deixis/covpipe"
	"github.com/deixis/covpipe/internal/config"
	"github.com/deixis/covpipe/internal/pipeline"
	"github.com/deixis/covpipe/internal/report"
	"github.com/deixis/covpipe/internal/runner"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

//go:embed instructions.md
var Instructions string

// handler holds shared dependencies for all tool handlers.
type handler struct {
	engine *pipeline.Engine
	runner *runner.Runner // retained for updateWorkspaceFromRoots
	store  report.Store
}

// NewServer creates an MCP server with all covpipe tools registered.
func NewServer(cfg *config.Config, instrumentEnv []string, r *runner.Runner, store report.Store, workspace string) *mcp.Server {
	h := &handler{
		engine: &pipeline.Engine{
			Config:        cfg,
			Runner:        r,
			Workspace:     workspace,
			InstrumentEnv: instrumentEnv,
		},
		runner: r,
		store:  store,
	}

	mcpOpts := &mcp.ServerOptions{
		Instructions: Instructions,
		Capabilities: &mcp.ServerCapabilities{
			Tools: &mcp.ToolCapabilities{ListChanged: false},
		},
		InitializedHandler: func(ctx context.Context, req *mcp.InitializedRequest) {
			h.updateWorkspaceFromRoots(ctx, req.Session)
		},
	}
	s := mcp.NewServer(&mcp.Implementation{Name: "covpipe", Version: covpipe.Version}, mcpOpts)

	mcp.AddTool(s, &mcp.Tool{
		Name: "cov_run",
		Description: `Run the coverage pipeline: build the instrumented test executable, run it, merge the raw profile, and render the HTML report and summary.

Operates on the server's workspace. Results are stored for drill-down via cov_inspect.`,
	}, h.runHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name: "cov_inspect",
		Description: `Drill into a saved coverage run, or list stored runs.

Use the run_id from cov_run output; omit it to list stored runs. An
optional file pattern narrows the per-file coverage rows to paths
containing the pattern.`,
	}, h.inspectHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "cov_workspace",
		Description: "Summarise the workspace: project root, build manifest, configured tools and their availability, and artifact paths.",
	}, h.workspaceHandler)

	return s
}

// updateWorkspaceFromRoots queries the client for MCP roots and updates the
// handler's engine, runner, and config if a valid root is returned.
// This is called during session initialization, before any tool calls.
func (h *handler) updateWorkspaceFromRoots(ctx context.Context, session *mcp.ServerSession) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	roots, err := session.ListRoots(ctx, &mcp.ListRootsParams{})
	if err != nil {
		return
	}
	if len(roots.Roots) == 0 {
		return
	}

	u, err := url.Parse(roots.Roots[0].URI)
	if err != nil || u.Scheme != "file" {
		return
	}
	workspace := u.Path

	loaded, err := config.Load(workspace)
	if err != nil {
		return
	}
	env, err := loaded.InstrumentEnv()
	if err != nil {
		return
	}

	// Update runner.
	h.runner.Workspace = workspace
	h.runner.Timeout = loaded.Config.Timeout()
	h.runner.MaxOutput = loaded.Config.MaxOutputBytes()

	// Update engine.
	h.engine.Config = loaded.Config
	h.engine.Workspace = workspace
	h.engine.InstrumentEnv = env
}

// textResult is a helper to build a text-only tool result.
func textResult(text string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}, nil, nil
}

// errorResult is a helper to build an error tool result.
func errorResult(text string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: true,
	}, nil, nil
}
