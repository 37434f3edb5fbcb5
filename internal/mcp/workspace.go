package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/deixis/covpipe/internal/config"
	"github.com/deixis/covpipe/internal/pipeline"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

type workspaceParams struct{}

func (h *handler) workspaceHandler(ctx context.Context, req *sdkmcp.CallToolRequest, _ workspaceParams) (*sdkmcp.CallToolResult, any, error) {
	var b strings.Builder

	cfg := h.engine.Config

	fmt.Fprintf(&b, "Workspace: %s\n", h.engine.Workspace)

	loaded, err := config.Load(h.engine.Workspace)
	if err == nil && loaded.Manifest != "" {
		fmt.Fprintf(&b, "Project root: %s (%s)\n", loaded.ProjectRoot, loaded.Manifest)
	} else {
		fmt.Fprintln(&b, "Project root: no build manifest found")
	}
	fmt.Fprintln(&b)

	fmt.Fprintln(&b, "Tools:")
	fmt.Fprintf(&b, "  discover: %s  [%s]\n", strings.Join(cfg.DiscoverArgs(), " "), toolState(cfg.DiscoverArgs()[0]))
	fmt.Fprintf(&b, "  merge:    %s  [%s]\n", strings.Join(cfg.MergeArgs(), " "), toolState(cfg.MergeArgs()[0]))
	fmt.Fprintf(&b, "  report:   %s  [%s]\n", strings.Join(cfg.ReportArgs(), " "), toolState(cfg.ReportArgs()[0]))
	if d := cfg.Demangler(); d != "" {
		fmt.Fprintf(&b, "  demangler: %s  [%s]\n", d, toolState(d))
	}
	fmt.Fprintln(&b)

	fmt.Fprintf(&b, "Instrumentation: %s=%s (discovery stage only)\n", cfg.InstrumentVar(), cfg.InstrumentValue())
	fmt.Fprintln(&b)

	fmt.Fprintln(&b, "Artifacts:")
	fmt.Fprintf(&b, "  raw profile:    %s\n", cfg.RawProfile())
	fmt.Fprintf(&b, "  merged profile: %s\n", cfg.MergedProfile())
	fmt.Fprintf(&b, "  HTML report:    %s\n", cfg.HTMLReport())

	return textResult(b.String())
}

func toolState(name string) string {
	if _, ok := pipeline.ToolPath(name); ok {
		return "available"
	}
	return "missing"
}
