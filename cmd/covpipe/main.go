// Command covpipe generates source-based coverage reports by
// orchestrating the project's build, profile-merge, and report tools.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/deixis/covpipe"
	"github.com/deixis/covpipe/internal/config"
	covmcp "github.com/deixis/covpipe/internal/mcp"
	"github.com/deixis/covpipe/internal/pipeline"
	"github.com/deixis/covpipe/internal/report"
	"github.com/deixis/covpipe/internal/runner"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("covpipe: ")

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "run":
		err = runMain(args)
	case "mcp":
		err = mcpMain(args)
	case "version":
		fmt.Println(covpipe.Version)
	case "help", "-h", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "covpipe: unknown command %q\n", cmd)
		usage()
		os.Exit(2)
	}

	if err != nil {
		// Startup and usage errors exit 2; stage failures exit through
		// runMain with their own codes.
		log.Print(err)
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `Usage: covpipe <command> [flags]

Commands:
  run         Run the coverage pipeline in the current directory
  mcp         Start the MCP server
  version     Print the version
  help        Show this help

Use "covpipe <command> -h" for command-specific flags.

Exit codes for run: 0 success, then one per failed stage —
1 discover, 2 execute, 3 merge, 4 report.`)
}

// --- run ---

func runMain(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	jsonFlag := fs.Bool("json", false, "output the run outcome as JSON")
	verboseFlag := fs.Bool("v", false, "verbose output (stage statuses)")
	timeoutFlag := fs.Duration("timeout", 0, "override configured per-tool timeout (e.g. 5m)")
	_ = fs.Parse(args)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	eng, err := newEngine(*timeoutFlag)
	if err != nil {
		return err
	}

	out, runErr := eng.Run(ctx)

	if *jsonFlag {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			return err
		}
	}

	if runErr != nil {
		var se *pipeline.StageError
		if errors.As(runErr, &se) {
			fmt.Fprintf(os.Stderr, "covpipe: %v\n", se)
			os.Exit(se.Stage.ExitCode())
		}
		return runErr
	}

	if !*jsonFlag {
		if *verboseFlag {
			for _, s := range out.Stages {
				fmt.Fprintf(os.Stderr, "  %-10s %s\n", s.Name, s.Status)
			}
		}
		fmt.Print(out.Summary)
		log.Printf("HTML report written to %s", out.HTMLPath)
	}
	return nil
}

// --- mcp ---

func mcpMain(args []string) error {
	fs := flag.NewFlagSet("mcp", flag.ExitOnError)
	instructions := fs.Bool("instructions", false, "print model instructions and exit")
	httpAddr := fs.String("http", "", "start HTTP server on address (e.g. :9090)")
	_ = fs.Parse(args)

	if *instructions {
		fmt.Print(covmcp.Instructions)
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	return serve(ctx, *httpAddr)
}

func serve(ctx context.Context, httpAddr string) error {
	workspace, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("determining workspace: %w", err)
	}

	loaded, err := config.Load(workspace)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	cfg := loaded.Config

	env, err := loaded.InstrumentEnv()
	if err != nil {
		return fmt.Errorf("building instrumentation environment: %w", err)
	}

	disk := report.NewDiskStore()
	store := report.NewLRUStore(5, disk)

	r := &runner.Runner{
		Workspace: workspace,
		Timeout:   cfg.Timeout(),
		MaxOutput: cfg.MaxOutputBytes(),
	}

	server := covmcp.NewServer(cfg, env, r, store, workspace)

	if httpAddr != "" {
		return serveHTTP(ctx, server, httpAddr)
	}
	return server.Run(ctx, &mcpsdk.StdioTransport{})
}

func serveHTTP(ctx context.Context, server *mcpsdk.Server, addr string) error {
	handler := mcpsdk.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcpsdk.Server { return server },
		nil,
	)

	httpServer := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	go func() {
		<-ctx.Done()
		_ = httpServer.Close()
	}()

	log.Printf("listening on %s", addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// --- shared ---

func newEngine(timeoutOverride time.Duration) (*pipeline.Engine, error) {
	workspace, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("determining workspace: %w", err)
	}

	loaded, err := config.Load(workspace)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	cfg := loaded.Config

	env, err := loaded.InstrumentEnv()
	if err != nil {
		return nil, fmt.Errorf("building instrumentation environment: %w", err)
	}

	timeout := cfg.Timeout()
	if timeoutOverride > 0 {
		timeout = timeoutOverride
	}

	r := &runner.Runner{
		Workspace: workspace,
		Timeout:   timeout,
		MaxOutput: cfg.MaxOutputBytes(),
	}

	return &pipeline.Engine{
		Config:        cfg,
		Runner:        r,
		Workspace:     workspace,
		InstrumentEnv: env,
	}, nil
}
