// Package config loads and validates the optional .covpipe YAML file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values for runner configuration.
const (
	DefaultTimeout   = 10 * time.Minute
	DefaultMaxOutput = 4 << 20 // 4 MB
)

// Defaults for the wrapped toolchain. These are the LLVM source-based
// coverage tools as driven by cargo; every one of them can be replaced
// via .covpipe.
var (
	DefaultDiscoverArgs = []string{"cargo", "test", "--tests", "--no-run", "--message-format=json"}
	DefaultMergeArgs    = []string{"llvm-profdata", "merge", "-sparse"}
	DefaultReportArgs   = []string{"llvm-cov"}
)

// Defaults for instrumentation and artifact naming.
const (
	DefaultInstrumentVar   = "RUSTFLAGS"
	DefaultInstrumentValue = "-C instrument-coverage"
	DefaultDemangler       = "rustfilt"
	DefaultExclude         = `/.cargo/registry`
	DefaultRawProfile      = "default.profraw"
	DefaultMergedProfile   = "default.profdata"
	DefaultHTMLReport      = "coverage.html"
)

// Config holds the parsed .covpipe configuration.
// All fields are optional; zero values represent defaults.
type Config struct {
	Version      int              `yaml:"version"`
	RawTimeout   string           `yaml:"timeout"`    // e.g. "10m", "30s"
	RawMaxOutput int              `yaml:"max_output"` // bytes
	EnvFile      string           `yaml:"env_file"`   // dotenv file merged into the discovery environment
	Instrument   InstrumentConfig `yaml:"instrument"`
	Discover     DiscoverConfig   `yaml:"discover"`
	Merge        MergeConfig      `yaml:"merge"`
	Report       ReportConfig     `yaml:"report"`
	Artifacts    ArtifactsConfig  `yaml:"artifacts"`
}

// InstrumentConfig identifies the environment variable that switches
// coverage instrumentation on. It is applied to the discovery child
// process only.
type InstrumentConfig struct {
	Var   string `yaml:"var"`   // e.g. RUSTFLAGS
	Value string `yaml:"value"` // e.g. -C instrument-coverage
}

// DiscoverConfig controls the build-and-list-tests invocation.
type DiscoverConfig struct {
	Args []string `yaml:"args"` // full argv; must emit JSON records on stdout
}

// MergeConfig controls the profile-merge invocation.
type MergeConfig struct {
	Args []string `yaml:"args"` // argv prefix; raw profile and -o <merged> are appended
}

// ReportConfig controls the report-render invocations.
type ReportConfig struct {
	Args      []string `yaml:"args"`      // argv prefix; subcommand and flags are appended
	Demangler string   `yaml:"demangler"` // symbol demangler passed to the report tool
	Exclude   string   `yaml:"exclude"`   // filename-exclusion regex for the report
}

// ArtifactsConfig names the files the pipeline writes into the workspace.
type ArtifactsConfig struct {
	Raw    string `yaml:"raw"`    // raw profile written by the instrumented run
	Merged string `yaml:"merged"` // consolidated profile-data file
	HTML   string `yaml:"html"`   // HTML report
}

// Timeout returns the configured per-invocation timeout or the default.
func (c *Config) Timeout() time.Duration {
	if c.RawTimeout != "" {
		d, err := time.ParseDuration(c.RawTimeout)
		if err == nil && d > 0 {
			return d
		}
	}
	return DefaultTimeout
}

// MaxOutputBytes returns the configured max output size or the default.
func (c *Config) MaxOutputBytes() int {
	if c.RawMaxOutput > 0 {
		return c.RawMaxOutput
	}
	return DefaultMaxOutput
}

// DiscoverArgs returns the build-and-list argv, falling back to cargo.
func (c *Config) DiscoverArgs() []string {
	if len(c.Discover.Args) > 0 {
		return c.Discover.Args
	}
	return DefaultDiscoverArgs
}

// MergeArgs returns the merge-tool argv prefix, falling back to llvm-profdata.
func (c *Config) MergeArgs() []string {
	if len(c.Merge.Args) > 0 {
		return c.Merge.Args
	}
	return DefaultMergeArgs
}

// ReportArgs returns the report-tool argv prefix, falling back to llvm-cov.
func (c *Config) ReportArgs() []string {
	if len(c.Report.Args) > 0 {
		return c.Report.Args
	}
	return DefaultReportArgs
}

// InstrumentVar returns the instrumentation variable name.
func (c *Config) InstrumentVar() string {
	if c.Instrument.Var != "" {
		return c.Instrument.Var
	}
	return DefaultInstrumentVar
}

// InstrumentValue returns the instrumentation variable value.
func (c *Config) InstrumentValue() string {
	if c.Instrument.Value != "" {
		return c.Instrument.Value
	}
	return DefaultInstrumentValue
}

// Demangler returns the demangler tool name for report rendering.
func (c *Config) Demangler() string {
	if c.Report.Demangler != "" {
		return c.Report.Demangler
	}
	return DefaultDemangler
}

// Exclude returns the filename-exclusion regex for report rendering.
func (c *Config) Exclude() string {
	if c.Report.Exclude != "" {
		return c.Report.Exclude
	}
	return DefaultExclude
}

// RawProfile returns the raw profile artifact name.
func (c *Config) RawProfile() string {
	if c.Artifacts.Raw != "" {
		return c.Artifacts.Raw
	}
	return DefaultRawProfile
}

// MergedProfile returns the merged profile-data file name.
func (c *Config) MergedProfile() string {
	if c.Artifacts.Merged != "" {
		return c.Artifacts.Merged
	}
	return DefaultMergedProfile
}

// HTMLReport returns the HTML report file name.
func (c *Config) HTMLReport() string {
	if c.Artifacts.HTML != "" {
		return c.Artifacts.HTML
	}
	return DefaultHTMLReport
}

// manifests are the build files that mark a project root, checked in order.
var manifests = []string{"Cargo.toml", "go.mod", "meson.build", "CMakeLists.txt", "Makefile"}

// LoadResult holds the parsed config and the discovered project root.
type LoadResult struct {
	Config      *Config
	ProjectRoot string // directory containing a build manifest; falls back to workspace
	Manifest    string // the manifest file found, empty if none
}

// Load reads the .covpipe file from the project root.
// The project root is discovered by walking upward from workspace looking
// for a build manifest. If no .covpipe file exists, a default Config is
// returned.
func Load(workspace string) (*LoadResult, error) {
	root, manifest, err := findProjectRoot(workspace)
	if err != nil {
		// No manifest found; use workspace as root.
		root = workspace
		manifest = ""
	}

	path := filepath.Join(root, ".covpipe")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &LoadResult{Config: &Config{}, ProjectRoot: root, Manifest: manifest}, nil
		}
		return nil, fmt.Errorf("reading .covpipe: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing .covpipe: %w", err)
	}
	return &LoadResult{Config: cfg, ProjectRoot: root, Manifest: manifest}, nil
}

// findProjectRoot walks upward from dir looking for a directory containing
// one of the known build manifests.
func findProjectRoot(dir string) (string, string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", "", err
	}
	for {
		for _, m := range manifests {
			if _, err := os.Stat(filepath.Join(dir, m)); err == nil {
				return dir, m, nil
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", "", fmt.Errorf("no build manifest found")
		}
		dir = parent
	}
}
