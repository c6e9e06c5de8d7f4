package cli

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"

	"github.com/ksyq12/sitectl/internal/config"
	"github.com/ksyq12/sitectl/internal/executor"
	"github.com/ksyq12/sitectl/internal/input"
	"github.com/ksyq12/sitectl/internal/output"
)

// MockConfigLoader is a test double for ConfigLoader
type MockConfigLoader struct {
	Cfg     *config.Config
	LoadErr error
	Paths   []string
}

func (m *MockConfigLoader) Load(path string) (*config.Config, error) {
	m.Paths = append(m.Paths, path)
	if m.LoadErr != nil {
		return nil, m.LoadErr
	}
	if m.Cfg == nil {
		m.Cfg = config.New()
	}
	return m.Cfg, nil
}

// MockRootChecker is a test double for RootChecker
type MockRootChecker struct {
	IsRoot bool
	Calls  int
}

func (m *MockRootChecker) RequireRoot() error {
	m.Calls++
	if !m.IsRoot {
		return errRootRequired
	}
	return nil
}

// MockCommandRunner is a test double for CommandRunner
type MockCommandRunner struct {
	Calls        [][]string
	LookPathFunc func(file string) (string, error)
	RunFunc      func(name string, args ...string) error
	Err          error
}

func (m *MockCommandRunner) RunInteractive(name string, args ...string) error {
	m.Calls = append(m.Calls, append([]string{name}, args...))
	if m.RunFunc != nil {
		return m.RunFunc(name, args...)
	}
	return m.Err
}

func (m *MockCommandRunner) LookPath(file string) (string, error) {
	if m.LookPathFunc != nil {
		return m.LookPathFunc(file)
	}
	if m.Err != nil {
		return "", m.Err
	}
	return "/usr/bin/" + file, nil
}

// MockDependenciesBuilder helps create mock dependencies for tests
type MockDependenciesBuilder struct {
	deps *Dependencies
}

// NewMockDeps creates a new MockDependenciesBuilder with sensible defaults
func NewMockDeps() *MockDependenciesBuilder {
	return &MockDependenciesBuilder{
		deps: &Dependencies{
			ConfigLoader:  &MockConfigLoader{Cfg: config.New()},
			Runner:        &executor.MockRunner{},
			RootChecker:   &MockRootChecker{IsRoot: true},
			StdinReader:   input.NewStringReader("y\n"),
			CommandRunner: &MockCommandRunner{},
		},
	}
}

// WithConfig sets the config for the mock
func (b *MockDependenciesBuilder) WithConfig(cfg *config.Config) *MockDependenciesBuilder {
	b.deps.ConfigLoader = &MockConfigLoader{Cfg: cfg}
	return b
}

// WithConfigLoader sets a custom config loader
func (b *MockDependenciesBuilder) WithConfigLoader(loader ConfigLoader) *MockDependenciesBuilder {
	b.deps.ConfigLoader = loader
	return b
}

// WithRunner sets the runner behind the executor and runtime detection
func (b *MockDependenciesBuilder) WithRunner(r executor.Runner) *MockDependenciesBuilder {
	b.deps.Runner = r
	return b
}

// WithRootAccess sets whether root access is available
func (b *MockDependenciesBuilder) WithRootAccess(isRoot bool) *MockDependenciesBuilder {
	b.deps.RootChecker = &MockRootChecker{IsRoot: isRoot}
	return b
}

// WithStdinInput sets the stdin input for the mock
func (b *MockDependenciesBuilder) WithStdinInput(inputs ...string) *MockDependenciesBuilder {
	b.deps.StdinReader = input.NewStringReader(inputs...)
	return b
}

// WithCommandRunner sets the interactive command runner
func (b *MockDependenciesBuilder) WithCommandRunner(r CommandRunner) *MockDependenciesBuilder {
	b.deps.CommandRunner = r
	return b
}

// Build returns the configured Dependencies
func (b *MockDependenciesBuilder) Build() *Dependencies {
	return b.deps
}

// TestHelper wires the CLI to a throwaway directory tree for tests.
type TestHelper struct {
	T interface {
		Helper()
		Cleanup(func())
		TempDir() string
	}
	OldDeps *Dependencies
	Cfg     *config.Config
	Runner  *executor.MockRunner
	Cmds    *MockCommandRunner
	Out     *bytes.Buffer
}

// NewTestHelper points a simulated config at a temporary directory tree,
// installs mock dependencies and captures output until the test ends.
func NewTestHelper(t interface {
	Helper()
	Cleanup(func())
	TempDir() string
}) *TestHelper {
	t.Helper()

	root := t.TempDir()
	cfg := config.New()
	cfg.DataDir = root
	cfg.Paths = config.Paths{
		Webroot:        filepath.Join(root, "www"),
		ProxyAvailable: filepath.Join(root, "nginx", "sites-available"),
		ProxyEnabled:   filepath.Join(root, "nginx", "sites-enabled"),
		PoolBase:       filepath.Join(root, "php"),
		SocketBase:     filepath.Join(root, "run", "php"),
		LogBase:        filepath.Join(root, "logs"),
	}
	cfg.Registry = config.Registry{Driver: "yaml", Path: filepath.Join(root, "sites.yaml")}
	cfg.LockDir = filepath.Join(root, "locks")
	cfg.RuntimeVersions = []string{"8.2", "8.3"}
	cfg.Simulate = true

	h := &TestHelper{
		T:       t,
		OldDeps: deps,
		Cfg:     cfg,
		Runner:  &executor.MockRunner{},
		Cmds:    &MockCommandRunner{},
		Out:     &bytes.Buffer{},
	}

	deps = NewMockDeps().
		WithConfig(cfg).
		WithRunner(h.Runner).
		WithCommandRunner(h.Cmds).
		Build()
	output.SetOutput(h.Out)

	oldJSON, oldSimulate := jsonOutput, simulate
	t.Cleanup(func() {
		deps = h.OldDeps
		output.SetOutput(nil)
		jsonOutput, simulate = oldJSON, oldSimulate
		reported = false
	})
	return h
}

// SetRootAccess sets whether root access is available
func (h *TestHelper) SetRootAccess(isRoot bool) {
	deps.RootChecker = &MockRootChecker{IsRoot: isRoot}
}

// SetStdinInput sets the stdin input
func (h *TestHelper) SetStdinInput(inputs ...string) {
	deps.StdinReader = input.NewStringReader(inputs...)
}

// FailCommand makes every real command whose name is name fail with stderr.
// It also turns simulation off so commands reach the runner.
func (h *TestHelper) FailCommand(name, stderr string) {
	h.Cfg.Simulate = false
	h.Runner.RunFunc = func(_ context.Context, cmd string, args ...string) ([]byte, []byte, error) {
		if cmd == name {
			return nil, []byte(stderr), errors.New("exit status 1")
		}
		return nil, nil, nil
	}
}

// Output returns everything printed so far and resets the buffer.
func (h *TestHelper) Output() string {
	s := h.Out.String()
	h.Out.Reset()
	return s
}
