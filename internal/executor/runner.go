package executor

import (
	"bytes"
	"context"
	"os/exec"
	"sync"
)

// Runner runs external programs. It is the seam tests replace with
// MockRunner.
type Runner interface {
	// Run executes name with args and returns its stdout and stderr.
	// err is non-nil when the program could not start or exited non-zero.
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)

	// LookPath searches for an executable in the directories named by PATH.
	LookPath(file string) (string, error)
}

// SystemRunner implements Runner using os/exec.
type SystemRunner struct{}

// NewSystemRunner creates a new SystemRunner.
func NewSystemRunner() *SystemRunner {
	return &SystemRunner{}
}

// Run executes the command with separate stdout and stderr buffers.
func (r *SystemRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// LookPath searches for an executable.
func (r *SystemRunner) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

// MockRunner is a Runner for tests. It records every call and delegates to
// RunFunc / LookPathFunc when set. Recorded calls are read with CallLines,
// which is safe while other goroutines keep running commands.
type MockRunner struct {
	RunFunc      func(ctx context.Context, name string, args ...string) ([]byte, []byte, error)
	LookPathFunc func(file string) (string, error)

	mu    sync.Mutex
	calls []CommandCall
}

// CommandCall records a command execution for verification.
type CommandCall struct {
	Name string
	Args []string
}

// String renders the call as a command line.
func (c CommandCall) String() string {
	return commandLine(c.Name, c.Args)
}

// Run records the call and calls the mock function.
func (m *MockRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	m.mu.Lock()
	m.calls = append(m.calls, CommandCall{Name: name, Args: args})
	m.mu.Unlock()
	if m.RunFunc != nil {
		return m.RunFunc(ctx, name, args...)
	}
	return nil, nil, nil
}

// LookPath calls the mock function.
func (m *MockRunner) LookPath(file string) (string, error) {
	if m.LookPathFunc != nil {
		return m.LookPathFunc(file)
	}
	return "/usr/bin/" + file, nil
}

// CallLines returns the recorded calls as command lines.
func (m *MockRunner) CallLines() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	lines := make([]string, len(m.calls))
	for i, c := range m.calls {
		lines[i] = c.String()
	}
	return lines
}
