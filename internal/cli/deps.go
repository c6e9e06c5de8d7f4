package cli

import (
	"errors"
	"os"
	"os/exec"

	"github.com/ksyq12/sitectl/internal/config"
	"github.com/ksyq12/sitectl/internal/executor"
	"github.com/ksyq12/sitectl/internal/input"
)

// Dependencies aggregates all CLI external dependencies for testability
type Dependencies struct {
	ConfigLoader  ConfigLoader
	Runner        executor.Runner
	RootChecker   RootChecker
	StdinReader   input.Reader
	CommandRunner CommandRunner
}

// ConfigLoader loads the configuration from path (default location when empty)
type ConfigLoader interface {
	Load(path string) (*config.Config, error)
}

// RootChecker checks root privileges
type RootChecker interface {
	RequireRoot() error
}

// CommandRunner runs interactive commands attached to the terminal
type CommandRunner interface {
	RunInteractive(name string, args ...string) error
	LookPath(file string) (string, error)
}

// Package-level dependencies (can be overridden for testing)
var deps = &Dependencies{
	ConfigLoader:  &realConfigLoader{},
	Runner:        executor.NewSystemRunner(),
	RootChecker:   &realRootChecker{},
	StdinReader:   input.NewStdinReader(),
	CommandRunner: &realCommandRunner{},
}

// SetDeps replaces the package dependencies (for testing)
func SetDeps(d *Dependencies) {
	deps = d
}

// GetDeps returns the current dependencies (for testing)
func GetDeps() *Dependencies {
	return deps
}

type realConfigLoader struct{}

func (r *realConfigLoader) Load(path string) (*config.Config, error) {
	return config.Load(path)
}

type realRootChecker struct{}

func (r *realRootChecker) RequireRoot() error {
	if os.Geteuid() != 0 {
		return errRootRequired
	}
	return nil
}

type realCommandRunner struct{}

func (r *realCommandRunner) RunInteractive(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func (r *realCommandRunner) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

// errRootRequired is the sentinel error for root privilege check
var errRootRequired = errors.New("this operation requires root privileges. Please run with sudo, or enable simulate")
