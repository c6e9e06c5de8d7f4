// Package executor runs the proxy and runtime-service commands the
// lifecycle depends on: the proxy syntax check, the proxy reload and the
// runtime service reload.
//
// Every call returns a Result instead of an error so the lifecycle can
// surface the program's own output verbatim. In simulation mode nothing is
// executed and every call succeeds with a "Simulated: <command>" message.
// Real calls are bounded by a timeout and by a process-wide semaphore so a
// burst of operations cannot fork unbounded proxy processes.
package executor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/ksyq12/sitectl/internal/logger"
	"github.com/ksyq12/sitectl/internal/metrics"
)

// Defaults applied by New for zero-valued options.
const (
	DefaultTimeout         = 30 * time.Second
	DefaultMaxConcurrent   = 4
	DefaultProxyBin        = "nginx"
	DefaultServiceManager  = "systemctl"
	DefaultServiceTemplate = "php{version}-fpm"
)

// Metric action labels.
const (
	ActionValidate      = "validate"
	ActionReloadProxy   = "reload_proxy"
	ActionReloadRuntime = "reload_runtime"
)

// Result is the outcome of one external command.
type Result struct {
	Success bool
	Stdout  string
	Stderr  string
}

// Message returns stdout on success, otherwise stderr, otherwise a generic
// failure text.
func (r Result) Message() string {
	if r.Success {
		return r.Stdout
	}
	if r.Stderr != "" {
		return r.Stderr
	}
	return "command failed"
}

// MarshalJSON includes the derived message.
func (r Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Success bool   `json:"success"`
		Stdout  string `json:"stdout"`
		Stderr  string `json:"stderr"`
		Message string `json:"message"`
	}{r.Success, r.Stdout, r.Stderr, r.Message()})
}

// Options configure an Executor.
type Options struct {
	Simulate          bool
	ProxyBin          string
	ServiceManagerBin string
	ServiceTemplate   string // "{version}" is replaced with the runtime version
	Timeout           time.Duration
	MaxConcurrent     int
}

// Executor runs proxy and runtime commands.
type Executor struct {
	opts    Options
	runner  Runner
	sem     *semaphore.Weighted
	metrics *metrics.Metrics
}

// New creates an Executor. A nil runner uses SystemRunner; m may be nil.
func New(opts Options, runner Runner, m *metrics.Metrics) *Executor {
	if opts.ProxyBin == "" {
		opts.ProxyBin = DefaultProxyBin
	}
	if opts.ServiceManagerBin == "" {
		opts.ServiceManagerBin = DefaultServiceManager
	}
	if opts.ServiceTemplate == "" {
		opts.ServiceTemplate = DefaultServiceTemplate
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = DefaultMaxConcurrent
	}
	if runner == nil {
		runner = NewSystemRunner()
	}
	return &Executor{
		opts:    opts,
		runner:  runner,
		sem:     semaphore.NewWeighted(int64(opts.MaxConcurrent)),
		metrics: m,
	}
}

// Simulated reports whether commands are simulated.
func (e *Executor) Simulated() bool {
	return e.opts.Simulate
}

// Options returns the effective options.
func (e *Executor) Options() Options {
	return e.opts
}

// Validate runs the proxy syntax check ("nginx -t").
func (e *Executor) Validate(ctx context.Context) Result {
	return e.run(ctx, ActionValidate, e.opts.ProxyBin, "-t")
}

// ReloadProxy asks the proxy to reload its configuration.
func (e *Executor) ReloadProxy(ctx context.Context) Result {
	return e.run(ctx, ActionReloadProxy, e.opts.ProxyBin, "-s", "reload")
}

// ReloadRuntime reloads the runtime service for version.
func (e *Executor) ReloadRuntime(ctx context.Context, version string) Result {
	return e.run(ctx, ActionReloadRuntime, e.opts.ServiceManagerBin, "reload", e.ServiceName(version))
}

// ServiceName returns the runtime service unit for version.
func (e *Executor) ServiceName(version string) string {
	return strings.ReplaceAll(e.opts.ServiceTemplate, "{version}", version)
}

func (e *Executor) run(ctx context.Context, action, name string, args ...string) Result {
	line := commandLine(name, args)
	if e.opts.Simulate {
		logger.Debug("simulated: %s", line)
		e.metrics.ObserveCommand(action, true, 0)
		return Result{Success: true, Stdout: "Simulated: " + line}
	}

	// Once started a step runs to completion; only its own timeout stops it.
	ctx = context.WithoutCancel(ctx)
	if err := e.sem.Acquire(ctx, 1); err != nil {
		return Result{Stderr: err.Error()}
	}
	defer e.sem.Release(1)

	runCtx, cancel := context.WithTimeout(ctx, e.opts.Timeout)
	defer cancel()

	start := time.Now()
	stdout, stderr, err := e.runner.Run(runCtx, name, args...)
	elapsed := time.Since(start)

	res := Result{
		Stdout: strings.TrimSpace(string(stdout)),
		Stderr: strings.TrimSpace(string(stderr)),
	}
	switch {
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		res.Stderr = fmt.Sprintf("%s timed out after %s", line, e.opts.Timeout)
	case err != nil:
		if res.Stderr == "" {
			res.Stderr = err.Error()
		}
	default:
		res.Success = true
	}

	e.metrics.ObserveCommand(action, res.Success, elapsed)
	logger.DebugFields("command", logger.Fields{
		"cmd":     line,
		"success": res.Success,
		"took":    elapsed.Round(time.Millisecond),
	})
	return res
}

func commandLine(name string, args []string) string {
	if len(args) == 0 {
		return name
	}
	return name + " " + strings.Join(args, " ")
}
