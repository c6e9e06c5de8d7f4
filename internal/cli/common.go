package cli

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ksyq12/sitectl/internal/config"
	errs "github.com/ksyq12/sitectl/internal/errors"
	"github.com/ksyq12/sitectl/internal/executor"
	"github.com/ksyq12/sitectl/internal/input"
	"github.com/ksyq12/sitectl/internal/lifecycle"
	"github.com/ksyq12/sitectl/internal/lock"
	"github.com/ksyq12/sitectl/internal/logger"
	"github.com/ksyq12/sitectl/internal/metrics"
	"github.com/ksyq12/sitectl/internal/output"
	"github.com/ksyq12/sitectl/internal/registry"
	"github.com/ksyq12/sitectl/internal/runtimes"
)

// reported is set once a command has printed its own result, so Execute
// does not print the returned error a second time.
var reported bool

// session holds everything one command needs, built from the config.
type session struct {
	cfg     *config.Config
	reg     registry.Registry
	exec    *executor.Executor
	mgr     *lifecycle.Manager
	metrics *metrics.Metrics
}

// openSession loads the config and wires the registry, executor and
// lifecycle manager. The caller must close it.
func openSession(ctx context.Context) (*session, error) {
	cfg, err := deps.ConfigLoader.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if rootCmd.PersistentFlags().Changed("simulate") {
		cfg.Simulate = simulate
	}
	if !verbose {
		level, err := logger.ParseLevel(cfg.LogLevel)
		if err != nil {
			logger.Warn("%v, using warn", err)
		}
		logger.SetLevel(level)
	}

	reg, err := registry.Open(ctx, cfg.Registry.Driver, cfg.Registry.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open registry: %w", err)
	}

	m := metrics.New()
	exec := executor.New(executor.Options{
		Simulate:          cfg.Simulate,
		ProxyBin:          cfg.Binaries.Proxy,
		ServiceManagerBin: cfg.Binaries.ServiceManager,
		ServiceTemplate:   cfg.Binaries.ServiceTemplate,
		Timeout:           cfg.CommandTimeout,
		MaxConcurrent:     cfg.MaxConcurrentCommands,
	}, deps.Runner, m)

	mgr := lifecycle.New(lifecycle.Options{
		Base:              cfg.BaseDirs(),
		WebUser:           cfg.WebUser,
		WebGroup:          cfg.WebGroup,
		ProxyTemplatePath: cfg.Templates.Proxy,
		PoolTemplatePath:  cfg.Templates.Pool,
		IndexTemplatePath: cfg.Templates.Index,
	}, reg, exec, lock.NewKeyed(cfg.LockDir), m)

	logger.DebugFields("session", logger.Fields{
		"registry": cfg.Registry.Driver,
		"simulate": cfg.Simulate,
	})
	return &session{cfg: cfg, reg: reg, exec: exec, mgr: mgr, metrics: m}, nil
}

// close exports metrics when configured and releases the registry.
func (s *session) close() {
	if err := s.metrics.WriteTextfile(s.cfg.MetricsTextfile); err != nil {
		logger.Warn("failed to write metrics: %v", err)
	}
	if err := s.reg.Close(); err != nil {
		logger.Warn("failed to close registry: %v", err)
	}
}

// requireRoot checks privileges for commands that touch system paths.
// Simulated runs are exempt.
func (s *session) requireRoot() error {
	if s.cfg.Simulate {
		return nil
	}
	return deps.RootChecker.RequireRoot()
}

func (s *session) detector() *runtimes.Detector {
	return &runtimes.Detector{
		Simulate:    s.cfg.Simulate,
		Explicit:    s.cfg.RuntimeVersions,
		PoolBase:    s.cfg.Paths.PoolBase,
		BinTemplate: s.cfg.Binaries.RuntimeTemplate,
		Runner:      deps.Runner,
	}
}

func contextOf(cmd *cobra.Command) context.Context {
	if cmd != nil && cmd.Context() != nil {
		return cmd.Context()
	}
	return context.Background()
}

// progress prints an info line unless the output is JSON.
func progress(format string, args ...any) {
	if !jsonOutput {
		output.Info(format, args...)
	}
}

// CommandResult is the JSON shape of a lifecycle command's outcome.
type CommandResult struct {
	Success  bool             `json:"success"`
	Hostname string           `json:"hostname,omitempty"`
	Action   string           `json:"action,omitempty"`
	Message  string           `json:"message,omitempty"`
	Code     string           `json:"code,omitempty"`
	Result   *executor.Result `json:"result,omitempty"`
}

// report prints the outcome of a lifecycle operation and returns err, so
// the command exits non-zero on failure.
func report(action, hostname string, res executor.Result, err error, successMsg string, args ...any) error {
	if jsonOutput {
		out := CommandResult{
			Success:  err == nil,
			Hostname: hostname,
			Action:   action,
			Message:  res.Message(),
		}
		if res != (executor.Result{}) {
			out.Result = &res
		}
		if err != nil {
			out.Message = err.Error()
			out.Code = string(errs.CodeOf(err))
		}
		reported = true
		if jerr := output.JSON(out); jerr != nil {
			return jerr
		}
		return err
	}

	if err != nil {
		return err
	}
	output.Success(successMsg, args...)
	if msg := res.Message(); msg != "" {
		output.Print("  %s", msg)
	}
	return nil
}

// hostnamePattern is DNS label syntax with optional punycode prefixes.
var hostnamePattern = regexp.MustCompile(
	`^(xn--)?[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?(\.(xn--)?[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?)*$`)

// validateHostname trims and lowercases hostname and checks it is a valid
// DNS name of at most 253 characters.
func validateHostname(hostname string) (string, error) {
	hostname = strings.ToLower(strings.TrimSpace(hostname))
	if hostname == "" {
		return "", errs.Validation("hostname cannot be empty")
	}
	if len(hostname) > 253 {
		return "", errs.Validation("hostname is longer than 253 characters")
	}
	if !hostnamePattern.MatchString(hostname) {
		return "", errs.Validation("invalid hostname " + hostname + ": only letters, digits, hyphens and dots are allowed")
	}
	for _, label := range strings.Split(hostname, ".") {
		if len(label) > 63 {
			return "", errs.Validation("hostname label " + label + " is longer than 63 characters")
		}
	}
	return hostname, nil
}

var versionPattern = regexp.MustCompile(`^\d+\.\d+$`)

// validateVersion checks a runtime version looks like "8.2".
func validateVersion(v string) error {
	if !versionPattern.MatchString(v) {
		return errs.Validation("invalid PHP version " + v + ": expected MAJOR.MINOR, e.g. 8.2")
	}
	return nil
}

// readContent returns the content of file, or of stdin when file is "-".
func readContent(file string) (string, error) {
	if file == "-" {
		content, err := input.ReadAll(deps.StdinReader)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return content, nil
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", file, err)
	}
	return string(data), nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
