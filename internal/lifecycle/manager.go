// Package lifecycle keeps a site's filesystem artifacts, the proxy's active
// config set, the runtime pool and the registry record consistent with one
// another.
//
// The Manager is the only writer of site artifacts. Every operation holds
// the site's lock for its whole duration, so two operations on the same
// hostname never interleave, while different hostnames proceed in parallel.
// Registry records are written only after the step they describe succeeded.
//
// # Failure Model
//
// Enable rolls back the activation link when the proxy rejects the new
// config set or fails to reload. Disable and ChangeRuntime do not roll back:
// when they fail after touching the disk they return an INCONSISTENT error
// wrapping the underlying failure, and the site needs operator attention.
// Rollback failures are joined into the returned error.
//
// Once an operation has started it runs to completion; cancelling ctx only
// affects waiting for the site lock.
package lifecycle

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	errs "github.com/ksyq12/sitectl/internal/errors"
	"github.com/ksyq12/sitectl/internal/executor"
	"github.com/ksyq12/sitectl/internal/lock"
	"github.com/ksyq12/sitectl/internal/logger"
	"github.com/ksyq12/sitectl/internal/metrics"
	"github.com/ksyq12/sitectl/internal/paths"
	"github.com/ksyq12/sitectl/internal/registry"
)

// Controller validates and reloads the proxy and runtime services.
// *executor.Executor implements it.
type Controller interface {
	Validate(ctx context.Context) executor.Result
	ReloadProxy(ctx context.Context) executor.Result
	ReloadRuntime(ctx context.Context, version string) executor.Result
}

// Options configure a Manager.
type Options struct {
	Base              paths.BaseDirs
	WebUser           string
	WebGroup          string
	ProxyTemplatePath string // empty uses the embedded default
	PoolTemplatePath  string
	IndexTemplatePath string
}

// Operation names, used for logs and metrics.
const (
	OpProvision        = "provision"
	OpEnable           = "enable"
	OpDisable          = "disable"
	OpReconfigure      = "reconfigure"
	OpChangeRuntime    = "change_runtime"
	OpDestroy          = "destroy"
	OpUpdateExtensions = "update_extensions"
)

// Manager runs site lifecycle operations.
type Manager struct {
	opts    Options
	reg     registry.Registry
	ctl     Controller
	locks   *lock.Keyed
	metrics *metrics.Metrics
}

// New creates a Manager. locks may be nil for an in-process lock set and m
// may be nil to disable metrics.
func New(opts Options, reg registry.Registry, ctl Controller, locks *lock.Keyed, m *metrics.Metrics) *Manager {
	if locks == nil {
		locks = lock.NewKeyed("")
	}
	return &Manager{
		opts:    opts,
		reg:     reg,
		ctl:     ctl,
		locks:   locks,
		metrics: m,
	}
}

// Options returns the manager's options.
func (m *Manager) Options() Options {
	return m.opts
}

// Resolve returns the artifact paths of hostname under version.
func (m *Manager) Resolve(hostname, version string) paths.PathSet {
	return paths.Resolve(hostname, version, m.opts.Base)
}

// Get returns the registry record for hostname.
func (m *Manager) Get(ctx context.Context, hostname string) (*registry.Site, error) {
	return m.reg.Get(ctx, hostname)
}

// List returns all registered sites ordered by hostname.
func (m *Manager) List(ctx context.Context) ([]*registry.Site, error) {
	return m.reg.List(ctx)
}

// UpdateExtensions replaces the informational extension list of hostname.
func (m *Manager) UpdateExtensions(ctx context.Context, hostname string, extensions []string) (*registry.Site, error) {
	var site *registry.Site
	err := m.do(ctx, OpUpdateExtensions, hostname, func(o *op) error {
		s, err := m.reg.Get(ctx, hostname)
		if err != nil {
			return err
		}
		s.Extensions = registry.NormalizeExtensions(extensions)
		if err := m.reg.Update(ctx, s); err != nil {
			return err
		}
		site = s
		return nil
	})
	return site, err
}

// op carries the correlation data of one running operation.
type op struct {
	name string
	id   string
	host string
}

func (o *op) step(name string) {
	logger.DebugFields(o.name, logger.Fields{"op": o.id, "host": o.host, "step": name})
}

func (o *op) warn(msg string, err error) {
	logger.WarnFields(msg, logger.Fields{"op": o.id, "host": o.host, "error": err})
}

// do runs fn under the hostname lock, logging and timing it.
func (m *Manager) do(ctx context.Context, name, hostname string, fn func(o *op) error) error {
	if err := checkHostname(hostname); err != nil {
		return err
	}

	unlock, err := m.locks.Lock(ctx, hostname)
	if err != nil {
		return errs.Wrap(errs.ErrCodeInternal, "failed to lock site "+hostname, err)
	}
	defer unlock()

	o := &op{name: name, id: uuid.NewString(), host: hostname}
	start := time.Now()
	o.step("start")

	err = fn(o)

	elapsed := time.Since(start)
	m.metrics.ObserveOperation(name, err, elapsed)

	fields := logger.Fields{"op": o.id, "host": hostname, "took": elapsed.Round(time.Millisecond)}
	switch {
	case err == nil:
		logger.InfoFields(name, fields)
	case errs.IsInconsistent(err):
		fields["error"] = err
		logger.WarnFields(name+" left site inconsistent", fields)
	default:
		fields["error"] = err
		fields["code"] = errs.CodeOf(err)
		logger.InfoFields(name+" failed", fields)
	}
	return err
}

// checkHostname rejects names that would escape the base directories.
// Full DNS validation happens at the edge.
func checkHostname(hostname string) error {
	switch {
	case hostname == "":
		return errs.Validation("hostname cannot be empty")
	case strings.ContainsAny(hostname, `/\`), strings.Contains(hostname, ".."), strings.HasPrefix(hostname, "."):
		return errs.Validation("invalid hostname: " + hostname)
	}
	return nil
}

// checkVersion rejects runtime versions that would escape the pool base.
func checkVersion(version string) error {
	switch {
	case version == "":
		return errs.Validation("runtime version is required")
	case strings.ContainsAny(version, `/\`), strings.Contains(version, ".."), strings.HasPrefix(version, "."):
		return errs.Validation("invalid runtime version: " + version)
	}
	return nil
}

// onHost fills in the hostname of a SiteError that was raised without one.
func onHost(err error, hostname string) error {
	var se *errs.SiteError
	if errs.As(err, &se) && se.Hostname == "" {
		se.Hostname = hostname
	}
	return err
}

// pathsOf resolves the current artifact paths of site.
func (m *Manager) pathsOf(site *registry.Site) paths.PathSet {
	return paths.Resolve(site.Hostname, site.RuntimeVersion, m.opts.Base)
}
