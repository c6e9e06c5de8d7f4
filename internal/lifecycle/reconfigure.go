package lifecycle

import (
	"context"
	"strings"

	errs "github.com/ksyq12/sitectl/internal/errors"
	"github.com/ksyq12/sitectl/internal/executor"
	"github.com/ksyq12/sitectl/internal/fileutil"
	"github.com/ksyq12/sitectl/internal/paths"
	"github.com/ksyq12/sitectl/internal/registry"
)

// Reconfigure replaces the site's proxy config with text, validates the
// active set and reloads the proxy. The previous text is kept in the .bak
// sibling; a rejected config is not reverted.
func (m *Manager) Reconfigure(ctx context.Context, hostname, text string) (executor.Result, error) {
	var res executor.Result
	err := m.do(ctx, OpReconfigure, hostname, func(o *op) error {
		site, err := m.reg.Get(ctx, hostname)
		if err != nil {
			return err
		}
		ps := m.pathsOf(site)

		o.step("write proxy config")
		if err := fileutil.AtomicWrite(ps.ProxyConfig, text); err != nil {
			return onHost(err, hostname)
		}

		o.step("validate")
		res = m.ctl.Validate(ctx)
		if !res.Success {
			return errs.ValidationFailed(hostname, res.Message())
		}

		o.step("reload proxy")
		res = m.ctl.ReloadProxy(ctx)
		if !res.Success {
			return errs.ReloadFailed(hostname, "proxy", res.Message())
		}
		return nil
	})
	return res, err
}

// ChangeRuntime writes text as the site's pool config and, when version
// differs from the current one, moves the site to the new runtime: the pool
// is written at the new version's path and every reference to the old
// socket in the proxy config is rewritten. The registry is committed before
// the proxy and runtime are reloaded; a failure after a version switch is
// INCONSISTENT and is not rolled back. An empty version keeps the current
// one.
func (m *Manager) ChangeRuntime(ctx context.Context, hostname, text, version string) (executor.Result, error) {
	var res executor.Result
	if version != "" {
		if err := checkVersion(version); err != nil {
			return res, err
		}
	}
	err := m.do(ctx, OpChangeRuntime, hostname, func(o *op) error {
		site, err := m.reg.Get(ctx, hostname)
		if err != nil {
			return err
		}
		if version == "" || version == site.RuntimeVersion {
			res, err = m.rewritePool(ctx, o, site, text)
			return err
		}
		res, err = m.switchRuntime(ctx, o, site, text, version)
		return err
	})
	return res, err
}

// rewritePool replaces the pool config of the current runtime.
func (m *Manager) rewritePool(ctx context.Context, o *op, site *registry.Site, text string) (executor.Result, error) {
	host := site.Hostname
	ps := m.pathsOf(site)

	o.step("write pool config")
	if err := fileutil.AtomicWrite(ps.PoolConfig, text); err != nil {
		return executor.Result{}, onHost(err, host)
	}
	if site.PoolConfigPath != ps.PoolConfig || site.SocketPath != ps.Socket {
		site.PoolConfigPath, site.SocketPath = ps.PoolConfig, ps.Socket
		if err := m.reg.Update(ctx, site); err != nil {
			return executor.Result{}, err
		}
	}

	res, err := m.reloadAll(ctx, o, host, site.RuntimeVersion)
	if err != nil {
		return res, err
	}
	return poolUpdated(res), nil
}

// switchRuntime moves the site from its current runtime to version.
func (m *Manager) switchRuntime(ctx context.Context, o *op, site *registry.Site, text, version string) (executor.Result, error) {
	host := site.Hostname
	oldVersion := site.RuntimeVersion
	oldPS := m.pathsOf(site)
	newPS := paths.Resolve(host, version, m.opts.Base)

	if !fileutil.Exists(oldPS.ProxyConfig) {
		return executor.Result{}, errs.NotProvisioned(host, oldPS.ProxyConfig)
	}
	proxy, err := fileutil.ReadFile(oldPS.ProxyConfig)
	if err != nil {
		return executor.Result{}, onHost(err, host)
	}

	o.step("write pool config")
	if err := fileutil.AtomicWrite(newPS.PoolConfig, text); err != nil {
		return executor.Result{}, onHost(err, host)
	}

	o.step("rewrite proxy socket")
	for _, old := range uniq(site.SocketPath, oldPS.Socket) {
		proxy = strings.ReplaceAll(proxy, old, newPS.Socket)
	}
	if err := fileutil.AtomicWrite(oldPS.ProxyConfig, proxy); err != nil {
		// Nothing refers to the new pool yet.
		if rmErr := fileutil.RemovePath(newPS.PoolConfig); rmErr != nil {
			o.warn("failed to remove new pool config", rmErr)
			err = errs.Join(err, rmErr)
		}
		return executor.Result{}, onHost(err, host)
	}

	o.step("commit registry")
	site.RuntimeVersion = version
	site.PoolConfigPath = newPS.PoolConfig
	site.SocketPath = newPS.Socket
	if err := m.reg.Update(ctx, site); err != nil {
		return executor.Result{}, errs.Inconsistent(host, "runtime files switched but the registry update failed", err)
	}

	res, err := m.reloadAll(ctx, o, host, version)
	if err != nil {
		return res, errs.Inconsistent(host, "runtime switched to "+version+" but the change is not live", err)
	}

	o.step("retire old pool")
	for _, p := range []string{oldPS.PoolConfig, oldPS.PoolConfig + fileutil.BackupSuffix} {
		if err := fileutil.RemovePath(p); err != nil {
			o.warn("failed to remove old pool config", err)
		}
	}
	if r := m.ctl.ReloadRuntime(ctx, oldVersion); !r.Success {
		o.warn("old runtime did not reload", errs.ReloadFailed(host, "runtime "+oldVersion, r.Message()))
	}
	return poolUpdated(res), nil
}

// reloadAll validates the proxy set, then reloads the proxy and the runtime.
func (m *Manager) reloadAll(ctx context.Context, o *op, host, version string) (executor.Result, error) {
	o.step("validate")
	res := m.ctl.Validate(ctx)
	if !res.Success {
		return res, errs.ValidationFailed(host, res.Message())
	}

	o.step("reload proxy")
	res = m.ctl.ReloadProxy(ctx)
	if !res.Success {
		return res, errs.ReloadFailed(host, "proxy", res.Message())
	}

	o.step("reload runtime")
	res = m.ctl.ReloadRuntime(ctx, version)
	if !res.Success {
		return res, errs.ReloadFailed(host, "runtime "+version, res.Message())
	}
	return res, nil
}

func poolUpdated(res executor.Result) executor.Result {
	res.Stdout = "pool config updated"
	return res
}

// uniq returns the non-empty values of ss without duplicates, in order.
func uniq(ss ...string) []string {
	out := make([]string, 0, len(ss))
	seen := make(map[string]bool, len(ss))
	for _, s := range ss {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
