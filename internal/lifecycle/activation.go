package lifecycle

import (
	"context"

	errs "github.com/ksyq12/sitectl/internal/errors"
	"github.com/ksyq12/sitectl/internal/executor"
	"github.com/ksyq12/sitectl/internal/fileutil"
	"github.com/ksyq12/sitectl/internal/registry"
)

// Enable links the site's proxy config into the active set, validates the
// set and reloads the proxy. On validation or reload failure a disabled
// site is unlinked again and the registry is left untouched. Enabling an
// enabled site re-runs every step; when that fails its link is kept, so the
// site stays as live as it was before.
func (m *Manager) Enable(ctx context.Context, hostname string) (executor.Result, error) {
	var res executor.Result
	err := m.do(ctx, OpEnable, hostname, func(o *op) error {
		site, err := m.reg.Get(ctx, hostname)
		if err != nil {
			return err
		}
		res, err = m.enable(ctx, o, site)
		return err
	})
	return res, err
}

// Disable removes the site from the active set, validates and reloads.
// The link is not restored when validation or reload fails; the error is
// INCONSISTENT and wraps the failure.
func (m *Manager) Disable(ctx context.Context, hostname string) (executor.Result, error) {
	var res executor.Result
	err := m.do(ctx, OpDisable, hostname, func(o *op) error {
		site, err := m.reg.Get(ctx, hostname)
		if err != nil {
			return err
		}
		res, err = m.disable(ctx, o, site)
		return err
	})
	return res, err
}

func (m *Manager) enable(ctx context.Context, o *op, site *registry.Site) (executor.Result, error) {
	ps := m.pathsOf(site)
	host := site.Hostname

	if !fileutil.Exists(ps.ProxyConfig) {
		return executor.Result{}, errs.NotProvisioned(host, ps.ProxyConfig)
	}

	live := site.Enabled && fileutil.Exists(ps.ActivationLink)

	o.step("link")
	if err := fileutil.ReplaceLink(ps.ProxyConfig, ps.ActivationLink); err != nil {
		return executor.Result{}, onHost(err, host)
	}

	o.step("validate")
	res := m.ctl.Validate(ctx)
	if !res.Success {
		err := errs.ValidationFailed(host, res.Message())
		return res, m.rollbackEnable(ctx, o, site, live, err)
	}

	o.step("reload proxy")
	res = m.ctl.ReloadProxy(ctx)
	if !res.Success {
		err := errs.ReloadFailed(host, "proxy", res.Message())
		return res, m.rollbackEnable(ctx, o, site, live, err)
	}

	if !site.Enabled {
		site.Enabled = true
		if err := m.reg.Update(ctx, site); err != nil {
			return res, errs.Inconsistent(host, "site is active but the registry update failed", err)
		}
	}
	return res, nil
}

// rollbackEnable undoes a failed enable. A site that was live keeps its
// link. Otherwise the link is removed, and a registry record that claimed
// the site enabled is corrected to match.
func (m *Manager) rollbackEnable(ctx context.Context, o *op, site *registry.Site, live bool, cause error) error {
	if live {
		o.step("keep link")
		return cause
	}
	ps := m.pathsOf(site)
	if err := m.unlink(o, ps.ActivationLink, cause); err != cause {
		return err
	}
	if !site.Enabled {
		return cause
	}
	site.Enabled = false
	if err := m.reg.Update(ctx, site); err != nil {
		return errs.Inconsistent(site.Hostname, "activation link removed but the registry still says enabled", errs.Join(cause, err))
	}
	return cause
}

// unlink rolls back an activation link, joining a rollback failure into cause.
func (m *Manager) unlink(o *op, link string, cause error) error {
	o.step("rollback link")
	if err := fileutil.RemovePath(link); err != nil {
		o.warn("rollback failed, activation link left in place", err)
		return errs.Join(cause, onHost(err, o.host))
	}
	return cause
}

func (m *Manager) disable(ctx context.Context, o *op, site *registry.Site) (executor.Result, error) {
	ps := m.pathsOf(site)
	host := site.Hostname

	// Nothing changes for a site that is neither linked nor enabled, so its
	// failures are plain errors.
	changed := site.Enabled || fileutil.Exists(ps.ActivationLink)

	o.step("unlink")
	if err := fileutil.RemovePath(ps.ActivationLink); err != nil {
		return executor.Result{}, onHost(err, host)
	}

	o.step("validate")
	res := m.ctl.Validate(ctx)
	if !res.Success {
		err := errs.ValidationFailed(host, res.Message())
		if !changed {
			return res, err
		}
		return res, errs.Inconsistent(host, "activation link removed but the proxy config test failed", err)
	}

	o.step("reload proxy")
	res = m.ctl.ReloadProxy(ctx)
	if !res.Success {
		err := errs.ReloadFailed(host, "proxy", res.Message())
		if !changed {
			return res, err
		}
		return res, errs.Inconsistent(host, "activation link removed but the proxy did not reload", err)
	}

	if site.Enabled {
		site.Enabled = false
		if err := m.reg.Update(ctx, site); err != nil {
			return res, errs.Inconsistent(host, "site is inactive but the registry update failed", err)
		}
	}
	return res, nil
}
