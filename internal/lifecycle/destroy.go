package lifecycle

import (
	"context"
	"path/filepath"

	errs "github.com/ksyq12/sitectl/internal/errors"
	"github.com/ksyq12/sitectl/internal/executor"
	"github.com/ksyq12/sitectl/internal/fileutil"
	"github.com/ksyq12/sitectl/internal/paths"
	"github.com/ksyq12/sitectl/internal/registry"
)

// Destroy disables an enabled site, removes every artifact it owns and
// deletes its registry record. Removal errors are collected; when any
// occurred the record is kept and a FILESYSTEM error lists them all.
func (m *Manager) Destroy(ctx context.Context, hostname string) (executor.Result, error) {
	var res executor.Result
	err := m.do(ctx, OpDestroy, hostname, func(o *op) error {
		site, err := m.reg.Get(ctx, hostname)
		if err != nil {
			return err
		}

		if site.Enabled {
			if res, err = m.disable(ctx, o, site); err != nil {
				return err
			}
		}

		o.step("remove artifacts")
		var failed []error
		for _, target := range m.teardownTargets(site) {
			if err := fileutil.RemovePath(target); err != nil {
				failed = append(failed, err)
			}
		}
		if len(failed) > 0 {
			err := &errs.SiteError{
				Code:     errs.ErrCodeFilesystem,
				Message:  "failed to remove site files",
				Hostname: hostname,
				Err:      errs.Join(failed...),
			}
			res = executor.Result{Stderr: err.Error()}
			return err
		}

		o.step("delete record")
		if err := m.reg.Delete(ctx, hostname); err != nil {
			return errs.Inconsistent(hostname, "site files removed but the registry delete failed", err)
		}
		res = executor.Result{Success: true, Stdout: "Removed files for " + hostname}
		return nil
	})
	return res, err
}

// teardownTargets lists what Destroy removes, in removal order: the union
// of the freshly resolved paths and the paths stored in the record.
func (m *Manager) teardownTargets(site *registry.Site) []string {
	ps := m.pathsOf(site)
	webroot := m.opts.Base.Webroot

	docRoots := uniq(site.DocumentRoot, ps.DocumentRoot)
	for i, dr := range docRoots {
		if parent := filepath.Dir(dr); webroot != "" && paths.Within(parent, webroot) {
			docRoots[i] = parent
		}
	}

	proxies := uniq(ps.ProxyConfig, site.ProxyConfigPath)
	pools := uniq(ps.PoolConfig, site.PoolConfigPath)

	var targets []string
	targets = append(targets, ps.ActivationLink)
	targets = append(targets, withSiblings(proxies)...)
	targets = append(targets, withSiblings(pools)...)
	targets = append(targets, uniq(ps.Socket, site.SocketPath)...)
	targets = append(targets, docRoots...)
	targets = append(targets, ps.LogDir)
	return uniq(targets...)
}

func withSiblings(files []string) []string {
	out := make([]string, 0, len(files)*3)
	for _, f := range files {
		out = append(out, f, f+fileutil.BackupSuffix, f+fileutil.TempSuffix)
	}
	return out
}
