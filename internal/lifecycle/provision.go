package lifecycle

import (
	"context"
	"os"
	"path/filepath"
	"time"

	errs "github.com/ksyq12/sitectl/internal/errors"
	"github.com/ksyq12/sitectl/internal/executor"
	"github.com/ksyq12/sitectl/internal/fileutil"
	"github.com/ksyq12/sitectl/internal/paths"
	"github.com/ksyq12/sitectl/internal/registry"
	"github.com/ksyq12/sitectl/internal/template"
)

// IndexFile is the default document written into a new document root.
const IndexFile = "index.php"

// ProvisionRequest describes a new site.
type ProvisionRequest struct {
	Hostname       string
	RuntimeVersion string
	Extensions     []string
	Notes          string
}

// ProvisionResult reports both halves of Provision: creating the artifacts
// and activating the site. A site can be provisioned but not active.
type ProvisionResult struct {
	Site          *registry.Site  `json:"site"`
	Provisioned   bool            `json:"provisioned"`
	Activation    executor.Result `json:"activation"`
	ActivationErr error           `json:"-"`
}

// Active reports whether activation succeeded.
func (r *ProvisionResult) Active() bool {
	return r.Provisioned && r.ActivationErr == nil
}

// Provision creates the site's directories, registry record, default
// document, proxy config and pool config, then enables it.
//
// An error is returned only when provisioning itself failed. An activation
// failure is reported in the result, with the site left provisioned and
// disabled.
func (m *Manager) Provision(ctx context.Context, req ProvisionRequest) (*ProvisionResult, error) {
	result := &ProvisionResult{}
	if err := checkVersion(req.RuntimeVersion); err != nil {
		return result, err
	}

	err := m.do(ctx, OpProvision, req.Hostname, func(o *op) error {
		site, err := m.provision(ctx, o, req)
		result.Site = site
		if err != nil {
			return err
		}
		result.Provisioned = true

		start := time.Now()
		result.Activation, result.ActivationErr = m.enable(ctx, o, site)
		m.metrics.ObserveOperation(OpEnable, result.ActivationErr, time.Since(start))
		if result.ActivationErr != nil {
			o.warn("site provisioned but not activated", result.ActivationErr)
		}
		result.Site = site.Clone()
		return nil
	})
	return result, err
}

func (m *Manager) provision(ctx context.Context, o *op, req ProvisionRequest) (*registry.Site, error) {
	host := req.Hostname

	o.step("check registry")
	if _, err := m.reg.Get(ctx, host); err == nil {
		return nil, errs.AlreadyExists(host)
	} else if !errs.Is(err, errs.ErrSiteNotFound) {
		return nil, err
	}

	ps := paths.Resolve(host, req.RuntimeVersion, m.opts.Base)

	// Load templates before touching the disk so a bad template path fails early.
	proxyTpl, err := template.Load(template.KindProxy, m.opts.ProxyTemplatePath)
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeConfig, "failed to load proxy template", err)
	}
	poolTpl, err := template.Load(template.KindPool, m.opts.PoolTemplatePath)
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeConfig, "failed to load pool template", err)
	}

	o.step("create directories")
	err = fileutil.EnsureDirs(
		ps.DocumentRoot,
		filepath.Dir(ps.ProxyConfig),
		filepath.Dir(ps.PoolConfig),
		filepath.Dir(ps.ActivationLink),
		ps.LogDir,
	)
	if err != nil {
		return nil, onHost(err, host)
	}

	o.step("register")
	site := &registry.Site{
		Hostname:        host,
		DocumentRoot:    ps.DocumentRoot,
		RuntimeVersion:  req.RuntimeVersion,
		Extensions:      registry.NormalizeExtensions(req.Extensions),
		ProxyConfigPath: ps.ProxyConfig,
		PoolConfigPath:  ps.PoolConfig,
		SocketPath:      ps.Socket,
		Notes:           req.Notes,
	}
	if err := m.reg.Create(ctx, site); err != nil {
		return nil, err
	}

	o.step("write index")
	if err := m.writeIndex(host, ps.DocumentRoot); err != nil {
		return site, onHost(err, host)
	}

	o.step("write proxy config")
	proxy := template.RenderProxyConfig(
		template.ProxySite{Hostname: host, DocumentRoot: ps.DocumentRoot, Socket: ps.Socket},
		template.LogPaths{Access: ps.AccessLog(), Error: ps.ErrorLog()},
		proxyTpl,
	)
	if err := fileutil.AtomicWrite(ps.ProxyConfig, proxy+"\n"); err != nil {
		return site, onHost(err, host)
	}

	o.step("write pool config")
	pool := template.RenderPoolConfig(
		template.PoolSite{Hostname: host, Socket: ps.Socket},
		m.opts.WebUser, m.opts.WebGroup,
		poolTpl,
	)
	if err := fileutil.AtomicWrite(ps.PoolConfig, pool+"\n"); err != nil {
		return site, onHost(err, host)
	}

	return site, nil
}

// writeIndex writes the default document unless one already exists.
func (m *Manager) writeIndex(hostname, docRoot string) error {
	path := filepath.Join(docRoot, IndexFile)
	if _, err := os.Lstat(path); err == nil {
		return nil
	}
	tpl, err := template.Load(template.KindIndex, m.opts.IndexTemplatePath)
	if err != nil {
		return errs.Wrap(errs.ErrCodeConfig, "failed to load index template", err)
	}
	return fileutil.AtomicWrite(path, template.RenderIndex(hostname, tpl)+"\n")
}
