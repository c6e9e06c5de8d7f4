package lifecycle

import (
	"context"
	"os"

	"github.com/ksyq12/sitectl/internal/fileutil"
	"github.com/ksyq12/sitectl/internal/paths"
	"github.com/ksyq12/sitectl/internal/registry"
)

// ArtifactStatus reports whether one site artifact is present on disk.
type ArtifactStatus struct {
	Name   string `json:"name"`
	Path   string `json:"path"`
	Exists bool   `json:"exists"`
}

// Status is a read-only consistency report of one site.
type Status struct {
	Hostname   string           `json:"hostname"`
	Enabled    bool             `json:"enabled"`
	Linked     bool             `json:"linked"`
	Consistent bool             `json:"consistent"`
	Artifacts  []ArtifactStatus `json:"artifacts"`
	Problems   []string         `json:"problems,omitempty"`
}

// Check compares the registry record of hostname with the disk. It takes
// no lock and changes nothing.
func (m *Manager) Check(ctx context.Context, hostname string) (*Status, error) {
	if err := checkHostname(hostname); err != nil {
		return nil, err
	}
	site, err := m.reg.Get(ctx, hostname)
	if err != nil {
		return nil, err
	}
	return m.check(site), nil
}

func (m *Manager) check(site *registry.Site) *Status {
	ps := m.pathsOf(site)
	st := &Status{
		Hostname: site.Hostname,
		Enabled:  site.Enabled,
		Linked:   fileutil.Exists(ps.ActivationLink),
	}

	for _, a := range ps.Artifacts() {
		as := ArtifactStatus{Name: a.Name, Path: a.Path, Exists: fileutil.Exists(a.Path)}
		st.Artifacts = append(st.Artifacts, as)

		// The socket only exists while the runtime runs; the link only
		// while the site is enabled.
		switch a.Name {
		case paths.ArtifactSocket, paths.ArtifactActivationLink:
			continue
		}
		if !as.Exists {
			st.Problems = append(st.Problems, a.Name+" missing: "+a.Path)
		}
	}

	switch {
	case site.Enabled && !st.Linked:
		st.Problems = append(st.Problems, "registry says enabled but "+ps.ActivationLink+" is missing")
	case !site.Enabled && st.Linked:
		st.Problems = append(st.Problems, "registry says disabled but "+ps.ActivationLink+" exists")
	}
	if st.Linked && fileutil.IsSymlink(ps.ActivationLink) {
		if _, err := os.Stat(ps.ActivationLink); err != nil {
			st.Problems = append(st.Problems, "activation link is dangling: "+ps.ActivationLink)
		}
	}
	if site.PoolConfigPath != "" && site.PoolConfigPath != ps.PoolConfig {
		st.Problems = append(st.Problems, "registry pool path "+site.PoolConfigPath+" differs from "+ps.PoolConfig)
	}
	if site.SocketPath != "" && site.SocketPath != ps.Socket {
		st.Problems = append(st.Problems, "registry socket path "+site.SocketPath+" differs from "+ps.Socket)
	}

	st.Consistent = len(st.Problems) == 0
	return st
}
