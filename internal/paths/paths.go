// Package paths derives every filesystem location a site owns.
//
// Resolution is pure: the same hostname, runtime version and base
// directories always produce the same PathSet, and nothing touches the
// disk. Only PoolConfig and Socket depend on the runtime version.
package paths

import (
	"fmt"
	"path/filepath"
)

// BaseDirs are the configured roots under which site artifacts live.
type BaseDirs struct {
	Webroot        string `yaml:"webroot" json:"webroot"`
	ProxyAvailable string `yaml:"proxy_available" json:"proxy_available"`
	ProxyEnabled   string `yaml:"proxy_enabled" json:"proxy_enabled"`
	PoolBase       string `yaml:"pool_base" json:"pool_base"`
	SocketBase     string `yaml:"socket_base" json:"socket_base"`
	LogBase        string `yaml:"log_base" json:"log_base"`
}

// PathSet holds the resolved artifact paths of one site.
type PathSet struct {
	DocumentRoot   string `json:"document_root"`
	ProxyConfig    string `json:"proxy_config"`
	PoolConfig     string `json:"pool_config"`
	Socket         string `json:"socket"`
	ActivationLink string `json:"activation_link"`
	LogDir         string `json:"log_dir"`
}

// Artifact is a labelled path, used for teardown and diagnostics.
type Artifact struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// Artifact names returned by PathSet.Artifacts.
const (
	ArtifactDocumentRoot   = "document_root"
	ArtifactProxyConfig    = "proxy_config"
	ArtifactPoolConfig     = "pool_config"
	ArtifactSocket         = "socket"
	ArtifactActivationLink = "activation_link"
	ArtifactLogDir         = "log_dir"
)

// Resolve computes the PathSet for hostname running runtimeVersion.
func Resolve(hostname, runtimeVersion string, base BaseDirs) PathSet {
	return PathSet{
		DocumentRoot:   filepath.Join(base.Webroot, hostname, "public"),
		ProxyConfig:    filepath.Join(base.ProxyAvailable, hostname+".conf"),
		PoolConfig:     PoolConfig(hostname, runtimeVersion, base),
		Socket:         Socket(hostname, runtimeVersion, base),
		ActivationLink: filepath.Join(base.ProxyEnabled, hostname+".conf"),
		LogDir:         filepath.Join(base.LogBase, hostname),
	}
}

// PoolConfig returns the pool config path for hostname under runtimeVersion.
func PoolConfig(hostname, runtimeVersion string, base BaseDirs) string {
	return filepath.Join(base.PoolBase, runtimeVersion, "pool.d", hostname+".conf")
}

// Socket returns the pool socket path for hostname under runtimeVersion.
func Socket(hostname, runtimeVersion string, base BaseDirs) string {
	return filepath.Join(base.SocketBase, fmt.Sprintf("%s-%s.sock", hostname, runtimeVersion))
}

// SiteRoot returns webroot/<hostname>, the parent of the document root.
func SiteRoot(hostname string, base BaseDirs) string {
	return filepath.Join(base.Webroot, hostname)
}

// AccessLog returns the access log path inside the log directory.
func (p PathSet) AccessLog() string {
	return filepath.Join(p.LogDir, "access.log")
}

// ErrorLog returns the error log path inside the log directory.
func (p PathSet) ErrorLog() string {
	return filepath.Join(p.LogDir, "error.log")
}

// Artifacts lists every path of the set in teardown order.
func (p PathSet) Artifacts() []Artifact {
	return []Artifact{
		{ArtifactActivationLink, p.ActivationLink},
		{ArtifactProxyConfig, p.ProxyConfig},
		{ArtifactPoolConfig, p.PoolConfig},
		{ArtifactSocket, p.Socket},
		{ArtifactDocumentRoot, p.DocumentRoot},
		{ArtifactLogDir, p.LogDir},
	}
}

// Within reports whether path lies strictly below dir.
func Within(path, dir string) bool {
	if dir == "" {
		return false
	}
	rel, err := filepath.Rel(filepath.Clean(dir), filepath.Clean(path))
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !filepath.IsAbs(rel) && !startsWithParent(rel)
}

func startsWithParent(rel string) bool {
	return len(rel) >= 3 && rel[:3] == ".."+string(filepath.Separator)
}
