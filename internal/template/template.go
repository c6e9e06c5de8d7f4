package template

import (
	"embed"
	"fmt"
	"os"
	"strings"
)

//go:embed defaults/*.tpl
var defaults embed.FS

// Kind identifies which template a caller wants.
type Kind string

// Template kinds.
const (
	KindProxy Kind = "proxy"
	KindPool  Kind = "pool"
	KindIndex Kind = "index"
)

var defaultFiles = map[Kind]string{
	KindProxy: "defaults/nginx.conf.tpl",
	KindPool:  "defaults/php-fpm.conf.tpl",
	KindIndex: "defaults/index.php.tpl",
}

// ProxySite is the site data a proxy config needs.
type ProxySite struct {
	Hostname     string
	DocumentRoot string
	Socket       string
}

// LogPaths are the per-site access and error logs.
type LogPaths struct {
	Access string
	Error  string
}

// PoolSite is the site data a pool config needs.
type PoolSite struct {
	Hostname string
	Socket   string
}

// Default returns the embedded default template for kind.
func Default(kind Kind) (string, error) {
	name, ok := defaultFiles[kind]
	if !ok {
		return "", fmt.Errorf("unknown template kind: %s", kind)
	}
	content, err := defaults.ReadFile(name)
	if err != nil {
		return "", fmt.Errorf("template not found: %s", name)
	}
	return string(content), nil
}

// Load reads the template at path, falling back to the embedded default
// when path is empty or does not exist.
func Load(kind Kind, path string) (string, error) {
	if path == "" {
		return Default(kind)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(kind)
		}
		return "", fmt.Errorf("failed to read %s template %s: %w", kind, path, err)
	}
	return string(content), nil
}

// RenderProxyConfig fills a proxy config template for site.
func RenderProxyConfig(site ProxySite, logs LogPaths, tpl string) string {
	return render(tpl,
		"HOSTNAME", site.Hostname,
		"DOCUMENT_ROOT", site.DocumentRoot,
		"SOCKET", site.Socket,
		"PHP_SOCKET", site.Socket,
		"ACCESS_LOG", logs.Access,
		"ERROR_LOG", logs.Error,
	)
}

// RenderPoolConfig fills a pool config template for site.
func RenderPoolConfig(site PoolSite, webUser, webGroup, tpl string) string {
	return render(tpl,
		"HOSTNAME", site.Hostname,
		"SOCKET", site.Socket,
		"PHP_SOCKET", site.Socket,
		"WEB_USER", webUser,
		"WEB_GROUP", webGroup,
	)
}

// RenderIndex fills the default document template. A template without a
// {{HOSTNAME}} placeholder gets every bare $hostname replaced instead, so
// index files written for PHP-side interpolation still name the site.
func RenderIndex(hostname, tpl string) string {
	if !strings.Contains(tpl, "{{HOSTNAME}}") {
		return strings.TrimSpace(strings.ReplaceAll(tpl, "$hostname", hostname))
	}
	return render(tpl, "HOSTNAME", hostname)
}

// render substitutes {{KEY}} for each key/value pair and trims the result.
func render(tpl string, kv ...string) string {
	pairs := make([]string, 0, len(kv))
	for i := 0; i+1 < len(kv); i += 2 {
		pairs = append(pairs, "{{"+kv[i]+"}}", kv[i+1])
	}
	return strings.TrimSpace(strings.NewReplacer(pairs...).Replace(tpl))
}
