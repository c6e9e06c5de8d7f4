package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "github.com/ksyq12/sitectl/internal/errors"
	"github.com/ksyq12/sitectl/internal/paths"
)

func TestRunProxyConfig_Print(t *testing.T) {
	h := newCLI(t)
	addSite(t, h, testHost)
	ps := paths.Resolve(testHost, "8.2", h.Cfg.BaseDirs())
	want, err := os.ReadFile(ps.ProxyConfig)
	require.NoError(t, err)

	require.NoError(t, runProxyConfig(nil, []string{testHost}))
	assert.Equal(t, string(want), h.Output())

	jsonOutput = true
	require.NoError(t, runProxyConfig(nil, []string{testHost}))
	got := decode[configContent](t, h.Output())
	assert.Equal(t, ps.ProxyConfig, got.Path)
	assert.Equal(t, string(want), got.Content)
}

func TestRunProxyConfig_UpdateFromStdin(t *testing.T) {
	h := newCLI(t)
	addSite(t, h, testHost)
	h.SetStdinInput("server {\r\n", "    listen 8080;\r\n", "}\r\n")
	proxyConfigFile = "-"

	require.NoError(t, runProxyConfig(nil, []string{testHost}))
	assert.Contains(t, h.Output(), "Nginx config of example.com updated")

	ps := paths.Resolve(testHost, "8.2", h.Cfg.BaseDirs())
	data, err := os.ReadFile(ps.ProxyConfig)
	require.NoError(t, err)
	assert.Equal(t, "server {\n    listen 8080;\n}\n", string(data))
	assert.FileExists(t, ps.ProxyConfig+".bak")
}

func TestRunProxyConfig_ValidationFailure(t *testing.T) {
	h := newCLI(t)
	addSite(t, h, testHost)
	file := filepath.Join(t.TempDir(), "broken.conf")
	require.NoError(t, os.WriteFile(file, []byte("server {\n"), 0o644))
	h.FailCommand("nginx", "unexpected end of file")
	proxyConfigFile = file

	err := runProxyConfig(nil, []string{testHost})
	assert.ErrorIs(t, err, errs.ErrValidationFailed)
	assert.ErrorContains(t, err, "unexpected end of file")
}

func TestRunPoolConfig_Print(t *testing.T) {
	h := newCLI(t)
	addSite(t, h, testHost)

	require.NoError(t, runPoolConfig(nil, []string{testHost}))
	out := h.Output()
	assert.Contains(t, out, "[example.com]")
	assert.Contains(t, out, paths.Socket(testHost, "8.2", h.Cfg.BaseDirs()))
}

func TestRunPoolConfig_SwitchRuntime(t *testing.T) {
	h := newCLI(t)
	addSite(t, h, testHost)
	base := h.Cfg.BaseDirs()
	poolConfigPHP = "8.3"

	require.NoError(t, runPoolConfig(nil, []string{testHost}))
	assert.Contains(t, h.Output(), "PHP-FPM pool of example.com updated (PHP 8.3)")

	site := storedSite(t, h, testHost)
	assert.Equal(t, "8.3", site.RuntimeVersion)
	assert.Equal(t, paths.PoolConfig(testHost, "8.3", base), site.PoolConfigPath)
	assert.Equal(t, paths.Socket(testHost, "8.3", base), site.SocketPath)

	assert.FileExists(t, paths.PoolConfig(testHost, "8.3", base))
	assert.NoFileExists(t, paths.PoolConfig(testHost, "8.2", base))

	proxy, err := os.ReadFile(paths.Resolve(testHost, "8.3", base).ProxyConfig)
	require.NoError(t, err)
	assert.Contains(t, string(proxy), paths.Socket(testHost, "8.3", base))
	assert.NotContains(t, string(proxy), paths.Socket(testHost, "8.2", base))
}

func TestRunPoolConfig_RewriteFromFile(t *testing.T) {
	h := newCLI(t)
	addSite(t, h, testHost)
	file := filepath.Join(t.TempDir(), "pool.conf")
	require.NoError(t, os.WriteFile(file, []byte("[example.com]\npm.max_children = 9\n"), 0o644))
	poolConfigFile = file

	require.NoError(t, runPoolConfig(nil, []string{testHost}))
	assert.Contains(t, h.Output(), "pool config updated")

	data, err := os.ReadFile(paths.PoolConfig(testHost, "8.2", h.Cfg.BaseDirs()))
	require.NoError(t, err)
	assert.Contains(t, string(data), "pm.max_children = 9")
	assert.Equal(t, "8.2", storedSite(t, h, testHost).RuntimeVersion)
}

func TestRunPoolConfig_InvalidVersion(t *testing.T) {
	h := newCLI(t)
	addSite(t, h, testHost)
	poolConfigPHP = "latest"

	assert.ErrorContains(t, runPoolConfig(nil, []string{testHost}), "invalid PHP version")
}

func TestRunExtensions(t *testing.T) {
	h := newCLI(t)
	addSite(t, h, testHost)

	require.NoError(t, runExtensions(nil, []string{testHost}))
	out := h.Output()
	assert.Contains(t, out, "bcmath, curl, dom")
	assert.Contains(t, out, "Available (PHP 8.2)")

	extensionsSet = []string{"Redis", "intl", "redis"}
	jsonOutput = true
	require.NoError(t, runExtensions(nil, []string{testHost}))

	got := decode[extensionsDetail](t, h.Output())
	assert.Equal(t, []string{"intl", "redis"}, got.Enabled)
	assert.NotEmpty(t, got.Available)
	assert.Equal(t, []string{"intl", "redis"}, storedSite(t, h, testHost).Extensions)
}

func TestRunExtensions_ClearList(t *testing.T) {
	h := newCLI(t)
	addSite(t, h, testHost)
	extensionsSet = []string{}
	jsonOutput = true

	require.NoError(t, runExtensions(nil, []string{testHost}))
	got := decode[extensionsDetail](t, h.Output())
	assert.Empty(t, got.Enabled)
	assert.NotNil(t, got.Enabled)
}

func TestRunVersions(t *testing.T) {
	h := newCLI(t)

	require.NoError(t, runVersions(nil, nil))
	lines := strings.Split(strings.TrimSpace(h.Output()), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[2], "8.2")
	assert.Contains(t, lines[2], "yes")
	assert.Contains(t, lines[3], "8.3")

	jsonOutput = true
	versionsExtensions = true
	require.NoError(t, runVersions(nil, nil))
	got := decode[[]runtimeVersion](t, h.Output())
	require.Len(t, got, 2)
	assert.True(t, got[0].Default)
	assert.False(t, got[1].Default)
	assert.NotEmpty(t, got[0].Extensions)
}

func TestRunPaths(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(*testing.T, *TestHelper)
		php     string
		wantPHP string
	}{
		{"unregistered site uses default", nil, "", "8.2"},
		{"flag wins", nil, "8.3", "8.3"},
		{
			name: "registered site uses its version",
			setup: func(t *testing.T, h *TestHelper) {
				addSite(t, h, testHost)
				poolConfigPHP = "8.3"
				require.NoError(t, runPoolConfig(nil, []string{testHost}))
				resetFlags()
			},
			wantPHP: "8.3",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newCLI(t)
			if tt.setup != nil {
				tt.setup(t, h)
			}
			h.Output()
			pathsPHP = tt.php
			jsonOutput = true

			require.NoError(t, runPaths(nil, []string{testHost}))

			got := decode[pathsDetail](t, h.Output())
			want := paths.Resolve(testHost, tt.wantPHP, h.Cfg.BaseDirs())
			assert.Equal(t, tt.wantPHP, got.PHP)
			assert.Equal(t, want, got.PathSet)
			assert.Equal(t, want.AccessLog(), got.AccessLog)
			assert.Equal(t, want.ErrorLog(), got.ErrorLog)
		})
	}
}
