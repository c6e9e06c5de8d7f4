package cli

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "github.com/ksyq12/sitectl/internal/errors"
	"github.com/ksyq12/sitectl/internal/executor"
	"github.com/ksyq12/sitectl/internal/registry"
)

const testHost = "example.com"

// resetFlags restores every command flag variable to its default.
func resetFlags() {
	addPHP, addExt, addNotes = "", nil, ""
	forceRemove = false
	proxyConfigFile = ""
	poolConfigFile, poolConfigPHP = "", ""
	extensionsSet = nil
	versionsExtensions = false
	pathsPHP = ""
	logsAccess, logsError, logsFollow, logsLines = false, false, false, 20
	jsonOutput = false
	reported = false
}

// newCLI installs a TestHelper with clean flags.
func newCLI(t *testing.T) *TestHelper {
	t.Helper()
	h := NewTestHelper(t)
	resetFlags()
	t.Cleanup(resetFlags)
	return h
}

// addSite provisions and enables hostname on PHP 8.2, then clears the flags
// and captured output.
func addSite(t *testing.T, h *TestHelper, hostname string) {
	t.Helper()
	addPHP = "8.2"
	require.NoError(t, runAdd(nil, []string{hostname}))
	resetFlags()
	h.Output()
}

// storedSite reads hostname straight from the registry file.
func storedSite(t *testing.T, h *TestHelper, hostname string) *registry.Site {
	t.Helper()
	store := registry.NewFileStore(h.Cfg.Registry.Path)
	site, err := store.Get(t.Context(), hostname)
	require.NoError(t, err)
	return site
}

func siteExists(t *testing.T, h *TestHelper, hostname string) bool {
	t.Helper()
	_, err := registry.NewFileStore(h.Cfg.Registry.Path).Get(t.Context(), hostname)
	if errs.Is(err, errs.ErrSiteNotFound) {
		return false
	}
	require.NoError(t, err)
	return true
}

func decode[T any](t *testing.T, s string) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal([]byte(s), &v), s)
	return v
}

func TestValidateHostname(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{"simple", "example.com", "example.com", false},
		{"subdomain", "api.example.com", "api.example.com", false},
		{"single label", "localhost", "localhost", false},
		{"trimmed and lowercased", "  Example.COM ", "example.com", false},
		{"hyphen inside", "my-site.example.com", "my-site.example.com", false},
		{"punycode", "xn--bcher-kva.example", "xn--bcher-kva.example", false},
		{"empty", "", "", true},
		{"blank", "   ", "", true},
		{"leading hyphen", "-example.com", "", true},
		{"trailing hyphen", "example-.com", "", true},
		{"space", "exa mple.com", "", true},
		{"path traversal", "../etc/passwd", "", true},
		{"slash", "example.com/x", "", true},
		{"empty label", "example..com", "", true},
		{"label too long", strings.Repeat("a", 64) + ".com", "", true},
		{"name too long", strings.Repeat(strings.Repeat("a", 60)+".", 5) + "com", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := validateHostname(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errs.Is(err, errs.ErrInvalidHostname))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidateVersion(t *testing.T) {
	for _, v := range []string{"8.2", "7.4", "10.0"} {
		assert.NoError(t, validateVersion(v), v)
	}
	for _, v := range []string{"", "8", "8.2.1", "php8.2", "8.x"} {
		assert.Error(t, validateVersion(v), v)
	}
}

func TestReadContent(t *testing.T) {
	h := newCLI(t)

	h.SetStdinInput("server {\n", "}\n")
	got, err := readContent("-")
	require.NoError(t, err)
	assert.Equal(t, "server {\n}\n", got)

	_, err = readContent(filepath.Join(t.TempDir(), "missing.conf"))
	assert.ErrorContains(t, err, "failed to read")
}

func TestReport(t *testing.T) {
	h := newCLI(t)

	t.Run("text success", func(t *testing.T) {
		res := executor.Result{Success: true, Stdout: "Simulated: nginx -s reload"}
		require.NoError(t, report("enable", testHost, res, nil, "Site %s enabled", testHost))
		out := h.Output()
		assert.Contains(t, out, "Site example.com enabled")
		assert.Contains(t, out, "Simulated: nginx -s reload")
		assert.False(t, reported)
	})

	t.Run("text failure returns the error", func(t *testing.T) {
		cause := errs.ValidationFailed(testHost, "emerg")
		err := report("enable", testHost, executor.Result{Stderr: "emerg"}, cause, "unused")
		assert.Same(t, cause, err)
		assert.Empty(t, h.Output())
	})

	t.Run("json failure carries the code", func(t *testing.T) {
		jsonOutput = true
		t.Cleanup(func() { jsonOutput, reported = false, false })

		cause := errs.ReloadFailed(testHost, "nginx", "bind failed")
		err := report("enable", testHost, executor.Result{Stderr: "bind failed"}, cause, "unused")
		assert.Same(t, cause, err)
		assert.True(t, reported)

		got := decode[CommandResult](t, h.Output())
		assert.False(t, got.Success)
		assert.Equal(t, "RELOAD_FAILED", got.Code)
		assert.Equal(t, "enable", got.Action)
		require.NotNil(t, got.Result)
		assert.Equal(t, "bind failed", got.Result.Stderr)
	})
}

func TestOpenSession_ConfigError(t *testing.T) {
	newCLI(t)
	deps.ConfigLoader = &MockConfigLoader{LoadErr: errs.ErrConfigInvalid}

	_, err := openSession(t.Context())
	assert.ErrorContains(t, err, "failed to load config")
}

func TestRequireRoot(t *testing.T) {
	h := newCLI(t)
	h.SetRootAccess(false)

	s, err := openSession(t.Context())
	require.NoError(t, err)
	defer s.close()
	assert.NoError(t, s.requireRoot(), "simulated runs need no root")

	s.cfg.Simulate = false
	assert.ErrorIs(t, s.requireRoot(), errRootRequired)
}
