package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "github.com/ksyq12/sitectl/internal/errors"
	"github.com/ksyq12/sitectl/internal/paths"
)

func TestRunRemove(t *testing.T) {
	tests := []struct {
		name        string
		force       bool
		stdin       []string
		wantRemoved bool
		wantOutput  string
	}{
		{"confirmed", false, []string{"y\n"}, true, "Site example.com removed"},
		{"confirmed with yes", false, []string{"YES\n"}, true, "Site example.com removed"},
		{"cancelled", false, []string{"n\n"}, false, "Removal cancelled"},
		{"no answer", false, nil, false, "Removal cancelled"},
		{"forced", true, nil, true, "Site example.com removed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newCLI(t)
			addSite(t, h, testHost)
			h.SetStdinInput(tt.stdin...)
			forceRemove = tt.force

			require.NoError(t, runRemove(nil, []string{testHost}))
			assert.Contains(t, h.Output(), tt.wantOutput)
			assert.Equal(t, !tt.wantRemoved, siteExists(t, h, testHost))

			ps := paths.Resolve(testHost, "8.2", h.Cfg.BaseDirs())
			if tt.wantRemoved {
				assert.NoFileExists(t, ps.ProxyConfig)
				assert.NoFileExists(t, ps.PoolConfig)
				assert.NoDirExists(t, paths.SiteRoot(testHost, h.Cfg.BaseDirs()))
				assert.NoDirExists(t, ps.LogDir)
			} else {
				assert.FileExists(t, ps.ProxyConfig)
				assert.DirExists(t, ps.DocumentRoot)
			}
		})
	}
}

func TestRunRemove_UnknownSite(t *testing.T) {
	newCLI(t)
	forceRemove = true

	err := runRemove(nil, []string{"missing.example.com"})
	assert.ErrorIs(t, err, errs.ErrSiteNotFound)
}

func TestRunRemove_DisableFailureKeepsSite(t *testing.T) {
	h := newCLI(t)
	addSite(t, h, testHost)
	h.FailCommand("nginx", "emerg")
	forceRemove = true

	err := runRemove(nil, []string{testHost})
	require.Error(t, err)
	assert.True(t, errs.IsInconsistent(err))
	assert.True(t, siteExists(t, h, testHost))
	assert.FileExists(t, paths.Resolve(testHost, "8.2", h.Cfg.BaseDirs()).ProxyConfig)
}
