package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "github.com/ksyq12/sitectl/internal/errors"
	"github.com/ksyq12/sitectl/internal/paths"
)

func TestRunEnableDisable(t *testing.T) {
	h := newCLI(t)
	addSite(t, h, testHost)
	link := paths.Resolve(testHost, "8.2", h.Cfg.BaseDirs()).ActivationLink

	require.NoError(t, runDisable(nil, []string{testHost}))
	assert.Contains(t, h.Output(), "Site example.com disabled")
	assert.False(t, storedSite(t, h, testHost).Enabled)
	assert.NoFileExists(t, link)

	require.NoError(t, runDisable(nil, []string{testHost}), "disable is idempotent")
	h.Output()

	require.NoError(t, runEnable(nil, []string{testHost}))
	assert.Contains(t, h.Output(), "Site example.com enabled")
	assert.True(t, storedSite(t, h, testHost).Enabled)
	assert.FileExists(t, link)
}

func TestRunEnable_Errors(t *testing.T) {
	tests := []struct {
		name    string
		host    string
		setup   func(*testing.T, *TestHelper)
		wantErr error
	}{
		{
			name:    "invalid hostname",
			host:    "not valid",
			wantErr: errs.ErrInvalidHostname,
		},
		{
			name:    "unknown site",
			host:    "missing.example.com",
			wantErr: errs.ErrSiteNotFound,
		},
		{
			name: "validation failure rolls back",
			host: testHost,
			setup: func(t *testing.T, h *TestHelper) {
				addSite(t, h, testHost)
				require.NoError(t, runDisable(nil, []string{testHost}))
				h.FailCommand("nginx", "emerg: bad")
			},
			wantErr: errs.ErrValidationFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newCLI(t)
			if tt.setup != nil {
				tt.setup(t, h)
			}

			err := runEnable(nil, []string{tt.host})
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.False(t, errs.IsInconsistent(err))
		})
	}
}

func TestRunDisable_FailureIsInconsistent(t *testing.T) {
	h := newCLI(t)
	addSite(t, h, testHost)
	h.FailCommand("nginx", "reload refused")

	err := runDisable(nil, []string{testHost})
	require.Error(t, err)
	assert.True(t, errs.IsInconsistent(err))
	assert.NoFileExists(t, paths.Resolve(testHost, "8.2", h.Cfg.BaseDirs()).ActivationLink)
}

func TestRunEnable_JSON(t *testing.T) {
	h := newCLI(t)
	addSite(t, h, testHost)
	require.NoError(t, runDisable(nil, []string{testHost}))
	h.Output()
	jsonOutput = true

	require.NoError(t, runEnable(nil, []string{testHost}))

	got := decode[CommandResult](t, h.Output())
	assert.True(t, got.Success)
	assert.Equal(t, "enable", got.Action)
	assert.Equal(t, testHost, got.Hostname)
	assert.Equal(t, "Simulated: nginx -s reload", got.Message)
}
