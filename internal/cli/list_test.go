package cli

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ksyq12/sitectl/internal/registry"
)

func TestRunList(t *testing.T) {
	h := newCLI(t)

	require.NoError(t, runList(nil, nil))
	assert.Contains(t, h.Output(), "No sites configured")

	addSite(t, h, "b.example.com")
	addSite(t, h, "a.example.com")
	require.NoError(t, runDisable(nil, []string{"b.example.com"}))
	h.Output()

	require.NoError(t, runList(nil, nil))
	lines := strings.Split(strings.TrimSpace(h.Output()), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "HOSTNAME"))
	assert.Contains(t, lines[2], "a.example.com")
	assert.Contains(t, lines[2], "yes")
	assert.Contains(t, lines[3], "b.example.com")
	assert.Contains(t, lines[3], "no")
}

func TestRunList_JSON(t *testing.T) {
	h := newCLI(t)
	jsonOutput = true

	require.NoError(t, runList(nil, nil))
	assert.Equal(t, "[]", strings.TrimSpace(h.Output()))

	addSite(t, h, testHost)
	jsonOutput = true
	require.NoError(t, runList(nil, nil))

	sites := decode[[]registry.Site](t, h.Output())
	require.Len(t, sites, 1)
	assert.Equal(t, testHost, sites[0].Hostname)
	assert.Equal(t, "8.2", sites[0].RuntimeVersion)
	assert.True(t, sites[0].Enabled)
}
