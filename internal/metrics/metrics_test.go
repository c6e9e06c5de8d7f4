package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "github.com/ksyq12/sitectl/internal/errors"
)

func TestObserveOperation(t *testing.T) {
	m := New()

	m.ObserveOperation("enable", nil, 10*time.Millisecond)
	m.ObserveOperation("enable", errs.ValidationFailed("a.test", "bad"), time.Millisecond)
	m.ObserveOperation("disable", errs.Inconsistent("a.test", "link removed", errs.ReloadFailed("a.test", "nginx", "")), time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.operations.WithLabelValues("enable", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.operations.WithLabelValues("enable", "validation_failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.operations.WithLabelValues("disable", "inconsistent")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.inconsistent.WithLabelValues("disable")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.operationDuration))
}

func TestObserveCommand(t *testing.T) {
	m := New()

	m.ObserveCommand("validate", true, time.Millisecond)
	m.ObserveCommand("validate", false, time.Millisecond)
	m.ObserveCommand("reload_proxy", true, time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.commands.WithLabelValues("validate", ResultSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.commands.WithLabelValues("validate", ResultFailure)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.commands.WithLabelValues("reload_proxy", ResultSuccess)))
}

func TestResultOf(t *testing.T) {
	assert.Equal(t, "success", ResultOf(nil))
	assert.Equal(t, "not_provisioned", ResultOf(errs.NotProvisioned("a.test", "/x")))
	assert.Equal(t, "internal", ResultOf(fmt.Errorf("plain")))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveOperation("enable", nil, time.Second)
		m.ObserveCommand("validate", true, time.Second)
		assert.NoError(t, m.WriteTextfile("/nonexistent/metrics.prom"))
		assert.Nil(t, m.Registry())
	})
}

func TestWriteTextfile(t *testing.T) {
	m := New()
	m.ObserveOperation("provision", nil, time.Second)

	path := filepath.Join(t.TempDir(), "sitectl.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), `sitectl_operations_total{operation="provision",result="success"} 1`), string(data))

	assert.NoError(t, m.WriteTextfile(""))
}
