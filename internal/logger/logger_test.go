package logger

import (
	"bytes"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func capture(t *testing.T, level Level) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	SetLevel(level)
	t.Cleanup(func() {
		SetOutput(nil)
		SetLevel(LevelWarn)
	})
	return &buf
}

func TestInit(t *testing.T) {
	t.Cleanup(func() { SetLevel(LevelWarn) })

	Init(true)
	assert.Equal(t, LevelDebug, GetLevel())

	Init(false)
	assert.Equal(t, LevelWarn, GetLevel())
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{"INFO", LevelInfo, false},
		{" warn ", LevelWarn, false},
		{"warning", LevelWarn, false},
		{"", LevelWarn, false},
		{"error", LevelError, false},
		{"trace", LevelWarn, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLevel_String(t *testing.T) {
	assert.Equal(t, "DEBUG", LevelDebug.String())
	assert.Equal(t, "INFO", LevelInfo.String())
	assert.Equal(t, "WARN", LevelWarn.String())
	assert.Equal(t, "ERROR", LevelError.String())
	assert.Equal(t, "UNKNOWN", Level(99).String())
}

func TestLevelFiltering(t *testing.T) {
	buf := capture(t, LevelWarn)

	Debug("hidden debug")
	Info("hidden info")
	Warn("shown warn")
	Error("shown error")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "[WARN]")
	assert.Contains(t, out, "[ERROR]")
}

func TestLogFormatting(t *testing.T) {
	buf := capture(t, LevelDebug)

	Debug("loading %s from %d", "sites.db", 3)

	line := strings.TrimSpace(buf.String())
	assert.True(t, strings.HasPrefix(line, "[DEBUG] "), line)
	assert.True(t, strings.HasSuffix(line, "loading sites.db from 3"), line)
}

func TestLogFields(t *testing.T) {
	buf := capture(t, LevelDebug)

	InfoFields("enable", Fields{
		"host": "example.com",
		"took": 42,
		"note": "two words",
	})

	out := buf.String()
	assert.Contains(t, out, "enable")
	assert.Contains(t, out, "host=example.com")
	assert.Contains(t, out, "took=42")
	assert.Contains(t, out, `note="two words"`)
}

func TestLogFieldsSorted(t *testing.T) {
	buf := capture(t, LevelDebug)

	DebugFields("op", Fields{"zebra": 1, "alpha": 2, "beta": 3})

	out := buf.String()
	a, b, z := strings.Index(out, "alpha="), strings.Index(out, "beta="), strings.Index(out, "zebra=")
	require.True(t, a >= 0 && b >= 0 && z >= 0, out)
	assert.True(t, a < b && b < z, "fields not sorted: %s", out)
}

func TestLogError(t *testing.T) {
	buf := capture(t, LevelError)

	LogError(nil, "should not log")
	assert.Zero(t, buf.Len())

	LogError(fmt.Errorf("permission denied"), "write pool config")
	out := buf.String()
	assert.Contains(t, out, "[ERROR]")
	assert.Contains(t, out, "write pool config: permission denied")
}

func TestConcurrentLogging(t *testing.T) {
	buf := capture(t, LevelDebug)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			Debug("goroutine %d", n)
			InfoFields("fields", Fields{"n": n})
		}(i)
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 100)
	for _, line := range lines {
		assert.True(t, strings.HasPrefix(line, "[DEBUG]") || strings.HasPrefix(line, "[INFO]"), line)
	}
}

func TestEmptyFields(t *testing.T) {
	buf := capture(t, LevelDebug)

	WarnFields("no fields", nil)
	ErrorFields("still none", Fields{})

	for _, line := range strings.Split(strings.TrimRight(buf.String(), "\n"), "\n") {
		assert.False(t, strings.HasSuffix(line, " "), "trailing space in %q", line)
	}
}

func TestSetOutputNilRestoresStderr(t *testing.T) {
	SetOutput(nil)
	t.Cleanup(func() { SetOutput(nil) })
	assert.NotPanics(t, func() { Error("to stderr") })
}
