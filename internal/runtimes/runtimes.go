// Package runtimes discovers the PHP runtimes and extensions available on
// the host.
//
// Discovery never fails: every lookup degrades to the next source and
// finally to built-in fallbacks, so provisioning can proceed on a host
// where PHP is not installed yet (or in simulation).
package runtimes

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ksyq12/sitectl/internal/executor"
	"github.com/ksyq12/sitectl/internal/logger"
)

// FallbackVersions are offered when nothing else can be detected.
var FallbackVersions = []string{"8.2", "8.1", "7.4"}

// CommonExtensions are offered when the runtime cannot be queried.
var CommonExtensions = []string{
	"bcmath", "curl", "dom", "fileinfo", "gd", "imagick", "intl", "json",
	"mbstring", "mysqli", "opcache", "pdo_mysql", "redis", "soap", "xml", "zip",
}

// DefaultSystemDir is where distribution PHP packages keep per-version config.
const DefaultSystemDir = "/etc/php"

const queryTimeout = 10 * time.Second

// Detector answers runtime questions.
type Detector struct {
	Simulate    bool
	SystemDir   string   // per-version config dirs, e.g. /etc/php
	Explicit    []string // configured version list
	PoolBase    string   // pool config base, scanned for version dirs
	BinTemplate string   // runtime binary, "{version}" replaced, e.g. php{version}
	Runner      executor.Runner
}

// Versions returns the available runtime versions. Detected lists are
// sorted ascending; the explicit list keeps its configured order.
//
// Sources in order: installed versions under SystemDir (skipped when
// simulating), the Explicit list, version directories under PoolBase, then
// FallbackVersions.
func (d *Detector) Versions() []string {
	if !d.Simulate {
		if v := installedVersions(d.systemDir()); len(v) > 0 {
			return v
		}
	}
	if v := cleanList(d.Explicit); len(v) > 0 {
		return v
	}
	if v := subdirs(d.PoolBase); len(v) > 0 {
		return v
	}
	return append([]string(nil), FallbackVersions...)
}

// Default returns the version new sites use when none is requested: the
// version of the "php" binary on PATH, else the first of Versions.
func (d *Detector) Default(ctx context.Context) string {
	if !d.Simulate && d.Runner != nil {
		if path, err := d.Runner.LookPath("php"); err == nil {
			out, ok := d.query(ctx, path, "-r", "echo PHP_MAJOR_VERSION . '.' . PHP_MINOR_VERSION;")
			if v := strings.TrimSpace(out); ok && v != "" {
				return v
			}
		}
	}
	return d.Versions()[0]
}

// Extensions lists the modules compiled into version, falling back to
// CommonExtensions.
func (d *Detector) Extensions(ctx context.Context, version string) []string {
	if d.Simulate || d.Runner == nil {
		return append([]string(nil), CommonExtensions...)
	}
	if version == "" {
		version = d.Default(ctx)
	}

	tmpl := d.BinTemplate
	if tmpl == "" {
		tmpl = "php{version}"
	}
	path, err := d.Runner.LookPath(strings.ReplaceAll(tmpl, "{version}", version))
	if err != nil {
		return append([]string(nil), CommonExtensions...)
	}
	out, ok := d.query(ctx, path, "-m")
	if !ok {
		return append([]string(nil), CommonExtensions...)
	}
	if mods := parseModules(out); len(mods) > 0 {
		return mods
	}
	return append([]string(nil), CommonExtensions...)
}

func (d *Detector) systemDir() string {
	if d.SystemDir == "" {
		return DefaultSystemDir
	}
	return d.SystemDir
}

func (d *Detector) query(ctx context.Context, name string, args ...string) (string, bool) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	stdout, _, err := d.Runner.Run(ctx, name, args...)
	if err != nil {
		logger.Debug("runtime query %s failed: %v", name, err)
		return "", false
	}
	return string(stdout), true
}

// parseModules reads "php -m" output: one module per line, section
// headers in brackets.
func parseModules(out string) []string {
	seen := map[string]struct{}{}
	var mods []string
	for _, line := range strings.Split(out, "\n") {
		name := strings.TrimSpace(line)
		if name == "" || strings.HasPrefix(name, "[") {
			continue
		}
		name = strings.ToLower(name)
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		mods = append(mods, name)
	}
	sort.Strings(mods)
	return mods
}

// installedVersions lists version dirs that contain an fpm or cli subdir.
func installedVersions(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var versions []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		for _, sub := range []string{"fpm", "cli"} {
			if _, err := os.Stat(filepath.Join(dir, e.Name(), sub)); err == nil {
				versions = append(versions, e.Name())
				break
			}
		}
	}
	SortVersions(versions)
	return versions
}

func subdirs(dir string) []string {
	if dir == "" {
		return nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	SortVersions(names)
	return names
}

func cleanList(in []string) []string {
	var out []string
	for _, v := range in {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// SortVersions sorts dotted versions numerically ("8.10" after "8.9");
// non-numeric parts compare as strings.
func SortVersions(versions []string) {
	sort.SliceStable(versions, func(i, j int) bool {
		return compareVersions(versions[i], versions[j]) < 0
	})
}

func compareVersions(a, b string) int {
	pa, pb := strings.Split(a, "."), strings.Split(b, ".")
	for i := 0; i < len(pa) && i < len(pb); i++ {
		na, errA := strconv.Atoi(pa[i])
		nb, errB := strconv.Atoi(pb[i])
		switch {
		case errA == nil && errB == nil:
			if na != nb {
				if na < nb {
					return -1
				}
				return 1
			}
		case pa[i] != pb[i]:
			if pa[i] < pb[i] {
				return -1
			}
			return 1
		}
	}
	return len(pa) - len(pb)
}
