// Package platform provides platform-specific default locations for the
// proxy, the PHP-FPM runtime and sitectl's own state.
package platform

import (
	"fmt"
	"os"
	"runtime"
)

// DefaultDataDir holds the registry, lock files and site logs on Linux.
const DefaultDataDir = "/var/lib/sitectl"

// PlatformPaths contains the detected default paths.
type PlatformPaths struct {
	ProxyAvailable string
	ProxyEnabled   string
	PoolBase       string
	SocketBase     string
	DataDir        string
}

// DetectPaths returns platform-specific default paths.
// It checks for common installation locations based on the OS.
func DetectPaths() (*PlatformPaths, error) {
	switch runtime.GOOS {
	case "darwin":
		return detectDarwinPaths(pathExists)
	case "linux":
		return detectLinuxPaths(pathExists)
	default:
		return nil, fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}
}

// Fallback returns the Debian/Ubuntu layout, used when detection fails.
func Fallback() *PlatformPaths {
	return &PlatformPaths{
		ProxyAvailable: "/etc/nginx/sites-available",
		ProxyEnabled:   "/etc/nginx/sites-enabled",
		PoolBase:       "/etc/php",
		SocketBase:     "/run/php",
		DataDir:        DefaultDataDir,
	}
}

// detectDarwinPaths detects paths for macOS (Homebrew installations).
func detectDarwinPaths(exists func(string) bool) (*PlatformPaths, error) {
	for _, prefix := range []string{"/opt/homebrew", "/usr/local"} {
		if !exists(prefix + "/etc/nginx") {
			continue
		}
		// Homebrew's nginx.conf includes servers/*, which serves as the enabled dir.
		return &PlatformPaths{
			ProxyAvailable: prefix + "/etc/nginx/sites-available",
			ProxyEnabled:   prefix + "/etc/nginx/servers",
			PoolBase:       prefix + "/etc/php",
			SocketBase:     prefix + "/var/run/php",
			DataDir:        prefix + "/var/sitectl",
		}, nil
	}
	return nil, fmt.Errorf("homebrew nginx not found (checked /opt/homebrew/etc/nginx and /usr/local/etc/nginx)")
}

// detectLinuxPaths detects paths for Linux distributions.
func detectLinuxPaths(exists func(string) bool) (*PlatformPaths, error) {
	// Debian/Ubuntu first (most common)
	if exists("/etc/nginx/sites-available") || exists("/etc/nginx/sites-enabled") {
		return Fallback(), nil
	}

	// RHEL/CentOS only include conf.d, so activation links go there.
	if exists("/etc/nginx/conf.d") {
		p := Fallback()
		p.ProxyEnabled = "/etc/nginx/conf.d"
		return p, nil
	}

	return nil, fmt.Errorf("nginx configuration paths not found (checked /etc/nginx/sites-available, /etc/nginx/conf.d)")
}

// pathExists checks if a path exists on the filesystem.
func pathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Platform returns a string describing the current platform.
func Platform() string {
	return fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH)
}
