// Package registry persists site records.
//
// The registry is the durable half of a site: the lifecycle manager writes
// it only after the matching filesystem or external step succeeded, so a
// record describes what is actually on disk (save for the documented
// INCONSISTENT paths).
//
// Three stores implement Registry:
//   - FileStore: a YAML document, the default for single-host installs
//   - SQLStore: an SQLite database (pure Go, no cgo)
//   - MemoryStore: process-local, for tests and dry runs
//
// All stores return copies, so mutating a returned *Site never changes the
// stored record until it is passed to Update.
package registry

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Site is the persisted record of a virtual host.
type Site struct {
	Hostname        string    `yaml:"hostname" json:"hostname"`
	DocumentRoot    string    `yaml:"document_root" json:"document_root"`
	RuntimeVersion  string    `yaml:"runtime_version" json:"runtime_version"`
	Extensions      []string  `yaml:"extensions,omitempty" json:"extensions"`
	Enabled         bool      `yaml:"enabled" json:"enabled"`
	ProxyConfigPath string    `yaml:"proxy_config_path" json:"proxy_config_path"`
	PoolConfigPath  string    `yaml:"pool_config_path" json:"pool_config_path"`
	SocketPath      string    `yaml:"socket_path" json:"socket_path"`
	Notes           string    `yaml:"notes,omitempty" json:"notes,omitempty"`
	CreatedAt       time.Time `yaml:"created_at" json:"created_at"`
	UpdatedAt       time.Time `yaml:"updated_at" json:"updated_at"`
}

// Clone returns a deep copy of s.
func (s *Site) Clone() *Site {
	if s == nil {
		return nil
	}
	c := *s
	if s.Extensions != nil {
		c.Extensions = append([]string(nil), s.Extensions...)
	}
	return &c
}

// Registry is the site record store.
type Registry interface {
	// Get returns the site for hostname or a NOT_FOUND error.
	Get(ctx context.Context, hostname string) (*Site, error)

	// Create stores a new site or returns an ALREADY_EXISTS error.
	Create(ctx context.Context, site *Site) error

	// Update replaces an existing site or returns a NOT_FOUND error.
	Update(ctx context.Context, site *Site) error

	// Delete removes the site or returns a NOT_FOUND error.
	Delete(ctx context.Context, hostname string) error

	// List returns every site ordered by hostname.
	List(ctx context.Context) ([]*Site, error)

	// Close releases the store's resources.
	Close() error
}

// Drivers accepted by Open.
const (
	DriverYAML   = "yaml"
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

// Open returns the store for driver at path.
func Open(ctx context.Context, driver, path string) (Registry, error) {
	switch driver {
	case DriverYAML, "":
		return NewFileStore(path), nil
	case DriverSQLite:
		return NewSQLStore(ctx, path)
	case DriverMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown registry driver: %s (available: yaml, sqlite, memory)", driver)
	}
}

// NormalizeExtensions trims, lowercases, de-duplicates and sorts names.
func NormalizeExtensions(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		if n == "" {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func sortSites(sites []*Site) {
	sort.Slice(sites, func(i, j int) bool { return sites[i].Hostname < sites[j].Hostname })
}

func stamp(site *Site, now time.Time, creating bool) {
	if creating && site.CreatedAt.IsZero() {
		site.CreatedAt = now
	}
	site.UpdatedAt = now
}
