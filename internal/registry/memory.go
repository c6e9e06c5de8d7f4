package registry

import (
	"context"
	"sync"
	"time"

	errs "github.com/ksyq12/sitectl/internal/errors"
)

// MemoryStore keeps sites in a map.
type MemoryStore struct {
	mu    sync.RWMutex
	sites map[string]*Site
	now   func() time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sites: make(map[string]*Site), now: time.Now}
}

// Get returns a copy of the site for hostname.
func (m *MemoryStore) Get(_ context.Context, hostname string) (*Site, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sites[hostname]
	if !ok {
		return nil, errs.NotFound(hostname)
	}
	return s.Clone(), nil
}

// Create stores a copy of site.
func (m *MemoryStore) Create(_ context.Context, site *Site) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sites[site.Hostname]; ok {
		return errs.AlreadyExists(site.Hostname)
	}
	stamp(site, m.now(), true)
	m.sites[site.Hostname] = site.Clone()
	return nil
}

// Update replaces the stored site.
func (m *MemoryStore) Update(_ context.Context, site *Site) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sites[site.Hostname]; !ok {
		return errs.NotFound(site.Hostname)
	}
	stamp(site, m.now(), false)
	m.sites[site.Hostname] = site.Clone()
	return nil
}

// Delete removes the site for hostname.
func (m *MemoryStore) Delete(_ context.Context, hostname string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sites[hostname]; !ok {
		return errs.NotFound(hostname)
	}
	delete(m.sites, hostname)
	return nil
}

// List returns copies of all sites ordered by hostname.
func (m *MemoryStore) List(_ context.Context) ([]*Site, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sites := make([]*Site, 0, len(m.sites))
	for _, s := range m.sites {
		sites = append(sites, s.Clone())
	}
	sortSites(sites)
	return sites, nil
}

// Close is a no-op.
func (m *MemoryStore) Close() error {
	return nil
}
