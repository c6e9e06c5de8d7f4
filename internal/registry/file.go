package registry

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	errs "github.com/ksyq12/sitectl/internal/errors"
	"github.com/ksyq12/sitectl/internal/fileutil"
	"github.com/ksyq12/sitectl/internal/lock"
)

// fileVersion is the document format written by FileStore.
const fileVersion = 1

// document is the on-disk layout of a FileStore.
//
//	version: 1
//	sites:
//	  example.com:
//	    hostname: example.com
//	    document_root: /var/www/example.com/public
//	    runtime_version: "8.2"
//	    enabled: true
//	    ...
type document struct {
	Version int              `yaml:"version"`
	Sites   map[string]*Site `yaml:"sites"`
}

// FileStore keeps all sites in one YAML file. Every mutation re-reads the
// file under a file lock and replaces it atomically, so concurrent sitectl
// processes do not lose each other's writes.
type FileStore struct {
	path  string
	locks *lock.Keyed
	now   func() time.Time
}

// NewFileStore creates a FileStore at path. The file is created on the
// first write.
func NewFileStore(path string) *FileStore {
	return &FileStore{
		path:  path,
		locks: lock.NewKeyed(filepath.Dir(path)),
		now:   time.Now,
	}
}

// Path returns the backing file.
func (f *FileStore) Path() string {
	return f.path
}

func (f *FileStore) load() (*document, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &document{Version: fileVersion, Sites: make(map[string]*Site)}, nil
		}
		return nil, errs.Filesystem("", "read registry", f.path, err)
	}

	doc := &document{}
	if err := yaml.Unmarshal(data, doc); err != nil {
		return nil, errs.Wrap(errs.ErrCodeConfig, fmt.Sprintf("failed to parse registry %s", f.path), err)
	}
	if doc.Sites == nil {
		doc.Sites = make(map[string]*Site)
	}
	for host, s := range doc.Sites {
		if s.Hostname == "" {
			s.Hostname = host
		}
	}
	return doc, nil
}

func (f *FileStore) save(doc *document) error {
	doc.Version = fileVersion
	data, err := yaml.Marshal(doc)
	if err != nil {
		return errs.Wrap(errs.ErrCodeInternal, "failed to marshal registry", err)
	}
	return fileutil.AtomicWrite(f.path, string(data))
}

// mutate runs fn on the current document under the file lock and saves
// the result when fn succeeds.
func (f *FileStore) mutate(ctx context.Context, fn func(doc *document) error) error {
	unlock, err := f.locks.Lock(ctx, filepath.Base(f.path))
	if err != nil {
		return errs.Filesystem("", "lock registry", f.path, err)
	}
	defer unlock()

	doc, err := f.load()
	if err != nil {
		return err
	}
	if err := fn(doc); err != nil {
		return err
	}
	return f.save(doc)
}

// Get returns the site for hostname.
func (f *FileStore) Get(_ context.Context, hostname string) (*Site, error) {
	doc, err := f.load()
	if err != nil {
		return nil, err
	}
	s, ok := doc.Sites[hostname]
	if !ok {
		return nil, errs.NotFound(hostname)
	}
	return s.Clone(), nil
}

// Create adds site to the file.
func (f *FileStore) Create(ctx context.Context, site *Site) error {
	return f.mutate(ctx, func(doc *document) error {
		if _, ok := doc.Sites[site.Hostname]; ok {
			return errs.AlreadyExists(site.Hostname)
		}
		stamp(site, f.now(), true)
		doc.Sites[site.Hostname] = site.Clone()
		return nil
	})
}

// Update replaces site in the file.
func (f *FileStore) Update(ctx context.Context, site *Site) error {
	return f.mutate(ctx, func(doc *document) error {
		if _, ok := doc.Sites[site.Hostname]; !ok {
			return errs.NotFound(site.Hostname)
		}
		stamp(site, f.now(), false)
		doc.Sites[site.Hostname] = site.Clone()
		return nil
	})
}

// Delete removes hostname from the file.
func (f *FileStore) Delete(ctx context.Context, hostname string) error {
	return f.mutate(ctx, func(doc *document) error {
		if _, ok := doc.Sites[hostname]; !ok {
			return errs.NotFound(hostname)
		}
		delete(doc.Sites, hostname)
		return nil
	})
}

// List returns all sites ordered by hostname.
func (f *FileStore) List(_ context.Context) ([]*Site, error) {
	doc, err := f.load()
	if err != nil {
		return nil, err
	}
	sites := make([]*Site, 0, len(doc.Sites))
	for _, s := range doc.Sites {
		sites = append(sites, s.Clone())
	}
	sortSites(sites)
	return sites, nil
}

// Close is a no-op.
func (f *FileStore) Close() error {
	return nil
}
