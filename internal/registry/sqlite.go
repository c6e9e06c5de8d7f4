package registry

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	errs "github.com/ksyq12/sitectl/internal/errors"
)

// SQLStore keeps sites in an SQLite database.
type SQLStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLStore opens (and creates if needed) the database at path.
// ":memory:" opens a private in-memory database.
func NewSQLStore(ctx context.Context, path string) (*SQLStore, error) {
	if path == "" {
		return nil, errs.Validation("registry database path is required")
	}

	dsn := path
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, errs.Filesystem("", "create directory", filepath.Dir(path), err)
		}
		dsn += "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection keeps ":memory:" a single database and serializes writers.
	db.SetMaxOpenConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s := &SQLStore{db: db, now: time.Now}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return s, nil
}

func (s *SQLStore) migrate(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS sites (
			hostname TEXT PRIMARY KEY,
			document_root TEXT NOT NULL,
			runtime_version TEXT NOT NULL,
			extensions TEXT NOT NULL DEFAULT '[]',
			enabled INTEGER NOT NULL DEFAULT 0,
			proxy_config_path TEXT NOT NULL,
			pool_config_path TEXT NOT NULL,
			socket_path TEXT NOT NULL,
			notes TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sites_enabled ON sites(enabled)`,
	}
	for _, m := range migrations {
		if _, err := s.db.ExecContext(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

const siteColumns = `hostname, document_root, runtime_version, extensions, enabled,
	proxy_config_path, pool_config_path, socket_path, notes, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSite(row rowScanner) (*Site, error) {
	var (
		site             Site
		extensions       string
		created, updated string
		enabled          int
	)
	err := row.Scan(&site.Hostname, &site.DocumentRoot, &site.RuntimeVersion, &extensions, &enabled,
		&site.ProxyConfigPath, &site.PoolConfigPath, &site.SocketPath, &site.Notes, &created, &updated)
	if err != nil {
		return nil, err
	}
	site.Enabled = enabled != 0
	if err := json.Unmarshal([]byte(extensions), &site.Extensions); err != nil {
		return nil, fmt.Errorf("decode extensions of %s: %w", site.Hostname, err)
	}
	if site.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return nil, fmt.Errorf("decode created_at of %s: %w", site.Hostname, err)
	}
	if site.UpdatedAt, err = time.Parse(time.RFC3339Nano, updated); err != nil {
		return nil, fmt.Errorf("decode updated_at of %s: %w", site.Hostname, err)
	}
	return &site, nil
}

func siteArgs(site *Site) ([]any, error) {
	exts := site.Extensions
	if exts == nil {
		exts = []string{}
	}
	encoded, err := json.Marshal(exts)
	if err != nil {
		return nil, err
	}
	enabled := 0
	if site.Enabled {
		enabled = 1
	}
	return []any{
		site.Hostname, site.DocumentRoot, site.RuntimeVersion, string(encoded), enabled,
		site.ProxyConfigPath, site.PoolConfigPath, site.SocketPath, site.Notes,
		site.CreatedAt.UTC().Format(time.RFC3339Nano), site.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}, nil
}

// Get returns the site for hostname.
func (s *SQLStore) Get(ctx context.Context, hostname string) (*Site, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+siteColumns+` FROM sites WHERE hostname = ?`, hostname)
	site, err := scanSite(row)
	if err == sql.ErrNoRows {
		return nil, errs.NotFound(hostname)
	}
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeInternal, "failed to read site "+hostname, err)
	}
	return site, nil
}

// Create inserts site.
func (s *SQLStore) Create(ctx context.Context, site *Site) error {
	stamp(site, s.now(), true)
	args, err := siteArgs(site)
	if err != nil {
		return errs.Wrap(errs.ErrCodeInternal, "failed to encode site", err)
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO sites (`+siteColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return errs.AlreadyExists(site.Hostname)
		}
		return errs.Wrap(errs.ErrCodeInternal, "failed to insert site "+site.Hostname, err)
	}
	return nil
}

// Update replaces every column of site.
func (s *SQLStore) Update(ctx context.Context, site *Site) error {
	stamp(site, s.now(), false)
	args, err := siteArgs(site)
	if err != nil {
		return errs.Wrap(errs.ErrCodeInternal, "failed to encode site", err)
	}
	// hostname moves from the first to the last placeholder.
	args = append(args[1:], args[0])
	res, err := s.db.ExecContext(ctx, `UPDATE sites SET
		document_root = ?, runtime_version = ?, extensions = ?, enabled = ?,
		proxy_config_path = ?, pool_config_path = ?, socket_path = ?, notes = ?,
		created_at = ?, updated_at = ?
		WHERE hostname = ?`, args...)
	if err != nil {
		return errs.Wrap(errs.ErrCodeInternal, "failed to update site "+site.Hostname, err)
	}
	return requireRow(res, site.Hostname)
}

// Delete removes the site for hostname.
func (s *SQLStore) Delete(ctx context.Context, hostname string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sites WHERE hostname = ?`, hostname)
	if err != nil {
		return errs.Wrap(errs.ErrCodeInternal, "failed to delete site "+hostname, err)
	}
	return requireRow(res, hostname)
}

// List returns all sites ordered by hostname.
func (s *SQLStore) List(ctx context.Context) ([]*Site, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+siteColumns+` FROM sites ORDER BY hostname`)
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeInternal, "failed to list sites", err)
	}
	defer rows.Close()

	var sites []*Site
	for rows.Next() {
		site, err := scanSite(rows)
		if err != nil {
			return nil, errs.Wrap(errs.ErrCodeInternal, "failed to read site", err)
		}
		sites = append(sites, site)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Wrap(errs.ErrCodeInternal, "failed to list sites", err)
	}
	return sites, nil
}

// Close closes the database.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

func requireRow(res sql.Result, hostname string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errs.Wrap(errs.ErrCodeInternal, "failed to check affected rows", err)
	}
	if n == 0 {
		return errs.NotFound(hostname)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "PRIMARY KEY")
}
