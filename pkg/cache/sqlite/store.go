// Package sqlite is the durable local store for fetched certificates and
// resolved coordinates. Search results and coordinates share one database
// file but live in separate key namespaces; coordinates never expire.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"github.com/landmetric/epc/pkg/models"
)

// ErrCorrupt means a cache entry exists but cannot be decoded. Callers
// treat it as a miss and refetch; it is never silently served.
var ErrCorrupt = errors.New("cache entry corrupt")

// Store is the SQLite-backed certificate and coordinate cache.
type Store struct {
	db     *sql.DB
	hits   atomic.Int64
	misses atomic.Int64
}

const createTables = `
CREATE TABLE IF NOT EXISTS search_cache (
	query_key TEXT PRIMARY KEY,
	query TEXT NOT NULL,
	records BLOB NOT NULL,
	record_count INTEGER NOT NULL,
	fetched_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_search_fetched_at ON search_cache(fetched_at);

CREATE TABLE IF NOT EXISTS coord_cache (
	location_key TEXT PRIMARY KEY,
	lat REAL NOT NULL,
	lon REAL NOT NULL,
	provider TEXT NOT NULL,
	resolved_at DATETIME NOT NULL
);
`

// Entry is one cached search result set.
type Entry struct {
	Query     string
	Records   []models.Certificate
	FetchedAt time.Time
}

// Open creates or opens the store at dbPath and runs migration.
func Open(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create cache dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}

	if _, err := db.Exec(createTables); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate cache db: %w", err)
	}

	return &Store{db: db}, nil
}

// Get retrieves the cached entry for a query key, or nil if absent.
// Freshness is the caller's policy; Get returns stale entries as-is.
// An undecodable entry returns ErrCorrupt.
func (s *Store) Get(ctx context.Context, queryKey string) (*Entry, error) {
	var (
		query     string
		blob      []byte
		fetchedAt time.Time
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT query, records, fetched_at FROM search_cache WHERE query_key = ?`,
		queryKey,
	).Scan(&query, &blob, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		s.misses.Add(1)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cache get: %w", err)
	}

	var records []models.Certificate
	if err := json.Unmarshal(blob, &records); err != nil {
		s.misses.Add(1)
		return nil, fmt.Errorf("%w: %s", ErrCorrupt, queryKey)
	}

	s.hits.Add(1)
	return &Entry{Query: query, Records: records, FetchedAt: fetchedAt}, nil
}

// Put replaces the entry for a query key. The write is a single
// INSERT OR REPLACE, so a concurrent reader sees either the old record
// set or the new one, never a mix.
func (s *Store) Put(ctx context.Context, queryKey, query string, records []models.Certificate) error {
	blob, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("cache put: encode records: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO search_cache (query_key, query, records, record_count, fetched_at)
		 VALUES (?, ?, ?, ?, ?)`,
		queryKey, query, blob, len(records), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("cache put: %w", err)
	}
	return nil
}

// Cleanup removes search entries whose fetch time is at least maxAge old
// and returns how many were removed. This is space reclamation, separate
// from the freshness check on reads: it removes entries unconditionally,
// fresh-by-read-policy or not. Coordinates are not aged out.
func (s *Store) Cleanup(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-maxAge)
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM search_cache WHERE fetched_at <= ?`, cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("cache cleanup: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("cache cleanup: %w", err)
	}
	return n, nil
}

// Stats reports entry and record counts plus the fetch-time range.
func (s *Store) Stats(ctx context.Context) (models.CacheStats, error) {
	stats := models.CacheStats{
		Hits:   s.hits.Load(),
		Misses: s.misses.Load(),
	}

	var oldest, newest sql.NullTime
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(record_count), 0), MIN(fetched_at), MAX(fetched_at) FROM search_cache`,
	).Scan(&stats.Entries, &stats.TotalRecords, &oldest, &newest)
	if err != nil {
		return models.CacheStats{}, fmt.Errorf("cache stats: %w", err)
	}
	if oldest.Valid {
		stats.OldestFetch = oldest.Time
	}
	if newest.Valid {
		stats.NewestFetch = newest.Time
	}

	err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM coord_cache`).Scan(&stats.Coordinates)
	if err != nil {
		return models.CacheStats{}, fmt.Errorf("cache stats: %w", err)
	}
	return stats, nil
}

// Coordinate retrieves a cached resolution, or nil if absent.
func (s *Store) Coordinate(ctx context.Context, locationKey string) (*models.Coordinate, error) {
	var c models.Coordinate
	err := s.db.QueryRowContext(ctx,
		`SELECT lat, lon, provider, resolved_at FROM coord_cache WHERE location_key = ?`,
		locationKey,
	).Scan(&c.Lat, &c.Lon, &c.Provider, &c.ResolvedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("coordinate get: %w", err)
	}
	return &c, nil
}

// PutCoordinate stores a resolution. Callers only persist validated
// coordinates, so an invalid result is retried rather than pinned.
func (s *Store) PutCoordinate(ctx context.Context, locationKey string, c models.Coordinate) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO coord_cache (location_key, lat, lon, provider, resolved_at)
		 VALUES (?, ?, ?, ?, ?)`,
		locationKey, c.Lat, c.Lon, c.Provider, c.ResolvedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("coordinate put: %w", err)
	}
	return nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
